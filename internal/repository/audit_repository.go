package repository

import (
	"evalhub_backend/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 审计日志仅追加，不提供更新和删除
type AuditRepository struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

func (r *AuditRepository) Create(tx *gorm.DB, entry *model.EvaluationAudit) error {
	return tx.Create(entry).Error
}

type AuditFilter struct {
	SubmissionID uint
	FacultyID    uint
	ActionType   string
}

func (r *AuditRepository) List(filter AuditFilter, page, limit int) ([]model.EvaluationAudit, int64, error) {
	var entries []model.EvaluationAudit
	var total int64

	query := r.DB.Model(&model.EvaluationAudit{})
	if filter.SubmissionID > 0 {
		query = query.Where("submission_id = ?", filter.SubmissionID)
	}
	if filter.FacultyID > 0 {
		query = query.Where("from_faculty_id = ? OR to_faculty_id = ?", filter.FacultyID, filter.FacultyID)
	}
	if filter.ActionType != "" {
		query = query.Where("action_type = ?", filter.ActionType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

// ClearFacultyRefs 评阅人被删除时置空引用，不阻塞删除
func (r *AuditRepository) ClearFacultyRefs(tx *gorm.DB, facultyID uint) error {
	if err := tx.Model(&model.EvaluationAudit{}).
		Where("from_faculty_id = ?", facultyID).
		Update("from_faculty_id", nil).Error; err != nil {
		return err
	}
	return tx.Model(&model.EvaluationAudit{}).
		Where("to_faculty_id = ?", facultyID).
		Update("to_faculty_id", nil).Error
}
