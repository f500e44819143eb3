package repository

import (
	"evalhub_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(s *model.Submission) error {
	return r.DB.Create(s).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.First(&s, id).Error
	return &s, err
}

// FindByIDTx 事务内读取，分配路径里必须走同一事务
func (r *SubmissionRepository) FindByIDTx(tx *gorm.DB, id uint) (*model.Submission, error) {
	var s model.Submission
	err := tx.First(&s, id).Error
	return &s, err
}

// ListUnassigned 未分配的提交，最早提交的优先
func (r *SubmissionRepository) ListUnassigned(tx *gorm.DB) ([]model.Submission, error) {
	var subs []model.Submission
	err := tx.Where("status = ?", model.SubmissionPending).
		Order("submitted_at asc, id asc").
		Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) UpdateStatus(tx *gorm.DB, id uint, status model.SubmissionStatus) error {
	return tx.Model(&model.Submission{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *SubmissionRepository) List(userID, courseID uint, status string, page, limit int) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64
	query := r.DB.Model(&model.Submission{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("submitted_at desc").Offset(offset).Limit(limit).Find(&subs).Error
	return subs, total, err
}

// CountByStatus 各状态提交数量，工作台统计用
func (r *SubmissionRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.DB.Model(&model.Submission{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (r *SubmissionRepository) CreateScreenshot(sc *model.Screenshot) error {
	return r.DB.Create(sc).Error
}

func (r *SubmissionRepository) ListScreenshots(submissionID uint) ([]model.Screenshot, error) {
	var shots []model.Screenshot
	err := r.DB.Where("submission_id = ?", submissionID).
		Order("created_at asc").
		Find(&shots).Error
	return shots, err
}
