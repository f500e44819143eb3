package repository

import (
	"evalhub_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) Create(tx *gorm.DB, e *model.Evaluation) error {
	return tx.Create(e).Error
}

func (r *EvaluationRepository) FindBySubmissionID(submissionID uint) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.DB.Where("submission_id = ?", submissionID).First(&e).Error
	return &e, err
}

func (r *EvaluationRepository) DeleteBySubmissionID(tx *gorm.DB, submissionID uint) error {
	return tx.Where("submission_id = ?", submissionID).Delete(&model.Evaluation{}).Error
}

func (r *EvaluationRepository) List(facultyID uint, page, limit int) ([]model.Evaluation, int64, error) {
	var es []model.Evaluation
	var total int64
	query := r.DB.Model(&model.Evaluation{})
	if facultyID > 0 {
		query = query.Where("faculty_id = ?", facultyID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&es).Error
	return es, total, err
}

// ListAll 导出用，不分页
func (r *EvaluationRepository) ListAll() ([]model.Evaluation, error) {
	var es []model.Evaluation
	err := r.DB.Order("created_at asc").Find(&es).Error
	return es, err
}
