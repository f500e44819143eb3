package service

import (
	"errors"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"

	"gorm.io/gorm"
)

// EvaluationService 评分结果的只读查询，写入全部走 AssignmentService
type EvaluationService struct {
	EvaluationRepo *repository.EvaluationRepository
}

func NewEvaluationService(evaluationRepo *repository.EvaluationRepository) *EvaluationService {
	return &EvaluationService{EvaluationRepo: evaluationRepo}
}

func (s *EvaluationService) GetBySubmission(submissionID uint) (*model.Evaluation, error) {
	e, err := s.EvaluationRepo.FindBySubmissionID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("该提交尚无评分")
		}
		return nil, err
	}
	return e, nil
}

func (s *EvaluationService) List(facultyID uint, page, limit int) ([]model.Evaluation, int64, error) {
	return s.EvaluationRepo.List(facultyID, page, limit)
}
