package service

import (
	"errors"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"

	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CoverURL    string `json:"coverUrl"`
	IsPublished bool   `json:"isPublished"`
}

func (s *CourseService) CreateCourse(creatorID uint, req CourseRequest) (*model.Course, error) {
	if req.Title == "" {
		return nil, util.NewValidationError("title required")
	}
	course := &model.Course{
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		IsPublished: req.IsPublished,
		CreatorID:   creatorID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(id uint, req CourseRequest) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("课程不存在")
		}
		return nil, err
	}

	course.Title = req.Title
	course.Description = req.Description
	course.CoverURL = req.CoverURL
	course.IsPublished = req.IsPublished

	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("课程不存在")
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(id uint) error {
	return s.CourseRepo.Delete(id)
}

func (s *CourseService) ListCourses(page, limit int, publishedOnly bool) ([]model.Course, int64, error) {
	return s.CourseRepo.List(page, limit, publishedOnly)
}

type QuestionRequest struct {
	CourseID      uint   `json:"courseId" binding:"required"`
	QuestionType  string `json:"questionType"`
	Content       string `json:"content" binding:"required"`
	ReferenceCode string `json:"referenceCode"`
	Points        int    `json:"points"`
	Order         int    `json:"order"`
}

func (s *CourseService) CreateQuestion(req QuestionRequest) (*model.Question, error) {
	if _, err := s.CourseRepo.FindByID(req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("课程不存在")
		}
		return nil, err
	}

	qType := req.QuestionType
	if qType == "" {
		qType = "code"
	}
	q := &model.Question{
		CourseID:      req.CourseID,
		QuestionType:  qType,
		Content:       req.Content,
		ReferenceCode: req.ReferenceCode,
		Points:        req.Points,
		Order:         req.Order,
	}
	if err := s.CourseRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CourseService) UpdateQuestion(id uint, req QuestionRequest) (*model.Question, error) {
	q, err := s.CourseRepo.FindQuestionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("题目不存在")
		}
		return nil, err
	}

	q.Content = req.Content
	q.ReferenceCode = req.ReferenceCode
	q.Points = req.Points
	q.Order = req.Order
	if req.QuestionType != "" {
		q.QuestionType = req.QuestionType
	}

	if err := s.CourseRepo.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CourseService) DeleteQuestion(id uint) error {
	return s.CourseRepo.DeleteQuestion(id)
}

func (s *CourseService) ListQuestions(courseID uint) ([]model.Question, error) {
	return s.CourseRepo.ListQuestions(courseID)
}
