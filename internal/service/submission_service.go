package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"

	"gorm.io/gorm"
)

type SubmissionService struct {
	SubmissionRepo *repository.SubmissionRepository
	CourseRepo     *repository.CourseRepository
	Storage        *StorageService
}

func NewSubmissionService(submissionRepo *repository.SubmissionRepository,
	courseRepo *repository.CourseRepository, storage *StorageService) *SubmissionService {
	return &SubmissionService{
		SubmissionRepo: submissionRepo,
		CourseRepo:     courseRepo,
		Storage:        storage,
	}
}

type SubmissionRequest struct {
	CourseID uint            `json:"courseId" binding:"required"`
	Answers  json.RawMessage `json:"answers" binding:"required"`
	Weight   int             `json:"weight"`
}

func (s *SubmissionService) CreateSubmission(userID uint, req SubmissionRequest) (*model.Submission, error) {
	course, err := s.CourseRepo.FindByID(req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("课程不存在")
		}
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.NewBusinessRuleError("课程未发布，不能提交")
	}

	weight := req.Weight
	if weight <= 0 {
		weight = 1
	}

	sub := &model.Submission{
		UserID:      userID,
		CourseID:    req.CourseID,
		Answers:     req.Answers,
		Status:      model.SubmissionPending,
		Weight:      weight,
		SubmittedAt: time.Now(),
	}
	if err := s.SubmissionRepo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) GetSubmission(id uint) (*model.Submission, error) {
	sub, err := s.SubmissionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("提交不存在")
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) ListSubmissions(userID, courseID uint, status string, page, limit int) ([]model.Submission, int64, error) {
	return s.SubmissionRepo.List(userID, courseID, status, page, limit)
}

// UploadScreenshot 上传评阅用截图，仅允许图片类型
func (s *SubmissionService) UploadScreenshot(ctx context.Context, submissionID uint, file *multipart.FileHeader) (*model.Screenshot, error) {
	if _, err := s.SubmissionRepo.FindByID(submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("提交不存在")
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range util.AllowedScreenshotExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, util.NewValidationError("不支持的截图格式: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return nil, util.NewValidationError("截图必须是图片文件")
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("screenshots/%d/%s%s", submissionID, model.GenerateUUID(), ext)
	url, err := s.Storage.Upload(ctx, objectKey, src, file.Size, mimeType)
	if err != nil {
		return nil, err
	}

	shot := &model.Screenshot{
		SubmissionID: submissionID,
		ObjectKey:    objectKey,
		URL:          url,
		ContentType:  mimeType,
		Size:         file.Size,
	}
	if err := s.SubmissionRepo.CreateScreenshot(shot); err != nil {
		return nil, err
	}
	return shot, nil
}

func (s *SubmissionService) ListScreenshots(submissionID uint) ([]model.Screenshot, error) {
	return s.SubmissionRepo.ListScreenshots(submissionID)
}
