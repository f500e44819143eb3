package service

import (
	"errors"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

type ProfileUpdateRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Avatar   string `json:"avatar"`
}

func (s *UserService) UpdateProfile(userID uint, req ProfileUpdateRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("用户不存在")
		}
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Language != "" {
		user.Language = req.Language
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

type FacultyUpdateRequest struct {
	MaxCapacity *int  `json:"maxCapacity"`
	IsAvailable *bool `json:"isAvailable"`
}

// UpdateFacultySettings 管理员调整评阅人的容量上限和可用性。
// 只改配置字段，不碰 current_load，负载缓存由引擎事务维护。
func (s *UserService) UpdateFacultySettings(facultyID uint, req FacultyUpdateRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(facultyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("评阅人不存在")
		}
		return nil, err
	}
	if user.Role != model.Faculty && user.Role != model.Admin {
		return nil, util.NewValidationError("目标用户不是评阅人")
	}

	if req.MaxCapacity != nil {
		if *req.MaxCapacity < util.MinFacultyCapacity || *req.MaxCapacity > util.MaxFacultyCapacity {
			return nil, util.NewValidationError("容量上限须在 %d 到 %d 之间",
				util.MinFacultyCapacity, util.MaxFacultyCapacity)
		}
		user.MaxCapacity = *req.MaxCapacity
	}
	if req.IsAvailable != nil {
		user.IsAvailable = *req.IsAvailable
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListFaculty(page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.ListFaculty(page, limit)
}
