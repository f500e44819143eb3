package service

import (
	"context"
	"encoding/json"
	"time"

	"evalhub_backend/internal/repository"
	"evalhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	dashboardCacheKey = "evalhub:dashboard:overview"
	dashboardCacheTTL = 30 * time.Second
)

// FacultyWorkload 单个评阅人的负载视图
type FacultyWorkload struct {
	FacultyID   uint   `json:"facultyId"`
	Name        string `json:"name"`
	MaxCapacity int    `json:"maxCapacity"`
	CurrentLoad int    `json:"currentLoad"`
	IsAvailable bool   `json:"isAvailable"`
}

// DashboardOverview 管理端工作台总览
type DashboardOverview struct {
	SubmissionCounts map[string]int64  `json:"submissionCounts"`
	AssignmentCounts map[string]int64  `json:"assignmentCounts"`
	Faculty          []FacultyWorkload `json:"faculty"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// DashboardService 工作台统计。负载视图读的是 current_load 缓存字段，
// 展示允许短暂滞后，整个总览再套一层 Redis 短缓存挡住刷屏。
type DashboardService struct {
	UserRepo       *repository.UserRepository
	SubmissionRepo *repository.SubmissionRepository
	AssignmentRepo *repository.AssignmentRepository
	Redis          *redis.Client
}

func NewDashboardService(userRepo *repository.UserRepository,
	submissionRepo *repository.SubmissionRepository,
	assignmentRepo *repository.AssignmentRepository,
	rdb *redis.Client) *DashboardService {
	return &DashboardService{
		UserRepo:       userRepo,
		SubmissionRepo: submissionRepo,
		AssignmentRepo: assignmentRepo,
		Redis:          rdb,
	}
}

func (s *DashboardService) Overview(ctx context.Context) (*DashboardOverview, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, dashboardCacheKey).Bytes()
		if err == nil {
			var overview DashboardOverview
			if err := json.Unmarshal(cached, &overview); err == nil {
				return &overview, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	overview, err := s.build()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(overview); err == nil {
			if err := s.Redis.Set(ctx, dashboardCacheKey, data, dashboardCacheTTL).Err(); err != nil {
				logger.Log.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return overview, nil
}

func (s *DashboardService) build() (*DashboardOverview, error) {
	submissionCounts, err := s.SubmissionRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	assignmentCounts, err := s.AssignmentRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	faculty, _, err := s.UserRepo.ListFaculty(1, 1000)
	if err != nil {
		return nil, err
	}

	workloads := make([]FacultyWorkload, 0, len(faculty))
	for _, f := range faculty {
		workloads = append(workloads, FacultyWorkload{
			FacultyID:   f.ID,
			Name:        f.Name,
			MaxCapacity: f.MaxCapacity,
			CurrentLoad: f.CurrentLoad,
			IsAvailable: f.IsAvailable,
		})
	}

	return &DashboardOverview{
		SubmissionCounts: submissionCounts,
		AssignmentCounts: assignmentCounts,
		Faculty:          workloads,
		GeneratedAt:      time.Now(),
	}, nil
}

// InvalidateCache 分配结构发生大变动后主动失效
func (s *DashboardService) InvalidateCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, dashboardCacheKey).Err(); err != nil {
		logger.Log.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}
