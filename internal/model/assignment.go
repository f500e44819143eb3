package model

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentEvaluated  AssignmentStatus = "evaluated"
)

// ActiveAssignmentStatuses 计入评阅人负载的状态集合
var ActiveAssignmentStatuses = []AssignmentStatus{AssignmentAssigned, AssignmentInProgress}

// swagger:model Assignment
// Assignment 将一份提交绑定到唯一负责的评阅人。
// Version 从 1 开始，每次成功写入 +1；带版本谓词的更新命中 0 行即视为并发冲突。
type Assignment struct {
	BaseModel
	SubmissionID uint             `gorm:"uniqueIndex;not null;type:bigint unsigned" json:"submissionId"`
	Submission   *Submission      `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
	FacultyID    uint             `gorm:"index;not null;type:bigint unsigned" json:"facultyId"`
	Status       AssignmentStatus `gorm:"type:enum('assigned','in_progress','evaluated');default:'assigned'" json:"status"`
	Version      int              `gorm:"not null;default:1" json:"version"`

	// 软锁：评阅人进入评阅时设置，心跳刷新 LockedAt
	LockedBy *uint      `gorm:"type:bigint unsigned" json:"lockedBy,omitempty"`
	LockedAt *time.Time `json:"lockedAt,omitempty"`

	ReallocationCount int        `gorm:"not null;default:0" json:"reallocationCount"`
	LastReallocatedAt *time.Time `json:"lastReallocatedAt,omitempty"`

	// 计入容量的成本单位，默认 1
	SubmissionWeight int `gorm:"not null;default:1" json:"submissionWeight"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsTerminal 评阅完成后禁止任何后续状态迁移
func (a *Assignment) IsTerminal() bool {
	return a.Status == AssignmentEvaluated
}
