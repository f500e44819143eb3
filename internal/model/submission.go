package model

import (
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionAssigned  SubmissionStatus = "assigned"
	SubmissionEvaluated SubmissionStatus = "evaluated"
)

// swagger:model Submission
type Submission struct {
	BaseModel
	UserID      uint             `gorm:"index;not null;type:bigint unsigned" json:"userId"`
	User        *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CourseID    uint             `gorm:"index;not null;type:bigint unsigned" json:"courseId"`
	Answers     json.RawMessage  `gorm:"type:json" json:"answers"`
	Status      SubmissionStatus `gorm:"type:enum('pending','assigned','evaluated');default:'pending'" json:"status"`
	Weight      int              `gorm:"not null;default:1" json:"weight"` // 评阅成本单位
	SubmittedAt time.Time        `json:"submittedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

// swagger:model Screenshot
type Screenshot struct {
	BaseModel
	SubmissionID uint   `gorm:"index;not null;type:bigint unsigned" json:"submissionId"`
	ObjectKey    string `gorm:"size:255;not null" json:"objectKey"`
	URL          string `gorm:"size:512" json:"url"`
	ContentType  string `gorm:"size:100" json:"contentType"`
	Size         int64  `gorm:"default:0" json:"size"`
}

func (Screenshot) TableName() string {
	return "screenshots"
}
