package model

import "encoding/json"

// swagger:model Evaluation
// Evaluation 评分结果，评阅完成（assignment 进入 evaluated）时写入。
type Evaluation struct {
	BaseModel
	SubmissionID uint            `gorm:"uniqueIndex;not null;type:bigint unsigned" json:"submissionId"`
	FacultyID    uint            `gorm:"index;not null;type:bigint unsigned" json:"facultyId"`
	Scores       json.RawMessage `gorm:"type:json" json:"scores"` // 按题目的得分明细
	TotalScore   int             `gorm:"not null;default:0" json:"totalScore"`
	Feedback     string          `gorm:"type:text" json:"feedback"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

type QuestionScore struct {
	QuestionID uint   `json:"questionId"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}
