package model

// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CoverURL    string `gorm:"size:512" json:"coverUrl"`
	IsPublished bool   `gorm:"default:false" json:"isPublished"`
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Question
type Question struct {
	BaseModel
	CourseID      uint   `gorm:"index;not null;type:bigint unsigned" json:"courseId"`
	QuestionType  string `gorm:"size:30;not null;default:'code'" json:"questionType"` // code, short_answer, choice
	Content       string `gorm:"type:text;not null" json:"content"`
	ReferenceCode string `gorm:"type:text" json:"referenceCode"`
	Points        int    `gorm:"default:10" json:"points"`
	Order         int    `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}
