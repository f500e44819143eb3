package repository

import (
	"evalhub_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(c *model.Course) error {
	return r.DB.Create(c).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var c model.Course
	err := r.DB.First(&c, id).Error
	return &c, err
}

func (r *CourseRepository) Update(c *model.Course) error {
	return r.DB.Save(c).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) List(page, limit int, publishedOnly bool) ([]model.Course, int64, error) {
	var cs []model.Course
	var total int64
	query := r.DB.Model(&model.Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&cs).Error
	return cs, total, err
}

// Question related methods
func (r *CourseRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *CourseRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *CourseRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *CourseRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *CourseRepository) ListQuestions(courseID uint) ([]model.Question, error) {
	var qs []model.Question
	query := r.DB.Model(&model.Question{})
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("`order` asc, created_at desc").Find(&qs).Error
	return qs, err
}
