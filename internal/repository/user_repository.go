package repository

import (
	"evalhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		Update("last_seen", time.Now()).Error
}

// ListAvailableFaculty 可用评阅人，按缓存负载升序。
// 缓存负载只用于排序启发，容量判定另走实时聚合。
func (r *UserRepository) ListAvailableFaculty(tx *gorm.DB) ([]model.User, error) {
	var users []model.User
	err := tx.Where("role IN ? AND is_available = ? AND disabled = ?",
		[]model.UserRole{model.Faculty, model.Admin}, true, false).
		Order("current_load asc, id asc").
		Find(&users).Error
	return users, err
}

// FindFacultyForUpdate 持行锁读取评阅人，必须在事务内调用
func (r *UserRepository) FindFacultyForUpdate(tx *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	return &user, err
}

func (r *UserRepository) UpdateCurrentLoad(tx *gorm.DB, facultyID uint, load int) error {
	return tx.Model(&model.User{}).Where("id = ?", facultyID).
		Update("current_load", load).Error
}

func (r *UserRepository) ListFaculty(page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64
	query := r.DB.Model(&model.User{}).
		Where("role IN ?", []model.UserRole{model.Faculty, model.Admin})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("current_load desc, id asc").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}
