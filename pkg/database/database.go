package database

import (
	"evalhub_backend/internal/config"
	"evalhub_backend/internal/model"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Question{},
		&model.Submission{},
		&model.Screenshot{},
		&model.Assignment{},
		&model.EvaluationAudit{},
		&model.Evaluation{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认管理员账号（仅在用户表为空时创建）
	var count int64
	db.Model(&model.User{}).Count(&count)
	if count == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("admin123456"), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		admin := &model.User{
			Name:        "管理员",
			Email:       "admin@evalhub.local",
			Password:    string(hashed),
			Role:        model.Admin,
			MaxCapacity: 50,
			IsAvailable: true,
		}
		if err := db.Create(admin).Error; err != nil {
			return nil, err
		}
		log.Println("Default admin account created: admin@evalhub.local")
	}

	return db, nil
}
