package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Faculty UserRole = "faculty"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('student','faculty','admin');default:'student'" json:"role"`
	Language string   `gorm:"size:10;default:'en'" json:"language"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
	Disabled bool     `gorm:"default:false" json:"disabled"`

	// 评阅人容量字段，仅 faculty/admin 角色有意义。
	// CurrentLoad 是派生缓存，真实值始终由 assignments 表聚合得出。
	MaxCapacity int  `gorm:"default:20" json:"maxCapacity"`
	CurrentLoad int  `gorm:"default:0" json:"currentLoad"`
	IsAvailable bool `gorm:"default:true" json:"isAvailable"`

	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
