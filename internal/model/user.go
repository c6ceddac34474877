package model

import (
	"time"
)

type UserRole string

const (
	Cadet      UserRole = "cadet"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'cadet'" json:"role"`
	Unit      string    `gorm:"size:100" json:"unit"` // 所属营/分队
	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}
