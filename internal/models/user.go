package models

import "time"

// Role names used across assignment slots and route guards.
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleDesigner     = "designer"
	RoleMotionEditor = "motion_editor"
	RoleCopywriter   = "copywriter"
	RoleScheduler    = "scheduler"
)

// UserModel represents an agency staff member.
type UserModel struct {
	Base
	Username      string     `json:"username" gorm:"uniqueIndex;not null"`
	Email         string     `json:"email"    gorm:"uniqueIndex;not null"`
	Password      string     `json:"-"        gorm:"not null"`
	Role          string     `json:"role"     gorm:"index;not null;default:designer"`
	Active        bool       `json:"active"   gorm:"default:true"`
	LastLoginTime *time.Time `json:"last_login_time"`
}

func (UserModel) TableName() string { return "users" }
