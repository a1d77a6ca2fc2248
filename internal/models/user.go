package models

import (
	"time"
)

// User is a back-office operator account.
type User struct {
	BaseModel
	Name         string     `json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Phone        string     `json:"phone"`
	Department   string     `json:"department"`
	Region       string     `json:"region"`
	Status       string     `gorm:"default:active" json:"status"`
	LastOTP      string     `gorm:"column:last_otp" json:"-"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at" json:"-"`
}

type Role struct {
	BaseModel
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	Status      string       `gorm:"default:enabled" json:"status"`
	CreatedBy   uint         `json:"created_by"`
	Permissions []Permission `gorm:"many2many:role_has_permissions" json:"permissions,omitempty"`
}

type Permission struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"uniqueIndex;not null" json:"name"`
	GroupName string `json:"group_name"`
	Module    string `json:"module"`
	Label     string `json:"label"`
}

// UserRole links users to roles.
type UserRole struct {
	UserID uint `gorm:"primaryKey" json:"user_id"`
	RoleID uint `gorm:"primaryKey;index" json:"role_id"`
}

func (UserRole) TableName() string { return "user_has_roles" }

// RolePermission links roles to permissions.
type RolePermission struct {
	RoleID       uint `gorm:"primaryKey" json:"role_id"`
	PermissionID uint `gorm:"primaryKey" json:"permission_id"`
}

func (RolePermission) TableName() string { return "role_has_permissions" }

// Session is one authenticated login. Only the SHA-256 of the token is stored.
type Session struct {
	TokenHash  string    `gorm:"primaryKey;size:64" json:"-"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`
}
