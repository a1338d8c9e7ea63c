package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	RoleStaff   = "staff"
	RoleManager = "manager"

	DefaultRole = RoleStaff
)

// User represents a back-office account that can manage the menu.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Role         string `gorm:"type:varchar(32);default:staff"`
}

// ValidRole reports whether value is a known role.
func ValidRole(value string) bool {
	switch value {
	case RoleStaff, RoleManager:
		return true
	default:
		return false
	}
}

// NormalizeRole returns value when it is a known role and DefaultRole otherwise.
func NormalizeRole(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if ValidRole(trimmed) {
		return trimmed
	}
	return DefaultRole
}
