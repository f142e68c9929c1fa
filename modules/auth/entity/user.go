package entity

import (
	"winetour-api/core/entity"
)

const RoleVendor = "vendor"

// User is a vendor account that owns bookings and calendar connections.
type User struct {
	entity.BaseEntity
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	FullName     string `db:"full_name" json:"full_name"`
	Slug         string `db:"slug" json:"slug"`
	Role         string `db:"role" json:"role"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}
