package model

import (
	"time"

	"github.com/google/uuid"
)

// User role constants
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// User represents a system user. Role is immutable post-registration
// except through the admin update path.
type User struct {
	Base
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	Role           string     `json:"role" db:"role"`
	Phone          string     `json:"phone" db:"phone"`
	Birthday       string     `json:"birthday" db:"birthday"`
	Gender         string     `json:"gender" db:"gender"`
	Address        string     `json:"address" db:"address"`
	RecentDoctorID *uuid.UUID `json:"recent_doctor_id,omitempty" db:"recent_doctor_id"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// FullName joins first and last name, matching the snapshot format stored
// on appointments.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user has admin privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateUserRequest represents user update parameters. Role is accepted
// only when the caller is an admin; the handler strips it otherwise.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
	Gender    *string `json:"gender"`
	Address   *string `json:"address"`
	Role      *string `json:"role" binding:"omitempty,oneof=patient doctor admin"`
}
