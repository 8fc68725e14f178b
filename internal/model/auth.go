package model

import (
	"github.com/google/uuid"
)

// Identity is the resolved caller of a request: the subject and role the
// authentication gate vouched for. Services trust it as-is.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// TokenClaims are the claims carried by an access token
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// LoginRequest represents login parameters. Role is optional; when set,
// the login is rejected unless the account holds that role.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=patient doctor admin"`
}

// RegisterRequest represents patient self-registration parameters
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
	Gender    string `json:"gender"`
	Address   string `json:"address"`
}

// RegisterDoctorRequest represents admin-side doctor registration
type RegisterDoctorRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Phone         string `json:"phone"`
	Specialty     string `json:"specialty"`
	AvailableDays string `json:"available_days"`
}

// TokenResponse is the login/refresh payload
type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
