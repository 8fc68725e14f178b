package model

import (
	"github.com/google/uuid"
)

// Patient is the clinical profile behind a user with role patient,
// linked by UserID.
type Patient struct {
	Base
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone" db:"phone"`
	DateOfBirth    string    `json:"date_of_birth" db:"date_of_birth"`
	Gender         string    `json:"gender" db:"gender"`
	Address        string    `json:"address" db:"address"`
	MedicalHistory string    `json:"medical_history" db:"medical_history"`
	Allergies      string    `json:"allergies" db:"allergies"`
	Medications    string    `json:"medications" db:"medications"`
}

// CreatePatientRequest represents patient creation parameters
type CreatePatientRequest struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name" binding:"required"`
	Email          string    `json:"email" binding:"required,email"`
	Phone          string    `json:"phone"`
	DateOfBirth    string    `json:"date_of_birth"`
	Gender         string    `json:"gender"`
	Address        string    `json:"address"`
	MedicalHistory string    `json:"medical_history"`
	Allergies      string    `json:"allergies"`
	Medications    string    `json:"medications"`
}

// UpdatePatientRequest represents patient update parameters
type UpdatePatientRequest struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	DateOfBirth    *string `json:"date_of_birth"`
	Gender         *string `json:"gender"`
	Address        *string `json:"address"`
	MedicalHistory *string `json:"medical_history"`
	Allergies      *string `json:"allergies"`
	Medications    *string `json:"medications"`
}
