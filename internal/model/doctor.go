package model

import (
	"github.com/google/uuid"
)

// Doctor is the professional profile behind a user with role doctor,
// linked by UserID. AvailableDays is a free-text weekly pattern; slot
// computation happens client-side. DailyPatientLimit is stored but not
// enforced anywhere in the booking path.
type Doctor struct {
	Base
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	Name              string    `json:"name" db:"name"`
	Email             string    `json:"email" db:"email"`
	Phone             string    `json:"phone" db:"phone"`
	Specialty         string    `json:"specialty" db:"specialty"`
	AvailableDays     string    `json:"available_days" db:"available_days"`
	DailyPatientLimit int       `json:"daily_patient_limit" db:"daily_patient_limit"`
}

// CreateDoctorRequest represents doctor creation parameters
type CreateDoctorRequest struct {
	UserID            uuid.UUID `json:"user_id"`
	Name              string    `json:"name" binding:"required"`
	Email             string    `json:"email" binding:"required,email"`
	Phone             string    `json:"phone"`
	Specialty         string    `json:"specialty"`
	AvailableDays     string    `json:"available_days"`
	DailyPatientLimit int       `json:"daily_patient_limit"`
}

// UpdateDoctorRequest represents doctor update parameters
type UpdateDoctorRequest struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	Specialty         *string `json:"specialty"`
	AvailableDays     *string `json:"available_days"`
	DailyPatientLimit *int    `json:"daily_patient_limit"`
}
