package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityException marks a doctor unavailable on a specific calendar
// date, overriding their weekly available_days pattern.
type AvailabilityException struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DoctorID   uuid.UUID `json:"doctor_id" db:"doctor_id"`
	DoctorName string    `json:"doctor_name" db:"doctor_name"`
	Date       string    `json:"date" db:"date"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedBy  uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateExceptionRequest represents exception creation parameters.
// DoctorID comes from the route path, not the body.
type CreateExceptionRequest struct {
	DoctorID uuid.UUID `json:"-"`
	Date     string    `json:"date" binding:"required"`
	Reason   string    `json:"reason" binding:"required"`
}

// AvailabilityView bundles the raw availability facts for one doctor:
// the weekly pattern, dated exceptions, and currently scheduled
// appointments. Free-slot computation is left to the caller.
type AvailabilityView struct {
	DoctorID      uuid.UUID                `json:"doctor_id"`
	DoctorName    string                   `json:"doctor_name"`
	AvailableDays string                   `json:"available_days"`
	Exceptions    []*AvailabilityException `json:"exceptions"`
	Appointments  []*Appointment           `json:"appointments"`
}
