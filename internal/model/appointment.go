package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Recognized reports whether the status is one of the three statuses the
// lifecycle rules act on. Other values are tolerated and stored opaquely.
func (s AppointmentStatus) Recognized() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is the central entity. PatientID, DoctorID and ScheduledAt
// are immutable after creation. PatientName, DoctorName and PatientPhone
// are snapshots taken at booking time and never re-derived.
type Appointment struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	PatientID         uuid.UUID         `json:"patient" db:"patient_id"`
	DoctorID          uuid.UUID         `json:"doctor" db:"doctor_id"`
	ScheduledAt       time.Time         `json:"date" db:"scheduled_at"`
	Status            AppointmentStatus `json:"status" db:"status"`
	Notes             string            `json:"notes" db:"notes"`
	BloodType         string            `json:"blood_type" db:"blood_type"`
	Medications       string            `json:"medications" db:"medications"`
	Allergies         string            `json:"allergies" db:"allergies"`
	MedicalConditions string            `json:"medical_conditions" db:"medical_conditions"`
	ReasonForVisit    string            `json:"reason_for_visit" db:"reason_for_visit"`
	PatientName       string            `json:"patient_name" db:"patient_name"`
	DoctorName        string            `json:"doctor_name" db:"doctor_name"`
	PatientPhone      string            `json:"patient_phone" db:"patient_phone"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// BookAppointmentRequest carries the booking input. PatientID is optional:
// when empty the requester books for themselves; admins may book on behalf
// of any patient.
type BookAppointmentRequest struct {
	PatientID         uuid.UUID `json:"patient"`
	DoctorID          uuid.UUID `json:"doctor" binding:"required"`
	Date              time.Time `json:"date" binding:"required"`
	Notes             string    `json:"notes"`
	BloodType         string    `json:"blood_type"`
	Medications       string    `json:"medications"`
	Allergies         string    `json:"allergies"`
	MedicalConditions string    `json:"medical_conditions"`
	ReasonForVisit    string    `json:"reason_for_visit"`
}

// UpdateAppointmentRequest represents a participant/admin field edit.
// Participants and scheduling are immutable; only these fields may change.
type UpdateAppointmentRequest struct {
	Status            *AppointmentStatus `json:"status"`
	Notes             *string            `json:"notes"`
	BloodType         *string            `json:"blood_type"`
	Medications       *string            `json:"medications"`
	Allergies         *string            `json:"allergies"`
	MedicalConditions *string            `json:"medical_conditions"`
	ReasonForVisit    *string            `json:"reason_for_visit"`
}

// UpdateStatusRequest carries a bare status transition
type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

// AppointmentFilters narrows list queries
type AppointmentFilters struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    AppointmentStatus
}

// AppointmentStats summarizes the appointment collection
type AppointmentStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
	Today     int64 `json:"today"`
}
