package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// ErrNotFound is returned by every repository when a lookup matches no
// row. Services translate it into their own error taxonomy.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, including the scheduled-slot index on appointments.
var ErrDuplicate = errors.New("duplicate")

// All repository interfaces in one file
type (
	// UserRepository is the identity store for accounts of every role.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
		UpdateRecentDoctor(ctx context.Context, patientUserID, doctorID uuid.UUID) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteByUserID(ctx context.Context, userID uuid.UUID) error
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteByUserID(ctx context.Context, userID uuid.UUID) error
		List(ctx context.Context) ([]*model.Patient, error)
	}

	// AppointmentRepository persists appointment records. HasConflict is
	// the conflict checker: a point read for a scheduled appointment at
	// exactly the given instant, taken immediately before insert.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		HasConflict(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)
		Stats(ctx context.Context) (*model.AppointmentStats, error)
	}

	ExceptionRepository interface {
		Create(ctx context.Context, exc *model.AvailabilityException) error
		Get(ctx context.Context, doctorID, id uuid.UUID) (*model.AvailabilityException, error)
		Delete(ctx context.Context, doctorID, id uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityException, error)
		List(ctx context.Context) ([]*model.AvailabilityException, error)
	}
)
