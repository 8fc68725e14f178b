package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Service manages doctor profiles and their availability exceptions.
type Service struct {
	doctorRepo repository.DoctorRepository
	excRepo    repository.ExceptionRepository
	now        func() time.Time
}

func NewService(doctorRepo repository.DoctorRepository, excRepo repository.ExceptionRepository) *Service {
	return &Service{
		doctorRepo: doctorRepo,
		excRepo:    excRepo,
		now:        time.Now,
	}
}

// List is open to any authenticated caller; patients browse doctors when
// booking.
func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctorRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctors, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	doctor := &model.Doctor{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		UserID:            req.UserID,
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Specialty:         req.Specialty,
		AvailableDays:     req.AvailableDays,
		DailyPatientLimit: req.DailyPatientLimit,
	}
	if err := s.doctorRepo.Create(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a doctor profile with this email already exists", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

// Update applies a partial edit. Admins edit anyone; a doctor edits only
// their own profile.
func (s *Service) Update(ctx context.Context, requester model.Identity, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	if !requester.IsAdmin() && doctor.UserID != requester.UserID {
		return nil, apperrors.Forbidden("you do not have permission to update this doctor", nil)
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.AvailableDays != nil {
		doctor.AvailableDays = *req.AvailableDays
	}
	if req.DailyPatientLimit != nil {
		doctor.DailyPatientLimit = *req.DailyPatientLimit
	}
	doctor.UpdatedAt = s.now()

	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.doctorRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("doctor", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// CreateException marks the doctor unavailable on a calendar date.
// Admins may create exceptions for any doctor; a doctor only for
// themselves.
func (s *Service) CreateException(ctx context.Context, requester model.Identity, req *model.CreateExceptionRequest) (*model.AvailabilityException, error) {
	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	if !requester.IsAdmin() && doctor.UserID != requester.UserID {
		return nil, apperrors.Forbidden("you do not have permission to manage this doctor's availability", nil)
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, apperrors.Validation("date must be in YYYY-MM-DD format", err)
	}

	exc := &model.AvailabilityException{
		ID:         uuid.New(),
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		Date:       req.Date,
		Reason:     req.Reason,
		CreatedBy:  requester.UserID,
		CreatedAt:  s.now(),
	}
	if err := s.excRepo.Create(ctx, exc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an exception for this date already exists", err)
		}
		return nil, apperrors.Internal(err)
	}
	return exc, nil
}

func (s *Service) DeleteException(ctx context.Context, requester model.Identity, doctorID, id uuid.UUID) error {
	doctor, err := s.doctorRepo.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("doctor", err)
		}
		return apperrors.Internal(err)
	}

	if !requester.IsAdmin() && doctor.UserID != requester.UserID {
		return apperrors.Forbidden("you do not have permission to manage this doctor's availability", nil)
	}

	if err := s.excRepo.Delete(ctx, doctorID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("availability exception", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityException, error) {
	if _, err := s.doctorRepo.Get(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	excs, err := s.excRepo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if excs == nil {
		excs = []*model.AvailabilityException{}
	}
	return excs, nil
}
