package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Service manages user accounts. Admins operate on anyone; everyone else
// only on themselves.
type Service struct {
	userRepo    repository.UserRepository
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
) *Service {
	return &Service{
		userRepo:    userRepo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		now:         time.Now,
	}
}

func (s *Service) Get(ctx context.Context, requester model.Identity, id uuid.UUID) (*model.User, error) {
	if !requester.IsAdmin() && requester.UserID != id {
		return nil, apperrors.Forbidden("you do not have permission to view this user", nil)
	}

	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, requester model.Identity) ([]*model.User, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("", nil)
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}

// Update applies a partial edit. Role changes are admin-only; the field
// is dropped silently for other callers.
func (s *Service) Update(ctx context.Context, requester model.Identity, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	if !requester.IsAdmin() && requester.UserID != id {
		return nil, apperrors.Forbidden("you do not have permission to update this user", nil)
	}

	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Birthday != nil {
		user.Birthday = *req.Birthday
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Role != nil && requester.IsAdmin() {
		user.Role = *req.Role
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// Delete removes the account and its role profile. Appointments are left
// in place; their participant snapshots keep history readable.
func (s *Service) Delete(ctx context.Context, requester model.Identity, id uuid.UUID) error {
	if !requester.IsAdmin() && requester.UserID != id {
		return apperrors.Forbidden("you do not have permission to delete this user", nil)
	}

	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user", err)
		}
		return apperrors.Internal(err)
	}

	switch user.Role {
	case model.RoleDoctor:
		if err := s.doctorRepo.DeleteByUserID(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperrors.Internal(err)
		}
	case model.RolePatient:
		if err := s.patientRepo.DeleteByUserID(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperrors.Internal(err)
		}
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}
