package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Service manages patient clinical profiles. Clinical data is sensitive:
// admins and doctors read any profile, a patient only their own.
type Service struct {
	patientRepo repository.PatientRepository
	now         func() time.Time
}

func NewService(patientRepo repository.PatientRepository) *Service {
	return &Service{
		patientRepo: patientRepo,
		now:         time.Now,
	}
}

func (s *Service) List(ctx context.Context, requester model.Identity) ([]*model.Patient, error) {
	if !requester.IsAdmin() && requester.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("", nil)
	}
	patients, err := s.patientRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return patients, nil
}

func (s *Service) Get(ctx context.Context, requester model.Identity, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.patientRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	if !s.canView(requester, patient) {
		return nil, apperrors.Forbidden("you do not have permission to view this patient", nil)
	}
	return patient, nil
}

// GetOwn returns the requester's own clinical profile.
func (s *Service) GetOwn(ctx context.Context, requester model.Identity) (*model.Patient, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, requester.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Address:        req.Address,
		MedicalHistory: req.MedicalHistory,
		Allergies:      req.Allergies,
		Medications:    req.Medications,
	}
	if err := s.patientRepo.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a patient profile with this email already exists", err)
		}
		return nil, apperrors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, requester model.Identity, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patientRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	if !s.canView(requester, patient) {
		return nil, apperrors.Forbidden("you do not have permission to update this patient", nil)
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.MedicalHistory != nil {
		patient.MedicalHistory = *req.MedicalHistory
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.Medications != nil {
		patient.Medications = *req.Medications
	}
	patient.UpdatedAt = s.now()

	if err := s.patientRepo.Update(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.patientRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("patient", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) canView(requester model.Identity, patient *model.Patient) bool {
	if requester.IsAdmin() || requester.Role == model.RoleDoctor {
		return true
	}
	return patient.UserID == requester.UserID
}
