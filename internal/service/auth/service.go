package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

// Service handles registration, login and token validation. Registration
// creates both the account and the role profile so the profile
// back-reference used by authorization checks always exists.
type Service struct {
	userRepo    repository.UserRepository
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	jwt         auth.JWTService
	hasher      security.PasswordHasher
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	jwt auth.JWTService,
	hasher security.PasswordHasher,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		jwt:         jwt,
		hasher:      hasher,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a patient account plus its clinical profile.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RolePatient,
		Phone:        req.Phone,
		Birthday:     req.Birthday,
		Gender:       req.Gender,
		Address:      req.Address,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with this email already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		UserID:      user.ID,
		Name:        user.FullName(),
		Email:       user.Email,
		Phone:       user.Phone,
		DateOfBirth: user.Birthday,
		Gender:      user.Gender,
		Address:     user.Address,
	}
	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, apperrors.Internal(err)
	}

	return s.issueToken(user)
}

// RegisterDoctor creates a doctor account plus its professional profile.
// Admin-only; the handler enforces the role gate.
func (s *Service) RegisterDoctor(ctx context.Context, req *model.RegisterDoctorRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RoleDoctor,
		Phone:        req.Phone,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with this email already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	doctor := &model.Doctor{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		UserID:        user.ID,
		Name:          user.FullName(),
		Email:         user.Email,
		Phone:         user.Phone,
		Specialty:     req.Specialty,
		AvailableDays: req.AvailableDays,
	}
	if err := s.doctorRepo.Create(ctx, doctor); err != nil {
		return nil, apperrors.Internal(err)
	}

	return user, nil
}

// Login authenticates by email and password. When the request carries a
// role, the account must hold exactly that role; a mismatch is a
// permission failure, not a credential failure.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password", err)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password", nil)
	}

	if req.Role != "" && user.Role != req.Role {
		return nil, apperrors.Forbidden("account does not have the requested role", nil)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		// Non-fatal; the login itself succeeded.
		if s.logger != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record last login")
		}
	}

	return s.issueToken(user)
}

// ValidateToken parses and verifies an access token.
func (s *Service) ValidateToken(token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token", err)
	}
	return claims, nil
}

func (s *Service) issueToken(user *model.User) (*model.TokenResponse, error) {
	token, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
