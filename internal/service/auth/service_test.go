package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type memUserRepo struct {
	items map[uuid.UUID]*model.User
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *memUserRepo) List(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(r.items))
	for _, u := range r.items {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	u, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := at
	u.LastLoginAt = &t
	return nil
}

func (r *memUserRepo) UpdateRecentDoctor(_ context.Context, patientUserID, doctorID uuid.UUID) error {
	u, ok := r.items[patientUserID]
	if !ok {
		return repository.ErrNotFound
	}
	d := doctorID
	u.RecentDoctorID = &d
	return nil
}

type memDoctorRepo struct {
	items map[uuid.UUID]*model.Doctor
}

func (r *memDoctorRepo) Create(_ context.Context, d *model.Doctor) error {
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.items {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDoctorRepo) Update(_ context.Context, d *model.Doctor) error {
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *memDoctorRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	for id, d := range r.items {
		if d.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memDoctorRepo) List(_ context.Context) ([]*model.Doctor, error) {
	out := make([]*model.Doctor, 0, len(r.items))
	for _, d := range r.items {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

type memPatientRepo struct {
	items map[uuid.UUID]*model.Patient
}

func (r *memPatientRepo) Create(_ context.Context, p *model.Patient) error {
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *memPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.items {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPatientRepo) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	for _, p := range r.items {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPatientRepo) Update(_ context.Context, p *model.Patient) error {
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *memPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *memPatientRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	for id, p := range r.items {
		if p.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memPatientRepo) List(_ context.Context) ([]*model.Patient, error) {
	out := make([]*model.Patient, 0, len(r.items))
	for _, p := range r.items {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	users    *memUserRepo
	doctors  *memDoctorRepo
	patients *memPatientRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    &memUserRepo{items: make(map[uuid.UUID]*model.User)},
		doctors:  &memDoctorRepo{items: make(map[uuid.UUID]*model.Doctor)},
		patients: &memPatientRepo{items: make(map[uuid.UUID]*model.Patient)},
	}
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	f.svc = NewService(f.users, f.doctors, f.patients, jwtSvc, hasher, nil)
	return f
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.svc.Register(ctx, &model.RegisterRequest{
		Email:     "Alice@Example.com",
		Password:  "supersecret",
		FirstName: "Alice",
		LastName:  "Nguyen",
		Phone:     "555-0101",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RolePatient, resp.User.Role)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	// Registration also creates the clinical profile.
	patient, err := f.patients.GetByUserID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Nguyen", patient.Name)
	assert.Equal(t, "alice@example.com", patient.Email)

	// Duplicate email is rejected, case-insensitively.
	_, err = f.svc.Register(ctx, &model.RegisterRequest{
		Email:     "ALICE@example.com",
		Password:  "supersecret",
		FirstName: "Alice",
		LastName:  "Again",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestRegisterDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.RegisterDoctor(ctx, &model.RegisterDoctorRequest{
		Email:         "drlee@example.com",
		Password:      "supersecret",
		FirstName:     "Morgan",
		LastName:      "Lee",
		Specialty:     "cardiology",
		AvailableDays: "mon,tue,thu",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, user.Role)

	doctor, err := f.doctors.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morgan Lee", doctor.Name)
	assert.Equal(t, "cardiology", doctor.Specialty)
	assert.Equal(t, "mon,tue,thu", doctor.AvailableDays)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, &model.RegisterRequest{
		Email:     "alice@example.com",
		Password:  "supersecret",
		FirstName: "Alice",
		LastName:  "Nguyen",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		claims, err := f.svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
		assert.Equal(t, model.RolePatient, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "alice@example.com",
			Password: "wrongpassword",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "nobody@example.com",
			Password: "supersecret",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("role assertion mismatch", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
			Role:     model.RoleDoctor,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	})

	t.Run("role assertion match", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
			Role:     model.RolePatient,
		})
		assert.NoError(t, err)
	})

	t.Run("records last login", func(t *testing.T) {
		resp, err := f.svc.Login(ctx, &model.LoginRequest{
			Email:    "alice@example.com",
			Password: "supersecret",
		})
		require.NoError(t, err)

		user, err := f.users.Get(ctx, resp.User.ID)
		require.NoError(t, err)
		assert.NotNil(t, user.LastLoginAt)
	})
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ValidateToken("not-a-token")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}
