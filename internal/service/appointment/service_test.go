package appointment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// --- in-memory fakes ---

type memAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *memAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Status == model.AppointmentStatusScheduled {
		for _, existing := range r.items {
			if existing.DoctorID == a.DoctorID &&
				existing.ScheduledAt.Equal(a.ScheduledAt) &&
				existing.Status == model.AppointmentStatusScheduled {
				return repository.ErrDuplicate
			}
		}
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *memAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.items {
		if filters != nil {
			if filters.DoctorID != nil && a.DoctorID != *filters.DoctorID {
				continue
			}
			if filters.PatientID != nil && a.PatientID != *filters.PatientID {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out, nil
}

func (r *memAppointmentRepo) HasConflict(_ context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.DoctorID == doctorID && a.ScheduledAt.Equal(at) && a.Status == model.AppointmentStatusScheduled {
			return true, nil
		}
	}
	return false, nil
}

// racingRepo pretends the conflict check ran before a competing insert
// landed, so only the store-level duplicate guard is left.
type racingRepo struct {
	*memAppointmentRepo
}

func (r *racingRepo) HasConflict(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
	return false, nil
}

func (r *memAppointmentRepo) Stats(_ context.Context) (*model.AppointmentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.AppointmentStats{}
	today := time.Now().Truncate(24 * time.Hour)
	for _, a := range r.items {
		stats.Total++
		switch a.Status {
		case model.AppointmentStatusCompleted:
			stats.Completed++
		case model.AppointmentStatusScheduled:
			stats.Pending++
		}
		if a.ScheduledAt.Truncate(24 * time.Hour).Equal(today) {
			stats.Today++
		}
	}
	return stats, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.User

	recentDoctorCalls int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{items: make(map[uuid.UUID]*model.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memUserRepo) List(_ context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.items))
	for _, u := range r.items {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := at
	u.LastLoginAt = &t
	return nil
}

func (r *memUserRepo) UpdateRecentDoctor(_ context.Context, patientUserID, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recentDoctorCalls++
	u, ok := r.items[patientUserID]
	if !ok {
		return repository.ErrNotFound
	}
	d := doctorID
	u.RecentDoctorID = &d
	return nil
}

type memDoctorRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Doctor
}

func newMemDoctorRepo() *memDoctorRepo {
	return &memDoctorRepo{items: make(map[uuid.UUID]*model.Doctor)}
}

func (r *memDoctorRepo) Create(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDoctorRepo) Update(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[d.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memDoctorRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.items {
		if d.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memDoctorRepo) List(_ context.Context) ([]*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Doctor, 0, len(r.items))
	for _, d := range r.items {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

type memExceptionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.AvailabilityException
}

func newMemExceptionRepo() *memExceptionRepo {
	return &memExceptionRepo{items: make(map[uuid.UUID]*model.AvailabilityException)}
}

func (r *memExceptionRepo) Create(_ context.Context, e *model.AvailabilityException) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *memExceptionRepo) Get(_ context.Context, doctorID, id uuid.UUID) (*model.AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok || e.DoctorID != doctorID {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memExceptionRepo) Delete(_ context.Context, doctorID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok || e.DoctorID != doctorID {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memExceptionRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AvailabilityException
	for _, e := range r.items {
		if e.DoctorID == doctorID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memExceptionRepo) List(_ context.Context) ([]*model.AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.AvailabilityException, 0, len(r.items))
	for _, e := range r.items {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// --- fixture ---

type fixture struct {
	svc     *Service
	appts   *memAppointmentRepo
	users   *memUserRepo
	doctors *memDoctorRepo
	excs    *memExceptionRepo

	patient *model.User
	docUser *model.User
	admin   *model.User
	doctor  *model.Doctor
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		appts:   newMemAppointmentRepo(),
		users:   newMemUserRepo(),
		doctors: newMemDoctorRepo(),
		excs:    newMemExceptionRepo(),
	}
	f.svc = NewService(f.appts, f.excs, f.users, f.doctors, nil, nil, nil, opts)

	ctx := context.Background()

	f.patient = &model.User{
		Base:      model.Base{ID: uuid.New()},
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Nguyen",
		Role:      model.RolePatient,
		Phone:     "555-0101",
	}
	require.NoError(t, f.users.Create(ctx, f.patient))

	f.docUser = &model.User{
		Base:      model.Base{ID: uuid.New()},
		Email:     "drlee@example.com",
		FirstName: "Morgan",
		LastName:  "Lee",
		Role:      model.RoleDoctor,
	}
	require.NoError(t, f.users.Create(ctx, f.docUser))

	f.admin = &model.User{
		Base:  model.Base{ID: uuid.New()},
		Email: "admin@example.com",
		Role:  model.RoleAdmin,
	}
	require.NoError(t, f.users.Create(ctx, f.admin))

	f.doctor = &model.Doctor{
		Base:          model.Base{ID: uuid.New()},
		UserID:        f.docUser.ID,
		Name:          "Dr. Morgan Lee",
		Email:         "drlee@example.com",
		Specialty:     "cardiology",
		AvailableDays: "mon,tue,thu",
	}
	require.NoError(t, f.doctors.Create(ctx, f.doctor))

	return f
}

func (f *fixture) patientIdentity() model.Identity {
	return model.Identity{UserID: f.patient.ID, Role: model.RolePatient}
}

func (f *fixture) doctorIdentity() model.Identity {
	return model.Identity{UserID: f.docUser.ID, Role: model.RoleDoctor}
}

func (f *fixture) adminIdentity() model.Identity {
	return model.Identity{UserID: f.admin.ID, Role: model.RoleAdmin}
}

func futureSlot() time.Time {
	return time.Now().Add(48 * time.Hour).Truncate(time.Minute)
}

// --- tests ---

func TestBook(t *testing.T) {
	ctx := context.Background()

	t.Run("creates scheduled appointment with snapshots", func(t *testing.T) {
		f := newFixture(t, Options{})
		at := futureSlot()

		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
			Notes:    "first visit",
		})
		require.NoError(t, err)

		assert.Equal(t, model.AppointmentStatusScheduled, appt.Status)
		assert.Equal(t, f.patient.ID, appt.PatientID)
		assert.Equal(t, f.doctor.ID, appt.DoctorID)
		assert.True(t, appt.ScheduledAt.Equal(at))
		assert.Equal(t, "Alice Nguyen", appt.PatientName)
		assert.Equal(t, "Dr. Morgan Lee", appt.DoctorName)
		assert.Equal(t, "555-0101", appt.PatientPhone)
		assert.NotEqual(t, uuid.Nil, appt.ID)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, Options{})

		_, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			Date: futureSlot(),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

		_, err = f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})

	t.Run("rejects past dates strictly before now", func(t *testing.T) {
		f := newFixture(t, Options{})
		fixed := time.Now()
		f.svc.now = func() time.Time { return fixed }

		_, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     fixed.Add(-time.Second),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPastDate))

		// Exactly now is not strictly before now and is accepted.
		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     fixed,
		})
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusScheduled, appt.Status)
	})

	t.Run("rejects conflicting slot", func(t *testing.T) {
		f := newFixture(t, Options{})
		at := futureSlot()

		_, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
		})
		require.NoError(t, err)

		_, err = f.svc.Book(ctx, f.adminIdentity(), &model.BookAppointmentRequest{
			PatientID: f.patient.ID,
			DoctorID:  f.doctor.ID,
			Date:      at,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	})

	t.Run("cancelled slot can be rebooked", func(t *testing.T) {
		f := newFixture(t, Options{})
		at := futureSlot()

		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
		})
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusCancelled)
		require.NoError(t, err)

		_, err = f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
		})
		assert.NoError(t, err)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		f := newFixture(t, Options{})

		_, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: uuid.New(),
			Date:     futureSlot(),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})

	t.Run("unknown patient booked by admin", func(t *testing.T) {
		f := newFixture(t, Options{})

		_, err := f.svc.Book(ctx, f.adminIdentity(), &model.BookAppointmentRequest{
			PatientID: uuid.New(),
			DoctorID:  f.doctor.ID,
			Date:      futureSlot(),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})

	t.Run("non-admin always books for themselves", func(t *testing.T) {
		f := newFixture(t, Options{})

		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			PatientID: f.admin.ID, // ignored
			DoctorID:  f.doctor.ID,
			Date:      futureSlot(),
		})
		require.NoError(t, err)
		assert.Equal(t, f.patient.ID, appt.PatientID)
	})

	t.Run("timestamp slipping into the past auto-completes", func(t *testing.T) {
		f := newFixture(t, Options{})

		// Clock advances past the slot between validation and insert.
		base := time.Now()
		at := base.Add(time.Second)
		calls := 0
		f.svc.now = func() time.Time {
			calls++
			if calls <= 1 {
				return base
			}
			return base.Add(time.Minute)
		}

		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
		})
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCompleted, appt.Status)

		// Both effects occur together: the patient's recent doctor is set.
		patient, err := f.users.Get(ctx, f.patient.ID)
		require.NoError(t, err)
		require.NotNil(t, patient.RecentDoctorID)
		assert.Equal(t, f.doctor.ID, *patient.RecentDoctorID)
	})

	t.Run("duplicate insert maps to conflict", func(t *testing.T) {
		f := newFixture(t, Options{})
		at := futureSlot()

		// Simulate the race window: the conflict check misses the
		// competing row, the unique index catches it at insert.
		f.svc.repo = &racingRepo{memAppointmentRepo: f.appts}

		seeded := &model.Appointment{
			ID:          uuid.New(),
			PatientID:   f.patient.ID,
			DoctorID:    f.doctor.ID,
			ScheduledAt: at,
			Status:      model.AppointmentStatusScheduled,
		}
		require.NoError(t, f.appts.Create(ctx, seeded))

		_, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     at,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot(),
	})
	require.NoError(t, err)

	t.Run("admin, patient and doctor can view", func(t *testing.T) {
		for _, id := range []model.Identity{f.adminIdentity(), f.patientIdentity(), f.doctorIdentity()} {
			got, err := f.svc.Get(ctx, id, appt.ID)
			require.NoError(t, err)
			assert.Equal(t, appt.ID, got.ID)
		}
	})

	t.Run("stranger gets forbidden, not not-found", func(t *testing.T) {
		stranger := model.Identity{UserID: uuid.New(), Role: model.RolePatient}
		_, err := f.svc.Get(ctx, stranger, appt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	})

	t.Run("missing appointment is not-found for everyone", func(t *testing.T) {
		_, err := f.svc.Get(ctx, f.adminIdentity(), uuid.New())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

		stranger := model.Identity{UserID: uuid.New(), Role: model.RolePatient}
		_, err = f.svc.Get(ctx, stranger, uuid.New())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})

	t.Run("unrelated doctor gets forbidden", func(t *testing.T) {
		otherUser := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleDoctor}
		require.NoError(t, f.users.Create(ctx, otherUser))
		require.NoError(t, f.doctors.Create(ctx, &model.Doctor{
			Base:   model.Base{ID: uuid.New()},
			UserID: otherUser.ID,
			Name:   "Dr. Someone Else",
		}))

		_, err := f.svc.Get(ctx, model.Identity{UserID: otherUser.ID, Role: model.RoleDoctor}, appt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, f *fixture) *model.Appointment {
		t.Helper()
		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     futureSlot(),
		})
		require.NoError(t, err)
		return appt
	}

	t.Run("doctor completes, recent doctor recorded once", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt := book(t, f)

		updated, err := f.svc.UpdateStatus(ctx, f.doctorIdentity(), appt.ID, model.AppointmentStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCompleted, updated.Status)

		patient, err := f.users.Get(ctx, f.patient.ID)
		require.NoError(t, err)
		require.NotNil(t, patient.RecentDoctorID)
		assert.Equal(t, f.doctor.ID, *patient.RecentDoctorID)

		// Repeating the transition keeps the state, does not error, and
		// does not re-record the recent doctor.
		again, err := f.svc.UpdateStatus(ctx, f.doctorIdentity(), appt.ID, model.AppointmentStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCompleted, again.Status)
		assert.Equal(t, 1, f.users.recentDoctorCalls)
	})

	t.Run("patient cannot update status", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt := book(t, f)

		_, err := f.svc.UpdateStatus(ctx, f.patientIdentity(), appt.ID, model.AppointmentStatusCompleted)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	})

	t.Run("permissive mode allows any transition", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt := book(t, f)

		_, err := f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusCompleted)
		require.NoError(t, err)

		// Reverting a mis-marked appointment is allowed by default.
		updated, err := f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusScheduled)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusScheduled, updated.Status)
	})

	t.Run("strict mode rejects transitions out of terminal states", func(t *testing.T) {
		f := newFixture(t, Options{StrictTransitions: true})
		appt := book(t, f)

		_, err := f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusCancelled)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusScheduled)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

		// Same-status updates remain a no-op even in strict mode.
		_, err = f.svc.UpdateStatus(ctx, f.adminIdentity(), appt.ID, model.AppointmentStatusCancelled)
		assert.NoError(t, err)
	})

	t.Run("missing appointment", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.svc.UpdateStatus(ctx, f.adminIdentity(), uuid.New(), model.AppointmentStatusCompleted)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot(),
	})
	require.NoError(t, err)

	notes := "bring previous bloodwork"
	updated, err := f.svc.Update(ctx, f.doctorIdentity(), appt.ID, &model.UpdateAppointmentRequest{
		Notes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, appt.PatientID, updated.PatientID)
	assert.True(t, appt.ScheduledAt.Equal(updated.ScheduledAt))

	// Completion through the edit path fires the same side effect.
	completed := model.AppointmentStatusCompleted
	_, err = f.svc.Update(ctx, f.doctorIdentity(), appt.ID, &model.UpdateAppointmentRequest{
		Status: &completed,
	})
	require.NoError(t, err)

	patient, err := f.users.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	require.NotNil(t, patient.RecentDoctorID)
	assert.Equal(t, f.doctor.ID, *patient.RecentDoctorID)

	stranger := model.Identity{UserID: uuid.New(), Role: model.RolePatient}
	_, err = f.svc.Update(ctx, stranger, appt.ID, &model.UpdateAppointmentRequest{Notes: &notes})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("booking patient can delete", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     futureSlot(),
		})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, f.patientIdentity(), appt.ID))

		_, err = f.svc.Get(ctx, f.adminIdentity(), appt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})

	t.Run("doctor cannot delete", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     futureSlot(),
		})
		require.NoError(t, err)

		err = f.svc.Delete(ctx, f.doctorIdentity(), appt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	})

	t.Run("admin can delete", func(t *testing.T) {
		f := newFixture(t, Options{})
		appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
			DoctorID: f.doctor.ID,
			Date:     futureSlot(),
		})
		require.NoError(t, err)

		assert.NoError(t, f.svc.Delete(ctx, f.adminIdentity(), appt.ID))
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	// Second doctor with their own appointment.
	otherUser := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleDoctor}
	require.NoError(t, f.users.Create(ctx, otherUser))
	otherDoctor := &model.Doctor{
		Base:   model.Base{ID: uuid.New()},
		UserID: otherUser.ID,
		Name:   "Dr. Jordan Park",
	}
	require.NoError(t, f.doctors.Create(ctx, otherDoctor))

	base := futureSlot()
	first, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     base,
	})
	require.NoError(t, err)
	second, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: otherDoctor.ID,
		Date:     base.Add(time.Hour),
	})
	require.NoError(t, err)

	t.Run("admin sees everything newest first", func(t *testing.T) {
		appts, err := f.svc.List(ctx, f.adminIdentity(), nil)
		require.NoError(t, err)
		require.Len(t, appts, 2)
		assert.Equal(t, second.ID, appts[0].ID)
		assert.Equal(t, first.ID, appts[1].ID)
	})

	t.Run("admin can filter by doctor", func(t *testing.T) {
		appts, err := f.svc.List(ctx, f.adminIdentity(), &otherDoctor.ID)
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, second.ID, appts[0].ID)
	})

	t.Run("doctor sees own schedule only", func(t *testing.T) {
		appts, err := f.svc.List(ctx, f.doctorIdentity(), nil)
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, first.ID, appts[0].ID)
	})

	t.Run("doctor without profile sees empty list", func(t *testing.T) {
		orphan := model.Identity{UserID: uuid.New(), Role: model.RoleDoctor}
		appts, err := f.svc.List(ctx, orphan, nil)
		require.NoError(t, err)
		assert.Empty(t, appts)
	})

	t.Run("patient sees own appointments", func(t *testing.T) {
		appts, err := f.svc.List(ctx, f.patientIdentity(), nil)
		require.NoError(t, err)
		assert.Len(t, appts, 2)
	})
}

func TestGetAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	require.NoError(t, f.excs.Create(ctx, &model.AvailabilityException{
		ID:       uuid.New(),
		DoctorID: f.doctor.ID,
		Date:     "2026-09-15",
		Reason:   "conference",
	}))

	appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot(),
	})
	require.NoError(t, err)

	// Cancelled appointments do not appear in the availability view.
	cancelled, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.adminIdentity(), cancelled.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)

	t.Run("single doctor", func(t *testing.T) {
		view, err := f.svc.GetAvailability(ctx, f.doctor.ID)
		require.NoError(t, err)

		assert.Equal(t, f.doctor.ID, view.DoctorID)
		assert.Equal(t, "Dr. Morgan Lee", view.DoctorName)
		assert.Equal(t, "mon,tue,thu", view.AvailableDays)
		require.Len(t, view.Exceptions, 1)
		assert.Equal(t, "conference", view.Exceptions[0].Reason)
		require.Len(t, view.Appointments, 1)
		assert.Equal(t, appt.ID, view.Appointments[0].ID)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := f.svc.GetAvailability(ctx, uuid.New())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})

	t.Run("all doctors", func(t *testing.T) {
		views, err := f.svc.ListAvailability(ctx)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.NotNil(t, views[0].Exceptions)
		assert.NotNil(t, views[0].Appointments)
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	first, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot(),
	})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureSlot().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.adminIdentity(), first.ID, model.AppointmentStatusCompleted)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	at := futureSlot()

	// Patient books; the slot is now taken.
	appt, err := f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID:       f.doctor.ID,
		Date:           at,
		ReasonForVisit: "checkup",
	})
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     at,
	})
	require.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	// Doctor sees it, completes it.
	list, err := f.svc.List(ctx, f.doctorIdentity(), nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.UpdateStatus(ctx, f.doctorIdentity(), appt.ID, model.AppointmentStatusCompleted)
	require.NoError(t, err)

	// Completion freed the slot and recorded the doctor on the patient.
	_, err = f.svc.Book(ctx, f.patientIdentity(), &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     at,
	})
	require.NoError(t, err)

	patient, err := f.users.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	require.NotNil(t, patient.RecentDoctorID)
	assert.Equal(t, f.doctor.ID, *patient.RecentDoctorID)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
}
