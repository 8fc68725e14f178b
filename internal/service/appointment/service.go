package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Event channels published on the broker
const (
	ChannelBooked    = "appointments.booked"
	ChannelCompleted = "appointments.completed"
	ChannelCancelled = "appointments.cancelled"
)

// Event is the payload published for appointment lifecycle changes.
// Consumers (the notification worker) treat it as best-effort.
type Event struct {
	Type        string             `json:"type"`
	Appointment *model.Appointment `json:"appointment"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Options tunes lifecycle behavior
type Options struct {
	// StrictTransitions rejects status changes other than
	// scheduled -> completed and scheduled -> cancelled. Off by default:
	// clinics revert mis-marked statuses, so the historical behavior is
	// to allow any transition.
	StrictTransitions bool
}

// Service is the appointment lifecycle manager. It owns booking,
// retrieval authorization, status transitions and their side effects.
type Service struct {
	repo       repository.AppointmentRepository
	excRepo    repository.ExceptionRepository
	userRepo   repository.UserRepository
	doctorRepo repository.DoctorRepository
	broker     messaging.Broker
	metrics    *metrics.Metrics
	logger     *zerolog.Logger
	opts       Options
	now        func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	excRepo repository.ExceptionRepository,
	userRepo repository.UserRepository,
	doctorRepo repository.DoctorRepository,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger *zerolog.Logger,
	opts Options,
) *Service {
	return &Service{
		repo:       repo,
		excRepo:    excRepo,
		userRepo:   userRepo,
		doctorRepo: doctorRepo,
		broker:     broker,
		metrics:    m,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Book creates a new appointment.
//
// Rejections, in order: missing fields, past-dated timestamp (strict <,
// exactly-now is accepted), slot conflict, unresolvable patient or
// doctor. The conflict check is a point read immediately before insert;
// the store's partial unique index backstops the window between the two.
//
// Quirk kept from the original system: when the timestamp slips into the
// past between validation and insert, the appointment is created as
// completed and the patient's recent doctor is updated immediately.
func (s *Service) Book(ctx context.Context, requester model.Identity, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	patientID := req.PatientID
	if !requester.IsAdmin() {
		// Non-admins always book for themselves.
		patientID = requester.UserID
	}
	if patientID == uuid.Nil {
		patientID = requester.UserID
	}

	if patientID == uuid.Nil || req.DoctorID == uuid.Nil || req.Date.IsZero() {
		s.countBooking("invalid")
		return nil, apperrors.Validation("missing required fields", nil)
	}

	if req.Date.Before(s.now()) {
		s.countBooking("past_date")
		return nil, apperrors.PastDate("cannot book appointments in the past")
	}

	conflict, err := s.repo.HasConflict(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if conflict {
		s.countBooking("conflict")
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, apperrors.Conflict("this time slot is already booked", nil)
	}

	patient, err := s.userRepo.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.countBooking("not_found")
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.countBooking("not_found")
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	appt := &model.Appointment{
		ID:                uuid.New(),
		PatientID:         patient.ID,
		DoctorID:          doctor.ID,
		ScheduledAt:       req.Date,
		Status:            model.AppointmentStatusScheduled,
		Notes:             req.Notes,
		BloodType:         req.BloodType,
		Medications:       req.Medications,
		Allergies:         req.Allergies,
		MedicalConditions: req.MedicalConditions,
		ReasonForVisit:    req.ReasonForVisit,
		PatientName:       patient.FullName(),
		DoctorName:        doctor.Name,
		PatientPhone:      patient.Phone,
		CreatedAt:         s.now(),
	}

	// Re-evaluate at insert time: a timestamp that passed the earlier
	// check but is now in the past auto-completes the appointment.
	if appt.ScheduledAt.Before(s.now()) {
		appt.Status = model.AppointmentStatusCompleted
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.countBooking("conflict")
			if s.metrics != nil {
				s.metrics.BookingConflicts.Inc()
			}
			return nil, apperrors.Conflict("this time slot is already booked", err)
		}
		return nil, apperrors.Internal(err)
	}

	if appt.Status == model.AppointmentStatusCompleted {
		if err := s.userRepo.UpdateRecentDoctor(ctx, appt.PatientID, appt.DoctorID); err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	s.countBooking("booked")
	s.publish(ctx, ChannelBooked, appt)

	return appt, nil
}

// Get retrieves one appointment. Admins see everything; everyone else
// only an appointment they participate in. The forbidden and not-found
// outcomes stay distinct.
func (s *Service) Get(ctx context.Context, requester model.Identity, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	ok, err := s.isParticipant(ctx, requester, appt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("you do not have permission to view this appointment", nil)
	}
	return appt, nil
}

// List returns the appointments visible to the requester: all of them
// for admins (optionally narrowed by doctor), their own for doctors and
// patients. Sorted by date, newest first.
func (s *Service) List(ctx context.Context, requester model.Identity, doctorFilter *uuid.UUID) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{}

	switch {
	case requester.IsAdmin():
		filters.DoctorID = doctorFilter
	case requester.Role == model.RoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, requester.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*model.Appointment{}, nil
			}
			return nil, apperrors.Internal(err)
		}
		filters.DoctorID = &doctor.ID
	default:
		id := requester.UserID
		filters.PatientID = &id
	}

	appts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appts, nil
}

// UpdateStatus transitions an appointment. Allowed for admins and the
// appointment's doctor. Completing an appointment updates the patient's
// recent doctor exactly once; repeating the update is a no-op for the
// side effect.
func (s *Service) UpdateStatus(ctx context.Context, requester model.Identity, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if status == "" {
		return nil, apperrors.Validation("status field is required", nil)
	}

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	ok, err := s.isDoctorOrAdmin(ctx, requester, appt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("you do not have permission to update this appointment", nil)
	}

	if err := s.checkTransition(appt.Status, status); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	completed := status == model.AppointmentStatusCompleted && appt.Status != model.AppointmentStatusCompleted
	if completed {
		if err := s.userRepo.UpdateRecentDoctor(ctx, appt.PatientID, appt.DoctorID); err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	appt.Status = status
	if s.metrics != nil {
		s.metrics.StatusUpdates.WithLabelValues(string(status)).Inc()
	}
	switch {
	case completed:
		s.publish(ctx, ChannelCompleted, appt)
	case status == model.AppointmentStatusCancelled:
		s.publish(ctx, ChannelCancelled, appt)
	}

	return appt, nil
}

// Update applies a participant/admin field edit. Participants and the
// schedule are immutable; a status change rides the same completion
// ratchet as UpdateStatus.
func (s *Service) Update(ctx context.Context, requester model.Identity, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	ok, err := s.isParticipant(ctx, requester, appt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("you do not have permission to update this appointment", nil)
	}

	prevStatus := appt.Status
	if req.Status != nil {
		if err := s.checkTransition(appt.Status, *req.Status); err != nil {
			return nil, err
		}
		appt.Status = *req.Status
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}
	if req.BloodType != nil {
		appt.BloodType = *req.BloodType
	}
	if req.Medications != nil {
		appt.Medications = *req.Medications
	}
	if req.Allergies != nil {
		appt.Allergies = *req.Allergies
	}
	if req.MedicalConditions != nil {
		appt.MedicalConditions = *req.MedicalConditions
	}
	if req.ReasonForVisit != nil {
		appt.ReasonForVisit = *req.ReasonForVisit
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	if appt.Status == model.AppointmentStatusCompleted && prevStatus != model.AppointmentStatusCompleted {
		if err := s.userRepo.UpdateRecentDoctor(ctx, appt.PatientID, appt.DoctorID); err != nil {
			return nil, apperrors.Internal(err)
		}
		s.publish(ctx, ChannelCompleted, appt)
	}

	return appt, nil
}

// Delete removes an appointment. Admin or the booking patient only.
func (s *Service) Delete(ctx context.Context, requester model.Identity, id uuid.UUID) error {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}

	if !requester.IsAdmin() && requester.UserID != appt.PatientID {
		return apperrors.Forbidden("you do not have permission to delete this appointment", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}

	s.publish(ctx, ChannelCancelled, appt)
	return nil
}

// GetAvailability returns the raw availability facts for one doctor.
// Free-slot computation is deliberately left to the caller.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID) (*model.AvailabilityView, error) {
	doctor, err := s.doctorRepo.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return s.availabilityFor(ctx, doctor)
}

// ListAvailability returns one availability view per doctor.
func (s *Service) ListAvailability(ctx context.Context) ([]*model.AvailabilityView, error) {
	doctors, err := s.doctorRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	views := make([]*model.AvailabilityView, 0, len(doctors))
	for _, doctor := range doctors {
		view, err := s.availabilityFor(ctx, doctor)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Stats summarizes the appointment collection for dashboards.
func (s *Service) Stats(ctx context.Context) (*model.AppointmentStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

func (s *Service) availabilityFor(ctx context.Context, doctor *model.Doctor) (*model.AvailabilityView, error) {
	exceptions, err := s.excRepo.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	id := doctor.ID
	appts, err := s.repo.List(ctx, &model.AppointmentFilters{
		DoctorID: &id,
		Status:   model.AppointmentStatusScheduled,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if exceptions == nil {
		exceptions = []*model.AvailabilityException{}
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}

	return &model.AvailabilityView{
		DoctorID:      doctor.ID,
		DoctorName:    doctor.Name,
		AvailableDays: doctor.AvailableDays,
		Exceptions:    exceptions,
		Appointments:  appts,
	}, nil
}

// isParticipant reports whether the requester is an admin, the patient,
// or the doctor on the appointment.
func (s *Service) isParticipant(ctx context.Context, requester model.Identity, appt *model.Appointment) (bool, error) {
	if requester.IsAdmin() || requester.UserID == appt.PatientID {
		return true, nil
	}
	return s.isAppointmentDoctor(ctx, requester, appt)
}

func (s *Service) isDoctorOrAdmin(ctx context.Context, requester model.Identity, appt *model.Appointment) (bool, error) {
	if requester.IsAdmin() {
		return true, nil
	}
	return s.isAppointmentDoctor(ctx, requester, appt)
}

func (s *Service) isAppointmentDoctor(ctx context.Context, requester model.Identity, appt *model.Appointment) (bool, error) {
	if requester.Role != model.RoleDoctor {
		return false, nil
	}
	doctor, err := s.doctorRepo.GetByUserID(ctx, requester.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.Internal(err)
	}
	return doctor.ID == appt.DoctorID, nil
}

func (s *Service) checkTransition(from, to model.AppointmentStatus) error {
	if !s.opts.StrictTransitions || from == to {
		return nil
	}
	if from == model.AppointmentStatusScheduled && to.Recognized() {
		return nil
	}
	return apperrors.Validation("illegal status transition", nil)
}

func (s *Service) publish(ctx context.Context, channel string, appt *model.Appointment) {
	if s.broker == nil {
		return
	}
	event := Event{
		Type:        channel,
		Appointment: appt,
		OccurredAt:  s.now(),
	}
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		if s.metrics != nil {
			s.metrics.EventsFailed.Inc()
		}
		if s.logger != nil {
			s.logger.Warn().Err(err).Str("channel", channel).Msg("failed to publish appointment event")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(channel).Inc()
	}
}

func (s *Service) countBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(outcome).Inc()
	}
}
