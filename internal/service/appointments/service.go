package appointments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/metrics"
	"salonbook/backend/internal/store"
)

var (
	ErrNotFound            = errors.New("appointment not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSlotUnavailable     = errors.New("time slot unavailable")
	ErrInvalidReference    = errors.New("service not found")
	ErrAlreadyCancelled    = errors.New("appointment already cancelled")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different input")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Catalog resolves service references at booking time.
type Catalog interface {
	Exists(ctx context.Context, serviceID int64) (bool, error)
}

// Notifier receives appointment lifecycle events. Implementations must not
// block and must not fail the caller.
type Notifier interface {
	Notify(userID, appointmentID uuid.UUID, action domain.Status)
}

type Service struct {
	repo     store.AppointmentRepository
	catalog  Catalog
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewService(repo store.AppointmentRepository, catalog Catalog, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{repo: repo, catalog: catalog, notifier: notifier, metrics: m}
}

type CreateInput struct {
	Requester      auth.Identity
	ServiceID      int64
	DateTime       string
	IdempotencyKey string
}

// Create books a slot for the requester. Replays with the same idempotency
// key return the stored appointment without a second notification.
func (s *Service) Create(ctx context.Context, in CreateInput) (appt domain.Appointment, err error) {
	defer func() { s.metrics.Appointment("create", outcome(err)) }()

	if in.Requester.UserID == uuid.Nil {
		return domain.Appointment{}, validationError("user_id is required")
	}
	dateTime, err := domain.ParseSlot(in.DateTime)
	if err != nil {
		return domain.Appointment{}, validationError("date_time must be in YYYY-MM-DD HH:MM format")
	}
	if in.ServiceID <= 0 {
		return domain.Appointment{}, validationError("service_id is required")
	}
	ok, err := s.catalog.Exists(ctx, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !ok {
		return domain.Appointment{}, ErrInvalidReference
	}

	appt = domain.Appointment{
		UserID:    in.Requester.UserID,
		ServiceID: in.ServiceID,
		DateTime:  dateTime,
		Status:    domain.StatusConfirmed,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("salon:create_appointment:"+in.Requester.UserID.String()+":"+key))
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}

	out, created, err := s.repo.Create(ctx, appt)
	if err != nil {
		return domain.Appointment{}, mapStoreError(err)
	}
	if created {
		s.notifier.Notify(out.UserID, out.ID, domain.StatusConfirmed)
	}
	return out, nil
}

type RescheduleInput struct {
	Requester     auth.Identity
	AppointmentID uuid.UUID
	DateTime      string
}

func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (appt domain.Appointment, err error) {
	defer func() { s.metrics.Appointment("reschedule", outcome(err)) }()

	current, err := s.load(ctx, in.Requester, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	dateTime, err := domain.ParseSlot(in.DateTime)
	if err != nil {
		return domain.Appointment{}, validationError("date_time must be in YYYY-MM-DD HH:MM format")
	}
	if !current.Status.Active() {
		return domain.Appointment{}, ErrAlreadyCancelled
	}

	out, err := s.repo.Reschedule(ctx, current.ID, dateTime)
	if err != nil {
		return domain.Appointment{}, mapStoreError(err)
	}
	s.notifier.Notify(out.UserID, out.ID, domain.StatusRescheduled)
	return out, nil
}

// Cancel frees the appointment's slot. Cancelling an already cancelled
// appointment succeeds without side effects.
func (s *Service) Cancel(ctx context.Context, requester auth.Identity, appointmentID uuid.UUID) (appt domain.Appointment, err error) {
	defer func() { s.metrics.Appointment("cancel", outcome(err)) }()

	current, err := s.load(ctx, requester, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !current.Status.Active() {
		return current, nil
	}

	out, err := s.repo.Cancel(ctx, current.ID)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with another cancel.
		current.Status = domain.StatusCancelled
		return current, nil
	}
	if err != nil {
		return domain.Appointment{}, mapStoreError(err)
	}
	s.notifier.Notify(out.UserID, out.ID, domain.StatusCancelled)
	return out, nil
}

// List returns every appointment for admins and only the requester's own
// appointments otherwise, in creation order.
func (s *Service) List(ctx context.Context, requester auth.Identity) (views []domain.AppointmentView, err error) {
	defer func() { s.metrics.Appointment("list", outcome(err)) }()

	if requester.IsAdmin {
		return s.repo.ListViews(ctx, nil)
	}
	if requester.UserID == uuid.Nil {
		return nil, validationError("user_id is required")
	}
	uid := requester.UserID
	return s.repo.ListViews(ctx, &uid)
}

func (s *Service) load(ctx context.Context, requester auth.Identity, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, mapStoreError(err)
	}
	if appt.UserID != requester.UserID && !requester.IsAdmin {
		return domain.Appointment{}, ErrUnauthorized
	}
	return appt, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrSlotTaken):
		return ErrSlotUnavailable
	case errors.Is(err, store.ErrIdempotencyConflict):
		return ErrIdempotencyConflict
	case errors.Is(err, store.ErrConflict):
		return ErrAlreadyCancelled
	case errors.Is(err, store.ErrMissingReference):
		return ErrInvalidReference
	default:
		return err
	}
}

func outcome(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &vErr):
		return "malformed_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrIdempotencyConflict):
		return "idempotency_conflict"
	default:
		return "error"
	}
}
