package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salonbook/backend/internal/domain"
)

type AppointmentRepository interface {
	// Create inserts appt unless its slot is held by an active appointment.
	// Replaying an identical appointment ID returns the stored row with
	// created=false.
	Create(ctx context.Context, appt domain.Appointment) (out domain.Appointment, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, dateTime time.Time) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// ListViews returns every appointment when userID is nil.
	ListViews(ctx context.Context, userID *uuid.UUID) ([]domain.AppointmentView, error)
	GetView(ctx context.Context, id uuid.UUID) (domain.AppointmentView, error)
}

// SchedulingTx is the set of operations available while a slot lock is held.
type SchedulingTx interface {
	SlotTaken(ctx context.Context, dateTime time.Time, excludeID uuid.UUID) (bool, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, bool, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, dateTime time.Time, status domain.Status) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error)
}
