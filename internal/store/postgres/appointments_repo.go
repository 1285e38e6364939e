package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

const (
	appointmentsPkey    = "appointments_pkey"
	appointmentsSlotKey = "appointments_slot_active_key"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, bool, error) {
	var (
		out     domain.Appointment
		created bool
	)
	err := r.InSlotTransaction(ctx, appt.DateTime, func(ctx context.Context, tx store.SchedulingTx) error {
		taken, err := tx.SlotTaken(ctx, appt.DateTime, appt.ID)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrSlotTaken
		}
		out, created, err = tx.InsertAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return out, created, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Reschedule(ctx context.Context, id uuid.UUID, dateTime time.Time) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InSlotTransaction(ctx, dateTime, func(ctx context.Context, tx store.SchedulingTx) error {
		taken, err := tx.SlotTaken(ctx, dateTime, id)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrSlotTaken
		}
		out, err = tx.UpdateSlot(ctx, id, dateTime, domain.StatusRescheduled)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := schedulingTx{tx: tx}.UpdateStatus(ctx, id, domain.StatusCancelled)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) ListViews(ctx context.Context, userID *uuid.UUID) ([]domain.AppointmentView, error) {
	q := viewQuery(r.db.NewSelect())
	if userID != nil {
		q = q.Where("a.user_id = ?", *userID)
	}

	rows := make([]domain.AppointmentView, 0)
	if err := q.OrderExpr("a.created_at ASC, a.id ASC").Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) GetView(ctx context.Context, id uuid.UUID) (domain.AppointmentView, error) {
	var row domain.AppointmentView
	err := viewQuery(r.db.NewSelect()).
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AppointmentView{}, store.ErrNotFound
		}
		return domain.AppointmentView{}, err
	}
	return row, nil
}

func viewQuery(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		TableExpr("appointments AS a").
		ColumnExpr("a.id, a.user_id, u.username, u.email AS user_email").
		ColumnExpr("a.service_id, s.name AS service_name, a.date_time, a.status").
		Join("JOIN users AS u ON u.id = a.user_id").
		Join("JOIN services AS s ON s.id = a.service_id")
}

// InSlotTransaction runs fn while holding a transaction-scoped advisory lock
// on the given slot.
func (r *AppointmentRepo) InSlotTransaction(ctx context.Context, dateTime time.Time, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockSlot(ctx, tx, dateTime); err != nil {
			return err
		}
		return fn(ctx, schedulingTx{tx: tx})
	})
}

func lockSlot(ctx context.Context, tx bun.Tx, dateTime time.Time) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "slot:"+domain.FormatSlot(dateTime)).Exec(ctx)
	return err
}

func (r schedulingTx) SlotTaken(ctx context.Context, dateTime time.Time, excludeID uuid.UUID) (bool, error) {
	return r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("date_time = ?", dateTime.UTC()).
		Where("status <> ?", domain.StatusCancelled).
		Where("id <> ?", excludeID).
		Exists(ctx)
}

// InsertAppointment stores appt. An existing active row with the same ID is
// returned unchanged when it describes the same booking. A cancelled one
// cannot be replayed.
func (r schedulingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, bool, error) {
	var existing domain.Appointment
	err := r.tx.NewSelect().
		Model(&existing).
		Where("id = ?", appt.ID).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		if existing.UserID != appt.UserID ||
			existing.ServiceID != appt.ServiceID ||
			!existing.DateTime.Equal(appt.DateTime) ||
			!existing.Status.Active() {
			return domain.Appointment{}, false, store.ErrIdempotencyConflict
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Appointment{}, false, err
	}

	m := domain.Appointment{
		ID:        appt.ID,
		UserID:    appt.UserID,
		ServiceID: appt.ServiceID,
		DateTime:  appt.DateTime.UTC(),
		Status:    appt.Status,
	}
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		switch {
		case isUniqueViolation(err, appointmentsSlotKey):
			return domain.Appointment{}, false, store.ErrSlotTaken
		case isUniqueViolation(err, appointmentsPkey):
			return domain.Appointment{}, false, store.ErrIdempotencyConflict
		case isForeignKeyViolation(err):
			return domain.Appointment{}, false, store.ErrMissingReference
		}
		return domain.Appointment{}, false, err
	}
	return m, true, nil
}

// UpdateSlot moves an active appointment. Cancelled appointments yield
// store.ErrConflict.
func (r schedulingTx) UpdateSlot(ctx context.Context, id uuid.UUID, dateTime time.Time, status domain.Status) (domain.Appointment, error) {
	m := domain.Appointment{ID: id, DateTime: dateTime.UTC(), Status: status}
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("date_time", "status", "updated_at").
		Where("id = ?", id).
		Where("status <> ?", domain.StatusCancelled).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err, appointmentsSlotKey) {
			return domain.Appointment{}, store.ErrSlotTaken
		}
		return domain.Appointment{}, err
	}
	return r.afterUpdate(ctx, res, id, m)
}

func (r schedulingTx) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error) {
	m := domain.Appointment{ID: id, Status: status}
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		Where("id = ?", id).
		Where("status <> ?", domain.StatusCancelled).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return r.afterUpdate(ctx, res, id, m)
}

func (r schedulingTx) afterUpdate(ctx context.Context, res sql.Result, id uuid.UUID, m domain.Appointment) (domain.Appointment, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected > 0 {
		return m, nil
	}

	exists, err := r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !exists {
		return domain.Appointment{}, store.ErrNotFound
	}
	return domain.Appointment{}, store.ErrConflict
}
