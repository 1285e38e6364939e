package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
)

// Active reports whether the appointment still holds its slot.
func (s Status) Active() bool {
	return s != StatusCancelled
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ServiceID int64     `bun:"service_id,notnull"`
	DateTime  time.Time `bun:"date_time,notnull"`
	Status    Status    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AppointmentView is an appointment joined with its owner and service.
type AppointmentView struct {
	ID          uuid.UUID `bun:"id"`
	UserID      uuid.UUID `bun:"user_id"`
	Username    string    `bun:"username"`
	UserEmail   string    `bun:"user_email"`
	ServiceID   int64     `bun:"service_id"`
	ServiceName string    `bun:"service_name"`
	DateTime    time.Time `bun:"date_time"`
	Status      Status    `bun:"status"`
}
