package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Service is a bookable salon treatment.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Name      string          `bun:"name,notnull"`
	Duration  int             `bun:"duration,notnull"` // minutes
	Price     decimal.Decimal `bun:"price,type:numeric(10,2),notnull"`
	CreatedAt time.Time       `bun:"created_at,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}
