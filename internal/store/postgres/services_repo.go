package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

type ServiceRepo struct {
	db *bun.DB
}

func NewServiceRepo(db *bun.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

func (r *ServiceRepo) Create(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := domain.Service{Name: s.Name, Duration: s.Duration, Price: s.Price}
	if _, err := r.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Service{}, err
	}
	return m, nil
}

func (r *ServiceRepo) Get(ctx context.Context, id int64) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *ServiceRepo) List(ctx context.Context) ([]domain.Service, error) {
	rows := make([]domain.Service, 0)
	if err := r.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ServiceRepo) Update(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("name", "duration", "price", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Service{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Service{}, err
	}
	if affected == 0 {
		return domain.Service{}, store.ErrNotFound
	}
	return m, nil
}

// Delete removes a service. Services still booked by any appointment,
// cancelled ones included, yield store.ErrReferenced.
func (r *ServiceRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*domain.Service)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrReferenced
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
