package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	m := u
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err, "") {
			return domain.User{}, store.ErrDuplicate
		}
		return domain.User{}, err
	}
	return m, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.User)(nil)).
		WhereOr("username = ?", username).
		WhereOr("email = ?", email).
		Exists(ctx)
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows := make([]domain.User, 0)
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UserRepo) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	m := domain.User{ID: id, IsAdmin: admin}
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("is_admin", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
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
