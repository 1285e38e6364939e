package store

import (
	"context"

	"github.com/google/uuid"

	"salonbook/backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context) ([]domain.User, error)
	SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error
}

type ServiceRepository interface {
	Create(ctx context.Context, s domain.Service) (domain.Service, error)
	Get(ctx context.Context, id int64) (domain.Service, error)
	List(ctx context.Context) ([]domain.Service, error)
	Update(ctx context.Context, s domain.Service) (domain.Service, error)
	Delete(ctx context.Context, id int64) error
}
