// Package catalog manages the bookable salon services.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

var (
	ErrForbidden = errors.New("admin access required")
	ErrNotFound  = errors.New("service not found")
	ErrInUse     = errors.New("service has appointments")
)

// numeric(10,2)
var maxPrice = decimal.New(1, 8)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo store.ServiceRepository
}

func NewService(repo store.ServiceRepository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Name     string
	Duration int
	Price    decimal.Decimal
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	ID       int64
	Name     *string
	Duration *int
	Price    *decimal.Decimal
}

func (s *Service) List(ctx context.Context) ([]domain.Service, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, requester auth.Identity, in CreateInput) (domain.Service, error) {
	if !requester.IsAdmin {
		return domain.Service{}, ErrForbidden
	}
	svc := domain.Service{Name: strings.TrimSpace(in.Name), Duration: in.Duration, Price: in.Price}
	if err := validate(svc); err != nil {
		return domain.Service{}, err
	}
	return s.repo.Create(ctx, svc)
}

func (s *Service) Update(ctx context.Context, requester auth.Identity, in UpdateInput) (domain.Service, error) {
	if !requester.IsAdmin {
		return domain.Service{}, ErrForbidden
	}
	current, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return domain.Service{}, mapStoreError(err)
	}

	if in.Name != nil {
		current.Name = strings.TrimSpace(*in.Name)
	}
	if in.Duration != nil {
		current.Duration = *in.Duration
	}
	if in.Price != nil {
		current.Price = *in.Price
	}
	if err := validate(current); err != nil {
		return domain.Service{}, err
	}

	out, err := s.repo.Update(ctx, current)
	if err != nil {
		return domain.Service{}, mapStoreError(err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, requester auth.Identity, id int64) error {
	if !requester.IsAdmin {
		return ErrForbidden
	}
	return mapStoreError(s.repo.Delete(ctx, id))
}

// Exists reports whether a service can be booked.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func validate(svc domain.Service) error {
	if svc.Name == "" {
		return validationError("name is required")
	}
	if svc.Duration <= 0 {
		return validationError("duration must be a positive number of minutes")
	}
	if svc.Price.IsNegative() {
		return validationError("price must not be negative")
	}
	if !svc.Price.Equal(svc.Price.Round(2)) {
		return validationError("price must have at most two decimal places")
	}
	if svc.Price.GreaterThanOrEqual(maxPrice) {
		return validationError("price is too large")
	}
	return nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrReferenced):
		return ErrInUse
	default:
		return err
	}
}
