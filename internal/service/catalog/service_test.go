package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

type fakeRepo struct {
	createFn func(ctx context.Context, s domain.Service) (domain.Service, error)
	getFn    func(ctx context.Context, id int64) (domain.Service, error)
	listFn   func(ctx context.Context) ([]domain.Service, error)
	updateFn func(ctx context.Context, s domain.Service) (domain.Service, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (f *fakeRepo) Create(ctx context.Context, s domain.Service) (domain.Service, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, s)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (domain.Service, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo) List(ctx context.Context) ([]domain.Service, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeRepo) Update(ctx context.Context, s domain.Service) (domain.Service, error) {
	if f.updateFn == nil {
		panic("Update not configured")
	}
	return f.updateFn(ctx, s)
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

var (
	customer = auth.Identity{UserID: uuid.New()}
	admin    = auth.Identity{UserID: uuid.New(), IsAdmin: true}
)

func TestCatalog_AdminGating(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, customer, CreateInput{Name: "Cut", Duration: 30}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("create err = %v, want %v", err, ErrForbidden)
	}
	if _, err := svc.Update(ctx, customer, UpdateInput{ID: 1}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("update err = %v, want %v", err, ErrForbidden)
	}
	if err := svc.Delete(ctx, customer, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete err = %v, want %v", err, ErrForbidden)
	}
}

func TestCatalogCreate_Validation(t *testing.T) {
	svc := NewService(&fakeRepo{})

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"blank name", CreateInput{Name: "  ", Duration: 30, Price: decimal.NewFromInt(10)}},
		{"zero duration", CreateInput{Name: "Cut", Duration: 0, Price: decimal.NewFromInt(10)}},
		{"negative price", CreateInput{Name: "Cut", Duration: 30, Price: decimal.NewFromInt(-1)}},
		{"sub cent price", CreateInput{Name: "Cut", Duration: 30, Price: decimal.RequireFromString("9.999")}},
		{"price overflow", CreateInput{Name: "Cut", Duration: 30, Price: decimal.RequireFromString("100000000")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
		})
	}
}

func TestCatalogCreate_TrimsName(t *testing.T) {
	var got domain.Service
	svc := NewService(&fakeRepo{
		createFn: func(ctx context.Context, s domain.Service) (domain.Service, error) {
			got = s
			s.ID = 7
			return s, nil
		},
	})

	out, err := svc.Create(context.Background(), admin, CreateInput{Name: " Manicure ", Duration: 45, Price: decimal.RequireFromString("30.50")})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.Name != "Manicure" || out.ID != 7 {
		t.Fatalf("got = %+v, out = %+v", got, out)
	}
}

func TestCatalogUpdate_Partial(t *testing.T) {
	current := domain.Service{ID: 3, Name: "Cut", Duration: 30, Price: decimal.RequireFromString("25.00")}
	var saved domain.Service
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context, id int64) (domain.Service, error) {
			if id != current.ID {
				return domain.Service{}, store.ErrNotFound
			}
			return current, nil
		},
		updateFn: func(ctx context.Context, s domain.Service) (domain.Service, error) {
			saved = s
			return s, nil
		},
	})

	duration := 45
	if _, err := svc.Update(context.Background(), admin, UpdateInput{ID: 3, Duration: &duration}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if saved.Name != "Cut" || saved.Duration != 45 || !saved.Price.Equal(current.Price) {
		t.Fatalf("saved = %+v", saved)
	}

	if _, err := svc.Update(context.Background(), admin, UpdateInput{ID: 9, Duration: &duration}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrNotFound)
	}

	zero := 0
	_, err := svc.Update(context.Background(), admin, UpdateInput{ID: 3, Duration: &zero})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestCatalogDelete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"ok", nil, nil},
		{"missing", store.ErrNotFound, ErrNotFound},
		{"referenced", store.ErrReferenced, ErrInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeRepo{
				deleteFn: func(ctx context.Context, id int64) error { return tt.repoErr },
			})
			if err := svc.Delete(context.Background(), admin, 1); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCatalogExists(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context, id int64) (domain.Service, error) {
			switch id {
			case 1:
				return domain.Service{ID: 1}, nil
			case 2:
				return domain.Service{}, store.ErrNotFound
			default:
				return domain.Service{}, boom
			}
		},
	})

	if ok, err := svc.Exists(context.Background(), 1); err != nil || !ok {
		t.Fatalf("Exists(1) = %v, %v", ok, err)
	}
	if ok, err := svc.Exists(context.Background(), 2); err != nil || ok {
		t.Fatalf("Exists(2) = %v, %v", ok, err)
	}
	if _, err := svc.Exists(context.Background(), 3); !errors.Is(err, boom) {
		t.Fatalf("Exists(3) err = %v, want %v", err, boom)
	}
}
