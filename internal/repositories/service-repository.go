package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sundey-crm/internal/entities"
	apperrors "sundey-crm/pkg/errors"
)

// ServiceRepositoryInterface reads the company service catalog.
type ServiceRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Service, error)
}

type ServiceRepository struct {
	storage *pgxpool.Pool
}

func NewServiceRepository(storage *pgxpool.Pool) ServiceRepositoryInterface {
	return &ServiceRepository{storage: storage}
}

func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*entities.Service, error) {
	var s entities.Service
	err := r.storage.QueryRow(ctx,
		`SELECT id, company_id, name, price, created_at, updated_at FROM services WHERE id = $1`, id,
	).Scan(&s.ID, &s.CompanyID, &s.Name, &s.Price, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &s, nil
}
