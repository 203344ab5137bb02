package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sundey-crm/internal/entities"
	apperrors "sundey-crm/pkg/errors"
)

const (
	customerTable  = "customers"
	customerFields = "id, company_id, name, phone, email, created_at, updated_at"
)

type CustomerRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Customer, error)
	FindByPhone(ctx context.Context, tx pgx.Tx, companyID, phone string) (*entities.Customer, error)
	Create(ctx context.Context, tx pgx.Tx, customer *entities.Customer) (*entities.Customer, error)
}

type CustomerRepository struct {
	storage *pgxpool.Pool
}

func NewCustomerRepository(storage *pgxpool.Pool) CustomerRepositoryInterface {
	return &CustomerRepository{storage: storage}
}

func (r *CustomerRepository) scanRow(row pgx.Row) (*entities.Customer, error) {
	var c entities.Customer
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*entities.Customer, error) {
	query, args, err := psql.Select(customerFields).From(customerTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build customer query: %w", err)
	}
	return r.scanRow(r.storage.QueryRow(ctx, query, args...))
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, tx pgx.Tx, companyID, phone string) (*entities.Customer, error) {
	query, args, err := psql.Select(customerFields).From(customerTable).
		Where(sq.Eq{"company_id": companyID, "phone": phone}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build customer query: %w", err)
	}
	return r.scanRow(tx.QueryRow(ctx, query, args...))
}

// Create inserts the customer unless one with the same (company, phone)
// already exists, in which case the existing row is returned. A unique
// violation would abort the surrounding transaction, so it is avoided with
// ON CONFLICT.
func (r *CustomerRepository) Create(ctx context.Context, tx pgx.Tx, customer *entities.Customer) (*entities.Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	query, args, err := psql.Insert(customerTable).
		Columns("id", "company_id", "name", "phone", "email").
		Values(customer.ID, customer.CompanyID, customer.Name, customer.Phone, customer.Email).
		Suffix("ON CONFLICT (company_id, phone) DO NOTHING RETURNING " + customerFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build customer insert: %w", err)
	}

	created, err := r.scanRow(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, apperrors.ErrNotFound) {
		return r.FindByPhone(ctx, tx, customer.CompanyID, customer.Phone)
	}
	return created, err
}
