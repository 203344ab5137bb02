package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sundey-crm/internal/entities"
	apperrors "sundey-crm/pkg/errors"
)

const (
	reservationTable  = "reservations"
	reservationFields = "id, company_id, customer_id, assigned_user_id, status, scheduled_at, started_at, completed_at, " +
		"customer_name, customer_phone, customer_email, items, total_price, paid_amount, is_paid, payment_note, " +
		"metadata, version, created_at, updated_at"
)

// ReservationUpdate is a partial update. Nil fields are left unchanged.
type ReservationUpdate struct {
	Status         *entities.ReservationStatus
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CustomerID     *string
	AssignedUserID *string
	PaidAmount     *decimal.Decimal
	IsPaid         *bool
	PaymentNote    *string
}

func (u ReservationUpdate) setMap() map[string]interface{} {
	m := make(map[string]interface{})
	if u.Status != nil {
		m["status"] = string(*u.Status)
	}
	if u.StartedAt != nil {
		m["started_at"] = *u.StartedAt
	}
	if u.CompletedAt != nil {
		m["completed_at"] = *u.CompletedAt
	}
	if u.CustomerID != nil {
		m["customer_id"] = *u.CustomerID
	}
	if u.AssignedUserID != nil {
		m["assigned_user_id"] = *u.AssignedUserID
	}
	if u.PaidAmount != nil {
		m["paid_amount"] = *u.PaidAmount
	}
	if u.IsPaid != nil {
		m["is_paid"] = *u.IsPaid
	}
	if u.PaymentNote != nil {
		m["payment_note"] = *u.PaymentNote
	}
	return m
}

type ReservationRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Reservation, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Reservation, error)
	FindByCompanyID(ctx context.Context, companyID string, filter entities.ReservationFilter) ([]entities.Reservation, uint64, error)
	FindByCustomerID(ctx context.Context, companyID, customerID string) ([]entities.Reservation, error)
	FindUnpaidByCompanyID(ctx context.Context, companyID string) ([]entities.Reservation, error)
	Create(ctx context.Context, reservation *entities.Reservation) error
	Update(ctx context.Context, tx pgx.Tx, id string, expectedVersion int, update ReservationUpdate) error
	Delete(ctx context.Context, tx pgx.Tx, id string) error
}

type ReservationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewReservationRepository(storage *pgxpool.Pool, logger *zap.Logger) ReservationRepositoryInterface {
	return &ReservationRepository{storage: storage, logger: logger}
}

func scanReservation(row pgx.Row) (*entities.Reservation, error) {
	var (
		r        entities.Reservation
		status   string
		items    []byte
		metadata []byte
	)
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.CustomerID, &r.AssignedUserID, &status, &r.ScheduledAt, &r.StartedAt, &r.CompletedAt,
		&r.CustomerName, &r.CustomerPhone, &r.CustomerEmail, &items, &r.TotalPrice, &r.PaidAmount, &r.IsPaid, &r.PaymentNote,
		&metadata, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	r.Status = entities.ReservationStatus(status)

	r.Items = make([]entities.ReservationItem, 0)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &r.Items); err != nil {
			return nil, fmt.Errorf("failed to decode reservation items: %w", err)
		}
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode reservation metadata: %w", err)
		}
	}
	return &r, nil
}

func (r *ReservationRepository) findOne(ctx context.Context, q querier, builder sq.SelectBuilder) (*entities.Reservation, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}
	return scanReservation(q.QueryRow(ctx, query, args...))
}

func (r *ReservationRepository) findMany(ctx context.Context, builder sq.SelectBuilder) ([]entities.Reservation, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	list := make([]entities.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return list, nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*entities.Reservation, error) {
	return r.findOne(ctx, r.storage, psql.Select(reservationFields).From(reservationTable).Where(sq.Eq{"id": id}))
}

// FindByIDForUpdate locks the row until tx ends.
func (r *ReservationRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Reservation, error) {
	builder := psql.Select(reservationFields).From(reservationTable).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")
	return r.findOne(ctx, tx, builder)
}

func (r *ReservationRepository) FindByCompanyID(ctx context.Context, companyID string, filter entities.ReservationFilter) ([]entities.Reservation, uint64, error) {
	where := sq.And{sq.Eq{"company_id": companyID}}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	if filter.From != nil {
		where = append(where, sq.GtOrEq{"scheduled_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, sq.Lt{"scheduled_at": *filter.To})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(reservationTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build reservation count query: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	if total == 0 {
		return []entities.Reservation{}, 0, nil
	}

	builder := psql.Select(reservationFields).From(reservationTable).Where(where).OrderBy("scheduled_at DESC", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}
	list, err := r.findMany(ctx, builder)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ReservationRepository) FindByCustomerID(ctx context.Context, companyID, customerID string) ([]entities.Reservation, error) {
	return r.findMany(ctx, psql.Select(reservationFields).From(reservationTable).
		Where(sq.Eq{"company_id": companyID, "customer_id": customerID}).
		OrderBy("scheduled_at DESC"))
}

func (r *ReservationRepository) FindUnpaidByCompanyID(ctx context.Context, companyID string) ([]entities.Reservation, error) {
	return r.findMany(ctx, psql.Select(reservationFields).From(reservationTable).
		Where(sq.Eq{"company_id": companyID, "is_paid": false}).
		Where(sq.NotEq{"status": []string{string(entities.StatusCancelled), string(entities.StatusNoShow)}}).
		OrderBy("scheduled_at ASC"))
}

func (r *ReservationRepository) Create(ctx context.Context, reservation *entities.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	items, err := json.Marshal(reservation.Items)
	if err != nil {
		return fmt.Errorf("failed to encode reservation items: %w", err)
	}
	var metadata []byte
	if reservation.Metadata != nil {
		if metadata, err = json.Marshal(reservation.Metadata); err != nil {
			return fmt.Errorf("failed to encode reservation metadata: %w", err)
		}
	}

	query, args, err := psql.Insert(reservationTable).
		Columns("id", "company_id", "customer_id", "assigned_user_id", "status", "scheduled_at",
			"customer_name", "customer_phone", "customer_email", "items", "total_price", "paid_amount", "is_paid",
			"payment_note", "metadata").
		Values(reservation.ID, reservation.CompanyID, reservation.CustomerID, reservation.AssignedUserID,
			string(reservation.Status), reservation.ScheduledAt, reservation.CustomerName, reservation.CustomerPhone,
			reservation.CustomerEmail, items, reservation.TotalPrice, reservation.PaidAmount, reservation.IsPaid,
			reservation.PaymentNote, metadata).
		Suffix("RETURNING version, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reservation insert: %w", err)
	}

	if err := r.storage.QueryRow(ctx, query, args...).Scan(&reservation.Version, &reservation.CreatedAt, &reservation.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// Update applies a partial update guarded by the row version. A stale
// expectedVersion yields ErrConflict; a missing row yields ErrNotFound.
func (r *ReservationRepository) Update(ctx context.Context, tx pgx.Tx, id string, expectedVersion int, update ReservationUpdate) error {
	set := update.setMap()
	if len(set) == 0 {
		return nil
	}
	set["version"] = sq.Expr("version + 1")
	set["updated_at"] = sq.Expr("NOW()")

	query, args, err := psql.Update(reservationTable).SetMap(set).
		Where(sq.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reservation update: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check reservation: %w", err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		r.logger.Warn("reservation version mismatch", zap.String("reservationID", id), zap.Int("expectedVersion", expectedVersion))
		return apperrors.ErrConflict
	}
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
