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
	statusLogTable  = "reservation_status_logs"
	statusLogFields = "id, reservation_id, from_status, to_status, changed_by, reason, created_at"
)

type ReservationStatusLogRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, entry *entities.ReservationStatusLog) error
	FindByID(ctx context.Context, id string) (*entities.ReservationStatusLog, error)
	FindByReservationID(ctx context.Context, reservationID string) ([]entities.ReservationStatusLog, error)
	FindByReservationIDPaginated(ctx context.Context, reservationID string, skip, take int) ([]entities.ReservationStatusLog, int64, error)
	DeleteByReservationID(ctx context.Context, tx pgx.Tx, reservationID string) error
}

type ReservationStatusLogRepository struct {
	storage *pgxpool.Pool
}

func NewReservationStatusLogRepository(storage *pgxpool.Pool) ReservationStatusLogRepositoryInterface {
	return &ReservationStatusLogRepository{storage: storage}
}

func scanStatusLog(row pgx.Row) (*entities.ReservationStatusLog, error) {
	var (
		entry    entities.ReservationStatusLog
		from, to string
	)
	if err := row.Scan(&entry.ID, &entry.ReservationID, &from, &to, &entry.ChangedBy, &entry.Reason, &entry.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan status log: %w", err)
	}
	entry.FromStatus = entities.ReservationStatus(from)
	entry.ToStatus = entities.ReservationStatus(to)
	return &entry, nil
}

// Create appends a log row. Rows are never updated.
func (r *ReservationStatusLogRepository) Create(ctx context.Context, tx pgx.Tx, entry *entities.ReservationStatusLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query, args, err := psql.Insert(statusLogTable).
		Columns("id", "reservation_id", "from_status", "to_status", "changed_by", "reason").
		Values(entry.ID, entry.ReservationID, string(entry.FromStatus), string(entry.ToStatus), entry.ChangedBy, entry.Reason).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status log insert: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to create status log: %w", err)
	}
	return nil
}

func (r *ReservationStatusLogRepository) FindByID(ctx context.Context, id string) (*entities.ReservationStatusLog, error) {
	query, args, err := psql.Select(statusLogFields).From(statusLogTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status log query: %w", err)
	}
	return scanStatusLog(r.storage.QueryRow(ctx, query, args...))
}

// FindByReservationID returns the full history, oldest first.
func (r *ReservationStatusLogRepository) FindByReservationID(ctx context.Context, reservationID string) ([]entities.ReservationStatusLog, error) {
	builder := psql.Select(statusLogFields).From(statusLogTable).
		Where(sq.Eq{"reservation_id": reservationID}).
		OrderBy("created_at ASC", "id ASC")
	return r.list(ctx, builder)
}

// FindByReservationIDPaginated returns one page, newest first, plus the total count.
func (r *ReservationStatusLogRepository) FindByReservationIDPaginated(ctx context.Context, reservationID string, skip, take int) ([]entities.ReservationStatusLog, int64, error) {
	var total int64
	if err := r.storage.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservation_status_logs WHERE reservation_id = $1`, reservationID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count status logs: %w", err)
	}

	builder := psql.Select(statusLogFields).From(statusLogTable).
		Where(sq.Eq{"reservation_id": reservationID}).
		OrderBy("created_at DESC", "id DESC").
		Offset(uint64(skip)).
		Limit(uint64(take))
	list, err := r.list(ctx, builder)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ReservationStatusLogRepository) DeleteByReservationID(ctx context.Context, tx pgx.Tx, reservationID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM reservation_status_logs WHERE reservation_id = $1`, reservationID); err != nil {
		return fmt.Errorf("failed to delete status logs: %w", err)
	}
	return nil
}

func (r *ReservationStatusLogRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.ReservationStatusLog, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status log query: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status logs: %w", err)
	}
	defer rows.Close()

	list := make([]entities.ReservationStatusLog, 0)
	for rows.Next() {
		entry, err := scanStatusLog(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *entry)
	}
	return list, rows.Err()
}
