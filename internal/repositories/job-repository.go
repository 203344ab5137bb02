package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sundey-crm/internal/entities"
	apperrors "sundey-crm/pkg/errors"
)

const (
	jobTable         = "jobs"
	jobFields        = "id, reservation_id, status, started_at, completed_at, created_at, updated_at"
	jobPhotoTable    = "job_photos"
	jobPhotoFields   = "id, job_id, type, photo_url, file_name, uploaded_by, uploaded_at"
	defaultOrphanTTL = 1440
)

type JobRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Job, error)
	FindByReservationID(ctx context.Context, reservationID string) (*entities.Job, error)
	FindOrCreateForUpdate(ctx context.Context, tx pgx.Tx, reservationID string, reservationStatus entities.ReservationStatus) (*entities.Job, error)
	Create(ctx context.Context, job *entities.Job) error
	UpdateStatus(ctx context.Context, id string, status entities.JobStatus) error
	SyncStatusByReservationID(ctx context.Context, tx pgx.Tx, reservationID string, status entities.JobStatus) error
	AddPhoto(ctx context.Context, tx pgx.Tx, photo *entities.JobPhoto) error
	GetPhotosByJobID(ctx context.Context, jobID string) ([]entities.JobPhoto, error)
	GetPhotosByType(ctx context.Context, jobID string, photoType entities.PhotoType) ([]entities.JobPhoto, error)
	DeletePhoto(ctx context.Context, photoID string) error
	DeleteOrphanPhotos(ctx context.Context, olderThanMinutes int) (int64, error)
}

type JobRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewJobRepository(storage *pgxpool.Pool, logger *zap.Logger) JobRepositoryInterface {
	return &JobRepository{storage: storage, logger: logger}
}

func scanJob(row pgx.Row) (*entities.Job, error) {
	var (
		job    entities.Job
		status string
	)
	if err := row.Scan(&job.ID, &job.ReservationID, &status, &job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	job.Status = entities.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) findJob(ctx context.Context, q querier, builder sq.SelectBuilder) (*entities.Job, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build job query: %w", err)
	}
	job, err := scanJob(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	photos, err := r.photos(ctx, q, psql.Select(jobPhotoFields).From(jobPhotoTable).
		Where(sq.Eq{"job_id": job.ID}).OrderBy("uploaded_at ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	job.Photos = photos
	return job, nil
}

func (r *JobRepository) FindByID(ctx context.Context, id string) (*entities.Job, error) {
	return r.findJob(ctx, r.storage, psql.Select(jobFields).From(jobTable).Where(sq.Eq{"id": id}))
}

func (r *JobRepository) FindByReservationID(ctx context.Context, reservationID string) (*entities.Job, error) {
	return r.findJob(ctx, r.storage, psql.Select(jobFields).From(jobTable).Where(sq.Eq{"reservation_id": reservationID}))
}

// FindOrCreateForUpdate returns the reservation's job and holds its row lock
// until tx ends. A missing job is created in the status that mirrors
// reservationStatus, or PENDING when the reservation status has no job
// counterpart. Concurrent callers for the same reservation serialize on the
// lock.
func (r *JobRepository) FindOrCreateForUpdate(ctx context.Context, tx pgx.Tx, reservationID string, reservationStatus entities.ReservationStatus) (*entities.Job, error) {
	status, ok := entities.JobStatusFor(reservationStatus)
	if !ok {
		status = entities.JobPending
	}
	columns := []string{"id", "reservation_id", "status"}
	values := []interface{}{uuid.NewString(), reservationID, string(status)}
	switch status {
	case entities.JobInProgress:
		columns = append(columns, "started_at")
		values = append(values, sq.Expr("NOW()"))
	case entities.JobCompleted:
		columns = append(columns, "completed_at")
		values = append(values, sq.Expr("NOW()"))
	}

	query, args, err := psql.Insert(jobTable).
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT (reservation_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build job insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to ensure job: %w", err)
	}

	builder := psql.Select(jobFields).From(jobTable).Where(sq.Eq{"reservation_id": reservationID}).Suffix("FOR UPDATE")
	return r.findJob(ctx, tx, builder)
}

func (r *JobRepository) Create(ctx context.Context, job *entities.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = entities.JobPending
	}
	query, args, err := psql.Insert(jobTable).
		Columns("id", "reservation_id", "status").
		Values(job.ID, job.ReservationID, string(job.Status)).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build job insert: %w", err)
	}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("job for reservation %s already exists: %w", job.ReservationID, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func jobStatusSet(status entities.JobStatus) map[string]interface{} {
	set := map[string]interface{}{
		"status":     string(status),
		"updated_at": sq.Expr("NOW()"),
	}
	switch status {
	case entities.JobInProgress:
		set["started_at"] = sq.Expr("COALESCE(started_at, NOW())")
	case entities.JobCompleted:
		set["completed_at"] = sq.Expr("NOW()")
	}
	return set
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status entities.JobStatus) error {
	query, args, err := psql.Update(jobTable).SetMap(jobStatusSet(status)).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build job update: %w", err)
	}
	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SyncStatusByReservationID mirrors a reservation status change onto its
// job. A reservation without a job is not an error.
func (r *JobRepository) SyncStatusByReservationID(ctx context.Context, tx pgx.Tx, reservationID string, status entities.JobStatus) error {
	query, args, err := psql.Update(jobTable).SetMap(jobStatusSet(status)).Where(sq.Eq{"reservation_id": reservationID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build job update: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to sync job status: %w", err)
	}
	return nil
}

func (r *JobRepository) AddPhoto(ctx context.Context, tx pgx.Tx, photo *entities.JobPhoto) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	query, args, err := psql.Insert(jobPhotoTable).
		Columns("id", "job_id", "type", "photo_url", "file_name", "uploaded_by").
		Values(photo.ID, photo.JobID, string(photo.Type), photo.PhotoURL, photo.FileName, photo.UploadedBy).
		Suffix("RETURNING uploaded_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build photo insert: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&photo.UploadedAt); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("job %s does not exist: %w", photo.JobID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to add job photo: %w", err)
	}
	return nil
}

func (r *JobRepository) GetPhotosByJobID(ctx context.Context, jobID string) ([]entities.JobPhoto, error) {
	return r.photos(ctx, r.storage, psql.Select(jobPhotoFields).From(jobPhotoTable).
		Where(sq.Eq{"job_id": jobID}).OrderBy("uploaded_at ASC", "id ASC"))
}

func (r *JobRepository) GetPhotosByType(ctx context.Context, jobID string, photoType entities.PhotoType) ([]entities.JobPhoto, error) {
	return r.photos(ctx, r.storage, psql.Select(jobPhotoFields).From(jobPhotoTable).
		Where(sq.Eq{"job_id": jobID, "type": string(photoType)}).OrderBy("uploaded_at ASC", "id ASC"))
}

func (r *JobRepository) DeletePhoto(ctx context.Context, photoID string) error {
	tag, err := r.storage.Exec(ctx, `DELETE FROM job_photos WHERE id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("failed to delete job photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteOrphanPhotos removes photos of cancelled jobs uploaded more than
// olderThanMinutes ago and returns how many rows were deleted.
func (r *JobRepository) DeleteOrphanPhotos(ctx context.Context, olderThanMinutes int) (int64, error) {
	if olderThanMinutes <= 0 {
		olderThanMinutes = defaultOrphanTTL
	}
	tag, err := r.storage.Exec(ctx, `
		DELETE FROM job_photos p
		USING jobs j
		WHERE p.job_id = j.id
		  AND j.status = $1
		  AND p.uploaded_at < NOW() - make_interval(mins => $2)`,
		string(entities.JobCancelled), olderThanMinutes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan photos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) photos(ctx context.Context, q querier, builder sq.SelectBuilder) ([]entities.JobPhoto, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build photo query: %w", err)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job photos: %w", err)
	}
	defer rows.Close()

	list := make([]entities.JobPhoto, 0)
	for rows.Next() {
		var (
			p         entities.JobPhoto
			photoType string
		)
		if err := rows.Scan(&p.ID, &p.JobID, &photoType, &p.PhotoURL, &p.FileName, &p.UploadedBy, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job photo: %w", err)
		}
		p.Type = entities.PhotoType(photoType)
		list = append(list, p)
	}
	return list, rows.Err()
}
