package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sundey-crm/config"
	"sundey-crm/internal/dto"
	"sundey-crm/internal/entities"
	"sundey-crm/internal/events"
	"sundey-crm/internal/repositories"
	"sundey-crm/pkg/eventbus"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/filestorage"
	"sundey-crm/pkg/metrics"
	"sundey-crm/pkg/utils"
	"sundey-crm/pkg/validation"
)

const jobPhotoUploadContext = "job_photo"

type JobPhotoServiceInterface interface {
	SaveJobPhotos(ctx context.Context, reservationID string, photos []dto.PhotoDataDTO) (*dto.SaveJobPhotosResultDTO, error)
	GeneratePresignedURL(ctx context.Context, reservationID, photoType string, data dto.GeneratePresignedURLDTO) (*dto.PresignedURLDTO, error)
	UploadPhotos(ctx context.Context, reservationID, photoType string, files []*multipart.FileHeader) (*dto.UploadPhotosResultDTO, error)
}

type JobPhotoService struct {
	txManager       repositories.TxManagerInterface
	reservationRepo repositories.ReservationRepositoryInterface
	jobRepo         repositories.JobRepositoryInterface
	presigner       filestorage.PresignerInterface
	storage         filestorage.FileStorageInterface
	publisher       eventbus.Publisher
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewJobPhotoService(
	txManager repositories.TxManagerInterface,
	reservationRepo repositories.ReservationRepositoryInterface,
	jobRepo repositories.JobRepositoryInterface,
	presigner filestorage.PresignerInterface,
	storage filestorage.FileStorageInterface,
	publisher eventbus.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) JobPhotoServiceInterface {
	return &JobPhotoService{
		txManager:       txManager,
		reservationRepo: reservationRepo,
		jobRepo:         jobRepo,
		presigner:       presigner,
		storage:         storage,
		publisher:       publisher,
		metrics:         m,
		logger:          logger,
	}
}

// SaveJobPhotos records already uploaded photos on the reservation's job.
// The batch is all-or-nothing: the first photo over the per-type limit
// aborts the call and nothing from it is stored.
func (s *JobPhotoService) SaveJobPhotos(ctx context.Context, reservationID string, photos []dto.PhotoDataDTO) (*dto.SaveJobPhotosResultDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	reservation, err := findOwnedReservation(ctx, s.reservationRepo, reservationID, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	result, err := s.save(ctx, actor, reservation.ID, photos)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ReservationPhotosSaved, reservation.CompanyID, result)
	return result, nil
}

func (s *JobPhotoService) save(ctx context.Context, actor dto.Actor, reservationID string, photos []dto.PhotoDataDTO) (*dto.SaveJobPhotosResultDTO, error) {
	if len(photos) == 0 {
		return nil, apperrors.NewInvalidInputError("photos", "at least one photo is required")
	}
	for _, p := range photos {
		if _, err := parsePhotoType(p.Type); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.PhotoURL) == "" {
			return nil, apperrors.NewInvalidInputError("photoUrl", "photo url is required")
		}
		if strings.TrimSpace(p.FileName) == "" {
			return nil, apperrors.NewInvalidInputError("fileName", "file name is required")
		}
	}

	result := &dto.SaveJobPhotosResultDTO{ReservationID: reservationID}
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// The reservation lock orders job creation against concurrent
		// status changes so the new job starts in the current status.
		locked, err := s.reservationRepo.FindByIDForUpdate(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		job, err := s.jobRepo.FindOrCreateForUpdate(ctx, tx, reservationID, locked.Status)
		if err != nil {
			return err
		}
		result.JobID = job.ID
		result.SavedPhotos = make([]dto.SavedPhotoDTO, 0, len(photos))

		for _, p := range photos {
			photoType, _ := parsePhotoType(p.Type)
			uploadedBy := p.UploadedBy.Ptr()
			if uploadedBy == nil {
				uploadedBy = &actor.UserID
			}
			photo := entities.JobPhoto{
				JobID:      job.ID,
				Type:       photoType,
				PhotoURL:   p.PhotoURL,
				FileName:   p.FileName,
				UploadedBy: uploadedBy,
			}
			if err := job.AddPhoto(photo); err != nil {
				return err
			}
			if err := s.jobRepo.AddPhoto(ctx, tx, &photo); err != nil {
				return err
			}
			result.SavedPhotos = append(result.SavedPhotos, dto.SavedPhotoDTO{
				ID:         photo.ID,
				Type:       string(photo.Type),
				PhotoURL:   photo.PhotoURL,
				FileName:   photo.FileName,
				UploadedAt: photo.UploadedAt,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("job photos not saved", zap.String("reservationID", reservationID), zap.Error(err))
		return nil, err
	}

	for _, p := range result.SavedPhotos {
		s.metrics.PhotosSaved.WithLabelValues(p.Type).Inc()
	}
	s.logger.Info("job photos saved",
		zap.String("reservationID", reservationID),
		zap.String("jobID", result.JobID),
		zap.Int("count", len(result.SavedPhotos)),
	)
	return result, nil
}

func (s *JobPhotoService) GeneratePresignedURL(ctx context.Context, reservationID, photoType string, data dto.GeneratePresignedURLDTO) (*dto.PresignedURLDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := parsePhotoType(photoType); err != nil {
		return nil, err
	}
	fileName := path.Base(strings.TrimSpace(data.FileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, apperrors.NewInvalidInputError("fileName", "file name is required")
	}
	if !validation.IsAllowedMimeType(jobPhotoUploadContext, data.MimeType) {
		return nil, apperrors.NewInvalidInputError("mimeType", "file type %s is not allowed", data.MimeType)
	}
	if _, err := findOwnedReservation(ctx, s.reservationRepo, reservationID, actor.CompanyID); err != nil {
		return nil, err
	}

	objectName := path.Join(objectPrefix(actor.CompanyID, reservationID, photoType), fileName)
	upload, err := s.presigner.PresignPut(ctx, objectName, data.MimeType)
	if err != nil {
		s.logger.Error("failed to presign upload", zap.String("objectName", objectName), zap.Error(err))
		return nil, err
	}

	return &dto.PresignedURLDTO{
		PresignedURL: upload.URL,
		ObjectName:   upload.ObjectName,
		Bucket:       upload.Bucket,
		PublicURL:    upload.PublicURL,
		ExpiresIn:    int(upload.ExpiresIn.Seconds()),
	}, nil
}

// UploadPhotos stores multipart files locally and records them through the
// same capacity checked path as SaveJobPhotos. Stored files are removed
// again when recording fails.
func (s *JobPhotoService) UploadPhotos(ctx context.Context, reservationID, photoType string, files []*multipart.FileHeader) (*dto.UploadPhotosResultDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := parsePhotoType(photoType); err != nil {
		return nil, err
	}
	rules := config.UploadContexts[jobPhotoUploadContext]
	if len(files) == 0 {
		return nil, apperrors.NewInvalidInputError("files", "at least one file is required")
	}
	if rules.MaxFiles > 0 && len(files) > rules.MaxFiles {
		return nil, apperrors.NewInvalidInputError("files", "at most %d files per upload", rules.MaxFiles)
	}
	reservation, err := findOwnedReservation(ctx, s.reservationRepo, reservationID, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	prefix := path.Join(rules.PathPrefix, objectPrefix(actor.CompanyID, reservationID, photoType))
	stored := make([]string, 0, len(files))
	photos := make([]dto.PhotoDataDTO, 0, len(files))
	for _, fh := range files {
		filePath, err := s.storeFile(fh, prefix)
		if err != nil {
			s.removeFiles(stored)
			return nil, err
		}
		stored = append(stored, filePath)
		photos = append(photos, dto.PhotoDataDTO{
			Type:     photoType,
			PhotoURL: s.storage.PublicURL(filePath),
			FileName: fh.Filename,
		})
	}

	saved, err := s.save(ctx, actor, reservation.ID, photos)
	if err != nil {
		s.removeFiles(stored)
		return nil, err
	}

	result := &dto.UploadPhotosResultDTO{
		ReservationID:  saved.ReservationID,
		JobID:          saved.JobID,
		UploadedPhotos: saved.SavedPhotos,
		TotalUploaded:  len(saved.SavedPhotos),
	}
	s.publish(ctx, events.ReservationPhotosUploaded, reservation.CompanyID, map[string]interface{}{
		"reservationId": result.ReservationID,
		"jobId":         result.JobID,
		"photos":        result.UploadedPhotos,
	})
	return result, nil
}

func (s *JobPhotoService) storeFile(fh *multipart.FileHeader, prefix string) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	if err := validation.ValidateFile(fh, file, jobPhotoUploadContext); err != nil {
		return "", err
	}
	filePath, err := s.storage.Save(file, fh.Filename, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	return filePath, nil
}

func (s *JobPhotoService) removeFiles(paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			s.logger.Warn("failed to remove stored file", zap.String("path", p), zap.Error(err))
		}
	}
}

func (s *JobPhotoService) publish(ctx context.Context, eventType, companyID string, payload interface{}) {
	s.publisher.Publish(ctx, events.ReservationEvent{
		Type:      eventType,
		CompanyID: companyID,
		Payload:   payload,
	})
}

func parsePhotoType(raw string) (entities.PhotoType, error) {
	t := entities.PhotoType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", apperrors.NewInvalidInputError("type", "photo type must be before or after")
	}
	return t, nil
}

func objectPrefix(companyID, reservationID, photoType string) string {
	return fmt.Sprintf("company-%s/job-%s/%s", companyID, reservationID, strings.ToLower(strings.TrimSpace(photoType)))
}
