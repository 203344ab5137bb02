package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type PhotoDataDTO struct {
	Type       string      `json:"type" validate:"required,photo_type"`
	PhotoURL   string      `json:"photoUrl" validate:"required,url"`
	FileName   string      `json:"fileName" validate:"required,max=255"`
	UploadedBy null.String `json:"uploadedBy"`
}

type SaveJobPhotosDTO struct {
	Photos []PhotoDataDTO `json:"photos" validate:"required,min=1,dive"`
}

type SavedPhotoDTO struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	PhotoURL   string    `json:"photoUrl"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type SaveJobPhotosResultDTO struct {
	ReservationID string          `json:"reservationId"`
	JobID         string          `json:"jobId"`
	SavedPhotos   []SavedPhotoDTO `json:"savedPhotos"`
}

type GeneratePresignedURLDTO struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	MimeType string `json:"mimeType" validate:"required"`
}

type PresignedURLDTO struct {
	PresignedURL string `json:"presignedUrl"`
	ObjectName   string `json:"objectName"`
	Bucket       string `json:"bucket"`
	PublicURL    string `json:"publicUrl"`
	ExpiresIn    int    `json:"expiresIn"`
}

type UploadPhotosResultDTO struct {
	ReservationID  string          `json:"reservationId"`
	JobID          string          `json:"jobId"`
	UploadedPhotos []SavedPhotoDTO `json:"uploadedPhotos"`
	TotalUploaded  int             `json:"totalUploaded"`
}
