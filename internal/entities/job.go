package entities

import (
	"time"

	apperrors "sundey-crm/pkg/errors"
)

const MaxPhotosPerType = 10

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
)

type PhotoType string

const (
	PhotoBefore PhotoType = "BEFORE"
	PhotoAfter  PhotoType = "AFTER"
)

func (t PhotoType) IsValid() bool {
	return t == PhotoBefore || t == PhotoAfter
}

// JobStatusFor returns the job status that mirrors a reservation status,
// or false when the reservation status does not affect the job.
func JobStatusFor(status ReservationStatus) (JobStatus, bool) {
	switch status {
	case StatusWorking:
		return JobInProgress, true
	case StatusDone:
		return JobCompleted, true
	case StatusCancelled, StatusNoShow:
		return JobCancelled, true
	}
	return "", false
}

type JobPhoto struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	Type       PhotoType `json:"type"`
	PhotoURL   string    `json:"photoUrl"`
	FileName   string    `json:"fileName"`
	UploadedBy *string   `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Job is the cleaning work attached to a reservation. A reservation has at
// most one job.
type Job struct {
	ID            string     `json:"id"`
	ReservationID string     `json:"reservationId"`
	Status        JobStatus  `json:"status"`
	StartedAt     *time.Time `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	Photos        []JobPhoto `json:"photos"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (j *Job) PhotosByType(t PhotoType) []JobPhoto {
	out := make([]JobPhoto, 0)
	for _, p := range j.Photos {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func (j *Job) CountByType(t PhotoType) int {
	n := 0
	for _, p := range j.Photos {
		if p.Type == t {
			n++
		}
	}
	return n
}

func (j *Job) CanAddPhoto(t PhotoType) bool {
	return j.CountByType(t) < MaxPhotosPerType
}

// AddPhoto appends photo, leaving the job untouched when the type is full.
func (j *Job) AddPhoto(photo JobPhoto) error {
	if !j.CanAddPhoto(photo.Type) {
		return &apperrors.CapacityExceededError{Type: string(photo.Type), Limit: MaxPhotosPerType}
	}
	j.Photos = append(j.Photos, photo)
	return nil
}
