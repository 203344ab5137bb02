package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"sundey-crm/internal/entities"
	"sundey-crm/internal/repositories"
	"sundey-crm/pkg/eventbus"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/filestorage"
	"sundey-crm/pkg/metrics"
)

// memStore backs every fake repository so that the fake transaction
// manager can snapshot and restore all of them at once.
type memStore struct {
	mu           sync.Mutex
	reservations map[string]entities.Reservation
	logs         []entities.ReservationStatusLog
	jobs         map[string]entities.Job
	photos       []entities.JobPhoto
	customers    map[string]entities.Customer
	services     map[string]entities.Service
	clock        time.Time

	failStatusLog   error
	failJobSync     error
	failReload      error
	failPhotoInsert int
}

func newMemStore() *memStore {
	return &memStore{
		reservations: map[string]entities.Reservation{},
		jobs:         map[string]entities.Job{},
		customers:    map[string]entities.Customer{},
		services:     map[string]entities.Service{},
		clock:        time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type snapshot struct {
	reservations map[string]entities.Reservation
	logs         []entities.ReservationStatusLog
	jobs         map[string]entities.Job
	photos       []entities.JobPhoto
	customers    map[string]entities.Customer
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		reservations: map[string]entities.Reservation{},
		logs:         append([]entities.ReservationStatusLog(nil), s.logs...),
		jobs:         map[string]entities.Job{},
		photos:       append([]entities.JobPhoto(nil), s.photos...),
		customers:    map[string]entities.Customer{},
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.jobs {
		snap.jobs[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = snap.reservations
	s.logs = snap.logs
	s.jobs = snap.jobs
	s.photos = snap.photos
	s.customers = snap.customers
}

type fakeTxManager struct {
	store   *memStore
	txMu    sync.Mutex
	commits int
}

// RunInTransaction serializes transactions and restores the store when fn
// fails, mirroring a rollback.
func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	m.commits++
	return nil
}

type fakeReservationRepo struct{ store *memStore }

func (r *fakeReservationRepo) get(id string) (*entities.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	res.Items = append([]entities.ReservationItem(nil), res.Items...)
	return &res, nil
}

func (r *fakeReservationRepo) FindByID(ctx context.Context, id string) (*entities.Reservation, error) {
	if r.store.failReload != nil {
		return nil, r.store.failReload
	}
	return r.get(id)
}

func (r *fakeReservationRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Reservation, error) {
	return r.get(id)
}

func (r *fakeReservationRepo) FindByCompanyID(ctx context.Context, companyID string, filter entities.ReservationFilter) ([]entities.Reservation, uint64, error) {
	all := r.filter(func(res entities.Reservation) bool {
		return res.CompanyID == companyID && (filter.Status == nil || res.Status == *filter.Status)
	})
	total := uint64(len(all))
	if filter.Offset < total {
		all = all[filter.Offset:]
	} else {
		all = nil
	}
	if filter.Limit > 0 && uint64(len(all)) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r *fakeReservationRepo) FindByCustomerID(ctx context.Context, companyID, customerID string) ([]entities.Reservation, error) {
	return r.filter(func(res entities.Reservation) bool {
		return res.CompanyID == companyID && res.CustomerID != nil && *res.CustomerID == customerID
	}), nil
}

func (r *fakeReservationRepo) FindUnpaidByCompanyID(ctx context.Context, companyID string) ([]entities.Reservation, error) {
	return r.filter(func(res entities.Reservation) bool {
		return res.CompanyID == companyID && !res.IsPaid &&
			res.Status != entities.StatusCancelled && res.Status != entities.StatusNoShow
	}), nil
}

func (r *fakeReservationRepo) filter(keep func(entities.Reservation) bool) []entities.Reservation {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.Reservation, 0)
	for _, res := range r.store.reservations {
		if keep(res) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (r *fakeReservationRepo) Create(ctx context.Context, reservation *entities.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	reservation.Version = 1
	reservation.CreatedAt = r.store.tick()
	reservation.UpdatedAt = reservation.CreatedAt
	r.store.reservations[reservation.ID] = *reservation
	return nil
}

func (r *fakeReservationRepo) Update(ctx context.Context, tx pgx.Tx, id string, expectedVersion int, update repositories.ReservationUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if res.Version != expectedVersion {
		return apperrors.ErrConflict
	}
	if update.Status != nil {
		res.Status = *update.Status
	}
	if update.StartedAt != nil {
		res.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		res.CompletedAt = update.CompletedAt
	}
	if update.CustomerID != nil {
		res.CustomerID = update.CustomerID
	}
	if update.AssignedUserID != nil {
		res.AssignedUserID = update.AssignedUserID
	}
	if update.PaidAmount != nil {
		res.PaidAmount = *update.PaidAmount
	}
	if update.IsPaid != nil {
		res.IsPaid = *update.IsPaid
	}
	if update.PaymentNote != nil {
		res.PaymentNote = update.PaymentNote
	}
	res.Version++
	res.UpdatedAt = r.store.tick()
	r.store.reservations[id] = res
	return nil
}

func (r *fakeReservationRepo) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.reservations[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.store.reservations, id)
	return nil
}

type fakeStatusLogRepo struct{ store *memStore }

func (r *fakeStatusLogRepo) Create(ctx context.Context, tx pgx.Tx, entry *entities.ReservationStatusLog) error {
	if r.store.failStatusLog != nil {
		return r.store.failStatusLog
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.CreatedAt = r.store.tick()
	r.store.logs = append(r.store.logs, *entry)
	return nil
}

func (r *fakeStatusLogRepo) FindByID(ctx context.Context, id string) (*entities.ReservationStatusLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.logs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeStatusLogRepo) FindByReservationID(ctx context.Context, reservationID string) ([]entities.ReservationStatusLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.ReservationStatusLog, 0)
	for _, l := range r.store.logs {
		if l.ReservationID == reservationID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeStatusLogRepo) FindByReservationIDPaginated(ctx context.Context, reservationID string, skip, take int) ([]entities.ReservationStatusLog, int64, error) {
	all, _ := r.FindByReservationID(ctx, reservationID)
	total := int64(len(all))
	newest := make([]entities.ReservationStatusLog, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		newest = append(newest, all[i])
	}
	if skip >= len(newest) {
		return []entities.ReservationStatusLog{}, total, nil
	}
	newest = newest[skip:]
	if len(newest) > take {
		newest = newest[:take]
	}
	return newest, total, nil
}

func (r *fakeStatusLogRepo) DeleteByReservationID(ctx context.Context, tx pgx.Tx, reservationID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.logs[:0:0]
	for _, l := range r.store.logs {
		if l.ReservationID != reservationID {
			kept = append(kept, l)
		}
	}
	r.store.logs = kept
	return nil
}

type fakeJobRepo struct{ store *memStore }

func (r *fakeJobRepo) withPhotos(job entities.Job) *entities.Job {
	job.Photos = nil
	for _, p := range r.store.photos {
		if p.JobID == job.ID {
			job.Photos = append(job.Photos, p)
		}
	}
	return &job
}

func (r *fakeJobRepo) FindByID(ctx context.Context, id string) (*entities.Job, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	job, ok := r.store.jobs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.withPhotos(job), nil
}

func (r *fakeJobRepo) FindByReservationID(ctx context.Context, reservationID string) (*entities.Job, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, job := range r.store.jobs {
		if job.ReservationID == reservationID {
			return r.withPhotos(job), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeJobRepo) FindOrCreateForUpdate(ctx context.Context, tx pgx.Tx, reservationID string, reservationStatus entities.ReservationStatus) (*entities.Job, error) {
	if job, err := r.FindByReservationID(ctx, reservationID); err == nil {
		return job, nil
	}
	status, ok := entities.JobStatusFor(reservationStatus)
	if !ok {
		status = entities.JobPending
	}
	job := &entities.Job{ReservationID: reservationID, Status: status}
	if err := r.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *fakeJobRepo) Create(ctx context.Context, job *entities.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = r.store.tick()
	r.store.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) UpdateStatus(ctx context.Context, id string, status entities.JobStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	job, ok := r.store.jobs[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	job.Status = status
	r.store.jobs[id] = job
	return nil
}

func (r *fakeJobRepo) SyncStatusByReservationID(ctx context.Context, tx pgx.Tx, reservationID string, status entities.JobStatus) error {
	if r.store.failJobSync != nil {
		return r.store.failJobSync
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, job := range r.store.jobs {
		if job.ReservationID == reservationID {
			job.Status = status
			r.store.jobs[id] = job
		}
	}
	return nil
}

func (r *fakeJobRepo) AddPhoto(ctx context.Context, tx pgx.Tx, photo *entities.JobPhoto) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failPhotoInsert > 0 {
		r.store.failPhotoInsert--
		if r.store.failPhotoInsert == 0 {
			return errors.New("insert failed")
		}
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	photo.UploadedAt = r.store.tick()
	r.store.photos = append(r.store.photos, *photo)
	return nil
}

func (r *fakeJobRepo) GetPhotosByJobID(ctx context.Context, jobID string) ([]entities.JobPhoto, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.JobPhoto, 0)
	for _, p := range r.store.photos {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) GetPhotosByType(ctx context.Context, jobID string, photoType entities.PhotoType) ([]entities.JobPhoto, error) {
	all, _ := r.GetPhotosByJobID(ctx, jobID)
	out := make([]entities.JobPhoto, 0)
	for _, p := range all {
		if p.Type == photoType {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) DeletePhoto(ctx context.Context, photoID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, p := range r.store.photos {
		if p.ID == photoID {
			r.store.photos = append(r.store.photos[:i], r.store.photos[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeJobRepo) DeleteOrphanPhotos(ctx context.Context, olderThanMinutes int) (int64, error) {
	return 0, nil
}

type fakeCustomerRepo struct{ store *memStore }

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id string) (*entities.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.customers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindByPhone(ctx context.Context, tx pgx.Tx, companyID, phone string) (*entities.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.customers {
		if c.CompanyID == companyID && c.Phone == phone {
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeCustomerRepo) Create(ctx context.Context, tx pgx.Tx, customer *entities.Customer) (*entities.Customer, error) {
	if existing, err := r.FindByPhone(ctx, tx, customer.CompanyID, customer.Phone); err == nil {
		return existing, nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	customer.CreatedAt = r.store.tick()
	r.store.customers[customer.ID] = *customer
	c := *customer
	return &c, nil
}

type fakeServiceRepo struct{ store *memStore }

func (r *fakeServiceRepo) FindByID(ctx context.Context, id string) (*entities.Service, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	svc, ok := r.store.services[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &svc, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name())
	}
	return out
}

type fakePresigner struct {
	lastObject string
	lastType   string
}

func (p *fakePresigner) PresignPut(ctx context.Context, objectName, contentType string) (*filestorage.PresignedUpload, error) {
	p.lastObject = objectName
	p.lastType = contentType
	return &filestorage.PresignedUpload{
		URL:        "https://s3.test/photos/" + objectName + "?X-Amz-Signature=abc",
		ObjectName: objectName,
		Bucket:     "photos",
		PublicURL:  "https://cdn.test/" + objectName,
		ExpiresIn:  time.Hour,
	}, nil
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test", prometheus.NewRegistry())
}
