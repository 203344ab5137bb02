package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"sundey-crm/internal/repositories"
	"sundey-crm/pkg/config"
	"sundey-crm/pkg/metrics"
)

const cleanupLockKey = "lock:cleanup-orphan-photos"

// ErrCleanupLocked is returned by RunNow when another instance holds the
// sweep lock.
var ErrCleanupLocked = errors.New("orphan photo cleanup already running")

// OrphanPhotoDeleter is the part of the job repository the sweep needs.
type OrphanPhotoDeleter interface {
	DeleteOrphanPhotos(ctx context.Context, olderThanMinutes int) (int64, error)
}

// CleanupOrphanPhotosWorker periodically deletes photos of cancelled jobs
// that are older than the retention window.
type CleanupOrphanPhotosWorker struct {
	photos    OrphanPhotoDeleter
	lock      repositories.CacheRepositoryInterface
	cfg       config.CleanupConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
	scheduler *cron.Cron
	running   sync.Mutex
	runCtx    context.Context
	cancel    context.CancelFunc
}

// NewCleanupOrphanPhotosWorker builds the worker. lock may be nil, in
// which case runs are only serialized within this process.
func NewCleanupOrphanPhotosWorker(
	photos OrphanPhotoDeleter,
	lock repositories.CacheRepositoryInterface,
	cfg config.CleanupConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CleanupOrphanPhotosWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupOrphanPhotosWorker{
		photos:    photos,
		lock:      lock,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		scheduler: cron.New(),
		runCtx:    ctx,
		cancel:    cancel,
	}
}

// Start registers the schedule and starts the cron runner. An invalid
// expression is logged and leaves the worker idle; it never stops the
// process.
func (w *CleanupOrphanPhotosWorker) Start() bool {
	_, err := w.scheduler.AddFunc(w.cfg.Cron, func() {
		if _, err := w.RunNow(w.runCtx); err != nil && !errors.Is(err, ErrCleanupLocked) {
			w.logger.Error("orphan photo cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		w.logger.Error("failed to schedule orphan photo cleanup",
			zap.String("cron", w.cfg.Cron),
			zap.Error(err),
		)
		return false
	}
	w.scheduler.Start()
	w.logger.Info("orphan photo cleanup scheduled",
		zap.String("cron", w.cfg.Cron),
		zap.Int("retentionMinutes", w.cfg.RetentionMinutes),
	)
	return true
}

// Stop cancels a running sweep and waits for the cron runner to finish.
func (w *CleanupOrphanPhotosWorker) Stop() {
	w.cancel()
	<-w.scheduler.Stop().Done()
}

// RunNow performs one sweep and returns the number of deleted photos.
func (w *CleanupOrphanPhotosWorker) RunNow(ctx context.Context) (int64, error) {
	if !w.running.TryLock() {
		return 0, ErrCleanupLocked
	}
	defer w.running.Unlock()

	release, err := w.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	started := time.Now()
	w.logger.Info("orphan photo cleanup started", zap.Int("retentionMinutes", w.cfg.RetentionMinutes))

	deleted, err := w.photos.DeleteOrphanPhotos(ctx, w.cfg.RetentionMinutes)
	w.metrics.CleanupDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		w.metrics.CleanupErrors.Inc()
		return 0, err
	}

	w.metrics.CleanupDeleted.Add(float64(deleted))
	w.logger.Info("orphan photo cleanup finished",
		zap.Int64("deleted", deleted),
		zap.Duration("took", time.Since(started)),
	)
	return deleted, nil
}

func (w *CleanupOrphanPhotosWorker) acquire(ctx context.Context) (func(), error) {
	if w.lock == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := w.lock.SetNX(ctx, cleanupLockKey, token, w.cfg.LockTTL)
	if err != nil {
		w.metrics.CleanupErrors.Inc()
		return nil, fmt.Errorf("failed to acquire cleanup lock: %w", err)
	}
	if !ok {
		w.logger.Info("orphan photo cleanup skipped, another instance holds the lock")
		return nil, ErrCleanupLocked
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		current, err := w.lock.Get(releaseCtx, cleanupLockKey)
		if err != nil || current != token {
			return
		}
		if err := w.lock.Del(releaseCtx, cleanupLockKey); err != nil {
			w.logger.Warn("failed to release cleanup lock", zap.Error(err))
		}
	}, nil
}
