package worker

import (
	"context"
	"time"

	"skydrive/internal/pkg"
	"skydrive/internal/repository"
	"skydrive/internal/services"

	"github.com/robfig/cron/v3"
)

// CleanupWorker purges trashed entries whose retention window has passed.
// A retention of zero or less disables the worker.
type CleanupWorker struct {
	entryRepo repository.EntryRepository
	lifecycle *services.LifecycleService
	logger    *pkg.Logger
	retention time.Duration
	schedule  string
	cron      *cron.Cron
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(
	entryRepo repository.EntryRepository,
	lifecycle *services.LifecycleService,
	logger *pkg.Logger,
	retention time.Duration,
	schedule string,
) *CleanupWorker {
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &CleanupWorker{
		entryRepo: entryRepo,
		lifecycle: lifecycle,
		logger:    logger,
		retention: retention,
		schedule:  schedule,
	}
}

// Start schedules the worker. No-op when retention is disabled.
func (w *CleanupWorker) Start() error {
	if w.retention <= 0 {
		w.logger.Info("trash retention disabled, cleanup worker not started", nil)
		return nil
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return err
	}
	w.cron.Start()

	w.logger.Info("cleanup worker started", map[string]interface{}{
		"schedule":  w.schedule,
		"retention": w.retention.String(),
	})

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (w *CleanupWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

func (w *CleanupWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := w.Sweep(ctx); err != nil {
		w.logger.Error("trash sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Sweep purges every entry trashed before the retention cutoff. Failures
// on one entry do not stop the sweep.
func (w *CleanupWorker) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.retention)

	expired, err := w.entryRepo.FindTrashedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	purged := 0
	for _, entry := range expired {
		if err := w.lifecycle.PurgeEntry(ctx, entry); err != nil {
			w.logger.Warn("failed to purge expired entry", map[string]interface{}{
				"entry_id": entry.ID.Hex(),
				"error":    err.Error(),
			})
			continue
		}
		purged++
	}

	if purged > 0 {
		w.logger.Info("trash sweep complete", map[string]interface{}{
			"purged": purged,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}

	return nil
}
