// audit_retention.go implements the RetentionJob background job, which
// periodically removes audit entries older than the configured retention
// window. The purge itself goes through the save interceptor, so each run that
// actually removes rows leaves behind a critical entry recording that history
// was trimmed and by which process. A run that finds nothing to purge writes
// nothing. The job is a no-op when retention is disabled (retention_days <= 0),
// so it is always safe to start regardless of deployment environment.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
	"github.com/chorusdesk/chorusdesk/internal/telemetry"
)

// RetentionJob periodically purges audit entries past their retention window.
type RetentionJob struct {
	repo          *repositories.AuditRepository
	interceptor   *audit.Interceptor
	retentionDays int
	interval      time.Duration
	stopChan      chan struct{}
}

// NewRetentionJob creates a new RetentionJob.
// intervalHours controls how often the purge runs (default 24h).
func NewRetentionJob(
	repo *repositories.AuditRepository,
	interceptor *audit.Interceptor,
	retentionDays int,
	intervalHours int,
) *RetentionJob {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &RetentionJob{
		repo:          repo,
		interceptor:   interceptor,
		retentionDays: retentionDays,
		interval:      time.Duration(intervalHours) * time.Hour,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the background purge loop.
// It runs an initial purge immediately, then repeats on the configured
// interval. The loop exits when ctx is cancelled or Stop() is called.
func (j *RetentionJob) Start(ctx context.Context) {
	if j.retentionDays <= 0 {
		slog.Info("audit retention job disabled", "retention_days", j.retentionDays)
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("audit retention job started",
		"retention_days", j.retentionDays,
		"purge_interval", j.interval)

	// Run once immediately on startup
	j.runPurge(ctx)

	for {
		select {
		case <-ticker.C:
			j.runPurge(ctx)
		case <-j.stopChan:
			slog.Info("audit retention job stopped")
			return
		case <-ctx.Done():
			slog.Info("audit retention job context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (j *RetentionJob) Stop() {
	close(j.stopChan)
}

// runPurge deletes entries older than the retention cutoff. The count check
// up front keeps quiet intervals from writing purge records about nothing.
func (j *RetentionJob) runPurge(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)

	stale, err := j.repo.Count(ctx, repositories.AuditFilters{EndDate: &cutoff})
	if err != nil {
		slog.Error("audit retention: failed to count stale entries", "error", err)
		return
	}
	if stale == 0 {
		return
	}

	var purged int64
	batch := audit.NewBatch().Deleted(models.AuditTrail{})
	err = j.interceptor.SaveChanges(ctx, batch, func(tx *sqlx.Tx) error {
		purged, err = j.repo.DeleteOlderThanTx(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		slog.Error("audit retention: purge failed", "error", err, "cutoff", cutoff)
		return
	}

	telemetry.AuditEntriesPurgedTotal.Add(float64(purged))
	slog.Info("audit retention: purged stale entries",
		"purged", purged,
		"cutoff", cutoff)
}
