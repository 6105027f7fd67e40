package jobs

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newRetentionHarness(t *testing.T, retentionDays, intervalHours int) (*RetentionJob, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := repositories.NewAuditRepository(sqlxDB)
	interceptor := audit.NewInterceptor(sqlxDB, audit.NewRegistry(), nil, repo)
	return NewRetentionJob(repo, interceptor, retentionDays, intervalHours), mock
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewRetentionJob_DefaultInterval(t *testing.T) {
	job, _ := newRetentionHarness(t, 90, 0)
	if job.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h default", job.interval)
	}
}

func TestNewRetentionJob_ConfiguredInterval(t *testing.T) {
	job, _ := newRetentionHarness(t, 90, 6)
	if job.interval != 6*time.Hour {
		t.Errorf("interval = %v, want 6h", job.interval)
	}
}

// ---------------------------------------------------------------------------
// Start / Stop
// ---------------------------------------------------------------------------

func TestRetentionJob_DisabledReturnsImmediately(t *testing.T) {
	job, mock := newRetentionHarness(t, 0, 1)

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return for a disabled job")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestRetentionJob_StopEndsLoop(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	// The startup purge finds nothing stale and goes back to sleep.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestRetentionJob_ContextCancelEndsLoop(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

// ---------------------------------------------------------------------------
// Purge behaviour
// ---------------------------------------------------------------------------

func TestRunPurge_NothingStaleWritesNothing(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	job.runPurge(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected count query only: %v", err)
	}
}

func TestRunPurge_DeletesStaleAndRecordsPurge(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audit_logs WHERE created_at <= \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	// The purge records itself: one critical AuditLog deletion entry in the
	// same transaction as the DELETE.
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	job.runPurge(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("purge transaction did not run as expected: %v", err)
	}
}

func TestRunPurge_DeleteFailureRollsBack(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audit_logs WHERE created_at <= \$1`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	job.runPurge(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("failed purge should roll back: %v", err)
	}
}

func TestRunPurge_CountFailureSkipsPurge(t *testing.T) {
	job, mock := newRetentionHarness(t, 90, 24)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnError(context.DeadlineExceeded)

	job.runPurge(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("count failure should stop the run: %v", err)
	}
}
