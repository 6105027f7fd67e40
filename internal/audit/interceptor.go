// interceptor.go implements the save interceptor: the single orchestration
// point every persisted write goes through. It opens the transaction, stamps
// created/updated metadata under the current actor, lets the caller run its
// business SQL, and appends the audit rows for the batch to the same
// transaction so both commit or roll back together.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/safego"
	"github.com/chorusdesk/chorusdesk/internal/telemetry"
)

// EntryWriter persists one audit row inside an open transaction. The concrete
// implementation lives in the repositories package; the interceptor only
// cares that the row lands in the same transaction as the business write.
type EntryWriter interface {
	InsertEntryTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditLog) error
}

// Interceptor orchestrates transactional saves. It is safe for concurrent use;
// all per-request state travels in the batch and the context.
type Interceptor struct {
	db       *sqlx.DB
	registry *Registry
	resolver NameResolver
	writer   EntryWriter
	shipper  Shipper
	now      func() time.Time
}

// NewInterceptor wires the interceptor. resolver may be nil when the deployment
// has no user-role surface; role changes then fall back to raw ids.
func NewInterceptor(db *sqlx.DB, registry *Registry, resolver NameResolver, writer EntryWriter) *Interceptor {
	return &Interceptor{
		db:       db,
		registry: registry,
		resolver: resolver,
		writer:   writer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetShipper installs an external destination for committed entries. Shipping
// is fire-and-forget after commit; it never affects save outcomes.
func (i *Interceptor) SetShipper(s Shipper) {
	i.shipper = s
}

// SaveChanges runs one transactional save. The sequence per call:
//
//  1. Stamp CreatedAt/CreatedBy on added entities and UpdatedAt/UpdatedBy on
//     modified ones, using the actor attached to ctx (blank when absent).
//  2. Resolve user-role display names while the referenced rows still exist.
//  3. Run apply, the caller's own statements, against the transaction.
//  4. Build and insert the audit rows for everything the batch tracked.
//  5. Commit.
//
// Any failure rolls the whole transaction back: business rows and audit rows
// never diverge. A batch whose changes all reduce to no-ops simply commits
// with zero audit rows.
func (i *Interceptor) SaveChanges(ctx context.Context, batch *Batch, apply func(tx *sqlx.Tx) error) error {
	if batch == nil {
		batch = NewBatch()
	}
	actorName, actorID := FromContext(ctx).Current()
	now := i.now()

	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback()
	}()

	for _, c := range batch.entities {
		stampable, ok := c.entity.(Stampable)
		if !ok {
			continue
		}
		switch c.state {
		case StateAdded:
			stampable.StampCreated(now, actorName)
		case StateModified:
			stampable.StampUpdated(now, actorName)
		}
	}

	type resolvedRole struct {
		rc       roleChange
		userName string
		roleName string
	}
	resolved := make([]resolvedRole, 0, len(batch.roles))
	for _, rc := range batch.roles {
		userName, roleName := resolveRolePair(ctx, i.resolver, tx, rc)
		resolved = append(resolved, resolvedRole{rc: rc, userName: userName, roleName: roleName})
	}

	if apply != nil {
		if err := apply(tx); err != nil {
			return err
		}
	}

	// Entries are built after apply so database-generated keys from the
	// caller's inserts are visible on the tracked entities.
	entries := make([]*models.AuditLog, 0, len(batch.entities)+len(resolved))
	for _, c := range batch.entities {
		if entry := buildEntityEntry(i.registry, c, actorName, actorID, now); entry != nil {
			entries = append(entries, entry)
		}
	}
	for _, rr := range resolved {
		entries = append(entries, buildRoleEntry(rr.rc, rr.userName, rr.roleName, actorName, actorID, now))
	}

	for _, entry := range entries {
		if err := i.writer.InsertEntryTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry for %s: %w", entry.EntityType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save transaction: %w", err)
	}

	// Entries are only counted once the transaction is durable; a rolled-back
	// save leaves the counters untouched.
	for _, entry := range entries {
		telemetry.AuditEntriesTotal.WithLabelValues(string(entry.Action), boolLabel(entry.IsCritical)).Inc()
	}

	if len(entries) > 0 {
		slog.Debug("audit entries written", "count", len(entries))
		if i.shipper != nil {
			safego.Go(func() {
				shipCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				for _, entry := range entries {
					_ = i.shipper.Ship(shipCtx, entry)
				}
			})
		}
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
