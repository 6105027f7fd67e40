// audit_repository.go implements AuditRepository, the persistence layer for
// the audit trail: transactional inserts used by the save interceptor, the
// filtered query/export surface consumed by the admin API, and the purge
// operations. Audit rows are insert-only; there is no update path.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

const auditColumns = `id, entity_type, entity_id, action, actor_id, actor_name, changes, is_critical, created_at`

// AuditRepository handles audit log database operations.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains the optional filters shared by List, Count, and
// Export. Nil pointers mean "no constraint".
type AuditFilters struct {
	ActorName    *string
	ExcludeActor *string
	EntityType   *string
	Action       *string
	StartDate    *time.Time
	EndDate      *time.Time
	CriticalOnly bool
}

// where renders the filter set as a WHERE tail starting at parameter $1.
func (f AuditFilters) where() (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := make([]interface{}, 0)
	param := 1

	if f.ActorName != nil {
		clause += fmt.Sprintf(` AND actor_name = $%d`, param)
		args = append(args, *f.ActorName)
		param++
	}
	if f.ExcludeActor != nil {
		clause += fmt.Sprintf(` AND (actor_name IS NULL OR actor_name <> $%d)`, param)
		args = append(args, *f.ExcludeActor)
		param++
	}
	if f.EntityType != nil {
		clause += fmt.Sprintf(` AND entity_type = $%d`, param)
		args = append(args, *f.EntityType)
		param++
	}
	if f.Action != nil {
		clause += fmt.Sprintf(` AND action = $%d`, param)
		args = append(args, *f.Action)
		param++
	}
	if f.StartDate != nil {
		clause += fmt.Sprintf(` AND created_at >= $%d`, param)
		args = append(args, *f.StartDate)
		param++
	}
	if f.EndDate != nil {
		clause += fmt.Sprintf(` AND created_at <= $%d`, param)
		args = append(args, *f.EndDate)
		param++
	}
	if f.CriticalOnly {
		clause += ` AND is_critical = TRUE`
	}
	return clause, args
}

// InsertEntryTx writes one audit entry inside an open transaction. The save
// interceptor calls this so the entry commits or rolls back with the business
// rows it describes.
func (r *AuditRepository) InsertEntryTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var changesJSON []byte
	if entry.Changes != nil {
		var err error
		changesJSON, err = json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal audit changes: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, actor_id, actor_name, changes, is_critical, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorID,
		entry.ActorName,
		changesJSON,
		entry.IsCritical,
		entry.CreatedAt,
	)
	return err
}

// List retrieves audit entries matching the filters, newest first, along with
// the total matching count. Pages beyond the result set return an empty slice
// rather than an error; this is a reporting path.
func (r *AuditRepository) List(ctx context.Context, filters AuditFilters, page, pageSize int) ([]models.AuditLog, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	clause, args := filters.where()

	total, err := r.count(ctx, clause, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	entries, err := r.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Count returns the number of entries matching the filters.
func (r *AuditRepository) Count(ctx context.Context, filters AuditFilters) (int, error) {
	clause, args := filters.where()
	return r.count(ctx, clause, args)
}

func (r *AuditRepository) count(ctx context.Context, clause string, args []interface{}) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`+clause, args...); err != nil {
		return 0, err
	}
	return total, nil
}

// Export retrieves every entry matching the filters in ascending time order,
// unpaginated, for download.
func (r *AuditRepository) Export(ctx context.Context, filters AuditFilters) ([]models.AuditLog, error) {
	clause, args := filters.where()
	query := `SELECT ` + auditColumns + ` FROM audit_logs` + clause + ` ORDER BY created_at ASC`
	return r.queryEntries(ctx, query, args...)
}

// EntityTypes returns the distinct entity types present in the trail.
func (r *AuditRepository) EntityTypes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT entity_type FROM audit_logs ORDER BY entity_type`)
}

// Actions returns the distinct actions present in the trail.
func (r *AuditRepository) Actions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT action FROM audit_logs ORDER BY action`)
}

// ActorNames returns the distinct non-null actor names present in the trail.
func (r *AuditRepository) ActorNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT actor_name FROM audit_logs WHERE actor_name IS NOT NULL ORDER BY actor_name`)
}

func (r *AuditRepository) distinct(ctx context.Context, query string) ([]string, error) {
	values := make([]string, 0)
	if err := r.db.SelectContext(ctx, &values, query); err != nil {
		return nil, err
	}
	return values, nil
}

// EntityHistory returns every entry for one integer-keyed entity, oldest
// first, so the caller sees its full lifecycle in order.
func (r *AuditRepository) EntityHistory(ctx context.Context, entityType string, entityID int64) ([]models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC`
	return r.queryEntries(ctx, query, entityType, entityID)
}

// SearchChanges performs a free-text search over the serialized changes
// payload, newest first.
func (r *AuditRepository) SearchChanges(ctx context.Context, term string, limit int) ([]models.AuditLog, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE changes::text ILIKE '%' || $1 || '%' ORDER BY created_at DESC LIMIT $2`
	return r.queryEntries(ctx, query, term, limit)
}

// Delete removes a single entry by id.
func (r *AuditRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, id)
	return err
}

// TruncateTx removes every entry inside an open transaction and returns the
// number of rows removed. Running it through the save interceptor lets the
// purge leave behind its own critical deletion record.
func (r *AuditRepository) TruncateTx(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM audit_logs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOlderThanTx removes entries created at or before the cutoff, inside an
// open transaction, and returns the number of rows removed. Cutoff-inclusive to
// match the EndDate filter in where(), so a Count with the same cutoff and this
// delete always agree on which rows are stale.
func (r *AuditRepository) DeleteOlderThanTx(ctx context.Context, tx *sqlx.Tx, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// queryEntries executes a SELECT over the audit columns and unmarshals the
// changes payload for each row.
func (r *AuditRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.AuditLog, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*models.AuditLog, error) {
	entry := &models.AuditLog{}
	var changesJSON []byte

	err := rows.Scan(
		&entry.ID,
		&entry.EntityType,
		&entry.EntityID,
		&entry.Action,
		&entry.ActorID,
		&entry.ActorName,
		&changesJSON,
		&entry.IsCritical,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if changesJSON != nil {
		if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit changes for %s: %w", entry.ID, err)
		}
	}
	return entry, nil
}
