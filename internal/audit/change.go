// change.go defines the contract between the save interceptor and the
// persistence code that calls it: the Auditable/Stampable entity interfaces
// and the Batch of pending changes handed to SaveChanges.
package audit

import (
	"time"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// Auditable is implemented by every entity the engine can audit. The
// snapshot is an ordered list of display-rendered property values; entities
// with database-generated keys return a nil AuditID until they are inserted.
type Auditable interface {
	AuditType() string
	AuditID() *int64
	AuditSnapshot() []models.FieldValue
}

// Stampable is implemented by entities carrying created/updated metadata
// columns. The interceptor stamps them; entities that do not opt in (such as
// the audit rows themselves) are simply left alone.
type Stampable interface {
	StampCreated(at time.Time, by *string)
	StampUpdated(at time.Time, by *string)
}

// EntityState is the per-save lifecycle state of one tracked entity. Exactly
// one state applies per entity per save call; only Added, Modified, and
// Deleted produce audit work.
type EntityState int

const (
	StateUnchanged EntityState = iota
	StateAdded
	StateModified
	StateDeleted
)

func (s EntityState) String() string {
	switch s {
	case StateAdded:
		return "added"
	case StateModified:
		return "modified"
	case StateDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

type entityChange struct {
	entity   Auditable
	state    EntityState
	original []models.FieldValue // nil except for StateModified
}

type roleChange struct {
	userID string
	roleID string
	added  bool
}

// Batch collects every entity change participating in one transactional save.
// The caller registers changes, performs its own SQL inside the apply callback
// of Interceptor.SaveChanges, and the interceptor turns the batch into audit
// rows in the same transaction.
type Batch struct {
	entities []entityChange
	roles    []roleChange
}

// NewBatch returns an empty change batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Added registers an entity about to be inserted.
func (b *Batch) Added(e Auditable) *Batch {
	b.entities = append(b.entities, entityChange{entity: e, state: StateAdded})
	return b
}

// Modified registers an entity about to be updated, together with the
// snapshot taken when it was loaded. Use Snap before mutating the entity.
func (b *Batch) Modified(e Auditable, original []models.FieldValue) *Batch {
	b.entities = append(b.entities, entityChange{entity: e, state: StateModified, original: original})
	return b
}

// Deleted registers an entity about to be removed.
func (b *Batch) Deleted(e Auditable) *Batch {
	b.entities = append(b.entities, entityChange{entity: e, state: StateDeleted})
	return b
}

// Unchanged registers an entity that participates in the save without being
// written. It produces no stamping and no audit row; tracking it is allowed
// purely so callers can hand over everything they loaded.
func (b *Batch) Unchanged(e Auditable) *Batch {
	b.entities = append(b.entities, entityChange{entity: e, state: StateUnchanged})
	return b
}

// RoleAdded registers a user-role assignment about to be inserted. Only the
// foreign keys are known here; the interceptor resolves them into display
// names while the transaction is still open.
func (b *Batch) RoleAdded(userID, roleID string) *Batch {
	b.roles = append(b.roles, roleChange{userID: userID, roleID: roleID, added: true})
	return b
}

// RoleRemoved registers a user-role assignment about to be deleted.
func (b *Batch) RoleRemoved(userID, roleID string) *Batch {
	b.roles = append(b.roles, roleChange{userID: userID, roleID: roleID})
	return b
}

// Empty reports whether the batch contains no registered changes at all.
func (b *Batch) Empty() bool {
	return len(b.entities) == 0 && len(b.roles) == 0
}

// Snap captures an entity's current snapshot for later use as the "original"
// side of a Modified registration.
func Snap(e Auditable) []models.FieldValue {
	src := e.AuditSnapshot()
	out := make([]models.FieldValue, len(src))
	copy(out, src)
	return out
}
