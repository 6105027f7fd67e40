// Package models - audit_log.go defines the AuditLog model: one immutable row per
// create/modify/delete (or role add/remove) event, capturing the acting user, a
// structured before/after diff, and whether the change was security-critical.
package models

import "time"

// Action identifies what happened to the audited entity.
type Action string

const (
	ActionCreated     Action = "Created"
	ActionModified    Action = "Modified"
	ActionDeleted     Action = "Deleted"
	ActionRoleAdded   Action = "RoleAdded"
	ActionRoleRemoved Action = "RoleRemoved"
)

// DeleteMarker is the single pseudo-field recorded in Changes when an entity is
// deleted. Deletions are not diffed field by field; the marker plus the forced
// critical flag is the whole record.
const DeleteMarker = "(deleted)"

// FieldChange is one before/after pair inside an AuditLog's Changes payload.
// It stays strongly typed in process and is serialized to JSON only at the
// persistence boundary, so read-side consumers (the display debouncer, the
// admin API) never re-parse free-form maps.
type FieldChange struct {
	Field string  `json:"field"`
	Old   *string `json:"old,omitempty"`
	New   *string `json:"new,omitempty"`
}

// AuditLog represents one audit trail entry. Entries are written exactly once,
// inside the same transaction as the business write they describe, and are
// never updated afterward.
type AuditLog struct {
	ID         string        `db:"id" json:"id"`
	EntityType string        `db:"entity_type" json:"entity_type"`
	EntityID   *int64        `db:"entity_id" json:"entity_id"` // absent for uuid-keyed and join entities
	Action     Action        `db:"action" json:"action"`
	ActorID    *string       `db:"actor_id" json:"actor_id"`
	ActorName  *string       `db:"actor_name" json:"actor_name"`
	Changes    []FieldChange `db:"-" json:"changes"` // serialized into the changes column by the repository
	IsCritical bool          `db:"is_critical" json:"is_critical"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// HasField reports whether the Changes payload contains the named field.
func (a *AuditLog) HasField(name string) bool {
	for _, c := range a.Changes {
		if c.Field == name {
			return true
		}
	}
	return false
}

// FieldValue is one named property value inside an entity snapshot. Snapshots
// are ordered lists rather than maps so diffs come out in declaration order.
// A nil Value means the property is null.
type FieldValue struct {
	Name  string
	Value *string
}

// AuditTrail stands in for the audit log storage itself when an administrative
// purge is run through the save interceptor, so that truncating the trail
// leaves behind its own critical deletion record.
type AuditTrail struct{}

func (AuditTrail) AuditType() string           { return "AuditLog" }
func (AuditTrail) AuditID() *int64             { return nil }
func (AuditTrail) AuditSnapshot() []FieldValue { return nil }
