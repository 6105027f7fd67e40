// builder.go assembles AuditLog rows from batch items: entity type, id,
// action, actor snapshot, UTC timestamp, diff payload, criticality.
package audit

import (
	"time"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// buildEntityEntry turns one tracked entity change into an audit row, or nil
// when the change is not worth recording (unchanged entities, no-op writes,
// stale login rewrites).
func buildEntityEntry(registry *Registry, c entityChange, actorName, actorID *string, now time.Time) *models.AuditLog {
	entry := &models.AuditLog{
		EntityType: c.entity.AuditType(),
		EntityID:   c.entity.AuditID(),
		ActorID:    actorID,
		ActorName:  actorName,
		CreatedAt:  now,
	}

	switch c.state {
	case StateAdded:
		// Creation carries no prior state beyond defaults; the row itself
		// is the record, so the Changes payload stays empty.
		entry.Action = models.ActionCreated

	case StateModified:
		res := diffSnapshots(registry, entry.EntityType, c.original, c.entity.AuditSnapshot())
		res.changes = stripStaleLoginRewrites(entry.EntityType, res.changes)
		if len(res.changes) == 0 && !res.critical {
			// Pure no-op write or a lone stale login rewrite; keep it out
			// of the trail.
			return nil
		}
		entry.Action = models.ActionModified
		entry.Changes = res.changes
		entry.IsCritical = res.critical

	case StateDeleted:
		// Deleting anything is critical, for every entity type, with no
		// exceptions and no per-field diff.
		entry.Action = models.ActionDeleted
		entry.IsCritical = true
		entry.Changes = []models.FieldChange{{Field: models.DeleteMarker}}

	default:
		return nil
	}

	return entry
}

// buildRoleEntry turns one user-role assignment change into its audit row.
// Role membership changes are unconditionally critical, and the Changes
// payload carries the resolved username and role name — raw foreign-key ids
// must not leak into the human-facing record.
func buildRoleEntry(rc roleChange, userName, roleName string, actorName, actorID *string, now time.Time) *models.AuditLog {
	entry := &models.AuditLog{
		EntityType: models.EntityUserRole,
		ActorID:    actorID,
		ActorName:  actorName,
		IsCritical: true,
		CreatedAt:  now,
	}
	if rc.added {
		entry.Action = models.ActionRoleAdded
		entry.Changes = []models.FieldChange{
			{Field: models.FieldRoleUser, New: &userName},
			{Field: models.FieldRoleName, New: &roleName},
		}
	} else {
		entry.Action = models.ActionRoleRemoved
		entry.Changes = []models.FieldChange{
			{Field: models.FieldRoleUser, Old: &userName},
			{Field: models.FieldRoleName, Old: &roleName},
		}
	}
	return entry
}
