// role.go defines the Role model and the user-role join constants. The join
// table itself has no Go struct; role assignments enter the audit pipeline as
// explicit RoleAdded/RoleRemoved batch items carrying the two foreign keys.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityRole and EntityUserRole are the audit entity-type names for roles and
// for the user-role join respectively.
const (
	EntityRole     = "Role"
	EntityUserRole = "UserRole"
)

// Changes payload field names for UserRole entries. These carry resolved
// display names, never raw foreign-key ids.
const (
	FieldRoleUser = "User"
	FieldRoleName = "Role"
)

// Role represents an authorization role members can hold (e.g. "Admin",
// "Librarian", "Treasurer").
type Role struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CreatedBy   *string    `db:"created_by" json:"created_by"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy   *string    `db:"updated_by" json:"updated_by"`
}

// NewRole returns a role with a fresh id.
func NewRole(name string) *Role {
	return &Role{ID: uuid.New().String(), Name: name}
}

func (r *Role) AuditType() string { return EntityRole }

// AuditID is nil because roles are uuid-keyed.
func (r *Role) AuditID() *int64 { return nil }

func (r *Role) AuditSnapshot() []FieldValue {
	return []FieldValue{
		fieldString("Name", r.Name),
		fieldStringPtr("Description", r.Description),
	}
}

func (r *Role) StampCreated(at time.Time, by *string) {
	r.CreatedAt = at
	r.CreatedBy = by
}

func (r *Role) StampUpdated(at time.Time, by *string) {
	r.UpdatedAt = &at
	r.UpdatedBy = by
}
