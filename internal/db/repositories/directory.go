// directory.go implements the name lookups the audit engine uses to resolve
// user-role foreign keys into display names. Lookups run against the open
// save transaction so they observe rows that the same save is about to delete.
package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Directory resolves entity ids to display names for the audit trail.
type Directory struct{}

// NewDirectory creates a new Directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// UserName returns the username for a member account id.
func (d *Directory) UserName(ctx context.Context, tx *sqlx.Tx, userID string) (string, error) {
	var name string
	err := tx.GetContext(ctx, &name, `SELECT user_name FROM users WHERE id = $1`, userID)
	return name, err
}

// RoleName returns the display name for a role id.
func (d *Directory) RoleName(ctx context.Context, tx *sqlx.Tx, roleID string) (string, error) {
	var name string
	err := tx.GetContext(ctx, &name, `SELECT name FROM roles WHERE id = $1`, roleID)
	return name, err
}
