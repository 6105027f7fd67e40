// resolve.go resolves the foreign-key ids carried by user-role join changes
// into human-readable names. Resolution runs inside the open save transaction,
// before any delete statements execute, because the referenced rows may be
// gone by the time the transaction commits.
package audit

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// NameResolver looks up display names for the two sides of a user-role
// assignment. Implementations read through the supplied transaction so they
// observe the pre-commit state of the database.
type NameResolver interface {
	UserName(ctx context.Context, tx *sqlx.Tx, userID string) (string, error)
	RoleName(ctx context.Context, tx *sqlx.Tx, roleID string) (string, error)
}

// resolveRolePair returns display names for a role change, degrading to the
// raw ids when a lookup fails. A missing name is never a reason to abort the
// save; the trail records what it can.
func resolveRolePair(ctx context.Context, resolver NameResolver, tx *sqlx.Tx, rc roleChange) (userName, roleName string) {
	userName, roleName = rc.userID, rc.roleID
	if resolver == nil {
		return userName, roleName
	}
	if n, err := resolver.UserName(ctx, tx, rc.userID); err == nil {
		userName = n
	} else {
		slog.Warn("audit: falling back to raw user id in role change", "user_id", rc.userID, "error", err)
	}
	if n, err := resolver.RoleName(ctx, tx, rc.roleID); err == nil {
		roleName = n
	} else {
		slog.Warn("audit: falling back to raw role id in role change", "role_id", rc.roleID, "error", err)
	}
	return userName, roleName
}
