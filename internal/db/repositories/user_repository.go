// user_repository.go implements UserRepository for member accounts and their
// role assignments. All write methods are transaction-scoped (…Tx) because
// every write flows through the audit save interceptor, which owns the
// transaction boundary.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

const userColumns = `id, user_name, email, phone_number, first_name, last_name, date_of_birth, degree,
	password_hash, security_stamp, last_login_date, voice_parts, created_at, created_by, updated_at, updated_by`

// UserRepository handles member account database operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID retrieves a member account by id. Returns nil, nil when the
// account does not exist.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.ApplicationUser, error) {
	user := &models.ApplicationUser{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUserName retrieves a member account by username. Returns nil, nil
// when the account does not exist.
func (r *UserRepository) GetUserByUserName(ctx context.Context, userName string) (*models.ApplicationUser, error) {
	user := &models.ApplicationUser{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE user_name = $1`, userName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers retrieves member accounts ordered by username, with the total count.
func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.ApplicationUser, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, err
	}

	users := make([]models.ApplicationUser, 0)
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY user_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// InsertUserTx inserts a member account inside an open save transaction.
func (r *UserRepository) InsertUserTx(ctx context.Context, tx *sqlx.Tx, u *models.ApplicationUser) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, user_name, email, phone_number, first_name, last_name, date_of_birth, degree,
			password_hash, security_stamp, last_login_date, voice_parts, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		u.ID, u.UserName, u.Email, u.PhoneNumber, u.FirstName, u.LastName, u.DateOfBirth, u.Degree,
		u.PasswordHash, u.SecurityStamp, u.LastLoginDate, u.VoiceParts, u.CreatedAt, u.CreatedBy, u.UpdatedAt, u.UpdatedBy)
	return err
}

// UpdateUserTx updates a member account inside an open save transaction.
func (r *UserRepository) UpdateUserTx(ctx context.Context, tx *sqlx.Tx, u *models.ApplicationUser) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users SET user_name = $2, email = $3, phone_number = $4, first_name = $5, last_name = $6,
			date_of_birth = $7, degree = $8, password_hash = $9, security_stamp = $10, last_login_date = $11,
			voice_parts = $12, updated_at = $13, updated_by = $14
		WHERE id = $1`,
		u.ID, u.UserName, u.Email, u.PhoneNumber, u.FirstName, u.LastName,
		u.DateOfBirth, u.Degree, u.PasswordHash, u.SecurityStamp, u.LastLoginDate,
		u.VoiceParts, u.UpdatedAt, u.UpdatedBy)
	return err
}

// DeleteUserTx removes a member account inside an open save transaction. Role
// assignments cascade at the schema level; callers that want those removals
// audited must register them on the batch explicitly.
func (r *UserRepository) DeleteUserTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// HasRole reports whether the member currently holds the role.
func (r *UserRepository) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`, userID, roleID)
	return exists, err
}

// AddRoleTx inserts a user-role assignment inside an open save transaction.
func (r *UserRepository) AddRoleTx(ctx context.Context, tx *sqlx.Tx, userID, roleID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

// RemoveRoleTx deletes a user-role assignment inside an open save transaction.
func (r *UserRepository) RemoveRoleTx(ctx context.Context, tx *sqlx.Tx, userID, roleID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// GetRoleByID retrieves a role by id. Returns nil, nil when absent.
func (r *UserRepository) GetRoleByID(ctx context.Context, id string) (*models.Role, error) {
	role := &models.Role{}
	err := r.db.GetContext(ctx, role,
		`SELECT id, name, description, created_at, created_by, updated_at, updated_by FROM roles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

// ListRoles retrieves all roles ordered by name.
func (r *UserRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	err := r.db.SelectContext(ctx, &roles,
		`SELECT id, name, description, created_at, created_by, updated_at, updated_by FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return roles, nil
}
