// Package models - user.go defines the ApplicationUser model for member accounts,
// including identity attributes audited as security-critical, secret columns that
// must never surface in the audit trail, and plain profile attributes.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Snapshot field names for ApplicationUser. The audit classification registry
// and the display debouncer key off these, so they are constants rather than
// string literals scattered across packages.
const (
	FieldUserName      = "UserName"
	FieldEmail         = "Email"
	FieldPhoneNumber   = "PhoneNumber"
	FieldFirstName     = "FirstName"
	FieldLastName      = "LastName"
	FieldDateOfBirth   = "DateOfBirth"
	FieldDegree        = "Degree"
	FieldPasswordHash  = "PasswordHash"
	FieldSecurityStamp = "SecurityStamp"
	FieldLastLoginDate = "LastLoginDate"
	FieldVoiceParts    = "VoiceParts"
)

// EntityUser is the audit entity-type name for member accounts.
const EntityUser = "ApplicationUser"

// ApplicationUser represents a member account in the system.
type ApplicationUser struct {
	ID            string     `db:"id"`
	UserName      string     `db:"user_name"`
	Email         string     `db:"email"`
	PhoneNumber   *string    `db:"phone_number"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	DateOfBirth   *time.Time `db:"date_of_birth"`
	Degree        *string    `db:"degree"`
	PasswordHash  string     `db:"password_hash"`
	SecurityStamp string     `db:"security_stamp"`
	LastLoginDate *time.Time `db:"last_login_date"`
	// VoiceParts is a JSON-encoded list of voice parts the member sings
	// (e.g. ["soprano","alto"]). null, "" and "[]" all mean "none".
	VoiceParts *string    `db:"voice_parts"`
	CreatedAt  time.Time  `db:"created_at"`
	CreatedBy  *string    `db:"created_by"`
	UpdatedAt  *time.Time `db:"updated_at"`
	UpdatedBy  *string    `db:"updated_by"`
}

// NewApplicationUser returns a user with a fresh id and security stamp.
func NewApplicationUser(userName, email string) *ApplicationUser {
	return &ApplicationUser{
		ID:            uuid.New().String(),
		UserName:      userName,
		Email:         email,
		SecurityStamp: uuid.New().String(),
	}
}

// SetPassword hashes the given plaintext with bcrypt and rotates the security
// stamp, invalidating any outstanding sessions. Sign-in itself is handled by
// the authentication service, not here.
func (u *ApplicationUser) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.SecurityStamp = uuid.New().String()
	return nil
}

// DisplayName returns the member's full name, falling back to the username.
func (u *ApplicationUser) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.UserName
	}
	return u.FirstName + " " + u.LastName
}

func (u *ApplicationUser) AuditType() string { return EntityUser }

// AuditID is nil because member accounts are uuid-keyed; their identity is
// carried in the Changes payload instead of the integer entity-id column.
func (u *ApplicationUser) AuditID() *int64 { return nil }

// AuditSnapshot renders every audited property in declaration order. Secret
// columns (PasswordHash, SecurityStamp) are included here on purpose: the diff
// engine needs to see them change to flag the entry critical, and the
// classification registry keeps their values out of the persisted payload.
func (u *ApplicationUser) AuditSnapshot() []FieldValue {
	return []FieldValue{
		fieldString(FieldUserName, u.UserName),
		fieldString(FieldEmail, u.Email),
		fieldStringPtr(FieldPhoneNumber, u.PhoneNumber),
		fieldString(FieldFirstName, u.FirstName),
		fieldString(FieldLastName, u.LastName),
		fieldTimePtr(FieldDateOfBirth, u.DateOfBirth),
		fieldStringPtr(FieldDegree, u.Degree),
		fieldString(FieldPasswordHash, u.PasswordHash),
		fieldString(FieldSecurityStamp, u.SecurityStamp),
		fieldTimePtr(FieldLastLoginDate, u.LastLoginDate),
		fieldStringPtr(FieldVoiceParts, u.VoiceParts),
	}
}

func (u *ApplicationUser) StampCreated(at time.Time, by *string) {
	u.CreatedAt = at
	u.CreatedBy = by
}

func (u *ApplicationUser) StampUpdated(at time.Time, by *string) {
	u.UpdatedAt = &at
	u.UpdatedBy = by
}
