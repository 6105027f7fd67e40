// event.go defines the Event model for rehearsals, concerts, and other
// scheduled activities.
package models

import "time"

// EntityEvent is the audit entity-type name for scheduled events.
const EntityEvent = "Event"

// Event represents a scheduled activity (rehearsal, concert, meeting).
type Event struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Location  *string    `db:"location" json:"location"`
	StartsAt  time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at"`
	Notes     *string    `db:"notes" json:"notes"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	CreatedBy *string    `db:"created_by" json:"created_by"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy *string    `db:"updated_by" json:"updated_by"`
}

func (e *Event) AuditType() string { return EntityEvent }

func (e *Event) AuditID() *int64 {
	if e.ID == 0 {
		return nil
	}
	id := e.ID
	return &id
}

func (e *Event) AuditSnapshot() []FieldValue {
	return []FieldValue{
		fieldString("Title", e.Title),
		fieldStringPtr("Location", e.Location),
		fieldTime("StartsAt", e.StartsAt),
		fieldTimePtr("EndsAt", e.EndsAt),
		fieldStringPtr("Notes", e.Notes),
	}
}

func (e *Event) StampCreated(at time.Time, by *string) {
	e.CreatedAt = at
	e.CreatedBy = by
}

func (e *Event) StampUpdated(at time.Time, by *string) {
	e.UpdatedAt = &at
	e.UpdatedBy = by
}
