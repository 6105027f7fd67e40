// album.go defines the Album model for the music catalog.
package models

import "time"

// EntityAlbum is the audit entity-type name for catalog albums.
const EntityAlbum = "Album"

// Album represents one album in the music catalog.
type Album struct {
	ID       int64   `db:"id" json:"id"`
	Title    string  `db:"title" json:"title"`
	Composer *string `db:"composer" json:"composer"`
	// Tags is a JSON-encoded list of free-form labels. null, "" and "[]"
	// are all the same empty state as far as auditing is concerned.
	Tags        *string    `db:"tags" json:"tags"`
	ReleaseYear *int64     `db:"release_year" json:"release_year"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CreatedBy   *string    `db:"created_by" json:"created_by"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy   *string    `db:"updated_by" json:"updated_by"`
}

func (a *Album) AuditType() string { return EntityAlbum }

func (a *Album) AuditID() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

func (a *Album) AuditSnapshot() []FieldValue {
	return []FieldValue{
		fieldString("Title", a.Title),
		fieldStringPtr("Composer", a.Composer),
		fieldStringPtr("Tags", a.Tags),
		fieldIntPtr("ReleaseYear", a.ReleaseYear),
	}
}

func (a *Album) StampCreated(at time.Time, by *string) {
	a.CreatedAt = at
	a.CreatedBy = by
}

func (a *Album) StampUpdated(at time.Time, by *string) {
	a.UpdatedAt = &at
	a.UpdatedBy = by
}
