package models

import (
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// AuditLog.HasField
// ---------------------------------------------------------------------------

func TestAuditLog_HasField(t *testing.T) {
	before := "a@example.org"
	after := "b@example.org"
	entry := &AuditLog{
		Changes: []FieldChange{
			{Field: FieldEmail, Old: &before, New: &after},
			{Field: FieldLastLoginDate, New: &after},
		},
	}

	if !entry.HasField(FieldEmail) {
		t.Error("HasField(Email) = false, want true")
	}
	if !entry.HasField(FieldLastLoginDate) {
		t.Error("HasField(LastLoginDate) = false, want true")
	}
	if entry.HasField(FieldUserName) {
		t.Error("HasField(UserName) = true, want false")
	}

	empty := &AuditLog{}
	if empty.HasField(FieldEmail) {
		t.Error("HasField() on empty Changes = true, want false")
	}
}

// ---------------------------------------------------------------------------
// AuditID semantics for serial-keyed entities
// ---------------------------------------------------------------------------

func TestAuditID_NilUntilPersisted(t *testing.T) {
	t.Run("album", func(t *testing.T) {
		a := &Album{Title: "Requiem"}
		if a.AuditID() != nil {
			t.Error("AuditID() non-nil before the database assigned an id")
		}
		a.ID = 42
		got := a.AuditID()
		if got == nil || *got != 42 {
			t.Errorf("AuditID() = %v, want 42", got)
		}
		// Returned pointer is a copy, not an alias of the field.
		a.ID = 99
		if *got != 42 {
			t.Error("AuditID() result changed when the entity was mutated")
		}
	})

	t.Run("event", func(t *testing.T) {
		e := &Event{Title: "Spring Concert"}
		if e.AuditID() != nil {
			t.Error("AuditID() non-nil before the database assigned an id")
		}
		e.ID = 7
		if got := e.AuditID(); got == nil || *got != 7 {
			t.Errorf("AuditID() = %v, want 7", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Snapshot rendering
// ---------------------------------------------------------------------------

func TestAlbum_AuditSnapshot(t *testing.T) {
	composer := "Mozart"
	year := int64(1791)
	a := &Album{Title: "Requiem", Composer: &composer, ReleaseYear: &year}

	snap := a.AuditSnapshot()
	wantOrder := []string{"Title", "Composer", "Tags", "ReleaseYear"}
	if len(snap) != len(wantOrder) {
		t.Fatalf("AuditSnapshot() len = %d, want %d", len(snap), len(wantOrder))
	}
	for i, name := range wantOrder {
		if snap[i].Name != name {
			t.Errorf("snapshot[%d].Name = %q, want %q", i, snap[i].Name, name)
		}
	}
	if snap[1].Value == nil || *snap[1].Value != "Mozart" {
		t.Error("Composer not rendered")
	}
	if snap[2].Value != nil {
		t.Errorf("nil Tags rendered = %q, want nil value", *snap[2].Value)
	}
	if snap[3].Value == nil || *snap[3].Value != "1791" {
		t.Error("ReleaseYear not rendered as decimal string")
	}
}

func TestEvent_AuditSnapshot_TimeRendering(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	e := &Event{
		Title:    "Dress Rehearsal",
		StartsAt: time.Date(2026, 5, 1, 20, 0, 0, 0, loc),
	}

	snap := e.AuditSnapshot()
	var starts *string
	for _, fv := range snap {
		if fv.Name == "StartsAt" {
			starts = fv.Value
		}
	}
	// Timestamps are normalized to UTC so the same instant always renders the
	// same way regardless of the server's zone.
	if starts == nil || *starts != "2026-05-01T19:00:00Z" {
		t.Errorf("StartsAt rendered = %v, want 2026-05-01T19:00:00Z", starts)
	}
}

// ---------------------------------------------------------------------------
// AuditTrail purge stand-in
// ---------------------------------------------------------------------------

func TestAuditTrail_StandIn(t *testing.T) {
	trail := AuditTrail{}
	if got := trail.AuditType(); got != "AuditLog" {
		t.Errorf("AuditType() = %q, want AuditLog", got)
	}
	if trail.AuditID() != nil {
		t.Error("AuditID() != nil")
	}
	if trail.AuditSnapshot() != nil {
		t.Error("AuditSnapshot() != nil")
	}
}
