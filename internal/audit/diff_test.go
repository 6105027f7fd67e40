package audit

import (
	"testing"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func strp(s string) *string { return &s }

func fv(name string, v *string) models.FieldValue {
	return models.FieldValue{Name: name, Value: v}
}

// ---------------------------------------------------------------------------
// diffSnapshots
// ---------------------------------------------------------------------------

func TestDiffSnapshots_NoChanges(t *testing.T) {
	reg := NewRegistry()
	snap := []models.FieldValue{
		fv("Title", strp("Requiem")),
		fv("Composer", strp("Mozart")),
	}

	res := diffSnapshots(reg, models.EntityAlbum, snap, snap)
	if len(res.changes) != 0 {
		t.Errorf("changes = %v, want none", res.changes)
	}
	if res.critical {
		t.Error("no-op diff flagged critical")
	}
}

func TestDiffSnapshots_NormalFieldChange(t *testing.T) {
	reg := NewRegistry()
	original := []models.FieldValue{fv("Title", strp("Requiem"))}
	current := []models.FieldValue{fv("Title", strp("Requiem in D minor"))}

	res := diffSnapshots(reg, models.EntityAlbum, original, current)
	if len(res.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(res.changes))
	}
	c := res.changes[0]
	if c.Field != "Title" || *c.Old != "Requiem" || *c.New != "Requiem in D minor" {
		t.Errorf("unexpected change: %+v", c)
	}
	if res.critical {
		t.Error("normal field change flagged critical")
	}
}

func TestDiffSnapshots_CriticalFieldChange(t *testing.T) {
	reg := NewRegistry()
	original := []models.FieldValue{fv(models.FieldEmail, strp("old@example.com"))}
	current := []models.FieldValue{fv(models.FieldEmail, strp("new@example.com"))}

	res := diffSnapshots(reg, models.EntityUser, original, current)
	if len(res.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(res.changes))
	}
	if !res.critical {
		t.Error("email change not flagged critical")
	}
}

func TestDiffSnapshots_ExcludedFieldHiddenButCritical(t *testing.T) {
	reg := NewRegistry()
	original := []models.FieldValue{fv(models.FieldPasswordHash, strp("hash-a"))}
	current := []models.FieldValue{fv(models.FieldPasswordHash, strp("hash-b"))}

	res := diffSnapshots(reg, models.EntityUser, original, current)
	if len(res.changes) != 0 {
		t.Errorf("excluded field leaked into changes: %v", res.changes)
	}
	if !res.critical {
		t.Error("excluded field change not flagged critical")
	}
}

func TestDiffSnapshots_ExcludedPlusNormal(t *testing.T) {
	reg := NewRegistry()
	original := []models.FieldValue{
		fv(models.FieldFirstName, strp("Anna")),
		fv(models.FieldSecurityStamp, strp("stamp-1")),
	}
	current := []models.FieldValue{
		fv(models.FieldFirstName, strp("Anne")),
		fv(models.FieldSecurityStamp, strp("stamp-2")),
	}

	res := diffSnapshots(reg, models.EntityUser, original, current)
	if len(res.changes) != 1 || res.changes[0].Field != models.FieldFirstName {
		t.Errorf("changes = %v, want FirstName only", res.changes)
	}
	if !res.critical {
		t.Error("stamp rotation not flagged critical")
	}
}

func TestDiffSnapshots_EmptyListEncodingsAreEqual(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		name     string
		old, new *string
	}{
		{"nil vs empty string", nil, strp("")},
		{"nil vs empty array", nil, strp("[]")},
		{"empty string vs empty array", strp(""), strp("[]")},
		{"empty array vs nil", strp("[]"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := diffSnapshots(reg, models.EntityUser,
				[]models.FieldValue{fv(models.FieldVoiceParts, tc.old)},
				[]models.FieldValue{fv(models.FieldVoiceParts, tc.new)})
			if len(res.changes) != 0 {
				t.Errorf("empty-state rewrite recorded as change: %v", res.changes)
			}
		})
	}
}

func TestDiffSnapshots_RealListChangeIsRecorded(t *testing.T) {
	reg := NewRegistry()
	res := diffSnapshots(reg, models.EntityUser,
		[]models.FieldValue{fv(models.FieldVoiceParts, nil)},
		[]models.FieldValue{fv(models.FieldVoiceParts, strp(`["Tenor"]`))})
	if len(res.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(res.changes))
	}
	if res.changes[0].Old != nil {
		t.Errorf("Old = %v, want nil", *res.changes[0].Old)
	}
	if *res.changes[0].New != `["Tenor"]` {
		t.Errorf("New = %q", *res.changes[0].New)
	}
}

func TestDiffSnapshots_UntrackedFieldSkipped(t *testing.T) {
	reg := NewRegistry()
	// Current snapshot has a field the original never carried.
	res := diffSnapshots(reg, models.EntityAlbum,
		[]models.FieldValue{fv("Title", strp("x"))},
		[]models.FieldValue{
			fv("Title", strp("x")),
			fv("Composer", strp("Brahms")),
		})
	if len(res.changes) != 0 {
		t.Errorf("untracked field reported: %v", res.changes)
	}
}

func TestDiffSnapshots_DeclarationOrderPreserved(t *testing.T) {
	reg := NewRegistry()
	original := []models.FieldValue{
		fv("Title", strp("a")),
		fv("Composer", strp("b")),
		fv("Tags", strp("c")),
	}
	current := []models.FieldValue{
		fv("Title", strp("a2")),
		fv("Composer", strp("b2")),
		fv("Tags", strp("c2")),
	}

	res := diffSnapshots(reg, models.EntityAlbum, original, current)
	want := []string{"Title", "Composer", "Tags"}
	if len(res.changes) != len(want) {
		t.Fatalf("got %d changes, want %d", len(res.changes), len(want))
	}
	for i, w := range want {
		if res.changes[i].Field != w {
			t.Errorf("changes[%d].Field = %q, want %q", i, res.changes[i].Field, w)
		}
	}
}

// ---------------------------------------------------------------------------
// semanticallyEqual
// ---------------------------------------------------------------------------

func TestSemanticallyEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b *string
		want bool
	}{
		{"both nil", nil, nil, true},
		{"same string", strp("x"), strp("x"), true},
		{"different strings", strp("x"), strp("y"), false},
		{"nil vs value", nil, strp("x"), false},
		{"nil vs empty", nil, strp(""), true},
		{"empty vs empty array", strp(""), strp("[]"), true},
		{"empty array vs value", strp("[]"), strp(`["a"]`), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := semanticallyEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("semanticallyEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// stripStaleLoginRewrites
// ---------------------------------------------------------------------------

func TestStripStaleLoginRewrites(t *testing.T) {
	login := func(old, new *string) models.FieldChange {
		return models.FieldChange{Field: models.FieldLastLoginDate, Old: old, New: new}
	}
	fields := func(changes []models.FieldChange) []string {
		names := make([]string, 0, len(changes))
		for _, c := range changes {
			names = append(names, c.Field)
		}
		return names
	}

	cases := []struct {
		name       string
		entityType string
		changes    []models.FieldChange
		want       []string
	}{
		{
			"forward move is a real login",
			models.EntityUser,
			[]models.FieldChange{login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T11:00:00Z"))},
			[]string{models.FieldLastLoginDate},
		},
		{
			"same instant is stripped",
			models.EntityUser,
			[]models.FieldChange{login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T10:00:00Z"))},
			[]string{},
		},
		{
			"backward move is stripped",
			models.EntityUser,
			[]models.FieldChange{login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T09:00:00Z"))},
			[]string{},
		},
		{
			"first login from null is real",
			models.EntityUser,
			[]models.FieldChange{login(nil, strp("2026-03-14T10:00:00Z"))},
			[]string{models.FieldLastLoginDate},
		},
		{
			"clearing the timestamp is stripped",
			models.EntityUser,
			[]models.FieldChange{login(strp("2026-03-14T10:00:00Z"), nil)},
			[]string{},
		},
		{
			"unparsable timestamps stay visible",
			models.EntityUser,
			[]models.FieldChange{login(strp("not-a-time"), strp("also-not"))},
			[]string{models.FieldLastLoginDate},
		},
		{
			"other entity types are untouched",
			models.EntityAlbum,
			[]models.FieldChange{login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T10:00:00Z"))},
			[]string{models.FieldLastLoginDate},
		},
		{
			"stale rewrite inside a profile edit loses only the rewrite",
			models.EntityUser,
			[]models.FieldChange{
				login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T10:00:00Z")),
				{Field: models.FieldFirstName, Old: strp("A"), New: strp("B")},
			},
			[]string{models.FieldFirstName},
		},
		{
			"genuine login inside a profile edit keeps both",
			models.EntityUser,
			[]models.FieldChange{
				login(strp("2026-03-14T10:00:00Z"), strp("2026-03-14T11:00:00Z")),
				{Field: models.FieldFirstName, Old: strp("A"), New: strp("B")},
			},
			[]string{models.FieldLastLoginDate, models.FieldFirstName},
		},
		{
			"unrelated fields pass through",
			models.EntityUser,
			[]models.FieldChange{{Field: models.FieldFirstName, Old: strp("A"), New: strp("B")}},
			[]string{models.FieldFirstName},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fields(stripStaleLoginRewrites(tc.entityType, tc.changes))
			if len(got) != len(tc.want) {
				t.Fatalf("kept fields = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("kept fields = %v, want %v", got, tc.want)
				}
			}
		})
	}
}
