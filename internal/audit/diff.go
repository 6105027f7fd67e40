// diff.go implements the change diff engine: given an entity's original and
// current snapshots it produces the list of meaningfully changed fields and
// derives whether the change is security-critical. Semantic equality rules
// keep representational noise (null vs "" vs "[]") out of the trail.
package audit

import (
	"time"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// diffResult is a computed change set before serialization: the visible field
// changes plus the derived criticality flag. The two are independent — an
// excluded field can flip critical without contributing a visible change.
type diffResult struct {
	changes  []models.FieldChange
	critical bool
}

// diffSnapshots walks the current snapshot in order, compares each field
// against the original, and classifies what survives semantic equality.
func diffSnapshots(registry *Registry, entityType string, original, current []models.FieldValue) diffResult {
	old := make(map[string]*string, len(original))
	for _, f := range original {
		old[f.Name] = f.Value
	}

	var res diffResult
	for _, f := range current {
		before, tracked := old[f.Name]
		if !tracked {
			// Field absent from the original snapshot; nothing to
			// compare against, so nothing to report.
			continue
		}
		if semanticallyEqual(before, f.Value) {
			continue
		}
		switch registry.Classify(entityType, f.Name) {
		case Excluded:
			res.critical = true
		case Critical:
			res.critical = true
			res.changes = append(res.changes, models.FieldChange{Field: f.Name, Old: before, New: f.Value})
		default:
			res.changes = append(res.changes, models.FieldChange{Field: f.Name, Old: before, New: f.Value})
		}
	}
	return res
}

// semanticallyEqual reports whether two rendered values mean the same thing.
// Exact equality aside, every encoding of "no items" for a JSON list field
// (null, "", "[]") is one empty state, so null → "[]" is not a change.
func semanticallyEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil && *a == *b {
		return true
	}
	return emptyListValue(a) && emptyListValue(b)
}

func emptyListValue(v *string) bool {
	return v == nil || *v == "" || *v == "[]"
}

// stripStaleLoginRewrites removes LastLoginDate changes that do not move the
// login timestamp forward. Such rewrites are clock skew or no-op re-saves, not
// login signals: alone they would fabricate a trail entry, and riding along in
// a larger save they would make the display debouncer mistake a profile edit
// for a login. Stripping only the stale change keeps everything else in the
// set, so a save that also touched a critical or excluded field still records.
// The genuine case — old null and new set, or new strictly after old — stays:
// relabeling it "Logged in" is the display debouncer's job, not the diff
// engine's.
func stripStaleLoginRewrites(entityType string, changes []models.FieldChange) []models.FieldChange {
	if entityType != models.EntityUser {
		return changes
	}
	kept := changes[:0]
	for _, c := range changes {
		if c.Field == models.FieldLastLoginDate && staleLoginChange(c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func staleLoginChange(c models.FieldChange) bool {
	if c.New == nil {
		// A login timestamp being cleared is not a login.
		return true
	}
	if c.Old == nil {
		return false
	}
	oldT, errOld := time.Parse(models.TimeFormat, *c.Old)
	newT, errNew := time.Parse(models.TimeFormat, *c.New)
	if errOld != nil || errNew != nil {
		// Unparsable timestamps still count as a change; better a noisy
		// entry than a silent gap.
		return false
	}
	return !newT.After(oldT)
}
