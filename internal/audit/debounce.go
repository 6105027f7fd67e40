// debounce.go implements the display debouncer: a pure read-side pass over an
// already-persisted, time-ordered audit stream. It relabels login events for
// human consumption and collapses rapid repeat logins per actor so the
// timeline reads cleanly. Storage is never touched.
package audit

import (
	"time"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// Display action labels produced by the debouncer. Entries that are not
// login-related keep their raw action as the display action.
const (
	DisplayLoggedIn       = "Logged in"
	DisplayProfileUpdated = "Profile Updated"
)

// DebounceWindow is the interval within which repeated login-only events for
// the same actor are merged for display. Merging affects presentation only;
// every raw entry stays in storage.
const DebounceWindow = 2 * time.Minute

// DisplayEntry is one timeline row: the raw entry plus its user-facing label.
type DisplayEntry struct {
	models.AuditLog
	DisplayAction     string `json:"display_action"`
	ShowLoggedInBadge bool   `json:"show_logged_in_badge"`
}

// Debounce maps a slice of audit entries, ordered by ascending timestamp, to
// display entries. It has no shared state and is safe to run concurrently
// over independent slices (e.g. per page of results).
//
// Rules:
//   - A Modified entry on a member account whose only change is the login
//     timestamp is displayed as "Logged in".
//   - When other fields changed in the same save, the entry is displayed as
//     "Profile Updated" with ShowLoggedInBadge set instead of relabeling.
//   - Consecutive "Logged in" entries for the same actor within
//     DebounceWindow collapse into the earliest one. Only login-only entries
//     collapse; a login is never merged with an unrelated event.
//   - Everything else passes through with DisplayAction = Action.
func Debounce(entries []models.AuditLog) []DisplayEntry {
	out := make([]DisplayEntry, 0, len(entries))
	lastLoginAt := make(map[string]time.Time)

	for _, e := range entries {
		d := DisplayEntry{AuditLog: e, DisplayAction: string(e.Action)}

		if !loginQualified(&e) {
			out = append(out, d)
			continue
		}

		if len(e.Changes) > 1 {
			// A real profile edit that happened to carry a login
			// timestamp; the changes must stay visible.
			d.DisplayAction = DisplayProfileUpdated
			d.ShowLoggedInBadge = true
			out = append(out, d)
			continue
		}

		actor := actorKey(&e)
		if prev, ok := lastLoginAt[actor]; ok && e.CreatedAt.Sub(prev) <= DebounceWindow {
			// Repeat login inside the window: slide the window forward
			// but keep only the earliest entry visible.
			lastLoginAt[actor] = e.CreatedAt
			continue
		}
		lastLoginAt[actor] = e.CreatedAt
		d.DisplayAction = DisplayLoggedIn
		out = append(out, d)
	}
	return out
}

// loginQualified reports whether an entry records a meaningful login: a
// member-account modification whose changes include the login timestamp. The
// diff engine already suppressed non-increasing rewrites, so presence of the
// field is the whole test here.
func loginQualified(e *models.AuditLog) bool {
	return e.EntityType == models.EntityUser &&
		e.Action == models.ActionModified &&
		e.HasField(models.FieldLastLoginDate)
}

func actorKey(e *models.AuditLog) string {
	if e.ActorID != nil {
		return *e.ActorID
	}
	if e.ActorName != nil {
		return *e.ActorName
	}
	return ""
}
