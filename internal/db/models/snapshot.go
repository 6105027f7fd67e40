// snapshot.go holds the helpers entity models use to build their audit
// snapshots. Values are rendered to display text here, once, so the diff
// engine only ever compares strings and never needs reflection.
package models

import (
	"strconv"
	"time"
)

// TimeFormat is the canonical rendering for timestamps inside audit
// snapshots. RFC 3339 in UTC sorts lexicographically, which the diff engine
// relies on when deciding whether a login timestamp actually moved forward.
const TimeFormat = time.RFC3339

func fieldString(name, v string) FieldValue {
	return FieldValue{Name: name, Value: &v}
}

func fieldStringPtr(name string, v *string) FieldValue {
	if v == nil {
		return FieldValue{Name: name}
	}
	s := *v
	return FieldValue{Name: name, Value: &s}
}

func fieldTime(name string, t time.Time) FieldValue {
	return fieldString(name, t.UTC().Format(TimeFormat))
}

func fieldTimePtr(name string, t *time.Time) FieldValue {
	if t == nil {
		return FieldValue{Name: name}
	}
	return fieldTime(name, *t)
}

func fieldInt(name string, v int64) FieldValue {
	return fieldString(name, strconv.FormatInt(v, 10))
}

func fieldIntPtr(name string, v *int64) FieldValue {
	if v == nil {
		return FieldValue{Name: name}
	}
	return fieldInt(name, *v)
}
