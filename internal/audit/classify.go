// classify.go implements the field classification registry: a compile-time map
// from (entity type, field name) to how the audit trail treats a change to
// that field. There is no reflection here; entity types register explicit
// field lists.
package audit

import "github.com/chorusdesk/chorusdesk/internal/db/models"

// Classification describes how a changed field affects an audit entry.
type Classification int

const (
	// Normal fields are recorded in the Changes payload with no effect on
	// the entry's criticality.
	Normal Classification = iota
	// Critical fields are recorded in the Changes payload and flip the
	// entry to security-critical.
	Critical
	// Excluded fields flip the entry to security-critical but their name
	// and values never appear in the Changes payload. Exclusion and
	// criticality are independent axes: a hidden value can still be the
	// reason an entry is flagged.
	Excluded
)

func (c Classification) String() string {
	switch c {
	case Critical:
		return "critical"
	case Excluded:
		return "excluded"
	default:
		return "normal"
	}
}

// Registry answers Classify lookups. Entity types with no registered rules
// default every field to Normal; deletion criticality is a structural rule in
// the record builder and is not governed by this registry at all.
type Registry struct {
	rules map[string]map[string]Classification
}

// NewRegistry returns a registry pre-loaded with the rules for member
// accounts: identity attributes are critical, secret columns are excluded,
// and plain profile attributes are normal by omission.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]map[string]Classification)}
	r.Rule(models.EntityUser, Critical,
		models.FieldEmail,
		models.FieldUserName,
		models.FieldPhoneNumber,
	)
	r.Rule(models.EntityUser, Excluded,
		models.FieldPasswordHash,
		models.FieldSecurityStamp,
	)
	return r
}

// Rule registers a classification for the given fields of an entity type.
// Registering Normal removes any previous rule for those fields.
func (r *Registry) Rule(entityType string, class Classification, fields ...string) {
	byField := r.rules[entityType]
	if byField == nil {
		byField = make(map[string]Classification)
		r.rules[entityType] = byField
	}
	for _, f := range fields {
		if class == Normal {
			delete(byField, f)
			continue
		}
		byField[f] = class
	}
}

// Classify returns the classification for one field of one entity type.
func (r *Registry) Classify(entityType, field string) Classification {
	if byField, ok := r.rules[entityType]; ok {
		if class, ok := byField[field]; ok {
			return class
		}
	}
	return Normal
}
