// Package identity maps "something that identifies a user" — a structured
// document id, a numeric-looking string, a phone number or an email — onto
// one normalized key. Both the user-context and memory stores address their
// documents through this package so the same logical user always resolves to
// the same key.
package identity

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NormalizeKey returns the canonical key for a candidate identifier.
// ObjectID-shaped values collapse to their canonical hex form, any other
// non-blank string is used trimmed, and the fallback covers legacy callers
// that only carry a secondary identifier. An empty result means the key is
// unresolvable and the caller should treat the operation as a no-op.
func NormalizeKey(candidate, fallback string) string {
	if id, ok := ToObjectID(candidate); ok {
		return id.Hex()
	}
	if trimmed := strings.TrimSpace(candidate); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(fallback)
}

// ToObjectID parses a hex ObjectID, reporting whether the value was one.
func ToObjectID(value string) (primitive.ObjectID, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(trimmed)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// LookupQueries builds the ordered list of query shapes for resolving a user
// document from an arbitrary identifier plus an optional secondary farmer
// identifier (typically a phone). Earlier entries are more specific; the
// caller tries them in sequence until one matches. The list is deduplicated
// and contains no storage-client state, so it can be tested on its own.
func LookupQueries(identifier, farmerID string) []bson.M {
	var queries []bson.M
	seen := make(map[string]bool)

	add := func(field string, value interface{}) {
		key := field + "\x00"
		switch v := value.(type) {
		case string:
			key += v
		case primitive.ObjectID:
			key += v.Hex()
		}
		if seen[key] {
			return
		}
		seen[key] = true
		queries = append(queries, bson.M{field: value})
	}

	addPhoneForms := func(value string) {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return
		}
		add("phone", trimmed)
		if digits := digitsOnly(trimmed); digits != "" && digits != trimmed {
			add("phone", digits)
		}
	}

	if id, ok := ToObjectID(identifier); ok {
		add("_id", id)
	}

	if trimmed := strings.TrimSpace(identifier); trimmed != "" {
		if strings.Contains(trimmed, "@") {
			add("email", strings.ToLower(trimmed))
		}
		addPhoneForms(trimmed)
	}

	addPhoneForms(farmerID)

	return queries
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
