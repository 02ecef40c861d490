package feedback

import "strings"

// Relationship is the reviewer's organizational relationship to the reviewed person.
type Relationship string

const (
	RelationshipSenior Relationship = "senior"
	RelationshipPeer   Relationship = "peer"
	RelationshipJunior Relationship = "junior"
)

// colleagueSuffix is carried by raw upstream values such as "senior_colleague".
const colleagueSuffix = "_colleague"

// AllRelationships returns the known relationships in canonical order.
func AllRelationships() []Relationship {
	return []Relationship{RelationshipSenior, RelationshipPeer, RelationshipJunior}
}

// Valid reports whether r is one of the known relationship buckets.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipSenior, RelationshipPeer, RelationshipJunior:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (r Relationship) String() string {
	return string(r)
}

// NormalizeRelationship maps a raw upstream relationship string onto a
// Relationship. It lowercases, strips a "_colleague" suffix and maps "equal"
// to peer. Unknown values pass through in their cleaned form; callers check
// Valid before counting them.
func NormalizeRelationship(raw string) Relationship {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, colleagueSuffix)
	if s == "equal" {
		return RelationshipPeer
	}
	return Relationship(s)
}

// ParseRelationships normalizes a list of raw relationship values for use as a
// filter. Duplicates are collapsed and unrecognized values dropped. The result
// keeps canonical order.
func ParseRelationships(raw []string) []Relationship {
	seen := make(map[Relationship]bool, len(raw))
	for _, v := range raw {
		r := NormalizeRelationship(v)
		if r.Valid() {
			seen[r] = true
		}
	}
	var out []Relationship
	for _, r := range AllRelationships() {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}
