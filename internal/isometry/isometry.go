// Package isometry scores how well one set of tags continues another.
//
// MemeIsometry compares mood tags between segments and candidate content,
// NameIsometry compares audio/event names by their phonetic skeleton.
package isometry

import (
	"cmp"
	"slices"
	"strings"
)

// Negation prefixes a meme that repels its bare counterpart.
const Negation = "!"

// Isometry holds a normalized, ordered set of source tags.
type Isometry struct {
	sources []string
}

// New builds an Isometry from the given tags. Blank tags are dropped and
// duplicates (case-insensitive) keep their first spelling.
func New(tags []string) Isometry {
	var iso Isometry
	iso.Add(tags...)
	return iso
}

// Add appends tags to the source set.
func (iso *Isometry) Add(tags ...string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || iso.Has(tag) {
			continue
		}
		iso.sources = append(iso.sources, tag)
	}
}

// Has reports whether the tag is in the source set.
func (iso Isometry) Has(tag string) bool {
	for _, s := range iso.sources {
		if strings.EqualFold(s, tag) {
			return true
		}
	}
	return false
}

// Sources returns a copy of the source tags in insertion order.
func (iso Isometry) Sources() []string {
	out := make([]string, len(iso.sources))
	copy(out, iso.sources)
	return out
}

// Constellation is an alphabetically sorted, underscore-joined signature of
// the sources. Negated tags sort ahead of plain ones; case is ignored.
func (iso Isometry) Constellation() string {
	sorted := iso.Sources()
	slices.SortFunc(sorted, func(a, b string) int {
		na, nb := strings.HasPrefix(a, Negation), strings.HasPrefix(b, Negation)
		if na != nb {
			if na {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return strings.Join(sorted, "_")
}
