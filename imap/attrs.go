package imap

import (
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// AttrSet is a set of IMAP mailbox attributes or message flags.
// Members compare case-insensitively; the spelling first added is the one kept.
type AttrSet map[string]string

// NewAttrSet creates a set containing the given attributes.
func NewAttrSet(attrs ...string) AttrSet {
	set := make(AttrSet, len(attrs))

	set.merge(attrs...)

	return set
}

// Len returns the number of attributes in the set.
func (set AttrSet) Len() int {
	return len(set)
}

// ToSlice returns the attributes as a sorted slice. The slice is a copy.
func (set AttrSet) ToSlice() []string {
	attrs := maps.Values(set)

	slices.Sort(attrs)

	return attrs
}

// Contains returns true if and only if the attribute is in the set.
func (set AttrSet) Contains(attr string) bool {
	_, ok := set[strings.ToLower(attr)]
	return ok
}

// ContainsAny returns true if and only if any of the attributes are in the set.
func (set AttrSet) ContainsAny(attrs ...string) bool {
	return xslices.IndexFunc(attrs, func(attr string) bool {
		return set.Contains(attr)
	}) >= 0
}

// Equals returns true if and only if both sets hold the same attributes.
func (set AttrSet) Equals(other AttrSet) bool {
	if set.Len() != other.Len() {
		return false
	}

	for key := range set {
		if _, ok := other[key]; !ok {
			return false
		}
	}

	return true
}

// Merge adds the attributes to the set in place. Adding an existing attribute is a no-op.
func (set AttrSet) Merge(attrs ...string) {
	set.merge(attrs...)
}

// Clone returns a hard copy of the set.
func (set AttrSet) Clone() AttrSet {
	return maps.Clone(set)
}

func (set AttrSet) merge(attrs ...string) {
	for _, attr := range attrs {
		key := strings.ToLower(attr)

		if _, ok := set[key]; ok {
			continue
		}

		set[key] = attr
	}
}
