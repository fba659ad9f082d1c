// Package version implements the NatNet protocol version tuple: an ordered,
// zero-padded sequence of up to four unsigned integer components used both
// to describe the wire version a server advertises and to gate which fields
// a decoder is allowed to read.
package version

import (
	"fmt"
	"strconv"
	"strings"

	hashiversion "github.com/hashicorp/go-version"
)

// MaxComponents is the longest a Version may be: major.minor.revision.build.
const MaxComponents = 4

// Version is an immutable, zero-padded major.minor.revision.build tuple.
// A Version built from fewer than four components reads its missing
// components as zero; it is never mutated after construction.
type Version struct {
	components [MaxComponents]uint8
	length     int
}

// New builds a Version from 0-4 components, in major, minor, revision, build
// order. Extra components beyond MaxComponents are an error.
func New(components ...uint8) (Version, error) {
	if len(components) > MaxComponents {
		return Version{}, fmt.Errorf("version accepts at most %d components, got %d", MaxComponents, len(components))
	}
	var v Version
	copy(v.components[:], components)
	v.length = len(components)
	return v, nil
}

// Must panics if New returns an error. Intended for package-level literals,
// e.g. version.Must(version.New(2, 6)).
func Must(v Version, err error) Version {
	if err != nil {
		panic(err)
	}
	return v
}

// FromString parses a dotted version string such as "2.6" or "3.0.0.0".
// Parsing is delegated to go-version for the messy edge cases (surrounding
// whitespace, a bare "v" prefix) before the result is repacked into a
// fixed-width Version; go-version's own richer semantics (pre-release tags,
// metadata) are not used here, NatNet versions are plain integer tuples.
func FromString(s string) (Version, error) {
	parsed, err := hashiversion.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("parsing natnet version %q: %w", s, err)
	}
	segments := parsed.Segments()
	if len(segments) > MaxComponents {
		segments = segments[:MaxComponents]
	}
	components := make([]uint8, len(segments))
	for i, seg := range segments {
		if seg < 0 || seg > 0xff {
			return Version{}, fmt.Errorf("version component %d out of range in %q", seg, s)
		}
		components[i] = uint8(seg)
	}
	return New(components...)
}

// Major returns the first component, or 0 if the Version is shorter.
func (v Version) Major() uint8 { return v.at(0) }

// Minor returns the second component, or 0 if the Version is shorter.
func (v Version) Minor() uint8 { return v.at(1) }

// Revision returns the third component, or 0 if the Version is shorter.
func (v Version) Revision() uint8 { return v.at(2) }

// Build returns the fourth component, or 0 if the Version is shorter.
func (v Version) Build() uint8 { return v.at(3) }

func (v Version) at(i int) uint8 {
	if i >= v.length {
		return 0
	}
	return v.components[i]
}

// Len reports how many components this Version was constructed with. Two
// Versions of different Len can still compare equal once zero-padded.
func (v Version) Len() int { return v.length }

// Truncate returns a Version keeping only the first k components (k clamped
// to [0, Len()]).
func (v Version) Truncate(k int) Version {
	if k < 0 {
		k = 0
	}
	if k > v.length {
		k = v.length
	}
	var out Version
	copy(out.components[:], v.components[:k])
	out.length = k
	return out
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, comparing component-wise after zero-padding the shorter side.
func (v Version) Compare(other Version) int {
	for i := 0; i < MaxComponents; i++ {
		a, b := v.at(i), other.at(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Less reports whether v < other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// LessOrEqual reports whether v <= other.
func (v Version) LessOrEqual(other Version) bool { return v.Compare(other) <= 0 }

// Greater reports whether v > other.
func (v Version) Greater(other Version) bool { return v.Compare(other) > 0 }

// GreaterOrEqual reports whether v >= other.
func (v Version) GreaterOrEqual(other Version) bool { return v.Compare(other) >= 0 }

// Equal reports whether v == other.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// String renders the Version as a dotted string of its actual components,
// e.g. Version{2,6} -> "2.6". A zero-length Version renders as "0".
func (v Version) String() string {
	if v.length == 0 {
		return "0"
	}
	parts := make([]string, v.length)
	for i := 0; i < v.length; i++ {
		parts[i] = strconv.Itoa(int(v.components[i]))
	}
	return strings.Join(parts, ".")
}
