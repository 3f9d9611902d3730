package version

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ordering is the result of comparing two versions.
type Ordering int

const (
	// Less means the left version is older than the right one.
	Less Ordering = -1
	// Equal means both versions identify the same release.
	Equal Ordering = 0
	// Greater means the left version is newer than the right one.
	Greater Ordering = 1
)

// String returns a human-readable name for the ordering.
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// Version is an immutable dotted numeric version.
// The zero value is the empty version, which compares equal to "0".
type Version struct {
	segments []uint64
	raw      string
}

// ParseError reports a version string that cannot be decomposed into
// numeric segments.
type ParseError struct {
	// Input is the text that failed to parse.
	Input string

	// Segment is the offending segment, empty if the input itself was empty.
	Segment string

	// Reason describes what was wrong with the segment.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid version %q: segment %q %s", e.Input, e.Segment, e.Reason)
}

// Parse converts dotted version text into a Version.
// Surrounding whitespace is ignored. Every segment must be a base-10
// non-negative integer.
func Parse(s string) (Version, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Version{}, &ParseError{Input: s, Reason: "is empty"}
	}

	parts := strings.Split(text, ".")
	segments := make([]uint64, len(parts))
	for i, part := range parts {
		if part == "" {
			return Version{}, &ParseError{Input: s, Segment: part, Reason: "is empty"}
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return Version{}, &ParseError{Input: s, Segment: part, Reason: "is not a non-negative integer"}
			}
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: s, Segment: part, Reason: "is out of range"}
		}
		segments[i] = n
	}

	return Version{segments: segments, raw: text}, nil
}

// MustParse is like Parse but panics on invalid input.
// It is intended for tests and constant tables.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParsePin parses an environment constraint that pins an exact version.
// A leading equality operator ("=" or "= ") is stripped; any other
// operator ("~>", ">=", "<", ...) is rejected with a ParseError.
func ParsePin(constraint string) (Version, error) {
	text := strings.TrimSpace(constraint)
	if strings.HasPrefix(text, "=") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "="))
	} else if strings.ContainsAny(text[:min(len(text), 2)], "~<>!") {
		return Version{}, &ParseError{Input: constraint, Reason: "is not an exact pin"}
	}
	v, err := Parse(text)
	if err != nil {
		// Report against the original constraint text.
		if perr, ok := err.(*ParseError); ok {
			perr.Input = constraint
		}
		return Version{}, err
	}
	return v, nil
}

// Segments returns a copy of the numeric segments.
func (v Version) Segments() []uint64 {
	out := make([]uint64, len(v.segments))
	copy(out, v.segments)
	return out
}

// String returns the version text as it was parsed.
// Versions built without Parse render their segments joined by dots.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	if len(v.segments) == 0 {
		return "0"
	}
	parts := make([]string, len(v.segments))
	for i, s := range v.segments {
		parts[i] = strconv.FormatUint(s, 10)
	}
	return strings.Join(parts, ".")
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare orders a against b.
func Compare(a, b Version) Ordering {
	n := max(len(a.segments), len(b.segments))
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(a.segments) {
			x = a.segments[i]
		}
		if i < len(b.segments) {
			y = b.segments[i]
		}
		switch {
		case x < y:
			return Less
		case x > y:
			return Greater
		}
	}
	return Equal
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) == Less
}

// Equal reports whether v and other identify the same release.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == Equal
}

// SortDescending sorts versions newest first in place.
// Equal versions keep their relative input order.
func SortDescending(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) == Greater
	})
}

// ParseAll parses every string in raw. It stops at the first invalid
// entry and returns its ParseError.
func ParseAll(raw []string) ([]Version, error) {
	out := make([]Version, 0, len(raw))
	for _, s := range raw {
		v, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Strings renders versions as text, preserving order.
func Strings(versions []Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}
