// Package taxonomy parses hierarchical research-area paths such as
// "Computer Science > Quantum Computing" into normalized segments.
//
// Segments are compared case-insensitively after trimming. None of the
// functions in this package fail: malformed input yields an empty result.
package taxonomy

import (
	"strings"
)

// Delimiter separates the segments of a research-area path, root first.
const Delimiter = ">"

// Normalize splits path on the delimiter, trims and lowercases every part,
// and drops empty parts. The root-to-leaf order is preserved.
func Normalize(path string) []string {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	parts := strings.Split(path, Delimiter)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if seg := NormalizeField(p); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Leaf returns the most specific segment of path.
func Leaf(path string) (string, bool) {
	segments := Normalize(path)
	if len(segments) == 0 {
		return "", false
	}
	return segments[len(segments)-1], true
}

// NormalizeField trims and lowercases a user supplied field name so it can be
// compared with the segments returned by Normalize.
func NormalizeField(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}

// PushDownPattern returns the substring used to pre-filter paths in the
// store. It over-matches ("ai" matches "retail"), so callers must verify
// candidates with Contains. ok is false for an empty field.
func PushDownPattern(field string) (pattern string, ok bool) {
	pattern = NormalizeField(field)
	return pattern, pattern != ""
}

// Contains reports whether field is one of the segments of path. The field is
// normalized before comparison; an empty field never matches.
func Contains(path, field string) bool {
	field = NormalizeField(field)
	if field == "" {
		return false
	}
	for _, seg := range Normalize(path) {
		if seg == field {
			return true
		}
	}
	return false
}

// Distinct returns the set of segments found in the given paths.
func Distinct(paths []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range paths {
		for _, seg := range Normalize(p) {
			set[seg] = struct{}{}
		}
	}
	return set
}
