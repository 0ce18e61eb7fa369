package scanner

import (
	"path"
	"strings"
)

// IgnorePattern is one gitignore-style line of an .absintignore file.
type IgnorePattern struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool
	segments []string
}

// ParseIgnorePattern parses a gitignore-style pattern. A leading "!" negates, a trailing
// "/" restricts it to directories and a leading "/" anchors it at the scan root.
func ParseIgnorePattern(pattern string) IgnorePattern {
	p := IgnorePattern{pattern: pattern}
	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		p.anchored = true
		pattern = pattern[1:]
	}
	p.segments = strings.Split(pattern, "/")
	return p
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool { return p.negation }

// Match reports whether the slash-separated relative file path rel matches the pattern.
// Directory patterns match every file below a matching directory.
func (p IgnorePattern) Match(rel string) bool {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	if p.dirOnly {
		// Only directory components may match; the last part is the file itself.
		parts = parts[:len(parts)-1]
		for start := 0; start < len(parts); start++ {
			if p.anchored && start > 0 {
				break
			}
			if matchPrefix(p.segments, parts[start:]) {
				return true
			}
		}
		return false
	}
	for start := 0; start < len(parts); start++ {
		if p.anchored && start > 0 {
			break
		}
		if matchSegments(p.segments, parts[start:]) {
			return true
		}
	}
	return false
}

// matchSegments matches pattern segments against all of parts. "**" spans any number of
// segments.
func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		if len(pattern) == 1 {
			return true
		}
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 || !matchSegment(pattern[0], parts[0]) {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

// matchPrefix matches pattern segments against a leading run of parts.
func matchPrefix(pattern, parts []string) bool {
	for n := len(parts); n >= 1; n-- {
		if matchSegments(pattern, parts[:n]) {
			return true
		}
	}
	return false
}

func matchSegment(pattern, part string) bool {
	ok, err := path.Match(pattern, part)
	return err == nil && ok
}
