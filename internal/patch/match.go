package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is a compiled anchor.
type Matcher struct {
	anchor Anchor
	re     *regexp.Regexp
	want   string
}

// NewMatcher compiles an anchor into a matcher.
func NewMatcher(a Anchor) (*Matcher, error) {
	m := &Matcher{anchor: a}
	switch a.Mode {
	case "", ModeExact, ModeContains:
		m.want = a.Match
		if a.IgnoreSpace {
			m.want = normalizeSpace(a.Match)
		}
	case ModeRegexp:
		re, err := regexp.Compile(a.Match)
		if err != nil {
			return nil, fmt.Errorf("compile anchor pattern: %w", err)
		}
		m.re = re
	default:
		return nil, fmt.Errorf("unknown anchor mode %q", a.Mode)
	}
	return m, nil
}

// Match reports whether the anchor accepts the given line.
func (m *Matcher) Match(line string) bool {
	if m.re != nil {
		return m.re.MatchString(line)
	}
	if m.anchor.IgnoreSpace {
		line = normalizeSpace(line)
	}
	if m.anchor.Mode == ModeContains {
		return strings.Contains(line, m.want)
	}
	return line == m.want
}

// FindMatch returns the index of the first line the matcher accepts,
// or -1 when no line does.
func FindMatch(lines []string, m *Matcher) int {
	for i, line := range lines {
		if m.Match(line) {
			return i
		}
	}
	return -1
}

// normalizeSpace collapses each whitespace run to a single space and
// trims the ends, so indentation and alignment drift cannot break a
// match that targets the same logical line.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
