// Package patch defines the rule model for anchored line edits and
// applies rules to line buffers.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Anchor modes.
const (
	ModeExact    = "exact"
	ModeContains = "contains"
	ModeRegexp   = "regexp"
)

// Anchor locates the line a rule operates on. Match is compared against
// each line in order and the first accepted line becomes the rule's
// target. An empty Mode means ModeExact.
type Anchor struct {
	Match       string `yaml:"match"`
	Mode        string `yaml:"mode,omitempty"`
	IgnoreSpace bool   `yaml:"ignore_space,omitempty"`
}

// Rule is one anchored edit: lines spliced in before and after the
// anchored line, plus an optional replacement or deletion of the line
// itself. A rule lands at most once per run, at the first match.
type Rule struct {
	Name         string   `yaml:"name,omitempty"`
	Anchor       Anchor   `yaml:"anchor"`
	InsertBefore []string `yaml:"insert_before,omitempty"`
	InsertAfter  []string `yaml:"insert_after,omitempty"`
	ReplaceWith  *string  `yaml:"replace_with,omitempty"`
	Delete       bool     `yaml:"delete,omitempty"`
}

// Target groups the rules for one file.
type Target struct {
	Path  string `yaml:"path"`
	Rules []Rule `yaml:"rules"`
}

// Set is a parsed patch set.
type Set struct {
	Targets []Target `yaml:"targets"`
}

// Parse decodes a YAML patch set. Unknown fields are rejected so typos
// in rule files fail loudly instead of silently dropping an edit.
func Parse(data []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Set
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("parse patch set: %w", err)
	}
	return &s, nil
}

// LoadFile reads and parses a YAML patch set from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch set: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Validate checks the whole set before any file is touched.
func (s *Set) Validate() error {
	if len(s.Targets) == 0 {
		return errors.New("patch set has no targets")
	}
	for i := range s.Targets {
		if err := s.Targets[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the target and each of its rules.
func (t *Target) Validate() error {
	if t.Path == "" {
		return errors.New("target path is required")
	}
	if len(t.Rules) == 0 {
		return fmt.Errorf("target %s has no rules", t.Path)
	}
	for i := range t.Rules {
		if err := t.Rules[i].Validate(); err != nil {
			return fmt.Errorf("target %s, %s: %w", t.Path, t.Rules[i].label(i), err)
		}
	}
	return nil
}

// Validate checks a single rule.
func (r *Rule) Validate() error {
	if r.Anchor.Match == "" {
		return errors.New("anchor match is required")
	}
	switch r.Anchor.Mode {
	case "", ModeExact, ModeContains:
	case ModeRegexp:
		if r.Anchor.IgnoreSpace {
			return errors.New("ignore_space does not apply to regexp anchors")
		}
		if _, err := regexp.Compile(r.Anchor.Match); err != nil {
			return fmt.Errorf("invalid anchor pattern: %w", err)
		}
	default:
		return fmt.Errorf("unknown anchor mode %q", r.Anchor.Mode)
	}

	if r.Delete && r.ReplaceWith != nil {
		return errors.New("replace_with and delete are mutually exclusive")
	}
	if len(r.InsertBefore) == 0 && len(r.InsertAfter) == 0 && r.ReplaceWith == nil && !r.Delete {
		return errors.New("rule has no edits")
	}

	for _, l := range r.InsertBefore {
		if strings.ContainsAny(l, "\r\n") {
			return errors.New("insert_before lines must not contain newlines")
		}
	}
	for _, l := range r.InsertAfter {
		if strings.ContainsAny(l, "\r\n") {
			return errors.New("insert_after lines must not contain newlines")
		}
	}
	if r.ReplaceWith != nil && strings.ContainsAny(*r.ReplaceWith, "\r\n") {
		return errors.New("replace_with must not contain newlines")
	}
	return nil
}

func (r *Rule) label(i int) string {
	if r.Name != "" {
		return fmt.Sprintf("rule %d (%s)", i+1, r.Name)
	}
	return fmt.Sprintf("rule %d", i+1)
}
