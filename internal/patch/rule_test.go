package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestParsePatchSet(t *testing.T) {
	data := []byte(`targets:
  - path: app/config.ini
    rules:
      - name: bump-retries
        anchor:
          match: "retries = 3"
        replace_with: "retries = 5"
      - anchor:
          match: "timeout"
          mode: contains
          ignore_space: true
        insert_before:
          - "# raised for slow mirrors"
`)
	set, err := Parse(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(set.Targets) != 1 {
		t.Fatalf("expected 1 target got %d", len(set.Targets))
	}
	tgt := set.Targets[0]
	if tgt.Path != "app/config.ini" || len(tgt.Rules) != 2 {
		t.Fatalf("unexpected target: %+v", tgt)
	}
	r0 := tgt.Rules[0]
	if r0.Name != "bump-retries" || r0.Anchor.Match != "retries = 3" {
		t.Fatalf("unexpected rule 0: %+v", r0)
	}
	if r0.ReplaceWith == nil || *r0.ReplaceWith != "retries = 5" {
		t.Fatalf("unexpected replace_with: %+v", r0.ReplaceWith)
	}
	r1 := tgt.Rules[1]
	if r1.Anchor.Mode != ModeContains || !r1.Anchor.IgnoreSpace {
		t.Fatalf("unexpected anchor: %+v", r1.Anchor)
	}
	if len(r1.InsertBefore) != 1 || r1.InsertBefore[0] != "# raised for slow mirrors" {
		t.Fatalf("unexpected insert_before: %+v", r1.InsertBefore)
	}
	if err := set.Validate(); err != nil {
		t.Fatalf("validate error: %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	data := []byte(`targets:
  - path: a.txt
    rule:
      - anchor:
          match: x
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseEmptyInput(t *testing.T) {
	set, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := set.Validate(); err == nil {
		t.Fatal("expected validate error for empty set")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.yaml")
	content := "targets:\n  - path: a.txt\n    rules:\n      - anchor:\n          match: old\n        delete: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	set, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(set.Targets) != 1 || !set.Targets[0].Rules[0].Delete {
		t.Fatalf("unexpected set: %+v", set)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRuleValidate(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		want string
	}{
		{
			name: "missing match",
			rule: Rule{Delete: true},
			want: "anchor match is required",
		},
		{
			name: "no edits",
			rule: Rule{Anchor: Anchor{Match: "x"}},
			want: "rule has no edits",
		},
		{
			name: "replace and delete",
			rule: Rule{Anchor: Anchor{Match: "x"}, ReplaceWith: strPtr("y"), Delete: true},
			want: "mutually exclusive",
		},
		{
			name: "bad mode",
			rule: Rule{Anchor: Anchor{Match: "x", Mode: "fuzzy"}, Delete: true},
			want: "unknown anchor mode",
		},
		{
			name: "bad pattern",
			rule: Rule{Anchor: Anchor{Match: "[", Mode: ModeRegexp}, Delete: true},
			want: "invalid anchor pattern",
		},
		{
			name: "ignore space with regexp",
			rule: Rule{Anchor: Anchor{Match: "x", Mode: ModeRegexp, IgnoreSpace: true}, Delete: true},
			want: "does not apply",
		},
		{
			name: "newline in insert",
			rule: Rule{Anchor: Anchor{Match: "x"}, InsertBefore: []string{"a\nb"}},
			want: "must not contain newlines",
		},
		{
			name: "newline in replacement",
			rule: Rule{Anchor: Anchor{Match: "x"}, ReplaceWith: strPtr("a\nb")},
			want: "must not contain newlines",
		},
	}
	for _, tc := range cases {
		err := tc.rule.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected %q in error, got %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestRuleValidateAccepts(t *testing.T) {
	rules := []Rule{
		{Anchor: Anchor{Match: "x"}, Delete: true},
		{Anchor: Anchor{Match: "x", Mode: ModeExact}, ReplaceWith: strPtr("")},
		{Anchor: Anchor{Match: "x", Mode: ModeContains, IgnoreSpace: true}, InsertAfter: []string{"y"}},
		{Anchor: Anchor{Match: `^\s*end$`, Mode: ModeRegexp}, InsertBefore: []string{"y"}, Delete: true},
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			t.Errorf("rule %d: unexpected error: %v", i, err)
		}
	}
}

func TestTargetValidate(t *testing.T) {
	tgt := Target{}
	if err := tgt.Validate(); err == nil {
		t.Fatal("expected error for empty path")
	}
	tgt = Target{Path: "a.txt"}
	if err := tgt.Validate(); err == nil {
		t.Fatal("expected error for no rules")
	}
	tgt = Target{Path: "a.txt", Rules: []Rule{{Name: "broken"}}}
	err := tgt.Validate()
	if err == nil {
		t.Fatal("expected error for invalid rule")
	}
	if !strings.Contains(err.Error(), "rule 1 (broken)") {
		t.Fatalf("expected rule label in error, got %q", err.Error())
	}
}
