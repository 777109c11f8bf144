package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linepatch/internal/patch"
)

func TestInlineSetFromFlags(t *testing.T) {
	cmd := applyCmd()
	for _, kv := range [][2]string{
		{"target", "a.txt"},
		{"match", "anchor line"},
		{"insert-before", "first"},
		{"insert-before", "second"},
		{"replace", "replacement"},
	} {
		if err := cmd.Flags().Set(kv[0], kv[1]); err != nil {
			t.Fatalf("set %s: %v", kv[0], err)
		}
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		t.Fatalf("loadPatchSet failed: %v", err)
	}
	if err := set.Validate(); err != nil {
		t.Fatalf("inline set must validate: %v", err)
	}
	if len(set.Targets) != 1 || set.Targets[0].Path != "a.txt" {
		t.Fatalf("unexpected targets: %+v", set.Targets)
	}

	rule := set.Targets[0].Rules[0]
	if rule.Anchor.Match != "anchor line" {
		t.Errorf("expected anchor 'anchor line', got %q", rule.Anchor.Match)
	}
	if rule.Anchor.Mode != patch.ModeExact {
		t.Errorf("expected default mode %q, got %q", patch.ModeExact, rule.Anchor.Mode)
	}
	if len(rule.InsertBefore) != 2 || rule.InsertBefore[0] != "first" || rule.InsertBefore[1] != "second" {
		t.Errorf("unexpected insert-before lines: %v", rule.InsertBefore)
	}
	if rule.ReplaceWith == nil || *rule.ReplaceWith != "replacement" {
		t.Errorf("expected replacement, got %v", rule.ReplaceWith)
	}
	if rule.Delete {
		t.Error("delete must default to false")
	}
}

func TestInlineSetCommaInLine(t *testing.T) {
	cmd := applyCmd()
	if err := cmd.Flags().Set("target", "a.txt"); err != nil {
		t.Fatalf("set target: %v", err)
	}
	if err := cmd.Flags().Set("match", "x"); err != nil {
		t.Fatalf("set match: %v", err)
	}
	line := "const months = { january: '01', february: '02' };"
	if err := cmd.Flags().Set("insert-after", line); err != nil {
		t.Fatalf("set insert-after: %v", err)
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		t.Fatalf("loadPatchSet failed: %v", err)
	}
	rule := set.Targets[0].Rules[0]
	if len(rule.InsertAfter) != 1 || rule.InsertAfter[0] != line {
		t.Errorf("commas must not split the line, got %v", rule.InsertAfter)
	}
}

func TestInlineSetUnsetReplaceStaysNil(t *testing.T) {
	cmd := applyCmd()
	if err := cmd.Flags().Set("target", "a.txt"); err != nil {
		t.Fatalf("set target: %v", err)
	}
	if err := cmd.Flags().Set("match", "x"); err != nil {
		t.Fatalf("set match: %v", err)
	}
	if err := cmd.Flags().Set("delete-line", "true"); err != nil {
		t.Fatalf("set delete-line: %v", err)
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		t.Fatalf("loadPatchSet failed: %v", err)
	}
	rule := set.Targets[0].Rules[0]
	if rule.ReplaceWith != nil {
		t.Errorf("replace flag left unset must stay nil, got %q", *rule.ReplaceWith)
	}
	if !rule.Delete {
		t.Error("expected delete to be set")
	}
	if err := set.Validate(); err != nil {
		t.Errorf("delete-only rule must validate: %v", err)
	}
}

func TestInlineSetEmptyReplace(t *testing.T) {
	cmd := applyCmd()
	if err := cmd.Flags().Set("target", "a.txt"); err != nil {
		t.Fatalf("set target: %v", err)
	}
	if err := cmd.Flags().Set("match", "x"); err != nil {
		t.Fatalf("set match: %v", err)
	}
	if err := cmd.Flags().Set("replace", ""); err != nil {
		t.Fatalf("set replace: %v", err)
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		t.Fatalf("loadPatchSet failed: %v", err)
	}
	rule := set.Targets[0].Rules[0]
	if rule.ReplaceWith == nil || *rule.ReplaceWith != "" {
		t.Errorf("explicit empty replace must blank the line, got %v", rule.ReplaceWith)
	}
}

func TestLoadPatchSetFromFile(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "patch.yaml")
	content := `targets:
  - path: /tmp/a.txt
    rules:
      - anchor:
          match: hello
        insert_after:
          - world
`
	if err := os.WriteFile(yamlPath, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cmd := applyCmd()
	if err := cmd.Flags().Set("file", yamlPath); err != nil {
		t.Fatalf("set file: %v", err)
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		t.Fatalf("loadPatchSet failed: %v", err)
	}
	if len(set.Targets) != 1 || set.Targets[0].Path != "/tmp/a.txt" {
		t.Fatalf("unexpected targets: %+v", set.Targets)
	}
}

func TestLoadPatchSetConflict(t *testing.T) {
	cmd := applyCmd()
	if err := cmd.Flags().Set("file", "patch.yaml"); err != nil {
		t.Fatalf("set file: %v", err)
	}
	if err := cmd.Flags().Set("target", "a.txt"); err != nil {
		t.Fatalf("set target: %v", err)
	}

	_, err := loadPatchSet(cmd)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutually exclusive error, got %v", err)
	}
}

func TestLoadPatchSetRequiresSource(t *testing.T) {
	_, err := loadPatchSet(applyCmd())
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}
