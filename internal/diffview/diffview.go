// Package diffview renders unified diffs for dry-run previews.
package diffview

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const contextLines = 3

type opKind int

const (
	opContext opKind = iota
	opDelete
	opInsert
)

type lineOp struct {
	kind opKind
	text string
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []lineOp
}

// Unified renders a unified diff between two versions of a file. Equal
// contents produce an empty string.
func Unified(path, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	ops := lineOps(oldContent, newContent)
	hunks := groupHunks(ops)
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n", path)
	fmt.Fprintf(&sb, "+++ b/%s\n", path)
	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.ops {
			switch op.kind {
			case opDelete:
				sb.WriteString("-")
			case opInsert:
				sb.WriteString("+")
			default:
				sb.WriteString(" ")
			}
			sb.WriteString(op.text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// lineOps diffs the contents line by line. The line-to-rune mapping
// keeps the diff aligned on line boundaries.
func lineOps(oldContent, newContent string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []lineOp
	for _, d := range diffs {
		kind := opContext
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = opDelete
		case diffmatchpatch.DiffInsert:
			kind = opInsert
		}
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			ops = append(ops, lineOp{kind: kind, text: line})
		}
	}
	return ops
}

// groupHunks collects changed ops plus surrounding context into hunks,
// merging hunks whose context would overlap.
func groupHunks(ops []lineOp) []hunk {
	type span struct{ start, end int }
	var spans []span
	for i, op := range ops {
		if op.kind == opContext {
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(ops) {
			end = len(ops)
		}
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			if end > spans[n-1].end {
				spans[n-1].end = end
			}
		} else {
			spans = append(spans, span{start: start, end: end})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	var hunks []hunk
	oldLine, newLine := 1, 1
	idx := 0
	for _, sp := range spans {
		for ; idx < sp.start; idx++ {
			switch ops[idx].kind {
			case opContext:
				oldLine++
				newLine++
			case opDelete:
				oldLine++
			case opInsert:
				newLine++
			}
		}

		h := hunk{oldStart: oldLine, newStart: newLine, ops: ops[sp.start:sp.end]}
		for ; idx < sp.end; idx++ {
			switch ops[idx].kind {
			case opContext:
				h.oldCount++
				h.newCount++
				oldLine++
				newLine++
			case opDelete:
				h.oldCount++
				oldLine++
			case opInsert:
				h.newCount++
				newLine++
			}
		}
		// Empty-side hunks start one line earlier, matching git.
		if h.oldCount == 0 {
			h.oldStart--
		}
		if h.newCount == 0 {
			h.newStart--
		}
		hunks = append(hunks, h)
	}
	return hunks
}
