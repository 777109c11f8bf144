package patch

import "fmt"

// RuleResult records where a rule landed. Line is the 1-based number of
// the matched line in the buffer the rule saw, 0 when nothing matched.
type RuleResult struct {
	Name    string
	Applied bool
	Line    int
}

// ApplyRule applies one rule against lines and returns the resulting
// buffer. The scan stops at the first line the anchor accepts; when no
// line matches, the input comes back untouched with Applied false.
func ApplyRule(lines []string, r *Rule) ([]string, RuleResult, error) {
	res := RuleResult{Name: r.Name}

	m, err := NewMatcher(r.Anchor)
	if err != nil {
		return lines, res, err
	}
	idx := FindMatch(lines, m)
	if idx < 0 {
		return lines, res, nil
	}
	res.Applied = true
	res.Line = idx + 1

	out := make([]string, 0, len(lines)+len(r.InsertBefore)+len(r.InsertAfter))
	out = append(out, lines[:idx]...)
	out = append(out, r.InsertBefore...)
	switch {
	case r.Delete:
	case r.ReplaceWith != nil:
		out = append(out, *r.ReplaceWith)
	default:
		out = append(out, lines[idx])
	}
	out = append(out, r.InsertAfter...)
	out = append(out, lines[idx+1:]...)
	return out, res, nil
}

// Apply runs the rules in order. Each rule scans the buffer left by the
// previous one, so later rules see earlier splices.
func Apply(lines []string, rules []Rule) ([]string, []RuleResult, error) {
	results := make([]RuleResult, 0, len(rules))
	for i := range rules {
		var (
			res RuleResult
			err error
		)
		lines, res, err = ApplyRule(lines, &rules[i])
		if err != nil {
			return lines, results, fmt.Errorf("%s: %w", rules[i].label(i), err)
		}
		results = append(results, res)
	}
	return lines, results, nil
}

// Applied counts the results that landed on a line.
func Applied(results []RuleResult) int {
	n := 0
	for _, r := range results {
		if r.Applied {
			n++
		}
	}
	return n
}
