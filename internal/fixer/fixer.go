// Package fixer applies the machine-applicable edits attached to analysis
// results, such as inserting a missing semicolon or tightening '==' to '==='.
package fixer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Change is one edit that was applied or skipped.
type Change struct {
	RuleID  string        `json:"rule_id"`
	Message string        `json:"message"`
	Edit    analysis.Edit `json:"edit"`
	Reason  string        `json:"reason,omitempty"` // set when skipped
}

// ProposedFix is the outcome of applying edits to a snippet.
type ProposedFix struct {
	Original string   `json:"original"`
	Fixed    string   `json:"fixed"`
	Applied  []Change `json:"applied"`
	Skipped  []Change `json:"skipped"`
}

// Changed reports whether any edit was applied.
func (f *ProposedFix) Changed() bool {
	return len(f.Applied) > 0
}

// Skip reasons.
const (
	reasonOutOfRange = "edit is outside the snippet"
	reasonOverlap    = "overlaps an earlier edit"
)

// Apply applies every edit carried by results to code. Edits that overlap an
// already accepted edit, or fall outside the snippet, are skipped. Results
// without an edit are ignored. Accepted edits are reported in line and
// column order.
func Apply(code string, results []analysis.AnalysisResult) *ProposedFix {
	fix := &ProposedFix{Original: code, Fixed: code, Applied: []Change{}, Skipped: []Change{}}
	lines := strings.Split(code, "\n")

	var candidates []Change
	for _, r := range results {
		if r.Edit == nil {
			continue
		}
		candidates = append(candidates, Change{RuleID: r.RuleID, Message: r.Message, Edit: *r.Edit})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Edit, candidates[j].Edit
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.StartColumn < b.StartColumn
	})

	byLine := map[int][]analysis.Edit{}
	for _, c := range candidates {
		e := c.Edit
		if !inRange(e, lines) {
			c.Reason = reasonOutOfRange
			fix.Skipped = append(fix.Skipped, c)
			continue
		}
		if conflicts(e, byLine[e.Line]) {
			c.Reason = reasonOverlap
			fix.Skipped = append(fix.Skipped, c)
			continue
		}
		byLine[e.Line] = append(byLine[e.Line], e)
		fix.Applied = append(fix.Applied, c)
	}

	for line, edits := range byLine {
		lines[line-1] = applyLine(lines[line-1], edits)
	}
	fix.Fixed = strings.Join(lines, "\n")
	return fix
}

func inRange(e analysis.Edit, lines []string) bool {
	if e.Line < 1 || e.Line > len(lines) {
		return false
	}
	n := len(lines[e.Line-1])
	return e.StartColumn >= 1 && e.StartColumn <= e.EndColumn && e.EndColumn <= n+1
}

// conflicts reports whether e touches the same text as any accepted edit.
// Insertions conflict only with another insertion at the same column or a
// replacement that strictly contains their column.
func conflicts(e analysis.Edit, accepted []analysis.Edit) bool {
	for _, o := range accepted {
		switch {
		case e.StartColumn == e.EndColumn && o.StartColumn == o.EndColumn:
			if e.StartColumn == o.StartColumn {
				return true
			}
		case e.StartColumn == e.EndColumn:
			if o.StartColumn < e.StartColumn && e.StartColumn < o.EndColumn {
				return true
			}
		case o.StartColumn == o.EndColumn:
			if e.StartColumn < o.StartColumn && o.StartColumn < e.EndColumn {
				return true
			}
		default:
			if e.StartColumn < o.EndColumn && o.StartColumn < e.EndColumn {
				return true
			}
		}
	}
	return false
}

// applyLine applies non-conflicting edits right to left so earlier columns
// stay valid. At the same column a replacement goes before an insertion.
func applyLine(line string, edits []analysis.Edit) string {
	sorted := append([]analysis.Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartColumn != sorted[j].StartColumn {
			return sorted[i].StartColumn > sorted[j].StartColumn
		}
		return sorted[i].EndColumn > sorted[j].EndColumn
	})
	for _, e := range sorted {
		line = line[:e.StartColumn-1] + e.NewText + line[e.EndColumn-1:]
	}
	return line
}

// Diff renders the lines that changed between the original and fixed
// snippet in a unified-diff-like form.
func Diff(fix *ProposedFix) string {
	before := strings.Split(fix.Original, "\n")
	after := strings.Split(fix.Fixed, "\n")

	var sb strings.Builder
	for i := range before {
		if i < len(after) && before[i] == after[i] {
			continue
		}
		fmt.Fprintf(&sb, "@@ line %d @@\n", i+1)
		fmt.Fprintf(&sb, "-%s\n", before[i])
		if i < len(after) {
			fmt.Fprintf(&sb, "+%s\n", after[i])
		}
	}
	return sb.String()
}
