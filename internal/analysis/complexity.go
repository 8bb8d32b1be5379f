package analysis

import (
	"math"
	"strings"
)

var (
	decisionKeywords = wordPattern("if", "else", "for", "while", "case", "catch")
	nestingKeywords  = wordPattern("if", "for", "while")
)

// CalculateComplexity computes heuristic complexity scores from raw text.
// It counts tokens across the whole snippet rather than building a control
// flow graph, so the numbers are stable and easy to predict.
func CalculateComplexity(code string) ComplexityMetrics {
	if strings.TrimSpace(code) == "" {
		return ComplexityMetrics{}
	}
	cyclomatic := Cyclomatic(code)
	return ComplexityMetrics{
		Cyclomatic:      cyclomatic,
		Cognitive:       Cognitive(code),
		Maintainability: Maintainability(nonEmptyLines(code), cyclomatic),
	}
}

// Cyclomatic is 1 plus one per if, else, for, while, case, catch, &&, ||
// and ? in the snippet.
func Cyclomatic(code string) int {
	n := 1
	n += len(decisionKeywords.FindAllStringIndex(code, -1))
	n += strings.Count(code, "&&")
	n += strings.Count(code, "||")
	n += strings.Count(code, "?")
	return n
}

// Cognitive scores nesting-weighted control flow. A line with if, for or
// while adds 1 plus the current nesting and then nests deeper; a line with
// a closing brace un-nests by one. Each && and || adds one.
func Cognitive(code string) int {
	score, nesting := 0, 0
	for _, line := range splitLines(code) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if nestingKeywords.MatchString(line) {
			score += 1 + nesting
			nesting++
		}
		if strings.Contains(line, "}") && nesting > 0 {
			nesting--
		}
		score += strings.Count(line, "&&") + strings.Count(line, "||")
	}
	return score
}

// Maintainability returns
// 171 - 5.2*ln(L) - 0.23*cyclomatic - 16.2*ln(L), with L = max(lines, 1),
// rounded and clamped to [0, 171].
func Maintainability(lines, cyclomatic int) int {
	l := math.Log(float64(max(lines, 1)))
	mi := 171 - 5.2*l - 0.23*float64(cyclomatic) - 16.2*l
	if math.IsNaN(mi) || mi < 0 {
		return 0
	}
	return int(math.Min(171, math.Round(mi)))
}
