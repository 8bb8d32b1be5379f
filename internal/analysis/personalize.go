package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// topicNudge suggests using a construct when an exercise is about a topic
// and the code never uses it.
type topicNudge struct {
	present    *regexp.Regexp
	message    string
	suggestion map[Language]string
}

var topicNudges = map[string]topicNudge{
	"loops": {
		present: regexp.MustCompile(`\b(?:for|while)\b|\.(?:forEach|map|filter|reduce)\s*\(`),
		message: "This exercise is about loops, but the code has none",
		suggestion: map[Language]string{
			LanguageJavaScript: "Repeat the work with a for loop, for example: for (const item of items) { ... }",
			LanguagePython:     "Repeat the work with a for loop, for example: for item in items:",
		},
	},
	"functions": {
		present: regexp.MustCompile(`\bfunction\b|=>|\bdef\b|\blambda\b`),
		message: "This exercise is about functions, but the code defines none",
		suggestion: map[Language]string{
			LanguageJavaScript: "Wrap the logic in a function, for example: function solve(input) { ... }",
			LanguagePython:     "Wrap the logic in a function, for example: def solve(data):",
		},
	},
	"conditionals": {
		present: regexp.MustCompile(`\b(?:if|switch|match)\b|\?`),
		message: "This exercise is about conditionals, but the code never branches",
		suggestion: map[Language]string{
			LanguageJavaScript: "Use an if statement to handle the different cases.",
			LanguagePython:     "Use an if/elif/else chain to handle the different cases.",
		},
	},
	"classes": {
		present: regexp.MustCompile(`\bclass\b`),
		message: "This exercise is about classes, but the code defines none",
		suggestion: map[Language]string{
			LanguageJavaScript: "Group the data and the functions that use it in a class.",
			LanguagePython:     "Group the data and the functions that use it in a class with an __init__ method.",
		},
	},
	"async": {
		present: regexp.MustCompile(`\basync\b|\bawait\b|\.then\s*\(`),
		message: "This exercise is about asynchronous code, but the code never waits for anything",
		suggestion: map[Language]string{
			LanguageJavaScript: "Mark the function async and await the promise it depends on.",
			LanguagePython:     "Define the coroutine with async def and await the calls it depends on.",
		},
	},
}

// suggestionFor picks the language-specific text, falling back to the
// JavaScript wording for the rest of the JS family and unknown languages.
func (n topicNudge) suggestionFor(lang Language) string {
	if s, ok := n.suggestion[lang]; ok {
		return s
	}
	return n.suggestion[LanguageJavaScript]
}

// personalize derives extra findings from the caller's history and exercise.
// The input results are never modified.
func personalize(code string, opts Options, results []AnalysisResult, fctx *FeedbackContext) []AnalysisResult {
	var out []AnalysisResult
	if fctx.UserProgress != nil {
		out = append(out, repeatedIssues(results, fctx.UserProgress.CommonMistakes)...)
		out = append(out, focusAreas(results, fctx.UserProgress.ImprovementAreas)...)
	}
	if prev := fctx.PreviousAnalysis; prev != nil && !prev.Failed() {
		current := countSeverity(results, SeverityError)
		if fixed := len(prev.Errors) - current; fixed > 0 {
			out = append(out, snippetResult(RuleImprovementFeedback, SeverityInfo, CategoryBestPractice,
				fmt.Sprintf("Great improvement! You fixed %d %s since your last attempt.", fixed, plural(fixed, "error")),
				fmt.Sprintf("Your previous attempt had %d %s and this one has %d.", len(prev.Errors), plural(len(prev.Errors), "error"), current),
				"Keep going: check the remaining warnings next."))
		}
	}
	if fctx.ExerciseContext != nil {
		out = append(out, exerciseSuggestions(code, opts.Language, fctx.ExerciseContext)...)
	}
	return out
}

func repeatedIssues(results []AnalysisResult, mistakes []string) []AnalysisResult {
	var out []AnalysisResult
	for _, r := range results {
		for _, m := range mistakes {
			m = strings.TrimSpace(m)
			if m == "" || !strings.Contains(r.Message, m) {
				continue
			}
			out = append(out, AnalysisResult{
				RuleID:      RuleRepeatedIssue,
				Severity:    SeverityWarning,
				Category:    r.Category,
				Line:        r.Line,
				Column:      r.Column,
				End:         r.End,
				Message:     "Repeated issue: " + r.Message,
				Explanation: fmt.Sprintf("%q is one of the mistakes that shows up most often in your code.", m),
				Suggestion:  r.Suggestion,
			})
			break
		}
	}
	return out
}

func focusAreas(results []AnalysisResult, areas []string) []AnalysisResult {
	var out []AnalysisResult
	for _, area := range areas {
		cat, ok := ParseCategory(area)
		if !ok {
			continue
		}
		n := 0
		for _, r := range results {
			if r.Category == cat {
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, snippetResult(RuleFocusArea, SeverityInfo, cat,
			fmt.Sprintf("Focus area: %s (%d %s in this snippet)", cat, n, plural(n, "finding")),
			fmt.Sprintf("You marked %s as something to improve, and this code has more of it.", cat),
			fmt.Sprintf("Work through the %s findings first.", cat)))
	}
	return out
}

// exerciseSuggestions reports expected idioms missing from the code and
// topic nudges for known topics.
func exerciseSuggestions(code string, lang Language, ex *ExerciseContext) []AnalysisResult {
	var out []AnalysisResult
	for _, p := range ex.ExpectedPatterns {
		if strings.TrimSpace(p) == "" || strings.Contains(code, p) {
			continue
		}
		out = append(out, snippetResult(RuleExpectedPattern, SeverityInfo, CategoryBestPractice,
			fmt.Sprintf("Try using %s", p),
			fmt.Sprintf("This exercise expects a solution that uses %s.", p),
			fmt.Sprintf("Rework the solution so it uses %s.", p)))
	}

	topic := strings.ToLower(strings.TrimSpace(ex.Topic))
	nudge, ok := topicNudges[topic]
	if !ok {
		return out
	}
	clean := strings.Join(parseSource(code, lang).clean, "\n")
	if !nudge.present.MatchString(clean) {
		out = append(out, snippetResult(ruleTopicPrefix+topic, SeverityInfo, CategoryBestPractice,
			nudge.message,
			fmt.Sprintf("Practicing %s is the point of this exercise.", topic),
			nudge.suggestionFor(lang)))
	}
	return out
}

// snippetResult builds a finding about the snippet as a whole, anchored at
// line 1, column 1.
func snippetResult(ruleID string, sev Severity, cat Category, message, explanation, suggestion string) AnalysisResult {
	return AnalysisResult{
		RuleID:      ruleID,
		Severity:    sev,
		Category:    cat,
		Line:        1,
		Column:      1,
		Message:     message,
		Explanation: explanation,
		Suggestion:  suggestion,
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
