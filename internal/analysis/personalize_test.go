package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalize_RepeatedIssueKeepsOriginal(t *testing.T) {
	fctx := &FeedbackContext{UserProgress: &UserProgress{CommonMistakes: []string{"semicolon"}}}
	a := NewEngine().Analyze("const x = 5\nconsole.log(x)", jsOpts(), fctx)

	assert.Len(t, withRuleID(a.Warnings, "js-missing-semicolon"), 2)
	repeated := withRuleID(a.Warnings, RuleRepeatedIssue)
	require.Len(t, repeated, 2)
	assert.Equal(t, "Repeated issue: Missing semicolon", repeated[0].Message)
	assert.Equal(t, CategorySyntax, repeated[0].Category)
	assert.Equal(t, 1, repeated[0].Line)
	assert.Equal(t, 2, repeated[1].Line)
}

func TestPersonalize_RepeatedIssueMatchesCase(t *testing.T) {
	fctx := &FeedbackContext{UserProgress: &UserProgress{CommonMistakes: []string{"SEMICOLON"}}}
	a := NewEngine().Analyze("const x = 5", jsOpts(), fctx)
	assert.Len(t, withRuleID(a.Warnings, "js-missing-semicolon"), 1)
	assert.Empty(t, withRuleID(a.Warnings, RuleRepeatedIssue))
}

func TestPersonalize_RepeatedIssueIgnoresBlankMistakes(t *testing.T) {
	fctx := &FeedbackContext{UserProgress: &UserProgress{CommonMistakes: []string{"", "  "}}}
	a := NewEngine().Analyze("const x = 5", jsOpts(), fctx)
	assert.Empty(t, withRuleID(a.Warnings, RuleRepeatedIssue))
}

func TestPersonalize_ExpectedPatterns(t *testing.T) {
	fctx := &FeedbackContext{ExerciseContext: &ExerciseContext{
		ExpectedPatterns: []string{"map", "reduce", ""},
	}}
	a := NewEngine().Analyze("const xs = [1, 2].map(n => n * 2);", jsOpts(), fctx)

	expected := withRuleID(a.Suggestions, RuleExpectedPattern)
	require.Len(t, expected, 1)
	assert.Equal(t, "Try using reduce", expected[0].Message)
	assert.Equal(t, SeverityInfo, expected[0].Severity)
}

func TestPersonalize_TopicNudges(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		lang  Language
		topic string
		want  bool
	}{
		{"loops missing", "const total = 1 + 2;", LanguageJavaScript, "loops", true},
		{"loops via forEach", "items.forEach(i => use(i));", LanguageJavaScript, "Loops", false},
		{"loop only in comment", "// for each item\nconst total = 1;", LanguageJavaScript, "loops", true},
		{"functions missing", "total = 1 + 2", LanguagePython, "functions", true},
		{"functions present", "def solve():\n    return 1", LanguagePython, "functions", false},
		{"classes missing", "x = 1", LanguagePython, "classes", true},
		{"unknown topic", "x = 1", LanguagePython, "recursion", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fctx := &FeedbackContext{ExerciseContext: &ExerciseContext{Topic: tt.topic}}
			a := NewEngine().Analyze(tt.code, Options{Language: tt.lang}, fctx)
			var nudges []AnalysisResult
			for _, r := range a.Suggestions {
				if len(r.RuleID) > len(ruleTopicPrefix) && r.RuleID[:len(ruleTopicPrefix)] == ruleTopicPrefix {
					nudges = append(nudges, r)
				}
			}
			if tt.want {
				require.Len(t, nudges, 1)
				assert.NotEmpty(t, nudges[0].Suggestion)
			} else {
				assert.Empty(t, nudges)
			}
		})
	}
}

func TestPersonalize_FocusAreas(t *testing.T) {
	fctx := &FeedbackContext{UserProgress: &UserProgress{ImprovementAreas: []string{"syntax", "security", "nonsense"}}}
	a := NewEngine().Analyze("const x = 5\nconsole.log(x)", jsOpts(), fctx)

	focus := withRuleID(a.Suggestions, RuleFocusArea)
	require.Len(t, focus, 1)
	assert.Equal(t, CategorySyntax, focus[0].Category)
	assert.Contains(t, focus[0].Message, "2 findings")
}

func TestPersonalize_DoesNotMutatePrevious(t *testing.T) {
	e := NewEngine()
	prev := e.Analyze("let a = [1, 2;\nlet b = (3;", jsOpts(), nil)
	before := len(prev.Errors)
	e.Analyze("let a = [1, 2];", jsOpts(), &FeedbackContext{PreviousAnalysis: &prev})
	assert.Len(t, prev.Errors, before)
}

func TestPersonalize_ImprovementDelta(t *testing.T) {
	e := NewEngine()
	prev := e.Analyze("let a = [1, 2;\nlet b = (3;", jsOpts(), nil)
	require.Len(t, prev.Errors, 2)

	a := e.Analyze("let a = [1, 2];\nlet b = 3;", jsOpts(), &FeedbackContext{PreviousAnalysis: &prev})
	praise := withRuleID(a.Suggestions, RuleImprovementFeedback)
	require.Len(t, praise, 1)
	assert.Equal(t, "Great improvement! You fixed 2 errors since your last attempt.", praise[0].Message)
}

func TestPersonalize_FailedPreviousIsNotCounted(t *testing.T) {
	e := NewEngine()
	prev := e.FailureAnalysis("let a = 1;", LanguageJavaScript, assert.AnError)
	require.True(t, prev.Failed())

	a := e.Analyze("let a = 1;", jsOpts(), &FeedbackContext{PreviousAnalysis: &prev})
	assert.Empty(t, withRuleID(a.Suggestions, RuleImprovementFeedback))
}

// --- ImprovementSuggestions ---

func ruleIDs(results []AnalysisResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.RuleID)
	}
	return ids
}

func TestImprovementSuggestions_Beginner(t *testing.T) {
	code := "let a = 1;\nlet b = 2;\nlet c = a + b;\nconsole.log(c);\nconsole.log(a);"
	got := NewEngine().ImprovementSuggestions(code, Options{Language: LanguageJavaScript, UserLevel: LevelBeginner}, nil)

	assert.ElementsMatch(t, []string{"add-comments", "descriptive-names"}, ruleIDs(got))
	for _, r := range got {
		assert.Equal(t, SeverityInfo, r.Severity)
	}
}

func TestImprovementSuggestions_Expert(t *testing.T) {
	code := "def total(xs):\n    for x in xs:\n        for y in xs:\n            print(x, y)\n"
	got := NewEngine().ImprovementSuggestions(code, Options{Language: LanguagePython, UserLevel: LevelExpert}, nil)

	assert.ElementsMatch(t, []string{"nested-loop-cost", "type-annotations"}, ruleIDs(got))
	for _, r := range got {
		if r.RuleID == "nested-loop-cost" {
			assert.Equal(t, 3, r.Line)
		}
	}
}

func TestImprovementSuggestions_Intermediate(t *testing.T) {
	code := "const data = JSON.parse(raw);\nitems.map(function (x) { return x * 2; });"
	got := NewEngine().ImprovementSuggestions(code, Options{Language: LanguageJavaScript, UserLevel: LevelIntermediate}, nil)
	assert.ElementsMatch(t, []string{"handle-errors", "arrow-callbacks"}, ruleIDs(got))
}

func TestImprovementSuggestions_Advanced(t *testing.T) {
	code := "let limit = 10;\nlet count = 0;\ncount++;\nconsole.log(limit, count);"
	got := NewEngine().ImprovementSuggestions(code, Options{Language: LanguageJavaScript, UserLevel: LevelAdvanced}, nil)
	require.Equal(t, []string{"prefer-const"}, ruleIDs(got))
	assert.Equal(t, 1, got[0].Line)
}

func TestCountAssignments(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"let n = 0", 1},
		{"let n = 0\nn++", 2},
		{"let n = 0\nn += 2\nn--", 3},
		{"let n = 0\nif (n == 1) use(n)", 1},
		{"let n = 0\nconst f = n => n * 2", 1},
		{"let n = 0\nobj.n = 3\nnn = 4\nn2 = 5", 1},
		{"use(n - 1)", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countAssignments(tt.text, "n"), tt.text)
	}
}

func TestImprovementSuggestions_TiersAreDistinct(t *testing.T) {
	seen := map[string]UserLevel{}
	for _, tip := range levelTips {
		if lvl, ok := seen[tip.id]; ok {
			t.Errorf("tip %s registered for %s and %s", tip.id, lvl, tip.level)
		}
		seen[tip.id] = tip.level
	}
	for _, lvl := range []UserLevel{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert} {
		n := 0
		for _, tip := range levelTips {
			if tip.level == lvl {
				n++
			}
		}
		assert.NotZero(t, n, "no tips for %s", lvl)
	}
}

func TestImprovementSuggestions_ExerciseContext(t *testing.T) {
	fctx := &FeedbackContext{ExerciseContext: &ExerciseContext{ExpectedPatterns: []string{"async"}, Topic: "loops"}}
	got := NewEngine().ImprovementSuggestions("x = 1", Options{Language: LanguagePython, UserLevel: LevelAdvanced}, fctx)
	assert.ElementsMatch(t, []string{RuleExpectedPattern, "topic-loops"}, ruleIDs(got))
}

func TestImprovementSuggestions_Empty(t *testing.T) {
	got := NewEngine().ImprovementSuggestions("   ", Options{UserLevel: LevelExpert}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
