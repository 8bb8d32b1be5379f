package analysis

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// levelTip is a heuristic suggestion offered to learners of one level.
// find returns the 1-based line the tip is about, or 0 when it does not
// apply.
type levelTip struct {
	id          string
	level       UserLevel
	category    Category
	languages   []Language
	find        func(e *Engine, code string, src source, lang Language) int
	message     string
	explanation string
	suggestion  string
}

var (
	jsCommentMarker   = regexp.MustCompile(`//|/\*`)
	pyAssignment      = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=[^=]`)
	functionDef       = regexp.MustCompile(`\bfunction\b|=>|^\s*(?:async\s+)?def\s`)
	anonymousFunction = regexp.MustCompile(`\bfunction\s*\(`)
	riskyJSCall       = regexp.MustCompile(`\bJSON\.parse\s*\(|\bfetch\s*\(|\bawait\b`)
	riskyPyCall       = regexp.MustCompile(`\bopen\s*\(|\bint\s*\(|\bfloat\s*\(|\bjson\.loads?\s*\(|\brequests\.\w+\s*\(`)
	tryBlock          = regexp.MustCompile(`\btry\b`)
	letDeclaration    = regexp.MustCompile(`\blet\s+([A-Za-z_$][\w$]*)`)
	listAppend        = regexp.MustCompile(`\.append\s*\(`)
	untypedPyDef      = regexp.MustCompile(`^\s*(?:async\s+)?def\s+\w+\s*\([^)]*\)\s*:`)
	tsAny             = regexp.MustCompile(`:\s*any\b`)
)

var levelTips = []levelTip{
	{
		id:       "add-comments",
		level:    LevelBeginner,
		category: CategoryBestPractice,
		find: func(_ *Engine, code string, src source, lang Language) int {
			if nonEmptyLines(code) < 5 {
				return 0
			}
			if isPythonLike(lang) && strings.Contains(code, "#") || !isPythonLike(lang) && jsCommentMarker.MatchString(code) {
				return 0
			}
			return 1
		},
		message:     "Add comments explaining what your code does",
		explanation: "A short note above each step helps you, and anyone helping you, follow your thinking.",
		suggestion:  "Write one comment per block describing its goal in plain words.",
	},
	{
		id:       "descriptive-names",
		level:    LevelBeginner,
		category: CategoryStyle,
		find: func(_ *Engine, _ string, src source, lang Language) int {
			for i, line := range src.clean {
				var name string
				if isPythonLike(lang) {
					if m := pyAssignment.FindStringSubmatch(line); m != nil {
						name = m[1]
					}
				} else if m := declaration.FindStringSubmatch(line); m != nil {
					name = m[1]
				}
				if len(name) == 1 && !strings.Contains("ijk", name) {
					return i + 1
				}
			}
			return 0
		},
		message:     "Use descriptive variable names",
		explanation: "Single-letter names make it hard to remember what each value holds.",
		suggestion:  "Name variables after what they contain, such as total or userName.",
	},
	{
		id:        "consistent-quotes",
		level:     LevelBeginner,
		category:  CategoryStyle,
		languages: jsFamily,
		find: func(_ *Engine, code string, _ source, _ Language) int {
			if strings.Contains(code, `'`) && strings.Contains(code, `"`) {
				return 1
			}
			return 0
		},
		message:     "Pick one quote style for strings",
		explanation: "Switching between single and double quotes makes the code look inconsistent.",
		suggestion:  "Use single quotes everywhere unless the string itself contains one.",
	},
	{
		id:       "extract-function",
		level:    LevelIntermediate,
		category: CategoryBestPractice,
		find: func(_ *Engine, code string, src source, _ Language) int {
			if nonEmptyLines(code) <= 20 {
				return 0
			}
			defs := 0
			for _, line := range src.clean {
				if functionDef.MatchString(line) {
					defs++
				}
			}
			if defs > 1 {
				return 0
			}
			return 1
		},
		message:     "Break long code into smaller functions",
		explanation: "Long blocks are hard to test and reuse; small named functions document each step.",
		suggestion:  "Move each distinct step into its own function with a descriptive name.",
	},
	{
		id:       "handle-errors",
		level:    LevelIntermediate,
		category: CategoryLogic,
		find: func(_ *Engine, _ string, src source, lang Language) int {
			risky := riskyJSCall
			if isPythonLike(lang) {
				risky = riskyPyCall
			}
			first := 0
			for i, line := range src.clean {
				if tryBlock.MatchString(line) {
					return 0
				}
				if first == 0 && risky.MatchString(line) {
					first = i + 1
				}
			}
			return first
		},
		message:     "Handle errors that can occur here",
		explanation: "Parsing input, reading files and network calls can all fail at run time.",
		suggestion:  "Wrap the call in try/catch (try/except in Python) and decide what to do on failure.",
	},
	{
		id:        "arrow-callbacks",
		level:     LevelIntermediate,
		category:  CategoryStyle,
		languages: jsFamily,
		find: func(_ *Engine, _ string, src source, _ Language) int {
			for i, line := range src.clean {
				if anonymousFunction.MatchString(line) {
					return i + 1
				}
			}
			return 0
		},
		message:     "Use arrow functions for callbacks",
		explanation: "Arrow functions are shorter and keep the surrounding this.",
		suggestion:  "Replace function (x) { ... } with (x) => { ... }.",
	},
	{
		id:       "reduce-complexity",
		level:    LevelAdvanced,
		category: CategoryLogic,
		find: func(e *Engine, code string, _ source, _ Language) int {
			if e.complexity(code).Cyclomatic > 10 {
				return 1
			}
			return 0
		},
		message:     "Reduce the number of branches",
		explanation: "Every extra decision point adds a path that has to be understood and tested.",
		suggestion:  "Use early returns, lookup tables or smaller helper functions to flatten the logic.",
	},
	{
		id:        "prefer-const",
		level:     LevelAdvanced,
		category:  CategoryBestPractice,
		languages: jsFamily,
		find: func(_ *Engine, _ string, src source, _ Language) int {
			text := strings.Join(src.clean, "\n")
			for i, line := range src.clean {
				for _, m := range letDeclaration.FindAllStringSubmatch(line, -1) {
					if countAssignments(text, m[1]) <= 1 {
						return i + 1
					}
				}
			}
			return 0
		},
		message:     "Prefer const for values that never change",
		explanation: "const tells the reader a binding is never reassigned and catches accidental reassignment.",
		suggestion:  "Declare variables with const and switch to let only when they are reassigned.",
	},
	{
		id:        "use-comprehension",
		level:     LevelAdvanced,
		category:  CategoryStyle,
		languages: []Language{LanguagePython},
		find: func(_ *Engine, _ string, src source, lang Language) int {
			depth, _ := loopNesting(src, lang)
			for i, line := range src.clean {
				if depth[i] > 0 && listAppend.MatchString(line) {
					return i + 1
				}
			}
			return 0
		},
		message:     "Build the list with a comprehension",
		explanation: "A comprehension states the result in one expression and runs faster than repeated append calls.",
		suggestion:  "Replace the loop with [transform(x) for x in items if condition(x)].",
	},
	{
		id:       "nested-loop-cost",
		level:    LevelExpert,
		category: CategoryPerformance,
		find: func(_ *Engine, _ string, src source, lang Language) int {
			depth, header := loopNesting(src, lang)
			for i := range src.clean {
				if header[i] && depth[i] > 0 {
					return i + 1
				}
			}
			return 0
		},
		message:     "Consider the cost of nested loops",
		explanation: "Nested iteration grows quadratically with input size.",
		suggestion:  "Index one side in a map or set first so the inner lookup is constant time.",
	},
	{
		id:        "type-annotations",
		level:     LevelExpert,
		category:  CategoryBestPractice,
		languages: []Language{LanguagePython, LanguageTypeScript},
		find: func(_ *Engine, _ string, src source, lang Language) int {
			re := tsAny
			if isPythonLike(lang) {
				re = untypedPyDef
			}
			for i, line := range src.clean {
				if re.MatchString(line) {
					return i + 1
				}
			}
			return 0
		},
		message:     "Add precise type annotations",
		explanation: "Types document the contract of a function and let tools catch mistakes before running the code.",
		suggestion:  "Annotate parameters and return values, and replace any with a concrete type.",
	},
	{
		id:       "maintainability",
		level:    LevelExpert,
		category: CategoryBestPractice,
		find: func(e *Engine, code string, _ source, _ Language) int {
			if e.complexity(code).Maintainability < 100 {
				return 1
			}
			return 0
		},
		message:     "Improve maintainability",
		explanation: "The maintainability index of this code is low because of its size and branching.",
		suggestion:  "Split it into modules with a single responsibility each.",
	},
}

// countAssignments counts the statements that assign name in text, its
// declaration included: plain and compound assignment, ++ and --.
func countAssignments(text, name string) int {
	n := 0
	for i := 0; ; {
		idx := strings.Index(text[i:], name)
		if idx < 0 {
			return n
		}
		start, end := i+idx, i+idx+len(name)
		i = end
		if start > 0 && (isIdentByte(text[start-1]) || text[start-1] == '.') {
			continue
		}
		if end < len(text) && isIdentByte(text[end]) {
			continue
		}
		if assigns(strings.TrimLeft(text[end:], " \t")) {
			n++
		}
	}
}

// assigns reports whether rest, the text following an identifier, starts
// with an assignment operator.
func assigns(rest string) bool {
	if strings.HasPrefix(rest, "++") || strings.HasPrefix(rest, "--") {
		return true
	}
	if len(rest) > 1 && strings.IndexByte("+-*/%", rest[0]) >= 0 && rest[1] == '=' {
		rest = rest[1:]
	}
	return len(rest) > 1 && rest[0] == '=' && rest[1] != '=' && rest[1] != '>'
}

// ImprovementSuggestions returns suggestion-level items only: the tips for
// the learner's level plus the exercise-context suggestions. It has no side
// effects and never panics.
func (e *Engine) ImprovementSuggestions(code string, opts Options, fctx *FeedbackContext) (out []AnalysisResult) {
	opts = normalizeOptions(opts)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("improvement suggestions failed")
			out = []AnalysisResult{}
		}
	}()
	out = []AnalysisResult{}
	if strings.TrimSpace(code) == "" {
		return out
	}

	src := parseSource(code, opts.Language)
	for _, tip := range levelTips {
		if tip.level != opts.UserLevel || !(Rule{Languages: tip.languages}).AppliesTo(opts.Language) {
			continue
		}
		line := tip.find(e, code, src, opts.Language)
		if line == 0 {
			continue
		}
		res := snippetResult(tip.id, SeverityInfo, tip.category, tip.message, tip.explanation, tip.suggestion)
		res.Line = line
		out = append(out, res)
	}
	if fctx != nil && fctx.ExerciseContext != nil {
		out = append(out, exerciseSuggestions(code, opts.Language, fctx.ExerciseContext)...)
	}
	return out
}
