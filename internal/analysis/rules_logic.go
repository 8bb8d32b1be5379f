package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

func logicRules() []Rule {
	return []Rule{
		strictEqualityRule(),
		assignmentInConditionRule(),
		unreachableCodeRule(),
		emptyCatchRule(),
		pythonMutableDefaultRule(),
		varDeclarationRule(),
		consoleLogRule(),
		unusedVariableRule(),
		pythonBareExceptRule(),
		todoCommentRule(),
	}
}

var looseEquality = regexp.MustCompile(`[^=!<>]==[^=]|!=[^=]`)

func strictEqualityRule() Rule {
	r := Rule{
		ID:          "js-strict-equality",
		Name:        "Loose equality",
		Description: "== and != coerce types before comparing.",
		Severity:    SeverityWarning,
		Category:    CategoryLogic,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			padded := " " + line + " "
			for _, loc := range looseEquality.FindAllStringIndex(padded, -1) {
				// padded is shifted one byte right, so these are 1-based columns.
				op, col := "==", loc[0]+1
				if padded[loc[0]] == '!' {
					op, col = "!=", loc[0]
				}
				strict := op + "="
				res := r.result(i+1, col,
					fmt.Sprintf("Use '%s' instead of '%s'", strict, op),
					fmt.Sprintf("'%s' converts both sides to the same type first, so 0 %s '' is true.", op, op),
					fmt.Sprintf("Replace '%s' with '%s'.", op, strict))
				res.Edit = &Edit{Line: i + 1, StartColumn: col, EndColumn: col + 2, NewText: strict}
				results = append(results, res)
			}
		}
		return results
	}
	return r
}

var (
	conditionHead = regexp.MustCompile(`\b(?:if|while)\s*\(`)
	bareAssign    = regexp.MustCompile(`(?:^|[^=!<>+\-*/%&|^])=(?:[^=>]|$)`)
)

func assignmentInConditionRule() Rule {
	r := Rule{
		ID:          "assignment-in-condition",
		Name:        "Assignment in condition",
		Description: "A single '=' inside an if or while condition assigns instead of comparing.",
		Severity:    SeverityWarning,
		Category:    CategoryLogic,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, loc := range conditionHead.FindAllStringIndex(line, -1) {
				cond := parenthesized(line[loc[1]-1:])
				if cond == "" || !bareAssign.MatchString(cond) {
					continue
				}
				results = append(results, r.result(i+1, loc[0]+1,
					"Assignment inside a condition",
					"'=' stores a value; the condition then tests the stored value, which is rarely what was meant.",
					"Use '===' (or '==' in Python) to compare values."))
			}
		}
		return results
	}
	return r
}

// parenthesized returns the text inside the balanced parentheses that s
// starts with, or "" if they do not close on this line.
func parenthesized(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i]
			}
		}
	}
	return ""
}

var (
	terminator    = regexp.MustCompile(`^(?:return|break|continue|throw|raise)\b`)
	blockBoundary = regexp.MustCompile(`^(?:[}\])]|case\b|default\b|else\b|elif\b|except\b|finally\b|catch\b)`)
)

func unreachableCodeRule() Rule {
	r := Rule{
		ID:          "unreachable-code",
		Name:        "Unreachable code",
		Description: "Statements after return, break, continue or throw in the same block never run.",
		Severity:    SeverityWarning,
		Category:    CategoryLogic,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			trimmed := strings.TrimSpace(line)
			if !terminator.MatchString(trimmed) || !statementComplete(trimmed, opts.Language) {
				continue
			}
			next := src.nextCodeLine(i)
			if next < 0 {
				continue
			}
			nt := strings.TrimSpace(src.clean[next])
			if blockBoundary.MatchString(nt) || indentWidth(src.clean[next]) != indentWidth(line) {
				continue
			}
			keyword := terminator.FindString(trimmed)
			results = append(results, r.result(next+1, indentWidth(src.raw[next])+1,
				fmt.Sprintf("Unreachable code after '%s'", keyword),
				fmt.Sprintf("Line %d leaves the block with '%s', so this line can never run.", i+1, keyword),
				"Remove the dead code or move it before the jump."))
		}
		return results
	}
	return r
}

func statementComplete(trimmed string, lang Language) bool {
	for _, s := range []string{"(", "[", "{", ",", "+", "-", "&&", "||", "\\", "=", "?", ":"} {
		if strings.HasSuffix(trimmed, s) && !(s == ":" && isPythonLike(lang)) {
			return false
		}
	}
	return true
}

var (
	inlineEmptyCatch = regexp.MustCompile(`\bcatch\s*(?:\([^)]*\))?\s*\{\s*\}`)
	catchOpen        = regexp.MustCompile(`\bcatch\s*(?:\([^)]*\))?\s*\{\s*$`)
	pyExceptHeader   = regexp.MustCompile(`^\s*except\b.*:\s*$`)
)

func emptyCatchRule() Rule {
	r := Rule{
		ID:          "empty-catch",
		Name:        "Swallowed exception",
		Description: "An empty catch/except block hides errors.",
		Severity:    SeverityWarning,
		Category:    CategoryLogic,
		Languages:   []Language{LanguageJavaScript, LanguageTypeScript, LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		report := func(line int) {
			results = append(results, r.result(line, 1,
				"Empty error handler swallows the exception",
				"When an error is caught and ignored, the program keeps running in a broken state and the cause is lost.",
				"Log the error or handle it; re-raise it if this code cannot recover."))
		}
		for i, line := range src.clean {
			if isPythonLike(opts.Language) {
				if !pyExceptHeader.MatchString(line) {
					continue
				}
				if next := src.nextCodeLine(i); next >= 0 && strings.TrimSpace(src.clean[next]) == "pass" {
					report(i + 1)
				}
				continue
			}
			if inlineEmptyCatch.MatchString(line) {
				report(i + 1)
				continue
			}
			if catchOpen.MatchString(line) {
				if next := src.nextCodeLine(i); next >= 0 && strings.HasPrefix(strings.TrimSpace(src.clean[next]), "}") {
					report(i + 1)
				}
			}
		}
		return results
	}
	return r
}

var mutableDefault = regexp.MustCompile(`^\s*def\s+\w+\s*\(.*=\s*(?:\[\s*\]|\{\s*\}|list\(\)|dict\(\)|set\(\))`)

func pythonMutableDefaultRule() Rule {
	r := Rule{
		ID:          "py-mutable-default",
		Name:        "Mutable default argument",
		Description: "Default values are evaluated once and shared between calls.",
		Severity:    SeverityWarning,
		Category:    CategoryLogic,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.raw {
			if mutableDefault.MatchString(src.clean[i]) || mutableDefault.MatchString(line) {
				results = append(results, r.result(i+1, 1,
					"Mutable default argument",
					"The list or dict is created once when the function is defined, so changes leak into later calls.",
					"Default to None and create the list or dict inside the function."))
			}
		}
		return results
	}
	return r
}

var varKeyword = regexp.MustCompile(`\bvar\s+`)

func varDeclarationRule() Rule {
	r := Rule{
		ID:          "js-no-var",
		Name:        "var declaration",
		Description: "var is function-scoped and hoisted.",
		Severity:    SeverityWarning,
		Category:    CategoryBestPractice,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, loc := range varKeyword.FindAllStringIndex(line, -1) {
				res := r.result(i+1, loc[0]+1,
					"Use 'let' or 'const' instead of 'var'",
					"'var' ignores block scope, so a variable declared inside a loop or if is visible outside it.",
					"Use 'const' for values that never change and 'let' otherwise.")
				res.Edit = &Edit{Line: i + 1, StartColumn: loc[0] + 1, EndColumn: loc[0] + 4, NewText: "let"}
				results = append(results, res)
			}
		}
		return results
	}
	return r
}

var consoleLog = regexp.MustCompile(`\bconsole\.log\s*\(`)

func consoleLogRule() Rule {
	r := Rule{
		ID:          "js-console-log",
		Name:        "console.log call",
		Description: "Debug output left in code.",
		Severity:    SeverityInfo,
		Category:    CategoryBestPractice,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, loc := range consoleLog.FindAllStringIndex(line, -1) {
				results = append(results, r.result(i+1, loc[0]+1,
					"Remove console.log before shipping",
					"console.log is handy while debugging, but it clutters output for users of the finished program.",
					"Delete the call once you are done debugging, or use a proper logger."))
			}
		}
		return results
	}
	return r
}

var declaration = regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)`)

func unusedVariableRule() Rule {
	r := Rule{
		ID:          "js-unused-variable",
		Name:        "Unused variable",
		Description: "A variable is declared but never referenced.",
		Severity:    SeverityInfo,
		Category:    CategoryBestPractice,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		joined := strings.Join(src.clean, "\n")
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, m := range declaration.FindAllStringSubmatchIndex(line, -1) {
				name := line[m[2]:m[3]]
				if countIdentifier(joined, name) > 1 {
					continue
				}
				results = append(results, r.result(i+1, m[2]+1,
					fmt.Sprintf("'%s' is declared but never used", name),
					"Unused variables make code harder to read and can hide typos in the name you meant to use.",
					fmt.Sprintf("Remove '%s' or use it.", name)))
			}
		}
		return results
	}
	return r
}

func countIdentifier(text, name string) int {
	n := 0
	for i := 0; ; {
		idx := strings.Index(text[i:], name)
		if idx < 0 {
			return n
		}
		start, end := i+idx, i+idx+len(name)
		before := start == 0 || !isIdentByte(text[start-1]) && text[start-1] != '.'
		after := end == len(text) || !isIdentByte(text[end])
		if before && after {
			n++
		}
		i = end
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

var bareExcept = regexp.MustCompile(`^\s*except\s*:`)

func pythonBareExceptRule() Rule {
	r := Rule{
		ID:          "py-bare-except",
		Name:        "Bare except",
		Description: "except: catches every exception, including KeyboardInterrupt.",
		Severity:    SeverityWarning,
		Category:    CategoryBestPractice,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			if bareExcept.MatchString(line) {
				results = append(results, r.result(i+1, indentWidth(line)+1,
					"Avoid bare 'except:'",
					"A bare except also catches SystemExit and KeyboardInterrupt, which makes programs hard to stop.",
					"Catch the specific exception, for example 'except ValueError:'."))
			}
		}
		return results
	}
	return r
}

var todoMarker = regexp.MustCompile(`\b(TODO|FIXME|XXX)\b`)

func todoCommentRule() Rule {
	r := Rule{
		ID:          "todo-comment",
		Name:        "TODO comment",
		Description: "Unfinished work marked in a comment.",
		Severity:    SeverityInfo,
		Category:    CategoryBestPractice,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		var results []AnalysisResult
		for i, line := range splitLines(code) {
			if loc := todoMarker.FindStringSubmatchIndex(line); loc != nil {
				marker := line[loc[2]:loc[3]]
				results = append(results, r.result(i+1, loc[2]+1,
					fmt.Sprintf("Unfinished work marked with %s", marker),
					"Markers like this are easy to forget once the code seems to work.",
					"Finish the work or note why it can wait."))
			}
		}
		return results
	}
	return r
}
