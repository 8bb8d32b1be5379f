package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

func styleRules() []Rule {
	return []Rule{
		lineLengthRule(),
		trailingWhitespaceRule(),
		mixedIndentationRule(),
		jsNamingRule(),
		pythonNamingRule(),
	}
}

// maxLineLength is consulted per language; anything not listed uses the
// default.
var maxLineLength = map[Language]int{
	LanguagePython: 79,
}

const defaultMaxLineLength = 100

func lineLengthRule() Rule {
	r := Rule{
		ID:          "line-too-long",
		Name:        "Long line",
		Description: "Lines longer than the language's usual limit are hard to read.",
		Severity:    SeverityInfo,
		Category:    CategoryStyle,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		limit, ok := maxLineLength[opts.Language]
		if !ok {
			limit = defaultMaxLineLength
		}
		var results []AnalysisResult
		for i, line := range splitLines(code) {
			n := utf8.RuneCountInString(line)
			if n <= limit {
				continue
			}
			res := r.result(i+1, limit+1,
				fmt.Sprintf("Line is %d characters long (limit %d)", n, limit),
				"Long lines force horizontal scrolling and are harder to review side by side.",
				"Split the expression over several lines or extract part of it into a variable.")
			res.End = &Position{Line: i + 1, Column: n + 1}
			results = append(results, res)
		}
		return results
	}
	return r
}

func trailingWhitespaceRule() Rule {
	r := Rule{
		ID:          "trailing-whitespace",
		Name:        "Trailing whitespace",
		Description: "Whitespace at the end of a line.",
		Severity:    SeverityInfo,
		Category:    CategoryStyle,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		var results []AnalysisResult
		for i, line := range splitLines(code) {
			trimmed := strings.TrimRight(line, " \t")
			if trimmed == line || strings.TrimSpace(line) == "" {
				continue
			}
			res := r.result(i+1, len(trimmed)+1,
				"Trailing whitespace",
				"Invisible spaces at the end of lines show up as noise in diffs.",
				"Delete the spaces at the end of the line.")
			res.Edit = &Edit{Line: i + 1, StartColumn: len(trimmed) + 1, EndColumn: len(line) + 1, NewText: ""}
			results = append(results, res)
		}
		return results
	}
	return r
}

func mixedIndentationRule() Rule {
	r := Rule{
		ID:          "mixed-indentation",
		Name:        "Mixed indentation",
		Description: "Tabs and spaces mixed in one line's indentation.",
		Severity:    SeverityWarning,
		Category:    CategoryStyle,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		var results []AnalysisResult
		for i, line := range splitLines(code) {
			lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			if !strings.Contains(lead, " ") || !strings.Contains(lead, "\t") {
				continue
			}
			explanation := "Editors display tabs at different widths, so mixed indentation looks different for everyone."
			if isPythonLike(opts.Language) {
				explanation = "Python decides block structure from indentation; mixing tabs and spaces can raise a TabError."
			}
			results = append(results, r.result(i+1, 1,
				"Indentation mixes tabs and spaces",
				explanation,
				"Indent with spaces only."))
		}
		return results
	}
	return r
}

var (
	snakeCase     = regexp.MustCompile(`^[a-z][a-z0-9]*(?:_[a-z0-9]+)+$`)
	camelCase     = regexp.MustCompile(`^[a-z]+[A-Z][A-Za-z0-9]*$`)
	pyFunctionDef = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyClassDef    = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`)
)

func jsNamingRule() Rule {
	r := Rule{
		ID:          "js-naming-convention",
		Name:        "Naming convention",
		Description: "JavaScript variables use camelCase.",
		Severity:    SeverityInfo,
		Category:    CategoryStyle,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, m := range declaration.FindAllStringSubmatchIndex(line, -1) {
				name := line[m[2]:m[3]]
				if !snakeCase.MatchString(name) {
					continue
				}
				results = append(results, r.result(i+1, m[2]+1,
					fmt.Sprintf("'%s' should be written in camelCase", name),
					"Most JavaScript code names variables in camelCase, so snake_case stands out.",
					fmt.Sprintf("Rename it to '%s'.", toCamel(name))))
			}
		}
		return results
	}
	return r
}

func pythonNamingRule() Rule {
	r := Rule{
		ID:          "py-naming-convention",
		Name:        "Naming convention",
		Description: "Python functions use snake_case and classes use PascalCase.",
		Severity:    SeverityInfo,
		Category:    CategoryStyle,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			if m := pyFunctionDef.FindStringSubmatchIndex(line); m != nil {
				name := line[m[2]:m[3]]
				if camelCase.MatchString(name) {
					results = append(results, r.result(i+1, m[2]+1,
						fmt.Sprintf("Function '%s' should be written in snake_case", name),
						"PEP 8 names functions in lowercase words separated by underscores.",
						fmt.Sprintf("Rename it to '%s'.", toSnake(name))))
				}
			}
			if m := pyClassDef.FindStringSubmatchIndex(line); m != nil {
				name := line[m[2]:m[3]]
				if name[0] >= 'a' && name[0] <= 'z' {
					results = append(results, r.result(i+1, m[2]+1,
						fmt.Sprintf("Class '%s' should be written in PascalCase", name),
						"PEP 8 capitalizes every word of a class name.",
						fmt.Sprintf("Rename it to '%s'.", strings.ToUpper(name[:1])+toCamel(name)[1:])))
				}
			}
		}
		return results
	}
	return r
}

func toCamel(name string) string {
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func toSnake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
