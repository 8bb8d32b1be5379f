package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hbollon/go-edlib"
)

var jsFamily = []Language{LanguageJavaScript, LanguageTypeScript}

func syntaxRules() []Rule {
	return []Rule{
		unclosedBracketRule(),
		unterminatedStringRule(),
		missingSemicolonRule(),
		pythonMissingColonRule(),
		pythonIndentationRule(),
		keywordTypoRule(),
	}
}

var brackets = map[byte]byte{')': '(', ']': '[', '}': '{'}

type openBracket struct {
	char      byte
	line, col int
}

func unclosedBracketRule() Rule {
	r := Rule{
		ID:          "unclosed-bracket",
		Name:        "Unbalanced brackets",
		Description: "Every (, [ and { must be closed by the matching bracket.",
		Severity:    SeverityError,
		Category:    CategorySyntax,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		var stack []openBracket

		for i, line := range src.clean {
			for j := 0; j < len(line); j++ {
				c := line[j]
				switch c {
				case '(', '[', '{':
					stack = append(stack, openBracket{char: c, line: i + 1, col: j + 1})
				case ')', ']', '}':
					want := brackets[c]
					if len(stack) == 0 {
						results = append(results, r.result(i+1, j+1,
							fmt.Sprintf("Unexpected closing bracket '%c'", c),
							fmt.Sprintf("There is no open '%c' for this '%c' to close.", want, c),
							fmt.Sprintf("Remove the extra '%c' or add the missing '%c' before it.", c, want)))
						continue
					}
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					if top.char != want {
						results = append(results, r.result(i+1, j+1,
							fmt.Sprintf("Mismatched bracket: '%c' opened on line %d is closed by '%c'", top.char, top.line, c),
							"Brackets must be closed in the reverse order they were opened.",
							fmt.Sprintf("Close '%c' before closing '%c'.", top.char, want)))
					}
				}
			}
		}

		for _, open := range stack {
			results = append(results, r.result(open.line, open.col,
				fmt.Sprintf("Unclosed bracket '%c' opened on line %d", open.char, open.line),
				"The snippet ends before this bracket is closed, so everything after it is treated as part of the same block.",
				fmt.Sprintf("Add the matching '%c' where the block should end.", closerFor(open.char))))
		}
		return results
	}
	return r
}

func closerFor(open byte) byte {
	for closer, o := range brackets {
		if o == open {
			return closer
		}
	}
	return open
}

func unterminatedStringRule() Rule {
	r := Rule{
		ID:          "unterminated-string",
		Name:        "Unterminated string",
		Description: "String literals must be closed on the line where they start.",
		Severity:    SeverityError,
		Category:    CategorySyntax,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for _, pos := range src.unterminated {
			results = append(results, r.result(pos.Line, pos.Column,
				"Unterminated string literal",
				"A quote opens a string here but the line ends before the matching closing quote.",
				"Add the closing quote, or escape quotes that belong inside the string."))
		}
		return results
	}
	return r
}

var (
	semicolonExemptSuffixes = []string{"{", "}", ";", ",", "(", "[", ":", "=>", "&&", "||", "+", "-", "*", "/", "=", "?", ".", "|", "&"}
	semicolonExemptPrefix   = regexp.MustCompile(`^(?:if|for|while|else|switch|case|default|function|class|try|catch|finally|do|export\s+(?:default\s+)?(?:function|class)|async\s+function|interface|type\s+\w+\s*=\s*\{|enum)\b`)
	objectProperty          = regexp.MustCompile(`^[\w$"']+\s*:`)
)

func missingSemicolonRule() Rule {
	r := Rule{
		ID:          "js-missing-semicolon",
		Name:        "Missing semicolon",
		Description: "Statements should end with a semicolon.",
		Severity:    SeverityWarning,
		Category:    CategorySyntax,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || !needsSemicolon(trimmed) {
				continue
			}
			if next := src.nextCodeLine(i); next >= 0 {
				nt := strings.TrimSpace(src.clean[next])
				if strings.HasPrefix(nt, ".") || strings.HasPrefix(nt, ")") || strings.HasPrefix(nt, "]") ||
					strings.HasPrefix(nt, "?") || strings.HasPrefix(nt, "&&") || strings.HasPrefix(nt, "||") {
					continue
				}
			}
			col := len(strings.TrimRight(line, " \t")) + 1
			res := r.result(i+1, col,
				"Missing semicolon",
				"JavaScript inserts semicolons automatically, but relying on it can join statements in surprising ways.",
				fmt.Sprintf("Add ';' at the end of line %d.", i+1))
			res.Edit = &Edit{Line: i + 1, StartColumn: col, EndColumn: col, NewText: ";"}
			results = append(results, res)
		}
		return results
	}
	return r
}

func needsSemicolon(trimmed string) bool {
	for _, s := range semicolonExemptSuffixes {
		if strings.HasSuffix(trimmed, s) {
			return false
		}
	}
	switch trimmed[0] {
	case '}', ')', ']', '.', '@', '<':
		return false
	}
	if semicolonExemptPrefix.MatchString(trimmed) || objectProperty.MatchString(trimmed) {
		return false
	}
	return true
}

var (
	pyBlockHeader  = regexp.MustCompile(`^(?:async\s+)?(def|class|if|elif|for|while|except|with)\b|^(else|try|finally)\s*$`)
	pyBlockKeyword = regexp.MustCompile(`^(?:async\s+)?(?:def|class|if|elif|else|for|while|try|except|finally|with)\b`)
)

func pythonMissingColonRule() Rule {
	r := Rule{
		ID:          "py-missing-colon",
		Name:        "Missing colon",
		Description: "Python block statements must end with a colon.",
		Severity:    SeverityError,
		Category:    CategorySyntax,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			trimmed := strings.TrimSpace(line)
			m := pyBlockHeader.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			keyword := m[1]
			if keyword == "" {
				keyword = m[2]
			}
			if hasTopLevelColon(trimmed) || continuesOnNextLine(trimmed) {
				continue
			}
			col := len(strings.TrimRight(line, " \t")) + 1
			res := r.result(i+1, col,
				fmt.Sprintf("Missing colon after '%s' statement", keyword),
				"Python block statements such as def, if, for, while and class must end with ':' before the indented body.",
				fmt.Sprintf("Add ':' at the end of line %d.", i+1))
			res.Edit = &Edit{Line: i + 1, StartColumn: col, EndColumn: col, NewText: ":"}
			results = append(results, res)
		}
		return results
	}
	return r
}

func hasTopLevelColon(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func continuesOnNextLine(s string) bool {
	if strings.HasSuffix(s, "\\") || strings.HasSuffix(s, ",") {
		return true
	}
	return strings.Count(s, "(")+strings.Count(s, "[") > strings.Count(s, ")")+strings.Count(s, "]")
}

func pythonIndentationRule() Rule {
	r := Rule{
		ID:          "py-expected-indent",
		Name:        "Expected indented block",
		Description: "The line after a block header must be indented.",
		Severity:    SeverityError,
		Category:    CategorySyntax,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			trimmed := strings.TrimSpace(line)
			if !strings.HasSuffix(trimmed, ":") || !pyBlockKeyword.MatchString(trimmed) {
				continue
			}
			next := src.nextCodeLine(i)
			if next < 0 {
				results = append(results, r.result(i+1, 1,
					fmt.Sprintf("Expected an indented block after line %d", i+1),
					"A block header must be followed by at least one indented statement.",
					"Add an indented body, or 'pass' if the block is intentionally empty."))
				continue
			}
			if indentWidth(src.raw[next]) <= indentWidth(src.raw[i]) {
				results = append(results, r.result(next+1, 1,
					fmt.Sprintf("Expected an indented block after line %d", i+1),
					"Python uses indentation to decide which statements belong to a block.",
					"Indent the body of the block by four spaces."))
			}
		}
		return results
	}
	return r
}

var (
	jsKeywords = []string{
		"function", "return", "const", "class", "while", "switch", "typeof", "import",
		"export", "async", "await", "throw", "continue", "break", "default", "delete",
		"extends", "finally", "static", "yield", "else", "case", "catch",
	}
	pyKeywords = []string{
		"return", "class", "while", "import", "from", "elif", "else", "pass", "break",
		"continue", "lambda", "yield", "raise", "except", "finally", "global",
		"nonlocal", "assert", "async", "await", "print",
	}
	// keywords that may be directly followed by '('.
	parenKeywords = map[string]bool{"print": true, "while": true, "switch": true, "catch": true, "function": true}
	// keywords that may end a line or be followed by ':'.
	bareKeywords = map[string]bool{
		"else": true, "try": true, "finally": true, "pass": true,
		"break": true, "continue": true, "return": true, "default": true,
	}
	leadingWord = regexp.MustCompile(`^\s*([A-Za-z_]\w*)`)
)

const operatorChars = "=.+-*/%<>!&|?:,;)]}"

func keywordTypoRule() Rule {
	r := Rule{
		ID:          "keyword-typo",
		Name:        "Misspelled keyword",
		Description: "A statement starts with a word that is one edit away from a keyword.",
		Severity:    SeverityWarning,
		Category:    CategorySyntax,
		Languages:   []Language{LanguageJavaScript, LanguageTypeScript, LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		keywords := jsKeywords
		if isPythonLike(opts.Language) {
			keywords = pyKeywords
		}
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			loc := leadingWord.FindStringSubmatchIndex(line)
			if loc == nil {
				continue
			}
			word := line[loc[2]:loc[3]]
			if len(word) < 4 || containsString(keywords, word) {
				continue
			}
			rest := line[loc[3]:]
			for _, kw := range keywords {
				if len(kw) < 4 || !typoContext(kw, rest) {
					continue
				}
				if edlib.OSADamerauLevenshteinDistance(word, kw) != 1 {
					continue
				}
				res := r.result(i+1, loc[2]+1,
					fmt.Sprintf("'%s' looks like a misspelling of '%s'", word, kw),
					fmt.Sprintf("'%s' is not a keyword, so this line will not do what it looks like it does.", word),
					fmt.Sprintf("Did you mean '%s'?", kw))
				res.End = &Position{Line: i + 1, Column: loc[3] + 1}
				res.Edit = &Edit{Line: i + 1, StartColumn: loc[2] + 1, EndColumn: loc[3] + 1, NewText: kw}
				results = append(results, res)
				break
			}
		}
		return results
	}
	return r
}

// typoContext reports whether the text following a candidate word fits the
// way kw is normally used.
func typoContext(kw, rest string) bool {
	trimmed := strings.TrimLeft(rest, " \t")
	switch {
	case trimmed == "" || strings.HasPrefix(rest, ":"):
		return bareKeywords[kw]
	case strings.HasPrefix(rest, "("):
		return parenKeywords[kw]
	case len(trimmed) < len(rest):
		return !strings.ContainsRune(operatorChars, rune(trimmed[0]))
	default:
		return false
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
