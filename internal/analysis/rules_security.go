package analysis

import (
	"regexp"
)

func securityRules() []Rule {
	return []Rule{
		jsEvalRule(),
		pythonEvalRule(),
		jsInnerHTMLRule(),
		jsDocumentWriteRule(),
		pythonShellRule(),
		hardcodedSecretRule(),
		sqlConcatRule(),
	}
}

// patternRule builds a rule that reports every match of re on the comment-
// and string-free view of each line.
func patternRule(r Rule, re *regexp.Regexp, message, explanation, suggestion string) Rule {
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				results = append(results, r.result(i+1, loc[0]+1, message, explanation, suggestion))
			}
		}
		return results
	}
	return r
}

// rawPatternRule is patternRule over the unmodified lines, for patterns
// that need to see string contents.
func rawPatternRule(r Rule, re *regexp.Regexp, message, explanation, suggestion string) Rule {
	r.Check = func(code string, opts Options) []AnalysisResult {
		var results []AnalysisResult
		for i, line := range splitLines(code) {
			if loc := re.FindStringIndex(line); loc != nil {
				results = append(results, r.result(i+1, loc[0]+1, message, explanation, suggestion))
			}
		}
		return results
	}
	return r
}

func jsEvalRule() Rule {
	return patternRule(Rule{
		ID:          "js-eval-usage",
		Name:        "eval",
		Description: "eval runs arbitrary strings as code.",
		Severity:    SeverityError,
		Category:    CategorySecurity,
		Languages:   jsFamily,
	}, regexp.MustCompile(`\beval\s*\(`),
		"Avoid eval()",
		"eval executes any string as code. If any part of that string comes from a user, they can run whatever they like.",
		"Parse data with JSON.parse, or use a lookup table of functions instead of building code as text.")
}

func pythonEvalRule() Rule {
	return patternRule(Rule{
		ID:          "py-eval-usage",
		Name:        "eval/exec",
		Description: "eval and exec run arbitrary strings as code.",
		Severity:    SeverityError,
		Category:    CategorySecurity,
		Languages:   []Language{LanguagePython},
	}, regexp.MustCompile(`(?:^|[^.\w])(?:eval|exec)\s*\(`),
		"Avoid eval() and exec()",
		"These functions execute any string as Python code, so untrusted input becomes a way to run arbitrary commands.",
		"Use ast.literal_eval for literals, or int()/float() to convert numbers.")
}

func jsInnerHTMLRule() Rule {
	return patternRule(Rule{
		ID:          "js-inner-html",
		Name:        "innerHTML assignment",
		Description: "Assigning HTML strings can inject scripts.",
		Severity:    SeverityWarning,
		Category:    CategorySecurity,
		Languages:   jsFamily,
	}, regexp.MustCompile(`\.(?:innerHTML|outerHTML)\s*\+?=[^=]`),
		"Assigning to innerHTML can allow script injection",
		"If the HTML contains user input, a crafted value can add script tags or event handlers to the page.",
		"Use textContent for plain text, or build elements with document.createElement.")
}

func jsDocumentWriteRule() Rule {
	return patternRule(Rule{
		ID:          "js-document-write",
		Name:        "document.write",
		Description: "document.write injects raw HTML.",
		Severity:    SeverityWarning,
		Category:    CategorySecurity,
		Languages:   jsFamily,
	}, regexp.MustCompile(`\bdocument\.write(?:ln)?\s*\(`),
		"Avoid document.write()",
		"document.write inserts raw HTML and replaces the whole page if called after it has loaded.",
		"Create elements with the DOM API and append them instead.")
}

func pythonShellRule() Rule {
	return patternRule(Rule{
		ID:          "py-shell-injection",
		Name:        "Shell command",
		Description: "Running commands through a shell allows injection.",
		Severity:    SeverityWarning,
		Category:    CategorySecurity,
		Languages:   []Language{LanguagePython},
	}, regexp.MustCompile(`\bos\.system\s*\(|\bsubprocess\.\w+\(.*shell\s*=\s*True`),
		"Shell command built from a string",
		"When a command runs through the shell, characters such as ; and | in user input start new commands.",
		"Call subprocess.run with a list of arguments and shell=False.")
}

func hardcodedSecretRule() Rule {
	return rawPatternRule(Rule{
		ID:          "hardcoded-secret",
		Name:        "Hardcoded secret",
		Description: "Credentials written directly in source code.",
		Severity:    SeverityWarning,
		Category:    CategorySecurity,
	}, regexp.MustCompile(`(?i)\b\w*(?:password|passwd|secret|api_?key|access_?key|token)\w*["']?\s*[:=]\s*["'][^"']{4,}["']`),
		"Possible hardcoded secret",
		"Anyone who can read the code, including everyone with access to the repository history, can read this value.",
		"Load secrets from environment variables or a secrets manager.")
}

func sqlConcatRule() Rule {
	return rawPatternRule(Rule{
		ID:          "sql-string-concat",
		Name:        "SQL built by concatenation",
		Description: "Building SQL from strings allows injection.",
		Severity:    SeverityWarning,
		Category:    CategorySecurity,
	}, regexp.MustCompile(`(?i)["'` + "`" + `]\s*(?:select|insert|update|delete)\b[^"'` + "`" + `]*["'` + "`" + `]\s*\+`),
		"SQL query built with string concatenation",
		"If a concatenated value comes from a user, it can change the meaning of the query (SQL injection).",
		"Use parameterized queries and pass values separately.")
}
