package analysis

import (
	"regexp"
	"strings"
)

// patternCheck is one independent idiom detector.
type patternCheck struct {
	name        string
	description string
	confidence  float64
	languages   []Language
	match       func(code string) bool
}

func (p patternCheck) appliesTo(lang Language) bool {
	return Rule{Languages: p.languages}.AppliesTo(lang)
}

func matchesAll(res ...*regexp.Regexp) func(string) bool {
	return func(code string) bool {
		for _, re := range res {
			if !re.MatchString(code) {
				return false
			}
		}
		return true
	}
}

func matchesAny(res ...*regexp.Regexp) func(string) bool {
	return func(code string) bool {
		for _, re := range res {
			if re.MatchString(code) {
				return true
			}
		}
		return false
	}
}

var patternChecks = []patternCheck{
	{
		name:        "Constructor Pattern",
		description: "Objects are initialized through a constructor.",
		confidence:  0.8,
		languages:   jsFamily,
		match: matchesAny(
			regexp.MustCompile(`\bconstructor\s*\(`),
			regexp.MustCompile(`(?s)\bfunction\s+[A-Z]\w*\s*\(.*\bthis\.`),
		),
	},
	{
		name:        "Constructor Pattern",
		description: "Objects are initialized through __init__.",
		confidence:  0.8,
		languages:   []Language{LanguagePython},
		match:       matchesAll(regexp.MustCompile(`\bdef\s+__init__\s*\(`)),
	},
	{
		name:        "Factory Pattern",
		description: "A function creates and returns new objects.",
		confidence:  0.7,
		match: matchesAll(
			regexp.MustCompile(`\b(?:create|make|build)(?:[A-Z_]\w*)?\s*\(`),
			regexp.MustCompile(`\breturn\b`),
		),
	},
	{
		name:        "Observer Pattern",
		description: "Listeners subscribe to events and are notified when they fire.",
		confidence:  0.75,
		match: matchesAny(
			regexp.MustCompile(`\baddEventListener\s*\(`),
			regexp.MustCompile(`\.(?:subscribe|on|emit|notify)\s*\(`),
		),
	},
	{
		name:        "Module Pattern",
		description: "An immediately invoked function keeps its variables private.",
		confidence:  0.7,
		languages:   jsFamily,
		match:       matchesAll(regexp.MustCompile(`\(\s*(?:function\b|\([^)]*\)\s*=>)[\s\S]*\}\s*\)\s*\(\s*\)`)),
	},
	{
		name:        "Modern Declarations",
		description: "Variables are declared with const and let instead of var.",
		confidence:  0.9,
		languages:   jsFamily,
		match:       matchesAny(regexp.MustCompile(`\b(?:const|let)\s+`)),
	},
	{
		name:        "Arrow Functions",
		description: "Functions are written with the concise => syntax.",
		confidence:  0.95,
		languages:   jsFamily,
		match:       func(code string) bool { return strings.Contains(code, "=>") },
	},
	{
		name:        "Async/Await",
		description: "Asynchronous code is written with async and await.",
		confidence:  0.9,
		languages:   []Language{LanguageJavaScript, LanguageTypeScript, LanguagePython},
		match:       matchesAll(regexp.MustCompile(`\basync\b`), regexp.MustCompile(`\bawait\b`)),
	},
	{
		name:        "Promise Chaining",
		description: "Asynchronous steps are chained with then and catch.",
		confidence:  0.8,
		languages:   jsFamily,
		match:       matchesAny(regexp.MustCompile(`\.then\s*\(`)),
	},
	{
		name:        "Destructuring",
		description: "Values are unpacked from objects or arrays in one step.",
		confidence:  0.85,
		languages:   jsFamily,
		match:       matchesAny(regexp.MustCompile(`\b(?:const|let|var)\s*[{\[]`)),
	},
	{
		name:        "Template Literals",
		description: "Strings are built with backtick templates.",
		confidence:  0.9,
		languages:   jsFamily,
		match:       matchesAny(regexp.MustCompile("`[^`]*\\$\\{[^`]*`")),
	},
	{
		name:        "List Comprehension",
		description: "Lists are built with a comprehension instead of a loop.",
		confidence:  0.9,
		languages:   []Language{LanguagePython},
		match:       matchesAny(regexp.MustCompile(`\[[^\[\]]+\bfor\b[^\[\]]+\bin\b[^\[\]]+\]`)),
	},
	{
		name:        "Context Manager",
		description: "Resources are managed with a with statement.",
		confidence:  0.85,
		languages:   []Language{LanguagePython},
		match:       matchesAny(regexp.MustCompile(`(?m)^\s*(?:async\s+)?with\s+.+:`)),
	},
	{
		name:        "Decorator",
		description: "Functions are wrapped with decorators.",
		confidence:  0.8,
		languages:   []Language{LanguagePython, LanguageTypeScript},
		match:       matchesAny(regexp.MustCompile(`(?m)^\s*@\w+`)),
	},
}

// DetectPatterns runs every pattern check that applies to lang. Checks are
// independent, so several patterns can be reported for the same snippet.
func DetectPatterns(code string, lang Language) []DetectedPattern {
	patterns := []DetectedPattern{}
	if strings.TrimSpace(code) == "" {
		return patterns
	}
	for _, p := range patternChecks {
		if !p.appliesTo(lang) || !p.match(code) {
			continue
		}
		patterns = append(patterns, DetectedPattern{
			Name:        p.name,
			Description: p.description,
			Confidence:  p.confidence,
		})
	}
	return patterns
}
