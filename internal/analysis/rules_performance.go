package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

func performanceRules() []Rule {
	return []Rule{
		nestedLoopRule(),
		stringConcatInLoopRule(),
		domQueryInLoopRule(),
		pythonRangeLenRule(),
	}
}

func nestedLoopRule() Rule {
	r := Rule{
		ID:          "nested-loops",
		Name:        "Nested loops",
		Description: "A loop inside another loop multiplies the work done.",
		Severity:    SeverityWarning,
		Category:    CategoryPerformance,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		depth, header := loopNesting(src, opts.Language)
		var results []AnalysisResult
		for i := range src.clean {
			if !header[i] || depth[i] == 0 {
				continue
			}
			results = append(results, r.result(i+1, indentWidth(src.raw[i])+1,
				fmt.Sprintf("Nested loop (depth %d)", depth[i]+1),
				"Each level of nesting multiplies the number of iterations; two nested loops over n items run n² times.",
				"Look up items in a map or set built beforehand instead of scanning with an inner loop."))
		}
		return results
	}
	return r
}

var stringAppend = regexp.MustCompile("\\+=\\s*[\"'`]|\\w+\\s*=\\s*\\w+\\s*\\+\\s*[\"'`]")

func stringConcatInLoopRule() Rule {
	r := Rule{
		ID:          "string-concat-in-loop",
		Name:        "String concatenation in loop",
		Description: "Building a string piece by piece inside a loop copies it on every iteration.",
		Severity:    SeverityInfo,
		Category:    CategoryPerformance,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		depth, header := loopNesting(src, opts.Language)
		improvement := "Collect the parts in an array and join them once after the loop."
		if isPythonLike(opts.Language) {
			improvement = "Collect the parts in a list and call ''.join(parts) after the loop."
		}
		var results []AnalysisResult
		for i, line := range src.clean {
			inLoop := depth[i] > 0 || header[i] && strings.Contains(line, "{")
			if !inLoop {
				continue
			}
			if loc := stringAppend.FindStringIndex(line); loc != nil {
				results = append(results, r.result(i+1, loc[0]+1,
					"String built by concatenation inside a loop",
					"Strings are immutable, so each += creates a new copy of everything built so far.",
					improvement))
			}
		}
		return results
	}
	return r
}

var domQuery = regexp.MustCompile(`\bdocument\.(?:querySelector(?:All)?|getElementById|getElementsBy\w+)\s*\(`)

func domQueryInLoopRule() Rule {
	r := Rule{
		ID:          "js-dom-query-in-loop",
		Name:        "DOM query in loop",
		Description: "Querying the DOM on every iteration is slow.",
		Severity:    SeverityWarning,
		Category:    CategoryPerformance,
		Languages:   jsFamily,
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		depth, _ := loopNesting(src, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			if depth[i] == 0 {
				continue
			}
			if loc := domQuery.FindStringIndex(line); loc != nil {
				results = append(results, r.result(i+1, loc[0]+1,
					"DOM lookup inside a loop",
					"The browser searches the document again on every iteration even though the result rarely changes.",
					"Look the element up once before the loop and reuse it."))
			}
		}
		return results
	}
	return r
}

var rangeLen = regexp.MustCompile(`\bfor\s+\w+\s+in\s+range\s*\(\s*len\s*\(`)

func pythonRangeLenRule() Rule {
	r := Rule{
		ID:          "py-range-len",
		Name:        "range(len(...)) loop",
		Description: "Iterating over indexes when the items are what is needed.",
		Severity:    SeverityInfo,
		Category:    CategoryPerformance,
		Languages:   []Language{LanguagePython},
	}
	r.Check = func(code string, opts Options) []AnalysisResult {
		src := parseSource(code, opts.Language)
		var results []AnalysisResult
		for i, line := range src.clean {
			if loc := rangeLen.FindStringIndex(line); loc != nil {
				results = append(results, r.result(i+1, loc[0]+1,
					"Loop over range(len(...))",
					"Indexing into the sequence on every step is slower and noisier than iterating over it directly.",
					"Use 'for item in items:' or 'for i, item in enumerate(items):'."))
			}
		}
		return results
	}
	return r
}
