package analysis

import (
	"regexp"
	"strings"
)

// source is a snippet split into lines, with a "clean" copy in which comments
// and the contents of string literals are blanked out. Byte offsets are kept
// identical between raw and clean so columns can be reported from either.
type source struct {
	raw   []string
	clean []string
	// unterminated holds the opening position of single-line string literals
	// that reach the end of their line without a closing quote.
	unterminated []Position
}

func splitLines(code string) []string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.Split(code, "\n")
}

func isPythonLike(lang Language) bool {
	return lang == LanguagePython
}

func isJSLike(lang Language) bool {
	return lang == LanguageJavaScript || lang == LanguageTypeScript
}

func parseSource(code string, lang Language) source {
	raw := splitLines(code)
	src := source{raw: raw, clean: make([]string, len(raw))}
	py := isPythonLike(lang)

	var inBlockComment, inTemplate bool
	var triple string

	for i, line := range raw {
		b := []byte(line)
		for j := 0; j < len(b); j++ {
			switch {
			case inBlockComment:
				if b[j] == '*' && j+1 < len(b) && b[j+1] == '/' {
					b[j], b[j+1] = ' ', ' '
					j++
					inBlockComment = false
					continue
				}
				b[j] = ' '
			case inTemplate:
				if b[j] == '\\' && j+1 < len(b) {
					b[j], b[j+1] = ' ', ' '
					j++
					continue
				}
				if b[j] == '`' {
					inTemplate = false
					continue
				}
				b[j] = ' '
			case triple != "":
				if strings.HasPrefix(line[j:], triple) {
					j += 2
					triple = ""
					continue
				}
				b[j] = ' '
			default:
				c := b[j]
				next := byte(0)
				if j+1 < len(b) {
					next = b[j+1]
				}
				switch {
				case !py && c == '/' && next == '/', py && c == '#':
					blank(b, j)
					j = len(b)
				case !py && c == '/' && next == '*':
					b[j], b[j+1] = ' ', ' '
					j++
					inBlockComment = true
				case py && (c == '"' || c == '\'') && (strings.HasPrefix(line[j:], `"""`) || strings.HasPrefix(line[j:], `'''`)):
					triple = line[j : j+3]
					j += 2
				case !py && c == '`':
					inTemplate = true
				case c == '"' || c == '\'':
					k := j + 1
					closed := false
					for k < len(b) {
						if b[k] == '\\' {
							b[k] = ' '
							if k+1 < len(b) {
								b[k+1] = ' '
							}
							k += 2
							continue
						}
						if b[k] == c {
							closed = true
							break
						}
						b[k] = ' '
						k++
					}
					if !closed {
						src.unterminated = append(src.unterminated, Position{Line: i + 1, Column: j + 1})
						j = len(b)
						continue
					}
					j = k
				}
			}
		}
		src.clean[i] = string(b)
	}
	return src
}

func blank(b []byte, from int) {
	for k := from; k < len(b); k++ {
		b[k] = ' '
	}
}

// nextCodeLine returns the index of the first non-blank clean line after i,
// or -1.
func (s source) nextCodeLine(i int) int {
	for j := i + 1; j < len(s.clean); j++ {
		if strings.TrimSpace(s.clean[j]) != "" {
			return j
		}
	}
	return -1
}

// nonEmptyLines counts lines with any non-whitespace content.
func nonEmptyLines(code string) int {
	n := 0
	for _, l := range splitLines(code) {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// wordPattern matches any of words as whole words.
func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var (
	jsLoopHeader = regexp.MustCompile(`^\s*(?:for|while|do)\b`)
	pyLoopHeader = regexp.MustCompile(`^\s*(?:async\s+)?(?:for|while)\b`)
)

// loopNesting reports, for every line, how many loops enclose it. A loop
// header line is counted against the loops that enclose the header, not
// itself. Nesting is inferred from indentation.
func loopNesting(src source, lang Language) (depth []int, header []bool) {
	depth = make([]int, len(src.clean))
	header = make([]bool, len(src.clean))
	var open []int // indentation of each open loop header

	loopRe := jsLoopHeader
	if isPythonLike(lang) {
		loopRe = pyLoopHeader
	}

	for i, line := range src.clean {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			depth[i] = len(open)
			continue
		}
		ind := indentWidth(line)
		for len(open) > 0 && open[len(open)-1] >= ind {
			open = open[:len(open)-1]
		}
		depth[i] = len(open)
		if !loopRe.MatchString(line) {
			continue
		}
		header[i] = true
		if loopOpensBody(trimmed, lang) {
			open = append(open, ind)
		}
	}
	return depth, header
}

func loopOpensBody(trimmed string, lang Language) bool {
	if isPythonLike(lang) {
		return strings.HasSuffix(trimmed, ":")
	}
	if strings.Count(trimmed, "{") > strings.Count(trimmed, "}") {
		return true
	}
	return strings.HasSuffix(trimmed, ")") || strings.HasSuffix(trimmed, "do")
}
