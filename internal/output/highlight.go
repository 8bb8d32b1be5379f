package output

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// HighlightStyle is the chroma style used for snippets.
const HighlightStyle = "monokai"

// Highlight renders code with terminal syntax highlighting. With color
// disabled, or when highlighting fails, the code is returned unchanged.
func Highlight(code, language string) string {
	if noColor || code == "" {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iter, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var sb strings.Builder
	if err := formatters.Get("terminal256").Format(&sb, styles.Get(HighlightStyle), iter); err != nil {
		return code
	}
	return sb.String()
}

// NumberLines prefixes each line with its 1-based number.
func NumberLines(code string) string {
	lines := strings.Split(code, "\n")
	width := len(strconv.Itoa(len(lines)))
	var sb strings.Builder
	for i, line := range lines {
		n := strconv.Itoa(i + 1)
		sb.WriteString(StyleMuted.Render(strings.Repeat(" ", width-len(n)) + n))
		sb.WriteString(" │ ")
		sb.WriteString(line)
		if i < len(lines)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
