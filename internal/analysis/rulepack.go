package analysis

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidRulePack is returned when a rule pack entry cannot be compiled.
var ErrInvalidRulePack = errors.New("invalid rule pack")

// rulePackFile is the on-disk shape of a rule pack:
//
//	[[rule]]
//	id = "no-alert"
//	severity = "warning"
//	category = "best-practice"
//	languages = ["javascript"]
//	pattern = '\balert\s*\('
//	message = "Avoid alert()"
type rulePackFile struct {
	Rules []rulePackEntry `toml:"rule"`
}

type rulePackEntry struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Severity    string   `toml:"severity"`
	Category    string   `toml:"category"`
	Languages   []string `toml:"languages"`
	Pattern     string   `toml:"pattern"`
	Message     string   `toml:"message"`
	Explanation string   `toml:"explanation"`
	Fix         string   `toml:"fix"`
}

// LoadRulePack reads a TOML rule pack and compiles its entries into rules.
func LoadRulePack(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule pack %s: %w", path, err)
	}
	rules, err := ParseRulePack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRulePack compiles TOML rule pack data. Every entry is validated;
// the first bad entry fails the whole pack.
func ParseRulePack(data []byte) ([]Rule, error) {
	var pack rulePackFile
	if err := toml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRulePack, err)
	}
	seen := make(map[string]bool, len(pack.Rules))
	rules := make([]Rule, 0, len(pack.Rules))
	for i, entry := range pack.Rules {
		rule, err := entry.compile()
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRulePack, i+1, entry.ID, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRulePack, rule.ID)
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

func (p rulePackEntry) compile() (Rule, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Rule{}, errors.New("missing id")
	}
	if p.Message == "" {
		return Rule{}, errors.New("missing message")
	}
	sev, ok := ParseSeverity(p.Severity)
	if !ok {
		return Rule{}, fmt.Errorf("unknown severity %q", p.Severity)
	}
	cat, ok := ParseCategory(p.Category)
	if !ok {
		return Rule{}, fmt.Errorf("unknown category %q", p.Category)
	}
	if p.Pattern == "" {
		return Rule{}, errors.New("missing pattern")
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("bad pattern: %w", err)
	}

	var langs []Language
	for _, l := range p.Languages {
		langs = append(langs, NormalizeLanguage(l))
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return patternRule(Rule{
		ID:          p.ID,
		Name:        name,
		Description: p.Description,
		Severity:    sev,
		Category:    cat,
		Languages:   langs,
	}, re, p.Message, p.Explanation, p.Fix), nil
}
