package analysis

// CheckFunc examines a snippet and returns zero or more findings. It must be
// deterministic and must not mutate shared state.
type CheckFunc func(code string, opts Options) []AnalysisResult

// Rule is a named, severity-tagged, language-scoped check.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    Severity
	Category    Category
	// Languages restricts the rule; nil or empty means every language.
	Languages []Language
	Check     CheckFunc
}

// AppliesTo reports whether the rule runs for lang.
func (r Rule) AppliesTo(lang Language) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// result builds a finding stamped with the rule's id, severity and category.
func (r Rule) result(line, col int, message, explanation, suggestion string) AnalysisResult {
	return AnalysisResult{
		RuleID:      r.ID,
		Severity:    r.Severity,
		Category:    r.Category,
		Line:        line,
		Column:      col,
		Message:     message,
		Explanation: explanation,
		Suggestion:  suggestion,
	}
}

// RuleInfo is the serializable description of a rule.
type RuleInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Category    Category   `json:"category"`
	Languages   []Language `json:"languages"`
}

// Info describes the rule without its check.
func (r Rule) Info() RuleInfo {
	langs := make([]Language, len(r.Languages))
	copy(langs, r.Languages)
	return RuleInfo{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Severity:    r.Severity,
		Category:    r.Category,
		Languages:   langs,
	}
}

// Registry holds the rule set. It is populated once at construction and is
// read-only afterwards, so it can be shared by concurrent analyses.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a registry containing rules in the given order.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make([]Rule, len(rules))}
	copy(r.rules, rules)
	return r
}

// Rules returns a copy of every registered rule.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Lookup finds a rule by id.
func (r *Registry) Lookup(id string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// ApplicableRules returns the rules that run for lang, in registration order.
func (r *Registry) ApplicableRules(lang Language) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.AppliesTo(lang) {
			out = append(out, rule)
		}
	}
	return out
}

// ByCategory returns the rules for lang whose category is one of cats.
func (r *Registry) ByCategory(lang Language, cats ...Category) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if !rule.AppliesTo(lang) {
			continue
		}
		for _, c := range cats {
			if rule.Category == c {
				out = append(out, rule)
				break
			}
		}
	}
	return out
}

// BuiltinRules returns the default rule set.
func BuiltinRules() []Rule {
	var rules []Rule
	rules = append(rules, syntaxRules()...)
	rules = append(rules, logicRules()...)
	rules = append(rules, styleRules()...)
	rules = append(rules, performanceRules()...)
	rules = append(rules, securityRules()...)
	return rules
}
