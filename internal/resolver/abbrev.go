package resolver

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Scope restricts an abbreviation to producer text, wine-name text, or both.
type Scope string

const (
	ScopeProducer Scope = "producer"
	ScopeWine     Scope = "wine"
	ScopeBoth     Scope = "both"
)

// Abbreviation is one static expansion rule, e.g. "Ch." -> "Château".
type Abbreviation struct {
	Pattern   string `yaml:"pattern"`
	Expansion string `yaml:"expansion"`
	Scope     Scope  `yaml:"scope"`
	Priority  int    `yaml:"priority"`

	re *regexp.Regexp
}

//go:embed data/abbreviations.yaml
var defaultAbbreviationsYAML []byte

// Expander applies abbreviation expansions to label text. It is built once
// at startup and injected wherever expansion is needed; there is no hidden
// lazily-initialized global table.
type Expander struct {
	rules []Abbreviation
}

// DefaultAbbreviations parses the embedded reference table.
func DefaultAbbreviations() ([]Abbreviation, error) {
	var doc struct {
		Abbreviations []Abbreviation `yaml:"abbreviations"`
	}
	if err := yaml.Unmarshal(defaultAbbreviationsYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "resolver: parse abbreviation table")
	}
	return doc.Abbreviations, nil
}

// NewExpander compiles the rule set, ordered by priority then pattern
// length so longer and more specific patterns match first.
func NewExpander(rules []Abbreviation) (*Expander, error) {
	compiled := make([]Abbreviation, 0, len(rules))
	for _, r := range rules {
		if r.Pattern == "" || r.Expansion == "" {
			continue
		}
		if r.Scope == "" {
			r.Scope = ScopeBoth
		}
		re, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "resolver: compile abbreviation %q", r.Pattern)
		}
		r.re = re
		compiled = append(compiled, r)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Priority != compiled[j].Priority {
			return compiled[i].Priority > compiled[j].Priority
		}
		return len(compiled[i].Pattern) > len(compiled[j].Pattern)
	})

	return &Expander{rules: compiled}, nil
}

// compilePattern builds a case-insensitive, word-boundary-respecting
// matcher. A trailing non-word character in the pattern (the dot in "Ch.")
// is its own boundary.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	expr := `(?i)\b` + regexp.QuoteMeta(pattern)
	if last := pattern[len(pattern)-1]; isWordByte(last) {
		expr += `\b`
	}
	return regexp.Compile(expr)
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// Expand applies every rule whose scope matches, in order. Returns the
// expanded text and whether anything changed.
func (e *Expander) Expand(text string, scope Scope) (string, bool) {
	out := text
	for _, r := range e.rules {
		if r.Scope != ScopeBoth && r.Scope != scope {
			continue
		}
		out = r.re.ReplaceAllString(out, r.Expansion)
	}
	return out, !strings.EqualFold(out, text)
}
