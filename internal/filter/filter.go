// Package filter decides whether a chat message belongs to the supported
// topic. A Ruleset is immutable once built and safe for concurrent use.
package filter

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// document is the YAML shape of a ruleset file.
type document struct {
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// Ruleset holds lower-cased keywords and ordered, case-insensitive patterns.
type Ruleset struct {
	keywords []string
	patterns []*regexp.Regexp
}

// New builds a Ruleset. Keywords must be non-empty after trimming and every
// pattern must compile.
func New(keywords, patterns []string) (*Ruleset, error) {
	r := &Ruleset{
		keywords: make([]string, 0, len(keywords)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for i, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, fmt.Errorf("filter: keyword %d is empty", i)
		}
		r.keywords = append(r.keywords, k)
	}
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("filter: pattern %d is empty", i)
		}
		rx, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("filter: compile pattern %d: %w", i, err)
		}
		r.patterns = append(r.patterns, rx)
	}
	if len(r.keywords) == 0 && len(r.patterns) == 0 {
		return nil, errors.New("filter: ruleset has no keywords or patterns")
	}
	return r, nil
}

// Parse builds a Ruleset from a YAML document.
func Parse(raw []byte) (*Ruleset, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("filter: decode rules: %w", err)
	}
	return New(doc.Keywords, doc.Patterns)
}

// Load reads a YAML ruleset file.
func Load(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filter: read rules: %w", err)
	}
	return Parse(raw)
}

var defaultRuleset = sync.OnceValue(func() *Ruleset {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the built-in Saudi tourism ruleset.
func Default() *Ruleset {
	return defaultRuleset()
}

// IsAllowed reports whether text mentions the supported topic. Keywords are
// checked first against the lower-cased text, then patterns against the text
// as given.
func (r *Ruleset) IsAllowed(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, rx := range r.patterns {
		if rx.MatchString(text) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the normalized keyword list.
func (r *Ruleset) Keywords() []string {
	return append([]string(nil), r.keywords...)
}
