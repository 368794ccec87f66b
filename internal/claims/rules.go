package claims

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule describes one commitment pattern as data: a set of first-person
// trigger phrases, the verbs they may bind to, and the date expressions that
// can follow. New languages or verb sets are config changes, not code.
type Rule struct {
	Triggers     []string `toml:"triggers"`
	Verbs        []string `toml:"verbs"`
	DateWords    []string `toml:"date_words"`
	DatePatterns []string `toml:"date_patterns"`
}

// DefaultRules returns the built-in English commitment rule.
func DefaultRules() []Rule {
	return []Rule{{
		Triggers: []string{"I", "we", "I'll", "we'll", "I will", "we will"},
		Verbs:    []string{"pay", "deliver", "send", "finish", "complete"},
		DateWords: []string{
			"today", "tomorrow",
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		},
		DatePatterns: []string{
			`\d{4}-\d{2}-\d{2}`,
			`\d{1,2}/\d{1,2}/\d{2,4}`,
		},
	}}
}

// Match is a single commitment hit: the bound verb and the due expression
// found after it, if any.
type Match struct {
	Verb string
	Due  string
}

type compiledRule struct {
	commit *regexp.Regexp
	due    *regexp.Regexp
}

// Matcher applies an ordered rule list to message text. Rules are compiled
// once at construction.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles the given rules, or the defaults when none are given.
func NewMatcher(rules ...Rule) (*Matcher, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	m := &Matcher{}
	for i, r := range rules {
		if len(r.Triggers) == 0 || len(r.Verbs) == 0 {
			return nil, fmt.Errorf("rule %d: triggers and verbs must be non-empty", i)
		}

		commit, err := regexp.Compile(
			`(?i)\b(?:` + quoteAlt(r.Triggers) + `)\s+(` + quoteAlt(r.Verbs) + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("rule %d: compile commitment pattern: %w", i, err)
		}

		cr := compiledRule{commit: commit}
		if alts := dateAlts(r); len(alts) > 0 {
			due, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("rule %d: compile date pattern: %w", i, err)
			}
			cr.due = due
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

// Match scans the text once and reports the first commitment found, if any.
// Only the first hit per message counts, even when several commitment phrases
// appear. The due expression is the first date found after the verb.
func (m *Matcher) Match(text string) (Match, bool) {
	for _, r := range m.rules {
		loc := r.commit.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}

		hit := Match{Verb: strings.ToLower(text[loc[2]:loc[3]])}
		if r.due != nil {
			hit.Due = r.due.FindString(text[loc[1]:])
		}
		return hit, true
	}
	return Match{}, false
}

func dateAlts(r Rule) []string {
	var alts []string
	for _, w := range r.DateWords {
		alts = append(alts, regexp.QuoteMeta(w))
	}
	// Raw patterns are trusted regex fragments from config.
	alts = append(alts, r.DatePatterns...)
	return alts
}

func quoteAlt(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
