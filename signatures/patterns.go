package signatures

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Below this many patterns a plain strings.Contains loop beats building and
// walking the automaton.
const ahoMinPatterns = 8

// PatternList is an ordered, immutable set of lowercase substrings. When
// several patterns occur in a name, the one listed first wins.
type PatternList struct {
	patterns []string
	matcher  *ahocorasick.Matcher
}

func NewPatternList(patterns []string) *PatternList {
	normalized := make([]string, 0, len(patterns))
	seen := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	l := &PatternList{patterns: normalized}
	if len(normalized) >= ahoMinPatterns {
		l.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return l
}

// With returns a new list with extra appended after the existing patterns.
func (l *PatternList) With(extra []string) *PatternList {
	combined := make([]string, 0, len(l.Patterns())+len(extra))
	combined = append(combined, l.Patterns()...)
	combined = append(combined, extra...)
	return NewPatternList(combined)
}

// FirstMatch reports the earliest pattern in list order contained in name.
// name is expected to be lowercase already.
func (l *PatternList) FirstMatch(name string) (string, bool) {
	if l == nil || len(l.patterns) == 0 || name == "" {
		return "", false
	}
	if l.matcher == nil {
		for _, p := range l.patterns {
			if strings.Contains(name, p) {
				return p, true
			}
		}
		return "", false
	}

	best := -1
	for _, idx := range l.matcher.MatchThreadSafe([]byte(name)) {
		if idx < 0 || idx >= len(l.patterns) {
			continue
		}
		if best != -1 && idx >= best {
			continue
		}
		if strings.Contains(name, l.patterns[idx]) {
			best = idx
		}
	}
	if best == -1 {
		return "", false
	}
	return l.patterns[best], true
}

func (l *PatternList) Patterns() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.patterns...)
}

func (l *PatternList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}
