package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// RegexPrefix marks an ignore pattern as a regular expression over the full
// module path. Unprefixed patterns are globs over the basename.
const RegexPrefix = "re:"

// IgnoreMatcher decides which module paths a scan skips. Globs match the
// whole lowercase basename; regexes are case-insensitive and match anywhere
// in the full path unless anchored.
type IgnoreMatcher struct {
	globs   []string
	regexes []*regexp.Regexp
}

// NewIgnoreMatcher compiles patterns, rejecting malformed globs and regexes.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if expr, ok := strings.CutPrefix(p, RegexPrefix); ok {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("invalid ignore regex %q: %w", expr, err)
			}
			m.regexes = append(m.regexes, re)
			continue
		}
		glob := strings.ToLower(p)
		if _, err := filepath.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore glob %q: %w", p, err)
		}
		m.globs = append(m.globs, glob)
	}
	return m, nil
}

func (m *IgnoreMatcher) Empty() bool {
	return m == nil || (len(m.globs) == 0 && len(m.regexes) == 0)
}

func (m *IgnoreMatcher) Ignored(path string) bool {
	if m.Empty() {
		return false
	}
	base := strings.ToLower(BaseName(path))
	for _, pattern := range m.globs {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	for _, re := range m.regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// BaseName returns the text after the last '/' or '\' in path. A path ending
// in a separator has an empty base name.
func BaseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
