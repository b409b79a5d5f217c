package classifier

import (
	"os"
	"strings"

	"mcguard/evidence"
	"mcguard/logger"
	"mcguard/signatures"
	"mcguard/utils"
)

type DetectionType string

const (
	DetectionKnownSignature DetectionType = "known_signature"
	DetectionPatternMatch   DetectionType = "pattern_match"
)

// Classification is the verdict for one flagged module. Name is the
// lowercase basename that was matched.
type Classification struct {
	File          string               `json:"file"`
	Name          string               `json:"name"`
	DisplayName   string               `json:"display_name,omitempty"`
	Risk          signatures.RiskLevel `json:"risk"`
	Description   string               `json:"description"`
	DetectionType DetectionType        `json:"detection_type"`
	Evidence      *evidence.Evidence   `json:"evidence,omitempty"`
}

type Classifier struct {
	table    *signatures.Table
	patterns *signatures.PatternList
	exists   func(path string) bool
	evidence *evidence.Options
}

type Option func(*Classifier)

// WithExistsFunc replaces the on-disk existence check.
func WithExistsFunc(fn func(path string) bool) Option {
	return func(c *Classifier) {
		c.exists = fn
	}
}

// WithEvidence attaches file evidence to every classification produced.
func WithEvidence(opts evidence.Options) Option {
	return func(c *Classifier) {
		c.evidence = &opts
	}
}

func New(table *signatures.Table, patterns *signatures.PatternList, opts ...Option) *Classifier {
	c := &Classifier{
		table:    table,
		patterns: patterns,
		exists:   fileExists,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns at most one classification for path. A signature match on
// the lowercase basename takes priority over a pattern match; paths that do
// not exist on disk are never classified.
func (c *Classifier) Classify(path string) (Classification, bool) {
	if path == "" || !c.exists(path) {
		return Classification{}, false
	}
	name := strings.ToLower(utils.BaseName(path))

	var result Classification
	if entry, ok := c.table.Lookup(name); ok {
		result = Classification{
			File:          path,
			Name:          name,
			DisplayName:   entry.DisplayName,
			Risk:          entry.Risk,
			Description:   entry.Description,
			DetectionType: DetectionKnownSignature,
		}
	} else if pattern, ok := c.patterns.FirstMatch(name); ok {
		result = Classification{
			File:          path,
			Name:          name,
			Risk:          signatures.RiskSuspicious,
			Description:   "Contains suspicious pattern: " + pattern,
			DetectionType: DetectionPatternMatch,
		}
	} else {
		return Classification{}, false
	}

	if c.evidence != nil {
		ev, err := evidence.Collect(path, *c.evidence)
		if err != nil {
			logger.Debugf("No evidence for %s: %v", path, err)
		} else {
			result.Evidence = ev
		}
	}
	return result, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
