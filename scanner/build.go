package scanner

import (
	"fmt"

	"mcguard/classifier"
	"mcguard/config"
	"mcguard/evidence"
	"mcguard/signatures"
	"mcguard/systeminfo"
	"mcguard/utils"
)

// NewFromConfig wires the host locator and module enumerator to a classifier
// built from the built-in tables plus any custom entries in cfg.
func NewFromConfig(cfg *config.Config) (*Scanner, error) {
	table := signatures.DefaultTable()
	if len(cfg.CustomSignatures) > 0 {
		merged, err := table.With(cfg.CustomSignatures)
		if err != nil {
			return nil, fmt.Errorf("custom signatures: %w", err)
		}
		table = merged
	}
	patterns := signatures.DefaultPatternList()
	if len(cfg.CustomPatterns) > 0 {
		patterns = patterns.With(cfg.CustomPatterns)
	}

	ignore, err := utils.NewIgnoreMatcher(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	var opts []classifier.Option
	if cfg.CollectEvidence {
		opts = append(opts, classifier.WithEvidence(evidence.Options{
			HashAlgorithms: cfg.HashAlgorithms,
			FuzzyHash:      cfg.FuzzyHash,
		}))
	}

	return New(
		systeminfo.NewLocator(cfg.TargetProcesses),
		systeminfo.NewModuleEnumerator(cfg.ModuleExtension),
		classifier.New(table, patterns, opts...),
		Options{
			Ignore:                  ignore,
			MaxInspectionsPerSecond: cfg.MaxInspectionsPerSecond,
			Progress:                cfg.Progress,
		},
	), nil
}
