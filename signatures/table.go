package signatures

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
)

type RiskLevel string

const (
	RiskSuspicious RiskLevel = "suspicious"
	RiskDangerous  RiskLevel = "dangerous"
)

func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskSuspicious:
		return RiskSuspicious, nil
	case RiskDangerous:
		return RiskDangerous, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

// Entry describes a known artifact, keyed in a Table by its lowercase filename.
type Entry struct {
	DisplayName string    `json:"name"`
	Risk        RiskLevel `json:"risk"`
	Description string    `json:"description"`
}

// Table is an immutable filename -> Entry mapping. Lookups consult an xor
// filter over the key hashes first, so misses (the common case for a loaded
// module) never touch the map.
type Table struct {
	entries map[string]Entry
	index   *xorfilter.Xor8
}

func NewTable(entries map[string]Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for name, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("signature with empty filename")
		}
		if _, err := ParseRiskLevel(string(entry.Risk)); err != nil {
			return nil, fmt.Errorf("signature %s: %w", key, err)
		}
		t.entries[key] = entry
	}
	if err := t.buildIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) buildIndex() error {
	if len(t.entries) == 0 {
		return nil
	}
	keys := make([]uint64, 0, len(t.entries))
	seen := make(map[uint64]struct{}, len(t.entries))
	for name := range t.entries {
		h := xxhash.Sum64String(name)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		keys = append(keys, h)
	}
	filter, err := xorfilter.Populate(keys)
	if err != nil {
		return fmt.Errorf("build signature index: %w", err)
	}
	t.index = filter
	return nil
}

// With returns a new table holding t's entries overlaid with extra.
func (t *Table) With(extra map[string]Entry) (*Table, error) {
	merged := make(map[string]Entry, len(t.entries)+len(extra))
	for name, entry := range t.entries {
		merged[name] = entry
	}
	for name, entry := range extra {
		merged[strings.ToLower(strings.TrimSpace(name))] = entry
	}
	return NewTable(merged)
}

// Lookup matches name case-insensitively against the table keys.
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil || len(t.entries) == 0 {
		return Entry{}, false
	}
	key := strings.ToLower(name)
	if t.index != nil && !t.index.Contains(xxhash.Sum64String(key)) {
		return Entry{}, false
	}
	entry, ok := t.entries[key]
	return entry, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the table keys in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
