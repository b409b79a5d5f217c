package fuzzy

import (
	"sort"
	"strings"
	"sync"

	"mcguard/logger"
)

// Hasher produces a similarity digest for a module file, so renamed or
// repacked builds of a known client can still be correlated offline.
type Hasher interface {
	Name() string
	HashFile(path string) (string, error)
}

var (
	mu       sync.RWMutex
	registry = map[string]Hasher{}
)

func Register(hasher Hasher) {
	if hasher == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(hasher.Name())] = hasher
}

func Lookup(name string) (Hasher, bool) {
	mu.RLock()
	defer mu.RUnlock()
	hasher, ok := registry[strings.ToLower(name)]
	return hasher, ok
}

// Available returns registered hasher names in sorted order.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashAll runs every registered hasher over path. Hashers that fail are
// logged and left out of the result, which is nil when nothing succeeded.
func HashAll(path string) map[string]string {
	var digests map[string]string
	for _, name := range Available() {
		h, ok := Lookup(name)
		if !ok {
			continue
		}
		digest, err := h.HashFile(path)
		if err != nil {
			logger.Debugf("Fuzzy hash %s failed for %s: %v", name, path, err)
			continue
		}
		if digest == "" {
			continue
		}
		if digests == nil {
			digests = make(map[string]string)
		}
		digests[name] = digest
	}
	return digests
}
