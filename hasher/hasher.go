package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"mcguard/logger"

	"lukechampine.com/blake3"
)

const hashBufferSize = 64 * 1024

var hashBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSize)
		return &buf
	},
}

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"blake3": func() hash.Hash { return blake3.New(32, nil) },
}

// Supported reports whether algo names a hash ComputeHashes understands.
func Supported(algo string) bool {
	_, ok := constructors[strings.ToLower(algo)]
	return ok
}

// ComputeHashes hashes the file at path once per distinct supported
// algorithm, reading it a single time. Unreadable files yield an empty map.
func ComputeHashes(path string, algorithms []string) map[string]string {
	hashes := make(map[string]string, len(algorithms))

	type hasherEntry struct {
		name string
		h    hash.Hash
	}
	hashers := make([]hasherEntry, 0, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		algo = strings.ToLower(algo)
		if _, ok := seen[algo]; ok {
			continue
		}
		newHash, ok := constructors[algo]
		if !ok {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		seen[algo] = struct{}{}
		h := newHash()
		hashers = append(hashers, hasherEntry{name: algo, h: h})
		writers = append(writers, h)
	}
	if len(hashers) == 0 {
		return hashes
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warnf("Failed to open file for hashing %s: %v", path, err)
		return hashes
	}
	defer file.Close()

	bufPtr := hashBufferPool.Get().(*[]byte)
	defer hashBufferPool.Put(bufPtr)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), file, *bufPtr); err != nil {
		logger.Warnf("Failed to compute hashes for %s: %v", path, err)
		return hashes
	}

	for i := range hashers {
		hashes[hashers[i].name] = hex.EncodeToString(hashers[i].h.Sum(nil))
	}
	return hashes
}
