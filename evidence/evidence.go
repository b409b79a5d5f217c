package evidence

import (
	"fmt"
	"io"
	"os"
	"time"

	"mcguard/fuzzy"
	"mcguard/hasher"
	"mcguard/logger"
	"mcguard/metadata"

	"github.com/djherbis/times"
	"github.com/h2non/filetype"
	"golang.org/x/exp/mmap"
)

// filetype needs at most this many leading bytes to identify a format.
const headerSize = 261

const metadataMaxBytes = 256 << 20

var openMmapReader = mmap.Open

type Options struct {
	HashAlgorithms []string
	FuzzyHash      bool
}

// Evidence is the on-disk state of a flagged module at scan time.
type Evidence struct {
	Size         int64             `json:"size"`
	MimeType     string            `json:"mime_type,omitempty"`
	Hashes       map[string]string `json:"hashes,omitempty"`
	FuzzyHashes  map[string]string `json:"fuzzy_hashes,omitempty"`
	ModTime      string            `json:"mod_time,omitempty"`
	CreationTime string            `json:"creation_time,omitempty"`
	AccessTime   string            `json:"access_time,omitempty"`
	ChangeTime   string            `json:"change_time,omitempty"`

	Metadata *metadata.ModuleMetadata `json:"metadata,omitempty"`
}

// Collect gathers evidence for path. Individual collectors that fail leave
// their fields empty; only a failed stat returns an error.
func Collect(path string, opts Options) (*Evidence, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	ev := &Evidence{
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Format(time.RFC3339),
	}

	if mimeType, err := mimeTypeOf(path); err == nil {
		ev.MimeType = mimeType
		ev.Metadata = metadata.ExtractMetadata(path, mimeType, metadataMaxBytes)
	} else {
		logger.Debugf("Failed to detect type of %s: %v", path, err)
	}

	if ts, err := times.Stat(path); err == nil {
		ev.AccessTime = ts.AccessTime().UTC().Format(time.RFC3339)
		if ts.HasChangeTime() {
			ev.ChangeTime = ts.ChangeTime().UTC().Format(time.RFC3339)
		}
		if ts.HasBirthTime() {
			ev.CreationTime = ts.BirthTime().UTC().Format(time.RFC3339)
		}
	}

	if len(opts.HashAlgorithms) > 0 {
		if hashes := hasher.ComputeHashes(path, opts.HashAlgorithms); len(hashes) > 0 {
			ev.Hashes = hashes
		}
	}

	if opts.FuzzyHash {
		ev.FuzzyHashes = fuzzy.HashAll(path)
	}

	return ev, nil
}

func mimeTypeOf(path string) (string, error) {
	r, err := openMmapReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	n := r.Len()
	if n == 0 {
		return "unknown", nil
	}
	if n > headerSize {
		n = headerSize
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", err
	}

	kind, err := filetype.Match(buf)
	if err != nil {
		return "", err
	}
	if kind == filetype.Unknown || kind.MIME.Value == "" {
		return "unknown", nil
	}
	return kind.MIME.Value, nil
}
