package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"mcguard/logger"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	// StallThreshold is how long progress may stand still before a dump is
	// written. Zero disables the watchdog.
	StallThreshold  time.Duration
	Dir             string
	ProgressCountFn func() int64
	NowFn           func() time.Time
	ProfileLookupFn func(name string) profileWriter
}

// Watchdog dumps goroutine stacks when a scan stops making progress, which
// usually means an OS call into a target process is hanging.
type Watchdog struct {
	stallThreshold  time.Duration
	dir             string
	progressCountFn func() int64
	nowFn           func() time.Time
	profileLookupFn func(name string) profileWriter

	mu             sync.Mutex
	lastProgressAt time.Time
	lastProgress   int64
	lastDumpAt     time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatchdog(opts Options) *Watchdog {
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	profileLookup := opts.ProfileLookupFn
	if profileLookup == nil {
		profileLookup = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	return &Watchdog{
		stallThreshold:  opts.StallThreshold,
		dir:             dir,
		progressCountFn: opts.ProgressCountFn,
		nowFn:           nowFn,
		profileLookupFn: profileLookup,
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	if w == nil || w.stallThreshold <= 0 || w.progressCountFn == nil || w.stopCh != nil {
		return
	}

	w.mu.Lock()
	w.lastProgress = w.progressCountFn()
	w.lastProgressAt = w.nowFn()
	w.lastDumpAt = time.Time{}
	w.mu.Unlock()

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.stallThreshold / 2
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(w.doneCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.probe(w.nowFn())
			}
		}
	}()
}

func (w *Watchdog) Stop() {
	if w == nil || w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
	w.doneCh = nil
}

func (w *Watchdog) probe(now time.Time) {
	progress := w.progressCountFn()

	w.mu.Lock()
	if progress != w.lastProgress || w.lastProgressAt.IsZero() {
		w.lastProgress = progress
		w.lastProgressAt = now
		w.mu.Unlock()
		return
	}
	stalledFor := now.Sub(w.lastProgressAt)
	shouldDump := stalledFor >= w.stallThreshold &&
		(w.lastDumpAt.IsZero() || now.Sub(w.lastDumpAt) >= w.stallThreshold)
	if shouldDump {
		w.lastDumpAt = now
	}
	w.mu.Unlock()

	if shouldDump {
		logger.Warnf("Scan has made no progress for %s, writing diagnostics to %s", stalledFor.Round(time.Millisecond), w.dir)
		if err := w.dumpStall(now, progress, stalledFor); err != nil {
			logger.Warnf("Diagnostics stall dump failed: %v", err)
		}
	}
}

func (w *Watchdog) dumpStall(now time.Time, progress int64, stalledFor time.Duration) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")
	event := map[string]interface{}{
		"event":               "scan_stalled",
		"timestamp":           now.UTC().Format(time.RFC3339Nano),
		"progress_count":      progress,
		"threshold_ms":        w.stallThreshold.Milliseconds(),
		"observed_stalled_ms": stalledFor.Milliseconds(),
	}
	b, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.dir, fmt.Sprintf("mcguard-stall-%s.json", ts)), b, 0600); err != nil {
		return err
	}
	_, err = w.writeProfile("goroutine", 2, ts)
	return err
}

func (w *Watchdog) writeProfile(name string, debug int, ts string) (string, error) {
	profile := w.profileLookupFn(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("mcguard-%s-profile-%s.pprof", name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}
