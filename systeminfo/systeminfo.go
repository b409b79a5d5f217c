package systeminfo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mcguard/logger"

	"github.com/shirou/gopsutil/v4/process"
)

var (
	// ErrProcessGone reports a process that exited between enumeration and inspection.
	ErrProcessGone = errors.New("process exited")
	// ErrAccessDenied reports a process the current user may not inspect.
	ErrAccessDenied = errors.New("access denied")
)

type ProcessInfo struct {
	PID  int32  `json:"pid"`
	Name string `json:"name"`
	Exe  string `json:"exe,omitempty"`
}

// processView is the subset of *process.Process the locator reads.
type processView interface {
	NameWithContext(ctx context.Context) (string, error)
	ExeWithContext(ctx context.Context) (string, error)
}

type processEntry struct {
	pid  int32
	view processView
}

type Locator struct {
	targets map[string]struct{}
	list    func(ctx context.Context) ([]processEntry, error)
}

// NewLocator returns a locator matching process names exactly (case-sensitive)
// against targets.
func NewLocator(targets []string) *Locator {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return &Locator{targets: set, list: hostProcesses}
}

func hostProcesses(ctx context.Context) ([]processEntry, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]processEntry, 0, len(procs))
	for _, p := range procs {
		entries = append(entries, processEntry{pid: p.Pid, view: p})
	}
	return entries, nil
}

// FindTargetProcesses walks the host process table in enumeration order and
// returns the processes whose name is on the allow-list. Processes whose name
// cannot be read are skipped. An unreadable executable path leaves Exe empty.
func (l *Locator) FindTargetProcesses(ctx context.Context) ([]ProcessInfo, error) {
	entries, err := l.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get running processes: %w", err)
	}

	var found []ProcessInfo
	for _, e := range entries {
		name, err := e.view.NameWithContext(ctx)
		if err != nil {
			logger.Debugf("Skipping pid %d: %v", e.pid, err)
			continue
		}
		if _, ok := l.targets[name]; !ok {
			continue
		}
		info := ProcessInfo{PID: e.pid, Name: name}
		exe, err := e.view.ExeWithContext(ctx)
		if err == nil {
			info.Exe = exe
		} else {
			logger.Debugf("No executable path for %s (pid %d): %v", name, e.pid, err)
		}
		found = append(found, info)
	}
	return found, nil
}

type ModuleEnumerator struct {
	ext  string
	list func(ctx context.Context, pid int32) ([]string, error)
}

// NewModuleEnumerator returns an enumerator keeping only mapped files whose
// extension equals ext, ignoring case.
func NewModuleEnumerator(ext string) *ModuleEnumerator {
	return &ModuleEnumerator{ext: ext, list: listMappedFiles}
}

// ListModules returns the distinct module paths loaded by pid in mapping
// order. On failure the slice is empty and the error wraps ErrProcessGone or
// ErrAccessDenied where the cause is known.
func (m *ModuleEnumerator) ListModules(ctx context.Context, pid int32) ([]string, error) {
	paths, err := m.list(ctx, pid)
	if err != nil {
		return []string{}, err
	}
	return filterModules(paths, m.ext), nil
}

func filterModules(paths []string, ext string) []string {
	modules := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" || !strings.EqualFold(filepath.Ext(p), ext) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		modules = append(modules, p)
	}
	return modules
}
