//go:build !windows

package systeminfo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/shirou/gopsutil/v4/process"
)

func listMappedFiles(ctx context.Context, pid int32) ([]string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classifyErr(pid, err)
	}
	maps, err := p.MemoryMapsWithContext(ctx, false)
	if err != nil {
		return nil, classifyErr(pid, err)
	}
	if maps == nil {
		return nil, nil
	}
	paths := make([]string, 0, len(*maps))
	for _, m := range *maps {
		paths = append(paths, m.Path)
	}
	return paths, nil
}

func classifyErr(pid int32, err error) error {
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("pid %d: %w", pid, ErrAccessDenied)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}
