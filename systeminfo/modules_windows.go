//go:build windows

package systeminfo

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const initialModuleSlots = 1024

func listMappedFiles(_ context.Context, pid int32) ([]string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
	if err != nil {
		return nil, classifyErr(pid, err)
	}
	defer windows.CloseHandle(h)

	mods := make([]windows.Handle, initialModuleSlots)
	handleSize := uint32(unsafe.Sizeof(mods[0]))
	for {
		var needed uint32
		err := windows.EnumProcessModulesEx(h, &mods[0], uint32(len(mods))*handleSize, &needed, windows.LIST_MODULES_ALL)
		if err != nil {
			return nil, classifyErr(pid, err)
		}
		n := int(needed / handleSize)
		if n <= len(mods) {
			mods = mods[:n]
			break
		}
		// module list grew between calls
		mods = make([]windows.Handle, n)
	}

	buf := make([]uint16, windows.MAX_LONG_PATH)
	paths := make([]string, 0, len(mods))
	for _, mod := range mods {
		if err := windows.GetModuleFileNameEx(h, mod, &buf[0], uint32(len(buf))); err != nil {
			continue
		}
		paths = append(paths, windows.UTF16ToString(buf))
	}
	return paths, nil
}

func classifyErr(pid int32, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("pid %d: %w", pid, ErrAccessDenied)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER), errors.Is(err, windows.ERROR_PARTIAL_COPY):
		return fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}
