//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"gomodsec/process"

	"golang.org/x/sys/windows"
)

// CreateToolhelp32Snapshot fails with ERROR_BAD_LENGTH while the target's loader
// list is changing; the documented remedy is to retry.
const snapshotRetries = 8

// SnapshotModules takes a Toolhelp32 module snapshot. The snapshot handle is
// released by Close on the returned snapshot.
func (p *WindowsProcess) SnapshotModules() (process.ModuleSnapshot, error) {
	pid, handle, err := p.state()
	if err != nil {
		return nil, err
	}

	var snap windows.Handle
	for attempt := 0; ; attempt++ {
		snap, err = windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
		if err == nil {
			break
		}
		if errors.Is(err, windows.ERROR_BAD_LENGTH) && attempt < snapshotRetries {
			p.currentLog().Debugln("CreateToolhelp32Snapshot returned ERROR_BAD_LENGTH, retrying")
			continue
		}
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", p.classifyLive(handle, err))
	}

	return &moduleSnapshot{handle: snap}, nil
}

type moduleSnapshot struct {
	handle  windows.Handle
	entry   windows.ModuleEntry32
	started bool
	done    bool
}

func (s *moduleSnapshot) Next() (process.Module, bool, error) {
	if s.handle == 0 {
		return process.Module{}, false, process.ErrProcessNotOpen
	}
	if s.done {
		return process.Module{}, false, nil
	}

	s.entry.Size = uint32(unsafe.Sizeof(s.entry))
	var err error
	if !s.started {
		s.started = true
		err = windows.Module32First(s.handle, &s.entry)
	} else {
		err = windows.Module32Next(s.handle, &s.entry)
	}

	if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		s.done = true
		return process.Module{}, false, nil
	}
	if err != nil {
		s.done = true
		return process.Module{}, false, fmt.Errorf("module walk: %w", classify(err))
	}

	return process.Module{
		Base: process.ProcessMemoryAddress(s.entry.ModBaseAddr),
		Size: process.ProcessMemorySize(s.entry.ModBaseSize),
		Name: windows.UTF16ToString(s.entry.Module[:]),
		Path: windows.UTF16ToString(s.entry.ExePath[:]),
	}, true, nil
}

func (s *moduleSnapshot) Close() error {
	if s.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(s.handle)
	s.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}
