//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gomodsec/module"
	"gomodsec/process"
	"gomodsec/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid  process.ProcessID
	log  *logger.Logger
	maps *memory_map.LinuxMemoryMap
	mm   []memory_map.MemoryMapItem
	mu   sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a new LinuxProcess instance
func New() *LinuxProcess {
	return &LinuxProcess{
		log:  logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
		maps: memory_map.NewLinuxMemoryMap(),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if !procExists(p.maps.Root, pid) {
		return fmt.Errorf("%w: process with PID %d does not exist", process.ErrProcessUnavailable, pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		p.mu.Lock()
		p.pid = 0
		p.mu.Unlock()
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.currentLog().Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *LinuxProcess) currentLog() *logger.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

// UpdateMemoryMap re-reads /proc/[pid]/maps
func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()
	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := p.maps.ReadMemoryMap(int(pid))
	if err != nil {
		return classify(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid != pid {
		return process.ErrProcessNotOpen
	}
	p.mm = mm
	return nil
}

func (p *LinuxProcess) isReadableRange(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return memory_map.IsReadableRange(uint64(addr), uint64(size), p.mm)
}

// GetMemoryMap returns a copy of the cached memory map
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// SnapshotModules refreshes the memory map and lists every file mapped into the process.
func (p *LinuxProcess) SnapshotModules() (process.ModuleSnapshot, error) {
	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return nil, err
	}

	images := memory_map.GroupImages(mm)
	modules := make([]process.Module, 0, len(images))
	for _, img := range images {
		modules = append(modules, process.Module{
			Base: process.ProcessMemoryAddress(img.Address),
			Size: process.ProcessMemorySize(img.Size),
			Name: img.Name,
			Path: img.Path,
		})
	}

	p.currentLog().Debugln("Module snapshot with", len(modules), "modules")
	return module.NewSliceSnapshot(modules), nil
}

// Path returns the target of /proc/[pid]/exe
func (p *LinuxProcess) Path() (string, error) {
	pid := p.GetPID()
	if pid == 0 {
		return "", process.ErrProcessNotOpen
	}

	exe, err := os.Readlink(filepath.Join(p.maps.Root, strconv.Itoa(int(pid)), "exe"))
	if err != nil {
		return "", classify(err)
	}
	return exe, nil
}

// classify maps operating system errors onto the process error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, memory_map.ErrTruncated):
		return fmt.Errorf("%w: %w", process.ErrPartialEnumeration, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %w", process.ErrProcessUnavailable, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", process.ErrInsufficientPrivilege, err)
	}
	return err
}

func procExists(root string, pid process.ProcessID) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.Stat(filepath.Join(root, strconv.Itoa(int(pid))))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return unix.Kill(int(pid), 0) == nil
}
