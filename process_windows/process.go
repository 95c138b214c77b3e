//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"

	"gomodsec/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const (
	// Read-only access: enough for ReadProcessMemory, Toolhelp32 and image path queries.
	processReadAccess = windows.PROCESS_QUERY_LIMITED_INFORMATION | windows.PROCESS_VM_READ

	stillActive = 259
)

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	wow64  bool
	log    *logger.Logger
	mu     sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)

// New creates a new WindowsProcess instance
func New() *WindowsProcess {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		return fmt.Errorf("process %d already open", p.pid)
	}

	handle, err := windows.OpenProcess(processReadAccess, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess failed: %w", classify(err))
	}

	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err != nil {
		windows.CloseHandle(handle)
		return fmt.Errorf("IsWow64Process failed: %w", classify(err))
	}

	p.pid = pid
	p.handle = handle
	p.wow64 = wow64
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	p.log.Infoln("Process opened, wow64:", wow64)
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// IsWoW64 reports whether the target runs under WoW64
func (p *WindowsProcess) IsWoW64() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wow64
}

func (p *WindowsProcess) currentLog() *logger.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

func (p *WindowsProcess) state() (process.ProcessID, windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, 0, process.ErrProcessNotOpen
	}
	return p.pid, p.handle, nil
}

// ReadMemory reads memory from the process at the specified address
func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	_, handle, err := p.state()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}
	if _, err := process.RangeEnd(addr, size); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err = windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)
	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) {
			return nil, fmt.Errorf("%w: ReadProcessMemory at %s: %w", process.ErrAddressNotMapped, addr.ToString(), err)
		}
		return nil, fmt.Errorf("ReadProcessMemory failed: %w", p.classifyLive(handle, err))
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

// Path returns the full path of the process executable
func (p *WindowsProcess) Path() (string, error) {
	_, handle, err := p.state()
	if err != nil {
		return "", err
	}

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName failed: %w", p.classifyLive(handle, err))
	}
	return windows.UTF16ToString(buf[:size]), nil
}

// classifyLive reports an exited process as unavailable before mapping err.
func (p *WindowsProcess) classifyLive(handle windows.Handle, err error) error {
	var code uint32
	if windows.GetExitCodeProcess(handle, &code) == nil && code != stillActive {
		return fmt.Errorf("%w: exited with code %d: %w", process.ErrProcessUnavailable, code, err)
	}
	return classify(err)
}

// classify maps Win32 errors onto the process error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: %w", process.ErrProcessUnavailable, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", process.ErrInsufficientPrivilege, err)
	case errors.Is(err, windows.ERROR_PARTIAL_COPY):
		return fmt.Errorf("%w: %w", process.ErrPartialEnumeration, err)
	}
	return err
}
