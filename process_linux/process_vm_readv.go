//go:build linux

package process_linux

import (
	"errors"
	"fmt"

	"gomodsec/process"

	"golang.org/x/sys/unix"
)

// processVMReadv reads size bytes at remoteAddr of pid with a single process_vm_readv call.
func processVMReadv(pid process.ProcessID, remoteAddr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	localBuf := make([]byte, size)

	localIov := []unix.Iovec{{Base: &localBuf[0]}}
	localIov[0].SetLen(len(localBuf))

	remoteIov := []unix.RemoteIovec{{
		Base: uintptr(remoteAddr),
		Len:  int(size),
	}}

	n, err := unix.ProcessVMReadv(int(pid), localIov, remoteIov, 0)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv failed: %w", err)
	}

	// Check if we read the expected number of bytes
	if n != len(localBuf) {
		return nil, fmt.Errorf("partial read: %d of %d bytes", n, size)
	}

	return localBuf, nil
}

// ReadMemory reads memory from the process at the specified address. The range
// must be covered by readable regions; the memory map is refreshed once before
// a range is rejected.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if size == 0 {
		return []byte{}, nil
	}
	if _, err := process.RangeEnd(addr, size); err != nil {
		return nil, err
	}

	if !p.isReadableRange(addr, size) {
		if err := p.UpdateMemoryMap(); err != nil {
			return nil, err
		}
		if !p.isReadableRange(addr, size) {
			return nil, fmt.Errorf("%w: %s+%d", process.ErrAddressNotMapped, addr.ToString(), uint64(size))
		}
	}

	data, err := processVMReadv(pid, addr, size)
	if err != nil {
		if errors.Is(err, unix.EFAULT) {
			return nil, fmt.Errorf("%w: %w", process.ErrAddressNotMapped, err)
		}
		return nil, classify(err)
	}

	return data, nil
}
