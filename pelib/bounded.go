package pelib

import (
	"fmt"

	"gomodsec/process"
)

// boundedReader rejects reads leaving [lo, hi) before they reach the target.
type boundedReader struct {
	r      process.ImageReader
	lo, hi process.ProcessMemoryAddress
}

func (b boundedReader) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	end, err := process.RangeEnd(addr, size)
	if err != nil {
		return nil, err
	}
	if addr < b.lo || end > b.hi {
		return nil, fmt.Errorf("read %s+%d outside image %s-%s", addr.ToString(), uint64(size), b.lo.ToString(), b.hi.ToString())
	}
	return b.r.ReadMemory(addr, size)
}
