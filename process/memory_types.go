package process

import (
	"fmt"
	"math"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Add returns pma+offset, or ErrAddressOverflow if the sum does not fit in 64 bits.
func (pma ProcessMemoryAddress) Add(offset uint64) (ProcessMemoryAddress, error) {
	if uint64(pma) > math.MaxUint64-offset {
		return 0, fmt.Errorf("%w: 0x%X + 0x%X", ErrAddressOverflow, uint64(pma), offset)
	}
	return pma + ProcessMemoryAddress(offset), nil
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint64

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint64(pms))
}

// RangeEnd returns the exclusive end of [addr, addr+size), checking for overflow.
func RangeEnd(addr ProcessMemoryAddress, size ProcessMemorySize) (ProcessMemoryAddress, error) {
	return addr.Add(uint64(size))
}
