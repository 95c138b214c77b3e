//go:build linux

package memory_map

import (
	"fmt"
	"os"
)

// LinuxMemoryMap reads memory maps from procfs
type LinuxMemoryMap struct {
	Root string // procfs mount point, "/proc" when empty
}

// NewLinuxMemoryMap creates a new LinuxMemoryMap instance
func NewLinuxMemoryMap() *LinuxMemoryMap {
	return &LinuxMemoryMap{Root: "/proc"}
}

// ReadMemoryMap reads and parses the memory map for a process from /proc/[pid]/maps.
// The result is sorted by address.
func (l *LinuxMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	root := l.Root
	if root == "" {
		root = "/proc"
	}

	file, err := os.Open(fmt.Sprintf("%s/%d/maps", root, pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mm, err := ParseMemoryMap(file)
	if err != nil {
		return mm, fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	SortByAddress(mm)
	return mm, nil
}
