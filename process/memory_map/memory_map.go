package memory_map

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrTruncated is returned when reading a memory map stopped before its end.
var ErrTruncated = errors.New("memory map truncated")

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint64 // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset into the backing file
	Inode   uint64 // Inode of the backing file, 0 for anonymous mappings
	Path    string // Backing file path or pseudo name like [heap], empty if anonymous
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + mmItem.Size
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// IsFileBacked reports whether the region maps a file on disk.
func (mmItem MemoryMapItem) IsFileBacked() bool {
	return mmItem.Inode != 0 && strings.HasPrefix(mmItem.Path, "/")
}

// ParseMemoryMap parses the /proc/[pid]/maps format. Lines that do not parse are skipped.
func ParseMemoryMap(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		item, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return memoryMap, err
	}

	return memoryMap, nil
}

// parseLine parses one line such as
// "7f1c2a000000-7f1c2a021000 r--p 00000000 08:01 1234    /usr/lib/libc.so.6"
func parseLine(line string) (MemoryMapItem, bool) {
	var item MemoryMapItem

	addrField, rest := cutField(line)
	perms, rest := cutField(rest)
	offsetField, rest := cutField(rest)
	_, rest = cutField(rest) // device
	inodeField, rest := cutField(rest)
	if inodeField == "" {
		return item, false
	}

	// Parse address range (e.g., "00400000-0040b000")
	startField, endField, ok := strings.Cut(addrField, "-")
	if !ok {
		return item, false
	}

	startAddr, err := strconv.ParseUint(startField, 16, 64)
	if err != nil {
		return item, false
	}

	endAddr, err := strconv.ParseUint(endField, 16, 64)
	if err != nil || endAddr < startAddr {
		return item, false
	}

	offset, err := strconv.ParseUint(offsetField, 16, 64)
	if err != nil {
		return item, false
	}

	inode, err := strconv.ParseUint(inodeField, 10, 64)
	if err != nil {
		return item, false
	}

	item.Address = startAddr
	item.Size = endAddr - startAddr
	item.Perms = perms
	item.Offset = offset
	item.Inode = inode
	item.Path = strings.TrimSuffix(strings.TrimSpace(rest), " (deleted)")
	return item, true
}

func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// MappedImage is a file mapped into the address space, possibly over several regions.
type MappedImage struct {
	Address uint64
	Size    uint64
	Name    string
	Path    string
}

// GroupImages folds the file-backed regions of a memory map into one entry per mapping
// of a file. A region extends the image before it only when both map the same path and
// the region does not start at file offset 0; anything else starts a new image, so a
// file mapped again past another library yields two images. memoryMap must be sorted
// by address.
func GroupImages(memoryMap []MemoryMapItem) []MappedImage {
	var images []MappedImage

	for _, item := range memoryMap {
		if !item.IsFileBacked() || item.Size == 0 {
			continue
		}

		if n := len(images); n > 0 && item.Offset != 0 {
			img := &images[n-1]
			if img.Path == item.Path && item.Address >= img.Address+img.Size {
				img.Size = item.End() - img.Address
				continue
			}
		}

		images = append(images, MappedImage{
			Address: item.Address,
			Size:    item.Size,
			Name:    filepath.Base(item.Path),
			Path:    item.Path,
		})
	}

	return images
}

// SortByAddress sorts a memory map in place by start address.
func SortByAddress(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Helper functions for working with memory maps

// IsValidAddress checks if an address is within a mapped memory region
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	return FindRegion(addr, memoryMap) != nil
}

// FindRegion returns the region containing addr. memoryMap must be sorted by address.
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// IsReadableRange reports whether [addr, addr+size) is covered by contiguous readable regions.
func IsReadableRange(addr, size uint64, memoryMap []MemoryMapItem) bool {
	end := addr + size
	if end < addr {
		return false
	}
	for addr < end {
		item := FindRegion(addr, memoryMap)
		if item == nil || !item.IsReadable() {
			return false
		}
		addr = item.End()
	}
	return true
}
