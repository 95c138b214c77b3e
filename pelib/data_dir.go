package pelib

import (
	"debug/pe"
	"fmt"
)

const (
	numberOfRvaAndSizesPE32     = 92
	numberOfRvaAndSizesPE32Plus = 108
	dataDirectorySize           = 8
	numberOfDirectoryEntries    = 16
)

// DataDirectory reads entry index of the optional header's data directory array.
// An index beyond NumberOfRvaAndSizes or beyond SizeOfOptionalHeader yields
// ErrDataDirectoryAbsent; an entry that is present but zero is returned as is.
func (pf *PeFile) DataDirectory(index int) (pe.DataDirectory, error) {
	countOffset := uint64(numberOfRvaAndSizesPE32)
	if pf.is64 {
		countOffset = numberOfRvaAndSizesPE32Plus
	}
	entryOffset := countOffset + 4 + uint64(index)*dataDirectorySize

	if index < 0 || index >= numberOfDirectoryEntries ||
		entryOffset+dataDirectorySize > uint64(pf.fileHeader.SizeOfOptionalHeader) {
		return pe.DataDirectory{}, fmt.Errorf("%w: index %d", ErrDataDirectoryAbsent, index)
	}

	count, err := readAt[uint32](pf, pf.optionalOffset+countOffset, "NumberOfRvaAndSizes")
	if err != nil {
		return pe.DataDirectory{}, err
	}
	if uint64(index) >= uint64(count) {
		return pe.DataDirectory{}, fmt.Errorf("%w: index %d, NumberOfRvaAndSizes %d", ErrDataDirectoryAbsent, index, count)
	}

	return readAt[pe.DataDirectory](pf, pf.optionalOffset+entryOffset, fmt.Sprintf("data directory %d", index))
}
