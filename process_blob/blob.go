package process_blob

import (
	"fmt"
	"os"

	"gomodsec/process"
)

// ProcessBlob serves reads from a byte slice placed at a base address.
// It stands in for a live process when parsing images from disk or in tests.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
}

var _ process.ImageReader = (*ProcessBlob)(nil)

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

// NewProcessBlobFromFile loads a whole file and places it at baseAddress.
func NewProcessBlobFromFile(baseAddress process.ProcessMemoryAddress, filename string) (*ProcessBlob, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if _, err := process.RangeEnd(baseAddress, process.ProcessMemorySize(len(data))); err != nil {
		return nil, err
	}
	return NewProcessBlob(baseAddress, data), nil
}

func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) Size() process.ProcessMemorySize {
	return process.ProcessMemorySize(len(p.data))
}

// ReadMemory returns a copy of [addr, addr+size). Reads that leave the blob fail with
// process.ErrAddressNotMapped.
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	end, err := process.RangeEnd(addr, size)
	if err != nil {
		return nil, err
	}

	if addr < p.baseaddress || uint64(end-p.baseaddress) > uint64(len(p.data)) {
		return nil, fmt.Errorf("%w: %s+%d outside blob %s+%d", process.ErrAddressNotMapped,
			addr.ToString(), uint64(size), p.baseaddress.ToString(), len(p.data))
	}

	offset := uint64(addr - p.baseaddress)
	out := make([]byte, size)
	copy(out, p.data[offset:offset+uint64(size)])
	return out, nil
}
