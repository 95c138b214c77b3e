package process

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Read reads a fixed-size value of type T stored little-endian at addr.
// T must be a fixed-size type accepted by encoding/binary.
func Read[T any](r ImageReader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := binary.Size(t)
	if size < 0 {
		return t, fmt.Errorf("type %T has no fixed size", t)
	}
	if size == 0 {
		return t, nil
	}

	data, err := r.ReadMemory(addr, ProcessMemorySize(size))
	if err != nil {
		return t, err
	}
	if len(data) < size {
		return t, fmt.Errorf("short read at %s: expected %d, got %d", addr.ToString(), size, len(data))
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &t); err != nil {
		return t, fmt.Errorf("decode %T at %s: %w", t, addr.ToString(), err)
	}
	return t, nil
}

// ReadUINT16 reads an unsigned 16-bit little-endian integer at addr
func ReadUINT16(r ImageReader, addr ProcessMemoryAddress) (uint16, error) {
	return Read[uint16](r, addr)
}

// ReadUINT32 reads an unsigned 32-bit little-endian integer at addr
func ReadUINT32(r ImageReader, addr ProcessMemoryAddress) (uint32, error) {
	return Read[uint32](r, addr)
}
