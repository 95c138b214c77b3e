package pelib

import (
	"debug/pe"
	"fmt"
	"iter"
	"math"

	"gomodsec/process"
)

type tlsDirectory32 struct {
	StartAddressOfRawData uint32
	EndAddressOfRawData   uint32
	AddressOfIndex        uint32
	AddressOfCallBacks    uint32
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

type tlsDirectory64 struct {
	StartAddressOfRawData uint64
	EndAddressOfRawData   uint64
	AddressOfIndex        uint64
	AddressOfCallBacks    uint64
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// TlsDir is the TLS directory of an image. The address fields are virtual
// addresses as stored in the image, so they are based on the header's ImageBase.
type TlsDir struct {
	pf   *PeFile
	base process.ProcessMemoryAddress

	StartAddressOfRawData uint64
	EndAddressOfRawData   uint64
	AddressOfIndex        uint64
	AddressOfCallBacks    uint64
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// OpenTlsDir reads the TLS directory named by data directory entry 9.
// Images without one fail with ErrDataDirectoryAbsent.
func OpenTlsDir(pf *PeFile) (*TlsDir, error) {
	dd, err := pf.DataDirectory(pe.IMAGE_DIRECTORY_ENTRY_TLS)
	if err != nil {
		return nil, err
	}
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return nil, fmt.Errorf("%w: no TLS directory", ErrDataDirectoryAbsent)
	}

	addr, err := pf.RvaToVa(dd.VirtualAddress)
	if err != nil {
		return nil, fmt.Errorf("TLS directory: %w", err)
	}

	td := &TlsDir{pf: pf, base: addr}
	if pf.is64 {
		raw, err := readAddr[tlsDirectory64](pf, addr, "TLS directory")
		if err != nil {
			return nil, err
		}
		td.StartAddressOfRawData = raw.StartAddressOfRawData
		td.EndAddressOfRawData = raw.EndAddressOfRawData
		td.AddressOfIndex = raw.AddressOfIndex
		td.AddressOfCallBacks = raw.AddressOfCallBacks
		td.SizeOfZeroFill = raw.SizeOfZeroFill
		td.Characteristics = raw.Characteristics
	} else {
		raw, err := readAddr[tlsDirectory32](pf, addr, "TLS directory")
		if err != nil {
			return nil, err
		}
		td.StartAddressOfRawData = uint64(raw.StartAddressOfRawData)
		td.EndAddressOfRawData = uint64(raw.EndAddressOfRawData)
		td.AddressOfIndex = uint64(raw.AddressOfIndex)
		td.AddressOfCallBacks = uint64(raw.AddressOfCallBacks)
		td.SizeOfZeroFill = raw.SizeOfZeroFill
		td.Characteristics = raw.Characteristics
	}

	pf.log().Debugln("TLS directory at", addr.ToString(), "callbacks at", fmt.Sprintf("0x%X", td.AddressOfCallBacks))
	return td, nil
}

// Base returns the address the directory was read from
func (td *TlsDir) Base() process.ProcessMemoryAddress {
	return td.base
}

func (td *TlsDir) String() string {
	return td.base.ToString()
}

// Callbacks yields the entries of the callback array up to its NULL terminator,
// reading one pointer per step. An array without a terminator within the
// configured bound ends with ErrTlsCallbacksUnterminated.
func (td *TlsDir) Callbacks() iter.Seq2[uint64, error] {
	return func(yield func(uint64, error) bool) {
		if td.AddressOfCallBacks == 0 {
			return
		}

		imageBase := td.pf.imageBase
		if td.AddressOfCallBacks < imageBase || td.AddressOfCallBacks-imageBase > math.MaxUint32 {
			yield(0, fmt.Errorf("%w: callback array 0x%X outside image based at 0x%X", ErrRvaNotMapped, td.AddressOfCallBacks, imageBase))
			return
		}
		array, err := td.pf.RvaToVa(uint32(td.AddressOfCallBacks - imageBase))
		if err != nil {
			yield(0, fmt.Errorf("TLS callback array: %w", err))
			return
		}

		width := uint64(4)
		if td.pf.is64 {
			width = 8
		}

		limit := td.pf.cfg.maxTlsCallbacks
		for i := 0; i < limit; i++ {
			addr, err := array.Add(uint64(i) * width)
			if err != nil {
				yield(0, fmt.Errorf("%w: TLS callback %d: %w", ErrImageReadFault, i, err))
				return
			}

			var callback uint64
			what := fmt.Sprintf("TLS callback %d", i)
			if td.pf.is64 {
				callback, err = readAddr[uint64](td.pf, addr, what)
			} else {
				var v uint32
				v, err = readAddr[uint32](td.pf, addr, what)
				callback = uint64(v)
			}
			if err != nil {
				yield(0, err)
				return
			}

			if callback == 0 {
				return
			}
			if !yield(callback, nil) {
				return
			}
		}

		yield(0, fmt.Errorf("%w: more than %d entries", ErrTlsCallbacksUnterminated, limit))
	}
}

// ReadCallbacks collects Callbacks. On error the entries read so far are returned with it.
func (td *TlsDir) ReadCallbacks() ([]uint64, error) {
	var callbacks []uint64
	for callback, err := range td.Callbacks() {
		if err != nil {
			return callbacks, err
		}
		callbacks = append(callbacks, callback)
	}
	return callbacks, nil
}
