package pelib

import (
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"testing"
)

const (
	tlsDirRVA   = 0x800
	tlsArrayRVA = 0x900
)

func preferredBase(is64 bool) uint64 {
	if is64 {
		return 0x140000000
	}
	return 0x400000
}

// tlsImage builds an image with a TLS directory whose callback array holds callbacks,
// NULL terminated when terminated is set.
func tlsImage(is64 bool, callbacks []uint64, terminated bool) testImage {
	ib := preferredBase(is64)
	fields := []uint64{ib + 0x2000, ib + 0x2100, ib + 0x3000, ib + tlsArrayRVA}

	var dir []byte
	width := 4
	if is64 {
		width = 8
		for _, f := range fields {
			dir = binary.LittleEndian.AppendUint64(dir, f)
		}
	} else {
		for _, f := range fields {
			dir = binary.LittleEndian.AppendUint32(dir, uint32(f))
		}
	}
	dir = binary.LittleEndian.AppendUint32(dir, 0x10)
	dir = binary.LittleEndian.AppendUint32(dir, 0x00300000)

	entries := slices.Clone(callbacks)
	if terminated {
		entries = append(entries, 0)
	}
	var array []byte
	for _, cb := range entries {
		if width == 8 {
			array = binary.LittleEndian.AppendUint64(array, cb)
		} else {
			array = binary.LittleEndian.AppendUint32(array, uint32(cb))
		}
	}

	img := newTestImage(is64)
	img.dirs = map[int]pe.DataDirectory{
		pe.IMAGE_DIRECTORY_ENTRY_TLS: {VirtualAddress: tlsDirRVA, Size: uint32(len(dir))},
	}
	img.patches = []patch{{off: tlsDirRVA, data: dir}, {off: tlsArrayRVA, data: array}}
	return img
}

func TestTlsDir(t *testing.T) {
	for _, is64 := range []bool{false, true} {
		t.Run(fmt.Sprintf("pe32plus=%v", is64), func(t *testing.T) {
			ib := preferredBase(is64)
			want := []uint64{ib + 0x1100, ib + 0x1200, ib + 0x1300}

			pf, err := Open(tlsImage(is64, want, true).reader(), testBase, FileTypeImage)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			td, err := OpenTlsDir(pf)
			if err != nil {
				t.Fatalf("OpenTlsDir: %v", err)
			}

			if td.Base() != testBase+tlsDirRVA || td.String() != (testBase+tlsDirRVA).ToString() {
				t.Errorf("Base = %s", td.Base().ToString())
			}
			if td.StartAddressOfRawData != ib+0x2000 || td.EndAddressOfRawData != ib+0x2100 || td.AddressOfIndex != ib+0x3000 {
				t.Errorf("unexpected raw data fields: %+v", td)
			}
			if td.AddressOfCallBacks != ib+tlsArrayRVA || td.SizeOfZeroFill != 0x10 || td.Characteristics != 0x00300000 {
				t.Errorf("unexpected callback fields: %+v", td)
			}

			got, err := td.ReadCallbacks()
			if err != nil {
				t.Fatalf("ReadCallbacks: %v", err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("callbacks = %#x, want %#x", got, want)
			}
		})
	}
}

func TestTlsDirNoCallbacks(t *testing.T) {
	pf, err := Open(tlsImage(true, nil, true).reader(), testBase, FileTypeImage)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	td, err := OpenTlsDir(pf)
	if err != nil {
		t.Fatalf("OpenTlsDir: %v", err)
	}
	got, err := td.ReadCallbacks()
	if err != nil || len(got) != 0 {
		t.Errorf("ReadCallbacks = %v, %v; want none", got, err)
	}
}

func TestTlsDirAbsent(t *testing.T) {
	short := newTestImage(false)
	short.rvaCount = pe.IMAGE_DIRECTORY_ENTRY_TLS

	tests := []struct {
		name string
		img  testImage
	}{
		{"empty entry", newTestImage(true)},
		{"beyond NumberOfRvaAndSizes", short},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pf, err := Open(test.img.reader(), testBase, FileTypeImage)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, err := OpenTlsDir(pf); !errors.Is(err, ErrDataDirectoryAbsent) {
				t.Errorf("OpenTlsDir error = %v, want ErrDataDirectoryAbsent", err)
			}
		})
	}

	pf, err := Open(newTestImage(true).reader(), testBase, FileTypeImage)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := pf.DataDirectory(16); !errors.Is(err, ErrDataDirectoryAbsent) {
		t.Errorf("DataDirectory(16) error = %v", err)
	}
}

func TestTlsCallbacksUnterminated(t *testing.T) {
	ib := preferredBase(false)
	callbacks := []uint64{ib + 0x1100, ib + 0x1200, ib + 0x1300, ib + 0x1400, ib + 0x1500}

	pf, err := Open(tlsImage(false, callbacks, false).reader(), testBase, FileTypeImage, WithMaxTlsCallbacks(3))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	td, err := OpenTlsDir(pf)
	if err != nil {
		t.Fatalf("OpenTlsDir: %v", err)
	}

	got, err := td.ReadCallbacks()
	if !errors.Is(err, ErrTlsCallbacksUnterminated) {
		t.Fatalf("ReadCallbacks error = %v, want ErrTlsCallbacksUnterminated", err)
	}
	if !slices.Equal(got, callbacks[:3]) {
		t.Errorf("callbacks before the error = %#x", got)
	}
}

func TestTlsCallbacksOutsideImage(t *testing.T) {
	ib := preferredBase(true)
	img := tlsImage(true, []uint64{ib + 0x1100}, true)

	pf, err := Open(img.reader(), testBase, FileTypeImage, WithImageSize(tlsArrayRVA))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	td, err := OpenTlsDir(pf)
	if err != nil {
		t.Fatalf("OpenTlsDir: %v", err)
	}
	if _, err := td.ReadCallbacks(); !errors.Is(err, ErrImageReadFault) {
		t.Errorf("ReadCallbacks error = %v, want ErrImageReadFault", err)
	}
}

func TestTlsCallbacksEarlyTermination(t *testing.T) {
	ib := preferredBase(true)
	cr := &countingReader{r: tlsImage(true, []uint64{ib + 0x1100, ib + 0x1200, ib + 0x1300}, true).reader()}

	pf, err := Open(cr, testBase, FileTypeImage)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	td, err := OpenTlsDir(pf)
	if err != nil {
		t.Fatalf("OpenTlsDir: %v", err)
	}

	before := cr.reads
	for _, err := range td.Callbacks() {
		if err != nil {
			t.Fatalf("Callbacks: %v", err)
		}
		break
	}
	if cr.reads != before+1 {
		t.Errorf("reads after break = %d, want 1", cr.reads-before)
	}
}

func TestFileHeader(t *testing.T) {
	img := newTestImage(true, standardSections(3)...)
	pf, err := Open(img.reader(), testBase, FileTypeImage)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fh := pf.FileHeader()
	if fh.Machine != pe.IMAGE_FILE_MACHINE_AMD64 || fh.NumberOfSections != 3 || fh.SizeOfOptionalHeader != 240 {
		t.Errorf("FileHeader = %+v", fh)
	}
}
