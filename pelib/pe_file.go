// Package pelib parses the header chain and section table of a PE image
// through a process.ImageReader, so the image may live in another process.
//
// Every read goes to the reader. The target keeps running while it is parsed,
// so two reads are not guaranteed to observe the same state of the image.
package pelib

import (
	"debug/pe"
	"encoding/binary"
	"fmt"

	"gomodsec/process"

	"github.com/Moonlight-Companies/gologger/logger"
)

// FileType selects how the image is laid out in the address space being read.
type FileType int

const (
	FileTypeUnknown FileType = iota
	// FileTypeImage is an image mapped by the loader: sections sit at their RVAs.
	FileTypeImage
	// FileTypeData is the raw file contents: sections sit at PointerToRawData.
	FileTypeData
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeImage:
		return "image"
	case FileTypeData:
		return "data"
	default:
		return fmt.Sprintf("FileType(%d)", int(ft))
	}
}

// ParseFileType accepts "image" or "data".
func ParseFileType(s string) (FileType, error) {
	switch s {
	case "image":
		return FileTypeImage, nil
	case "data":
		return FileTypeData, nil
	}
	return FileTypeUnknown, fmt.Errorf("%w: %q", ErrInvalidFileType, s)
}

const (
	dosMagic             = 0x5A4D     // MZ
	ntSignature          = 0x00004550 // PE\0\0
	optionalHeaderPrefix = 64
	sectionHeaderSize    = 40

	optionalMagicPE32     = 0x10b
	optionalMagicPE32Plus = 0x20b
)

type dosHeader struct {
	Magic  uint16
	_      [29]uint16
	Lfanew uint32
}

type ntHeaders struct {
	Signature  uint32
	FileHeader pe.FileHeader
}

// PeFile is a validated header chain. It keeps no reference to process state
// other than the reader and holds no resources.
type PeFile struct {
	r        process.ImageReader
	base     process.ProcessMemoryAddress
	fileType FileType
	cfg      config

	fileHeader         pe.FileHeader
	is64               bool
	imageBase          uint64
	entryPoint         uint32
	sizeOfImage        uint32
	sizeOfHeaders      uint32
	optionalOffset     uint64
	sectionTableOffset uint64
}

// Open validates the DOS header, the NT headers and the section count of the
// image at base. It reads only headers; sections are read by Sections.
func Open(r process.ImageReader, base process.ProcessMemoryAddress, fileType FileType, opts ...Option) (*PeFile, error) {
	if fileType != FileTypeImage && fileType != FileTypeData {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, fileType)
	}

	cfg := newConfig(opts)
	if cfg.imageSize != 0 {
		hi, err := process.RangeEnd(base, cfg.imageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: image bounds: %w", ErrImageReadFault, err)
		}
		r = boundedReader{r: r, lo: base, hi: hi}
	}

	pf := &PeFile{
		r:        r,
		base:     base,
		fileType: fileType,
		cfg:      cfg,
	}
	if err := pf.parseHeaders(); err != nil {
		return nil, err
	}

	cfg.log.Debugln("Parsed PE headers at", base.ToString(), "type", fileType,
		"pe32+", pf.is64, "sections", pf.fileHeader.NumberOfSections)
	return pf, nil
}

func (pf *PeFile) parseHeaders() error {
	dos, err := readAt[dosHeader](pf, 0, "DOS header")
	if err != nil {
		return err
	}
	if dos.Magic != dosMagic {
		return fmt.Errorf("%w: DOS magic 0x%04X at %s", ErrInvalidImageSignature, dos.Magic, pf.base.ToString())
	}
	if dos.Lfanew > pf.cfg.maxHeaderOffset {
		return fmt.Errorf("%w: e_lfanew 0x%X exceeds 0x%X", ErrInvalidImageSignature, dos.Lfanew, pf.cfg.maxHeaderOffset)
	}

	nt, err := readAt[ntHeaders](pf, uint64(dos.Lfanew), "NT headers")
	if err != nil {
		return err
	}
	if nt.Signature != ntSignature {
		return fmt.Errorf("%w: NT signature 0x%08X at offset 0x%X", ErrInvalidImageSignature, nt.Signature, dos.Lfanew)
	}

	fh := nt.FileHeader
	if fh.SizeOfOptionalHeader < optionalHeaderPrefix {
		return fmt.Errorf("%w: optional header size %d", ErrInvalidImageSignature, fh.SizeOfOptionalHeader)
	}

	optionalOffset := uint64(dos.Lfanew) + uint64(binary.Size(nt))
	opt, err := readAt[[optionalHeaderPrefix]byte](pf, optionalOffset, "optional header")
	if err != nil {
		return err
	}

	switch magic := binary.LittleEndian.Uint16(opt[0:]); magic {
	case optionalMagicPE32:
		pf.imageBase = uint64(binary.LittleEndian.Uint32(opt[28:]))
	case optionalMagicPE32Plus:
		pf.is64 = true
		pf.imageBase = binary.LittleEndian.Uint64(opt[24:])
	default:
		return fmt.Errorf("%w: optional header magic 0x%04X", ErrInvalidImageSignature, magic)
	}
	pf.entryPoint = binary.LittleEndian.Uint32(opt[16:])
	pf.sizeOfImage = binary.LittleEndian.Uint32(opt[56:])
	pf.sizeOfHeaders = binary.LittleEndian.Uint32(opt[60:])

	if fh.NumberOfSections > pf.cfg.maxSections {
		return fmt.Errorf("%w: %d sections, limit %d", ErrSectionCountImplausible, fh.NumberOfSections, pf.cfg.maxSections)
	}

	pf.fileHeader = fh
	pf.optionalOffset = optionalOffset
	pf.sectionTableOffset = optionalOffset + uint64(fh.SizeOfOptionalHeader)
	return nil
}

// readAt reads a T at base+offset, classifying every failure as ErrImageReadFault.
func readAt[T any](pf *PeFile, offset uint64, what string) (T, error) {
	addr, err := pf.base.Add(offset)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrImageReadFault, what, err)
	}
	return readAddr[T](pf, addr, what)
}

func readAddr[T any](pf *PeFile, addr process.ProcessMemoryAddress, what string) (T, error) {
	v, err := process.Read[T](pf.r, addr)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s at %s: %w", ErrImageReadFault, what, addr.ToString(), err)
	}
	return v, nil
}

// Base returns the address the image was read from
func (pf *PeFile) Base() process.ProcessMemoryAddress {
	return pf.base
}

func (pf *PeFile) FileType() FileType {
	return pf.fileType
}

// Is64 reports whether the optional header is PE32+
func (pf *PeFile) Is64() bool {
	return pf.is64
}

func (pf *PeFile) Machine() uint16 {
	return pf.fileHeader.Machine
}

// MachineName returns a short name for the COFF machine type
func (pf *PeFile) MachineName() string {
	switch pf.fileHeader.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_IA64:
		return "ia64"
	default:
		return fmt.Sprintf("0x%04X", pf.fileHeader.Machine)
	}
}

// FileHeader returns the COFF file header as read by Open
func (pf *PeFile) FileHeader() pe.FileHeader {
	return pf.fileHeader
}

func (pf *PeFile) NumberOfSections() int {
	return int(pf.fileHeader.NumberOfSections)
}

// ImageBase is the preferred load address from the optional header
func (pf *PeFile) ImageBase() uint64 {
	return pf.imageBase
}

func (pf *PeFile) AddressOfEntryPoint() uint32 {
	return pf.entryPoint
}

func (pf *PeFile) SizeOfImage() uint32 {
	return pf.sizeOfImage
}

func (pf *PeFile) SizeOfHeaders() uint32 {
	return pf.sizeOfHeaders
}

// RvaToVa translates a relative virtual address into an address readable through
// the PeFile's reader. Data files are translated through the section table.
func (pf *PeFile) RvaToVa(rva uint32) (process.ProcessMemoryAddress, error) {
	if pf.fileType == FileTypeImage || rva < pf.sizeOfHeaders {
		return pf.base.Add(uint64(rva))
	}

	for section, err := range pf.Sections() {
		if err != nil {
			return 0, err
		}
		if off, ok := section.fileOffset(rva); ok {
			return pf.base.Add(uint64(off))
		}
	}
	return 0, fmt.Errorf("%w: 0x%X", ErrRvaNotMapped, rva)
}

func (pf *PeFile) log() *logger.Logger {
	return pf.cfg.log
}
