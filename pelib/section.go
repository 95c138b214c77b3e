package pelib

import (
	"bytes"
	"debug/pe"
	"fmt"
	"strings"
)

// SectionCharacteristics holds the IMAGE_SCN_* flags of a section
type SectionCharacteristics uint32

const (
	SectionCode              SectionCharacteristics = pe.IMAGE_SCN_CNT_CODE
	SectionInitializedData   SectionCharacteristics = pe.IMAGE_SCN_CNT_INITIALIZED_DATA
	SectionUninitializedData SectionCharacteristics = pe.IMAGE_SCN_CNT_UNINITIALIZED_DATA
	SectionComdat            SectionCharacteristics = pe.IMAGE_SCN_LNK_COMDAT
	SectionDiscardable       SectionCharacteristics = pe.IMAGE_SCN_MEM_DISCARDABLE
	SectionNotCached         SectionCharacteristics = 0x04000000
	SectionNotPaged          SectionCharacteristics = 0x08000000
	SectionShared            SectionCharacteristics = 0x10000000
	SectionExecute           SectionCharacteristics = pe.IMAGE_SCN_MEM_EXECUTE
	SectionRead              SectionCharacteristics = pe.IMAGE_SCN_MEM_READ
	SectionWrite             SectionCharacteristics = pe.IMAGE_SCN_MEM_WRITE
)

var characteristicNames = []struct {
	flag SectionCharacteristics
	name string
}{
	{SectionCode, "CODE"},
	{SectionInitializedData, "IDATA"},
	{SectionUninitializedData, "UDATA"},
	{SectionComdat, "COMDAT"},
	{SectionDiscardable, "DISCARDABLE"},
	{SectionNotCached, "NOT_CACHED"},
	{SectionNotPaged, "NOT_PAGED"},
	{SectionShared, "SHARED"},
	{SectionExecute, "EXECUTE"},
	{SectionRead, "READ"},
	{SectionWrite, "WRITE"},
}

// Has reports whether every bit of flag is set
func (c SectionCharacteristics) Has(flag SectionCharacteristics) bool {
	return c&flag == flag
}

// String renders known flags joined by "|", unknown bits as a trailing hex value.
func (c SectionCharacteristics) String() string {
	var parts []string
	rest := c
	for _, cn := range characteristicNames {
		if c.Has(cn.flag) {
			parts = append(parts, cn.name)
			rest &^= cn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%08X", uint32(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// Section describes one entry of the section table
type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	RawSize         uint32
	RawOffset       uint32
	Characteristics SectionCharacteristics
}

// sectionName decodes the fixed 8-byte name field. The field is not NUL terminated
// when the name uses all eight bytes.
func sectionName(raw [8]uint8) string {
	return string(bytes.TrimRight(raw[:], "\x00"))
}

func newSection(sh pe.SectionHeader32) Section {
	return Section{
		Name:            sectionName(sh.Name),
		VirtualAddress:  sh.VirtualAddress,
		VirtualSize:     sh.VirtualSize,
		RawSize:         sh.SizeOfRawData,
		RawOffset:       sh.PointerToRawData,
		Characteristics: SectionCharacteristics(sh.Characteristics),
	}
}

// fileOffset maps rva to a file offset when rva lies in the section's raw data.
func (s Section) fileOffset(rva uint32) (uint32, bool) {
	if rva < s.VirtualAddress {
		return 0, false
	}
	delta := rva - s.VirtualAddress
	if delta >= s.RawSize || (s.VirtualSize != 0 && delta >= s.VirtualSize) {
		return 0, false
	}
	off := uint64(s.RawOffset) + uint64(delta)
	if off > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(off), true
}

func (s Section) String() string {
	return fmt.Sprintf("%-8s va=0x%08X vsize=0x%08X raw=0x%08X %s", s.Name, s.VirtualAddress, s.VirtualSize, s.RawSize, s.Characteristics)
}
