package pelib

import (
	"debug/pe"
	"fmt"
	"iter"
)

// Sections yields the section table in table order. Each entry is read when the
// consumer asks for it. A failed read or an inconsistent entry is yielded as an
// error and ends the sequence; sections yielded before it stay valid.
func (pf *PeFile) Sections() iter.Seq2[Section, error] {
	return func(yield func(Section, error) bool) {
		count := uint64(pf.fileHeader.NumberOfSections)
		for i := uint64(0); i < count; i++ {
			offset := pf.sectionTableOffset + i*sectionHeaderSize
			sh, err := readAt[pe.SectionHeader32](pf, offset, fmt.Sprintf("section header %d", i))
			if err != nil {
				pf.log().Debugln("Section table read failed at", pf.base.ToString(), err)
				yield(Section{}, err)
				return
			}

			section := newSection(sh)
			if err := pf.checkSection(section); err != nil {
				yield(Section{}, fmt.Errorf("section %d %q: %w", i, section.Name, err))
				return
			}

			if !yield(section, nil) {
				return
			}
		}
	}
}

// checkSection enforces that a mapped section lies inside SizeOfImage.
func (pf *PeFile) checkSection(s Section) error {
	if pf.fileType != FileTypeImage || s.VirtualAddress == 0 {
		return nil
	}
	end := uint64(s.VirtualAddress) + uint64(s.VirtualSize)
	if end > uint64(pf.sizeOfImage) {
		return fmt.Errorf("%w: ends at 0x%X, SizeOfImage 0x%X", ErrSectionOutOfImage, end, pf.sizeOfImage)
	}
	return nil
}

// ReadSections collects Sections. On error the sections read so far are returned with it.
func (pf *PeFile) ReadSections() ([]Section, error) {
	sections := make([]Section, 0, pf.fileHeader.NumberOfSections)
	for section, err := range pf.Sections() {
		if err != nil {
			return sections, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// FindSection returns the first section whose name equals name
func (pf *PeFile) FindSection(name string) (Section, bool, error) {
	for section, err := range pf.Sections() {
		if err != nil {
			return Section{}, false, err
		}
		if section.Name == name {
			return section, true, nil
		}
	}
	return Section{}, false, nil
}
