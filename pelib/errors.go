package pelib

import (
	"errors"

	"gomodsec/process"
)

var (
	// ErrInvalidImageSignature is returned when the DOS or NT header chain does not validate.
	ErrInvalidImageSignature = errors.New("invalid image signature")

	// ErrSectionCountImplausible is returned when NumberOfSections exceeds the configured bound.
	ErrSectionCountImplausible = errors.New("section count implausible")

	// ErrInvalidFileType is returned when no mapping mode was given.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrSectionOutOfImage is returned when a section of a mapped image extends past SizeOfImage.
	ErrSectionOutOfImage = errors.New("section outside image")

	// ErrRvaNotMapped is returned when an RVA falls outside the headers and every section's raw data.
	ErrRvaNotMapped = errors.New("rva not mapped")

	// ErrDataDirectoryAbsent is returned when a data directory is not declared or is empty.
	ErrDataDirectoryAbsent = errors.New("data directory absent")

	// ErrTlsCallbacksUnterminated is returned when the TLS callback array has no NULL entry within the bound.
	ErrTlsCallbacksUnterminated = errors.New("tls callback array unterminated")

	// ErrImageReadFault aliases process.ErrImageReadFault so callers can match either.
	ErrImageReadFault = process.ErrImageReadFault
)
