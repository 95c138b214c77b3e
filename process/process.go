// Package process provides the types and interfaces shared by the module
// enumerator, the PE parser and the platform process implementations.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessUnavailable is returned when the target process exited or can no longer be inspected.
	ErrProcessUnavailable = errors.New("process unavailable")

	// ErrInsufficientPrivilege is returned when the caller lacks the rights to inspect the process.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrPartialEnumeration is returned when the operating system truncated a module listing.
	ErrPartialEnumeration = errors.New("partial module enumeration")

	// ErrImageReadFault is returned when a read over an image cannot be satisfied.
	ErrImageReadFault = errors.New("image read fault")

	ErrAddressOverflow = errors.New("address arithmetic overflow")
)
