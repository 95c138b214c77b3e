package process

// ImageReader reads raw bytes from a process's address space.
// A read either returns exactly size bytes or fails.
type ImageReader interface {
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// ModuleSnapshot is a point-in-time list of the modules mapped into a process.
// Close must be called once the snapshot is no longer needed, including when
// iteration stops early.
type ModuleSnapshot interface {
	// Next returns the next module. ok is false once the snapshot is exhausted.
	Next() (mod Module, ok bool, err error)

	// Close releases the resources held by the snapshot
	Close() error
}

// ModuleLister takes module snapshots of a single process.
type ModuleLister interface {
	SnapshotModules() (ModuleSnapshot, error)
}

// Process is the interface that defines operations for interacting with a system process
type Process interface {
	ImageReader
	ModuleLister

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// Path returns the full path of the process executable
	Path() (string, error)
}
