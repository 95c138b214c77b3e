package process

import "fmt"

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID  ProcessID // Process ID
	PPID ProcessID // Parent Process ID
	Name string    // Process name
	Exe  string    // Path to the executable
}

// Module is a point-in-time snapshot of an executable image mapped into a process.
// It stays valid data after the target unloads the image.
type Module struct {
	Base ProcessMemoryAddress
	Size ProcessMemorySize
	Name string
	Path string
}

// End returns the exclusive end of the module's range, saturating on overflow.
func (m Module) End() ProcessMemoryAddress {
	end, err := RangeEnd(m.Base, m.Size)
	if err != nil {
		return ^ProcessMemoryAddress(0)
	}
	return end
}

// Contains reports whether addr falls inside [Base, Base+Size).
func (m Module) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.End()
}

// Overlaps reports whether the two module ranges share at least one byte.
func (m Module) Overlaps(other Module) bool {
	return m.Base < other.End() && other.Base < m.End()
}

func (m Module) String() string {
	return fmt.Sprintf("%s [%s-%s] %s", m.Name, m.Base.ToString(), m.End().ToString(), m.Path)
}
