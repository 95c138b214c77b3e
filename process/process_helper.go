package process

import "fmt"

// Opener opens a process by PID. The platform packages provide NewWithPID with this signature.
type Opener func(pid ProcessID) (Process, error)

// OpenProcessByName opens the lowest-PID process whose name matches exactly.
func OpenProcessByName(finder ProcessFinder, open Opener, name string) (Process, error) {
	processes, err := finder.FindProcessByName(name)
	if err != nil {
		return nil, err
	}
	return openFirst(processes, open, fmt.Sprintf("no process found with name '%s'", name))
}

// OpenProcessByPattern opens the lowest-PID process whose name matches pattern.
func OpenProcessByPattern(finder ProcessFinder, open Opener, pattern string) (Process, error) {
	processes, err := finder.FindProcessByNamePattern(pattern)
	if err != nil {
		return nil, err
	}
	return openFirst(processes, open, fmt.Sprintf("no process found matching pattern '%s'", pattern))
}

func openFirst(processes []ProcessInfo, open Opener, notFound string) (Process, error) {
	if len(processes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProcessUnavailable, notFound)
	}

	// pick the lowest PID for determinism
	pick := processes[0]
	for _, p := range processes[1:] {
		if p.PID < pick.PID {
			pick = p
		}
	}
	return open(pick.PID)
}
