// Package process_finder looks up running processes through gopsutil.
package process_finder

import (
	"fmt"
	"regexp"
	"sort"

	"gomodsec/process"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// Finder implements process.ProcessFinder on every platform gopsutil supports
type Finder struct{}

var _ process.ProcessFinder = (*Finder)(nil)

// NewProcessFinder creates a new Finder
func NewProcessFinder() process.ProcessFinder {
	return &Finder{}
}

// FindProcessByPID finds a process by its PID
func (f *Finder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	p, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: pid %d: %w", process.ErrProcessUnavailable, pid, err)
	}
	info := describe(p)
	return &info, nil
}

// FindProcessByName finds processes by their name (exact match)
func (f *Finder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	return findByNamePattern("^" + regexp.QuoteMeta(name) + "$")
}

// FindProcessByNamePattern finds processes by their name (pattern match)
func (f *Finder) FindProcessByNamePattern(pattern string) ([]process.ProcessInfo, error) {
	return findByNamePattern(pattern)
}

// FindAllProcesses returns information about all running processes
func (f *Finder) FindAllProcesses() ([]process.ProcessInfo, error) {
	return findByNamePattern("")
}

func findByNamePattern(pattern string) ([]process.ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	return Match(describeAll(procs), re), nil
}

// Match filters infos by name and sorts the result by PID.
func Match(infos []process.ProcessInfo, re *regexp.Regexp) []process.ProcessInfo {
	var results []process.ProcessInfo
	for _, info := range infos {
		if info.Name == "" {
			continue
		}
		if re.MatchString(info.Name) {
			results = append(results, info)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})
	return results
}

func describeAll(procs []*gopsprocess.Process) []process.ProcessInfo {
	infos := make([]process.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		infos = append(infos, describe(p))
	}
	return infos
}

// describe is best effort: processes may exit or deny access while being read.
func describe(p *gopsprocess.Process) process.ProcessInfo {
	info := process.ProcessInfo{PID: process.ProcessID(p.Pid)}
	if name, err := p.Name(); err == nil {
		info.Name = name
	}
	if ppid, err := p.Ppid(); err == nil {
		info.PPID = process.ProcessID(ppid)
	}
	if exe, err := p.Exe(); err == nil {
		info.Exe = exe
	}
	return info
}
