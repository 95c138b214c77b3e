// Package module enumerates the modules mapped into a process.
//
// A module list is a snapshot. The target keeps running, so a module yielded here
// may be unloaded before its headers are parsed; callers treat a later read fault
// on that module as a normal outcome.
package module

import (
	"fmt"
	"iter"

	"gomodsec/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "module"))

// Enumerate returns a lazy, single-pass sequence over a fresh snapshot of the
// lister's modules. The snapshot is taken on the first pull and closed when the
// sequence ends, fails, or the consumer stops early.
//
// Entries of size zero, entries whose base was already yielded, and entries
// overlapping an earlier entry are skipped. A snapshot error is yielded once
// with a zero Module and ends the sequence.
func Enumerate(lister process.ModuleLister) iter.Seq2[process.Module, error] {
	return func(yield func(process.Module, error) bool) {
		snapshot, err := lister.SnapshotModules()
		if err != nil {
			yield(process.Module{}, err)
			return
		}
		defer func() {
			if err := snapshot.Close(); err != nil {
				log.Warn("Failed to close module snapshot: ", err)
			}
		}()

		var seen filter
		for {
			mod, ok, err := snapshot.Next()
			if err != nil {
				yield(process.Module{}, err)
				return
			}
			if !ok {
				return
			}

			if reason := seen.admit(mod); reason != "" {
				log.Debugln("Skipping module", mod.String(), reason)
				continue
			}

			if !yield(mod, nil) {
				return
			}
		}
	}
}

// Collect drains seq. On error the modules gathered so far are returned with it.
func Collect(seq iter.Seq2[process.Module, error]) ([]process.Module, error) {
	var modules []process.Module
	for mod, err := range seq {
		if err != nil {
			return modules, err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

// List enumerates every module of lister.
func List(lister process.ModuleLister) ([]process.Module, error) {
	return Collect(Enumerate(lister))
}

// filter keeps the yielded ranges of one traversal.
type filter struct {
	yielded []process.Module
}

// admit returns why mod must be skipped, or "" after recording it.
func (f *filter) admit(mod process.Module) string {
	if mod.Size == 0 {
		return "(empty)"
	}
	for _, prev := range f.yielded {
		if prev.Base == mod.Base {
			return "(duplicate base)"
		}
		if prev.Overlaps(mod) {
			return fmt.Sprintf("(overlaps %s)", prev.Name)
		}
	}
	f.yielded = append(f.yielded, mod)
	return ""
}

// SliceSnapshot serves a module list held in memory.
type SliceSnapshot struct {
	modules []process.Module
	next    int
	closed  bool
}

func NewSliceSnapshot(modules []process.Module) *SliceSnapshot {
	return &SliceSnapshot{modules: modules}
}

func (s *SliceSnapshot) Next() (process.Module, bool, error) {
	if s.closed {
		return process.Module{}, false, fmt.Errorf("module snapshot: %w", process.ErrProcessNotOpen)
	}
	if s.next >= len(s.modules) {
		return process.Module{}, false, nil
	}
	mod := s.modules[s.next]
	s.next++
	return mod, true, nil
}

func (s *SliceSnapshot) Close() error {
	s.closed = true
	s.modules = nil
	return nil
}
