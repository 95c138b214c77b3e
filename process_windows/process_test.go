//go:build windows

package process_windows

import (
	"errors"
	"os"
	"strings"
	"testing"

	"gomodsec/module"
	"gomodsec/pelib"
	"gomodsec/process"

	"golang.org/x/sys/windows"
)

func openSelf(t *testing.T) *WindowsProcess {
	t.Helper()
	p := New()
	if err := p.Open(process.ProcessID(os.Getpid())); err != nil {
		t.Fatalf("Open(self): %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSelfModulesAndSections(t *testing.T) {
	p := openSelf(t)

	modules, err := module.List(p)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var kernel32 process.Module
	for _, mod := range modules {
		if strings.EqualFold(mod.Name, "kernel32.dll") {
			kernel32 = mod
		}
	}
	if kernel32.Size == 0 {
		t.Fatalf("kernel32.dll not found among %d modules", len(modules))
	}

	pf, err := pelib.Open(p, kernel32.Base, pelib.FileTypeImage, pelib.WithImageSize(kernel32.Size))
	if err != nil {
		t.Fatalf("pelib.Open(kernel32): %v", err)
	}
	if _, ok, err := pf.FindSection(".text"); err != nil || !ok {
		t.Errorf("kernel32.dll .text section: found=%v err=%v", ok, err)
	}
}

func TestSelfPath(t *testing.T) {
	p := openSelf(t)

	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	path, err := p.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if !strings.EqualFold(path, exe) {
		t.Errorf("Path = %q, want %q", path, exe)
	}
}

func TestEarlyTerminationClosesSnapshot(t *testing.T) {
	p := openSelf(t)

	snapshot, err := p.SnapshotModules()
	if err != nil {
		t.Fatalf("SnapshotModules: %v", err)
	}
	if _, ok, err := snapshot.Next(); !ok || err != nil {
		t.Fatalf("Next = %v, %v", ok, err)
	}
	if err := snapshot.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := snapshot.Next(); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Errorf("Next after Close error = %v", err)
	}
}

func TestClosedProcess(t *testing.T) {
	p := openSelf(t)
	p.Close()

	if _, err := p.ReadMemory(0x1000, 4); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Errorf("ReadMemory after Close error = %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{windows.ERROR_INVALID_PARAMETER, process.ErrProcessUnavailable},
		{windows.ERROR_ACCESS_DENIED, process.ErrInsufficientPrivilege},
		{windows.ERROR_PARTIAL_COPY, process.ErrPartialEnumeration},
	}
	for _, test := range tests {
		if got := classify(test.err); !errors.Is(got, test.want) {
			t.Errorf("classify(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}
