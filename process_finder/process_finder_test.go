package process_finder

import (
	"os"
	"regexp"
	"testing"

	"gomodsec/process"
)

func TestMatch(t *testing.T) {
	infos := []process.ProcessInfo{
		{PID: 30, Name: "notepad.exe"},
		{PID: 4, Name: "System"},
		{PID: 12, Name: "notepad.exe"},
		{PID: 9, Name: ""},
		{PID: 50, Name: "notepad.exe.bak"},
	}

	tests := []struct {
		pattern string
		want    []process.ProcessID
	}{
		{"^" + regexp.QuoteMeta("notepad.exe") + "$", []process.ProcessID{12, 30}},
		{"^notepad", []process.ProcessID{12, 30, 50}},
		{"", []process.ProcessID{4, 12, 30, 50}},
		{"^calc", nil},
	}

	for _, test := range tests {
		got := Match(infos, regexp.MustCompile(test.pattern))
		if len(got) != len(test.want) {
			t.Errorf("Match(%q) = %v, want pids %v", test.pattern, got, test.want)
			continue
		}
		for i := range got {
			if got[i].PID != test.want[i] {
				t.Errorf("Match(%q)[%d] pid = %d, want %d", test.pattern, i, got[i].PID, test.want[i])
			}
		}
	}
}

func TestFindSelf(t *testing.T) {
	finder := NewProcessFinder()

	info, err := finder.FindProcessByPID(process.ProcessID(os.Getpid()))
	if err != nil {
		t.Fatalf("FindProcessByPID(self): %v", err)
	}
	if info.Name == "" {
		t.Skip("process name not readable here")
	}

	matches, err := finder.FindProcessByName(info.Name)
	if err != nil {
		t.Fatalf("FindProcessByName(%q): %v", info.Name, err)
	}
	found := false
	for _, m := range matches {
		if m.PID == info.PID {
			found = true
		}
	}
	if !found {
		t.Errorf("FindProcessByName(%q) did not return pid %d", info.Name, info.PID)
	}

	if _, err := finder.FindProcessByNamePattern("("); err == nil {
		t.Errorf("expected error for an invalid pattern")
	}
}
