package table

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tbl := New(
		ColumnSpec{Header: "Name"},
		ColumnSpec{Header: "Size", AlignRight: true},
		ColumnSpec{Header: "Flags"},
	)
	tbl.AddRow(".text", "0x1000", "CODE|EXECUTE|READ")
	tbl.AddRow(".rsrc", "0x200")
	tbl.AddRow("", "0x20", "READ", "ignored")

	var sb strings.Builder
	if err := tbl.Render(&sb); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "" +
		"Name    Size Flags\n" +
		"----- ------ -----------------\n" +
		".text 0x1000 CODE|EXECUTE|READ\n" +
		".rsrc  0x200 -\n" +
		"-       0x20 READ\n"
	if sb.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", sb.String(), want)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len = %d, want 3", tbl.Len())
	}
}

func TestColoredCellsAlign(t *testing.T) {
	red := func(s string) string { return "\033[31m" + s + "\033[0m" }
	tbl := New(ColumnSpec{Header: "A", Format: red}, ColumnSpec{Header: "B"})
	tbl.AddRow("abc", "x")

	var sb strings.Builder
	if err := tbl.Render(&sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(sb.String(), "\n")
	if lines[2] != "\033[31mabc\033[0m x" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestVisibleLength(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"plain", 5},
		{"\033[1;32mok\033[0m", 2},
	}
	for _, test := range tests {
		if got := visibleLength(test.in); got != test.want {
			t.Errorf("visibleLength(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}
