package memory_map

import (
	"strings"
	"testing"
)

const sampleMaps = `55d4c8a00000-55d4c8a02000 r--p 00000000 08:01 131090                     /usr/bin/cat
55d4c8a02000-55d4c8a07000 r-xp 00002000 08:01 131090                     /usr/bin/cat
55d4c8a07000-55d4c8a0a000 r--p 00007000 08:01 131090                     /usr/bin/cat
55d4ca4f1000-55d4ca512000 rw-p 00000000 00:00 0                          [heap]
7f0e1a000000-7f0e1a028000 r--p 00000000 08:01 140230                     /usr/lib/x86_64-linux-gnu/libc.so.6
7f0e1a028000-7f0e1a1bd000 r-xp 00028000 08:01 140230                     /usr/lib/x86_64-linux-gnu/libc.so.6
7f0e1a1bd000-7f0e1a215000 r--p 001bd000 08:01 140230                     /usr/lib/x86_64-linux-gnu/libc.so.6
7f0e1a215000-7f0e1a222000 rw-p 00000000 00:00 0
7f0e1a300000-7f0e1a301000 r--p 00000000 08:01 150001                     /tmp/dir with space/a.dll (deleted)
not a valid line
7ffd3b5d2000-7ffd3b5f3000 rw-p 00000000 00:00 0                          [stack]
`

func TestParseMemoryMap(t *testing.T) {
	mm, err := ParseMemoryMap(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("ParseMemoryMap: %v", err)
	}
	if len(mm) != 10 {
		t.Fatalf("got %d items, want 10", len(mm))
	}

	first := mm[0]
	if first.Address != 0x55d4c8a00000 || first.Size != 0x2000 || first.Perms != "r--p" || first.Inode != 131090 || first.Path != "/usr/bin/cat" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if mm[1].Offset != 0x2000 || !mm[1].IsExecutable() {
		t.Errorf("unexpected second item: %+v", mm[1])
	}
	if mm[3].IsFileBacked() {
		t.Errorf("[heap] must not be file backed")
	}
	if mm[7].Path != "" || mm[7].IsFileBacked() {
		t.Errorf("anonymous mapping parsed as %+v", mm[7])
	}
	if mm[8].Path != "/tmp/dir with space/a.dll" {
		t.Errorf("path with spaces parsed as %q", mm[8].Path)
	}
}

func TestGroupImages(t *testing.T) {
	mm, err := ParseMemoryMap(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("ParseMemoryMap: %v", err)
	}
	SortByAddress(mm)

	images := GroupImages(mm)
	want := []MappedImage{
		{Address: 0x55d4c8a00000, Size: 0xa000, Name: "cat", Path: "/usr/bin/cat"},
		{Address: 0x7f0e1a000000, Size: 0x215000, Name: "libc.so.6", Path: "/usr/lib/x86_64-linux-gnu/libc.so.6"},
		{Address: 0x7f0e1a300000, Size: 0x1000, Name: "a.dll", Path: "/tmp/dir with space/a.dll"},
	}
	if len(images) != len(want) {
		t.Fatalf("got %d images, want %d: %+v", len(images), len(want), images)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("image %d = %+v, want %+v", i, images[i], want[i])
		}
	}
}

func TestGroupImagesMappedTwice(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "r--p", Inode: 7, Path: "/lib/a.so"},
		{Address: 0x2000, Size: 0x1000, Perms: "r-xp", Offset: 0x1000, Inode: 7, Path: "/lib/a.so"},
		{Address: 0x8000, Size: 0x1000, Perms: "r--p", Inode: 7, Path: "/lib/a.so"},
	}

	images := GroupImages(mm)
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2", len(images))
	}
	if images[0].Size != 0x2000 || images[1].Address != 0x8000 {
		t.Errorf("unexpected images: %+v", images)
	}
}

func TestFindRegion(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "r--p"},
		{Address: 0x2000, Size: 0x1000, Perms: "---p"},
		{Address: 0x5000, Size: 0x1000, Perms: "rw-p"},
	}

	tests := []struct {
		addr uint64
		want bool
	}{
		{0x0fff, false},
		{0x1000, true},
		{0x2fff, true},
		{0x3000, false},
		{0x5800, true},
		{0x6000, false},
	}
	for _, test := range tests {
		if got := IsValidAddress(test.addr, mm); got != test.want {
			t.Errorf("IsValidAddress(%#x) = %v, want %v", test.addr, got, test.want)
		}
	}

	if !IsReadableRange(0x1000, 0x1000, mm) {
		t.Errorf("expected readable range")
	}
	if IsReadableRange(0x1800, 0x1000, mm) {
		t.Errorf("range crossing a ---p region must not be readable")
	}
	if IsReadableRange(0x5800, 0x1000, mm) {
		t.Errorf("range past the end of the map must not be readable")
	}
}

func TestGroupImagesInterleaved(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "r--p", Inode: 9, Path: "/opt/app/res.pak"},
		{Address: 0x3000, Size: 0x1000, Perms: "r--p", Inode: 4, Path: "/lib/libbar.so"},
		{Address: 0x10000, Size: 0x1000, Perms: "r--p", Offset: 0x5000, Inode: 9, Path: "/opt/app/res.pak"},
	}

	images := GroupImages(mm)
	want := []MappedImage{
		{Address: 0x1000, Size: 0x1000, Name: "res.pak", Path: "/opt/app/res.pak"},
		{Address: 0x3000, Size: 0x1000, Name: "libbar.so", Path: "/lib/libbar.so"},
		{Address: 0x10000, Size: 0x1000, Name: "res.pak", Path: "/opt/app/res.pak"},
	}
	if len(images) != len(want) {
		t.Fatalf("got %d images, want %d: %+v", len(images), len(want), images)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("image %d = %+v, want %+v", i, images[i], want[i])
		}
	}

	for i := 1; i < len(images); i++ {
		if images[i].Address < images[i-1].Address+images[i-1].Size {
			t.Errorf("image %d overlaps image %d", i, i-1)
		}
	}
}
