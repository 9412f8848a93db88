package cpk

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	files := []PackFile{
		{ID: 2, Data: bytes.Repeat([]byte{0xAB}, 37)},
		{ID: 0, Data: []byte("hello")},
		{ID: 1, Data: []byte{}},
	}
	archive, err := Pack(files)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := Unpack(archive)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for i, want := range []uint16{0, 1, 2} {
		if entries[i].ID != want {
			t.Fatalf("entries[%d].ID = %d, want %d", i, entries[i].ID, want)
		}
	}

	byID := make(map[uint16][]byte)
	for _, f := range files {
		byID[f.ID] = f.Data
	}
	for _, e := range entries {
		want := byID[e.ID]
		if int(e.Size) != len(want) {
			t.Fatalf("entry %d size = %d, want %d", e.ID, e.Size, len(want))
		}
		if e.Compressed() {
			t.Fatalf("entry %d reports compressed, Pack never compresses", e.ID)
		}
		got := archive[e.Offset : e.Offset+e.Size]
		if !bytes.Equal(got, want) {
			t.Fatalf("entry %d content mismatch: got %v, want %v", e.ID, got, want)
		}
	}
}

func TestUnpackEntriesAlignedAndOrdered(t *testing.T) {
	files := []PackFile{
		{ID: 5, Data: bytes.Repeat([]byte{1}, 4000)},
		{ID: 1, Data: bytes.Repeat([]byte{2}, 10)},
	}
	archive, err := Pack(files)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := Unpack(archive)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].ID != 1 || entries[1].ID != 5 {
		t.Fatalf("entries not sorted by ID: %+v", entries)
	}
	if entries[1].Offset%2048 != 0 {
		t.Fatalf("entries[1].Offset = %d, not 2048-aligned", entries[1].Offset)
	}
}

func TestUnpackRejectsBadMagic(t *testing.T) {
	if _, err := Unpack([]byte("not a cpk archive at all, but long enough to read a header from")); err == nil {
		t.Fatal("want error for bad magic, got nil")
	}
}
