package mpk

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	files := []PackFile{
		{ID: 1, Filename: "b.bin", Data: bytes.Repeat([]byte{0xCD}, 100)},
		{ID: 0, Filename: "a.bin", Data: []byte("hello world")},
		{ID: 2, Filename: "c.bin", Data: []byte{}},
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

	byID := make(map[uint32]PackFile)
	for _, f := range files {
		byID[f.ID] = f
	}
	for i, e := range entries {
		if e.ID != uint32(i) {
			t.Fatalf("entries[%d].ID = %d, want %d (records must stay in ID order)", i, e.ID, i)
		}
		want := byID[e.ID]
		if e.Filename != want.Filename {
			t.Fatalf("entry %d filename = %q, want %q", e.ID, e.Filename, want.Filename)
		}
		if e.Compressed() {
			t.Fatalf("entry %d reports compressed, Pack never compresses", e.ID)
		}
		got := archive[e.Offset : e.Offset+e.Size]
		if !bytes.Equal(got, want.Data) {
			t.Fatalf("entry %d content mismatch", e.ID)
		}
		if e.Offset%2048 != 0 {
			t.Fatalf("entry %d offset %d not 2048-aligned", e.ID, e.Offset)
		}
	}
}

func TestPackRejectsNonContiguousIDs(t *testing.T) {
	files := []PackFile{
		{ID: 0, Filename: "a.bin", Data: []byte("x")},
		{ID: 2, Filename: "c.bin", Data: []byte("y")},
	}
	if _, err := Pack(files); err == nil {
		t.Fatal("want error for non-contiguous ids, got nil")
	}
}

func TestPackRejectsFilenameTooLong(t *testing.T) {
	files := []PackFile{
		{ID: 0, Filename: string(bytes.Repeat([]byte("x"), filenameSize)), Data: []byte("x")},
	}
	if _, err := Pack(files); err == nil {
		t.Fatal("want error for oversized filename, got nil")
	}
}

func TestUnpackRejectsBadMagic(t *testing.T) {
	if _, err := Unpack(bytes.Repeat([]byte{0}, headerSize)); err == nil {
		t.Fatal("want error for bad magic, got nil")
	}
}
