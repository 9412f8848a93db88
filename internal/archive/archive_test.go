package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCPKRoundTripThroughDirectory(t *testing.T) {
	srcDir := t.TempDir()
	contents := map[string][]byte{
		"0": []byte("hello"),
		"1": bytes.Repeat([]byte{0x7A}, 50),
	}
	for name, data := range contents {
		if err := os.WriteFile(filepath.Join(srcDir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	archivePath := filepath.Join(t.TempDir(), "out.cpk")
	if err := PackCPK(srcDir, archivePath); err != nil {
		t.Fatal(err)
	}

	extractDir := t.TempDir()
	if err := UnpackCPK(archivePath, extractDir); err != nil {
		t.Fatal(err)
	}
	for name, want := range contents {
		got, err := os.ReadFile(filepath.Join(extractDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestPackCPKRejectsNonDecimalName(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "not-an-id.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := PackCPK(srcDir, filepath.Join(t.TempDir(), "out.cpk")); err == nil {
		t.Fatal("want error for non-decimal filename, got nil")
	}
}

func TestMPKRoundTripThroughDirectory(t *testing.T) {
	srcDir := t.TempDir()
	names := map[string][]byte{
		"0x0_a.bin": []byte("alpha"),
		"0x1_b.bin": bytes.Repeat([]byte{0x11}, 30),
	}
	for name, data := range names {
		if err := os.WriteFile(filepath.Join(srcDir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	archivePath := filepath.Join(t.TempDir(), "out.mpk")
	if err := PackMPK(srcDir, archivePath); err != nil {
		t.Fatal(err)
	}

	extractDir := t.TempDir()
	if err := UnpackMPK(archivePath, extractDir); err != nil {
		t.Fatal(err)
	}
	for name, want := range names {
		got, err := os.ReadFile(filepath.Join(extractDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestParseMPKFilename(t *testing.T) {
	id, name, err := parseMPKFilename("0x1e_phone_rine.dds")
	if err != nil {
		t.Fatal(err)
	}
	if id != 0x1e || name != "phone_rine.dds" {
		t.Fatalf("got id=%#x name=%q", id, name)
	}
	if _, _, err := parseMPKFilename("noprefix.bin"); err == nil {
		t.Fatal("want error for missing 0x prefix, got nil")
	}
}
