// Package mpk implements MAGES.'s MPK fixed-record archive: a small header
// followed by a flat array of fixed-size entry records, then file content
// aligned to 2048-byte boundaries. Unlike CPK, MPK entries carry their own
// filename and must have contiguous, zero-based IDs.
package mpk

import (
	"bytes"
	"sort"

	"github.com/mos9527/mages-tools/internal/stream"
	"golang.org/x/xerrors"
)

// Magic is "MPK\0" as it appears on the wire.
const Magic uint32 = 0x004B504D

const (
	headerSize     = 0x40
	recordSize     = 0x100
	filenameSize   = 0xE0
	defaultVersion = 0x020000
	contentAlign   = 2048
)

// Entry is one file's record within an MPK archive.
type Entry struct {
	ID               uint32
	Offset           uint64
	Size             uint64
	DecompressedSize uint64
	Filename         string
}

// Compressed reports whether the entry was stored compressed. The
// reference packer never sets this; Unpack surfaces it for archives
// produced by other tools.
func (e Entry) Compressed() bool { return e.Size != e.DecompressedSize }

func readFixedCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func writeFixedCString(s string, size int) ([]byte, error) {
	if len(s) >= size {
		return nil, xerrors.Errorf("mpk: filename %q too long (max %d bytes)", s, size-1)
	}
	out := make([]byte, size)
	copy(out, s)
	return out, nil
}

// Unpack parses data as an MPK archive and returns its entries in on-disk
// record order.
func Unpack(data []byte) ([]Entry, error) {
	s := stream.FromBytes(data, stream.LittleEndian)
	magic, err := s.ReadU32()
	if err != nil {
		return nil, xerrors.Errorf("mpk: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, xerrors.Errorf("mpk: bad magic %#x, want %#x", magic, Magic)
	}
	if _, err := s.ReadU32(); err != nil { // version
		return nil, xerrors.Errorf("mpk: reading version: %w", err)
	}
	count, err := s.ReadU64()
	if err != nil {
		return nil, xerrors.Errorf("mpk: reading entry count: %w", err)
	}

	s.Seek(headerSize)
	entries := make([]Entry, count)
	for i := range entries {
		compression, err := s.ReadU32()
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading compression flag: %w", i, err)
		}
		id, err := s.ReadU32()
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading id: %w", i, err)
		}
		offset, err := s.ReadU64()
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading offset: %w", i, err)
		}
		size, err := s.ReadU64()
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading size: %w", i, err)
		}
		decompressed, err := s.ReadU64()
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading decompressed size: %w", i, err)
		}
		nameBuf, err := s.ReadBytes(filenameSize)
		if err != nil {
			return nil, xerrors.Errorf("mpk: entry %d: reading filename: %w", i, err)
		}
		_ = compression // the reference tool never sets or reads it either
		entries[i] = Entry{
			ID:               id,
			Offset:           offset,
			Size:             size,
			DecompressedSize: decompressed,
			Filename:         readFixedCString(nameBuf),
		}
	}
	return entries, nil
}

// PackFile is one file to place in an MPK archive.
type PackFile struct {
	ID       uint32
	Filename string
	Data     []byte
}

// Pack builds a complete MPK archive in memory from files and returns its
// bytes. Files are sorted by ID, which must be contiguous starting at zero
// (§4.6's packing invariant): Pack rejects any gap or duplicate. Content is
// written in ID order, each entry aligned up to 2048 bytes.
func Pack(files []PackFile) ([]byte, error) {
	sorted := make([]PackFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, f := range sorted {
		if f.ID != uint32(i) {
			return nil, xerrors.Errorf("mpk: entry ids must be contiguous from 0, got id %d at position %d", f.ID, i)
		}
	}

	s := stream.New(stream.LittleEndian)
	s.WriteU32(Magic)
	s.WriteU32(defaultVersion)
	s.WriteU64(uint64(len(sorted)))
	s.Seek(headerSize)

	recordsStart := s.Tell()
	s.Seek(recordsStart + len(sorted)*recordSize)
	s.Seek(int(alignUp(uint64(s.Tell()), contentAlign)))

	records := make([]Entry, len(sorted))
	for i, f := range sorted {
		offset := uint64(s.Tell())
		s.WriteBytes(f.Data)
		s.Seek(int(alignUp(uint64(s.Tell()), contentAlign)))
		records[i] = Entry{
			ID:               f.ID,
			Offset:           offset,
			Size:             uint64(len(f.Data)),
			DecompressedSize: uint64(len(f.Data)),
			Filename:         f.Filename,
		}
	}

	s.Seek(recordsStart)
	for _, r := range records {
		s.WriteU32(0) // compression: always stored uncompressed
		s.WriteU32(r.ID)
		s.WriteU64(r.Offset)
		s.WriteU64(r.Size)
		s.WriteU64(r.DecompressedSize)
		name, err := writeFixedCString(r.Filename, filenameSize)
		if err != nil {
			return nil, err
		}
		s.WriteBytes(name)
	}

	return s.Bytes(), nil
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}
