// Package cpk implements CriWare's CPK container in its ITOC variant: an
// outer @UTF table describing the content region, and an ITOC @UTF table
// whose DataL/DataH columns are themselves nested @UTF tables listing file
// IDs and sizes. Filenames are not stored; entries are addressed by ID.
package cpk

import (
	"sort"

	"github.com/mos9527/mages-tools/internal/stream"
	"github.com/mos9527/mages-tools/internal/utf"
	"golang.org/x/xerrors"
)

// Magic values as they appear on the wire. MagicCPKBig/MagicITOCBig are
// the byte-reversed siblings some tools emit; Unpack accepts either.
const (
	MagicCPK     uint32 = 0x204B5043
	MagicCPKBig  uint32 = 0x43504B20
	MagicITOC    uint32 = 0x434F5449
	MagicITOCBig uint32 = 0x49544F43
)

const (
	// itocContainerLengthBias is added to the ITOC container header's
	// length field by the reference packer. The field is read back
	// verbatim by the reference unpacker too, so it over-reads 16 bytes
	// of trailing alignment padding on every extract. Harmless in
	// practice (the padding always exists and nothing inspects bytes
	// past the parsed @UTF structures) and preserved here so archives
	// this package writes match what the reference tooling produces.
	itocContainerLengthBias = 0x10

	defaultAlign  uint16 = 2048
	itocOffset    uint64 = 0x800
)

type containerHeader struct {
	Magic  uint32
	Length uint64
}

func readContainerHeader(s *stream.Stream) (containerHeader, error) {
	var h containerHeader
	var err error
	if h.Magic, err = s.ReadU32(); err != nil {
		return h, err
	}
	if _, err = s.ReadU32(); err != nil { // padding
		return h, err
	}
	if h.Length, err = s.ReadU64(); err != nil {
		return h, err
	}
	return h, nil
}

func writeContainerHeader(s *stream.Stream, magic uint32, length uint64) {
	s.WriteU32(magic)
	s.WriteU32(0)
	s.WriteU64(length)
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// Entry is one file's bookkeeping inside a CPK archive: its ID and its
// location and sizes within the content region.
type Entry struct {
	ID               uint16
	Offset           uint64
	Size             uint64
	DecompressedSize uint64
}

// Compressed reports whether the entry was CRILAYLA-compressed on pack.
func (e Entry) Compressed() bool { return e.Size != e.DecompressedSize }

func fieldUint64(t *utf.Table, name string) (uint64, error) {
	f, ok := t.Lookup(name)
	if !ok || len(f.Values) == 0 {
		return 0, xerrors.Errorf("cpk: missing field %q", name)
	}
	return f.Values[0].AsUint64()
}

func readTableAt(s *stream.Stream, offset int, wantMagic, wantMagicBig uint32) (*utf.Table, error) {
	s.Seek(offset)
	hdr, err := readContainerHeader(s)
	if err != nil {
		return nil, xerrors.Errorf("cpk: reading container header at %d: %w", offset, err)
	}
	if hdr.Magic != wantMagic && hdr.Magic != wantMagicBig {
		return nil, xerrors.Errorf("cpk: bad container magic %#x at %d, want %#x", hdr.Magic, offset, wantMagic)
	}
	payload, err := s.ReadBytes(int(hdr.Length))
	if err != nil {
		return nil, xerrors.Errorf("cpk: reading container payload at %d: %w", offset, err)
	}
	return utf.Parse(utf.Unmask(payload))
}

// Unpack parses data as a CPK/ITOC archive and returns its entries, sorted
// by ID, with offsets computed from ContentOffset by walking entries in ID
// order and aligning each one's end up to the archive's Align field (§4.5:
// CPK stores no explicit per-entry offset, only sizes).
func Unpack(data []byte) ([]Entry, error) {
	s := stream.FromBytes(data, stream.LittleEndian)
	cpkTable, err := readTableAt(s, 0, MagicCPK, MagicCPKBig)
	if err != nil {
		return nil, xerrors.Errorf("cpk: reading CPK table: %w", err)
	}

	contentOffset, err := fieldUint64(cpkTable, "ContentOffset")
	if err != nil {
		return nil, err
	}
	itocOff, err := fieldUint64(cpkTable, "ItocOffset")
	if err != nil {
		return nil, err
	}
	alignField, ok := cpkTable.Lookup("Align")
	if !ok || len(alignField.Values) == 0 {
		return nil, xerrors.Errorf("cpk: missing field %q", "Align")
	}
	align, err := alignField.Values[0].AsUint64()
	if err != nil {
		return nil, xerrors.Errorf("cpk: reading Align: %w", err)
	}

	itocTable, err := readTableAt(s, int(itocOff), MagicITOC, MagicITOCBig)
	if err != nil {
		return nil, xerrors.Errorf("cpk: reading ITOC table: %w", err)
	}

	var entries []Entry
	collect := func(name string) error {
		f, ok := itocTable.Lookup(name)
		if !ok || len(f.Values) == 0 {
			return nil
		}
		inner, err := utf.Parse(f.Values[0].Buf)
		if err != nil {
			return xerrors.Errorf("cpk: parsing %s: %w", name, err)
		}
		idField, ok := inner.Lookup("ID")
		if !ok {
			return xerrors.Errorf("cpk: %s has no ID column", name)
		}
		sizeField, ok := inner.Lookup("FileSize")
		if !ok {
			return xerrors.Errorf("cpk: %s has no FileSize column", name)
		}
		extractField, ok := inner.Lookup("ExtractSize")
		if !ok {
			return xerrors.Errorf("cpk: %s has no ExtractSize column", name)
		}
		n := inner.RowCount()
		for i := 0; i < n; i++ {
			id, err := idField.Values[i].AsUint64()
			if err != nil {
				return xerrors.Errorf("cpk: %s row %d ID: %w", name, i, err)
			}
			size, err := sizeField.Values[i].AsUint64()
			if err != nil {
				return xerrors.Errorf("cpk: %s row %d FileSize: %w", name, i, err)
			}
			extract, err := extractField.Values[i].AsUint64()
			if err != nil {
				return xerrors.Errorf("cpk: %s row %d ExtractSize: %w", name, i, err)
			}
			entries = append(entries, Entry{ID: uint16(id), Size: size, DecompressedSize: extract})
		}
		return nil
	}
	if err := collect("DataL"); err != nil {
		return nil, err
	}
	if err := collect("DataH"); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	offset := contentOffset
	for i := range entries {
		entries[i].Offset = offset
		offset = alignUp(offset+entries[i].Size, align)
	}
	return entries, nil
}

// PackFile is one file to place in a CPK archive: its ID (used both as sort
// key and as the ITOC-visible identifier) and its raw, uncompressed bytes.
// Pack never compresses; it always writes DecompressedSize == len(Data),
// matching the reference packer's "compression not implemented" scheme.
type PackFile struct {
	ID   uint16
	Data []byte
}

// Pack builds a complete CPK/ITOC archive in memory from files and returns
// its bytes. Files are written to the content region in ascending ID order,
// each aligned up to 2048 bytes; DataL is emitted as an empty, UINT16-typed
// placeholder schema and every entry is recorded in DataH, matching the
// reference tool (DataL exists only so readers that expect the column find
// it declared).
func Pack(files []PackFile) ([]byte, error) {
	sorted := make([]PackFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dataL := utf.New()
	dataL.Field("ID").Declare(utf.TypeU16, false)
	dataL.Field("FileSize").Declare(utf.TypeU16, false)
	dataL.Field("ExtractSize").Declare(utf.TypeU16, false)
	dataLBuf, err := dataL.Commit()
	if err != nil {
		return nil, xerrors.Errorf("cpk: committing DataL: %w", err)
	}

	dataH := utf.New()
	for _, f := range sorted {
		if err := dataH.Field("ID").Push(utf.U16Value(f.ID)); err != nil {
			return nil, err
		}
		if err := dataH.Field("FileSize").Push(utf.U32Value(uint32(len(f.Data)))); err != nil {
			return nil, err
		}
		if err := dataH.Field("ExtractSize").Push(utf.U32Value(uint32(len(f.Data)))); err != nil {
			return nil, err
		}
	}
	dataHBuf, err := dataH.Commit()
	if err != nil {
		return nil, xerrors.Errorf("cpk: committing DataH: %w", err)
	}

	itocTable := utf.New()
	if err := itocTable.Field("DataL").Push(utf.BytesValue(dataLBuf)); err != nil {
		return nil, err
	}
	if err := itocTable.Field("DataH").Push(utf.BytesValue(dataHBuf)); err != nil {
		return nil, err
	}
	itocPayload, err := itocTable.Commit()
	if err != nil {
		return nil, xerrors.Errorf("cpk: committing ITOC table: %w", err)
	}

	out := stream.New(stream.LittleEndian)
	out.Seek(int(itocOffset))
	writeContainerHeader(out, MagicITOC, uint64(len(itocPayload))+itocContainerLengthBias)
	out.WriteBytes(utf.Mask(append([]byte(nil), itocPayload...)))

	contentOffset := alignUp(uint64(out.Tell()), uint64(defaultAlign))
	out.Seek(int(contentOffset))
	for _, f := range sorted {
		out.WriteBytes(f.Data)
		out.Seek(int(alignUp(uint64(out.Tell()), uint64(defaultAlign))))
	}
	contentSize := uint64(out.Tell()) - contentOffset

	cpkTable := utf.New()
	if err := cpkTable.Field("ContentOffset").Push(utf.U64Value(contentOffset)); err != nil {
		return nil, err
	}
	if err := cpkTable.Field("ContentSize").Push(utf.U64Value(contentSize)); err != nil {
		return nil, err
	}
	if err := cpkTable.Field("ItocOffset").Push(utf.U64Value(itocOffset)); err != nil {
		return nil, err
	}
	if err := cpkTable.Field("ItocSize").Push(utf.U64Value(uint64(len(itocPayload)) + itocContainerLengthBias)); err != nil {
		return nil, err
	}
	if err := cpkTable.Field("Align").Push(utf.U16Value(defaultAlign)); err != nil {
		return nil, err
	}
	if err := cpkTable.Field("CpkMode").Push(utf.U32Value(0)); err != nil {
		return nil, err
	}
	cpkPayload, err := cpkTable.Commit()
	if err != nil {
		return nil, xerrors.Errorf("cpk: committing CPK table: %w", err)
	}

	out.Seek(0)
	writeContainerHeader(out, MagicCPK, uint64(len(cpkPayload)))
	out.WriteBytes(utf.Mask(append([]byte(nil), cpkPayload...)))

	return out.Bytes(), nil
}
