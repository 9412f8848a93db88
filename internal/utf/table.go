package utf

import (
	"github.com/mos9527/mages-tools/internal/stream"
	"golang.org/x/xerrors"
)

// stringPoolPrefix is the mandatory two-string header of every string pool.
// The reference reader unconditionally skips these first two string-table
// slots, so every implementation must emit them even though nothing in a
// parsed table ever points back at them deliberately.
var stringPoolPrefix = []byte("<NULL>\x00El Psy Kongroo\x00")

const (
	flagTypeMask   = 0x0F
	flagHasName    = 0x10
	flagHasDefault = 0x20
	flagIsValid    = 0x40
)

// subHeaderSize is the canonical (no "encoding" field) sub-header size:
// magic, length, rowOffset, stringPoolOffset, dataPoolOffset, nameOffset
// (6 x u32), fieldCount, rowStride (2 x u16), rowCount (u32).
const subHeaderSize = 4*6 + 2*2 + 4

type subHeader struct {
	length           uint32
	rowOffset        uint32
	stringPoolOffset uint32
	dataPoolOffset   uint32
	nameOffset       uint32
	fieldCount       uint16
	rowStride        uint16
	rowCount         uint32
}

// toBlockOffset converts a stored, sub-header-relative offset into an
// absolute offset within the table buffer (the buffer that starts at the
// @UTF magic). See DESIGN.md for how this was derived from the reference
// tool's to_block_offset/from_block_offset pair.
func toBlockOffset(stored uint32) int { return int(stored) + 8 }
func fromBlockOffset(abs int) uint32  { return uint32(abs - 8) }

// Table is a parsed or in-progress @UTF table: an ordered list of columns.
// String and byte-array values are held directly in each column's values;
// the string and data pools are built by Commit and not kept on the Table.
type Table struct {
	order []string
	byName map[string]*Field
	rowCount int // only meaningful immediately after Parse; Commit recomputes
}

// New returns an empty table ready to have fields populated and committed.
func New() *Table {
	return &Table{byName: make(map[string]*Field)}
}

// Field returns the named column, creating it (and appending it to
// iteration order) if it does not yet exist. This is the usual way to
// populate a table: t.Field("ID").Push(utf.U16Value(3)).
func (t *Table) Field(name string) *Field {
	if f, ok := t.byName[name]; ok {
		return f
	}
	f := &Field{Name: name}
	t.byName[name] = f
	t.order = append(t.order, name)
	return f
}

// Has reports whether name has been populated (by Field or by parsing).
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Lookup returns the named column without creating it, for read-only call
// sites that must not silently materialize a missing column.
func (t *Table) Lookup(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Fields returns the table's columns in declaration order.
func (t *Table) Fields() []*Field {
	out := make([]*Field, len(t.order))
	for i, name := range t.order {
		out[i] = t.byName[name]
	}
	return out
}

// RowCount returns the number of data rows: the row count recorded when
// parsing, or the length of the first valid, non-default field's row values
// when building a table for Commit.
func (t *Table) RowCount() int {
	for _, name := range t.order {
		f := t.byName[name]
		if !f.HasDefault && f.IsValid {
			return len(f.RowValues())
		}
	}
	return t.rowCount
}

// Parse decodes buf (starting at the @UTF magic, i.e. the sub-header) into
// a Table: schema, rows, and pools.
func Parse(buf []byte) (*Table, error) {
	s := stream.FromBytes(buf, stream.BigEndian)
	magic, err := s.ReadU32()
	if err != nil {
		return nil, xerrors.Errorf("utf: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, xerrors.Errorf("utf: bad sub-header magic %#x, want %#x", magic, Magic)
	}
	hdr, withEncoding, err := readSubHeaderFields(s)
	if err != nil {
		return nil, err
	}

	t := New()
	t.rowCount = int(hdr.rowCount)

	fields := make([]*Field, 0, hdr.fieldCount)
	for i := 0; i < int(hdr.fieldCount); i++ {
		flags, err := s.ReadU8()
		if err != nil {
			return nil, xerrors.Errorf("utf: reading field %d flags: %w", i, err)
		}
		f := &Field{Type: Type(flags & flagTypeMask)}
		if flags&flagHasName != 0 {
			name, err := readPoolString(s, hdr.stringPoolOffset)
			if err != nil {
				return nil, xerrors.Errorf("utf: reading field %d name: %w", i, err)
			}
			f.Name = name
		}
		f.HasDefault = flags&flagHasDefault != 0
		f.IsValid = flags&flagIsValid != 0
		if f.HasDefault {
			v, err := readVariant(s, f.Type, hdr.stringPoolOffset, hdr.dataPoolOffset)
			if err != nil {
				return nil, xerrors.Errorf("utf: reading field %d default: %w", i, err)
			}
			f.Values = append(f.Values, v)
		}
		fields = append(fields, f)
	}

	rowBase := toBlockOffset(hdr.rowOffset)
	for row := 0; row < int(hdr.rowCount); row++ {
		s.Seek(rowBase + row*int(hdr.rowStride))
		for _, f := range fields {
			if f.HasDefault || !f.IsValid {
				continue
			}
			v, err := readVariant(s, f.Type, hdr.stringPoolOffset, hdr.dataPoolOffset)
			if err != nil {
				return nil, xerrors.Errorf("utf: reading row %d field %q: %w", row, f.Name, err)
			}
			f.Values = append(f.Values, v)
		}
	}

	for _, f := range fields {
		t.byName[f.Name] = f
		t.order = append(t.order, f.Name)
	}
	_ = withEncoding
	return t, nil
}

// readSubHeaderFields reads the sub-header fields after magic, trying the
// canonical layout first and falling back to the variant CPK layout that
// inserts a u16 "encoding" field before rowOffset if the canonical layout
// produces offsets that don't fit the buffer (see DESIGN.md).
func readSubHeaderFields(s *stream.Stream) (subHeader, bool, error) {
	start := s.Tell()
	hdr, err := tryReadSubHeader(s, start, false)
	if err == nil {
		return hdr, false, nil
	}
	hdr2, err2 := tryReadSubHeader(s, start, true)
	if err2 == nil {
		return hdr2, true, nil
	}
	return subHeader{}, false, err
}

func tryReadSubHeader(s *stream.Stream, start int, withEncoding bool) (subHeader, error) {
	s.Seek(start)
	length, err := s.ReadU32()
	if err != nil {
		return subHeader{}, err
	}
	if withEncoding {
		if _, err := s.ReadU16(); err != nil {
			return subHeader{}, err
		}
	}
	var hdr subHeader
	hdr.length = length
	if hdr.rowOffset, err = s.ReadU32(); err != nil {
		return subHeader{}, err
	}
	if hdr.stringPoolOffset, err = s.ReadU32(); err != nil {
		return subHeader{}, err
	}
	if hdr.dataPoolOffset, err = s.ReadU32(); err != nil {
		return subHeader{}, err
	}
	if hdr.nameOffset, err = s.ReadU32(); err != nil {
		return subHeader{}, err
	}
	if hdr.fieldCount, err = s.ReadU16(); err != nil {
		return subHeader{}, err
	}
	if hdr.rowStride, err = s.ReadU16(); err != nil {
		return subHeader{}, err
	}
	if hdr.rowCount, err = s.ReadU32(); err != nil {
		return subHeader{}, err
	}
	bufLen := s.Len()
	total := 8 + int(length) // length excludes the leading magic+length (8 bytes)
	if total > bufLen {
		return subHeader{}, xerrors.Errorf("utf: sub-header declares length %d beyond buffer (%d)", length, bufLen)
	}
	if toBlockOffset(hdr.rowOffset)+int(hdr.rowCount)*int(hdr.rowStride) > bufLen {
		return subHeader{}, xerrors.Errorf("utf: row block out of range")
	}
	if hdr.fieldCount > 4096 {
		return subHeader{}, xerrors.Errorf("utf: implausible field count %d", hdr.fieldCount)
	}
	return hdr, nil
}

func readPoolString(s *stream.Stream, stringPoolOffset uint32) (string, error) {
	ref, err := s.ReadU32()
	if err != nil {
		return "", err
	}
	return s.ReadCStringAt(toBlockOffset(stringPoolOffset) + int(ref))
}

func readVariant(s *stream.Stream, t Type, stringPoolOffset, dataPoolOffset uint32) (Value, error) {
	switch t {
	case TypeU8:
		v, err := s.ReadU8()
		return U8Value(v), err
	case TypeI8:
		v, err := s.ReadI8()
		return I8Value(v), err
	case TypeU16:
		v, err := s.ReadU16()
		return U16Value(v), err
	case TypeI16:
		v, err := s.ReadI16()
		return I16Value(v), err
	case TypeU32:
		v, err := s.ReadU32()
		return U32Value(v), err
	case TypeI32:
		v, err := s.ReadI32()
		return I32Value(v), err
	case TypeU64:
		v, err := s.ReadU64()
		return U64Value(v), err
	case TypeI64:
		v, err := s.ReadI64()
		return I64Value(v), err
	case TypeF32:
		v, err := s.ReadF32()
		return F32Value(v), err
	case TypeF64:
		v, err := s.ReadF64()
		return F64Value(v), err
	case TypeString:
		str, err := readPoolString(s, stringPoolOffset)
		return StringValue(str), err
	case TypeBytes:
		offset, err := s.ReadU32()
		if err != nil {
			return Value{}, err
		}
		length, err := s.ReadU32()
		if err != nil {
			return Value{}, err
		}
		buf, err := s.ReadBytesAt(toBlockOffset(dataPoolOffset)+int(offset), int(length))
		return BytesValue(buf), err
	default:
		return Value{}, xerrors.Errorf("utf: unknown field type %#x", uint8(t))
	}
}
