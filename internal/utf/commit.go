package utf

import (
	"github.com/mos9527/mages-tools/internal/stream"
	"golang.org/x/xerrors"
)

// poolBuilder accumulates the raw bytes of a string or data pool, handing
// back the offset (and, for data, length) of each appended entry.
type poolBuilder struct {
	buf []byte
}

func (p *poolBuilder) appendString(s string) uint32 {
	offset := uint32(len(p.buf))
	p.buf = append(p.buf, s...)
	p.buf = append(p.buf, 0)
	return offset
}

func (p *poolBuilder) appendBytes(b []byte) (offset, length uint32) {
	offset = uint32(len(p.buf))
	p.buf = append(p.buf, b...)
	return offset, uint32(len(b))
}

// Commit serializes the table to its on-wire @UTF representation: schema,
// rows, string pool, data pool, with the sub-header backpatched once the
// final layout is known.
func (t *Table) Commit() ([]byte, error) {
	s := stream.New(stream.BigEndian)
	s.Seek(subHeaderSize)

	strPool := &poolBuilder{buf: append([]byte(nil), stringPoolPrefix...)}
	dataPool := &poolBuilder{}

	fields := t.Fields()
	for _, f := range fields {
		flags := uint8(f.Type)
		if f.Name != "" {
			flags |= flagHasName
		}
		if f.HasDefault {
			flags |= flagHasDefault
		}
		if f.IsValid {
			flags |= flagIsValid
		}
		s.WriteU8(flags)
		if f.Name != "" {
			s.WriteU32(strPool.appendString(f.Name))
		}
		if f.HasDefault {
			def, _ := f.Default()
			if err := writeVariant(s, def, strPool, dataPool); err != nil {
				return nil, xerrors.Errorf("utf: writing field %q default: %w", f.Name, err)
			}
		}
	}

	rowOffset := fromBlockOffset(s.Tell())
	rowCount := t.RowCount()
	rowStride := 0
	for row := 0; row < rowCount; row++ {
		rowStart := s.Tell()
		for _, f := range fields {
			if f.HasDefault || !f.IsValid {
				continue
			}
			values := f.RowValues()
			if row >= len(values) {
				return nil, xerrors.Errorf("utf: field %q has %d row values, need %d", f.Name, len(values), rowCount)
			}
			if err := writeVariant(s, values[row], strPool, dataPool); err != nil {
				return nil, xerrors.Errorf("utf: writing field %q row %d: %w", f.Name, row, err)
			}
		}
		if row == 0 {
			rowStride = s.Tell() - rowStart
		}
	}

	stringPoolOffset := fromBlockOffset(s.Tell())
	s.WriteBytes(strPool.buf)
	dataPoolOffset := fromBlockOffset(s.Tell())
	s.WriteBytes(dataPool.buf)

	length := uint32(s.Tell() - 8)

	s.Seek(0)
	s.WriteU32(Magic)
	s.WriteU32(length)
	s.WriteU32(rowOffset)
	s.WriteU32(stringPoolOffset)
	s.WriteU32(dataPoolOffset)
	s.WriteU32(0) // nameOffset: the reference tool never populates this
	s.WriteU16(uint16(len(fields)))
	s.WriteU16(uint16(rowStride))
	s.WriteU32(uint32(rowCount))

	return s.Bytes(), nil
}

func writeVariant(s *stream.Stream, v Value, strPool, dataPool *poolBuilder) error {
	switch v.Type {
	case TypeU8:
		s.WriteU8(v.U8)
	case TypeI8:
		s.WriteI8(v.I8)
	case TypeU16:
		s.WriteU16(v.U16)
	case TypeI16:
		s.WriteI16(v.I16)
	case TypeU32:
		s.WriteU32(v.U32)
	case TypeI32:
		s.WriteI32(v.I32)
	case TypeU64:
		s.WriteU64(v.U64)
	case TypeI64:
		s.WriteI64(v.I64)
	case TypeF32:
		s.WriteF32(v.F32)
	case TypeF64:
		s.WriteF64(v.F64)
	case TypeString:
		s.WriteU32(strPool.appendString(v.Str))
	case TypeBytes:
		offset, length := dataPool.appendBytes(v.Buf)
		s.WriteU32(offset)
		s.WriteU32(length)
	default:
		return xerrors.Errorf("utf: unknown field type %#x", uint8(v.Type))
	}
	return nil
}
