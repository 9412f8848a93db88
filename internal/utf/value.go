// Package utf implements CriWare's @UTF tabular metadata format: a
// schema row, data rows, and string/data side-pools, wrapped in an
// optionally XOR-masked envelope. CPK archives nest @UTF tables inside
// @UTF tables (the outer CPK header table, the ITOC table, and ITOC's
// DataL/DataH inner tables).
package utf

import "golang.org/x/xerrors"

// Type tags a field's wire-encoded variant. The numbering is the on-wire
// encoding (the low nibble of each schema byte) and must stay stable.
type Type uint8

const (
	TypeU8     Type = 0
	TypeI8     Type = 1
	TypeU16    Type = 2
	TypeI16    Type = 3
	TypeU32    Type = 4
	TypeI32    Type = 5
	TypeU64    Type = 6
	TypeI64    Type = 7
	TypeF32    Type = 8
	TypeF64    Type = 9
	TypeString Type = 0xA
	TypeBytes  Type = 0xB
)

// fixedWidth is the row-block width in bytes for types whose value is
// stored inline. Strings store a 4-byte pool offset; byte arrays store an
// 8-byte (offset, length) pair.
var fixedWidth = map[Type]int{
	TypeU8: 1, TypeI8: 1,
	TypeU16: 2, TypeI16: 2,
	TypeU32: 4, TypeI32: 4,
	TypeU64: 8, TypeI64: 8,
	TypeF32: 4, TypeF64: 8,
	TypeString: 4,
	TypeBytes:  8,
}

// Width returns the row-block byte width of a value of type t, or an error
// if t is not one of the 12 defined tags.
func Width(t Type) (int, error) {
	w, ok := fixedWidth[t]
	if !ok {
		return 0, xerrors.Errorf("utf: unknown field type %#x", uint8(t))
	}
	return w, nil
}

func (t Type) String() string {
	switch t {
	case TypeU8:
		return "uint8"
	case TypeI8:
		return "int8"
	case TypeU16:
		return "uint16"
	case TypeI16:
		return "int16"
	case TypeU32:
		return "uint32"
	case TypeI32:
		return "int32"
	case TypeU64:
		return "uint64"
	case TypeI64:
		return "int64"
	case TypeF32:
		return "float32"
	case TypeF64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the 12 @UTF field variants. Exactly one of
// the typed fields is meaningful, selected by Type.
type Value struct {
	Type Type

	U8  uint8
	I8  int8
	U16 uint16
	I16 int16
	U32 uint32
	I32 int32
	U64 uint64
	I64 int64
	F32 float32
	F64 float64
	Str string
	Buf []byte
}

// U8Value, I8Value, ... construct a Value of the matching type; these are
// the usual way callers populate a Field's row values.
func U8Value(v uint8) Value    { return Value{Type: TypeU8, U8: v} }
func I8Value(v int8) Value     { return Value{Type: TypeI8, I8: v} }
func U16Value(v uint16) Value  { return Value{Type: TypeU16, U16: v} }
func I16Value(v int16) Value   { return Value{Type: TypeI16, I16: v} }
func U32Value(v uint32) Value  { return Value{Type: TypeU32, U32: v} }
func I32Value(v int32) Value   { return Value{Type: TypeI32, I32: v} }
func U64Value(v uint64) Value  { return Value{Type: TypeU64, U64: v} }
func I64Value(v int64) Value   { return Value{Type: TypeI64, I64: v} }
func F32Value(v float32) Value { return Value{Type: TypeF32, F32: v} }
func F64Value(v float64) Value { return Value{Type: TypeF64, F64: v} }
func StringValue(v string) Value { return Value{Type: TypeString, Str: v} }
func BytesValue(v []byte) Value  { return Value{Type: TypeBytes, Buf: v} }

// AsUint64 widens any integer-typed value to uint64, which is how the CPK
// codec reads ITOC's ID/FileSize/ExtractSize columns regardless of whether
// they were declared UINT16 or UINT32 on disk.
func (v Value) AsUint64() (uint64, error) {
	switch v.Type {
	case TypeU8:
		return uint64(v.U8), nil
	case TypeI8:
		return uint64(v.I8), nil
	case TypeU16:
		return uint64(v.U16), nil
	case TypeI16:
		return uint64(v.I16), nil
	case TypeU32:
		return uint64(v.U32), nil
	case TypeI32:
		return uint64(v.I32), nil
	case TypeU64:
		return v.U64, nil
	case TypeI64:
		return uint64(v.I64), nil
	default:
		return 0, xerrors.Errorf("utf: value of type %v is not an integer", v.Type)
	}
}
