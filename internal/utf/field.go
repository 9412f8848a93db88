package utf

import "golang.org/x/xerrors"

// Field is a single @UTF column: a name (possibly empty), a declared type,
// flags, and its values. If HasDefault is set, Values[0] is the default
// and any remaining entries are per-row; otherwise every entry in Values is
// a per-row value in row order. If IsValid is false the column contributes
// no bytes to the row block and Values is empty.
type Field struct {
	Name       string
	Type       Type
	HasDefault bool
	IsValid    bool
	Values     []Value
}

// Push appends a row value, inferring Type from the first pushed value and
// checking that every subsequent value agrees with it. Pushing also marks
// the field valid, matching the reference tool's table_field::push_back.
func (f *Field) Push(v Value) error {
	if len(f.Values) == 0 && !f.IsValid {
		f.Type = v.Type
	} else if v.Type != f.Type {
		return xerrors.Errorf("utf: field %q: value type %v does not match field type %v", f.Name, v.Type, f.Type)
	}
	f.Values = append(f.Values, v)
	f.IsValid = true
	return nil
}

// Declare sets a column's type and validity without pushing any values,
// mirroring the reference tool's table_field::reset. CPK's ITOC codec uses
// this to emit DataL, an empty placeholder schema with no row data.
func (f *Field) Declare(t Type, valid bool) {
	f.Type = t
	f.IsValid = valid
}

// Default returns the field's default value, if any.
func (f *Field) Default() (Value, bool) {
	if !f.HasDefault || len(f.Values) == 0 {
		return Value{}, false
	}
	return f.Values[0], true
}

// RowValues returns the per-row values, skipping the leading default entry
// when HasDefault is set.
func (f *Field) RowValues() []Value {
	if f.HasDefault {
		if len(f.Values) <= 1 {
			return nil
		}
		return f.Values[1:]
	}
	return f.Values
}
