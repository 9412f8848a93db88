package utf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildSampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(tbl.Field("ID").Push(U16Value(0)))
	must(tbl.Field("ID").Push(U16Value(1)))
	must(tbl.Field("ID").Push(U16Value(2)))
	must(tbl.Field("Name").Push(StringValue("alpha")))
	must(tbl.Field("Name").Push(StringValue("beta")))
	must(tbl.Field("Name").Push(StringValue("gamma")))
	must(tbl.Field("Payload").Push(BytesValue([]byte{1, 2, 3})))
	must(tbl.Field("Payload").Push(BytesValue([]byte{})))
	must(tbl.Field("Payload").Push(BytesValue([]byte{9, 8, 7, 6})))

	sizeField := tbl.Field("Size")
	sizeField.HasDefault = true
	must(sizeField.Push(U32Value(1024)))
	return tbl
}

func TestTableCommitParseRoundTrip(t *testing.T) {
	tbl := buildSampleTable(t)
	buf, err := tbl.Commit()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.RowCount() != 3 {
		t.Fatalf("RowCount() = %d, want 3", parsed.RowCount())
	}

	wantOrder := []string{"ID", "Name", "Payload", "Size"}
	var gotOrder []string
	for _, f := range parsed.Fields() {
		gotOrder = append(gotOrder, f.Name)
	}
	if diff := cmp.Diff(wantOrder, gotOrder); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	id := parsed.Field("ID")
	for i, want := range []uint16{0, 1, 2} {
		if id.Values[i].U16 != want {
			t.Fatalf("ID[%d] = %d, want %d", i, id.Values[i].U16, want)
		}
	}

	name := parsed.Field("Name")
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if name.Values[i].Str != want {
			t.Fatalf("Name[%d] = %q, want %q", i, name.Values[i].Str, want)
		}
	}

	payload := parsed.Field("Payload")
	wantBytes := [][]byte{{1, 2, 3}, {}, {9, 8, 7, 6}}
	for i, want := range wantBytes {
		if diff := cmp.Diff(want, payload.Values[i].Buf); diff != "" {
			t.Fatalf("Payload[%d] mismatch (-want +got):\n%s", i, diff)
		}
	}

	size := parsed.Field("Size")
	if !size.HasDefault {
		t.Fatalf("Size.HasDefault = false, want true")
	}
	if size.Values[0].U32 != 1024 {
		t.Fatalf("Size default = %d, want 1024", size.Values[0].U32)
	}
}

func TestTableLengthMatchesSizeMinusEight(t *testing.T) {
	tbl := buildSampleTable(t)
	buf, err := tbl.Commit()
	if err != nil {
		t.Fatal(err)
	}
	// length field lives at buf[4:8], big-endian.
	length := uint32(buf[4])<<24 | uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7])
	if int(length) != len(buf)-8 {
		t.Fatalf("length = %d, want %d", length, len(buf)-8)
	}
}

func TestTablePushTypeMismatchIsFatal(t *testing.T) {
	tbl := New()
	f := tbl.Field("X")
	if err := f.Push(U8Value(1)); err != nil {
		t.Fatal(err)
	}
	if err := f.Push(U16Value(2)); err == nil {
		t.Fatal("want error mixing field types, got nil")
	}
}

func TestMaskIsInvolution(t *testing.T) {
	orig := []byte{0x40, 0x55, 0x54, 0x46, 1, 2, 3, 4, 5}
	masked := Mask(append([]byte(nil), orig...))
	unmasked := Mask(append([]byte(nil), masked...))
	if diff := cmp.Diff(orig, unmasked); diff != "" {
		t.Fatalf("mask is not an involution (-want +got):\n%s", diff)
	}
}

func TestIsMaskedDetectsMagic(t *testing.T) {
	tbl := New()
	buf, err := tbl.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if IsMasked(buf) {
		t.Fatal("freshly committed table reports masked")
	}
	Mask(buf)
	if !IsMasked(buf) {
		t.Fatal("masked buffer not detected as masked")
	}
}
