package utf

import "testing"

func TestAsUint64Widening(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want uint64
	}{
		{"u16", U16Value(300), 300},
		{"u32", U32Value(70000), 70000},
		{"u64", U64Value(1 << 40), 1 << 40},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.v.AsUint64()
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Fatalf("AsUint64() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestAsUint64RejectsNonInteger(t *testing.T) {
	if _, err := StringValue("x").AsUint64(); err == nil {
		t.Fatal("want error for non-integer value, got nil")
	}
}

func TestWidthKnownTypes(t *testing.T) {
	w, err := Width(TypeU64)
	if err != nil {
		t.Fatal(err)
	}
	if w != 8 {
		t.Fatalf("Width(TypeU64) = %d, want 8", w)
	}
}

func TestWidthUnknownType(t *testing.T) {
	if _, err := Width(Type(0xFF)); err == nil {
		t.Fatal("want error for unknown type, got nil")
	}
}
