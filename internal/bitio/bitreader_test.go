package bitio

import "testing"

func TestReadBitsMSBFirst(t *testing.T) {
	// After reversal, 0b10110000 0b00000000 is read MSB-first: 1,0,1,1,...
	r := NewReader([]byte{0x00, 0xB0})
	if v := r.ReadBits(4); v != 0b1011 {
		t.Fatalf("ReadBits(4) = %04b, want 1011", v)
	}
}

func TestReadBitsSpanningBytes(t *testing.T) {
	// Reversed buffer is {0xFF, 0x00}; reading 13 bits MSB-first yields the
	// top 13 bits of 0xFF00, i.e. 0xFF00 >> 3 = 0x1FE0; computed directly:
	// bits are 11111111 00000 = 0b1111111100000 = 0x1FE0.
	r := NewReader([]byte{0x00, 0xFF})
	if v := r.ReadBits(13); v != 0x1FE0 {
		t.Fatalf("ReadBits(13) = %#x, want 0x1fe0", v)
	}
}

func TestReadBitsPastEndReturnsZero(t *testing.T) {
	r := NewReader([]byte{0xFF})
	r.ReadBits(8)
	if v := r.ReadBits(8); v != 0 {
		t.Fatalf("ReadBits past end = %d, want 0", v)
	}
}

func TestReadBitsReversesInput(t *testing.T) {
	orig := []byte{0x01, 0x02}
	r := NewReader(orig)
	if orig[0] != 0x01 || orig[1] != 0x02 {
		t.Fatalf("NewReader mutated caller's slice: %v", orig)
	}
	// Reversed buffer is {0x02, 0x01}; first byte read MSB-first is 0x02 = 00000010.
	if v := r.ReadBits(8); v != 0x02 {
		t.Fatalf("ReadBits(8) = %#x, want 0x02", v)
	}
}
