// Package crilayla implements decompression of CriWare's CRILAYLA
// back-to-front LZ-style format. Only decompression is implemented: this
// toolchain never produces CRILAYLA-compressed output on repack.
package crilayla

import (
	"encoding/binary"

	"github.com/mos9527/mages-tools/internal/bitio"
	"golang.org/x/xerrors"
)

// Magic is "CRILAYLA" read as a little-endian u64.
const Magic uint64 = 0x4C59414C49524300

// prefixHeaderSize is the size of the raw, uncompressed header block stored
// immediately after the compressed stream and emitted verbatim ahead of the
// decompressed payload.
const prefixHeaderSize = 0x100

// referenceLengthWidths are the variable-length-encoding group widths used
// to extend a back-reference's length past its 3-byte minimum: each group
// saturating (all bits set) continues into the next, with the final width
// reused indefinitely.
var referenceLengthWidths = [...]int{2, 3, 5, 8}

// Decompress parses a CRILAYLA-framed blob (magic, sizes, compressed
// stream, prefix header) and returns the prefix header and the
// decompressed payload.
func Decompress(blob []byte) (header, payload []byte, err error) {
	if len(blob) < 16 {
		return nil, nil, xerrors.Errorf("crilayla: blob too short (%d bytes)", len(blob))
	}
	magic := binary.LittleEndian.Uint64(blob[0:8])
	if magic != Magic {
		return nil, nil, xerrors.Errorf("crilayla: bad magic %#x, want %#x", magic, Magic)
	}
	uncompressedSize := binary.LittleEndian.Uint32(blob[8:12])
	compressedSize := binary.LittleEndian.Uint32(blob[12:16])

	compressedStart := 16
	compressedEnd := compressedStart + int(compressedSize)
	headerStart := compressedEnd
	headerEnd := headerStart + prefixHeaderSize
	if headerEnd > len(blob) {
		return nil, nil, xerrors.Errorf("crilayla: blob too short for declared sizes (have %d, want >= %d)", len(blob), headerEnd)
	}

	header = append([]byte(nil), blob[headerStart:headerEnd]...)
	payload, err = decompressStream(blob[compressedStart:compressedEnd], int(uncompressedSize))
	if err != nil {
		return nil, nil, err
	}
	return header, payload, nil
}

// decompressStream implements §4.3's back-to-front LZ algorithm: output is
// filled from the last byte toward the first, and back-references point
// further toward the end of the (partially written) buffer, i.e. at bytes
// the write cursor has already produced. Both the write cursor and a reference's
// source offset decrease together; this asymmetry is load-bearing and must
// not be "normalized" to a forward scan.
func decompressStream(compressed []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	bits := bitio.NewReader(compressed)

	written := 0
	for written < n {
		writePos := n - 1 - written
		if bits.ReadBits(1) == 0 {
			out[writePos] = byte(bits.ReadBits(8))
			written++
			continue
		}

		offsetRaw := int(bits.ReadBits(13))
		refOffset := writePos + offsetRaw + 3

		refCount := 3
		for i, nbits := 0, referenceLengthWidths[0]; ; {
			vle := int(bits.ReadBits(nbits))
			refCount += vle
			if vle != (1<<nbits)-1 {
				break
			}
			if i < len(referenceLengthWidths)-1 {
				i++
			}
			nbits = referenceLengthWidths[i]
		}

		for ; refCount > 0; refCount-- {
			writePos = n - 1 - written
			if refOffset < 0 || refOffset >= n {
				return nil, xerrors.Errorf("crilayla: back-reference out of range (offset=%d, size=%d)", refOffset, n)
			}
			out[writePos] = out[refOffset]
			refOffset--
			written++
		}
	}
	return out, nil
}
