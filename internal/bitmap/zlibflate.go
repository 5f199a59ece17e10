// Package bitmap implements the bitmap transcoding pipeline (§4.9.1): zlib
// inflate with a block-decrypt fallback, pixel-format expansion, the 16x
// post-scale, and LZ4 recompression of the final BGRA-8888 buffer.
package bitmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/flate"
)

// errIncomplete reports that inflate produced a different number of bytes
// than the caller expected (fewer, or more), the signal spec.md §4.9.1
// step 3 calls "did not reach Z_BUF_ERROR" in zlib terms.
var errIncomplete = errors.New("bitmap: inflated length differs from the expected length")

// inflateZlib decodes a zlib-wrapped DEFLATE stream (the 2-byte zlib
// header, raw DEFLATE body via dsnet/compress/flate, then the 4-byte
// Adler-32 trailer which is not verified) and requires the result to be
// exactly wantLen bytes.
func inflateZlib(compressed []byte, wantLen int) ([]byte, error) {
	if len(compressed) < 2 {
		return nil, fmt.Errorf("bitmap: zlib stream too short")
	}
	cmf, flg := compressed[0], compressed[1]
	if cmf&0x0f != 8 || (uint16(cmf)*256+uint16(flg))%31 != 0 {
		return nil, fmt.Errorf("bitmap: not a zlib stream (bad header)")
	}

	fr := flate.NewReader(bytes.NewReader(compressed[2:]))
	defer fr.Close()

	out := make([]byte, wantLen)
	n, err := io.ReadFull(fr, out)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n != wantLen {
		return nil, errIncomplete
	}
	// Confirm the stream truly ended here rather than having more data
	// than wantLen implies; a short peek read is enough to tell.
	var probe [1]byte
	if m, _ := fr.Read(probe[:]); m > 0 {
		return nil, errIncomplete
	}
	return out, nil
}
