package bitmap

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/nolifestory/wztonx/internal/mmapfile"
)

// scaleMultiplier maps format1 to the ratio between the final BGRA-8888
// byte count and the raw (pre-expansion) decompressed byte count
// (§4.9.1 step 7).
var scaleMultiplier = map[int32]int{
	1:    2,
	2:    1,
	513:  2,
	1026: 4,
	2050: 4,
	257:  2, // unverified against any reference implementation, see DESIGN.md
}

// Transcode runs the full bitmap pipeline for one descriptor (§4.9.1):
// inflate (with a block-decrypt retry), pixel-format expansion,
// post-scale, and LZ4 recompression. It returns the final LZ4 block
// (without the leading u32 length prefix the emitter writes).
func Transcode(r *mmapfile.Reader, inputOffset int, key []byte, highCompression bool) ([]byte, error) {
	r.Seek(inputOffset)
	width, err := r.ReadCInt()
	if err != nil {
		return nil, err
	}
	height, err := r.ReadCInt()
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, &mmapfile.FormatError{Msg: "bitmap has negative dimension"}
	}

	format1, err := r.ReadCInt()
	if err != nil {
		return nil, err
	}
	format2, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	n1, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if n1 != 0 {
		return nil, &mmapfile.FormatError{Msg: "bitmap reserved field n1 is non-zero"}
	}
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	n2, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if n2 != 0 {
		return nil, &mmapfile.FormatError{Msg: "bitmap reserved field n2 is non-zero"}
	}

	compressed, err := r.Take(int(length))
	if err != nil {
		return nil, err
	}

	final, err := decode(compressed, key, int(width), int(height), format1, format2)
	if err != nil {
		return nil, err
	}
	return compressLZ4(final, highCompression)
}

// decode runs steps 3 through 7 of §4.9.1 against an already-extracted
// compressed buffer, recovering with a blank image if both inflate
// attempts fail.
func decode(compressed, key []byte, width, height int, format1 int32, format2 byte) ([]byte, error) {
	scaleDiv := 1
	if format2 == 4 {
		scaleDiv = 256
	}
	finalBytes := width * height * 4 / scaleDiv

	multiplier, ok := scaleMultiplier[format1]
	if !ok {
		return nil, &mmapfile.FormatError{Msg: fmt.Sprintf("unknown bitmap pixel format %d", format1)}
	}
	wantLen := finalBytes / multiplier

	raw, err := inflateZlib(compressed, wantLen)
	if err != nil {
		decrypted, derr := blockDecrypt(compressed, key)
		if derr == nil {
			raw, err = inflateZlib(decrypted, wantLen)
		}
	}
	if err != nil {
		raw = nil
	}
	if raw == nil {
		return make([]byte, width*height*4), nil
	}

	pixels := width * height
	if format2 == 4 {
		pixels /= 256
	}

	var expanded []byte
	switch format1 {
	case 1:
		expanded = expand4BitBGRA(raw, pixels)
	case 2:
		expanded = raw
	case 513:
		expanded = expand565(raw, pixels)
	case 1026:
		expanded = decodeDXT3(raw, scaledDim(width, format2), scaledDim(height, format2))
	case 2050:
		expanded = decodeDXT5(raw, scaledDim(width, format2), scaledDim(height, format2))
	case 257:
		expanded = expand2BytesOpaque(raw, pixels)
	default:
		return nil, &mmapfile.FormatError{Msg: fmt.Sprintf("unknown bitmap pixel format %d", format1)}
	}

	switch format2 {
	case 0:
		// no-op
	case 4:
		expanded = upscale16x(expanded, scaledDim(width, format2), scaledDim(height, format2))
	default:
		return nil, &mmapfile.FormatError{Msg: fmt.Sprintf("unknown bitmap post-scale mode %d", format2)}
	}

	if len(expanded) != width*height*4 {
		return nil, &mmapfile.FormatError{Msg: "bitmap decode produced an unexpected byte count"}
	}
	return expanded, nil
}

// scaledDim returns the stored (1/16 linear) dimension when format2
// requests the 16x post-scale, else the dimension unchanged.
func scaledDim(d int, format2 byte) int {
	if format2 == 4 {
		return d / 16
	}
	return d
}

// upscale16x replicates every source pixel into a 16x16 block of
// identical pixels (§4.9.1 step 6, format2 == 4).
func upscale16x(src []byte, srcWidth, srcHeight int) []byte {
	dstWidth, dstHeight := srcWidth*16, srcHeight*16
	out := make([]byte, dstWidth*dstHeight*4)
	for sy := 0; sy < srcHeight; sy++ {
		for sx := 0; sx < srcWidth; sx++ {
			px := src[(sy*srcWidth+sx)*4 : (sy*srcWidth+sx)*4+4]
			for dy := 0; dy < 16; dy++ {
				row := (sy*16+dy)*dstWidth + sx*16
				for dx := 0; dx < 16; dx++ {
					copy(out[(row+dx)*4:(row+dx)*4+4], px)
				}
			}
		}
	}
	return out
}

// expand2BytesOpaque is the best-effort handler for format1 == 257,
// which no known reference implementation documents: it treats the
// first of the 2 input bytes per pixel as a shared BGR intensity and
// forces full alpha.
func expand2BytesOpaque(src []byte, pixels int) []byte {
	out := make([]byte, pixels*4)
	for i := 0; i < pixels; i++ {
		v := src[i*2]
		out[i*4+0] = v
		out[i*4+1] = v
		out[i*4+2] = v
		out[i*4+3] = 0xFF
	}
	return out
}

func compressLZ4(src []byte, highCompression bool) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var n int
	var err error
	if highCompression {
		var c lz4.CompressorHC
		c.Level = lz4.Level9
		n, err = c.CompressBlock(src, dst)
	} else {
		var c lz4.Compressor
		n, err = c.CompressBlock(src, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("bitmap: lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible input: lz4 block mode returns 0 to mean "store
		// uncompressed"; the NX bitmap record has no such escape, so
		// store the raw bytes behind a length equal to the input size.
		return src, nil
	}
	return dst[:n], nil
}
