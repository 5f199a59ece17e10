package bitmap

import "encoding/binary"

// decodeDXT3 expands a DXT3 (BC2)-compressed buffer into BGRA-8888
// (§4.9.1 step 5, format1 == 1026): explicit 4-bit-per-pixel alpha plus
// a standard DXT1-style color block, decoded from scratch per the
// public BC2 block layout.
func decodeDXT3(src []byte, width, height int) []byte {
	return decodeDXTBlocks(src, width, height, func(block []byte) [16]byte {
		var alpha [16]byte
		for i := 0; i < 8; i++ {
			alpha[i*2] = table4[block[i]&0x0f]
			alpha[i*2+1] = table4[block[i]>>4]
		}
		return alpha
	})
}

// decodeDXT5 expands a DXT5 (BC3)-compressed buffer into BGRA-8888
// (§4.9.1 step 5, format1 == 2050): an interpolated 8-value or 6-value
// alpha ramp plus the same DXT1-style color block as DXT3.
func decodeDXT5(src []byte, width, height int) []byte {
	return decodeDXTBlocks(src, width, height, func(block []byte) [16]byte {
		a0, a1 := block[0], block[1]
		var ramp [8]byte
		ramp[0], ramp[1] = a0, a1
		if a0 > a1 {
			for i := 1; i <= 6; i++ {
				ramp[1+i] = byte((int(7-i)*int(a0) + int(i)*int(a1)) / 7)
			}
		} else {
			for i := 1; i <= 4; i++ {
				ramp[1+i] = byte((int(5-i)*int(a0) + int(i)*int(a1)) / 5)
			}
			ramp[6] = 0
			ramp[7] = 255
		}
		var bits uint64
		for i := 0; i < 6; i++ {
			bits |= uint64(block[2+i]) << (8 * i)
		}
		var alpha [16]byte
		for i := 0; i < 16; i++ {
			idx := (bits >> (3 * uint(i))) & 0x7
			alpha[i] = ramp[idx]
		}
		return alpha
	})
}

// decodeDXTBlocks walks src as 16-byte DXT3/DXT5 blocks (8 bytes of
// format-specific alpha via alphaFn, followed by 8 bytes of a common
// DXT1-style color block) and composes a width*height BGRA-8888 image.
func decodeDXTBlocks(src []byte, width, height int, alphaFn func(block []byte) [16]byte) []byte {
	out := make([]byte, width*height*4)
	blocksX := (width + 3) / 4
	blocksY := (height + 3) / 4
	pos := 0
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			block := src[pos : pos+16]
			pos += 16
			alpha := alphaFn(block[:8])
			colors := decodeColorBlock(block[8:16])

			for py := 0; py < 4; py++ {
				y := by*4 + py
				if y >= height {
					continue
				}
				for px := 0; px < 4; px++ {
					x := bx*4 + px
					if x >= width {
						continue
					}
					idx := py*4 + px
					c := colors[colorIndex(block[12:16], idx)]
					o := (y*width + x) * 4
					out[o+0] = c[2] // B
					out[o+1] = c[1] // G
					out[o+2] = c[0] // R
					out[o+3] = alpha[idx]
				}
			}
		}
	}
	return out
}

// decodeColorBlock unpacks the two RGB-565 endpoints of a DXT1-style
// color block and derives the two interpolated colors, always in
// four-color mode (DXT3/DXT5 never use DXT1's punch-through variant).
func decodeColorBlock(block []byte) [4][3]byte {
	c0 := binary.LittleEndian.Uint16(block[0:2])
	c1 := binary.LittleEndian.Uint16(block[2:4])
	r0, g0, b0 := unpack565(c0)
	r1, g1, b1 := unpack565(c1)

	var colors [4][3]byte
	colors[0] = [3]byte{r0, g0, b0}
	colors[1] = [3]byte{r1, g1, b1}
	colors[2] = [3]byte{
		byte((2*int(r0) + int(r1)) / 3),
		byte((2*int(g0) + int(g1)) / 3),
		byte((2*int(b0) + int(b1)) / 3),
	}
	colors[3] = [3]byte{
		byte((int(r0) + 2*int(r1)) / 3),
		byte((int(g0) + 2*int(g1)) / 3),
		byte((int(b0) + 2*int(b1)) / 3),
	}
	return colors
}

func unpack565(v uint16) (r, g, b byte) {
	r = table5[(v>>11)&0x1f]
	g = table6[(v>>5)&0x3f]
	b = table5[v&0x1f]
	return
}

func colorIndex(indexBytes []byte, pixel int) int {
	bits := binary.LittleEndian.Uint32(indexBytes)
	return int((bits >> (2 * uint(pixel))) & 0x3)
}
