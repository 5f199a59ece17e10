package bitmap

import "encoding/binary"

// table4 expands a 4-bit channel value into 8 bits by repeating the
// nibble into both halves of the byte (§4.9.1 step 5, format1 == 1).
var table4 = func() [16]byte {
	var t [16]byte
	for i := range t {
		t[i] = byte(i * 0x11)
	}
	return t
}()

// table5 expands a 5-bit channel value into 8 bits (§4.9.1 step 5,
// format1 == 513, R/B channels of RGB-565).
var table5 = func() [32]byte {
	var t [32]byte
	for i := range t {
		t[i] = byte((i*255 + 15) / 31)
	}
	return t
}()

// table6 expands a 6-bit channel value into 8 bits (§4.9.1 step 5,
// format1 == 513, G channel of RGB-565).
var table6 = func() [64]byte {
	var t [64]byte
	for i := range t {
		t[i] = byte((i*255 + 31) / 63)
	}
	return t
}()

// expand4BitBGRA turns 2-bytes-per-pixel packed 4-bit BGRA into
// BGRA-8888 (format1 == 1). Byte 0 holds B in its low nibble and G in
// its high nibble; byte 1 holds R low and A high.
func expand4BitBGRA(src []byte, pixels int) []byte {
	out := make([]byte, pixels*4)
	for i := 0; i < pixels; i++ {
		b0, b1 := src[i*2], src[i*2+1]
		out[i*4+0] = table4[b0&0x0f]
		out[i*4+1] = table4[b0>>4]
		out[i*4+2] = table4[b1&0x0f]
		out[i*4+3] = table4[b1>>4]
	}
	return out
}

// expand565 turns 2-bytes-per-pixel RGB-565 into BGRA-8888, opaque
// (format1 == 513).
func expand565(src []byte, pixels int) []byte {
	out := make([]byte, pixels*4)
	for i := 0; i < pixels; i++ {
		v := binary.LittleEndian.Uint16(src[i*2 : i*2+2])
		r := (v >> 11) & 0x1f
		g := (v >> 5) & 0x3f
		b := v & 0x1f
		out[i*4+0] = table5[b]
		out[i*4+1] = table6[g]
		out[i*4+2] = table5[r]
		out[i*4+3] = 0xFF
	}
	return out
}
