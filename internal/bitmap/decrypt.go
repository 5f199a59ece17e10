package bitmap

import (
	"encoding/binary"
	"fmt"
)

// blockDecrypt scans buf as a stream of (u32 length, payload) records and
// XORs each payload byte j against key[j] (§4.9.1 step 4), concatenating
// every payload into the returned buffer. Used when the bitmap's
// compressed bytes turn out to be additionally obfuscated and a plain
// zlib inflate fails.
func blockDecrypt(buf []byte, key []byte) ([]byte, error) {
	var out []byte
	pos := 0
	for pos < len(buf) {
		if pos+4 > len(buf) {
			return nil, fmt.Errorf("bitmap: truncated block-decrypt length field")
		}
		blen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		if blen < 0 || pos+blen > len(buf) {
			return nil, fmt.Errorf("bitmap: block-decrypt record overruns buffer")
		}
		block := buf[pos : pos+blen]
		pos += blen
		decoded := make([]byte, blen)
		for j := 0; j < blen; j++ {
			var k byte
			if j < len(key) {
				k = key[j]
			}
			decoded[j] = block[j] ^ k
		}
		out = append(out, decoded...)
	}
	return out, nil
}
