package archive

import (
	"github.com/nolifestory/wztonx/internal/keys"
	"github.com/nolifestory/wztonx/internal/mmapfile"
)

// deduceKey reads one probe 8-bit encrypted string at the reader's current
// position and picks whichever of keys.Candidates decrypts every byte of
// it into the printable range [0x20, 0x80) (§4.3). It consumes the probe
// bytes exactly once, leaving the cursor positioned right after the
// string; callers that need to re-parse the probe restore the cursor
// themselves.
func deduceKey(r *mmapfile.Reader) ([]byte, error) {
	lenByte, err := r.ReadI8()
	if err != nil {
		return nil, err
	}
	if lenByte >= 0 {
		return nil, newLocaleError("probe string has non-negative length byte %d", lenByte)
	}
	slen := -int(lenByte)
	if lenByte == -128 {
		ext, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		slen = int(ext)
	}
	raw, err := r.Bytes(slen)
	if err != nil {
		return nil, err
	}

	var chosen []byte
	for _, candidate := range keys.Candidates {
		mask := uint8(0xAA)
		valid := true
		for i := 0; i < slen; i++ {
			var k byte
			if i < keys.Size {
				k = candidate[i]
			}
			c := raw[i] ^ k ^ mask
			mask++
			if c < 0x20 || c >= 0x80 {
				valid = false
				break
			}
		}
		if valid {
			chosen = candidate
		}
	}
	if chosen == nil {
		return nil, newLocaleError("failed to identify the locale")
	}
	r.Skip(slen)
	return chosen, nil
}
