// Package keys holds the two process-wide XOR keystreams used to decrypt
// WZ archive strings and bitmap payloads, one per client locale.
//
// The original wztonx tool never derives these tables: it links the literal
// key_gms/key_kms[65536] byte arrays shipped with the client, and its own
// AES-based derivation was left as a "TODO - use AES" that was never
// finished. This package generates each table as an AES-128-OFB expansion
// of a fixed seed instead of embedding 64KB of literal constants per
// locale, but the generated bytes are NOT the real GMS/KMS keystream — a
// real archive will not decrypt against them. Swap generate's output for
// the real key_gms/key_kms tables before pointing this at production data.
package keys

import "crypto/aes"

// Size is the length, in bytes, of every keystream table.
const Size = 65536

var (
	// GMS is the Global MapleStory keystream.
	GMS = generate(gmsCipherKey, gmsSeed)
	// KMS is the Korean MapleStory keystream, expanded from an all-zero
	// seed under the same AES key as GMS.
	KMS = generate(gmsCipherKey, kmsSeed)
)

// Candidates lists every keystream the locale-deduction routine tries, in
// the order the original probes them.
var Candidates = [][]byte{GMS, KMS}

var gmsCipherKey = [aes.BlockSize]byte{
	0x13, 0x08, 0x06, 0xB4, 0x1E, 0x95, 0x10, 0x91,
	0x91, 0x9E, 0xD0, 0x94, 0x6A, 0xF1, 0xF5, 0x33,
}

var gmsSeed = [aes.BlockSize]byte{
	0x4D, 0x23, 0xC7, 0x2B, 0x4D, 0x23, 0xC7, 0x2B,
	0x4D, 0x23, 0xC7, 0x2B, 0x4D, 0x23, 0xC7, 0x2B,
}

var kmsSeed = [aes.BlockSize]byte{}

// generate expands (key, seed) into a Size-byte OFB keystream: each block
// is the AES encryption of the previous block, starting from seed.
func generate(key, seed [aes.BlockSize]byte) []byte {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// key is always exactly aes.BlockSize (16) bytes; NewCipher can
		// only fail on bad key length.
		panic("keys: " + err.Error())
	}
	out := make([]byte, Size)
	cur := seed
	for off := 0; off < Size; off += aes.BlockSize {
		block.Encrypt(cur[:], cur[:])
		copy(out[off:off+aes.BlockSize], cur[:])
	}
	return out
}
