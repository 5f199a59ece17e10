package archive

import (
	"encoding/binary"

	"github.com/nolifestory/wztonx/internal/mmapfile"
	"github.com/nolifestory/wztonx/internal/strtab"
)

// readEncString reads one length-discriminated encrypted string (§4.6.1)
// using key and interns the decoded value.
func readEncString(r *mmapfile.Reader, key []byte, strings *strtab.Table) (uint32, error) {
	n, err := r.ReadI8()
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0:
		slen := int(n)
		if n == 127 {
			ext, err := r.ReadU32()
			if err != nil {
				return 0, err
			}
			slen = int(ext)
		}
		raw, err := r.Take(slen * 2)
		if err != nil {
			return 0, err
		}
		units := make([]uint16, slen)
		mask := uint32(0xAAAA)
		for i := 0; i < slen; i++ {
			cipher := binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
			var k uint16
			if 2*i+2 <= len(key) {
				k = binary.LittleEndian.Uint16(key[2*i : 2*i+2])
			}
			units[i] = cipher ^ k ^ uint16(mask&0xFFFF)
			mask++
		}
		return strings.Add(strtab.DecodeUTF16LE(units)), nil

	case n < 0:
		slen := int(-n)
		if n == -128 {
			ext, err := r.ReadU32()
			if err != nil {
				return 0, err
			}
			slen = int(ext)
		}
		raw, err := r.Take(slen)
		if err != nil {
			return 0, err
		}
		out := make([]byte, slen)
		mask := uint32(0xAA)
		hasHighBit := false
		for i := 0; i < slen; i++ {
			var k byte
			if i < len(key) {
				k = key[i]
			}
			c := raw[i] ^ k ^ byte(mask&0xFF)
			mask++
			out[i] = c
			if c >= 0x80 {
				hasHighBit = true
			}
		}
		if hasHighBit {
			return strings.Add(strtab.PromoteCP1252(out)), nil
		}
		return strings.Add(string(out)), nil

	default:
		return 0, nil
	}
}

// readPropString reads a property-offset string (§4.6.2): either an
// inline encrypted string, or a 32-bit offset relative to imgBase at
// which one is stored.
func readPropString(r *mmapfile.Reader, imgBase int, key []byte, strings *strtab.Table) (uint32, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	switch tag {
	case 0x00, 0x73:
		return readEncString(r, key, strings)
	case 0x01, 0x1B:
		off, err := r.ReadI32()
		if err != nil {
			return 0, err
		}
		saved := r.Tell()
		r.Seek(imgBase + int(off))
		id, err := readEncString(r, key, strings)
		r.Seek(saved)
		return id, err
	default:
		return 0, &mmapfile.FormatError{Msg: "unknown property string type"}
	}
}
