// Package emit lays out and writes the output NX container (§4.9, §6.3):
// header, node table, string table, and — in client mode — the audio and
// bitmap tables and blobs.
package emit

import (
	"github.com/nolifestory/wztonx/internal/archive"
	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

const headerSize = 52

// align16 rounds n up to the next multiple of 16 (every section start is
// 16-byte aligned, §4.9). This leaves an already-aligned offset
// unchanged; the original wztonx's calculate_offsets instead always adds
// a full 0x10 bytes, even when the running offset already lands on a
// 16-byte boundary, so its section offsets run one spurious 16-byte gap
// ahead of this implementation's whenever a section size is itself a
// multiple of 16.
func align16(n int) int { return (n + 15) &^ 15 }

// stringRecordSize is the on-disk size of one string record: a 16-bit
// length prefix, the bytes themselves, and one pad byte if that makes
// the record odd-length (§4.9).
func stringRecordSize(s string) int {
	n := 2 + len(s)
	if len(s)%2 != 0 {
		n++
	}
	return n
}

// layout holds every section's offset and size, computed once up front.
type layout struct {
	nodeTableOffset   int
	nodeTableSize     int
	strOffTableOffset int
	strOffTableSize   int
	strBlobOffset     int
	strBlobSize       int

	audioOffTableOffset int
	audioOffTableSize   int
	bitmapOffTableOffset int
	bitmapOffTableSize   int
	audioBlobOffset      int
	audioBlobSize        int
	bitmapBlobOffset     int
	bitmapBlobSize       int

	totalSize int
}

// planLayout computes every section offset. bitmapRecords must already
// hold the final compressed bytes for every bitmap (the blob's length
// cannot be known before the bitmaps are transcoded, so the caller runs
// the bitmap pipeline first and sizes the single output mapping once,
// per the spec's documented alternative to an append-after-unmap
// scheme).
func planLayout(arena *wznode.Arena, strings *strtab.Table, audios []archive.AudioDescriptor, bitmapRecords [][]byte, client bool) layout {
	var l layout

	l.nodeTableOffset = align16(headerSize)
	l.nodeTableSize = len(arena.Nodes) * 20

	l.strOffTableOffset = align16(l.nodeTableOffset + l.nodeTableSize)
	l.strOffTableSize = strings.Len() * 8

	l.strBlobOffset = align16(l.strOffTableOffset + l.strOffTableSize)
	for _, s := range strings.All() {
		l.strBlobSize += stringRecordSize(s)
	}

	next := align16(l.strBlobOffset + l.strBlobSize)

	if !client {
		l.audioOffTableOffset = next
		l.bitmapOffTableOffset = next
		l.totalSize = next
		return l
	}

	l.audioOffTableOffset = next
	l.audioOffTableSize = len(audios) * 8

	l.bitmapOffTableOffset = align16(l.audioOffTableOffset + l.audioOffTableSize)
	l.bitmapOffTableSize = len(bitmapRecords) * 8

	l.audioBlobOffset = align16(l.bitmapOffTableOffset + l.bitmapOffTableSize)
	for _, a := range audios {
		l.audioBlobSize += int(a.Length)
	}

	l.bitmapBlobOffset = align16(l.audioBlobOffset + l.audioBlobSize)
	for _, rec := range bitmapRecords {
		l.bitmapBlobSize += 4 + len(rec)
	}

	l.totalSize = l.bitmapBlobOffset + l.bitmapBlobSize
	return l
}
