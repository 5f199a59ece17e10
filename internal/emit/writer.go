package emit

import (
	"github.com/nolifestory/wztonx/internal/archive"
	"github.com/nolifestory/wztonx/internal/bitmap"
	"github.com/nolifestory/wztonx/internal/mmapfile"
)

const outputMagic = 0x34474B50 // "PKG4"

// Options controls which sections Write emits (§6.1).
type Options struct {
	// Client emits bitmap and audio payloads; when false (server mode)
	// those tables are written with zero counts and offsets.
	Client bool
	// HighCompression selects LZ4-HC over default LZ4 for bitmaps.
	HighCompression bool
}

// Write transcodes everything a Parser collected into path, the finished
// NX container (§4.9, §6.3).
func Write(path string, p *archive.Parser, opts Options) error {
	var bitmapRecords [][]byte
	if opts.Client {
		bitmapRecords = make([][]byte, len(p.Bitmaps))
		for i, desc := range p.Bitmaps {
			rec, err := bitmap.Transcode(p.R, desc.InputOffset, desc.Key, opts.HighCompression)
			if err != nil {
				return err
			}
			bitmapRecords[i] = rec
		}
	}

	l := planLayout(p.Arena, p.Strings, p.Audios, bitmapRecords, opts.Client)

	w, err := mmapfile.CreateWriter(path, int64(l.totalSize))
	if err != nil {
		return err
	}
	defer w.Close()

	writeHeader(w, p, l, bitmapRecords, opts.Client)
	writeNodeTable(w, p, l)
	writeStringTable(w, p, l)
	if opts.Client {
		writeAudioSections(w, p, l)
		writeBitmapSections(w, l, bitmapRecords)
	}

	return w.Close()
}

func writeHeader(w *mmapfile.Writer, p *archive.Parser, l layout, bitmapRecords [][]byte, client bool) {
	w.Seek(0)
	w.WriteU32(outputMagic)
	w.WriteU32(uint32(len(p.Arena.Nodes)))
	w.WriteU64(uint64(l.nodeTableOffset))
	w.WriteU32(uint32(p.Strings.Len()))
	w.WriteU64(uint64(l.strOffTableOffset))
	if client {
		w.WriteU32(uint32(len(bitmapRecords)))
		w.WriteU64(uint64(l.bitmapOffTableOffset))
		w.WriteU32(uint32(len(p.Audios)))
		w.WriteU64(uint64(l.audioOffTableOffset))
	} else {
		w.WriteU32(0)
		w.WriteU64(0)
		w.WriteU32(0)
		w.WriteU64(0)
	}
}

func writeNodeTable(w *mmapfile.Writer, p *archive.Parser, l layout) {
	w.Seek(l.nodeTableOffset)
	for _, n := range p.Arena.Nodes {
		w.WriteU32(n.Name)
		w.WriteU32(n.Children)
		w.WriteU16(n.Num)
		w.WriteU16(uint16(n.Kind))
		w.Write(n.Payload[:])
	}
}

func writeStringTable(w *mmapfile.Writer, p *archive.Parser, l layout) {
	w.Seek(l.strOffTableOffset)
	offset := l.strBlobOffset
	for _, s := range p.Strings.All() {
		w.WriteU64(uint64(offset))
		offset += stringRecordSize(s)
	}

	w.Seek(l.strBlobOffset)
	for _, s := range p.Strings.All() {
		w.WriteU16(uint16(len(s)))
		w.Write([]byte(s))
		if len(s)%2 != 0 {
			w.WriteU8(0)
		}
	}
}

func writeAudioSections(w *mmapfile.Writer, p *archive.Parser, l layout) {
	w.Seek(l.audioOffTableOffset)
	offset := l.audioBlobOffset
	for _, a := range p.Audios {
		w.WriteU64(uint64(offset))
		offset += int(a.Length)
	}

	w.Seek(l.audioBlobOffset)
	for _, a := range p.Audios {
		w.Write(p.R.At(a.InputOffset)[:a.Length])
	}
}

func writeBitmapSections(w *mmapfile.Writer, l layout, records [][]byte) {
	w.Seek(l.bitmapOffTableOffset)
	offset := l.bitmapBlobOffset
	for _, rec := range records {
		w.WriteU64(uint64(offset))
		offset += 4 + len(rec)
	}

	w.Seek(l.bitmapBlobOffset)
	for _, rec := range records {
		w.WriteU32(uint32(len(rec)))
		w.Write(rec)
	}
}
