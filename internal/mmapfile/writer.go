package mmapfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Writer creates (or truncates) a file, pre-sizes it to an exact byte
// count, memory-maps it read-write, and exposes cursor-relative typed
// writes over it.
type Writer struct {
	file *os.File
	data []byte
	pos  int
}

// CreateWriter creates (truncating if necessary) path, sizes it to
// exactly size bytes, and maps it read-write.
func CreateWriter(path string, size int64) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: create %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: resize %s to %d bytes: %w", path, size, err)
	}
	if size == 0 {
		return &Writer{file: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}
	return &Writer{file: f, data: data}, nil
}

// Close unmaps and closes the output file. Safe to call more than once.
func (w *Writer) Close() error {
	var err error
	if w.data != nil {
		err = unix.Munmap(w.data)
		w.data = nil
	}
	if cerr := w.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Tell returns the current cursor position.
func (w *Writer) Tell() int { return w.pos }

// Seek moves the cursor to an absolute offset.
func (w *Writer) Seek(abs int) { w.pos = abs }

// Skip advances the cursor by n bytes.
func (w *Writer) Skip(n int) { w.pos += n }

func (w *Writer) put(b []byte) {
	copy(w.data[w.pos:], b)
	w.pos += len(b)
}

// Write copies buf at the cursor and advances past it.
func (w *Writer) Write(buf []byte) { w.put(buf) }

func (w *Writer) WriteU8(v uint8)   { w.put([]byte{v}) }
func (w *Writer) WriteI8(v int8)    { w.WriteU8(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }
