// Package mmapfile provides the cursor-addressed, memory-mapped byte
// streams the transcoder reads archives from and writes NX files to.
// Mapping the whole file once and walking it with a cursor avoids the
// buffered-reader bookkeeping flonle-diy-redis's RDB loader needs (its
// rdb.go re-reads through a bufio.Reader one field at a time); here the OS
// demand-faults pages as the cursor advances across them.
package mmapfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Reader memory-maps a file read-only and exposes cursor-relative typed
// reads over it.
type Reader struct {
	file *os.File
	data []byte
	pos  int
}

// OpenReader maps path read-only.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("mmapfile: %s is empty", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}
	return &Reader{file: f, data: data}, nil
}

// Close unmaps the file and releases the underlying descriptor. Safe to
// call more than once.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if cerr := r.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Len returns the total mapped size.
func (r *Reader) Len() int { return len(r.data) }

// Tell returns the current cursor position.
func (r *Reader) Tell() int { return r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(abs int) { r.pos = abs }

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) { r.pos += n }

// Bytes returns the next n bytes at the cursor without advancing it, or a
// FormatError if that would read past the end of the mapping.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, &FormatError{fmt.Sprintf("read past end of file at offset %d, want %d bytes", r.pos, n)}
	}
	return r.data[r.pos : r.pos+n], nil
}

// Take reads the next n bytes and advances the cursor past them.
func (r *Reader) Take(n int) ([]byte, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return b, nil
}

// At returns the absolute base pointer of the mapping plus off, as a raw
// slice to the end of the mapping; used by the emitter to copy audio
// payloads directly out of the input mapping.
func (r *Reader) At(off int) []byte { return r.data[off:] }

// FormatError reports structurally invalid archive content (§7).
type FormatError struct{ Msg string }

func (e *FormatError) Error() string { return "wz: format error: " + e.Msg }

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.Take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadU8()
	return int8(b), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.Take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadCInt reads the archive's compressed signed-32-bit integer
// encoding (§4.1): a signed byte, or (if that byte is exactly -128) the
// signed 32-bit little-endian value that follows it.
func (r *Reader) ReadCInt() (int32, error) {
	a, err := r.ReadI8()
	if err != nil {
		return 0, err
	}
	if a != -128 {
		return int32(a), nil
	}
	return r.ReadI32()
}
