package bitmap

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zlibCompress builds a zlib-wrapped test fixture with the standard
// library; production decode never uses compress/zlib, only this test
// helper does, to exercise inflateZlib against a real reference encoder.
func zlibCompress(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInflateZlibRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("hello bitmap pipeline"), 20)
	compressed := zlibCompress(t, plain)

	out, err := inflateZlib(compressed, len(plain))
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestInflateZlibWrongLengthFails(t *testing.T) {
	plain := bytes.Repeat([]byte("x"), 64)
	compressed := zlibCompress(t, plain)

	_, err := inflateZlib(compressed, len(plain)+1)
	assert.Error(t, err)
}

func TestInflateZlibBadHeaderFails(t *testing.T) {
	_, err := inflateZlib([]byte{0x00, 0x00, 0x00}, 1)
	assert.Error(t, err)
}
