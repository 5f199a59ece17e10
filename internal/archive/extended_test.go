package archive

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nolifestory/wztonx/internal/mmapfile"
	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

// encName8 encodes s the way readEncString's 8-bit branch expects when
// decrypted with an empty key (every key byte treated as 0): a negative
// length byte followed by plain ^ mask(0xAA, i++) per byte.
func encName8(s string) []byte {
	out := make([]byte, 1+len(s))
	out[0] = byte(int8(-len(s)))
	mask := byte(0xAA)
	for i := 0; i < len(s); i++ {
		out[1+i] = s[i] ^ mask
		mask++
	}
	return out
}

func newFileParser(t *testing.T, buf []byte) *Parser {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(path, buf, 0644))
	r, err := mmapfile.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	log := logrus.New()
	log.SetOutput(nopWriter{})
	return &Parser{
		R:       r,
		Arena:   wznode.NewArena(),
		Strings: strtab.New(),
		Log:     log,
		key:     []byte{},
	}
}

func TestSubPropertyDecodesIndexAndDouble(t *testing.T) {
	var buf []byte
	buf = append(buf, 2) // count cint = 2

	buf = append(buf, 0x00)             // inline prop-string tag
	buf = append(buf, encName8("foo")...) // name "foo"
	buf = append(buf, 0x00)             // type: index integer

	buf = append(buf, 0x00)
	buf = append(buf, encName8("bar")...)
	buf = append(buf, 0x05) // type: double
	floatBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(floatBuf, math.Float64bits(1.5))
	buf = append(buf, floatBuf...)

	p := newFileParser(t, buf)
	p.Strings.Add("")

	err := p.subProperty(0, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 2, p.Arena.Nodes[0].Num)
	children := p.Arena.Children(0)
	require.Len(t, children, 2)

	assert.Equal(t, "foo", p.Strings.String(children[0].Name))
	assert.Equal(t, wznode.KindInteger, children[0].Kind)
	assert.Equal(t, int64(0), children[0].Int64())

	assert.Equal(t, "bar", p.Strings.String(children[1].Name))
	assert.Equal(t, wznode.KindReal, children[1].Kind)
	assert.Equal(t, 1.5, children[1].Float64())
}

func TestSubPropertyUnknownTypeErrors(t *testing.T) {
	var buf []byte
	buf = append(buf, 1)
	buf = append(buf, 0x00)
	buf = append(buf, encName8("x")...)
	buf = append(buf, 0xFF) // unknown type

	p := newFileParser(t, buf)
	p.Strings.Add("")

	err := p.subProperty(0, 0)
	require.Error(t, err)
	var fe *mmapfile.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestExtendedPropertyVector2D(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x00)
	buf = append(buf, encName8("Shape2D#Vector2D")...)
	buf = append(buf, 10) // x cint
	buf = append(buf, 20) // y cint

	p := newFileParser(t, buf)
	p.Strings.Add("")

	err := p.extendedProperty(0, 0)
	require.NoError(t, err)
	assert.Equal(t, wznode.KindVector, p.Arena.Nodes[0].Kind)
	x, y := p.Arena.Nodes[0].Vector()
	assert.EqualValues(t, 10, x)
	assert.EqualValues(t, 20, y)
}

func TestExtendedPropertyUnknownTypeErrors(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x00)
	buf = append(buf, encName8("Mystery")...)

	p := newFileParser(t, buf)
	p.Strings.Add("")

	err := p.extendedProperty(0, 0)
	require.Error(t, err)
}
