package bitmap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockDecryptSingleRecord(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	plain := []byte{10, 20, 30, 40}
	cipher := make([]byte, len(plain))
	for i := range plain {
		cipher[i] = plain[i] ^ key[i]
	}

	var buf []byte
	var lenField [4]byte
	binary.LittleEndian.PutUint32(lenField[:], uint32(len(cipher)))
	buf = append(buf, lenField[:]...)
	buf = append(buf, cipher...)

	out, err := blockDecrypt(buf, key)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestBlockDecryptMultipleRecordsConcatenate(t *testing.T) {
	key := []byte{0, 0, 0, 0}
	var buf []byte
	for _, payload := range [][]byte{{1, 2}, {3, 4, 5}} {
		var lenField [4]byte
		binary.LittleEndian.PutUint32(lenField[:], uint32(len(payload)))
		buf = append(buf, lenField[:]...)
		buf = append(buf, payload...)
	}

	out, err := blockDecrypt(buf, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, out)
}

func TestBlockDecryptTruncatedLengthFieldErrors(t *testing.T) {
	_, err := blockDecrypt([]byte{1, 2, 3}, nil)
	assert.Error(t, err)
}

func TestBlockDecryptOverrunErrors(t *testing.T) {
	var buf []byte
	var lenField [4]byte
	binary.LittleEndian.PutUint32(lenField[:], 100)
	buf = append(buf, lenField[:]...)
	buf = append(buf, 1, 2, 3)
	_, err := blockDecrypt(buf, nil)
	assert.Error(t, err)
}
