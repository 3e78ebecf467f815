package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderU32RoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutU32(0x1F5, 9)
	w.PutU32(1, 1)
	w.PutU32(0, 1)
	w.PutU32(0xABCD, 16)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint32(0x1F5), r.U32(9))
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	assert.Equal(t, uint32(0xABCD), r.U32(16))
}

func TestSignedRoundTrip(t *testing.T) {
	cases := []struct {
		val   int32
		width int
	}{
		{5, 13}, {-5, 13}, {0, 13}, {-4096, 13}, {4095, 13}, {-1, 2},
	}
	for _, c := range cases {
		w := NewWriter()
		w.PutSigned(c.val, c.width)
		r := NewReader(w.Bytes())
		assert.Equal(t, c.val, r.Signed(c.width), "width=%d val=%d", c.width, c.val)
	}
}

func TestSignExtendSentinel(t *testing.T) {
	// 13-bit sign-bit-only sentinel: 1000000000000
	u := uint32(0b1000000000000)
	assert.Equal(t, int32(-4096), SignExtend(u, 13))
}

func TestBitsToBytesPadsFinalByte(t *testing.T) {
	bits := []bool{true, false, true}
	got := BitsToBytes(bits)
	assert.Equal(t, []byte{0b10100000}, got)
}
