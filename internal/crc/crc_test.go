package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC24QZeroLength(t *testing.T) {
	assert.Equal(t, uint32(0), CRC24Q([]byte{0xD3, 0x00, 0x01}, 0))
}

func TestCRC24QKnownVector(t *testing.T) {
	got := CRC24Q([]byte{0xD3, 0x00, 0x00}, 3)
	assert.Equal(t, uint32(0x47EA4B), got)
}

func TestCRC24QDiffersOnBitFlip(t *testing.T) {
	a := []byte{0xD3, 0x00, 0x05, 0x01, 0x02, 0x03, 0x04, 0x05}
	b := append([]byte(nil), a...)
	b[4] ^= 0x01
	assert.NotEqual(t, CRC24Q(a, len(a)), CRC24Q(b, len(b)))
}

func TestNovatel32KnownEmpty(t *testing.T) {
	assert.Equal(t, uint32(0), Novatel32(nil))
}

func TestNovatel32DiffersOnBitFlip(t *testing.T) {
	a := []byte("#GALCNAVRAWPAGEA,COM1,0,71.5,FINESTEERING,2216,431676.000,00000040,3681,16809;2,20,0,1,00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000")
	b := append([]byte(nil), a...)
	b[10] ^= 0x01
	assert.NotEqual(t, Novatel32(a), Novatel32(b))
}
