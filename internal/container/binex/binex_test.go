package binex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildForwardRecord assembles one direct (non-reversed) BINEX record
// carrying a Galileo C/NAV navigation-data subrecord, using sync byte 0xe2
// (forward, non-enhanced, big-endian ubnxi fields).
func buildForwardRecord(prn byte, transTime uint32, transTimeMS uint16) []byte {
	message := []byte{navSubrecordID}
	message = append(message,
		byte(transTime>>24), byte(transTime>>16), byte(transTime>>8), byte(transTime),
		byte(transTimeMS>>8), byte(transTimeMS),
		prn,
		0x35, // source 20 (field value 21 = 0x15) | CRC-passed bit (0x20)
	)
	navbits := make([]byte, navPageLen)
	for i := range navbits {
		navbits[i] = byte(i)
	}
	message = append(message, navbits...)

	out := []byte{0xe2, 0x01, byte(len(message))}
	out = append(out, message...)
	out = append(out, 0x00) // 1-byte CRC trailer, not validated by this deframer
	return out
}

func TestReaderDecodesForwardRecord(t *testing.T) {
	rec := buildForwardRecord(11, 1_000_000, 500)
	r := NewReader(bytes.NewReader(rec))

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 11, got.PRN)
	require.Len(t, got.Bits, navPageLen)
	assert.Equal(t, byte(0), got.Bits[0])
	assert.Equal(t, byte(10), got.Bits[10])
}

func TestReaderSkipsNonCNAVSource(t *testing.T) {
	rec := buildForwardRecord(11, 1_000_000, 500)
	// Flip the source field away from 20 (Galileo C/NAV).
	subrecordStart := 3
	rec[subrecordStart+8] = 0x25 // source field value 5 -> source 4 (not Galileo C/NAV)
	stream := bytes.NewReader(rec)

	r := NewReader(stream)
	_, err := r.Next()
	assert.Error(t, err)
}

func TestTimeOfWeekWithinWeekBounds(t *testing.T) {
	tow := timeOfWeek(1_000_000, 500)
	assert.True(t, tow >= 0 && tow < 604800)
}

func TestDetLayoutForward(t *testing.T) {
	l := detLayout(0xe2)
	assert.True(t, l.forward)
	assert.True(t, l.begin)
	assert.True(t, l.bigE)
	assert.False(t, l.enhanced)
}

func TestReaderEOFOnEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.Error(t, err)
}
