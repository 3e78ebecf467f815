package has

import (
	"testing"

	"github.com/nlsfi/hasgo/internal/bitio"
	"github.com/nlsfi/hasgo/internal/gf256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPage encodes one raw 462-bit C/NAV page: 14-bit sync, 24-bit HAS
// header, and a 53-byte payload.
func buildPage(mID, mSize, pID int, payload []byte) []byte {
	w := bitio.NewWriter()
	w.PutU32((1<<14)-1, 14) // sync
	w.PutU32(0, 2)          // status: operational-equivalent test value
	w.PutU32(0, 2)          // reserved
	w.PutU32(1, 2)          // mType == 1
	w.PutU32(uint32(mID), 5)
	w.PutU32(uint32(mSize-1), 5)
	w.PutU32(uint32(pID), 8)
	w.PutBytes(payload)
	return w.Bytes()
}

func payloadOf(b byte) []byte {
	p := make([]byte, PayloadBytes)
	for i := range p {
		p[i] = b
	}
	return p
}

func TestSinglePageMessage(t *testing.T) {
	payload := payloadOf(0x42)
	raw := buildPage(3, 1, 1, payload)

	a := NewAssembler(nil)
	dec, ok := a.Feed(raw, 100.0)
	require.True(t, ok)
	assert.Equal(t, 3, dec.MID)
	assert.Equal(t, payload, dec.Bits)
}

func TestErasureRecovery3of255(t *testing.T) {
	// Construct a known 3-row x 53-byte message, encode it through rows
	// 7, 12, 200 of the generator matrix, and verify the assembler
	// reconstructs the original bytes from just those three pages.
	msg := gf256.NewMatrix(3, PayloadBytes)
	for i := 0; i < 3; i++ {
		for j := 0; j < PayloadBytes; j++ {
			msg[i][j] = byte((i*53 + j*7 + 11) % 256)
		}
	}
	pids := []int{7, 12, 200}
	rowIdx := make([]int, len(pids))
	for i, p := range pids {
		rowIdx[i] = p - 1
	}
	g := gf256.SubmatrixCols(gf256.Submatrix(gf256.GeneratorMatrix, rowIdx), 3)
	coded := gf256.MatMul(g, msg) // 3 x 53, row k = page pids[k]'s payload

	a := NewAssembler(nil)
	var dec Decoded
	var ok bool
	for k, pid := range pids {
		raw := buildPage(9, 3, pid, coded[k])
		dec, ok = a.Feed(raw, 50.0)
	}
	require.True(t, ok)
	assert.Equal(t, 9, dec.MID)

	want := make([]byte, 0, 3*PayloadBytes)
	for _, row := range msg {
		want = append(want, row...)
	}
	assert.Equal(t, want, dec.Bits)
}

func TestDuplicatePageIdempotent(t *testing.T) {
	a := NewAssembler(nil)
	payload := payloadOf(0x11)
	raw := buildPage(5, 5, 3, payload)

	_, ok := a.Feed(raw, 10.0)
	assert.False(t, ok) // mSize=5, only 1 page received

	_, ok = a.Feed(raw, 10.1) // identical duplicate
	assert.False(t, ok)

	b := &a.buckets[5]
	assert.Len(t, b.rec, 1)
}

func TestDuplicatePagePerturbedReinitializes(t *testing.T) {
	a := NewAssembler(nil)
	payload := payloadOf(0x11)
	raw := buildPage(6, 5, 3, payload)
	_, ok := a.Feed(raw, 10.0)
	assert.False(t, ok)

	perturbed := payloadOf(0x12)
	raw2 := buildPage(6, 5, 3, perturbed)
	_, ok = a.Feed(raw2, 10.1)
	assert.False(t, ok)

	b := &a.buckets[6]
	assert.False(t, b.active)
	assert.Len(t, b.rec, 0)
}

func TestPageTimeoutReinitializesBucket(t *testing.T) {
	a := NewAssembler(nil)
	raw1 := buildPage(7, 5, 1, payloadOf(0x01))
	_, ok := a.Feed(raw1, 0.0)
	assert.False(t, ok)

	raw2 := buildPage(7, 5, 2, payloadOf(0x02))
	_, ok = a.Feed(raw2, 25.0) // > 20s past t0
	assert.False(t, ok)

	b := &a.buckets[7]
	assert.Len(t, b.rec, 1) // only the post-timeout page survives
	assert.True(t, b.seen[1])
}

func TestInvalidSyncDropped(t *testing.T) {
	raw := buildPage(1, 1, 1, payloadOf(0x01))
	raw[0] = 0x00 // corrupt the sync word

	a := NewAssembler(nil)
	_, ok := a.Feed(raw, 1.0)
	assert.False(t, ok)
}
