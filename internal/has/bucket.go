package has

import (
	"bytes"

	"github.com/nlsfi/hasgo/internal/gf256"
)

// TimeLimit is the window of time, in seconds of receiver tow, within which
// a bucket must complete before it is timed out and reinitialized.
const TimeLimit = 20.0

// bucket accumulates pages for a single message ID.
type bucket struct {
	active bool
	status uint8
	mType  uint8
	mSize  int
	t0     float64
	rec    []int        // page indices (0-based) accepted, in arrival order
	seen   map[int]bool // fast membership test mirroring rec
	pages  [255][]byte  // 53-byte payloads, nil until received
}

func (b *bucket) reset() {
	b.active = false
	b.status = 0
	b.mType = 0
	b.mSize = 0
	b.t0 = 0
	b.rec = b.rec[:0]
	for k := range b.seen {
		delete(b.seen, k)
	}
	for i := range b.pages {
		b.pages[i] = nil
	}
}

func (b *bucket) start(hdr Header, tow float64) {
	if b.seen == nil {
		b.seen = make(map[int]bool)
	}
	b.active = true
	b.status = hdr.Status
	b.mType = hdr.MType
	b.mSize = hdr.MSize
	b.t0 = tow
}

func (b *bucket) complete() bool {
	return len(b.rec) >= b.mSize
}

// addPage applies §4.3 steps 4-6 for an already-admitted bucket (the
// timeout/collision/init handling in steps 2-3 is done by the caller).
// It returns whether the bucket is now complete.
func (b *bucket) addPage(hdr Header, payload []byte) (bool, error) {
	idx := hdr.PID - 1
	if hdr.PID == 0 {
		return b.complete(), nil
	}
	if b.seen[idx] {
		if !bytes.Equal(b.pages[idx], payload) {
			return false, ErrDuplicatePage
		}
		return b.complete(), nil
	}
	b.rec = append(b.rec, idx)
	b.seen[idx] = true
	b.pages[idx] = payload
	return b.complete(), nil
}

// decode performs the GF(256) erasure decode over the last mSize accepted
// page indices, returning the reconstructed mSize*424-bit payload as bytes
// (53 bytes per page, exactly 424 bits, so no truncation is actually
// needed -- kept explicit to mirror the original decode contract).
func (b *bucket) decode() ([]byte, error) {
	idx := b.rec[len(b.rec)-b.mSize:]
	payload := gf256.NewMatrix(b.mSize, PayloadBytes)
	for k, pIdx := range idx {
		payload[k] = b.pages[pIdx]
	}
	g := gf256.SubmatrixCols(gf256.Submatrix(gf256.GeneratorMatrix, idx), b.mSize)
	ginv, err := gf256.Invert(g)
	if err != nil {
		return nil, ErrSingularSubmatrix
	}
	decoded := gf256.MatMul(ginv, payload)

	out := make([]byte, 0, b.mSize*PayloadBytes)
	for _, row := range decoded {
		out = append(out, row...)
	}
	wantBits := b.mSize * PayloadBytes * 8
	wantBytes := (wantBits + 7) / 8
	if wantBytes < len(out) {
		out = out[:wantBytes]
	}
	return out, nil
}
