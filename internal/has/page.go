package has

import "github.com/nlsfi/hasgo/internal/bitio"

// syncBits is the width of the C/NAV sync pattern, which is all ones.
const syncBits = 14

// headerBits is the width of the HAS header that follows the sync word.
const headerBits = 24

// PayloadBytes is the number of coded data bytes carried by one HAS page.
const PayloadBytes = 53

// dummyPageMarker is the 24-bit value that flags a dummy HAS page.
const dummyPageMarker = 0xAF3BC3

// Header is the 24-bit HAS header carried by every page, immediately after
// the 14-bit C/NAV sync word.
type Header struct {
	Status uint8
	MType  uint8
	MID    int // 0..31
	MSize  int // 1..32
	PID    int // 0..255 (0 reserved)
}

// DecodePage runs the validity gate and header parse over a raw 462-bit
// C/NAV payload (packed into ceil(462/8) bytes, MSB first). It returns the
// parsed header and the 53-byte page payload, or ok=false if the page
// should be silently dropped (sync mismatch, dummy page, invalid status or
// message type).
func DecodePage(raw []byte) (hdr Header, payload []byte, ok bool) {
	r := bitio.NewReader(raw)
	if r.Len() < syncBits+headerBits+PayloadBytes*8 {
		return Header{}, nil, false
	}
	sync := r.U32(syncBits)
	if sync != (1<<syncBits)-1 {
		return Header{}, nil, false
	}
	headerStart := r.Pos()
	status := r.U8(2)
	r.U8(2) // reserved
	mType := r.U8(2)
	mid := r.Int(5)
	msRaw := r.Int(5)
	pid := r.Int(8)

	// Dummy-page check is over the raw 24-bit header value.
	hr := bitio.NewReader(raw)
	hr.Seek(headerStart)
	if hr.U32(headerBits) == dummyPageMarker {
		return Header{}, nil, false
	}

	if status != 0 && status != 1 {
		return Header{}, nil, false
	}
	if mType != 1 {
		return Header{}, nil, false
	}

	hdr = Header{
		Status: status,
		MType:  mType,
		MID:    mid,
		MSize:  msRaw + 1,
		PID:    pid,
	}
	payload = r.Bytes(PayloadBytes)
	return hdr, payload, true
}
