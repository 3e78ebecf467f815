package ssr

import "github.com/nlsfi/hasgo/internal/bitio"

// ContentFlags is the 6-bit mask of which SSR sub-blocks a message carries.
type ContentFlags struct {
	Mask      bool
	Orb       bool
	ClockFull bool
	ClockSub  bool
	CodeB     bool
	PhaseB    bool
}

// Any reports whether at least one sub-block flag is set.
func (c ContentFlags) Any() bool {
	return c.Mask || c.Orb || c.ClockFull || c.ClockSub || c.CodeB || c.PhaseB
}

// Header is the fixed 32-bit HAS message header: time-of-hour, content
// flags, and the mask/IOD-set identifiers used for cross-message memory.
type Header struct {
	Toh      int // seconds within the hour, 0..4095
	Content  ContentFlags
	MaskID   int // 0..31
	IODsetID int // 0..31
}

func readHeader(r *bitio.Reader) Header {
	toh := r.Int(12)
	content := ContentFlags{
		Mask:      r.Bool(),
		Orb:       r.Bool(),
		ClockFull: r.Bool(),
		ClockSub:  r.Bool(),
		CodeB:     r.Bool(),
		PhaseB:    r.Bool(),
	}
	r.U32(4) // reserved
	maskID := r.Int(5)
	iodSetID := r.Int(5)
	return Header{Toh: toh, Content: content, MaskID: maskID, IODsetID: iodSetID}
}
