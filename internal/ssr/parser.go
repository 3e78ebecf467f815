package ssr

import "github.com/nlsfi/hasgo/internal/bitio"

// Parser turns decoded HAS message bits into an SSR value, keeping the
// 32-slot mask and IOD-set memory a stream of HAS messages shares across
// calls.
type Parser struct {
	mem *Memory
}

// NewParser returns a Parser with fresh, empty cross-message memory.
func NewParser() *Parser {
	return &Parser{mem: NewMemory()}
}

// Parse decodes one HAS message's plaintext bits into an SSR value.
//
// It resolves masks not carried by the message from the 32-slot mask
// memory, keyed by the header's maskID, and returns ErrMaskUnavailable if
// neither a fresh nor a remembered mask is available: per the header
// content flags, the orbit, clock and bias blocks cannot be located in the
// bitstream without a mask to size them against, so the whole message must
// be discarded.
//
// The IOD-set memory is consulted only as an availability gate: HAS never
// retrieves stored orbit/clock data by IOD set, it only remembers whether
// one has been seen. A message that carries no orbit block of its own is
// discarded if its IODsetID was never established by an earlier one.
func (p *Parser) Parse(bits []byte) (*SSR, error) {
	r := bitio.NewReader(bits)
	hdr := readHeader(r)
	s := &SSR{Header: hdr}

	var masks *Masks
	if hdr.Content.Mask {
		masks = readMasks(r)
		p.mem.StoreMask(hdr.MaskID, masks)
	} else {
		masks = p.mem.GetMask(hdr.MaskID)
		if masks == nil {
			return nil, ErrMaskUnavailable
		}
	}
	s.Masks = masks
	satNum := masks.SatNums()

	// HAS never retrieves a prior orbit/clock block by IOD set, so a
	// message without its own Orb block simply carries none -- but only
	// once some earlier message has established that IOD set's orbit
	// baseline.
	if hdr.Content.Orb {
		s.Orbits = readOrbits(r, satNum)
		p.mem.MarkIODAvailable(hdr.IODsetID)
	} else if !p.mem.IODAvailable(hdr.IODsetID) {
		return nil, ErrIODUnavailable
	}

	if hdr.Content.ClockFull {
		s.ClockFull = readClockFull(r, satNum, masks)
	} else if hdr.Content.ClockSub {
		cs := readClockSub(r, satNum, masks)
		cs.StoreIDs(masks)
		s.ClockSub = cs
	}

	if hdr.Content.CodeB {
		s.CodeBias = readBiases(r, masks, "code")
	}
	if hdr.Content.PhaseB {
		s.PhaseBias = readBiases(r, masks, "phase")
	}

	return s, nil
}
