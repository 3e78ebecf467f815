package ssr

import "github.com/nlsfi/hasgo/internal/bitio"

// ClockCorrection is one satellite's clock correction, or a sentinel.
type ClockCorrection struct {
	Value float64
	NA    bool
	DNU   bool
}

// ClockFull is the full (per-masked-satellite) clock correction section.
type ClockFull struct {
	ValidityIdx int
	Mult        []int // per system, multiplier (1..4), 0 if system has no sats
	BySystem    [][]ClockCorrection
}

func readClockFull(r *bitio.Reader, satNum []int, masks *Masks) *ClockFull {
	c := &ClockFull{}
	c.ValidityIdx = r.Int(4)
	c.Mult = make([]int, len(satNum))
	for sys := 0; sys < len(satNum); sys++ {
		if satNum[sys] > 0 {
			c.Mult[sys] = r.Int(2) + 1
		}
	}
	c.BySystem = make([][]ClockCorrection, len(satNum))
	for sys := 0; sys < len(satNum); sys++ {
		mult := c.Mult[sys]
		for sat := 0; sat < satNum[sys]; sat++ {
			raw := r.Signed(13)
			cc := ClockCorrection{}
			switch raw {
			case naSentinel13:
				cc.NA = true
			case (1 << 12) - 1: // 0x0FFF, max positive 13-bit value
				cc.DNU = true
				if masks != nil {
					if sm := masks.GetMask(sys); sm != nil {
						sm.SetDNU(sat)
					}
				}
			default:
				cc.Value = float64(raw) * 0.0025 * float64(mult)
			}
			c.BySystem[sys] = append(c.BySystem[sys], cc)
		}
	}
	return c
}

// ClockSub is the subset clock correction section: it carries its own
// per-system submask of which masked satellites it actually corrects.
type ClockSub struct {
	ValidityIdx int
	NSys        int
	Mult        map[int]int
	SubMask     map[int][]bool // per sysID, length = SatNum[sysID]
	SatNumsSub  map[int]int
	Corrections map[int][]ClockCorrection // per sysID, length = SatNumsSub[sysID]
	SatIDs      map[int][]int             // per sysID, resolved 1-based SatIDs, filled by StoreIDs
}

func readClockSub(r *bitio.Reader, satNum []int, masks *Masks) *ClockSub {
	c := &ClockSub{
		Mult:        make(map[int]int),
		SubMask:     make(map[int][]bool),
		SatNumsSub:  make(map[int]int),
		Corrections: make(map[int][]ClockCorrection),
		SatIDs:      make(map[int][]int),
	}
	c.ValidityIdx = r.Int(4)
	c.NSys = r.Int(4)
	for i := 0; i < c.NSys; i++ {
		sysID := r.Int(4)
		mult := r.Int(2) + 1
		c.Mult[sysID] = mult

		n := 0
		if sysID < len(satNum) {
			n = satNum[sysID]
		}
		sub := make([]bool, n)
		subCount := 0
		for j := 0; j < n; j++ {
			sub[j] = r.Bool()
			if sub[j] {
				subCount++
			}
		}
		c.SubMask[sysID] = sub
		c.SatNumsSub[sysID] = subCount

		var corrs []ClockCorrection
		for j := 0; j < subCount; j++ {
			raw := r.Signed(13)
			cc := ClockCorrection{}
			switch raw {
			case naSentinel13:
				cc.NA = true
			case (1 << 12) - 1:
				cc.DNU = true
			default:
				cc.Value = float64(raw) * 0.0025 * float64(mult)
			}
			corrs = append(corrs, cc)
		}
		c.Corrections[sysID] = corrs
	}
	if masks != nil {
		c.markDNU(masks)
	}
	return c
}

// markDNU mutates masks' per-system DNU bits for every DNU-sentinel
// correction, mirroring ClockFull's inline marking (ClockSub must defer it
// until the submask position of each correction is known).
func (c *ClockSub) markDNU(masks *Masks) {
	for sysID, corrs := range c.Corrections {
		sub := c.SubMask[sysID]
		sm := masks.GetMask(sysID)
		if sm == nil {
			continue
		}
		y := 0
		for j, isSet := range sub {
			if !isSet {
				continue
			}
			if corrs[y].DNU {
				sm.SetDNU(j)
			}
			y++
		}
	}
}

// StoreIDs resolves the 1-based satellite IDs selected by each system's
// submask, for use by the RTCM/IGS encoders (which need the real PRN, not
// the submask-local index).
func (c *ClockSub) StoreIDs(masks *Masks) {
	for sysID, n := range c.SatNumsSub {
		if n <= 0 {
			continue
		}
		sub := c.SubMask[sysID]
		var ids []int
		for j, isSet := range sub {
			if isSet {
				ids = append(ids, masks.GetSatNum(sysID, j))
			}
		}
		c.SatIDs[sysID] = ids
	}
}
