package ssr

import "github.com/nlsfi/hasgo/internal/bitio"

const naSentinel11 = -(1 << 10) // -20.48 for code scale, -10.24 for phase scale

// Bias is one satellite/signal bias value.
type Bias struct {
	Value         float64
	NA            bool
	Discontinuity int // phase bias only
}

// SatBiases holds the per-signal biases of one satellite.
type SatBiases struct {
	SatID  int
	Values map[int]Bias // keyed by 0-based signal ID
}

// SystemBiasSet holds one GNSS system's code or phase biases.
type SystemBiasSet struct {
	SysID int
	Order []int // satellite IDs in mask order
	BySat map[int]*SatBiases
}

// Biases is the code- or phase-bias section of one HAS message.
type Biases struct {
	Mode        string // "code" or "phase"
	ValidityIdx int
	Order       []int // system IDs in the order the masks advertised them
	BySystem    map[int]*SystemBiasSet
}

func readBiases(r *bitio.Reader, masks *Masks, mode string) *Biases {
	b := &Biases{Mode: mode, BySystem: make(map[int]*SystemBiasSet)}
	b.ValidityIdx = r.Int(4)
	for i := range masks.Systems {
		sm := &masks.Systems[i]
		b.Order = append(b.Order, sm.SysID)
		b.BySystem[sm.SysID] = readSystemBiasSet(r, sm, mode)
	}
	return b
}

func readSystemBiasSet(r *bitio.Reader, mask *SystemMask, mode string) *SystemBiasSet {
	satnum, signum := mask.NSat, mask.NSig
	var cellMask []bool
	if mask.CellMaskFlag {
		cellMask = mask.CellMask
	} else {
		cellMask = make([]bool, satnum*signum)
		for i := range cellMask {
			cellMask[i] = true
		}
	}

	set := &SystemBiasSet{SysID: mask.SysID, BySat: make(map[int]*SatBiases)}
	for sat := 0; sat < satnum; sat++ {
		segment := cellMask[sat*signum : (sat+1)*signum]
		count := 0
		for _, v := range segment {
			if v {
				count++
			}
		}

		satID := mask.SatID(sat)
		set.Order = append(set.Order, satID)
		sb := &SatBiases{SatID: satID, Values: make(map[int]Bias)}
		for sig := 0; sig < count; sig++ {
			corrected := findNthTrue(segment, sig)
			sigID := mask.SigID(corrected)
			if mode == "code" {
				raw := r.Signed(11)
				bias := Bias{}
				if raw == naSentinel11 {
					bias.NA = true
				} else {
					bias.Value = float64(raw) * 0.02
				}
				sb.Values[sigID] = bias
			} else {
				raw := r.Signed(11)
				bias := Bias{}
				if raw == naSentinel11 {
					bias.NA = true
				} else {
					bias.Value = float64(raw) * 0.01
				}
				bias.Discontinuity = r.Int(2)
				sb.Values[sigID] = bias
			}
		}
		set.BySat[satID] = sb
	}
	return set
}

// findNthTrue returns the index of the n-th (0-based) true value in mask.
func findNthTrue(mask []bool, n int) int {
	count := 0
	for i, v := range mask {
		if v {
			if count == n {
				return i
			}
			count++
		}
	}
	return -1
}
