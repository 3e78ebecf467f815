package ssr

import "github.com/nlsfi/hasgo/internal/bitio"

// SatOrbit is one satellite's orbit correction.
type SatOrbit struct {
	IOD             int
	DeltaRad        float64
	DeltaRadNA      bool
	DeltaInTrack    float64
	DeltaInTrackNA  bool
	DeltaCrossTrack float64
	DeltaCrossNA    bool
	NACount         int
}

const (
	iodBitsGPS = 8
	iodBitsGAL = 10
)

func iodBits(sysID int) int {
	if Sys(sysID) == SysGAL {
		return iodBitsGAL
	}
	return iodBitsGPS
}

// naSentinel13 is the 13-bit value with only the sign bit set (the minimum
// two's complement value) that marks a field as not available.
const naSentinel13 = -(1 << 12)

func readSatOrbit(r *bitio.Reader, sysID int) SatOrbit {
	o := SatOrbit{}
	o.IOD = r.Int(iodBits(sysID))

	dRad := r.Signed(13)
	if dRad == naSentinel13 {
		o.DeltaRadNA = true
		o.NACount++
	} else {
		o.DeltaRad = float64(dRad) * 0.0025
	}

	dIn := r.Signed(12)
	if dIn == -(1 << 11) {
		o.DeltaInTrackNA = true
		o.NACount++
	} else {
		o.DeltaInTrack = float64(dIn) * 0.008
	}

	dCross := r.Signed(12)
	if dCross == -(1 << 11) {
		o.DeltaCrossNA = true
		o.NACount++
	} else {
		o.DeltaCrossTrack = float64(dCross) * 0.008
	}
	return o
}

// Orbits is the orbit-correction section of one HAS message.
type Orbits struct {
	ValidityIdx int
	SatNum      []int        // per system, aligned to Masks.SatNums()
	BySystem    [][]SatOrbit // per system, one entry per masked satellite
	IODs        [][]int      // per system, IOD of each masked satellite
}

func readOrbits(r *bitio.Reader, satNum []int) *Orbits {
	o := &Orbits{SatNum: satNum}
	o.ValidityIdx = r.Int(4)
	o.BySystem = make([][]SatOrbit, len(satNum))
	o.IODs = make([][]int, len(satNum))
	for sys := 0; sys < len(satNum); sys++ {
		for sat := 0; sat < satNum[sys]; sat++ {
			so := readSatOrbit(r, sys)
			o.BySystem[sys] = append(o.BySystem[sys], so)
			o.IODs[sys] = append(o.IODs[sys], so.IOD)
		}
	}
	return o
}
