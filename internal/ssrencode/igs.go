package ssrencode

import (
	"github.com/nlsfi/hasgo/internal/bitio"
	"github.com/nlsfi/hasgo/internal/ssr"
)

// IGS builds IGS-SSR (IGM01..IGM06) messages from a decoded HAS SSR value.
type IGS struct {
	// LowerUDI picks the emitted update interval just below the HAS
	// value on a non-exact match, rather than the one above.
	LowerUDI bool
}

func (e IGS) igsHeader(sys ssr.Sys, validityIdx int, msgNum int, receiverTow float64, toh int, multiMessage bool, nSat int) *bitio.Writer {
	w := bitio.NewWriter()
	w.PutU32(4076, 12)
	w.PutU32(1, 3) // IGS-SSR version 1.0
	w.PutU32(uint32(igsSystemCode(sys)*20+msgNum), 8)
	w.PutU32(uint32(towIGS(receiverTow, toh)), 20)
	w.PutU32(uint32(ResolveUDI(validityIdx, e.LowerUDI)), 4)
	w.PutBool(multiMessage)
	w.PutU32(1, 4) // IOD SSR (v1.0 generation)
	w.PutU32(providerID, 16)
	w.PutU32(0, 4) // solution ID
	switch msgNum {
	case 1, 3:
		w.PutBool(false) // global/regional CRS indicator: always global
	case 6:
		w.PutU32(0, 2) // dispersive bias / MW consistency indicators: not in the HAS ICD
	}
	w.PutU32(uint32(nSat), 6)
	return w
}

func writeOrbitBlock(w *bitio.Writer, prn int, orb ssr.SatOrbit, iodBits int) {
	w.PutU32(uint32(prn), 6)
	w.PutU32(uint32(orb.IOD)&((1<<uint(iodBits))-1), iodBits)
	w.PutSigned(int32(round(orb.DeltaRad/0.0001)), 22)
	w.PutSigned(int32(round(orb.DeltaInTrack/0.0004)), 20)
	w.PutSigned(int32(round(orb.DeltaCrossTrack/0.0004)), 20)
	w.PutU32(0, 59) // dot-orbit rates: not produced by HAS
}

func round(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func iodBitsForIGS(sys ssr.Sys) int {
	if sys == ssr.SysGAL {
		return 10
	}
	return 8
}

// IGM01 builds the IGS-SSR orbit correction message.
func (e IGS) IGM01(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	sats, err := resolveOrbits(s, sys)
	if err != nil {
		return nil, err
	}
	if len(sats) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	iodBits := iodBitsForIGS(sys)
	for _, sat := range sats {
		writeOrbitBlock(body, sat.PRN, sat.Orb, iodBits)
	}
	pages := paginate(body.Bits(), 79)
	return e.framePages(sys, s, 1, receiverTow, len(sats), pages)
}

// IGM02 builds the IGS-SSR clock correction message.
func (e IGS) IGM02(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	sats, err := resolveClocks(s, sys)
	if err != nil {
		return nil, err
	}
	if len(sats) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	for _, sat := range sats {
		body.PutU32(uint32(sat.PRN), 6)
		body.PutSigned(int32(round(sat.Corr.Value/0.0001)), 22)
		body.PutU32(0, 48) // C1, C2: not produced by HAS
	}
	pages := paginate(body.Bits(), 78)
	return e.framePages(sys, s, 2, receiverTow, len(sats), pages)
}

// IGM03 builds the IGS-SSR combined orbit+clock correction message.
func (e IGS) IGM03(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	orbs, clocks, err := combinedOrbitClock(s, sys)
	if err != nil {
		return nil, err
	}
	if len(orbs) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	iodBits := iodBitsForIGS(sys)
	for _, sat := range orbs {
		writeOrbitBlock(body, sat.PRN, sat.Orb, iodBits)
		body.PutSigned(int32(round(clocks[sat.PRN].Value/0.0001)), 22)
		body.PutU32(0, 48)
	}
	pages := paginate(body.Bits(), 79)
	return e.framePages(sys, s, 3, receiverTow, len(orbs), pages)
}

// IGM04 builds the IGS-SSR "alternative high-rate clock" message. HAS
// carries only one clock correction stream, so IGM04 carries the same C0
// values as IGM02, under a different message number and without IGM02's
// C1/C2 fields, for receivers that expect the high-rate variant.
func (e IGS) IGM04(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	sats, err := resolveClocks(s, sys)
	if err != nil {
		return nil, err
	}
	if len(sats) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	for _, sat := range sats {
		body.PutU32(uint32(sat.PRN), 6)
		body.PutSigned(int32(round(sat.Corr.Value/0.0001)), 22)
	}
	pages := paginate(body.Bits(), 78)
	return e.framePages(sys, s, 4, receiverTow, len(sats), pages)
}

// IGM05 builds the IGS-SSR code bias message.
func (e IGS) IGM05(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	if s.CodeBias == nil {
		return nil, ErrCorrectionNotAvailable
	}
	set := s.CodeBias.BySystem[int(sys)]
	if set == nil {
		return nil, ErrCorrectionNotAvailable
	}
	name := sysName(sys)
	mask := s.Masks.GetMask(int(sys))
	body := bitio.NewWriter()
	nSat := 0
	for satIdx, prn := range set.Order {
		sat := set.BySat[prn]
		if mask != nil && mask.GetDNU(satIdx) {
			continue
		}
		type entry struct {
			code int
			bias int32
		}
		var entries []entry
		for _, sig := range sortedSigKeys(sat.Values) {
			b := sat.Values[sig]
			if b.NA {
				continue
			}
			codeID, ok := hasCode2PPP[name][sig]
			if !ok {
				continue
			}
			entries = append(entries, entry{code: codeID, bias: translateCodeBias(b.Value)})
		}
		if len(entries) == 0 {
			continue
		}
		nSat++
		body.PutU32(uint32(prn), 6)
		body.PutU32(uint32(len(entries)), 5)
		for _, en := range entries {
			body.PutU32(uint32(en.code), 5)
			body.PutSigned(en.bias, 14)
		}
	}
	if nSat == 0 {
		return nil, nil
	}
	pages := paginate(body.Bits(), 78)
	return e.framePages(sys, s, 5, receiverTow, nSat, pages)
}

// IGM06 builds the IGS-SSR phase bias message.
func (e IGS) IGM06(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	if s.PhaseBias == nil {
		return nil, ErrCorrectionNotAvailable
	}
	set := s.PhaseBias.BySystem[int(sys)]
	if set == nil {
		return nil, ErrCorrectionNotAvailable
	}
	name := sysName(sys)
	mask := s.Masks.GetMask(int(sys))
	body := bitio.NewWriter()
	nSat := 0
	for satIdx, prn := range set.Order {
		sat := set.BySat[prn]
		if mask != nil && mask.GetDNU(satIdx) {
			continue
		}
		type entry struct {
			code       int
			discont    int
			biasCycles float64
		}
		var entries []entry
		for _, sig := range sortedSigKeys(sat.Values) {
			b := sat.Values[sig]
			if b.NA {
				continue
			}
			codeID, ok := hasCode2PPP[name][sig]
			if !ok {
				continue
			}
			entries = append(entries, entry{code: codeID, discont: b.Discontinuity, biasCycles: b.Value})
		}
		if len(entries) == 0 {
			continue
		}
		nSat++
		body.PutU32(uint32(prn), 6)
		body.PutU32(uint32(len(entries)), 5)
		body.PutU32(0, 9+8) // yaw angle, yaw rate: not produced by HAS
		for _, en := range entries {
			body.PutU32(uint32(en.code), 5)
			body.PutU32(0, 3) // signal integer / wide-lane integer indicators: not in the HAS ICD
			body.PutU32(uint32(en.discont), 4)
			cycleLen := cycleLensIGS[name][en.code]
			body.PutSigned(translatePhaseBias(en.biasCycles, cycleLen), 20)
		}
	}
	if nSat == 0 {
		return nil, nil
	}
	pages := paginate(body.Bits(), 80)
	return e.framePages(sys, s, 6, receiverTow, nSat, pages)
}

// framePages assembles one header per page (marking every page but the
// last as "more messages follow") and frames each with CRC-24Q.
func (e IGS) framePages(sys ssr.Sys, s *ssr.SSR, msgNum int, receiverTow float64, nSat int, pages [][]bool) ([][]byte, error) {
	validity := e.blockValidity(s, msgNum)
	out := make([][]byte, len(pages))
	for i, page := range pages {
		multi := i < len(pages)-1
		hdr := e.igsHeader(sys, validity, msgNum, receiverTow, s.Header.Toh, multi, nSat)
		all := append(hdr.Bits(), page...)
		out[i] = frame(all)
	}
	return out, nil
}

// blockValidity resolves the HAS validity index(es) backing one IGS
// message type, to compute its emitted UDI.
func (e IGS) blockValidity(s *ssr.SSR, msgNum int) int {
	switch msgNum {
	case 1:
		if s.Orbits != nil {
			return s.Orbits.ValidityIdx
		}
	case 2, 4:
		return e.clockValidity(s)
	case 3:
		return MinValidityIdx(orbitValidity(s), e.clockValidity(s))
	case 5:
		if s.CodeBias != nil {
			return s.CodeBias.ValidityIdx
		}
	case 6:
		if s.PhaseBias != nil {
			return s.PhaseBias.ValidityIdx
		}
	}
	return 15
}

func orbitValidity(s *ssr.SSR) int {
	if s.Orbits != nil {
		return s.Orbits.ValidityIdx
	}
	return -1
}

func (e IGS) clockValidity(s *ssr.SSR) int {
	if s.ClockFull != nil {
		return s.ClockFull.ValidityIdx
	}
	if s.ClockSub != nil {
		return s.ClockSub.ValidityIdx
	}
	return -1
}
