package ssrencode

import (
	"github.com/nlsfi/hasgo/internal/bitio"
	"github.com/nlsfi/hasgo/internal/ssr"
)

// RTCM builds RTCM3-SSR (GPS 1057..1062, Galileo 1240..1245, phase bias
// 1265/1267) messages from a decoded HAS SSR value.
type RTCM struct {
	LowerUDI bool
}

func (e RTCM) rtcmHeader(sys ssr.Sys, validityIdx int, msgNum int, receiverTow float64, toh int, sync bool, nSat int, refDatumField bool) *bitio.Writer {
	w := bitio.NewWriter()
	w.PutU32(uint32(rtcmMsgNum(sys, msgNum)), 12)
	w.PutU32(uint32(towRTCM(receiverTow, toh)), 20)
	w.PutU32(uint32(ResolveUDI(validityIdx, e.LowerUDI)), 4)
	w.PutBool(sync)
	if refDatumField {
		w.PutBool(false) // ITRF: Galileo's standard reference datum
	}
	w.PutU32(1, 4) // IOD SSR (v1.0 generation)
	w.PutU32(providerID, 16)
	w.PutU32(1, 4) // solution ID: one HAS service, ID 1
	w.PutU32(uint32(nSat), 6)
	return w
}

// writeOrbitBlockRTCM mirrors writeOrbitBlock but negates the orbit deltas:
// RTCM3-SSR and IGS-SSR use opposite sign conventions for radial/along/
// cross-track corrections.
func writeOrbitBlockRTCM(w *bitio.Writer, prn int, orb ssr.SatOrbit, iodBits int) {
	w.PutU32(uint32(prn), 6)
	w.PutU32(uint32(orb.IOD)&((1<<uint(iodBits))-1), iodBits)
	w.PutSigned(-int32(round(orb.DeltaRad/0.0001)), 22)
	w.PutSigned(-int32(round(orb.DeltaInTrack/0.0004)), 20)
	w.PutSigned(-int32(round(orb.DeltaCrossTrack/0.0004)), 20)
	w.PutU32(0, 59) // dot-orbit rates: not produced by HAS
}

func iodBitsForRTCM(sys ssr.Sys) int {
	if sys == ssr.SysGAL {
		return 10
	}
	return 8
}

// SSR1 builds the RTCM3 orbit correction message (1057/1240).
func (e RTCM) SSR1(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	sats, err := resolveOrbits(s, sys)
	if err != nil {
		return nil, err
	}
	if len(sats) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	iodBits := iodBitsForRTCM(sys)
	for _, sat := range sats {
		writeOrbitBlockRTCM(body, sat.PRN, sat.Orb, iodBits)
	}
	pages := paginate(body.Bits(), 68)
	return e.framePages(sys, s, 1, receiverTow, len(sats), pages, true)
}

// SSR2 builds the RTCM3 clock correction message.
func (e RTCM) SSR2(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
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
		body.PutU32(0, 48)
	}
	pages := paginate(body.Bits(), 67)
	return e.framePages(sys, s, 2, receiverTow, len(sats), pages, false)
}

// SSR3 builds the RTCM3 code bias message.
func (e RTCM) SSR3(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
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
	pages := paginate(body.Bits(), 67)
	return e.framePages(sys, s, 3, receiverTow, nSat, pages, false)
}

// SSR4 builds the RTCM3 combined orbit+clock correction message.
func (e RTCM) SSR4(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	orbs, clocks, err := combinedOrbitClock(s, sys)
	if err != nil {
		return nil, err
	}
	if len(orbs) == 0 {
		return nil, nil
	}
	body := bitio.NewWriter()
	iodBits := iodBitsForRTCM(sys)
	for _, sat := range orbs {
		writeOrbitBlockRTCM(body, sat.PRN, sat.Orb, iodBits)
		body.PutSigned(int32(round(clocks[sat.PRN].Value/0.0001)), 22)
		body.PutU32(0, 48)
	}
	pages := paginate(body.Bits(), 68)
	return e.framePages(sys, s, 4, receiverTow, len(orbs), pages, true)
}

// SSR5 (URA) is never produced: the HAS SIS ICD carries no URA field.
func (e RTCM) SSR5(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
	return nil, ErrNotProduced
}

// SSR6 builds the RTCM3 alternative high-rate clock correction message.
func (e RTCM) SSR6(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
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
	pages := paginate(body.Bits(), 67)
	return e.framePages(sys, s, 6, receiverTow, len(sats), pages, false)
}

// SSRPhase builds the RTCM3 phase bias message (1265/1267).
func (e RTCM) SSRPhase(s *ssr.SSR, sys ssr.Sys, receiverTow float64) ([][]byte, error) {
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
			cycleLenMM int
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
			// The RTCM phase-bias cycle-length lookup uses the raw
			// HAS signal code, unlike the IGS encoder which looks it
			// up after translating to the PPP code.
			entries = append(entries, entry{
				code:       codeID,
				discont:    b.Discontinuity,
				biasCycles: b.Value,
				cycleLenMM: cycleLensRTCM[name][sig],
			})
		}
		if len(entries) == 0 {
			continue
		}
		nSat++
		body.PutU32(uint32(prn), 6)
		body.PutU32(uint32(len(entries)), 5)
		body.PutU32(0, 9+8)
		for _, en := range entries {
			body.PutU32(uint32(en.code), 5)
			body.PutU32(0, 3)
			body.PutU32(uint32(en.discont), 4)
			body.PutSigned(translatePhaseBias(en.biasCycles, en.cycleLenMM), 20)
		}
	}
	if nSat == 0 {
		return nil, nil
	}
	pages := paginate(body.Bits(), 69)
	return e.framePages(sys, s, 0x70, receiverTow, nSat, pages, false)
}

// framePages assembles one header per page and CRC-24Q frames each; msgNum
// 0x70 is the internal sentinel for the phase-bias message (its real RTCM
// number is system dependent, resolved via rtcmPhaseMsgNum).
func (e RTCM) framePages(sys ssr.Sys, s *ssr.SSR, msgNum int, receiverTow float64, nSat int, pages [][]bool, refDatumField bool) ([][]byte, error) {
	validity := e.blockValidity(s, msgNum)
	out := make([][]byte, len(pages))
	for i, page := range pages {
		sync := i < len(pages)-1
		var hdr *bitio.Writer
		if msgNum == 0x70 {
			hdr = e.phaseHeader(sys, validity, receiverTow, s.Header.Toh, sync, nSat)
		} else {
			hdr = e.rtcmHeader(sys, validity, msgNum, receiverTow, s.Header.Toh, sync, nSat, refDatumField)
		}
		all := append(hdr.Bits(), page...)
		out[i] = frame(all)
	}
	return out, nil
}

func (e RTCM) phaseHeader(sys ssr.Sys, validityIdx int, receiverTow float64, toh int, sync bool, nSat int) *bitio.Writer {
	w := bitio.NewWriter()
	w.PutU32(uint32(rtcmPhaseMsgNum(sys)), 12)
	w.PutU32(uint32(towRTCM(receiverTow, toh)), 20)
	w.PutU32(uint32(ResolveUDI(validityIdx, e.LowerUDI)), 4)
	w.PutBool(sync)
	w.PutU32(1, 4)
	w.PutU32(providerID, 16)
	w.PutU32(1, 4)
	w.PutU32(uint32(nSat), 6)
	w.PutBool(false) // dispersive bias consistency indicator
	w.PutBool(false) // MW consistency indicator
	return w
}

func (e RTCM) blockValidity(s *ssr.SSR, msgNum int) int {
	switch msgNum {
	case 1:
		if s.Orbits != nil {
			return s.Orbits.ValidityIdx
		}
	case 2, 6:
		return e.clockValidity(s)
	case 3:
		if s.CodeBias != nil {
			return s.CodeBias.ValidityIdx
		}
	case 4:
		return MinValidityIdx(orbitValidity(s), e.clockValidity(s))
	case 0x70:
		if s.PhaseBias != nil {
			return s.PhaseBias.ValidityIdx
		}
	}
	return 15
}

func (e RTCM) clockValidity(s *ssr.SSR) int {
	if s.ClockFull != nil {
		return s.ClockFull.ValidityIdx
	}
	if s.ClockSub != nil {
		return s.ClockSub.ValidityIdx
	}
	return -1
}
