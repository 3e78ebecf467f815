// Package ssrencode re-encodes a decoded HAS SSR message (internal/ssr) into
// IGS-SSR and RTCM3-SSR correction streams: CRC-24Q framed, paginated to the
// 8192-bit RTCM message budget, and carrying the HAS update-interval and
// time-of-week translated into each target format's conventions.
package ssrencode

import (
	"errors"
	"math"
	"sort"

	"github.com/nlsfi/hasgo/internal/bitio"
	"github.com/nlsfi/hasgo/internal/crc"
	"github.com/nlsfi/hasgo/internal/ssr"
)

// providerID is the placeholder IGS/RTCM provider ID used for all messages
// emitted from a HAS stream (there is no dedicated provider ID reserved for
// Galileo HAS re-broadcast).
const providerID = 270

// ErrCorrectionNotAvailable is returned when the requested message type
// needs a sub-block the decoded SSR value does not carry (e.g. an orbit
// message with no Orbits).
var ErrCorrectionNotAvailable = errors.New("ssrencode: requested correction not available in this message")

// ErrNotProduced is returned for message types HAS structurally cannot
// supply (URA, ionospheric VTEC): the HAS SIS ICD carries no such
// corrections, so no amount of retrying will produce them.
var ErrNotProduced = errors.New("ssrencode: HAS does not carry this correction type")

// emittedUDI is the standard IGS/RTCM-SSR update-interval table: index i is
// encoded on the wire as the 4-bit UDI field, and represents emittedUDI[i]
// seconds.
var emittedUDI = [16]int{1, 2, 5, 10, 15, 30, 60, 120, 240, 300, 600, 900, 1800, 3600, 7200, 10800}

// hasUDISeconds translates a HAS header validityIndex (0..15) into seconds;
// 15 is the Galileo HAS ICD's "static, no expiry" sentinel.
var hasUDISeconds = [16]int{5, 10, 15, 20, 30, 60, 90, 120, 180, 240, 300, 600, 900, 1800, 3600, -1}

// ResolveUDI maps a HAS validity index to the emitted UDI table index.
// lowerUDI picks the interval just below the HAS value when there is no
// exact match (the conservative choice: never advertise a longer update
// interval than HAS actually guarantees); otherwise it picks the interval
// just above.
func ResolveUDI(hasValidityIdx int, lowerUDI bool) int {
	if hasValidityIdx < 0 || hasValidityIdx >= len(hasUDISeconds) {
		hasValidityIdx = len(hasUDISeconds) - 1
	}
	seconds := hasUDISeconds[hasValidityIdx]
	if seconds < 0 {
		// HAS's "static, no expiry" sentinel: advertise the longest UDI
		// the emitted table has, never the shortest.
		return len(emittedUDI) - 1
	}
	for i, v := range emittedUDI {
		if v == seconds {
			return i
		}
	}
	for i, v := range emittedUDI {
		if v > seconds {
			if lowerUDI && i > 0 {
				return i - 1
			}
			return i
		}
	}
	return len(emittedUDI) - 1
}

// MinValidityIdx returns the smallest of the validity indices of the
// sub-blocks that contribute to one emitted message (a combined
// orbit+clock message is only as fresh as its stalest input), ignoring
// negative (absent) entries.
func MinValidityIdx(idxs ...int) int {
	min := 15
	for _, v := range idxs {
		if v >= 0 && v < min {
			min = v
		}
	}
	return min
}

// towIGS computes the IGS-SSR epoch time field: it re-derives the hour from
// the receiver's own time of week, correcting for the case where the HAS
// toh is already in the next hour (the receiver clock reads near the top of
// an hour while toh reports a high within-hour value) by rolling the hour
// back one.
func towIGS(receiverTow float64, toh int) int {
	towH := int(receiverTow) / 3600
	tohRecMinutes := math.Mod(receiverTow, 3600) / 60
	if tohRecMinutes <= 10 && float64(toh)/60 >= 50 {
		towH--
	}
	return towH*3600 + toh
}

// towRTCM computes the RTCM3-SSR epoch time field: the hour is rolled back
// whenever naively combining the receiver's current hour with toh would
// land in the future.
func towRTCM(receiverTow float64, toh int) int {
	towH := int(receiverTow) / 3600
	if towH*3600+toh > int(receiverTow) {
		towH--
	}
	return towH*3600 + toh
}

// frame wraps a bit sequence (header + body, arbitrary length) in the
// standard RTCM3 transport frame: 0xD3 preamble, 6 reserved bits, a 10-bit
// byte-length field, the zero-padded message bytes, and a CRC-24Q parity
// word over the whole frame.
func frame(bits []bool) []byte {
	data := bitio.BitsToBytes(bits)
	mLen := len(data)
	head := bitio.NewWriter()
	head.PutU32(0xD3, 8)
	head.PutU32(0, 6)
	head.PutU32(uint32(mLen), 10)
	full := append(head.Bytes(), data...)
	c := crc.CRC24Q(full, len(full))
	return append(full, byte(c>>16), byte(c>>8), byte(c))
}

// paginate splits body into chunks that, once combined with a headerBits-
// long header and the 24-bit CRC trailer, fit the 8192-bit RTCM page
// budget. A body within budget already is returned as a single page.
func paginate(body []bool, headerBits int) [][]bool {
	budget := 8192 - headerBits - 24
	if budget <= 0 || len(body) <= budget {
		return [][]bool{body}
	}
	var pages [][]bool
	for i := 0; i < len(body); i += budget {
		end := i + budget
		if end > len(body) {
			end = len(body)
		}
		pages = append(pages, body[i:end])
	}
	return pages
}

// translateCodeBias converts a HAS code bias (metres, per internal/ssr's
// 0.02 m scale) into the 14-bit 0.01 m scale IGS and RTCM both use.
func translateCodeBias(hasBias float64) int32 {
	return int32(math.Round(hasBias / 0.01))
}

// translatePhaseBias converts a HAS phase bias (cycles) into the 20-bit
// 0.1 mm scale IGS and RTCM both use, given the carrier's cycle length in
// millimetres.
func translatePhaseBias(hasBias float64, cycleLenMM int) int32 {
	return int32(math.Round(hasBias * float64(cycleLenMM) / 0.1))
}

// sortedSigKeys returns values' signal IDs in ascending order. SatBiases.Values
// is keyed by a map for sparse lookup, but the wire encoding must walk
// signals in a fixed order, so callers range over this instead of the map
// directly.
func sortedSigKeys(values map[int]ssr.Bias) []int {
	keys := make([]int, 0, len(values))
	for sig := range values {
		keys = append(keys, sig)
	}
	sort.Ints(keys)
	return keys
}

// satOrbit pairs a resolved 1-based PRN with its orbit correction; only
// satellites with no N/A fields and not marked do-not-use are included.
type satOrbit struct {
	PRN int
	Orb ssr.SatOrbit
}

func resolveOrbits(s *ssr.SSR, sys ssr.Sys) ([]satOrbit, error) {
	if s.Orbits == nil || s.Masks == nil {
		return nil, ErrCorrectionNotAvailable
	}
	mask := s.Masks.GetMask(int(sys))
	if mask == nil {
		return nil, ErrCorrectionNotAvailable
	}
	orbs := s.Orbits.BySystem[sys]
	out := make([]satOrbit, 0, len(orbs))
	for i, o := range orbs {
		if o.NACount != 0 || mask.GetDNU(i) {
			continue
		}
		out = append(out, satOrbit{PRN: mask.SatID(i), Orb: o})
	}
	return out, nil
}

// satClock pairs a resolved PRN with its clock correction, drawn from
// whichever of ClockFull/ClockSub the message carries.
type satClock struct {
	PRN  int
	Corr ssr.ClockCorrection
}

func resolveClocks(s *ssr.SSR, sys ssr.Sys) ([]satClock, error) {
	if s.Masks == nil {
		return nil, ErrCorrectionNotAvailable
	}
	mask := s.Masks.GetMask(int(sys))
	if mask == nil {
		return nil, ErrCorrectionNotAvailable
	}
	if s.ClockFull != nil {
		corrs := s.ClockFull.BySystem[sys]
		out := make([]satClock, 0, len(corrs))
		for i, c := range corrs {
			if c.NA || c.DNU {
				continue
			}
			out = append(out, satClock{PRN: mask.SatID(i), Corr: c})
		}
		return out, nil
	}
	if s.ClockSub != nil {
		corrs := s.ClockSub.Corrections[int(sys)]
		ids := s.ClockSub.SatIDs[int(sys)]
		out := make([]satClock, 0, len(corrs))
		for i, c := range corrs {
			if c.NA || c.DNU {
				continue
			}
			prn := 0
			if i < len(ids) {
				prn = ids[i]
			}
			out = append(out, satClock{PRN: prn, Corr: c})
		}
		return out, nil
	}
	return nil, ErrCorrectionNotAvailable
}

// combinedOrbitClock intersects resolveOrbits and resolveClocks by PRN, for
// the combined orbit+clock message types. Unlike the HAS reference decoder
// (which walks clockSub's subset-indexed list against the full orbit list
// using the same loop index, silently misaligning the two when a clockSub
// block is in effect), this always matches satellites by PRN.
func combinedOrbitClock(s *ssr.SSR, sys ssr.Sys) ([]satOrbit, map[int]ssr.ClockCorrection, error) {
	orbs, err := resolveOrbits(s, sys)
	if err != nil {
		return nil, nil, err
	}
	clocks, err := resolveClocks(s, sys)
	if err != nil {
		return nil, nil, err
	}
	byPRN := make(map[int]ssr.ClockCorrection, len(clocks))
	for _, c := range clocks {
		byPRN[c.PRN] = c.Corr
	}
	out := make([]satOrbit, 0, len(orbs))
	for _, o := range orbs {
		if _, ok := byPRN[o.PRN]; ok {
			out = append(out, o)
		}
	}
	return out, byPRN, nil
}
