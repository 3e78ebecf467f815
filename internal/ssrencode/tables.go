package ssrencode

import "github.com/nlsfi/hasgo/internal/ssr"

// sysName maps a HAS Sys value to the string key the translation tables
// below use, matching the GNSS system names the HAS SIS ICD spells out.
func sysName(s ssr.Sys) string {
	switch s {
	case ssr.SysGPS:
		return "GPS"
	case ssr.SysGAL:
		return "GAL"
	default:
		return ""
	}
}

// hasCode2PPP maps a HAS signal/tracking-mode code to the PPP-Wizard
// signal&tracking-mode identifier used by both the IGS-SSR and RTCM3-SSR
// bias messages. The IGS encoder's own HAS-to-IGS-code table
// (hasCode2IGS, below) is never actually consulted for encoding in the
// reference this package is ported from — both IGM05/IGM06 and the RTCM
// ssr3/ssrp bias messages use this PPP table exclusively.
var hasCode2PPP = map[string]map[int]int{
	"GPS": {0: 0, 3: 17, 4: 18, 5: 19, 6: 7, 7: 8, 8: 9, 9: 10, 11: 14, 12: 15, 13: 16},
	"GAL": {0: 1, 1: 2, 2: 3, 3: 5, 4: 6, 5: 7, 6: 8, 7: 9, 8: 10, 9: 11, 10: 12, 11: 13, 12: 15, 13: 16, 14: 17},
}

// hasCode2IGS is the HAS-to-IGS-code table as defined by the IGS-SSR state
// space representation format document; kept for completeness but, per the
// note on hasCode2PPP above, not wired into any encoder.
var hasCode2IGS = map[string]map[int][]int{
	"GPS": {0: {0}, 3: {3}, 4: {4}, 5: {3, 4}, 6: {7}, 7: {8}, 8: {7, 8}, 9: {10}, 11: {14}, 12: {15}, 13: {14, 15}},
	"GAL": {0: {1}, 1: {2}, 2: {1, 2}, 3: {5}, 4: {6}, 5: {5, 6}, 6: {8}, 7: {9}, 8: {8, 9}, 12: {15}, 13: {16}, 14: {15, 16}},
}

// cycleLensIGS gives each carrier's cycle length in millimetres, keyed by
// the PPP-mapped signal code (the IGS phase-bias encoder looks up cycle
// length after translating the HAS code to its PPP code).
var cycleLensIGS = map[string]map[int]int{
	"GPS": {0: 190, 1: 190, 2: 190, 3: 190, 4: 190, 5: 244, 6: 244, 7: 244, 8: 244, 10: 244, 11: 244, 14: 255, 15: 255},
	"GAL": {0: 190, 1: 190, 2: 190, 5: 255, 6: 255, 8: 248, 9: 248, 14: 234, 15: 234, 16: 234},
}

// cycleLensRTCM gives the same cycle lengths, but keyed by the raw HAS
// signal code (the RTCM phase-bias encoder looks this up before
// translating to the PPP code).
var cycleLensRTCM = map[string]map[int]int{
	"GPS": {0: 190, 3: 190, 4: 190, 5: 190, 6: 244, 7: 244, 8: 244, 9: 244, 11: 255, 12: 255, 13: 255},
	"GAL": {0: 190, 1: 190, 2: 190, 3: 255, 4: 255, 5: 255, 6: 248, 7: 248, 8: 248, 9: 252, 10: 252, 11: 252, 12: 234, 13: 234, 14: 234},
}

// igsSystemCode is the IGS-SSR sub-type system multiplier (subtype =
// code*20 + messageNumber).
func igsSystemCode(sys ssr.Sys) int {
	switch sys {
	case ssr.SysGPS:
		return 1
	case ssr.SysGAL:
		return 3
	default:
		return 0
	}
}

// rtcmMsgNum returns the RTCM3 message number for a numbered SSR message
// type (1..6) in the given system.
func rtcmMsgNum(sys ssr.Sys, msg int) int {
	base := 0
	switch sys {
	case ssr.SysGPS:
		base = 1056
	case ssr.SysGAL:
		base = 1239
	}
	return base + msg
}

// rtcmPhaseMsgNum returns the RTCM3 phase-bias message number (1265/1267).
func rtcmPhaseMsgNum(sys ssr.Sys) int {
	switch sys {
	case ssr.SysGPS:
		return 1265
	case ssr.SysGAL:
		return 1267
	default:
		return 0
	}
}
