package ssr

import "errors"

// ErrMaskUnavailable is returned when a message's header advertises neither
// a fresh mask nor a usable one from cross-message memory: the message must
// be discarded wholesale, with no SSR output produced for it.
var ErrMaskUnavailable = errors.New("ssr: mask unavailable for advertised maskID")

// ErrIODUnavailable is returned when a message carries no orbit block of its
// own and the IOD set named by its header has never been advertised with
// one: clock and bias corrections are meaningless without a known orbit
// baseline, so the message must be discarded wholesale.
var ErrIODUnavailable = errors.New("ssr: no orbit block ever seen for advertised IODsetID")

// Sys identifies the two GNSS constellations HAS corrects. Values match the
// HAS stream's own system keys (distinct from the IGS sub-type numbering,
// see internal/ssrencode).
type Sys int

const (
	SysGPS Sys = 0
	SysGAL Sys = 2
)

// MaxSysIndex bounds the per-system arrays indexed directly by Sys value.
const MaxSysIndex = int(SysGAL) + 1
