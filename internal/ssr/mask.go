package ssr

import (
	"math/bits"

	"github.com/nlsfi/hasgo/internal/bitio"
)

// SystemMask carries one GNSS system's satellite/signal/cell masks plus the
// do-not-use mask computed from later clock blocks (it is never
// transmitted).
type SystemMask struct {
	SysID        int // 0=GPS, 2=GAL (raw 4-bit field)
	SatMask      uint64
	SigMask      uint32
	CellMaskFlag bool
	CellMask     []bool // len = NSat*NSig, only populated if CellMaskFlag
	NavMsg       int
	DNUMask      uint64 // bit i set => i+1-th satellite (1-based SatID) is do-not-use
	NSat         int
	NSig         int
}

func readSystemMask(r *bitio.Reader) SystemMask {
	m := SystemMask{}
	m.SysID = r.Int(4)
	m.SatMask = uint64(r.U32(32))<<8 | uint64(r.U32(8))
	m.SigMask = r.U32(16)
	m.CellMaskFlag = r.Bool()
	m.NSat = bits.OnesCount64(m.SatMask)
	m.NSig = bits.OnesCount32(m.SigMask)
	if m.CellMaskFlag {
		n := m.NSat * m.NSig
		m.CellMask = make([]bool, n)
		for i := 0; i < n; i++ {
			m.CellMask[i] = r.Bool()
		}
	}
	m.NavMsg = r.Int(3)
	return m
}

// SatID returns the 1-based satellite ID of the n-th (0-based) set bit in
// the satellite mask, reading the 40-bit mask MSB first (bit 0 = PRN 1).
func (m *SystemMask) SatID(n int) int {
	count := 0
	for i := 0; i < 40; i++ {
		if m.SatMask&(uint64(1)<<uint(39-i)) != 0 {
			if count == n {
				return i + 1
			}
			count++
		}
	}
	return -1
}

// SigID returns the 0-based signal index of the n-th (0-based) set bit in
// the signal mask.
func (m *SystemMask) SigID(n int) int {
	count := 0
	for i := 0; i < 16; i++ {
		if m.SigMask&(uint32(1)<<uint(15-i)) != 0 {
			if count == n {
				return i
			}
			count++
		}
	}
	return -1
}

// SetDNU marks the n-th (0-based) masked satellite as do-not-use.
func (m *SystemMask) SetDNU(n int) {
	satID := m.SatID(n)
	if satID <= 0 {
		return
	}
	m.DNUMask |= uint64(1) << uint(satID-1)
}

// GetDNU reports whether the n-th (0-based) masked satellite is marked
// do-not-use.
func (m *SystemMask) GetDNU(n int) bool {
	satID := m.SatID(n)
	if satID <= 0 {
		return false
	}
	return m.DNUMask&(uint64(1)<<uint(satID-1)) != 0
}

// Masks is the full mask section of one HAS message: one SystemMask per
// advertised GNSS system.
type Masks struct {
	Systems []SystemMask
}

func readMasks(r *bitio.Reader) *Masks {
	nSys := r.Int(4)
	masks := &Masks{Systems: make([]SystemMask, 0, nSys)}
	for i := 0; i < nSys; i++ {
		masks.Systems = append(masks.Systems, readSystemMask(r))
	}
	r.U32(6) // reserved
	return masks
}

// SatNums returns the satellite count for each system, indexed by Sys value
// (0=GPS, 2=GAL); unused indices are zero.
func (m *Masks) SatNums() []int {
	out := make([]int, MaxSysIndex)
	for i := range m.Systems {
		s := &m.Systems[i]
		if s.SysID < len(out) {
			out[s.SysID] = s.NSat
		}
	}
	return out
}

// GetMask returns the SystemMask for sysID, or nil if not present.
func (m *Masks) GetMask(sysID int) *SystemMask {
	for i := range m.Systems {
		if m.Systems[i].SysID == sysID {
			return &m.Systems[i]
		}
	}
	return nil
}

// GetSatNum returns the 1-based satellite ID of the n-th masked satellite
// of the given system.
func (m *Masks) GetSatNum(sysID, n int) int {
	sm := m.GetMask(sysID)
	if sm == nil {
		return -1
	}
	return sm.SatID(n)
}
