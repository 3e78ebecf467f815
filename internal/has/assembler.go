// Package has implements the HAS page-assembly and erasure-decoding engine:
// per-mID page accumulation with duplicate/timeout discipline, and GF(256)
// matrix inversion over the received pages' coded bytes.
package has

import (
	"github.com/sirupsen/logrus"
)

// Decoded is one fully reconstructed HAS message, ready for the SSR parser.
type Decoded struct {
	MID  int
	Bits []byte // mSize*424 bits packed big-endian
	Tow  float64
}

// Assembler holds 32 concurrent per-mID buckets plus the last-decoded-mID
// guard that suppresses re-emitting the same message within one arrival
// burst. It is not safe for concurrent use -- the pipeline is single
// threaded by design (see spec §5).
type Assembler struct {
	buckets        [32]bucket
	lastDecodedMID int
	log            logrus.FieldLogger
}

// NewAssembler constructs an assembler with all buckets empty.
func NewAssembler(log logrus.FieldLogger) *Assembler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assembler{lastDecodedMID: -1, log: log}
}

// Feed admits one raw C/NAV payload (raw bits, sync word included) observed
// at receiver time-of-week tow. It returns a Decoded message when the
// bucket completes, or ok=false if the page was dropped (invalid, duplicate
// of the just-decoded message, or simply not yet complete).
func (a *Assembler) Feed(raw []byte, tow float64) (Decoded, bool) {
	hdr, payload, ok := DecodePage(raw)
	if !ok {
		return Decoded{}, false
	}
	if hdr.MID == a.lastDecodedMID {
		return Decoded{}, false
	}

	b := &a.buckets[hdr.MID]
	switch {
	case !b.active:
		b.start(hdr, tow)
	case tow-b.t0 > TimeLimit:
		a.log.WithField("mID", hdr.MID).WithError(ErrPageTimeout).Warn("has: reinitializing bucket")
		b.reset()
		b.start(hdr, tow)
	case b.mType != hdr.MType || b.mSize != hdr.MSize:
		a.log.WithField("mID", hdr.MID).Warn("has: message-size/type collision, reinitializing bucket")
		b.reset()
		b.start(hdr, tow)
	}

	complete, err := b.addPage(hdr, payload)
	if err != nil {
		a.log.WithField("mID", hdr.MID).WithError(err).Warn("has: discarding bucket after decode error")
		b.reset()
		return Decoded{}, false
	}
	if !complete {
		return Decoded{}, false
	}

	decoded, err := b.decode()
	t0 := b.t0
	if err != nil {
		a.log.WithField("mID", hdr.MID).WithError(err).Warn("has: discarding bucket after decode error")
		b.reset()
		return Decoded{}, false
	}

	a.lastDecodedMID = hdr.MID
	b.reset()
	return Decoded{MID: hdr.MID, Bits: decoded, Tow: t0}, true
}
