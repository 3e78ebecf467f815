// Package binex deframes a BINEX (Binary Exchange Format) stream, extracting
// Galileo HAS pages carried in GNSS navigation-data subrecords (subrecord
// type 0x44, source 20 = Galileo C/NAV).
package binex

import (
	"errors"
	"io"
)

// indexAnyByte returns the index of the first byte in buf that appears in
// set, or -1.
func indexAnyByte(buf, set []byte) int {
	for i, b := range buf {
		for _, s := range set {
			if b == s {
				return i
			}
		}
	}
	return -1
}

// ErrEnhancedUnsupported marks an enhanced-CRC BINEX record, which this
// deframer skips rather than decodes.
var ErrEnhancedUnsupported = errors.New("binex: enhanced CRC records not supported")

var syncBytes = []byte{0xc2, 0xe2, 0xd2, 0xf2, 0xb4, 0xb0}

var forwardSync = map[byte]bool{0xc2: true, 0xe2: true, 0xc8: true, 0xe8: true}
var reverseSync = map[byte]bool{0xd2: true, 0xf2: true, 0xd8: true, 0xf8: true}

// navSourceGalCNAV is the BINEX subrecord "source" value for Galileo C/NAV
// pages; navPageLen gives that source's page length in bytes.
const (
	navSubrecordID  = 0x44
	navSourceGalCNAV = 20
	navPageLen       = 62
)

type layout struct {
	forward  bool
	enhanced bool
	begin    bool
	bigE     bool
}

func detLayout(syncB byte) layout {
	forward := forwardSync[syncB] || reverseSync[syncB]
	begin := true
	var enhanced bool
	if forward {
		enhanced = syncB&8 != 0
	} else {
		begin = reverseSync[syncB]
		if begin {
			enhanced = syncB&2 != 0
		} else {
			enhanced = syncB&64 != 0
		}
	}
	var bigE bool
	if begin {
		bigE = syncB&32 != 0
	} else {
		bigE = syncB&4 == 0
	}
	return layout{forward, enhanced, begin, bigE}
}

// readUbnxi decodes a BINEX variable-length unsigned integer starting at
// msg[j], returning the value and the index just past it.
func readUbnxi(msg []byte, j int, bigE bool) (int, int, error) {
	ubnxi := 0
	i := j
	for ; i < j+4; i++ {
		if i >= len(msg) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		if i-j < 3 {
			flag := msg[i]&128 != 0
			if bigE {
				ubnxi = (ubnxi << 7) + int(msg[i]&127)
			} else {
				ubnxi = ubnxi + (int(msg[i]&127) << uint(7*i))
			}
			if !flag {
				break
			}
		} else {
			ubnxi = ubnxi + int(msg[i])<<21
		}
	}
	return ubnxi, i + 1, nil
}

func crcLen(l int) int {
	switch {
	case l < 120:
		return 1
	case l < 4088:
		return 2
	default:
		return 16
	}
}

// Record is one decoded Galileo C/NAV page, ready to feed to
// internal/has.Assembler.Feed.
type Record struct {
	Bits []byte
	Tow  float64
	PRN  int
}

// Reader scans a BINEX byte stream for GNSS navigation-data subrecords and
// yields one Record per Galileo C/NAV (source 20) subrecord found.
type Reader struct {
	src io.Reader
	buf []byte
	pos int
}

// NewReader wraps r for incremental BINEX record scanning.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: r}
}

// fill grows the internal buffer until at least n bytes are available past
// the current scan position, or the source is exhausted.
func (r *Reader) fill(n int) error {
	for len(r.buf)-r.pos < n {
		chunk := make([]byte, 8192)
		k, err := r.src.Read(chunk)
		if k > 0 {
			r.buf = append(r.buf, chunk[:k]...)
		}
		if len(r.buf)-r.pos >= n {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) compact() {
	if r.pos > 1<<20 {
		r.buf = append([]byte(nil), r.buf[r.pos:]...)
		r.pos = 0
	}
}

// Next returns the next decoded Galileo C/NAV page, or io.EOF once the
// underlying stream is exhausted. Records with an unrecognised subrecord
// type, a non-Galileo-C/NAV source, or an enhanced CRC are skipped.
func (r *Reader) Next() (Record, error) {
	for {
		if err := r.syncToRecord(); err != nil {
			return Record{}, err
		}
		syncB := r.buf[r.pos]
		lay := detLayout(syncB)
		if lay.enhanced {
			r.pos++
			continue
		}

		var message []byte
		var err error
		if lay.begin {
			message, err = r.parseForward(r.pos+1, lay.bigE)
		} else {
			message, err = r.parseBackward(r.pos+1, lay.bigE)
		}
		if err == io.ErrUnexpectedEOF {
			return Record{}, io.EOF
		}
		if err != nil {
			r.pos++
			r.compact()
			continue
		}

		rec, ok := decodeSubrecord(message)
		if !ok {
			r.compact()
			continue
		}
		r.compact()
		return rec, nil
	}
}

// syncToRecord advances pos to the next byte in syncBytes, with the same
// "recordID must be 1" qualifier the reference scanner applies to the
// non-terminator sync bytes.
func (r *Reader) syncToRecord() error {
	for {
		if err := r.fill(2); err != nil {
			if len(r.buf)-r.pos < 2 {
				return io.EOF
			}
		}
		idx := indexAnyByte(r.buf[r.pos:], syncBytes)
		if idx < 0 {
			r.pos = len(r.buf)
			r.compact()
			if err := r.fill(1); err != nil {
				return io.EOF
			}
			continue
		}
		cand := r.pos + idx
		if cand+1 >= len(r.buf) {
			r.pos = cand
			if err := r.fill(2); err != nil {
				return io.EOF
			}
			continue
		}
		b := r.buf[cand]
		terminatorStyle := b == 0xb4 || b == 0xb0
		if terminatorStyle || r.buf[cand+1] == 1 {
			r.pos = cand
			return nil
		}
		r.pos = cand + 1
	}
}

// parseForward reads a direct (non-reversed) BINEX record body starting
// just past the sync byte, mirroring Binex_Record.readForward.
func (r *Reader) parseForward(i int, bigE bool) ([]byte, error) {
	if err := r.fill(i - r.pos + 8); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	_, i, err := readUbnxi(r.buf, i, bigE) // recordID, unused
	if err != nil {
		return nil, err
	}
	length, i, err := readUbnxi(r.buf, i, bigE)
	if err != nil {
		return nil, err
	}
	if err := r.fill(i - r.pos + length + crcLen(length)); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	message := append([]byte(nil), r.buf[i:i+length]...)
	i += length + crcLen(length)
	r.pos = i
	return message, nil
}

// parseBackward reads a reversed BINEX record: the body is stored back to
// front, terminated by a matching reverse-sync byte, so it is buffered
// whole, byte-reversed, then parsed with parseForward's logic.
func (r *Reader) parseBackward(i int, bigE bool) ([]byte, error) {
	if err := r.fill(i - r.pos + 4); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	lengthRev, j, err := readUbnxi(r.buf, i, bigE)
	if err != nil {
		return nil, err
	}
	if err := r.fill(j - r.pos + lengthRev); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	full := r.buf[j : j+lengthRev]
	rev := make([]byte, len(full))
	for k := range full {
		rev[k] = full[len(full)-1-k]
	}
	message, _, err := readUbnxiAndBody(rev, bigE)
	if err != nil {
		return nil, err
	}
	r.pos = j + lengthRev
	return message, nil
}

// readUbnxiAndBody runs the same field layout as parseForward over an
// already-fully-buffered slice (used for the reversed body of a backward
// record, which never needs further streaming fills).
func readUbnxiAndBody(msg []byte, bigE bool) ([]byte, int, error) {
	_, i, err := readUbnxi(msg, 0, bigE)
	if err != nil {
		return nil, 0, err
	}
	length, i, err := readUbnxi(msg, i, bigE)
	if err != nil {
		return nil, 0, err
	}
	if i+length > len(msg) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	return msg[i : i+length], i + length, nil
}

// decodeSubrecord parses the GNSS navigation-data subrecord (0x44) carried
// in a BINEX record body, returning a page Record only for a Galileo C/NAV
// source with a complete navbits payload.
func decodeSubrecord(msg []byte) (Record, bool) {
	subrecord, i, err := readUbnxi(msg, 0, true)
	if err != nil || subrecord != navSubrecordID {
		return Record{}, false
	}
	if i+8 > len(msg) {
		return Record{}, false
	}
	transTime := uint32(msg[i])<<24 | uint32(msg[i+1])<<16 | uint32(msg[i+2])<<8 | uint32(msg[i+3])
	transTimeMS := uint16(msg[i+4])<<8 | uint16(msg[i+5])
	prn := int(msg[i+6])
	flags := msg[i+7]
	i += 8

	source := int(flags&31) - 1
	crcPassed := flags&32 != 0
	mIDAvail := flags&64 != 0
	if source != navSourceGalCNAV || !crcPassed {
		return Record{}, false
	}
	if mIDAvail {
		_, i, err = readUbnxi(msg, i, true)
		if err != nil {
			return Record{}, false
		}
	}
	if i+navPageLen > len(msg) {
		return Record{}, false
	}
	navbits := append([]byte(nil), msg[i:i+navPageLen]...)

	return Record{
		Bits: navbits,
		Tow:  timeOfWeek(transTime, transTimeMS),
		PRN:  prn,
	}, true
}

// gpsEpochUnix is 1980-01-06T00:00:00Z in Unix seconds, BINEX's GNSS time
// base for the transmission-time field.
const gpsEpochUnix = 315964800

// timeOfWeek converts BINEX's minutes-since-GPS-epoch transmission time plus
// a millisecond remainder into GPS seconds-of-week.
func timeOfWeek(minutes uint32, millis uint16) float64 {
	totalSeconds := int64(minutes) * 60
	secOfWeek := totalSeconds % (7 * 86400)
	return float64(secOfWeek) + float64(millis)/1000
}
