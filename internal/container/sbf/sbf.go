// Package sbf deframes a Septentrio SBF (Septentrio Binary Format) stream,
// extracting Galileo HAS pages carried in GALRawCNAV navigation blocks.
package sbf

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/nlsfi/hasgo/internal/bitio"
)

const (
	sync0 = 0x24 // '$'
	sync1 = 0x40 // '@'

	// cnavBlockID is the SBF block number family for Galileo navigation
	// blocks (GALRawCNAV, GALRawINAV, ...); the low 3 bits select the
	// sub-type within the family.
	cnavBlockID  = 4024
	blockIDMask  = 0xFFF8
	subTypeMask  = 0x0007
	cnavSubType  = 0 // GALRawCNAV
	ionoSubType  = 6 // GALRawGNAV / Ionosphere: not a page source, skipped
	fixedPayload = 4 + 2 + 6 + 16*4 // TOW, WNc, 6 status bytes, 16 NAV words
)

// Record is one decoded Galileo C/NAV page, ready to feed to
// internal/has.Assembler.Feed.
type Record struct {
	Bits []byte
	Tow  float64
	Week int
	SVID int
}

// Reader scans an SBF byte stream for sync-framed blocks and yields one
// Record per CRC-passed GALRawCNAV block. It buffers internally so it can be
// driven from a live stream (serial/TCP) as well as a file.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for incremental SBF block scanning.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next available CNAV page record, or io.EOF once the
// underlying stream is exhausted. Blocks that fail CRC, belong to a
// different sub-type, or are truncated are skipped silently, same as the
// reference reader's behaviour of scanning past anything that isn't a
// complete, CRC-passed CNAV block.
func (r *Reader) Next() (Record, error) {
	for {
		if err := r.syncToBlock(); err != nil {
			return Record{}, err
		}

		header := make([]byte, 6)
		if _, err := io.ReadFull(r.br, header); err != nil {
			return Record{}, io.EOF
		}
		id := binary.LittleEndian.Uint16(header[2:4])
		length := int(binary.LittleEndian.Uint16(header[4:6]))
		blockLen := length - 8
		if blockLen <= 0 || blockLen > 8192 {
			continue
		}

		block := make([]byte, blockLen)
		if _, err := io.ReadFull(r.br, block); err != nil {
			return Record{}, io.EOF
		}

		if id&blockIDMask != cnavBlockID {
			continue
		}
		if id&subTypeMask != cnavSubType {
			continue
		}
		if len(block) < fixedPayload {
			continue
		}

		crcPassed := block[7]
		if crcPassed != 1 {
			continue
		}

		tow := binary.LittleEndian.Uint32(block[0:4])
		week := binary.LittleEndian.Uint16(block[4:6])
		svid := block[6]

		bits := make([]bool, 0, 16*32)
		for i := 0; i < 16; i++ {
			word := binary.LittleEndian.Uint32(block[12+4*i : 16+4*i])
			for b := 31; b >= 0; b-- {
				bits = append(bits, (word>>uint(b))&1 != 0)
			}
		}
		// Trim the trailing 20 bits, which carry receiver-appended
		// framing rather than HAS page content.
		bits = bits[:len(bits)-20]

		return Record{
			Bits: bitio.BitsToBytes(bits),
			Tow:  float64(tow) / 1000,
			Week: int(week),
			SVID: int(svid),
		}, nil
	}
}

// syncToBlock advances the stream to just past the next "$@" sync prefix.
func (r *Reader) syncToBlock() error {
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return io.EOF
		}
		if b != sync0 {
			continue
		}
		b, err = r.br.ReadByte()
		if err != nil {
			return io.EOF
		}
		if b == sync1 {
			return nil
		}
		if err := r.br.UnreadByte(); err != nil {
			return io.EOF
		}
	}
}
