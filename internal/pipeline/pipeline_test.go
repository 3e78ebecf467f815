package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsfi/hasgo/internal/bitio"
	"github.com/nlsfi/hasgo/internal/ssr"
	"github.com/nlsfi/hasgo/internal/ssrencode"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestResolveModeInNumericHostImpliesTCP(t *testing.T) {
	mode, err := ResolveModeIn("192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, ModeInSBFTCP, mode)
}

func TestResolveModeInLocalhostImpliesTCP(t *testing.T) {
	mode, err := ResolveModeIn("localhost:6947")
	require.NoError(t, err)
	assert.Equal(t, ModeInSBFTCP, mode)
}

func TestResolveModeInFileSuffixes(t *testing.T) {
	mode, err := ResolveModeIn("recording.sbf")
	require.NoError(t, err)
	assert.Equal(t, ModeInSBFFile, mode)

	mode, err = ResolveModeIn("recording.bnx")
	require.NoError(t, err)
	assert.Equal(t, ModeInBINEXFile, mode)
}

func TestResolveModeInAmbiguousSerialPath(t *testing.T) {
	_, err := ResolveModeIn("/dev/ttyUSB0")
	assert.ErrorIs(t, err, ErrModeInAmbiguous)
}

func TestResolveModeOut(t *testing.T) {
	assert.Equal(t, ModeOutTCP, ResolveModeOut("10.0.0.1"))
	assert.Equal(t, ModeOutPPPWizStream, ResolveModeOut("console"))
	assert.Equal(t, ModeOutFile, ResolveModeOut("out.bin"))
}

func writeHeader(w *bitio.Writer, toh int, mask, orb, clockFull, clockSub, codeB, phaseB bool, maskID, iodSetID int) {
	w.PutU32(uint32(toh), 12)
	w.PutBool(mask)
	w.PutBool(orb)
	w.PutBool(clockFull)
	w.PutBool(clockSub)
	w.PutBool(codeB)
	w.PutBool(phaseB)
	w.PutU32(0, 4)
	w.PutU32(uint32(maskID), 5)
	w.PutU32(uint32(iodSetID), 5)
}

func writeSystemMask(w *bitio.Writer, sysID int, satMask uint64, sigMask uint32) {
	w.PutU32(uint32(sysID), 4)
	w.PutU32(uint32(satMask>>8), 32)
	w.PutU32(uint32(satMask&0xFF), 8)
	w.PutU32(sigMask, 16)
	w.PutBool(false) // no cell mask
	w.PutU32(0, 3)   // navMsg
}

func satMaskFirstN(n int) uint64 {
	var m uint64
	for i := 0; i < n; i++ {
		m |= uint64(1) << uint(39-i)
	}
	return m
}

func sigMaskFirstN(n int) uint32 {
	var m uint32
	for i := 0; i < n; i++ {
		m |= uint32(1) << uint(15-i)
	}
	return m
}

// buildOrbitClockMessage constructs one GPS-only HAS message carrying a
// mask, one orbit block and one full-clock block, for two satellites, with
// every value in range (no N/A sentinels) so every encoder path produces
// output.
func buildOrbitClockMessage(t *testing.T) *ssr.SSR {
	t.Helper()
	w := bitio.NewWriter()
	writeHeader(w, 100, true, true, true, false, false, false, 0, 0)
	w.PutU32(1, 4)
	writeSystemMask(w, int(ssr.SysGPS), satMaskFirstN(2), sigMaskFirstN(1))
	w.PutU32(0, 6) // reserved trailer of the mask section

	// orbits: validityIdx(4)
	w.PutU32(3, 4)
	for i := 0; i < 2; i++ {
		w.PutU32(uint32(10+i), 8) // IOD
		w.PutSigned(5, 13)
		w.PutSigned(10, 12)
		w.PutSigned(-10, 12)
	}
	// clockFull: validityIdx(4), mult(2)
	w.PutU32(3, 4)
	w.PutU32(0, 2)
	for i := 0; i < 2; i++ {
		w.PutSigned(int32(4+i), 13)
	}

	p := ssr.NewParser()
	s, err := p.Parse(w.Bytes())
	require.NoError(t, err)
	require.NotNil(t, s.Orbits)
	require.NotNil(t, s.ClockFull)
	return s
}

func TestEncodeSystemEmitsCombinedMessageWhenCompact(t *testing.T) {
	s := buildOrbitClockMessage(t)
	p := &Pipeline{
		opts: Options{Format: FormatIGS, Compact: true},
		igs:  ssrencode.IGS{},
		rtcm: ssrencode.RTCM{},
	}
	pages, err := p.encodeSystem(s, ssr.SysGPS, 345600)
	require.NoError(t, err)
	assert.NotEmpty(t, pages)
}

func TestEncodeSystemEmitsSeparateMessagesWhenNotCompact(t *testing.T) {
	s := buildOrbitClockMessage(t)
	p := &Pipeline{
		opts: Options{Format: FormatIGS, Compact: false},
		igs:  ssrencode.IGS{},
		rtcm: ssrencode.RTCM{},
	}
	combined, err := p.encodeSystem(s, ssr.SysGPS, 345600)
	require.NoError(t, err)

	orbitPages, err := p.orbit(s, ssr.SysGPS, 345600)
	require.NoError(t, err)
	clockPages, err := p.clock(s, ssr.SysGPS, 345600)
	require.NoError(t, err)

	assert.Equal(t, len(orbitPages)+len(clockPages), len(combined))
}

func TestEncodeSystemPrefersHighRateClock(t *testing.T) {
	s := buildOrbitClockMessage(t)
	p := &Pipeline{
		opts: Options{Format: FormatIGS, Compact: false, HRclk: true},
		igs:  ssrencode.IGS{},
		rtcm: ssrencode.RTCM{},
	}
	hrPages, err := p.clock(s, ssr.SysGPS, 345600)
	require.NoError(t, err)

	p.opts.HRclk = false
	normalPages, err := p.clock(s, ssr.SysGPS, 345600)
	require.NoError(t, err)

	assert.NotEmpty(t, hrPages)
	assert.NotEmpty(t, normalPages)
	assert.NotEqual(t, normalPages, hrPages)
}

func TestEncodeSystemRTCMFormat(t *testing.T) {
	s := buildOrbitClockMessage(t)
	p := &Pipeline{
		opts: Options{Format: FormatRTCM, Compact: true},
		igs:  ssrencode.IGS{},
		rtcm: ssrencode.RTCM{},
	}
	pages, err := p.encodeSystem(s, ssr.SysGPS, 345600)
	require.NoError(t, err)
	assert.NotEmpty(t, pages)
	for _, page := range pages {
		assert.Equal(t, byte(0xD3), page[0])
	}
}

func TestEncodeSystemSkipsAbsentCorrectionsWithoutError(t *testing.T) {
	s := buildOrbitClockMessage(t)
	// Flip content flags to claim a phase-bias block the message never
	// carried; encodeSystem must tolerate the resulting
	// ErrCorrectionNotAvailable and simply omit that sub-message.
	s.Header.Content.PhaseB = true
	p := &Pipeline{
		opts: Options{Format: FormatIGS, Compact: true},
		igs:  ssrencode.IGS{},
		rtcm: ssrencode.RTCM{},
	}
	pages, err := p.encodeSystem(s, ssr.SysGPS, 345600)
	require.NoError(t, err)
	assert.NotEmpty(t, pages)
}

func TestRunReturnsCleanlyOnEmptySBFSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "empty.sbf")
	require.NoError(t, os.WriteFile(srcPath, []byte{0x00, 0x01, 0x02}, 0o644))
	dstPath := filepath.Join(dir, "out.bin")

	pipe, err := New(Options{
		Source:   srcPath,
		Target:   dstPath,
		Format:   FormatIGS,
		ModeIn:   ModeInSBFFile,
		ModeOut:  ModeOutFile,
		Compact:  true,
		LowerUDI: true,
	}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	require.NoError(t, pipe.Close())

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSeekSkipAdvancesPastFraction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, seekSkip(f, 0.5))
	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(50), pos)
}
