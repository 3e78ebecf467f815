// Package pipeline wires a container source, the HAS page assembler, the
// SSR parser and an SSR encoder backend into the single-threaded pump loop
// described by the mode numbers in cmd/hasdecoder: read one container
// record, feed it to the assembler, and whenever a HAS message completes,
// parse it and emit every SSR message its content flags call for.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nlsfi/hasgo/internal/container/binex"
	"github.com/nlsfi/hasgo/internal/container/nova"
	"github.com/nlsfi/hasgo/internal/container/sbf"
	"github.com/nlsfi/hasgo/internal/has"
	"github.com/nlsfi/hasgo/internal/ssr"
	"github.com/nlsfi/hasgo/internal/ssrencode"
	"github.com/nlsfi/hasgo/internal/transport"
)

// Input modes, matching the original HAS_Converter's modeIn numbering.
const (
	ModeInSBFFile     = 1
	ModeInBINEXFile   = 2
	ModeInSBFSerial   = 3
	ModeInBINEXSerial = 4
	ModeInSBFTCP      = 5
	ModeInBINEXTCP    = 6
	ModeInNovatelFile = 7
)

// Output modes, matching the original HAS_Converter's modeOut numbering.
const (
	ModeOutTCP          = 1
	ModeOutFile         = 2
	ModeOutPPPWizFile   = 3
	ModeOutPPPWizStream = 4
)

// Output formats.
const (
	FormatIGS  = 1
	FormatRTCM = 2
)

// DefaultTCPPort is the TCP port used by both CLI source and sink when none
// is given, matching the original's default of 6947.
const DefaultTCPPort = 6947

// DefaultBaud is the serial baud rate used when none is given.
const DefaultBaud = 115200

var (
	// ErrModeInAmbiguous is returned by ResolveModeIn when source gives no
	// hint as to its container/transport kind and a serial mode must be
	// given explicitly.
	ErrModeInAmbiguous = errors.New("pipeline: cannot infer input mode from source, specify ModeIn explicitly (3 or 4 for serial)")

	// ErrUnknownModeIn / ErrUnknownModeOut / ErrUnknownFormat are returned
	// by New when an out-of-range mode or format number is given.
	ErrUnknownModeIn  = errors.New("pipeline: unrecognized input mode")
	ErrUnknownModeOut = errors.New("pipeline: unrecognized output mode")
	ErrUnknownFormat  = errors.New("pipeline: unrecognized output format")
)

// ResolveModeIn infers an input mode from a source string when the caller
// did not pin one down: a numeric-with-dots address or "localhost" implies
// an SBF TCP stream, a ".sbf"/".bnx" suffix implies the matching file mode.
// Serial sources have no distinguishing shape and must be given explicitly.
func ResolveModeIn(source string) (int, error) {
	if isNumericHost(source) || strings.Contains(strings.ToLower(source), "localhost") {
		return ModeInSBFTCP, nil
	}
	lower := strings.ToLower(source)
	switch {
	case strings.Contains(lower, ".sbf"):
		return ModeInSBFFile, nil
	case strings.Contains(lower, ".bnx"):
		return ModeInBINEXFile, nil
	}
	return 0, ErrModeInAmbiguous
}

// ResolveModeOut infers an output mode from a target string: numeric or
// "localhost" implies a TCP sink, "console" implies the PPP-Wiz stdout
// stream, anything else is treated as a file path.
func ResolveModeOut(target string) int {
	if isNumericHost(target) || target == "localhost" {
		return ModeOutTCP
	}
	if target == "console" {
		return ModeOutPPPWizStream
	}
	return ModeOutFile
}

func isNumericHost(s string) bool {
	stripped := strings.ReplaceAll(s, ".", "")
	if stripped == "" {
		return false
	}
	_, err := strconv.Atoi(stripped)
	return err == nil
}

// Options configures one pipeline run. Format, ModeIn and ModeOut must
// already be resolved (see ResolveModeIn/ResolveModeOut) by the time they
// reach New.
type Options struct {
	Source string
	Target string

	Format  int
	ModeIn  int
	ModeOut int

	Port int // TCP port, source (modes 5/6) and sink (mode 1) alike
	Baud int // serial baud, modes 3/4

	// Skip is the fraction (0.0..1.0) of a file source to seek past before
	// scanning for records. Only meaningful for file-backed sources
	// (modes 1, 2, 7).
	Skip float64

	// MaxMessages caps the number of completed HAS messages converted
	// before Run returns; zero means unlimited.
	MaxMessages int

	Compact  bool // emit combined orbit+clock messages when both are present
	HRclk    bool // prefer the high-rate clock message (IGM04/SSR6) over IGM02/SSR2
	LowerUDI bool // round UDI down to the HAS-advertised seconds, not up
}

// frameReader is the common shape of the three container deframers'
// Next() iterators, after dropping their format-specific fields.
type frameReader interface {
	Next() (bits []byte, tow float64, err error)
}

type sbfAdapter struct{ r *sbf.Reader }

func (a sbfAdapter) Next() ([]byte, float64, error) {
	rec, err := a.r.Next()
	return rec.Bits, rec.Tow, err
}

type binexAdapter struct{ r *binex.Reader }

func (a binexAdapter) Next() ([]byte, float64, error) {
	rec, err := a.r.Next()
	return rec.Bits, rec.Tow, err
}

type novaAdapter struct{ r *nova.Reader }

func (a novaAdapter) Next() ([]byte, float64, error) {
	rec, err := a.r.Next()
	return rec.Bits, rec.Tow, err
}

// Pipeline drives one source through the assembler/parser/encoder chain
// to one sink until the source is exhausted, MaxMessages is reached, or an
// unrecoverable source/I-O error occurs.
type Pipeline struct {
	opts Options
	log  logrus.FieldLogger

	frames      frameReader
	closeSource func() error
	sink        transport.Sink

	asm    *has.Assembler
	parser *ssr.Parser
	igs    ssrencode.IGS
	rtcm   ssrencode.RTCM

	converted int
}

// New opens the configured source and sink and returns a Pipeline ready to
// Run. All resources opened here are released by Close, including on a
// later error from Run.
func New(opts Options, log logrus.FieldLogger) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Format != FormatIGS && opts.Format != FormatRTCM {
		return nil, ErrUnknownFormat
	}
	if opts.Port == 0 {
		opts.Port = DefaultTCPPort
	}
	if opts.Baud == 0 {
		opts.Baud = DefaultBaud
	}

	frames, closeSource, err := openSource(opts, log)
	if err != nil {
		return nil, err
	}
	sink, err := openSink(opts, log)
	if err != nil {
		closeSource()
		return nil, err
	}

	return &Pipeline{
		opts:        opts,
		log:         log,
		frames:      frames,
		closeSource: closeSource,
		sink:        sink,
		asm:         has.NewAssembler(log),
		parser:      ssr.NewParser(),
		igs:         ssrencode.IGS{LowerUDI: opts.LowerUDI},
		rtcm:        ssrencode.RTCM{LowerUDI: opts.LowerUDI},
	}, nil
}

func openSource(opts Options, log logrus.FieldLogger) (frameReader, func() error, error) {
	switch opts.ModeIn {
	case ModeInSBFFile:
		f, err := transport.OpenFile(opts.Source)
		if err != nil {
			return nil, nil, err
		}
		if err := seekSkip(f, opts.Skip); err != nil {
			f.Close()
			return nil, nil, err
		}
		return sbfAdapter{sbf.NewReader(f)}, f.Close, nil
	case ModeInBINEXFile:
		f, err := transport.OpenFile(opts.Source)
		if err != nil {
			return nil, nil, err
		}
		if err := seekSkip(f, opts.Skip); err != nil {
			f.Close()
			return nil, nil, err
		}
		return binexAdapter{binex.NewReader(f)}, f.Close, nil
	case ModeInNovatelFile:
		f, err := transport.OpenFile(opts.Source)
		if err != nil {
			return nil, nil, err
		}
		if err := seekSkip(f, opts.Skip); err != nil {
			f.Close()
			return nil, nil, err
		}
		return novaAdapter{nova.NewReader(f)}, f.Close, nil
	case ModeInSBFSerial:
		p, err := transport.OpenSerial(opts.Source, opts.Baud)
		if err != nil {
			return nil, nil, err
		}
		return sbfAdapter{sbf.NewReader(p)}, p.Close, nil
	case ModeInBINEXSerial:
		p, err := transport.OpenSerial(opts.Source, opts.Baud)
		if err != nil {
			return nil, nil, err
		}
		return binexAdapter{binex.NewReader(p)}, p.Close, nil
	case ModeInSBFTCP:
		addr := tcpAddr(opts.Source, opts.Port)
		conn, err := transport.ListenTCP(addr)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("addr", addr).Info("pipeline: accepted SBF source connection")
		return sbfAdapter{sbf.NewReader(conn)}, conn.Close, nil
	case ModeInBINEXTCP:
		addr := tcpAddr(opts.Source, opts.Port)
		conn, err := transport.ListenTCP(addr)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("addr", addr).Info("pipeline: accepted BINEX source connection")
		return binexAdapter{binex.NewReader(conn)}, conn.Close, nil
	default:
		return nil, nil, ErrUnknownModeIn
	}
}

// seekSkip advances f past the given fraction of its total size, matching
// the original file readers' skip=F convention for resuming partway through
// a recording.
func seekSkip(f *os.File, skip float64) error {
	if skip <= 0 {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	offset := int64(float64(info.Size()) * skip)
	_, err = f.Seek(offset, io.SeekStart)
	return err
}

func tcpAddr(source string, port int) string {
	if strings.Contains(source, ":") {
		return source
	}
	return fmt.Sprintf("%s:%d", source, port)
}

func openSink(opts Options, log logrus.FieldLogger) (transport.Sink, error) {
	switch opts.ModeOut {
	case ModeOutTCP:
		return transport.NewTCPSink(tcpAddr(opts.Target, opts.Port), log)
	case ModeOutFile:
		return transport.NewFileSink(opts.Target)
	case ModeOutPPPWizFile:
		f, err := os.Create(opts.Target)
		if err != nil {
			return nil, fmt.Errorf("pipeline: create PPP-Wiz sink file %s: %w", opts.Target, err)
		}
		return transport.NewPPPWizSink(f), nil
	case ModeOutPPPWizStream:
		return transport.NewPPPWizSink(os.Stdout), nil
	default:
		return nil, ErrUnknownModeOut
	}
}

// Close releases the source and sink. Safe to call once, after Run returns.
func (p *Pipeline) Close() error {
	sinkErr := p.sink.Close()
	srcErr := p.closeSource()
	if srcErr != nil {
		return srcErr
	}
	return sinkErr
}

// Run pumps container records through the assembler/parser/encoder chain
// until the source is exhausted, MaxMessages HAS messages have been
// converted, or an unrecoverable source error is returned. io.EOF from the
// source is treated as clean termination, not an error.
func (p *Pipeline) Run() error {
	for {
		if p.opts.MaxMessages > 0 && p.converted >= p.opts.MaxMessages {
			return nil
		}
		bits, tow, err := p.frames.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("pipeline: source read: %w", err)
		}
		decoded, ok := p.asm.Feed(bits, tow)
		if !ok {
			continue
		}
		if err := p.convertAndEmit(decoded); err != nil {
			p.log.WithError(err).Warn("pipeline: dropping HAS message")
			continue
		}
		p.converted++
	}
}

// convertAndEmit parses one reconstructed HAS message and writes every SSR
// message its content flags call for to the sink, following the same
// compact/HRclk-aware per-system dispatch as the original converter.
func (p *Pipeline) convertAndEmit(d has.Decoded) error {
	s, err := p.parser.Parse(d.Bits)
	if err != nil {
		return err
	}
	if s.Masks == nil {
		return nil
	}
	for i := range s.Masks.Systems {
		sys := ssr.Sys(s.Masks.Systems[i].SysID)
		pages, err := p.encodeSystem(s, sys, d.Tow)
		if err != nil {
			p.log.WithError(err).WithField("sys", sys).Warn("pipeline: skipping system")
			continue
		}
		for _, page := range pages {
			if err := p.sink.WriteMessage(page, d.Tow); err != nil {
				return fmt.Errorf("pipeline: sink write: %w", err)
			}
		}
	}
	return nil
}

// encodeSystem runs one GNSS system's content through the selected format's
// encoder, mirroring SSR_Converter.convert's compact/HRclk/content-flag
// dispatch: a combined orbit+clock message when compact and both blocks are
// present, separate orbit/clock otherwise, and code/phase bias messages
// whenever their flags are set, regardless of compact.
func (p *Pipeline) encodeSystem(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	content := s.Header.Content
	var out [][]byte

	combined := p.opts.Compact && content.Orb && (content.ClockFull || content.ClockSub)
	switch {
	case combined:
		pages, err := p.combinedOrbitClock(s, sys, tow)
		if err != nil && !errors.Is(err, ssrencode.ErrCorrectionNotAvailable) {
			return nil, err
		}
		out = append(out, pages...)
	default:
		if content.Orb {
			pages, err := p.orbit(s, sys, tow)
			if err != nil && !errors.Is(err, ssrencode.ErrCorrectionNotAvailable) {
				return nil, err
			}
			out = append(out, pages...)
		}
		if content.ClockFull || content.ClockSub {
			pages, err := p.clock(s, sys, tow)
			if err != nil && !errors.Is(err, ssrencode.ErrCorrectionNotAvailable) {
				return nil, err
			}
			out = append(out, pages...)
		}
	}

	if content.CodeB {
		pages, err := p.codeBias(s, sys, tow)
		if err != nil && !errors.Is(err, ssrencode.ErrCorrectionNotAvailable) {
			return nil, err
		}
		out = append(out, pages...)
	}
	if content.PhaseB {
		pages, err := p.phaseBias(s, sys, tow)
		if err != nil && !errors.Is(err, ssrencode.ErrCorrectionNotAvailable) {
			return nil, err
		}
		out = append(out, pages...)
	}
	return out, nil
}

func (p *Pipeline) combinedOrbitClock(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	if p.opts.Format == FormatIGS {
		return p.igs.IGM03(s, sys, tow)
	}
	return p.rtcm.SSR4(s, sys, tow)
}

func (p *Pipeline) orbit(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	if p.opts.Format == FormatIGS {
		return p.igs.IGM01(s, sys, tow)
	}
	return p.rtcm.SSR1(s, sys, tow)
}

func (p *Pipeline) clock(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	if p.opts.Format == FormatIGS {
		if p.opts.HRclk {
			return p.igs.IGM04(s, sys, tow)
		}
		return p.igs.IGM02(s, sys, tow)
	}
	if p.opts.HRclk {
		return p.rtcm.SSR6(s, sys, tow)
	}
	return p.rtcm.SSR2(s, sys, tow)
}

func (p *Pipeline) codeBias(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	if p.opts.Format == FormatIGS {
		return p.igs.IGM05(s, sys, tow)
	}
	return p.rtcm.SSR3(s, sys, tow)
}

func (p *Pipeline) phaseBias(s *ssr.SSR, sys ssr.Sys, tow float64) ([][]byte, error) {
	if p.opts.Format == FormatIGS {
		return p.igs.IGM06(s, sys, tow)
	}
	return p.rtcm.SSRPhase(s, sys, tow)
}
