// Command hasdecoder reads Galileo HAS correction pages from an SBF, BINEX
// or Novatel GALCNAVRAWPAGEA source and re-emits the decoded SSR state as
// IGS-SSR or RTCM3-SSR messages on a file, TCP or PPP-Wizard sink.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nlsfi/hasgo/internal/pipeline"
)

func main() {
	source := flag.String("s", "", "source: file path, \"host:port\", or serial device (required)")
	target := flag.String("t", "", "target: file path, \"host\", or \"console\" (required)")
	format := flag.String("f", "", "output format: 1/IGS or 2/RTCM (required)")
	modeIn := flag.Int("i", 0, "input mode: 1=SBF file 2=BINEX file 3=SBF serial 4=BINEX serial 5=SBF TCP 6=BINEX TCP 7=Novatel file (inferred from -s if omitted)")
	modeOut := flag.Int("o", 0, "output mode: 1=TCP 2=file 3=PPP-Wiz file 4=PPP-Wiz stream (inferred from -t if omitted)")
	port := flag.Int("p", pipeline.DefaultTCPPort, "TCP port")
	baud := flag.Int("b", pipeline.DefaultBaud, "serial baud rate")
	maxMessages := flag.Int("x", 0, "process at most N HAS messages (0 = unlimited)")
	verbosity := flag.Int("v", 0, "verbosity level 0..6")
	mute := flag.Bool("m", false, "mute non-verbose messages")
	skip := flag.Float64("skip", 0.0, "skip the initial fraction (0.0..1.0) of a file source")
	compact := flag.Bool("compact", true, "emit combined orbit+clock messages when both are present")
	hrClock := flag.Bool("hrclk", false, "prefer the high-rate clock message (IGM04/SSR6)")
	lowerUDI := flag.Bool("lower-udi", true, "round the emitted update interval down to the HAS-advertised seconds")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(levelFromVerbosity(*verbosity, *mute))

	opts, err := buildOptions(*source, *target, *format, *modeIn, *modeOut, *port, *baud, *maxMessages, *skip, *compact, *hrClock, *lowerUDI)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hasdecoder:", err)
		flag.Usage()
		os.Exit(1)
	}

	p, err := pipeline.New(opts, log)
	if err != nil {
		log.WithError(err).Fatal("hasdecoder: failed to set up pipeline")
	}
	defer p.Close()

	if !*mute && *modeOut != pipeline.ModeOutPPPWizStream {
		log.Infof("reading mode %d from %s, converting to format %d, writing mode %d to %s",
			opts.ModeIn, opts.Source, opts.Format, opts.ModeOut, opts.Target)
	}

	if err := p.Run(); err != nil {
		log.WithError(err).Fatal("hasdecoder: pipeline terminated")
	}
}

func buildOptions(source, target, format string, modeIn, modeOut, port, baud, maxMessages int, skip float64, compact, hrClock, lowerUDI bool) (pipeline.Options, error) {
	if source == "" {
		return pipeline.Options{}, fmt.Errorf("missing required flag -s (source)")
	}
	if target == "" {
		return pipeline.Options{}, fmt.Errorf("missing required flag -t (target)")
	}

	resolvedFormat, err := resolveFormat(format)
	if err != nil {
		return pipeline.Options{}, err
	}

	if modeIn == 0 {
		modeIn, err = pipeline.ResolveModeIn(source)
		if err != nil {
			return pipeline.Options{}, err
		}
	}
	if modeOut == 0 {
		modeOut = pipeline.ResolveModeOut(target)
	}

	return pipeline.Options{
		Source:      source,
		Target:      target,
		Format:      resolvedFormat,
		ModeIn:      modeIn,
		ModeOut:     modeOut,
		Port:        port,
		Baud:        baud,
		Skip:        skip,
		MaxMessages: maxMessages,
		Compact:     compact,
		HRclk:       hrClock,
		LowerUDI:    lowerUDI,
	}, nil
}

func resolveFormat(format string) (int, error) {
	switch strings.ToUpper(format) {
	case "1", "IGS":
		return pipeline.FormatIGS, nil
	case "2", "RTCM", "RTCM3":
		return pipeline.FormatRTCM, nil
	default:
		return 0, fmt.Errorf("unrecognized output format %q: possibilities are [1:IGS, 2:RTCM3]", format)
	}
}

// levelFromVerbosity maps the original's 0..6 -v gate onto logrus levels:
// 0-1 only surface warnings and errors, 2-3 add info, 4-6 add debug detail.
// -m mutes everything but fatal setup errors, matching the original's
// "mute non-verbose messages" flag.
func levelFromVerbosity(v int, mute bool) logrus.Level {
	if mute {
		return logrus.FatalLevel
	}
	switch {
	case v <= 1:
		return logrus.WarnLevel
	case v <= 3:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
