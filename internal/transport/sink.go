package transport

import (
	"fmt"
	"io"
	"math"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sink accepts one converted SSR message at a time. epoch is the GPS time
// of week, in seconds, of the HAS message it was produced from; plain byte
// sinks ignore it, the PPP-Wizard sink embeds it in every output line.
type Sink interface {
	WriteMessage(msg []byte, epoch float64) error
	Close() error
}

// FileSink writes raw message bytes to a file, one after another with no
// framing of its own (the RTCM3/IGS-SSR CRC-24Q framing already makes the
// stream self-delimiting).
type FileSink struct {
	f *os.File
}

// NewFileSink creates (or truncates) path for writing.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("transport: create sink file %s: %w", path, err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) WriteMessage(msg []byte, _ float64) error {
	_, err := s.f.Write(msg)
	return err
}

func (s *FileSink) Close() error { return s.f.Close() }

// pppWizStream and pppWizFormat are the stream-number and format-code
// fields every GNSS-receiver-sourced reader writes SSR output under.
const (
	pppWizStream = 2
	pppWizFormat = 1
	pppWizChunk  = 50
)

// PPPWizSink formats each message as one or more ASCII lines consumable by
// PPP-Wizard's external-correction-stream interface: "stream format epoch
// hex\n", with the message split into pppWizChunk-byte hex chunks.
type PPPWizSink struct {
	w io.WriteCloser
}

// NewPPPWizSink wraps w (typically an *os.File opened in text mode).
func NewPPPWizSink(w io.WriteCloser) *PPPWizSink {
	return &PPPWizSink{w: w}
}

func (s *PPPWizSink) WriteMessage(msg []byte, epoch float64) error {
	epochInt := int64(epoch)
	n := int(math.Ceil(float64(len(msg)) / pppWizChunk))
	for i := 0; i < n; i++ {
		end := (i + 1) * pppWizChunk
		if end > len(msg) {
			end = len(msg)
		}
		chunk := msg[i*pppWizChunk : end]
		line := fmt.Sprintf("%d %d %d %s\n", pppWizStream, pppWizFormat, epochInt, hexUpper(chunk))
		if _, err := io.WriteString(s.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *PPPWizSink) Close() error { return s.w.Close() }

func hexUpper(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xF]
	}
	return string(out)
}

// TCPSink accepts a single client connection and streams messages to it,
// re-accepting a new connection whenever a write fails (the client went
// away), mirroring tcp_server.py's TCP_Server.write/read broken-pipe retry.
type TCPSink struct {
	ln     net.Listener
	conn   net.Conn
	logger logrus.FieldLogger
}

// NewTCPSink listens on addr and blocks until the first client connects.
func NewTCPSink(addr string, logger logrus.FieldLogger) (*TCPSink, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	s := &TCPSink{ln: ln, logger: logger}
	if err := s.accept(); err != nil {
		ln.Close()
		return nil, err
	}
	return s, nil
}

func (s *TCPSink) accept() error {
	connID := uuid.New().String()
	s.logger.WithField("connection_id", connID).Info("waiting for sink connection")
	conn, err := s.ln.Accept()
	if err != nil {
		return fmt.Errorf("transport: accept: %w", err)
	}
	s.logger.WithField("connection_id", connID).Info("sink connection established")
	s.conn = conn
	return nil
}

func (s *TCPSink) WriteMessage(msg []byte, _ float64) error {
	if _, err := s.conn.Write(msg); err != nil {
		s.logger.WithError(err).Warn("sink connection lost, re-accepting")
		if acceptErr := s.accept(); acceptErr != nil {
			return acceptErr
		}
		_, err = s.conn.Write(msg)
		return err
	}
	return nil
}

func (s *TCPSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return s.ln.Close()
}
