// Package transport provides the byte-stream sources (file, serial port,
// TCP) and message sinks (file, TCP, PPP-Wizard) the pipeline reads HAS
// container streams from and writes converted SSR messages to.
package transport

import (
	"fmt"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// OpenFile opens path for reading as a container source.
func OpenFile(path string) (*os.File, error) {
	return os.Open(path)
}

// OpenSerial opens a serial port at the given baud rate as a container
// source, 8N1 with no flow control, matching the receiver link the HAS
// decoder is normally run against.
func OpenSerial(port string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", port, err)
	}
	return p, nil
}

// DialTCP connects to addr as a container source (e.g. an NTRIP caster or
// a receiver already listening for outbound connections).
func DialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return conn, nil
}

// ListenTCP opens addr and blocks until one client connects, returning that
// connection as a container source. This is the common case for
// Septentrio/other receivers configured to push an SBF/BINEX stream
// outbound to a fixed TCP port.
func ListenTCP(addr string) (net.Conn, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("transport: accept on %s: %w", addr, err)
	}
	return conn, nil
}
