package transport

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesRawBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteMessage([]byte{0xD3, 0x00, 0x01}, 0))
	require.NoError(t, sink.WriteMessage([]byte{0xAA}, 0))
	require.NoError(t, sink.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD3, 0x00, 0x01, 0xAA}, got)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func TestPPPWizSinkFormatsSingleLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewPPPWizSink(nopWriteCloser{&buf})

	require.NoError(t, sink.WriteMessage([]byte{0xD3, 0xAB}, 345600))
	assert.Equal(t, "2 1 345600 D3AB\n", buf.String())
}

func TestPPPWizSinkSplitsIntoChunks(t *testing.T) {
	var buf bytes.Buffer
	sink := NewPPPWizSink(nopWriteCloser{&buf})

	msg := make([]byte, 120)
	for i := range msg {
		msg[i] = byte(i)
	}
	require.NoError(t, sink.WriteMessage(msg, 10))

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 3, lines) // ceil(120/50) = 3
}

func TestTCPSinkWritesToAcceptedClient(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	sinkCh := make(chan *TCPSink, 1)
	go func() {
		s, err := NewTCPSink(addr, logger)
		require.NoError(t, err)
		sinkCh <- s
	}()

	client, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	sink := <-sinkCh
	defer sink.Close()

	require.NoError(t, sink.WriteMessage([]byte{0xD3, 0x01, 0x02}, 0))

	buf := make([]byte, 3)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD3, 0x01, 0x02}, buf)
}
