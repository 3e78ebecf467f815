package nova

import (
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsfi/hasgo/internal/crc"
)

// buildLine assembles one GALCNAVRAWPAGEA log line with a correct trailing
// CRC, computed the same way the reader verifies it.
func buildLine(prn int, week int, seconds float64, swVersion int, pageID string, rawCNAVBits int) string {
	headerFields := []string{
		"#GALCNAVRAWPAGEA", "COM1", "0", "0.0", "SATTIME",
		strconv.Itoa(week), strconv.FormatFloat(seconds, 'f', 3, 64),
		"02000020", "0", strconv.Itoa(swVersion),
	}

	raw := make([]byte, (rawCNAVBits+7)/8)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	rawHex := strings.ToUpper(hex.EncodeToString(raw))

	var dataFields []string
	if swVersion < swVersionFourDataFields {
		dataFields = []string{"2", strconv.Itoa(prn), "16", rawHex}
	} else {
		dataFields = []string{"2", strconv.Itoa(prn), "16", pageID, rawHex}
	}

	checkMessage := headerFields[0][1:] + "," + strings.Join(headerFields[1:], ",") + ";" + strings.Join(dataFields, ",")
	sum := crc.Novatel32([]byte(checkMessage))
	crcHex := strings.ToUpper(hex.EncodeToString([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}))

	return strings.Join(headerFields, ",") + ";" + strings.Join(dataFields, ",") + "*" + crcHex
}

func TestReaderDecodesValidLine(t *testing.T) {
	line := buildLine(11, 2200, 345600.5, 17100, "0", 464)
	r := NewReader(strings.NewReader(line))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 11, rec.PRN)
	assert.Equal(t, 2200, rec.Week)
	assert.InDelta(t, 345600.5, rec.Tow, 1e-9)
	assert.Equal(t, 58, len(rec.Bits)) // 464-2=462 bits, byte packed
}

func TestReaderHandlesPreFourFieldFirmware(t *testing.T) {
	line := buildLine(5, 2200, 1.0, 17000, "", 464)
	r := NewReader(strings.NewReader(line))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 5, rec.PRN)
}

func TestReaderSkipsBadCRC(t *testing.T) {
	line := buildLine(11, 2200, 345600.5, 17100, "0", 464)
	corrupted := line[:len(line)-1] + "0"
	if corrupted == line {
		corrupted = line[:len(line)-1] + "1"
	}
	r := NewReader(strings.NewReader(corrupted))

	_, err := r.Next()
	assert.Error(t, err)
}

func TestReaderSkipsNonRawPageLines(t *testing.T) {
	r := NewReader(strings.NewReader("#BESTPOSA,...;some,other,data*00000000\n"))
	_, err := r.Next()
	assert.Error(t, err)
}

func TestReaderSkipsBlankAndContinuesPastGarbage(t *testing.T) {
	valid := buildLine(3, 2200, 10.0, 17100, "0", 464)
	stream := "\nnot a valid line at all\n" + valid + "\n"
	r := NewReader(strings.NewReader(stream))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, rec.PRN)
}
