package pn532

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// reply builds a reader-to-host frame for feeding the parser.
func reply(code byte, args []byte) []byte {
	body := make([]byte, 0, 2+len(args))
	body = append(body, pn532ToHost, code)
	body = append(body, args...)

	out := []byte{preamble, startCode1, startCode2}
	if len(body) <= maxStandardLen {
		out = append(out, byte(len(body)), checksum(byte(len(body))))
	} else {
		hi, lo := byte(len(body)>>8), byte(len(body))
		out = append(out, 0xFF, 0xFF, hi, lo, checksum(hi, lo))
	}
	out = append(out, body...)
	out = append(out, checksum(body...), postamble)
	return out
}

func TestMarshalFrame(t *testing.T) {
	tests := []struct {
		name string
		cmd  byte
		args []byte
		want []byte
	}{
		{
			name: "get firmware version",
			cmd:  cmdGetFirmwareVersion,
			want: []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00},
		},
		{
			name: "sam configuration",
			cmd:  cmdSAMConfiguration,
			args: []byte{0x01, 0x14, 0x01},
			want: []byte{0x00, 0x00, 0xFF, 0x05, 0xFB, 0xD4, 0x14, 0x01, 0x14, 0x01, 0x02, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, marshalFrame(tt.cmd, tt.args))
		})
	}
}

func TestMarshalFrameExtended(t *testing.T) {
	args := bytes.Repeat([]byte{0xAB}, 258)
	out := marshalFrame(cmdInDataExchange, args)

	require.Equal(t, []byte{0x00, 0x00, 0xFF, 0xFF, 0xFF}, out[:5])
	require.Equal(t, byte(0x01), out[5])
	require.Equal(t, byte(0x04), out[6])
	require.Equal(t, checksum(0x01, 0x04), out[7])
	require.Equal(t, byte(hostToPn532), out[8])
	require.Equal(t, byte(cmdInDataExchange), out[9])
}

func TestReadFrame(t *testing.T) {
	// Firmware response off a PN532 breakout: IC 0x32, firmware 1.6.
	raw := []byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00}

	code, body, err := readFrame(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, byte(0x03), code)
	require.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, body)
}

func TestReadFrameExtended(t *testing.T) {
	args := bytes.Repeat([]byte{0xCD}, 300)

	code, body, err := readFrame(bytes.NewReader(reply(0x41, args)))
	require.NoError(t, err)
	require.Equal(t, byte(0x41), code)
	require.Equal(t, args, body)
}

func TestReadFrameRejects(t *testing.T) {
	good := reply(0x03, []byte{0x32, 0x01, 0x06, 0x07})

	badStart := append([]byte(nil), good...)
	badStart[2] = 0x00

	badLen := append([]byte(nil), good...)
	badLen[4]++

	badData := append([]byte(nil), good...)
	badData[len(badData)-2]++

	badTail := append([]byte(nil), good...)
	badTail[len(badTail)-1] = 0xAA

	tests := []struct {
		name string
		raw  []byte
	}{
		{"bad start code", badStart},
		{"length checksum", badLen},
		{"data checksum", badData},
		{"bad postamble", badTail},
		{"ack where frame expected", ackFrame},
		{"application error", []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}},
		{"truncated", good[:6]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := readFrame(bytes.NewReader(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestReadAck(t *testing.T) {
	require.NoError(t, readAck(bytes.NewReader(ackFrame)))
	require.Error(t, readAck(bytes.NewReader([]byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00})))
	require.Error(t, readAck(bytes.NewReader(nil)))
}

type silentLine struct{}

func (silentLine) Read(p []byte) (int, error) { return 0, nil }

func TestTimeoutReaderBreaksSilence(t *testing.T) {
	buf := make([]byte, 1)
	_, err := timeoutReader{silentLine{}}.Read(buf)
	require.Error(t, err)
}
