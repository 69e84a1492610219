package pn532

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Host serial framing per the PN532 user manual.
const (
	preamble    = 0x00
	startCode1  = 0x00
	startCode2  = 0xFF
	postamble   = 0x00
	hostToPn532 = 0xD4
	pn532ToHost = 0xD5
	errorTFI    = 0x7F

	// maxStandardLen is the largest body a single-byte length field can
	// describe. Longer bodies use the extended frame form.
	maxStandardLen = 255
)

var ackFrame = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}

// checksum is the two's complement of the byte sum, so that the bytes
// plus their checksum add up to zero.
func checksum(bs ...byte) byte {
	var sum byte
	for _, b := range bs {
		sum += b
	}
	return -sum
}

// marshalFrame wraps one command in the wire envelope. A transfer
// fragment APDU overflows the standard form, so large bodies switch to
// the extended length encoding.
func marshalFrame(cmd byte, args []byte) []byte {
	body := make([]byte, 0, 2+len(args))
	body = append(body, hostToPn532, cmd)
	body = append(body, args...)

	out := make([]byte, 0, len(body)+11)
	out = append(out, preamble, startCode1, startCode2)

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

// readAck consumes the flow-control frame the reader sends before every
// response.
func readAck(r io.Reader) error {
	buf := make([]byte, len(ackFrame))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, ackFrame) {
		return errors.Errorf("bad ack % x", buf)
	}
	return nil
}

// readFrame reads one reply, verifies both checksums, and returns the
// response code with its payload.
func readFrame(r io.Reader) (byte, []byte, error) {
	head := make([]byte, 5)
	if _, err := io.ReadFull(r, head); err != nil {
		return 0, nil, err
	}
	if head[0] != preamble || head[1] != startCode1 || head[2] != startCode2 {
		return 0, nil, errors.Errorf("bad frame start % x", head[:3])
	}

	var length int
	switch {
	case head[3] == 0xFF && head[4] == 0xFF:
		ext := make([]byte, 3)
		if _, err := io.ReadFull(r, ext); err != nil {
			return 0, nil, err
		}
		if checksum(ext[0], ext[1]) != ext[2] {
			return 0, nil, errors.New("length checksum mismatch")
		}
		length = int(ext[0])<<8 | int(ext[1])
	case checksum(head[3]) == head[4]:
		length = int(head[3])
	default:
		return 0, nil, errors.New("length checksum mismatch")
	}

	if length == 0 {
		return 0, nil, errors.New("empty frame body")
	}

	body := make([]byte, length+2)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	dcs, tail := body[length], body[length+1]
	body = body[:length]

	if checksum(body...) != dcs {
		return 0, nil, errors.New("data checksum mismatch")
	}
	if tail != postamble {
		return 0, nil, errors.Errorf("bad postamble %#02x", tail)
	}

	if body[0] == errorTFI {
		return 0, nil, errors.New("reader reported a frame error")
	}
	if len(body) < 2 || body[0] != pn532ToHost {
		return 0, nil, errors.Errorf("bad frame body % x", body)
	}
	return body[1], body[2:], nil
}
