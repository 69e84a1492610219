// Package pn532 drives a PN532 NFC reader over its serial host link and
// exposes the card in its field through the transport contract.
package pn532

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"inkcard/pkg/proto"
)

const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// wakeup lifts a board out of low VBAT mode before the first frame.
var wakeup = []byte{0x55, 0x55, 0x00, 0x00, 0x00}

type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
	PollDelay   time.Duration
}

func defaultOptions() *Options {
	return &Options{
		BaudRate:    115200,
		ReadTimeout: time.Second,
		PollDelay:   100 * time.Millisecond,
	}
}

// New prepares a reader on the serial port whose name contains name.
// Nothing is opened until Connect.
func New(name string, logger *zap.Logger, opts *Options) *Reader {
	if opts == nil {
		opts = defaultOptions()
	}
	return &Reader{name: name, log: logger, opts: opts}
}

type Reader struct {
	name string
	log  *zap.Logger
	opts *Options

	port   io.ReadWriteCloser
	ready  bool
	target byte
}

func (r *Reader) open() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return err
	}

	var matched string
	for _, name := range ports {
		if strings.Contains(name, r.name) {
			matched = name
			break
		}
	}
	if matched == "" {
		return errors.Errorf("no serial port matches %q (available: %s)", r.name, strings.Join(ports, ", "))
	}

	port, err := serial.Open(matched, &serial.Mode{BaudRate: r.opts.BaudRate})
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(r.opts.ReadTimeout); err != nil {
		port.Close()
		return err
	}

	r.log.With(zap.String("port", matched)).Debug("port open")
	r.port = port
	return nil
}

func (r *Reader) setup() error {
	if _, err := r.port.Write(wakeup); err != nil {
		return errors.Wrap(err, "wakeup")
	}

	if _, err := r.call(cmdSAMConfiguration, []byte{0x01, 0x14, 0x01}); err != nil {
		return errors.Wrap(err, "sam configuration")
	}

	// One activation retry per list attempt keeps the wait loop
	// responsive to cancellation.
	if _, err := r.call(cmdRFConfiguration, []byte{0x05, 0xFF, 0x01, 0x01}); err != nil {
		return errors.Wrap(err, "rf configuration")
	}

	fw, err := r.call(cmdGetFirmwareVersion, nil)
	if err != nil {
		return errors.Wrap(err, "firmware version")
	}
	if len(fw) >= 3 {
		r.log.With(
			zap.String("ic", fmt.Sprintf("pn5%02x", fw[0])),
			zap.String("firmware", fmt.Sprintf("%d.%d", fw[1], fw[2])),
		).Info("reader ready")
	}
	return nil
}

// Connect opens and configures the reader on first use, then waits for
// a card to enter the field.
func (r *Reader) Connect(ctx context.Context) error {
	if r.port == nil {
		if err := r.open(); err != nil {
			return &proto.TransportError{Op: "open", Err: err}
		}
	}
	if !r.ready {
		if err := r.setup(); err != nil {
			return &proto.TransportError{Op: "setup", Err: err}
		}
		r.ready = true
	}

	for {
		select {
		case <-ctx.Done():
			return &proto.TransportError{Op: "connect", Err: ctx.Err()}
		default:
		}

		target, uid, err := r.listTargets()
		if err != nil {
			return &proto.TransportError{Op: "connect", Err: err}
		}
		if target != 0 {
			r.target = target
			r.log.With(zap.String("uid", fmt.Sprintf("%x", uid))).Info("card present")
			return nil
		}
		time.Sleep(r.opts.PollDelay)
	}
}

// listTargets runs one passive activation attempt. A zero target means
// the field is still empty.
func (r *Reader) listTargets() (byte, []byte, error) {
	resp, err := r.call(cmdInListPassiveTarget, []byte{0x01, 0x00})
	if err != nil {
		return 0, nil, err
	}
	if len(resp) < 1 || resp[0] == 0 {
		return 0, nil, nil
	}
	if len(resp) < 6 {
		return 0, nil, errors.Errorf("short target info % x", resp)
	}

	uidLen := int(resp[5])
	if len(resp) < 6+uidLen {
		return 0, nil, errors.Errorf("short target info % x", resp)
	}
	return resp[1], resp[6 : 6+uidLen], nil
}

func (r *Reader) Exchange(cmd proto.Command) ([]byte, error) {
	if r.port == nil || r.target == 0 {
		return nil, &proto.TransportError{Op: "exchange", Err: errors.New("no card in field")}
	}

	out := make([]byte, 0, 1+5+len(cmd.Data)+1)
	out = append(out, r.target)
	out = append(out, cmd.APDU()...)

	resp, err := r.call(cmdInDataExchange, out)
	if err != nil {
		return nil, &proto.TransportError{Op: "exchange", Err: err}
	}
	if len(resp) < 1 {
		return nil, &proto.TransportError{Op: "exchange", Err: errors.New("empty reader response")}
	}
	if status := resp[0] & 0x3F; status != 0 {
		r.target = 0
		return nil, &proto.TransportError{Op: "exchange", Err: errors.Errorf("reader status %#02x", status)}
	}

	body := resp[1:]
	if len(body) < 2 {
		return nil, &proto.TransportError{Op: "exchange", Err: errors.New("response misses status word")}
	}

	sw1, sw2 := body[len(body)-2], body[len(body)-1]
	body = body[:len(body)-2]
	if cmd.CheckStatus && uint16(sw1)<<8|uint16(sw2) != proto.StatusOK {
		return nil, &proto.StatusError{SW1: sw1, SW2: sw2}
	}

	if cmd.MaxResponse > 0 && len(body) > cmd.MaxResponse {
		body = body[:cmd.MaxResponse]
	}
	return body, nil
}

// Close releases any held target and shuts the port.
func (r *Reader) Close() error {
	if r.port == nil {
		return nil
	}

	if r.target != 0 {
		_, _ = r.call(cmdInRelease, []byte{0x00})
		r.target = 0
	}

	err := r.port.Close()
	r.port = nil
	r.ready = false
	return err
}

// call writes one command frame and reads the acknowledged response.
func (r *Reader) call(cmd byte, args []byte) ([]byte, error) {
	if _, err := r.port.Write(marshalFrame(cmd, args)); err != nil {
		return nil, errors.Wrap(err, "write")
	}

	in := timeoutReader{r.port}
	if err := readAck(in); err != nil {
		return nil, errors.Wrap(err, "ack")
	}

	code, body, err := readFrame(in)
	if err != nil {
		return nil, err
	}
	if code != cmd+1 {
		return nil, errors.Errorf("response %#02x to command %#02x", code, cmd)
	}
	return body, nil
}

// timeoutReader turns the port's zero-byte timeout reads into errors so
// io.ReadFull cannot spin on a silent line.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, errors.New("read timeout")
	}
	return n, err
}
