// Package card drives one touch session against an e-ink display card:
// connect, authenticate, resolve the descriptor, transfer a frame,
// refresh the panel. Nothing carries over between touches.
package card

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"inkcard/pkg/device"
	"inkcard/pkg/proto"
)

const (
	DefaultRefreshTimeout = 30 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

type Option func(c *Card)

// WithPage selects the transfer page for devices with a split address
// space. Every capture so far uses page 0.
func WithPage(page byte) Option {
	return func(c *Card) {
		c.page = page
	}
}

// WithProgress reports transfer progress after each sent fragment.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Card) {
		c.progress = fn
	}
}

func New(tr proto.Transport, logger *zap.Logger, opts ...Option) *Card {
	c := &Card{
		tr:   tr,
		base: logger,
		log:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Card struct {
	tr       proto.Transport
	base     *zap.Logger
	log      *zap.Logger
	page     byte
	progress func(done, total int)

	state State
	touch string
	info  *device.DeviceInfo
}

// State reports the current session phase.
func (c *Card) State() State {
	return c.state
}

// Info is the resolved descriptor, nil before ReadDeviceInfo.
func (c *Card) Info() *device.DeviceInfo {
	return c.info
}

// Serial is the card's identifier, empty before ReadDeviceInfo.
func (c *Card) Serial() string {
	if c.info == nil {
		return ""
	}
	return c.info.Serial
}

// Connect blocks until a card is present, then tags the new touch
// session for logging.
func (c *Card) Connect(ctx context.Context) error {
	c.state = Connecting
	if err := c.tr.Connect(ctx); err != nil {
		c.state = Disconnected
		return err
	}

	c.touch = xid.New().String()
	c.log = c.base.With(zap.String("touch", c.touch))
	c.log.Debug("card present")
	return nil
}

// Authenticate unlocks the card for this touch.
func (c *Card) Authenticate() error {
	if _, err := c.send(proto.Authenticate()); err != nil {
		return &AuthenticationError{Err: err}
	}

	c.state = Authenticated
	c.log.Debug("authenticated")
	return nil
}

// ReadDeviceInfo queries and resolves the descriptor.
func (c *Card) ReadDeviceInfo() (*device.DeviceInfo, error) {
	resp, err := c.send(proto.QueryDescriptor())
	if err != nil {
		return nil, err
	}

	info, err := device.Parse(resp)
	if err != nil {
		return nil, err
	}

	c.info = info
	c.state = DescriptorKnown
	c.log.With(zap.String("device", info.String())).Info("descriptor resolved")
	return info, nil
}

// Setup runs the standard touch sequence: wait for a card, unlock it,
// resolve its descriptor.
func (c *Card) Setup(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if err := c.Authenticate(); err != nil {
		return err
	}
	_, err := c.ReadDeviceInfo()
	return err
}

// PanelType asks for the panel model string.
func (c *Card) PanelType() (string, error) {
	resp, err := c.send(proto.QueryPanelType())
	if err != nil {
		return "", err
	}
	return trimASCII(resp), nil
}

// Close releases the transport. Safe to call on any path.
func (c *Card) Close() error {
	c.state = Disconnected
	return c.tr.Close()
}

// send runs one exchange, logs it, and downgrades the session on
// transport loss.
func (c *Card) send(cmd proto.Command) ([]byte, error) {
	start := time.Now()
	resp, err := c.tr.Exchange(cmd)
	cost := time.Since(start)

	if err != nil {
		var se *proto.StatusError
		if !errors.As(err, &se) {
			c.state = Disconnected
		}
		return nil, err
	}

	ext := ""
	if len(cmd.Data) <= 16 {
		ext = fmt.Sprintf("%x", cmd.Data)
	}

	c.log.With(
		zap.String("ins", fmt.Sprintf("%02x", cmd.Ins)),
		zap.Int("sent", len(cmd.Data)),
		zap.Int("recv", len(resp)),
		zap.String("cost", cost.String()),
		zap.String("data", ext),
	).Debug("exchange")

	return resp, nil
}

func trimASCII(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0x00 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}
