// Package virtual simulates a display card in software. It answers the
// full command set from a fixed descriptor, reassembles and verifies
// transferred frames, and lets the tools run with no reader attached.
package virtual

import (
	"bytes"
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"inkcard/pkg/device"
	"inkcard/pkg/frame"
	"inkcard/pkg/proto"
)

// Descriptor of a 2.9" two-color card, the panel most captures came from.
var defaultDescriptor = []byte{
	0xa0, 0x07, 0xf0, 0x01, 0x20, 0x00, 0x80, 0x01, 0x28,
	0xa1, 0x07, 0x00, 0x12, 0x00, 0x30, 0xff, 0xff, 0xff,
	0xb1, 0x01, 0x2e,
	0xb2, 0x01, 0x14,
	0xb3, 0x01, 0x00,
	0xc0, 0x0a, 'S', 'E', 'A', 'A', '0', '0', '0', '2', '8', '2',
	0xc1, 0x04, 0x22, 0xab, 0x50, 0x52,
	0xd1, 0x07, 0x01, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00,
}

type Option func(c *Card)

// WithDescriptor swaps in another raw descriptor. It must parse.
func WithDescriptor(raw []byte) Option {
	return func(c *Card) {
		c.descriptor = raw
	}
}

// WithPanelType sets the panel model string.
func WithPanelType(name string) Option {
	return func(c *Card) {
		c.panelType = name
	}
}

// WithRefreshPolls sets how many busy polls precede a completed refresh.
func WithRefreshPolls(n int) Option {
	return func(c *Card) {
		c.refreshPolls = n
	}
}

// New builds a simulated card. The descriptor must parse, or the first
// Exchange of a query will fail the session.
func New(logger *zap.Logger, opts ...Option) *Card {
	c := &Card{
		log:          logger,
		descriptor:   defaultDescriptor,
		panelType:    "GDEW029T5",
		refreshPolls: 2,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.info, _ = device.Parse(c.descriptor)
	return c
}

// Card is a simulated display card behind the transport interface.
type Card struct {
	log          *zap.Logger
	descriptor   []byte
	panelType    string
	refreshPolls int
	info         *device.DeviceInfo

	mu        sync.Mutex
	present   bool
	unlocked  bool
	partial   map[uint8][]byte
	nextIndex map[uint8]uint8
	fb        []byte
	pending   []byte
	busyPolls int
	refreshes int
}

func (c *Card) Connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &proto.TransportError{Op: "connect", Err: ctx.Err()}
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = true
	c.unlocked = false
	c.partial = map[uint8][]byte{}
	c.nextIndex = map[uint8]uint8{}
	c.pending = make([]byte, c.totalBytes())
	c.log.Info("card present")
	return nil
}

func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = false
	c.log.Info("card released")
	return nil
}

// Remove pulls the simulated card out of the field. Every later
// exchange fails like a lost target until the next Connect.
func (c *Card) Remove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = false
	c.log.Info("card removed")
}

// Framebuffer is the last fully transferred frame, decompressed and in
// framebuffer byte order. Nil until a transfer completes.
func (c *Card) Framebuffer() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fb
}

// Refreshes counts completed refresh cycles.
func (c *Card) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func (c *Card) Exchange(cmd proto.Command) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present {
		return nil, &proto.TransportError{Op: "exchange", Err: errors.New("no card in field")}
	}

	resp, status := c.handle(cmd)
	if status != proto.StatusOK && cmd.CheckStatus {
		return nil, &proto.StatusError{SW1: byte(status >> 8), SW2: byte(status)}
	}
	return resp, nil
}

func (c *Card) handle(cmd proto.Command) ([]byte, uint16) {
	switch cmd.Ins {
	case 0x20:
		if !bytes.Equal(cmd.Data, proto.AuthKey) {
			return nil, 0x6300
		}
		c.unlocked = true
		return nil, proto.StatusOK

	case 0xD1:
		return c.descriptor, proto.StatusOK

	case 0xD8:
		return []byte(c.panelType), proto.StatusOK

	case 0xD3:
		return nil, c.acceptFragment(cmd)

	case 0xD4:
		c.busyPolls = c.refreshPolls
		return nil, proto.StatusOK

	case 0xDE:
		if c.busyPolls > 0 {
			c.busyPolls--
			if c.busyPolls == 0 {
				c.refreshes++
			}
			return []byte{0x01}, proto.StatusOK
		}
		return []byte{0x00}, proto.StatusOK
	}

	return nil, 0x6D00
}

// acceptFragment runs the card's transfer bookkeeping: fragments must
// arrive in order, and a finished block must decompress to its exact
// slot in the framebuffer.
func (c *Card) acceptFragment(cmd proto.Command) uint16 {
	if !c.unlocked {
		return 0x6982
	}
	if c.info == nil || len(cmd.Data) < 2 {
		return 0x6A80
	}

	block, index := cmd.Data[0], cmd.Data[1]
	if int(block) >= c.info.NumBlocks() || index != c.nextIndex[block] {
		return 0x6A80
	}

	c.partial[block] = append(c.partial[block], cmd.Data[2:]...)
	c.nextIndex[block] = index + 1

	if cmd.P2 != 0x01 {
		return proto.StatusOK
	}

	size := c.info.BlockSizes[block]
	raw, err := frame.Decompress(c.partial[block], size)
	if err != nil {
		c.resetBlock(block)
		return 0x6F00
	}

	copy(c.pending[c.blockOffset(block):], raw)
	c.resetBlock(block)

	if block == uint8(c.info.NumBlocks()-1) {
		c.fb = append([]byte(nil), c.pending...)
		c.log.With(zap.Int("bytes", len(c.fb))).Info("frame received")
	}
	return proto.StatusOK
}

func (c *Card) resetBlock(block uint8) {
	delete(c.partial, block)
	c.nextIndex[block] = 0
}

func (c *Card) blockOffset(block uint8) int {
	off := 0
	for i := 0; i < int(block); i++ {
		off += c.info.BlockSizes[i]
	}
	return off
}

func (c *Card) totalBytes() int {
	if c.info == nil {
		return 0
	}
	return c.info.FBTotalBytes()
}
