package card

import (
	"image"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"inkcard/pkg/convert"
	"inkcard/pkg/frame"
	"inkcard/pkg/proto"
)

// SendImage converts img for the connected card and transfers it.
// The palette size defaults to the card's color count.
func (c *Card) SendImage(img image.Image, opts convert.Options) error {
	if c.info == nil {
		return errors.New("descriptor not resolved")
	}
	if opts.Colors == 0 {
		opts.Colors = c.info.NumColors()
	}

	grid, err := convert.Convert(img, c.info.Width, c.info.Height, opts)
	if err != nil {
		return err
	}
	return c.TransferImage(grid)
}

// TransferImage packs, compresses, and transfers a prepared color
// index grid.
func (c *Card) TransferImage(grid *image.Paletted) error {
	if c.info == nil {
		return errors.New("descriptor not resolved")
	}

	blocks, err := frame.Encode(grid, c.info)
	if err != nil {
		return err
	}
	return c.transfer(blocks)
}

// TransferBlocks transfers pre-packed framebuffer blocks, one payload
// per descriptor block.
func (c *Card) TransferBlocks(blocks [][]byte) error {
	return c.transfer(frame.EncodeBlocks(blocks))
}

// Clear paints the full panel with the lightest palette entry.
func (c *Card) Clear() error {
	if c.info == nil {
		return errors.New("descriptor not resolved")
	}

	pal, err := convert.PaletteFor(c.info.NumColors(), convert.PalettePure)
	if err != nil {
		return err
	}
	return c.TransferImage(convert.Solid(c.info.Width, c.info.Height, pal, 1))
}

func (c *Card) transfer(blocks [][]frame.Fragment) error {
	c.state = Transferring
	start := time.Now()

	frags := lo.Flatten(blocks)
	total := len(frags)
	sent := 0
	for i, f := range frags {
		cmd := proto.TransferFragment(c.page, f.Block, f.Index, f.Payload, f.Final)
		if _, err := c.send(cmd); err != nil {
			if c.state != Disconnected {
				c.state = DescriptorKnown
			}
			return errors.Wrapf(err, "block %d fragment %d", f.Block, f.Index)
		}

		sent += len(f.Payload)
		if c.progress != nil {
			c.progress(i+1, total)
		}
	}

	c.log.With(
		zap.Int("blocks", len(blocks)),
		zap.Int("fragments", total),
		zap.String("size", bytesize.New(float64(sent)).String()),
		zap.String("cost", time.Since(start).String()),
	).Info("transfer complete")

	c.state = DescriptorKnown
	return nil
}

// Refresh starts a panel redraw and polls until the card reports
// completion. Zero arguments pick the defaults.
func (c *Card) Refresh(timeout, pollInterval time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	if _, err := c.send(proto.RefreshStart(256)); err != nil {
		return err
	}
	c.state = Refreshing
	c.log.Debug("refresh started")

	start := time.Now()
	deadline := start.Add(timeout)
	polls := 0
	for time.Now().Before(deadline) {
		resp, err := c.send(proto.RefreshPoll())
		polls++
		if err != nil {
			var se *proto.StatusError
			if !errors.As(err, &se) {
				return err
			}
			// A status word during a redraw means busy, not failure.
		} else if proto.IsRefreshComplete(resp) {
			c.state = Idle
			c.log.With(
				zap.Int("polls", polls),
				zap.String("cost", time.Since(start).String()),
			).Info("refresh complete")
			return nil
		}
		time.Sleep(pollInterval)
	}

	return &RefreshTimeoutError{Timeout: timeout}
}

// WaitRemoval polls until the card leaves the field. Status words mean
// the card is still present; a transport failure means it is gone.
func (c *Card) WaitRemoval(pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	for {
		if _, err := c.send(proto.RefreshPoll()); err != nil {
			var se *proto.StatusError
			if !errors.As(err, &se) {
				c.log.Debug("card removed")
				return
			}
		}
		time.Sleep(pollInterval)
	}
}
