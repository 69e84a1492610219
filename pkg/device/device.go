// Package device resolves the card's TLV descriptor into usable display
// geometry, undoing the firmware's reporting quirks along the way.
package device

import (
	"fmt"

	"inkcard/pkg/proto"
)

// colorModes maps the descriptor's color-mode code to a bit depth.
var colorModes = map[byte]int{
	0x01: 1,
	0x02: 2,
}

type resolution struct {
	w, h int
}

// rotatedPanels lists landscape resolutions whose framebuffer is stored
// rotated a quarter turn clockwise.
var rotatedPanels = map[resolution]bool{
	{296, 128}: true,
}

// DeviceInfo is the resolved descriptor. Width and Height are the display
// as the user sees it; FBWidth and FBHeight are the framebuffer the card
// actually stores. At most one of Rotated and HFlip is set.
type DeviceInfo struct {
	Width        int
	Height       int
	BitsPerPixel int
	RowsPerBlock int
	Serial       string
	Aux          []byte
	Rotated      bool
	HFlip        bool
	FBWidth      int
	FBHeight     int
	BlockSizes   []int
	Raw          []byte
}

// Parse resolves a raw descriptor response.
func Parse(raw []byte) (*DeviceInfo, error) {
	tlv := ParseTLV(raw)

	panel, ok := tlv[TagPanel]
	if !ok || len(panel) < 7 {
		return nil, &MalformedDescriptorError{Raw: raw}
	}

	bpp, ok := colorModes[panel[1]]
	if !ok {
		return nil, &UnknownColorModeError{Code: panel[1], Tag: panel}
	}

	// The height field arrives premultiplied by the bit depth.
	width := int(panel[5])<<8 | int(panel[6])
	height := (int(panel[3])<<8 | int(panel[4])) / bpp

	var swapped bool
	if width < height {
		width, height = height, width
		swapped = true
	}

	rotated := rotatedPanels[resolution{width, height}]

	d := &DeviceInfo{
		Width:        width,
		Height:       height,
		BitsPerPixel: bpp,
		RowsPerBlock: int(panel[2]),
		Rotated:      rotated,
		HFlip:        swapped && !rotated,
		FBWidth:      width,
		FBHeight:     height,
		Raw:          raw,
	}

	if rotated {
		d.FBWidth, d.FBHeight = height, width
	}

	if serial, ok := tlv[TagSerial]; ok {
		d.Serial = string(serial)
	}
	if aux, ok := tlv[TagAux]; ok {
		d.Aux = aux
	}

	total := d.FBTotalBytes()
	for total > 0 {
		size := total
		if size > proto.MaxBlockSize {
			size = proto.MaxBlockSize
		}
		d.BlockSizes = append(d.BlockSizes, size)
		total -= size
	}

	return d, nil
}

// NumColors is the palette size implied by the bit depth.
func (d *DeviceInfo) NumColors() int {
	return 1 << d.BitsPerPixel
}

// PixelsPerByte is how many pixels pack into one framebuffer byte.
func (d *DeviceInfo) PixelsPerByte() int {
	return 8 / d.BitsPerPixel
}

// BytesPerRow is the packed size of one display row. For rotated panels
// this differs from the framebuffer row size.
func (d *DeviceInfo) BytesPerRow() int {
	return d.Width * d.BitsPerPixel / 8
}

// FBBytesPerRow is the packed size of one framebuffer row.
func (d *DeviceInfo) FBBytesPerRow() int {
	return d.FBWidth * d.BitsPerPixel / 8
}

// FBTotalBytes is the packed size of the whole framebuffer.
func (d *DeviceInfo) FBTotalBytes() int {
	return d.FBBytesPerRow() * d.FBHeight
}

// NumBlocks is the transfer block count.
func (d *DeviceInfo) NumBlocks() int {
	return len(d.BlockSizes)
}

func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%dx%d %dbpp blocks=%d serial=%s", d.Width, d.Height, d.BitsPerPixel, d.NumBlocks(), d.Serial)
}
