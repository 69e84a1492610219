// Package frame turns a quantized pixel grid into the card's transfer
// form: rotated, packed, split into blocks, compressed, fragmented.
package frame

import (
	"image"

	"github.com/pkg/errors"

	"inkcard/pkg/device"
	"inkcard/pkg/proto"
)

// Fragment is one transfer-sized slice of a compressed block. Final
// marks the last fragment of its block.
type Fragment struct {
	Block   uint8
	Index   uint8
	Payload []byte
	Final   bool
}

// Rotate returns the grid turned a quarter turn clockwise, so a
// landscape image lands in a portrait framebuffer.
func Rotate(grid *image.Paletted) *image.Paletted {
	b := grid.Bounds()
	w, h := b.Dx(), b.Dy()

	out := image.NewPaletted(image.Rect(0, 0, h, w), grid.Palette)
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			out.SetColorIndex(x, y, grid.ColorIndexAt(b.Min.X+y, b.Min.Y+h-1-x))
		}
	}
	return out
}

func mirrorRows(grid *image.Paletted) *image.Paletted {
	b := grid.Bounds()
	w, h := b.Dx(), b.Dy()

	out := image.NewPaletted(image.Rect(0, 0, w, h), grid.Palette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetColorIndex(x, y, grid.ColorIndexAt(b.Min.X+w-1-x, b.Min.Y+y))
		}
	}
	return out
}

// PackRow packs one row of color indices. Byte order runs right to
// left: the rightmost pixel group becomes the first byte, with pixels
// filling each byte from the low bits up.
func PackRow(pixels []uint8, bitsPerPixel int) []byte {
	ppb := 8 / bitsPerPixel
	out := make([]byte, len(pixels)/ppb)

	for i := range out {
		off := (len(out) - 1 - i) * ppb
		var b byte
		for j := 0; j < ppb; j++ {
			b |= pixels[off+j] << (j * bitsPerPixel)
		}
		out[i] = b
	}
	return out
}

// Pack renders the grid into the card's framebuffer byte layout,
// applying the descriptor's rotation or flip correction first.
func Pack(grid *image.Paletted, d *device.DeviceInfo) ([]byte, error) {
	b := grid.Bounds()
	if b.Dx() != d.Width || b.Dy() != d.Height {
		return nil, errors.Errorf("grid is %dx%d, display is %dx%d", b.Dx(), b.Dy(), d.Width, d.Height)
	}

	fb := grid
	if d.HFlip {
		fb = mirrorRows(fb)
	}
	if d.Rotated {
		fb = Rotate(fb)
	}

	out := make([]byte, 0, d.FBTotalBytes())
	for y := 0; y < d.FBHeight; y++ {
		row := fb.Pix[y*fb.Stride : y*fb.Stride+d.FBWidth]
		out = append(out, PackRow(row, d.BitsPerPixel)...)
	}
	return out, nil
}

// Split cuts packed framebuffer bytes into the descriptor's blocks.
func Split(packed []byte, sizes []int) ([][]byte, error) {
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total != len(packed) {
		return nil, errors.Errorf("packed %d bytes, blocks hold %d", len(packed), total)
	}

	out := make([][]byte, 0, len(sizes))
	for _, n := range sizes {
		out = append(out, packed[:n])
		packed = packed[n:]
	}
	return out, nil
}

// Fragments slices one compressed block into transfer-sized pieces.
func Fragments(block uint8, compressed []byte) []Fragment {
	var out []Fragment
	for i := 0; i < len(compressed); i += proto.MaxFragmentData {
		end := i + proto.MaxFragmentData
		if end > len(compressed) {
			end = len(compressed)
		}
		out = append(out, Fragment{
			Block:   block,
			Index:   uint8(len(out)),
			Payload: compressed[i:end],
			Final:   end == len(compressed),
		})
	}
	return out
}

// Encode runs the whole pipeline: pack, split, then compress and
// fragment each block independently.
func Encode(grid *image.Paletted, d *device.DeviceInfo) ([][]Fragment, error) {
	packed, err := Pack(grid, d)
	if err != nil {
		return nil, err
	}

	blocks, err := Split(packed, d.BlockSizes)
	if err != nil {
		return nil, err
	}

	return EncodeBlocks(blocks), nil
}

// EncodeBlocks compresses and fragments raw framebuffer blocks as
// given, bypassing pack and split.
func EncodeBlocks(blocks [][]byte) [][]Fragment {
	out := make([][]Fragment, 0, len(blocks))
	for i, block := range blocks {
		out = append(out, Fragments(uint8(i), Compress(block)))
	}
	return out
}

// SolidBlock builds a raw block with one color index in every pixel
// slot.
func SolidBlock(d *device.DeviceInfo, index uint8, size int) []byte {
	var fill byte
	for j := 0; j < d.PixelsPerByte(); j++ {
		fill |= index << (j * d.BitsPerPixel)
	}

	out := make([]byte, size)
	for i := range out {
		out[i] = fill
	}
	return out
}
