package device

import (
	"encoding/hex"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return b
}

// Descriptor captured from a 2.9" two-color card.
const goldenDescriptor = "a0 07 f0 01 20 00 80 01 28" +
	" a1 07 00 12 00 30 ff ff ff" +
	" b1 01 2e" +
	" b2 01 14" +
	" b3 01 00" +
	" c0 0a 53 45 41 41 30 30 30 32 38 32" +
	" c1 04 22 ab 50 52" +
	" d1 07 01 20 00 00 00 00 00"

func TestParseGolden(t *testing.T) {
	d, err := Parse(mustHex(t, goldenDescriptor))
	require.NoError(t, err)

	require.Equal(t, 296, d.Width)
	require.Equal(t, 128, d.Height)
	require.Equal(t, 1, d.BitsPerPixel)
	require.Equal(t, 32, d.RowsPerBlock)
	require.Equal(t, "SEAA000282", d.Serial)
	require.Equal(t, []byte{0x22, 0xab, 0x50, 0x52}, d.Aux)

	require.True(t, d.Rotated)
	require.False(t, d.HFlip)
	require.Equal(t, 128, d.FBWidth)
	require.Equal(t, 296, d.FBHeight)

	require.Equal(t, 2, d.NumColors())
	require.Equal(t, 8, d.PixelsPerByte())
	require.Equal(t, 37, d.BytesPerRow())
	require.Equal(t, 16, d.FBBytesPerRow())
	require.Equal(t, 4736, d.FBTotalBytes())
	require.Equal(t, []int{2000, 2000, 736}, d.BlockSizes)
	require.Equal(t, 3, d.NumBlocks())
}

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		name       string
		panel      string
		width      int
		height     int
		bpp        int
		rotated    bool
		hflip      bool
		fbWidth    int
		fbHeight   int
		blockSizes []int
	}{
		{
			name:       "four color 4.2 inch",
			panel:      "a0 07 00 02 14 02 58 01 90",
			width:      400,
			height:     300,
			bpp:        2,
			fbWidth:    400,
			fbHeight:   300,
			blockSizes: []int{2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000},
		},
		{
			name:       "two color 4.2 inch",
			panel:      "a0 07 00 01 14 01 2c 01 90",
			width:      400,
			height:     300,
			bpp:        1,
			fbWidth:    400,
			fbHeight:   300,
			blockSizes: []int{2000, 2000, 2000, 2000, 2000, 2000, 2000, 1000},
		},
		{
			name:       "portrait report of a rotated panel",
			panel:      "a0 07 00 01 20 01 28 00 80",
			width:      296,
			height:     128,
			bpp:        1,
			rotated:    true,
			fbWidth:    128,
			fbHeight:   296,
			blockSizes: []int{2000, 2000, 736},
		},
		{
			name:       "portrait report of an unknown panel",
			panel:      "a0 07 00 01 10 00 d0 00 68",
			width:      208,
			height:     104,
			bpp:        1,
			hflip:      true,
			fbWidth:    208,
			fbHeight:   104,
			blockSizes: []int{2000, 704},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(mustHex(t, tt.panel))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			if d.Width != tt.width || d.Height != tt.height {
				t.Errorf("display = %dx%d, want %dx%d", d.Width, d.Height, tt.width, tt.height)
			}
			if d.BitsPerPixel != tt.bpp {
				t.Errorf("bpp = %d, want %d", d.BitsPerPixel, tt.bpp)
			}
			if d.Rotated != tt.rotated || d.HFlip != tt.hflip {
				t.Errorf("rotated=%v hflip=%v, want rotated=%v hflip=%v", d.Rotated, d.HFlip, tt.rotated, tt.hflip)
			}
			if d.Rotated && d.HFlip {
				t.Error("rotation and flip compensation must be exclusive")
			}
			if d.FBWidth != tt.fbWidth || d.FBHeight != tt.fbHeight {
				t.Errorf("framebuffer = %dx%d, want %dx%d", d.FBWidth, d.FBHeight, tt.fbWidth, tt.fbHeight)
			}

			if !reflect.DeepEqual(d.BlockSizes, tt.blockSizes) {
				t.Errorf("blocks = %v, want %v", d.BlockSizes, tt.blockSizes)
			}
			if sum := lo.SumBy(d.BlockSizes, func(n int) int { return n }); sum != d.FBTotalBytes() {
				t.Errorf("block sizes sum to %d, framebuffer holds %d", sum, d.FBTotalBytes())
			}
		})
	}
}

func TestParseUnknownColorMode(t *testing.T) {
	_, err := Parse(mustHex(t, "a0 07 00 03 20 00 80 01 28"))

	var ucm *UnknownColorModeError
	require.ErrorAs(t, err, &ucm)
	require.Equal(t, byte(0x03), ucm.Code)
	require.Equal(t, mustHex(t, "00 03 20 00 80 01 28"), ucm.Tag)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no panel record", "c0 03 41 42 43"},
		{"short panel record", "a0 05 00 01 20 00 80"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(mustHex(t, tt.raw))

			var md *MalformedDescriptorError
			if !errors.As(err, &md) {
				t.Fatalf("err = %v, want MalformedDescriptorError", err)
			}
		})
	}
}

func TestParseKeepsRaw(t *testing.T) {
	raw := mustHex(t, goldenDescriptor)
	d, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, raw, d.Raw)
}
