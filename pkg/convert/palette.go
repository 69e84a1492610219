package convert

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette and resize mode names accepted by Options.
const (
	PalettePure  = "pure"
	PaletteTuned = "tuned"

	ResizeFit   = "fit"
	ResizeCover = "cover"
)

// Wire index order is fixed: 0 black, 1 white, 2 yellow, 3 red.
var purePalettes = map[int]color.Palette{
	2: {
		color.NRGBA{0x00, 0x00, 0x00, 0xff},
		color.NRGBA{0xff, 0xff, 0xff, 0xff},
	},
	4: {
		color.NRGBA{0x00, 0x00, 0x00, 0xff},
		color.NRGBA{0xff, 0xff, 0xff, 0xff},
		color.NRGBA{0xff, 0xff, 0x00, 0xff},
		color.NRGBA{0xff, 0x00, 0x00, 0xff},
	},
}

// Swatches measured off an actual panel. The "white" is a dull warm
// gray and the primaries sit well inside sRGB.
var tunedPalettes = map[int]color.Palette{
	2: {
		color.NRGBA{0x1e, 0x1e, 0x23, 0xff},
		color.NRGBA{0xd2, 0xcf, 0xc9, 0xff},
	},
	4: {
		color.NRGBA{0x1e, 0x1e, 0x23, 0xff},
		color.NRGBA{0xd2, 0xcf, 0xc9, 0xff},
		color.NRGBA{0xda, 0xbd, 0x3b, 0xff},
		color.NRGBA{0x9b, 0x3a, 0x2e, 0xff},
	},
}

// PaletteFor picks the wire-ordered palette for a color count and mode.
func PaletteFor(colors int, mode string) (color.Palette, error) {
	var palettes map[int]color.Palette
	switch mode {
	case PalettePure:
		palettes = purePalettes
	case PaletteTuned:
		palettes = tunedPalettes
	default:
		return nil, &UnknownPaletteModeError{Mode: mode}
	}

	pal, ok := palettes[colors]
	if !ok {
		return nil, &UnsupportedPaletteSizeError{Colors: colors}
	}
	return pal, nil
}

func labOf(c color.Color) (l, a, b float64) {
	r, g, bb, _ := c.RGBA()
	return colorful.Color{
		R: float64(r) / 0xffff,
		G: float64(g) / 0xffff,
		B: float64(bb) / 0xffff,
	}.Lab()
}

// lightest returns the palette entry with the highest lightness, used
// as the background behind fitted images.
func lightest(pal color.Palette) color.Color {
	best := pal[0]
	bestL := -1.0
	for _, c := range pal {
		if l, _, _ := labOf(c); l > bestL {
			best, bestL = c, l
		}
	}
	return best
}

// maxLightness is the brightest lightness the palette can show.
func maxLightness(pal color.Palette) float64 {
	l, _, _ := labOf(lightest(pal))
	return l
}
