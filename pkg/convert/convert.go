// Package convert quantizes arbitrary images into the card's indexed
// palette: resize to the panel, optional lightness tone mapping, then
// error-diffusion dithering in a perceptual color space.
package convert

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Options select how an image becomes an index grid. Zero values take
// the defaults noted per field.
type Options struct {
	Colors  int    // palette size, 2 or 4 (default 4)
	Palette string // pure or tuned (default pure)
	Dither  string // dithering method (default classic)
	Resize  string // fit or cover (default fit)

	// ToneMap compresses source lightness into the palette's range.
	// nil means automatic: on for the tuned palette.
	ToneMap *bool
}

func (o Options) withDefaults() Options {
	if o.Colors == 0 {
		o.Colors = 4
	}
	if o.Palette == "" {
		o.Palette = PalettePure
	}
	if o.Dither == "" {
		o.Dither = DitherClassic
	}
	if o.Resize == "" {
		o.Resize = ResizeFit
	}
	return o
}

func (o Options) toneMapOn() bool {
	if o.ToneMap != nil {
		return *o.ToneMap
	}
	return o.Palette == PaletteTuned
}

// Convert quantizes img into a width by height grid of palette
// indices. All option validation happens before any pixel work.
func Convert(img image.Image, width, height int, opts Options) (*image.Paletted, error) {
	opts = opts.withDefaults()

	pal, err := PaletteFor(opts.Colors, opts.Palette)
	if err != nil {
		return nil, err
	}
	if !knownDither(opts.Dither) {
		return nil, &UnknownDitherError{Method: opts.Dither}
	}
	if opts.Resize != ResizeFit && opts.Resize != ResizeCover {
		return nil, &UnknownResizeModeError{Mode: opts.Resize}
	}

	src := img
	if opts.toneMapOn() {
		src = toneMap(src, maxLightness(pal))
	}

	fitted := resizeTo(src, width, height, opts.Resize, lightest(pal))

	if opts.Dither == DitherClassic {
		return ditherClassic(fitted, pal), nil
	}
	return ditherLab(fitted, pal, kernels[opts.Dither]), nil
}

// resizeTo scales to exactly width by height. Fit keeps the whole
// image and pads with the background; cover fills the frame and crops.
func resizeTo(img image.Image, width, height int, mode string, bg color.Color) *image.NRGBA {
	if mode == ResizeCover {
		return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	}

	b := img.Bounds()
	scale := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	nw := int(float64(b.Dx()) * scale)
	nh := int(float64(b.Dy()) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	resized := imaging.Resize(img, nw, nh, imaging.Lanczos)
	return imaging.PasteCenter(imaging.New(width, height, bg), resized)
}

// toneMap rescales lightness so source white lands on the palette's
// brightest swatch instead of clipping against it.
func toneMap(img image.Image, maxL float64) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		l, a, b := colorful.Color{
			R: float64(out.Pix[i]) / 255,
			G: float64(out.Pix[i+1]) / 255,
			B: float64(out.Pix[i+2]) / 255,
		}.Lab()

		mapped := colorful.Lab(l*maxL, a, b).Clamped()
		out.Pix[i] = uint8(mapped.R*255 + 0.5)
		out.Pix[i+1] = uint8(mapped.G*255 + 0.5)
		out.Pix[i+2] = uint8(mapped.B*255 + 0.5)
	}
	return out
}

// Solid builds a uniform grid of one palette index.
func Solid(width, height int, pal color.Palette, index uint8) *image.Paletted {
	g := image.NewPaletted(image.Rect(0, 0, width, height), pal)
	for i := range g.Pix {
		g.Pix[i] = index
	}
	return g
}
