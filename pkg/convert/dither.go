package convert

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/makeworld-the-better-one/dither/v2"
)

// Dither method names accepted by Options.
const (
	DitherClassic        = "classic"
	DitherAtkinson       = "atkinson"
	DitherFloydSteinberg = "floyd-steinberg"
	DitherJarvis         = "jarvis"
	DitherStucki         = "stucki"
	DitherNone           = "none"
)

type tap struct {
	dx, dy int
	weight float64
}

// Diffusion kernels. Taps reach only forward on the current row and
// down to later rows, so every error lands on an unquantized pixel.
var kernels = map[string][]tap{
	DitherFloydSteinberg: {
		{1, 0, 7.0 / 16}, {-1, 1, 3.0 / 16}, {0, 1, 5.0 / 16}, {1, 1, 1.0 / 16},
	},
	DitherAtkinson: {
		{1, 0, 1.0 / 8}, {2, 0, 1.0 / 8},
		{-1, 1, 1.0 / 8}, {0, 1, 1.0 / 8}, {1, 1, 1.0 / 8},
		{0, 2, 1.0 / 8},
	},
	DitherJarvis: {
		{1, 0, 7.0 / 48}, {2, 0, 5.0 / 48},
		{-2, 1, 3.0 / 48}, {-1, 1, 5.0 / 48}, {0, 1, 7.0 / 48}, {1, 1, 5.0 / 48}, {2, 1, 3.0 / 48},
		{-2, 2, 1.0 / 48}, {-1, 2, 3.0 / 48}, {0, 2, 5.0 / 48}, {1, 2, 3.0 / 48}, {2, 2, 1.0 / 48},
	},
	DitherStucki: {
		{1, 0, 8.0 / 42}, {2, 0, 4.0 / 42},
		{-2, 1, 2.0 / 42}, {-1, 1, 4.0 / 42}, {0, 1, 8.0 / 42}, {1, 1, 4.0 / 42}, {2, 1, 2.0 / 42},
		{-2, 2, 1.0 / 42}, {-1, 2, 2.0 / 42}, {0, 2, 4.0 / 42}, {1, 2, 2.0 / 42}, {2, 2, 1.0 / 42},
	},
	DitherNone: nil,
}

func knownDither(method string) bool {
	if method == DitherClassic {
		return true
	}
	_, ok := kernels[method]
	return ok
}

// ditherLab quantizes in CIE Lab with error diffusion. Ties between
// palette entries resolve to the lowest index.
func ditherLab(src *image.NRGBA, pal color.Palette, taps []tap) *image.Paletted {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	planeL := make([]float64, w*h)
	planeA := make([]float64, w*h)
	planeB := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			l, a, bb := colorful.Color{
				R: float64(src.Pix[i]) / 255,
				G: float64(src.Pix[i+1]) / 255,
				B: float64(src.Pix[i+2]) / 255,
			}.Lab()
			planeL[y*w+x], planeA[y*w+x], planeB[y*w+x] = l, a, bb
		}
	}

	palL := make([]float64, len(pal))
	palA := make([]float64, len(pal))
	palB := make([]float64, len(pal))
	for i, c := range pal {
		palL[i], palA[i], palB[i] = labOf(c)
	}

	out := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			l, a, bb := planeL[p], planeA[p], planeB[p]

			best := 0
			bestDist := -1.0
			for i := range pal {
				dl, da, db := l-palL[i], a-palA[i], bb-palB[i]
				dist := dl*dl + da*da + db*db
				if bestDist < 0 || dist < bestDist {
					best, bestDist = i, dist
				}
			}
			out.SetColorIndex(x, y, uint8(best))

			el, ea, eb := l-palL[best], a-palA[best], bb-palB[best]
			for _, t := range taps {
				nx, ny := x+t.dx, y+t.dy
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				planeL[n] += el * t.weight
				planeA[n] += ea * t.weight
				planeB[n] += eb * t.weight
			}
		}
	}
	return out
}

// ditherClassic is the fast path: plain sRGB distance with the stock
// Floyd-Steinberg matrix.
func ditherClassic(src *image.NRGBA, pal color.Palette) *image.Paletted {
	d := dither.NewDitherer(pal)
	d.Matrix = dither.FloydSteinberg
	return d.DitherPaletted(src)
}
