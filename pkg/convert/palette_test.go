package convert

import (
	"image/color"
	"testing"
)

func TestPaletteWireOrder(t *testing.T) {
	for _, mode := range []string{PalettePure, PaletteTuned} {
		for _, n := range []int{2, 4} {
			pal, err := PaletteFor(n, mode)
			if err != nil {
				t.Fatalf("PaletteFor(%d, %s): %v", n, mode, err)
			}
			if len(pal) != n {
				t.Fatalf("palette has %d entries, want %d", len(pal), n)
			}

			l0, _, _ := labOf(pal[0])
			l1, _, _ := labOf(pal[1])
			if l0 >= l1 {
				t.Errorf("%s/%d: index 0 must be darker than index 1", mode, n)
			}
		}
	}

	pure, _ := PaletteFor(4, PalettePure)
	if pure[0] != (color.NRGBA{0x00, 0x00, 0x00, 0xff}) {
		t.Error("pure index 0 is not black")
	}
	if pure[1] != (color.NRGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Error("pure index 1 is not white")
	}
	if pure[2] != (color.NRGBA{0xff, 0xff, 0x00, 0xff}) {
		t.Error("pure index 2 is not yellow")
	}
	if pure[3] != (color.NRGBA{0xff, 0x00, 0x00, 0xff}) {
		t.Error("pure index 3 is not red")
	}
}

func TestTunedWhiteIsDuller(t *testing.T) {
	pure, _ := PaletteFor(2, PalettePure)
	tuned, _ := PaletteFor(2, PaletteTuned)

	if maxLightness(tuned) >= maxLightness(pure) {
		t.Error("tuned white must sit below pure white")
	}
	if lightest(tuned) != tuned[1] {
		t.Error("lightest tuned entry is not the white swatch")
	}
}

func TestSolidGrid(t *testing.T) {
	pal, _ := PaletteFor(2, PalettePure)
	g := Solid(8, 4, pal, 1)

	if b := g.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("bounds = %v", b)
	}
	for _, idx := range g.Pix {
		if idx != 1 {
			t.Fatal("grid not uniform")
		}
	}
}
