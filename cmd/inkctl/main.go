package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"inkcard/internal/fetch"
	"inkcard/pkg/card"
	"inkcard/pkg/convert"
	"inkcard/pkg/device"
	"inkcard/pkg/frame"
	"inkcard/pkg/proto"
	"inkcard/pkg/transport/pn532"
	"inkcard/pkg/transport/remote"
	"inkcard/pkg/transport/virtual"
)

var (
	serialName = flag.String("serial", "ttyUSB", "serial name or gateway addr")
	useVirtual = flag.Bool("virtual", false, "drive a simulated card")
	page       = flag.Uint8("page", 0, "transfer page")
	wait       = flag.Duration("wait", 30*time.Second, "card wait timeout")
	debug      = flag.Bool("debug", false, "set debug")

	photo    = flag.Bool("photo", false, "photo preset: atkinson dither, cover resize, tuned palette, tone mapping")
	ditherer = flag.String("dither", convert.DitherClassic, "dither method: classic, atkinson, floyd-steinberg, jarvis, stucki, none")
	resize   = flag.String("resize", convert.ResizeFit, "resize mode: fit or cover")
	palette  = flag.String("palette", convert.PalettePure, "palette mode: pure or tuned")
	toneMap  = flag.String("tone-map", "auto", "tone mapping: auto, on, off")

	width  = flag.Int("width", 296, "preview width")
	height = flag.Int("height", 128, "preview height")
	colors = flag.Int("colors", 2, "preview colors")
	out    = flag.String("out", "", "preview output path")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("usage: inkctl <send|clear|info|diag|preview> [args]")
	}

	logger := newLogger()

	switch args[0] {
	case "send":
		if len(args) < 2 {
			log.Fatal("usage: inkctl send <image>")
		}
		runSend(logger, args[1])
	case "clear":
		runClear(logger)
	case "info":
		runInfo(logger)
	case "diag":
		scenario := "black"
		if len(args) > 1 {
			scenario = strings.ToLower(args[1])
		}
		runDiag(logger, scenario)
	case "preview":
		if len(args) < 2 {
			log.Fatal("usage: inkctl preview <image>")
		}
		runPreview(logger, args[1])
	default:
		log.Fatalf("unknown command %q", args[0])
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !*debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

// convertOptions folds the flags into conversion options. The photo
// preset fills in whatever the user left untouched.
func convertOptions() convert.Options {
	if *photo {
		set := flag.CommandLine.Changed
		if !set("dither") {
			*ditherer = convert.DitherAtkinson
		}
		if !set("resize") {
			*resize = convert.ResizeCover
		}
		if !set("palette") {
			*palette = convert.PaletteTuned
		}
		if !set("tone-map") {
			*toneMap = "on"
		}
	}

	opts := convert.Options{
		Palette: *palette,
		Dither:  *ditherer,
		Resize:  *resize,
	}

	switch *toneMap {
	case "auto":
	case "on":
		opts.ToneMap = lo.ToPtr(true)
	case "off":
		opts.ToneMap = lo.ToPtr(false)
	default:
		log.Fatalf("unknown tone-map mode %q", *toneMap)
	}
	return opts
}

// openCard waits for a card on the chosen transport and runs the touch
// sequence against it.
func openCard(logger *zap.Logger) *card.Card {
	var tr proto.Transport
	switch {
	case *useVirtual:
		tr = virtual.New(logger)
	case strings.Contains(*serialName, ":"):
		cli, err := remote.New(*serialName)
		if err != nil {
			log.Fatal(err)
		}
		tr = cli
	default:
		tr = pn532.New(*serialName, logger, nil)
	}

	c := card.New(tr, logger, card.WithPage(*page), card.WithProgress(transferBar()))

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	logger.Info("waiting for card")
	if err := c.Setup(ctx); err != nil {
		log.Fatal(err)
	}

	logger.With(zap.String("card", c.Info().String())).Info("connected")
	return c
}

func transferBar() func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "transferring")
		}
		_ = bar.Set(done)
	}
}

func runSend(logger *zap.Logger, src string) {
	opts := convertOptions()

	img, err := fetch.NewLoader(logger).Load(src)
	if err != nil {
		log.Fatal(err)
	}

	c := openCard(logger)
	defer c.Close()

	if err := c.SendImage(img, opts); err != nil {
		log.Fatal(err)
	}
	if err := c.Refresh(0, 0); err != nil {
		log.Fatal(err)
	}
}

func runClear(logger *zap.Logger) {
	c := openCard(logger)
	defer c.Close()

	if err := c.Clear(); err != nil {
		log.Fatal(err)
	}
	if err := c.Refresh(0, 0); err != nil {
		log.Fatal(err)
	}
}

func runInfo(logger *zap.Logger) {
	c := openCard(logger)
	defer c.Close()

	d := c.Info()
	fmt.Printf("Serial:      %s\n", d.Serial)
	if len(d.Aux) > 0 {
		fmt.Printf("Aux:         %x\n", d.Aux)
	} else {
		fmt.Printf("Aux:         (not present)\n")
	}
	fmt.Printf("Screen:      %dx%d\n", d.Width, d.Height)
	fmt.Printf("Colors:      %d\n", d.NumColors())
	fmt.Printf("Bits/pixel:  %d\n", d.BitsPerPixel)
	fmt.Printf("Rotated:     %v\n", d.Rotated)
	fmt.Printf("Mirrored:    %v\n", d.HFlip)
	fmt.Printf("Framebuffer: %dx%d\n", d.FBWidth, d.FBHeight)
	fmt.Printf("Blocks:      %d (%s bytes)\n", d.NumBlocks(), joinSizes(d.BlockSizes))

	if name, err := c.PanelType(); err == nil {
		fmt.Printf("Panel:       %s\n", name)
	}

	if panel, ok := device.ParseTLV(d.Raw)[device.TagPanel]; ok {
		fmt.Printf("Raw panel:   % x\n", panel)
	}
	fmt.Printf("Raw:         %x\n", d.Raw)
}

func joinSizes(sizes []int) string {
	return strings.Join(lo.Map(sizes, func(n int, _ int) string {
		return strconv.Itoa(n)
	}), "+")
}

// runDiag paints raw block patterns, bypassing image conversion, to
// check block addressing on the panel.
func runDiag(logger *zap.Logger, scenario string) {
	fills := map[string]struct {
		index     uint8
		minColors int
	}{
		"black":  {0, 2},
		"white":  {1, 2},
		"yellow": {2, 4},
		"red":    {3, 4},
	}

	c := openCard(logger)
	defer c.Close()
	d := c.Info()

	var blocks [][]byte
	switch {
	case scenario == "stripe":
		for i, size := range d.BlockSizes {
			blocks = append(blocks, frame.SolidBlock(d, uint8(i%2), size))
		}
	default:
		fill, ok := fills[scenario]
		if !ok {
			log.Fatalf("unknown scenario %q (available: black, white, yellow, red, stripe)", scenario)
		}
		if d.NumColors() < fill.minColors {
			log.Fatalf("%q needs a %d-color card, this one shows %d", scenario, fill.minColors, d.NumColors())
		}
		for _, size := range d.BlockSizes {
			blocks = append(blocks, frame.SolidBlock(d, fill.index, size))
		}
	}

	if err := c.TransferBlocks(blocks); err != nil {
		log.Fatal(err)
	}
	if err := c.Refresh(0, 0); err != nil {
		log.Fatal(err)
	}
}

// runPreview converts without touching a card and writes the result
// beside the source.
func runPreview(logger *zap.Logger, src string) {
	opts := convertOptions()
	opts.Colors = *colors

	loader := fetch.NewLoader(logger)
	img, err := loader.Load(src)
	if err != nil {
		log.Fatal(err)
	}

	grid, err := convert.Convert(img, *width, *height, opts)
	if err != nil {
		log.Fatal(err)
	}

	path := *out
	if path == "" {
		path = xid.New().String() + ".png"
	}
	if err := loader.SavePNG(path, grid); err != nil {
		log.Fatal(err)
	}

	logger.With(zap.String("path", path)).Info("preview saved")
}
