package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"inkcard/internal/fetch"
	"inkcard/pkg/card"
	"inkcard/pkg/convert"
	"inkcard/pkg/transport/pn532"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	c := card.New(pn532.New("ttyUSB", logger, nil), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Setup(ctx); err != nil {
		panic(err)
	}

	img, err := fetch.NewLoader(logger).Load("badge.png")
	if err != nil {
		panic(err)
	}

	if err := c.SendImage(img, convert.Options{}); err != nil {
		panic(err)
	}

	if err := c.Refresh(0, 0); err != nil {
		panic(err)
	}
}
