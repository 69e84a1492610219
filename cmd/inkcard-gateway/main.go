package main

import (
	"net/http"

	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"inkcard/pkg/proto"
	"inkcard/pkg/transport/pn532"
	"inkcard/pkg/transport/remote"
)

var serial = flag.String("serial", "ttyUSB", "serial name")
var listen = flag.String("listen", ":9123", "listen addr")

func main() {
	flag.Parse()

	fx.New(
		fx.Provide(
			zap.NewDevelopment,
			func(logger *zap.Logger) (proto.Transport, *http.Server) {
				return pn532.New(*serial, logger, nil),
					&http.Server{Addr: *listen}
			},
		),
		fx.Invoke(
			remote.Serve,
		),
	).Run()
}
