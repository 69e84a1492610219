// Package remote shares one NFC reader over the network, so a card on
// a gateway box can be driven from anywhere.
package remote

import (
	"context"
	"log"
	"net/http"
	"net/rpc"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"inkcard/pkg/proto"
)

// Serve publishes tr over HTTP-tunneled RPC and ties the listener to
// the application lifecycle.
func Serve(tr proto.Transport, srv *http.Server, lifecycle fx.Lifecycle) error {
	svc := &Service{tr: tr}
	if err := rpc.Register(svc); err != nil {
		return err
	}

	rpc.HandleHTTP()

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != http.ErrServerClosed {
					log.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return nil
}

type Service struct {
	tr proto.Transport
}

func (s *Service) Connect(req *ConnectRequest, _ *EmptyResponse) error {
	ctx := context.Background()
	if req.TimeoutMillis > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMillis)*time.Millisecond)
		defer cancel()
	}
	return s.tr.Connect(ctx)
}

// Exchange forwards one command. Card-side failures ride back in the
// response body so the caller can rebuild them typed; an RPC error here
// means the gateway itself misbehaved.
func (s *Service) Exchange(req *ExchangeRequest, resp *ExchangeResponse) error {
	data, err := s.tr.Exchange(proto.Command{
		Cla:         req.Cla,
		Ins:         req.Ins,
		P1:          req.P1,
		P2:          req.P2,
		Data:        req.Data,
		MaxResponse: req.MaxResponse,
		CheckStatus: req.CheckStatus,
	})
	if err != nil {
		var se *proto.StatusError
		if errors.As(err, &se) {
			resp.Status = se.Status()
			return nil
		}
		resp.Lost = true
		resp.Reason = err.Error()
		return nil
	}

	resp.Data = data
	return nil
}

func (s *Service) Close(_ *EmptyRequest, _ *EmptyResponse) error {
	return s.tr.Close()
}
