package remote

import (
	"context"
	"net/rpc"
	"time"

	"github.com/pkg/errors"

	"inkcard/pkg/proto"
)

// New dials a gateway and returns a transport backed by its reader.
func New(addr string) (*Client, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Client{rpc: client}, nil
}

type Client struct {
	rpc *rpc.Client
}

func (c *Client) Connect(ctx context.Context) error {
	req := &ConnectRequest{}
	if deadline, ok := ctx.Deadline(); ok {
		req.TimeoutMillis = time.Until(deadline).Milliseconds()
	}

	call := c.rpc.Go("Service.Connect", req, &EmptyResponse{}, nil)
	select {
	case <-ctx.Done():
		return &proto.TransportError{Op: "remote", Err: ctx.Err()}
	case <-call.Done:
		if call.Error != nil {
			return &proto.TransportError{Op: "remote", Err: call.Error}
		}
	}
	return nil
}

func (c *Client) Exchange(cmd proto.Command) ([]byte, error) {
	req := &ExchangeRequest{
		Cla:         cmd.Cla,
		Ins:         cmd.Ins,
		P1:          cmd.P1,
		P2:          cmd.P2,
		Data:        cmd.Data,
		MaxResponse: cmd.MaxResponse,
		CheckStatus: cmd.CheckStatus,
	}

	var resp ExchangeResponse
	if err := c.rpc.Call("Service.Exchange", req, &resp); err != nil {
		return nil, &proto.TransportError{Op: "remote", Err: err}
	}

	if resp.Lost {
		return nil, &proto.TransportError{Op: "remote", Err: errors.New(resp.Reason)}
	}
	if resp.Status != 0 {
		return nil, &proto.StatusError{SW1: byte(resp.Status >> 8), SW2: byte(resp.Status)}
	}
	return resp.Data, nil
}

// Close shuts the gateway's reader, then hangs up.
func (c *Client) Close() error {
	defer c.rpc.Close()

	if err := c.rpc.Call("Service.Close", &EmptyRequest{}, &EmptyResponse{}); err != nil {
		return &proto.TransportError{Op: "remote", Err: err}
	}
	return nil
}
