// Package client sends single requests to a jsondb server.
package client

import (
	"context"
	"fmt"
	"net"

	"github.com/maruel/jsondb/internal/protocol"
	"github.com/maruel/jsondb/internal/value"
)

// DefaultAddr is the address the server listens on by default.
const DefaultAddr = "localhost:23456"

// Client talks to a server at Addr. Each call uses its own connection.
type Client struct {
	Addr   string
	Dialer net.Dialer
}

// New returns a Client for addr. An empty addr means DefaultAddr.
func New(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Client{Addr: addr}
}

// Send writes payload as one frame and returns the response payload.
func (c *Client) Send(ctx context.Context, payload []byte) ([]byte, error) {
	conn, err := c.Dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := protocol.WriteFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	resp, err := protocol.ReadFrame(conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

// Do sends req and decodes the response.
func (c *Client) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	data, err := c.Send(ctx, req.Encode())
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.DecodeResponse(data)
}

// FlagRequest builds a request payload from command line values. key and val
// are sent as strings; empty ones are omitted.
func FlagRequest(typ, key, val string) []byte {
	m := []value.Member{{Key: "type", Value: value.String(typ)}}
	if key != "" {
		m = append(m, value.Member{Key: "key", Value: value.String(key)})
		if val != "" {
			m = append(m, value.Member{Key: "value", Value: value.String(val)})
		}
	}
	return value.Object(m...).AppendJSON(nil)
}
