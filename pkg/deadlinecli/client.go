// Package deadlinecli is the client side of the deadline daemon's JSON-RPC
// interface.
package deadlinecli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/deadline/common"
)

// ErrNoSecret is returned by NewClient when no RPC secret is available.
var ErrNoSecret = errors.New("rpc secret not set (use --secret or " + common.SecretEnv + ")")

const defaultTimeout = 10 * time.Second

type Client struct {
	addr   string
	secret string
	http   *http.Client
	rpc    *jrpc2.Client
}

// NewClient creates a client for the daemon listening on addr (host:port or
// an http:// URL).
func NewClient(addr, secret string) (*Client, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	base := baseURL(addr)
	hc := &http.Client{
		Timeout:   defaultTimeout,
		Transport: &bearerTransport{token: secret, base: http.DefaultTransport},
	}
	ch := jhttp.NewChannel(base+common.RPCPath, &jhttp.ChannelOptions{Client: hc})
	return &Client{
		addr:   base,
		secret: secret,
		http:   hc,
		rpc:    jrpc2.NewClient(ch, nil),
	}, nil
}

func baseURL(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" {
		addr = common.DefaultListen
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr
}

// Addr returns the daemon base URL.
func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error {
	return c.rpc.Close()
}

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}

// bearerTransport adds the Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}
