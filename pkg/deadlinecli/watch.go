package deadlinecli

import (
	"context"
	"net/http"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/warpdl/deadline/common"
)

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

func (c *Client) wsURL() string {
	return "ws" + strings.TrimPrefix(c.addr, "http") + common.RPCWSPath
}

// Watch streams timer.fired notifications to fn until ctx is done or the
// daemon closes the connection. fn runs on the client's receive goroutine.
func (c *Client) Watch(ctx context.Context, fn func(common.Firing)) error {
	conn, _, err := cws.Dial(ctx, c.wsURL(), &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.secret}},
	})
	if err != nil {
		return err
	}

	stopped := make(chan error, 1)
	cli := jrpc2.NewClient(&wsChannel{conn: conn, ctx: ctx}, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != common.NotifyFired {
				return
			}
			var f common.Firing
			if err := req.UnmarshalParams(&f); err == nil {
				fn(f)
			}
		},
		OnStop: func(_ *jrpc2.Client, err error) {
			select {
			case stopped <- err:
			default:
			}
		},
	})
	defer cli.Close()

	// Confirms the session before waiting for pushes.
	var v common.VersionResult
	if err := cli.CallResult(ctx, common.MethodGetVersion, nil, &v); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-stopped:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
}
