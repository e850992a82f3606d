package server

import (
	"context"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
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

// serveWS runs one jrpc2 server per WebSocket connection and registers it
// with the notifier for timer.fired pushes until the peer goes away.
func (rs *RPCServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		rs.log.Warning("websocket accept failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(rs.ctx, cancel)
	defer stop()

	srv := jrpc2.NewServer(rs.methods, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(&wsChannel{conn: conn, ctx: ctx})
	rs.notifier.Register(srv)
	defer rs.notifier.Unregister(srv)

	rs.log.Debug("websocket client connected from %s", r.RemoteAddr)
	_ = srv.Wait()
	rs.log.Debug("websocket client %s disconnected", r.RemoteAddr)
}
