package deadlinecli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/internal/server"
	"github.com/warpdl/deadline/internal/timers"
	"github.com/warpdl/deadline/pkg/scheduler"
)

const testSecret = "cli-test-secret"

// startDaemon serves a real RPC stack on an httptest server.
func startDaemon(t *testing.T) string {
	t.Helper()
	sched := scheduler.New(context.Background())
	notifier := server.NewRPCNotifier(nil, 0, 0)
	svc := timers.New(sched, nil, notifier.Fired)
	rpc := server.NewRPCServer(&server.RPCConfig{Secret: testSecret, Version: "9.9.9"}, svc, nil, notifier, nil)
	srv := httptest.NewServer(rpc.Handler())
	t.Cleanup(func() {
		rpc.Close()
		srv.Close()
		sched.Close()
		<-sched.Done()
		svc.Close()
	})
	return srv.URL
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := NewClient(addr, testSecret)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClientRequiresSecret(t *testing.T) {
	if _, err := NewClient("127.0.0.1:1", ""); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("err = %v, want ErrNoSecret", err)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                       "http://" + common.DefaultListen,
		"127.0.0.1:9":            "http://127.0.0.1:9",
		"http://example.com:80/": "http://example.com:80",
		"https://h":              "https://h",
	}
	for in, want := range tests {
		if got := baseURL(in); got != want {
			t.Errorf("baseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientTimerLifecycle(t *testing.T) {
	c := newTestClient(t, startDaemon(t))
	ctx := context.Background()

	id1, err := c.OnceAfter(ctx, time.Hour, "a")
	if err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	id2, err := c.OnceAt(ctx, time.Now().Add(time.Hour), "b")
	if err != nil {
		t.Fatalf("OnceAt: %v", err)
	}
	id3, err := c.Repeat(ctx, time.Minute, "c")
	if err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	id4, err := c.Cron(ctx, "*/5 * * * *", "d")
	if err != nil {
		t.Fatalf("Cron: %v", err)
	}
	if !(id1 < id2 && id2 < id3 && id3 < id4) {
		t.Fatalf("ids not increasing: %d %d %d %d", id1, id2, id3, id4)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("List = %+v", list)
	}

	if err := c.Remove(ctx, id3); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	err = c.Remove(ctx, id3)
	var rpcErr *jrpc2.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32001 {
		t.Fatalf("second Remove err = %v, want code -32001", err)
	}
}

func TestClientHistoryDisabled(t *testing.T) {
	c := newTestClient(t, startDaemon(t))
	_, err := c.History(context.Background(), 5)
	var rpcErr *jrpc2.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32004 {
		t.Fatalf("History err = %v, want code -32004", err)
	}
}

func TestClientWrongSecret(t *testing.T) {
	c, err := NewClient(startDaemon(t), "wrong")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.GetDaemonVersion(context.Background()); err == nil {
		t.Fatal("expected error with wrong secret")
	}
}

func TestClientWatch(t *testing.T) {
	c := newTestClient(t, startDaemon(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan common.Firing, 4)
	errc := make(chan error, 1)
	go func() { errc <- c.Watch(ctx, func(f common.Firing) { got <- f }) }()

	// Registering repeatedly until a push arrives covers the window before
	// the watch session is established.
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case f := <-got:
			if f.Label != "watched" {
				t.Fatalf("firing = %+v", f)
			}
			cancel()
			if err := <-errc; err != nil {
				t.Fatalf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			if _, err := c.OnceAfter(context.Background(), 0, "watched"); err != nil {
				t.Fatal(err)
			}
		case err := <-errc:
			t.Fatalf("Watch ended early: %v", err)
		case <-ctx.Done():
			t.Fatal("no firing observed")
		}
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	c := newTestClient(t, startDaemon(t))
	var buf bytes.Buffer
	c.CheckVersionMismatch(context.Background(), &buf, "9.9.9")
	if buf.Len() != 0 {
		t.Errorf("unexpected warning: %q", buf.String())
	}
	c.CheckVersionMismatch(context.Background(), &buf, "1.0.0")
	if !strings.Contains(buf.String(), "differs") {
		t.Errorf("missing mismatch warning: %q", buf.String())
	}
}
