package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/warpdl/deadline/common"
)

func TestServerServeAndShutdown(t *testing.T) {
	env := newTestEnv(t, false)
	srv := New(env.rpc, nil)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": common.MethodGetVersion, "id": 1})
	req, _ := http.NewRequest(http.MethodPost, "http://"+l.Addr().String()+common.RPCPath, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testSecret)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServerShutdownBeforeServe(t *testing.T) {
	srv := New(newTestEnv(t, false).rpc, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestServerServeTwice(t *testing.T) {
	env := newTestEnv(t, false)
	srv := New(env.rpc, nil)
	l1, _ := net.Listen("tcp", "127.0.0.1:0")
	go func() { _ = srv.Serve(l1) }()
	defer srv.Shutdown(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.mu.Lock()
		started := srv.server != nil
		srv.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	l2, _ := net.Listen("tcp", "127.0.0.1:0")
	defer l2.Close()
	if err := srv.Serve(l2); err == nil {
		t.Fatal("second Serve succeeded")
	}
}
