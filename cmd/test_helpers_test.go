package cmd

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli"
	"github.com/warpdl/deadline/internal/server"
	"github.com/warpdl/deadline/internal/timers"
	"github.com/warpdl/deadline/pkg/scheduler"
)

const testSecret = "cmd-test-secret"

// captureOutput captures stdout and stderr during function execution.
func captureOutput(f func()) (stdout, stderr string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	var bufOut, bufErr bytes.Buffer
	outDone := make(chan struct{})
	errDone := make(chan struct{})
	go func() { io.Copy(&bufOut, rOut); close(outDone) }()
	go func() { io.Copy(&bufErr, rErr); close(errDone) }()

	f()

	wOut.Close()
	wErr.Close()
	<-outDone
	<-errDone
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	rOut.Close()
	rErr.Close()

	return bufOut.String(), bufErr.String()
}

func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

func assertNotContains(t *testing.T, output, notExpected string) {
	t.Helper()
	if strings.Contains(output, notExpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", notExpected, output)
	}
}

// newContext creates a CLI context for testing commands.
func newContext(app *cli.App, args []string, name string) *cli.Context {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: name}
	return ctx
}

// startDaemon serves a real RPC stack and points the global client flags
// at it for the duration of the test.
func startDaemon(t *testing.T) {
	t.Helper()
	sched := scheduler.New(context.Background())
	notifier := server.NewRPCNotifier(nil, 0, 0)
	svc := timers.New(sched, nil, notifier.Fired)
	rpc := server.NewRPCServer(&server.RPCConfig{Secret: testSecret, Version: "0.0.0-test"}, svc, nil, notifier, nil)
	srv := httptest.NewServer(rpc.Handler())

	oldAddr, oldSecret, oldLabel := rpcAddr, rpcSecret, timerLabel
	rpcAddr, rpcSecret, timerLabel = srv.URL, testSecret, ""
	t.Cleanup(func() {
		rpcAddr, rpcSecret, timerLabel = oldAddr, oldSecret, oldLabel
		rpc.Close()
		srv.Close()
		sched.Close()
		<-sched.Done()
		svc.Close()
	})
}
