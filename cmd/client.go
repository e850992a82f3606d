package cmd

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/pkg/deadlinecli"
)

const requestTimeout = 10 * time.Second

var buildInfo BuildArgs

// newClient connects to the daemon named by the global flags. Errors are
// printed and reported as a nil client.
func newClient(ctx *cli.Context, cmd string) *deadlinecli.Client {
	client, err := deadlinecli.NewClient(rpcAddr, rpcSecret)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, cmd, "new_client", err)
		return nil
	}
	return client
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// checkVersion warns on stderr when the daemon runs another version.
func checkVersion(client *deadlinecli.Client) {
	ctx, cancel := requestContext()
	defer cancel()
	client.CheckVersionMismatch(ctx, os.Stderr, buildInfo.Version)
}
