package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/common"
)

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cmdcommon.Help(ctx)
	}
	client := newClient(ctx, "watch")
	if client == nil {
		return nil
	}
	defer client.Close()

	sctx, stop := setupShutdownHandler()
	defer stop()

	fmt.Printf("Watching %s for firings, press Ctrl+C to stop\n", client.Addr())
	err := client.Watch(sctx, func(f common.Firing) {
		fmt.Println(formatFiring(f))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		cmdcommon.PrintRuntimeErr(ctx, "watch", "watch", err)
	}
	return nil
}
