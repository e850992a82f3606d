package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/common"
)

var historyLimit int

var historyFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "n",
		Usage:       "number of firings to show",
		Value:       20,
		Destination: &historyLimit,
	},
}

func history(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cmdcommon.Help(ctx)
	}
	client := newClient(ctx, "history")
	if client == nil {
		return nil
	}
	defer client.Close()

	rctx, cancel := requestContext()
	defer cancel()
	firings, err := client.History(rctx, historyLimit)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "history", "journal_list", err)
		return nil
	}
	if len(firings) == 0 {
		fmt.Println("No firings recorded.")
		return nil
	}
	for _, f := range firings {
		fmt.Println(formatFiring(f))
	}
	return nil
}

func formatFiring(f common.Firing) string {
	ts := f.FiredAt.Local().Format(time.DateTime)
	if f.Label == "" {
		return fmt.Sprintf("%s  timer %d", ts, f.ID)
	}
	return fmt.Sprintf("%s  timer %d (%s)", ts, f.ID, f.Label)
}
