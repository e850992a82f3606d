package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
)

var timerLabel string

var timerFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "label, l",
		Usage:       "label reported with each firing",
		Destination: &timerLabel,
	},
}

var (
	errNoDelay    = errors.New("no delay provided")
	errNoInstant  = errors.New("no time provided")
	errNoInterval = errors.New("no interval provided")
	errNoExpr     = errors.New("no cron expression provided")
)

func after(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return cmdcommon.PrintErrWithCmdHelp(ctx, errNoDelay)
	}
	if raw == "help" {
		return cmdcommon.Help(ctx)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "after", "parse_delay", err)
		return nil
	}
	if d < 0 {
		cmdcommon.PrintRuntimeErr(ctx, "after", "parse_delay", errors.New("delay must not be negative"))
		return nil
	}
	client := newClient(ctx, "after")
	if client == nil {
		return nil
	}
	defer client.Close()
	checkVersion(client)

	rctx, cancel := requestContext()
	defer cancel()
	id, err := client.OnceAfter(rctx, d, timerLabel)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "after", "once_after", err)
		return nil
	}
	fmt.Printf("Timer %d registered: fires in %s\n", id, d)
	return nil
}

func at(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return cmdcommon.PrintErrWithCmdHelp(ctx, errNoInstant)
	}
	if raw == "help" {
		return cmdcommon.Help(ctx)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "at", "parse_time", err)
		return nil
	}
	client := newClient(ctx, "at")
	if client == nil {
		return nil
	}
	defer client.Close()
	checkVersion(client)

	rctx, cancel := requestContext()
	defer cancel()
	id, err := client.OnceAt(rctx, t, timerLabel)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "at", "once_at", err)
		return nil
	}
	fmt.Printf("Timer %d registered: fires at %s\n", id, t.Format(time.RFC3339))
	return nil
}

func every(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return cmdcommon.PrintErrWithCmdHelp(ctx, errNoInterval)
	}
	if raw == "help" {
		return cmdcommon.Help(ctx)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "every", "parse_interval", err)
		return nil
	}
	if d <= 0 {
		cmdcommon.PrintRuntimeErr(ctx, "every", "parse_interval", errors.New("interval must be positive"))
		return nil
	}
	client := newClient(ctx, "every")
	if client == nil {
		return nil
	}
	defer client.Close()
	checkVersion(client)

	rctx, cancel := requestContext()
	defer cancel()
	id, err := client.Repeat(rctx, d, timerLabel)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "every", "repeat", err)
		return nil
	}
	fmt.Printf("Timer %d registered: fires every %s\n", id, d)
	return nil
}

// cron accepts the expression either quoted or as separate arguments.
func cron(ctx *cli.Context) error {
	if !ctx.Args().Present() {
		return cmdcommon.PrintErrWithCmdHelp(ctx, errNoExpr)
	}
	if ctx.Args().First() == "help" {
		return cmdcommon.Help(ctx)
	}
	expr := strings.Join(ctx.Args(), " ")
	if !gronx.IsValid(expr) {
		cmdcommon.PrintRuntimeErr(ctx, "cron", "parse_expr", fmt.Errorf("invalid cron expression %q", expr))
		return nil
	}
	client := newClient(ctx, "cron")
	if client == nil {
		return nil
	}
	defer client.Close()
	checkVersion(client)

	rctx, cancel := requestContext()
	defer cancel()
	id, err := client.Cron(rctx, expr, timerLabel)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "cron", "cron", err)
		return nil
	}
	fmt.Printf("Timer %d registered: cron %q\n", id, expr)
	return nil
}
