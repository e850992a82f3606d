package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
)

var errNoID = errors.New("no timer id provided")

func cancel(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return cmdcommon.PrintErrWithCmdHelp(ctx, errNoID)
	}
	if raw == "help" {
		return cmdcommon.Help(ctx)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "cancel", "parse_id", err)
		return nil
	}
	client := newClient(ctx, "cancel")
	if client == nil {
		return nil
	}
	defer client.Close()

	rctx, done := requestContext()
	defer done()
	if err := client.Remove(rctx, id); err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "cancel", "remove", err)
		return nil
	}
	fmt.Printf("Timer %d cancelled\n", id)
	return nil
}
