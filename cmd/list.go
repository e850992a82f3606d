package cmd

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/common"
)

const (
	idWidth     = 6
	kindWidth   = 8
	labelWidth  = 20
	sourceWidth = 8
)

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cmdcommon.Help(ctx)
	}
	client := newClient(ctx, "list")
	if client == nil {
		return nil
	}
	defer client.Close()

	rctx, cancel := requestContext()
	defer cancel()
	timers, err := client.List(rctx)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "list", "list", err)
		return nil
	}
	fmt.Print(timerTable(timers))
	return nil
}

func timerTable(timers []common.TimerInfo) string {
	if len(timers) == 0 {
		return "No timers registered.\n"
	}
	txt := fmt.Sprintf("|%s|%s|%s|%s| Schedule\n",
		cmdcommon.Beaut("ID", idWidth),
		cmdcommon.Beaut("Kind", kindWidth),
		cmdcommon.Beaut("Label", labelWidth),
		cmdcommon.Beaut("Source", sourceWidth),
	)
	for _, t := range timers {
		label := t.Label
		if len(label) > labelWidth {
			label = label[:labelWidth-3] + "..."
		}
		txt += fmt.Sprintf("|%s|%s|%s|%s| %s\n",
			cmdcommon.Beaut(strconv.FormatUint(t.ID, 10), idWidth),
			cmdcommon.Beaut(t.Kind, kindWidth),
			cmdcommon.Beaut(label, labelWidth),
			cmdcommon.Beaut(t.Source, sourceWidth),
			t.Spec,
		)
	}
	return txt
}
