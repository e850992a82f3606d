// Package common holds the output helpers every deadline subcommand uses:
// help and version printing, and the "deadline: cmd[action]: message" error
// line.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
)

// VersionCmdStr is what "deadline version" prints. Execute fills it in from
// the build arguments.
var VersionCmdStr string

// Indirection so tests can observe help output without the process exiting.
var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// Help prints the app help, or the help of the command named by the first
// argument ("deadline help cron").
func Help(ctx *cli.Context) error {
	topic := ctx.Args().First()
	if topic != "" && topic != "help" {
		return showCommandHelp(ctx, topic)
	}
	fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
	showAppHelpAndExit(ctx, 0)
	return nil
}

func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// PrintRuntimeErr reports a failure that happened after argument parsing,
// e.g. "deadline: cancel[remove]: timer not found". action names the step
// that failed so scripts can grep for it.
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	if err == nil {
		fmt.Println("err is nil", "[", cmd, "|", action, "]")
		return
	}
	fmt.Printf("%s: %s[%s]: %s\n", programName(ctx), cmd, action, err.Error())
}

func programName(ctx *cli.Context) string {
	if ctx != nil && ctx.App != nil {
		return ctx.App.HelpName
	}
	return filepath.Base(os.Args[0])
}

// PrintErrWithCmdHelp reports a usage error of the current subcommand and
// shows that subcommand's help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printUsageErr(ctx, err, func() {
		if herr := showCommandHelp(ctx, ctx.Command.Name); herr != nil {
			fmt.Println(herr.Error())
		}
	})
}

// PrintErrWithHelp reports a usage error at the top level, shows the app help
// and exits with status 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printUsageErr(ctx, err, func() {
		showAppHelpAndExit(ctx, 1)
	})
}

// printUsageErr treats "-h" parse errors as a help request rather than a
// failure.
func printUsageErr(ctx *cli.Context, err error, showHelp func()) error {
	if err == nil {
		return nil
	}
	if strings.EqualFold(err.Error(), "flag: help requested") {
		return Help(ctx)
	}
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	showHelp()
	return nil
}

// UsageErrorCallback is installed as OnUsageError on the app and on every
// subcommand.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name == "" {
		return PrintErrWithHelp(ctx, err)
	}
	return PrintErrWithCmdHelp(ctx, err)
}

// Beaut centers s in a column n characters wide for the list table. Strings
// wider than the column are returned as is.
func Beaut(s string, n int) string {
	pad := n - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
