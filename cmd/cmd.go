package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var (
	rpcAddr   string
	rpcSecret string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "daemon RPC address (host:port)",
			EnvVar:      common.ListenEnv,
			Value:       common.DefaultListen,
			Destination: &rpcAddr,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "daemon RPC secret",
			EnvVar:      common.SecretEnv,
			Destination: &rpcSecret,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	buildInfo = bArgs
	app := cli.App{
		Name:                  "deadline",
		HelpName:              "deadline",
		Usage:                 "A deadline scheduler daemon and client.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "deadline [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          cmdcommon.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "runs the scheduler daemon",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             runDaemon,
				Flags:              daemonFlags,
			},
			{
				Name:               "after",
				Aliases:            []string{"a"},
				Usage:              "fires once after a delay",
				UsageText:          "<delay> [--label <label>]",
				Description:        AfterDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             after,
				Flags:              timerFlags,
			},
			{
				Name:               "at",
				Usage:              "fires once at an instant",
				UsageText:          "<rfc3339-time> [--label <label>]",
				Description:        AtDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             at,
				Flags:              timerFlags,
			},
			{
				Name:               "every",
				Aliases:            []string{"e"},
				Usage:              "fires repeatedly",
				UsageText:          "<interval> [--label <label>]",
				Description:        EveryDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             every,
				Flags:              timerFlags,
			},
			{
				Name:               "cron",
				Usage:              "fires on a cron schedule",
				UsageText:          "<expression> [--label <label>]",
				Description:        CronDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             cron,
				Flags:              timerFlags,
			},
			{
				Name:               "cancel",
				Aliases:            []string{"c"},
				Usage:              "removes a timer",
				UsageText:          "<id>",
				Description:        CancelDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             cancel,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "displays registered timers",
				Description:        ListDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             list,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "prints firings as they happen",
				Description:        WatchDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             watch,
			},
			{
				Name:               "history",
				Usage:              "displays recent firings",
				Description:        HistoryDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             history,
				Flags:              historyFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  cmdcommon.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of deadline",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             cmdcommon.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	cmdcommon.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
