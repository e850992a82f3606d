package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/deadline/cmd/common"
	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/internal/daemon"
)

var daemonConfigPath string

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to the YAML config file",
		EnvVar:      common.ConfigPathEnv,
		Destination: &daemonConfigPath,
	},
}

const daemonShutdownTimeout = 30 * time.Second

func runDaemon(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cmdcommon.Help(ctx)
	}
	runner := daemon.New(&daemon.Config{
		ConfigPath:      daemonConfigPath,
		Version:         buildInfo.Version,
		Commit:          buildInfo.Commit,
		BuildType:       buildInfo.BuildType,
		ShutdownTimeout: daemonShutdownTimeout,
	}, nil)

	sctx, stop := setupShutdownHandler()
	defer stop()
	if err := runner.Start(sctx); err != nil && !errors.Is(err, context.Canceled) {
		cmdcommon.PrintRuntimeErr(ctx, "daemon", "start", err)
		return err
	}
	return nil
}
