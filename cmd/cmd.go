// Package cmd wires the runtime's command-line entry points, mirroring
// the teacher's cli.App / serverCmd() shape.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/webitel/fraktor-go/config"
	"github.com/webitel/fraktor-go/internal/telemetry/tui"
)

const (
	ServiceName      = "fraktor"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run parses os.Args and dispatches to the selected subcommand.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "general-purpose actor runtime",
		Commands: []*cli.Command{
			serverCmd(),
			dashCmd(),
		},
	}
	return app.Run(os.Args)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	fs := pflag.NewFlagSet(c.Command.Name, pflag.ContinueOnError)
	config.Flags(fs)
	_ = fs.Set("config_file", c.String("config_file"))
	return config.LoadConfig(fs)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "run the actor runtime with its control-plane and debug surfaces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}

// dashCmd runs a standalone actor system with a live terminal dashboard in
// the foreground instead of the control-plane/debug HTTP surfaces "server"
// exposes, per SPEC_FULL.md's "optional terminal dashboard (cmd fraktor
// dash)". It skips the fx.App wiring entirely since a dashboard session is
// a single foreground process, not a long-running service.
func dashCmd() *cli.Command {
	return &cli.Command{
		Name:  "dash",
		Usage: "run the actor runtime with a live terminal dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			sys, driver, err := bootstrapStandalone(cfg)
			if err != nil {
				return err
			}
			defer sys.Shutdown()

			driver.Enable()
			defer driver.Disable()
			go sys.Scheduler().RunLoop(cfg.Scheduler.Resolution)
			defer sys.Scheduler().Stop()

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return tui.Run(ctx, sys)
		},
	}
}
