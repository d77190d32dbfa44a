// Command pulse is the School Pulse developer CLI: it reports incidents and renders the
// insights dashboard against the configured backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/schoolpulse/apps/pulse/di"
	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/dashboard"
)

var isTerminalFunc = term.IsTerminal // mockable

func main() {
	c := di.New(core.NewConfig)

	var ran bool // errors of cli.run are already rendered
	err := c.Invoke(func(conf *core.Config, logger core.Logger, ctrl *dashboard.Controller) error {
		defer ctrl.Close()
		logger.Debug("pulse starting", core.Fields{"build": conf.Build, "env": conf.Env, "backend": conf.BaseURL()})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cli := newCommandLine(ctrl, os.Stdout, isTerminalFunc(int(os.Stdout.Fd())))
		ran = true
		return cli.run(ctx, os.Args[1:])
	})
	if err != nil {
		if !ran {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
