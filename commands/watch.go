package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var WatchCmd = Watch{
	Run:      RunCmd,
	interval: 0,
}

// Watch executes consolidation passes on a fixed interval until interrupted.
type Watch struct {
	Run
	interval time.Duration
}

func (cmd *Watch) Name() string {
	return "watch"
}

func (cmd *Watch) Description() string {
	return "Executes consolidation passes on a fixed interval"
}

func (cmd *Watch) Usage() string {
	return "[--interval <duration>] [--credentials <file>] [--seen-set <file>]"
}

func (cmd *Watch) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] watch [options]\n", APP)
	fmt.Println()
	fmt.Println("  Runs consolidation passes on a fixed interval until interrupted. A pass that fails")
	fmt.Println("  is logged and the next pass runs as scheduled")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    sheetrollup --config "sheetrollup.yaml" watch --interval 4h`)
	fmt.Println()
}

func (cmd *Watch) FlagSet() *flag.FlagSet {
	flagset := cmd.flags(flag.NewFlagSet("watch", flag.ExitOnError))

	flagset.DurationVar(&cmd.interval, "interval", cmd.interval, "Delay between consolidation passes. Defaults to the configured interval")

	return flagset
}

func (cmd *Watch) Execute(ctx context.Context, options *Options) error {
	cmd.debug = options.Debug

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	interval := time.Duration(cfg.Interval)
	if cmd.interval > 0 {
		interval = cmd.interval
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		if err := cmd.run(ctx, cfg); err != nil {
			errorf("%v", err)
		}

		infof("next consolidation pass at %v", time.Now().Add(interval).Format("2006-01-02 15:04:05"))

		select {
		case <-interrupt:
			infof("interrupted - exiting")
			return nil

		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(interval):
		}
	}
}
