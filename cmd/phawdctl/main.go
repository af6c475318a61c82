package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/phawd/internal/config"
	"github.com/danmuck/phawd/internal/logging"
	"github.com/danmuck/phawd/internal/observability"
	logs "github.com/danmuck/smplog"
)

type app struct {
	configPath  string
	metricsAddr string
	cfg         config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{cfg: config.Default()}
	root := &cobra.Command{
		Use:           "phawdctl",
		Short:         "Shared memory and socket parameter transport demos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a phawd TOML config")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")

	root.AddCommand(
		newShmWriterCommand(a),
		newShmReaderCommand(a),
		newSocketClientCommand(a),
		newEchoPeerCommand(a),
		newConfiggenCommand(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	if a.configPath != "" {
		cfg, err := loadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	logging.ConfigureFile(a.cfg.Log.Level, a.cfg.Log.Timestamp, a.cfg.Log.NoColor)
	if a.metricsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, a.metricsAddr); err != nil {
				logs.Errorf(err, "phawdctl metrics addr=%s", a.metricsAddr)
			}
		}()
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "phawdctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
