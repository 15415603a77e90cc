package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/symnav/internal/symnav/runtime"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the configuration shared by every subcommand.
type app struct {
	cfg runtime.Config

	// search flags win over the workspace config when set explicitly.
	searchDelay time.Duration
	cancelKey   string
}

func newConfig() runtime.Config {
	cfg := runtime.DefaultConfig()
	// Store, log and config paths follow --workspace unless given.
	cfg.DBPath = ""
	cfg.LogPath = ""
	cfg.ConfigPath = ""
	return cfg
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: newConfig()}
	root := &cobra.Command{
		Use:           "symnav",
		Short:         "Index, filter, and browse symbol trees of a source workspace",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Normalize()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.Workspace, "workspace", a.cfg.Workspace, "Workspace directory")
	flags.StringVar(&a.cfg.DBPath, "db", "", "Symbol database path (default <workspace>/.symnav/symbols.db)")
	flags.StringVar(&a.cfg.LogPath, "log", "", "Log file path (default <workspace>/.symnav/symnav.log)")
	flags.StringVar(&a.cfg.ConfigPath, "config", "", "Workspace config path (default <workspace>/.symnav/config.yaml)")
	flags.StringVar(&a.cfg.TelemetryPath, "telemetry", "", "Append telemetry events as JSON lines to this file")
	flags.StringVar(&a.cfg.ServerAddr, "addr", a.cfg.ServerAddr, "HTTP server listen address")
	flags.BoolVarP(&a.cfg.LogToStdout, "verbose", "v", false, "Mirror the log on stdout")
	flags.DurationVar(&a.searchDelay, "search-delay", 0, "Quiet period before a filter pass starts")
	flags.StringVar(&a.cancelKey, "cancel-key", "", "Key that cancels a pending or running filter pass")

	root.AddCommand(
		a.newInitCmd(),
		a.newIndexCmd(),
		a.newModulesCmd(),
		a.newRemoveCmd(),
		a.newTreeCmd(),
		a.newFilterCmd(),
		a.newBrowseCmd(),
		a.newServeCmd(),
		a.newLSPCmd(),
	)
	return root
}

func (a *app) runWithRuntime(cmd *cobra.Command, fn func(context.Context, *runtime.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtime.New(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	if a.searchDelay > 0 {
		rt.Config.Search.Delay = a.searchDelay
	}
	if a.cancelKey != "" {
		rt.Config.Search.CancelKey = a.cancelKey
	}
	if cmd.Flags().Changed("addr") {
		rt.Config.ServerAddr = a.cfg.ServerAddr
	}
	return fn(ctx, rt)
}
