package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/symnav/internal/symnav/runtime"
	"github.com/lexcodex/symnav/internal/symnav/tui"
)

func (a *app) newBrowseCmd() *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "browse [module]",
		Short: "Open the interactive symbol browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				if serve {
					stop, err := rt.StartServer(ctx, rt.Config.ServerAddr)
					if err != nil {
						return err
					}
					defer stop(context.Background())
				}
				module := ""
				if len(args) == 1 {
					module = args[0]
				}
				return tui.Run(ctx, rt, module)
			})
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "Launch the HTTP API server alongside the browser")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run only the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(cmdCtx context.Context, rt *runtime.Runtime) error {
				addr := rt.Config.ServerAddr
				stop, err := rt.StartServer(cmdCtx, addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "symnav API listening on %s\n", addr)
				<-cmdCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return stop(shutdownCtx)
			})
		},
	}
	return cmd
}

func (a *app) newLSPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Serve workspace and document symbols to an editor over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LogToStdout {
				return errors.New("--verbose would corrupt the LSP stream on stdout")
			}
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				return rt.LSPServer().ServeStream(ctx, stdio{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()})
			})
		},
	}
	return cmd
}

// stdio joins the command's input and output into one stream.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }
