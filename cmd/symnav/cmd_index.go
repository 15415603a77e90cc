package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lexcodex/symnav/internal/symnav/runtime"
)

func (a *app) newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ConfigPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := runtime.SaveWorkspaceConfig(path, runtime.DefaultWorkspaceConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}

func (a *app) newIndexCmd() *cobra.Command {
	var (
		force   bool
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Extract symbols from the workspace into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				rt.Config.Exclude = append(rt.Config.Exclude, exclude...)
				results, err := rt.Index(ctx, args, force)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				failed := 0
				for _, res := range results {
					switch {
					case res.Err != nil:
						failed++
						fmt.Fprintf(out, "error   %s: %v\n", res.Path, res.Err)
					case res.Skipped:
						fmt.Fprintf(out, "skipped %s (unchanged)\n", res.Module)
					default:
						fmt.Fprintf(out, "indexed %s (%d symbols)\n", res.Module, res.Symbols)
					}
				}
				if failed > 0 {
					return fmt.Errorf("%w: %d of %d targets", errIndexFailed, failed, len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-index modules whose content is unchanged")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Workspace-relative globs to skip, e.g. '**/gen'")
	return cmd
}

func (a *app) newModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List indexed modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				records, err := rt.Store.ListModules(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "MODULE\tLANGUAGE\tSYMBOLS\tINDEXED")
				for _, rec := range records {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.Name, rec.Language, rec.SymbolCount, rec.IndexedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <module>",
		Short: "Drop a module from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				if err := rt.Store.DeleteModule(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

// errIndexFailed is returned by index when at least one target failed.
var errIndexFailed = errors.New("index failed")
