package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/symbols"
	"github.com/lexcodex/symnav/internal/symnav/runtime"
)

// cancelLine is the stdin line that cancels a pending filter in --watch mode.
const cancelLine = ":cancel"

func (a *app) newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <module>",
		Short: "Print the symbol tree of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				_, tree, err := rt.LoadTree(ctx, args[0])
				if err != nil {
					return err
				}
				printTree(cmd.OutOrStdout(), tree, tree.Flatten(), false)
				return nil
			})
		},
	}
	return cmd
}

func (a *app) newFilterCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "filter <module> [query...]",
		Short: "Print the symbols of a module that match a query, with their parents",
		Long: "Print the symbols of a module that match a query, with their parents.\n\n" +
			"With --watch every stdin line replaces the query. Lines are debounced like\n" +
			"keystrokes in the browser and a line reading " + cancelLine + " cancels the pending pass.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				mod, tree, err := rt.LoadTree(ctx, args[0])
				if err != nil {
					return err
				}
				units := tree.Flatten()
				out := cmd.OutOrStdout()
				pass := func(query string, cancelled func() bool) {
					start := time.Now()
					rt.Telemetry.Emit(framework.Event{Type: framework.EventSearchPassStart, Module: mod.Name, Panel: "cli", Message: query})
					outcome := search.Classify(units, query, cancelled)
					if outcome == search.Cancelled {
						rt.Telemetry.Emit(framework.Event{Type: framework.EventSearchPassCancel, Module: mod.Name, Panel: "cli", Message: query})
						fmt.Fprintln(out, "-- cancelled")
						return
					}
					summary := search.Count(units)
					eventType := framework.EventSearchPassFinish
					if outcome == search.Unfiltered {
						eventType = framework.EventSearchPassClear
					}
					rt.Telemetry.Emit(framework.Event{
						Type:    eventType,
						Module:  mod.Name,
						Panel:   "cli",
						Message: query,
						Metadata: map[string]interface{}{
							"matches":   summary.Matches,
							"ancestors": summary.Ancestors,
							"elapsed":   time.Since(start).String(),
						},
					})
					if watch {
						fmt.Fprintf(out, "-- %q\n", query)
					}
					printTree(out, tree, units, outcome == search.Completed)
					if outcome == search.Completed {
						fmt.Fprintf(out, "%d matches, %d parents\n", summary.Matches, summary.Ancestors)
					}
				}

				if !watch {
					pass(strings.Join(args[1:], " "), nil)
					return nil
				}
				ctrl := search.NewController(rt.Config.Search)
				ctrl.Focus()
				return search.NewDebouncer(ctrl, pass).Run(ctx, readLines(ctx, cmd.InOrStdin(), ctrl.CancelKey()))
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Read queries from stdin, one per line")
	return cmd
}

// readLines turns stdin lines into key events. The channel closes at EOF.
func readLines(ctx context.Context, r io.Reader, cancelKey string) <-chan search.KeyEvent {
	events := make(chan search.KeyEvent)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			ev := search.KeyEvent{Key: "line", Value: line}
			if strings.TrimSpace(line) == cancelLine {
				ev = search.KeyEvent{Key: cancelKey}
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}

// printTree writes the root title and every visible unit. While filtered
// only marked units are listed and matches carry a trailing star.
func printTree(w io.Writer, tree *symbols.Tree, units []*symbols.Unit, filtered bool) {
	rows := []int{-1}
	for i, u := range units {
		if filtered && u.Class() == search.Unmarked {
			continue
		}
		rows = append(rows, i)
	}
	prefixes := symbols.TreePrefixes(units, rows)
	fmt.Fprintln(w, tree.Root.Name)
	for _, row := range rows[1:] {
		item := units[row].Item
		detail := string(item.Kind)
		if item.HasLines() {
			detail += fmt.Sprintf(" L%d-%d", item.BeginLine, item.EndLine)
		}
		line := prefixes[row] + item.DisplayText() + "  [" + detail + "]"
		if filtered && units[row].Class() == search.Match {
			line += " *"
		}
		fmt.Fprintln(w, line)
	}
}
