package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"hhsfinance/internal/cli"
	"hhsfinance/internal/core"
)

// runHistory lists the local snapshots that were replaced by a remote
// update, a pull or a restore, and can bring one of them back.
func runHistory(e *env, args []string) error {
	fs := e.flagSet("history")
	limit := fs.Int("limit", 0, "Maximum entries, 0 for all retained")
	restore := fs.Int64("restore", 0, "Archive entry to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		entries, err := app.Store.Archived(e.ctx, *limit)
		if err != nil {
			return err
		}

		if *restore != 0 {
			for _, entry := range entries {
				if entry.ID != *restore {
					continue
				}
				// archived payloads are bare AppState documents
				if _, err := app.Reconciler.Import(e.ctx, []byte(entry.Payload)); err != nil {
					return fmt.Errorf("restore archive entry %d: %w", entry.ID, err)
				}
				fmt.Fprintf(e.stdout, "Restored archive entry %d (%s)\n", entry.ID, entry.Reason)
				return nil
			}
			return fmt.Errorf("archive entry %d not found", *restore)
		}

		tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tREPLACED\tREASON\tTRANSACTIONS\tCURRENCY")
		for _, entry := range entries {
			var state core.AppState
			if err := json.Unmarshal([]byte(entry.Payload), &state); err != nil {
				fmt.Fprintf(tw, "%d\t%s\t%s\t?\t?\n", entry.ID, entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.Reason)
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", entry.ID, entry.CreatedAt.Local().Format("2006-01-02 15:04"),
				entry.Reason, len(state.Transactions), state.Currency)
		}
		return tw.Flush()
	})
}
