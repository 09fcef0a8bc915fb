package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/store"
	"github.com/Mschirtzinger/quotesync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync cycle now",
	Long: `Fetch the remote snapshot, merge it into the local collection, save, and
push local-only quotes.

An unreachable server is not an error: the local collection is left as it is
and the command reports "offline". The command fails only when the local
database cannot be read or written.`,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		ctx, cancel := signalContext()
		defer cancel()

		var sinks []engine.Sink
		if !jsonOutput {
			sinks = append(sinks, engine.SinkFunc(func(st engine.Status) {
				fmt.Println(ui.RenderStatus(st))
			}))
		}

		a := mustOpenApp(ctx, sinks...)
		defer a.Close()

		res, err := a.engine.RunCycle(ctx)

		if jsonOutput {
			out := struct {
				engine.Result
				Error string `json:"error,omitempty"`
			}{Result: res}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
		} else if res.Outcome == engine.OutcomeChanged || res.Outcome == engine.OutcomeUnchanged {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("fetched %d, added %d, updated %d, kept local %d, pushed %d/%d",
				res.Fetched, res.Appended, res.Replaced, res.Protected, res.Pushed, res.Pushed+res.PushFailed)))
		}

		if err != nil {
			a.Close()
			fatalf("sync failed: %v", err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show collection and sync history",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("history")

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		c, err := a.engine.Collection(ctx)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		selected, err := a.engine.SelectedCategory(ctx)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		cycles, err := a.store.RecentCycles(ctx, limit)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		if jsonOutput {
			out := map[string]interface{}{
				"database":          a.store.Path(),
				"endpoint":          a.gateway.Endpoint(),
				"quotes":            len(c),
				"unsynced":          len(c.Unsynced()),
				"categories":        c.Categories(),
				"selected_category": selected,
				"cycles":            cycles,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
			return
		}

		fmt.Printf("%s %s\n", ui.RenderAccent("Database:"), a.store.Path())
		fmt.Printf("%s %s\n", ui.RenderAccent("Remote:"), a.gateway.Endpoint())
		fmt.Printf("%s %d (%d local-only)\n", ui.RenderAccent("Quotes:"), len(c), len(c.Unsynced()))
		fmt.Printf("%s %s\n", ui.RenderAccent("Categories:"), ui.RenderCategories(c.Categories(), selected))

		if last, ok, _ := a.engine.LastViewed(ctx); ok {
			fmt.Printf("%s %q\n", ui.RenderAccent("Last viewed:"), last.Text)
		}

		if len(cycles) == 0 {
			fmt.Println(ui.RenderMuted("\nNo sync cycles recorded yet."))
			return
		}
		fmt.Printf("\n%s\n", ui.RenderAccent("Recent cycles:"))
		for _, cy := range cycles {
			fmt.Printf("  %s  %-12s %s\n",
				cy.StartedAt.Local().Format(time.DateTime),
				renderOutcome(cy),
				ui.RenderMuted(fmt.Sprintf("+%d ~%d ↑%d (%s)", cy.Appended, cy.Replaced, cy.Pushed, cy.Duration().Round(time.Millisecond))))
		}
	},
}

func renderOutcome(cy store.CycleRecord) string {
	switch engine.Outcome(cy.Outcome) {
	case engine.OutcomeChanged, engine.OutcomeUnchanged:
		return ui.RenderPass(cy.Outcome)
	case engine.OutcomeUnreachable, engine.OutcomeNoData:
		return ui.RenderWarn(cy.Outcome)
	default:
		return ui.RenderFail(cy.Outcome)
	}
}

func init() {
	syncCmd.Flags().Bool("json", false, "Output the cycle result as JSON")
	statusCmd.Flags().Bool("json", false, "Output status as JSON")
	statusCmd.Flags().Int("history", 5, "Number of recent cycles to show")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
