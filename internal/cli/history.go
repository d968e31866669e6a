package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quotadeck/quotadeck/internal/config"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/models"
	"github.com/quotadeck/quotadeck/internal/store"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <provider> <entry-key>",
	Short: "Show recorded quota snapshots for one account",
	Long: `Show the snapshot history recorded by a running server for one
provider and entry key.

Example:
  quotadeck history codex codex-agent-1 --limit 20`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

var historyFlags struct {
	Limit int
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.Limit, "limit", 20, "Maximum number of snapshots")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}

	kind, ok := models.ParseProvider(args[0])
	if !ok {
		return fmt.Errorf("unknown provider: %s", args[0])
	}

	history, err := store.NewHistory(cfg.History.Path, logging.NewLogger(logging.WithLevel(logging.LevelWarn)))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer history.Close()

	snapshots, err := history.Recent(kind, args[1], historyFlags.Limit)
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(snapshots)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tSTATUS\tQUOTA")
	for _, snap := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			snap.RecordedAt.Format("2006-01-02 15:04:05"),
			snap.Kind,
			stateSummary(models.QuotaState{
				Kind:       snap.Kind,
				Result:     snap.Result,
				Message:    snap.Message,
				HTTPStatus: snap.HTTPStatus,
			}))
	}
	w.Flush()
	return nil
}
