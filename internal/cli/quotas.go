package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotadeck/quotadeck/internal/i18n"
	"github.com/quotadeck/quotadeck/internal/models"
	"github.com/quotadeck/quotadeck/internal/orchestrator"
)

// quotasCmd represents the quotas command
var quotasCmd = &cobra.Command{
	Use:     "quotas",
	Aliases: []string{"q", "quota"},
	Short:   "Fetch current quotas once and print them",
	Long: `Fetch quota for every discovered account and print the result.

Examples:
  # Fetch all providers
  quotadeck quotas

  # Fetch one provider
  quotadeck quotas --provider codex

  # Output as JSON
  quotadeck quotas --json | jq '.'`,
	RunE: runQuotas,
}

var quotasFlags struct {
	Provider string
	Timeout  time.Duration
}

func init() {
	quotasCmd.Flags().StringVar(&quotasFlags.Provider, "provider", "", "Fetch only this provider (antigravity, codex, gemini-cli, github-copilot)")
	quotasCmd.Flags().DurationVar(&quotasFlags.Timeout, "timeout", 60*time.Second, "Overall fetch timeout")

	RootCmd.AddCommand(quotasCmd)
}

func runQuotas(cmd *cobra.Command, args []string) error {
	d, err := buildDeck()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), quotasFlags.Timeout)
	defer cancel()

	orch := orchestrator.New(d.registry, d.cache, d.manager,
		orchestrator.WithLogger(d.logger),
		orchestrator.WithConcurrency(d.cfg.Poll.Concurrency))

	if quotasFlags.Provider != "" {
		kind, ok := models.ParseProvider(quotasFlags.Provider)
		if !ok {
			return fmt.Errorf("unknown provider: %s", quotasFlags.Provider)
		}
		orch.RefreshProvider(ctx, kind)
	} else {
		orch.RefreshAll(ctx)
	}

	snapshot := d.cache.Snapshot()
	if globalFlags.JSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(snapshot)
	}

	printQuotaTable(snapshot)
	return nil
}

func printQuotaTable(snapshot map[models.ProviderKind]map[string]models.QuotaState) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tACCOUNT\tSTATUS\tQUOTA")

	for _, kind := range models.AllProviders() {
		entries := snapshot[kind]
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			state := entries[key]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind.String(), key, state.Kind, stateSummary(state))
		}
	}
	w.Flush()
}

// stateSummary renders one line of pool details for a cached state.
func stateSummary(state models.QuotaState) string {
	if state.Kind == models.StateError {
		if state.HTTPStatus != 0 {
			return fmt.Sprintf("HTTP %d: %s", state.HTTPStatus, state.Message)
		}
		return state.Message
	}
	if state.Kind != models.StateSuccess || state.Result == nil {
		return "-"
	}

	var parts []string
	t := i18n.Default()
	result := state.Result
	switch result.Provider {
	case models.ProviderAntigravity:
		for _, group := range result.Antigravity {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", group.Label, group.RemainingFraction*100))
		}
	case models.ProviderCodex:
		if result.Codex != nil {
			for _, window := range result.Codex.Windows {
				if window.UsedPercent != nil {
					label := window.ID
					if window.LabelKey != "" {
						label = t(window.LabelKey, nil)
					}
					parts = append(parts, fmt.Sprintf("%s %.0f%% used", label, *window.UsedPercent))
				}
			}
		}
	case models.ProviderGeminiCLI:
		for _, bucket := range result.Gemini {
			if bucket.RemainingFraction != nil {
				parts = append(parts, fmt.Sprintf("%s %.0f%%", bucket.ID, *bucket.RemainingFraction*100))
			}
		}
	case models.ProviderGithubCopilot:
		if quota := result.Copilot; quota != nil {
			if quota.PremiumPercent != nil {
				parts = append(parts, fmt.Sprintf("%s %.0f%%", t("quota.copilot.premium", nil), *quota.PremiumPercent))
			}
			if quota.CompletionsPercent != nil {
				parts = append(parts, fmt.Sprintf("%s %.0f%%", t("quota.copilot.complete", nil), *quota.CompletionsPercent))
			}
			if quota.ChatPercent != nil {
				parts = append(parts, fmt.Sprintf("%s %.0f%%", t("quota.copilot.chat", nil), *quota.ChatPercent))
			} else if quota.ChatUnlimited != nil && *quota.ChatUnlimited {
				parts = append(parts, fmt.Sprintf("%s unlimited", t("quota.copilot.chat", nil)))
			}
		}
	}
	if len(parts) == 0 {
		return "no pools reported"
	}
	return strings.Join(parts, ", ")
}
