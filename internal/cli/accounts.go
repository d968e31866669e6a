package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"a", "auths"},
	Short:   "List discovered auth entries",
	Long: `List the auth files discovered in the credential directory and the
provider each one maps to.`,
	RunE: runAccounts,
}

func init() {
	RootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	d, err := buildDeck()
	if err != nil {
		return err
	}

	entries := d.manager.Entries()
	if globalFlags.JSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROVIDER\tEMAIL\tPLAN\tFILE")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.Name, entry.Kind, entry.Email, entry.PlanType, entry.AuthIndex)
	}
	w.Flush()

	fmt.Printf("\n%d auth entries in %s\n", len(entries), d.manager.AuthPath())
	return nil
}
