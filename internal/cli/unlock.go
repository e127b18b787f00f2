package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/lock"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Clear a lock left behind by a crashed gitacct",
	Long: `Remove the lock gitacct takes while it rewrites the SSH config and the
database. Locks older than lock.stale are cleared on their own; use this
when one is stuck sooner than that.

Only run it when no other gitacct process is working.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return unlockCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}

// unlockResult is the JSON body of `unlock`.
type unlockResult struct {
	Path     string `json:"path"`
	Held     bool   `json:"held"`
	Holder   string `json:"holder,omitempty"`
	Released bool   `json:"released"`
}

func unlockCommand(cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.LockDir()
	res := unlockResult{Path: dir}

	if _, err := os.Stat(dir); err == nil {
		res.Held = true
		res.Holder = lock.Holder(dir)
		if err := confirm("Remove the lock?", "Held by "+res.Holder); err != nil {
			return err
		}
		if err := lock.ForceRelease(dir); err != nil {
			return err
		}
		res.Released = true
	}

	return output(cmd.OutOrStdout(), res, func() error {
		w := cmd.OutOrStdout()
		if !res.Held {
			fmt.Fprintln(w, "No lock held")
			return nil
		}
		fmt.Fprintf(w, "%s Removed lock held by %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.Holder)
		return nil
	})
}
