package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// changedString returns a pointer to value when flag was passed, so an
// update can tell "set to empty" from "leave alone".
func changedString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}

// anyChanged reports whether at least one of flags was passed.
func anyChanged(cmd *cobra.Command, flags ...string) bool {
	for _, f := range flags {
		if cmd.Flags().Changed(f) {
			return true
		}
	}
	return false
}
