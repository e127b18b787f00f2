package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/doctor"
	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose your gitacct setup",
	Long: `Check the config file, the tools gitacct shells out to, the SSH agent,
every account's key, and whether the SSH config matches the accounts.

Examples:
  gitacct doctor
  gitacct doctor --fix
  gitacct doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd, doctorFix)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// doctorCommand implements the doctor command logic.
func doctorCommand(cmd *cobra.Command, fix bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := doctor.Options{ConfigPath: Config(), Runner: exec.NewLocalRunner()}

	// A broken config or database still gets a report; the config check
	// explains what's wrong.
	if a, err := openApp(ctx); err == nil {
		defer a.Close()
		opts.Synchronizer = a.svc.SSH
		if accounts, err := a.svc.ListAccounts(ctx); err == nil {
			opts.Accounts = accounts
		} else {
			logger.Default().Debug("doctor: listing accounts: %v", err)
		}
	} else {
		logger.Default().Debug("doctor: opening database: %v", err)
	}

	checks := doctor.NewChecks(opts)
	results := doctor.RunAllParallel(checks)

	if fix {
		results = attemptFixes(cmd.ErrOrStderr(), checks, results)
	}

	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), buildDoctorOutput(results))
	}

	outputDoctorText(cmd.OutOrStdout(), results, fix)
	if doctor.HasFailures(results) {
		return errors.New(errors.ErrConfig, "Some checks failed", "Follow the suggestions above, then run gitacct doctor again.")
	}
	return nil
}

// attemptFixes runs every available fix, then re-runs the checks it
// touched.
func attemptFixes(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) []doctor.CheckResult {
	failed := doctor.FixAll(checks, results)
	for name, err := range failed {
		fmt.Fprintf(w, "%s fix for %s failed: %v\n", ui.WarningStyle().Render(ui.SymbolWarning), name, err)
	}
	for i, r := range results {
		if r.Fixable && r.Status != doctor.StatusPass {
			results[i] = doctor.RunAll(checks[i : i+1])[0]
		}
	}
	return results
}

// buildDoctorOutput groups results by category in first-seen order.
func buildDoctorOutput(results []doctor.CheckResult) DoctorOutput {
	grouped := doctor.GroupByCategory(results)
	var order []string
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.Category] {
			seen[r.Category] = true
			order = append(order, r.Category)
		}
	}

	out := DoctorOutput{Categories: make([]CategoryOutput, 0, len(order))}
	for _, cat := range order {
		out.Categories = append(out.Categories, CategoryOutput{Name: cat, Results: grouped[cat]})
	}

	counts := doctor.CountByStatus(results)
	out.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return out
}

// outputDoctorText outputs results in human-readable format.
func outputDoctorText(w io.Writer, results []doctor.CheckResult, fixed bool) {
	fmt.Fprintln(w)
	fmt.Fprint(w, ui.RenderHeader(ui.HeaderInfo{
		Title:   "gitacct doctor",
		Version: formatVersion(version),
		Tagline: "Diagnostic report",
	}))
	fmt.Fprintln(w)

	rows := make([]ui.DoctorCheckRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, ui.DoctorCheckRow{
			Status:     r.Status.String(),
			Category:   r.Category,
			Message:    r.Message,
			Suggestion: r.Suggestion,
		})
	}
	fmt.Fprint(w, ui.RenderDoctorTable(rows))

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
		if doctor.FixableCount(results) > 0 && !fixed {
			fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n",
				ui.MutedStyle().Render("--fix"))
		}
	}
	fmt.Fprintln(w)
}
