package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/config"
	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/service"
	"github.com/rileyhilliard/gitacct/internal/store"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

// Global flags
var (
	cfgFile   string
	verbose   bool
	noColor   bool
	assumeYes bool
)

var rootCmd = &cobra.Command{
	Use:   "gitacct",
	Short: "Manage multiple Git accounts on one machine",
	Long: `gitacct keeps several Git identities apart on one machine.

Each account gets its own SSH key and a Host alias in ~/.ssh/config, and
each project is pointed at an account: its remote goes through the
account's alias and its user.name/user.email become the account's.

Examples:
  gitacct account add work --user "Jo Dev" --email jo@corp.com
  gitacct project add ~/src/app --account work
  gitacct project configure app
  gitacct project validate --all`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetVerbose(true)
		}
		if noColor || machineMode {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/gitacct/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err in the format the output mode calls for.
func reportError(err error) {
	if machineMode {
		_ = writeJSONPartial(os.Stdout, err)
		return
	}
	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), err)
		fmt.Fprintln(os.Stderr, "  Run 'gitacct --help' to see the available commands.")
		return
	}
	var e *errors.Error
	if errors.As(err, &e) {
		fmt.Fprint(os.Stderr, e.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), err)
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// app is what commands that touch accounts and projects work with.
type app struct {
	cfg     *config.Config
	cfgPath string
	store   *store.Store
	svc     *service.Service
}

// loadConfig loads the config file if there is one, defaults otherwise,
// and validates the result.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	ui.ApplyColorMode(cfg.Output.Color)
	if noColor || machineMode {
		ui.DisableColors()
	}
	return cfg, path, nil
}

// openApp loads config and opens the database. Callers must close it.
func openApp(ctx context.Context) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, cfgPath: path, store: st, svc: service.New(cfg, st)}, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// withApp runs fn with an open app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// interactive reports whether prompts may be shown.
func interactive() bool {
	return !machineMode && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)
}

// confirm asks before a destructive action. --yes skips the prompt; a
// non-interactive session without --yes is refused.
func confirm(title, description string) error {
	if assumeYes {
		return nil
	}
	if !interactive() {
		return errors.New(errors.ErrInvalid,
			title+" needs confirmation",
			"Re-run with --yes to confirm without a prompt.")
	}
	ok, err := ui.Confirm(title, description)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrInvalid, "Cancelled", "")
	}
	return nil
}
