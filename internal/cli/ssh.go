package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/keygen"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
	"github.com/rileyhilliard/gitacct/internal/ui"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
)

var (
	sshDryRun   bool
	sshWithKeys bool
)

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Work with the SSH config and keys",
	Long: `gitacct owns one region of ~/.ssh/config, between the lines

  ` + sshconfig.StartMarker + `
  ` + sshconfig.EndMarker + `

Everything outside that region is left exactly as it is.`,
}

var sshSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rewrite the managed hosts from the account list",
	Long: `Rewrite the managed region of the SSH config so it holds one Host block
per account with a key. Accounts whose key file is missing are skipped.

Examples:
  gitacct ssh sync
  gitacct ssh sync --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sshSyncCommand(cmd, sshDryRun)
	},
}

var sshImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Adopt hand-written SSH hosts as accounts",
	Long: `Create an account for every host in the SSH config whose identity file
has a public key with an email address as its comment. The SSH config is
not changed; run 'gitacct ssh sync' afterwards to add managed aliases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sshImportCommand(cmd)
	},
}

var sshHostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts in the SSH config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sshHostsCommand(cmd, sshWithKeys)
	},
}

var sshKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List key pairs in the SSH directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sshKeysCommand(cmd)
	},
}

func init() {
	sshSyncCmd.Flags().BoolVar(&sshDryRun, "dry-run", false, "show the managed region without writing it")
	sshHostsCmd.Flags().BoolVar(&sshWithKeys, "with-keys", false, "only hosts whose identity file exists")

	sshCmd.AddCommand(sshSyncCmd, sshImportCmd, sshHostsCmd, sshKeysCmd)
	rootCmd.AddCommand(sshCmd)
}

func sshSyncCommand(cmd *cobra.Command, dryRun bool) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		var res *sshconfig.Result
		var region string
		if dryRun {
			plan, err := a.svc.PlanSSHConfig(ctx)
			if err != nil {
				return err
			}
			res, region = &plan.Result, plan.Region
		} else {
			var err error
			res, err = a.svc.SyncSSHConfig(ctx)
			if err != nil {
				return err
			}
		}

		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), struct {
				*sshconfig.Result
				DryRun bool   `json:"dry_run"`
				Region string `json:"region,omitempty"`
			}{res, dryRun, region})
		}

		w := cmd.OutOrStdout()
		switch {
		case dryRun && res.Changed:
			fmt.Fprintf(w, "%s would change. The managed region would read:\n\n%s\n", res.Path, region)
		case dryRun:
			fmt.Fprintf(w, "%s is already up to date\n", res.Path)
		case res.Changed:
			fmt.Fprintf(w, "%s Updated %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.Path)
		default:
			fmt.Fprintf(w, "%s %s is already up to date\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.Path)
		}
		for _, alias := range res.Aliases(a.cfg.SSH.HostPrefix) {
			fmt.Fprintf(w, "  %s %s\n", ui.SymbolArrow, alias)
		}
		for _, skip := range res.Skipped {
			fmt.Fprintf(w, "  %s %s %s\n", ui.WarningStyle().Render(ui.SymbolSkipped), skip.Account.Name,
				ui.MutedStyle().Render("("+skip.Reason+")"))
		}
		return nil
	})
}

func sshImportCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.svc.ImportSSHConfig(ctx)
		if err != nil {
			return withData(err, res)
		}
		return output(cmd.OutOrStdout(), res, func() error {
			w := cmd.OutOrStdout()
			if len(res.Imported) == 0 {
				fmt.Fprintln(w, "No hosts to import")
			} else {
				fmt.Fprintf(w, "%s Imported %d account%s\n", ui.SuccessStyle().Render(ui.SymbolSuccess),
					len(res.Imported), plural(len(res.Imported)))
				for _, acct := range res.Imported {
					fmt.Fprintf(w, "  %s %s <%s>\n", ui.SymbolArrow, acct.Name, acct.UserEmail)
				}
			}
			for _, skip := range res.Skipped {
				fmt.Fprintf(w, "  %s %s %s\n", ui.MutedStyle().Render(ui.SymbolSkipped), skip.Host.Alias,
					ui.MutedStyle().Render("("+skip.Reason+")"))
			}
			if len(res.Imported) > 0 {
				fmt.Fprintln(w, "\nAdd their managed aliases with: gitacct ssh sync")
			}
			return nil
		})
	})
}

// hostRow is a host in `ssh hosts` output.
type hostRow struct {
	sshutil.HostEntry
	Managed bool `json:"managed"`
}

func sshHostsCommand(cmd *cobra.Command, withKeys bool) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	hosts, err := sshutil.ParseSSHConfigFile(cfg.SSHConfig)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrMalformedConfig,
			fmt.Sprintf("Couldn't parse %s", cfg.SSHConfig),
			"Check the file with: ssh -G <host>")
	}
	if withKeys {
		hosts = sshutil.FilterHostsWithKeys(hosts)
	}
	managed, err := sshconfig.ManagedHosts(cfg.SSHConfig)
	if err != nil {
		return err
	}
	inRegion := make(map[string]bool, len(managed))
	for _, h := range managed {
		inRegion[h.Alias] = true
	}

	rows := make([]hostRow, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, hostRow{HostEntry: h, Managed: inRegion[h.Alias]})
	}

	return output(cmd.OutOrStdout(), rows, func() error {
		w := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintf(w, "No hosts in %s\n", cfg.SSHConfig)
			return nil
		}
		titles := []string{"HOST", "MANAGED", "DETAILS"}
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{r.Alias, yesNo(r.Managed), r.Description()})
		}
		fmt.Fprint(w, ui.RenderSimpleTable(ui.AutoColumns(titles, cells), cells))
		return nil
	})
}

// keyRow is a key pair in `ssh keys` output.
type keyRow struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	PublicKey string `json:"public_key_path"`
	Account   string `json:"account,omitempty"`
}

func sshKeysCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		keys, err := keygen.ListKeys(a.cfg.SSHDir)
		if err != nil {
			return err
		}
		accounts, err := a.svc.ListAccounts(ctx)
		if err != nil {
			return err
		}
		owner := make(map[string]string, len(accounts))
		for _, acct := range accounts {
			if acct.HasKey() {
				owner[fsutil.ExpandHome(acct.SSHKeyPath)] = acct.Name
			}
		}

		rows := make([]keyRow, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, keyRow{Path: k.Path, Type: k.Type, PublicKey: k.PublicPath, Account: owner[k.Path]})
		}

		return output(cmd.OutOrStdout(), rows, func() error {
			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(w, "No key pairs in %s\n", a.cfg.SSHDir)
				return nil
			}
			titles := []string{"KEY", "TYPE", "ACCOUNT"}
			cells := make([][]string, 0, len(rows))
			for _, r := range rows {
				acct := r.Account
				if acct == "" {
					acct = "-"
				}
				cells = append(cells, []string{strings.TrimPrefix(r.Path, a.cfg.SSHDir+"/"), r.Type, acct})
			}
			fmt.Fprint(w, ui.RenderSimpleTable(ui.AutoColumns(titles, cells), cells))
			return nil
		})
	})
}
