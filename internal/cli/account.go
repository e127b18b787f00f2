package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/service"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

// Account command flags
var (
	accountUser       string
	accountEmail      string
	accountType       string
	accountHostname   string
	accountKey        string
	accountNoKey      bool
	accountKeyType    string
	accountKeyBits    int
	accountPassphrase string
	accountName       string
	accountClearType  bool
	accountPurgeKey   bool
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"accounts", "acct"},
	Short:   "Manage Git accounts",
	Long: `Create, inspect, change and remove Git accounts.

An account is a user.name/user.email pair plus an SSH key. Every account
with a key gets a Host block in the managed region of ~/.ssh/config, so
remotes can reach it through its own alias (ssh.host_prefix + name).`,
}

var accountAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create an account and its SSH key",
	Long: `Create an account. A new SSH key is generated unless --key adopts an
existing one or --no-key skips keys entirely. Missing values are prompted
for when running in a terminal.

Examples:
  gitacct account add work --user "Jo Dev" --email jo@corp.com --type work
  gitacct account add personal --user jo --email jo@home.net --key ~/.ssh/id_ed25519
  gitacct account add ci --user bot --email bot@corp.com --no-key`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return accountAddCommand(cmd, name)
	},
}

var accountListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountListCommand(cmd)
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show <account>",
	Short: "Show one account",
	Long: `Show an account's identity, key and host alias. The account can be
named or given by ID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountShowCommand(cmd, args[0])
	},
}

var accountUpdateCmd = &cobra.Command{
	Use:   "update <account>",
	Short: "Change an account",
	Long: `Change an account. Only the flags passed are applied. Projects bound to
the account are marked unconfigured when its identity or alias changes.

Examples:
  gitacct account update work --email jo@newcorp.com
  gitacct account update work --name corp
  gitacct account update work --key ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountUpdateCommand(cmd, args[0])
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:     "delete <account>",
	Aliases: []string{"rm"},
	Short:   "Delete an account",
	Long: `Delete an account. Its projects are detached and its host block leaves
the SSH config. Key files stay on disk unless --purge-key is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountDeleteCommand(cmd, args[0])
	},
}

var accountTestCmd = &cobra.Command{
	Use:   "test <account>",
	Short: "Test SSH authentication through the account's alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountTestCommand(cmd, args[0])
	},
}

func init() {
	addFlags := accountAddCmd.Flags()
	addFlags.StringVar(&accountUser, "user", "", "git user.name")
	addFlags.StringVar(&accountEmail, "email", "", "git user.email")
	addFlags.StringVar(&accountType, "type", "", "account type, created if missing")
	addFlags.StringVar(&accountHostname, "hostname", "", "Git host (default from config)")
	addFlags.StringVar(&accountKey, "key", "", "adopt an existing private key instead of generating one")
	addFlags.BoolVar(&accountNoKey, "no-key", false, "create the account without an SSH key")
	addFlags.StringVar(&accountKeyType, "key-type", "", "key type: ed25519 or rsa (default from config)")
	addFlags.IntVar(&accountKeyBits, "key-bits", 0, "rsa key size (default from config)")
	addFlags.StringVar(&accountPassphrase, "passphrase", "", "passphrase for the generated key")
	accountAddCmd.MarkFlagsMutuallyExclusive("key", "no-key")

	upFlags := accountUpdateCmd.Flags()
	upFlags.StringVar(&accountName, "name", "", "new account name")
	upFlags.StringVar(&accountUser, "user", "", "git user.name")
	upFlags.StringVar(&accountEmail, "email", "", "git user.email")
	upFlags.StringVar(&accountType, "type", "", "account type, created if missing")
	upFlags.BoolVar(&accountClearType, "clear-type", false, "remove the account type")
	upFlags.StringVar(&accountHostname, "hostname", "", "Git host")
	upFlags.StringVar(&accountKey, "key", "", "private key path; empty removes the key reference")
	accountUpdateCmd.MarkFlagsMutuallyExclusive("type", "clear-type")

	accountDeleteCmd.Flags().BoolVar(&accountPurgeKey, "purge-key", false, "also delete the key files")

	accountCmd.AddCommand(accountAddCmd, accountListCmd, accountShowCmd,
		accountUpdateCmd, accountDeleteCmd, accountTestCmd)
	rootCmd.AddCommand(accountCmd)
}

func accountAddCommand(cmd *cobra.Command, name string) error {
	in := service.AccountInput{
		Name:       name,
		UserName:   accountUser,
		UserEmail:  accountEmail,
		TypeName:   accountType,
		Hostname:   accountHostname,
		SSHKeyPath: accountKey,
		NoKey:      accountNoKey,
		KeyType:    accountKeyType,
		KeyBits:    accountKeyBits,
		Passphrase: accountPassphrase,
	}

	if interactive() && (in.Name == "" || in.UserName == "" || in.UserEmail == "") {
		form := &ui.AccountForm{
			Name:      in.Name,
			UserName:  in.UserName,
			UserEmail: in.UserEmail,
			Generate:  !in.NoKey && in.SSHKeyPath == "",
		}
		if err := ui.PromptAccount(form); err != nil {
			return err
		}
		in.Name, in.UserName, in.UserEmail = form.Name, form.UserName, form.UserEmail
		if in.SSHKeyPath == "" {
			in.NoKey = !form.Generate
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var res *service.AccountResult
		label := "Creating account " + in.Name
		if !in.NoKey && in.SSHKeyPath == "" {
			label = "Generating SSH key for " + in.Name
		}
		err := ui.RunWithSpinner(label, machineMode, func() error {
			var err error
			res, err = a.svc.CreateAccount(ctx, in)
			return err
		})
		if err != nil {
			return withData(err, res)
		}

		return output(cmd.OutOrStdout(), res, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Created account %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.Account.Name)
			fmt.Fprint(w, ui.RenderKeyValues(accountPairs(a, *res.Account)))
			warnSkipped(res)
			if res.Key != nil {
				fmt.Fprintf(w, "\nAdd this public key to your Git host:\n\n  %s\n", res.Key.PublicKey)
			}
			return nil
		})
	})
}

func accountListCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		accounts, err := a.svc.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if accounts == nil {
			accounts = []model.Account{}
		}

		return output(cmd.OutOrStdout(), accounts, func() error {
			w := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(w, ui.MutedStyle().Render("No accounts yet. Create one with: gitacct account add"))
				return nil
			}
			titles := []string{"ID", "NAME", "USER", "EMAIL", "TYPE", "HOST ALIAS"}
			rows := make([][]string, 0, len(accounts))
			for _, acct := range accounts {
				rows = append(rows, []string{
					strconv.FormatInt(acct.ID, 10),
					acct.Name,
					acct.UserName,
					acct.UserEmail,
					typeName(acct),
					aliasOrDash(a, acct),
				})
			}
			fmt.Fprint(w, ui.RenderSimpleTable(ui.AutoColumns(titles, rows), rows))
			return nil
		})
	})
}

func accountShowCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		acct, err := a.svc.FindAccount(ctx, ref)
		if err != nil {
			return err
		}

		return output(cmd.OutOrStdout(), acct, func() error {
			w := cmd.OutOrStdout()
			pairs := append([]ui.KeyValue{{Key: "ID", Value: strconv.FormatInt(acct.ID, 10)}}, accountPairs(a, *acct)...)
			pairs = append(pairs, ui.KeyValue{Key: "Public key", Value: acct.PublicKey})
			fmt.Fprint(w, ui.RenderKeyValues(pairs))
			return nil
		})
	})
}

func accountUpdateCommand(cmd *cobra.Command, ref string) error {
	if !anyChanged(cmd, "name", "user", "email", "type", "clear-type", "hostname", "key") {
		return errors.New(errors.ErrInvalid, "Nothing to update",
			"Pass at least one of --name, --user, --email, --type, --clear-type, --hostname or --key.")
	}

	up := service.AccountUpdate{
		Name:       changedString(cmd, "name", accountName),
		UserName:   changedString(cmd, "user", accountUser),
		UserEmail:  changedString(cmd, "email", accountEmail),
		TypeName:   changedString(cmd, "type", accountType),
		ClearType:  accountClearType,
		Hostname:   changedString(cmd, "hostname", accountHostname),
		SSHKeyPath: changedString(cmd, "key", accountKey),
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		acct, err := a.svc.FindAccount(ctx, ref)
		if err != nil {
			return err
		}
		res, err := a.svc.UpdateAccount(ctx, acct.ID, up)
		if err != nil {
			return withData(err, res)
		}

		return output(cmd.OutOrStdout(), res, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Updated account %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.Account.Name)
			fmt.Fprint(w, ui.RenderKeyValues(accountPairs(a, *res.Account)))
			warnSkipped(res)
			return nil
		})
	})
}

func accountDeleteCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		acct, err := a.svc.FindAccount(ctx, ref)
		if err != nil {
			return err
		}

		desc := "Its projects will be detached and its host block removed."
		if accountPurgeKey && acct.HasKey() {
			desc += " The key " + acct.SSHKeyPath + " will be deleted."
		}
		if err := confirm(fmt.Sprintf("Delete account %s?", acct.Name), desc); err != nil {
			return err
		}

		res, err := a.svc.DeleteAccount(ctx, acct.ID, service.DeleteOptions{PurgeKey: accountPurgeKey})
		if err != nil {
			return withData(err, res)
		}

		return output(cmd.OutOrStdout(), res, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Deleted account %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), acct.Name)
			for _, p := range res.Detached {
				fmt.Fprintf(w, "  %s detached %s\n", ui.SymbolArrow, p.Name)
			}
			for _, path := range res.Purged {
				fmt.Fprintf(w, "  %s removed %s\n", ui.SymbolArrow, path)
			}
			return nil
		})
	})
}

func accountTestCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		acct, err := a.svc.FindAccount(ctx, ref)
		if err != nil {
			return err
		}
		return runConnectionTest(cmd, a, *acct)
	})
}

// runConnectionTest tests one account's alias and prints the outcome. A
// failed authentication is an error so the exit code reflects it.
func runConnectionTest(cmd *cobra.Command, a *app, acct model.Account) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	spinner := ui.NewSpinner("Connecting as " + acct.Name)
	spinner.SetOutput(cmd.ErrOrStderr())
	if machineMode {
		spinner.SetOutput(io.Discard)
	}
	spinner.Start()
	res, err := a.svc.TestConnection(ctx, acct.ID)
	if err != nil {
		spinner.Fail()
		return err
	}
	if res.OK {
		spinner.Success()
	} else {
		spinner.Fail()
	}

	if machineMode {
		if !res.OK {
			return withData(errors.New(errors.ErrSSH,
				fmt.Sprintf("Authentication through %s failed", res.Alias), ""), res)
		}
		return WriteJSONSuccess(cmd.OutOrStdout(), res)
	}

	w := cmd.OutOrStdout()
	if res.Output != "" {
		fmt.Fprintln(w, ui.MutedStyle().Render(res.Output))
	}
	if !res.OK {
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Authentication through %s failed", res.Alias),
			"Make sure the public key is added to your account on the Git host.")
	}
	return nil
}

// warnSkipped tells the user when the account got no host block.
func warnSkipped(res *service.AccountResult) {
	if res.Sync == nil {
		return
	}
	for _, skip := range res.Sync.Skipped {
		if skip.Account.ID == res.Account.ID {
			ui.PrintWarning(fmt.Sprintf("%s has no host alias yet: %s", res.Account.Name, skip.Reason))
		}
	}
}

// accountPairs are the rows shown for an account after add, update and show.
func accountPairs(a *app, acct model.Account) []ui.KeyValue {
	return []ui.KeyValue{
		{Key: "Name", Value: acct.Name},
		{Key: "User", Value: acct.UserName},
		{Key: "Email", Value: acct.UserEmail},
		{Key: "Type", Value: typeName(acct)},
		{Key: "Hostname", Value: hostnameOf(a, acct)},
		{Key: "SSH key", Value: acct.SSHKeyPath},
		{Key: "Host alias", Value: aliasOf(a, acct)},
	}
}

func typeName(acct model.Account) string {
	if acct.Type == nil {
		return ""
	}
	return acct.Type.Name
}

func hostnameOf(a *app, acct model.Account) string {
	if acct.Hostname != "" {
		return acct.Hostname
	}
	return a.cfg.SSH.Hostname
}

func aliasOf(a *app, acct model.Account) string {
	if !acct.HasKey() {
		return ""
	}
	return a.svc.HostAlias(acct)
}

func aliasOrDash(a *app, acct model.Account) string {
	if alias := aliasOf(a, acct); alias != "" {
		return alias
	}
	return "-"
}
