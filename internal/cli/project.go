package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/project"
	"github.com/rileyhilliard/gitacct/internal/service"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

// Project command flags
var (
	projectName         string
	projectAccount      string
	projectRemote       string
	projectRemoteName   string
	projectPath         string
	projectClearAccount bool
	projectValidateAll  bool
	projectScanDepth    int
	projectScanRegister bool
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects", "proj"},
	Short:   "Manage projects",
	Long: `Register local repositories and bind them to accounts.

Configuring a project points its remote at the account's host alias and
sets the repository's user.name and user.email. Validation reports where a
repository has drifted from its account.`,
}

var projectAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project",
	Long: `Register a repository directory as a project. The path defaults to the
current directory, the name to the directory name, and the remote URL to
the repository's own.

Examples:
  gitacct project add
  gitacct project add ~/src/app --account work
  gitacct project add ~/src/site --name blog --remote-name upstream`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		return projectAddCommand(cmd, path)
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListCommand(cmd)
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show one project",
	Long: `Show a project. It can be given by path, name or ID, and defaults to
the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowCommand(cmd, projectRef(args))
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update [project]",
	Short: "Change a project",
	Long: `Change a project's record. The repository itself is untouched until the
project is configured again.

Examples:
  gitacct project update app --account personal
  gitacct project update app --clear-account`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectUpdateCommand(cmd, projectRef(args))
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Forget a project",
	Long:    `Forget a project. The repository on disk is not touched.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectDeleteCommand(cmd, projectRef(args))
	},
}

var projectConfigureCmd = &cobra.Command{
	Use:   "configure [project]",
	Short: "Point a project's remote and identity at its account",
	Long: `Rewrite the project's remote URL to go through its account's host alias
and set user.name and user.email in the repository's git config.

With --account the project is bound to that account first. Without one,
and without an account already bound, a picker is shown in a terminal.

Examples:
  gitacct project configure
  gitacct project configure app --account work`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectConfigureCommand(cmd, projectRef(args))
	},
}

var projectValidateCmd = &cobra.Command{
	Use:   "validate [project]",
	Short: "Check projects against their accounts",
	Long: `Compare a repository's git identity and key with its account. Exits
non-zero when any project has a discrepancy.

Examples:
  gitacct project validate
  gitacct project validate --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectValidateAll {
			if len(args) > 0 {
				return errors.New(errors.ErrInvalid, "--all takes no project", "Drop the project argument or --all.")
			}
			return projectValidateAllCommand(cmd)
		}
		return projectValidateCommand(cmd, projectRef(args))
	},
}

var projectScanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Find repositories under a directory",
	Long: `Find git repositories under root (default: current directory). With
--register the ones not yet known are added as projects.

Examples:
  gitacct project scan ~/src
  gitacct project scan ~/src --depth 3 --register`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectScanCommand(cmd, projectRef(args))
	},
}

var projectTestCmd = &cobra.Command{
	Use:   "test [project]",
	Short: "Test SSH authentication for a project's account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectTestCommand(cmd, projectRef(args))
	},
}

func init() {
	addFlags := projectAddCmd.Flags()
	addFlags.StringVar(&projectName, "name", "", "project name (default: directory name)")
	addFlags.StringVar(&projectAccount, "account", "", "account to bind")
	addFlags.StringVar(&projectRemote, "remote", "", "remote URL (default: read from the repository)")
	addFlags.StringVar(&projectRemoteName, "remote-name", "", "remote to manage (default: origin)")

	upFlags := projectUpdateCmd.Flags()
	upFlags.StringVar(&projectName, "name", "", "project name")
	upFlags.StringVar(&projectPath, "path", "", "repository directory")
	upFlags.StringVar(&projectAccount, "account", "", "account to bind")
	upFlags.BoolVar(&projectClearAccount, "clear-account", false, "unbind the account")
	upFlags.StringVar(&projectRemote, "remote", "", "remote URL")
	upFlags.StringVar(&projectRemoteName, "remote-name", "", "remote to manage")
	projectUpdateCmd.MarkFlagsMutuallyExclusive("account", "clear-account")

	projectConfigureCmd.Flags().StringVar(&projectAccount, "account", "", "account to bind before configuring")

	projectValidateCmd.Flags().BoolVar(&projectValidateAll, "all", false, "validate every project")

	projectScanCmd.Flags().IntVar(&projectScanDepth, "depth", project.DefaultScanDepth, "how many levels below root to look")
	projectScanCmd.Flags().BoolVar(&projectScanRegister, "register", false, "add repositories that aren't projects yet")

	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectShowCmd, projectUpdateCmd,
		projectDeleteCmd, projectConfigureCmd, projectValidateCmd, projectScanCmd, projectTestCmd)
	rootCmd.AddCommand(projectCmd)
}

// projectRef is the first argument, or the current directory.
func projectRef(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func projectAddCommand(cmd *cobra.Command, path string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		in := service.ProjectInput{
			Name:       projectName,
			Path:       path,
			RemoteURL:  projectRemote,
			RemoteName: projectRemoteName,
		}
		if projectAccount != "" {
			acct, err := a.svc.FindAccount(ctx, projectAccount)
			if err != nil {
				return err
			}
			in.AccountID = &acct.ID
		}

		p, err := a.svc.CreateProject(ctx, in)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), p, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Registered project %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), p.Name)
			fmt.Fprint(w, ui.RenderKeyValues(projectPairs(ctx, a, *p)))
			if p.AccountID != nil {
				fmt.Fprintf(w, "\nApply it with: gitacct project configure %s\n", p.Name)
			}
			return nil
		})
	})
}

func projectListCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		projects, err := a.svc.ListProjects(ctx)
		if err != nil {
			return err
		}
		if projects == nil {
			projects = []model.Project{}
		}
		return output(cmd.OutOrStdout(), projects, func() error {
			w := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(w, ui.MutedStyle().Render("No projects yet. Register one with: gitacct project add <path>"))
				return nil
			}
			names := accountNames(ctx, a)
			titles := []string{"ID", "NAME", "ACCOUNT", "CONFIGURED", "PATH"}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				acct := "-"
				if p.AccountID != nil {
					acct = names[*p.AccountID]
				}
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.Name,
					acct,
					yesNo(p.Configured),
					p.Path,
				})
			}
			fmt.Fprint(w, ui.RenderSimpleTable(ui.AutoColumns(titles, rows), rows))
			return nil
		})
	})
}

func projectShowCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), p, func() error {
			pairs := append([]ui.KeyValue{{Key: "ID", Value: strconv.FormatInt(p.ID, 10)}}, projectPairs(ctx, a, *p)...)
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderKeyValues(pairs))
			return nil
		})
	})
}

func projectUpdateCommand(cmd *cobra.Command, ref string) error {
	if !anyChanged(cmd, "name", "path", "account", "clear-account", "remote", "remote-name") {
		return errors.New(errors.ErrInvalid, "Nothing to update",
			"Pass at least one of --name, --path, --account, --clear-account, --remote or --remote-name.")
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}
		up := service.ProjectUpdate{
			Name:         changedString(cmd, "name", projectName),
			Path:         changedString(cmd, "path", projectPath),
			ClearAccount: projectClearAccount,
			RemoteURL:    changedString(cmd, "remote", projectRemote),
			RemoteName:   changedString(cmd, "remote-name", projectRemoteName),
		}
		if cmd.Flags().Changed("account") {
			acct, err := a.svc.FindAccount(ctx, projectAccount)
			if err != nil {
				return err
			}
			up.AccountID = &acct.ID
		}

		p, err = a.svc.UpdateProject(ctx, p.ID, up)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), p, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Updated project %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), p.Name)
			fmt.Fprint(w, ui.RenderKeyValues(projectPairs(ctx, a, *p)))
			return nil
		})
	})
}

func projectDeleteCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Forget project %s?", p.Name), p.Path+" stays on disk."); err != nil {
			return err
		}
		if err := a.svc.DeleteProject(ctx, p.ID); err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), p, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Forgot project %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), p.Name)
			return nil
		})
	})
}

func projectConfigureCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}

		var accountID *int64
		switch {
		case projectAccount != "":
			acct, err := a.svc.FindAccount(ctx, projectAccount)
			if err != nil {
				return err
			}
			accountID = &acct.ID
		case p.AccountID == nil && interactive():
			accounts, err := a.svc.ListAccounts(ctx)
			if err != nil {
				return err
			}
			acct, err := ui.PickAccount("Account for "+p.Name, a.cfg.SSH.HostPrefix, accounts)
			if err != nil {
				return err
			}
			accountID = &acct.ID
		}

		p, err = a.svc.ConfigureProject(ctx, p.ID, accountID)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), p, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Configured project %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), p.Name)
			fmt.Fprint(w, ui.RenderKeyValues(projectPairs(ctx, a, *p)))
			return nil
		})
	})
}

func projectValidateCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}
		report, err := a.svc.ValidateProject(ctx, p.ID)
		if err != nil {
			return err
		}
		return reportValidation(cmd, []model.ValidationReport{*report}, map[int64]string{p.ID: p.Name})
	})
}

func projectValidateAllCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		projects, err := a.svc.ListProjects(ctx)
		if err != nil {
			return err
		}
		names := make(map[int64]string, len(projects))
		for _, p := range projects {
			names[p.ID] = p.Name
		}
		reports, err := a.svc.ValidateAll(ctx)
		if err != nil {
			return err
		}
		return reportValidation(cmd, reports, names)
	})
}

// reportValidation prints the reports and fails when any is invalid.
func reportValidation(cmd *cobra.Command, reports []model.ValidationReport, names map[int64]string) error {
	invalid := 0
	for _, r := range reports {
		if !r.Valid {
			invalid++
		}
	}
	var failure error
	if invalid > 0 {
		failure = errors.New(errors.ErrInvalid,
			fmt.Sprintf("%d of %d project%s out of line with %s account",
				invalid, len(reports), plural(len(reports)), pick(len(reports) == 1, "its", "their")),
			"Fix them with: gitacct project configure <project>")
	}

	if machineMode {
		if failure != nil {
			return withData(failure, reports)
		}
		return WriteJSONSuccess(cmd.OutOrStdout(), reports)
	}

	w := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("No projects to validate"))
		return nil
	}
	for _, r := range reports {
		name := names[r.ProjectID]
		if name == "" {
			name = r.Path
		}
		if r.Valid {
			fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), name)
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), name, ui.MutedStyle().Render(r.Path))
		for _, d := range r.Discrepancies {
			fmt.Fprintf(w, "    %s %s\n", ui.WarningStyle().Render(string(d.Code)), d.Detail)
		}
	}
	return failure
}

func projectScanCommand(cmd *cobra.Command, root string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.svc.ScanProjects(ctx, root, projectScanDepth, projectScanRegister)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), res, func() error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Found %d repositor%s under %s\n", len(res.Found), pick(len(res.Found) == 1, "y", "ies"), res.Root)
			known := make(map[string]bool, len(res.Existing))
			for _, path := range res.Existing {
				known[path] = true
			}
			added := make(map[string]bool, len(res.Added))
			for _, p := range res.Added {
				added[p.Path] = true
			}
			for _, path := range res.Found {
				switch {
				case known[path]:
					fmt.Fprintf(w, "  %s %s %s\n", ui.SymbolComplete, path, ui.MutedStyle().Render("(registered)"))
				case added[path]:
					fmt.Fprintf(w, "  %s %s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path, ui.MutedStyle().Render("(added)"))
				default:
					fmt.Fprintf(w, "  %s %s\n", ui.SymbolPending, path)
				}
			}
			if !projectScanRegister && len(res.Found) > len(res.Existing) {
				fmt.Fprintln(w, ui.MutedStyle().Render("\nRegister them with: gitacct project scan --register"))
			}
			return nil
		})
	})
}

func projectTestCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.svc.FindProject(ctx, ref)
		if err != nil {
			return err
		}
		if p.AccountID == nil {
			return errors.New(errors.ErrInvalid,
				fmt.Sprintf("Project %q has no account", p.Name),
				"Bind one with: gitacct project update --account <name>")
		}
		acct, err := a.svc.GetAccount(ctx, *p.AccountID)
		if err != nil {
			return err
		}
		return runConnectionTest(cmd, a, *acct)
	})
}

// projectPairs are the rows shown for a project.
func projectPairs(ctx context.Context, a *app, p model.Project) []ui.KeyValue {
	acct := ""
	if p.AccountID != nil {
		if found, err := a.svc.GetAccount(ctx, *p.AccountID); err == nil {
			acct = found.Name
		}
	}
	remoteName := p.RemoteName
	if remoteName == "" {
		remoteName = project.DefaultRemoteName
	}
	return []ui.KeyValue{
		{Key: "Name", Value: p.Name},
		{Key: "Path", Value: p.Path},
		{Key: "Account", Value: acct},
		{Key: "Remote", Value: strings.TrimSpace(remoteName + " " + p.RemoteURL)},
		{Key: "Configured", Value: yesNo(p.Configured)},
	}
}

// accountNames maps account IDs to names for list output.
func accountNames(ctx context.Context, a *app) map[int64]string {
	names := make(map[int64]string)
	accounts, err := a.svc.ListAccounts(ctx)
	if err != nil {
		return names
	}
	for _, acct := range accounts {
		names[acct.ID] = acct.Name
	}
	return names
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func plural(n int) string {
	return pick(n == 1, "", "s")
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
