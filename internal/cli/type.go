package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

var typeCmd = &cobra.Command{
	Use:     "type",
	Aliases: []string{"types"},
	Short:   "Manage account types",
	Long: `Account types are free-form labels for grouping accounts, like "work"
or "personal". A type can't be deleted while accounts use it.`,
}

var typeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an account type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return typeAddCommand(cmd, args[0])
	},
}

var typeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List account types",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return typeListCommand(cmd)
	},
}

var typeRenameCmd = &cobra.Command{
	Use:   "rename <type> <new-name>",
	Short: "Rename an account type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return typeRenameCommand(cmd, args[0], args[1])
	},
}

var typeDeleteCmd = &cobra.Command{
	Use:     "delete <type>",
	Aliases: []string{"rm"},
	Short:   "Delete an unused account type",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return typeDeleteCommand(cmd, args[0])
	},
}

func init() {
	typeCmd.AddCommand(typeAddCmd, typeListCmd, typeRenameCmd, typeDeleteCmd)
	rootCmd.AddCommand(typeCmd)
}

func typeAddCommand(cmd *cobra.Command, name string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		t, err := a.svc.CreateAccountType(ctx, name)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), t, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created type %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), t.Name)
			return nil
		})
	})
}

func typeListCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		types, err := a.svc.ListAccountTypes(ctx)
		if err != nil {
			return err
		}
		if types == nil {
			types = []model.AccountType{}
		}
		return output(cmd.OutOrStdout(), types, func() error {
			w := cmd.OutOrStdout()
			if len(types) == 0 {
				fmt.Fprintln(w, ui.MutedStyle().Render("No account types yet. Create one with: gitacct type add <name>"))
				return nil
			}
			titles := []string{"ID", "NAME"}
			rows := make([][]string, 0, len(types))
			for _, t := range types {
				rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Name})
			}
			fmt.Fprint(w, ui.RenderSimpleTable(ui.AutoColumns(titles, rows), rows))
			return nil
		})
	})
}

func typeRenameCommand(cmd *cobra.Command, ref, name string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		t, err := findType(ctx, a, ref)
		if err != nil {
			return err
		}
		old := t.Name
		t, err = a.svc.RenameAccountType(ctx, t.ID, name)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), t, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed type %s to %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), old, t.Name)
			return nil
		})
	})
}

func typeDeleteCommand(cmd *cobra.Command, ref string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		t, err := findType(ctx, a, ref)
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete type %s?", t.Name), ""); err != nil {
			return err
		}
		if err := a.svc.DeleteAccountType(ctx, t.ID); err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), t, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted type %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), t.Name)
			return nil
		})
	})
}

// findType resolves a type by name, falling back to its ID.
func findType(ctx context.Context, a *app, ref string) (*model.AccountType, error) {
	t, err := a.svc.FindAccountType(ctx, ref)
	if err == nil {
		return t, nil
	}
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		if byID, gerr := a.svc.GetAccountType(ctx, id); gerr == nil {
			return byID, nil
		}
	}
	return nil, err
}
