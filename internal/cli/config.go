package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/gitacct/internal/config"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
	Long: `gitacct reads ~/.config/gitacct/config.yaml when it exists (or the file
named by --config or $GITACCT_CONFIG). Every setting can also come from the
environment as GITACCT_<SECTION>_<KEY>, e.g. GITACCT_SSH_HOST_PREFIX.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(cmd, configInitForce)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Long: `Print one effective setting.

Examples:
  gitacct config get ssh.host_prefix
  gitacct config get keygen.type`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return configGetCommand(cmd, args[0])
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the config file",
	Long: `Change one setting in the config file, creating the file if needed.
Comments and other settings are kept.

Examples:
  gitacct config set keygen.type rsa
  gitacct config set output.color never`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd, args[0], args[1])
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configTarget is the file init and set write to.
func configTarget() string {
	if cfgFile != "" {
		return fsutil.ExpandHome(cfgFile)
	}
	if env := os.Getenv(config.ConfigEnv); env != "" {
		return fsutil.ExpandHome(env)
	}
	return config.DefaultPath()
}

func configInitCommand(cmd *cobra.Command, force bool) error {
	path := configTarget()
	if err := config.WriteDefault(path, force); err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), map[string]string{"path": path}, func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
		return nil
	})
}

func configShowCommand(cmd *cobra.Command) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if machineMode {
		values := make(map[string]string)
		for _, key := range config.Keys() {
			values[key], _ = cfg.Get(key)
		}
		return WriteJSONSuccess(cmd.OutOrStdout(), map[string]interface{}{"path": path, "settings": values})
	}

	w := cmd.OutOrStdout()
	if path == "" {
		fmt.Fprintln(w, ui.MutedStyle().Render("# no config file, showing defaults"))
	} else {
		fmt.Fprintln(w, ui.MutedStyle().Render("# "+path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func configGetCommand(cmd *cobra.Command, key string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), map[string]string{"key": key, "value": value}, func() error {
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	})
}

func configSetCommand(cmd *cobra.Command, key, value string) error {
	path := configTarget()
	if err := config.SetValue(path, key, value); err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), map[string]string{"path": path, "key": key, "value": value}, func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s = %s in %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, value, path)
		return nil
	})
}
