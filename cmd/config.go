package cmd

import (
	"fmt"
	"text/tabwriter"

	"clipscribe/infrastructure/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration entries",
	Long: `Manage allowed browser origins and individual settings in the configuration file.

Examples:
  clipscribe config origins list
  clipscribe config origins add https://transcripts.example.com
  clipscribe config origins remove http://localhost:5173
  clipscribe config get whisper.model
  clipscribe config set whisper.model small`,
}

var configOriginsCmd = &cobra.Command{
	Use:   "origins",
	Short: "Manage origins allowed to call the HTTP API",
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configOriginsCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)

	configOriginsCmd.AddCommand(configOriginsListCmd)
	configOriginsCmd.AddCommand(configOriginsAddCmd)
	configOriginsCmd.AddCommand(configOriginsRemoveCmd)
}

// --- ORIGINS ---

var configOriginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowed origins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigOriginsListWithDependencies(cfg, cfgFile, DefaultOutput)
	},
}

// RunConfigOriginsListWithDependencies runs the origins list command with injected dependencies
func RunConfigOriginsListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	origins := mgr.ListOrigins()
	if len(origins) == 0 {
		fmt.Fprintln(out, "No origins configured. Browser requests will be rejected.")
		return nil
	}
	for _, o := range origins {
		fmt.Fprintln(out, o)
	}
	return nil
}

var configOriginsAddCmd = &cobra.Command{
	Use:   "add <origin>",
	Short: "Allow an origin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigOriginsAddWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigOriginsAddWithDependencies runs the origins add command with injected dependencies
func RunConfigOriginsAddWithDependencies(cfg *config.Config, configPath, origin string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.AddOrigin(origin); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added origin %s\n", origin)
	return nil
}

var configOriginsRemoveCmd = &cobra.Command{
	Use:   "remove <origin>",
	Short: "Stop allowing an origin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigOriginsRemoveWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigOriginsRemoveWithDependencies runs the origins remove command with injected dependencies
func RunConfigOriginsRemoveWithDependencies(cfg *config.Config, configPath, origin string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.RemoveOrigin(origin); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed origin %s\n", origin)
	return nil
}

// --- SETTINGS ---

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigGetWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigGetWithDependencies runs the get command with injected dependencies
func RunConfigGetWithDependencies(cfg *config.Config, configPath, key string, out OutputWriter) error {
	value, err := config.NewConfigManager(cfg, configPath).Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, value)
	return nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigSetWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
	},
}

// RunConfigSetWithDependencies runs the set command with injected dependencies
func RunConfigSetWithDependencies(cfg *config.Config, configPath, key, value string, out OutputWriter) error {
	if err := config.NewConfigManager(cfg, configPath).Set(key, value); err != nil {
		return err
	}
	fmt.Fprintf(out, "Set %s = %s\n", key, value)
	return nil
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settings that can be read and changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		mgr := config.NewConfigManager(cfg, cfgFile)
		w := tabwriter.NewWriter(DefaultOutput, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, key := range config.SettingKeys() {
			value, _ := mgr.Get(key)
			fmt.Fprintf(w, "%s\t%s\n", key, value)
		}
		return w.Flush()
	},
}
