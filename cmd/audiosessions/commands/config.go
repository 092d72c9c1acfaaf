package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		shown := cfg.Clone()
		if shown.APIKey != "" {
			shown.APIKey = "****"
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(shown)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it.

Keys match the JSON field names, e.g.:
  audiosessions config set language en
  audiosessions config set samplerate 48000
  audiosessions config set use_cache false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}

		key, raw := args[0], args[1]
		var value interface{} = raw
		if n, err := strconv.Atoi(raw); err == nil {
			value = float64(n)
		} else if b, err := strconv.ParseBool(raw); err == nil {
			value = b
		}

		if err := cfg.Update(map[string]interface{}{key: value}); err != nil {
			return err
		}
		if err := cfg.Save(config.GetConfigPath()); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
