package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the clubhours configuration file.",
	Long: `Create and display the clubhours configuration file.

The configuration selects the store and tunes the engine:
- storage.driver (sqlite, mongo, memory) and its connection settings
- batch.group_limit (operations per atomic commit group, at most 500)
- import.location (zone used to compare calendar days)
- report.cache_ttl, log.level, serve.addr`,
	Example: `
  # Create default config in $HOME/.clubhours.yaml
  clubhours config create

  # Show active config and source file
  clubhours config show
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
