package cmd

import (
	"fmt"

	"clubhours/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values.`,
	Example: `
  # Show active configuration
  clubhours config show
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		out := cmd.OutOrStdout()
		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Fprintln(out, "Config file loaded from:", configPath)
		} else {
			fmt.Fprintln(out, "No config file loaded, showing defaults.")
		}
		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "%s: %s\n", config.KeyStorageDriver, cfg.Storage.Driver)
		switch cfg.Storage.Driver {
		case "sqlite":
			fmt.Fprintf(out, "%s: %s\n", config.KeySQLitePath, cfg.Storage.SQLitePath)
		case "mongo":
			fmt.Fprintf(out, "%s: %s\n", config.KeyMongoURI, cfg.Storage.Mongo.URI)
			fmt.Fprintf(out, "%s: %s\n", config.KeyMongoDatabase, cfg.Storage.Mongo.Database)
			fmt.Fprintf(out, "%s: %s\n", config.KeyMongoCollection, cfg.Storage.Mongo.Collection)
		}
		fmt.Fprintf(out, "%s: %d\n", config.KeyBatchGroupLimit, cfg.Batch.GroupLimit)
		fmt.Fprintf(out, "%s: %s\n", config.KeyImportLocation, cfg.Import.Location)
		fmt.Fprintf(out, "%s: %t\n", config.KeyImportBackfill, cfg.Import.BackfillAfterImport)
		fmt.Fprintf(out, "%s: %s\n", config.KeyReportCacheTTL, cfg.Report.CacheTTL)
		fmt.Fprintf(out, "%s: %s\n", config.KeyLogLevel, cfg.Log.Level)
		fmt.Fprintf(out, "%s: %s\n", config.KeyServeAddr, cfg.Serve.Addr)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
