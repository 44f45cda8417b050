/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"clubhours/config"
	"clubhours/engine"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clubhours",
	Short: "Track volunteer service hours, credit work sessions and report voucher eligibility.",
	Long: `
**********************************************
*              CLUB HOURS                    *
**********************************************

This CLI records volunteer work sessions, converts them to credited hours
(Maintenance and Setup count double), imports historical sign-in data without
creating duplicates and reports fiscal-year totals and service vouchers.

The fiscal year runs from October 1 to September 30.

Supported import formats:
- Excel: .xlsx, .xlsm, .xls
- CSV: .csv
- Tab-separated "Unicode Text": .tsv, .txt
`,
	Example: `
  # Create configuration file
  clubhours config create

  # Open and close a work session
  clubhours checkin --email ann@example.org --type Maintenance
  clubhours checkout 6f1c2d3e-...

  # Approve a pending session
  clubhours approve 6f1c2d3e-...

  # Import historical logs (safe to repeat)
  clubhours import -i history.csv -i sheet-2024-11.xlsx

  # Show member totals for the fiscal year starting October 2024
  clubhours report --year 2024

  # Export all logs or the member summary
  clubhours export --output ./logs.xlsx
  clubhours export --mode summary --output ./summary.csv

  # Serve the JSON API and /metrics
  clubhours serve
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.clubhours.yaml, then ./.clubhours.yaml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !requiresConfig(cmd) {
			return nil
		}

		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		return configureLogging(cfg.Log.Level)
	}
}

// requiresConfig is false for the config commands, which must work with a
// missing or broken file.
func requiresConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current == configCmd {
			return false
		}
	}
	return cmd != nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.DefaultConfigName)
	}

	viper.SetEnvPrefix("CLUBHOURS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults. Create one with: clubhours config create")
	}
}

func configureLogging(level string) error {
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(parsed)
	logrus.SetOutput(os.Stderr)
	return nil
}

// openEngine builds the engine over the configured store. The returned func
// releases the engine and the store.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(ctx, repo, engine.Options{
		GroupLimit: cfg.Batch.GroupLimit,
		Location:   loc,
		CacheTTL:   cfg.Report.CacheTTL,
		Logger:     logrus.StandardLogger(),
	})
	if err != nil {
		_ = closeRepo()
		return nil, nil, err
	}

	release := func() {
		_ = eng.Close()
		if err := closeRepo(); err != nil {
			logrus.WithError(err).Warn("close storage")
		}
	}
	return eng, release, nil
}
