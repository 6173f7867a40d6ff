// Package cmd defines and implements the CLI commands for the
// advisor-harvester executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bergdata/advisor-harvester/internal/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisor-harvester",
		Short: "Harvests public advisor profiles from a site's sitemap tree.",
		Long: `advisor-harvester expands one or more seed sitemaps into the full set
of advisor profile pages, fetches them concurrently with polite pacing,
extracts a contact record from each page, and writes the collection to a
spreadsheet.`,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newHarvestCmd())
	return cmd
}

// initConfig loads the optional .env file and wires viper defaults, the
// config file, and environment variables together.
func initConfig() {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.advisor-harvester")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "read config file: %v\n", err)
		}
	}
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
