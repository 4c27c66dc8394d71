package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// NewRootCommand creates the fmdata command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fmdata",
		Short: "FileMaker Data API CLI",
		Long: `A command-line interface for the FileMaker Data API.

Browse databases and layouts, read and write records, run finds and import
records in bulk. Settings come from flags, FMDATA_* environment variables,
FM_URL and $HOME/.fmdata/config.yml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.fmdata/config.yml)")
	flags.StringP("url", "u", "", "Data API URL, e.g. https://fm.example.com/fmi/data/vLatest")
	flags.String("username", "", "FileMaker account name")
	flags.String("password", "", "FileMaker account password (prompted when omitted)")
	flags.StringP("database", "d", "", "database name")
	flags.StringP("layout", "l", "", "layout name")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("skip-ssl-validation", true, "skip SSL certificate validation")
	flags.String("nats-url", "", "NATS server URL for record change events")
	flags.Int("retries", 0, "retries for transient failures (429, 502-504)")
	flags.Float64("rate-limit", 0, "maximum requests per second (0 for unlimited)")

	for _, name := range []string{
		"config", "url", "username", "password", "database", "layout", "output",
		"verbose", "skip-ssl-validation", "nats-url", "retries", "rate-limit",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewDatabasesCommand())
	rootCmd.AddCommand(NewLayoutsCommand())
	rootCmd.AddCommand(NewRecordsCommand())
	rootCmd.AddCommand(NewFindCommand())

	return rootCmd
}

func initConfig() error {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirectory()
		if err != nil {
			return err
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType(constants.ConfigFileType)
		viper.SetConfigName(constants.ConfigFileName)
	}

	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.AutomaticEnv()
	_ = viper.BindEnv("url", constants.EnvPrefix+"_URL", constants.EnvBaseURL)
	_ = viper.BindEnv("nats-url", constants.EnvPrefix+"_NATS_URL")
	_ = viper.BindEnv("skip-ssl-validation", constants.EnvPrefix+"_SKIP_SSL_VALIDATION")
	_ = viper.BindEnv("rate-limit", constants.EnvPrefix+"_RATE_LIMIT")

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func configDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName), nil
}

// configFilePath returns the file config set writes to.
func configFilePath() (string, error) {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		return cfgFile, nil
	}

	configDir, err := configDirectory()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, constants.ConfigFileName+"."+constants.ConfigFileType), nil
}
