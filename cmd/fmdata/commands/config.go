package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// configKeys lists the settings config set accepts.
var configKeys = map[string]bool{
	"url":                 true,
	"username":            true,
	"password":            true,
	"database":            true,
	"layout":              true,
	"output":              true,
	"skip-ssl-validation": true,
	"nats-url":            true,
	"retries":             true,
	"rate-limit":          true,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the fmdata config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with the password masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()
			if settings.Password != "" {
				settings.Password = "********"
			}

			return render(cmd.OutOrStdout(), settings.Output, settings, func(table *tablewriter.Table) {
				table.Header("Setting", "Value")
				_ = table.Append("URL", settings.URL)
				_ = table.Append("Username", settings.Username)
				_ = table.Append("Password", settings.Password)
				_ = table.Append("Database", settings.Database)
				_ = table.Append("Layout", settings.Layout)
				_ = table.Append("Output", settings.Output)
				_ = table.Append("Skip SSL Validation", strconv.FormatBool(settings.SkipSSLValidation))
				_ = table.Append("NATS URL", settings.NATSURL)
				_ = table.Append("Retries", strconv.Itoa(settings.Retries))
				_ = table.Append("Rate Limit", strconv.FormatFloat(settings.RateLimit, 'f', -1, 64))
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a setting in the config file, e.g. fmdata config set database Contacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigFile(args[0], func(values map[string]interface{}) {
				values[args[0]] = args[1]
			})
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigFile(args[0], func(values map[string]interface{}) {
				delete(values, args[0])
			})
		},
	}
}

func updateConfigFile(key string, update func(map[string]interface{})) error {
	if !configKeys[key] {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	path, err := configFilePath()
	if err != nil {
		return err
	}

	values := map[string]interface{}{}

	data, err := os.ReadFile(path) // #nosec G304 -- path is the user's own config file
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading config: %w", err)
	default:
		err = yaml.Unmarshal(data, &values)
		if err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	update(values)

	data, err = yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("%w: %w", constants.ErrConfigNotWritable, err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Updated", path)
	}

	return nil
}
