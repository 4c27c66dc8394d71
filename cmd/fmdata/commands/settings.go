package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmclient"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// Settings is the effective CLI configuration after flags, environment and
// config file are merged.
type Settings struct {
	URL               string  `json:"url"                 yaml:"url"`
	Username          string  `json:"username"            yaml:"username"`
	Password          string  `json:"password,omitempty"  yaml:"password,omitempty"`
	Database          string  `json:"database"            yaml:"database"`
	Layout            string  `json:"layout"              yaml:"layout"`
	Output            string  `json:"output"              yaml:"output"`
	Verbose           bool    `json:"verbose"             yaml:"verbose"`
	SkipSSLValidation bool    `json:"skip_ssl_validation" yaml:"skip_ssl_validation"`
	NATSURL           string  `json:"nats_url,omitempty"  yaml:"nats_url,omitempty"`
	Retries           int     `json:"retries"             yaml:"retries"`
	RateLimit         float64 `json:"rate_limit"          yaml:"rate_limit"`
}

func loadSettings() *Settings {
	return &Settings{
		URL:               viper.GetString("url"),
		Username:          viper.GetString("username"),
		Password:          viper.GetString("password"),
		Database:          viper.GetString("database"),
		Layout:            viper.GetString("layout"),
		Output:            strings.ToLower(viper.GetString("output")),
		Verbose:           viper.GetBool("verbose"),
		SkipSSLValidation: viper.GetBool("skip-ssl-validation"),
		NATSURL:           viper.GetString("nats-url"),
		Retries:           viper.GetInt("retries"),
		RateLimit:         viper.GetFloat64("rate-limit"),
	}
}

// clientConfig builds the library configuration. Database and layout are
// filled in by the caller.
func (s *Settings) clientConfig() (*fmdata.Config, error) {
	if s.URL == "" {
		return nil, constants.ErrNoBaseURL
	}

	if s.Username == "" {
		return nil, constants.ErrNoUsername
	}

	if s.Password == "" {
		password, err := promptPassword()
		if err != nil {
			return nil, err
		}

		s.Password = password
	}

	config := fmdata.DefaultConfig()
	config.BaseURL = s.URL
	config.Username = s.Username
	config.Password = s.Password
	config.SkipTLSVerify = s.SkipSSLValidation
	config.NATSURL = s.NATSURL
	config.RetryMax = s.Retries
	config.RateLimit = s.RateLimit
	config.Logger = newLogger(os.Stderr, s.Verbose)
	config.Debug = s.Verbose

	return config, nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// openClient opens a session on the configured database and layout.
func openClient(ctx context.Context) (fmdata.Client, *Settings, error) {
	settings := loadSettings()

	if settings.Database == "" {
		return nil, nil, constants.ErrNoDatabase
	}

	if settings.Layout == "" {
		return nil, nil, constants.ErrNoLayout
	}

	config, err := settings.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	config.Database = settings.Database
	config.Layout = settings.Layout

	client, err := fmclient.New(ctx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, settings, nil
}

// withClient runs fn with an open client and closes the session afterwards.
func withClient(ctx context.Context, fn func(client fmdata.Client, settings *Settings) error) (err error) {
	client, settings, err := openClient(ctx)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := client.Close(ctx)
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing session: %w", closeErr)
		}
	}()

	return fn(client, settings)
}
