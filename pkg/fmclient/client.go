package fmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/fmdata/internal/client"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// New creates a FileMaker Data API client bound to config.Database and
// config.Layout. It performs exactly one authentication round trip.
func New(ctx context.Context, config *fmdata.Config) (fmdata.Client, error) {
	config, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithPassword creates a client from the library defaults and the given
// connection details.
func NewWithPassword(ctx context.Context, baseURL, username, password, database, layout string) (fmdata.Client, error) {
	config := fmdata.DefaultConfig()
	config.BaseURL = baseURL
	config.Username = username
	config.Password = password
	config.Database = database
	config.Layout = layout

	return New(ctx, config)
}

// ListDatabases returns the database names visible to the configured account.
func ListDatabases(ctx context.Context, config *fmdata.Config) ([]string, error) {
	config, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}

	return client.ListDatabases(ctx, config)
}

// ListLayouts returns the layout names of database.
func ListLayouts(ctx context.Context, config *fmdata.Config, database string) ([]string, error) {
	config, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}

	return client.ListLayouts(ctx, config, database)
}

// ListLayoutDetails returns the layouts of database with folder information.
func ListLayoutDetails(ctx context.Context, config *fmdata.Config, database string) ([]fmdata.Layout, error) {
	config, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}

	return client.ListLayoutDetails(ctx, config, database)
}

// DeleteDatabase deletes database from the server.
func DeleteDatabase(ctx context.Context, config *fmdata.Config, database string) error {
	config, err := normalizeConfig(config)
	if err != nil {
		return err
	}

	return client.DeleteDatabase(ctx, config, database)
}

// normalizeConfig returns a copy of config with a normalized base URL.
func normalizeConfig(config *fmdata.Config) (*fmdata.Config, error) {
	if config == nil {
		return nil, fmdata.ErrConfigRequired
	}

	normalized := *config
	normalized.BaseURL = normalizeBaseURL(config.BaseURL)

	return &normalized, nil
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}
