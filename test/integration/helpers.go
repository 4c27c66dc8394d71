//go:build integration

package integration

import (
	"log"
	"os"
	"testing"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	URL      string
	Username string
	Password string
	Database string
	Layout   string
	Verbose  bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		URL:      os.Getenv("FM_URL"),
		Username: os.Getenv("FM_USERNAME"),
		Password: os.Getenv("FM_PASSWORD"),
		Database: os.Getenv("FM_DATABASE"),
		Layout:   os.Getenv("FM_LAYOUT"),
		Verbose:  os.Getenv("FMDATA_VERBOSE") == "true",
	}
}

// SkipUnlessConfigured skips the test when no server is configured.
func (c *TestConfig) SkipUnlessConfigured(t *testing.T) {
	t.Helper()

	if c.URL == "" || c.Username == "" || c.Database == "" || c.Layout == "" {
		t.Skip("set FM_URL, FM_USERNAME, FM_PASSWORD, FM_DATABASE and FM_LAYOUT to run integration tests")
	}
}

// ClientConfig returns a library configuration for the test server.
func (c *TestConfig) ClientConfig() *fmdata.Config {
	config := fmdata.DefaultConfig()
	config.BaseURL = c.URL
	config.Username = c.Username
	config.Password = c.Password
	config.Database = c.Database
	config.Layout = c.Layout

	if c.Verbose {
		config.Logger = testLogger{}
		config.Debug = true
	}

	return config
}

type testLogger struct{}

func (testLogger) Debug(msg string, fields map[string]interface{}) { log.Println("DEBUG", msg, fields) }
func (testLogger) Info(msg string, fields map[string]interface{})  { log.Println("INFO", msg, fields) }
func (testLogger) Warn(msg string, fields map[string]interface{})  { log.Println("WARN", msg, fields) }
func (testLogger) Error(msg string, fields map[string]interface{}) { log.Println("ERROR", msg, fields) }
