package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/internal/fmtest"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// execute runs the CLI with a private config file. Commands share viper's
// global state, so tests in this package do not run in parallel.
func execute(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()

	viper.Reset()

	root := NewRootCommand("1.2.3", "abc123", "2024-05-01")

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configFile}, args...))

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func serverArgs(server *fmtest.Server, args ...string) []string {
	return append([]string{
		"--url", server.URL,
		"--username", fmtest.Username,
		"--password", fmtest.Password,
		"--database", "Shop",
		"--layout", "Orders",
	}, args...)
}

func decodeRecords(t *testing.T, out string) []fmdata.Record {
	t.Helper()

	var records []fmdata.Record

	require.NoError(t, json.Unmarshal([]byte(out), &records))

	return records
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand("dev", "none", "unknown")
	assert.Equal(t, "fmdata", root.Use)

	for _, name := range []string{"version", "config", "databases", "layouts", "records", "find"} {
		assert.NotNil(t, findSubcommand(root, name), "command %s should exist", name)
	}

	records := findSubcommand(root, "records")
	for _, name := range []string{"list", "get", "count", "add", "update", "delete", "clear", "fields", "import"} {
		assert.NotNil(t, findSubcommand(records, name), "records %s should exist", name)
	}

	for _, flag := range []string{"url", "username", "password", "database", "layout", "output", "nats-url", "skip-ssl-validation"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %s should exist", flag)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "config.yml"), "version", "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.2.3","commit":"abc123","built":"2024-05-01"}`, out)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRecordsCommands(t *testing.T) {
	server := fmtest.NewServer(t)
	configFile := filepath.Join(t.TempDir(), "config.yml")

	out, err := execute(t, configFile, serverArgs(server, "records", "add",
		"--field", "name=Widget", "--json", `{"qty": 3}`, "-o", "json")...)
	require.NoError(t, err)

	added := decodeRecords(t, out)
	require.Len(t, added, 1)
	assert.Equal(t, "1", added[0].RecordID)
	assert.Equal(t, "Widget", added[0].FieldData["name"])

	_, err = execute(t, configFile, serverArgs(server, "records", "add", "--field", "name=Gadget", "--field", "g_flag=1")...)
	require.NoError(t, err)

	out, err = execute(t, configFile, serverArgs(server, "records", "count", "-o", "json")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, out)

	out, err = execute(t, configFile, serverArgs(server, "records", "list", "--offset", "2", "--limit", "1", "-o", "json")...)
	require.NoError(t, err)

	listed := decodeRecords(t, out)
	require.Len(t, listed, 1)
	assert.Equal(t, "Gadget", listed[0].FieldData["name"])

	out, err = execute(t, configFile, serverArgs(server, "records", "list", "--all")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "Gadget")

	_, err = execute(t, configFile, serverArgs(server, "records", "update", "1", "--field", "name=Sprocket")...)
	require.NoError(t, err)

	out, err = execute(t, configFile, serverArgs(server, "records", "get", "1", "-o", "json")...)
	require.NoError(t, err)
	assert.Equal(t, "Sprocket", decodeRecords(t, out)[0].FieldData["name"])

	out, err = execute(t, configFile, serverArgs(server, "records", "fields", "-o", "json")...)
	require.NoError(t, err)
	assert.JSONEq(t, `["name","qty"]`, out)

	_, err = execute(t, configFile, serverArgs(server, "records", "delete", "1")...)
	require.NoError(t, err)
	assert.Equal(t, 1, server.RecordCount("Shop", "Orders"))

	_, err = execute(t, configFile, serverArgs(server, "records", "clear")...)
	require.ErrorIs(t, err, constants.ErrClearNotConfirmed)

	_, err = execute(t, configFile, serverArgs(server, "records", "clear", "--force")...)
	require.NoError(t, err)
	assert.Zero(t, server.RecordCount("Shop", "Orders"))

	// every command logs out of its session
	assert.Len(t, server.ClosedSessions(), server.SessionCount())
}

func TestRecordsCommands_InvalidInput(t *testing.T) {
	server := fmtest.NewServer(t)
	configFile := filepath.Join(t.TempDir(), "config.yml")

	_, err := execute(t, configFile, serverArgs(server, "records", "get", "abc")...)
	require.ErrorIs(t, err, constants.ErrInvalidRecordID)

	_, err = execute(t, configFile, serverArgs(server, "records", "add")...)
	require.ErrorIs(t, err, constants.ErrNoFieldsSpecified)

	_, err = execute(t, configFile, serverArgs(server, "records", "add", "--field", "novalue")...)
	require.ErrorIs(t, err, constants.ErrInvalidFieldFormat)

	_, err = execute(t, configFile, "--url", server.URL, "--username", "admin", "--password", "secret", "records", "count")
	require.ErrorIs(t, err, constants.ErrNoDatabase)

	_, err = execute(t, configFile, serverArgs(server, "records", "count", "-o", "xml")...)
	require.ErrorIs(t, err, constants.ErrUnsupportedFormat)

	assert.Zero(t, server.RecordCount("Shop", "Orders"))
}

func TestRecordsImport(t *testing.T) {
	server := fmtest.NewServer(t)
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yml")
	importFile := filepath.Join(dir, "orders.yaml")

	require.NoError(t, os.WriteFile(importFile, []byte(`
- name: Widget
  qty: 3
- name: Gadget
  qty: 1
- name: Gizmo
  qty: 7
`), 0o600))

	out, err := execute(t, configFile, serverArgs(server, "records", "import", importFile, "--concurrency", "2", "-o", "json")...)
	require.NoError(t, err)

	var rows []importRow

	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Row)
	assert.NotEmpty(t, rows[0].RecordID)
	assert.Empty(t, rows[2].Error)
	assert.Equal(t, 3, server.RecordCount("Shop", "Orders"))

	emptyFile := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyFile, []byte(`[]`), 0o600))

	_, err = execute(t, configFile, serverArgs(server, "records", "import", emptyFile)...)
	require.ErrorIs(t, err, constants.ErrEmptyImportFile)
}

func TestFindCommand(t *testing.T) {
	server := fmtest.NewServer(t)
	server.AddRecord("Shop", "Orders", fmdata.FieldData{"name": "Widget", "city": "Paris"})
	server.AddRecord("Shop", "Orders", fmdata.FieldData{"name": "Gadget", "city": "Lyon"})
	server.AddRecord("Shop", "Orders", fmdata.FieldData{"name": "Gizmo", "city": "Paris"})

	configFile := filepath.Join(t.TempDir(), "config.yml")

	out, err := execute(t, configFile, serverArgs(server, "find", "--query", "city=Paris", "--sort", "name", "--descending", "-o", "json")...)
	require.NoError(t, err)

	records := decodeRecords(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "Widget", records[0].FieldData["name"])
	assert.Equal(t, "Gizmo", records[1].FieldData["name"])

	out, err = execute(t, configFile, serverArgs(server, "find", "--any", "city=Lyon", "--any", "name=Wid*", "-o", "json")...)
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, out), 2)

	out, err = execute(t, configFile, serverArgs(server, "find", "--query", "city=Berlin", "-o", "json")...)
	require.NoError(t, err)
	assert.Empty(t, decodeRecords(t, out))

	_, err = execute(t, configFile, serverArgs(server, "find")...)
	require.ErrorIs(t, err, constants.ErrNoQuerySpecified)
}

func TestDatabasesAndLayoutsCommands(t *testing.T) {
	server := fmtest.NewServer(t)
	server.AddLayout("Shop", "Orders")
	server.AddLayout("Shop", "Products")
	server.AddLayout("Scratch", "Temp")

	configFile := filepath.Join(t.TempDir(), "config.yml")

	out, err := execute(t, configFile, serverArgs(server, "databases", "list", "-o", "json")...)
	require.NoError(t, err)
	assert.JSONEq(t, `["Scratch","Shop"]`, out)

	out, err = execute(t, configFile, serverArgs(server, "layouts", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Orders")
	assert.Contains(t, out, "Products")

	_, err = execute(t, configFile, serverArgs(server, "databases", "delete", "Scratch")...)
	require.ErrorIs(t, err, constants.ErrDeleteNotConfirmed)

	_, err = execute(t, configFile, serverArgs(server, "databases", "delete", "Scratch", "--force")...)
	require.NoError(t, err)

	out, err = execute(t, configFile, serverArgs(server, "databases", "list", "-o", "json")...)
	require.NoError(t, err)
	assert.JSONEq(t, `["Shop"]`, out)
}

func TestConfigCommands(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "config.yml")

	_, err := execute(t, configFile, "config", "set", "database", "Contacts")
	require.NoError(t, err)

	_, err = execute(t, configFile, "config", "set", "password", "hunter2")
	require.NoError(t, err)

	_, err = execute(t, configFile, "config", "set", "colour", "blue")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	out, err := execute(t, configFile, "config", "show", "-o", "json")
	require.NoError(t, err)

	var settings Settings

	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "Contacts", settings.Database)
	assert.Equal(t, "********", settings.Password)

	info, err := os.Stat(configFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.ConfigFilePerm), info.Mode().Perm())

	_, err = execute(t, configFile, "config", "unset", "database")
	require.NoError(t, err)

	out, err = execute(t, configFile, "config", "show", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Empty(t, settings.Database)
}

func TestParseHelpers(t *testing.T) {
	fields, err := parseFields([]string{"name=Widget", "note=a=b"}, `{"qty": 2, "name": "ignored"}`)
	require.NoError(t, err)
	assert.Equal(t, fmdata.FieldData{"name": "Widget", "note": "a=b", "qty": float64(2)}, fields)

	criteria, err := parseQuery("LastName=Smith, City=Paris")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"LastName": "Smith", "City": "Paris"}, criteria)

	_, err = parseQuery("=x")
	require.ErrorIs(t, err, constants.ErrInvalidFieldFormat)

	_, err = parseRecordID("0")
	require.ErrorIs(t, err, constants.ErrInvalidRecordID)

	id, err := parseRecordID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestLogger(t *testing.T) {
	var out bytes.Buffer

	quiet := newLogger(&out, false)
	quiet.Info("hidden", nil)
	quiet.Warn("record event dropped", map[string]interface{}{"layout": "Orders", "database": "Shop"})

	output := out.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "record event dropped")
	assert.Contains(t, output, "database=Shop layout=Orders")

	out.Reset()

	verbose := newLogger(&out, true)
	verbose.Debug("HTTP Request", map[string]interface{}{"method": "GET"})
	assert.Contains(t, out.String(), "HTTP Request")
	assert.Contains(t, out.String(), "method=GET")
}
