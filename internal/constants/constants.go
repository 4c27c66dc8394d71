package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Environment variables.
const (
	// EnvBaseURL names the variable holding the Data API base URL,
	// e.g. https://fm.example.com/fmi/data/vLatest.
	EnvBaseURL = "FM_URL"

	// EnvPrefix is the prefix viper uses for CLI settings.
	EnvPrefix = "FMDATA"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for session and discovery calls.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. Retries are opt-in; DefaultRetryMax keeps them off.
const (
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait between retries once enabled.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit bounds concurrent batch operations.
	DefaultConcurrencyLimit = 5
)

// HTTP headers and values.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"

	ContentTypeJSON = "application/json"

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "fmdata-go/1.0"
)

// Data API paths and query parameters.
const (
	PathDatabases = "/databases"
	PathSessions  = "sessions"
	PathLayouts   = "layouts"
	PathRecords   = "records"
	PathFind      = "_find"

	QueryOffset = "_offset"
	QueryLimit  = "_limit"
)

// Sort orders understood by the find endpoint.
const (
	SortAscend  = "ascend"
	SortDescend = "descend"
)

// FileMaker message codes.
const (
	// MessageCodeOK is returned with every successful call.
	MessageCodeOK = "0"

	// MessageCodeNoRecordsMatch is returned by _find when nothing matches.
	MessageCodeNoRecordsMatch = "401"

	// MessageCodeRecordMissing is returned for an unknown record id.
	MessageCodeRecordMissing = "101"

	// MessageCodeInvalidToken is returned when the session token is stale.
	MessageCodeInvalidToken = "952"

	// MessageCodeInvalidAccount is returned for bad credentials.
	MessageCodeInvalidAccount = "212"
)

// GlobalFieldPrefix marks FileMaker global fields skipped by field-name extraction.
const GlobalFieldPrefix = "g_"

// Display limits.
const (
	// DefaultPageSize is the default number of records per listing.
	DefaultPageSize = 100

	// MaxBodyPreview bounds response bodies quoted in errors and logs.
	MaxBodyPreview = 500
)

// Event subjects.
const (
	// EventSubjectPrefix prefixes every record mutation subject.
	EventSubjectPrefix = "fmdata"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Configuration file location, relative to the home directory.
const (
	ConfigDirName  = ".fmdata"
	ConfigFileName = "config"
	ConfigFileType = "yml"
)
