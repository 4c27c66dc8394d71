package constants

import "errors"

// Configuration errors.
var (
	ErrNoBaseURL          = errors.New("no Data API URL configured, set FM_URL or --url")
	ErrNoDatabase         = errors.New("no database configured, use --database")
	ErrNoLayout           = errors.New("no layout configured, use --layout")
	ErrNoUsername         = errors.New("no username configured, use --username")
	ErrConfigNotWritable  = errors.New("configuration directory is not writable")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
	ErrInvalidFieldFormat = errors.New("invalid field format, expected name=value")
)

// Record command errors.
var (
	ErrInvalidRecordID    = errors.New("record ID must be a positive integer")
	ErrNoFieldsSpecified  = errors.New("no fields specified, use --field or --json")
	ErrNoQuerySpecified   = errors.New("no query specified, use --query")
	ErrClearNotConfirmed  = errors.New("refusing to clear records without --force")
	ErrDeleteNotConfirmed = errors.New("refusing to delete database without --force")
	ErrEmptyImportFile    = errors.New("import file contains no records")
	ErrImportFailed       = errors.New("some records could not be imported")
)
