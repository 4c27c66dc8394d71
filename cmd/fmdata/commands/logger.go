package commands

import (
	"io"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// hclogLogger adapts an hclog.Logger to fmdata.Logger.
type hclogLogger struct {
	logger hclog.Logger
}

func newLogger(output io.Writer, verbose bool) fmdata.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}

	return &hclogLogger{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "fmdata",
			Level:  level,
			Output: output,
		}),
	}
}

func (l *hclogLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, pairs(fields)...)
}

func (l *hclogLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, pairs(fields)...)
}

func (l *hclogLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, pairs(fields)...)
}

func (l *hclogLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, pairs(fields)...)
}

// pairs flattens fields into hclog key/value arguments in key order.
func pairs(fields map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	args := make([]interface{}, 0, 2*len(keys))
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	return args
}
