package fmdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// ResponseError is returned for any non-2xx Data API reply.
type ResponseError struct {
	StatusCode int       `json:"-"`
	Messages   []Message `json:"messages"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	first := e.FirstMessage()
	if first == nil {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("%s (code: %s, status: %d)", first.Message, first.Code, e.StatusCode)
}

// FirstMessage returns the first non-OK message or nil.
func (e *ResponseError) FirstMessage() *Message {
	for i := range e.Messages {
		if e.Messages[i].Code != constants.MessageCodeOK {
			return &e.Messages[i]
		}
	}

	return nil
}

// HasCode reports whether any message carries the given FileMaker code.
func (e *ResponseError) HasCode(code string) bool {
	for _, message := range e.Messages {
		if message.Code == code {
			return true
		}
	}

	return false
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrUsernameRequired     = errors.New("username is required")
	ErrDatabaseRequired     = errors.New("database is required")
	ErrLayoutRequired       = errors.New("layout is required")
	ErrNoSessionToken       = errors.New("no session token found")
	ErrSessionCannotRefresh = errors.New("session token cannot be refreshed, create a new client")
	ErrMissingResponse      = errors.New("reply has no response object")
	ErrMissingToken         = errors.New("failed to get token from FileMaker API")
	ErrMissingData          = errors.New("reply has no data")
	ErrMissingRecordCount   = errors.New("reply has no total record count")
	ErrMissingRecordID      = errors.New("record has no record ID")
	ErrInvalidRecordID      = errors.New("invalid record ID")
	ErrRecordNotFound       = errors.New("no record found")
	ErrMissingDatabases     = errors.New("reply has no databases")
	ErrMissingLayouts       = errors.New("reply has no layouts")
	ErrUnsupportedOperation = errors.New("unsupported operation type")
)

// IsNotFound checks whether the record or endpoint does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrRecordNotFound) {
		return true
	}

	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound || respErr.HasCode(constants.MessageCodeRecordMissing)
	}

	return false
}

// IsUnauthorized checks for rejected credentials or a stale session token.
func IsUnauthorized(err error) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusUnauthorized ||
			respErr.HasCode(constants.MessageCodeInvalidToken) ||
			respErr.HasCode(constants.MessageCodeInvalidAccount)
	}

	return false
}

// IsNoRecordsMatch checks for the find reply sent when nothing matches.
func IsNoRecordsMatch(err error) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.HasCode(constants.MessageCodeNoRecordsMatch)
	}

	return false
}

// ParseResponseError builds a ResponseError from a reply body. Bodies that
// are not JSON still yield an error carrying the status code.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	respErr := &ResponseError{StatusCode: statusCode}

	_ = json.Unmarshal(data, respErr)

	return respErr
}
