package fmdata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FieldData maps field names to JSON values.
type FieldData map[string]interface{}

// Record is a single FileMaker record as returned by the Data API.
type Record struct {
	RecordID   string                 `json:"recordId"             yaml:"recordId"`
	ModID      string                 `json:"modId,omitempty"      yaml:"modId,omitempty"`
	FieldData  FieldData              `json:"fieldData"            yaml:"fieldData"`
	PortalData map[string]interface{} `json:"portalData,omitempty" yaml:"portalData,omitempty"`
}

// ID parses the record ID. The Data API sends it as a string.
func (r *Record) ID() (int, error) {
	if r.RecordID == "" {
		return 0, ErrMissingRecordID
	}

	id, err := strconv.Atoi(r.RecordID)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecordID, r.RecordID)
	}

	return id, nil
}

// Message is one entry of the messages array in every Data API reply.
type Message struct {
	Code    string `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Envelope is the outer shape of every Data API reply.
type Envelope struct {
	Response json.RawMessage `json:"response" yaml:"-"`
	Messages []Message       `json:"messages" yaml:"messages"`
}

// ParseEnvelope decodes a Data API reply.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return &envelope, nil
}

// DecodeResponse unmarshals the response object into target.
// It returns ErrMissingResponse when the reply has no response object.
func (e *Envelope) DecodeResponse(target interface{}) error {
	if len(e.Response) == 0 || string(e.Response) == "null" {
		return ErrMissingResponse
	}

	err := json.Unmarshal(e.Response, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// DataInfo describes the result set of a records or find call.
type DataInfo struct {
	Database         string `json:"database"         yaml:"database"`
	Layout           string `json:"layout"           yaml:"layout"`
	Table            string `json:"table"            yaml:"table"`
	TotalRecordCount int    `json:"totalRecordCount" yaml:"totalRecordCount"`
	FoundCount       int    `json:"foundCount"       yaml:"foundCount"`
	ReturnedCount    int    `json:"returnedCount"    yaml:"returnedCount"`
}

// Database is an entry of GET /databases.
type Database struct {
	Name string `json:"name" yaml:"name"`
}

// Layout is an entry of GET /databases/{db}/layouts.
type Layout struct {
	Name              string   `json:"name"                        yaml:"name"`
	IsFolder          bool     `json:"isFolder,omitempty"          yaml:"isFolder,omitempty"`
	FolderLayoutNames []Layout `json:"folderLayoutNames,omitempty" yaml:"folderLayoutNames,omitempty"`
}

// AddRecordResult reports the outcome of AddRecord. When Success is false
// Envelope holds the raw upstream reply.
type AddRecordResult struct {
	Success  bool      `json:"success"            yaml:"success"`
	Record   *Record   `json:"result,omitempty"   yaml:"result,omitempty"`
	Envelope *Envelope `json:"envelope,omitempty" yaml:"envelope,omitempty"`
}

// Operation names a record mutation.
type Operation string

// Record mutations published as events.
const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// RecordEvent describes a successful record mutation.
type RecordEvent struct {
	ID        string    `json:"id"`
	Database  string    `json:"database"`
	Layout    string    `json:"layout"`
	Operation Operation `json:"operation"`
	RecordID  string    `json:"recordId"`
	Time      time.Time `json:"time"`
}
