package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/internal/http"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// RecordsClient implements fmdata.RecordsClient.
type RecordsClient struct {
	httpClient *http.Client
	database   string
	layout     string
	logger     fmdata.Logger
	events     *eventEmitter
}

// NewRecordsClient creates a records client for one layout.
func NewRecordsClient(httpClient *http.Client, database, layout string, logger fmdata.Logger, events fmdata.EventPublisher) *RecordsClient {
	if logger == nil {
		logger = fmdata.NoopLogger{}
	}

	return &RecordsClient{
		httpClient: httpClient,
		database:   database,
		layout:     layout,
		logger:     logger,
		events:     newEventEmitter(events, database, layout, logger),
	}
}

func (c *RecordsClient) path(segments ...string) string {
	base := []string{"databases", c.database, constants.PathLayouts, c.layout, constants.PathRecords}

	return http.JoinPath(append(base, segments...)...)
}

func (c *RecordsClient) recordPath(recordID int) string {
	return c.path(strconv.Itoa(recordID))
}

// recordsResponse is the response object of record reads and finds.
type recordsResponse struct {
	DataInfo *fmdata.DataInfo `json:"dataInfo"`
	Data     *[]fmdata.Record `json:"data"`
}

func decodeRecords(resp *http.Response) (*recordsResponse, error) {
	envelope, err := resp.Envelope()
	if err != nil {
		return nil, err
	}

	var payload recordsResponse

	err = envelope.DecodeResponse(&payload)
	if err != nil {
		return nil, err
	}

	return &payload, nil
}

// GetRecords implements fmdata.RecordsClient.GetRecords. offset is 1-based.
func (c *RecordsClient) GetRecords(ctx context.Context, offset, limit int) ([]fmdata.Record, error) {
	query := url.Values{}
	query.Set(constants.QueryOffset, strconv.Itoa(offset))
	query.Set(constants.QueryLimit, strconv.Itoa(limit))

	resp, err := c.httpClient.Get(ctx, c.path(), query)
	if err != nil {
		return nil, fmt.Errorf("getting records: %w", err)
	}

	payload, err := decodeRecords(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing records: %w", err)
	}

	if payload.Data == nil {
		c.logger.Error("reply has no data", map[string]interface{}{"layout": c.layout})

		return nil, fmt.Errorf("parsing records: %w", fmdata.ErrMissingData)
	}

	c.logger.Debug("records retrieved", map[string]interface{}{
		"layout": c.layout,
		"count":  len(*payload.Data),
	})

	return *payload.Data, nil
}

// GetRecordCount implements fmdata.RecordsClient.GetRecordCount.
func (c *RecordsClient) GetRecordCount(ctx context.Context) (int, error) {
	resp, err := c.httpClient.Get(ctx, c.path(), nil)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	payload, err := decodeRecords(resp)
	if err != nil {
		return 0, fmt.Errorf("parsing record count: %w", err)
	}

	if payload.DataInfo == nil {
		return 0, fmt.Errorf("parsing record count: %w", fmdata.ErrMissingRecordCount)
	}

	return payload.DataInfo.TotalRecordCount, nil
}

// GetAllRecords implements fmdata.RecordsClient.GetAllRecords. The count and
// the fetch are two calls; records added in between are not returned.
func (c *RecordsClient) GetAllRecords(ctx context.Context) ([]fmdata.Record, error) {
	count, err := c.GetRecordCount(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return []fmdata.Record{}, nil
	}

	return c.GetRecords(ctx, 1, count)
}

// GetRecordByID implements fmdata.RecordsClient.GetRecordByID.
func (c *RecordsClient) GetRecordByID(ctx context.Context, recordID int) (*fmdata.Record, error) {
	resp, err := c.httpClient.Get(ctx, c.recordPath(recordID), nil)
	if err != nil {
		return nil, fmt.Errorf("getting record %d: %w", recordID, err)
	}

	payload, err := decodeRecords(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing record %d: %w", recordID, err)
	}

	if payload.Data == nil {
		return nil, fmt.Errorf("parsing record %d: %w", recordID, fmdata.ErrMissingData)
	}

	if len(*payload.Data) == 0 {
		return nil, fmt.Errorf("getting record %d: %w", recordID, fmdata.ErrRecordNotFound)
	}

	record := (*payload.Data)[0]

	return &record, nil
}

type fieldDataRequest struct {
	FieldData fmdata.FieldData `json:"fieldData"`
}

type createResponse struct {
	RecordID string `json:"recordId"`
	ModID    string `json:"modId"`
}

// AddRecord implements fmdata.RecordsClient.AddRecord. The new record is
// fetched back by id. When the reply carries no usable id, the result has
// Success false and the raw envelope.
func (c *RecordsClient) AddRecord(ctx context.Context, fields fmdata.FieldData) (*fmdata.AddRecordResult, error) {
	resp, err := c.httpClient.Post(ctx, c.path(), &fieldDataRequest{FieldData: fields})
	if err != nil {
		return nil, fmt.Errorf("adding record: %w", err)
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, fmt.Errorf("parsing added record: %w", err)
	}

	var created createResponse

	recordID := 0

	err = envelope.DecodeResponse(&created)
	if err == nil {
		recordID, err = strconv.Atoi(created.RecordID)
	}

	if err != nil || recordID <= 0 {
		fields := map[string]interface{}{
			"layout":   c.layout,
			"recordId": created.RecordID,
		}
		if err != nil {
			fields["error"] = err.Error()
		}

		c.logger.Error("reply has no usable record id", fields)

		return &fmdata.AddRecordResult{Success: false, Envelope: envelope}, nil
	}

	c.events.emit(ctx, fmdata.OperationCreated, created.RecordID)

	record, err := c.GetRecordByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	return &fmdata.AddRecordResult{Success: true, Record: record}, nil
}

// UpdateRecord implements fmdata.RecordsClient.UpdateRecord.
func (c *RecordsClient) UpdateRecord(ctx context.Context, recordID int, fields fmdata.FieldData) (*fmdata.Envelope, error) {
	resp, err := c.httpClient.Patch(ctx, c.recordPath(recordID), &fieldDataRequest{FieldData: fields})
	if err != nil {
		return nil, fmt.Errorf("updating record %d: %w", recordID, err)
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, fmt.Errorf("parsing updated record %d: %w", recordID, err)
	}

	c.logger.Info("record updated", map[string]interface{}{
		"layout":   c.layout,
		"recordId": recordID,
	})

	c.events.emit(ctx, fmdata.OperationUpdated, strconv.Itoa(recordID))

	return envelope, nil
}

// DeleteRecord implements fmdata.RecordsClient.DeleteRecord.
func (c *RecordsClient) DeleteRecord(ctx context.Context, recordID int) error {
	_, err := c.httpClient.Delete(ctx, c.recordPath(recordID))
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", recordID, err)
	}

	c.logger.Debug("record deleted", map[string]interface{}{
		"layout":   c.layout,
		"recordId": recordID,
	})

	c.events.emit(ctx, fmdata.OperationDeleted, strconv.Itoa(recordID))

	return nil
}

// ClearRecords implements fmdata.RecordsClient.ClearRecords. Records are
// deleted one at a time and the first failure stops the run; records
// deleted before it stay deleted.
func (c *RecordsClient) ClearRecords(ctx context.Context) error {
	records, err := c.GetAllRecords(ctx)
	if err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	if len(records) == 0 {
		c.logger.Warn("no records found, nothing to clear", map[string]interface{}{"layout": c.layout})

		return nil
	}

	for i := range records {
		recordID, err := records[i].ID()
		if err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}

		err = c.DeleteRecord(ctx, recordID)
		if err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}
	}

	c.logger.Info("all records cleared", map[string]interface{}{
		"layout": c.layout,
		"count":  len(records),
	})

	return nil
}

// GetFieldNames implements fmdata.RecordsClient.GetFieldNames using the
// first record as the example.
func (c *RecordsClient) GetFieldNames(ctx context.Context) ([]string, error) {
	records, err := c.GetRecords(ctx, 1, 1)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		c.logger.Warn("no records found while fetching field names", map[string]interface{}{"layout": c.layout})

		return []string{}, nil
	}

	return fmdata.FieldNamesByExample(&records[0]), nil
}
