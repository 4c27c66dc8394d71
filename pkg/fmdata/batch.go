package fmdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrInvalidBatchData = errors.New("invalid data type for record operation")
	ErrRecordNotCreated = errors.New("record was not created")
)

// Batch operation types.
const (
	BatchCreate = "create"
	BatchUpdate = "update"
	BatchDelete = "delete"
	BatchGet    = "get"
)

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	ID       string
	Type     string // "create", "update", "delete", "get"
	RecordID int    // update, delete and get
	Fields   FieldData
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor executes record operations concurrently.
type BatchExecutor struct {
	client      RecordsClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client RecordsClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the per-operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. A failed operation does not stop the
// others; its error is reported in its BatchResult. Results keep the order
// of operations.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.concurrency)

	for index, operation := range operations {
		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(groupCtx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return results, fmt.Errorf("executing batch: %w", err)
	}

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	var (
		data interface{}
		err  error
	)

	switch operation.Type {
	case BatchCreate:
		if operation.Fields == nil {
			err = fmt.Errorf("%w: create needs fields", ErrInvalidBatchData)

			break
		}

		var added *AddRecordResult

		added, err = b.client.AddRecord(ctx, operation.Fields)
		if err == nil && !added.Success {
			err = ErrRecordNotCreated
		}

		data = added
	case BatchUpdate:
		if operation.Fields == nil {
			err = fmt.Errorf("%w: update needs fields", ErrInvalidBatchData)

			break
		}

		data, err = b.client.UpdateRecord(ctx, operation.RecordID, operation.Fields)
	case BatchDelete:
		err = b.client.DeleteRecord(ctx, operation.RecordID)
	case BatchGet:
		data, err = b.client.GetRecordByID(ctx, operation.RecordID)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperation, operation.Type)
	}

	result.Success = err == nil
	result.Error = err

	if err == nil {
		result.Data = data
	}

	return result
}
