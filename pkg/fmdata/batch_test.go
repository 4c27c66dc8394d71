package fmdata_test

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// fakeRecords is an in-memory RecordsClient.
type fakeRecords struct {
	mu      sync.Mutex
	records map[int]fmdata.FieldData
	nextID  int
	delay   time.Duration
	active  int32
	peak    int32
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[int]fmdata.FieldData{}, nextID: 1}
}

func (f *fakeRecords) track(ctx context.Context) error {
	current := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)

	for {
		peak := atomic.LoadInt32(&f.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, current) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRecords) GetRecords(ctx context.Context, offset, limit int) ([]fmdata.Record, error) {
	return nil, nil
}

func (f *fakeRecords) GetRecordCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.records), nil
}

func (f *fakeRecords) GetAllRecords(ctx context.Context) ([]fmdata.Record, error) {
	return nil, nil
}

func (f *fakeRecords) GetRecordByID(ctx context.Context, recordID int) (*fmdata.Record, error) {
	err := f.track(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fields, ok := f.records[recordID]
	if !ok {
		return nil, fmdata.ErrRecordNotFound
	}

	return &fmdata.Record{RecordID: strconv.Itoa(recordID), FieldData: fields}, nil
}

func (f *fakeRecords) AddRecord(ctx context.Context, fields fmdata.FieldData) (*fmdata.AddRecordResult, error) {
	err := f.track(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.records[id] = fields

	return &fmdata.AddRecordResult{
		Success: true,
		Record:  &fmdata.Record{RecordID: strconv.Itoa(id), FieldData: fields},
	}, nil
}

func (f *fakeRecords) UpdateRecord(ctx context.Context, recordID int, fields fmdata.FieldData) (*fmdata.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[recordID]; !ok {
		return nil, fmdata.ErrRecordNotFound
	}

	f.records[recordID] = fields

	return &fmdata.Envelope{Messages: []fmdata.Message{{Code: "0", Message: "OK"}}}, nil
}

func (f *fakeRecords) DeleteRecord(ctx context.Context, recordID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[recordID]; !ok {
		return fmdata.ErrRecordNotFound
	}

	delete(f.records, recordID)

	return nil
}

func (f *fakeRecords) ClearRecords(ctx context.Context) error { return nil }

func (f *fakeRecords) GetFieldNames(ctx context.Context) ([]string, error) { return nil, nil }

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	records := newFakeRecords()
	records.records[7] = fmdata.FieldData{"Name": "Grace"}
	records.nextID = 8

	executor := fmdata.NewBatchExecutor(records, 2)

	operations := []fmdata.BatchOperation{
		{ID: "create", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "Ada"}},
		{ID: "get", Type: fmdata.BatchGet, RecordID: 7},
		{ID: "update", Type: fmdata.BatchUpdate, RecordID: 7, Fields: fmdata.FieldData{"Name": "Grace H."}},
		{ID: "missing", Type: fmdata.BatchDelete, RecordID: 99},
		{ID: "bogus", Type: "merge"},
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, len(operations))

	for i, operation := range operations {
		assert.Equal(t, operation.ID, results[i].ID)
	}

	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.True(t, results[2].Success)

	assert.False(t, results[3].Success)
	require.ErrorIs(t, results[3].Error, fmdata.ErrRecordNotFound)

	assert.False(t, results[4].Success)
	require.ErrorIs(t, results[4].Error, fmdata.ErrUnsupportedOperation)
}

func TestBatchExecutor_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	records := newFakeRecords()
	records.delay = 20 * time.Millisecond

	executor := fmdata.NewBatchExecutor(records, 3)

	operations := make([]fmdata.BatchOperation, 0, 12)
	for i := range 12 {
		operations = append(operations, fmdata.BatchOperation{
			ID:     strconv.Itoa(i),
			Type:   fmdata.BatchCreate,
			Fields: fmdata.FieldData{"Index": i},
		})
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)

	for _, result := range results {
		assert.True(t, result.Success, result.ID)
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&records.peak), int32(3))

	count, err := records.GetRecordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestBatchExecutor_WithCallback(t *testing.T) {
	t.Parallel()

	executor := fmdata.NewBatchExecutor(newFakeRecords(), 0)

	var (
		mu  sync.Mutex
		ids []string
	)

	callback := func(result *fmdata.BatchResult) {
		mu.Lock()
		defer mu.Unlock()

		ids = append(ids, result.ID)
	}

	_, err := executor.Execute(context.Background(), []fmdata.BatchOperation{
		{ID: "a", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "A"}, Callback: callback},
		{ID: "b", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "B"}, Callback: callback},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestBatchExecutor_Timeout(t *testing.T) {
	t.Parallel()

	records := newFakeRecords()
	records.delay = time.Second

	executor := fmdata.NewBatchExecutor(records, 1)
	executor.SetTimeout(10 * time.Millisecond)

	results, err := executor.Execute(context.Background(), []fmdata.BatchOperation{
		{ID: "slow", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "Slow"}},
	})
	require.NoError(t, err)

	assert.False(t, results[0].Success)
	require.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestBatchExecutor_MissingFields(t *testing.T) {
	t.Parallel()

	executor := fmdata.NewBatchExecutor(newFakeRecords(), 1)

	results, err := executor.Execute(context.Background(), []fmdata.BatchOperation{
		{ID: "create", Type: fmdata.BatchCreate},
	})
	require.NoError(t, err)

	require.ErrorIs(t, results[0].Error, fmdata.ErrInvalidBatchData)
}

func TestBatchExecutor_FailedOperationsHaveNoData(t *testing.T) {
	t.Parallel()

	records := newFakeRecords()
	records.records[3] = fmdata.FieldData{"Name": "Ada"}

	executor := fmdata.NewBatchExecutor(records, 2)

	results, err := executor.Execute(context.Background(), []fmdata.BatchOperation{
		{ID: "get", Type: fmdata.BatchGet, RecordID: 3},
		{ID: "get missing", Type: fmdata.BatchGet, RecordID: 99},
		{ID: "update missing", Type: fmdata.BatchUpdate, RecordID: 99, Fields: fmdata.FieldData{"Name": "X"}},
	})
	require.NoError(t, err)

	record, ok := results[0].Data.(*fmdata.Record)
	require.True(t, ok)
	assert.Equal(t, "Ada", record.FieldData["Name"])

	// A typed nil pointer stored in the interface would compare non-nil here.
	assert.True(t, results[1].Data == nil)
	assert.True(t, results[2].Data == nil)
}

func TestBatchExecutor_TimedOutCreateHasNoData(t *testing.T) {
	t.Parallel()

	records := newFakeRecords()
	records.delay = time.Second

	executor := fmdata.NewBatchExecutor(records, 1)
	executor.SetTimeout(10 * time.Millisecond)

	results, err := executor.Execute(context.Background(), []fmdata.BatchOperation{
		{ID: "slow", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "Slow"}},
	})
	require.NoError(t, err)

	assert.False(t, results[0].Success)
	assert.True(t, results[0].Data == nil)
}
