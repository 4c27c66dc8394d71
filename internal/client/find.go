package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/internal/http"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// FindClient implements fmdata.FindClient.
type FindClient struct {
	httpClient *http.Client
	database   string
	layout     string
	logger     fmdata.Logger
}

// NewFindClient creates a find client for one layout.
func NewFindClient(httpClient *http.Client, database, layout string, logger fmdata.Logger) *FindClient {
	if logger == nil {
		logger = fmdata.NoopLogger{}
	}

	return &FindClient{
		httpClient: httpClient,
		database:   database,
		layout:     layout,
		logger:     logger,
	}
}

// Search implements fmdata.FindClient.Search.
func (c *FindClient) Search(ctx context.Context, query []map[string]string, sort []string, ascending bool) ([]fmdata.Record, error) {
	return c.find(ctx, fmdata.NewFindRequest(query, sort, ascending))
}

// AdvancedSearch implements fmdata.FindClient.AdvancedSearch.
func (c *FindClient) AdvancedSearch(ctx context.Context, fields map[string]interface{}, sort []string, ascending bool) ([]fmdata.Record, error) {
	return c.find(ctx, fmdata.NewAdvancedFindRequest(fields, sort, ascending))
}

func (c *FindClient) find(ctx context.Context, request *fmdata.FindRequest) ([]fmdata.Record, error) {
	path := http.JoinPath("databases", c.database, constants.PathLayouts, c.layout, constants.PathFind)

	c.logger.Debug("running find", map[string]interface{}{
		"layout":   c.layout,
		"requests": len(request.Query),
		"sort":     len(request.Sort),
	})

	resp, err := c.httpClient.Post(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}

	payload, err := decodeRecords(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	if payload.Data == nil {
		return nil, fmt.Errorf("parsing search results: %w", fmdata.ErrMissingData)
	}

	return *payload.Data, nil
}
