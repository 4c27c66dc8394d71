//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fivetwenty-io/fmdata/pkg/fmclient"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// RecordsIntegrationTestSuite runs record operations against a live server.
// The layout must expose a text field named by FM_TEXT_FIELD (default "Name").
type RecordsIntegrationTestSuite struct {
	suite.Suite

	config  *TestConfig
	client  fmdata.Client
	field   string
	created []int
}

func (s *RecordsIntegrationTestSuite) SetupSuite() {
	s.config = LoadTestConfig()
	s.config.SkipUnlessConfigured(s.T())

	s.field = os.Getenv("FM_TEXT_FIELD")
	if s.field == "" {
		s.field = "Name"
	}

	client, err := fmclient.New(context.Background(), s.config.ClientConfig())
	s.Require().NoError(err)

	s.client = client
}

func (s *RecordsIntegrationTestSuite) TearDownSuite() {
	if s.client == nil {
		return
	}

	ctx := context.Background()
	for _, recordID := range s.created {
		_ = s.client.DeleteRecord(ctx, recordID)
	}

	s.Require().NoError(s.client.Close(ctx))
}

func (s *RecordsIntegrationTestSuite) addRecord(value string) int {
	result, err := s.client.AddRecord(context.Background(), fmdata.FieldData{s.field: value})
	s.Require().NoError(err)
	s.Require().True(result.Success)

	recordID, err := result.Record.ID()
	s.Require().NoError(err)

	s.created = append(s.created, recordID)

	return recordID
}

func (s *RecordsIntegrationTestSuite) TestRecordLifecycle() {
	ctx := context.Background()
	value := fmt.Sprintf("fmdata-it-%d", time.Now().UnixNano())

	recordID := s.addRecord(value)

	record, err := s.client.GetRecordByID(ctx, recordID)
	s.Require().NoError(err)
	s.Equal(value, record.FieldData[s.field])

	_, err = s.client.UpdateRecord(ctx, recordID, fmdata.FieldData{s.field: value + "-updated"})
	s.Require().NoError(err)

	record, err = s.client.GetRecordByID(ctx, recordID)
	s.Require().NoError(err)
	s.Equal(value+"-updated", record.FieldData[s.field])

	s.Require().NoError(s.client.DeleteRecord(ctx, recordID))

	_, err = s.client.GetRecordByID(ctx, recordID)
	s.True(fmdata.IsNotFound(err))
}

func (s *RecordsIntegrationTestSuite) TestSearch() {
	ctx := context.Background()
	value := fmt.Sprintf("fmdata-search-%d", time.Now().UnixNano())

	s.addRecord(value)

	records, err := s.client.Search(ctx, []map[string]string{{s.field: "==" + value}}, []string{s.field}, true)
	s.Require().NoError(err)
	s.Len(records, 1)

	_, err = s.client.Search(ctx, []map[string]string{{s.field: "==" + value + "-missing"}}, nil, true)
	s.True(fmdata.IsNoRecordsMatch(err))
}

func (s *RecordsIntegrationTestSuite) TestCountAndFields() {
	s.addRecord("fmdata-count")

	count, err := s.client.GetRecordCount(context.Background())
	s.Require().NoError(err)
	s.Positive(count)

	names, err := s.client.GetFieldNames(context.Background())
	s.Require().NoError(err)
	s.Contains(names, s.field)
}

func (s *RecordsIntegrationTestSuite) TestDiscovery() {
	ctx := context.Background()

	databases, err := fmclient.ListDatabases(ctx, s.config.ClientConfig())
	s.Require().NoError(err)
	s.Contains(databases, s.config.Database)

	layouts, err := fmclient.ListLayouts(ctx, s.config.ClientConfig(), s.config.Database)
	s.Require().NoError(err)
	s.NotEmpty(layouts)
}

func TestRecordsIntegration(t *testing.T) {
	suite.Run(t, new(RecordsIntegrationTestSuite))
}
