package client_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/fmdata/internal/client"
	"github.com/fivetwenty-io/fmdata/internal/fmtest"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

func TestListDatabases(t *testing.T) {
	t.Parallel()

	server := fmtest.NewServer(t)
	server.AddLayout("Shop", "Orders")
	server.AddLayout("Contacts", "People")

	databases, err := ListDatabases(context.Background(), testConfig(server, "", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Contacts", "Shop"}, databases)

	request := server.LastRequest()
	assert.Equal(t, "/databases", request.Path)
	assert.Equal(t, fmtest.BasicAuth(), request.Authorization)
	assert.Zero(t, server.SessionCount())
}

func TestListDatabases_RequiresUsername(t *testing.T) {
	t.Parallel()

	_, err := ListDatabases(context.Background(), &fmdata.Config{})
	require.ErrorIs(t, err, fmdata.ErrUsernameRequired)

	_, err = ListDatabases(context.Background(), nil)
	require.ErrorIs(t, err, fmdata.ErrConfigRequired)
}

func TestListLayouts(t *testing.T) {
	t.Parallel()

	server := fmtest.NewServer(t)
	server.AddLayout("My Shop", "Orders")
	server.AddLayout("My Shop", "Products")

	layouts, err := ListLayouts(context.Background(), testConfig(server, "", ""), "My Shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Products"}, layouts)

	requests := server.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t, "/databases/My%20Shop/sessions", requests[0].Path)
	assert.Equal(t, "/databases/My%20Shop/layouts", requests[1].Path)
	assert.Equal(t, "DELETE", requests[2].Method)
	assert.Equal(t, []string{"token-1"}, server.ClosedSessions())
}

func TestListLayouts_RequiresDatabase(t *testing.T) {
	t.Parallel()

	server := fmtest.NewServer(t)

	_, err := ListLayouts(context.Background(), testConfig(server, "", ""), "")
	require.ErrorIs(t, err, fmdata.ErrDatabaseRequired)
}

func TestDeleteDatabase(t *testing.T) {
	t.Parallel()

	server := fmtest.NewServer(t)
	server.AddLayout("Scratch", "Temp")
	server.AddLayout("Shop", "Orders")

	err := DeleteDatabase(context.Background(), testConfig(server, "", ""), "Scratch")
	require.NoError(t, err)

	databases, err := ListDatabases(context.Background(), testConfig(server, "", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Shop"}, databases)
}

func TestListLayouts_LogsOutAfterCancellation(t *testing.T) {
	t.Parallel()

	server := fmtest.NewServer(t)
	server.AddLayout("Shop", "Orders")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain := fmdata.NewInterceptorChain()
	chain.AddResponseInterceptor(func(_ context.Context, req *fmdata.Request, _ *fmdata.Response) error {
		if strings.HasSuffix(req.Path, "/layouts") {
			cancel()
		}

		return nil
	})

	config := testConfig(server, "", "")
	config.Interceptors = chain

	layouts, err := ListLayouts(ctx, config, "Shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, layouts)
	assert.Equal(t, []string{"token-1"}, server.ClosedSessions())
}
