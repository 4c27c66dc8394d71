package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/fmdata/internal/auth"
	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/internal/http"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

type databasesResponse struct {
	Databases *[]fmdata.Database `json:"databases"`
}

type layoutsResponse struct {
	Layouts *[]fmdata.Layout `json:"layouts"`
}

func discoveryLogger(config *fmdata.Config) fmdata.Logger {
	if config.Logger == nil {
		return fmdata.NoopLogger{}
	}

	return config.Logger
}

// ListDatabases returns the names of the databases visible to the
// configured account. Only Username and Password are needed.
func ListDatabases(ctx context.Context, config *fmdata.Config) ([]string, error) {
	if config == nil {
		return nil, fmdata.ErrConfigRequired
	}

	if config.Username == "" {
		return nil, fmdata.ErrUsernameRequired
	}

	basic, err := newBasicHTTPClient(config)
	if err != nil {
		return nil, err
	}

	resp, err := basic.Do(ctx, &http.Request{
		Method: "GET",
		Path:   constants.PathDatabases,
		Headers: map[string]string{
			constants.HeaderAuthorization: credentials(config).BasicAuthHeader(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, fmt.Errorf("parsing databases: %w", err)
	}

	var payload databasesResponse

	err = envelope.DecodeResponse(&payload)
	if err != nil || payload.Databases == nil {
		return nil, fmt.Errorf("parsing databases: %w", fmdata.ErrMissingDatabases)
	}

	names := make([]string, 0, len(*payload.Databases))
	for _, database := range *payload.Databases {
		names = append(names, database.Name)
	}

	discoveryLogger(config).Info("database list retrieved", map[string]interface{}{
		"count": len(names),
	})

	return names, nil
}

// openSession logs in to database and returns a bearer client for it.
func openSession(ctx context.Context, config *fmdata.Config, database string) (*http.Client, *auth.SessionTokenManager, error) {
	if config == nil {
		return nil, nil, fmdata.ErrConfigRequired
	}

	if config.Username == "" {
		return nil, nil, fmdata.ErrUsernameRequired
	}

	if database == "" {
		return nil, nil, fmdata.ErrDatabaseRequired
	}

	basic, err := newBasicHTTPClient(config)
	if err != nil {
		return nil, nil, err
	}

	session := auth.NewSessionTokenManager(basic, database, credentials(config), discoveryLogger(config))

	_, err = session.Login(ctx)
	if err != nil {
		return nil, nil, err
	}

	return basic.WithTokenManager(session), session, nil
}

// ListLayouts returns the top-level layout names of database. It opens its
// own session and closes it afterwards.
func ListLayouts(ctx context.Context, config *fmdata.Config, database string) ([]string, error) {
	layouts, err := ListLayoutDetails(ctx, config, database)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(layouts))
	for _, layout := range layouts {
		names = append(names, layout.Name)
	}

	return names, nil
}

// ListLayoutDetails is ListLayouts with folder information kept.
func ListLayoutDetails(ctx context.Context, config *fmdata.Config, database string) ([]fmdata.Layout, error) {
	bearer, session, err := openSession(ctx, config, database)
	if err != nil {
		return nil, err
	}

	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShortHTTPTimeout)
		defer cancel()

		_ = session.Logout(logoutCtx)
	}()

	resp, err := bearer.Get(ctx, http.JoinPath("databases", database, constants.PathLayouts), nil)
	if err != nil {
		return nil, fmt.Errorf("listing layouts: %w", err)
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, fmt.Errorf("parsing layouts: %w", err)
	}

	var payload layoutsResponse

	err = envelope.DecodeResponse(&payload)
	if err != nil || payload.Layouts == nil {
		return nil, fmt.Errorf("parsing layouts: %w", fmdata.ErrMissingLayouts)
	}

	discoveryLogger(config).Info("layout list retrieved", map[string]interface{}{
		"database": database,
		"count":    len(*payload.Layouts),
	})

	return *payload.Layouts, nil
}

// DeleteDatabase opens a session on database and deletes it.
func DeleteDatabase(ctx context.Context, config *fmdata.Config, database string) error {
	bearer, _, err := openSession(ctx, config, database)
	if err != nil {
		return err
	}

	_, err = bearer.Delete(ctx, http.JoinPath("databases", database))
	if err != nil {
		return fmt.Errorf("deleting database %s: %w", database, err)
	}

	discoveryLogger(config).Info("database deleted", map[string]interface{}{
		"database": database,
	})

	return nil
}
