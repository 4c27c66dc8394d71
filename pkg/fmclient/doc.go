// Package fmclient provides the primary entry point for constructing a
// FileMaker Data API client that implements the fmdata.Client interface.
//
// It layers configuration, HTTP transport, session authentication, metrics
// and record events on top of the interfaces and types defined in the fmdata
// package. Most applications import fmclient to build a client and then use
// the returned fmdata.Client for records and finds.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/fmdata/pkg/fmclient"
//	  "github.com/fivetwenty-io/fmdata/pkg/fmdata"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := fmclient.NewWithPassword(ctx,
//	    "fm.example.com/fmi/data/vLatest", "admin", "secret", "Contacts", "People")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close(ctx)
//
//	  count, err := cli.GetRecordCount(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = count
//	}
//
// # Base URL
//
// A base URL without a scheme gets "https://" and a trailing slash is
// trimmed. An empty base URL defers to the FM_URL environment variable,
// which is read on every request.
//
// # Sessions
//
// New logs in once. FileMaker drops idle sessions after 15 minutes and the
// client does not log in again; build a new client when calls start failing
// with fmdata.IsUnauthorized. Close logs out.
//
// # Discovery
//
// ListDatabases needs only credentials. ListLayouts and DeleteDatabase open a
// short-lived session on the named database.
package fmclient
