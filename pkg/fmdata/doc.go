// Package fmdata provides types, interfaces, and helpers for working with the
// FileMaker Data API.
//
// # Overview
//
// The fmdata package defines the wire types (Record, Envelope, Message), the
// client interfaces (RecordsClient, FindClient, Client) and small helpers
// such as BuildSortRules and FieldNamesByExample. A concrete implementation
// is provided by the fmclient package, which opens the session and wires
// transport, logging, metrics and events.
//
// Getting a client
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
//	  cfg := fmdata.DefaultConfig()
//	  cfg.Username, cfg.Password = "admin", "secret"
//	  cfg.Database, cfg.Layout = "Contacts", "Contacts API"
//
//	  cli, err := fmclient.New(ctx, cfg)
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close(ctx)
//
//	  records, err := cli.GetRecords(ctx, 1, 50)
//	  if err != nil { log.Fatal(err) }
//	  _ = records
//	}
//
// # Base URL
//
// When Config.BaseURL is empty the FM_URL environment variable is read on
// every request. Set BaseURL to pin a client to one server.
//
// # Search
//
// Search sends request objects as given. AdvancedSearch turns every field of
// its map into a separate request object, which FileMaker combines with OR:
//
//	records, err := cli.AdvancedSearch(ctx,
//	  map[string]interface{}{"City": "Paris", "Country": "France"},
//	  []string{"LastName"}, true)
//
// A find that matches nothing fails with a ResponseError for which
// IsNoRecordsMatch reports true.
//
// # Errors
//
// Non-2xx replies are returned as *ResponseError carrying the HTTP status and
// the FileMaker messages. Use IsNotFound, IsUnauthorized and
// IsNoRecordsMatch to classify them.
//
// # Events
//
// Set Config.EventPublisher (or Config.NATSURL) to receive a RecordEvent
// after each successful add, update or delete. Publishing failures are logged
// and never fail the mutation.
//
// # Batches
//
// BatchExecutor runs record operations with bounded concurrency:
//
//	exec := fmdata.NewBatchExecutor(cli, 4)
//	results, _ := exec.Execute(ctx, []fmdata.BatchOperation{
//	  {ID: "a", Type: fmdata.BatchCreate, Fields: fmdata.FieldData{"Name": "Ada"}},
//	  {ID: "b", Type: fmdata.BatchDelete, RecordID: 12},
//	})
package fmdata
