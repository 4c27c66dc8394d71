// Package events publishes record mutation events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// Conn is the subset of *nats.Conn used by NATSPublisher.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher implements fmdata.EventPublisher on a NATS connection.
type NATSPublisher struct {
	conn  Conn
	owned bool
}

// NewNATSPublisher publishes on an existing connection. Close leaves the
// connection open.
func NewNATSPublisher(conn Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, logger fmdata.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = fmdata.NoopLogger{}
	}

	conn, err := nats.Connect(url,
		nats.Name(constants.DefaultUserAgent),
		nats.Timeout(constants.ShortHTTPTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, owned: true}, nil
}

// Subject returns fmdata.<database>.<layout>.<operation>. Characters NATS
// treats as separators or wildcards are replaced with underscores.
func Subject(event fmdata.RecordEvent) string {
	return strings.Join([]string{
		constants.EventSubjectPrefix,
		subjectToken(event.Database),
		subjectToken(event.Layout),
		string(event.Operation),
	}, ".")
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

func subjectToken(value string) string {
	if value == "" {
		return "_"
	}

	return subjectReplacer.Replace(value)
}

// Publish implements fmdata.EventPublisher. Events without an ID get a
// random UUID, sent as the Nats-Msg-Id header so JetStream streams can
// drop duplicates.
func (p *NATSPublisher) Publish(ctx context.Context, event fmdata.RecordEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := nats.NewMsg(Subject(event))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID)

	err = p.conn.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	return nil
}

// Close flushes pending events and drains the connection when the
// publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	_ = p.conn.FlushWithContext(ctx)

	err := p.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}
