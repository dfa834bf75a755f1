package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/fundcrawl/internal/domain"
)

type fakeConn struct {
	msgs   []*nats.Msg
	err    error
	closed int
}

func (c *fakeConn) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close() { c.closed++ }

func started() domain.SessionStarted {
	return domain.SessionStarted{
		EventMeta:  domain.NewEventMeta("sess-1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		Variant:    domain.VariantPageVisit,
		TotalItems: 3,
	}
}

func TestPublisherPublishesEnvelope(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	publisher := NewPublisher(conn, "crawl.events.")
	event := started()

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "crawl.events.sess-1.session.started", msg.Subject)
	assert.Equal(t, string(event.ID), msg.Header.Get(nats.MsgIdHdr))

	var envelope struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		SessionID string `json:"session_id"`
		Payload   struct {
			TotalItems int
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, "session.started", envelope.Kind)
	assert.Equal(t, "sess-1", envelope.SessionID)
	assert.Equal(t, 3, envelope.Payload.TotalItems)
}

func TestPublisherDefaultsSubject(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	require.NoError(t, NewPublisher(conn, " ").Publish(context.Background(), started()))
	assert.Equal(t, "fundcrawl.events.sess-1.session.started", conn.msgs[0].Subject)
}

func TestPublisherWrapsConnErrors(t *testing.T) {
	t.Parallel()

	connErr := errors.New("connection lost")
	publisher := NewPublisher(&fakeConn{err: connErr}, "")

	err := publisher.Publish(context.Background(), started())
	require.ErrorIs(t, err, connErr)
	assert.Contains(t, err.Error(), "publish session.started event")
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	publisher := NewPublisher(conn, "")
	publisher.Close()
	publisher.Close()

	assert.Equal(t, 1, conn.closed)
	require.ErrorIs(t, publisher.Publish(context.Background(), started()), ErrClosed)
}

func TestPublisherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, NewPublisher(conn, "").Publish(ctx, started()), context.Canceled)
	assert.Empty(t, conn.msgs)
}
