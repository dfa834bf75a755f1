package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

const (
	URLKey         = "events.nats_url"
	SubjectKey     = "events.subject"
	DefaultSubject = "fundcrawl.events"
)

var ErrClosed = errors.New("event publisher closed")

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	Close()
}

type Config struct {
	URL     string
	Subject string
	Name    string
	Timeout time.Duration
}

// Publisher fans domain events out on NATS. Each event goes to
// <subject>.<session id>.<event kind> with its id in the Nats-Msg-Id header.
type Publisher struct {
	conn    Conn
	subject string
	closed  atomic.Bool
}

var _ ports.EventPublisher = (*Publisher)(nil)

func Connect(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "fundcrawl"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return NewPublisher(conn, cfg.Subject), nil
}

func NewPublisher(conn Conn, subject string) *Publisher {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := domain.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Kind(), err)
	}

	meta := event.Meta()
	msg := nats.NewMsg(Subject(p.subject, event))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, string(meta.ID))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Kind(), err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.conn.Close()
}

func Subject(prefix string, event domain.Event) string {
	return prefix + "." + string(event.Meta().SessionID) + "." + string(event.Kind())
}
