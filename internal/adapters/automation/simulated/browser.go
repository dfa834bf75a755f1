package simulated

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

var ErrClosed = errors.New("simulated browser closed")

// Response is a captured response the browser emits. "{ref}" in Path and
// Body is replaced with the last path segment of the current page.
type Response struct {
	Method string
	Path   string
	Status int
	Body   string
}

type Config struct {
	BaseURL string
	// Latency is how long navigation and each interaction take.
	Latency time.Duration
	// FailSteps lists interactions that always report failure.
	FailSteps  map[domain.StepKind]bool
	MinDelays  map[domain.StepKind]time.Duration
	OnNavigate []Response
	OnStep     map[domain.StepKind][]Response
	// TotalItems and BatchSize drive LoadBatch.
	TotalItems int
	BatchSize  int
}

// DefaultConfig serves the fund-guide endpoints the default collector routes
// listen to.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://sim.fundcrawl.test",
		Latency: 50 * time.Millisecond,
		OnNavigate: []Response{
			{Method: "GET", Path: "/_api/fund-guide/guide/{ref}", Status: 200, Body: `{"isin":"SIM{ref}","name":"Simulated fund {ref}"}`},
		},
		OnStep: map[domain.StepKind][]Response{
			"select_chart_period": {
				{Method: "GET", Path: "/_api/fund-guide/chart/{ref}/one_year", Status: 200, Body: `{"dataSerie":[{"x":1,"y":100.0}]}`},
			},
		},
		TotalItems: 100,
		BatchSize:  20,
	}
}

// Browser fakes a page-driving browser in process.
type Browser struct {
	cfg Config

	mu        sync.Mutex
	page      string
	loaded    int
	observers map[int]func(domain.CapturedResponse)
	nextID    int
	closed    bool
}

var _ ports.Browser = (*Browser)(nil)

func New(cfg Config) *Browser {
	return &Browser{cfg: cfg, observers: map[int]func(domain.CapturedResponse){}}
}

func (b *Browser) Navigate(ctx context.Context, target string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	ref := path.Base(strings.TrimSuffix(u.Path, "/"))
	if ref == "" || ref == "." || ref == "/" {
		return fmt.Errorf("navigate %s: no page to load", target)
	}

	b.mu.Lock()
	b.page = ref
	b.mu.Unlock()

	// page XHRs land after the document itself
	if b.cfg.Latency > 0 {
		time.AfterFunc(b.cfg.Latency, func() { b.emit(ref, b.cfg.OnNavigate) })
	} else {
		b.emit(ref, b.cfg.OnNavigate)
	}
	return nil
}

func (b *Browser) ExecuteInteraction(ctx context.Context, step domain.StepKind) (bool, error) {
	if err := b.wait(ctx); err != nil {
		return false, err
	}

	b.mu.Lock()
	ref := b.page
	b.mu.Unlock()
	if ref == "" {
		return false, errors.New("no page loaded")
	}

	if b.cfg.FailSteps[step] {
		return false, nil
	}

	b.emit(ref, b.cfg.OnStep[step])
	return true, nil
}

func (b *Browser) ResolveMinimumDelay(step domain.StepKind) time.Duration {
	return b.cfg.MinDelays[step]
}

// LoadBatch pretends to page through a listing of TotalItems entries.
// Batch 1 restarts the listing.
func (b *Browser) LoadBatch(ctx context.Context, batch int) (ports.BatchLoad, error) {
	if err := b.wait(ctx); err != nil {
		return ports.BatchLoad{}, err
	}
	if b.cfg.BatchSize <= 0 {
		return ports.BatchLoad{}, errors.New("batch size not configured")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if batch == 1 {
		b.loaded = 0
	}
	n := min(b.cfg.BatchSize, max(b.cfg.TotalItems-b.loaded, 0))
	b.loaded += n

	return ports.BatchLoad{ItemsLoaded: n, HasMore: b.loaded < b.cfg.TotalItems}, nil
}

// ObserveResponses delivers every emitted response to fn until ctx ends.
func (b *Browser) ObserveResponses(ctx context.Context, fn func(domain.CapturedResponse)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.observers, id)
	b.mu.Unlock()
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	clear(b.observers)
	return nil
}

func (b *Browser) wait(ctx context.Context) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if b.cfg.Latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(b.cfg.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Browser) emit(ref string, responses []Response) {
	if len(responses) == 0 {
		return
	}

	b.mu.Lock()
	observers := make([]func(domain.CapturedResponse), 0, len(b.observers))
	for _, fn := range b.observers {
		observers = append(observers, fn)
	}
	b.mu.Unlock()

	for _, resp := range responses {
		captured := domain.CapturedResponse{
			Method: resp.Method,
			URL:    strings.TrimSuffix(b.cfg.BaseURL, "/") + strings.ReplaceAll(resp.Path, "{ref}", ref),
			Status: resp.Status,
			Body:   strings.ReplaceAll(resp.Body, "{ref}", ref),
		}
		for _, fn := range observers {
			fn(captured)
		}
	}
}
