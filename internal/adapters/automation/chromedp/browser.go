package chromedp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/logging"
	"github.com/bnema/fundcrawl/internal/ports"
)

const (
	defaultThrottle  = 750 * time.Millisecond
	defaultBodyLimit = 4 << 20
	actionTimeout    = 30 * time.Second
)

var ErrNoSelector = errors.New("no selector configured for step")

type Config struct {
	Headless  bool
	UserAgent string
	// Throttle is the minimum spacing between browser actions.
	Throttle  time.Duration
	Selectors map[domain.StepKind]string
	MinDelays map[domain.StepKind]time.Duration
	// CapturePrefixes limits body capture to matching URLs. Empty captures
	// every XHR and fetch response.
	CapturePrefixes []string
	// BodyLimit caps a captured body in bytes. Longer bodies are cut and
	// flagged as truncated.
	BodyLimit int

	ListURL            string
	ListItemSelector   string
	LoadMoreSelector   string
	ListSettleDuration time.Duration
}

type pendingResponse struct {
	method string
	url    string
	status int
}

// Browser drives a real Chrome through the DevTools protocol.
type Browser struct {
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu        sync.Mutex
	methods   map[network.RequestID]string
	pending   map[network.RequestID]pendingResponse
	observers map[int]func(domain.CapturedResponse)
	nextID    int
	lastCount int
}

var _ ports.Browser = (*Browser)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Browser, error) {
	if cfg.Throttle <= 0 {
		cfg.Throttle = defaultThrottle
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = defaultBodyLimit
	}
	if cfg.ListSettleDuration <= 0 {
		cfg.ListSettleDuration = 2 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		cfg:         cfg,
		logger:      logging.Component(logger, "chromedp"),
		limiter:     rate.NewLimiter(rate.Every(cfg.Throttle), 1),
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		methods:     map[network.RequestID]string{},
		pending:     map[network.RequestID]pendingResponse{},
		observers:   map[int]func(domain.CapturedResponse){},
	}

	chromedp.ListenTarget(browserCtx, b.onEvent)
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		b.Close()
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	return b, nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (b *Browser) ExecuteInteraction(ctx context.Context, step domain.StepKind) (bool, error) {
	selector, ok := b.cfg.Selectors[step]
	if !ok || strings.TrimSpace(selector) == "" {
		return false, fmt.Errorf("%w: %s", ErrNoSelector, step)
	}

	if err := b.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return false, fmt.Errorf("click %s: %w", step, err)
	}
	return true, nil
}

func (b *Browser) ResolveMinimumDelay(step domain.StepKind) time.Duration {
	return b.cfg.MinDelays[step]
}

// LoadBatch opens the listing for batch 1 and presses the load-more control
// for every later batch, counting the list entries that appeared.
func (b *Browser) LoadBatch(ctx context.Context, batch int) (ports.BatchLoad, error) {
	if b.cfg.ListURL == "" || b.cfg.ListItemSelector == "" {
		return ports.BatchLoad{}, errors.New("listing url and item selector are required")
	}

	var actions []chromedp.Action
	if batch <= 1 {
		b.mu.Lock()
		b.lastCount = 0
		b.mu.Unlock()
		actions = append(actions, chromedp.Navigate(b.cfg.ListURL), chromedp.WaitReady("body", chromedp.ByQuery))
	} else {
		if b.cfg.LoadMoreSelector == "" {
			return ports.BatchLoad{}, errors.New("load-more selector is required for later batches")
		}
		actions = append(actions, chromedp.Click(b.cfg.LoadMoreSelector, chromedp.ByQuery, chromedp.NodeVisible))
	}

	var count int
	var hasMore bool
	actions = append(actions,
		chromedp.Sleep(b.cfg.ListSettleDuration),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, b.cfg.ListItemSelector), &count),
	)
	if b.cfg.LoadMoreSelector != "" {
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%q)`, b.cfg.LoadMoreSelector), &hasMore))
	}

	if err := b.run(ctx, actions...); err != nil {
		return ports.BatchLoad{}, fmt.Errorf("load batch %d: %w", batch, err)
	}

	b.mu.Lock()
	loaded := max(count-b.lastCount, 0)
	b.lastCount = count
	b.mu.Unlock()

	return ports.BatchLoad{ItemsLoaded: loaded, HasMore: hasMore}, nil
}

func (b *Browser) ObserveResponses(ctx context.Context, fn func(domain.CapturedResponse)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-b.ctx.Done():
	}

	b.mu.Lock()
	delete(b.observers, id)
	b.mu.Unlock()
	return nil
}

func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

// run paces actions through the limiter and bounds them by both the caller's
// context and the browser's.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(b.ctx, actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) onEvent(ev any) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		b.mu.Lock()
		b.methods[ev.RequestID] = ev.Request.Method
		b.mu.Unlock()

	case *network.EventResponseReceived:
		if ev.Type != network.ResourceTypeXHR && ev.Type != network.ResourceTypeFetch {
			return
		}
		if !b.wanted(ev.Response.URL) {
			return
		}
		b.mu.Lock()
		b.pending[ev.RequestID] = pendingResponse{
			method: b.methods[ev.RequestID],
			url:    ev.Response.URL,
			status: int(ev.Response.Status),
		}
		b.mu.Unlock()

	case *network.EventLoadingFinished:
		b.mu.Lock()
		resp, ok := b.pending[ev.RequestID]
		delete(b.pending, ev.RequestID)
		delete(b.methods, ev.RequestID)
		b.mu.Unlock()
		if ok {
			// listeners must not block the event loop
			go b.capture(ev.RequestID, resp)
		}

	case *network.EventLoadingFailed:
		b.mu.Lock()
		delete(b.pending, ev.RequestID)
		delete(b.methods, ev.RequestID)
		b.mu.Unlock()
	}
}

func (b *Browser) wanted(url string) bool {
	if len(b.cfg.CapturePrefixes) == 0 {
		return true
	}
	for _, prefix := range b.cfg.CapturePrefixes {
		if strings.Contains(url, prefix) {
			return true
		}
	}
	return false
}

func (b *Browser) capture(id network.RequestID, resp pendingResponse) {
	var body []byte
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		b.logger.Debug("response body unavailable", "url", resp.url, "error", err)
	}
	body, truncated := clip(body, b.cfg.BodyLimit)
	if truncated {
		b.logger.Warn("response body truncated", "url", resp.url, "limit", b.cfg.BodyLimit)
	}

	captured := domain.CapturedResponse{
		Method:    resp.method,
		URL:       resp.url,
		Status:    resp.status,
		Body:      string(body),
		Truncated: truncated,
	}

	b.mu.Lock()
	observers := make([]func(domain.CapturedResponse), 0, len(b.observers))
	for _, fn := range b.observers {
		observers = append(observers, fn)
	}
	b.mu.Unlock()

	for _, fn := range observers {
		fn(captured)
	}
}

func clip(body []byte, limit int) ([]byte, bool) {
	if limit <= 0 || len(body) <= limit {
		return body, false
	}
	return body[:limit], true
}
