package ports

import (
	"context"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
)

// Automation executes page interactions on behalf of scheduled steps.
type Automation interface {
	ExecuteInteraction(ctx context.Context, step domain.StepKind) (bool, error)
	ResolveMinimumDelay(step domain.StepKind) time.Duration
}

type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

type BatchLoad struct {
	ItemsLoaded int
	HasMore     bool
}

type BatchLoader interface {
	LoadBatch(ctx context.Context, batch int) (BatchLoad, error)
}

// ResponseObserver pushes every captured HTTP response to fn until ctx ends.
type ResponseObserver interface {
	ObserveResponses(ctx context.Context, fn func(domain.CapturedResponse)) error
}

// Browser is the full surface a crawl driver offers the host process.
type Browser interface {
	Automation
	Navigator
	BatchLoader
	ResponseObserver
	Close() error
}
