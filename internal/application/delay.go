package application

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

var DefaultDelayRange = DelayRange{Min: 10 * time.Second, Max: 20 * time.Second}

type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

func (r DelayRange) Span() time.Duration {
	if r.Max <= r.Min {
		return 0
	}
	return r.Max - r.Min
}

func (r DelayRange) Validate() error {
	if r.Min <= 0 {
		return domain.NewValidationError("delay_min", "must be positive")
	}
	if r.Max < r.Min {
		return domain.NewValidationError("delay_max", "must not be below delay_min")
	}
	return nil
}

var _ ports.DelayProvider = (*RandomDelayProvider)(nil)

// RandomDelayProvider draws uniformly from its range. It is safe for
// concurrent use.
type RandomDelayProvider struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	bounds DelayRange
}

func NewRandomDelayProvider(r DelayRange, seed uint64) *RandomDelayProvider {
	return &RandomDelayProvider{
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		bounds: r,
	}
}

func (p *RandomDelayProvider) NextDelay() time.Duration {
	return p.NextDelayAtLeast(p.bounds.Min)
}

func (p *RandomDelayProvider) NextDelayAtLeast(minimum time.Duration) time.Duration {
	span := p.bounds.Span()
	if span == 0 {
		return minimum
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return minimum + time.Duration(p.rnd.Int64N(int64(span)+1))
}

var _ ports.DelayProvider = FixedDelayProvider{}

// FixedDelayProvider always returns Default, or minimum+Extra when a lower
// bound is given.
type FixedDelayProvider struct {
	Default time.Duration
	Extra   time.Duration
}

func (p FixedDelayProvider) NextDelay() time.Duration {
	return p.Default
}

func (p FixedDelayProvider) NextDelayAtLeast(minimum time.Duration) time.Duration {
	return minimum + p.Extra
}

var _ ports.DelayProvider = (*SequenceDelayProvider)(nil)

// SequenceDelayProvider replays Values in order, repeating the last one. The
// lower bound of NextDelayAtLeast is still honoured.
type SequenceDelayProvider struct {
	mu     sync.Mutex
	values []time.Duration
	next   int
}

func NewSequenceDelayProvider(values ...time.Duration) *SequenceDelayProvider {
	return &SequenceDelayProvider{values: values}
}

func (p *SequenceDelayProvider) NextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.values) == 0 {
		return 0
	}
	idx := min(p.next, len(p.values)-1)
	p.next++
	return p.values[idx]
}

func (p *SequenceDelayProvider) NextDelayAtLeast(minimum time.Duration) time.Duration {
	return max(p.NextDelay(), minimum)
}
