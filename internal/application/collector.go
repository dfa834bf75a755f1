package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/logging"
	"github.com/bnema/fundcrawl/internal/ports"
)

type CollectorState int

const (
	CollectorIdle CollectorState = iota
	CollectorCollecting
	CollectorDraining
	CollectorCompleted
)

func (s CollectorState) String() string {
	switch s {
	case CollectorIdle:
		return "idle"
	case CollectorCollecting:
		return "collecting"
	case CollectorDraining:
		return "draining"
	case CollectorCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StepTrigger is invoked when a scheduled step of the current visit falls
// due. ctx is cancelled once the visit completes or is abandoned.
type StepTrigger func(ctx context.Context, visit domain.VisitID, step domain.StepKind)

type CollectorConfig struct {
	Steps []domain.StepKind
	// FinalStep, when set, moves the visit to draining on success; the visit
	// then completes as soon as DrainSlot is captured.
	FinalStep domain.StepKind
	DrainSlot domain.SlotName
	Routes    []ResponseRoute
}

type CollectorDeps struct {
	Clock     ports.Clock
	Scheduler ports.Scheduler
	Trigger   StepTrigger
	Logger    *slog.Logger
}

// Collector owns the in-flight aggregate of exactly one item visit.
type Collector struct {
	cfg       CollectorConfig
	router    *ResponseRouter
	slots     []domain.SlotName
	stepSlots map[domain.StepKind]domain.SlotName
	clock     ports.Clock
	scheduler ports.Scheduler
	trigger   StepTrigger
	logger    *slog.Logger

	completions *Stream[domain.VisitAggregate]
	root        context.Context
	stopRoot    context.CancelFunc

	mu        sync.Mutex
	state     CollectorState
	current   *domain.VisitAggregate
	timers    *TimerGroup
	visitCtx  context.Context
	stopVisit context.CancelFunc
}

func NewCollector(cfg CollectorConfig, deps CollectorDeps) (*Collector, error) {
	if len(cfg.Steps) == 0 {
		return nil, domain.NewValidationError("steps", "at least one step kind is required")
	}

	router, err := NewResponseRouter(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("build response router: %w", err)
	}

	stepSlots := make(map[domain.StepKind]domain.SlotName, len(cfg.Steps))
	slots := make([]domain.SlotName, 0, len(cfg.Steps)+len(cfg.Routes))
	seen := map[domain.SlotName]bool{}
	for _, step := range cfg.Steps {
		if _, dup := stepSlots[step]; dup {
			return nil, domain.NewValidationError("steps", fmt.Sprintf("duplicate %s", step))
		}
		slot := domain.SlotName(step)
		stepSlots[step] = slot
		seen[slot] = true
		slots = append(slots, slot)
	}
	for _, slot := range router.Slots() {
		if seen[slot] {
			continue
		}
		seen[slot] = true
		slots = append(slots, slot)
	}

	if cfg.FinalStep != "" {
		if _, ok := stepSlots[cfg.FinalStep]; !ok {
			return nil, domain.NewValidationError("final_step", fmt.Sprintf("%s is not a configured step", cfg.FinalStep))
		}
		if cfg.DrainSlot == "" || !seen[cfg.DrainSlot] {
			return nil, domain.NewValidationError("drain_slot", "must name a routed slot when a final step is set")
		}
	}

	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = SystemScheduler{}
	}
	if deps.Trigger == nil {
		deps.Trigger = func(context.Context, domain.VisitID, domain.StepKind) {}
	}

	root, stop := context.WithCancel(context.Background())

	return &Collector{
		cfg:         cfg,
		router:      router,
		slots:       slots,
		stepSlots:   stepSlots,
		clock:       deps.Clock,
		scheduler:   deps.Scheduler,
		trigger:     deps.Trigger,
		logger:      logging.Component(deps.Logger, "collector"),
		completions: NewStream[domain.VisitAggregate](Unbounded()),
		root:        root,
		stopRoot:    stop,
	}, nil
}

// SetTrigger replaces the step trigger. It must be called before the first
// BeginCollection.
func (c *Collector) SetTrigger(trigger StepTrigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if trigger != nil {
		c.trigger = trigger
	}
}

func (c *Collector) Slots() []domain.SlotName {
	return append([]domain.SlotName(nil), c.slots...)
}

// Completions delivers every completed aggregate, including abandoned and
// timed-out ones, exactly once per BeginCollection.
func (c *Collector) Completions() (<-chan domain.VisitAggregate, func()) {
	return c.completions.Subscribe()
}

func (c *Collector) State() CollectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collector) Snapshot() (domain.VisitAggregate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.VisitAggregate{}, false
	}
	return c.current.Clone(), true
}

// BeginCollection abandons any in-flight visit, then starts a fresh aggregate
// for item and schedules its steps relative to now.
func (c *Collector) BeginCollection(sessionID domain.SessionID, item domain.ItemSchedule) (domain.VisitAggregate, error) {
	for _, step := range item.Steps {
		if _, ok := c.stepSlots[step.Kind]; !ok {
			return domain.VisitAggregate{}, unknownStep(step.Kind)
		}
	}

	c.mu.Lock()
	abandoned, hadAbandoned := c.forceCompleteLocked(domain.ReasonAbandoned)

	now := c.clock.Now()
	agg := domain.NewVisitAggregate(sessionID, item.Ref, c.slots, now)
	c.current = &agg
	c.state = CollectorCollecting
	c.timers = NewTimerGroup(c.scheduler)
	c.visitCtx, c.stopVisit = context.WithCancel(c.root)

	visit := agg.ID
	for i, offset := range item.Offsets() {
		step := item.Steps[i].Kind
		c.timers.AfterFunc(max(offset, 0), func() { c.fire(visit, step) })
	}
	c.timers.AfterFunc(max(item.TotalDuration(), minStepDelay), func() { c.expire(visit) })

	snapshot := agg.Clone()
	c.mu.Unlock()

	if hadAbandoned {
		c.emit(abandoned)
	}

	c.logger.Debug("collection started", "visit", visit, "ref", item.Ref, "steps", len(item.Steps), "deadline", item.TotalDuration())

	return snapshot, nil
}

func (c *Collector) NotifyStepOutcome(outcome domain.StepOutcome) error {
	slot, ok := c.stepSlots[outcome.Step]
	if !ok {
		return unknownStep(outcome.Step)
	}

	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		c.logger.Debug("step outcome without active visit", "step", outcome.Step, "visit", outcome.Visit)
		return domain.ErrNoActiveVisit
	}
	if outcome.Visit != "" && outcome.Visit != c.current.ID {
		c.mu.Unlock()
		c.logger.Debug("stale step outcome ignored", "step", outcome.Step, "visit", outcome.Visit)
		return nil
	}

	now := c.clock.Now()
	c.resolveLocked(slot, outcome.Succeeded, outcome.Detail, now)

	if outcome.Step == c.cfg.FinalStep {
		if outcome.Succeeded {
			c.state = CollectorDraining
		} else {
			c.resolveLocked(c.cfg.DrainSlot, false, "final step failed", now)
		}
	}

	done, completed := c.completeIfResolvedLocked()
	c.mu.Unlock()

	if completed {
		c.emit(done)
	}
	return nil
}

// NotifyResponseCaptured routes a captured response to its slot. Responses
// no route matches are ignored.
func (c *Collector) NotifyResponseCaptured(resp domain.CapturedResponse) error {
	routed, ok := c.router.Route(resp)
	if !ok {
		return nil
	}

	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		c.logger.Debug("response without active visit", "slot", routed.Slot, "url", resp.URL)
		return domain.ErrNoActiveVisit
	}

	now := c.clock.Now()
	c.resolveLocked(routed.Slot, routed.Succeeded, routed.Detail, now)

	var (
		done      domain.VisitAggregate
		completed bool
	)
	if c.state == CollectorDraining && routed.Slot == c.cfg.DrainSlot {
		c.failPendingLocked(domain.ReasonNotCaptured, now)
		done, completed = c.completeLocked(now), true
	} else {
		done, completed = c.completeIfResolvedLocked()
	}
	c.mu.Unlock()

	if completed {
		c.emit(done)
	}
	return nil
}

// Cancel abandons the in-flight visit, if any, and emits it.
func (c *Collector) Cancel() (domain.VisitAggregate, bool) {
	c.mu.Lock()
	abandoned, ok := c.forceCompleteLocked(domain.ReasonAbandoned)
	c.state = CollectorIdle
	c.current = nil
	c.mu.Unlock()

	if ok {
		c.emit(abandoned)
	}
	return abandoned, ok
}

// Close cancels any visit and ends the completion stream.
func (c *Collector) Close() {
	c.Cancel()
	c.stopRoot()
	c.completions.Close()
}

func (c *Collector) fire(visit domain.VisitID, step domain.StepKind) {
	c.mu.Lock()
	if !c.activeLocked() || c.current.ID != visit {
		c.mu.Unlock()
		return
	}
	ctx := c.visitCtx
	trigger := c.trigger
	c.mu.Unlock()

	c.logger.Debug("step due", "visit", visit, "step", step)
	trigger(ctx, visit, step)
}

func (c *Collector) expire(visit domain.VisitID) {
	c.mu.Lock()
	if !c.activeLocked() || c.current.ID != visit {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	forced := c.failPendingLocked(domain.ReasonTimedOut, now)
	c.current.TimedOut = true
	done := c.completeLocked(now)
	c.mu.Unlock()

	c.logger.Warn("visit timed out", "visit", visit, "ref", done.Ref, "forced_slots", forced)
	c.emit(done)
}

func (c *Collector) activeLocked() bool {
	return c.current != nil && (c.state == CollectorCollecting || c.state == CollectorDraining)
}

func (c *Collector) resolveLocked(slot domain.SlotName, succeeded bool, detail string, at time.Time) {
	if !c.current.Resolve(slot, succeeded, detail, at) {
		return
	}
	if succeeded {
		recordSlotResolved(domain.SlotSucceeded)
	} else {
		recordSlotResolved(domain.SlotFailed)
	}
}

func (c *Collector) failPendingLocked(reason string, at time.Time) int {
	n := c.current.FailPending(reason, at)
	for range n {
		recordSlotResolved(domain.SlotFailed)
	}
	return n
}

func (c *Collector) completeIfResolvedLocked() (domain.VisitAggregate, bool) {
	if !c.current.IsComplete() {
		return domain.VisitAggregate{}, false
	}
	return c.completeLocked(c.clock.Now()), true
}

func (c *Collector) completeLocked(at time.Time) domain.VisitAggregate {
	c.current.CompletedAt = at
	c.state = CollectorCompleted
	if c.timers != nil {
		c.timers.Stop()
	}
	if c.stopVisit != nil {
		c.stopVisit()
	}
	return c.current.Clone()
}

func (c *Collector) forceCompleteLocked(reason string) (domain.VisitAggregate, bool) {
	if !c.activeLocked() {
		if c.timers != nil {
			c.timers.Stop()
		}
		return domain.VisitAggregate{}, false
	}
	now := c.clock.Now()
	c.failPendingLocked(reason, now)
	c.current.Abandoned = true
	return c.completeLocked(now), true
}

func (c *Collector) emit(agg domain.VisitAggregate) {
	recordVisitForced(agg)
	c.logger.Debug("collection completed",
		"visit", agg.ID,
		"ref", agg.Ref,
		"succeeded", agg.SucceededCount(),
		"failed", agg.FailedCount(),
		"abandoned", agg.Abandoned,
		"timed_out", agg.TimedOut,
	)
	c.completions.Publish(agg)
}

func unknownStep(step domain.StepKind) error {
	return fmt.Errorf("%w: %w", domain.ErrUnknownStep, domain.NewValidationError("step", fmt.Sprintf("%q is not configured", step)))
}
