package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/logging"
	"github.com/bnema/fundcrawl/internal/ports"
)

const countdownInterval = time.Second

// EngineDeps are the collaborators shared by both orchestrator variants.
type EngineDeps struct {
	Store      *EventStore
	Clock      ports.Clock
	Scheduler  ports.Scheduler
	Calculator *ScheduleCalculator
	Publisher  ports.EventPublisher
	Logger     *slog.Logger
}

// effects collects what a locked mutation wants to tell the outside world.
// See unlockAndFlush for the order they are delivered in.
type effects struct {
	events  []domain.Event
	intents []domain.Intent
	ticks   []domain.CountdownTick
	after   []func()
}

func (fx *effects) later(fn func()) {
	fx.after = append(fx.after, fn)
}

// sessionEngine is the lifecycle both variants share: Inactive, Active, then
// Completed or Cancelled. The variant supplies how one item or batch starts.
type sessionEngine struct {
	variant    domain.SessionVariant
	store      *EventStore
	clock      ports.Clock
	scheduler  ports.Scheduler
	calculator *ScheduleCalculator
	publisher  ports.EventPublisher
	logger     *slog.Logger

	states  *Stream[domain.SessionState]
	events  *Stream[domain.Event]
	intents *Stream[domain.Intent]
	ticks   *Stream[domain.CountdownTick]

	// startItem issues the work for plan index i. Called with mu held.
	startItem func(fx *effects, i int)

	// flushMu is taken before mu is released, so publisher calls and after
	// hooks run in the order their mutations appended.
	flushMu sync.Mutex

	mu             sync.Mutex
	active         bool
	sessionID      domain.SessionID
	startedAt      time.Time
	plan           domain.ScheduledPlan
	index          int
	countdown      *TimerGroup
	countdownGen   int
	countdownRef   domain.ItemRef
	countdownUntil time.Time
}

func newSessionEngine(variant domain.SessionVariant, deps EngineDeps, component string) *sessionEngine {
	if deps.Store == nil {
		deps.Store = NewEventStore()
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = SystemScheduler{}
	}
	if deps.Calculator == nil {
		deps.Calculator = NewScheduleCalculator(nil, nil)
	}

	return &sessionEngine{
		variant:    variant,
		store:      deps.Store,
		clock:      deps.Clock,
		scheduler:  deps.Scheduler,
		calculator: deps.Calculator,
		publisher:  deps.Publisher,
		logger:     logging.Component(deps.Logger, component),
		states:     NewStream[domain.SessionState](DropOldest(16)),
		events:     NewStream[domain.Event](DropOldest(256)),
		intents:    NewStream[domain.Intent](Unbounded()),
		ticks:      NewStream[domain.CountdownTick](DropOldest(4)),
	}
}

// States streams a fresh projection after every change. Slow readers lose
// the oldest snapshots.
func (e *sessionEngine) States() (<-chan domain.SessionState, func()) {
	return e.states.Subscribe()
}

// Events streams every appended domain event. Slow readers lose the oldest
// events; the store keeps all of them.
func (e *sessionEngine) Events() (<-chan domain.Event, func()) {
	return e.events.Subscribe()
}

// Intents streams the instructions for the automation layer. Nothing is
// dropped.
func (e *sessionEngine) Intents() (<-chan domain.Intent, func()) {
	return e.intents.Subscribe()
}

// Ticks streams the once-per-second countdown while waiting for the next
// item.
func (e *sessionEngine) Ticks() (<-chan domain.CountdownTick, func()) {
	return e.ticks.Subscribe()
}

func (e *sessionEngine) Store() *EventStore {
	return e.store
}

func (e *sessionEngine) Plan() domain.ScheduledPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan.Clone()
}

// State projects the current session from the event store plus the live
// countdown.
func (e *sessionEngine) State() domain.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *sessionEngine) stateLocked() domain.SessionState {
	now := e.clock.Now()
	id := e.sessionID
	state := domain.SessionState{
		SessionID:    id,
		Variant:      e.variant,
		CurrentIndex: e.index,
		TotalItems:   e.plan.Len(),
		StartedAt:    e.startedAt,
	}
	if e.active {
		state.TimeRemaining = e.plan.Remaining(now)
		if e.countdown != nil {
			state.CountingDown = true
			state.CountdownSeconds = domain.CountdownSeconds(e.countdownUntil, now)
			state.NextRef = e.countdownRef
			state.NextAt = e.countdownUntil
		} else if next := e.index + 1; next < e.plan.Len() {
			state.NextRef = e.plan.Items[next].Ref
			state.NextAt = e.plan.Items[next].StartTime
		}
	}

	if id.Empty() {
		return state
	}

	state.Active = e.store.IsSessionActive(id)
	state.CompletedItems = e.store.GetCompletedCount(id)
	state.FailedItems = e.store.GetFailedCount(id)
	state.PendingItems = len(e.store.GetPendingScheduled(id))
	if ref, ok := e.store.GetLastStarted(id); ok {
		state.CurrentRef = ref
	}

	return state
}

func (e *sessionEngine) appendLocked(fx *effects, event domain.Event) {
	if err := e.store.Append(event); err != nil {
		e.logger.Error("append event", "kind", event.Kind(), "error", err)
		return
	}
	fx.events = append(fx.events, event)
}

func (e *sessionEngine) meta() domain.EventMeta {
	return domain.NewEventMeta(e.sessionID, e.clock.Now())
}

func (e *sessionEngine) intentLocked(fx *effects, intent domain.Intent) {
	intent.SessionID = e.sessionID
	intent.IssuedAt = e.clock.Now()
	fx.intents = append(fx.intents, intent)
}

// beginLocked resets the engine for a new session and records its start.
func (e *sessionEngine) beginLocked(fx *effects, plan domain.ScheduledPlan, now time.Time) domain.SessionID {
	e.active = true
	e.sessionID = domain.NewSessionID()
	e.startedAt = now
	e.plan = plan
	e.index = 0
	e.countdown = nil

	e.appendLocked(fx, domain.SessionStarted{
		EventMeta:         e.meta(),
		Variant:           e.variant,
		TotalItems:        plan.Len(),
		EstimatedDuration: plan.TotalDuration(),
	})

	return e.sessionID
}

// advanceLocked moves past the current index: the session completes when
// nothing is left, otherwise the remaining plan is re-anchored to now and the
// next item either starts or is counted down to.
func (e *sessionEngine) advanceLocked(fx *effects) {
	next := e.index + 1
	if next >= e.plan.Len() {
		e.completeLocked(fx)
		return
	}

	now := e.clock.Now()
	nextRef := e.plan.Items[next].Ref
	e.plan = e.calculator.RecalculateRemaining(e.plan, nextRef, now, e.store.GetSettledRefs(e.sessionID))

	target := e.plan.Items[next].StartTime
	if !target.After(now) {
		e.startItem(fx, next)
		return
	}

	e.startCountdownLocked(fx, nextRef, target, func(fx *effects) {
		e.startItem(fx, next)
	})
}

// skipLocked starts the next item right away, ending any countdown. The
// remaining plan is re-anchored so the skipped item starts now.
func (e *sessionEngine) skipLocked(fx *effects) {
	next := e.index + 1
	if e.stopCountdownLocked() {
		ref := e.countdownRef
		e.appendLocked(fx, domain.DelayCompleted{EventMeta: e.meta(), Ref: ref})
		if i, ok := e.plan.Find(ref); ok {
			next = i
		}
	}

	if next >= e.plan.Len() {
		e.completeLocked(fx)
		return
	}
	e.reanchorLocked(next, e.clock.Now())
	e.startItem(fx, next)
}

// reanchorLocked shifts item i and every unsettled item after it so that i
// starts at start.
func (e *sessionEngine) reanchorLocked(i int, start time.Time) {
	base := start
	if i > 0 {
		base = start.Add(-e.plan.Items[i-1].InterItemDelay)
	}
	e.plan = e.calculator.RecalculateRemaining(e.plan, e.plan.Items[i].Ref, base, e.store.GetSettledRefs(e.sessionID))
}

func (e *sessionEngine) completeLocked(fx *effects) {
	e.stopCountdownLocked()
	e.active = false

	completed := e.store.GetCompletedCount(e.sessionID)
	failed := e.store.GetFailedCount(e.sessionID)
	e.appendLocked(fx, domain.SessionCompleted{
		EventMeta:      e.meta(),
		Variant:        e.variant,
		CompletedItems: completed,
		FailedItems:    failed,
		Elapsed:        e.clock.Now().Sub(e.startedAt),
	})

	variant := e.variant
	fx.later(func() { recordSessionFinished(variant, "completed") })
	e.logger.Info("session completed", "session", e.sessionID, "completed", completed, "failed", failed)
}

// cancelLocked reports false when no session is active.
func (e *sessionEngine) cancelLocked(fx *effects, reason string) bool {
	if !e.active {
		return false
	}

	e.stopCountdownLocked()
	e.active = false

	completed := e.store.GetCompletedCount(e.sessionID)
	e.appendLocked(fx, domain.SessionCancelled{
		EventMeta:      e.meta(),
		Variant:        e.variant,
		Reason:         reason,
		CompletedItems: completed,
		TotalItems:     e.plan.Len(),
		Elapsed:        e.clock.Now().Sub(e.startedAt),
	})

	variant := e.variant
	fx.later(func() { recordSessionFinished(variant, "cancelled") })
	e.logger.Info("session cancelled", "session", e.sessionID, "reason", reason, "completed", completed)
	return true
}

func (e *sessionEngine) startCountdownLocked(fx *effects, ref domain.ItemRef, until time.Time, onDue func(fx *effects)) {
	e.stopCountdownLocked()

	now := e.clock.Now()
	e.countdownGen++
	gen := e.countdownGen
	e.countdown = NewTimerGroup(e.scheduler)
	e.countdownRef = ref
	e.countdownUntil = until

	e.appendLocked(fx, domain.DelayStarted{
		EventMeta: e.meta(),
		Ref:       ref,
		Until:     until,
		Duration:  until.Sub(now),
	})
	fx.ticks = append(fx.ticks, domain.CountdownTick{SessionID: e.sessionID, Ref: ref, Until: until, Remaining: until.Sub(now)})

	e.countdown.Every(countdownInterval, func() { e.tick(gen) })
	e.countdown.AfterFunc(until.Sub(now), func() { e.countdownDue(gen, onDue) })
}

// stopCountdownLocked reports whether a countdown was running.
func (e *sessionEngine) stopCountdownLocked() bool {
	if e.countdown == nil {
		return false
	}
	e.countdown.Stop()
	e.countdown = nil
	e.countdownGen++
	return true
}

func (e *sessionEngine) tick(gen int) {
	var fx effects

	e.mu.Lock()
	if !e.active || gen != e.countdownGen || e.countdown == nil {
		e.mu.Unlock()
		return
	}
	until := e.countdownUntil
	fx.ticks = append(fx.ticks, domain.CountdownTick{
		SessionID: e.sessionID,
		Ref:       e.countdownRef,
		Until:     until,
		Remaining: max(until.Sub(e.clock.Now()), 0),
	})
	e.unlockAndFlush(&fx)
}

func (e *sessionEngine) countdownDue(gen int, onDue func(fx *effects)) {
	var fx effects

	e.mu.Lock()
	if !e.active || gen != e.countdownGen || e.countdown == nil {
		e.mu.Unlock()
		return
	}
	ref := e.countdownRef
	e.stopCountdownLocked()
	e.appendLocked(&fx, domain.DelayCompleted{EventMeta: e.meta(), Ref: ref})
	onDue(&fx)
	e.unlockAndFlush(&fx)
}

// unlockAndFlush delivers fx and releases mu, which the caller must hold.
// Streams never block, so they are fed before mu is released. The publisher
// and after hooks run outside mu but under flushMu, and the state snapshot
// goes out last so a reader that sees a finished session also sees its
// results persisted. Observers may call back into the orchestrator.
func (e *sessionEngine) unlockAndFlush(fx *effects) {
	for _, event := range fx.events {
		e.events.Publish(event)
	}
	for _, tick := range fx.ticks {
		e.ticks.Publish(tick)
	}
	for _, intent := range fx.intents {
		recordIntent(intent.Kind)
		e.logger.Debug("intent", "kind", intent.Kind, "ref", intent.Ref, "step", intent.Step, "batch", intent.Batch)
		e.intents.Publish(intent)
	}

	var (
		state   domain.SessionState
		changed = len(fx.events) > 0 || len(fx.ticks) > 0
	)
	if changed {
		state = e.stateLocked()
	}

	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	e.mu.Unlock()

	if e.publisher != nil {
		for _, event := range fx.events {
			if err := e.publisher.Publish(context.Background(), event); err != nil {
				e.logger.Warn("publish event", "kind", event.Kind(), "error", err)
			}
		}
	}
	for _, fn := range fx.after {
		fn()
	}
	if changed {
		e.states.Publish(state)
	}
}

func (e *sessionEngine) isActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *sessionEngine) close() {
	e.mu.Lock()
	e.stopCountdownLocked()
	e.mu.Unlock()

	e.states.Close()
	e.events.Close()
	e.intents.Close()
	e.ticks.Close()
}
