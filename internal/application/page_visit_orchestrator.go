package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

const interactionFailed = "interaction not performed"

// PageVisitDeps wires the page-visit variant. Source and Sink are optional.
type PageVisitDeps struct {
	EngineDeps
	Collector  *Collector
	Automation ports.Automation
	Source     ports.WorkItemSource
	Sink       ports.VisitSink
}

// PageVisitOrchestrator visits one work item at a time: navigate, run the
// scheduled interactions through the collector, wait out the inter-item
// delay, then move on.
type PageVisitOrchestrator struct {
	*sessionEngine

	collector  *Collector
	automation ports.Automation
	source     ports.WorkItemSource
	sink       ports.VisitSink

	items map[domain.ItemRef]domain.WorkItem

	stopConsumer func()
	consumerDone chan struct{}
	closeOnce    sync.Once
}

func NewPageVisitOrchestrator(deps PageVisitDeps) (*PageVisitOrchestrator, error) {
	if deps.Collector == nil {
		return nil, errors.New("page visit orchestrator requires a collector")
	}
	if deps.Automation == nil {
		return nil, errors.New("page visit orchestrator requires an automation driver")
	}
	if deps.Calculator == nil {
		deps.Calculator = NewScheduleCalculator(nil, deps.Collector.cfg.Steps)
	}

	o := &PageVisitOrchestrator{
		sessionEngine: newSessionEngine(domain.VariantPageVisit, deps.EngineDeps, "page_visit"),
		collector:     deps.Collector,
		automation:    deps.Automation,
		source:        deps.Source,
		sink:          deps.Sink,
		consumerDone:  make(chan struct{}),
	}
	o.startItem = o.startItemLocked
	o.collector.SetTrigger(o.triggerStep)

	completions, stop := o.collector.Completions()
	o.stopConsumer = stop
	go o.consume(completions)

	return o, nil
}

// StartSession schedules every work item and navigates to the first one.
// Nil Items loads the list from the configured source.
func (o *PageVisitOrchestrator) StartSession(ctx context.Context, cmd StartPageVisitCommand) (domain.SessionID, error) {
	if o.isActive() {
		return "", domain.ErrSessionActive
	}

	items := cmd.Items
	if items == nil && o.source != nil {
		listed, err := o.source.List(ctx)
		if err != nil {
			return "", fmt.Errorf("list work items: %w", err)
		}
		items = listed
	}
	if len(items) == 0 {
		return "", domain.ErrNoWorkAvailable
	}
	if err := domain.ValidateWorkItems(items); err != nil {
		return "", err
	}

	var fx effects

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return "", domain.ErrSessionActive
	}

	now := o.clock.Now()
	plan, err := o.calculator.CalculatePlan(domain.WorkItemRefs(items), now, o.automation.ResolveMinimumDelay)
	if err != nil {
		o.mu.Unlock()
		return "", fmt.Errorf("calculate plan: %w", err)
	}

	o.items = make(map[domain.ItemRef]domain.WorkItem, len(items))
	for _, item := range items {
		o.items[item.Ref()] = item
	}

	id := o.beginLocked(&fx, plan, now)
	for i, item := range plan.Items {
		o.appendLocked(&fx, domain.ItemScheduled{
			EventMeta:   o.meta(),
			Ref:         item.Ref,
			Sequence:    i,
			ScheduledAt: item.StartTime,
		})
	}
	o.startItemLocked(&fx, 0)
	recordSessionStarted(domain.VariantPageVisit)
	o.logger.Info("session started", "session", id, "items", plan.Len(), "estimated", plan.TotalDuration())
	o.unlockAndFlush(&fx)

	return id, nil
}

// NotifyNavigationCompleted starts collecting for the current item once its
// page has loaded. A second report for the same page is rejected.
func (o *PageVisitOrchestrator) NotifyNavigationCompleted(ref domain.ItemRef) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	item, err := o.currentLocked(ref)
	if err != nil {
		return err
	}
	if snap, ok := o.collector.Snapshot(); ok && snap.SessionID == o.sessionID && snap.Ref == ref {
		return fmt.Errorf("%w: %s is already being collected", domain.ErrUnexpectedItem, ref)
	}

	if _, err := o.collector.BeginCollection(o.sessionID, item); err != nil {
		return fmt.Errorf("begin collection for %s: %w", ref, err)
	}
	return nil
}

// NotifyNavigationFailed records the current item as failed and moves on.
// A visit already collecting for the item is abandoned with it.
func (o *PageVisitOrchestrator) NotifyNavigationFailed(ref domain.ItemRef, reason string) error {
	var fx effects

	o.mu.Lock()
	if _, err := o.currentLocked(ref); err != nil {
		o.mu.Unlock()
		return err
	}
	o.collector.Cancel()
	o.failCurrentLocked(&fx, ref, reason)
	o.advanceLocked(&fx)
	o.unlockAndFlush(&fx)
	return nil
}

// AdvanceToNextItem skips the remaining wait, or the current item when no
// countdown is running.
func (o *PageVisitOrchestrator) AdvanceToNextItem() error {
	var fx effects

	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		o.logger.Warn("advance without active session")
		return domain.ErrSessionNotActive
	}
	if o.countdown == nil {
		o.skipCurrentLocked(&fx)
	}
	o.skipLocked(&fx)
	o.unlockAndFlush(&fx)
	return nil
}

// CancelSession ends the active session. Cancelling when nothing is active is
// a logged no-op.
func (o *PageVisitOrchestrator) CancelSession(reason string) error {
	var fx effects

	o.mu.Lock()
	if !o.cancelLocked(&fx, reason) {
		o.mu.Unlock()
		o.logger.Warn("cancel without active session", "reason", reason)
		return nil
	}
	o.collector.Cancel()
	o.unlockAndFlush(&fx)
	return nil
}

// NotifyResponseCaptured forwards a captured HTTP response to the collector.
func (o *PageVisitOrchestrator) NotifyResponseCaptured(resp domain.CapturedResponse) error {
	return o.collector.NotifyResponseCaptured(resp)
}

func (o *PageVisitOrchestrator) Collector() *Collector {
	return o.collector
}

// Close stops the completion consumer and ends every stream. The active
// session, if any, is left as is.
func (o *PageVisitOrchestrator) Close() {
	o.closeOnce.Do(func() {
		o.stopConsumer()
		<-o.consumerDone
		o.collector.Close()
		o.sessionEngine.close()
	})
}

func (o *PageVisitOrchestrator) currentLocked(ref domain.ItemRef) (domain.ItemSchedule, error) {
	if !o.active {
		return domain.ItemSchedule{}, domain.ErrSessionNotActive
	}
	if o.countdown != nil {
		return domain.ItemSchedule{}, fmt.Errorf("%w: %s is still waiting", domain.ErrUnexpectedItem, ref)
	}
	item := o.plan.Items[o.index]
	if item.Ref != ref {
		return domain.ItemSchedule{}, fmt.Errorf("%w: got %s, current is %s", domain.ErrUnexpectedItem, ref, item.Ref)
	}
	return item, nil
}

func (o *PageVisitOrchestrator) startItemLocked(fx *effects, i int) {
	o.index = i
	item := o.plan.Items[i]
	url := o.items[item.Ref].URL

	o.appendLocked(fx, domain.ItemVisitStarted{
		EventMeta: o.meta(),
		Ref:       item.Ref,
		Index:     i,
		URL:       url,
	})
	o.intentLocked(fx, domain.Intent{Kind: domain.IntentNavigate, Ref: item.Ref, URL: url})
}

// skipCurrentLocked settles the current item before a skip: an in-flight
// visit is abandoned and recorded, an item still loading is failed.
func (o *PageVisitOrchestrator) skipCurrentLocked(fx *effects) {
	ref := o.plan.Items[o.index].Ref
	if o.store.GetSettledRefs(o.sessionID)[ref] {
		return
	}

	if snap, ok := o.collector.Snapshot(); ok && snap.SessionID == o.sessionID && snap.Ref == ref && snap.IsComplete() {
		o.recordVisitLocked(fx, snap)
		return
	}
	if agg, ok := o.collector.Cancel(); ok && agg.Ref == ref {
		o.recordVisitLocked(fx, agg)
		return
	}
	o.failCurrentLocked(fx, ref, "skipped")
}

func (o *PageVisitOrchestrator) recordVisitLocked(fx *effects, agg domain.VisitAggregate) {
	o.appendLocked(fx, domain.ItemVisitCompleted{
		EventMeta: o.meta(),
		Ref:       agg.Ref,
		VisitID:   agg.ID,
		Succeeded: agg.SucceededCount(),
		Failed:    agg.FailedCount(),
		Abandoned: agg.Abandoned,
		TimedOut:  agg.TimedOut,
	})
	fx.later(func() { recordItemSettled(domain.VariantPageVisit, true) })
}

func (o *PageVisitOrchestrator) failCurrentLocked(fx *effects, ref domain.ItemRef, reason string) {
	o.appendLocked(fx, domain.ItemVisitFailed{EventMeta: o.meta(), Ref: ref, Reason: reason})
	fx.later(func() { recordItemSettled(domain.VariantPageVisit, false) })
	o.logger.Warn("item failed", "session", o.sessionID, "ref", ref, "reason", reason)
}

// triggerStep runs when a scheduled interaction falls due. The interaction
// itself runs off the timer goroutine and reports back as a step outcome.
func (o *PageVisitOrchestrator) triggerStep(ctx context.Context, visit domain.VisitID, step domain.StepKind) {
	var fx effects

	o.mu.Lock()
	snap, ok := o.collector.Snapshot()
	if !o.active || o.countdown != nil || !ok || snap.ID != visit {
		o.mu.Unlock()
		return
	}
	o.intentLocked(&fx, domain.Intent{Kind: domain.IntentInteract, Ref: snap.Ref, Step: step, Visit: visit})
	o.unlockAndFlush(&fx)

	go func() {
		ok, err := o.automation.ExecuteInteraction(ctx, step)
		outcome := domain.StepOutcome{Visit: visit, Step: step, Succeeded: ok && err == nil}
		switch {
		case err != nil:
			outcome.Detail = err.Error()
		case !ok:
			outcome.Detail = interactionFailed
		}

		if err := o.collector.NotifyStepOutcome(outcome); err != nil && !errors.Is(err, domain.ErrNoActiveVisit) {
			o.logger.Warn("report step outcome", "step", step, "error", err)
		}
	}()
}

func (o *PageVisitOrchestrator) consume(completions <-chan domain.VisitAggregate) {
	defer close(o.consumerDone)
	for agg := range completions {
		o.handleCompletion(agg)
	}
}

// handleCompletion persists every emitted aggregate, abandoned ones included,
// since their resolved slots are still data. It is recorded as the item's
// outcome only if nothing settled the item first.
func (o *PageVisitOrchestrator) handleCompletion(agg domain.VisitAggregate) {
	if o.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := o.sink.SaveVisit(ctx, agg); err != nil {
			o.logger.Warn("save visit", "visit", agg.ID, "ref", agg.Ref, "error", err)
		}
		cancel()
	}

	var fx effects

	o.mu.Lock()
	if !o.active || agg.SessionID != o.sessionID {
		o.mu.Unlock()
		return
	}

	// a skip or a failed navigation may already have settled the item
	if o.store.GetSettledRefs(o.sessionID)[agg.Ref] {
		o.mu.Unlock()
		return
	}
	o.recordVisitLocked(&fx, agg)

	if o.countdown == nil && o.plan.Items[o.index].Ref == agg.Ref {
		o.advanceLocked(&fx)
	}
	o.unlockAndFlush(&fx)
}
