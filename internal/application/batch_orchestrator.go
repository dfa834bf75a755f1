package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

// BatchDeps wires the batch variant. Automation only supplies the minimum
// delay of a batch load and may be nil.
type BatchDeps struct {
	EngineDeps
	Automation ports.Automation
	Sink       ports.VisitSink
}

// BatchOrchestrator loads a paginated listing one batch at a time with a
// randomized pause between batches.
type BatchOrchestrator struct {
	*sessionEngine

	automation ports.Automation
	sink       ports.VisitSink
}

func NewBatchOrchestrator(deps BatchDeps) *BatchOrchestrator {
	if deps.Calculator == nil {
		deps.Calculator = NewScheduleCalculator(nil, []domain.StepKind{domain.StepLoadBatch})
	}

	o := &BatchOrchestrator{
		sessionEngine: newSessionEngine(domain.VariantBatch, deps.EngineDeps, "batch"),
		automation:    deps.Automation,
		sink:          deps.Sink,
	}
	o.startItem = o.startBatchLocked

	return o
}

// BatchCount is the number of batches needed for expectedItems.
func BatchCount(expectedItems, batchSize int) int {
	if expectedItems <= 0 || batchSize <= 0 {
		return 0
	}
	return (expectedItems + batchSize - 1) / batchSize
}

func (o *BatchOrchestrator) StartSession(_ context.Context, cmd StartBatchSessionCommand) (domain.SessionID, error) {
	if cmd.ExpectedItems < 0 {
		return "", domain.NewValidationError("expected_items", "must not be negative")
	}
	if cmd.ExpectedItems == 0 {
		return "", domain.ErrNoWorkAvailable
	}
	if cmd.BatchSize <= 0 {
		return "", domain.NewValidationError("batch_size", "must be positive")
	}

	var fx effects

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return "", domain.ErrSessionActive
	}

	now := o.clock.Now()
	plan, err := o.calculator.CalculateBatchPlan(BatchCount(cmd.ExpectedItems, cmd.BatchSize), now, o.minDelay)
	if err != nil {
		o.mu.Unlock()
		return "", fmt.Errorf("calculate batch plan: %w", err)
	}

	id := o.beginLocked(&fx, plan, now)
	for i, item := range plan.Items {
		o.appendLocked(&fx, domain.BatchScheduled{
			EventMeta:   o.meta(),
			Ref:         item.Ref,
			Batch:       i + 1,
			ScheduledAt: item.StartTime,
		})
	}
	o.startBatchLocked(&fx, 0)
	recordSessionStarted(domain.VariantBatch)
	o.logger.Info("session started", "session", id, "batches", plan.Len(), "batch_size", cmd.BatchSize)
	o.unlockAndFlush(&fx)

	return id, nil
}

// NotifyBatchLoaded records a loaded batch. hasMore=false ends the session
// early even if fewer batches than expected were loaded.
func (o *BatchOrchestrator) NotifyBatchLoaded(batch, itemsLoaded int, hasMore bool) error {
	if itemsLoaded < 0 {
		return domain.NewValidationError("items_loaded", "must not be negative")
	}

	var fx effects

	o.mu.Lock()
	ref, err := o.currentLocked(batch)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	o.appendLocked(&fx, domain.BatchCompleted{
		EventMeta:   o.meta(),
		Ref:         ref,
		Batch:       batch,
		ItemsLoaded: itemsLoaded,
	})
	o.saveLocked(&fx, domain.BatchResult{Batch: batch, ItemsLoaded: itemsLoaded})
	fx.later(func() { recordItemSettled(domain.VariantBatch, true) })

	if hasMore {
		o.advanceLocked(&fx)
	} else {
		o.completeLocked(&fx)
	}
	o.unlockAndFlush(&fx)
	return nil
}

// NotifyBatchFailed records a failed batch and proceeds with the next one.
func (o *BatchOrchestrator) NotifyBatchFailed(batch int, reason string) error {
	var fx effects

	o.mu.Lock()
	ref, err := o.currentLocked(batch)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.failBatchLocked(&fx, ref, batch, reason)
	o.advanceLocked(&fx)
	o.unlockAndFlush(&fx)
	return nil
}

// AdvanceToNextItem skips the remaining wait, or the current batch when no
// countdown is running.
func (o *BatchOrchestrator) AdvanceToNextItem() error {
	var fx effects

	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		o.logger.Warn("advance without active session")
		return domain.ErrSessionNotActive
	}
	if o.countdown == nil {
		ref := o.plan.Items[o.index].Ref
		if !o.store.GetSettledRefs(o.sessionID)[ref] {
			o.failBatchLocked(&fx, ref, o.index+1, "skipped")
		}
	}
	o.skipLocked(&fx)
	o.unlockAndFlush(&fx)
	return nil
}

func (o *BatchOrchestrator) CancelSession(reason string) error {
	var fx effects

	o.mu.Lock()
	if !o.cancelLocked(&fx, reason) {
		o.mu.Unlock()
		o.logger.Warn("cancel without active session", "reason", reason)
		return nil
	}
	o.unlockAndFlush(&fx)
	return nil
}

func (o *BatchOrchestrator) Close() {
	o.sessionEngine.close()
}

func (o *BatchOrchestrator) minDelay(step domain.StepKind) time.Duration {
	if o.automation == nil {
		return 0
	}
	return o.automation.ResolveMinimumDelay(step)
}

func (o *BatchOrchestrator) currentLocked(batch int) (domain.ItemRef, error) {
	if !o.active {
		return "", domain.ErrSessionNotActive
	}
	if o.countdown != nil || batch != o.index+1 {
		return "", fmt.Errorf("%w: batch %d, current is %d", domain.ErrUnexpectedItem, batch, o.index+1)
	}
	return o.plan.Items[o.index].Ref, nil
}

func (o *BatchOrchestrator) startBatchLocked(fx *effects, i int) {
	o.index = i
	ref := o.plan.Items[i].Ref
	batch := i + 1

	o.appendLocked(fx, domain.BatchStarted{EventMeta: o.meta(), Ref: ref, Batch: batch})
	o.intentLocked(fx, domain.Intent{Kind: domain.IntentLoadBatch, Ref: ref, Batch: batch})
}

func (o *BatchOrchestrator) failBatchLocked(fx *effects, ref domain.ItemRef, batch int, reason string) {
	o.appendLocked(fx, domain.BatchFailed{EventMeta: o.meta(), Ref: ref, Batch: batch, Reason: reason})
	o.saveLocked(fx, domain.BatchResult{Batch: batch, Failed: true, Reason: reason})
	fx.later(func() { recordItemSettled(domain.VariantBatch, false) })
	o.logger.Warn("batch failed", "session", o.sessionID, "batch", batch, "reason", reason)
}

// saveLocked hands the result to the sink once the lock is released.
func (o *BatchOrchestrator) saveLocked(fx *effects, result domain.BatchResult) {
	if o.sink == nil {
		return
	}
	result.SessionID = o.sessionID
	result.CompletedAt = o.clock.Now()

	fx.later(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.sink.SaveBatch(ctx, result); err != nil {
			o.logger.Warn("save batch", "batch", result.Batch, "error", err)
		}
	})
}
