package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

const minStepDelay = time.Millisecond

// MinDelayFunc returns the lower bound for a step kind.
type MinDelayFunc func(domain.StepKind) time.Duration

// ScheduleCalculator turns work items into a fully pre-computed timing plan.
// It performs no I/O; all randomness comes from the injected provider.
type ScheduleCalculator struct {
	delays ports.DelayProvider
	steps  []domain.StepKind
}

func NewScheduleCalculator(delays ports.DelayProvider, steps []domain.StepKind) *ScheduleCalculator {
	if delays == nil {
		delays = NewRandomDelayProvider(DefaultDelayRange, uint64(time.Now().UnixNano()))
	}

	return &ScheduleCalculator{
		delays: delays,
		steps:  append([]domain.StepKind(nil), steps...),
	}
}

func (c *ScheduleCalculator) Steps() []domain.StepKind {
	return append([]domain.StepKind(nil), c.steps...)
}

// CalculatePlan schedules every step of every item in order. Each step fires
// at the item start plus the cumulative drawn delay; a safety margin closes
// the item and an inter-item gap separates it from the next.
func (c *ScheduleCalculator) CalculatePlan(items []domain.ItemRef, start time.Time, minDelay MinDelayFunc) (domain.ScheduledPlan, error) {
	if err := c.validate(items, c.steps); err != nil {
		return domain.ScheduledPlan{}, err
	}

	return c.build(items, c.steps, start, minDelay), nil
}

// CalculateBatchPlan schedules expectedBatches batches with a single load step
// each.
func (c *ScheduleCalculator) CalculateBatchPlan(expectedBatches int, start time.Time, minDelay MinDelayFunc) (domain.ScheduledPlan, error) {
	if expectedBatches <= 0 {
		return domain.ScheduledPlan{}, domain.NewValidationError("expected_batches", "must be positive")
	}

	refs := make([]domain.ItemRef, 0, expectedBatches)
	for batch := 1; batch <= expectedBatches; batch++ {
		refs = append(refs, domain.BatchRef(batch))
	}

	steps := []domain.StepKind{domain.StepLoadBatch}
	if err := c.validate(refs, steps); err != nil {
		return domain.ScheduledPlan{}, err
	}

	return c.build(refs, steps, start, minDelay), nil
}

func (c *ScheduleCalculator) validate(items []domain.ItemRef, steps []domain.StepKind) error {
	if len(items) == 0 {
		return nil
	}
	if len(steps) == 0 {
		return domain.NewValidationError("steps", "at least one step kind is required")
	}

	seen := make(map[domain.ItemRef]struct{}, len(items))
	for i, ref := range items {
		if strings.TrimSpace(string(ref)) == "" {
			return domain.NewValidationError("items", fmt.Sprintf("item %d has an empty reference", i))
		}
		if _, ok := seen[ref]; ok {
			return domain.NewValidationError("items", fmt.Sprintf("duplicate %s", ref))
		}
		seen[ref] = struct{}{}
	}

	return nil
}

func (c *ScheduleCalculator) build(items []domain.ItemRef, steps []domain.StepKind, start time.Time, minDelay MinDelayFunc) domain.ScheduledPlan {
	if minDelay == nil {
		minDelay = func(domain.StepKind) time.Duration { return 0 }
	}

	plan := domain.ScheduledPlan{Items: make([]domain.ItemSchedule, 0, len(items))}
	current := start
	for _, ref := range items {
		item := domain.ItemSchedule{
			Ref:       ref,
			StartTime: current,
			Steps:     make([]domain.ScheduledStep, 0, len(steps)),
		}

		var cumulative time.Duration
		for _, step := range steps {
			cumulative += clampDelay(c.delays.NextDelayAtLeast(minDelay(step)))
			item.Steps = append(item.Steps, domain.ScheduledStep{Kind: step, FireAt: current.Add(cumulative)})
		}

		cumulative += clampDelay(c.delays.NextDelay())
		item.StopTime = current.Add(cumulative)
		item.InterItemDelay = clampDelay(c.delays.NextDelay())

		plan.Items = append(plan.Items, item)
		current = item.StopTime.Add(item.InterItemDelay)
	}

	return plan
}

// RecalculateRemaining re-anchors every not-yet-completed item from `from`
// onward to base, keeping each item's duration and inter-item gap. Items
// before `from` and completed items are copied unchanged. An unknown `from`
// returns an unchanged copy.
func (c *ScheduleCalculator) RecalculateRemaining(plan domain.ScheduledPlan, from domain.ItemRef, base time.Time, completed map[domain.ItemRef]bool) domain.ScheduledPlan {
	out := plan.Clone()

	idx, ok := out.Find(from)
	if !ok {
		return out
	}

	var (
		anchored bool
		prev     domain.ItemSchedule
	)
	for i := idx; i < len(out.Items); i++ {
		item := out.Items[i]
		if completed[item.Ref] {
			continue
		}

		var newStart time.Time
		switch {
		case anchored:
			newStart = prev.StopTime.Add(prev.InterItemDelay)
		case i > 0:
			newStart = base.Add(out.Items[i-1].InterItemDelay)
		default:
			newStart = base
		}

		out.Items[i] = item.Shift(newStart.Sub(item.StartTime))
		prev = out.Items[i]
		anchored = true
	}

	return out
}

func clampDelay(d time.Duration) time.Duration {
	if d < minStepDelay {
		return minStepDelay
	}
	return d
}
