package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/fundcrawl/internal/domain"
)

var testSteps = []domain.StepKind{"expand_holdings", "open_fees", "select_chart_period"}

func fiveSeconds(domain.StepKind) time.Duration { return 5 * time.Second }

func TestCalculatePlanFixedProviderIsDeterministic(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(FixedDelayProvider{Default: 10 * time.Second}, []domain.StepKind{"open_fees"})

	plan, err := calc.CalculatePlan([]domain.ItemRef{"A", "B"}, t0, fiveSeconds)
	require.NoError(t, err)
	require.Equal(t, 2, plan.Len())

	a, b := plan.Items[0], plan.Items[1]
	assert.Equal(t, t0, a.StartTime)
	assert.Equal(t, t0.Add(5*time.Second), a.Steps[0].FireAt)
	assert.Equal(t, t0.Add(15*time.Second), a.StopTime)
	assert.Equal(t, 10*time.Second, a.InterItemDelay)
	assert.Equal(t, a.StopTime.Add(a.InterItemDelay), b.StartTime)
	assert.Equal(t, b.StartTime.Add(5*time.Second), b.Steps[0].FireAt)

	again, err := calc.CalculatePlan([]domain.ItemRef{"A", "B"}, t0, fiveSeconds)
	require.NoError(t, err)
	assert.Equal(t, plan, again)
}

func TestCalculatePlanMonotonic(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 25; seed++ {
		calc := NewScheduleCalculator(NewRandomDelayProvider(DefaultDelayRange, seed), testSteps)
		plan, err := calc.CalculatePlan([]domain.ItemRef{"1", "2", "3", "4", "5"}, t0, func(step domain.StepKind) time.Duration {
			if step == "select_chart_period" {
				return 3 * time.Second
			}
			return 0
		})
		require.NoError(t, err)

		for i, item := range plan.Items {
			prev := item.StartTime
			for _, step := range item.Steps {
				require.True(t, step.FireAt.After(prev), "seed %d item %d step %s", seed, i, step.Kind)
				prev = step.FireAt
			}
			require.False(t, item.StopTime.Before(prev))
			if i > 0 {
				before := plan.Items[i-1]
				require.False(t, item.StartTime.Before(before.StopTime.Add(before.InterItemDelay)))
			}
		}
	}
}

func TestCalculatePlanClampsNonPositiveDelays(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(NewSequenceDelayProvider(0), testSteps)
	plan, err := calc.CalculatePlan([]domain.ItemRef{"1"}, t0, nil)
	require.NoError(t, err)

	item := plan.Items[0]
	assert.Equal(t, t0.Add(time.Millisecond), item.Steps[0].FireAt)
	assert.Equal(t, t0.Add(3*time.Millisecond), item.Steps[2].FireAt)
	assert.Equal(t, t0.Add(4*time.Millisecond), item.StopTime)
}

func TestCalculatePlanValidation(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(FixedDelayProvider{Default: time.Second}, testSteps)

	plan, err := calc.CalculatePlan(nil, t0, nil)
	require.NoError(t, err)
	assert.Zero(t, plan.Len())

	_, err = calc.CalculatePlan([]domain.ItemRef{"1", "1"}, t0, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "duplicate 1")

	_, err = calc.CalculatePlan([]domain.ItemRef{" "}, t0, nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	noSteps := NewScheduleCalculator(FixedDelayProvider{Default: time.Second}, nil)
	_, err = noSteps.CalculatePlan([]domain.ItemRef{"1"}, t0, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCalculateBatchPlan(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(FixedDelayProvider{Default: 12 * time.Second, Extra: 2 * time.Second}, nil)

	plan, err := calc.CalculateBatchPlan(3, t0, nil)
	require.NoError(t, err)
	require.Equal(t, 3, plan.Len())
	assert.Equal(t, domain.BatchRef(1), plan.Items[0].Ref)
	assert.Equal(t, domain.StepLoadBatch, plan.Items[0].Steps[0].Kind)
	assert.Equal(t, t0.Add(2*time.Second), plan.Items[0].Steps[0].FireAt)
	assert.Equal(t, plan.Items[0].StopTime.Add(12*time.Second), plan.Items[1].StartTime)

	for _, expected := range []int{0, -4} {
		_, err := calc.CalculateBatchPlan(expected, t0, nil)
		require.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestRecalculateRemainingKeepsPastAndCompletedItems(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(NewRandomDelayProvider(DefaultDelayRange, 7), testSteps)
	refs := []domain.ItemRef{"1", "2", "3", "4", "5"}
	plan, err := calc.CalculatePlan(refs, t0, nil)
	require.NoError(t, err)

	base := t0.Add(3 * time.Hour)
	completed := map[domain.ItemRef]bool{"4": true}
	out := calc.RecalculateRemaining(plan, "2", base, completed)

	require.Equal(t, plan.Len(), out.Len())
	assert.Equal(t, plan.Items[0], out.Items[0])
	assert.Equal(t, plan.Items[3], out.Items[3])

	assert.Equal(t, base.Add(plan.Items[0].InterItemDelay), out.Items[1].StartTime)
	assert.Equal(t, out.Items[1].StopTime.Add(out.Items[1].InterItemDelay), out.Items[2].StartTime)
	assert.Equal(t, out.Items[2].StopTime.Add(out.Items[2].InterItemDelay), out.Items[4].StartTime)

	for i := range plan.Items {
		assert.Equal(t, plan.Items[i].TotalDuration(), out.Items[i].TotalDuration(), "item %d", i)
		assert.Equal(t, plan.Items[i].Offsets(), out.Items[i].Offsets(), "item %d", i)
		assert.Equal(t, plan.Items[i].InterItemDelay, out.Items[i].InterItemDelay, "item %d", i)
	}
}

func TestRecalculateRemainingFirstItemAnchorsAtBase(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(FixedDelayProvider{Default: 10 * time.Second}, testSteps)
	plan, err := calc.CalculatePlan([]domain.ItemRef{"1", "2"}, t0, fiveSeconds)
	require.NoError(t, err)

	base := t0.Add(time.Minute)
	out := calc.RecalculateRemaining(plan, "1", base, nil)

	assert.Equal(t, base, out.Items[0].StartTime)
	assert.Equal(t, out.Items[0].StopTime.Add(10*time.Second), out.Items[1].StartTime)
}

func TestRecalculateRemainingUnknownRefIsNoop(t *testing.T) {
	t.Parallel()

	calc := NewScheduleCalculator(FixedDelayProvider{Default: 10 * time.Second}, testSteps)
	plan, err := calc.CalculatePlan([]domain.ItemRef{"1", "2"}, t0, nil)
	require.NoError(t, err)

	out := calc.RecalculateRemaining(plan, "missing", t0.Add(time.Hour), nil)
	assert.Equal(t, plan, out)

	out.Items[0].Steps[0].FireAt = time.Time{}
	assert.NotEqual(t, plan.Items[0].Steps[0].FireAt, out.Items[0].Steps[0].FireAt)
}
