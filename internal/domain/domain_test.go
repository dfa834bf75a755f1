package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		item  WorkItem
		field string
	}{
		{name: "valid", item: WorkItem{OrderbookID: "517", URL: "https://x.test/fund/517"}},
		{name: "missing id", item: WorkItem{OrderbookID: "  ", URL: "https://x.test/fund/517"}, field: "orderbook_id"},
		{name: "missing url", item: WorkItem{OrderbookID: "517"}, field: "url"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.item.Validate()
			if tc.field == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestWorkItemRefTrimsOrderbookID(t *testing.T) {
	t.Parallel()

	items := []WorkItem{{OrderbookID: " 517 "}, {OrderbookID: "518"}}
	assert.Equal(t, ItemRef("517"), items[0].Ref())
	assert.Equal(t, []ItemRef{"517", "518"}, WorkItemRefs(items))
}

func TestScheduledPlanTiming(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	plan := ScheduledPlan{Items: []ItemSchedule{
		{Ref: "a", StartTime: t0, StopTime: t0.Add(20 * time.Second), InterItemDelay: 10 * time.Second},
		{Ref: "b", StartTime: t0.Add(30 * time.Second), StopTime: t0.Add(50 * time.Second)},
	}}

	assert.Equal(t, 2, plan.Len())
	assert.Equal(t, t0, plan.StartTime())
	assert.Equal(t, t0.Add(50*time.Second), plan.EndTime())
	assert.Equal(t, 50*time.Second, plan.TotalDuration())
	assert.Equal(t, 20*time.Second, plan.Remaining(t0.Add(30*time.Second)))
	assert.Zero(t, plan.Remaining(t0.Add(time.Hour)))

	i, ok := plan.Find("b")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = plan.Find("c")
	assert.False(t, ok)

	assert.Zero(t, ScheduledPlan{}.Remaining(t0))
	assert.True(t, ScheduledPlan{}.EndTime().IsZero())
}

func TestScheduledPlanCloneDoesNotShareSteps(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	plan := ScheduledPlan{Items: []ItemSchedule{{
		Ref:       "a",
		StartTime: t0,
		StopTime:  t0.Add(10 * time.Second),
		Steps:     []ScheduledStep{{Kind: "open_fees", FireAt: t0.Add(5 * time.Second)}},
	}}}

	clone := plan.Clone()
	clone.Items[0].Steps[0].FireAt = t0

	assert.Equal(t, t0.Add(5*time.Second), plan.Items[0].Steps[0].FireAt)
	assert.Equal(t, []time.Duration{5 * time.Second}, plan.Items[0].Offsets())
}

func TestEventProjectionHelpers(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	meta := NewEventMeta("s", at)

	ref, when, ok := Scheduled(BatchScheduled{EventMeta: meta, Ref: BatchRef(2), ScheduledAt: at})
	require.True(t, ok)
	assert.Equal(t, ItemRef("batch-0002"), ref)
	assert.Equal(t, at, when)

	_, _, ok = Scheduled(SessionStarted{EventMeta: meta})
	assert.False(t, ok)

	ref, ok = Settled(ItemVisitFailed{EventMeta: meta, Ref: "517", Reason: "skipped"})
	require.True(t, ok)
	assert.Equal(t, ItemRef("517"), ref)

	ref, ok = Started(ItemVisitStarted{EventMeta: meta, Ref: "518"})
	require.True(t, ok)
	assert.Equal(t, ItemRef("518"), ref)

	assert.True(t, IsCompletion(BatchCompleted{EventMeta: meta}))
	assert.False(t, IsCompletion(BatchFailed{EventMeta: meta}))
	assert.True(t, IsSessionEnd(SessionCancelled{EventMeta: meta}))
	assert.False(t, IsSessionEnd(DelayCompleted{EventMeta: meta}))
}

func TestIdentifiersAreUnique(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, NewSessionID(), NewSessionID())
	assert.NotEqual(t, NewEventID(), NewEventID())
	assert.NotEqual(t, NewVisitID(), NewVisitID())
	assert.True(t, SessionID(" ").Empty())
}
