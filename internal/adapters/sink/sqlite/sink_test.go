package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/fundcrawl/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openTestSink(t *testing.T) *Sink {
	t.Helper()

	sink, err := Open(filepath.Join(t.TempDir(), "visits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func visitAt(ref domain.ItemRef, completed time.Time) domain.VisitAggregate {
	agg := domain.NewVisitAggregate("session-1", ref, []domain.SlotName{"expand_holdings", "fund_guide", "chart"}, completed.Add(-30*time.Second))
	agg.Resolve("expand_holdings", true, "", completed.Add(-25*time.Second))
	agg.Resolve("fund_guide", true, `"SE0000000001"`, completed.Add(-20*time.Second))
	agg.FailPending(domain.ReasonTimedOut, completed)
	agg.TimedOut = true
	agg.CompletedAt = completed
	return agg
}

func TestSinkVisitRoundTrip(t *testing.T) {
	t.Parallel()

	sink := openTestSink(t)
	want := visitAt("517", t0.Add(1500*time.Millisecond))
	require.NoError(t, sink.SaveVisit(context.Background(), want))

	visits, err := sink.ListVisits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)

	got := visits[0]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Ref, got.Ref)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.CompletedAt.Equal(got.CompletedAt))
	assert.True(t, got.TimedOut)
	assert.False(t, got.Abandoned)

	require.Len(t, got.Slots, 3)
	assert.Equal(t, domain.SlotName("expand_holdings"), got.Slots[0].Name)
	assert.Equal(t, `"SE0000000001"`, got.Slots[1].Data)
	assert.Equal(t, domain.SlotFailed, got.Slots[2].Status)
	assert.Equal(t, domain.ReasonTimedOut, got.Slots[2].Reason)
	assert.Equal(t, 2, got.SucceededCount())
}

func TestSinkSaveVisitTwiceReplaces(t *testing.T) {
	t.Parallel()

	sink := openTestSink(t)
	visit := visitAt("517", t0)
	require.NoError(t, sink.SaveVisit(context.Background(), visit))

	visit.Abandoned = true
	require.NoError(t, sink.SaveVisit(context.Background(), visit))

	visits, err := sink.ListVisits(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.True(t, visits[0].Abandoned)
	assert.Len(t, visits[0].Slots, 3)
}

func TestSinkListVisitsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	sink := openTestSink(t)
	for i, ref := range []domain.ItemRef{"1", "2", "3"} {
		require.NoError(t, sink.SaveVisit(context.Background(), visitAt(ref, t0.Add(time.Duration(i)*time.Minute))))
	}

	visits, err := sink.ListVisits(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, domain.ItemRef("3"), visits[0].Ref)
	assert.Equal(t, domain.ItemRef("2"), visits[1].Ref)

	all, err := sink.ListVisits(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSinkBatches(t *testing.T) {
	t.Parallel()

	sink := openTestSink(t)
	require.NoError(t, sink.SaveBatch(context.Background(), domain.BatchResult{SessionID: "s", Batch: 2, Failed: true, Reason: "timeout", CompletedAt: t0}))
	require.NoError(t, sink.SaveBatch(context.Background(), domain.BatchResult{SessionID: "s", Batch: 1, ItemsLoaded: 20, CompletedAt: t0}))
	require.NoError(t, sink.SaveBatch(context.Background(), domain.BatchResult{SessionID: "other", Batch: 1, ItemsLoaded: 5, CompletedAt: t0}))
	require.NoError(t, sink.SaveBatch(context.Background(), domain.BatchResult{SessionID: "s", Batch: 2, ItemsLoaded: 13, CompletedAt: t0.Add(time.Minute)}))

	results, err := sink.ListBatches(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Batch)
	assert.Equal(t, 20, results[0].ItemsLoaded)
	assert.Equal(t, 13, results[1].ItemsLoaded)
	assert.False(t, results[1].Failed)
	assert.True(t, t0.Add(time.Minute).Equal(results[1].CompletedAt))
}

func TestSinkCreatesPrivateFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "visits.db")
	sink, err := Open(path)
	require.NoError(t, err)
	defer sink.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSinkInMemory(t *testing.T) {
	t.Parallel()

	sink, err := Open(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.SaveVisit(context.Background(), visitAt("517", t0)))
	visits, err := sink.ListVisits(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	require.Error(t, err)
}
