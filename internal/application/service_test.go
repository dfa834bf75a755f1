package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tomlrepo "github.com/bnema/fundcrawl/internal/adapters/repo/toml"
	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestServiceAddWorkItemSuccess(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	want := domain.WorkItem{OrderbookID: "517", ISIN: "SE0000000001", Name: "Global Index", URL: "https://x.test/fund/517"}
	repo.EXPECT().Save(mockAnyContext(), want).Return(nil)

	got, err := service.AddWorkItem(context.Background(), AddWorkItemCommand{
		OrderbookID: "517",
		ISIN:        "SE0000000001",
		Name:        "Global Index",
		URL:         "https://x.test/fund/517",
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServiceAddWorkItemRejectsInvalidItem(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	_, err := service.AddWorkItem(context.Background(), AddWorkItemCommand{OrderbookID: "517"})
	require.ErrorIs(t, err, domain.ErrValidation)

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "url", validation.Field)
}

func TestServiceAddWorkItemWrapsSaveError(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	saveErr := errors.New("disk full")
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(saveErr)

	_, err := service.AddWorkItem(context.Background(), AddWorkItemCommand{OrderbookID: "517", URL: "https://x.test/fund/517"})
	require.ErrorIs(t, err, saveErr)
	assert.Contains(t, err.Error(), "save work item")
}

func TestServiceRemoveWorkItem(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	repo.EXPECT().GetByRef(mockAnyContext(), domain.ItemRef("517")).Return(testItems[0], nil)
	repo.EXPECT().Remove(mockAnyContext(), domain.ItemRef("517")).Return(nil)

	require.NoError(t, service.RemoveWorkItem(context.Background(), RemoveWorkItemCommand{Ref: "517"}))
}

func TestServiceRemoveWorkItemNotFound(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	repo.EXPECT().GetByRef(mockAnyContext(), domain.ItemRef("999")).Return(domain.WorkItem{}, domain.ErrWorkItemNotFound)

	err := service.RemoveWorkItem(context.Background(), RemoveWorkItemCommand{Ref: "999"})
	require.ErrorIs(t, err, domain.ErrWorkItemNotFound)
}

func TestServicePreviewPlanUsesClockWhenStartZero(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	clock := mocks.NewMockClock(t)
	calculator := NewScheduleCalculator(FixedDelayProvider{Default: 10 * time.Second, Extra: 5 * time.Second}, testSteps)
	service := NewService(repo, calculator, clock)

	repo.EXPECT().List(mockAnyContext()).Return(testItems, nil)
	clock.EXPECT().Now().Return(t0)

	preview, err := service.PreviewPlan(context.Background(), PreviewPlanQuery{})
	require.NoError(t, err)

	require.Len(t, preview.Items, 2)
	assert.Equal(t, t0, preview.StartTime)
	assert.Equal(t, "Global Index", preview.Items[0].Name)
	assert.Equal(t, 25*time.Second, preview.Items[0].Duration)
	assert.Equal(t, t0.Add(35*time.Second), preview.Items[1].StartTime)
	assert.Equal(t, t0.Add(60*time.Second), preview.EndTime)
	assert.Equal(t, 60*time.Second, preview.TotalDuration)

	offsets := make([]time.Duration, 0, len(preview.Items[1].Steps))
	for _, step := range preview.Items[1].Steps {
		offsets = append(offsets, step.Offset)
	}
	assert.Equal(t, fiveSecondSteps(), offsets)
}

func TestServicePreviewPlanHonorsMinimumDelays(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	calculator := NewScheduleCalculator(FixedDelayProvider{Default: 10 * time.Second}, testSteps)
	service := NewService(repo, calculator, nil)

	repo.EXPECT().List(mockAnyContext()).Return(testItems[:1], nil)

	preview, err := service.PreviewPlan(context.Background(), PreviewPlanQuery{
		Start: t0,
		MinDelay: func(step domain.StepKind) time.Duration {
			if step == "open_fees" {
				return 3 * time.Second
			}
			return 0
		},
	})
	require.NoError(t, err)

	steps := preview.Items[0].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, 3*time.Second, steps[1].Offset-steps[0].Offset)
}

func TestServicePreviewPlanWithoutItems(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, NewScheduleCalculator(nil, testSteps), nil)

	repo.EXPECT().List(mockAnyContext()).Return(nil, nil)

	_, err := service.PreviewPlan(context.Background(), PreviewPlanQuery{Start: t0})
	require.ErrorIs(t, err, domain.ErrNoWorkAvailable)
}

func TestServiceListWorkItemsReturnsRepositoryError(t *testing.T) {
	repo := mocks.NewMockWorkItemRepository(t)
	service := NewService(repo, nil, nil)

	listErr := errors.New("list failed")
	repo.EXPECT().List(mockAnyContext()).Return(nil, listErr)

	_, err := service.ListWorkItems(context.Background())
	require.ErrorIs(t, err, listErr)
}

func TestServiceWorkItemsPersistAcrossServiceInstances(t *testing.T) {
	t.Parallel()

	itemsPath := filepath.Join(t.TempDir(), "items.toml")
	cfg := viper.New()
	cfg.Set("items.path", itemsPath)

	repo, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	first := NewService(repo, nil, nil)
	for _, item := range testItems {
		_, err := first.AddWorkItem(context.Background(), AddWorkItemCommand{
			OrderbookID: item.OrderbookID,
			ISIN:        item.ISIN,
			Name:        item.Name,
			URL:         item.URL,
		})
		require.NoError(t, err)
	}
	require.NoError(t, first.RemoveWorkItem(context.Background(), RemoveWorkItemCommand{Ref: "517"}))

	reloaded, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)
	second := NewService(reloaded, NewScheduleCalculator(nil, testSteps), nil)

	items, err := second.ListWorkItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testItems[1:], items)

	preview, err := second.PreviewPlan(context.Background(), PreviewPlanQuery{Start: t0})
	require.NoError(t, err)
	require.Len(t, preview.Items, 1)
	assert.Equal(t, domain.ItemRef("518"), preview.Items[0].Ref)
}

func fiveSecondSteps() []time.Duration {
	return []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
}

func mockAnyContext() interface{} {
	return mock.Anything
}
