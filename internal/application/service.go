package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

// Service manages the work-item list and previews plans for it.
type Service struct {
	repo       ports.WorkItemRepository
	calculator *ScheduleCalculator
	clock      ports.Clock
}

func NewService(repo ports.WorkItemRepository, calculator *ScheduleCalculator, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		repo:       repo,
		calculator: calculator,
		clock:      clock,
	}
}

// AddWorkItem inserts the item or replaces the one with the same order-book
// id.
func (s *Service) AddWorkItem(ctx context.Context, cmd AddWorkItemCommand) (domain.WorkItem, error) {
	item := cmd.WorkItem()
	if err := item.Validate(); err != nil {
		return domain.WorkItem{}, err
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return domain.WorkItem{}, fmt.Errorf("save work item: %w", err)
	}

	return item, nil
}

func (s *Service) RemoveWorkItem(ctx context.Context, cmd RemoveWorkItemCommand) error {
	if _, err := s.repo.GetByRef(ctx, cmd.Ref); err != nil {
		return fmt.Errorf("get work item by ref: %w", err)
	}

	if err := s.repo.Remove(ctx, cmd.Ref); err != nil {
		return fmt.Errorf("remove work item: %w", err)
	}

	return nil
}

func (s *Service) ListWorkItems(ctx context.Context) ([]domain.WorkItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}

	return items, nil
}

// PreviewPlan computes the plan a page-visit session would follow for the
// stored items, without starting anything.
func (s *Service) PreviewPlan(ctx context.Context, query PreviewPlanQuery) (PlanPreview, error) {
	if s.calculator == nil {
		return PlanPreview{}, errors.New("preview plan: no schedule calculator configured")
	}

	items, err := s.ListWorkItems(ctx)
	if err != nil {
		return PlanPreview{}, err
	}
	if len(items) == 0 {
		return PlanPreview{}, domain.ErrNoWorkAvailable
	}

	start := query.Start
	if start.IsZero() {
		start = s.clock.Now()
	}

	plan, err := s.calculator.CalculatePlan(domain.WorkItemRefs(items), start, query.MinDelay)
	if err != nil {
		return PlanPreview{}, fmt.Errorf("calculate plan: %w", err)
	}

	return planPreview(plan, items), nil
}
