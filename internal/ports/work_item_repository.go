package ports

import (
	"context"

	"github.com/bnema/fundcrawl/internal/domain"
)

type WorkItemSource interface {
	List(ctx context.Context) ([]domain.WorkItem, error)
}

type WorkItemRepository interface {
	WorkItemSource
	GetByRef(ctx context.Context, ref domain.ItemRef) (domain.WorkItem, error)
	Save(ctx context.Context, item domain.WorkItem) error
	Remove(ctx context.Context, ref domain.ItemRef) error
}
