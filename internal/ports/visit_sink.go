package ports

import (
	"context"

	"github.com/bnema/fundcrawl/internal/domain"
)

// VisitSink persists what a session collected. The engine never writes to a
// database itself.
type VisitSink interface {
	SaveVisit(ctx context.Context, visit domain.VisitAggregate) error
	SaveBatch(ctx context.Context, result domain.BatchResult) error
}

type VisitReader interface {
	ListVisits(ctx context.Context, limit int) ([]domain.VisitAggregate, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
