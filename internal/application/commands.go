package application

import (
	"github.com/bnema/fundcrawl/internal/domain"
)

type StartPageVisitCommand struct {
	// Items to visit in order. Nil loads them from the work-item source.
	Items []domain.WorkItem
}

type StartBatchSessionCommand struct {
	ExpectedItems int
	BatchSize     int
}

type AddWorkItemCommand struct {
	OrderbookID string
	ISIN        string
	Name        string
	URL         string
}

func (c AddWorkItemCommand) WorkItem() domain.WorkItem {
	return domain.WorkItem{
		OrderbookID: c.OrderbookID,
		ISIN:        c.ISIN,
		Name:        c.Name,
		URL:         c.URL,
	}
}

type RemoveWorkItemCommand struct {
	Ref domain.ItemRef
}
