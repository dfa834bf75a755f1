package domain

import "strings"

// WorkItem is a fund to visit, keyed by its order-book id.
type WorkItem struct {
	OrderbookID string
	ISIN        string
	Name        string
	URL         string
}

func (w WorkItem) Ref() ItemRef {
	return ItemRef(strings.TrimSpace(w.OrderbookID))
}

func (w WorkItem) Validate() error {
	if strings.TrimSpace(w.OrderbookID) == "" {
		return NewValidationError("orderbook_id", "is required")
	}
	if strings.TrimSpace(w.URL) == "" {
		return NewValidationError("url", "is required for "+w.OrderbookID)
	}

	return nil
}

// ValidateWorkItems checks every item and rejects duplicate references.
func ValidateWorkItems(items []WorkItem) error {
	seen := make(map[ItemRef]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, ok := seen[item.Ref()]; ok {
			return NewValidationError("orderbook_id", "duplicate "+string(item.Ref()))
		}
		seen[item.Ref()] = struct{}{}
	}

	return nil
}

func WorkItemRefs(items []WorkItem) []ItemRef {
	refs := make([]ItemRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, item.Ref())
	}
	return refs
}
