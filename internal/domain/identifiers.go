package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type SessionID string

type EventID string

type VisitID string

// ItemRef identifies a scheduled unit: a fund order-book id in the page-visit
// variant, a batch reference in the batch variant.
type ItemRef string

type StepKind string

type SlotName string

type SessionVariant string

const (
	VariantBatch     SessionVariant = "batch"
	VariantPageVisit SessionVariant = "page_visit"
)

const StepLoadBatch StepKind = "load_batch"

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func NewEventID() EventID {
	return EventID(ulid.Make().String())
}

func NewVisitID() VisitID {
	return VisitID(ulid.Make().String())
}

func BatchRef(batch int) ItemRef {
	return ItemRef(fmt.Sprintf("batch-%04d", batch))
}

// BatchNumber parses a reference produced by BatchRef.
func BatchNumber(ref ItemRef) (int, bool) {
	raw, ok := strings.CutPrefix(string(ref), "batch-")
	if !ok {
		return 0, false
	}

	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

func (id SessionID) Empty() bool {
	return strings.TrimSpace(string(id)) == ""
}
