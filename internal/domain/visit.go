package domain

import "time"

type SlotStatus int

const (
	SlotPending SlotStatus = iota
	SlotSucceeded
	SlotFailed
)

func (s SlotStatus) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotSucceeded:
		return "succeeded"
	case SlotFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	ReasonAbandoned   = "collection abandoned"
	ReasonTimedOut    = "timed out"
	ReasonNotCaptured = "not captured"
)

// Slot is one asynchronous outcome of an item visit. Failed slots count as
// resolved.
type Slot struct {
	Name       SlotName
	Status     SlotStatus
	Data       string
	Reason     string
	ResolvedAt time.Time
}

func (s Slot) Resolved() bool {
	return s.Status != SlotPending
}

type VisitAggregate struct {
	ID          VisitID
	SessionID   SessionID
	Ref         ItemRef
	StartedAt   time.Time
	CompletedAt time.Time
	Slots       []Slot
	Abandoned   bool
	TimedOut    bool
}

func NewVisitAggregate(sessionID SessionID, ref ItemRef, slots []SlotName, startedAt time.Time) VisitAggregate {
	agg := VisitAggregate{
		ID:        NewVisitID(),
		SessionID: sessionID,
		Ref:       ref,
		StartedAt: startedAt,
		Slots:     make([]Slot, 0, len(slots)),
	}
	for _, name := range slots {
		agg.Slots = append(agg.Slots, Slot{Name: name, Status: SlotPending})
	}
	return agg
}

func (a VisitAggregate) IsComplete() bool {
	for _, slot := range a.Slots {
		if !slot.Resolved() {
			return false
		}
	}
	return true
}

func (a VisitAggregate) FullySuccessful() bool {
	for _, slot := range a.Slots {
		if slot.Status != SlotSucceeded {
			return false
		}
	}
	return true
}

func (a VisitAggregate) SucceededCount() int {
	return a.countStatus(SlotSucceeded)
}

func (a VisitAggregate) FailedCount() int {
	return a.countStatus(SlotFailed)
}

func (a VisitAggregate) PendingCount() int {
	return a.countStatus(SlotPending)
}

func (a VisitAggregate) countStatus(status SlotStatus) int {
	n := 0
	for _, slot := range a.Slots {
		if slot.Status == status {
			n++
		}
	}
	return n
}

func (a VisitAggregate) Slot(name SlotName) (Slot, bool) {
	for _, slot := range a.Slots {
		if slot.Name == name {
			return slot, true
		}
	}
	return Slot{}, false
}

// Resolve sets the named slot if it is still pending. It reports whether the
// slot changed.
func (a *VisitAggregate) Resolve(name SlotName, succeeded bool, detail string, at time.Time) bool {
	for i := range a.Slots {
		if a.Slots[i].Name != name {
			continue
		}
		if a.Slots[i].Resolved() {
			return false
		}
		a.Slots[i].ResolvedAt = at
		if succeeded {
			a.Slots[i].Status = SlotSucceeded
			a.Slots[i].Data = detail
		} else {
			a.Slots[i].Status = SlotFailed
			a.Slots[i].Reason = detail
		}
		return true
	}
	return false
}

// FailPending marks every unresolved slot as failed with reason and returns
// how many were forced.
func (a *VisitAggregate) FailPending(reason string, at time.Time) int {
	n := 0
	for i := range a.Slots {
		if a.Slots[i].Resolved() {
			continue
		}
		a.Slots[i].Status = SlotFailed
		a.Slots[i].Reason = reason
		a.Slots[i].ResolvedAt = at
		n++
	}
	return n
}

func (a VisitAggregate) Clone() VisitAggregate {
	out := a
	out.Slots = append([]Slot(nil), a.Slots...)
	return out
}

// CapturedResponse is what the response capture layer reports for one HTTP
// exchange. Truncated is set when Body was cut at the capture size limit.
type CapturedResponse struct {
	Method    string
	URL       string
	Status    int
	Body      string
	Truncated bool
}

// StepOutcome reports the asynchronous result of a scheduled interaction.
// An empty Visit matches whichever visit is current.
type StepOutcome struct {
	Visit     VisitID
	Step      StepKind
	Succeeded bool
	Detail    string
}

// BatchResult is what the batch variant hands to persistence per batch.
type BatchResult struct {
	SessionID   SessionID
	Batch       int
	ItemsLoaded int
	Failed      bool
	Reason      string
	CompletedAt time.Time
}
