package domain

import "time"

type IntentKind string

const (
	IntentNavigate  IntentKind = "navigate"
	IntentInteract  IntentKind = "interact"
	IntentLoadBatch IntentKind = "load_batch"
)

// Intent is an instruction for the automation layer. The engine never waits
// for it; results come back through the orchestrator's notify methods.
type Intent struct {
	Kind      IntentKind
	SessionID SessionID
	Ref       ItemRef
	URL       string
	Step      StepKind
	Visit     VisitID
	Batch     int
	IssuedAt  time.Time
}

// SessionState is a projection recomputed from the event store. It is never
// the source of truth.
type SessionState struct {
	SessionID        SessionID
	Variant          SessionVariant
	Active           bool
	CurrentIndex     int
	CurrentRef       ItemRef
	TotalItems       int
	CompletedItems   int
	FailedItems      int
	PendingItems     int
	StartedAt        time.Time
	TimeRemaining    time.Duration
	CountingDown     bool
	CountdownSeconds int
	NextRef          ItemRef
	NextAt           time.Time
}

type CountdownTick struct {
	SessionID SessionID
	Ref       ItemRef
	Until     time.Time
	Remaining time.Duration
}

// Seconds rounds the remaining time up to whole seconds.
func (t CountdownTick) Seconds() int {
	return ceilSeconds(t.Remaining)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func CountdownSeconds(until, now time.Time) int {
	return ceilSeconds(until.Sub(now))
}
