package domain

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventSessionStarted     EventKind = "session.started"
	EventSessionCompleted   EventKind = "session.completed"
	EventSessionCancelled   EventKind = "session.cancelled"
	EventItemScheduled      EventKind = "item.scheduled"
	EventItemVisitStarted   EventKind = "item.visit_started"
	EventItemVisitCompleted EventKind = "item.visit_completed"
	EventItemVisitFailed    EventKind = "item.visit_failed"
	EventBatchScheduled     EventKind = "batch.scheduled"
	EventBatchStarted       EventKind = "batch.started"
	EventBatchCompleted     EventKind = "batch.completed"
	EventBatchFailed        EventKind = "batch.failed"
	EventDelayStarted       EventKind = "delay.started"
	EventDelayCompleted     EventKind = "delay.completed"
)

// Event is an immutable fact about a session. The set of implementations is
// closed to this package.
type Event interface {
	Meta() EventMeta
	Kind() EventKind
	sealed()
}

type EventMeta struct {
	ID         EventID
	SessionID  SessionID
	OccurredAt time.Time
}

func NewEventMeta(sessionID SessionID, at time.Time) EventMeta {
	return EventMeta{ID: NewEventID(), SessionID: sessionID, OccurredAt: at}
}

func (m EventMeta) Meta() EventMeta { return m }
func (EventMeta) sealed()           {}

type SessionStarted struct {
	EventMeta
	Variant           SessionVariant
	TotalItems        int
	EstimatedDuration time.Duration
}

type SessionCompleted struct {
	EventMeta
	Variant        SessionVariant
	CompletedItems int
	FailedItems    int
	Elapsed        time.Duration
}

type SessionCancelled struct {
	EventMeta
	Variant        SessionVariant
	Reason         string
	CompletedItems int
	TotalItems     int
	Elapsed        time.Duration
}

type ItemScheduled struct {
	EventMeta
	Ref         ItemRef
	Sequence    int
	ScheduledAt time.Time
}

type ItemVisitStarted struct {
	EventMeta
	Ref   ItemRef
	Index int
	URL   string
}

type ItemVisitCompleted struct {
	EventMeta
	Ref       ItemRef
	VisitID   VisitID
	Succeeded int
	Failed    int
	Abandoned bool
	TimedOut  bool
}

type ItemVisitFailed struct {
	EventMeta
	Ref    ItemRef
	Reason string
}

type BatchScheduled struct {
	EventMeta
	Ref         ItemRef
	Batch       int
	ScheduledAt time.Time
}

type BatchStarted struct {
	EventMeta
	Ref   ItemRef
	Batch int
}

type BatchCompleted struct {
	EventMeta
	Ref         ItemRef
	Batch       int
	ItemsLoaded int
}

type BatchFailed struct {
	EventMeta
	Ref    ItemRef
	Batch  int
	Reason string
}

type DelayStarted struct {
	EventMeta
	Ref      ItemRef
	Until    time.Time
	Duration time.Duration
}

type DelayCompleted struct {
	EventMeta
	Ref ItemRef
}

func (SessionStarted) Kind() EventKind     { return EventSessionStarted }
func (SessionCompleted) Kind() EventKind   { return EventSessionCompleted }
func (SessionCancelled) Kind() EventKind   { return EventSessionCancelled }
func (ItemScheduled) Kind() EventKind      { return EventItemScheduled }
func (ItemVisitStarted) Kind() EventKind   { return EventItemVisitStarted }
func (ItemVisitCompleted) Kind() EventKind { return EventItemVisitCompleted }
func (ItemVisitFailed) Kind() EventKind    { return EventItemVisitFailed }
func (BatchScheduled) Kind() EventKind     { return EventBatchScheduled }
func (BatchStarted) Kind() EventKind       { return EventBatchStarted }
func (BatchCompleted) Kind() EventKind     { return EventBatchCompleted }
func (BatchFailed) Kind() EventKind        { return EventBatchFailed }
func (DelayStarted) Kind() EventKind       { return EventDelayStarted }
func (DelayCompleted) Kind() EventKind     { return EventDelayCompleted }

// Scheduled reports the schedule entry carried by scheduling events.
func Scheduled(e Event) (ItemRef, time.Time, bool) {
	switch ev := e.(type) {
	case ItemScheduled:
		return ev.Ref, ev.ScheduledAt, true
	case BatchScheduled:
		return ev.Ref, ev.ScheduledAt, true
	default:
		return "", time.Time{}, false
	}
}

// Settled reports the reference a completion or failure event closes.
func Settled(e Event) (ItemRef, bool) {
	switch ev := e.(type) {
	case ItemVisitCompleted:
		return ev.Ref, true
	case ItemVisitFailed:
		return ev.Ref, true
	case BatchCompleted:
		return ev.Ref, true
	case BatchFailed:
		return ev.Ref, true
	default:
		return "", false
	}
}

// Started reports the reference of an item or batch start event.
func Started(e Event) (ItemRef, bool) {
	switch ev := e.(type) {
	case ItemVisitStarted:
		return ev.Ref, true
	case BatchStarted:
		return ev.Ref, true
	default:
		return "", false
	}
}

func IsCompletion(e Event) bool {
	switch e.(type) {
	case ItemVisitCompleted, BatchCompleted:
		return true
	default:
		return false
	}
}

func IsSessionEnd(e Event) bool {
	switch e.(type) {
	case SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

type EventEnvelope struct {
	ID         EventID   `json:"id"`
	Kind       EventKind `json:"kind"`
	SessionID  SessionID `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Event     `json:"payload"`
}

func Envelope(e Event) EventEnvelope {
	meta := e.Meta()
	return EventEnvelope{
		ID:         meta.ID,
		Kind:       e.Kind(),
		SessionID:  meta.SessionID,
		OccurredAt: meta.OccurredAt,
		Payload:    e,
	}
}

func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(Envelope(e))
}
