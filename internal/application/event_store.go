package application

import (
	"sort"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
)

// ScheduledEntry is a scheduled item or batch that has not been settled yet.
type ScheduledEntry struct {
	Ref         domain.ItemRef
	ScheduledAt time.Time
	sequence    int
}

// EventStore is an append-only, in-memory event log. It keeps the whole
// history plus a per-session index; projections are scans over them.
type EventStore struct {
	mu        sync.RWMutex
	history   []domain.Event
	bySession map[domain.SessionID][]domain.Event
}

func NewEventStore() *EventStore {
	return &EventStore{bySession: map[domain.SessionID][]domain.Event{}}
}

func (s *EventStore) Append(event domain.Event) error {
	if event == nil {
		return domain.NewValidationError("event", "is nil")
	}
	meta := event.Meta()
	if meta.SessionID.Empty() {
		return domain.NewValidationError("session_id", "is required")
	}
	if meta.OccurredAt.IsZero() {
		return domain.NewValidationError("occurred_at", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, event)
	s.bySession[meta.SessionID] = append(s.bySession[meta.SessionID], event)

	return nil
}

func (s *EventStore) GetSessionEvents(id domain.SessionID) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Event(nil), s.bySession[id]...)
}

func (s *EventStore) GetAllEvents() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Event(nil), s.history...)
}

func (s *EventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.history)
}

func (s *EventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.bySession = map[domain.SessionID][]domain.Event{}
}

// GetActiveSession returns the most recently started session that has no
// completion or cancellation event.
func (s *EventStore) GetActiveSession() (domain.SessionID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ended := map[domain.SessionID]bool{}
	for _, event := range s.history {
		if domain.IsSessionEnd(event) {
			ended[event.Meta().SessionID] = true
		}
	}

	for i := len(s.history) - 1; i >= 0; i-- {
		event := s.history[i]
		if event.Kind() != domain.EventSessionStarted {
			continue
		}
		id := event.Meta().SessionID
		if !ended[id] {
			return id, true
		}
	}

	return "", false
}

func (s *EventStore) IsSessionActive(id domain.SessionID) bool {
	active, ok := s.GetActiveSession()
	return ok && active == id
}

func (s *EventStore) GetCompletedCount(id domain.SessionID) int {
	return s.count(id, domain.IsCompletion)
}

func (s *EventStore) GetFailedCount(id domain.SessionID) int {
	return s.count(id, func(e domain.Event) bool {
		switch e.(type) {
		case domain.ItemVisitFailed, domain.BatchFailed:
			return true
		default:
			return false
		}
	})
}

func (s *EventStore) count(id domain.SessionID, match func(domain.Event) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, event := range s.bySession[id] {
		if match(event) {
			n++
		}
	}
	return n
}

// GetPendingScheduled returns scheduled entries minus settled ones, ordered
// by scheduled time and then by schedule order.
func (s *EventStore) GetPendingScheduled(id domain.SessionID) []ScheduledEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settled := map[domain.ItemRef]bool{}
	for _, event := range s.bySession[id] {
		if ref, ok := domain.Settled(event); ok {
			settled[ref] = true
		}
	}

	pending := make([]ScheduledEntry, 0)
	latest := map[domain.ItemRef]int{}
	for i, event := range s.bySession[id] {
		ref, at, ok := domain.Scheduled(event)
		if !ok || settled[ref] {
			continue
		}
		// a later scheduling event for the same ref supersedes the earlier one
		if idx, seen := latest[ref]; seen {
			pending[idx] = ScheduledEntry{Ref: ref, ScheduledAt: at, sequence: pending[idx].sequence}
			continue
		}
		latest[ref] = len(pending)
		pending = append(pending, ScheduledEntry{Ref: ref, ScheduledAt: at, sequence: i})
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].ScheduledAt.Equal(pending[j].ScheduledAt) {
			return pending[i].ScheduledAt.Before(pending[j].ScheduledAt)
		}
		return pending[i].sequence < pending[j].sequence
	})

	return pending
}

func (s *EventStore) GetNextScheduled(id domain.SessionID) (ScheduledEntry, bool) {
	pending := s.GetPendingScheduled(id)
	if len(pending) == 0 {
		return ScheduledEntry{}, false
	}
	return pending[0], true
}

// GetSettledRefs returns every item or batch that has a completion or
// failure event in the session.
func (s *EventStore) GetSettledRefs(id domain.SessionID) map[domain.ItemRef]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settled := map[domain.ItemRef]bool{}
	for _, event := range s.bySession[id] {
		if ref, ok := domain.Settled(event); ok {
			settled[ref] = true
		}
	}
	return settled
}

// GetLastStarted returns the most recent item or batch start in the session.
func (s *EventStore) GetLastStarted(id domain.SessionID) (domain.ItemRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.bySession[id]
	for i := len(events) - 1; i >= 0; i-- {
		if ref, ok := domain.Started(events[i]); ok {
			return ref, true
		}
	}
	return "", false
}

func (s *EventStore) GetTimestamps(id domain.SessionID) []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stamps := make([]time.Time, 0, len(s.bySession[id]))
	for _, event := range s.bySession[id] {
		stamps = append(stamps, event.Meta().OccurredAt)
	}
	return stamps
}
