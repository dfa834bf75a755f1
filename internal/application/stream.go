package application

import "sync"

// StreamPolicy decides what a subscriber's backlog does when it outgrows its
// limit. A zero limit means unbounded.
type StreamPolicy struct {
	limit int
}

// DropOldest keeps at most n undelivered values per subscriber, discarding
// the oldest first.
func DropOldest(n int) StreamPolicy {
	if n <= 0 {
		n = 1
	}
	return StreamPolicy{limit: n}
}

// Unbounded never discards values.
func Unbounded() StreamPolicy {
	return StreamPolicy{}
}

// Stream fans values out to subscribers. Publish never blocks; each
// subscriber has its own backlog and pump goroutine, so order is kept per
// subscriber and a slow reader cannot stall the producer.
type Stream[T any] struct {
	policy StreamPolicy

	mu     sync.Mutex
	subs   map[int]*subscriber[T]
	nextID int
	closed bool
}

func NewStream[T any](policy StreamPolicy) *Stream[T] {
	return &Stream[T]{policy: policy, subs: map[int]*subscriber[T]{}}
}

// Subscribe returns a channel of future values and a function that ends the
// subscription. The channel is closed after unsubscribe or Close.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	sub := &subscriber[T]{
		out:    make(chan T),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		policy: s.policy,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.out)
		return sub.out, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	go sub.pump()

	return sub.out, func() {
		s.mu.Lock()
		_, ok := s.subs[id]
		delete(s.subs, id)
		s.mu.Unlock()
		if ok {
			sub.stop()
		}
	}
}

func (s *Stream[T]) Publish(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for _, sub := range s.subs {
		sub.push(value)
	}
}

func (s *Stream[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close ends every subscription. Values still queued are dropped.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = map[int]*subscriber[T]{}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

type subscriber[T any] struct {
	policy StreamPolicy

	mu      sync.Mutex
	backlog []T

	out  chan T
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *subscriber[T]) push(value T) {
	s.mu.Lock()
	s.backlog = append(s.backlog, value)
	if s.policy.limit > 0 && len(s.backlog) > s.policy.limit {
		over := len(s.backlog) - s.policy.limit
		s.backlog = append(s.backlog[:0], s.backlog[over:]...)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) pop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if len(s.backlog) == 0 {
		return zero, false
	}
	value := s.backlog[0]
	s.backlog[0] = zero
	s.backlog = s.backlog[1:]
	return value, true
}

func (s *subscriber[T]) pump() {
	defer close(s.out)

	for {
		value, ok := s.pop()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- value:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}
