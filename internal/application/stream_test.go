package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeliversInOrderToEverySubscriber(t *testing.T) {
	t.Parallel()

	s := NewStream[int](Unbounded())
	a, stopA := s.Subscribe()
	b, stopB := s.Subscribe()
	defer stopA()
	defer stopB()

	for i := range 100 {
		s.Publish(i)
	}

	for _, ch := range []<-chan int{a, b} {
		for i := range 100 {
			select {
			case got := <-ch:
				require.Equal(t, i, got)
			case <-time.After(time.Second):
				t.Fatalf("value %d not delivered", i)
			}
		}
	}
}

func TestStreamDropOldestKeepsNewest(t *testing.T) {
	t.Parallel()

	s := NewStream[int](DropOldest(2))
	ch, stop := s.Subscribe()
	defer stop()

	// the pump may already hold one value, so at most one extra old value
	// can precede the newest two
	for i := range 50 {
		s.Publish(i)
	}

	var got []int
	timeout := time.After(time.Second)
	for len(got) == 0 || got[len(got)-1] != 49 {
		select {
		case v := <-ch:
			got = append(got, v)
		case <-timeout:
			t.Fatalf("newest value not delivered, got %v", got)
		}
	}

	assert.LessOrEqual(t, len(got), 3)
	assert.Equal(t, 48, got[len(got)-2])
}

func TestStreamUnsubscribeAndClose(t *testing.T) {
	t.Parallel()

	s := NewStream[string](Unbounded())
	ch, stop := s.Subscribe()
	require.Equal(t, 1, s.Subscribers())

	stop()
	stop()
	assert.Zero(t, s.Subscribers())
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, time.Millisecond)

	other, _ := s.Subscribe()
	s.Close()
	s.Publish("ignored")
	require.Eventually(t, func() bool {
		_, open := <-other
		return !open
	}, time.Second, time.Millisecond)

	late, _ := s.Subscribe()
	_, open := <-late
	assert.False(t, open)
}
