package application

import (
	"sort"
	"sync"
	"time"

	"github.com/bnema/fundcrawl/internal/ports"
)

var _ ports.Scheduler = SystemScheduler{}

// SystemScheduler runs callbacks on wall-clock timers.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return time.AfterFunc(d, fn)
}

func (SystemScheduler) Every(interval time.Duration, fn func()) ports.Timer {
	t := &tickerTimer{ticker: time.NewTicker(interval), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

func (t *tickerTimer) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}

// TimerGroup tracks every timer of one item visit or countdown so they can be
// torn down together. Timers registered after Stop are stopped immediately.
type TimerGroup struct {
	scheduler ports.Scheduler

	mu      sync.Mutex
	timers  []ports.Timer
	stopped bool
}

func NewTimerGroup(scheduler ports.Scheduler) *TimerGroup {
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}
	return &TimerGroup{scheduler: scheduler}
}

func (g *TimerGroup) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return g.add(g.scheduler.AfterFunc(d, fn))
}

func (g *TimerGroup) Every(interval time.Duration, fn func()) ports.Timer {
	return g.add(g.scheduler.Every(interval, fn))
}

func (g *TimerGroup) add(timer ports.Timer) ports.Timer {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		timer.Stop()
		return timer
	}
	g.timers = append(g.timers, timer)
	g.mu.Unlock()
	return timer
}

// Stop cancels every registered timer and returns how many were still live.
func (g *TimerGroup) Stop() int {
	g.mu.Lock()
	timers := g.timers
	g.timers = nil
	g.stopped = true
	g.mu.Unlock()

	live := 0
	for _, timer := range timers {
		if timer.Stop() {
			live++
		}
	}
	return live
}

func (g *TimerGroup) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

func (g *TimerGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

var (
	_ ports.Clock     = (*ManualClock)(nil)
	_ ports.Scheduler = (*ManualClock)(nil)
)

// ManualClock is a deterministic clock and scheduler. Timers fire only from
// Advance, synchronously, in due-time order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return c.schedule(d, 0, fn)
}

func (c *ManualClock) Every(interval time.Duration, fn func()) ports.Timer {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return c.schedule(interval, interval, fn)
}

func (c *ManualClock) schedule(d, period time.Duration, fn func()) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{clock: c, due: c.now.Add(d), period: period, fn: fn, seq: c.seq}
	c.timers = append(c.timers, t)
	return t
}

// Set moves the clock to at without firing anything.
func (c *ManualClock) Set(at time.Time) {
	c.mu.Lock()
	c.now = at
	c.mu.Unlock()
}

// Advance moves time forward by d, firing every timer that falls due on the
// way. Callbacks run without the clock lock held and may schedule new timers.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.due
		if next.period > 0 {
			next.due = next.due.Add(next.period)
		} else {
			c.removeLocked(next)
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// Pending returns the number of live timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	due := make([]*manualTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].due.Equal(due[j].due) {
			return due[i].due.Before(due[j].due)
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (c *ManualClock) removeLocked(target *manualTimer) bool {
	for i, t := range c.timers {
		if t == target {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	clock  *ManualClock
	due    time.Time
	period time.Duration
	fn     func()
	seq    int
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeLocked(t)
}
