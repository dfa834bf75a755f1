package domain

import "time"

type ScheduledStep struct {
	Kind   StepKind
	FireAt time.Time
}

// ItemSchedule is the timing window of one item. Steps are strictly
// increasing in FireAt and StopTime is never before the last step.
type ItemSchedule struct {
	Ref            ItemRef
	StartTime      time.Time
	StopTime       time.Time
	Steps          []ScheduledStep
	InterItemDelay time.Duration
}

func (s ItemSchedule) TotalDuration() time.Duration {
	return s.StopTime.Sub(s.StartTime)
}

// Offsets returns each step's delay relative to StartTime.
func (s ItemSchedule) Offsets() []time.Duration {
	offsets := make([]time.Duration, 0, len(s.Steps))
	for _, step := range s.Steps {
		offsets = append(offsets, step.FireAt.Sub(s.StartTime))
	}
	return offsets
}

// Shift moves the whole window by d, preserving durations.
func (s ItemSchedule) Shift(d time.Duration) ItemSchedule {
	shifted := s.clone()
	shifted.StartTime = s.StartTime.Add(d)
	shifted.StopTime = s.StopTime.Add(d)
	for i := range shifted.Steps {
		shifted.Steps[i].FireAt = shifted.Steps[i].FireAt.Add(d)
	}
	return shifted
}

func (s ItemSchedule) clone() ItemSchedule {
	out := s
	out.Steps = append([]ScheduledStep(nil), s.Steps...)
	return out
}

type ScheduledPlan struct {
	Items []ItemSchedule
}

func (p ScheduledPlan) Len() int {
	return len(p.Items)
}

func (p ScheduledPlan) Find(ref ItemRef) (int, bool) {
	for i, item := range p.Items {
		if item.Ref == ref {
			return i, true
		}
	}
	return -1, false
}

func (p ScheduledPlan) Clone() ScheduledPlan {
	items := make([]ItemSchedule, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item.clone())
	}
	return ScheduledPlan{Items: items}
}

func (p ScheduledPlan) StartTime() time.Time {
	if len(p.Items) == 0 {
		return time.Time{}
	}
	return p.Items[0].StartTime
}

func (p ScheduledPlan) EndTime() time.Time {
	if len(p.Items) == 0 {
		return time.Time{}
	}
	return p.Items[len(p.Items)-1].StopTime
}

func (p ScheduledPlan) TotalDuration() time.Duration {
	return p.EndTime().Sub(p.StartTime())
}

// Remaining is the time left until the plan's last item stops, never negative.
func (p ScheduledPlan) Remaining(now time.Time) time.Duration {
	end := p.EndTime()
	if end.IsZero() || !end.After(now) {
		return 0
	}
	return end.Sub(now)
}
