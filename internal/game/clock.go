package game

// Scheduler runs delayed tasks on the frame clock, so all timing in the
// engine shares one deterministic clock instead of mixing wall-clock timers
// with frame-driven interpolation.
type Scheduler struct {
	now   float64
	tasks []*scheduledTask
}

type scheduledTask struct {
	due       float64
	fn        func()
	cancelled bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// After schedules fn to run once delay seconds of frame time have elapsed.
// The returned closure cancels the task if it has not fired yet.
func (s *Scheduler) After(delay float64, fn func()) func() {
	if delay < 0 {
		delay = 0
	}
	task := &scheduledTask{due: s.now + delay, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() {
		task.cancelled = true
	}
}

// Advance moves the clock forward by dt and runs every due task in
// scheduling order. Tasks scheduled by a running task are considered from
// the next Advance call onward.
func (s *Scheduler) Advance(dt float64) {
	if dt < 0 {
		return
	}
	s.now += dt

	due := make([]*scheduledTask, 0)
	remaining := s.tasks[:0]
	for _, task := range s.tasks {
		if task.cancelled {
			continue
		}
		if task.due <= s.now {
			due = append(due, task)
			continue
		}
		remaining = append(remaining, task)
	}
	s.tasks = remaining

	for _, task := range due {
		if !task.cancelled {
			task.fn()
		}
	}
}

// Pending reports how many tasks are scheduled and not yet fired.
func (s *Scheduler) Pending() int {
	n := 0
	for _, task := range s.tasks {
		if !task.cancelled {
			n++
		}
	}
	return n
}

// Now returns the accumulated frame time in seconds.
func (s *Scheduler) Now() float64 {
	return s.now
}
