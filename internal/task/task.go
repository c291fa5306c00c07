package task

import (
	"errors"
	"slices"
	"time"
)

// DefaultPomodoroDuration is the fixed length of one work session.
const DefaultPomodoroDuration = 25 * time.Minute

var (
	ErrNotFound         = errors.New("task not found")
	ErrPomodoroActive   = errors.New("pomodoro already active")
	ErrNoActivePomodoro = errors.New("no active pomodoro")
)

// Pomodoro is one timed work interval on a task. A nil End means the
// interval is still open.
type Pomodoro struct {
	Start time.Time  `json:"start_time"`
	End   *time.Time `json:"end_time"`
}

func (p Pomodoro) Open() bool { return p.End == nil }

// Elapsed returns the interval length, treating now as the provisional
// end while the interval is open. Clock skew can make the result
// negative; it is returned as-is, not clamped.
func (p Pomodoro) Elapsed(now time.Time) time.Duration {
	if p.End != nil {
		return p.End.Sub(p.Start)
	}
	return now.Sub(p.Start)
}

type Task struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	Done        bool       `json:"done"`
	Archived    bool       `json:"archived"`
	Pomodoros   []Pomodoro `json:"pomodoros"`
}

// TimeSpent sums every pomodoro, counting an open one up to now.
func (t *Task) TimeSpent(now time.Time) time.Duration {
	var total time.Duration
	for _, p := range t.Pomodoros {
		total += p.Elapsed(now)
	}
	return total
}

// PomodoroActive reports whether the task's last pomodoro is open.
// An open pomodoro is always the last one.
func (t *Task) PomodoroActive() bool {
	n := len(t.Pomodoros)
	return n > 0 && t.Pomodoros[n-1].Open()
}

// Remaining returns how much of the running pomodoro is left. ok is
// false when no pomodoro is open. The value goes negative once the
// pomodoro is overdue; callers treat <= 0 as due.
func (t *Task) Remaining(now time.Time, d time.Duration) (rem time.Duration, ok bool) {
	if !t.PomodoroActive() {
		return 0, false
	}
	last := t.Pomodoros[len(t.Pomodoros)-1]
	return d - last.Elapsed(now), true
}

func (t *Task) StartPomodoro(now time.Time) error {
	if t.PomodoroActive() {
		return ErrPomodoroActive
	}
	t.Pomodoros = append(t.Pomodoros, Pomodoro{Start: now})
	return nil
}

func (t *Task) FinishPomodoro(now time.Time) error {
	if !t.PomodoroActive() {
		return ErrNoActivePomodoro
	}
	end := now
	t.Pomodoros[len(t.Pomodoros)-1].End = &end
	return nil
}

// Track records a closed interval of length d ending at now. When a
// pomodoro is running, the interval is inserted before it so the open
// pomodoro stays last.
func (t *Task) Track(now time.Time, d time.Duration) {
	end := now
	p := Pomodoro{Start: now.Add(-d), End: &end}
	if t.PomodoroActive() {
		t.Pomodoros = slices.Insert(t.Pomodoros, len(t.Pomodoros)-1, p)
		return
	}
	t.Pomodoros = append(t.Pomodoros, p)
}

// CloseIfDue closes an overdue pomodoro at exactly start+d, so the
// recorded time stays one full pomodoro no matter when the scan runs.
// It reports whether a pomodoro was closed.
func (t *Task) CloseIfDue(now time.Time, d time.Duration) bool {
	rem, ok := t.Remaining(now, d)
	if !ok || rem > 0 {
		return false
	}
	last := &t.Pomodoros[len(t.Pomodoros)-1]
	end := last.Start.Add(d)
	last.End = &end
	return true
}
