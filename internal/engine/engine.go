package engine

import (
	"errors"
	"fmt"
	"time"

	"pt/internal/notify"
	"pt/internal/task"
)

// Engine runs the command operations against one loaded store. Now is
// swappable for tests; recorded times are UTC.
type Engine struct {
	Store    *task.Store
	Duration time.Duration
	Now      func() time.Time
}

func New(st *task.Store) Engine {
	return Engine{
		Store:    st,
		Duration: task.DefaultPomodoroDuration,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) AddTask(description string) (*task.Task, error) {
	if description == "" {
		return nil, errors.New("description is required")
	}
	return e.Store.Add(description), nil
}

func (e Engine) StartPomodoro(id int) error {
	t, err := e.Store.Find(id)
	if err != nil {
		return err
	}
	return t.StartPomodoro(e.now())
}

func (e Engine) FinishPomodoro(id int) error {
	t, err := e.Store.Find(id)
	if err != nil {
		return err
	}
	return t.FinishPomodoro(e.now())
}

func (e Engine) TrackTime(id, minutes int) error {
	if minutes < 0 {
		return errors.New("minutes must be non-negative")
	}
	t, err := e.Store.Find(id)
	if err != nil {
		return err
	}
	t.Track(e.now(), time.Duration(minutes)*time.Minute)
	return nil
}

func (e Engine) CheckTask(id int) error   { return e.Store.SetDone(id, true) }
func (e Engine) UncheckTask(id int) error { return e.Store.SetDone(id, false) }

func (e Engine) ArchiveTask(id int) error   { return e.Store.SetArchived(id, true) }
func (e Engine) UnarchiveTask(id int) error { return e.Store.SetArchived(id, false) }

// ArchiveDone archives every done task and returns their ids.
func (e Engine) ArchiveDone() []int { return e.Store.ArchiveDone() }

// DueNotifications closes every overdue pomodoro at start+Duration and
// returns one notification per task that just crossed its deadline. The
// list is handed to the delivery collaborators, never consumed here.
func (e Engine) DueNotifications() []notify.Notification {
	now := e.now()
	var ns []notify.Notification
	for _, t := range e.Store.Tasks() {
		if t.CloseIfDue(now, e.Duration) {
			ns = append(ns, notify.Notification{
				Title: fmt.Sprintf("Pomodoro finished for task %d.", t.ID),
				Body:  t.Description,
			})
		}
	}
	return ns
}
