package task

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Store is the ordered task collection for one invocation. It persists
// as a bare JSON array of tasks, the format prior versions of the tool
// wrote, so the codec below must round-trip that shape exactly.
type Store struct {
	tasks []*Task
}

func NewStore() *Store {
	return &Store{}
}

// Tasks returns the tasks in insertion order.
func (s *Store) Tasks() []*Task {
	return s.tasks
}

func (s *Store) Len() int { return len(s.tasks) }

func (s *Store) Find(id int) (*Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

// Add creates a task with the next free id. Ids are never reused: the
// next id is one past the highest id in the store.
func (s *Store) Add(description string) *Task {
	max := 0
	for _, t := range s.tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	t := &Task{
		ID:          max + 1,
		Description: description,
		Pomodoros:   []Pomodoro{},
	}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *Store) SetDone(id int, done bool) error {
	t, err := s.Find(id)
	if err != nil {
		return err
	}
	t.Done = done
	return nil
}

func (s *Store) SetArchived(id int, archived bool) error {
	t, err := s.Find(id)
	if err != nil {
		return err
	}
	t.Archived = archived
	return nil
}

// ArchiveDone archives every done task and returns the ids it touched.
func (s *Store) ArchiveDone() []int {
	var ids []int
	for _, t := range s.tasks {
		if t.Done {
			t.Archived = true
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (s *Store) MarshalJSON() ([]byte, error) {
	if s.tasks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.tasks)
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var tasks []*Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return err
	}
	// a bare null decodes to a nil slice without an error; only []
	// may stand for an empty store
	if tasks == nil {
		return errors.New("task list is null")
	}
	for _, t := range tasks {
		if t == nil {
			return errors.New("null task entry")
		}
		// pomodoros must encode as [] on the next write, never null
		if t.Pomodoros == nil {
			t.Pomodoros = []Pomodoro{}
		}
	}
	s.tasks = tasks
	return nil
}

// Check validates structural invariants after decode: ids positive and
// unique, a start time on every pomodoro, at most one open pomodoro per
// task and only in last position. End-before-start is not checked here;
// files written under clock skew must still open.
func (s *Store) Check() error {
	seen := make(map[int]struct{}, len(s.tasks))
	for _, t := range s.tasks {
		if t.ID <= 0 {
			return fmt.Errorf("task %q: invalid id %d", t.Description, t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = struct{}{}
		for i, p := range t.Pomodoros {
			if p.Start.IsZero() {
				return fmt.Errorf("task %d: pomodoro missing start time", t.ID)
			}
			if p.Open() && i != len(t.Pomodoros)-1 {
				return fmt.Errorf("task %d: open pomodoro is not the last", t.ID)
			}
		}
	}
	return nil
}
