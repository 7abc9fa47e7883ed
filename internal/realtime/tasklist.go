package realtime

import (
	"sync"

	"github.com/yukikurage/taskmaster/internal/models"
)

// TaskList is the ordered, newest-first task collection a dashboard renders.
// Changes are applied idempotently so a change already reflected in the
// snapshot is harmless when it arrives again on the stream.
type TaskList struct {
	mu       sync.RWMutex
	tasks    []models.Task
	snapshot uint64
}

// Reset replaces the contents with a snapshot taken at sequence seq.
func (l *TaskList) Reset(tasks []models.Task, seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tasks = append([]models.Task(nil), tasks...)
	l.snapshot = seq
}

// Apply folds one change into the list. Changes at or before the snapshot
// sequence are ignored. It reports whether the list changed.
func (l *TaskList) Apply(c Change) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c.Seq != 0 && c.Seq <= l.snapshot {
		return false
	}

	switch c.EventType {
	case ChangeInsert:
		if c.New == nil {
			return false
		}
		if i := l.indexOf(c.New.ID); i >= 0 {
			l.tasks[i] = *c.New
			return true
		}
		l.tasks = append([]models.Task{*c.New}, l.tasks...)
		return true

	case ChangeUpdate:
		if c.New == nil {
			return false
		}
		if i := l.indexOf(c.New.ID); i >= 0 {
			l.tasks[i] = *c.New
			return true
		}
		return false

	case ChangeDelete:
		i := l.indexOf(c.TaskID())
		if i < 0 {
			return false
		}
		l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
		return true
	}

	return false
}

// Tasks returns a copy of the current list.
func (l *TaskList) Tasks() []models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Task(nil), l.tasks...)
}

// Pending counts incomplete tasks.
func (l *TaskList) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, t := range l.tasks {
		if !t.IsComplete {
			n++
		}
	}
	return n
}

func (l *TaskList) indexOf(id string) int {
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
