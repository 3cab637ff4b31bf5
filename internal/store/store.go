package store

import (
	"errors"
	"sync"

	"cronpilot/pkg/logx"
)

// ErrTaskNotFound is returned for lookups/mutations of unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Store is the in-memory authoritative task list plus a bounded execution
// history, mirrored to a single JSON file through a serialized write queue.
//
// Memory is the source of truth: a failed disk write is logged and the
// service keeps operating.
type Store struct {
	log  logx.Logger
	path string

	mu      sync.RWMutex
	tasks   []Task
	history []ExecutionRecord

	// persist queue; see persist.go.
	pmu     sync.Mutex
	pending chan struct{}
	done    chan struct{}
	closed  bool
}

func New(path string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		log:  log,
		path: path,
		// Capacity 1 is enough: a queued signal always snapshots the
		// latest state, so back-to-back mutations coalesce.
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Tasks returns a copy of all tasks in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return s.tasks[i], true
		}
	}
	return Task{}, false
}

// AddTask appends a task. The caller is responsible for validation.
func (s *Store) AddTask(t Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// UpdateTask applies mutate to the task with the given id, in place.
func (s *Store) UpdateTask(id string, mutate func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			mutate(&s.tasks[i])
			return nil
		}
	}
	return ErrTaskNotFound
}

// DeleteTask removes the task and purges its history entries.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTaskNotFound
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)

	kept := s.history[:0]
	for _, rec := range s.history {
		if rec.TaskID != id {
			kept = append(kept, rec)
		}
	}
	s.history = kept
	return nil
}

// AppendHistory prepends a record (history is newest-first) and trims to
// HistoryLimit.
func (s *Store) AppendHistory(rec ExecutionRecord) {
	s.mu.Lock()
	s.history = append([]ExecutionRecord{rec}, s.history...)
	if len(s.history) > HistoryLimit {
		s.history = s.history[:HistoryLimit]
	}
	s.mu.Unlock()
}

// History returns up to limit records, newest first, optionally filtered by
// task id (empty string means all tasks).
func (s *Store) History(taskID string, limit int) []ExecutionRecord {
	if limit < 1 {
		limit = 1
	}
	if limit > HistoryLimit {
		limit = HistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExecutionRecord, 0, limit)
	for _, rec := range s.history {
		if taskID != "" && rec.TaskID != taskID {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out
}

// HistoryLen reports the current history size.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}
