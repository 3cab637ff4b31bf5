package runner

import "sync"

// Guard is the process-wide running-task set. Scheduled and manual triggers
// share one Guard, which makes "at most one concurrent run per task" a
// single membership check before spawn.
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{running: map[string]struct{}{}}
}

// TryAcquire marks the task as running. It returns false if the task is
// already mid-execution.
func (g *Guard) TryAcquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	return true
}

func (g *Guard) Release(id string) {
	g.mu.Lock()
	delete(g.running, id)
	g.mu.Unlock()
}

// Contains reports whether the task is currently running.
func (g *Guard) Contains(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[id]
	return ok
}

// IDs returns the currently running task ids (unordered).
func (g *Guard) IDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.running))
	for id := range g.running {
		out = append(out, id)
	}
	return out
}
