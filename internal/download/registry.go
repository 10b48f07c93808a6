package download

import (
	"sync"

	"github.com/ytget/yt-multiloader/internal/model"
)

// registry keeps tasks in insertion order
type registry struct {
	mu    sync.RWMutex
	tasks map[string]*task
	order []string
}

func newRegistry() *registry {
	return &registry{tasks: make(map[string]*task)}
}

// Add registers t at the end of the order
func (r *registry) Add(t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := t.id
	if _, ok := r.tasks[id]; ok {
		return
	}
	r.tasks[id] = t
	r.order = append(r.order, id)
}

// Remove retires the task and deletes it
func (r *registry) Remove(id string) (*task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	t.retire()
	delete(r.tasks, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return t, true
}

// Get returns the task with id
func (r *registry) Get(id string) (*task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// All returns the tasks in insertion order. The slice is a copy.
func (r *registry) All() []*task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id])
	}
	return out
}

// AnyInStatus reports whether some task currently has status
func (r *registry) AnyInStatus(status model.Status) bool {
	for _, t := range r.All() {
		if t.snapshot().Status == status {
			return true
		}
	}
	return false
}

// Count returns the number of registered tasks
func (r *registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
