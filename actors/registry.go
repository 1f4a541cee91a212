package actors

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNameTaken = errors.New("name already registered")

// Registry maps names to processes. One lock guards both directions.
type Registry struct {
	mu    sync.Mutex
	names map[string]PID
	byPID map[PID]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]PID),
		byPID: make(map[PID]map[string]struct{}),
	}
}

// Register binds name to pid. It fails if name is held by another live process.
func (r *Registry) Register(name string, pid PID, alive func(PID) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.names[name]; ok && old != pid {
		if alive == nil || alive(old) {
			return fmt.Errorf("%w: %s -> %d", ErrNameTaken, name, old)
		}
		r.unbind(name, old)
	}
	r.names[name] = pid
	set, ok := r.byPID[pid]
	if !ok {
		set = make(map[string]struct{})
		r.byPID[pid] = set
	}
	set[name] = struct{}{}
	return nil
}

func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.names[name]
	if !ok {
		return false
	}
	r.unbind(name, pid)
	return true
}

func (r *Registry) unbind(name string, pid PID) {
	delete(r.names, name)
	if set, ok := r.byPID[pid]; ok {
		delete(set, name)
		if len(set) == 0 {
			delete(r.byPID, pid)
		}
	}
}

func (r *Registry) Whereis(name string) (PID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.names[name]
	return pid, ok
}

// RemovePID drops every name bound to pid.
func (r *Registry) RemovePID(pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.byPID[pid] {
		if r.names[name] == pid {
			delete(r.names, name)
		}
	}
	delete(r.byPID, pid)
}

func (r *Registry) Names(pid PID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]string, 0, len(r.byPID[pid]))
	for name := range r.byPID[pid] {
		ret = append(ret, name)
	}
	return ret
}
