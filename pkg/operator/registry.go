package operator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapsmt/pkg/core"
)

// Registry allocates custom operator ids. Custom operators are tracked
// apart from the built-ins.
//
// Thread-safe: allocation and lookups take the registry lock, so the
// check-then-insert of an explicit id is atomic.
type Registry struct {
	mu     sync.RWMutex
	next   Type            // next id handed out by New
	custom map[Type]string // custom operator -> name
}

// NewRegistry creates a registry with no custom operators.
func NewRegistry() *Registry {
	return &Registry{
		next:   maxBuiltin + 1,
		custom: make(map[Type]string),
	}
}

// New allocates the next custom operator id. An empty name defaults to
// CUSTOM_<id>.
func (r *Registry) New(name string) Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.next
	r.next++
	r.custom[t] = defaultName(t, name)
	return t
}

// NewWithID registers a custom operator under a caller-chosen id.
// It fails if the id is reserved for built-ins or already allocated. After
// success the counter is at least id+1, so New never returns the same id.
func (r *Registry) NewWithID(id Type, name string) (Type, error) {
	if id.IsReserved() || id < 0 {
		return 0, core.NewValueError("operator.NewWithID", "id %d is reserved for built-in operators", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.custom[id]; ok {
		return 0, core.NewValueError("operator.NewWithID", "id %d is already allocated to %s", id, existing)
	}
	r.custom[id] = defaultName(id, name)
	if id >= r.next {
		r.next = id + 1
	}
	return id, nil
}

// IsRegistered reports whether t is a built-in or an allocated custom operator.
func (r *Registry) IsRegistered(t Type) bool {
	if t.IsBuiltin() {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.custom[t]
	return ok
}

// Name returns the registered name of t.
func (r *Registry) Name(t Type) string {
	if t.IsBuiltin() {
		return t.String()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.custom[t]; ok {
		return name
	}
	return t.String()
}

// Custom returns a copy of the custom operators.
func (r *Registry) Custom() map[Type]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[Type]string, len(r.custom))
	for k, v := range r.custom {
		result[k] = v
	}
	return result
}

// CustomCount returns the number of custom operators.
func (r *Registry) CustomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.custom)
}

// CustomTypes returns the custom operator ids in ascending order.
func (r *Registry) CustomTypes() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.custom))
	for t := range r.custom {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func defaultName(t Type, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("CUSTOM_%d", t)
}
