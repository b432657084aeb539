package operations

import (
	"context"
	"sort"
	"sync"

	"github.com/rahul/stepwise/internal/plan"
)

// Operation is a named capability a plan step can invoke. Implementations
// validate their own arity and argument types.
type Operation interface {
	Name() string
	Description() string
	Arity() int
	Parameters() map[string]any // JSON Schema of the positional arguments
	Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error)
}

// Descriptor is the catalog entry a planner sees for one operation.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps operation names to operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		r.ops[op.Name()] = op
	}
	return r
}

// Register adds op, replacing any operation with the same name.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name()] = op
}

// Resolve looks up an operation by exact name.
func (r *Registry) Resolve(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog describes every registered operation, sorted by name.
func (r *Registry) Catalog() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, Descriptor{Name: op.Name(), Description: op.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports how many operations are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
