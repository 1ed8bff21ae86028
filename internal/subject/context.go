package subject

import (
	"context"
	"sync"
)

// Accessor returns the subject of the default system.
type Accessor interface {
	CurrentSubject() (*Subject, bool)
}

// Registry is the ordered set of subjects installed for one request, keyed
// by system. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	subjects map[string]*Subject
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subjects: make(map[string]*Subject)}
}

// Add installs s. A subject already installed for the same system is
// replaced and keeps its position.
func (r *Registry) Add(s *Subject) {
	if s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subjects[s.system]; !ok {
		r.order = append(r.order, s.system)
	}
	r.subjects[s.system] = s
}

// Subject returns the subject of the default system.
func (r *Registry) Subject() (*Subject, bool) {
	return r.SubjectFor("")
}

// SubjectFor returns the subject of system.
func (r *Registry) SubjectFor(system string) (*Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subjects[system]
	return s, ok
}

// CurrentSubject implements Accessor.
func (r *Registry) CurrentSubject() (*Subject, bool) {
	return r.Subject()
}

// Subjects returns the installed subjects in installation order.
func (r *Registry) Subjects() []*Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subject, 0, len(r.order))
	for _, system := range r.order {
		out = append(out, r.subjects[system])
	}
	return out
}

// Len returns the number of installed subjects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes every subject.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	clear(r.subjects)
}

// registryContextKey is the context key for the registry.
type registryContextKey struct{}

// NewContext returns a copy of ctx carrying reg.
func NewContext(ctx context.Context, reg *Registry) context.Context {
	return context.WithValue(ctx, registryContextKey{}, reg)
}

// RegistryFromContext returns the registry carried by ctx.
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	reg, ok := ctx.Value(registryContextKey{}).(*Registry)
	return reg, ok && reg != nil
}

// Current returns the default subject of the registry carried by ctx.
func Current(ctx context.Context) (*Subject, bool) {
	return CurrentFor(ctx, "")
}

// CurrentFor returns the subject of system from the registry carried by ctx.
func CurrentFor(ctx context.Context, system string) (*Subject, bool) {
	reg, ok := RegistryFromContext(ctx)
	if !ok {
		return nil, false
	}
	return reg.SubjectFor(system)
}
