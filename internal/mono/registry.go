package mono

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"fortio.org/safecast"
	"golang.org/x/sync/singleflight"
)

// TemplateID identifies a generic template inside a Registry. The zero value
// is never allocated.
type TemplateID uint32

func (id TemplateID) IsValid() bool { return id != 0 }

// InstantiationKey addresses one instantiation of a template.
//
// Go maps cannot use slices as keys, so the caller encodes the canonical
// type arguments (and whatever else distinguishes an instantiation) into Key.
type InstantiationKey struct {
	Template TemplateID
	Key      string
}

// Entry is a cached instantiation.
type Entry[V any] struct {
	Key      InstantiationKey
	Value    V
	Requests uint64 // lookups served, including the one that created it
}

type template[V any] struct {
	name    string
	entries map[string]*Entry[V]
}

// Registry owns the instantiation tables of many templates. Copies of a
// template share its TemplateID and therefore its table. All table access
// happens under one mutex; elaboration runs outside of it, deduplicated per
// key, so a template may instantiate itself while being elaborated.
type Registry[V any] struct {
	mu        sync.Mutex
	templates []template[V]
	group     singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{}
}

// Register allocates a table for a new template.
func (r *Registry[V]) Register(name string) TemplateID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, template[V]{name: name, entries: make(map[string]*Entry[V])})
	id, err := safecast.Conv[uint32](len(r.templates))
	if err != nil {
		panic(fmt.Errorf("mono: too many templates: %w", err))
	}
	return TemplateID(id)
}

func (r *Registry[V]) table(id TemplateID) (*template[V], error) {
	if !id.IsValid() || int(id) > len(r.templates) {
		return nil, fmt.Errorf("mono: unknown template #%d", id)
	}
	return &r.templates[id-1], nil
}

// Name returns the name a template was registered with.
func (r *Registry[V]) Name(id TemplateID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(id)
	if err != nil {
		return ""
	}
	return t.name
}

// Lookup returns a cached instantiation without creating one.
func (r *Registry[V]) Lookup(id TemplateID, key string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero V
	t, err := r.table(id)
	if err != nil {
		return zero, false
	}
	e, ok := t.entries[key]
	if !ok {
		return zero, false
	}
	return e.Value, true
}

// GetOrCreate returns the instantiation stored under key, calling build on a
// miss. Concurrent misses on the same key share one build call and the first
// value stored wins. hit reports whether this call found a value it did not
// store itself; only the call that stores a new entry counts as a miss.
func (r *Registry[V]) GetOrCreate(id TemplateID, key string, build func() (V, error)) (v V, hit bool, err error) {
	if v, ok, err := r.lookupCounted(id, key); err != nil || ok {
		if ok {
			r.hits.Add(1)
		}
		return v, ok, err
	}

	flightKey := fmt.Sprintf("%d\x00%s", id, key)
	ran, stored := false, false
	res, err, _ := r.group.Do(flightKey, func() (any, error) {
		ran = true
		if v, ok, _ := r.lookupCounted(id, key); ok {
			return v, nil
		}
		built, err := build()
		if err != nil {
			return nil, err
		}
		v, created, err := r.insert(id, key, built)
		stored = created
		return v, err
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !ran {
		// joined another caller's build
		_, _, _ = r.lookupCounted(id, key)
	}
	if stored {
		r.misses.Add(1)
		return res.(V), false, nil
	}
	r.hits.Add(1)
	return res.(V), true, nil
}

func (r *Registry[V]) lookupCounted(id TemplateID, key string) (V, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero V
	t, err := r.table(id)
	if err != nil {
		return zero, false, err
	}
	e, ok := t.entries[key]
	if !ok {
		return zero, false, nil
	}
	e.Requests++
	return e.Value, true, nil
}

func (r *Registry[V]) insert(id TemplateID, key string, v V) (V, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(id)
	if err != nil {
		return v, false, err
	}
	if e, ok := t.entries[key]; ok {
		e.Requests++
		return e.Value, false, nil
	}
	t.entries[key] = &Entry[V]{
		Key:      InstantiationKey{Template: id, Key: key},
		Value:    v,
		Requests: 1,
	}
	return v, true, nil
}

// Len returns the number of instantiations cached for id.
func (r *Registry[V]) Len(id TemplateID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(id)
	if err != nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a snapshot of the instantiations of id ordered by key.
func (r *Registry[V]) Entries(id TemplateID) []Entry[V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.table(id)
	if err != nil {
		return nil
	}
	out := make([]Entry[V], 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Key < out[j].Key.Key })
	return out
}

// Stats summarises registry usage.
type Stats struct {
	Templates      int    `json:"templates"`
	Instantiations int    `json:"instantiations"`
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
}

func (r *Registry[V]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Templates: len(r.templates), Hits: r.hits.Load(), Misses: r.misses.Load()}
	for i := range r.templates {
		s.Instantiations += len(r.templates[i].entries)
	}
	return s
}
