package attrtrail

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/mickamy/attrtrail/internal/buffer"
)

// DefaultStore is the process-wide store used by types instrumented without WithStore.
var DefaultStore = NewStore()

// record is the history of one instance: field name -> chronological transitions.
type record struct {
	mu     sync.Mutex
	fields map[string]*buffer.Buffer[Transition]
}

func newRecord() *record {
	return &record{fields: make(map[string]*buffer.Buffer[Transition])}
}

func (r *record) append(field string, t Transition) {
	r.mu.Lock()
	buf, ok := r.fields[field]
	if !ok {
		buf = buffer.NewBuffer[Transition]()
		r.fields[field] = buf
	}
	r.mu.Unlock()
	buf.Add(t)
}

func (r *record) field(name string) []Transition {
	r.mu.Lock()
	buf, ok := r.fields[name]
	r.mu.Unlock()
	if !ok {
		return []Transition{}
	}
	return buf.Snapshot()
}

func (r *record) all() map[string][]Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]Transition, len(r.fields))
	for name, buf := range r.fields {
		out[name] = buf.Snapshot()
	}
	return out
}

func (r *record) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.fields))
}

// clear empties the named fields, keeping them as empty entries, or drops
// every field when none are named.
func (r *record) clear(fields ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(fields) == 0 {
		r.fields = make(map[string]*buffer.Buffer[Transition])
		return
	}
	for _, name := range fields {
		if buf, ok := r.fields[name]; ok {
			buf.Reset()
			continue
		}
		r.fields[name] = buffer.NewBuffer[Transition]()
	}
}

// Store maps instance identity to its history record.
// Keys must be comparable; objects created by Type.New use a weak pointer to
// themselves, so the store never keeps an instance alive.
type Store struct {
	mu      sync.RWMutex
	records map[any]*record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[any]*record)}
}

// Register creates an empty record for key, discarding any previous one.
func (s *Store) Register(key any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = newRecord()
}

// Unregister drops the record for key. It is a no-op for unknown keys.
func (s *Store) Unregister(key any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Len reports the number of registered records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) lookup(key any) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Record appends t to the transitions of field for key.
func (s *Store) Record(key any, field string, t Transition) error {
	rec, ok := s.lookup(key)
	if !ok {
		return fmt.Errorf("%w: record %q before register", ErrStoreConsistency, field)
	}
	rec.append(field, t)
	return nil
}

// Accessor returns a fresh view bound to the record for key.
func (s *Store) Accessor(key any) (*History, error) {
	rec, ok := s.lookup(key)
	if !ok {
		return nil, ErrUnregistered
	}
	return &History{rec: rec}, nil
}

// All returns a snapshot of the record for key.
func (s *Store) All(key any) (map[string][]Transition, error) {
	rec, ok := s.lookup(key)
	if !ok {
		return nil, ErrUnregistered
	}
	return rec.all(), nil
}

// Clear empties the given fields of the record for key, or the whole record
// when no field is given.
func (s *Store) Clear(key any, fields ...string) error {
	rec, ok := s.lookup(key)
	if !ok {
		return ErrUnregistered
	}
	rec.clear(fields...)
	return nil
}

// History is a read view over one instance's record. It holds no cached
// state: every call observes the latest writes.
type History struct {
	rec *record
}

// Field returns the transitions recorded for name, oldest first. The result
// is empty, never nil, when name was never assigned.
func (h *History) Field(name string) []Transition {
	return h.rec.field(name)
}

// All returns a copy of every field's transitions.
func (h *History) All() map[string][]Transition {
	return h.rec.all()
}

// Fields returns the names that have an entry in the record, sorted.
func (h *History) Fields() []string {
	return h.rec.names()
}

// Clear empties the named fields, or the whole record when called without arguments.
func (h *History) Clear(fields ...string) {
	h.rec.clear(fields...)
}

func (h *History) String() string {
	all := h.rec.all()
	var b strings.Builder
	b.WriteString("History{")
	for i, name := range slices.Sorted(maps.Keys(all)) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", name, all[name])
	}
	b.WriteString("}")
	return b.String()
}
