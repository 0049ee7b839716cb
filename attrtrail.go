// Package attrtrail records the history of field writes on Go values.
//
// A type is instrumented once with Instrument. Every Object created through
// the resulting Type routes its writes through Set, which appends an
// (old, new) Transition to the instance's record before assigning.
//
//	type Point struct{ X, Y int }
//
//	points := attrtrail.MustInstrument[Point](attrtrail.WithDefaults(Point{}))
//	p, _ := points.New(func(s attrtrail.Setter) error { return s.Set("x", 1) })
//	_ = p.Set("x", 50)
//	h, _ := p.History()
//	h.Field("x") // [(0, 1) (1, 50)]
package attrtrail

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"weak"

	"github.com/mickamy/attrtrail/internal/logging"
)

// RedactFunc defines a function used to sanitize or mask values before they are recorded.
type RedactFunc func(field string, v any) any

// RedactMap maps field names to specific redaction functions.
type RedactMap map[string]RedactFunc

// Config defines the static configuration of an instrumented type.
type Config struct {
	Kind   string    // overrides the derived kind name (e.g. "points")
	Redact RedactMap // optional field-keyed redaction of recorded values
}

// applyRedact returns the value to record for field.
func (c Config) applyRedact(field string, v any) any {
	if fn, ok := c.Redact[field]; ok && fn != nil {
		return fn(field, v)
	}
	return v
}

type settings struct {
	cfg      Config
	store    *Store
	defaults any
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures Instrument.
type Option func(*settings)

// WithConfig replaces the type's Config.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithRedact registers a redaction function for one field.
func WithRedact(field string, fn RedactFunc) Option {
	return func(s *settings) {
		if s.cfg.Redact == nil {
			s.cfg.Redact = RedactMap{}
		}
		s.cfg.Redact[field] = fn
	}
}

// WithStore records history in store instead of DefaultStore.
func WithStore(store *Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithDefaults seeds every new instance with v, which must be of the
// instrumented type. Seeded fields count as already set, so their first
// tracked write records the default as the old value.
func WithDefaults(v any) Option {
	return func(s *settings) {
		s.defaults = v
	}
}

// WithLogger sets the logger used for write and construction events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLogLevel logs to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(s *settings) {
		s.logger = logging.New(level)
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// Type is an instrumented T. It is safe for concurrent use.
type Type[T any] struct {
	cfg      Config
	kind     string
	layout   *layout
	store    *Store
	defaults *T
	logger   *slog.Logger
	metrics  *Metrics
}

// Instrument prepares T for history tracking. T must be a struct or a
// map with string keys.
func Instrument[T any](opts ...Option) (*Type[T], error) {
	s := settings{
		store:  DefaultStore,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	rt := reflect.TypeFor[T]()
	l, err := resolveLayout(rt)
	if err != nil {
		return nil, err
	}
	t := &Type[T]{
		cfg:     s.cfg,
		kind:    s.cfg.Kind,
		layout:  l,
		store:   s.store,
		logger:  s.logger,
		metrics: s.metrics,
	}
	if t.kind == "" {
		t.kind = resolveKind(rt)
	}
	if s.store == nil {
		t.store = DefaultStore
	}
	if s.logger == nil {
		t.logger = logging.NewNop()
	}
	if s.defaults != nil {
		d, ok := s.defaults.(T)
		if !ok {
			return nil, fmt.Errorf("%w: defaults of type %T for %v", ErrUnsupportedType, s.defaults, rt)
		}
		t.defaults = &d
	}
	return t, nil
}

// MustInstrument is like Instrument but panics on error.
func MustInstrument[T any](opts ...Option) *Type[T] {
	t, err := Instrument[T](opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Kind returns the name used for this type in logs and metrics.
func (t *Type[T]) Kind() string {
	return t.kind
}

// Fields returns the declared field names in declaration order.
func (t *Type[T]) Fields() []string {
	out := make([]string, len(t.layout.order))
	copy(out, t.layout.order)
	return out
}

// Store returns the store holding this type's records.
func (t *Type[T]) Store() *Store {
	return t.store
}

// New creates an instance. Its record is registered before init runs, so
// writes made by init are recorded from their first assignment. An error
// from init is returned unchanged and the record is dropped.
func (t *Type[T]) New(init func(Setter) error) (*Object[T], error) {
	o := &Object[T]{typ: t, present: make(map[string]bool)}
	if t.defaults != nil {
		t.layout.clone(reflect.ValueOf(&o.val).Elem(), reflect.ValueOf(t.defaults).Elem())
		for _, name := range t.layout.order {
			o.present[name] = true
		}
	}

	key := weak.Make(o)
	o.key = key
	t.store.Register(key)
	t.metrics.registered(t.kind)
	cleanup := runtime.AddCleanup(o, t.release, any(key))

	if init != nil {
		if err := init(o); err != nil {
			cleanup.Stop()
			t.release(key)
			t.logger.Warn("construction failed", "kind", t.kind, "err", err)
			return nil, err
		}
	}
	return o, nil
}

func (t *Type[T]) release(key any) {
	t.store.Unregister(key)
	t.metrics.released(t.kind)
}

// Constructor wraps ctor into a constructor of instrumented instances with
// the same argument shape.
//
//	newPoint := attrtrail.Constructor(points, func(s attrtrail.Setter, p [2]int) error { ... })
//	p, err := newPoint([2]int{1, 2})
func Constructor[T, A any](t *Type[T], ctor func(Setter, A) error) func(A) (*Object[T], error) {
	return func(args A) (*Object[T], error) {
		return t.New(func(s Setter) error {
			return ctor(s, args)
		})
	}
}
