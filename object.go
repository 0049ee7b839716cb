package attrtrail

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Setter is the write surface handed to construction logic. Base-type
// construction written against Setter can be reused by types that embed it.
type Setter interface {
	Set(name string, v any) error
	SetContext(ctx context.Context, name string, v any) error
	Get(name string) (any, bool)
}

// Object is an instrumented instance of T. All writes go through Set, so
// the value is held privately; use Get or Value to read it.
type Object[T any] struct {
	mu      sync.Mutex
	typ     *Type[T]
	key     any // weak pointer to the object itself
	val     T
	present map[string]bool // declared fields that hold a value
}

var _ Setter = (*Object[struct{}])(nil)

// Set assigns v to the field name and records the transition.
func (o *Object[T]) Set(name string, v any) error {
	return o.SetContext(context.Background(), name, v)
}

// SetContext is like Set and stamps the transition with the metadata
// attached to ctx by WithOperator, WithTraceID and WithReason.
//
// A rejected write (unknown field on a fixed field set, or a value of the
// wrong type) leaves both the value and the history untouched.
func (o *Object[T]) SetContext(ctx context.Context, name string, v any) error {
	t := o.typ
	if t == nil {
		return fmt.Errorf("%w: write to %q on an object not created by Type.New", ErrStoreConsistency, name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	rv := reflect.ValueOf(&o.val).Elem()
	assign, fe := t.layout.prepare(rv, name, v)
	if fe != nil {
		fe.Kind, fe.Field, fe.Value = t.kind, name, v
		t.metrics.rejectedWrite(t.kind, fe)
		t.logger.Warn("write rejected", "kind", t.kind, "field", name, "err", fe)
		return fe
	}

	tr := Transition{New: t.cfg.applyRedact(name, v), Meta: extractMeta(ctx)}
	if old, ok := o.current(rv, name); ok {
		tr.Old = t.cfg.applyRedact(name, old)
		tr.HasOld = true
	}
	if err := t.store.Record(o.key, name, tr); err != nil {
		t.metrics.rejectedWrite(t.kind, err)
		t.logger.Error("write not recorded", "kind", t.kind, "field", name, "err", err)
		return err
	}

	assign()
	if _, ok := t.layout.fields[name]; ok {
		o.present[name] = true
	}
	t.metrics.recorded(t.kind)
	t.logger.Debug("field assigned", "kind", t.kind, "field", name)
	return nil
}

// current returns the value name holds, if it holds one.
func (o *Object[T]) current(rv reflect.Value, name string) (any, bool) {
	v, ok := o.typ.layout.get(rv, name)
	if !ok {
		return nil, false
	}
	if _, declared := o.typ.layout.fields[name]; declared && !o.present[name] {
		return nil, false
	}
	return v, true
}

// Get returns the value of name and whether it holds one. A declared field
// that was never assigned reports its zero value and false.
func (o *Object[T]) Get(name string) (any, bool) {
	if o.typ == nil {
		return nil, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	rv := reflect.ValueOf(&o.val).Elem()
	if _, declared := o.typ.layout.fields[name]; declared {
		v, _ := o.typ.layout.get(rv, name)
		return v, o.present[name]
	}
	return o.typ.layout.get(rv, name)
}

// Value returns a copy of the current value.
func (o *Object[T]) Value() T {
	var out T
	if o.typ == nil {
		return out
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typ.layout.clone(reflect.ValueOf(&out).Elem(), reflect.ValueOf(&o.val).Elem())
	return out
}

// History returns a fresh accessor over this instance's record.
func (o *Object[T]) History() (*History, error) {
	if o.typ == nil {
		return nil, fmt.Errorf("%w: object not created by Type.New", ErrUnregistered)
	}
	return o.typ.store.Accessor(o.key)
}
