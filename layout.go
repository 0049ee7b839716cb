package attrtrail

import (
	"fmt"
	"reflect"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/attrtrail/internal/ident"
)

// KindNamer provides a custom kind name for an instrumented type.
type KindNamer interface {
	KindName() string
}

var kindNamerType = reflect.TypeOf((*KindNamer)(nil)).Elem()

// slot is a declared struct field.
type slot struct {
	name  string
	index []int
	typ   reflect.Type
}

// layout is the field surface of an instrumented type.
type layout struct {
	fields map[string]*slot
	order  []string

	// open is set for map types and for structs with an `,extra` map; names
	// outside fields are stored in that map.
	open  bool
	extra *slot // nil when the type itself is the map
	elem  reflect.Type
}

func resolveLayout(rt reflect.Type) (*layout, error) {
	switch rt.Kind() {
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key of %v must be a string", ErrUnsupportedType, rt)
		}
		return &layout{fields: map[string]*slot{}, open: true, elem: rt.Elem()}, nil
	case reflect.Struct:
	default:
		return nil, fmt.Errorf("%w: %v is neither a struct nor a map", ErrUnsupportedType, rt)
	}

	l := &layout{fields: map[string]*slot{}}
	for _, sf := range reflect.VisibleFields(rt) {
		if sf.Anonymous && sf.Type.Kind() == reflect.Pointer {
			return nil, fmt.Errorf("%w: %v embeds pointer %v", ErrUnsupportedType, rt, sf.Type)
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		if !sf.IsExported() {
			continue
		}
		tag := ident.ParseTag(sf.Tag.Get("trail"))
		if tag.Name == "-" {
			continue
		}
		if tag.Extra {
			if sf.Type.Kind() != reflect.Map || sf.Type.Key().Kind() != reflect.String {
				return nil, fmt.Errorf("%w: extra field %s of %v must be map[string]V", ErrUnsupportedType, sf.Name, rt)
			}
			if l.extra != nil {
				return nil, fmt.Errorf("%w: %v declares more than one extra field", ErrUnsupportedType, rt)
			}
			l.open = true
			l.extra = &slot{name: sf.Name, index: sf.Index, typ: sf.Type}
			l.elem = sf.Type.Elem()
			continue
		}
		name := tag.Name
		if name == "" {
			name = ident.Snake(sf.Name)
		}
		if _, dup := l.fields[name]; dup {
			return nil, fmt.Errorf("%w: %v declares field %q twice", ErrUnsupportedType, rt, name)
		}
		l.fields[name] = &slot{name: name, index: sf.Index, typ: sf.Type}
		l.order = append(l.order, name)
	}
	return l, nil
}

// openMap returns the map that holds undeclared names, addressable through rv.
func (l *layout) openMap(rv reflect.Value) reflect.Value {
	if l.extra == nil {
		return rv
	}
	return rv.FieldByIndex(l.extra.index)
}

// get reads name from rv. For declared fields the value is returned
// regardless of whether it was ever assigned; presence is tracked by Object.
func (l *layout) get(rv reflect.Value, name string) (any, bool) {
	if s, ok := l.fields[name]; ok {
		return rv.FieldByIndex(s.index).Interface(), true
	}
	if !l.open {
		return nil, false
	}
	m := l.openMap(rv)
	if m.IsNil() {
		return nil, false
	}
	v := m.MapIndex(reflect.ValueOf(name).Convert(m.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// prepare resolves name and converts v for assignment, without touching rv.
// The returned function performs the assignment and cannot fail. A
// rejection is reported as a FieldError carrying only the reason and sentinel.
func (l *layout) prepare(rv reflect.Value, name string, v any) (func(), *FieldError) {
	if s, ok := l.fields[name]; ok {
		val, ok := assignable(v, s.typ)
		if !ok {
			return nil, &FieldError{Reason: fmt.Sprintf("cannot assign to %v", s.typ), Err: ErrTypeMismatch}
		}
		return func() { rv.FieldByIndex(s.index).Set(val) }, nil
	}
	if !l.open {
		return nil, &FieldError{Reason: "no such field", Err: ErrFieldRejected}
	}
	if name == "" {
		return nil, &FieldError{Reason: "empty field name", Err: ErrFieldRejected}
	}
	val, ok := assignable(v, l.elem)
	if !ok {
		return nil, &FieldError{Reason: fmt.Sprintf("cannot assign to %v", l.elem), Err: ErrTypeMismatch}
	}
	return func() {
		m := l.openMap(rv)
		if m.IsNil() {
			m.Set(reflect.MakeMap(m.Type()))
		}
		m.SetMapIndex(reflect.ValueOf(name).Convert(m.Type().Key()), val)
	}, nil
}

// clone copies rv into dst, duplicating the open map so the two values do
// not share it.
func (l *layout) clone(dst, src reflect.Value) {
	dst.Set(src)
	if !l.open {
		return
	}
	sm := l.openMap(src)
	if sm.IsNil() {
		return
	}
	dm := reflect.MakeMapWithSize(sm.Type(), sm.Len())
	iter := sm.MapRange()
	for iter.Next() {
		dm.SetMapIndex(iter.Key(), iter.Value())
	}
	l.openMap(dst).Set(dm)
}

func assignable(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	val := reflect.ValueOf(v)
	if !val.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}
	return val, true
}

// resolveKind names an instrumented type for logs and metrics: KindNamer if
// implemented, else the pluralised snake_case type name.
func resolveKind(rt reflect.Type) string {
	if rt.Implements(kindNamerType) {
		if namer, ok := reflect.Zero(rt).Interface().(KindNamer); ok {
			if name := namer.KindName(); name != "" {
				return name
			}
		}
	}
	if reflect.PointerTo(rt).Implements(kindNamerType) {
		if namer, ok := reflect.New(rt).Interface().(KindNamer); ok {
			if name := namer.KindName(); name != "" {
				return name
			}
		}
	}
	base := ident.BaseTypeName(rt.Name())
	if base == "" {
		return "objects"
	}
	return inflection.Plural(ident.Snake(base))
}
