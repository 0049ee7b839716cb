package attrtrail

import "fmt"

// Transition is one recorded assignment: the value a field held before the
// write and the value written. HasOld is false when the field had no value
// (never assigned and no default), in which case Old is nil.
type Transition struct {
	Old    any
	New    any
	HasOld bool
	Meta   Meta
}

// Meta carries operational context for a write made through SetContext.
type Meta struct {
	Operator string
	TraceID  string
	Reason   string
}

// Absent builds the transition recorded for a first write.
func Absent(v any) Transition {
	return Transition{New: v}
}

// Changed builds the transition recorded when the field already held old.
func Changed(old, v any) Transition {
	return Transition{Old: old, New: v, HasOld: true}
}

func (t Transition) String() string {
	if !t.HasOld {
		return fmt.Sprintf("(<absent>, %v)", t.New)
	}
	return fmt.Sprintf("(%v, %v)", t.Old, t.New)
}
