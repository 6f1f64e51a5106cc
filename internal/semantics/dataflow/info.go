package dataflow

import (
	"sort"
	"strconv"
	"strings"

	"jetc/internal/types"
)

// Info is an immutable map of facts about stable values. Every operation
// returns a new Info and leaves the receiver untouched, so branches can keep
// the Info of their parent.
type Info struct {
	nullability map[key]Nullability
	types       map[key][]*types.Type
}

var empty = &Info{}

// Empty is the Info at subroutine entry.
func Empty() *Info { return empty }

func (i *Info) copy() *Info {
	out := &Info{
		nullability: make(map[key]Nullability, len(i.nullability)+1),
		types:       make(map[key][]*types.Type, len(i.types)),
	}
	for k, v := range i.nullability {
		out.nullability[k] = v
	}
	for k, v := range i.types {
		out.types[k] = v
	}
	return out
}

// IsEmpty reports an Info without facts.
func (i *Info) IsEmpty() bool {
	return len(i.nullability) == 0 && len(i.types) == 0
}

// Nullability is what is known about v on this path.
func (i *Info) Nullability(v Value) Nullability {
	if !v.Trackable() {
		return v.Immanent
	}
	if n, ok := i.nullability[v.key()]; ok {
		return n
	}
	return v.Immanent
}

// PossibleTypes lists the types v was checked against on this path.
func (i *Info) PossibleTypes(v Value) []*types.Type {
	if !v.Trackable() {
		return nil
	}
	return i.types[v.key()]
}

func (i *Info) withNullability(v Value, n Nullability) *Info {
	if !v.Trackable() || i.Nullability(v) == n {
		return i
	}
	out := i.copy()
	if n == v.Immanent {
		delete(out.nullability, v.key())
	} else {
		out.nullability[v.key()] = n
	}
	return out
}

// EqualsToNull records that v is null.
func (i *Info) EqualsToNull(v Value) *Info {
	return i.withNullability(v, i.Nullability(v).And(Null))
}

// DisequateFromNull records that v is not null.
func (i *Info) DisequateFromNull(v Value) *Info {
	return i.withNullability(v, i.Nullability(v).And(NotNull))
}

// Equate records the facts of `a == b`: both sides share their nullability.
func (i *Info) Equate(a, b Value) *Info {
	n := i.Nullability(a).And(i.Nullability(b))
	return i.withNullability(a, n).withNullability(b, n)
}

// EstablishSubtyping records that v is an instance of t.
func (i *Info) EstablishSubtyping(v Value, t *types.Type) *Info {
	if !v.Trackable() || t == nil || t.IsError() {
		return i
	}
	out := i.copy()
	k := v.key()
	out.types[k] = appendType(out.types[k], t)
	if n := out.Nullability(v).And(NotNull); !t.Nullable() && n != v.Immanent {
		out.nullability[k] = n
	}
	return out
}

// Assign forgets what was known about v and takes the nullability of the
// assigned value.
func (i *Info) Assign(v, from Value) *Info {
	if !v.Trackable() {
		return i
	}
	n := i.Nullability(from)
	out := i.copy()
	delete(out.types, v.key())
	if n == v.Immanent {
		delete(out.nullability, v.key())
	} else {
		out.nullability[v.key()] = n
	}
	return out
}

// And combines facts holding at the same time, e.g. after `a && b`.
func (i *Info) And(o *Info) *Info {
	if o.IsEmpty() {
		return i
	}
	if i.IsEmpty() {
		return o
	}
	out := i.copy()
	for k, n := range o.nullability {
		if cur, ok := out.nullability[k]; ok {
			out.nullability[k] = cur.And(n)
		} else {
			out.nullability[k] = n
		}
	}
	for k, ts := range o.types {
		for _, t := range ts {
			out.types[k] = appendType(out.types[k], t)
		}
	}
	return out
}

// Or keeps the facts that hold on both of two paths meeting at a
// confluence point.
func (i *Info) Or(o *Info) *Info {
	if i == o {
		return i
	}
	out := &Info{
		nullability: make(map[key]Nullability),
		types:       make(map[key][]*types.Type),
	}
	// a key missing on one side holds its immanent nullability there, which
	// differs from any recorded fact, so only shared keys survive
	for k, n := range i.nullability {
		if m, ok := o.nullability[k]; ok {
			if r := n.Or(m); r != Unknown {
				out.nullability[k] = r
			}
		}
	}
	for k, ts := range i.types {
		for _, t := range ts {
			if containsType(o.types[k], t) {
				out.types[k] = append(out.types[k], t)
			}
		}
	}
	return out
}

// String lists the facts for debugging.
func (i *Info) String() string {
	var parts []string
	for k, n := range i.nullability {
		parts = append(parts, describeKey(k)+": "+n.String())
	}
	for k, ts := range i.types {
		parts = append(parts, describeKey(k)+" is "+types.TypeList(ts))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, "; ") + "}"
}

func describeKey(k key) string {
	var sb strings.Builder
	switch k.kind {
	case This:
		sb.WriteString("this")
	case Property:
		sb.WriteString("prop")
	default:
		sb.WriteString("var")
	}
	sb.WriteString("#")
	sb.WriteString(strconv.Itoa(int(k.id)))
	return sb.String()
}

func appendType(ts []*types.Type, t *types.Type) []*types.Type {
	if containsType(ts, t) {
		return ts
	}
	out := make([]*types.Type, len(ts), len(ts)+1)
	copy(out, ts)
	return append(out, t)
}

func containsType(ts []*types.Type, t *types.Type) bool {
	for _, x := range ts {
		if sameType(x, t) {
			return true
		}
	}
	return false
}

// sameType is structural identity; facts never hold error types.
func sameType(a, b *types.Type) bool {
	if a == b {
		return true
	}
	if a.Ctor() != b.Ctor() || a.Nullable() != b.Nullable() || len(a.Args()) != len(b.Args()) {
		return false
	}
	for i, pa := range a.Args() {
		pb := b.Arg(i)
		if pa.Kind != pb.Kind {
			return false
		}
		if pa.Kind != types.ProjStar && !sameType(pa.Type, pb.Type) {
			return false
		}
	}
	return true
}
