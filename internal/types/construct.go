package types

import (
	"jetc/internal/invariant"
)

// ClassType builds C<args...> with invariant arguments.
func (t *Table) ClassType(class ID, args ...*Type) *Type {
	projs := make([]Projection, len(args))
	for i, a := range args {
		projs[i] = Inv(a)
	}
	return t.ProjectedType(class, projs, false)
}

// ProjectedType builds a class type with explicit projections. The number of
// arguments must match the class's type parameters.
func (t *Table) ProjectedType(class ID, args []Projection, nullable bool) *Type {
	d := t.Get(class)
	invariant.Check(d.Kind == KindClass, "%s %s is not a class", d.Kind, d.Name)
	ctor := Constructor{Kind: CtorClass, Decl: class, Name: d.Name}
	if n := ctor.paramCount(t); n != len(args) {
		invariant.Failf("class %s takes %d type arguments, got %d", d.Name, n, len(args))
	}
	return newType(ctor, args, nullable)
}

// DefaultType is the class applied to its own type parameters.
func (t *Table) DefaultType(class ID) *Type {
	d := t.Get(class)
	args := make([]*Type, len(d.Class.TypeParams))
	for i, tp := range d.Class.TypeParams {
		args[i] = t.TypeParamType(tp)
	}
	return t.ClassType(class, args...)
}

// TypeParamType is the type denoting a type parameter.
func (t *Table) TypeParamType(tp ID) *Type {
	d := t.Get(tp)
	invariant.Check(d.Kind == KindTypeParam, "%s %s is not a type parameter", d.Kind, d.Name)
	return newType(Constructor{Kind: CtorTypeParam, Decl: tp, Name: d.Name}, nil, false)
}

// SelfType is `This` inside class.
func (t *Table) SelfType(class ID) *Type {
	d := t.Get(class)
	return newType(Constructor{Kind: CtorSelf, Decl: class, Name: d.Name}, nil, false)
}

// Rebuild returns a type with the same constructor and new arguments.
func (t *Table) Rebuild(orig *Type, args []Projection, nullable bool) *Type {
	if n := orig.ctor.paramCount(t); n != len(args) {
		invariant.Failf("%s takes %d type arguments, got %d", orig.ctor.Name, n, len(args))
	}
	return newType(orig.ctor, args, nullable)
}

// UpperBounds of a type parameter; Any? when none were declared.
func (t *Table) UpperBounds(tp ID) []*Type {
	d := t.Get(tp)
	if len(d.TypeParam.Bounds) == 0 {
		return []*Type{t.builtins.NullableAny}
	}
	return d.TypeParam.Bounds
}

// ParamVariance is the declared variance of argument i of ctor. Function
// types are contravariant in receiver and parameters and covariant in the
// result; tuples are covariant.
func (t *Table) ParamVariance(ctor Constructor, i int) Variance {
	switch ctor.Kind {
	case CtorClass:
		tp := t.Get(ctor.Decl).Class.TypeParams[i]
		return t.Get(tp).TypeParam.Variance
	case CtorFunction:
		n := ctor.Arity
		if ctor.HasReceiver {
			n++
		}
		if i == n {
			return Out
		}
		return In
	case CtorTuple:
		return Out
	}
	return Invariant
}

// Erasure renders the erased form of a type, used for signature clashes.
func (t *Table) Erasure(ty *Type) string {
	switch ty.ctor.Kind {
	case CtorClass:
		return t.QualifiedName(ty.ctor.Decl)
	case CtorTypeParam:
		bounds := t.UpperBounds(ty.ctor.Decl)
		return t.Erasure(bounds[0])
	case CtorSelf:
		return t.QualifiedName(ty.ctor.Decl)
	case CtorFunction, CtorTuple:
		return ty.ctor.Name
	}
	return "?"
}

// IsPrimitive reports the built-in value classes that map to machine
// primitives when not nullable.
func (t *Table) IsPrimitive(ty *Type) bool {
	return ty.IsClass() && !ty.nullable && t.builtins.isPrimitive(ty.ctor.Decl)
}

// NumericRank orders numeric classes for widening: Byte < Short < Int <
// Long < Float < Double. Non-numeric types rank 0.
func (t *Table) NumericRank(ty *Type) int {
	if !ty.IsClass() {
		return 0
	}
	b := t.builtins
	switch ty.ctor.Decl {
	case b.Byte:
		return 1
	case b.Short:
		return 2
	case b.Int:
		return 3
	case b.Long:
		return 4
	case b.Float:
		return 5
	case b.Double:
		return 6
	}
	return 0
}

// IsClassType reports whether ty is built on class c, ignoring nullability.
func IsClassType(ty *Type, c ID) bool {
	return ty != nil && ty.IsClass() && ty.ctor.Decl == c
}
