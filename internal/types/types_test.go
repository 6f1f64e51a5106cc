package types

import (
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/invariant"
)

// fixture declares a small user hierarchy next to the built-ins:
//
//	open class Base<out T>
//	class Derived : Base<String>
//	class Box<T>
//	class Sink<in T>
//	open class Shape
//	final class Circle : Shape
type fixture struct {
	t       *Table
	c       *Checker
	b       *Builtins
	base    ID
	derived ID
	box     ID
	sink    ID
	shape   ID
	circle  ID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tab := NewTable()
	pkg := tab.Package("app")
	f := &fixture{t: tab, b: tab.Builtins()}

	class := func(name string, mod Modality, tps ...Variance) ID {
		id := tab.Add(&Descriptor{Kind: KindClass, Name: name, Owner: pkg, Modality: mod, Class: &ClassInfo{}})
		for i, v := range tps {
			tp := tab.Add(&Descriptor{Kind: KindTypeParam, Name: string(rune('T' + i)), Owner: id,
				TypeParam: &TypeParamInfo{Variance: v, Index: i}})
			tab.Get(id).Class.TypeParams = append(tab.Get(id).Class.TypeParams, tp)
		}
		tab.AddMember(pkg, id)
		return id
	}
	supers := func(id ID, sts ...*Type) {
		tab.Update(id, func(d *Descriptor) { d.Class.Supertypes = sts })
	}

	f.base = class("Base", Open, Out)
	f.derived = class("Derived", Final)
	f.box = class("Box", Final, Invariant)
	f.sink = class("Sink", Final, In)
	f.shape = class("Shape", Open)
	f.circle = class("Circle", Final)

	supers(f.base, f.b.AnyType)
	supers(f.derived, tab.ClassType(f.base, f.b.StringType))
	supers(f.box, f.b.AnyType)
	supers(f.sink, f.b.AnyType)
	supers(f.shape, f.b.AnyType)
	supers(f.circle, tab.ClassType(f.shape))
	tab.Seal()

	f.c = NewChecker(tab, opts...)
	return f
}

func (f *fixture) sample() []*Type {
	b := f.b
	ts := []*Type{
		b.AnyType, b.NothingType, b.IntType, b.StringType, b.LongType,
		f.t.ClassType(f.derived),
		f.t.ClassType(f.base, b.StringType),
		f.t.ClassType(f.base, b.AnyType),
		f.t.ClassType(f.box, b.IntType),
		f.t.ClassType(f.box, MakeNullable(b.IntType)),
		f.t.ClassType(f.sink, b.AnyType),
		f.t.ClassType(f.sink, b.StringType),
		f.t.ClassType(f.circle),
		f.t.SelfType(f.circle),
		f.t.SelfType(f.shape),
		f.t.ClassType(b.Comparable, b.IntType),
		FunctionType(nil, []*Type{b.AnyType}, b.IntType),
		FunctionType(nil, []*Type{b.StringType}, b.AnyType),
		FunctionType(b.IntType, []*Type{b.StringType}, b.UnitType),
		FunctionType(nil, []*Type{b.IntType, b.StringType}, b.UnitType),
		TupleType([]*Type{b.IntType, b.StringType}),
	}
	for _, t := range ts[:len(ts):len(ts)] {
		ts = append(ts, MakeNullable(t))
	}
	return ts
}

func TestSubtypeReflexive(t *testing.T) {
	f := newFixture(t)
	for _, ty := range f.sample() {
		if !f.c.IsSubtypeOf(ty, ty) {
			t.Errorf("%s should be a subtype of itself", ty)
		}
	}
}

func TestSubtypeAntisymmetric(t *testing.T) {
	f := newFixture(t)
	ts := f.sample()
	for _, a := range ts {
		for _, b := range ts {
			if f.c.IsSubtypeOf(a, b) && f.c.IsSubtypeOf(b, a) && !f.c.Equal(a, b) {
				t.Errorf("%s <: %s and back, but not equal", a, b)
			}
		}
	}
}

func TestReceiverFormsAreEqual(t *testing.T) {
	f := newFixture(t)
	b := f.b
	withRecv := FunctionType(b.IntType, []*Type{b.StringType}, b.UnitType)
	plain := FunctionType(nil, []*Type{b.IntType, b.StringType}, b.UnitType)
	be.True(t, f.c.IsSubtypeOf(withRecv, plain))
	be.True(t, f.c.IsSubtypeOf(plain, withRecv))
	be.True(t, f.c.Equal(withRecv, plain))
	be.True(t, f.c.Equal(plain, withRecv))

	other := FunctionType(nil, []*Type{b.StringType, b.IntType}, b.UnitType)
	be.True(t, !f.c.Equal(withRecv, other))
}

func TestNullabilityMonotonic(t *testing.T) {
	f := newFixture(t)
	ts := f.sample()
	for _, a := range ts {
		for _, b := range ts {
			if a.Nullable() && !b.Nullable() && f.c.IsSubtypeOf(a, b) {
				t.Errorf("nullable %s must not be a subtype of non-null %s", a, b)
			}
			if !a.Nullable() && f.c.IsSubtypeOf(a, b) && !f.c.IsSubtypeOf(a, MakeNullable(b)) {
				t.Errorf("%s <: %s but not <: %s?", a, b, b)
			}
		}
	}
}

func TestSubtypeCases(t *testing.T) {
	f := newFixture(t)
	b := f.b
	tab := f.t
	tests := []struct {
		name       string
		sub, super *Type
		want       bool
	}{
		{"int to any", b.IntType, b.AnyType, true},
		{"nullable int to any", MakeNullable(b.IntType), b.AnyType, false},
		{"nullable int to any?", MakeNullable(b.IntType), b.NullableAny, true},
		{"null type to string?", b.NullType, MakeNullable(b.StringType), true},
		{"null type to string", b.NullType, b.StringType, false},
		{"nothing to string", b.NothingType, b.StringType, true},
		{"derived to base<string>", tab.ClassType(f.derived), tab.ClassType(f.base, b.StringType), true},
		{"derived to base<any> (covariant)", tab.ClassType(f.derived), tab.ClassType(f.base, b.AnyType), true},
		{"derived to base<int>", tab.ClassType(f.derived), tab.ClassType(f.base, b.IntType), false},
		{"box invariant", tab.ClassType(f.box, b.IntType), tab.ClassType(f.box, b.AnyType), false},
		{"box star", tab.ClassType(f.box, b.IntType), tab.ProjectedType(f.box, []Projection{Star()}, false), true},
		{"box out projection", tab.ClassType(f.box, b.IntType),
			tab.ProjectedType(f.box, []Projection{{Kind: ProjOut, Type: b.AnyType}}, false), true},
		{"box in projection", tab.ClassType(f.box, b.AnyType),
			tab.ProjectedType(f.box, []Projection{{Kind: ProjIn, Type: b.IntType}}, false), true},
		{"sink contravariant", tab.ClassType(f.sink, b.AnyType), tab.ClassType(f.sink, b.StringType), true},
		{"sink wrong way", tab.ClassType(f.sink, b.StringType), tab.ClassType(f.sink, b.AnyType), false},
		{"nullable argument mismatch", tab.ClassType(f.box, MakeNullable(b.IntType)), tab.ClassType(f.box, b.IntType), false},
		{"nullable argument under out", tab.ClassType(f.base, b.StringType), tab.ClassType(f.base, b.NullableAny), false},
		{"int to comparable<int>", b.IntType, tab.ClassType(b.Comparable, b.IntType), true},
		{"int to long without widening", b.IntType, b.LongType, false},
		{"self to own class", tab.SelfType(f.shape), tab.ClassType(f.shape), true},
		{"open class to self", tab.ClassType(f.shape), tab.SelfType(f.shape), false},
		{"final class to self", tab.ClassType(f.circle), tab.SelfType(f.circle), true},
		{"self of subclass to base", tab.SelfType(f.circle), tab.ClassType(f.shape), true},
		{"self vs other self", tab.SelfType(f.circle), tab.SelfType(f.shape), false},
		{"function param contravariance",
			FunctionType(nil, []*Type{b.AnyType}, b.IntType),
			FunctionType(nil, []*Type{b.StringType}, b.AnyType), true},
		{"function result covariance violated",
			FunctionType(nil, []*Type{b.StringType}, b.AnyType),
			FunctionType(nil, []*Type{b.StringType}, b.IntType), false},
		{"function arity mismatch",
			FunctionType(nil, []*Type{b.StringType}, b.AnyType),
			FunctionType(nil, nil, b.AnyType), false},
		{"receiver function as plain function",
			FunctionType(b.StringType, nil, b.IntType),
			FunctionType(nil, []*Type{b.StringType}, b.IntType), true},
		{"function to any", FunctionType(nil, nil, b.UnitType), b.AnyType, true},
		{"function to class fast reject", FunctionType(nil, nil, b.UnitType), tab.ClassType(f.shape), false},
		{"tuple covariance", TupleType([]*Type{b.IntType}), TupleType([]*Type{b.AnyType}), true},
		{"tuple to class", TupleType([]*Type{b.IntType}), b.StringType, false},
		{"error both ways", ErrorType(), b.IntType, true},
		{"error as super", b.StringType, ErrorType(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.c.IsSubtypeOf(tt.sub, tt.super); got != tt.want {
				t.Errorf("IsSubtypeOf(%s, %s) = %v, want %v", tt.sub, tt.super, got, tt.want)
			}
		})
	}
}

func TestNumericWideningPolicy(t *testing.T) {
	f := newFixture(t, WithPolicy(DefaultPolicy{NumericWidening: true}))
	be.True(t, f.c.IsSubtypeOf(f.b.IntType, f.b.LongType))
	be.True(t, f.c.IsSubtypeOf(f.b.ByteType, f.b.DoubleType))
	be.True(t, !f.c.IsSubtypeOf(f.b.LongType, f.b.IntType))
	be.True(t, !f.c.IsSubtypeOf(f.b.CharType, f.b.IntType))
}

func TestTypeParameterBounds(t *testing.T) {
	f := newFixture(t)
	tab := f.t
	fn := tab.Add(&Descriptor{Kind: KindFunction, Name: "f", Func: &FuncInfo{}})
	bounded := tab.Add(&Descriptor{Kind: KindTypeParam, Name: "S", Owner: fn,
		TypeParam: &TypeParamInfo{Bounds: []*Type{tab.ClassType(f.shape)}}})
	free := tab.Add(&Descriptor{Kind: KindTypeParam, Name: "U", Owner: fn, TypeParam: &TypeParamInfo{}})

	s, u := tab.TypeParamType(bounded), tab.TypeParamType(free)
	be.True(t, f.c.IsSubtypeOf(s, tab.ClassType(f.shape)))
	be.True(t, f.c.IsSubtypeOf(s, f.b.AnyType))
	be.True(t, !f.c.IsSubtypeOf(u, f.b.AnyType))
	be.True(t, f.c.IsSubtypeOf(u, f.b.NullableAny))
	be.True(t, f.c.IsSubtypeOf(MakeNullable(u), f.b.NullableAny))
	be.True(t, f.c.IsSubtypeOf(MakeNullable(s), MakeNullable(tab.ClassType(f.shape))))
	be.True(t, !f.c.IsSubtypeOf(MakeNullable(s), tab.ClassType(f.shape)))
	be.True(t, !f.c.IsSubtypeOf(tab.ClassType(f.circle), s))
	be.True(t, f.c.IsSubtypeOf(f.b.NothingType, s))
}

func TestSameSignatureMatchesMethodTypeParameters(t *testing.T) {
	tab := NewTable()
	pkg := tab.Package("app")
	b := tab.Builtins()

	// fun <T> name(x: T) in its own class, or name(x: Int) when generic is false
	method := func(class, name string, generic bool) ID {
		owner := tab.Add(&Descriptor{Kind: KindClass, Name: class, Owner: pkg, Class: &ClassInfo{}})
		fn := tab.Add(&Descriptor{Kind: KindFunction, Name: name, Owner: owner, Func: &FuncInfo{Result: b.UnitType}})
		pt := b.IntType
		if generic {
			tp := tab.Add(&Descriptor{Kind: KindTypeParam, Name: "T", Owner: fn, TypeParam: &TypeParamInfo{}})
			tab.Update(fn, func(d *Descriptor) { d.Func.TypeParams = []ID{tp} })
			pt = tab.TypeParamType(tp)
		}
		x := tab.Add(&Descriptor{Kind: KindVariable, Name: "x", Owner: fn, Var: &VarInfo{Storage: StorageParameter, Type: pt}})
		tab.Update(fn, func(d *Descriptor) { d.Func.Params = []ID{x} })
		return fn
	}
	a := method("A", "map", true)
	other := method("B", "map", true)
	plain := method("C", "map", false)
	tab.Seal()
	c := NewChecker(tab)

	be.True(t, c.SameSignature(Member{ID: a}, Member{ID: other}))
	be.True(t, !c.SameSignature(Member{ID: a}, Member{ID: plain}))
}

func TestFindCorrespondingSupertype(t *testing.T) {
	f := newFixture(t)
	got := f.c.FindCorrespondingSupertype(f.b.IntType, f.t.ClassType(f.b.Comparable, f.b.IntType).Ctor())
	be.Equal(t, got.String(), "Comparable<Int>")

	iter := f.c.FindCorrespondingSupertype(f.t.ClassType(f.b.IntRange), f.t.ClassType(f.b.Iterable, f.b.IntType).Ctor())
	be.Equal(t, iter.String(), "Iterable<Int>")

	be.True(t, f.c.FindCorrespondingSupertype(f.b.StringType, f.t.ClassType(f.shape).Ctor()) == nil)

	// cached lookups return the same answer
	again := f.c.FindCorrespondingSupertype(f.b.IntType, got.Ctor())
	be.True(t, f.c.Equal(got, again))
}

func TestCacheDisabled(t *testing.T) {
	f := newFixture(t, WithCacheSize(0))
	be.True(t, f.c.IsSubtypeOf(f.t.ClassType(f.derived), f.t.ClassType(f.base, f.b.AnyType)))
}

func TestSubstitute(t *testing.T) {
	f := newFixture(t)
	tab := f.t
	tp := tab.Get(f.box).Class.TypeParams[0]
	T := tab.TypeParamType(tp)

	s := Of([]ID{tp}, []*Type{f.b.StringType})
	be.Equal(t, Substitute(tab, T, s).String(), "String")
	be.Equal(t, Substitute(tab, MakeNullable(T), s).String(), "String?")
	be.Equal(t, Substitute(tab, tab.ClassType(f.box, T), s).String(), "Box<String>")
	be.Equal(t, Substitute(tab, FunctionType(nil, []*Type{T}, T), s).String(), "(String) -> String")

	star := Substitution{tp: Star()}
	be.Equal(t, Substitute(tab, T, star).String(), "Any?")
	be.Equal(t, Substitute(tab, tab.ClassType(f.box, T), star).String(), "Box<*>")

	out := Substitution{tp: {Kind: ProjOut, Type: f.b.IntType}}
	in := tab.ProjectedType(f.box, []Projection{{Kind: ProjIn, Type: T}}, false)
	be.Equal(t, Substitute(tab, in, out).String(), "Box<*>")
}

func TestCommonSupertype(t *testing.T) {
	f := newFixture(t)
	b := f.b
	tab := f.t
	tests := []struct {
		in   []*Type
		want string
	}{
		{[]*Type{b.IntType, b.IntType}, "Int"},
		{[]*Type{b.IntType, b.NothingType}, "Int"},
		{[]*Type{b.IntType, b.NullType}, "Int?"},
		{[]*Type{tab.ClassType(f.circle), tab.ClassType(f.shape)}, "Shape"},
		{[]*Type{b.IntType, b.LongType}, "Number"},
		{[]*Type{b.IntType, b.StringType}, "Any"},
		{[]*Type{b.StringType, MakeNullable(b.IntType)}, "Any?"},
		{[]*Type{b.NothingType}, "Nothing"},
	}
	for _, tt := range tests {
		if got := f.c.CommonSupertype(tt.in).String(); got != tt.want {
			t.Errorf("CommonSupertype(%s) = %s, want %s", TypeList(tt.in), got, tt.want)
		}
	}
}

func TestSealedTableRejectsMutation(t *testing.T) {
	f := newFixture(t)
	err := invariant.Catch(func() {
		f.t.Update(f.shape, func(d *Descriptor) { d.Name = "Renamed" })
	})
	be.Err(t, err, "mutation of sealed descriptor app.Shape")

	local := f.t.Add(&Descriptor{Kind: KindVariable, Name: "x", Var: &VarInfo{}})
	be.Err(t, invariant.Catch(func() {
		f.t.Update(local, func(d *Descriptor) { d.Var.Mutable = true })
	}), nil)
}

func TestClassTypeArity(t *testing.T) {
	f := newFixture(t)
	err := invariant.Catch(func() { f.t.ClassType(f.box) })
	be.Err(t, err, "class Box takes 1 type arguments, got 0")
}

func TestTypeString(t *testing.T) {
	f := newFixture(t)
	b := f.b
	tests := []struct {
		ty   *Type
		want string
	}{
		{MakeNullable(b.StringType), "String?"},
		{f.t.ClassType(f.box, MakeNullable(b.IntType)), "Box<Int?>"},
		{FunctionType(b.StringType, []*Type{b.IntType}, b.UnitType), "String.(Int) -> Unit"},
		{MakeNullable(FunctionType(nil, nil, b.UnitType)), "(() -> Unit)?"},
		{TupleType([]*Type{b.IntType, b.StringType}), "#(Int, String)"},
		{f.t.SelfType(f.shape), "This"},
		{ErrorType(), "<error>"},
	}
	for _, tt := range tests {
		be.Equal(t, tt.ty.String(), tt.want)
	}
}

func TestNames(t *testing.T) {
	f := newFixture(t)
	be.Equal(t, f.t.QualifiedName(f.circle), "app.Circle")
	be.Equal(t, f.t.InternalName(f.circle), "app/Circle")
	be.Equal(t, f.t.InternalName(f.b.String), "java/lang/String")
	be.Equal(t, f.t.FacadeName(f.t.Package("app")), "app/namespace")
	be.Equal(t, f.t.Erasure(f.t.ClassType(f.box, f.b.IntType)), "app.Box")
}
