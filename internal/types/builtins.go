package types

// BuiltinPackage is the package holding the language's predefined classes.
const BuiltinPackage = "jet"

// Builtins names the predefined declarations of package jet.
type Builtins struct {
	Package ID

	Any, Nothing, Unit, Boolean, Char, Byte, Short, Int, Long, Float, Double ID
	Number, String, Comparable, Iterator, Iterable, IntRange, IntIterator    ID
	Array, Throwable, Exception, Enum                                        ID

	Println, PrintlnEmpty, Print, ArrayOfNulls ID

	AnyType, NullableAny, NothingType, NullType, UnitType *Type
	BooleanType, CharType, ByteType, ShortType, IntType   *Type
	LongType, FloatType, DoubleType, StringType           *Type
	ThrowableType, NumberType                             *Type

	primitives map[ID]bool
}

func (b *Builtins) isPrimitive(id ID) bool { return b.primitives[id] }

type builtinParam struct {
	name string
	ty   *Type
}

type builtinBuilder struct {
	t   *Table
	pkg ID
}

func (bb *builtinBuilder) class(name string, kind ClassKind, mod Modality, internal string) ID {
	id := bb.t.Add(&Descriptor{
		Kind:     KindClass,
		Name:     name,
		Owner:    bb.pkg,
		Modality: mod,
		Class:    &ClassInfo{Kind: kind, InternalName: internal},
	})
	bb.t.AddMember(bb.pkg, id)
	return id
}

func (bb *builtinBuilder) typeParam(class ID, name string, v Variance) ID {
	c := bb.t.Get(class)
	id := bb.t.Add(&Descriptor{
		Kind:      KindTypeParam,
		Name:      name,
		Owner:     class,
		TypeParam: &TypeParamInfo{Variance: v, Index: len(c.Class.TypeParams)},
	})
	c.Class.TypeParams = append(c.Class.TypeParams, id)
	return id
}

func (bb *builtinBuilder) params(owner ID, ps []builtinParam) []ID {
	ids := make([]ID, len(ps))
	for i, p := range ps {
		ids[i] = bb.t.Add(&Descriptor{
			Kind:  KindVariable,
			Name:  p.name,
			Owner: owner,
			Var:   &VarInfo{Storage: StorageParameter, Type: p.ty, Index: i},
		})
	}
	return ids
}

func (bb *builtinBuilder) fun(owner ID, name string, mod Modality, result *Type, intrinsic string, ps ...builtinParam) ID {
	id := bb.t.Add(&Descriptor{
		Kind:     KindFunction,
		Name:     name,
		Owner:    owner,
		Modality: mod,
		Func:     &FuncInfo{Result: result, Intrinsic: intrinsic},
	})
	bb.t.Get(id).Func.Params = bb.params(id, ps)
	bb.t.AddMember(owner, id)
	return id
}

func (bb *builtinBuilder) prop(owner ID, name string, ty *Type, intrinsic string) ID {
	id := bb.t.Add(&Descriptor{
		Kind:  KindVariable,
		Name:  name,
		Owner: owner,
		Var:   &VarInfo{Storage: StorageProperty, Type: ty, Intrinsic: intrinsic},
	})
	bb.t.AddMember(owner, id)
	return id
}

func (bb *builtinBuilder) ctor(class ID, vis Visibility, ps ...builtinParam) ID {
	id := bb.t.Add(&Descriptor{
		Kind:       KindConstructor,
		Name:       "<init>",
		Owner:      class,
		Visibility: vis,
		Func:       &FuncInfo{Result: bb.t.DefaultType(class)},
	})
	bb.t.Get(id).Func.Params = bb.params(id, ps)
	c := bb.t.Get(class).Class
	c.Ctors = append(c.Ctors, id)
	if c.Primary == NoID {
		c.Primary = id
	}
	return id
}

func (bb *builtinBuilder) supers(class ID, sts ...*Type) {
	c := bb.t.Get(class).Class
	c.Supertypes = append(c.Supertypes, sts...)
}

func p(name string, ty *Type) builtinParam { return builtinParam{name, ty} }

func declareBuiltins(t *Table) *Builtins {
	bb := &builtinBuilder{t: t, pkg: t.Package(BuiltinPackage)}
	b := &Builtins{Package: bb.pkg, primitives: map[ID]bool{}}

	b.Any = bb.class("Any", ClassOrdinary, Open, "java/lang/Object")
	b.AnyType = t.ClassType(b.Any)
	b.NullableAny = MakeNullable(b.AnyType)
	b.Nothing = bb.class("Nothing", ClassOrdinary, Final, "java/lang/Void")
	b.NothingType = t.ClassType(b.Nothing)
	b.NullType = MakeNullable(b.NothingType)
	b.Unit = bb.class("Unit", ClassObject, Final, "jet/Unit")
	b.UnitType = t.ClassType(b.Unit)
	bb.supers(b.Unit, b.AnyType)

	b.Comparable = bb.class("Comparable", ClassTrait, Abstract, "java/lang/Comparable")
	cmpT := bb.typeParam(b.Comparable, "T", In)
	bb.supers(b.Comparable, b.AnyType)

	b.Boolean = bb.class("Boolean", ClassOrdinary, Final, "java/lang/Boolean")
	b.BooleanType = t.ClassType(b.Boolean)
	b.Number = bb.class("Number", ClassOrdinary, Abstract, "java/lang/Number")
	b.NumberType = t.ClassType(b.Number)
	bb.supers(b.Number, b.AnyType)
	b.String = bb.class("String", ClassOrdinary, Final, "java/lang/String")
	b.StringType = t.ClassType(b.String)

	numeric := []struct {
		id   *ID
		ty   **Type
		name string
		box  string
	}{
		{&b.Char, &b.CharType, "Char", "java/lang/Character"},
		{&b.Byte, &b.ByteType, "Byte", "java/lang/Byte"},
		{&b.Short, &b.ShortType, "Short", "java/lang/Short"},
		{&b.Int, &b.IntType, "Int", "java/lang/Integer"},
		{&b.Long, &b.LongType, "Long", "java/lang/Long"},
		{&b.Float, &b.FloatType, "Float", "java/lang/Float"},
		{&b.Double, &b.DoubleType, "Double", "java/lang/Double"},
	}
	for _, n := range numeric {
		*n.id = bb.class(n.name, ClassOrdinary, Final, n.box)
		*n.ty = t.ClassType(*n.id)
		b.primitives[*n.id] = true
	}
	b.primitives[b.Boolean] = true

	// Any
	bb.fun(b.Any, "equals", Open, b.BooleanType, "", p("other", b.NullableAny))
	bb.fun(b.Any, "hashCode", Open, b.IntType, "")
	bb.fun(b.Any, "toString", Open, b.StringType, "")

	// Comparable<in T>
	bb.fun(b.Comparable, "compareTo", Abstract, b.IntType, "", p("other", t.TypeParamType(cmpT)))

	// Boolean
	bb.supers(b.Boolean, b.AnyType, t.ClassType(b.Comparable, b.BooleanType))
	bb.fun(b.Boolean, "not", Final, b.BooleanType, "not")

	// Number and the primitive numbers
	for _, conv := range []struct {
		name string
		ty   *Type
	}{
		{"toByte", b.ByteType}, {"toShort", b.ShortType}, {"toInt", b.IntType},
		{"toLong", b.LongType}, {"toFloat", b.FloatType}, {"toDouble", b.DoubleType},
		{"toChar", b.CharType},
	} {
		bb.fun(b.Number, conv.name, Open, conv.ty, "convert")
	}
	for _, n := range numeric {
		if *n.id == b.Char {
			bb.supers(b.Char, b.AnyType, t.ClassType(b.Comparable, b.CharType))
			bb.fun(b.Char, "toInt", Final, b.IntType, "convert")
		} else {
			bb.supers(*n.id, b.NumberType, t.ClassType(b.Comparable, *n.ty))
		}
		bb.fun(*n.id, "compareTo", Final, b.IntType, "compare", p("other", *n.ty))
	}

	// String
	bb.supers(b.String, b.AnyType, t.ClassType(b.Comparable, b.StringType))
	bb.prop(b.String, "length", b.IntType, "length")
	bb.fun(b.String, "get", Final, b.CharType, "charAt", p("index", b.IntType))
	bb.fun(b.String, "plus", Final, b.StringType, "concat", p("other", b.NullableAny))
	bb.fun(b.String, "compareTo", Final, b.IntType, "", p("other", b.StringType))

	// Iterator<out T>, Iterable<out T>
	b.Iterator = bb.class("Iterator", ClassTrait, Abstract, "java/util/Iterator")
	itT := bb.typeParam(b.Iterator, "T", Out)
	bb.supers(b.Iterator, b.AnyType)
	bb.fun(b.Iterator, "hasNext", Abstract, b.BooleanType, "")
	bb.fun(b.Iterator, "next", Abstract, t.TypeParamType(itT), "")

	b.Iterable = bb.class("Iterable", ClassTrait, Abstract, "java/lang/Iterable")
	iterT := bb.typeParam(b.Iterable, "T", Out)
	bb.supers(b.Iterable, b.AnyType)
	bb.fun(b.Iterable, "iterator", Abstract, t.ClassType(b.Iterator, t.TypeParamType(iterT)), "")

	// IntIterator, IntRange
	b.IntIterator = bb.class("IntIterator", ClassOrdinary, Final, "jet/IntIterator")
	bb.supers(b.IntIterator, b.AnyType, t.ClassType(b.Iterator, b.IntType))
	bb.fun(b.IntIterator, "hasNext", Final, b.BooleanType, "")
	bb.fun(b.IntIterator, "next", Final, b.IntType, "")

	b.IntRange = bb.class("IntRange", ClassOrdinary, Final, "jet/IntRange")
	bb.supers(b.IntRange, b.AnyType, t.ClassType(b.Iterable, b.IntType))
	bb.ctor(b.IntRange, Public, p("start", b.IntType), p("end", b.IntType))
	bb.prop(b.IntRange, "start", b.IntType, "")
	bb.prop(b.IntRange, "end", b.IntType, "")
	bb.fun(b.IntRange, "iterator", Final, t.ClassType(b.IntIterator), "")
	bb.fun(b.IntRange, "contains", Final, b.BooleanType, "", p("value", b.IntType))
	bb.fun(b.Int, "rangeTo", Final, t.ClassType(b.IntRange), "rangeTo", p("other", b.IntType))

	// Array<T>
	b.Array = bb.class("Array", ClassOrdinary, Final, "[")
	arrT := t.TypeParamType(bb.typeParam(b.Array, "T", Invariant))
	bb.supers(b.Array, b.AnyType)
	bb.prop(b.Array, "size", b.IntType, "arraylength")
	bb.fun(b.Array, "get", Final, arrT, "aload", p("index", b.IntType))
	bb.fun(b.Array, "set", Final, b.UnitType, "astore", p("index", b.IntType), p("value", arrT))
	bb.fun(b.Array, "iterator", Final, t.ClassType(b.Iterator, arrT), "arrayIterator")

	// Throwable, Exception
	b.Throwable = bb.class("Throwable", ClassOrdinary, Open, "java/lang/Throwable")
	b.ThrowableType = t.ClassType(b.Throwable)
	bb.supers(b.Throwable, b.AnyType)
	bb.ctor(b.Throwable, Public)
	bb.ctor(b.Throwable, Public, p("message", MakeNullable(b.StringType)))
	bb.prop(b.Throwable, "message", MakeNullable(b.StringType), "getMessage")

	b.Exception = bb.class("Exception", ClassOrdinary, Open, "java/lang/Exception")
	bb.supers(b.Exception, b.ThrowableType)
	bb.ctor(b.Exception, Public)
	bb.ctor(b.Exception, Public, p("message", MakeNullable(b.StringType)))

	// Enum<E : Enum<E>>
	b.Enum = bb.class("Enum", ClassOrdinary, Abstract, "java/lang/Enum")
	enumE := bb.typeParam(b.Enum, "E", Invariant)
	t.Get(enumE).TypeParam.Bounds = []*Type{t.ClassType(b.Enum, t.TypeParamType(enumE))}
	bb.supers(b.Enum, b.AnyType, t.ClassType(b.Comparable, t.TypeParamType(enumE)))
	bb.ctor(b.Enum, Protected, p("name", b.StringType), p("ordinal", b.IntType))
	bb.prop(b.Enum, "name", b.StringType, "name")
	bb.prop(b.Enum, "ordinal", b.IntType, "ordinal")
	bb.fun(b.Enum, "compareTo", Final, b.IntType, "", p("other", t.TypeParamType(enumE)))

	// top-level functions
	b.Println = bb.fun(b.Package, "println", Final, b.UnitType, "println", p("message", b.NullableAny))
	b.PrintlnEmpty = bb.fun(b.Package, "println", Final, b.UnitType, "println")
	b.Print = bb.fun(b.Package, "print", Final, b.UnitType, "print", p("message", b.NullableAny))
	b.ArrayOfNulls = bb.fun(b.Package, "arrayOfNulls", Final, b.UnitType, "newarray", p("size", b.IntType))
	aon := t.Get(b.ArrayOfNulls).Func
	elem := bb.t.Add(&Descriptor{Kind: KindTypeParam, Name: "T", Owner: b.ArrayOfNulls, TypeParam: &TypeParamInfo{}})
	aon.TypeParams = []ID{elem}
	aon.Result = t.ClassType(b.Array, MakeNullable(t.TypeParamType(elem)))

	return b
}
