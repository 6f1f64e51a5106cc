package gen

import (
	"strconv"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/types"
)

// typeMapper erases semantic types to machine types. Non-null primitives
// map to machine primitives, nullable ones to their boxes, type parameters
// to the erasure of their first bound.
type typeMapper struct {
	table   *types.Table
	bi      *types.Builtins
	classes map[string]types.ID // internal name to class, for assignability
	names   map[types.ID]string // local and anonymous classes
}

func newTypeMapper(tab *types.Table) *typeMapper {
	return &typeMapper{
		table:   tab,
		bi:      tab.Builtins(),
		classes: make(map[string]types.ID),
		names:   make(map[types.ID]string),
	}
}

var (
	unitType     = bytecode.ObjectType("jet/Unit")
	numberType   = bytecode.ObjectType("java/lang/Number")
	intRangeType = bytecode.ObjectType("jet/IntRange")
)

func (tm *typeMapper) primitive(class types.ID) (bytecode.Type, bool) {
	switch class {
	case tm.bi.Boolean:
		return bytecode.Boolean, true
	case tm.bi.Char:
		return bytecode.Char, true
	case tm.bi.Byte:
		return bytecode.Byte, true
	case tm.bi.Short:
		return bytecode.Short, true
	case tm.bi.Int:
		return bytecode.Int, true
	case tm.bi.Long:
		return bytecode.Long, true
	case tm.bi.Float:
		return bytecode.Float, true
	case tm.bi.Double:
		return bytecode.Double, true
	}
	return bytecode.Void, false
}

// internal is the binary name of class and remembers it.
func (tm *typeMapper) internal(class types.ID) string {
	name, ok := tm.names[class]
	if !ok {
		name = tm.table.InternalName(class)
	}
	tm.classes[name] = class
	return name
}

func (tm *typeMapper) classType(class types.ID) bytecode.Type {
	return bytecode.ObjectType(tm.internal(class))
}

// mapType is the machine type of a value of t.
func (tm *typeMapper) mapType(t *types.Type) bytecode.Type {
	if t == nil || t.IsError() {
		return bytecode.Object
	}
	switch {
	case t.IsClass():
		decl := t.Decl()
		if !t.Nullable() {
			if p, ok := tm.primitive(decl); ok {
				return p
			}
		}
		if decl == tm.bi.Array {
			elem := bytecode.Object
			if a := t.Arg(0); a.Type != nil {
				elem = boxed(tm.mapType(a.Type))
			}
			return bytecode.ArrayOf(elem)
		}
		if d := tm.table.Get(decl); d.Class.Kind == types.ClassEnumEntry && !entryHasClass(d) {
			return tm.classType(d.Owner)
		}
		return tm.classType(decl)
	case t.IsTypeParam():
		// type arguments are always references
		return boxed(tm.mapType(tm.table.UpperBounds(t.Decl())[0]))
	case t.IsSelf():
		return tm.classType(t.Decl())
	case t.IsFunction():
		n := t.Ctor().Arity
		if t.Ctor().HasReceiver {
			n++
		}
		return functionType(n)
	case t.IsTuple():
		return tupleType(t.Ctor().Arity)
	}
	return bytecode.Object
}

// mapReturn is mapType, except that Unit and Nothing results return nothing.
func (tm *typeMapper) mapReturn(t *types.Type) bytecode.Type {
	if t != nil && !t.Nullable() && (types.IsClassType(t, tm.bi.Unit) || types.IsClassType(t, tm.bi.Nothing)) {
		return bytecode.Void
	}
	return tm.mapType(t)
}

// assignable reports whether a reference of type from can be used as to
// without a cast.
func (tm *typeMapper) assignable(from, to bytecode.Type) bool {
	switch {
	case from == to, to == bytecode.Object:
		return true
	case from.Sort == bytecode.SortArray && to.Sort == bytecode.SortArray:
		fe, te := from.Element(), to.Element()
		return fe.IsReference() && te.IsReference() && tm.assignable(fe, te)
	case from.Sort != bytecode.SortObject || to.Sort != bytecode.SortObject:
		return false
	case from.Internal == "java/lang/Void":
		return true // only null has this type
	case to == numberType:
		_, ok := unboxedOf[from.Internal]
		return ok && from != boxed(bytecode.Boolean) && from != boxed(bytecode.Char)
	}
	fc, ok1 := tm.classes[from.Internal]
	tc, ok2 := tm.classes[to.Internal]
	return ok1 && ok2 && tm.table.IsSubclassOf(fc, tc)
}

// entryHasClass reports an enum entry with a body of its own, which gets a
// class extending the enum.
func entryHasClass(d *types.Descriptor) bool {
	e, ok := d.Decl.(*ast.EnumEntry)
	return ok && len(e.Members) > 0
}

func functionType(arity int) bytecode.Type {
	return bytecode.ObjectType("jet/Function" + strconv.Itoa(arity))
}

func tupleType(arity int) bytecode.Type {
	return bytecode.ObjectType("jet/Tuple" + strconv.Itoa(arity))
}

var boxes = map[bytecode.Sort]string{
	bytecode.SortBoolean: "java/lang/Boolean",
	bytecode.SortChar:    "java/lang/Character",
	bytecode.SortByte:    "java/lang/Byte",
	bytecode.SortShort:   "java/lang/Short",
	bytecode.SortInt:     "java/lang/Integer",
	bytecode.SortLong:    "java/lang/Long",
	bytecode.SortFloat:   "java/lang/Float",
	bytecode.SortDouble:  "java/lang/Double",
}

var unboxedOf = map[string]bytecode.Type{
	"java/lang/Boolean":   bytecode.Boolean,
	"java/lang/Character": bytecode.Char,
	"java/lang/Byte":      bytecode.Byte,
	"java/lang/Short":     bytecode.Short,
	"java/lang/Integer":   bytecode.Int,
	"java/lang/Long":      bytecode.Long,
	"java/lang/Float":     bytecode.Float,
	"java/lang/Double":    bytecode.Double,
}

// boxed is the reference type a primitive is boxed to; references map to
// themselves.
func boxed(t bytecode.Type) bytecode.Type {
	if b, ok := boxes[t.Sort]; ok {
		return bytecode.ObjectType(b)
	}
	return t
}

// primitiveName is the lowercase name used by xValue and the Ref classes.
func primitiveName(t bytecode.Type) string {
	switch t.Sort {
	case bytecode.SortBoolean:
		return "boolean"
	case bytecode.SortChar:
		return "char"
	case bytecode.SortByte:
		return "byte"
	case bytecode.SortShort:
		return "short"
	case bytecode.SortInt:
		return "int"
	case bytecode.SortLong:
		return "long"
	case bytecode.SortFloat:
		return "float"
	case bytecode.SortDouble:
		return "double"
	}
	return "object"
}

// refType is the mutable cell a captured var of type t lives in, and the
// type of its element field.
func refType(t bytecode.Type) (bytecode.Type, bytecode.Type) {
	if !t.IsPrimitive() {
		return bytecode.ObjectType("jet/runtime/Ref$ObjectRef"), bytecode.Object
	}
	name := primitiveName(t)
	return bytecode.ObjectType("jet/runtime/Ref$" + string(name[0]-'a'+'A') + name[1:] + "Ref"), t
}
