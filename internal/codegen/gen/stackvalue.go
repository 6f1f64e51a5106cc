package gen

import (
	"jetc/internal/codegen/bytecode"
)

// StackValue is a value the generator has not necessarily pushed yet.
// Put pushes it converted to the requested type; putting at Void evaluates
// it for its effects only. A value must be put right after it is created,
// before any other code is emitted.
type StackValue interface {
	Type() bytecode.Type
	Put(m *method, t bytecode.Type)
}

// Location is a StackValue that can be written.
type Location interface {
	StackValue
	// Bind evaluates the parts of the location that precede the value, such
	// as a receiver or an index, once; later reads and writes reuse them.
	// The returned func releases the temporaries Bind took.
	Bind(m *method) func()
	// Store pushes the receiver parts, calls value to push the new value at
	// the requested type and writes it.
	Store(m *method, value func(t bytecode.Type))
}

// onStack is a value that is already on the operand stack.
type onStack struct{ t bytecode.Type }

func (v onStack) Type() bytecode.Type { return v.t }
func (v onStack) Put(m *method, t bytecode.Type) {
	m.coerce(v.t, t)
}

// nothing is the value of an expression that never completes. Nothing is
// pushed; the code after it is unreachable.
type nothing struct{}

func (nothing) Type() bytecode.Type      { return bytecode.Void }
func (nothing) Put(*method, bytecode.Type) {}

// deferred generates its code when put.
type deferred struct {
	t   bytecode.Type
	gen func(t bytecode.Type)
}

func (v deferred) Type() bytecode.Type              { return v.t }
func (v deferred) Put(_ *method, t bytecode.Type) { v.gen(t) }

// constant pushes a compile-time value of type t: an int64, float64, bool,
// rune, string or nil for null.
type constant struct {
	t bytecode.Type
	v any
}

func (c constant) Type() bytecode.Type { return c.t }

func (c constant) Put(m *method, t bytecode.Type) {
	if t.Sort == bytecode.SortVoid {
		return
	}
	switch v := c.v.(type) {
	case nil:
		m.emit(bytecode.Op(bytecode.ACONST_NULL))
		m.coerce(bytecode.ObjectType("java/lang/Void"), t)
		return
	case string:
		m.emit(bytecode.Ldc(v))
	case bool:
		if v {
			m.emit(bytecode.Op(bytecode.ICONST_1))
		} else {
			m.emit(bytecode.Op(bytecode.ICONST_0))
		}
	case rune:
		m.pushInt(int64(v))
	case int64:
		if c.t.IsIntLike() && (t.Sort == bytecode.SortLong || t.Sort == bytecode.SortFloat || t.Sort == bytecode.SortDouble) {
			m.pushNumber(t, float64(v), v)
			return
		}
		m.pushNumber(c.t, float64(v), v)
	case float64:
		m.pushNumber(c.t, v, int64(v))
	}
	m.coerce(c.t, t)
}

// pushNumber pushes a numeric constant in the narrowest form for sort.
func (m *method) pushNumber(t bytecode.Type, f float64, i int64) {
	switch t.Sort {
	case bytecode.SortLong:
		switch i {
		case 0:
			m.emit(bytecode.Op(bytecode.LCONST_0))
		case 1:
			m.emit(bytecode.Op(bytecode.LCONST_1))
		default:
			m.emit(bytecode.Ldc(i))
		}
	case bytecode.SortFloat:
		switch f {
		case 0, 1, 2:
			if f == 0 && 1/f < 0 {
				m.emit(bytecode.Ldc(float32(f))) // -0.0
				return
			}
			m.emit(bytecode.Op(bytecode.FCONST_0 + bytecode.Opcode(f)))
		default:
			m.emit(bytecode.Ldc(float32(f)))
		}
	case bytecode.SortDouble:
		switch f {
		case 0, 1:
			if f == 0 && 1/f < 0 {
				m.emit(bytecode.Ldc(f))
				return
			}
			m.emit(bytecode.Op(bytecode.DCONST_0 + bytecode.Opcode(f)))
		default:
			m.emit(bytecode.Ldc(f))
		}
	default:
		m.pushInt(i)
	}
}

func (m *method) pushInt(i int64) {
	switch {
	case i >= -1 && i <= 5:
		m.emit(bytecode.Op(bytecode.ICONST_0 + bytecode.Opcode(i)))
	case i >= -128 && i <= 127:
		m.emit(bytecode.IntInsn(bytecode.BIPUSH, int(i)))
	case i >= -32768 && i <= 32767:
		m.emit(bytecode.IntInsn(bytecode.SIPUSH, int(i)))
	default:
		m.emit(bytecode.Ldc(int32(i)))
	}
}

// pushZero pushes the default value of t.
func (m *method) pushZero(t bytecode.Type) {
	switch {
	case t.Sort == bytecode.SortVoid:
	case t.IsReference():
		m.emit(bytecode.Op(bytecode.ACONST_NULL))
	case t.Sort == bytecode.SortLong:
		m.emit(bytecode.Op(bytecode.LCONST_0))
	case t.Sort == bytecode.SortFloat:
		m.emit(bytecode.Op(bytecode.FCONST_0))
	case t.Sort == bytecode.SortDouble:
		m.emit(bytecode.Op(bytecode.DCONST_0))
	default:
		m.emit(bytecode.Op(bytecode.ICONST_0))
	}
}

// local is a variable in a frame slot.
type local struct {
	slot int
	t    bytecode.Type
}

func (v local) Type() bytecode.Type { return v.t }

func (v local) Put(m *method, t bytecode.Type) {
	if t.Sort == bytecode.SortVoid {
		return
	}
	m.emit(bytecode.VarInsn(v.t.Opcode(bytecode.ILOAD), v.slot))
	m.coerce(v.t, t)
}

func (v local) Bind(*method) func() { return func() {} }

func (v local) Store(m *method, value func(bytecode.Type)) {
	value(v.t)
	m.emit(bytecode.VarInsn(v.t.Opcode(bytecode.ISTORE), v.slot))
}

// field is a static field, or an instance field of the object recv pushes.
type field struct {
	owner, name string
	t           bytecode.Type
	static      bool
	recv        func()
}

func (v *field) Type() bytecode.Type { return v.t }

func (v *field) Put(m *method, t bytecode.Type) {
	desc := v.t.Descriptor()
	if v.static {
		m.emit(bytecode.FieldInsn(bytecode.GETSTATIC, v.owner, v.name, desc))
	} else {
		v.recv()
		m.emit(bytecode.FieldInsn(bytecode.GETFIELD, v.owner, v.name, desc))
	}
	m.coerce(v.t, t)
}

func (v *field) Bind(m *method) func() {
	if v.static {
		return func() {}
	}
	v.recv = m.spill(v.recv, bytecode.Object)
	return m.release(1)
}

func (v *field) Store(m *method, value func(bytecode.Type)) {
	desc := v.t.Descriptor()
	if v.static {
		value(v.t)
		m.emit(bytecode.FieldInsn(bytecode.PUTSTATIC, v.owner, v.name, desc))
		return
	}
	v.recv()
	value(v.t)
	m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, v.owner, v.name, desc))
}

// property is a property read through its getter or its backing field and
// written through its setter or its backing field.
type property struct {
	t      bytecode.Type // erased declared type
	owner  string        // class holding the field and accessors
	name   string
	static bool
	recv   func() // nil for static properties
	get    *bytecode.MemberRef
	set    *bytecode.MemberRef
	op     bytecode.Opcode // invokes get and set
	field  bool            // read or write the field when get or set is nil
}

func (v *property) Type() bytecode.Type { return v.t }

func (v *property) Put(m *method, t bytecode.Type) {
	if v.get == nil && !v.field {
		m.unsupported("read of property " + v.name + " without a getter")
		return
	}
	if v.recv != nil {
		v.recv()
	}
	switch {
	case v.get != nil:
		m.emit(bytecode.MethodInsn(v.op, v.get.Owner, v.get.Name, v.get.Desc, v.get.Interface))
	case v.static:
		m.emit(bytecode.FieldInsn(bytecode.GETSTATIC, v.owner, v.name, v.t.Descriptor()))
	default:
		m.emit(bytecode.FieldInsn(bytecode.GETFIELD, v.owner, v.name, v.t.Descriptor()))
	}
	m.coerce(v.t, t)
}

func (v *property) Bind(m *method) func() {
	if v.recv == nil {
		return func() {}
	}
	v.recv = m.spill(v.recv, bytecode.ObjectType(v.owner))
	return m.release(1)
}

func (v *property) Store(m *method, value func(bytecode.Type)) {
	if v.set == nil && !v.field {
		m.unsupported("assignment to read-only property " + v.name)
		return
	}
	if v.recv != nil {
		v.recv()
	}
	value(v.t)
	switch {
	case v.set != nil:
		m.emit(bytecode.MethodInsn(v.op, v.set.Owner, v.set.Name, v.set.Desc, v.set.Interface))
	case v.static:
		m.emit(bytecode.FieldInsn(bytecode.PUTSTATIC, v.owner, v.name, v.t.Descriptor()))
	default:
		m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, v.owner, v.name, v.t.Descriptor()))
	}
}

// cell is a captured var living in the element field of a Ref object.
type cell struct {
	t    bytecode.Type // declared type of the variable
	ref  bytecode.Type
	elem bytecode.Type
	load func() // pushes the Ref
}

func newCell(t bytecode.Type, load func()) *cell {
	ref, elem := refType(t)
	return &cell{t: t, ref: ref, elem: elem, load: load}
}

func (v *cell) Type() bytecode.Type { return v.t }

func (v *cell) Put(m *method, t bytecode.Type) {
	if t.Sort == bytecode.SortVoid {
		return
	}
	v.load()
	m.emit(bytecode.FieldInsn(bytecode.GETFIELD, v.ref.Internal, "element", v.elem.Descriptor()))
	m.coerce(v.elem, v.t)
	m.coerce(v.t, t)
}

func (v *cell) Bind(*method) func() { return func() {} }

func (v *cell) Store(m *method, value func(bytecode.Type)) {
	v.load()
	value(v.t)
	m.coerce(v.t, v.elem)
	m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, v.ref.Internal, "element", v.elem.Descriptor()))
}

// readOnly is a value that cannot be assigned, such as a captured val or
// an intrinsic property.
type readOnly struct {
	StackValue
	name string
}

func (readOnly) Bind(*method) func() { return func() {} }
func (v readOnly) Store(m *method, _ func(bytecode.Type)) {
	m.unsupported("assignment to " + v.name)
}

// invalid is a value or location the generator cannot lower.
type invalid struct{ reason string }

func (invalid) Type() bytecode.Type { return bytecode.Void }
func (v invalid) Put(m *method, _ bytecode.Type) {
	m.unsupported(v.reason)
}
func (invalid) Bind(*method) func() { return func() {} }
func (v invalid) Store(m *method, _ func(bytecode.Type)) {
	m.unsupported(v.reason)
}

// element is an array element.
type element struct {
	t     bytecode.Type // element type
	array func()
	index func()
}

func (v *element) Type() bytecode.Type { return v.t }

func (v *element) Put(m *method, t bytecode.Type) {
	v.array()
	v.index()
	m.emit(bytecode.Op(v.t.Opcode(bytecode.IALOAD)))
	m.coerce(v.t, t)
}

func (v *element) Bind(m *method) func() {
	v.array = m.spill(v.array, bytecode.ArrayOf(v.t))
	v.index = m.spill(v.index, bytecode.Int)
	return m.release(2)
}

func (v *element) Store(m *method, value func(bytecode.Type)) {
	v.array()
	v.index()
	value(v.t)
	m.emit(bytecode.Op(v.t.Opcode(bytecode.IASTORE)))
}

// spill runs push, which pushes a value of type t, stores the value in a
// new temporary and returns a func loading it.
func (m *method) spill(push func(), t bytecode.Type) func() {
	push()
	slot := m.frame.EnterTemp(t.Size())
	m.emit(bytecode.VarInsn(t.Opcode(bytecode.ISTORE), slot))
	return func() { m.emit(bytecode.VarInsn(t.Opcode(bytecode.ILOAD), slot)) }
}

// release returns a func freeing the last n temporaries.
func (m *method) release(n int) func() {
	mark := m.frame.Mark() - n
	return func() { m.frame.DropTo(mark) }
}

// coerce converts the value of type from on top of the stack to type to:
// it pops values put at Void, pushes Unit where a value of a Unit call is
// needed, converts between primitives, boxes, unboxes and casts.
func (m *method) coerce(from, to bytecode.Type) {
	switch {
	case from == to:
	case to.Sort == bytecode.SortVoid:
		m.pop(from)
	case from.Sort == bytecode.SortVoid:
		if to.IsReference() {
			m.emit(bytecode.FieldInsn(bytecode.GETSTATIC, unitType.Internal, "INSTANCE", unitType.Descriptor()))
			m.coerce(unitType, to)
			return
		}
		m.pushZero(to)
	case from.IsPrimitive() && to.IsPrimitive():
		m.convert(from, to)
	case from.IsPrimitive():
		if p, ok := unboxedOf[to.Internal]; ok && p != from {
			m.convert(from, p)
			m.box(p)
			return
		}
		m.box(from)
		m.coerce(boxed(from), to)
	case to.IsPrimitive():
		m.unbox(from, to)
	case !m.g.types.assignable(from, to):
		m.emit(bytecode.TypeInsn(bytecode.CHECKCAST, to.ClassName()))
	}
}

func (m *method) pop(t bytecode.Type) {
	switch t.Size() {
	case 1:
		m.emit(bytecode.Op(bytecode.POP))
	case 2:
		m.emit(bytecode.Op(bytecode.POP2))
	}
}

func (m *method) box(p bytecode.Type) {
	b := boxed(p)
	m.emit(bytecode.MethodInsn(bytecode.INVOKESTATIC, b.Internal, "valueOf", bytecode.MethodDescriptor(b, p), false))
}

func (m *method) unbox(from, to bytecode.Type) {
	var owner bytecode.Type
	switch to.Sort {
	case bytecode.SortBoolean, bytecode.SortChar:
		owner = boxed(to)
	default:
		owner = numberType
		if p, ok := unboxedOf[from.Internal]; ok && p == to {
			owner = from
		}
	}
	if !m.g.types.assignable(from, owner) {
		m.emit(bytecode.TypeInsn(bytecode.CHECKCAST, owner.Internal))
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKEVIRTUAL, owner.Internal, primitiveName(to)+"Value", bytecode.MethodDescriptor(to), false))
}

// convert widens or narrows between primitives the way the machine does:
// through int for the small integer types.
func (m *method) convert(from, to bytecode.Type) {
	if from.IsIntLike() && to.IsIntLike() {
		switch to.Sort {
		case bytecode.SortByte:
			m.emit(bytecode.Op(bytecode.I2B))
		case bytecode.SortChar:
			if from.Sort != bytecode.SortBoolean {
				m.emit(bytecode.Op(bytecode.I2C))
			}
		case bytecode.SortShort:
			if from.Sort == bytecode.SortInt || from.Sort == bytecode.SortChar {
				m.emit(bytecode.Op(bytecode.I2S))
			}
		}
		return
	}
	wide := func(t bytecode.Type) bytecode.Type {
		if t.IsIntLike() {
			return bytecode.Int
		}
		return t
	}
	f, t := wide(from), wide(to)
	if f != t {
		m.emit(bytecode.Op(conversions[[2]bytecode.Sort{f.Sort, t.Sort}]))
	}
	if t == bytecode.Int && to != bytecode.Int {
		m.convert(bytecode.Int, to)
	}
}

var conversions = map[[2]bytecode.Sort]bytecode.Opcode{
	{bytecode.SortInt, bytecode.SortLong}:      bytecode.I2L,
	{bytecode.SortInt, bytecode.SortFloat}:     bytecode.I2F,
	{bytecode.SortInt, bytecode.SortDouble}:    bytecode.I2D,
	{bytecode.SortLong, bytecode.SortInt}:      bytecode.L2I,
	{bytecode.SortLong, bytecode.SortFloat}:    bytecode.L2F,
	{bytecode.SortLong, bytecode.SortDouble}:   bytecode.L2D,
	{bytecode.SortFloat, bytecode.SortInt}:     bytecode.F2I,
	{bytecode.SortFloat, bytecode.SortLong}:    bytecode.F2L,
	{bytecode.SortFloat, bytecode.SortDouble}:  bytecode.F2D,
	{bytecode.SortDouble, bytecode.SortInt}:    bytecode.D2I,
	{bytecode.SortDouble, bytecode.SortLong}:   bytecode.D2L,
	{bytecode.SortDouble, bytecode.SortFloat}:  bytecode.D2F,
}
