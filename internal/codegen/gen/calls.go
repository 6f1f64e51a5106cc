package gen

import (
	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/typechecker"
	"jetc/internal/types"
)

var defaultMarker = bytecode.ObjectType("jet/runtime/DefaultConstructorMarker")

// arg is an argument of a call, pushed at the parameter type.
type arg struct {
	t   bytecode.Type
	put func(t bytecode.Type)
}

func (m *method) exprArg(e ast.Expression) arg {
	return arg{t: m.exprType(e), put: func(t bytecode.Type) { m.put(e, t) }}
}

func (m *method) arguments(as []*ast.Argument) []arg {
	args := make([]arg, len(as))
	for i, a := range as {
		args[i] = m.exprArg(a.Value)
	}
	return args
}

func valueArg(v StackValue, m *method) arg {
	return arg{t: v.Type(), put: func(t bytecode.Type) { v.Put(m, t) }}
}

// keepArg evaluates a into a temporary now and returns an argument reading
// it.
func (m *method) keepArg(a arg) arg {
	t := a.t
	if t.Sort == bytecode.SortVoid {
		t = unitType
	}
	a.put(t)
	return valueArg(m.temp(t), m)
}

// ordered lines args up with the parameters of call.
func ordered(call *calls.Call, args []arg) []arg {
	out := make([]arg, len(call.ArgOf))
	for i, j := range call.ArgOf {
		if j >= 0 && j < len(args) {
			out[i] = args[j]
		}
	}
	return out
}

// inOrder reports arguments that may be evaluated while the parameters are
// pushed: none is named out of place.
func inOrder(call *calls.Call) bool {
	last := -1
	for _, j := range call.ArgOf {
		if j < 0 {
			continue
		}
		if j < last {
			return false
		}
		last = j
	}
	return true
}

// call lowers a call expression. recv is the explicit receiver of a
// qualified call.
func (m *method) call(n *ast.CallExpr, recv StackValue) StackValue {
	g := m.g
	call, ok := binding.Get(g.store, calls.ResolvedCall, ast.Node(n))
	if !ok {
		return invalid{"unresolved call"}
	}
	args := m.arguments(n.Args)
	if call.ID == types.NoID {
		return m.invokeFunction(call, m.lazy(n.Callee), ordered(call, args))
	}
	if g.table.Get(call.ID).Kind == types.KindVariable {
		var fn StackValue
		if recv != nil {
			fn = m.propertyOf(call.ID, recv)
		} else {
			fn = m.variable(n, call.ID)
		}
		return m.invokeFunction(call, fn, ordered(call, args))
	}
	if call.Implicit && recv == nil {
		if owner, ok := binding.Get(g.store, typechecker.ImplicitReceiver, ast.Node(n)); ok {
			recv = m.receiver(owner)
		}
	}
	return m.withArgs(call, recv, args)
}

// withArgs invokes call, first evaluating the receiver and the arguments in
// source order when named arguments reorder them.
func (m *method) withArgs(call *calls.Call, recv StackValue, args []arg) StackValue {
	if inOrder(call) {
		return m.invoke(call, recv, args)
	}
	return deferred{t: m.g.types.mapReturn(call.Result), gen: func(to bytecode.Type) {
		mark := m.frame.Mark()
		var r StackValue
		if recv != nil {
			r = m.keep(recv)
		}
		kept := make([]arg, len(args))
		for i, a := range args {
			kept[i] = m.keepArg(a)
		}
		m.invoke(call, r, kept).Put(m, to)
		m.frame.DropTo(mark)
	}}
}

// signature is how a function is invoked.
type signature struct {
	owner, name string
	recv        bytecode.Type // dispatch receiver; Void for static methods
	params      []bytecode.Type
	result      bytecode.Type
	op          bytecode.Opcode
	itf         bool
}

func (s signature) desc() string { return bytecode.MethodDescriptor(s.result, s.params...) }

// signature is the erased signature of the function id. Extension
// receivers come first among the parameters.
func (g *Generator) signature(id types.ID) signature {
	d := g.table.Get(id)
	s := signature{name: d.Name, recv: bytecode.Void, result: g.types.mapReturn(d.Func.Result)}
	if d.Func.Receiver != nil {
		s.params = append(s.params, g.types.mapType(d.Func.Receiver))
	}
	for _, p := range d.Func.Params {
		s.params = append(s.params, g.varType(p))
	}
	owner := g.table.Get(d.Owner)
	switch {
	case d.Func.Local:
		s.owner, s.name = g.names[d.Decl], "invoke"
		s.recv = bytecode.ObjectType(s.owner)
		s.op = bytecode.INVOKEVIRTUAL
	case owner.Kind == types.KindPackage:
		s.owner = g.table.FacadeName(d.Owner)
		s.op = bytecode.INVOKESTATIC
	default:
		s.owner = g.types.internal(d.Owner)
		s.recv = bytecode.ObjectType(s.owner)
		s.op = bytecode.INVOKEVIRTUAL
		if owner.IsTrait() {
			s.op, s.itf = bytecode.INVOKEINTERFACE, true
		}
	}
	return s
}

// defaultSignature is the static method filling in the default arguments
// of holder: the dispatch receiver, the parameters and the mask.
func (g *Generator) defaultSignature(holder types.ID) signature {
	s := g.signature(holder)
	d := s
	d.name = s.name + "$default"
	d.params = nil
	if s.recv.Sort != bytecode.SortVoid {
		d.params = append(d.params, s.recv)
	}
	d.params = append(append(d.params, s.params...), bytecode.Int)
	d.recv = bytecode.Void
	d.op = bytecode.INVOKESTATIC
	return d
}

// defaultHolder is the function declaring the default values a call of id
// uses: id itself or the member it overrides.
func (g *Generator) defaultHolder(id types.ID) types.ID {
	d := g.table.Get(id)
	for _, p := range d.Func.Params {
		if g.table.Get(p).Var.HasDefault {
			return id
		}
	}
	for _, o := range g.overridden(id) {
		if h := g.defaultHolder(o); h != types.NoID {
			return h
		}
	}
	return types.NoID
}

// overridden lists the supertype members a function or property overrides.
func (g *Generator) overridden(id types.ID) []types.ID {
	if os, ok := g.overs[id]; ok {
		return os
	}
	g.overs[id] = nil
	d := g.table.Get(id)
	var out []types.ID
	if g.table.Get(d.Owner).Kind == types.KindClass && d.Visibility != types.Private {
		self := g.table.DefaultType(d.Owner)
		for _, st := range g.checker.Supertypes(self) {
			for _, mid := range g.table.Members(st.Decl(), d.Name) {
				md := g.table.Get(mid)
				if md.Kind != d.Kind || md.Visibility == types.Private {
					continue
				}
				if d.Kind == types.KindFunction && !g.checker.SameSignature(
					types.Member{ID: id, Owner: self},
					types.Member{ID: mid, Owner: st, Subst: types.ClassSubstitution(g.table, st)}) {
					continue
				}
				out = append(out, mid)
			}
		}
	}
	g.overs[id] = out
	return out
}

// invoke lowers a call of a function or constructor. args are in source
// order; recv is the dispatch receiver of a member or the receiver
// argument of an extension.
func (m *method) invoke(call *calls.Call, recv StackValue, args []arg) StackValue {
	g := m.g
	d := g.table.Get(call.ID)
	t := g.types.mapReturn(call.Result)
	if d.Func.Intrinsic != "" {
		return m.intrinsicValue(d.Func.Intrinsic, recv, ordered(call, args), t)
	}
	if d.Kind == types.KindConstructor {
		return m.construct(call, args)
	}
	owner := g.table.Get(d.Owner)
	if d.Func.Receiver != nil && owner.Kind == types.KindClass {
		return invalid{"call of member extension " + d.Name}
	}
	base := g.signature(call.ID)
	if (base.recv.Sort != bytecode.SortVoid && !d.Func.Local || d.Func.Receiver != nil) && recv == nil {
		return invalid{"call of " + d.Name + " without a receiver"}
	}
	mask := 0
	for j := range d.Func.Params {
		if call.UsesDefault(j) {
			mask |= 1 << j
		}
	}
	s := base
	if mask != 0 {
		holder := g.defaultHolder(call.ID)
		if d.Func.Local || holder == types.NoID {
			return invalid{"default arguments of " + d.Name}
		}
		s = g.defaultSignature(holder)
	}
	return deferred{t: t, gen: func(to bytecode.Type) {
		i := 0
		switch {
		case d.Func.Local:
			m.localFunction(call.ID).Put(m, base.recv)
		case base.recv.Sort != bytecode.SortVoid:
			at := base.recv
			if mask != 0 {
				at, i = s.params[0], 1
			}
			recv.Put(m, at)
		}
		if d.Func.Receiver != nil {
			recv.Put(m, s.params[i])
			i++
		}
		for j := range d.Func.Params {
			pt := s.params[i+j]
			if call.UsesDefault(j) {
				m.pushZero(pt)
			} else {
				args[call.ArgOf[j]].put(pt)
			}
		}
		if mask != 0 {
			m.pushInt(int64(mask))
		}
		m.emit(bytecode.MethodInsn(s.op, s.owner, s.name, s.desc(), s.itf))
		m.coerce(s.result, to)
	}}
}

// localFunction is the closure object of a local function.
func (m *method) localFunction(id types.ID) StackValue {
	ft := bytecode.ObjectType(m.g.names[m.g.table.Get(id).Decl])
	if m.localFun == id {
		return local{slot: 0, t: ft}
	}
	if slot, ok := m.frame.Lookup(id); ok {
		return local{slot: slot, t: ft}
	}
	if v, ok := m.captured(id); ok {
		return v
	}
	return invalid{"local function " + m.g.table.Get(id).Name + " is not in scope"}
}

func (m *method) construct(call *calls.Call, args []arg) StackValue {
	class := m.g.table.Get(call.ID).Owner
	ct := m.g.types.classType(class)
	return deferred{t: ct, gen: func(to bytecode.Type) {
		m.emit(bytecode.TypeInsn(bytecode.NEW, ct.Internal))
		m.emit(bytecode.Op(bytecode.DUP))
		m.initCall(class, call, args, nil, nil)
		m.coerce(ct, to)
	}}
}

// initCall invokes a constructor of class on the uninitialized object on
// the stack. Captured values come first, then the lead parameters pushLead
// pushes, then the arguments.
func (m *method) initCall(class types.ID, call *calls.Call, args []arg, lead []bytecode.Type, pushLead func()) {
	g := m.g
	var params []bytecode.Type
	cl := g.localClosure(class)
	if cl != nil {
		for _, c := range cl.caps {
			m.pushCapture(c)
			params = append(params, c.t)
		}
	}
	params = append(params, lead...)
	if pushLead != nil {
		pushLead()
	}
	d := g.table.Get(call.ID)
	mask := 0
	for j, pid := range d.Func.Params {
		pt := g.varType(pid)
		params = append(params, pt)
		if call.UsesDefault(j) {
			mask |= 1 << j
			m.pushZero(pt)
		} else {
			args[call.ArgOf[j]].put(pt)
		}
	}
	if mask != 0 {
		if cl != nil {
			m.unsupported("default arguments of a local class constructor")
			return
		}
		m.pushInt(int64(mask))
		m.emit(bytecode.Op(bytecode.ACONST_NULL))
		params = append(params, bytecode.Int, defaultMarker)
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, g.types.internal(class), "<init>",
		bytecode.MethodDescriptor(bytecode.Void, params...), false))
}

// invokeFunction calls the invoke method of a function value.
func (m *method) invokeFunction(call *calls.Call, fn StackValue, args []arg) StackValue {
	if call.Invoke == nil {
		return invalid{"call of a value that is not a function"}
	}
	recvT, params, _ := types.FunctionParts(types.MakeNotNull(call.Invoke))
	if recvT != nil {
		return invalid{"invocation of a function type with a receiver"}
	}
	ft := functionType(len(params))
	t := m.g.types.mapReturn(call.Result)
	return deferred{t: t, gen: func(to bytecode.Type) {
		fn.Put(m, ft)
		objs := make([]bytecode.Type, len(args))
		for i, a := range args {
			if a.put == nil {
				m.unsupported("missing argument of a function value")
				return
			}
			a.put(bytecode.Object)
			objs[i] = bytecode.Object
		}
		m.emit(bytecode.MethodInsn(bytecode.INVOKEINTERFACE, ft.Internal, "invoke",
			bytecode.MethodDescriptor(bytecode.Object, objs...), true))
		if t.Sort == bytecode.SortVoid {
			m.pop(bytecode.Object)
			m.coerce(bytecode.Void, to)
			return
		}
		m.coerce(bytecode.Object, to)
	}}
}

// intrinsicValue lowers a built-in operation to machine instructions or a
// runtime call. args are in parameter order.
func (m *method) intrinsicValue(name string, recv StackValue, args []arg, t bytecode.Type) StackValue {
	needsRecv := name != "println" && name != "print" && name != "newarray"
	if needsRecv && recv == nil {
		return invalid{"intrinsic " + name + " without a receiver"}
	}
	virtual := func(owner, method, desc string) {
		m.emit(bytecode.MethodInsn(bytecode.INVOKEVIRTUAL, owner, method, desc, false))
	}
	arrayOf := func() bytecode.Type {
		if at := recv.Type(); at.Sort == bytecode.SortArray {
			return at
		}
		return bytecode.ArrayOf(bytecode.Object)
	}
	var gen func(to bytecode.Type)
	switch name {
	case "not":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.Boolean)
			m.emit(bytecode.Op(bytecode.ICONST_1))
			m.emit(bytecode.Op(bytecode.IXOR))
			m.coerce(bytecode.Boolean, to)
		}
	case "convert":
		gen = func(to bytecode.Type) {
			if t.Sort == bytecode.SortChar && !recv.Type().IsPrimitive() {
				recv.Put(m, bytecode.Int)
				m.coerce(bytecode.Int, t)
			} else {
				recv.Put(m, t)
			}
			m.coerce(t, to)
		}
	case "compare":
		gen = func(to bytecode.Type) {
			w := promote(prim(recv.Type()), prim(args[0].t))
			recv.Put(m, w)
			args[0].put(w)
			m.emit(bytecode.MethodInsn(bytecode.INVOKESTATIC, boxed(w).Internal, "compare",
				bytecode.MethodDescriptor(bytecode.Int, w, w), false))
			m.coerce(bytecode.Int, to)
		}
	case "length":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.String)
			virtual("java/lang/String", "length", "()I")
			m.coerce(bytecode.Int, to)
		}
	case "charAt":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.String)
			args[0].put(bytecode.Int)
			virtual("java/lang/String", "charAt", "(I)C")
			m.coerce(bytecode.Char, to)
		}
	case "concat":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.String)
			args[0].put(bytecode.Object)
			m.emit(bytecode.MethodInsn(bytecode.INVOKESTATIC, "java/lang/String", "valueOf",
				"(Ljava/lang/Object;)Ljava/lang/String;", false))
			virtual("java/lang/String", "concat", "(Ljava/lang/String;)Ljava/lang/String;")
			m.coerce(bytecode.String, to)
		}
	case "rangeTo":
		gen = func(to bytecode.Type) {
			m.emit(bytecode.TypeInsn(bytecode.NEW, intRangeType.Internal))
			m.emit(bytecode.Op(bytecode.DUP))
			recv.Put(m, bytecode.Int)
			args[0].put(bytecode.Int)
			m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, intRangeType.Internal, "<init>", "(II)V", false))
			m.coerce(intRangeType, to)
		}
	case "arraylength":
		gen = func(to bytecode.Type) {
			recv.Put(m, arrayOf())
			m.emit(bytecode.Op(bytecode.ARRAYLENGTH))
			m.coerce(bytecode.Int, to)
		}
	case "aload":
		gen = func(to bytecode.Type) {
			at := arrayOf()
			recv.Put(m, at)
			args[0].put(bytecode.Int)
			m.emit(bytecode.Op(at.Element().Opcode(bytecode.IALOAD)))
			m.coerce(at.Element(), to)
		}
	case "astore":
		gen = func(to bytecode.Type) {
			at := arrayOf()
			recv.Put(m, at)
			args[0].put(bytecode.Int)
			args[1].put(at.Element())
			m.emit(bytecode.Op(at.Element().Opcode(bytecode.IASTORE)))
			m.coerce(bytecode.Void, to)
		}
	case "arrayIterator":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.ArrayOf(bytecode.Object))
			m.emit(bytecode.MethodInsn(bytecode.INVOKESTATIC, "jet/runtime/ArrayIterator", "iterator",
				"([Ljava/lang/Object;)Ljava/util/Iterator;", false))
			m.coerce(bytecode.ObjectType("java/util/Iterator"), to)
		}
	case "getMessage":
		gen = func(to bytecode.Type) {
			recv.Put(m, bytecode.Throwable)
			virtual("java/lang/Throwable", "getMessage", "()Ljava/lang/String;")
			m.coerce(bytecode.String, to)
		}
	case "name", "ordinal":
		gen = func(to bytecode.Type) {
			rt := recv.Type()
			if !rt.IsReference() {
				rt = bytecode.ObjectType("java/lang/Enum")
			}
			recv.Put(m, rt)
			if name == "name" {
				virtual(rt.Internal, "name", "()Ljava/lang/String;")
				m.coerce(bytecode.String, to)
				return
			}
			virtual(rt.Internal, "ordinal", "()I")
			m.coerce(bytecode.Int, to)
		}
	case "println", "print":
		gen = func(to bytecode.Type) {
			const ps = "java/io/PrintStream"
			m.emit(bytecode.FieldInsn(bytecode.GETSTATIC, "java/lang/System", "out", "Ljava/io/PrintStream;"))
			if len(args) == 0 {
				virtual(ps, name, "()V")
			} else {
				pt := printType(args[0].t)
				args[0].put(pt)
				virtual(ps, name, bytecode.MethodDescriptor(bytecode.Void, pt))
			}
			m.coerce(bytecode.Void, to)
		}
	case "newarray":
		gen = func(to bytecode.Type) {
			at := t
			if at.Sort != bytecode.SortArray {
				at = bytecode.ArrayOf(bytecode.Object)
			}
			args[0].put(bytecode.Int)
			m.emit(bytecode.TypeInsn(bytecode.ANEWARRAY, at.Element().ClassName()))
			m.coerce(at, to)
		}
	default:
		return invalid{"intrinsic " + name}
	}
	return deferred{t: t, gen: gen}
}

// printType is the PrintStream.println overload taking t.
func printType(t bytecode.Type) bytecode.Type {
	switch t.Sort {
	case bytecode.SortBoolean, bytecode.SortChar, bytecode.SortLong, bytecode.SortFloat, bytecode.SortDouble:
		return t
	case bytecode.SortByte, bytecode.SortShort, bytecode.SortInt:
		return bytecode.Int
	}
	if t == bytecode.String {
		return t
	}
	return bytecode.Object
}
