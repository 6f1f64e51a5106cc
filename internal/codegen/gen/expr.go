package gen

import (
	"fmt"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/consteval"
	"jetc/internal/semantics/typechecker"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

var arithOps = map[tokens.TOKEN]bytecode.Opcode{
	tokens.PLUS_TOKEN:  bytecode.IADD,
	tokens.MINUS_TOKEN: bytecode.ISUB,
	tokens.MUL_TOKEN:   bytecode.IMUL,
	tokens.DIV_TOKEN:   bytecode.IDIV,
	tokens.MOD_TOKEN:   bytecode.IREM,
}

var relOps = map[tokens.TOKEN]bytecode.Opcode{
	tokens.LESS_TOKEN:          bytecode.IF_ICMPLT,
	tokens.GREATER_TOKEN:       bytecode.IF_ICMPGT,
	tokens.LESS_EQUAL_TOKEN:    bytecode.IF_ICMPLE,
	tokens.GREATER_EQUAL_TOKEN: bytecode.IF_ICMPGE,
}

// put generates e and pushes its value at t.
func (m *method) put(e ast.Expression, t bytecode.Type) {
	m.gen(e).Put(m, t)
}

// exprType is the machine type of the value e is used as.
func (m *method) exprType(e ast.Expression) bytecode.Type {
	return m.g.types.mapType(m.g.typeOf(e))
}

// natural is the type e leaves on the stack when nothing converts it: Void
// for Unit and Nothing.
func (m *method) natural(e ast.Expression) bytecode.Type {
	return m.g.types.mapReturn(m.g.typeOf(e))
}

// lazy defers generating e until its value is put.
func (m *method) lazy(e ast.Expression) StackValue {
	return deferred{t: m.exprType(e), gen: func(t bytecode.Type) { m.put(e, t) }}
}

func (m *method) operatorCall(n ast.Node) (*calls.Call, bool) {
	return binding.Get(m.g.store, typechecker.OperatorCall, n)
}

// gen lowers an expression. Statements such as loops and assignments emit
// their code right away and return a value already on the stack.
func (m *method) gen(e ast.Expression) StackValue {
	if v, ok := m.folded(e); ok {
		return v
	}
	switch e := e.(type) {
	case *ast.Literal:
		return m.literal(e)
	case *ast.NameExpr:
		return m.name(e)
	case *ast.ThisExpr:
		id, ok := m.g.ref(e)
		if !ok {
			return invalid{"unresolved this"}
		}
		return m.receiver(id)
	case *ast.QualifiedExpr:
		return m.qualified(e)
	case *ast.CallExpr:
		return m.call(e, nil)
	case *ast.BinaryExpr:
		return m.binary(e)
	case *ast.UnaryExpr:
		return m.unary(e)
	case *ast.PostfixExpr:
		return m.postfix(e)
	case *ast.AssignExpr:
		m.assign(e)
		return onStack{bytecode.Void}
	case *ast.IndexExpr:
		return m.index(e)
	case *ast.TupleExpr:
		return m.tuple(e)
	case *ast.IsExpr:
		return m.condValue(e)
	case *ast.CastExpr:
		return m.cast(e)
	case *ast.Block:
		return m.block(e)
	case *ast.IfExpr:
		return m.ifExpr(e)
	case *ast.WhenExpr:
		return m.when(e)
	case *ast.WhileExpr:
		m.while(e)
		return onStack{bytecode.Void}
	case *ast.DoWhileExpr:
		m.doWhile(e)
		return onStack{bytecode.Void}
	case *ast.ForExpr:
		m.forLoop(e)
		return onStack{bytecode.Void}
	case *ast.LabeledExpr:
		return m.gen(e.Body)
	case *ast.BreakExpr:
		m.jumpOut(e, false)
		return nothing{}
	case *ast.ContinueExpr:
		m.jumpOut(e, true)
		return nothing{}
	case *ast.ReturnExpr:
		m.ret(e)
		return nothing{}
	case *ast.ThrowExpr:
		m.put(e.X, bytecode.Throwable)
		m.emit(bytecode.Op(bytecode.ATHROW))
		return nothing{}
	case *ast.TryExpr:
		return m.try(e)
	case *ast.FunctionLiteral:
		return m.lambda(e)
	case *ast.ObjectLiteral:
		return m.objectLiteral(e)
	}
	return invalid{fmt.Sprintf("expression %T", e)}
}

// folded returns the constant value of a primitive or string expression
// the evaluator can compute.
func (m *method) folded(e ast.Expression) (StackValue, bool) {
	switch e.(type) {
	case *ast.Literal, *ast.NameExpr, *ast.UnaryExpr, *ast.BinaryExpr:
	default:
		return nil, false
	}
	t := m.exprType(e)
	if !(t.IsPrimitive() && t.Sort != bytecode.SortFloat) && t != bytecode.String {
		return nil, false
	}
	cv := m.g.consts.EvaluateExpr(e)
	if cv == nil || cv.Kind == consteval.ConstUnknown {
		return nil, false
	}
	return constValue(cv, t)
}

func constValue(cv *consteval.ConstValue, t bytecode.Type) (StackValue, bool) {
	switch cv.Kind {
	case consteval.ConstInt, consteval.ConstLong:
		v, ok := cv.AsInt64()
		if !ok {
			return nil, false
		}
		ct := bytecode.Int
		switch {
		case t.Sort == bytecode.SortLong || (t.IsIntLike() && t.Sort != bytecode.SortBoolean):
			ct = t
		case cv.Kind == consteval.ConstLong:
			ct = bytecode.Long
		}
		return constant{ct, v}, true
	case consteval.ConstDouble:
		f, ok := cv.AsFloat64()
		if !ok {
			return nil, false
		}
		if t.Sort == bytecode.SortFloat {
			return constant{bytecode.Float, f}, true
		}
		return constant{bytecode.Double, f}, true
	case consteval.ConstBool:
		b, _ := cv.AsBool()
		return constant{bytecode.Boolean, b}, true
	case consteval.ConstChar:
		r, ok := cv.Value.(rune)
		return constant{bytecode.Char, r}, ok
	case consteval.ConstString:
		s, _ := cv.AsString()
		return constant{bytecode.String, s}, true
	case consteval.ConstNull:
		return constant{bytecode.ObjectType("java/lang/Void"), nil}, true
	}
	return nil, false
}

func (m *method) literal(l *ast.Literal) StackValue {
	cv, err := consteval.ParseLiteral(l)
	if err != nil {
		return invalid{"literal " + l.Value}
	}
	if v, ok := constValue(cv, m.exprType(l)); ok {
		return v
	}
	return invalid{"literal " + l.Value}
}

// intConstant is the value of an Int-typed constant expression.
func (m *method) intConstant(e ast.Expression) (int64, bool) {
	if !m.exprType(e).IsIntLike() {
		return 0, false
	}
	cv := m.g.consts.EvaluateExpr(e)
	if cv == nil || cv.Kind != consteval.ConstInt {
		return 0, false
	}
	return cv.AsInt64()
}

func (m *method) name(n *ast.NameExpr) StackValue {
	id, ok := m.g.ref(n)
	if !ok {
		return invalid{"unresolved name " + n.Name}
	}
	switch d := m.g.table.Get(id); d.Kind {
	case types.KindClass:
		return m.objectValue(id)
	case types.KindVariable:
		return m.variable(n, id)
	}
	return invalid{"name " + n.Name + " is not a value"}
}

// variable is the location of a variable read or written by node n, which
// may go through an implicit receiver.
func (m *method) variable(n ast.Node, id types.ID) Location {
	owner, _ := binding.Get(m.g.store, typechecker.ImplicitReceiver, n)
	return m.varValue(id, owner)
}

func (m *method) varValue(id, recvOwner types.ID) Location {
	d := m.g.table.Get(id)
	switch d.Var.Storage {
	case types.StorageLocal, types.StorageParameter:
		return m.localVariable(id)
	}
	var recv StackValue
	if recvOwner != types.NoID {
		recv = m.receiver(recvOwner)
	}
	return m.propertyOf(id, recv)
}

// localVariable is a local or parameter of this method, or one captured by
// the closure the method belongs to.
func (m *method) localVariable(id types.ID) Location {
	if slot, ok := m.frame.Lookup(id); ok {
		t := m.g.varType(id)
		if m.g.isBoxed(id) {
			return newCell(t, func() { m.emit(bytecode.VarInsn(bytecode.ALOAD, slot)) })
		}
		return local{slot: slot, t: t}
	}
	if v, ok := m.captured(id); ok {
		return v
	}
	return invalid{"variable " + m.g.table.Get(id).Name + " is not in scope"}
}

// propertyOf is a property of the object recv pushes; recv is nil for
// top-level properties.
func (m *method) propertyOf(id types.ID, recv StackValue) Location {
	g := m.g
	d := g.table.Get(id)
	t := g.varType(id)
	if d.Var.Intrinsic != "" {
		return readOnly{m.intrinsicValue(d.Var.Intrinsic, recv, nil, t), d.Name}
	}
	owner := g.table.Get(d.Owner)
	p := &property{t: t, owner: g.ownerName(d.Owner), name: d.Name, field: g.hasField(id)}
	if owner.Kind == types.KindPackage {
		p.static, p.op = true, bytecode.INVOKESTATIC
	} else {
		if recv == nil {
			return invalid{"property " + d.Name + " without a receiver"}
		}
		ct := g.types.classType(d.Owner)
		p.recv = func() { recv.Put(m, ct) }
		p.op = bytecode.INVOKEVIRTUAL
		if owner.IsTrait() {
			p.op = bytecode.INVOKEINTERFACE
		}
	}
	read, write := g.directAccess(id, m.cls)
	if !read {
		p.get = g.getterRef(id)
	}
	if d.Var.Mutable && !write {
		p.set = g.setterRef(id)
	}
	return p
}

func (m *method) qualified(n *ast.QualifiedExpr) StackValue {
	if _, ok := binding.Get(m.g.store, binding.ExpressionType, ast.Node(n.Receiver)); !ok {
		// a class or package qualifier
		return m.selector(n, nil)
	}
	if n.Safe && m.g.typeOf(n.Receiver).Nullable() {
		return m.safeCall(n)
	}
	return m.selector(n, m.lazy(n.Receiver))
}

func (m *method) selector(n *ast.QualifiedExpr, recv StackValue) StackValue {
	switch sel := n.Selector.(type) {
	case *ast.NameExpr:
		id, ok := m.g.ref(sel)
		if !ok {
			return invalid{"unresolved member " + sel.Name}
		}
		switch m.g.table.Get(id).Kind {
		case types.KindClass:
			return m.objectValue(id)
		case types.KindVariable:
			return m.propertyOf(id, recv)
		}
	case *ast.CallExpr:
		return m.call(sel, recv)
	}
	return invalid{"selector"}
}

// safeCall lowers recv?.selector: a null receiver skips the selector and
// yields null.
func (m *method) safeCall(n *ast.QualifiedExpr) StackValue {
	t := m.exprType(n)
	return deferred{t: t, gen: func(to bytecode.Type) {
		w := t
		if to.Sort == bytecode.SortVoid {
			w = bytecode.Void
		}
		rt := m.exprType(n.Receiver)
		m.put(n.Receiver, rt)
		m.emit(bytecode.Op(bytecode.DUP))
		isNull := m.forward(bytecode.IFNULL)
		m.selector(n, onStack{rt}).Put(m, w)
		var end []jump
		if m.endReachable() {
			end = append(end, m.forward(bytecode.GOTO))
		}
		m.patchHere(isNull)
		m.emit(bytecode.Op(bytecode.POP))
		if w.Sort != bytecode.SortVoid {
			m.emit(bytecode.Op(bytecode.ACONST_NULL))
		}
		m.patchHere(end...)
		m.coerce(w, to)
	}}
}

func (m *method) binary(n *ast.BinaryExpr) StackValue {
	op := n.Op.Kind
	switch {
	case op == tokens.AND_TOKEN, op == tokens.OR_TOKEN, tokens.IsEquality(op), tokens.IsComparison(op):
		return m.condValue(n)
	case op == tokens.ELVIS_TOKEN:
		return m.elvis(n)
	}
	if call, ok := m.operatorCall(n); ok {
		return m.invoke(call, m.lazy(n.X), []arg{m.exprArg(n.Y)})
	}
	t := m.exprType(n)
	if op == tokens.PLUS_TOKEN && t == bytecode.String {
		return m.concat(m.concatParts(n))
	}
	return m.arith(op, m.lazy(n.X), m.lazy(n.Y), t)
}

// arith applies a primitive arithmetic operator at the wider operand type
// and converts the result to t.
func (m *method) arith(op tokens.TOKEN, x, y StackValue, t bytecode.Type) StackValue {
	return deferred{t: t, gen: func(to bytecode.Type) {
		w := promote(prim(x.Type()), prim(y.Type()))
		x.Put(m, w)
		y.Put(m, w)
		m.emit(bytecode.Op(w.Opcode(arithOps[op])))
		m.coerce(w, t)
		m.coerce(t, to)
	}}
}

// prim is the primitive a value of t computes with.
func prim(t bytecode.Type) bytecode.Type {
	if t.IsPrimitive() {
		return t
	}
	if p, ok := unboxedOf[t.Internal]; ok {
		return p
	}
	return bytecode.Int
}

// promote is the type binary arithmetic on ts runs at: at least Int.
func promote(ts ...bytecode.Type) bytecode.Type {
	w := bytecode.Int
	for _, t := range ts {
		switch {
		case t.Sort == bytecode.SortDouble:
			w = bytecode.Double
		case t.Sort == bytecode.SortFloat && w != bytecode.Double:
			w = bytecode.Float
		case t.Sort == bytecode.SortLong && w == bytecode.Int:
			w = bytecode.Long
		}
	}
	return w
}

// concatParts flattens a chain of string additions into its operands.
func (m *method) concatParts(e ast.Expression) []StackValue {
	if b, ok := e.(*ast.BinaryExpr); ok && b.Op.Kind == tokens.PLUS_TOKEN && m.exprType(b) == bytecode.String {
		_, folded := m.folded(b)
		_, call := m.operatorCall(b)
		if !folded && !call {
			return append(m.concatParts(b.X), m.lazy(b.Y))
		}
	}
	return []StackValue{m.lazy(e)}
}

func (m *method) concat(parts []StackValue) StackValue {
	return deferred{t: bytecode.String, gen: func(to bytecode.Type) {
		const sb = "java/lang/StringBuilder"
		m.emit(bytecode.TypeInsn(bytecode.NEW, sb))
		m.emit(bytecode.Op(bytecode.DUP))
		m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, sb, "<init>", "()V", false))
		for _, p := range parts {
			at := appendType(p.Type())
			p.Put(m, at)
			m.emit(bytecode.MethodInsn(bytecode.INVOKEVIRTUAL, sb, "append",
				bytecode.MethodDescriptor(bytecode.ObjectType(sb), at), false))
		}
		m.emit(bytecode.MethodInsn(bytecode.INVOKEVIRTUAL, sb, "toString", "()Ljava/lang/String;", false))
		m.coerce(bytecode.String, to)
	}}
}

// appendType is the StringBuilder.append overload taking t.
func appendType(t bytecode.Type) bytecode.Type {
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

// elvis lowers x ?: y. y runs only when x is null.
func (m *method) elvis(n *ast.BinaryExpr) StackValue {
	t := m.exprType(n)
	xt := m.exprType(n.X)
	if xt.IsPrimitive() {
		return deferred{t: t, gen: func(to bytecode.Type) { m.put(n.X, to) }}
	}
	return deferred{t: t, gen: func(to bytecode.Type) {
		m.put(n.X, xt)
		m.emit(bytecode.Op(bytecode.DUP))
		nonNull := m.forward(bytecode.IFNONNULL)
		m.emit(bytecode.Op(bytecode.POP))
		m.put(n.Y, to)
		var end []jump
		if m.endReachable() {
			end = append(end, m.forward(bytecode.GOTO))
		}
		m.patchHere(nonNull)
		m.coerce(xt, to)
		m.patchHere(end...)
	}}
}

func (m *method) unary(n *ast.UnaryExpr) StackValue {
	op := n.Op.Kind
	if op == tokens.PLUS_PLUS_TOKEN || op == tokens.MINUS_MINUS_TOKEN {
		return m.increment(n, n.X, op, true)
	}
	if call, ok := m.operatorCall(n); ok {
		return m.invoke(call, m.lazy(n.X), nil)
	}
	t := m.exprType(n)
	switch op {
	case tokens.NOT_TOKEN:
		return m.condValue(n)
	case tokens.MINUS_TOKEN:
		return deferred{t: t, gen: func(to bytecode.Type) {
			w := promote(prim(m.exprType(n.X)))
			m.put(n.X, w)
			m.emit(bytecode.Op(w.Opcode(bytecode.INEG)))
			m.coerce(w, t)
			m.coerce(t, to)
		}}
	}
	return deferred{t: t, gen: func(to bytecode.Type) {
		m.put(n.X, t)
		m.coerce(t, to)
	}}
}

func (m *method) postfix(n *ast.PostfixExpr) StackValue {
	if n.Op.Kind != tokens.NOT_NULL_TOKEN {
		return m.increment(n, n.X, n.Op.Kind, false)
	}
	t := m.exprType(n)
	st := m.g.types.mapType(m.g.staticType(n.X))
	if st.IsPrimitive() {
		return m.gen(n.X)
	}
	return deferred{t: t, gen: func(to bytecode.Type) {
		m.put(n.X, st)
		m.emit(bytecode.Op(bytecode.DUP))
		ok := m.forward(bytecode.IFNONNULL)
		m.throwNew("java/lang/NullPointerException", "")
		m.patchHere(ok)
		m.coerce(st, to)
	}}
}

// throwNew throws a new exception of class, with msg when it is not empty.
func (m *method) throwNew(class, msg string) {
	m.emit(bytecode.TypeInsn(bytecode.NEW, class))
	m.emit(bytecode.Op(bytecode.DUP))
	desc := "()V"
	if msg != "" {
		m.emit(bytecode.Ldc(msg))
		desc = "(Ljava/lang/String;)V"
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, class, "<init>", desc, false))
	m.emit(bytecode.Op(bytecode.ATHROW))
}

func (m *method) assign(a *ast.AssignExpr) {
	if ix, ok := a.Target.(*ast.IndexExpr); ok {
		m.assignIndex(a, ix)
		return
	}
	loc := m.location(a.Target)
	base, compound := tokens.BaseOperator(a.Op.Kind)
	if !compound {
		loc.Store(m, func(t bytecode.Type) { m.put(a.Value, t) })
		return
	}
	call, hasCall := m.operatorCall(a)
	if l, ok := loc.(local); ok && !hasCall && l.t == bytecode.Int && (base == tokens.PLUS_TOKEN || base == tokens.MINUS_TOKEN) {
		if c, ok := m.intConstant(a.Value); ok {
			if base == tokens.MINUS_TOKEN {
				c = -c
			}
			if c >= -1<<15 && c < 1<<15 {
				m.emit(bytecode.Iinc(l.slot, int(c)))
				return
			}
		}
	}
	release := loc.Bind(m)
	defer release()
	t := loc.Type()
	loc.Store(m, func(st bytecode.Type) {
		switch {
		case hasCall:
			m.invoke(call, loc, []arg{m.exprArg(a.Value)}).Put(m, st)
		case base == tokens.PLUS_TOKEN && t == bytecode.String:
			m.concat([]StackValue{loc, m.lazy(a.Value)}).Put(m, st)
		default:
			m.arith(base, loc, m.lazy(a.Value), t).Put(m, st)
		}
	})
}

// location is the variable an assignment or increment writes.
func (m *method) location(e ast.Expression) Location {
	switch e := e.(type) {
	case *ast.NameExpr:
		if id, ok := m.g.ref(e); ok && m.g.table.Get(id).Kind == types.KindVariable {
			return m.variable(e, id)
		}
	case *ast.QualifiedExpr:
		sel, ok := e.Selector.(*ast.NameExpr)
		if !ok || e.Safe {
			break
		}
		id, ok := m.g.ref(sel)
		if !ok || m.g.table.Get(id).Kind != types.KindVariable {
			break
		}
		if _, ok := binding.Get(m.g.store, binding.ExpressionType, ast.Node(e.Receiver)); !ok {
			return m.propertyOf(id, nil)
		}
		return m.propertyOf(id, m.lazy(e.Receiver))
	}
	return invalid{"assignment target"}
}

// increment lowers ++ and --. The value is the operand before the step for
// postfix forms and after it for prefix forms.
func (m *method) increment(n, x ast.Expression, op tokens.TOKEN, prefix bool) StackValue {
	if ix, ok := x.(*ast.IndexExpr); ok {
		return m.incrementIndex(n, ix, op, prefix)
	}
	loc := m.location(x)
	call, hasCall := m.operatorCall(n)
	lt := loc.Type()
	return deferred{t: lt, gen: func(to bytecode.Type) {
		void := to.Sort == bytecode.SortVoid
		if l, ok := loc.(local); ok && !hasCall && l.t == bytecode.Int {
			delta := 1
			if op == tokens.MINUS_MINUS_TOKEN {
				delta = -1
			}
			if !prefix && !void {
				m.load(l)
			}
			m.emit(bytecode.Iinc(l.slot, delta))
			if prefix && !void {
				m.load(l)
			}
			if !void {
				m.coerce(bytecode.Int, to)
			}
			return
		}
		mark := m.frame.Mark()
		loc.Bind(m)
		var res local
		stored := false
		loc.Store(m, func(st bytecode.Type) {
			loc.Put(m, lt)
			if !prefix && !void {
				m.dup(lt)
				res, stored = m.temp(lt), true
			}
			m.step(lt, op, call, hasCall)
			if prefix && !void {
				m.dup(lt)
				res, stored = m.temp(lt), true
			}
			m.coerce(lt, st)
		})
		if stored {
			m.load(res)
			m.coerce(lt, to)
		}
		m.frame.DropTo(mark)
	}}
}

// step adds or subtracts one from the value of type t on the stack, or
// calls the inc or dec operator.
func (m *method) step(t bytecode.Type, op tokens.TOKEN, call *calls.Call, hasCall bool) {
	if hasCall {
		m.invoke(call, onStack{t}, nil).Put(m, t)
		return
	}
	w := promote(prim(t))
	m.coerce(t, w)
	m.pushNumber(w, 1, 1)
	base := bytecode.IADD
	if op == tokens.MINUS_MINUS_TOKEN {
		base = bytecode.ISUB
	}
	m.emit(bytecode.Op(w.Opcode(base)))
	m.coerce(w, t)
}

func (m *method) dup(t bytecode.Type) {
	if t.Size() == 2 {
		m.emit(bytecode.Op(bytecode.DUP2))
		return
	}
	m.emit(bytecode.Op(bytecode.DUP))
}

// keep evaluates v into a new temporary.
func (m *method) keep(v StackValue) local {
	t := v.Type()
	if t.Sort == bytecode.SortVoid {
		t = unitType
	}
	v.Put(m, t)
	return m.temp(t)
}

// indexed evaluates the array or collection and the indices of ix once.
func (m *method) indexed(ix *ast.IndexExpr) (local, []arg) {
	recv := m.keep(m.lazy(ix.X))
	idx := make([]arg, len(ix.Indices))
	for i, e := range ix.Indices {
		idx[i] = m.keepArg(m.exprArg(e))
	}
	return recv, idx
}

func (m *method) incrementIndex(n ast.Expression, ix *ast.IndexExpr, op tokens.TOKEN, prefix bool) StackValue {
	get, ok1 := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(ix))
	set, ok2 := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(n))
	if !ok1 || !ok2 {
		return invalid{"indexed increment without get and set"}
	}
	call, hasCall := m.operatorCall(n)
	lt := m.g.types.mapType(get.Result)
	return deferred{t: lt, gen: func(to bytecode.Type) {
		void := to.Sort == bytecode.SortVoid
		mark := m.frame.Mark()
		recv, idx := m.indexed(ix)
		var res local
		stored := false
		value := arg{t: lt, put: func(st bytecode.Type) {
			m.invoke(get, recv, idx).Put(m, lt)
			if !prefix && !void {
				m.dup(lt)
				res, stored = m.temp(lt), true
			}
			m.step(lt, op, call, hasCall)
			if prefix && !void {
				m.dup(lt)
				res, stored = m.temp(lt), true
			}
			m.coerce(lt, st)
		}}
		m.invoke(set, recv, append(idx, value)).Put(m, bytecode.Void)
		if stored {
			m.load(res)
			m.coerce(lt, to)
		}
		m.frame.DropTo(mark)
	}}
}

func (m *method) assignIndex(a *ast.AssignExpr, ix *ast.IndexExpr) {
	set, ok := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(a))
	if !ok {
		m.unsupported("indexed assignment without set")
		return
	}
	base, compound := tokens.BaseOperator(a.Op.Kind)
	if !compound {
		args := make([]arg, 0, len(ix.Indices)+1)
		for _, e := range ix.Indices {
			args = append(args, m.exprArg(e))
		}
		m.invoke(set, m.lazy(ix.X), append(args, m.exprArg(a.Value))).Put(m, bytecode.Void)
		return
	}
	get, ok := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(ix))
	if !ok {
		m.unsupported("indexed assignment without get")
		return
	}
	call, hasCall := m.operatorCall(a)
	lt := m.g.types.mapType(get.Result)
	mark := m.frame.Mark()
	recv, idx := m.indexed(ix)
	value := arg{t: lt, put: func(st bytecode.Type) {
		cur := m.invoke(get, recv, idx)
		switch {
		case hasCall:
			m.invoke(call, cur, []arg{m.exprArg(a.Value)}).Put(m, st)
		case base == tokens.PLUS_TOKEN && lt == bytecode.String:
			m.concat([]StackValue{cur, m.lazy(a.Value)}).Put(m, st)
		default:
			m.arith(base, cur, m.lazy(a.Value), lt).Put(m, st)
		}
	}}
	m.invoke(set, recv, append(idx, value)).Put(m, bytecode.Void)
	m.frame.DropTo(mark)
}

func (m *method) index(ix *ast.IndexExpr) StackValue {
	get, ok := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(ix))
	if !ok {
		return invalid{"index without get"}
	}
	args := make([]arg, len(ix.Indices))
	for i, e := range ix.Indices {
		args[i] = m.exprArg(e)
	}
	return m.invoke(get, m.lazy(ix.X), args)
}

func (m *method) tuple(t *ast.TupleExpr) StackValue {
	tt := tupleType(len(t.Elems))
	return deferred{t: tt, gen: func(to bytecode.Type) {
		m.emit(bytecode.TypeInsn(bytecode.NEW, tt.Internal))
		m.emit(bytecode.Op(bytecode.DUP))
		params := make([]bytecode.Type, len(t.Elems))
		for i, e := range t.Elems {
			m.put(e, bytecode.Object)
			params[i] = bytecode.Object
		}
		m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, tt.Internal, "<init>", bytecode.MethodDescriptor(bytecode.Void, params...), false))
		m.coerce(tt, to)
	}}
}

// cast lowers `as` and `as?`. An unsafe cast of null to a non-null type is
// not checked.
func (m *method) cast(c *ast.CastExpr) StackValue {
	target, ok := binding.Get(m.g.store, binding.ResolvedType, ast.Node(c.Type))
	if !ok || target == nil {
		return invalid{"cast to an unresolved type"}
	}
	t := m.exprType(c)
	ct := boxed(m.g.types.mapType(types.MakeNotNull(target)))
	return deferred{t: t, gen: func(to bytecode.Type) {
		xt := m.exprType(c.X)
		if !c.Safe {
			m.put(c.X, xt)
			if xt.IsReference() && !m.g.types.assignable(xt, ct) {
				m.emit(bytecode.TypeInsn(bytecode.CHECKCAST, ct.ClassName()))
				xt = ct
			}
			m.coerce(xt, to)
			return
		}
		bx := boxed(xt)
		m.put(c.X, bx)
		m.emit(bytecode.Op(bytecode.DUP))
		m.emit(bytecode.TypeInsn(bytecode.INSTANCEOF, ct.ClassName()))
		ok := m.forward(bytecode.IFNE)
		m.emit(bytecode.Op(bytecode.POP))
		m.emit(bytecode.Op(bytecode.ACONST_NULL))
		end := m.forward(bytecode.GOTO)
		m.patchHere(ok)
		if !m.g.types.assignable(bx, ct) {
			m.emit(bytecode.TypeInsn(bytecode.CHECKCAST, ct.ClassName()))
		}
		m.patchHere(end)
		m.coerce(ct, to)
	}}
}

// condValue materializes a condition as 0 or 1.
func (m *method) condValue(e ast.Expression) StackValue {
	return deferred{t: bytecode.Boolean, gen: func(to bytecode.Type) {
		f := m.cond(e, false)
		if to.Sort == bytecode.SortVoid {
			m.patchHere(f...)
			return
		}
		m.emit(bytecode.Op(bytecode.ICONST_1))
		if len(f) > 0 {
			end := m.forward(bytecode.GOTO)
			m.patchHere(f...)
			m.emit(bytecode.Op(bytecode.ICONST_0))
			m.patchHere(end)
		}
		m.coerce(bytecode.Boolean, to)
	}}
}

// cond emits a test of e that jumps when e evaluates to jumpIf and falls
// through otherwise. It returns the jumps to patch.
func (m *method) cond(e ast.Expression, jumpIf bool) []jump {
	if b, ok := m.g.consts.EvaluateAsBool(e); ok {
		if b == jumpIf {
			return []jump{m.forward(bytecode.GOTO)}
		}
		return nil
	}
	switch e := e.(type) {
	case *ast.UnaryExpr:
		if _, call := m.operatorCall(e); e.Op.Kind == tokens.NOT_TOKEN && !call {
			return m.cond(e.X, !jumpIf)
		}
	case *ast.BinaryExpr:
		switch op := e.Op.Kind; {
		case op == tokens.AND_TOKEN:
			if jumpIf {
				skip := m.cond(e.X, false)
				js := m.cond(e.Y, true)
				m.patchHere(skip...)
				return js
			}
			return append(m.cond(e.X, false), m.cond(e.Y, false)...)
		case op == tokens.OR_TOKEN:
			if jumpIf {
				return append(m.cond(e.X, true), m.cond(e.Y, true)...)
			}
			skip := m.cond(e.X, true)
			js := m.cond(e.Y, false)
			m.patchHere(skip...)
			return js
		case tokens.IsEquality(op):
			return m.equality(e, jumpIf)
		case tokens.IsComparison(op):
			return m.comparison(e, jumpIf)
		}
	case *ast.IsExpr:
		t, ok := binding.Get(m.g.store, binding.ResolvedType, ast.Node(e.Type))
		if !ok || t == nil {
			m.unsupported("is check against an unresolved type")
			return nil
		}
		return m.isJump(m.lazy(e.X), t, jumpIf != e.Negated)
	}
	m.put(e, bytecode.Boolean)
	if jumpIf {
		return []jump{m.forward(bytecode.IFNE)}
	}
	return []jump{m.forward(bytecode.IFEQ)}
}

func isNullLiteral(e ast.Expression) bool {
	l, ok := e.(*ast.Literal)
	return ok && l.Kind == ast.NULL
}

func (m *method) equality(e *ast.BinaryExpr, jumpIf bool) []jump {
	op := e.Op.Kind
	ident := op == tokens.IDENTITY_TOKEN || op == tokens.NOT_IDENTITY_TOKEN
	eq := jumpIf != tokens.IsNegatedEquality(op)
	switch {
	case isNullLiteral(e.Y):
		return m.nullJump(m.lazy(e.X), eq)
	case isNullLiteral(e.X):
		return m.nullJump(m.lazy(e.Y), eq)
	}
	return m.equalJump(m.lazy(e.X), m.lazy(e.Y), ident, eq)
}

// nullJump jumps when v is null, or when it is not null if isNull is false.
func (m *method) nullJump(v StackValue, isNull bool) []jump {
	t := v.Type()
	if t.IsPrimitive() {
		v.Put(m, bytecode.Void)
		if isNull {
			return nil
		}
		return []jump{m.forward(bytecode.GOTO)}
	}
	v.Put(m, t)
	if isNull {
		return []jump{m.forward(bytecode.IFNULL)}
	}
	return []jump{m.forward(bytecode.IFNONNULL)}
}

// equalJump jumps when x equals y, or when they differ if eq is false.
// ident compares references.
func (m *method) equalJump(x, y StackValue, ident, eq bool) []jump {
	xt, yt := x.Type(), y.Type()
	if xt.IsPrimitive() && yt.IsPrimitive() {
		w := promote(xt, yt)
		x.Put(m, w)
		y.Put(m, w)
		return m.compareJump(w, bytecode.IF_ICMPEQ, eq)
	}
	x.Put(m, bytecode.Object)
	y.Put(m, bytecode.Object)
	if ident {
		if eq {
			return []jump{m.forward(bytecode.IF_ACMPEQ)}
		}
		return []jump{m.forward(bytecode.IF_ACMPNE)}
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESTATIC, "jet/runtime/Intrinsics", "areEqual",
		"(Ljava/lang/Object;Ljava/lang/Object;)Z", false))
	if eq {
		return []jump{m.forward(bytecode.IFNE)}
	}
	return []jump{m.forward(bytecode.IFEQ)}
}

// compareJump compares the two values of type w on the stack with rel, an
// IF_ICMPxx opcode, and jumps when the relation holds, or when it does not
// if jumpIf is false. NaN operands make every relation but != false.
func (m *method) compareJump(w bytecode.Type, rel bytecode.Opcode, jumpIf bool) []jump {
	orig := rel
	if !jumpIf {
		rel = rel.Negate()
	}
	switch w.Sort {
	case bytecode.SortLong:
		m.emit(bytecode.Op(bytecode.LCMP))
	case bytecode.SortFloat, bytecode.SortDouble:
		g := orig == bytecode.IF_ICMPLT || orig == bytecode.IF_ICMPLE
		switch {
		case w.Sort == bytecode.SortFloat && g:
			m.emit(bytecode.Op(bytecode.FCMPG))
		case w.Sort == bytecode.SortFloat:
			m.emit(bytecode.Op(bytecode.FCMPL))
		case g:
			m.emit(bytecode.Op(bytecode.DCMPG))
		default:
			m.emit(bytecode.Op(bytecode.DCMPL))
		}
	default:
		return []jump{m.forward(rel)}
	}
	return []jump{m.forward(rel - bytecode.IF_ICMPEQ + bytecode.IFEQ)}
}

func (m *method) comparison(e *ast.BinaryExpr, jumpIf bool) []jump {
	rel := relOps[e.Op.Kind]
	zeroTest := func() []jump {
		if !jumpIf {
			rel = rel.Negate()
		}
		return []jump{m.forward(rel - bytecode.IF_ICMPEQ + bytecode.IFEQ)}
	}
	if call, ok := m.operatorCall(e); ok {
		m.invoke(call, m.lazy(e.X), []arg{m.exprArg(e.Y)}).Put(m, bytecode.Int)
		return zeroTest()
	}
	x, y := m.lazy(e.X), m.lazy(e.Y)
	w := promote(prim(x.Type()), prim(y.Type()))
	if c, ok := m.intConstant(e.Y); ok && c == 0 && w == bytecode.Int {
		x.Put(m, bytecode.Int)
		return zeroTest()
	}
	x.Put(m, w)
	y.Put(m, w)
	return m.compareJump(w, rel, jumpIf)
}

// isJump tests whether v is an instance of target and jumps when the
// outcome equals jumpIf. null is an instance of nullable targets only.
func (m *method) isJump(v StackValue, target *types.Type, jumpIf bool) []jump {
	ct := boxed(m.g.types.mapType(types.MakeNotNull(target)))
	v.Put(m, boxed(v.Type()))
	op := bytecode.IFEQ
	if jumpIf {
		op = bytecode.IFNE
	}
	if !target.Nullable() {
		m.emit(bytecode.TypeInsn(bytecode.INSTANCEOF, ct.ClassName()))
		return []jump{m.forward(op)}
	}
	m.emit(bytecode.Op(bytecode.DUP))
	isNull := m.forward(bytecode.IFNULL)
	m.emit(bytecode.TypeInsn(bytecode.INSTANCEOF, ct.ClassName()))
	js := []jump{m.forward(op)}
	done := m.forward(bytecode.GOTO)
	m.patchHere(isNull)
	m.emit(bytecode.Op(bytecode.POP))
	if jumpIf {
		js = append(js, m.forward(bytecode.GOTO))
	}
	m.patchHere(done)
	return js
}
