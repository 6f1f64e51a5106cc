package gen

import (
	"strconv"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/typechecker"
	"jetc/internal/types"
)

type captureKind int

const (
	capVar      captureKind = iota // a local variable or parameter
	capReceiver                    // the instance of an enclosing class or extension
	capFunction                    // the closure object of a local function
)

// capture is a value a closure class copies into a field when created.
type capture struct {
	id    types.ID
	kind  captureKind
	field string
	t     bytecode.Type // field and constructor parameter type
	boxed bool          // t is the Ref cell of a var
}

// closure lists what a lambda, local function or local class captures, in
// source order.
type closure struct {
	caps  []*capture
	byID  map[types.ID]*capture
	names map[string]bool
	recvs int
}

func (cl *closure) add(c *capture) {
	if _, ok := cl.byID[c.id]; ok {
		return
	}
	if c.kind == capReceiver {
		c.field = "this$" + strconv.Itoa(cl.recvs)
		cl.recvs++
	} else {
		name := c.field
		for i := 1; cl.names[c.field]; i++ {
			c.field = name + "$" + strconv.Itoa(i)
		}
	}
	cl.names[c.field] = true
	cl.byID[c.id] = c
	cl.caps = append(cl.caps, c)
}

// captures computes the closure of node, the body of the declaration id.
func (g *Generator) captures(node ast.Node, id types.ID) *closure {
	if cl, ok := g.closures[id]; ok {
		return cl
	}
	cl := &closure{byID: make(map[types.ID]*capture), names: make(map[string]bool)}
	g.closures[id] = cl

	receiver := func(r types.ID) {
		d := g.table.Get(r)
		if d.Kind == types.KindClass && (d.IsObject() || r == g.bi.Unit) || g.inside(r, id) {
			return
		}
		t := bytecode.Object
		switch d.Kind {
		case types.KindClass:
			t = g.types.classType(r)
		case types.KindFunction:
			if d.Func.Receiver != nil {
				t = g.types.mapType(d.Func.Receiver)
			}
		}
		cl.add(&capture{id: r, kind: capReceiver, t: t})
	}
	merge := func(class types.ID) {
		if class == id || g.inside(class, id) {
			return
		}
		lc := g.localClosure(class)
		if lc == nil {
			return
		}
		for _, c := range lc.caps {
			if !g.inside(c.id, id) {
				cp := *c
				cp.field = g.table.Get(c.id).Name
				if c.kind != capReceiver {
					cp.field = "$" + cp.field
				}
				cl.add(&cp)
			}
		}
	}
	ctorCall := func(n ast.Node) {
		if call, ok := binding.Get(g.store, calls.ResolvedCall, n); ok && call.ID != types.NoID {
			if d := g.table.Get(call.ID); d.Kind == types.KindConstructor {
				merge(d.Owner)
			}
		}
	}
	implicit := func(n ast.Node) {
		if r, ok := binding.Get(g.store, typechecker.ImplicitReceiver, n); ok {
			receiver(r)
		}
	}

	ast.Inspect(node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.NameExpr:
			if r, ok := g.ref(n); ok && !g.inside(r, id) {
				d := g.table.Get(r)
				switch {
				case d.Kind == types.KindVariable && (d.Var.Storage == types.StorageLocal || d.Var.Storage == types.StorageParameter):
					c := &capture{id: r, kind: capVar, field: "$" + d.Name, t: g.varType(r)}
					if g.isBoxed(r) {
						c.t, _ = refType(c.t)
						c.boxed = true
					}
					cl.add(c)
				case d.Kind == types.KindFunction && d.Func.Local:
					cl.add(&capture{id: r, kind: capFunction, field: "$" + d.Name, t: bytecode.ObjectType(g.names[d.Decl])})
				}
			}
			implicit(n)
		case *ast.CallExpr:
			implicit(n)
			ctorCall(n)
		case *ast.SuperEntry:
			ctorCall(n)
		case *ast.ThisExpr:
			if r, ok := g.ref(n); ok {
				receiver(r)
			}
		case *ast.ObjectLiteral:
			if oid, ok := g.decl(n.Decl); ok {
				merge(oid)
			}
		}
		return true
	})
	return cl
}

// localClosure is the closure of a local or anonymous class, nil for other
// classes.
func (g *Generator) localClosure(class types.ID) *closure {
	d := g.table.Get(class)
	if d.Kind != types.KindClass || !(d.Class.Local || d.Class.Kind == types.ClassAnonymous) {
		return nil
	}
	cd, ok := d.Decl.(*ast.ClassDecl)
	if !ok {
		return nil
	}
	return g.captures(cd, class)
}

// captured reads a value captured by the closure class the method belongs
// to, or a captured value passed to the constructor being generated.
func (m *method) captured(id types.ID) (Location, bool) {
	name := m.g.table.Get(id).Name
	if l, ok := m.captureSlots[id]; ok {
		if cl := m.cls.closure; cl != nil && cl.byID[id] != nil && cl.byID[id].boxed {
			return newCell(m.g.varType(id), func() { m.load(l) }), true
		}
		return readOnly{l, name}, true
	}
	cl := m.cls.closure
	if cl == nil {
		return nil, false
	}
	c, ok := cl.byID[id]
	if !ok {
		return nil, false
	}
	owner := m.cls.node.Name
	load := func() {
		m.loadThis()
		m.emit(bytecode.FieldInsn(bytecode.GETFIELD, owner, c.field, c.t.Descriptor()))
	}
	if c.boxed {
		return newCell(m.g.varType(id), load), true
	}
	return readOnly{deferred{t: c.t, gen: func(to bytecode.Type) {
		if to.Sort == bytecode.SortVoid {
			return
		}
		load()
		m.coerce(c.t, to)
	}}, name}, true
}

// pushCapture pushes the value a new closure object captures.
func (m *method) pushCapture(c *capture) {
	switch {
	case c.kind == capReceiver:
		m.receiver(c.id).Put(m, c.t)
	case c.kind == capFunction:
		m.localFunction(c.id).Put(m, c.t)
	case c.boxed:
		m.cellRef(c.id)
	default:
		m.localVariable(c.id).Put(m, c.t)
	}
}

// cellRef pushes the Ref cell of a captured var itself.
func (m *method) cellRef(id types.ID) {
	if slot, ok := m.frame.Lookup(id); ok {
		m.emit(bytecode.VarInsn(bytecode.ALOAD, slot))
		return
	}
	if l, ok := m.captureSlots[id]; ok {
		m.load(l)
		return
	}
	if cl := m.cls.closure; cl != nil {
		if c, ok := cl.byID[id]; ok && c.boxed {
			m.loadThis()
			m.emit(bytecode.FieldInsn(bytecode.GETFIELD, m.cls.node.Name, c.field, c.t.Descriptor()))
			return
		}
	}
	m.unsupported("variable " + m.g.table.Get(id).Name + " is not in scope")
}

// newClosure creates an instance of a lambda or local function class.
func (m *method) newClosure(c *classGen) {
	m.emit(bytecode.TypeInsn(bytecode.NEW, c.node.Name))
	m.emit(bytecode.Op(bytecode.DUP))
	params := make([]bytecode.Type, len(c.closure.caps))
	for i, cp := range c.closure.caps {
		m.pushCapture(cp)
		params[i] = cp.t
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, c.node.Name, "<init>",
		bytecode.MethodDescriptor(bytecode.Void, params...), false))
}

func (m *method) lambda(lit *ast.FunctionLiteral) StackValue {
	id, ok := m.g.decl(lit)
	if !ok {
		return invalid{"untyped function literal"}
	}
	ft := functionType(len(m.g.table.Get(id).Func.Params))
	return deferred{t: ft, gen: func(to bytecode.Type) {
		c := m.g.lambdaClass(lit, id, m.cls)
		m.newClosure(c)
		m.coerce(ft, to)
	}}
}

// lambdaClass generates the class of a function literal. Its invoke takes
// and returns objects; the parameters are unboxed into typed locals first.
func (g *Generator) lambdaClass(lit *ast.FunctionLiteral, id types.ID, outer *classGen) *classGen {
	if c, ok := g.classes[id]; ok {
		return c
	}
	d := g.table.Get(id)
	n := len(d.Func.Params)
	c := g.closureClass(g.names[lit], id, g.captures(lit, id), outer, functionType(n).Internal)
	g.classes[id] = c

	objs := make([]bytecode.Type, n)
	for i := range objs {
		objs[i] = bytecode.Object
	}
	m := g.newMethod(c, bytecode.AccPublic|bytecode.AccFinal, "invoke", bytecode.MethodDescriptor(bytecode.Object, objs...), bytecode.Object)
	m.owner = lit
	raw := make([]int, n)
	for i := range raw {
		raw[i] = m.frame.EnterTemp(1)
	}
	for i, pid := range d.Func.Params {
		pt := g.varType(pid)
		m.load(local{slot: raw[i], t: bytecode.Object})
		m.coerce(bytecode.Object, pt)
		slot := m.enterVar(pid, g.table.Get(pid).Name, pt)
		m.emit(bytecode.VarInsn(pt.Opcode(bytecode.ISTORE), slot))
	}
	if g.isUnitOrNothing(d.Func.Result) {
		m.block(lit.Body).Put(m, bytecode.Void)
		if m.endReachable() {
			m.coerce(bytecode.Void, bytecode.Object)
		}
	} else {
		m.block(lit.Body).Put(m, bytecode.Object)
	}
	if m.endReachable() {
		m.emit(bytecode.Op(bytecode.ARETURN))
	}
	m.close()
	c.finish()
	return c
}

// localFunDecl creates the closure object of a local function and keeps it
// in a local.
func (m *method) localFunDecl(fd *ast.FunDecl) {
	id, ok := m.g.decl(fd)
	if !ok {
		m.unsupported("undeclared local function")
		return
	}
	c := m.g.localFunClass(fd, id, m.cls)
	m.newClosure(c)
	slot := m.enterVar(id, fd.Name.Name, bytecode.ObjectType(c.node.Name))
	m.emit(bytecode.VarInsn(bytecode.ASTORE, slot))
}

func (g *Generator) localFunClass(fd *ast.FunDecl, id types.ID, outer *classGen) *classGen {
	if c, ok := g.classes[id]; ok {
		return c
	}
	c := g.closureClass(g.names[fd], id, g.captures(fd, id), outer, "")
	g.classes[id] = c
	g.emitFunction(c, id, fd, bytecode.AccPublic|bytecode.AccFinal, "invoke")
	c.finish()
	return c
}

// closureClass creates the class of a lambda or local function with a
// field and a constructor parameter per capture.
func (g *Generator) closureClass(name string, id types.ID, cl *closure, outer *classGen, iface string) *classGen {
	node := &bytecode.ClassNode{
		Access: bytecode.AccFinal | bytecode.AccSuper,
		Name:   name,
		Super:  "java/lang/Object",
		Outer:  outer.node.Name,
		Source: outer.node.Source,
	}
	if iface != "" {
		node.Interfaces = []string{iface}
	}
	inner := bytecode.InnerClass{Name: name, Access: bytecode.AccFinal | bytecode.AccStatic}
	node.InnerClasses = append(node.InnerClasses, inner)
	outer.node.InnerClasses = append(outer.node.InnerClasses, inner)
	g.module.Classes = append(g.module.Classes, node)

	c := &classGen{g: g, id: id, node: node, closure: cl}
	params := make([]bytecode.Type, len(cl.caps))
	for i, cp := range cl.caps {
		c.addField(bytecode.AccPrivate|bytecode.AccFinal|bytecode.AccSynthetic, cp.field, cp.t, nil)
		params[i] = cp.t
	}
	m := g.newMethod(c, 0, "<init>", bytecode.MethodDescriptor(bytecode.Void, params...), bytecode.Void)
	m.loadThis()
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, "java/lang/Object", "<init>", "()V", false))
	for _, cp := range cl.caps {
		slot := m.frame.EnterTemp(cp.t.Size())
		m.loadThis()
		m.load(local{slot: slot, t: cp.t})
		m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, name, cp.field, cp.t.Descriptor()))
	}
	m.emit(bytecode.Op(bytecode.RETURN))
	m.close()
	return c
}

// objectLiteral creates the instance of an anonymous class.
func (m *method) objectLiteral(o *ast.ObjectLiteral) StackValue {
	id, ok := m.g.decl(o.Decl)
	if !ok {
		return invalid{"undeclared object literal"}
	}
	ct := m.g.types.classType(id)
	return deferred{t: ct, gen: func(to bytecode.Type) {
		m.g.class(id, o.Decl, m.cls)
		m.emit(bytecode.TypeInsn(bytecode.NEW, ct.Internal))
		m.emit(bytecode.Op(bytecode.DUP))
		m.initCall(id, &calls.Call{Candidate: calls.Candidate{ID: m.g.table.Get(id).Class.Primary}}, nil, nil, nil)
		m.coerce(ct, to)
	}}
}
