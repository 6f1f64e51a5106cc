package gen

import (
	"strings"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/declres"
	"jetc/internal/types"
)

// class generates the class of a declaration, then its members and nested
// classes. outer is the class whose code declares a local or anonymous
// class, or the enclosing class of a nested one.
func (g *Generator) class(id types.ID, cd *ast.ClassDecl, outer *classGen) *classGen {
	if c, ok := g.classes[id]; ok {
		return c
	}
	d := g.table.Get(id)
	node := &bytecode.ClassNode{
		Access: g.classAccess(d),
		Name:   g.types.internal(id),
		Super:  "java/lang/Object",
		Source: g.sourceOf(id),
	}
	if d.Class.Kind == types.ClassEnum {
		node.Super = "java/lang/Enum"
	}
	for _, st := range d.Class.Supertypes {
		if !st.IsClass() || st.Decl() == g.bi.Any {
			continue
		}
		if g.table.Get(st.Decl()).IsTrait() {
			node.Interfaces = append(node.Interfaces, g.types.internal(st.Decl()))
		} else {
			node.Super = g.types.internal(st.Decl())
		}
	}
	c := &classGen{g: g, id: id, node: node, closure: g.localClosure(id)}
	g.classes[id] = c
	g.module.Classes = append(g.module.Classes, node)

	if outer != nil {
		node.Outer = outer.node.Name
		if node.Source == "" {
			node.Source = outer.node.Source
		}
		local := d.Class.Local || d.Class.Kind == types.ClassAnonymous
		on, inner := outer.node.Name, d.Name
		access := node.Access &^ bytecode.AccSuper
		if local {
			on = ""
		} else {
			access |= bytecode.AccStatic
		}
		if d.Class.Kind == types.ClassAnonymous {
			inner = ""
		}
		g.nest(outer, c, on, inner, access)
	}
	if c.closure != nil {
		for _, cp := range c.closure.caps {
			c.addField(bytecode.AccPrivate|bytecode.AccFinal|bytecode.AccSynthetic, cp.field, cp.t, nil)
		}
	}

	g.constructor(c, id, cd)
	for _, p := range cd.Params {
		if pid, ok := binding.Get(g.store, declres.PropertyParam, ast.Node(p)); ok {
			g.property(c, pid, nil)
		}
	}
	g.members(c, cd.Members)
	switch d.Class.Kind {
	case types.ClassObject:
		g.instance(c)
	case types.ClassEnum:
		g.entries(c, id, cd)
	}
	c.finish()
	return c
}

// nest records that inner is nested in outer on both classes.
func (g *Generator) nest(outer, inner *classGen, outerName, simple string, access bytecode.Access) {
	ic := bytecode.InnerClass{Name: inner.node.Name, Outer: outerName, Inner: simple, Access: access}
	inner.node.InnerClasses = append(inner.node.InnerClasses, ic)
	outer.node.InnerClasses = append(outer.node.InnerClasses, ic)
}

func (g *Generator) members(c *classGen, decls []ast.Decl) {
	for _, m := range decls {
		id, ok := g.decl(m)
		if !ok {
			continue
		}
		switch m := m.(type) {
		case *ast.FunDecl:
			g.function(c, id, m)
		case *ast.PropertyDecl:
			g.property(c, id, m)
		case *ast.ClassDecl:
			g.class(id, m, c)
		}
	}
}

func (g *Generator) classAccess(d *types.Descriptor) bytecode.Access {
	var a bytecode.Access
	if d.Visibility != types.Private {
		a = bytecode.AccPublic
	}
	switch {
	case d.IsTrait():
		return a | bytecode.AccInterface | bytecode.AccAbstract
	case d.Class.Kind == types.ClassEnum:
		a |= bytecode.AccEnum
		final := d.Modality != types.Abstract
		for _, e := range d.Class.Entries {
			if entryHasClass(g.table.Get(e)) {
				final = false
			}
		}
		if final {
			a |= bytecode.AccFinal
		}
	case d.Modality == types.Abstract:
		a |= bytecode.AccAbstract
	case d.Modality == types.Final:
		a |= bytecode.AccFinal
	}
	return a | bytecode.AccSuper
}

// memberAccess maps visibility and modality to access flags. Private
// members stay package-visible so the closure classes of their owner can
// reach them.
func (g *Generator) memberAccess(d *types.Descriptor) bytecode.Access {
	var a bytecode.Access
	switch d.Visibility {
	case types.Private:
	case types.Protected:
		a = bytecode.AccProtected
	default:
		a = bytecode.AccPublic
	}
	owner := g.table.Get(d.Owner)
	switch {
	case owner.IsTrait():
		a = bytecode.AccPublic
	case d.Kind == types.KindConstructor || owner.Kind != types.KindClass:
	case d.Modality == types.Abstract:
		a |= bytecode.AccAbstract
	case d.Modality == types.Final:
		a |= bytecode.AccFinal
	}
	return a
}

// bindThis makes slot 0 the receiver of the class and, in an enum entry
// class, of the enum.
func (g *Generator) bindThis(m *method, c *classGen) {
	if c.static || c.id == types.NoID {
		return
	}
	g.bindReceiver(m, c, local{slot: 0, t: bytecode.ObjectType(c.node.Name)})
}

func (g *Generator) bindReceiver(m *method, c *classGen, v StackValue) {
	id := c.id
	for {
		m.receivers[id] = v
		d := g.table.Get(id)
		if d.Kind != types.KindClass || d.Class.Kind != types.ClassEnumEntry {
			return
		}
		id = d.Owner
	}
}

// ctorParams is the parameter list of a constructor: the captured values
// of a local class, the lead parameters, the declared parameters, and the
// mask and marker of the variant filling in default arguments.
func (g *Generator) ctorParams(cl *closure, lead []bytecode.Type, ctor types.ID, defaults bool) []bytecode.Type {
	var ps []bytecode.Type
	if cl != nil {
		for _, cp := range cl.caps {
			ps = append(ps, cp.t)
		}
	}
	ps = append(ps, lead...)
	for _, pid := range g.table.Get(ctor).Func.Params {
		ps = append(ps, g.varType(pid))
	}
	if defaults {
		ps = append(ps, bytecode.Int, defaultMarker)
	}
	return ps
}

func hasDefaults(tab *types.Table, fn types.ID) bool {
	for _, p := range tab.Get(fn).Func.Params {
		if tab.Get(p).Var.HasDefault {
			return true
		}
	}
	return false
}

// constructor generates the primary constructor. It stores the captured
// values, calls the superclass constructor, stores the property parameters
// and runs property initializers and initializer blocks in declaration
// order.
func (g *Generator) constructor(c *classGen, id types.ID, cd *ast.ClassDecl) {
	d := g.table.Get(id)
	ctor := d.Class.Primary
	if ctor == types.NoID {
		return
	}
	var lead []bytecode.Type
	if d.Class.Kind == types.ClassEnum {
		lead = []bytecode.Type{bytecode.String, bytecode.Int}
	}
	desc := bytecode.MethodDescriptor(bytecode.Void, g.ctorParams(c.closure, lead, ctor, false)...)
	m := g.newMethod(c, g.memberAccess(g.table.Get(ctor)), "<init>", desc, bytecode.Void)
	m.owner = cd

	m.captureSlots = make(map[types.ID]local)
	if c.closure != nil {
		for _, cp := range c.closure.caps {
			m.captureSlots[cp.id] = local{slot: m.frame.EnterTemp(cp.t.Size()), t: cp.t}
		}
	}
	leads := make([]local, len(lead))
	for i, t := range lead {
		leads[i] = local{slot: m.frame.EnterTemp(t.Size()), t: t}
	}
	pids := g.table.Get(ctor).Func.Params
	params := make([]local, len(pids))
	for i, pid := range pids {
		pt := g.varType(pid)
		params[i] = local{slot: m.enterVar(pid, g.table.Get(pid).Name, pt), t: pt}
	}
	if c.closure != nil {
		for _, cp := range c.closure.caps {
			m.loadThis()
			m.load(m.captureSlots[cp.id])
			m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, c.node.Name, cp.field, cp.t.Descriptor()))
		}
	}
	m.superCall(cd, leads)
	g.bindThis(m, c)
	for i, p := range cd.Params {
		pid, ok := binding.Get(g.store, declres.PropertyParam, ast.Node(p))
		if !ok || !g.hasField(pid) || i >= len(params) {
			continue
		}
		m.loadThis()
		m.load(params[i])
		m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, c.node.Name, p.Name.Name, params[i].t.Descriptor()))
	}
	m.initMembers(c, cd.Members)
	if m.endReachable() {
		m.emit(bytecode.Op(bytecode.RETURN))
	}
	m.close()

	if hasDefaults(g.table, ctor) && c.closure == nil {
		g.defaultConstructor(c, ctor, lead, cd.Params)
	}
}

// superCall invokes the superclass constructor on this.
func (m *method) superCall(cd *ast.ClassDecl, leads []local) {
	for _, s := range cd.Supers {
		if !s.Call {
			continue
		}
		call, ok := binding.Get(m.g.store, calls.ResolvedCall, ast.Node(s))
		if !ok {
			m.unsupported("unresolved superclass constructor")
			return
		}
		args := m.arguments(s.Args)
		if !inOrder(call) {
			for i, a := range args {
				args[i] = m.keepArg(a)
			}
		}
		m.loadThis()
		m.initCall(m.g.table.Get(call.ID).Owner, call, args, nil, nil)
		return
	}
	m.loadThis()
	if len(leads) == 2 {
		m.load(leads[0])
		m.load(leads[1])
		m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, "java/lang/Enum", "<init>", "(Ljava/lang/String;I)V", false))
		return
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, m.cls.node.Super, "<init>", "()V", false))
}

// initMembers runs the property initializers and initializer blocks of a
// class body.
func (m *method) initMembers(c *classGen, decls []ast.Decl) {
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.PropertyDecl:
			id, ok := m.g.decl(d)
			if !ok || d.Init == nil || !m.g.hasField(id) {
				continue
			}
			m.owner = d
			t := m.g.varType(id)
			m.loadThis()
			m.put(d.Init, t)
			m.emit(bytecode.FieldInsn(bytecode.PUTFIELD, c.node.Name, d.Name.Name, t.Descriptor()))
		case *ast.Initializer:
			m.owner = d
			m.put(d.Body, bytecode.Void)
		}
	}
}

// defaultConstructor generates the constructor variant taking a mask of
// the parameters to fill in with their default values.
func (g *Generator) defaultConstructor(c *classGen, ctor types.ID, lead []bytecode.Type, decls []*ast.Param) {
	d := g.table.Get(ctor)
	desc := bytecode.MethodDescriptor(bytecode.Void, g.ctorParams(nil, lead, ctor, true)...)
	m := g.newMethod(c, g.memberAccess(d)|bytecode.AccSynthetic, "<init>", desc, bytecode.Void)
	var args []local
	for _, t := range lead {
		args = append(args, local{slot: m.frame.EnterTemp(t.Size()), t: t})
	}
	for _, pid := range d.Func.Params {
		pt := g.varType(pid)
		args = append(args, local{slot: m.enterVar(pid, g.table.Get(pid).Name, pt), t: pt})
	}
	mask := local{slot: m.frame.EnterTemp(1), t: bytecode.Int}
	m.frame.EnterTemp(1) // marker
	for j, pid := range d.Func.Params {
		if !g.table.Get(pid).Var.HasDefault || j >= len(decls) {
			continue
		}
		m.defaultValue(mask, j, decls[j].Default, args[len(lead)+j])
	}
	m.loadThis()
	for _, a := range args {
		m.load(a)
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, c.node.Name, "<init>",
		bytecode.MethodDescriptor(bytecode.Void, g.ctorParams(nil, lead, ctor, false)...), false))
	m.emit(bytecode.Op(bytecode.RETURN))
	m.close()
}

// defaultValue stores the default value of parameter j in p when bit j of
// mask is set.
func (m *method) defaultValue(mask local, j int, e ast.Expression, p local) {
	m.load(mask)
	m.pushInt(int64(1) << j)
	m.emit(bytecode.Op(bytecode.IAND))
	skip := m.forward(bytecode.IFEQ)
	m.put(e, p.t)
	m.emit(bytecode.VarInsn(p.t.Opcode(bytecode.ISTORE), p.slot))
	m.patchHere(skip)
}

// instance creates the single instance of an object when its class is
// initialized.
func (g *Generator) instance(c *classGen) {
	t := bytecode.ObjectType(c.node.Name)
	c.addField(bytecode.AccPublic|bytecode.AccStatic|bytecode.AccFinal, "INSTANCE", t, nil)
	m := c.staticInit()
	m.emit(bytecode.TypeInsn(bytecode.NEW, c.node.Name))
	m.emit(bytecode.Op(bytecode.DUP))
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, c.node.Name, "<init>", "()V", false))
	m.emit(bytecode.FieldInsn(bytecode.PUTSTATIC, c.node.Name, "INSTANCE", t.Descriptor()))
}

// entries creates the enum entries in the class initializer. An entry with
// a body is an instance of its own class.
func (g *Generator) entries(c *classGen, id types.ID, cd *ast.ClassDecl) {
	d := g.table.Get(id)
	et := bytecode.ObjectType(c.node.Name)
	m := c.staticInit()
	lead := []bytecode.Type{bytecode.String, bytecode.Int}
	for i, e := range cd.Entries {
		eid, ok := g.decl(e)
		if !ok {
			continue
		}
		c.addField(bytecode.AccPublic|bytecode.AccStatic|bytecode.AccFinal|bytecode.AccEnum, e.Name.Name, et, nil)
		call, ok := binding.Get(g.store, calls.ResolvedCall, ast.Node(e))
		if !ok {
			if len(g.table.Get(d.Class.Primary).Func.Params) > 0 {
				m.unsupported("unresolved enum entry " + e.Name.Name)
				continue
			}
			call = &calls.Call{Candidate: calls.Candidate{ID: d.Class.Primary}}
		}
		class := id
		if entryHasClass(g.table.Get(eid)) {
			g.entryClass(c, eid, e, call)
			class = eid
		}
		m.owner = e
		args := m.arguments(e.Args)
		if !inOrder(call) {
			for j, a := range args {
				args[j] = m.keepArg(a)
			}
		}
		m.emit(bytecode.TypeInsn(bytecode.NEW, g.types.internal(class)))
		m.emit(bytecode.Op(bytecode.DUP))
		name, ordinal := e.Name.Name, i
		m.initCall(class, call, args, lead, func() {
			m.emit(bytecode.Ldc(name))
			m.pushInt(int64(ordinal))
		})
		m.emit(bytecode.FieldInsn(bytecode.PUTSTATIC, c.node.Name, e.Name.Name, et.Descriptor()))
	}
}

// entryClass generates the class of an enum entry with a body. Its
// constructor forwards to the enum constructor the entry calls.
func (g *Generator) entryClass(enum *classGen, id types.ID, e *ast.EnumEntry, call *calls.Call) *classGen {
	if c, ok := g.classes[id]; ok {
		return c
	}
	node := &bytecode.ClassNode{
		Access: bytecode.AccFinal | bytecode.AccSuper | bytecode.AccEnum,
		Name:   g.types.internal(id),
		Super:  enum.node.Name,
		Outer:  enum.node.Name,
		Source: enum.node.Source,
	}
	c := &classGen{g: g, id: id, node: node}
	g.classes[id] = c
	g.module.Classes = append(g.module.Classes, node)
	g.nest(enum, c, enum.node.Name, e.Name.Name, bytecode.AccFinal|bytecode.AccStatic|bytecode.AccEnum)

	defaults := false
	for j := range g.table.Get(call.ID).Func.Params {
		defaults = defaults || call.UsesDefault(j)
	}
	ps := g.ctorParams(nil, []bytecode.Type{bytecode.String, bytecode.Int}, call.ID, defaults)
	desc := bytecode.MethodDescriptor(bytecode.Void, ps...)
	m := g.newMethod(c, 0, "<init>", desc, bytecode.Void)
	m.owner = e
	slots := make([]local, len(ps))
	for i, t := range ps {
		slots[i] = local{slot: m.frame.EnterTemp(t.Size()), t: t}
	}
	m.loadThis()
	for _, l := range slots {
		m.load(l)
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, enum.node.Name, "<init>", desc, false))
	g.bindThis(m, c)
	m.initMembers(c, e.Members)
	if m.endReachable() {
		m.emit(bytecode.Op(bytecode.RETURN))
	}
	m.close()

	g.members(c, e.Members)
	c.finish()
	return c
}

// function generates a member or top-level function, the static method
// filling in its default arguments and the bridges its overrides need.
func (g *Generator) function(c *classGen, id types.ID, fd *ast.FunDecl) {
	d := g.table.Get(id)
	s := g.signature(id)
	access := g.memberAccess(d)
	if c.static {
		access |= bytecode.AccStatic
	}
	if fd.Body == nil {
		g.abstractMethod(c, access&^bytecode.AccFinal, s.name, s.desc())
	} else {
		g.emitFunction(c, id, fd, access, s.name)
	}
	if g.defaultHolder(id) == id {
		g.defaultMethod(c, id, fd)
	}
	if !c.static && !c.node.Access.Has(bytecode.AccInterface) {
		for _, o := range g.overridden(id) {
			g.bridge(c, s, g.signature(o))
		}
	}
}

// emitFunction generates the method implementing a function. Local
// functions are the invoke method of their closure class.
func (g *Generator) emitFunction(c *classGen, id types.ID, fd *ast.FunDecl, access bytecode.Access, name string) {
	d := g.table.Get(id)
	s := g.signature(id)
	m := g.newMethod(c, access, name, s.desc(), s.result)
	m.owner = fd
	if d.Func.Local {
		m.localFun = id
	} else {
		g.bindThis(m, c)
	}
	i := 0
	if d.Func.Receiver != nil {
		rt := s.params[0]
		m.receivers[id] = local{slot: m.frame.EnterTemp(rt.Size()), t: rt}
		i = 1
	}
	for j, pid := range d.Func.Params {
		m.enterVar(pid, g.table.Get(pid).Name, s.params[i+j])
	}
	m.subroutine(fd.Body, fd.ExprBody)
	m.close()
}

// subroutine generates a function or accessor body and its return.
func (m *method) subroutine(body ast.Expression, exprBody bool) {
	if exprBody {
		m.put(body, m.result)
	} else {
		m.put(body, bytecode.Void)
		if m.endReachable() && m.result.Sort != bytecode.SortVoid {
			m.throwNew("java/lang/IllegalStateException", "missing return")
		}
	}
	if m.endReachable() {
		m.returnValue()
	}
}

// defaultMethod generates name$default: it fills in the parameters whose
// bit is set in the mask, then calls the function with virtual dispatch.
func (g *Generator) defaultMethod(c *classGen, id types.ID, fd *ast.FunDecl) {
	d := g.table.Get(id)
	if d.Func.Local {
		return
	}
	base := g.signature(id)
	s := g.defaultSignature(id)
	m := g.newMethod(c, bytecode.AccPublic|bytecode.AccStatic|bytecode.AccSynthetic, s.name, s.desc(), s.result)
	m.owner = fd
	var args []local
	if base.recv.Sort != bytecode.SortVoid {
		l := local{slot: m.frame.EnterTemp(1), t: base.recv}
		g.bindReceiver(m, c, l)
		args = append(args, l)
	}
	i := 0
	if d.Func.Receiver != nil {
		rt := base.params[0]
		l := local{slot: m.frame.EnterTemp(rt.Size()), t: rt}
		m.receivers[id] = l
		args = append(args, l)
		i = 1
	}
	first := len(args)
	for j, pid := range d.Func.Params {
		pt := base.params[i+j]
		args = append(args, local{slot: m.enterVar(pid, g.table.Get(pid).Name, pt), t: pt})
	}
	mask := local{slot: m.frame.EnterTemp(1), t: bytecode.Int}
	for j, pid := range d.Func.Params {
		if g.table.Get(pid).Var.HasDefault && j < len(fd.Params) {
			m.defaultValue(mask, j, fd.Params[j].Default, args[first+j])
		}
	}
	for _, a := range args {
		m.load(a)
	}
	m.emit(bytecode.MethodInsn(base.op, base.owner, base.name, base.desc(), base.itf))
	m.returnValue()
	m.close()
}

// bridge generates a method with the erased signature o of an overridden
// member that forwards to s.
func (g *Generator) bridge(c *classGen, s, o signature) {
	od := o.desc()
	if od == s.desc() || len(o.params) != len(s.params) || c.hasMethod(s.name, od) {
		return
	}
	m := g.newMethod(c, bytecode.AccPublic|bytecode.AccSynthetic|bytecode.AccBridge, s.name, od, o.result)
	m.loadThis()
	for i, pt := range o.params {
		m.load(local{slot: m.frame.EnterTemp(pt.Size()), t: pt})
		m.coerce(pt, s.params[i])
	}
	m.emit(bytecode.MethodInsn(bytecode.INVOKEVIRTUAL, c.node.Name, s.name, s.desc(), false))
	m.coerce(s.result, o.result)
	m.returnValue()
	m.close()
}

// property generates the field of a property, its static initializer on a
// facade, and its accessors.
func (g *Generator) property(c *classGen, id types.ID, pd *ast.PropertyDecl) {
	d := g.table.Get(id)
	t := g.varType(id)
	if g.hasField(id) {
		var access bytecode.Access
		if d.Visibility != types.Private {
			access = bytecode.AccPrivate
		}
		if c.static {
			access |= bytecode.AccStatic
		}
		if !d.Var.Mutable {
			access |= bytecode.AccFinal
		}
		c.addField(access, d.Name, t, nil)
		if c.static && pd != nil && pd.Init != nil {
			m := c.staticInit()
			m.owner = pd
			m.put(pd.Init, t)
			m.emit(bytecode.FieldInsn(bytecode.PUTSTATIC, c.node.Name, d.Name, t.Descriptor()))
		}
	}
	var getter, setter *ast.Accessor
	if pd != nil {
		getter, setter = pd.Getter, pd.Setter
	}
	if g.hasGetter(id) {
		g.accessor(c, id, getter, false)
	}
	if g.hasSetter(id) {
		g.accessor(c, id, setter, true)
	}
}

// accessor generates a getter or setter: the custom one when acc has a
// body, else one reading or writing the field.
func (g *Generator) accessor(c *classGen, id types.ID, acc *ast.Accessor, setter bool) {
	d := g.table.Get(id)
	t := g.varType(id)
	s := g.accessorSignature(id, setter)
	access := g.memberAccess(d)
	if c.static {
		access |= bytecode.AccStatic
	}
	custom := acc != nil && acc.Body != nil
	if !custom && !g.hasField(id) {
		g.abstractMethod(c, access&^bytecode.AccFinal, s.name, s.desc())
		return
	}
	m := g.newMethod(c, access, s.name, s.desc(), s.result)
	g.bindThis(m, c)
	var value local
	if setter {
		if acc != nil && acc.Param != nil {
			if pid, ok := g.decl(acc.Param); ok {
				value = local{slot: m.enterVar(pid, acc.Param.Name.Name, t), t: t}
			}
		}
		if value.t.Sort == bytecode.SortVoid {
			value = local{slot: m.frame.EnterTemp(t.Size()), t: t}
		}
	}
	switch {
	case custom:
		m.owner = acc
		m.subroutine(acc.Body, acc.ExprBody)
	case setter:
		op := bytecode.PUTSTATIC
		if !c.static {
			m.loadThis()
			op = bytecode.PUTFIELD
		}
		m.load(value)
		m.emit(bytecode.FieldInsn(op, c.node.Name, d.Name, t.Descriptor()))
		m.emit(bytecode.Op(bytecode.RETURN))
	default:
		op := bytecode.GETSTATIC
		if !c.static {
			m.loadThis()
			op = bytecode.GETFIELD
		}
		m.emit(bytecode.FieldInsn(op, c.node.Name, d.Name, t.Descriptor()))
		m.returnValue()
	}
	m.close()
	if !c.static && !c.node.Access.Has(bytecode.AccInterface) {
		for _, o := range g.overridden(id) {
			if !setter || g.hasSetter(o) {
				g.bridge(c, s, g.accessorSignature(o, setter))
			}
		}
	}
}

// ownerName is the class holding the members of owner.
func (g *Generator) ownerName(owner types.ID) string {
	if g.table.Get(owner).Kind == types.KindPackage {
		return g.table.FacadeName(owner)
	}
	return g.types.internal(owner)
}

// hasField reports a property with a backing field. Built-in, abstract and
// trait properties have none, nor do properties computed by their custom
// accessors.
func (g *Generator) hasField(id types.ID) bool {
	d := g.table.Get(id)
	if d.Decl == nil || d.Var.Intrinsic != "" || d.Modality == types.Abstract || g.table.Get(d.Owner).IsTrait() {
		return false
	}
	switch d.Var.Storage {
	case types.StorageProperty, types.StorageTopLevel:
	default:
		return false
	}
	pd, ok := d.Decl.(*ast.PropertyDecl)
	if !ok {
		return true // a constructor parameter
	}
	return pd.Init != nil || !d.Var.CustomGetter || d.Var.Mutable && !d.Var.CustomSetter
}

// hasGetter reports a property with a get method. Private properties get
// one only when it is custom.
func (g *Generator) hasGetter(id types.ID) bool {
	d := g.table.Get(id)
	if d.Decl == nil || d.Var.Intrinsic != "" {
		return false
	}
	if d.Visibility == types.Private {
		return d.Var.CustomGetter
	}
	return d.Var.Storage == types.StorageProperty || d.Var.Storage == types.StorageTopLevel
}

func (g *Generator) hasSetter(id types.ID) bool {
	d := g.table.Get(id)
	if !d.Var.Mutable || d.Decl == nil {
		return false
	}
	if d.Visibility == types.Private {
		return d.Var.CustomSetter
	}
	return d.Var.Storage == types.StorageProperty || d.Var.Storage == types.StorageTopLevel
}

// directAccess reports whether code of cls reads and writes the property
// id through its field rather than its accessors.
func (g *Generator) directAccess(id types.ID, cls *classGen) (read, write bool) {
	if !g.hasField(id) {
		return false, false
	}
	d := g.table.Get(id)
	own := cls != nil && cls.node.Name == g.ownerName(d.Owner) && d.Modality == types.Final
	read = !g.hasGetter(id) || own && !d.Var.CustomGetter
	write = !g.hasSetter(id) || own && !d.Var.CustomSetter
	return read, write
}

func (g *Generator) getterRef(id types.ID) *bytecode.MemberRef {
	d := g.table.Get(id)
	return &bytecode.MemberRef{
		Owner:     g.ownerName(d.Owner),
		Name:      "get" + capitalize(d.Name),
		Desc:      bytecode.MethodDescriptor(g.varType(id)),
		Interface: g.table.Get(d.Owner).IsTrait(),
	}
}

func (g *Generator) setterRef(id types.ID) *bytecode.MemberRef {
	d := g.table.Get(id)
	return &bytecode.MemberRef{
		Owner:     g.ownerName(d.Owner),
		Name:      "set" + capitalize(d.Name),
		Desc:      bytecode.MethodDescriptor(bytecode.Void, g.varType(id)),
		Interface: g.table.Get(d.Owner).IsTrait(),
	}
}

func (g *Generator) accessorSignature(id types.ID, setter bool) signature {
	t := g.varType(id)
	if setter {
		ref := g.setterRef(id)
		return signature{owner: ref.Owner, name: ref.Name, params: []bytecode.Type{t}, result: bytecode.Void, itf: ref.Interface}
	}
	ref := g.getterRef(id)
	return signature{owner: ref.Owner, name: ref.Name, result: t, itf: ref.Interface}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
