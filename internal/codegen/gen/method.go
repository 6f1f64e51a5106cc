package gen

import (
	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
	"jetc/internal/types"
)

// classGen is a class under construction.
type classGen struct {
	g       *Generator
	id      types.ID // NoID for facades
	node    *bytecode.ClassNode
	static  bool // members are static: the facade
	clinit  *method
	closure *closure // values captured from the creating code
}

// staticInit returns the class initializer, creating it on first use.
func (c *classGen) staticInit() *method {
	if c.clinit == nil {
		c.clinit = c.g.newMethod(c, bytecode.AccStatic, "<clinit>", "()V", bytecode.Void)
	}
	return c.clinit
}

// finish completes the class initializer.
func (c *classGen) finish() {
	if c.clinit != nil {
		c.clinit.emit(bytecode.Op(bytecode.RETURN))
		c.clinit.close()
	}
}

func (c *classGen) hasMethod(name, desc string) bool {
	return c.node.Method(name, desc) != nil
}

func (c *classGen) addField(access bytecode.Access, name string, t bytecode.Type, value any) {
	c.node.Fields = append(c.node.Fields, &bytecode.FieldNode{Access: access, Name: name, Desc: t.Descriptor(), Value: value})
}

// method is the code of one method under construction.
type method struct {
	g      *Generator
	cls    *classGen
	node   *bytecode.MethodNode
	code   *bytecode.Stream
	frame  *FrameMap
	result bytecode.Type
	owner  ast.Node // the subroutine local returns leave

	receivers    map[types.ID]StackValue
	captureSlots map[types.ID]local // captured values passed to a constructor
	localFun     types.ID           // local function whose invoke this is

	loops   []*loopCtx
	tries   []*tryCtx
	targets map[int]bool
	live    []liveVar
}

type liveVar struct {
	id          types.ID
	name, desc  string
	slot, start int
}

// jump is a reserved forward jump.
type jump struct {
	at int
	op bytecode.Opcode
}

func (g *Generator) newMethod(c *classGen, access bytecode.Access, name, desc string, result bytecode.Type) *method {
	node := &bytecode.MethodNode{Access: access, Name: name, Desc: desc}
	c.node.Methods = append(c.node.Methods, node)
	m := &method{
		g:         g,
		cls:       c,
		node:      node,
		frame:     NewFrameMap(),
		result:    result,
		receivers: make(map[types.ID]StackValue),
		targets:   make(map[int]bool),
	}
	if access.Has(bytecode.AccAbstract) {
		return m
	}
	m.code = bytecode.NewStream()
	node.Code = m.code
	if !access.Has(bytecode.AccStatic) {
		m.frame.EnterTemp(1)
	}
	return m
}

// abstractMethod adds a method without code.
func (g *Generator) abstractMethod(c *classGen, access bytecode.Access, name, desc string) {
	c.node.Methods = append(c.node.Methods, &bytecode.MethodNode{Access: access | bytecode.AccAbstract, Name: name, Desc: desc})
}

func (m *method) emit(in bytecode.Instruction) int { return m.code.Emit(in) }

func (m *method) here() int {
	m.targets[m.code.Len()] = true
	return m.code.Len()
}

// forward reserves a jump whose target is patched later.
func (m *method) forward(op bytecode.Opcode) jump {
	return jump{at: m.code.Reserve(), op: op}
}

func (m *method) patch(js []jump, target int) {
	if len(js) == 0 {
		return
	}
	m.targets[target] = true
	for _, j := range js {
		m.code.Replace(j.at, bytecode.Jump(j.op, target))
	}
}

func (m *method) patchHere(js ...jump) { m.patch(js, m.code.Len()) }

// goTo emits a jump to an already emitted instruction.
func (m *method) goTo(target int) {
	m.targets[target] = true
	m.emit(bytecode.Jump(bytecode.GOTO, target))
}

// endReachable reports whether control may reach the next instruction.
func (m *method) endReachable() bool {
	last, ok := m.code.Last()
	return !ok || !last.Op.EndsBlock() || m.targets[m.code.Len()]
}

// unsupported marks a construct the generator cannot lower.
func (m *method) unsupported(reason string) StackValue {
	m.emit(bytecode.Unsupported(reason))
	return nothing{}
}

// enterVar gives a named variable a slot and tracks its debug range.
func (m *method) enterVar(id types.ID, name string, t bytecode.Type) int {
	slot := m.frame.Enter(id, t.Size())
	m.live = append(m.live, liveVar{id: id, name: name, desc: t.Descriptor(), slot: slot, start: m.code.Len()})
	return slot
}

// scope runs body and releases the slots it entered, newest first.
func (m *method) scope(body func()) {
	mark, n := m.frame.Mark(), len(m.live)
	body()
	vars := make([]types.ID, 0, len(m.live)-n)
	for _, lv := range m.live[n:] {
		vars = append(vars, lv.id)
	}
	m.closeVars(n)
	m.leave(mark, vars)
}

// leave pops the frame down to mark. The named variables met on the way
// must be vars in reverse order; temporaries in between are released as
// they are found.
func (m *method) leave(mark int, vars []types.ID) {
	for m.frame.Mark() > mark {
		id, slot := m.frame.Top()
		if id == types.NoID {
			m.frame.LeaveTemp(slot)
			continue
		}
		invariant.Check(len(vars) > 0, "descriptor %d left a scope it was not declared in", id)
		m.frame.Leave(vars[len(vars)-1])
		vars = vars[:len(vars)-1]
	}
	invariant.Check(len(vars) == 0, "%d variables of the scope left the frame early", len(vars))
}

func (m *method) closeVars(n int) {
	end := m.code.Len()
	for i := len(m.live) - 1; i >= n; i-- {
		lv := m.live[i]
		if end > lv.start {
			m.node.LocalVars = append(m.node.LocalVars, bytecode.LocalVar{
				Name: lv.name, Desc: lv.desc, Slot: lv.slot, Start: lv.start, End: end,
			})
		}
	}
	m.live = m.live[:n]
}

// temp stores the value on top of the stack in a new temporary.
func (m *method) temp(t bytecode.Type) local {
	slot := m.frame.EnterTemp(t.Size())
	m.emit(bytecode.VarInsn(t.Opcode(bytecode.ISTORE), slot))
	return local{slot: slot, t: t}
}

func (m *method) load(l local) {
	m.emit(bytecode.VarInsn(l.t.Opcode(bytecode.ILOAD), l.slot))
}

func (m *method) loadThis() {
	m.emit(bytecode.VarInsn(bytecode.ALOAD, 0))
}

// close seals the code and computes the frame sizes.
func (m *method) close() {
	if m.code == nil {
		return
	}
	m.closeVars(0)
	if err := m.code.Seal(); err != nil {
		invariant.Failf("%s.%s%s: %v", m.cls.node.Name, m.node.Name, m.node.Desc, err)
	}
	m.node.MaxLocals = m.frame.Max()
	if n, err := bytecode.MaxStack(m.node); err == nil {
		m.node.MaxStack = n
	}
}

// returnValue emits the return of a value already converted to m.result.
func (m *method) returnValue() {
	if m.result.Sort == bytecode.SortVoid {
		m.emit(bytecode.Op(bytecode.RETURN))
		return
	}
	m.emit(bytecode.Op(m.result.Opcode(bytecode.IRETURN)))
}

// receiver is the value of the implicit receiver introduced by id: a class
// or an extension function.
func (m *method) receiver(id types.ID) StackValue {
	if v, ok := m.receivers[id]; ok {
		return v
	}
	if v, ok := m.captured(id); ok {
		return v
	}
	d := m.g.table.Get(id)
	if d.Kind == types.KindClass && (d.IsObject() || id == m.g.bi.Unit) {
		return m.objectValue(id)
	}
	return invalid{"access to the instance of " + d.Name + " from a nested class"}
}

// objectValue reads the instance of an object or enum entry.
func (m *method) objectValue(id types.ID) StackValue {
	g := m.g
	d := g.table.Get(id)
	if d.Class.Kind == types.ClassEnumEntry {
		enum := g.types.classType(d.Owner)
		return &field{owner: enum.Internal, name: d.Name, t: enum, static: true}
	}
	t := g.types.classType(id)
	return &field{owner: t.Internal, name: "INSTANCE", t: t, static: true}
}
