package gen

import (
	"fmt"
	"sort"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/typechecker"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// loopCtx collects the jumps leaving a loop under construction.
type loopCtx struct {
	node      ast.Expression
	breaks    []jump
	continues []jump
	tries     int // try blocks entered outside the loop
}

// tryCtx is a try block whose finally code is inlined on every exit. gaps
// are the inlined copies, which its handlers do not cover.
type tryCtx struct {
	finally *ast.Block
	gaps    [][2]int
}

func (m *method) block(b *ast.Block) StackValue {
	t := bytecode.Void
	if n := len(b.Stmts); n > 0 {
		if e, ok := b.Stmts[n-1].(ast.Expression); ok {
			t = m.natural(e)
		}
	}
	return deferred{t: t, gen: func(to bytecode.Type) {
		m.scope(func() { m.statements(b, to) })
	}}
}

// statements generates the statements of b in the current scope. The last
// one, when it is an expression, is the value of the block.
func (m *method) statements(b *ast.Block, to bytecode.Type) {
	for i, s := range b.Stmts {
		switch s := s.(type) {
		case *ast.PropertyDecl:
			m.localVar(s)
		case *ast.FunDecl:
			m.localFunDecl(s)
		case *ast.ClassDecl:
			m.localClass(s)
		case ast.Expression:
			if i == len(b.Stmts)-1 {
				m.put(s, to)
				return
			}
			m.put(s, bytecode.Void)
		default:
			m.unsupported(fmt.Sprintf("statement %T", s))
		}
	}
	m.coerce(bytecode.Void, to)
}

func (m *method) localVar(d *ast.PropertyDecl) {
	id, ok := m.g.decl(d)
	if !ok {
		m.unsupported("undeclared local " + d.Name.Name)
		return
	}
	t := m.g.varType(id)
	if m.g.isBoxed(id) {
		ref, _ := refType(t)
		m.emit(bytecode.TypeInsn(bytecode.NEW, ref.Internal))
		m.emit(bytecode.Op(bytecode.DUP))
		m.emit(bytecode.MethodInsn(bytecode.INVOKESPECIAL, ref.Internal, "<init>", "()V", false))
		slot := m.enterVar(id, d.Name.Name, ref)
		m.emit(bytecode.VarInsn(bytecode.ASTORE, slot))
		if d.Init != nil {
			newCell(t, func() { m.emit(bytecode.VarInsn(bytecode.ALOAD, slot)) }).
				Store(m, func(st bytecode.Type) { m.put(d.Init, st) })
		}
		return
	}
	if d.Init == nil {
		m.enterVar(id, d.Name.Name, t)
		return
	}
	m.put(d.Init, t)
	slot := m.enterVar(id, d.Name.Name, t)
	m.emit(bytecode.VarInsn(t.Opcode(bytecode.ISTORE), slot))
}

func (m *method) localClass(cd *ast.ClassDecl) {
	id, ok := m.g.decl(cd)
	if !ok {
		m.unsupported("undeclared local class")
		return
	}
	switch m.g.table.Get(id).Class.Kind {
	case types.ClassObject:
		m.unsupported("local object " + cd.Name.Name)
	case types.ClassEnum:
		m.unsupported("local enum " + cd.Name.Name)
	default:
		m.g.class(id, cd, m.cls)
	}
}

func (m *method) ifExpr(n *ast.IfExpr) StackValue {
	return deferred{t: m.natural(n), gen: func(to bytecode.Type) {
		f := m.cond(n.Cond, false)
		if n.Else == nil {
			m.put(n.Then, bytecode.Void)
			m.patchHere(f...)
			m.coerce(bytecode.Void, to)
			return
		}
		m.put(n.Then, to)
		var end []jump
		if m.endReachable() {
			end = append(end, m.forward(bytecode.GOTO))
		}
		m.patchHere(f...)
		m.put(n.Else, to)
		m.patchHere(end...)
	}}
}

func (m *method) when(n *ast.WhenExpr) StackValue {
	t := m.natural(n)
	return deferred{t: t, gen: func(to bytecode.Type) {
		mark := m.frame.Mark()
		var subj StackValue
		if n.Subject != nil {
			subj = m.keep(m.lazy(n.Subject))
		}
		var end []jump
		exhausted := false
		for _, e := range n.Entries {
			if e.Else {
				m.put(e.Body, to)
				exhausted = true
				break
			}
			var next []jump
			if len(e.Conds) == 1 {
				next = m.whenCond(subj, e.Conds[0], false)
			} else {
				var hit []jump
				for _, c := range e.Conds {
					hit = append(hit, m.whenCond(subj, c, true)...)
				}
				next = []jump{m.forward(bytecode.GOTO)}
				m.patchHere(hit...)
			}
			m.put(e.Body, to)
			if m.endReachable() {
				end = append(end, m.forward(bytecode.GOTO))
			}
			m.patchHere(next...)
		}
		if !exhausted {
			if to.Sort != bytecode.SortVoid && t.Sort != bytecode.SortVoid {
				m.throwNew("java/lang/IllegalStateException", "no when branch matched")
			} else {
				m.coerce(bytecode.Void, to)
			}
		}
		m.patchHere(end...)
		m.frame.DropTo(mark)
	}}
}

// whenCond tests one condition of a when entry against the subject.
func (m *method) whenCond(subj StackValue, c ast.WhenCond, jumpIf bool) []jump {
	switch c := c.(type) {
	case *ast.WhenValueCond:
		switch {
		case subj == nil:
			return m.cond(c.Value, jumpIf)
		case isNullLiteral(c.Value):
			return m.nullJump(subj, jumpIf)
		}
		return m.equalJump(subj, m.lazy(c.Value), false, jumpIf)
	case *ast.WhenIsCond:
		t, ok := binding.Get(m.g.store, binding.ResolvedType, ast.Node(c.Type))
		if !ok || t == nil || subj == nil {
			m.unsupported("is condition without a subject")
			return nil
		}
		return m.isJump(subj, t, jumpIf != c.Negated)
	}
	m.unsupported(fmt.Sprintf("when condition %T", c))
	return nil
}

// loopPlan describes one loop for the shared loop template. Every hook
// except body may be nil.
type loopPlan struct {
	// guard runs once before the head and returns the jumps leaving a loop
	// that runs zero times.
	guard func() []jump
	// test runs at the head on every iteration and returns its exit jumps.
	test func() []jump
	body func()
	// step runs where continue lands, closes the loop itself and returns
	// further exit jumps.
	step func(head int) []jump
	// latch runs in the body's scope where continue lands and jumps back to
	// head itself, for loops tested at the bottom.
	latch func(head int)
}

func (m *method) pushLoop(n ast.Expression) *loopCtx {
	lc := &loopCtx{node: n, tries: len(m.tries)}
	m.loops = append(m.loops, lc)
	return lc
}

func (m *method) popLoop() { m.loops = m.loops[:len(m.loops)-1] }

// loop emits the enter/exit shape shared by every loop: the head, the body
// in its own scope, the continue point with the back edge, and the exit
// where the breaks land. Without step or latch, continue jumps to the head.
func (m *method) loop(n ast.Expression, p loopPlan) {
	lc := m.pushLoop(n)
	var exits []jump
	if p.guard != nil {
		exits = append(exits, p.guard()...)
	}
	head := m.here()
	if p.test != nil {
		exits = append(exits, p.test()...)
	}
	m.scope(func() {
		p.body()
		if p.latch != nil {
			m.patchHere(lc.continues...)
			p.latch(head)
		}
	})
	switch {
	case p.latch != nil:
	case p.step != nil:
		m.patchHere(lc.continues...)
		exits = append(exits, p.step(head)...)
	default:
		if m.endReachable() {
			m.goTo(head)
		}
		m.patch(lc.continues, head)
	}
	m.popLoop()
	m.patchHere(append(exits, lc.breaks...)...)
}

func (m *method) while(n *ast.WhileExpr) {
	m.loop(n, loopPlan{
		test: func() []jump { return m.cond(n.Cond, false) },
		body: func() { m.put(n.Body, bytecode.Void) },
	})
}

// doWhile keeps the variables of the body in scope for the condition.
func (m *method) doWhile(n *ast.DoWhileExpr) {
	m.loop(n, loopPlan{
		body: func() {
			if b, ok := n.Body.(*ast.Block); ok {
				m.statements(b, bytecode.Void)
			} else {
				m.put(n.Body, bytecode.Void)
			}
		},
		latch: func(head int) { m.patch(m.cond(n.Cond, true), head) },
	})
}

func (m *method) forLoop(n *ast.ForExpr) {
	it, ok := binding.Get(m.g.store, typechecker.LoopIteration, ast.Node(n))
	if !ok {
		m.unsupported("for loop without an iterator")
		return
	}
	id, ok := m.g.decl(n.Var)
	if !ok {
		m.unsupported("undeclared loop variable")
		return
	}
	mark := m.frame.Mark()
	switch {
	case m.isIntRange(n.Iterable):
		m.countedLoop(n, id)
	case m.g.table.Get(it.Iterator.ID).Func.Intrinsic == "arrayIterator" && m.exprType(n.Iterable).Sort == bytecode.SortArray:
		m.arrayLoop(n, id)
	default:
		m.iteratorLoop(n, id, it)
	}
	m.frame.DropTo(mark)
}

// isIntRange reports a literal a..b range of Ints, which is iterated over
// without creating the range.
func (m *method) isIntRange(e ast.Expression) bool {
	b, ok := e.(*ast.BinaryExpr)
	if !ok || b.Op.Kind != tokens.RANGE_TOKEN {
		return false
	}
	call, ok := m.operatorCall(b)
	return ok && call.ID != types.NoID && m.g.table.Get(call.ID).Func.Intrinsic == "rangeTo"
}

// loopVar stores the value of type t on the stack in the loop variable.
func (m *method) loopVar(n *ast.ForExpr, id types.ID, t bytecode.Type) {
	vt := m.g.varType(id)
	m.coerce(t, vt)
	slot := m.enterVar(id, n.Var.Name.Name, vt)
	m.emit(bytecode.VarInsn(vt.Opcode(bytecode.ISTORE), slot))
}

func (m *method) countedLoop(n *ast.ForExpr, id types.ID) {
	r := n.Iterable.(*ast.BinaryExpr)
	var i, last local
	m.loop(n, loopPlan{
		guard: func() []jump {
			m.put(r.X, bytecode.Int)
			i = m.temp(bytecode.Int)
			m.put(r.Y, bytecode.Int)
			last = m.temp(bytecode.Int)
			m.load(i)
			m.load(last)
			return []jump{m.forward(bytecode.IF_ICMPGT)}
		},
		body: func() {
			m.load(i)
			m.loopVar(n, id, bytecode.Int)
			m.put(n.Body, bytecode.Void)
		},
		step: func(head int) []jump {
			m.load(i)
			m.load(last)
			done := m.forward(bytecode.IF_ICMPEQ)
			m.emit(bytecode.Iinc(i.slot, 1))
			m.goTo(head)
			return []jump{done}
		},
	})
}

func (m *method) arrayLoop(n *ast.ForExpr, id types.ID) {
	at := m.exprType(n.Iterable)
	var arr, i local
	m.loop(n, loopPlan{
		guard: func() []jump {
			m.put(n.Iterable, at)
			arr = m.temp(at)
			m.pushInt(0)
			i = m.temp(bytecode.Int)
			return nil
		},
		test: func() []jump {
			m.load(i)
			m.load(arr)
			m.emit(bytecode.Op(bytecode.ARRAYLENGTH))
			return []jump{m.forward(bytecode.IF_ICMPGE)}
		},
		body: func() {
			m.load(arr)
			m.load(i)
			m.emit(bytecode.Op(at.Element().Opcode(bytecode.IALOAD)))
			m.loopVar(n, id, at.Element())
			m.put(n.Body, bytecode.Void)
		},
		step: func(head int) []jump {
			m.emit(bytecode.Iinc(i.slot, 1))
			m.goTo(head)
			return nil
		},
	})
}

func (m *method) iteratorLoop(n *ast.ForExpr, id types.ID, it *typechecker.Iteration) {
	itT := m.g.types.mapType(it.Iterator.Result)
	et := m.g.types.mapType(it.Element)
	var iter local
	m.loop(n, loopPlan{
		guard: func() []jump {
			m.invoke(it.Iterator, m.lazy(n.Iterable), nil).Put(m, itT)
			iter = m.temp(itT)
			return nil
		},
		test: func() []jump {
			m.invoke(it.HasNext, iter, nil).Put(m, bytecode.Boolean)
			return []jump{m.forward(bytecode.IFEQ)}
		},
		body: func() {
			m.invoke(it.Next, iter, nil).Put(m, et)
			m.loopVar(n, id, et)
			m.put(n.Body, bytecode.Void)
		},
	})
}

// jumpOut lowers break and continue, running the finally blocks between
// the jump and its loop.
func (m *method) jumpOut(e ast.Expression, cont bool) {
	target, _ := binding.Get(m.g.store, binding.LoopTarget, ast.Node(e))
	var lc *loopCtx
	for i := len(m.loops) - 1; i >= 0; i-- {
		if m.loops[i].node == target {
			lc = m.loops[i]
			break
		}
	}
	if lc == nil {
		m.unsupported("jump out of a function literal")
		return
	}
	m.runFinally(lc.tries)
	j := m.forward(bytecode.GOTO)
	if cont {
		lc.continues = append(lc.continues, j)
	} else {
		lc.breaks = append(lc.breaks, j)
	}
}

func (m *method) ret(e *ast.ReturnExpr) {
	target, _ := binding.Get(m.g.store, binding.ReturnTarget, ast.Node(e))
	if target != m.owner {
		m.unsupported("non-local return")
		return
	}
	if e.Value != nil {
		m.put(e.Value, m.result)
	} else {
		m.coerce(bytecode.Void, m.result)
	}
	if m.hasFinally(0) {
		hasValue := m.result.Sort != bytecode.SortVoid
		var res local
		if hasValue {
			res = m.temp(m.result)
		}
		m.runFinally(0)
		if hasValue {
			m.load(res)
		}
	}
	m.returnValue()
}

func (m *method) hasFinally(depth int) bool {
	for _, tc := range m.tries[depth:] {
		if tc.finally != nil {
			return true
		}
	}
	return false
}

// runFinally inlines the finally blocks of the try blocks from the
// innermost one down to depth.
func (m *method) runFinally(depth int) {
	saved := m.tries
	for i := len(saved) - 1; i >= depth; i-- {
		tc := saved[i]
		if tc.finally == nil {
			continue
		}
		m.tries = saved[:i]
		start := m.code.Len()
		m.put(tc.finally, bytecode.Void)
		for _, t := range saved[i:] {
			t.gaps = append(t.gaps, [2]int{start, m.code.Len()})
		}
	}
	m.tries = saved
}

func (m *method) try(e *ast.TryExpr) StackValue {
	return deferred{t: m.natural(e), gen: func(to bytecode.Type) {
		tc := &tryCtx{finally: e.Finally}
		mark := m.frame.Mark()
		start := m.here()
		m.tries = append(m.tries, tc)
		m.put(e.Body, to)
		m.tries = m.tries[:len(m.tries)-1]
		end := m.code.Len()

		var exits []jump
		finish := func() {
			if !m.endReachable() {
				return
			}
			if e.Finally != nil {
				hasValue := to.Sort != bytecode.SortVoid
				var res local
				if hasValue {
					res = m.temp(to)
				}
				gs := m.code.Len()
				m.put(e.Finally, bytecode.Void)
				tc.gaps = append(tc.gaps, [2]int{gs, m.code.Len()})
				if hasValue {
					m.load(res)
				}
			}
			exits = append(exits, m.forward(bytecode.GOTO))
		}
		finish()

		for _, cc := range e.Catches {
			pid, ok := m.g.decl(cc.Param)
			if !ok {
				m.unsupported("undeclared catch parameter")
				continue
			}
			ct := m.g.varType(pid)
			handler := m.here()
			for _, r := range ranges(start, end, tc.gaps) {
				m.node.TryCatch = append(m.node.TryCatch, bytecode.TryCatchBlock{Start: r[0], End: r[1], Handler: handler, Type: ct.Internal})
			}
			m.tries = append(m.tries, tc)
			m.scope(func() {
				slot := m.enterVar(pid, cc.Param.Name.Name, ct)
				m.emit(bytecode.VarInsn(bytecode.ASTORE, slot))
				m.put(cc.Body, to)
			})
			m.tries = m.tries[:len(m.tries)-1]
			finish()
		}

		if e.Finally != nil {
			catchEnd := m.code.Len()
			handler := m.here()
			for _, r := range ranges(start, catchEnd, tc.gaps) {
				m.node.TryCatch = append(m.node.TryCatch, bytecode.TryCatchBlock{Start: r[0], End: r[1], Handler: handler})
			}
			exc := m.temp(bytecode.Throwable)
			m.put(e.Finally, bytecode.Void)
			m.load(exc)
			m.emit(bytecode.Op(bytecode.ATHROW))
		}
		m.patchHere(exits...)
		m.frame.DropTo(mark)
	}}
}

// ranges subtracts gaps from [start, end) and drops empty ranges.
func ranges(start, end int, gaps [][2]int) [][2]int {
	gs := append([][2]int(nil), gaps...)
	sort.Slice(gs, func(i, j int) bool { return gs[i][0] < gs[j][0] })
	var out [][2]int
	cur := start
	for _, g := range gs {
		if g[1] <= cur || g[0] >= end {
			continue
		}
		if g[0] > cur {
			out = append(out, [2]int{cur, g[0]})
		}
		cur = g[1]
	}
	if cur < end {
		out = append(out, [2]int{cur, end})
	}
	return out
}
