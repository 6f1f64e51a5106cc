package controlflow

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/tokens"
)

type frameKind int

const (
	frameSubroutine frameKind = iota
	frameLoop
	frameFinally
)

// frame is one entry of the builder's context stack. Loops and finally
// blocks live inside the subroutine frame whose graph they emit into.
type frame struct {
	kind   frameKind
	labels []string

	// subroutine
	pc    *Pseudocode
	owner ast.Node
	named bool // named function, target of unlabelled returns

	// loop
	loop           ast.Expression
	cont, exitLoop *Label

	// finally
	finally *ast.Block
}

// Builder constructs pseudocode graphs. It records LoopTarget and
// ReturnTarget in the store and reports jumps that resolve to nothing.
type Builder struct {
	store  *binding.Store
	frames []*frame
	pc     *Pseudocode

	// finally blocks are emitted once per crossing jump; nested graphs and
	// diagnostics are shared between the copies
	locals   map[ast.Node]*Pseudocode
	reported map[ast.Node]bool
	// copies is the depth of finally blocks being re-emitted. Jump targets
	// are recorded by the walk outside any copy, which every finally block
	// gets exactly once.
	copies int
}

// NewBuilder creates a builder recording into store.
func NewBuilder(store *binding.Store) *Builder {
	return &Builder{
		store:    store,
		locals:   make(map[ast.Node]*Pseudocode),
		reported: make(map[ast.Node]bool),
	}
}

// Build creates the sealed graph of a subroutine. owner is a function, a
// class (primary constructor and initializers), a property with an
// initializer or an accessor.
func (b *Builder) Build(owner ast.Node) *Pseudocode {
	b.frames = b.frames[:0]
	switch o := owner.(type) {
	case *ast.FunDecl:
		return b.subroutine(o, []string{o.Name.Name}, true, func() { b.funBody(o) })
	case *ast.ClassDecl:
		return b.subroutine(o, nil, false, func() { b.classInit(o, true) })
	case *ast.PropertyDecl:
		return b.subroutine(o, nil, false, func() {
			if o.Init != nil {
				b.expr(o.Init)
				b.emit(&Instruction{Kind: Write, Element: o})
			}
		})
	case *ast.Accessor:
		return b.subroutine(o, nil, true, func() {
			if o.Param != nil {
				b.declareParam(o.Param)
			}
			b.bodyExpr(o.Body, o.ExprBody)
		})
	}
	panic("controlflow: unexpected subroutine owner")
}

func (b *Builder) subroutine(owner ast.Node, labels []string, named bool, body func()) *Pseudocode {
	pc := newPseudocode(owner, nil)
	savedPC, savedFrames := b.pc, b.frames
	b.pc = pc
	b.frames = append(b.frames, &frame{kind: frameSubroutine, pc: pc, owner: owner, labels: labels, named: named})
	b.emit(&Instruction{Kind: Enter, Element: owner})
	body()
	pc.seal()
	b.pc = savedPC
	b.frames = savedFrames
	return pc
}

func (b *Builder) emit(in *Instruction) *Instruction { return b.pc.add(in) }

func (b *Builder) label(name string) *Label { return b.pc.newLabel(name) }

func (b *Builder) bind(l *Label) { b.pc.bind(l) }

func (b *Builder) jump(kind JumpKind, target *Label, element ast.Node) {
	b.emit(&Instruction{Kind: Jump, Jump: kind, Label: target, Element: element})
}

func (b *Builder) report(n ast.Node, d *diagnostics.Diagnostic) {
	if b.reported[n] {
		return
	}
	b.reported[n] = true
	b.store.Report(d)
}

func (b *Builder) declareParam(p *ast.Param) {
	b.emit(&Instruction{Kind: VarDecl, Element: p})
	b.emit(&Instruction{Kind: Write, Element: p})
}

func (b *Builder) funBody(f *ast.FunDecl) {
	for _, p := range f.Params {
		if p.Default != nil {
			b.expr(p.Default)
		}
		b.declareParam(p)
	}
	b.bodyExpr(f.Body, f.ExprBody)
}

func (b *Builder) bodyExpr(body ast.Expression, exprBody bool) {
	if body == nil {
		return
	}
	b.expr(body)
	if exprBody {
		b.jump(ReturnValue, b.pc.exit, nil)
	}
}

// BuildLocalClass creates the graph of a local class or an object literal.
// Its supertype arguments are part of the graph of the enclosing body.
func (b *Builder) BuildLocalClass(c *ast.ClassDecl) *Pseudocode {
	b.frames = b.frames[:0]
	return b.subroutine(c, nil, false, func() { b.classInit(c, false) })
}

// classInit models the primary constructor followed by property
// initializers and anonymous initializers in declaration order.
func (b *Builder) classInit(c *ast.ClassDecl, supers bool) {
	for _, p := range c.Params {
		if p.Default != nil {
			b.expr(p.Default)
		}
		b.declareParam(p)
	}
	if supers {
		for _, s := range c.Supers {
			for _, a := range s.Args {
				b.expr(a.Value)
			}
		}
	}
	for _, e := range c.Entries {
		for _, a := range e.Args {
			b.expr(a.Value)
		}
	}
	for _, m := range c.Members {
		switch m := m.(type) {
		case *ast.PropertyDecl:
			if m.Init != nil {
				b.expr(m.Init)
				b.emit(&Instruction{Kind: Write, Element: m})
			}
		case *ast.Initializer:
			b.expr(m.Body)
		}
	}
}

// nested builds the graph of a function literal or local function and
// links it into the current graph.
func (b *Builder) nested(owner ast.Node, labels []string, named bool, body func()) {
	pc, ok := b.locals[owner]
	if !ok {
		savedFrames := b.frames
		pc = newPseudocode(owner, b.pc)
		saved := b.pc
		b.pc = pc
		b.frames = append(append([]*frame(nil), b.frames...), &frame{kind: frameSubroutine, pc: pc, owner: owner, labels: labels, named: named})
		b.emit(&Instruction{Kind: Enter, Element: owner})
		body()
		pc.seal()
		b.pc = saved
		b.frames = savedFrames
		b.locals[owner] = pc
		b.pc.locals = append(b.pc.locals, pc)
	}
	b.emit(&Instruction{Kind: LocalDecl, Element: owner, Body: pc})
}

func (b *Builder) block(blk *ast.Block) {
	if blk == nil {
		return
	}
	for _, s := range blk.Stmts {
		b.stmt(s)
	}
}

func (b *Builder) stmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.PropertyDecl:
		b.emit(&Instruction{Kind: VarDecl, Element: s})
		if s.Init != nil {
			b.expr(s.Init)
			b.emit(&Instruction{Kind: Write, Element: s})
		}
	case *ast.FunDecl:
		b.nested(s, []string{s.Name.Name}, true, func() { b.funBody(s) })
	case *ast.ClassDecl:
		// members of local classes are separate subroutines
		for _, sup := range s.Supers {
			for _, a := range sup.Args {
				b.expr(a.Value)
			}
		}
	case ast.Expression:
		b.expr(s)
	default:
		b.emit(&Instruction{Kind: Unsupported, Element: n})
	}
}

func isTrue(e ast.Expression) bool {
	l, ok := e.(*ast.Literal)
	return ok && l.Kind == ast.BOOL && l.Value == "true"
}

func (b *Builder) expr(e ast.Expression) {
	switch n := e.(type) {
	case *ast.Literal, *ast.NameExpr, *ast.ThisExpr:
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.BinaryExpr:
		b.binary(n)
	case *ast.UnaryExpr:
		b.expr(n.X)
		b.emit(&Instruction{Kind: Read, Element: n})
		if n.Op.Kind == tokens.PLUS_PLUS_TOKEN || n.Op.Kind == tokens.MINUS_MINUS_TOKEN {
			b.emit(&Instruction{Kind: Write, Element: n, Target: n.X})
		}
	case *ast.PostfixExpr:
		b.expr(n.X)
		b.emit(&Instruction{Kind: Read, Element: n})
		if n.Op.Kind == tokens.PLUS_PLUS_TOKEN || n.Op.Kind == tokens.MINUS_MINUS_TOKEN {
			b.emit(&Instruction{Kind: Write, Element: n, Target: n.X})
		}
	case *ast.AssignExpr:
		b.assign(n)
	case *ast.IsExpr:
		b.expr(n.X)
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.CastExpr:
		b.expr(n.X)
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.CallExpr:
		b.call(n, false)
	case *ast.QualifiedExpr:
		b.qualified(n)
	case *ast.IndexExpr:
		b.expr(n.X)
		for _, i := range n.Indices {
			b.expr(i)
		}
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.TupleExpr:
		for _, el := range n.Elems {
			b.expr(el)
		}
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.FunctionLiteral:
		b.literal(n, nil)
	case *ast.ObjectLiteral:
		for _, s := range n.Decl.Supers {
			for _, a := range s.Args {
				b.expr(a.Value)
			}
		}
		b.emit(&Instruction{Kind: Read, Element: n})
	case *ast.Block:
		b.block(n)
	case *ast.IfExpr:
		b.ifExpr(n)
	case *ast.WhenExpr:
		b.when(n)
	case *ast.WhileExpr:
		b.while(n, nil)
	case *ast.DoWhileExpr:
		b.doWhile(n, nil)
	case *ast.ForExpr:
		b.forLoop(n, nil)
	case *ast.LabeledExpr:
		b.labeled(n)
	case *ast.BreakExpr:
		b.breakOrContinue(n, n.Label, false)
	case *ast.ContinueExpr:
		b.breakOrContinue(n, n.Label, true)
	case *ast.ReturnExpr:
		b.ret(n)
	case *ast.ThrowExpr:
		b.expr(n.X)
		b.jump(Throw, b.pc.errLabel, n)
	case *ast.TryExpr:
		b.try(n)
	default:
		b.emit(&Instruction{Kind: Unsupported, Element: e})
	}
}

func (b *Builder) binary(n *ast.BinaryExpr) {
	switch n.Op.Kind {
	case tokens.AND_TOKEN, tokens.OR_TOKEN:
		end := b.label("and/or end")
		b.expr(n.X)
		b.emit(&Instruction{Kind: CondJump, Label: end, OnTrue: n.Op.Kind == tokens.OR_TOKEN, Element: n.X})
		b.expr(n.Y)
		b.bind(end)
	case tokens.ELVIS_TOKEN:
		end := b.label("elvis end")
		b.expr(n.X)
		b.emit(&Instruction{Kind: NondetJump, Targets: []*Label{end}, Element: n})
		b.expr(n.Y)
		b.bind(end)
	default:
		b.expr(n.X)
		b.expr(n.Y)
	}
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) assign(n *ast.AssignExpr) {
	compound := n.Op.Kind != tokens.EQUALS_TOKEN
	switch t := n.Target.(type) {
	case *ast.NameExpr:
		if compound {
			b.emit(&Instruction{Kind: Read, Element: t})
		}
	case *ast.QualifiedExpr:
		b.expr(t.Receiver)
		if compound {
			b.emit(&Instruction{Kind: Read, Element: t})
		}
	case *ast.IndexExpr:
		b.expr(t.X)
		for _, i := range t.Indices {
			b.expr(i)
		}
		if compound {
			b.emit(&Instruction{Kind: Read, Element: t})
		}
	default:
		b.expr(n.Target)
	}
	b.expr(n.Value)
	b.emit(&Instruction{Kind: Write, Element: n, Target: n.Target})
}

func calleeName(callee ast.Expression) string {
	if n, ok := callee.(*ast.NameExpr); ok {
		return n.Name
	}
	return ""
}

// call evaluates arguments left to right. A function literal argument is
// implicitly labelled with the callee's name. Member calls do not read the
// callee name.
func (b *Builder) call(n *ast.CallExpr, member bool) {
	name := calleeName(n.Callee)
	if name == "" {
		b.expr(n.Callee)
	} else if !member {
		b.emit(&Instruction{Kind: Read, Element: n.Callee})
	}
	for _, a := range n.Args {
		if lit, ok := a.Value.(*ast.FunctionLiteral); ok && name != "" {
			b.literal(lit, []string{name})
			continue
		}
		b.expr(a.Value)
	}
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) qualified(n *ast.QualifiedExpr) {
	b.expr(n.Receiver)
	var end *Label
	if n.Safe {
		end = b.label("safe call end")
		b.emit(&Instruction{Kind: NondetJump, Targets: []*Label{end}, Element: n})
	}
	switch s := n.Selector.(type) {
	case *ast.CallExpr:
		b.call(s, true)
	default:
		b.emit(&Instruction{Kind: Read, Element: s})
	}
	if end != nil {
		b.bind(end)
	}
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) literal(n *ast.FunctionLiteral, labels []string) {
	b.nested(n, labels, false, func() {
		for _, p := range n.Params {
			b.declareParam(p)
		}
		b.block(n.Body)
	})
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) ifExpr(n *ast.IfExpr) {
	elseL := b.label("else")
	end := b.label("if end")
	b.expr(n.Cond)
	b.emit(&Instruction{Kind: CondJump, Label: elseL, Element: n.Cond})
	b.expr(n.Then)
	b.jump(Goto, end, nil)
	b.bind(elseL)
	if n.Else != nil {
		b.expr(n.Else)
	}
	b.bind(end)
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) when(n *ast.WhenExpr) {
	if n.Subject != nil {
		b.expr(n.Subject)
	}
	end := b.label("when end")
	for _, e := range n.Entries {
		if e.Else {
			b.expr(e.Body)
			b.jump(Goto, end, nil)
			continue
		}
		next := b.label("next entry")
		for _, c := range e.Conds {
			if v, ok := c.(*ast.WhenValueCond); ok {
				b.expr(v.Value)
			}
		}
		b.emit(&Instruction{Kind: NondetJump, Targets: []*Label{next}, Element: e})
		b.expr(e.Body)
		b.jump(Goto, end, nil)
		b.bind(next)
	}
	b.bind(end)
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) pushLoop(loop ast.Expression, labels []string, cont, exit *Label) {
	b.frames = append(b.frames, &frame{kind: frameLoop, loop: loop, labels: labels, cont: cont, exitLoop: exit})
}

func (b *Builder) pop() { b.frames = b.frames[:len(b.frames)-1] }

func (b *Builder) while(n *ast.WhileExpr, labels []string) {
	cond := b.label("loop condition")
	body := b.label("loop body")
	exit := b.label("loop exit")
	b.bind(cond)
	b.expr(n.Cond)
	if !isTrue(n.Cond) {
		b.emit(&Instruction{Kind: CondJump, Label: exit, Element: n.Cond})
	}
	b.bind(body)
	b.pushLoop(n, labels, cond, exit)
	b.expr(n.Body)
	b.pop()
	b.jump(Goto, cond, nil)
	b.bind(exit)
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) doWhile(n *ast.DoWhileExpr, labels []string) {
	body := b.label("loop body")
	cont := b.label("loop condition")
	exit := b.label("loop exit")
	b.bind(body)
	b.pushLoop(n, labels, cont, exit)
	b.expr(n.Body)
	b.pop()
	b.bind(cont)
	b.expr(n.Cond)
	if isTrue(n.Cond) {
		b.jump(Goto, body, nil)
	} else {
		b.emit(&Instruction{Kind: CondJump, Label: body, OnTrue: true, Element: n.Cond})
	}
	b.bind(exit)
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) forLoop(n *ast.ForExpr, labels []string) {
	b.expr(n.Iterable)
	cond := b.label("loop condition")
	exit := b.label("loop exit")
	b.bind(cond)
	b.emit(&Instruction{Kind: NondetJump, Targets: []*Label{exit}, Element: n})
	b.declareParam(n.Var)
	b.pushLoop(n, labels, cond, exit)
	b.expr(n.Body)
	b.pop()
	b.jump(Goto, cond, nil)
	b.bind(exit)
	b.emit(&Instruction{Kind: Read, Element: n})
}

func (b *Builder) labeled(n *ast.LabeledExpr) {
	labels := []string{n.Label}
	switch body := n.Body.(type) {
	case *ast.WhileExpr:
		b.while(body, labels)
	case *ast.DoWhileExpr:
		b.doWhile(body, labels)
	case *ast.ForExpr:
		b.forLoop(body, labels)
	case *ast.FunctionLiteral:
		b.literal(body, labels)
	default:
		b.expr(n.Body)
	}
}

// findLoop returns the index of the loop frame a break or continue leaves,
// or -1. Search stops at the subroutine boundary.
func (b *Builder) findLoop(label string) int {
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if f.kind == frameSubroutine {
			return -1
		}
		if f.kind != frameLoop {
			continue
		}
		if label == "" || hasLabel(f.labels, label) {
			return i
		}
	}
	return -1
}

func hasLabel(labels []string, l string) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// emitFinallyTo re-emits every finally block between the top of the stack
// and frame index target, innermost first.
func (b *Builder) emitFinallyTo(target int) {
	for i := len(b.frames) - 1; i > target; i-- {
		f := b.frames[i]
		if f.kind == frameSubroutine {
			return
		}
		if f.kind != frameFinally {
			continue
		}
		saved := b.frames
		b.frames = b.frames[:i]
		b.copyFinally(f.finally)
		b.frames = saved
	}
}

// copyFinally emits another copy of a finally block.
func (b *Builder) copyFinally(blk *ast.Block) {
	b.copies++
	b.block(blk)
	b.copies--
}

func (b *Builder) breakOrContinue(n ast.Expression, label string, cont bool) {
	i := b.findLoop(label)
	if i < 0 {
		switch {
		case label != "":
			b.report(n, diagnostics.NewError("unresolved label '@"+label+"'").
				WithCode(diagnostics.ErrUnresolvedLabel).
				WithPrimaryLabel(n.Loc(), "no enclosing loop has this label"))
		case cont:
			b.report(n, diagnostics.NewError("'continue' is not allowed outside a loop").
				WithCode(diagnostics.ErrContinueOutsideLoop).
				WithPrimaryLabel(n.Loc(), "not inside a loop"))
		default:
			b.report(n, diagnostics.NewError("'break' is not allowed outside a loop").
				WithCode(diagnostics.ErrBreakOutsideLoop).
				WithPrimaryLabel(n.Loc(), "not inside a loop"))
		}
		return
	}
	f := b.frames[i]
	if b.copies == 0 {
		binding.MustRecord(b.store, binding.LoopTarget, ast.Node(n), f.loop)
	}
	b.emitFinallyTo(i)
	if cont {
		b.jump(Goto, f.cont, n)
	} else {
		b.jump(Goto, f.exitLoop, n)
	}
}

// findReturnTarget resolves the subroutine a return leaves: the innermost
// named function for plain returns, the labelled subroutine otherwise.
func (b *Builder) findReturnTarget(label string) int {
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if f.kind != frameSubroutine {
			continue
		}
		if label == "" && f.named {
			return i
		}
		if label != "" && hasLabel(f.labels, label) {
			return i
		}
	}
	return -1
}

func (b *Builder) ret(n *ast.ReturnExpr) {
	if n.Value != nil {
		b.expr(n.Value)
	}
	kind := ReturnNoValue
	if n.Value != nil {
		kind = ReturnValue
	}
	i := b.findReturnTarget(n.Label)
	if i < 0 {
		if n.Label != "" {
			b.report(n, diagnostics.NewError("unresolved label '@"+n.Label+"'").
				WithCode(diagnostics.ErrUnresolvedLabel).
				WithPrimaryLabel(n.Loc(), "no enclosing function has this label"))
		} else {
			b.report(n, diagnostics.NewError("'return' is not allowed here").
				WithCode(diagnostics.ErrReturnNotAllowed).
				WithPrimaryLabel(n.Loc(), "not inside a function"))
		}
		return
	}
	target := b.frames[i]
	if b.copies == 0 {
		binding.MustRecord(b.store, binding.ReturnTarget, ast.Node(n), target.owner)
	}
	b.emitFinallyTo(i)
	in := &Instruction{Kind: Jump, Jump: kind, Label: b.pc.exit, Element: n}
	in.NonLocal = target.pc != b.pc
	b.emit(in)
}

// try models the body and catches as reachable from the start of the try
// through a nondeterministic jump. With a finally block, the error path
// runs a copy of it before propagating.
func (b *Builder) try(n *ast.TryExpr) {
	after := b.label("try end")
	var targets []*Label
	catches := make([]*Label, len(n.Catches))
	for i := range n.Catches {
		catches[i] = b.label("catch")
		targets = append(targets, catches[i])
	}
	var onError *Label
	if n.Finally != nil {
		onError = b.label("finally on error")
		targets = append(targets, onError)
		b.frames = append(b.frames, &frame{kind: frameFinally, finally: n.Finally})
	}
	b.emit(&Instruction{Kind: NondetJump, Targets: targets, Element: n})
	b.block(n.Body)
	b.jump(Goto, after, nil)
	for i, c := range n.Catches {
		b.bind(catches[i])
		b.declareParam(c.Param)
		b.block(c.Body)
		b.jump(Goto, after, nil)
	}
	if n.Finally != nil {
		b.pop()
		b.bind(onError)
		b.block(n.Finally)
		b.jump(Throw, b.pc.errLabel, nil)
	}
	b.bind(after)
	if n.Finally != nil {
		b.copyFinally(n.Finally)
	}
	b.emit(&Instruction{Kind: Read, Element: n})
}
