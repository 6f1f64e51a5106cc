package typechecker

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// branch is the context of a branch of c: it inherits c's use of the value.
func branch(c ctx, info *dataflow.Info) ctx {
	c = c.at(info)
	if c.statement {
		return c.discard()
	}
	return c
}

// join merges the information of the branches that complete normally;
// fallback is used when none does.
func (b *body) join(ts []*types.Type, infos []*dataflow.Info, fallback *dataflow.Info) *dataflow.Info {
	var out *dataflow.Info
	for i, t := range ts {
		if b.isNothing(t) {
			continue
		}
		if out == nil {
			out = infos[i]
		} else {
			out = out.Or(infos[i])
		}
	}
	if out == nil {
		return fallback
	}
	return out
}

// common is the type of an expression with several branches.
func (b *body) common(ts []*types.Type) *types.Type {
	for _, t := range ts {
		if t.IsError() {
			return types.ErrorType()
		}
	}
	if t := b.checker.CommonSupertype(ts); t != nil {
		return t
	}
	return b.builtins.UnitType
}

func (b *body) ifExpr(n *ast.IfExpr, c ctx) (*types.Type, *dataflow.Info) {
	whenTrue, whenFalse := b.condition(n.Cond, c)
	if n.Else == nil {
		if !c.statement && c.expected != nil && !b.isUnit(c.expected) {
			b.report(diagnostics.NewError("'if' must have both main and 'else' branches if used as an expression").
				WithCode(diagnostics.ErrTypeMismatch).
				WithPrimaryLabel(n.Loc(), "add an 'else' branch"))
		}
		t, info := b.expr(n.Then, c.at(whenTrue).discard())
		if b.isNothing(t) {
			return b.builtins.UnitType, whenFalse
		}
		return b.builtins.UnitType, info.Or(whenFalse)
	}
	tt, ti := b.expr(n.Then, branch(c, whenTrue))
	et, ei := b.expr(n.Else, branch(c, whenFalse))
	ts := []*types.Type{tt, et}
	info := b.join(ts, []*dataflow.Info{ti, ei}, ti)
	if b.isNothing(tt) && b.isNothing(et) {
		return b.builtins.NothingType, info
	}
	if c.statement {
		return b.builtins.UnitType, info
	}
	return b.common(ts), info
}

func (b *body) when(n *ast.WhenExpr, c ctx) (*types.Type, *dataflow.Info) {
	info := c.info
	var subjType *types.Type
	var subj dataflow.Value
	if n.Subject != nil {
		subjType, info = b.expr(n.Subject, c.value(nil))
		static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.Subject))
		subj = b.df.ValueOf(n.Subject, static)
	}

	var ts []*types.Type
	var infos []*dataflow.Info
	cov := &coverage{entries: make(map[types.ID]bool)}
	hasElse := false
	for _, e := range n.Entries {
		if e.Else {
			hasElse = true
			t, after := b.expr(e.Body, branch(c, info))
			ts, infos = append(ts, t), append(infos, after)
			continue
		}
		var matched *dataflow.Info
		for _, cond := range e.Conds {
			t, f := b.whenCond(cond, n.Subject != nil, subjType, subj, c.at(info), cov)
			if matched == nil {
				matched = t
			} else {
				matched = matched.Or(t)
			}
			info = f
		}
		if matched == nil {
			matched = info
		}
		t, after := b.expr(e.Body, branch(c, matched))
		ts, infos = append(ts, t), append(infos, after)
	}

	exhaustive := hasElse || b.exhaustive(subjType, cov)
	if !exhaustive {
		if !c.statement && !b.isUnit(c.expected) {
			b.report(diagnostics.NewError("'when' expression must be exhaustive, add necessary 'else' branch").
				WithCode(diagnostics.ErrNoElseInWhen).
				WithPrimaryLabel(n.Loc(), "not every case is covered"))
		}
		ts = append(ts, b.builtins.UnitType)
		infos = append(infos, info)
	}
	after := b.join(ts, infos, info)
	if len(ts) > 0 && allNothing(b, ts) {
		return b.builtins.NothingType, after
	}
	if c.statement || !exhaustive {
		return b.builtins.UnitType, after
	}
	return b.common(ts), after
}

func allNothing(b *body, ts []*types.Type) bool {
	for _, t := range ts {
		if !b.isNothing(t) {
			return false
		}
	}
	return true
}

// coverage collects the constants a `when` matches its subject against.
type coverage struct {
	entries map[types.ID]bool
	yes, no bool
	null    bool
}

func (b *body) whenCond(cond ast.WhenCond, hasSubject bool, subjType *types.Type, subj dataflow.Value, c ctx, cov *coverage) (whenTrue, whenFalse *dataflow.Info) {
	switch cd := cond.(type) {
	case *ast.WhenValueCond:
		if !hasSubject {
			return b.condition(cd.Value, c)
		}
		_, info := b.expr(cd.Value, c.value(nil))
		b.cover(cd.Value, cov)
		static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(cd.Value))
		return b.df.Equality(subj, b.df.ValueOf(cd.Value, static), info)
	case *ast.WhenIsCond:
		t := b.decls.ResolveType(cd.Type, c.sc)
		if !hasSubject {
			b.report(diagnostics.NewError("'is' condition requires a 'when' subject").
				WithCode(diagnostics.ErrIncompatibleIsCheck).
				WithPrimaryLabel(cd.Loc(), "nothing to check"))
			return c.info, c.info
		}
		b.checkIsCompatible(cd.Loc(), subjType, t)
		return b.df.IsCheck(subj, t, cd.Negated, c.info)
	}
	return c.info, c.info
}

func (b *body) cover(e ast.Expression, cov *coverage) {
	switch v := e.(type) {
	case *ast.Literal:
		switch {
		case v.Kind == ast.BOOL && v.Value == "true":
			cov.yes = true
		case v.Kind == ast.BOOL:
			cov.no = true
		case v.Kind == ast.NULL:
			cov.null = true
		}
		return
	case *ast.QualifiedExpr:
		e = v.Selector
	}
	if id, ok := binding.Get(b.store, binding.Reference, ast.Node(e)); ok {
		if d := b.table.Get(id); d.Kind == types.KindClass && d.Class.Kind == types.ClassEnumEntry {
			cov.entries[id] = true
		}
	}
}

// exhaustive reports a `when` over a Boolean or enum subject that matches
// every value.
func (b *body) exhaustive(subj *types.Type, cov *coverage) bool {
	if subj == nil || subj.IsError() || !subj.IsClass() {
		return subj != nil && subj.IsError()
	}
	if subj.Nullable() && !cov.null {
		return false
	}
	if subj.Decl() == b.builtins.Boolean {
		return cov.yes && cov.no
	}
	d := b.table.Get(subj.Decl())
	if d.Class.Kind != types.ClassEnum {
		return false
	}
	for _, e := range d.Class.Entries {
		if !cov.entries[e] {
			return false
		}
	}
	return true
}

func (b *body) while(n *ast.WhileExpr, c ctx) (*types.Type, *dataflow.Info) {
	whenTrue, whenFalse := b.condition(n.Cond, c)
	b.expr(n.Body, c.at(whenTrue).discard())
	if b.breaks(n, n.Body) {
		return b.builtins.UnitType, c.info
	}
	return b.builtins.UnitType, whenFalse
}

// doWhile types `do body while (cond)`. The condition sees the body's
// declarations.
func (b *body) doWhile(n *ast.DoWhileExpr, c ctx) (*types.Type, *dataflow.Info) {
	sc := table.NewScope(c.sc, table.ScopeBlock, b.from)
	info := c.info
	if blk, ok := n.Body.(*ast.Block); ok {
		_, info = b.statements(blk.Stmts, c.in(sc).discard())
		note(b.store, binding.ExpressionType, ast.Node(blk), b.builtins.UnitType)
		note(b.store, binding.Statement, ast.Node(blk), true)
	} else {
		_, info = b.expr(n.Body, c.in(sc).discard())
	}
	_, whenFalse := b.condition(n.Cond, c.in(sc).at(info))
	if b.breaks(n, n.Body) {
		return b.builtins.UnitType, c.info
	}
	return b.builtins.UnitType, whenFalse
}

func (b *body) forLoop(n *ast.ForExpr, c ctx) (*types.Type, *dataflow.Info) {
	it, info := b.expr(n.Iterable, c.value(nil))
	elem := b.iteration(n, it, c.at(info))

	sc := table.NewScope(c.sc, table.ScopeBlock, b.from)
	t := elem
	if n.Var.Type != nil {
		declared := b.decls.ResolveType(n.Var.Type, c.sc)
		b.conform(n.Var.Loc(), elem, declared)
		t = declared
	}
	id := b.table.Add(&types.Descriptor{
		Kind:  types.KindVariable,
		Name:  n.Var.Name.Name,
		Owner: b.from,
		Loc:   n.Var.Loc(),
		Decl:  n.Var,
		Var:   &types.VarInfo{Storage: types.StorageLocal, Type: t},
	})
	binding.MustRecord(b.store, binding.Declaration, ast.Node(n.Var), id)
	_ = sc.DeclareVar(n.Var.Name.Name, id)

	b.expr(n.Body, c.in(sc).at(info).discard())
	return b.builtins.UnitType, info
}

// iteration resolves iterator(), hasNext() and next() for a for loop and
// returns the element type.
func (b *body) iteration(n *ast.ForExpr, t *types.Type, c ctx) *types.Type {
	if t.IsError() {
		return t
	}
	if t.Nullable() {
		b.report(diagnostics.NewError("not nullable value required to call an 'iterator()' method on for-loop range").
			WithCode(diagnostics.ErrUnsafeCall).
			WithPrimaryLabel(n.Iterable.Loc(), "this can be null"))
	}
	loc := n.Iterable.Loc()
	it := b.operator("iterator", t, nil, loc, c)
	if it == nil {
		return types.ErrorType()
	}
	hasNext := b.operator("hasNext", it.Result, nil, loc, c)
	next := b.operator("next", it.Result, nil, loc, c)
	if hasNext == nil || next == nil {
		return types.ErrorType()
	}
	if !b.isBoolean(hasNext.Result) {
		b.report(diagnostics.NewError("hasNext() must return Boolean, found "+hasNext.Result.String()).
			WithCode(diagnostics.ErrInvalidOperator).
			WithPrimaryLabel(loc, "not iterable"))
	}
	binding.MustRecord(b.store, LoopIteration, ast.Node(n), &Iteration{
		Iterator: it,
		HasNext:  hasNext,
		Next:     next,
		Element:  next.Result,
	})
	return next.Result
}

// breaks reports whether body contains a break leaving loop.
func (b *body) breaks(loop ast.Expression, body ast.Node) bool {
	labels := b.labels[loop]
	found := false
	var walk func(n ast.Node, nested bool)
	walk = func(n ast.Node, nested bool) {
		if n == nil || found {
			return
		}
		switch n := n.(type) {
		case *ast.BreakExpr:
			if n.Label == "" && !nested || hasLabel(labels, n.Label) {
				found = true
			}
			return
		case *ast.FunctionLiteral, *ast.FunDecl, *ast.ClassDecl, *ast.ObjectLiteral:
			return
		case *ast.WhileExpr, *ast.DoWhileExpr, *ast.ForExpr:
			for _, ch := range ast.Children(n) {
				walk(ch, true)
			}
			return
		}
		for _, ch := range ast.Children(n) {
			walk(ch, nested)
		}
	}
	walk(body, false)
	return found
}

func hasLabel(labels []string, l string) bool {
	if l == "" {
		return false
	}
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// labeled types `label@ expr`. The label names the loop or literal it is
// attached to.
func (b *body) labeled(n *ast.LabeledExpr, c ctx) (*types.Type, *dataflow.Info) {
	switch n.Body.(type) {
	case *ast.FunctionLiteral, *ast.WhileExpr, *ast.DoWhileExpr, *ast.ForExpr:
		b.labels[n.Body] = append(b.labels[n.Body], n.Label)
	}
	return b.expr(n.Body, c)
}

// ret types `return` and `return@label`. Returns from a subroutine whose
// result is inferred contribute to it.
func (b *body) ret(n *ast.ReturnExpr, c ctx) (*types.Type, *dataflow.Info) {
	f := b.returnFrame(n.Label)
	if f == nil {
		msg := "'return' is not allowed here"
		if n.Label != "" {
			msg = "unresolved label '" + n.Label + "'"
		}
		b.report(diagnostics.NewError(msg).
			WithCode(diagnostics.ErrReturnNotAllowed).
			WithPrimaryLabel(n.Loc(), "no function to return from"))
	}
	info := c.info
	if n.Value != nil {
		var expected *types.Type
		if f != nil {
			expected = f.result
		}
		var t *types.Type
		t, info = b.expr(n.Value, c.value(expected))
		if f != nil && f.result == nil {
			f.returned = append(f.returned, t)
		}
	} else if f != nil && f.result == nil {
		f.returned = append(f.returned, b.builtins.UnitType)
	}
	return b.builtins.NothingType, info
}

// returnFrame finds the subroutine a return leaves: the labelled one, or
// the innermost named function.
func (b *body) returnFrame(label string) *frame {
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if label == "" {
			if f.named {
				return f
			}
			if _, init := f.owner.(*ast.Initializer); init {
				return nil
			}
			continue
		}
		if hasLabel(f.labels, label) {
			return f
		}
	}
	return nil
}

func (b *body) throw(n *ast.ThrowExpr, c ctx) (*types.Type, *dataflow.Info) {
	_, info := b.expr(n.X, c.value(b.builtins.ThrowableType))
	return b.builtins.NothingType, info
}

// try types try/catch/finally. Facts proven inside the try block may not
// hold in a handler, so the information afterwards is the one before.
func (b *body) try(n *ast.TryExpr, c ctx) (*types.Type, *dataflow.Info) {
	t, _ := b.block(n.Body, branch(c, c.info))
	ts := []*types.Type{t}
	for _, cc := range n.Catches {
		sc := table.NewScope(c.sc, table.ScopeBlock, b.from)
		pt := b.builtins.ThrowableType
		if cc.Param.Type != nil {
			pt = b.decls.ResolveType(cc.Param.Type, c.sc)
			b.conform(cc.Param.Loc(), pt, b.builtins.ThrowableType)
		}
		id := b.table.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  cc.Param.Name.Name,
			Owner: b.from,
			Loc:   cc.Param.Loc(),
			Decl:  cc.Param,
			Var:   &types.VarInfo{Storage: types.StorageLocal, Type: pt},
		})
		binding.MustRecord(b.store, binding.Declaration, ast.Node(cc.Param), id)
		_ = sc.DeclareVar(cc.Param.Name.Name, id)
		ct, _ := b.block(cc.Body, branch(c, c.info).in(sc))
		ts = append(ts, ct)
	}
	if n.Finally != nil {
		b.block(n.Finally, c.discard())
	}
	if allNothing(b, ts) {
		return b.builtins.NothingType, c.info
	}
	if c.statement {
		return b.builtins.UnitType, c.info
	}
	return b.common(ts), c.info
}
