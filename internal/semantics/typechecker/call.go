package typechecker

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/semantics/table"
	"jetc/internal/source"
	"jetc/internal/types"
)

// call types a call written as `f(...)`, `recv.f(...)` or `expr(...)`.
func (b *body) call(n *ast.CallExpr, c ctx, recv *receiver) (*types.Type, *dataflow.Info) {
	info := c.info
	callee, byName := n.Callee.(*ast.NameExpr)
	name := ""
	if byName {
		name = callee.Name
	}

	var levels [][]calls.Candidate
	switch {
	case recv != nil && recv.typ == nil:
		levels = b.staticLevels(recv.qual, name)
	case recv != nil:
		if byName && !recv.typ.IsError() {
			levels = b.calls.MemberLevels(c.sc, types.MakeNotNull(recv.typ), name)
			if len(levels) == 0 && recv.qual != types.NoID {
				levels = b.staticLevels(recv.qual, name)
			}
		}
	case byName:
		levels = b.calls.ImplicitLevels(c.sc, name)
	default:
		var ft *types.Type
		ft, info = b.expr(n.Callee, c.value(nil))
		if cands := calls.Invoke(ft); len(cands) > 0 {
			levels = [][]calls.Candidate{cands}
		} else if !ft.IsError() {
			b.notCallable(n.Callee.Loc(), "expression", ft)
		}
		name = "invoke"
	}

	typeArgs := make([]*types.Type, len(n.TypeArgs))
	for i, ta := range n.TypeArgs {
		typeArgs[i] = b.decls.ResolveType(ta, c.sc)
	}
	args, info := b.arguments(n.Args, name, c.at(info))

	if len(levels) == 0 {
		b.typeLambdas(args)
		if byName && (recv == nil || recv.typ == nil || !recv.typ.IsError()) {
			b.unresolvedCall(callee, recv, c)
		}
		return types.ErrorType(), info
	}
	call, _ := b.calls.Resolve(&calls.Request{
		Name:     name,
		Node:     n,
		Loc:      n.Loc(),
		From:     b.from,
		Levels:   levels,
		TypeArgs: typeArgs,
		Args:     args,
		Expected: c.expected,
	})
	b.typeLambdas(args)
	if call == nil {
		return types.ErrorType(), info
	}
	if byName && call.ID != types.NoID {
		binding.MustRecord(b.store, binding.Reference, ast.Node(callee), call.ID)
	}
	if call.Implicit {
		b.recordImplicit(n, call.Candidate, c.sc)
	}
	b.checkInstantiation(n, call)

	result := call.Result
	if result == nil {
		result = types.ErrorType()
	}
	if recv != nil && recv.typ != nil && !b.nullableExtension(call) {
		result = b.nullSafe(recv.node, recv.typ, result)
	}
	return result, info
}

// nullableExtension reports an extension whose receiver accepts null, which
// may be called on a nullable receiver without `?.`.
func (b *body) nullableExtension(call *calls.Call) bool {
	if call.Extension == nil || call.ID == types.NoID {
		return false
	}
	r := b.table.Get(call.ID).Func.Receiver
	return r != nil && r.Nullable()
}

// staticLevels collects the candidates of `Q.f(...)` where Q names a class
// or package: nested class constructors and package-level functions.
func (b *body) staticLevels(q types.ID, name string) [][]calls.Candidate {
	pkg := b.table.Get(q).Kind == types.KindPackage
	var level []calls.Candidate
	for _, m := range b.table.Members(q, name) {
		md := b.table.Get(m)
		switch md.Kind {
		case types.KindClass:
			level = append(level, b.calls.Constructors(m)...)
		case types.KindFunction:
			if pkg && md.Func.Receiver == nil {
				level = append(level, calls.Candidate{ID: m})
			}
		}
	}
	if len(level) == 0 {
		return nil
	}
	return [][]calls.Candidate{level}
}

// arguments types the value arguments of a call left to right. Function
// literals are typed later, once the callee supplies their parameter types.
func (b *body) arguments(as []*ast.Argument, callee string, c ctx) ([]calls.Argument, *dataflow.Info) {
	out := make([]calls.Argument, len(as))
	info := c.info
	for i, a := range as {
		if lit, labels, ok := lambdaArgument(a.Value, callee); ok {
			out[i] = calls.Argument{Name: a.Name, Node: a.Value, Lambda: b.lambdaArg(a.Value, lit, labels, c.at(info))}
			continue
		}
		t, after := b.expr(a.Value, c.at(info).value(nil))
		info = after
		out[i] = calls.Argument{Name: a.Name, Type: t, Node: a.Value}
	}
	return out, info
}

// lambdaArgument unwraps a function literal argument and the labels its
// returns may name: its own label, or the callee's name.
func lambdaArgument(e ast.Expression, callee string) (*ast.FunctionLiteral, []string, bool) {
	switch e := e.(type) {
	case *ast.FunctionLiteral:
		if callee == "" {
			return e, nil, true
		}
		return e, []string{callee}, true
	case *ast.LabeledExpr:
		if lit, ok := e.Body.(*ast.FunctionLiteral); ok {
			return lit, []string{e.Label}, true
		}
	}
	return nil, nil, false
}

func (b *body) lambdaArg(arg ast.Expression, lit *ast.FunctionLiteral, labels []string, c ctx) *calls.Lambda {
	params := make([]*types.Type, len(lit.Params))
	for i, p := range lit.Params {
		if p.Type != nil {
			params[i] = b.decls.ResolveType(p.Type, c.sc)
		}
	}
	return &calls.Lambda{
		Params: params,
		Type: func(ps []*types.Type, result *types.Type) *types.Type {
			t := b.lambda(lit, labels, c, ps, result)
			if arg != ast.Expression(lit) {
				note(b.store, binding.ExpressionType, ast.Node(arg), t)
			}
			return t
		},
	}
}

// typeLambdas types the function literal arguments resolution did not get
// to, so that their bodies are checked too.
func (b *body) typeLambdas(args []calls.Argument) {
	for _, a := range args {
		if a.Lambda == nil {
			continue
		}
		if lit, _, ok := lambdaArgument(a.Node.(ast.Expression), ""); ok && !b.lambdas[lit] {
			ps := make([]*types.Type, len(lit.Params))
			for i := range ps {
				ps[i] = types.ErrorType()
			}
			a.Lambda.Type(ps, nil)
		}
	}
}

// lambda types a function literal against the parameter types (nil entries
// are unknown) and result (nil when inferred) its context expects, and
// returns the literal's function type.
func (b *body) lambda(lit *ast.FunctionLiteral, labels []string, c ctx, params []*types.Type, result *types.Type) *types.Type {
	if b.lambdas[lit] {
		t, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(lit))
		return t
	}
	b.lambdas[lit] = true

	id := b.table.Add(&types.Descriptor{
		Kind:  types.KindFunction,
		Name:  "<anonymous>",
		Owner: b.from,
		Loc:   lit.Loc(),
		Decl:  lit,
		Func:  &types.FuncInfo{Local: true},
	})
	binding.MustRecord(b.store, binding.Declaration, ast.Node(lit), id)
	sc := table.NewScope(c.sc, table.ScopeLambda, id)
	if len(labels) > 0 {
		sc.Label = labels[0]
	}

	var ids []types.ID
	var pts []*types.Type
	declare := func(name string, decl ast.Node, loc *source.Location, t *types.Type) {
		pid := b.table.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  name,
			Owner: id,
			Loc:   loc,
			Decl:  decl,
			Var:   &types.VarInfo{Storage: types.StorageParameter, Type: t, Index: len(ids)},
		})
		if decl != nil {
			binding.MustRecord(b.store, binding.Declaration, decl, pid)
		}
		if err := sc.DeclareVar(name, pid); err != nil {
			b.report(diagnostics.Redeclaration(loc, nil, name))
		}
		ids = append(ids, pid)
		pts = append(pts, t)
	}
	for i, p := range lit.Params {
		var t *types.Type
		switch {
		case p.Type != nil:
			t = b.decls.ResolveType(p.Type, c.sc)
		case i < len(params):
			t = params[i]
		}
		if t == nil {
			b.report(diagnostics.NewError("cannot infer a type for parameter '"+p.Name.Name+"'").
				WithCode(diagnostics.ErrUnresolvedType).
				WithPrimaryLabel(p.Loc(), "specify it explicitly"))
			t = types.ErrorType()
		}
		declare(p.Name.Name, p, p.Loc(), t)
	}
	if len(lit.Params) == 0 && len(params) == 1 {
		t := params[0]
		if t == nil {
			t = types.ErrorType()
		}
		declare("it", nil, lit.Loc(), t)
	}

	saved := b.from
	b.from = id
	f := b.push(lit, labels, false, result)
	var t *types.Type
	if lit.Body != nil {
		t, _ = b.statements(lit.Body.Stmts, ctx{sc: sc, info: c.info, expected: result})
	}
	b.pop()
	b.from = saved

	res := result
	if res == nil {
		ts := f.returned
		if t != nil {
			ts = append([]*types.Type{t}, ts...)
		}
		if res = b.checker.CommonSupertype(ts); res == nil {
			res = b.builtins.UnitType
		}
	}
	b.table.Update(id, func(d *types.Descriptor) {
		d.Func.Params = ids
		d.Func.Result = res
	})
	ft := types.FunctionType(nil, pts, res)
	note(b.store, binding.ExpressionType, ast.Node(lit), ft)
	return ft
}

// literalExpr types a function literal outside of a call argument, taking
// its parameter types from the expected function type.
func (b *body) literalExpr(lit *ast.FunctionLiteral, c ctx, labels []string) *types.Type {
	if labels == nil {
		labels = b.labels[ast.Expression(lit)]
	}
	var params []*types.Type
	var result *types.Type
	if exp := c.expected; exp != nil && exp.IsFunction() {
		_, params, result = types.FunctionParts(types.MakeNotNull(exp))
	}
	return b.lambda(lit, labels, c, params, result)
}

// recordImplicit records which enclosing receiver an implicit member or
// extension call goes through.
func (b *body) recordImplicit(n ast.Node, cand calls.Candidate, sc *table.Scope) {
	for _, s := range sc.Receivers() {
		r := types.MakeNotNull(s.Receiver)
		if r == cand.Receiver || r == cand.Extension || s.Receiver == cand.Receiver || s.Receiver == cand.Extension {
			note(b.store, ImplicitReceiver, n, s.Owner)
			return
		}
	}
}

// checkInstantiation rejects constructor calls of abstract classes.
func (b *body) checkInstantiation(n *ast.CallExpr, call *calls.Call) {
	if call.ID == types.NoID {
		return
	}
	d := b.table.Get(call.ID)
	if d.Kind != types.KindConstructor {
		return
	}
	if cls := b.table.Get(d.Owner); cls.Modality == types.Abstract {
		b.report(diagnostics.NewError("cannot create an instance of an abstract class").
			WithCode(diagnostics.ErrAbstractInstantiation).
			WithPrimaryLabel(n.Loc(), cls.Name+" is abstract"))
	}
}

// unresolvedCall explains why a call by name found no candidate.
func (b *body) unresolvedCall(callee *ast.NameExpr, recv *receiver, c ctx) {
	if recv == nil {
		if v, ok := b.lookupVariable(callee.Name, c.sc); ok {
			b.notCallable(callee.Loc(), "'"+callee.Name+"'", v.typ)
			return
		}
		if id, ok := c.sc.LookupClassifier(callee.Name); ok && b.table.Get(id).IsTrait() {
			b.report(diagnostics.NewError("trait "+callee.Name+" does not have constructors").
				WithCode(diagnostics.ErrAbstractInstantiation).
				WithPrimaryLabel(callee.Loc(), "traits cannot be instantiated"))
			return
		}
	}
	b.report(diagnostics.UnresolvedReference(callee.Loc(), callee.Name))
}

func (b *body) notCallable(loc *source.Location, what string, t *types.Type) {
	msg := what + " cannot be invoked as a function"
	if t != nil {
		msg = what + " of type " + t.String() + " cannot be invoked as a function"
	}
	b.report(diagnostics.NewError(msg).
		WithCode(diagnostics.ErrNotCallable).
		WithPrimaryLabel(loc, "not a function"))
}

// superCall resolves the superclass constructor call of a supertype entry.
func (b *body) superCall(class types.ID, s *ast.SuperEntry, sc *table.Scope) {
	t := b.decls.ResolveType(s.Type, sc)
	if t == nil || !t.IsClass() {
		return
	}
	sup := b.table.Get(t.Decl())
	cls := b.table.Get(class)
	if sup.IsTrait() {
		if s.Call {
			b.report(diagnostics.NewError("trait "+sup.Name+" does not have constructors").
				WithCode(diagnostics.ErrNotCallable).
				WithPrimaryLabel(s.Loc(), "remove the argument list"))
		}
		return
	}
	if !s.Call {
		if !cls.IsTrait() && len(sup.Class.Ctors) > 0 {
			b.report(diagnostics.NewError("this type has a constructor, and thus must be initialized here").
				WithCode(diagnostics.ErrNoValueForParameter).
				WithPrimaryLabel(s.Loc(), "add an argument list"))
		}
		return
	}
	typeArgs := make([]*types.Type, 0, len(t.Args()))
	for _, a := range t.Args() {
		typeArgs = append(typeArgs, a.Type)
	}
	c := ctx{sc: sc, info: dataflow.Empty()}
	args, _ := b.arguments(s.Args, "", c)
	b.calls.Resolve(&calls.Request{
		Name:     sup.Name,
		Node:     s,
		Loc:      s.Loc(),
		From:     b.from,
		Levels:   [][]calls.Candidate{b.calls.Constructors(t.Decl())},
		TypeArgs: typeArgs,
		Args:     args,
	})
	b.typeLambdas(args)
}

// enumEntry resolves the enum constructor call an entry makes.
func (b *body) enumEntry(enum types.ID, e *ast.EnumEntry, sc *table.Scope) {
	eid, ok := binding.Get(b.store, binding.Declaration, ast.Node(e))
	if !ok {
		return
	}
	saved := b.from
	b.from = eid
	defer func() { b.from = saved }()
	args, _ := b.arguments(e.Args, "", ctx{sc: sc, info: dataflow.Empty()})
	b.calls.Resolve(&calls.Request{
		Name:   b.table.Get(enum).Name,
		Node:   e,
		Loc:    e.Loc(),
		From:   eid,
		Levels: [][]calls.Candidate{b.calls.Constructors(enum)},
		Args:   args,
	})
	b.typeLambdas(args)
}

// index types `x[i]` as a call of get.
func (b *body) index(n *ast.IndexExpr, c ctx) (*types.Type, *dataflow.Info) {
	xt, info := b.expr(n.X, c.value(nil))
	args, info := b.indexArgs(n.Indices, c.at(info))
	if xt.IsError() {
		return types.ErrorType(), info
	}
	b.requireNotNull(n.X.Loc(), xt)
	call := b.operator("get", xt, args, n.Loc(), c.at(info))
	if call == nil {
		return types.ErrorType(), info
	}
	binding.MustRecord(b.store, calls.ResolvedCall, ast.Node(n), call)
	return call.Result, info
}

func (b *body) indexArgs(indices []ast.Expression, c ctx) ([]calls.Argument, *dataflow.Info) {
	info := c.info
	args := make([]calls.Argument, len(indices))
	for i, ix := range indices {
		t, after := b.expr(ix, c.at(info).value(nil))
		info = after
		args[i] = calls.Argument{Type: t, Node: ix}
	}
	return args, info
}

// requireNotNull reports an operator applied to a nullable operand.
func (b *body) requireNotNull(loc *source.Location, t *types.Type) {
	if t.Nullable() {
		b.report(diagnostics.NewError("operator call on a nullable receiver of type "+t.String()).
			WithCode(diagnostics.ErrUnsafeCall).
			WithPrimaryLabel(loc, "this can be null"))
	}
}

// operator resolves a call of the operator member name on recv. It returns
// nil when no member is named so; other failures are reported.
func (b *body) operator(name string, recv *types.Type, args []calls.Argument, loc *source.Location, c ctx) *calls.Call {
	levels := b.calls.MemberLevels(c.sc, types.MakeNotNull(recv), name)
	if len(levels) == 0 {
		b.report(diagnostics.NewError("unresolved operator '"+name+"' on "+recv.String()).
			WithCode(diagnostics.ErrInvalidOperator).
			WithPrimaryLabel(loc, "no member '"+name+"' applies"))
		return nil
	}
	call, _ := b.calls.Resolve(&calls.Request{Name: name, Loc: loc, From: b.from, Levels: levels, Args: args})
	if call != nil && call.Result == nil {
		call.Result = types.ErrorType()
	}
	return call
}

// tuple types `#(a, b, ...)`.
func (b *body) tuple(n *ast.TupleExpr, c ctx) (*types.Type, *dataflow.Info) {
	info := c.info
	elems := make([]*types.Type, len(n.Elems))
	for i, e := range n.Elems {
		elems[i], info = b.expr(e, c.at(info).value(nil))
	}
	return types.TupleType(elems), info
}
