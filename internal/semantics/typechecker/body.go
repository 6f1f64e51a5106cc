package typechecker

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/semantics/table"
	"jetc/internal/source"
	"jetc/internal/types"
)

// ctx is what an expression is typed in: its scope, the data flow
// information holding before it and the type the context expects.
type ctx struct {
	sc        *table.Scope
	info      *dataflow.Info
	expected  *types.Type // nil when the context accepts anything
	statement bool        // the value is discarded
}

// value returns a context that uses the expression's value.
func (c ctx) value(expected *types.Type) ctx {
	c.expected = expected
	c.statement = false
	return c
}

// discard returns a context that ignores the expression's value.
func (c ctx) discard() ctx {
	c.expected = nil
	c.statement = true
	return c
}

func (c ctx) at(info *dataflow.Info) ctx {
	c.info = info
	return c
}

func (c ctx) in(sc *table.Scope) ctx {
	c.sc = sc
	return c
}

// body types one declaration's code: a function body, an initializer or an
// accessor, with the function literals nested in it.
type body struct {
	*Checker
	df     *dataflow.Analyzer
	from   types.ID // innermost declaration containing the code
	frames []*frame
	labels map[ast.Expression][]string // labels of labelled literals and loops
}

// frame is a subroutine `return` may leave.
type frame struct {
	owner    ast.Node
	labels   []string
	named    bool        // target of unlabelled returns
	result   *types.Type // nil while the result is inferred
	returned []*types.Type
}

func (c *Checker) newBody(from types.ID) *body {
	return &body{
		Checker: c,
		df:      dataflow.New(c.checker, c.store, c.table.PackageOf(from)),
		from:    from,
		labels:  make(map[ast.Expression][]string),
	}
}

func (b *body) push(owner ast.Node, labels []string, named bool, result *types.Type) *frame {
	f := &frame{owner: owner, labels: labels, named: named, result: result}
	b.frames = append(b.frames, f)
	return f
}

func (b *body) pop() { b.frames = b.frames[:len(b.frames)-1] }

func (b *body) report(d *diagnostics.Diagnostic) { b.store.Report(d) }

// note records v unless the node already has a value in sl.
func note[V any](s *binding.Store, sl *binding.Slice[V], n ast.Node, v V) {
	if !binding.Has(s, sl, n) {
		binding.MustRecord(s, sl, n, v)
	}
}

func (b *body) isNothing(t *types.Type) bool {
	return t != nil && types.IsClassType(t, b.builtins.Nothing) && !t.Nullable()
}

func (b *body) isUnit(t *types.Type) bool {
	return t != nil && types.IsClassType(t, b.builtins.Unit) && !t.Nullable()
}

func (b *body) isBoolean(t *types.Type) bool {
	return t != nil && types.IsClassType(t, b.builtins.Boolean) && !t.Nullable()
}

// expr types e in c and returns its type and the information holding after
// it. The returned type is the smart cast type where one applies.
func (b *body) expr(e ast.Expression, c ctx) (*types.Type, *dataflow.Info) {
	t, info := b.typeOf(e, c)
	if t == nil {
		t = types.ErrorType()
	}
	if info == nil {
		info = c.info
	}
	note(b.store, binding.ExpressionType, ast.Node(e), t)
	if c.expected != nil {
		note(b.store, binding.ExpectedType, ast.Node(e), c.expected)
		if !propagatesExpected(e) {
			b.conform(e.Loc(), t, c.expected)
		}
	}
	if c.statement {
		note(b.store, binding.Statement, ast.Node(e), true)
	}
	return t, info
}

// propagatesExpected reports expressions that hand their expected type to
// the subexpressions producing their value, which check it themselves.
func propagatesExpected(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Block, *ast.IfExpr, *ast.WhenExpr, *ast.TryExpr, *ast.LabeledExpr:
		return true
	}
	return false
}

// conform reports a type mismatch unless t is a subtype of expected.
func (b *body) conform(loc *source.Location, t, expected *types.Type) bool {
	if t == nil || expected == nil || t.IsError() || expected.IsError() {
		return true
	}
	if b.checker.IsSubtypeOf(t, expected) {
		return true
	}
	b.report(diagnostics.TypeMismatch(loc, expected.String(), t.String()))
	return false
}

func (b *body) typeOf(e ast.Expression, c ctx) (*types.Type, *dataflow.Info) {
	switch n := e.(type) {
	case *ast.Literal:
		return b.literal(n, c), c.info
	case *ast.NameExpr:
		return b.name(n, c)
	case *ast.ThisExpr:
		return b.this(n, c), c.info
	case *ast.BinaryExpr:
		return b.binary(n, c)
	case *ast.UnaryExpr:
		return b.unary(n, c)
	case *ast.PostfixExpr:
		return b.postfix(n, c)
	case *ast.AssignExpr:
		return b.assign(n, c)
	case *ast.IsExpr:
		return b.isExpr(n, c)
	case *ast.CastExpr:
		return b.cast(n, c)
	case *ast.CallExpr:
		return b.call(n, c, nil)
	case *ast.QualifiedExpr:
		return b.qualified(n, c)
	case *ast.IndexExpr:
		return b.index(n, c)
	case *ast.TupleExpr:
		return b.tuple(n, c)
	case *ast.FunctionLiteral:
		return b.literalExpr(n, c, nil), c.info
	case *ast.ObjectLiteral:
		return b.objectLiteral(n, c), c.info
	case *ast.Block:
		return b.block(n, c)
	case *ast.IfExpr:
		return b.ifExpr(n, c)
	case *ast.WhenExpr:
		return b.when(n, c)
	case *ast.WhileExpr:
		return b.while(n, c)
	case *ast.DoWhileExpr:
		return b.doWhile(n, c)
	case *ast.ForExpr:
		return b.forLoop(n, c)
	case *ast.LabeledExpr:
		return b.labeled(n, c)
	case *ast.BreakExpr, *ast.ContinueExpr:
		return b.builtins.NothingType, c.info
	case *ast.ReturnExpr:
		return b.ret(n, c)
	case *ast.ThrowExpr:
		return b.throw(n, c)
	case *ast.TryExpr:
		return b.try(n, c)
	}
	b.report(diagnostics.NewError("unsupported expression").
		WithCode(diagnostics.ErrUnsupported).
		WithPrimaryLabel(e.Loc(), "this construct cannot be typed"))
	return types.ErrorType(), c.info
}

// condition types a condition that must be Boolean and returns the
// information for both outcomes.
func (b *body) condition(e ast.Expression, c ctx) (whenTrue, whenFalse *dataflow.Info) {
	t, info := b.expr(e, c.value(nil))
	if !t.IsError() && !b.isBoolean(t) && !b.isNothing(t) {
		b.report(diagnostics.NewError("condition must be of type Boolean").
			WithCode(diagnostics.ErrConditionNotBoolean).
			WithPrimaryLabel(e.Loc(), "found "+t.String()))
	}
	return b.df.Condition(e, info)
}

// subroutineBody types a function or accessor body. Expression bodies are
// typed against the result; block bodies return through `return`.
func (b *body) subroutineBody(e ast.Expression, exprBody bool, c ctx, result *types.Type) *types.Type {
	if exprBody {
		t, _ := b.expr(e, c.value(result))
		return t
	}
	if blk, ok := e.(*ast.Block); ok {
		b.block(blk, c.discard())
	} else {
		b.expr(e, c.discard())
	}
	return b.builtins.UnitType
}

// block types the statements of blk in a new scope. The last statement
// produces the block's value unless the value is discarded or Unit is
// expected.
func (b *body) block(blk *ast.Block, c ctx) (*types.Type, *dataflow.Info) {
	if blk == nil {
		return b.builtins.UnitType, c.info
	}
	sc := table.NewScope(c.sc, table.ScopeBlock, b.from)
	t, info := b.statements(blk.Stmts, c.in(sc))
	note(b.store, binding.ExpressionType, ast.Node(blk), t)
	return t, info
}

// statements types stmts in c.sc, which they may declare into.
func (b *body) statements(stmts []ast.Node, c ctx) (*types.Type, *dataflow.Info) {
	info := c.info
	result := b.builtins.UnitType
	jumped := false
	coerce := c.statement || b.isUnit(c.expected)
	for i, s := range stmts {
		last := i == len(stmts)-1
		switch s := s.(type) {
		case *ast.PropertyDecl:
			info = b.local(s, c.at(info))
		case *ast.FunDecl:
			b.localFunction(s, c.at(info))
		case *ast.ClassDecl:
			b.localClass(s, c.at(info))
		case ast.Expression:
			var t *types.Type
			if last && !coerce {
				t, info = b.expr(s, c.at(info).value(c.expected))
				result = t
			} else {
				t, info = b.expr(s, c.at(info).discard())
			}
			if b.isNothing(t) {
				jumped = true
			}
		}
		if last && !coerce {
			if _, ok := s.(ast.Expression); !ok && c.expected != nil {
				b.conform(s.Loc(), b.builtins.UnitType, c.expected)
			}
		}
	}
	if jumped {
		return b.builtins.NothingType, info
	}
	return result, info
}

// local declares a local variable after typing its initializer.
func (b *body) local(d *ast.PropertyDecl, c ctx) *dataflow.Info {
	var declared *types.Type
	if d.Type != nil {
		declared = b.decls.ResolveType(d.Type, c.sc)
	}
	t := declared
	info := c.info
	var init *types.Type
	if d.Init != nil {
		init, info = b.expr(d.Init, c.value(declared))
		if t == nil {
			t = init
		}
	}
	if t == nil {
		b.report(diagnostics.NewError("this variable must either have a type annotation or be initialized").
			WithCode(diagnostics.ErrUnresolvedType).
			WithPrimaryLabel(d.Name.Loc(), d.Name.Name))
		t = types.ErrorType()
	}
	id := b.table.Add(&types.Descriptor{
		Kind:  types.KindVariable,
		Name:  d.Name.Name,
		Owner: b.from,
		Loc:   d.Loc(),
		Decl:  d,
		Var:   &types.VarInfo{Mutable: d.Var, Storage: types.StorageLocal, Type: t},
	})
	binding.MustRecord(b.store, binding.Declaration, ast.Node(d), id)
	if err := c.sc.DeclareVar(d.Name.Name, id); err != nil {
		b.report(diagnostics.Redeclaration(d.Name.Loc(), nil, d.Name.Name))
	}
	if d.Init != nil && declared != nil {
		// the declared type may be wider than what the initializer proves
		info = info.Assign(b.df.VariableValue(id), b.df.ValueOf(d.Init, init))
	}
	return info
}

// declareParams declares value parameters into a body scope.
func (b *body) declareParams(sc *table.Scope, params []*ast.Param, ids []types.ID) {
	for i, p := range params {
		if i >= len(ids) {
			break
		}
		if err := sc.DeclareVar(p.Name.Name, ids[i]); err != nil {
			b.report(diagnostics.Redeclaration(p.Name.Loc(), nil, p.Name.Name))
		}
	}
}

// localFunction declares a function inside a body and types it right away.
func (b *body) localFunction(d *ast.FunDecl, c ctx) {
	id := b.decls.DeclareLocalFunction(d, b.from, c.sc)
	if b.decls.IsDeferred(id) {
		b.decls.InferType(id, b.Checker)
		return
	}
	b.typeFunction(id, d)
}

// localClass declares a class inside a body and types its members.
func (b *body) localClass(d *ast.ClassDecl, c ctx) types.ID {
	id := b.decls.DeclareLocalClass(d, b.from, c.sc)
	b.checkLocalClass(id, d)
	return id
}

// objectLiteral declares the anonymous class of an object literal. Its type
// is the anonymous class itself.
func (b *body) objectLiteral(n *ast.ObjectLiteral, c ctx) *types.Type {
	id := b.localClass(n.Decl, c)
	return b.table.DefaultType(id)
}
