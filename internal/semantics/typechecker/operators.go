package typechecker

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/consteval"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/source"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// literal types a constant. Integer literals are Int unless the context
// expects a Long, or a Short or Byte the value fits.
func (b *body) literal(n *ast.Literal, c ctx) *types.Type {
	v, err := consteval.ParseLiteral(n)
	if err != nil {
		b.report(diagnostics.NewError(err.Error()).
			WithCode(diagnostics.ErrTypeMismatch).
			WithPrimaryLabel(n.Loc(), "invalid literal"))
		return types.ErrorType()
	}
	bi := b.builtins
	switch v.Kind {
	case consteval.ConstInt:
		return b.intLiteral(v, c.expected)
	case consteval.ConstLong:
		return bi.LongType
	case consteval.ConstDouble:
		if n.Kind == ast.FLOAT {
			return bi.FloatType
		}
		return bi.DoubleType
	case consteval.ConstBool:
		return bi.BooleanType
	case consteval.ConstChar:
		return bi.CharType
	case consteval.ConstString:
		return bi.StringType
	case consteval.ConstNull:
		return bi.NullType
	}
	return types.ErrorType()
}

func (b *body) intLiteral(v *consteval.ConstValue, expected *types.Type) *types.Type {
	bi := b.builtins
	if expected == nil || !expected.IsClass() {
		return bi.IntType
	}
	x, _ := v.AsInt64()
	switch expected.Decl() {
	case bi.Long:
		return bi.LongType
	case bi.Short:
		if x >= -1<<15 && x < 1<<15 {
			return bi.ShortType
		}
	case bi.Byte:
		if x >= -1<<7 && x < 1<<7 {
			return bi.ByteType
		}
	}
	return bi.IntType
}

// rank is the numeric rank of a non-null primitive number, 0 otherwise.
func (b *body) rank(t *types.Type) int {
	if t == nil || t.Nullable() {
		return 0
	}
	return b.table.NumericRank(t)
}

func (b *body) isChar(t *types.Type) bool {
	return t != nil && types.IsClassType(t, b.builtins.Char) && !t.Nullable()
}

// promoted is the type of arithmetic on operands of the given ranks: the
// wider operand, at least Int.
func (b *body) promoted(ranks ...int) *types.Type {
	r := 3
	for _, x := range ranks {
		if x > r {
			r = x
		}
	}
	bi := b.builtins
	switch r {
	case 4:
		return bi.LongType
	case 5:
		return bi.FloatType
	case 6:
		return bi.DoubleType
	}
	return bi.IntType
}

// binary types a binary operator expression.
func (b *body) binary(n *ast.BinaryExpr, c ctx) (*types.Type, *dataflow.Info) {
	op := n.Op.Kind
	switch {
	case op == tokens.AND_TOKEN || op == tokens.OR_TOKEN:
		lt, lf := b.condition(n.X, c)
		if op == tokens.AND_TOKEN {
			rt, rf := b.condition(n.Y, c.at(lt))
			return b.builtins.BooleanType, lf.Or(rt.Or(rf))
		}
		rt, rf := b.condition(n.Y, c.at(lf))
		return b.builtins.BooleanType, lt.Or(rt.Or(rf))
	case op == tokens.ELVIS_TOKEN:
		return b.elvis(n, c)
	case tokens.IsEquality(op):
		_, info := b.expr(n.X, c.value(nil))
		_, info = b.expr(n.Y, c.at(info).value(nil))
		return b.builtins.BooleanType, info
	}
	xt, info := b.expr(n.X, c.value(nil))
	yt, info := b.expr(n.Y, c.at(info).value(nil))
	return b.operatorType(n, op, n.X, xt, n.Y, yt, opLoc(&n.Op, n), c.at(info)), info
}

// operatorType types `x op y` for arithmetic, comparison and range
// operators. Primitive numbers, chars and string concatenation are built
// in; anything else calls the operator member and is recorded on node.
func (b *body) operatorType(node ast.Node, op tokens.TOKEN, x ast.Expression, xt *types.Type, y ast.Expression, yt *types.Type, loc *source.Location, c ctx) *types.Type {
	if xt.IsError() || yt.IsError() {
		return types.ErrorType()
	}
	bi := b.builtins
	if op == tokens.PLUS_TOKEN && types.IsClassType(xt, bi.String) && !xt.Nullable() {
		return bi.StringType
	}
	xr, yr := b.rank(xt), b.rank(yt)
	if xr > 0 && yr > 0 {
		switch {
		case tokens.IsArithmetic(op):
			return b.promoted(xr, yr)
		case tokens.IsComparison(op):
			return bi.BooleanType
		}
	}
	if b.isChar(xt) {
		switch {
		case tokens.IsComparison(op) && b.isChar(yt):
			return bi.BooleanType
		case op == tokens.MINUS_TOKEN && b.isChar(yt):
			return bi.IntType
		case (op == tokens.PLUS_TOKEN || op == tokens.MINUS_TOKEN) && yr > 0 && yr <= 3:
			return bi.CharType
		}
	}

	name := tokens.OperatorName(op)
	if name == "" {
		b.invalidOperator(loc, op, xt, yt)
		return types.ErrorType()
	}
	b.requireNotNull(x.Loc(), xt)
	call := b.operator(name, xt, []calls.Argument{{Type: yt, Node: y}}, loc, c)
	if call == nil {
		return types.ErrorType()
	}
	binding.MustRecord(b.store, OperatorCall, node, call)
	if tokens.IsComparison(op) {
		if !types.IsClassType(call.Result, bi.Int) {
			b.report(diagnostics.NewError("compareTo must return Int, found "+call.Result.String()).
				WithCode(diagnostics.ErrInvalidOperator).
				WithPrimaryLabel(loc, "cannot compare"))
		}
		return bi.BooleanType
	}
	return call.Result
}

func (b *body) invalidOperator(loc *source.Location, op tokens.TOKEN, xt, yt *types.Type) {
	b.report(diagnostics.NewError("operator '"+string(op)+"' cannot be applied to "+xt.String()+" and "+yt.String()).
		WithCode(diagnostics.ErrInvalidOperator).
		WithPrimaryLabel(loc, "invalid operands"))
}

// elvis types `x ?: y`. When y cannot complete normally, x is known to be
// non-null afterwards.
func (b *body) elvis(n *ast.BinaryExpr, c ctx) (*types.Type, *dataflow.Info) {
	xt, info := b.expr(n.X, c.value(nil))
	yt, _ := b.expr(n.Y, c.at(info).value(nil))
	if xt.IsError() || yt.IsError() {
		return types.ErrorType(), info
	}
	if b.isNothing(yt) {
		static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.X))
		info = info.DisequateFromNull(b.df.ValueOf(n.X, static))
	}
	t := b.checker.CommonSupertype([]*types.Type{types.MakeNotNull(xt), yt})
	if t == nil {
		t = types.MakeNotNull(xt)
	}
	return t, info
}

// unary types a prefix operator expression.
func (b *body) unary(n *ast.UnaryExpr, c ctx) (*types.Type, *dataflow.Info) {
	op := n.Op.Kind
	switch op {
	case tokens.PLUS_PLUS_TOKEN, tokens.MINUS_MINUS_TOKEN:
		return b.increment(n, n.X, op, c)
	case tokens.NOT_TOKEN:
		t, info := b.expr(n.X, c.value(nil))
		if t.IsError() || b.isBoolean(t) {
			return b.builtins.BooleanType, info
		}
		return b.unaryOperator(n, "not", t, c.at(info)), info
	case tokens.MINUS_TOKEN, tokens.PLUS_TOKEN:
		var exp *types.Type
		if _, lit := n.X.(*ast.Literal); lit && c.expected != nil && b.rank(types.MakeNotNull(c.expected)) > 0 {
			exp = types.MakeNotNull(c.expected)
		}
		t, info := b.expr(n.X, c.value(exp))
		if t.IsError() {
			return t, info
		}
		if r := b.rank(t); r > 0 {
			if exp != nil && r < 3 {
				return t, info
			}
			return b.promoted(r), info
		}
		name := "unaryMinus"
		if op == tokens.PLUS_TOKEN {
			name = "unaryPlus"
		}
		return b.unaryOperator(n, name, t, c.at(info)), info
	}
	b.report(diagnostics.NewError("unsupported prefix operator '"+string(op)+"'").
		WithCode(diagnostics.ErrInvalidOperator).
		WithPrimaryLabel(n.Loc(), "here"))
	return types.ErrorType(), c.info
}

func (b *body) unaryOperator(n ast.Expression, name string, t *types.Type, c ctx) *types.Type {
	b.requireNotNull(n.Loc(), t)
	call := b.operator(name, t, nil, n.Loc(), c)
	if call == nil {
		return types.ErrorType()
	}
	binding.MustRecord(b.store, OperatorCall, ast.Node(n), call)
	return call.Result
}

// postfix types `x!!`, `x++` and `x--`.
func (b *body) postfix(n *ast.PostfixExpr, c ctx) (*types.Type, *dataflow.Info) {
	if n.Op.Kind != tokens.NOT_NULL_TOKEN {
		return b.increment(n, n.X, n.Op.Kind, c)
	}
	t, info := b.expr(n.X, c.value(nil))
	if t.IsError() {
		return t, info
	}
	if !t.Nullable() {
		b.report(diagnostics.NewWarning("unnecessary non-null assertion (!!) on a non-null receiver of type "+t.String()).
			WithCode(diagnostics.WarnUnnecessaryNotNull).
			WithPrimaryLabel(opLoc(&n.Op, n), "never null here"))
	}
	static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.X))
	info = info.DisequateFromNull(b.df.ValueOf(n.X, static))
	return types.MakeNotNull(t), info
}

// increment types ++ and -- in either position. The value has the type of
// the operand; writing back an indexed operand calls set.
func (b *body) increment(n ast.Expression, x ast.Expression, op tokens.TOKEN, c ctx) (*types.Type, *dataflow.Info) {
	t, info := b.expr(x, c.value(nil))
	if t.IsError() {
		return t, info
	}
	if !b.assignable(x) {
		b.notAssignable(x)
		return t, info
	}
	if b.rank(t) == 0 && !b.isChar(t) {
		b.requireNotNull(x.Loc(), t)
		call := b.operator(tokens.OperatorName(op), t, nil, n.Loc(), c.at(info))
		if call == nil {
			return types.ErrorType(), info
		}
		binding.MustRecord(b.store, OperatorCall, ast.Node(n), call)
		static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(x))
		b.conform(n.Loc(), call.Result, static)
	}
	if ix, ok := x.(*ast.IndexExpr); ok {
		b.indexWrite(n, ix, t, c.at(info))
	}
	return t, info
}

// indexWrite resolves the set call storing value into ix and records it on
// node.
func (b *body) indexWrite(node ast.Expression, ix *ast.IndexExpr, value *types.Type, c ctx) {
	recv, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(ix.X))
	if recv == nil || recv.IsError() {
		return
	}
	args := make([]calls.Argument, 0, len(ix.Indices)+1)
	for _, i := range ix.Indices {
		t, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(i))
		args = append(args, calls.Argument{Type: t, Node: i})
	}
	args = append(args, calls.Argument{Type: value, Node: node})
	if set := b.operator("set", recv, args, node.Loc(), c); set != nil {
		binding.MustRecord(b.store, calls.ResolvedCall, ast.Node(node), set)
	}
}

// assignable reports expressions that denote a variable: names and member
// properties, or an indexed element. Whether the variable may be written
// again is a control-flow question.
func (b *body) assignable(e ast.Expression) bool {
	var ref ast.Node
	switch e := e.(type) {
	case *ast.NameExpr:
		ref = e
	case *ast.QualifiedExpr:
		sel, ok := e.Selector.(*ast.NameExpr)
		if !ok {
			return false
		}
		ref = sel
	case *ast.IndexExpr:
		return true
	default:
		return false
	}
	id, ok := binding.Get(b.store, binding.Reference, ref)
	return ok && b.table.Get(id).Kind == types.KindVariable
}

func (b *body) notAssignable(e ast.Expression) {
	b.report(diagnostics.NewError("variable expected").
		WithCode(diagnostics.ErrAssignToNonVariable).
		WithPrimaryLabel(e.Loc(), "cannot be assigned"))
}

// assign types plain and compound assignments. Assignments are not
// expressions: their type is Unit.
func (b *body) assign(n *ast.AssignExpr, c ctx) (*types.Type, *dataflow.Info) {
	unit := b.builtins.UnitType
	base, compound := tokens.BaseOperator(n.Op.Kind)
	if ix, ok := n.Target.(*ast.IndexExpr); ok {
		return unit, b.assignIndex(n, ix, base, compound, c)
	}
	if compound {
		t, info := b.expr(n.Target, c.value(nil))
		if !t.IsError() && !b.assignable(n.Target) {
			b.notAssignable(n.Target)
		}
		vt, info := b.expr(n.Value, c.at(info).value(nil))
		rt := b.operatorType(n, base, n.Target, t, n.Value, vt, opLoc(&n.Op, n), c.at(info))
		static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.Target))
		b.conform(n.Loc(), rt, static)
		return unit, info
	}
	tt, info, ok := b.target(n.Target, c)
	_, info = b.expr(n.Value, c.at(info).value(tt))
	if ok {
		vs, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.Value))
		info = info.Assign(b.df.ValueOf(n.Target, tt), b.df.ValueOf(n.Value, vs))
	}
	return unit, info
}

// target resolves the left side of a plain assignment and returns the
// declared type of the variable written.
func (b *body) target(e ast.Expression, c ctx) (*types.Type, *dataflow.Info, bool) {
	switch t := e.(type) {
	case *ast.NameExpr:
		v, ok := b.lookupVariable(t.Name, c.sc)
		if !ok {
			if vt, _ := b.name(t, c); !vt.IsError() {
				b.notAssignable(t)
			}
			return nil, c.info, false
		}
		binding.MustRecord(b.store, binding.Reference, ast.Node(t), v.id)
		if v.receiver != nil {
			note(b.store, ImplicitReceiver, ast.Node(t), v.receiver.Owner)
		}
		b.checkVisible(v.id, t.Loc())
		note(b.store, binding.ExpressionType, ast.Node(t), v.typ)
		return v.typ, c.info, true
	case *ast.QualifiedExpr:
		if sel, ok := t.Selector.(*ast.NameExpr); ok {
			rt, info := b.qualified(t, c.value(nil))
			if rt.IsError() {
				return nil, info, false
			}
			if !b.assignable(t) {
				b.notAssignable(t)
				return nil, info, false
			}
			st, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(sel))
			return st, info, true
		}
	}
	if t, _ := b.expr(e, c.value(nil)); !t.IsError() {
		b.notAssignable(e)
	}
	return nil, c.info, false
}

// assignIndex types `x[i] = v` and `x[i] op= v` as get and set calls.
func (b *body) assignIndex(n *ast.AssignExpr, ix *ast.IndexExpr, base tokens.TOKEN, compound bool, c ctx) *dataflow.Info {
	xt, info := b.expr(ix.X, c.value(nil))
	args, info := b.indexArgs(ix.Indices, c.at(info))
	if xt.IsError() {
		_, info = b.expr(n.Value, c.at(info).value(nil))
		return info
	}
	b.requireNotNull(ix.X.Loc(), xt)
	var vt *types.Type
	if compound {
		get := b.operator("get", xt, args, ix.Loc(), c.at(info))
		vt, info = b.expr(n.Value, c.at(info).value(nil))
		if get == nil {
			return info
		}
		binding.MustRecord(b.store, calls.ResolvedCall, ast.Node(ix), get)
		note(b.store, binding.ExpressionType, ast.Node(ix), get.Result)
		vt = b.operatorType(n, base, ix, get.Result, n.Value, vt, opLoc(&n.Op, n), c.at(info))
	} else {
		vt, info = b.expr(n.Value, c.at(info).value(nil))
	}
	if vt.IsError() {
		return info
	}
	set := b.operator("set", xt, append(args, calls.Argument{Type: vt, Node: n.Value}), n.Loc(), c.at(info))
	if set != nil {
		binding.MustRecord(b.store, calls.ResolvedCall, ast.Node(n), set)
	}
	return info
}

// isExpr types `x is T`.
func (b *body) isExpr(n *ast.IsExpr, c ctx) (*types.Type, *dataflow.Info) {
	_, info := b.expr(n.X, c.value(nil))
	t := b.decls.ResolveType(n.Type, c.sc)
	static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.X))
	b.checkIsCompatible(n.Loc(), static, t)
	return b.builtins.BooleanType, info
}

// checkIsCompatible rejects type checks that can never succeed: between two
// classes neither of which extends the other, unless a subclass of one may
// still implement the other trait.
func (b *body) checkIsCompatible(loc *source.Location, x, t *types.Type) {
	if x == nil || t == nil || x.IsError() || t.IsError() || !x.IsClass() || !t.IsClass() {
		return
	}
	bi := b.builtins
	xd, td := x.Decl(), t.Decl()
	for _, id := range []types.ID{xd, td} {
		if id == bi.Any || id == bi.Nothing {
			return
		}
	}
	if b.table.IsSubclassOf(xd, td) || b.table.IsSubclassOf(td, xd) {
		return
	}
	xc, tc := b.table.Get(xd), b.table.Get(td)
	if (xc.IsTrait() && !tc.IsFinal()) || (tc.IsTrait() && !xc.IsFinal()) {
		return
	}
	b.report(diagnostics.NewError("incompatible types: "+t.String()+" and "+x.String()).
		WithCode(diagnostics.ErrIncompatibleIsCheck).
		WithPrimaryLabel(loc, "this check can never succeed"))
}

// cast types `x as T` and `x as? T`. After an unsafe cast x is known to be
// a T.
func (b *body) cast(n *ast.CastExpr, c ctx) (*types.Type, *dataflow.Info) {
	xt, info := b.expr(n.X, c.value(nil))
	t := b.decls.ResolveType(n.Type, c.sc)
	if t == nil || t.IsError() {
		return types.ErrorType(), info
	}
	if !xt.IsError() && b.checker.IsSubtypeOf(xt, t) {
		b.report(diagnostics.NewWarning("no cast needed").
			WithCode(diagnostics.WarnUselessCast).
			WithPrimaryLabel(n.Loc(), xt.String()+" is already a "+t.String()))
	}
	if n.Safe {
		return types.MakeNullable(t), info
	}
	static, _ := binding.Get(b.store, binding.ExpressionType, ast.Node(n.X))
	return t, info.EstablishSubtyping(b.df.ValueOf(n.X, static), t)
}

// opLoc is where an operator is written, or the whole expression for trees
// without operator positions.
func opLoc(op *tokens.Token, n ast.Node) *source.Location {
	if op.Location.IsValid() {
		return &op.Location
	}
	return n.Loc()
}
