package dataflow

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// Condition returns the information that holds after cond evaluated to
// true and to false, starting from info. cond must already be typed.
func (a *Analyzer) Condition(cond ast.Expression, info *Info) (whenTrue, whenFalse *Info) {
	switch c := cond.(type) {
	case *ast.BinaryExpr:
		switch c.Op.Kind {
		case tokens.AND_TOKEN:
			// the right operand only runs when the left one held
			lt, lf := a.Condition(c.X, info)
			rt, rf := a.Condition(c.Y, lt)
			return rt, lf.Or(rf)
		case tokens.OR_TOKEN:
			lt, lf := a.Condition(c.X, info)
			rt, rf := a.Condition(c.Y, lf)
			return lt.Or(rt), rf
		case tokens.DOUBLE_EQUAL_TOKEN:
			return a.equality(c, info)
		case tokens.NOT_EQUAL_TOKEN:
			t, f := a.equality(c, info)
			return f, t
		}
	case *ast.UnaryExpr:
		if c.Op.Kind == tokens.NOT_TOKEN {
			t, f := a.Condition(c.X, info)
			return f, t
		}
	case *ast.IsExpr:
		t, _ := binding.Get(a.store, binding.ResolvedType, ast.Node(c.Type))
		return a.IsCheck(a.value(c.X), t, c.Negated, info)
	}
	return info, info
}

func (a *Analyzer) value(e ast.Expression) Value {
	t, _ := binding.Get(a.store, binding.ExpressionType, ast.Node(e))
	return a.ValueOf(e, t)
}

// equality handles `x == y` where either side may be the null literal.
func (a *Analyzer) equality(c *ast.BinaryExpr, info *Info) (*Info, *Info) {
	x, y := a.value(c.X), a.value(c.Y)
	return a.Equality(x, y, info)
}

// Equality returns the facts for `x == y` being true and false.
func (a *Analyzer) Equality(x, y Value, info *Info) (*Info, *Info) {
	nx, ny := info.Nullability(x), info.Nullability(y)
	switch {
	case ny == Null:
		return info.EqualsToNull(x), info.DisequateFromNull(x)
	case nx == Null:
		return info.EqualsToNull(y), info.DisequateFromNull(y)
	}
	whenTrue := info.Equate(x, y)
	return whenTrue, info
}

// IsCheck returns the facts for `v is t` (or `v !is t` when negated)
// being true and false.
func (a *Analyzer) IsCheck(v Value, t *types.Type, negated bool, info *Info) (*Info, *Info) {
	if t == nil || t.IsError() {
		return info, info
	}
	whenTrue := info.EstablishSubtyping(v, t)
	whenFalse := info
	if t.Nullable() {
		// `x !is T?` means x is not null
		whenFalse = info.DisequateFromNull(v)
	}
	if negated {
		return whenFalse, whenTrue
	}
	return whenTrue, whenFalse
}

// SmartCastType returns the type a stable value can be used at on this path
// when it is more specific than its static type.
func (a *Analyzer) SmartCastType(v Value, info *Info) (*types.Type, bool) {
	if !v.Trackable() || v.Type == nil || v.Type.IsError() {
		return nil, false
	}
	t := v.Type
	if t.Nullable() && info.Nullability(v) == NotNull {
		t = types.MakeNotNull(t)
	}
	for _, pt := range info.PossibleTypes(v) {
		if a.checker.IsSubtypeOf(pt, t) && !a.checker.Equal(pt, t) {
			t = pt
		}
	}
	if t == v.Type {
		return nil, false
	}
	return t, true
}

// ExtendedTypes lists every type v is known to have on this path, the
// static type first. Member lookup consults all of them.
func (a *Analyzer) ExtendedTypes(v Value, info *Info) []*types.Type {
	out := []*types.Type{v.Type}
	notNull := info.Nullability(v) == NotNull
	if notNull && v.Type != nil && v.Type.Nullable() {
		out[0] = types.MakeNotNull(v.Type)
	}
	for _, pt := range info.PossibleTypes(v) {
		if notNull {
			pt = types.MakeNotNull(pt)
		}
		out = append(out, pt)
	}
	return out
}
