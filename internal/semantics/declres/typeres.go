package declres

import (
	"fmt"
	"strings"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// ResolveType turns a type node into a type, reporting unresolved names and
// wrong argument counts. The result is recorded under binding.ResolvedType;
// resolving the same node twice returns the recorded type.
func (r *Resolver) ResolveType(node ast.TypeNode, sc *table.Scope) *types.Type {
	if node == nil {
		return nil
	}
	if t, ok := binding.Get(r.store, binding.ResolvedType, node); ok {
		return t
	}
	t := r.resolveType(node, sc)
	binding.MustRecord(r.store, binding.ResolvedType, node, t)
	return t
}

func (r *Resolver) resolveType(node ast.TypeNode, sc *table.Scope) *types.Type {
	switch n := node.(type) {
	case *ast.NullableType:
		return types.MakeNullable(r.ResolveType(n.Inner, sc))
	case *ast.FunctionType:
		var recv *types.Type
		if n.Receiver != nil {
			recv = r.ResolveType(n.Receiver, sc)
		}
		params := make([]*types.Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = r.ResolveType(p, sc)
		}
		return types.FunctionType(recv, params, r.ResolveType(n.Result, sc))
	case *ast.TupleType:
		elems := make([]*types.Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = r.ResolveType(e, sc)
		}
		return types.TupleType(elems)
	case *ast.SelfType:
		if cls := sc.Enclosing(table.ScopeClass); cls != nil {
			return r.table.SelfType(cls.Owner)
		}
		r.report(diagnostics.NewError("'This' type is only allowed inside a class").
			WithCode(diagnostics.ErrUnresolvedType).
			WithPrimaryLabel(n.Loc(), "no enclosing class"))
		return types.ErrorType()
	case *ast.UserType:
		return r.resolveUserType(n, sc)
	}
	panic(fmt.Sprintf("declres: unexpected type node %T", node))
}

func (r *Resolver) resolveUserType(n *ast.UserType, sc *table.Scope) *types.Type {
	id, ok := r.lookupClassifier(n.Name, sc)
	if !ok {
		r.report(diagnostics.NewError("unresolved type: "+n.Name).
			WithCode(diagnostics.ErrUnresolvedType).
			WithPrimaryLabel(n.Loc(), "not found in this scope"))
		return types.ErrorType()
	}
	d := r.table.Get(id)
	if d.Kind == types.KindTypeParam {
		if len(n.Args) > 0 {
			r.report(diagnostics.NewError("type parameter "+d.Name+" cannot have type arguments").
				WithCode(diagnostics.ErrWrongTypeArity).
				WithPrimaryLabel(n.Loc(), ""))
			return types.ErrorType()
		}
		return r.table.TypeParamType(id)
	}
	if want := len(d.Class.TypeParams); want != len(n.Args) {
		r.report(diagnostics.NewError(fmt.Sprintf("%d type arguments expected for %s", want, d.Name)).
			WithCode(diagnostics.ErrWrongTypeArity).
			WithPrimaryLabel(n.Loc(), fmt.Sprintf("found %d", len(n.Args))))
		return types.ErrorType()
	}
	args := make([]types.Projection, len(n.Args))
	for i, a := range n.Args {
		switch a.Projection {
		case ast.ProjectionStar:
			args[i] = types.Star()
		case ast.ProjectionIn:
			args[i] = types.Projection{Kind: types.ProjIn, Type: r.ResolveType(a.Type, sc)}
		case ast.ProjectionOut:
			args[i] = types.Projection{Kind: types.ProjOut, Type: r.ResolveType(a.Type, sc)}
		default:
			args[i] = types.Inv(r.ResolveType(a.Type, sc))
		}
	}
	return r.table.ProjectedType(id, args, false)
}

// lookupClassifier resolves a simple or dotted name: the first segment goes
// through the scope chain, otherwise the longest package prefix is tried.
func (r *Resolver) lookupClassifier(name string, sc *table.Scope) (types.ID, bool) {
	parts := strings.Split(name, ".")
	if id, ok := sc.LookupClassifier(parts[0]); ok {
		return r.nested(id, parts[1:])
	}
	for i := len(parts) - 1; i > 0; i-- {
		pkg, ok := r.table.LookupPackage(strings.Join(parts[:i], "."))
		if !ok {
			continue
		}
		for _, m := range r.table.Members(pkg, parts[i]) {
			if r.table.Get(m).Kind == types.KindClass {
				return r.nested(m, parts[i+1:])
			}
		}
	}
	return types.NoID, false
}

func (r *Resolver) nested(id types.ID, rest []string) (types.ID, bool) {
	for _, seg := range rest {
		found := false
		for _, m := range r.table.Members(id, seg) {
			if r.table.Get(m).Kind == types.KindClass {
				id, found = m, true
				break
			}
		}
		if !found {
			return types.NoID, false
		}
	}
	return id, true
}

// LookupClassifier exposes classifier lookup for qualified expressions.
func (r *Resolver) LookupClassifier(name string, sc *table.Scope) (types.ID, bool) {
	return r.lookupClassifier(name, sc)
}
