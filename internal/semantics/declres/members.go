package declres

import (
	"strconv"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// PropertyParam maps a `val`/`var` primary constructor parameter to the
// property it declares.
var PropertyParam = binding.NewSlice[types.ID]("PROPERTY_PARAM")

var operatorNames = map[string]bool{
	"plus": true, "minus": true, "times": true, "div": true, "rem": true,
	"unaryMinus": true, "unaryPlus": true, "not": true, "inc": true, "dec": true,
	"compareTo": true, "equals": true, "get": true, "set": true, "contains": true,
	"rangeTo": true, "iterator": true, "next": true, "hasNext": true, "invoke": true,
	"plusAssign": true, "minusAssign": true, "timesAssign": true, "divAssign": true, "remAssign": true,
}

// memberModality picks the modality of a function or property declared in
// owner.
func (r *Resolver) memberModality(m ast.Modifiers, owner types.ID, hasBody bool) types.Modality {
	od := r.table.Get(owner)
	if od.Kind != types.KindClass {
		return types.Final
	}
	switch {
	case m.Abstract:
		return types.Abstract
	case od.IsTrait() && !hasBody:
		return types.Abstract
	case m.Final:
		return types.Final
	case m.Open, od.IsTrait():
		return types.Open
	case m.Override && !od.IsFinal():
		return types.Open
	}
	return types.Final
}

func (r *Resolver) register(owner, id types.ID) {
	if k := r.table.Get(owner).Kind; k == types.KindClass || k == types.KindPackage {
		r.table.AddMember(owner, id)
	}
}

// declareMembers creates the constructors, functions and properties of a
// class body.
func (r *Resolver) declareMembers(w *classWork) {
	f := r.fileOf[w.id]
	if w.entry != nil {
		r.declareConstructor(w, nil, types.Private)
		r.declareBody(w, w.entry.Members, f)
		return
	}
	c := w.decl
	switch {
	case c.Kind == ast.ClassKindTrait:
	case c.Kind == ast.ClassKindEnum, c.Kind == ast.ClassKindObject:
		r.declareConstructor(w, c.Params, types.Private)
	default:
		r.declareConstructor(w, c.Params, types.Public)
	}
	r.declareBody(w, c.Members, f)
}

func (r *Resolver) declareBody(w *classWork, members []ast.Decl, f *ast.File) {
	for _, m := range members {
		switch m := m.(type) {
		case *ast.FunDecl:
			r.declareFunction(m, w.id, w.scope, f)
		case *ast.PropertyDecl:
			r.declareProperty(m, w.id, w.scope, f)
		}
	}
}

// declareConstructor creates the primary (possibly implicit) constructor.
// `val`/`var` parameters additionally become properties.
func (r *Resolver) declareConstructor(w *classWork, params []*ast.Param, vis types.Visibility) types.ID {
	cd := r.table.Get(w.id)
	loc := cd.Loc
	if w.decl != nil && w.decl.HasPrimaryCtor && w.decl.Mods.Visibility != ast.VisibilityDefault && cd.Class.Kind == types.ClassOrdinary {
		vis = visibility(w.decl.Mods)
	}
	id := r.table.Add(&types.Descriptor{
		Kind:       types.KindConstructor,
		Name:       "<init>",
		Owner:      w.id,
		Visibility: vis,
		Modality:   types.Final,
		Loc:        loc,
		Decl:       cd.Decl,
		Func: &types.FuncInfo{
			TypeParams: cd.Class.TypeParams,
			Result:     r.table.DefaultType(w.id),
		},
	})
	r.fileOf[id] = r.fileOf[w.id]
	sc := table.NewScope(w.scope, table.ScopeFunction, id)
	r.sigScopes[id] = sc
	ps := r.declareParams(params, id, sc)
	r.table.Update(id, func(d *types.Descriptor) { d.Func.Params = ps })
	r.table.Update(w.id, func(d *types.Descriptor) {
		d.Class.Ctors = append(d.Class.Ctors, id)
		d.Class.Primary = id
	})

	for i, p := range params {
		if p.Binding == ast.ParamPlain {
			continue
		}
		pid := r.table.Add(&types.Descriptor{
			Kind:       types.KindVariable,
			Name:       p.Name.Name,
			Owner:      w.id,
			Visibility: visibility(p.Mods),
			Modality:   r.memberModality(p.Mods, w.id, true),
			Loc:        p.Loc(),
			Decl:       p,
			Var: &types.VarInfo{
				Mutable: p.Binding == ast.ParamVar,
				Storage: types.StorageProperty,
				Type:    r.table.Get(ps[i]).Var.Type,
			},
		})
		r.table.AddMember(w.id, pid)
		r.fileOf[pid] = r.fileOf[w.id]
		r.sigScopes[pid] = w.scope
		binding.MustRecord(r.store, PropertyParam, ast.Node(p), pid)
	}
	return id
}

// declareParams creates parameter descriptors and resolves their types in sc.
func (r *Resolver) declareParams(params []*ast.Param, owner types.ID, sc *table.Scope) []types.ID {
	ids := make([]types.ID, len(params))
	for i, p := range params {
		t := r.ResolveType(p.Type, sc)
		if t == nil {
			r.report(diagnostics.NewError("a type annotation is required on a value parameter").
				WithCode(diagnostics.ErrUnresolvedType).
				WithPrimaryLabel(p.Loc(), p.Name.Name))
			t = types.ErrorType()
		}
		ids[i] = r.table.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  p.Name.Name,
			Owner: owner,
			Loc:   p.Loc(),
			Decl:  p,
			Var: &types.VarInfo{
				Storage:    types.StorageParameter,
				Type:       t,
				HasDefault: p.Default != nil,
				Index:      i,
			},
		})
		binding.MustRecord(r.store, binding.Declaration, ast.Node(p), ids[i])
	}
	return ids
}

// declareFunction creates the descriptor of a named function and resolves
// its signature. Expression-bodied functions without a result type are
// deferred.
func (r *Resolver) declareFunction(d *ast.FunDecl, owner types.ID, sc *table.Scope, f *ast.File) types.ID {
	return r.declareFunc(d, owner, sc, f, false)
}

func (r *Resolver) declareFunc(d *ast.FunDecl, owner types.ID, sc *table.Scope, f *ast.File, local bool) types.ID {
	id := r.table.Add(&types.Descriptor{
		Kind:       types.KindFunction,
		Name:       d.Name.Name,
		Owner:      owner,
		Visibility: visibility(d.Mods),
		Modality:   r.memberModality(d.Mods, owner, d.Body != nil),
		Loc:        d.Loc(),
		Decl:       d,
		Func: &types.FuncInfo{
			Local:    local,
			Operator: operatorNames[d.Name.Name],
		},
	})
	r.register(owner, id)
	binding.MustRecord(r.store, binding.Declaration, ast.Node(d), id)
	r.fileOf[id] = f

	fsc := table.NewScope(sc, table.ScopeFunction, id)
	fsc.Label = d.Name.Name
	r.sigScopes[id] = fsc
	tps := r.declareTypeParams(d.TypeParams, id, fsc)
	var recv *types.Type
	if d.Receiver != nil {
		recv = r.ResolveType(d.Receiver, fsc)
	}
	ps := r.declareParams(d.Params, id, fsc)

	var result *types.Type
	switch {
	case d.Result != nil:
		result = r.ResolveType(d.Result, fsc)
	case d.ExprBody && d.Body != nil:
		r.deferred = append(r.deferred, id)
	default:
		result = r.builtins.UnitType
	}
	r.table.Update(id, func(desc *types.Descriptor) {
		desc.Func.TypeParams = tps
		desc.Func.Receiver = recv
		desc.Func.Params = ps
		desc.Func.Result = result
	})
	return id
}

// declareProperty creates the descriptor of a member or top-level property.
// Properties without a written type are deferred.
func (r *Resolver) declareProperty(d *ast.PropertyDecl, owner types.ID, sc *table.Scope, f *ast.File) types.ID {
	storage := types.StorageProperty
	if r.table.Get(owner).Kind == types.KindPackage {
		storage = types.StorageTopLevel
	}
	id := r.table.Add(&types.Descriptor{
		Kind:       types.KindVariable,
		Name:       d.Name.Name,
		Owner:      owner,
		Visibility: visibility(d.Mods),
		Modality:   r.memberModality(d.Mods, owner, d.Init != nil || d.Getter != nil),
		Static:     storage == types.StorageTopLevel,
		Loc:        d.Loc(),
		Decl:       d,
		Var: &types.VarInfo{
			Mutable:      d.Var,
			Storage:      storage,
			CustomGetter: d.Getter != nil,
			CustomSetter: d.Setter != nil,
		},
	})
	r.register(owner, id)
	binding.MustRecord(r.store, binding.Declaration, ast.Node(d), id)
	r.fileOf[id] = f
	r.sigScopes[id] = sc

	var t *types.Type
	switch {
	case d.Type != nil:
		t = r.ResolveType(d.Type, sc)
	case d.Init != nil, d.Getter != nil && d.Getter.ExprBody:
		r.deferred = append(r.deferred, id)
	default:
		r.report(diagnostics.NewError("this property must have a type or an initializer").
			WithCode(diagnostics.ErrUnresolvedType).
			WithPrimaryLabel(d.Name.Loc(), d.Name.Name))
		t = types.ErrorType()
	}
	if t != nil {
		r.table.Update(id, func(desc *types.Descriptor) { desc.Var.Type = t })
	}
	return id
}

// DeclareLocalFunction declares a function inside a block. The function is
// added to sc as an overload; an expression-bodied function without a
// result type is returned with a nil result for the caller to infer.
func (r *Resolver) DeclareLocalFunction(d *ast.FunDecl, owner types.ID, sc *table.Scope) types.ID {
	id := r.declareFunc(d, owner, sc, r.fileOf[owner], true)
	if n := len(r.deferred); n > 0 && r.deferred[n-1] == id {
		r.deferred = r.deferred[:n-1]
	}
	sc.DeclareFun(d.Name.Name, id)
	return id
}

// DeclareLocalClass declares a local class or an object literal's class
// inside a block. Named classes become visible in sc.
func (r *Resolver) DeclareLocalClass(c *ast.ClassDecl, owner types.ID, sc *table.Scope) types.ID {
	name := "<anonymous>"
	if c.Name != nil {
		name = c.Name.Name
	}
	first := len(r.classes)
	id := r.declareNamedClass(c, name, owner, r.fileOf[owner], sc)
	if c.Name != nil {
		if err := sc.DeclareClassifier(name, id); err != nil {
			r.report(diagnostics.Redeclaration(c.Name.Loc(), nil, name))
		}
	}
	encl := r.table.EnclosingClassOrFacade(owner)
	var base string
	if r.table.Get(encl).Kind == types.KindPackage {
		base = r.table.FacadeName(encl)
	} else {
		base = r.table.InternalName(encl)
	}
	r.localCount[encl]++
	internal := base + "$" + strconv.Itoa(r.localCount[encl])
	if c.Name != nil {
		internal += name
	}
	r.table.Update(id, func(d *types.Descriptor) { d.Class.InternalName = internal })

	work := r.classes[first:]
	for _, w := range work {
		r.buildClassScope(w)
	}
	for _, w := range work {
		r.resolveTypeParams(w)
	}
	for _, w := range work {
		r.resolveSupertypes(w)
	}
	deferred := len(r.deferred)
	for _, w := range work {
		r.declareMembers(w)
	}
	for _, w := range work {
		r.checkContainer(w.id)
		r.checkClassOverrides(w.id)
	}
	r.localDeferred = append(r.localDeferred, r.deferred[deferred:]...)
	r.deferred = r.deferred[:deferred]
	return id
}

// TakeLocalDeferred returns and forgets the deferred members created by
// local class declarations since the last call.
func (r *Resolver) TakeLocalDeferred() []types.ID {
	out := r.localDeferred
	r.localDeferred = nil
	return out
}
