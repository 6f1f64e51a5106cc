package declres

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

func classKind(k ast.ClassKind) types.ClassKind {
	switch k {
	case ast.ClassKindTrait:
		return types.ClassTrait
	case ast.ClassKindEnum:
		return types.ClassEnum
	case ast.ClassKindObject:
		return types.ClassObject
	}
	return types.ClassOrdinary
}

func classModality(c *ast.ClassDecl) types.Modality {
	switch {
	case c.Kind == ast.ClassKindTrait, c.Mods.Abstract:
		return types.Abstract
	case c.Kind == ast.ClassKindEnum:
		for _, e := range c.Entries {
			if len(e.Members) > 0 {
				return types.Open
			}
		}
		return types.Final
	case c.Mods.Open:
		return types.Open
	}
	return types.Final
}

// declareClass creates the descriptor of c, of its enum entries and of its
// nested classes. Scopes and signatures are resolved later.
func (r *Resolver) declareClass(c *ast.ClassDecl, owner types.ID, f *ast.File) types.ID {
	name := "<anonymous>"
	if c.Name != nil {
		name = c.Name.Name
	}
	return r.declareNamedClass(c, name, owner, f, nil)
}

func (r *Resolver) declareNamedClass(c *ast.ClassDecl, name string, owner types.ID, f *ast.File, parent *table.Scope) types.ID {
	kind := classKind(c.Kind)
	if c.Name == nil {
		kind = types.ClassAnonymous
	}
	id := r.table.Add(&types.Descriptor{
		Kind:       types.KindClass,
		Name:       name,
		Owner:      owner,
		Visibility: visibility(c.Mods),
		Modality:   classModality(c),
		Loc:        c.Loc(),
		Decl:       c,
		Class:      &types.ClassInfo{Kind: kind, Local: parent != nil},
	})
	if k := r.table.Get(owner).Kind; k == types.KindClass || k == types.KindPackage {
		r.table.AddMember(owner, id)
	}
	binding.MustRecord(r.store, binding.Declaration, ast.Node(c), id)
	r.fileOf[id] = f
	r.classes = append(r.classes, &classWork{decl: c, id: id, parent: parent})

	for i, e := range c.Entries {
		eid := r.table.Add(&types.Descriptor{
			Kind:     types.KindClass,
			Name:     e.Name.Name,
			Owner:    id,
			Modality: types.Final,
			Static:   true,
			Loc:      e.Loc(),
			Decl:     e,
			Class:    &types.ClassInfo{Kind: types.ClassEnumEntry, Ordinal: i},
		})
		r.table.AddMember(id, eid)
		r.table.Update(id, func(d *types.Descriptor) { d.Class.Entries = append(d.Class.Entries, eid) })
		binding.MustRecord(r.store, binding.Declaration, ast.Node(e), eid)
		r.fileOf[eid] = f
		r.classes = append(r.classes, &classWork{entry: e, id: eid})
	}
	for _, m := range c.Members {
		if nested, ok := m.(*ast.ClassDecl); ok {
			r.declareClass(nested, id, f)
		}
	}
	return id
}

// resolveTypeParams declares the class's type parameters in its scope and
// resolves their bounds.
func (r *Resolver) resolveTypeParams(w *classWork) {
	if w.decl != nil {
		ids := r.declareTypeParams(w.decl.TypeParams, w.id, w.scope)
		r.table.Update(w.id, func(d *types.Descriptor) { d.Class.TypeParams = ids })
	}
	w.scope.Receiver = r.table.DefaultType(w.id)
}

func (r *Resolver) declareTypeParams(tps []*ast.TypeParam, owner types.ID, sc *table.Scope) []types.ID {
	ids := make([]types.ID, len(tps))
	for i, tp := range tps {
		v := types.Invariant
		switch tp.Variance {
		case ast.In:
			v = types.In
		case ast.Out:
			v = types.Out
		}
		ids[i] = r.table.Add(&types.Descriptor{
			Kind:      types.KindTypeParam,
			Name:      tp.Name.Name,
			Owner:     owner,
			Loc:       tp.Loc(),
			Decl:      tp,
			TypeParam: &types.TypeParamInfo{Variance: v, Index: i},
		})
		if err := sc.DeclareClassifier(tp.Name.Name, ids[i]); err != nil {
			r.report(diagnostics.Redeclaration(tp.Loc(), nil, tp.Name.Name))
		}
		binding.MustRecord(r.store, binding.Declaration, ast.Node(tp), ids[i])
	}
	for i, tp := range tps {
		if tp.Bound == nil {
			continue
		}
		bound := r.ResolveType(tp.Bound, sc)
		r.table.Update(ids[i], func(d *types.Descriptor) { d.TypeParam.Bounds = []*types.Type{bound} })
	}
	return ids
}

func (r *Resolver) resolveSupertypes(w *classWork) {
	b := r.builtins
	if w.entry != nil {
		enum := r.table.Get(w.id).Owner
		st := r.table.DefaultType(enum)
		r.table.Update(w.id, func(d *types.Descriptor) { d.Class.Supertypes = []*types.Type{st} })
		return
	}
	c := w.decl
	var supers []*types.Type
	var classSuper *types.Type
	for _, s := range c.Supers {
		t := r.ResolveType(s.Type, w.scope)
		if t.IsError() {
			continue
		}
		if !t.IsClass() {
			r.report(diagnostics.NewError("a supertype must be a class or trait").
				WithCode(diagnostics.ErrSupertypeNotClass).
				WithPrimaryLabel(s.Loc(), t.String()+" is not a class"))
			continue
		}
		sd := r.table.Get(t.Decl())
		if sd.Class.Kind == types.ClassEnumEntry || sd.Class.Kind == types.ClassObject ||
			(sd.IsFinal() && !sd.IsTrait()) {
			r.report(diagnostics.NewError("this type is final, so it cannot be inherited from").
				WithCode(diagnostics.ErrFinalSupertype).
				WithPrimaryLabel(s.Loc(), sd.Name+" is final"))
			continue
		}
		if !sd.IsTrait() {
			if classSuper != nil || c.Kind == ast.ClassKindTrait {
				r.report(diagnostics.NewError("only one class may appear in a supertype list").
					WithCode(diagnostics.ErrManyClassSupertypes).
					WithPrimaryLabel(s.Loc(), "additional class supertype"))
				continue
			}
			classSuper = t
		}
		supers = append(supers, t)
	}
	switch {
	case c.Kind == ast.ClassKindEnum:
		supers = append([]*types.Type{r.table.ClassType(b.Enum, r.table.DefaultType(w.id))}, supers...)
	case classSuper == nil:
		supers = append([]*types.Type{b.AnyType}, supers...)
	}
	r.table.Update(w.id, func(d *types.Descriptor) { d.Class.Supertypes = supers })
}

// checkSupertypeCycles reports every class on a supertype cycle and cuts the
// cycle so later phases terminate.
func (r *Resolver) checkSupertypeCycles() {
	const (
		unvisited = iota
		active
		done
	)
	state := map[types.ID]int{}
	inCycle := map[types.ID]bool{}
	var stack []types.ID

	var visit func(id types.ID)
	visit = func(id types.ID) {
		state[id] = active
		stack = append(stack, id)
		for _, st := range r.table.Get(id).Class.Supertypes {
			if !st.IsClass() {
				continue
			}
			next := st.Decl()
			switch state[next] {
			case active:
				for i := len(stack) - 1; i >= 0; i-- {
					inCycle[stack[i]] = true
					if stack[i] == next {
						break
					}
				}
			case unvisited:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}
	for _, w := range r.classes {
		if state[w.id] == unvisited {
			visit(w.id)
		}
	}

	for _, w := range r.classes {
		if !inCycle[w.id] {
			continue
		}
		d := r.table.Get(w.id)
		loc := d.Loc
		if w.decl != nil && w.decl.Name != nil {
			loc = w.decl.Name.Loc()
		}
		r.report(diagnostics.NewError("there's a cycle in the inheritance hierarchy for this type").
			WithCode(diagnostics.ErrCyclicSupertypes).
			WithPrimaryLabel(loc, d.Name+" inherits from itself"))
		kept := []*types.Type{r.builtins.AnyType}
		for _, st := range d.Class.Supertypes {
			if st.IsClass() && !inCycle[st.Decl()] && !types.IsClassType(st, r.builtins.Any) {
				kept = append(kept, st)
			}
		}
		r.table.Update(w.id, func(d *types.Descriptor) { d.Class.Supertypes = kept })
	}
}
