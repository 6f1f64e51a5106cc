package declres

import (
	"strings"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/source"
	"jetc/internal/types"
)

// Checker returns the subtype checker declaration resolution uses.
func (r *Resolver) Checker() *types.Checker { return r.checker }

// checkRedeclarations reports clashing declarations in every package and
// class. Every declaration of a clashing group gets its own diagnostic.
func (r *Resolver) checkRedeclarations() {
	seen := map[types.ID]bool{}
	for _, f := range r.files {
		pkg := r.table.Package(f.Package)
		if !seen[pkg] {
			seen[pkg] = true
			r.checkContainer(pkg)
		}
	}
	for _, w := range r.classes {
		r.checkContainer(w.id)
	}
}

func (r *Resolver) signatureKey(id types.ID) string {
	d := r.table.Get(id)
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte('(')
	if d.Func.Receiver != nil {
		b.WriteString(r.table.Erasure(d.Func.Receiver))
		b.WriteByte('.')
	}
	for i, p := range d.Func.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.table.Erasure(r.table.Get(p).Var.Type))
	}
	b.WriteByte(')')
	return b.String()
}

func (r *Resolver) checkContainer(owner types.ID) {
	groups := map[string][]types.ID{}
	var order []string
	for _, m := range r.table.Members(owner, "") {
		d := r.table.Get(m)
		var key string
		switch d.Kind {
		case types.KindFunction:
			key = "f:" + r.signatureKey(m)
		case types.KindVariable:
			key = "v:" + d.Name
		case types.KindClass:
			key = "c:" + d.Name
		default:
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}
	for _, key := range order {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		for i, id := range ids {
			other := ids[0]
			if i == 0 {
				other = ids[1]
			}
			d := r.table.Get(id)
			if d.Kind == types.KindFunction {
				r.report(diagnostics.NewError("conflicting overloads: "+r.table.QualifiedName(id)).
					WithCode(diagnostics.ErrConflictingOverloads).
					WithPrimaryLabel(d.Loc, "declared here").
					WithSecondaryLabel(r.table.Get(other).Loc, "conflicts with this declaration"))
				continue
			}
			r.report(diagnostics.Redeclaration(d.Loc, r.table.Get(other).Loc, d.Name))
		}
	}
}

func overrideModifier(n ast.Node) (bool, *source.Location) {
	switch n := n.(type) {
	case *ast.FunDecl:
		return n.Mods.Override, n.Name.Loc()
	case *ast.PropertyDecl:
		return n.Mods.Override, n.Name.Loc()
	case *ast.Param:
		return n.Mods.Override, n.Name.Loc()
	}
	return false, nil
}

// checkOverrides validates override modifiers and reports concrete classes
// that leave abstract members unimplemented.
func (r *Resolver) checkOverrides() {
	for _, w := range r.classes {
		r.checkClassOverrides(w.id)
	}
}

// overridden returns the members of the supertypes of class that m
// overrides.
func (r *Resolver) overridden(class, m types.ID) []types.Member {
	self := r.table.DefaultType(class)
	own := types.Member{ID: m, Owner: self, Subst: types.ClassSubstitution(r.table, self)}
	md := r.table.Get(m)
	var out []types.Member
	for _, st := range r.checker.Supertypes(self) {
		if !st.IsClass() {
			continue
		}
		subst := types.ClassSubstitution(r.table, st)
		for _, sm := range r.table.Members(st.Decl(), md.Name) {
			sd := r.table.Get(sm)
			cand := types.Member{ID: sm, Owner: st, Subst: subst}
			switch {
			case md.Kind == types.KindFunction && sd.Kind == types.KindFunction:
				if md.Func.Receiver == nil && sd.Func.Receiver == nil && r.checker.SameSignature(own, cand) {
					out = append(out, cand)
				}
			case md.Kind == types.KindVariable && sd.Kind == types.KindVariable:
				out = append(out, cand)
			}
		}
	}
	return out
}

func (r *Resolver) checkClassOverrides(class types.ID) {
	cd := r.table.Get(class)
	for _, m := range cd.Class.Members {
		md := r.table.Get(m)
		if md.Kind != types.KindFunction && md.Kind != types.KindVariable {
			continue
		}
		override, loc := overrideModifier(md.Decl)
		if loc == nil {
			continue
		}
		supers := r.overridden(class, m)
		switch {
		case len(supers) == 0 && override:
			r.report(diagnostics.NewError("'"+md.Name+"' overrides nothing").
				WithCode(diagnostics.ErrOverridesNothing).
				WithPrimaryLabel(loc, "no matching member in any supertype"))
		case len(supers) > 0 && !override:
			r.report(diagnostics.NewError("'"+md.Name+"' hides a member of a supertype and needs 'override'").
				WithCode(diagnostics.ErrMissingOverride).
				WithPrimaryLabel(loc, "missing 'override'").
				WithSecondaryLabel(r.table.Get(supers[0].ID).Loc, "overridden declaration"))
		}
		for _, s := range supers {
			sd := r.table.Get(s.ID)
			if sd.IsFinal() && override {
				r.report(diagnostics.NewError("'"+md.Name+"' in "+r.table.Get(sd.Owner).Name+" is final and cannot be overridden").
					WithCode(diagnostics.ErrFinalOverride).
					WithPrimaryLabel(loc, "overrides a final member"))
				break
			}
		}
	}

	if cd.Modality == types.Abstract || cd.IsTrait() {
		return
	}
	for _, m := range r.checker.LookupMembers(r.table.DefaultType(class), "") {
		md := r.table.Get(m.ID)
		if md.Modality != types.Abstract || md.Owner == class {
			continue
		}
		name := cd.Name
		loc := cd.Loc
		if c, ok := cd.Decl.(*ast.ClassDecl); ok && c.Name != nil {
			loc = c.Name.Loc()
		}
		r.report(diagnostics.NewError("class '"+name+"' must implement abstract member '"+md.Name+"'").
			WithCode(diagnostics.ErrAbstractNotImpl).
			WithPrimaryLabel(loc, "'"+md.Name+"' is not implemented").
			WithSecondaryLabel(md.Loc, "declared abstract here"))
	}
}
