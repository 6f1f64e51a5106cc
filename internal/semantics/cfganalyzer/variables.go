package cfganalyzer

import (
	"strings"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	cf "jetc/internal/semantics/controlflow"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

type initFlags uint8

const (
	mustInit initFlags = 1 << iota // initialized on every path
	mayInit                        // initialized on some path
)

// varState maps tracked local variables to their initialization facts.
// States are shared between instructions and copied before modification.
type varState map[types.ID]initFlags

func (s varState) clone() varState {
	out := make(varState, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// meet joins two states at a confluence point: a variable is definitely
// initialized only if it is on both sides, possibly initialized if on
// either.
func meet(a, b varState) varState {
	out := make(varState, len(a))
	for k, va := range a {
		vb := b[k]
		out[k] = (va & vb & mustInit) | ((va | vb) & mayInit)
	}
	for k, vb := range b {
		if _, ok := a[k]; !ok {
			out[k] = vb & mayInit
		}
	}
	return out
}

func equalStates(a, b varState) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// declared returns the local or parameter a declaring node introduces.
func (u *unit) declared(n ast.Node) (types.ID, bool) {
	id, ok := binding.Get(u.store, binding.Declaration, n)
	if !ok {
		return types.NoID, false
	}
	d := u.table.Get(id)
	if d.Kind != types.KindVariable {
		return types.NoID, false
	}
	return id, true
}

// referenced returns the variable a name or `this.name` denotes.
func (u *unit) referenced(n ast.Node) (types.ID, bool) {
	if q, ok := n.(*ast.QualifiedExpr); ok {
		n = q.Selector
	}
	name, ok := n.(*ast.NameExpr)
	if !ok {
		return types.NoID, false
	}
	id, ok := binding.Get(u.store, binding.Reference, ast.Node(name))
	if !ok || u.table.Get(id).Kind != types.KindVariable {
		return types.NoID, false
	}
	return id, true
}

// written returns the variable a write instruction stores to and whether
// the write is the declaration's own initializer.
func (u *unit) written(in *cf.Instruction) (types.ID, bool, bool) {
	if in.Target == nil {
		id, ok := u.declared(in.Element)
		return id, true, ok
	}
	id, ok := u.referenced(in.Target)
	return id, false, ok
}

func (u *unit) transfer(in *cf.Instruction, s varState) varState {
	switch in.Kind {
	case cf.VarDecl:
		if id, ok := u.declared(in.Element); ok {
			s = s.clone()
			s[id] = 0
		}
	case cf.Write:
		if id, _, ok := u.written(in); ok {
			if _, tracked := s[id]; tracked {
				s = s.clone()
				s[id] = mustInit | mayInit
			}
		}
	}
	return s
}

// flow computes the state before every reachable instruction.
func (u *unit) flow(pc *cf.Pseudocode, entry varState) []varState {
	instrs := pc.Instructions()
	states := make([]varState, len(instrs))
	if len(instrs) == 0 {
		return states
	}
	if entry == nil {
		entry = varState{}
	}
	states[0] = entry
	work := []int{0}
	queued := make([]bool, len(instrs))
	queued[0] = true
	for len(work) > 0 {
		i := work[0]
		work = work[1:]
		queued[i] = false
		out := u.transfer(instrs[i], states[i])
		for _, s := range pc.Successors(i) {
			next := out
			if states[s] != nil {
				next = meet(states[s], out)
				if equalStates(next, states[s]) {
					continue
				}
			}
			states[s] = next
			if !queued[s] {
				queued[s] = true
				work = append(work, s)
			}
		}
	}
	return states
}

// declaredIn lists the variables a graph declares itself.
func (u *unit) declaredIn(pc *cf.Pseudocode) map[types.ID]bool {
	out := make(map[types.ID]bool)
	for _, in := range pc.Instructions() {
		if in.Kind == cf.VarDecl {
			if id, ok := u.declared(in.Element); ok {
				out[id] = true
			}
		}
	}
	return out
}

func (u *unit) checkVariables(pc *cf.Pseudocode, reach []bool, states []varState) {
	own := u.declaredIn(pc)
	for i, in := range pc.Instructions() {
		if !reach[i] {
			continue
		}
		s := states[i]
		switch in.Kind {
		case cf.Read:
			id, ok := u.referenced(in.Element)
			if !ok {
				continue
			}
			if f, tracked := s[id]; tracked && f&mustInit == 0 {
				name := u.table.Get(id).Name
				u.report(in.Element, diagnostics.NewError("variable '"+name+"' must be initialized").
					WithCode(diagnostics.ErrUninitializedVariable).
					WithPrimaryLabel(in.Element.Loc(), "read before it is assigned on every path"))
			}
		case cf.Write:
			id, isInit, ok := u.written(in)
			if !ok || isInit {
				continue
			}
			u.assigned[id] = true
			d := u.table.Get(id)
			if d.Var.Mutable {
				continue
			}
			f, tracked := s[id]
			switch {
			case d.Var.Storage == types.StorageLocal || d.Var.Storage == types.StorageParameter:
				if !own[id] || !tracked || f&mayInit != 0 {
					u.valReassigned(in, d, !own[id])
				}
			case !u.initializes(pc, d):
				u.valReassigned(in, d, false)
			}
		}
	}
}

// initializes reports whether pc is the initializer of the class owning the
// property d, the only place a `val` property may be assigned.
func (u *unit) initializes(pc *cf.Pseudocode, d *types.Descriptor) bool {
	if pc != u.root {
		return false
	}
	class, ok := pc.Owner.(*ast.ClassDecl)
	if !ok {
		return false
	}
	id, ok := binding.Get(u.store, binding.Declaration, ast.Node(class))
	return ok && id == d.Owner
}

func (u *unit) valReassigned(in *cf.Instruction, d *types.Descriptor, captured bool) {
	diag := diagnostics.NewError("val cannot be reassigned").
		WithCode(diagnostics.ErrValReassignment).
		WithPrimaryLabel(in.Element.Loc(), "'"+d.Name+"' is a val")
	if captured {
		diag.WithNote("the assignment happens inside a closure that captures '" + d.Name + "'")
	}
	if d.Loc != nil {
		diag.WithSecondaryLabel(d.Loc, "declared here")
	}
	diag.WithHelp("declare it with 'var' to allow reassignment")
	u.report(in.Element, diag)
}

// collectDeclarations remembers the reachable locals of pc and, for local
// functions, their parameters.
func (u *unit) collectDeclarations(pc *cf.Pseudocode, reach []bool) {
	_, localFun := pc.Owner.(*ast.FunDecl)
	localFun = localFun && pc.Parent != nil
	for i, in := range pc.Instructions() {
		if !reach[i] || in.Kind != cf.VarDecl {
			continue
		}
		switch el := in.Element.(type) {
		case *ast.PropertyDecl:
			u.locals = append(u.locals, el)
		case *ast.Param:
			if localFun {
				u.params = append(u.params, el)
			}
		}
	}
}

// readNames collects every variable read anywhere under the root owner,
// local class members included.
func (u *unit) readNames() map[types.ID]bool {
	targets := make(map[ast.Node]bool)
	ast.Inspect(u.root.Owner, func(n ast.Node) bool {
		if a, ok := n.(*ast.AssignExpr); ok && a.Op.Kind == tokens.EQUALS_TOKEN {
			targets[a.Target] = true
		}
		return true
	})
	read := make(map[types.ID]bool)
	ast.Inspect(u.root.Owner, func(n ast.Node) bool {
		if name, ok := n.(*ast.NameExpr); ok && !targets[n] {
			if id, ok := binding.Get(u.store, binding.Reference, ast.Node(name)); ok {
				read[id] = true
			}
		}
		return true
	})
	return read
}

func (u *unit) unusedVariables() {
	if len(u.locals) == 0 && len(u.params) == 0 {
		return
	}
	read := u.readNames()
	for _, p := range u.locals {
		id, ok := u.declared(p)
		if !ok || read[id] || strings.HasPrefix(p.Name.Name, "_") {
			continue
		}
		if u.assigned[id] {
			u.report(p, diagnostics.NewWarning("variable '"+p.Name.Name+"' is assigned but never accessed").
				WithCode(diagnostics.WarnAssignedNeverRead).
				WithPrimaryLabel(p.Name.Loc(), "assigned but never read"))
			continue
		}
		u.report(p, diagnostics.NewWarning("variable '"+p.Name.Name+"' is never used").
			WithCode(diagnostics.WarnUnusedVariable).
			WithPrimaryLabel(p.Name.Loc(), "unused variable").
			WithHelp("remove it or prefix the name with an underscore"))
	}
	for _, p := range u.params {
		id, ok := u.declared(p)
		if !ok || read[id] || strings.HasPrefix(p.Name.Name, "_") {
			continue
		}
		u.report(p, diagnostics.NewWarning("parameter '"+p.Name.Name+"' is never used").
			WithCode(diagnostics.WarnUnusedParameter).
			WithPrimaryLabel(p.Name.Loc(), "unused parameter"))
	}
}
