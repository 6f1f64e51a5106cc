// Package cfganalyzer runs the checks that work on sealed pseudocode graphs:
// unreachable code, definite return, variable initialization, val
// reassignment, unused variables and unused expressions, and constant
// conditions. None of them abort analysis; every finding is a diagnostic.
//
// The checks run after the subroutine body has been typed, so names map to
// descriptors through binding.Reference and binding.Declaration.
package cfganalyzer

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/consteval"
	cf "jetc/internal/semantics/controlflow"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// Analyzer checks graphs of one translation unit.
type Analyzer struct {
	table    *types.Table
	store    *binding.Store
	eval     *consteval.Evaluator
	reported map[reportKey]bool
}

type reportKey struct {
	node ast.Node
	code string
}

// New creates an analyzer reading descriptors from tab and recording
// diagnostics in store.
func New(tab *types.Table, store *binding.Store) *Analyzer {
	return &Analyzer{
		table:    tab,
		store:    store,
		eval:     consteval.New(store, tab),
		reported: make(map[reportKey]bool),
	}
}

// unit is the state of analysing one top-level graph and the graphs nested
// in it.
type unit struct {
	*Analyzer
	root    *cf.Pseudocode
	parents map[ast.Node]ast.Node

	locals   []*ast.PropertyDecl // reachable local declarations, in order
	params   []*ast.Param        // parameters of local functions
	assigned map[types.ID]bool
}

// Analyze runs every check on a sealed graph and on the reachable graphs
// nested in it.
func (a *Analyzer) Analyze(pc *cf.Pseudocode) {
	invariant.Check(pc.Sealed(), "analysing unsealed pseudocode of %T", pc.Owner)
	u := &unit{Analyzer: a, root: pc, assigned: make(map[types.ID]bool)}
	u.graph(pc, nil)
	u.unusedVariables()
	a.constantConditions(pc.Owner)
}

func (u *unit) graph(pc *cf.Pseudocode, entry varState) {
	reach := reachable(pc)
	u.unreachable(pc, reach)
	u.returns(pc, reach)
	states := u.flow(pc, entry)
	u.checkVariables(pc, reach, states)
	u.unusedExpressions(pc, reach)
	u.collectDeclarations(pc, reach)

	for _, local := range pc.Locals() {
		var in varState
		found := false
		for i, instr := range pc.Instructions() {
			if !reach[i] || instr.Kind != cf.LocalDecl || instr.Body != local {
				continue
			}
			if !found {
				in, found = states[i], true
			} else {
				in = meet(in, states[i])
			}
		}
		if found {
			u.graph(local, in)
		}
	}
}

func (a *Analyzer) report(n ast.Node, d *diagnostics.Diagnostic) {
	k := reportKey{n, d.Code}
	if a.reported[k] {
		return
	}
	a.reported[k] = true
	a.store.Report(d)
}

// reachable marks the instructions reachable from the graph entry by
// forward traversal.
func reachable(pc *cf.Pseudocode) []bool {
	n := len(pc.Instructions())
	seen := make([]bool, n)
	if n == 0 {
		return seen
	}
	work := []int{0}
	seen[0] = true
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range pc.Successors(i) {
			if !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return seen
}

// unreachable reports each maximal syntax element none of whose
// instructions can execute.
func (u *unit) unreachable(pc *cf.Pseudocode, reach []bool) {
	live := make(map[ast.Node]bool)
	for i, in := range pc.Instructions() {
		if reach[i] && in.Element != nil {
			live[in.Element] = true
		}
	}
	dead := make(map[ast.Node]bool)
	var order []ast.Node
	for i, in := range pc.Instructions() {
		el := in.Element
		if reach[i] || el == nil || in.Kind == cf.Enter || in.Kind == cf.Exit || live[el] || dead[el] {
			continue
		}
		if containsLive(el, live) {
			continue
		}
		dead[el] = true
		order = append(order, el)
	}
	for _, n := range order {
		if !u.hasDeadAncestor(n, dead) {
			u.report(n, diagnostics.Unreachable(n.Loc()))
		}
	}
}

func containsLive(n ast.Node, live map[ast.Node]bool) bool {
	found := false
	ast.Inspect(n, func(c ast.Node) bool {
		if found {
			return false
		}
		if live[c] {
			found = true
		}
		return !found
	})
	return found
}

func (u *unit) hasDeadAncestor(n ast.Node, dead map[ast.Node]bool) bool {
	if u.parents == nil {
		u.parents = make(map[ast.Node]ast.Node)
		var walk func(n ast.Node)
		walk = func(n ast.Node) {
			for _, c := range ast.Children(n) {
				u.parents[c] = n
				walk(c)
			}
		}
		walk(u.root.Owner)
	}
	for p := u.parents[n]; p != nil; p = u.parents[p] {
		if dead[p] {
			return true
		}
	}
	return false
}

// returns checks that value-returning block bodies cannot fall off their
// end and that plain returns do not leave them.
func (u *unit) returns(pc *cf.Pseudocode, reach []bool) {
	for i, in := range pc.Instructions() {
		if !reach[i] || in.Kind != cf.Jump || in.Jump != cf.ReturnNoValue {
			continue
		}
		target, ok := binding.Get(u.store, binding.ReturnTarget, in.Element)
		if ok && u.returnsValue(target) {
			u.report(in.Element, diagnostics.NewError("this function must return a value").
				WithCode(diagnostics.ErrReturnWithoutValue).
				WithPrimaryLabel(in.Element.Loc(), "'return' without a value").
				WithHelp("return an expression of the declared result type"))
		}
	}

	if !u.needsReturn(pc.Owner) {
		return
	}
	exit := pc.ExitIndex()
	for _, p := range pc.Predecessors(exit) {
		in := pc.Instructions()[p]
		if !reach[p] || in.Kind == cf.Jump {
			continue
		}
		u.report(pc.Owner, diagnostics.NewError("a 'return' expression is required in a function with a block body").
			WithCode(diagnostics.ErrMissingReturn).
			WithPrimaryLabel(pc.Owner.Loc(), "control can reach the end of this body"))
		return
	}
}

// returnsValue reports functions and getters whose result is not Unit.
func (u *unit) returnsValue(owner ast.Node) bool {
	switch o := owner.(type) {
	case *ast.FunDecl:
		id, ok := binding.Get(u.store, binding.Declaration, ast.Node(o))
		if !ok {
			return false
		}
		res := u.table.Get(id).Func.Result
		return res != nil && !res.IsError() && !types.IsClassType(res, u.table.Builtins().Unit)
	case *ast.Accessor:
		return o.Param == nil
	}
	return false
}

func (u *unit) needsReturn(owner ast.Node) bool {
	switch o := owner.(type) {
	case *ast.FunDecl:
		return o.Body != nil && !o.ExprBody && u.returnsValue(o)
	case *ast.Accessor:
		return o.Body != nil && !o.ExprBody && u.returnsValue(o)
	}
	return false
}

// unusedExpressions warns about side-effect free expressions whose value is
// discarded.
func (u *unit) unusedExpressions(pc *cf.Pseudocode, reach []bool) {
	for i, in := range pc.Instructions() {
		if !reach[i] || in.Kind != cf.Read {
			continue
		}
		e, ok := in.Element.(ast.Expression)
		if !ok || !pure(e) {
			continue
		}
		if stmt, _ := binding.Get(u.store, binding.Statement, in.Element); !stmt {
			continue
		}
		u.report(e, diagnostics.NewWarning("expression is unused").
			WithCode(diagnostics.WarnUnusedExpression).
			WithPrimaryLabel(e.Loc(), "the value of this expression is never used"))
	}
}

func pure(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.Literal, *ast.NameExpr, *ast.ThisExpr, *ast.IsExpr, *ast.TupleExpr, *ast.FunctionLiteral:
		return true
	case *ast.BinaryExpr:
		return pure(e.X) && pure(e.Y)
	case *ast.UnaryExpr:
		return e.Op.Kind != tokens.PLUS_PLUS_TOKEN && e.Op.Kind != tokens.MINUS_MINUS_TOKEN && pure(e.X)
	}
	return false
}

// constantConditions warns about if and while conditions that fold to a
// constant. Local classes are checked when their own members are analysed.
func (a *Analyzer) constantConditions(owner ast.Node) {
	ast.Inspect(owner, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ClassDecl:
			return n == owner
		case *ast.ObjectLiteral:
			return false
		case *ast.IfExpr:
			a.ifCondition(n)
		case *ast.WhileExpr:
			a.whileCondition(n)
		}
		return true
	})
}

func (a *Analyzer) ifCondition(n *ast.IfExpr) {
	val, ok := a.eval.EvaluateAsBool(n.Cond)
	if !ok {
		return
	}
	if val {
		// Condition is always true - else branch is dead code
		if n.Else != nil {
			a.report(n.Cond, diagnostics.NewWarning("condition is always true").
				WithCode(diagnostics.WarnConstantConditionTrue).
				WithPrimaryLabel(n.Cond.Loc(), "this condition is always true").
				WithSecondaryLabel(n.Else.Loc(), "this branch will never execute").
				WithHelp("remove the if expression or the unreachable else branch"))
		}
		return
	}
	a.report(n.Cond, diagnostics.NewWarning("condition is always false").
		WithCode(diagnostics.WarnConstantConditionFalse).
		WithPrimaryLabel(n.Cond.Loc(), "this condition is always false").
		WithSecondaryLabel(n.Then.Loc(), "this branch will never execute").
		WithHelp("remove the if expression or fix the condition"))
}

func (a *Analyzer) whileCondition(n *ast.WhileExpr) {
	// Always-true conditions are intentional loops left with break
	if val, ok := a.eval.EvaluateAsBool(n.Cond); ok && !val {
		a.report(n.Cond, diagnostics.NewWarning("condition is always false").
			WithCode(diagnostics.WarnConstantConditionFalse).
			WithPrimaryLabel(n.Cond.Loc(), "this condition is always false").
			WithSecondaryLabel(n.Body.Loc(), "this loop will never execute").
			WithHelp("remove the while loop or fix the condition"))
	}
}
