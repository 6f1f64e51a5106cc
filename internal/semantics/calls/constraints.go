package calls

import (
	"fmt"

	"jetc/internal/diagnostics"
	"jetc/internal/source"
	"jetc/internal/types"
)

type boundKind uint8

const (
	lowerBound boundKind = iota // T >: t
	upperBound                  // T <: t
	exactBound                  // T == t
)

func (k boundKind) String() string {
	return [...]string{">:", "<:", "=="}[k]
}

type bound struct {
	kind boundKind
	t    *types.Type
}

// system collects bounds on the inference variables of one candidate.
type system struct {
	table   *types.Table
	checker *types.Checker
	vars    []types.ID
	isVar   map[types.ID]bool
	bounds  map[types.ID][]bound
	errs    []*diagnostics.Diagnostic
}

func newSystem(checker *types.Checker, vars []types.ID) *system {
	s := &system{
		table:   checker.Table(),
		checker: checker,
		vars:    vars,
		isVar:   make(map[types.ID]bool, len(vars)),
		bounds:  make(map[types.ID][]bound, len(vars)),
	}
	for _, v := range vars {
		s.isVar[v] = true
	}
	return s
}

func (s *system) clone() *system {
	out := *s
	out.bounds = make(map[types.ID][]bound, len(s.bounds))
	for v, bs := range s.bounds {
		out.bounds[v] = append([]bound(nil), bs...)
	}
	out.errs = append([]*diagnostics.Diagnostic(nil), s.errs...)
	return &out
}

func (s *system) varOf(t *types.Type) (types.ID, bool) {
	if t != nil && t.IsTypeParam() && s.isVar[t.Decl()] {
		return t.Decl(), true
	}
	return types.NoID, false
}

func (s *system) mentionsVars(t *types.Type) bool {
	return len(s.isVar) > 0 && types.Mentions(t, s.isVar)
}

func (s *system) add(v types.ID, kind boundKind, t *types.Type) {
	s.bounds[v] = append(s.bounds[v], bound{kind, t})
}

func (s *system) mismatch(sub, sup *types.Type, loc *source.Location) {
	s.errs = append(s.errs, diagnostics.NewError("argument type mismatch").
		WithCode(diagnostics.ErrArgumentTypeMismatch).
		WithPrimaryLabel(loc, fmt.Sprintf("expected %s, found %s", sup, sub)))
}

// subtype adds the constraint sub <: sup, decomposing generic types down to
// bounds on the inference variables.
func (s *system) subtype(sub, sup *types.Type, loc *source.Location) {
	if sub == nil || sup == nil || sub.IsError() || sup.IsError() {
		return
	}
	if v, ok := s.varOf(sup); ok {
		if sup.Nullable() {
			sub = types.MakeNotNull(sub)
		}
		s.add(v, lowerBound, sub)
		return
	}
	if v, ok := s.varOf(sub); ok {
		if sub.Nullable() && !sup.Nullable() {
			s.mismatch(sub, sup, loc)
			return
		}
		s.add(v, upperBound, sup)
		return
	}
	if !s.mentionsVars(sub) && !s.mentionsVars(sup) {
		if !s.checker.IsSubtypeOf(sub, sup) {
			s.mismatch(sub, sup, loc)
		}
		return
	}
	if sub.Nullable() && !sup.Nullable() {
		s.mismatch(sub, sup, loc)
		return
	}
	b := s.table.Builtins()
	sub, sup = types.MakeNotNull(sub), types.MakeNotNull(sup)
	if types.IsClassType(sub, b.Nothing) || types.IsClassType(sup, b.Any) {
		return
	}
	corr := s.corresponding(sub, sup)
	if corr == nil {
		s.errs = append(s.errs, diagnostics.NewError("type constructor mismatch").
			WithCode(diagnostics.ErrTypeConstructorMismatch).
			WithPrimaryLabel(loc, fmt.Sprintf("%s cannot be matched against %s", sub, sup)))
		return
	}
	for i, sp := range sup.Args() {
		if sp.Kind == types.ProjStar {
			continue
		}
		bp := corr.Arg(i)
		if bp.Kind == types.ProjStar {
			s.mismatch(sub, sup, loc)
			return
		}
		switch types.EffectiveVariance(s.table.ParamVariance(sup.Ctor(), i), sp.Kind) {
		case types.ProjStar:
		case types.ProjOut:
			s.subtype(bp.Type, sp.Type, loc)
		case types.ProjIn:
			s.subtype(sp.Type, bp.Type, loc)
		default:
			s.equal(bp.Type, sp.Type, loc)
		}
	}
}

func (s *system) corresponding(sub, sup *types.Type) *types.Type {
	switch {
	case sub.Ctor() == sup.Ctor():
		return sub
	case sub.IsTypeParam():
		for _, b := range s.table.UpperBounds(sub.Decl()) {
			if c := s.corresponding(types.MakeNotNull(b), sup); c != nil {
				return c
			}
		}
		return nil
	case sub.IsSelf():
		sub = s.table.DefaultType(sub.Decl())
	}
	return s.checker.FindCorrespondingSupertype(sub, sup.Ctor())
}

// equal adds a == b for invariant positions.
func (s *system) equal(a, b *types.Type, loc *source.Location) {
	if a == nil || b == nil || a.IsError() || b.IsError() {
		return
	}
	if v, ok := s.varOf(b); ok {
		s.exact(v, a, b.Nullable(), loc)
		return
	}
	if v, ok := s.varOf(a); ok {
		s.exact(v, b, a.Nullable(), loc)
		return
	}
	if !s.mentionsVars(a) && !s.mentionsVars(b) {
		if !s.checker.Equal(a, b) {
			s.mismatch(a, b, loc)
		}
		return
	}
	s.subtype(a, b, loc)
	s.subtype(b, a, loc)
}

func (s *system) exact(v types.ID, t *types.Type, varNullable bool, loc *source.Location) {
	if varNullable {
		if !t.Nullable() {
			s.mismatch(t, types.MakeNullable(s.table.TypeParamType(v)), loc)
			return
		}
		t = types.MakeNotNull(t)
	}
	s.add(v, exactBound, t)
}

// lambdaShape checks a function literal against its parameter before the
// literal is typed: arity must match and declared parameter types must
// accept what the callee passes.
func (s *system) lambdaShape(l *Lambda, param *types.Type, loc *source.Location) {
	pt := types.MakeNotNull(param)
	if _, ok := s.varOf(pt); ok {
		return
	}
	if !pt.IsFunction() {
		if !types.IsClassType(pt, s.table.Builtins().Any) {
			s.errs = append(s.errs, diagnostics.NewError("argument type mismatch").
				WithCode(diagnostics.ErrArgumentTypeMismatch).
				WithPrimaryLabel(loc, "expected "+param.String()+", found a function literal"))
		}
		return
	}
	_, ps, _ := types.FunctionParts(pt)
	if len(l.Params) != len(ps) && !(len(l.Params) == 0 && len(ps) == 1) {
		s.errs = append(s.errs, diagnostics.NewError("argument type mismatch").
			WithCode(diagnostics.ErrArgumentTypeMismatch).
			WithPrimaryLabel(loc, fmt.Sprintf("expected a function literal with %d parameter(s)", len(ps))))
		return
	}
	for i, lp := range l.Params {
		if lp != nil {
			s.subtype(ps[i], lp, loc)
		}
	}
}

// expectedLambda returns the parameter and result types a function literal
// passed for param can rely on given the partial solution. Unknown parts
// are nil.
func (s *system) expectedLambda(param *types.Type, sol map[types.ID]*types.Type) ([]*types.Type, *types.Type) {
	pt := types.MakeNotNull(param)
	if !pt.IsFunction() {
		return nil, nil
	}
	_, ps, res := types.FunctionParts(pt)
	params := make([]*types.Type, len(ps))
	for i, p := range ps {
		if t := s.substitute(p, sol); !s.mentionsUnsolved(t, sol) {
			params[i] = t
		}
	}
	var result *types.Type
	if t := s.substitute(res, sol); !s.mentionsUnsolved(t, sol) {
		result = t
	}
	return params, result
}

func (s *system) substitute(t *types.Type, sol map[types.ID]*types.Type) *types.Type {
	if len(sol) == 0 || !s.mentionsVars(t) {
		return t
	}
	subst := make(types.Substitution, len(sol))
	for v, x := range sol {
		subst[v] = types.Inv(x)
	}
	return types.Substitute(s.table, t, subst)
}

func (s *system) mentionsUnsolved(t *types.Type, sol map[types.ID]*types.Type) bool {
	if !s.mentionsVars(t) {
		return false
	}
	open := make(map[types.ID]bool)
	for _, v := range s.vars {
		if _, ok := sol[v]; !ok {
			open[v] = true
		}
	}
	return types.Mentions(t, open)
}

// solve computes a type for every variable and records problems. Unless
// final, variables without bounds stay unsolved.
func (s *system) solve(final bool, loc *source.Location) map[types.ID]*types.Type {
	sol, errs := s.solution(final, loc)
	s.errs = append(s.errs, errs...)
	return sol
}

// solveQuiet returns the partial solution without recording anything.
func (s *system) solveQuiet() (map[types.ID]*types.Type, bool) {
	sol, errs := s.solution(false, nil)
	return sol, len(errs) == 0
}

func (s *system) solution(final bool, loc *source.Location) (map[types.ID]*types.Type, []*diagnostics.Diagnostic) {
	sol := make(map[types.ID]*types.Type, len(s.vars))
	for progress := true; progress; {
		progress = false
		for _, v := range s.vars {
			if _, done := sol[v]; done {
				continue
			}
			t, err := s.solveVar(v, sol, loc)
			if err != nil {
				return sol, []*diagnostics.Diagnostic{err}
			}
			if t != nil {
				sol[v] = t
				progress = true
			}
		}
	}
	var errs []*diagnostics.Diagnostic
	if final {
		for _, v := range s.vars {
			if _, ok := sol[v]; !ok {
				errs = append(errs, s.annotate(v, diagnostics.NewError("not enough information to infer type parameter "+s.table.Get(v).Name).
					WithCode(diagnostics.ErrNoInformationForParam).
					WithPrimaryLabel(loc, "specify the type arguments explicitly")))
			}
		}
		if len(errs) > 0 {
			return sol, errs
		}
	}
	return sol, s.verify(sol, loc)
}

// solveVar picks a type for v from the bounds that no longer mention
// unsolved variables: an exact bound wins, then the common supertype of the
// lower bounds, then the most specific upper bound.
func (s *system) solveVar(v types.ID, sol map[types.ID]*types.Type, loc *source.Location) (*types.Type, *diagnostics.Diagnostic) {
	var exact, lower, upper []*types.Type
	for _, b := range s.bounds[v] {
		t := s.substitute(b.t, sol)
		if s.mentionsUnsolved(t, sol) {
			continue
		}
		switch b.kind {
		case exactBound:
			exact = append(exact, t)
		case lowerBound:
			lower = append(lower, t)
		default:
			upper = append(upper, t)
		}
	}
	switch {
	case len(exact) > 0:
		for _, t := range exact[1:] {
			if !s.checker.Equal(t, exact[0]) {
				return nil, s.conflict(v, loc)
			}
		}
		return exact[0], nil
	case len(lower) > 0:
		return s.checker.CommonSupertype(lower), nil
	case len(upper) > 0:
	next:
		for _, u := range upper {
			for _, o := range upper {
				if !s.checker.IsSubtypeOf(u, o) {
					continue next
				}
			}
			return u, nil
		}
		return nil, s.conflict(v, loc)
	}
	return nil, nil
}

// verify checks every bound against the solution, then the declared upper
// bounds of the type parameters.
func (s *system) verify(sol map[types.ID]*types.Type, loc *source.Location) []*diagnostics.Diagnostic {
	for _, v := range s.vars {
		val, ok := sol[v]
		if !ok {
			continue
		}
		for _, b := range s.bounds[v] {
			t := s.substitute(b.t, sol)
			if s.mentionsUnsolved(t, sol) {
				continue
			}
			var holds bool
			switch b.kind {
			case exactBound:
				holds = s.checker.Equal(val, t)
			case lowerBound:
				holds = s.checker.IsSubtypeOf(t, val)
			default:
				holds = s.checker.IsSubtypeOf(val, t)
			}
			if !holds {
				return []*diagnostics.Diagnostic{s.conflict(v, loc)}
			}
		}
	}
	var errs []*diagnostics.Diagnostic
	for _, v := range s.vars {
		val, ok := sol[v]
		if !ok {
			continue
		}
		for _, b := range s.table.Get(v).TypeParam.Bounds {
			b = s.substitute(b, sol)
			if !s.mentionsUnsolved(b, sol) && !s.checker.IsSubtypeOf(val, b) {
				errs = append(errs, s.annotate(v, upperBoundViolated(s.table.Get(v).Name, val, b, loc)))
			}
		}
	}
	return errs
}

func (s *system) conflict(v types.ID, loc *source.Location) *diagnostics.Diagnostic {
	return s.annotate(v, diagnostics.NewError("conflicting substitutions for type parameter "+s.table.Get(v).Name).
		WithCode(diagnostics.ErrConflictingSubstitutions).
		WithPrimaryLabel(loc, "no type satisfies every constraint"))
}

// annotate attaches the bounds collected for v.
func (s *system) annotate(v types.ID, d *diagnostics.Diagnostic) *diagnostics.Diagnostic {
	name := s.table.Get(v).Name
	for _, b := range s.bounds[v] {
		d.WithNotef("%s %s %s", name, b.kind, b.t)
	}
	return d
}

func upperBoundViolated(name string, arg, bound *types.Type, loc *source.Location) *diagnostics.Diagnostic {
	return diagnostics.NewError("upper bound violated for type parameter "+name).
		WithCode(diagnostics.ErrUpperBoundViolated).
		WithPrimaryLabel(loc, fmt.Sprintf("%s is not a subtype of %s", arg, bound))
}
