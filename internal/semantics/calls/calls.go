// Package calls resolves a call expression against its candidate
// declarations: it maps arguments to parameters, infers type arguments with
// a small constraint system and picks the most specific applicable
// candidate of the innermost level that has one.
package calls

import (
	"fmt"
	"strings"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/source"
	"jetc/internal/types"
)

// ResolvedCall records the outcome of every successfully resolved call.
var ResolvedCall = binding.NewSlice[*Call]("RESOLVED_CALL")

// Candidate is one declaration a call may refer to.
type Candidate struct {
	ID       types.ID           // function, constructor or function-typed variable; NoID to invoke an expression
	Subst    types.Substitution // the owner's type parameters seen through Receiver
	Receiver *types.Type        // dispatch receiver of a member candidate
	Implicit bool               // the receiver is an implicit `this`

	// Extension is the receiver argument of an extension function candidate.
	Extension *types.Type

	// Invoke is the function type of a variable or expression that is called.
	Invoke *types.Type
}

// Lambda is a function literal argument. Its body is typed once the callee
// is known, so the literal can take its parameter types from the callee.
type Lambda struct {
	Params []*types.Type // declared parameter types, nil where omitted

	// Type types the literal against the expected parameter types (nil
	// entries are unknown) and expected result (nil when unknown) and returns
	// the literal's function type.
	Type func(params []*types.Type, result *types.Type) *types.Type
}

// Argument of a call. Exactly one of Type and Lambda is set.
type Argument struct {
	Name   string
	Type   *types.Type
	Lambda *Lambda
	Node   ast.Node
}

// Request describes one call to resolve.
type Request struct {
	Name     string
	Node     ast.Node // the call expression; the resolved call is recorded on it
	Loc      *source.Location
	From     types.ID      // declaration containing the call, for visibility
	Levels   [][]Candidate // innermost level first
	TypeArgs []*types.Type // explicit type arguments
	Args     []Argument
	Expected *types.Type // expected type of the call, nil when unknown
}

// Call is a resolved call.
type Call struct {
	Candidate
	TypeArgs []*types.Type // aligned with the callee's type parameters
	Params   []*types.Type // parameter types after substitution
	ArgOf    []int         // argument index per parameter, -1 when the default is used
	Result   *types.Type
}

// UsesDefault reports whether parameter i takes its default value.
func (c *Call) UsesDefault(i int) bool { return c.ArgOf[i] < 0 }

// Signatures supplies declared types that may still need inference, e.g. the
// result of a function whose body has not been typed yet.
type Signatures interface {
	VariableType(id types.ID) *types.Type
	ResultType(id types.ID) *types.Type
}

type declared struct{ table *types.Table }

func (d declared) VariableType(id types.ID) *types.Type { return d.table.Get(id).Var.Type }
func (d declared) ResultType(id types.ID) *types.Type   { return d.table.Get(id).Func.Result }

// Resolver resolves calls of one compilation.
type Resolver struct {
	table   *types.Table
	checker *types.Checker
	store   *binding.Store
	sigs    Signatures
}

// New creates a resolver. sigs may be nil when every declaration carries its
// type already.
func New(checker *types.Checker, store *binding.Store, sigs Signatures) *Resolver {
	r := &Resolver{table: checker.Table(), checker: checker, store: store, sigs: sigs}
	if r.sigs == nil {
		r.sigs = declared{r.table}
	}
	return r
}

// Resolve picks the callee of req and infers its type arguments. Problems are
// reported to the store. The returned call is non-nil whenever a single
// candidate was chosen; ok is false if its inference failed.
func (r *Resolver) Resolve(req *Request) (call *Call, ok bool) {
	var tried []*attempt
	for _, level := range req.Levels {
		var applicable []*attempt
		for _, c := range level {
			a := r.try(c, req)
			tried = append(tried, a)
			if len(a.errs) == 0 {
				applicable = append(applicable, a)
			}
		}
		if len(applicable) == 0 {
			continue
		}
		best := r.mostSpecific(applicable)
		if len(best) > 1 {
			r.reportAmbiguity(req, best)
			return nil, false
		}
		call, ok = r.complete(best[0], req)
		if req.Node != nil {
			binding.MustRecord(r.store, ResolvedCall, req.Node, call)
		}
		return call, ok
	}
	r.reportFailure(req, tried)
	return nil, false
}

// signature is a candidate's shape with fresh inference variables.
type signature struct {
	typeParams []types.ID // declared
	vars       []types.ID // fresh, aligned with typeParams
	params     []*types.Type
	names      []string
	defaults   []bool
	receiver   *types.Type
	result     *types.Type
}

type attempt struct {
	cand  Candidate
	sig   *signature
	argOf []int
	sys   *system
	errs  []*diagnostics.Diagnostic
}

func (a *attempt) usesDefaults() bool {
	for _, k := range a.argOf {
		if k < 0 {
			return true
		}
	}
	return false
}

func (r *Resolver) signature(c Candidate) *signature {
	if c.Invoke != nil {
		recv, ps, res := types.FunctionParts(types.MakeNotNull(c.Invoke))
		if recv != nil {
			ps = append([]*types.Type{recv}, ps...)
		}
		return &signature{
			params:   ps,
			names:    make([]string, len(ps)),
			defaults: make([]bool, len(ps)),
			result:   res,
		}
	}
	d := r.table.Get(c.ID)
	s := &signature{
		typeParams: d.Func.TypeParams,
		receiver:   d.Func.Receiver,
		result:     r.sigs.ResultType(c.ID),
	}
	for _, p := range d.Func.Params {
		pd := r.table.Get(p)
		s.params = append(s.params, r.sigs.VariableType(p))
		s.names = append(s.names, pd.Name)
		s.defaults = append(s.defaults, pd.Var.HasDefault)
	}
	if d.Kind == types.KindConstructor {
		s.result = r.table.DefaultType(d.Owner)
	}
	if len(c.Subst) > 0 {
		s.apply(r.table, c.Subst)
	}
	return s
}

func (s *signature) apply(tab *types.Table, subst types.Substitution) {
	s.params = types.SubstituteAll(tab, s.params, subst)
	if s.receiver != nil {
		s.receiver = types.Substitute(tab, s.receiver, subst)
	}
	if s.result != nil {
		s.result = types.Substitute(tab, s.result, subst)
	}
}

// freshen replaces the declared type parameters by new descriptors so that
// a generic function calling itself does not confuse its own parameters with
// the variables being inferred.
func (r *Resolver) freshen(s *signature) {
	if len(s.typeParams) == 0 {
		return
	}
	subst := make(types.Substitution, len(s.typeParams))
	s.vars = make([]types.ID, len(s.typeParams))
	for i, tp := range s.typeParams {
		d := r.table.Get(tp)
		s.vars[i] = r.table.Add(&types.Descriptor{
			Kind:      types.KindTypeParam,
			Name:      d.Name,
			Owner:     d.Owner,
			TypeParam: &types.TypeParamInfo{Variance: d.TypeParam.Variance, Index: d.TypeParam.Index},
		})
		subst[tp] = types.Inv(r.table.TypeParamType(s.vars[i]))
	}
	for i, tp := range s.typeParams {
		bounds := types.SubstituteAll(r.table, r.table.Get(tp).TypeParam.Bounds, subst)
		r.table.Update(s.vars[i], func(d *types.Descriptor) { d.TypeParam.Bounds = bounds })
	}
	s.apply(r.table, subst)
}

func (r *Resolver) try(c Candidate, req *Request) *attempt {
	a := &attempt{cand: c}
	if c.ID != types.NoID && !r.Visible(c.ID, req.From) {
		a.errs = append(a.errs, Invisible(r.table, c.ID, req.Loc))
		return a
	}
	a.sig = r.signature(c)

	if len(req.TypeArgs) > 0 {
		if len(req.TypeArgs) != len(a.sig.typeParams) {
			a.errs = append(a.errs, diagnostics.NewError("wrong number of type arguments").
				WithCode(diagnostics.ErrWrongTypeArgumentCount).
				WithPrimaryLabel(req.Loc, fmt.Sprintf("expected %d type argument(s), found %d", len(a.sig.typeParams), len(req.TypeArgs))))
			return a
		}
		a.sig.apply(r.table, types.Of(a.sig.typeParams, req.TypeArgs))
		a.errs = append(a.errs, r.checkBounds(a.sig.typeParams, req.TypeArgs, types.Of(a.sig.typeParams, req.TypeArgs), req.Loc)...)
		if len(a.errs) > 0 {
			return a
		}
	} else {
		r.freshen(a.sig)
	}

	a.argOf, a.errs = mapArguments(a.sig, req)
	if len(a.errs) > 0 {
		return a
	}

	a.sys = newSystem(r.checker, a.sig.vars)
	if a.sig.receiver != nil {
		if c.Extension == nil {
			a.errs = append(a.errs, diagnostics.NewError("extension function called without a receiver").
				WithCode(diagnostics.ErrNoApplicableCandidate).
				WithPrimaryLabel(req.Loc, req.Name+" needs a receiver of type "+a.sig.receiver.String()))
			return a
		}
		a.sys.subtype(c.Extension, a.sig.receiver, req.Loc)
	}
	for i, k := range a.argOf {
		if k < 0 {
			continue
		}
		arg := req.Args[k]
		loc := argLoc(arg, req)
		if arg.Lambda != nil {
			a.sys.lambdaShape(arg.Lambda, a.sig.params[i], loc)
			continue
		}
		a.sys.subtype(arg.Type, a.sig.params[i], loc)
	}
	if len(a.sys.errs) == 0 {
		a.sys.solve(false, req.Loc)
	}
	a.errs = append(a.errs, a.sys.errs...)
	return a
}

// complete adds the expected type, types the function literal arguments and
// solves the final system of the chosen candidate.
func (r *Resolver) complete(a *attempt, req *Request) (*Call, bool) {
	if req.Expected != nil && a.sig.result != nil && len(a.sig.vars) > 0 {
		trial := a.sys.clone()
		trial.subtype(a.sig.result, req.Expected, req.Loc)
		if len(trial.errs) == 0 {
			if trial.solve(false, req.Loc); len(trial.errs) == 0 {
				a.sys = trial
			}
		}
	}

	for i, k := range a.argOf {
		if k < 0 || req.Args[k].Lambda == nil {
			continue
		}
		partial, _ := a.sys.clone().solveQuiet()
		params, result := a.sys.expectedLambda(a.sig.params[i], partial)
		lt := req.Args[k].Lambda.Type(params, result)
		if lt != nil {
			a.sys.subtype(lt, a.sig.params[i], argLoc(req.Args[k], req))
		}
	}

	var sol map[types.ID]*types.Type
	if len(a.sys.errs) == 0 {
		sol = a.sys.solve(true, req.Loc)
	}
	ok := len(a.sys.errs) == 0
	for _, d := range a.sys.errs {
		r.store.Report(d)
	}

	call := &Call{Candidate: a.cand, ArgOf: a.argOf}
	subst := make(types.Substitution, len(a.sig.vars))
	for _, v := range a.sig.vars {
		t := sol[v]
		if t == nil {
			t = types.ErrorType()
		}
		subst[v] = types.Inv(t)
		call.TypeArgs = append(call.TypeArgs, t)
	}
	if len(req.TypeArgs) > 0 {
		call.TypeArgs = req.TypeArgs
	}
	call.Params = types.SubstituteAll(r.table, a.sig.params, subst)
	if a.sig.result != nil {
		call.Result = types.Substitute(r.table, a.sig.result, subst)
	}
	return call, ok
}

func (r *Resolver) checkBounds(params []types.ID, args []*types.Type, subst types.Substitution, loc *source.Location) []*diagnostics.Diagnostic {
	var errs []*diagnostics.Diagnostic
	for i, tp := range params {
		for _, b := range r.table.Get(tp).TypeParam.Bounds {
			b = types.Substitute(r.table, b, subst)
			if !r.checker.IsSubtypeOf(args[i], b) {
				errs = append(errs, upperBoundViolated(r.table.Get(tp).Name, args[i], b, loc))
			}
		}
	}
	return errs
}

// Visible reports whether id may be used from the declaration from.
func (r *Resolver) Visible(id, from types.ID) bool {
	if from == types.NoID {
		return true
	}
	d := r.table.Get(id)
	switch d.Visibility {
	case types.Private:
		owner := r.table.EnclosingClassOrFacade(d.Owner)
		for x := from; x != types.NoID; x = r.table.Get(x).Owner {
			if x == owner {
				return true
			}
		}
		return false
	case types.Protected:
		cls := r.table.EnclosingClassOrFacade(d.Owner)
		for x := r.table.EnclosingClassOrFacade(from); x != types.NoID; x = r.table.EnclosingClass(x) {
			if r.table.Get(x).Kind == types.KindClass && r.table.IsSubclassOf(x, cls) {
				return true
			}
		}
		return false
	}
	return true
}

func argLoc(a Argument, req *Request) *source.Location {
	if a.Node != nil {
		return a.Node.Loc()
	}
	return req.Loc
}

// Invisible reports a use of id that Visible rejected.
func Invisible(tab *types.Table, id types.ID, loc *source.Location) *diagnostics.Diagnostic {
	d := tab.Get(id)
	return diagnostics.NewError("cannot access '"+d.Name+"'").
		WithCode(diagnostics.ErrInvisibleMember).
		WithPrimaryLabel(loc, "it is "+d.Visibility.String()+" in "+tab.QualifiedName(d.Owner))
}

func (r *Resolver) describe(a *attempt) string {
	var sb strings.Builder
	if a.cand.ID == types.NoID {
		sb.WriteString("invoke")
	} else {
		sb.WriteString(r.table.QualifiedName(a.cand.ID))
	}
	sb.WriteString("(")
	if a.sig != nil {
		for i, p := range a.sig.params {
			if i > 0 {
				sb.WriteString(", ")
			}
			if a.sig.names[i] != "" {
				sb.WriteString(a.sig.names[i] + ": ")
			}
			sb.WriteString(p.String())
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (r *Resolver) reportFailure(req *Request, tried []*attempt) {
	switch len(tried) {
	case 0:
		r.store.Report(diagnostics.UnresolvedReference(req.Loc, req.Name))
	case 1:
		for _, d := range tried[0].errs {
			r.store.Report(d)
		}
	default:
		d := diagnostics.NewError("none of the candidates for '"+req.Name+"' is applicable").
			WithCode(diagnostics.ErrNoApplicableCandidate).
			WithPrimaryLabel(req.Loc, "no applicable overload")
		for _, a := range tried {
			reason := "not applicable"
			if len(a.errs) > 0 {
				reason = a.errs[0].Message
			}
			d.WithNotef("%s: %s", r.describe(a), reason)
		}
		r.store.Report(d)
	}
}

func (r *Resolver) reportAmbiguity(req *Request, best []*attempt) {
	d := diagnostics.NewError("overload resolution ambiguity for '"+req.Name+"'").
		WithCode(diagnostics.ErrAmbiguousCall).
		WithPrimaryLabel(req.Loc, "more than one candidate is equally specific")
	for _, a := range best {
		d.WithNote(r.describe(a))
	}
	r.store.Report(d)
}
