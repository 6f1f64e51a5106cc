package calls

import (
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

type fixture struct {
	tab   *types.Table
	bt    *types.Builtins
	ch    *types.Checker
	store *binding.Store
	res   *Resolver
	b     *astbuild.B
	pkg   types.ID
}

func newFixture() *fixture {
	tab := types.NewTable()
	ch := types.NewChecker(tab)
	store := binding.NewStore(nil)
	return &fixture{
		tab:   tab,
		bt:    tab.Builtins(),
		ch:    ch,
		store: store,
		res:   New(ch, store, nil),
		b:     astbuild.New("calls.jet"),
		pkg:   tab.Package("app"),
	}
}

type param struct {
	name string
	t    *types.Type
	def  bool
}

func (f *fixture) fun(owner types.ID, name string) types.ID {
	id := f.tab.Add(&types.Descriptor{Kind: types.KindFunction, Name: name, Owner: owner, Func: &types.FuncInfo{}})
	f.tab.AddMember(owner, id)
	return id
}

func (f *fixture) typeParams(fn types.ID, names ...string) []*types.Type {
	var out []*types.Type
	d := f.tab.Get(fn)
	for i, n := range names {
		tp := f.tab.Add(&types.Descriptor{Kind: types.KindTypeParam, Name: n, Owner: fn, TypeParam: &types.TypeParamInfo{Index: i}})
		d.Func.TypeParams = append(d.Func.TypeParams, tp)
		out = append(out, f.tab.TypeParamType(tp))
	}
	return out
}

func (f *fixture) signature(fn types.ID, result *types.Type, ps ...param) {
	d := f.tab.Get(fn)
	d.Func.Result = result
	for i, p := range ps {
		id := f.tab.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  p.name,
			Owner: fn,
			Var:   &types.VarInfo{Storage: types.StorageParameter, Type: p.t, HasDefault: p.def, Index: i},
		})
		d.Func.Params = append(d.Func.Params, id)
	}
}

// simple declares a top-level non-generic function.
func (f *fixture) simple(name string, result *types.Type, ps ...param) types.ID {
	id := f.fun(f.pkg, name)
	f.signature(id, result, ps...)
	return id
}

func (f *fixture) request(name string, levels [][]Candidate, args ...Argument) *Request {
	loc := f.b.Loc()
	return &Request{Name: name, Loc: &loc, Levels: levels, Args: args}
}

func arg(t *types.Type) Argument            { return Argument{Type: t} }
func named(n string, t *types.Type) Argument { return Argument{Name: n, Type: t} }

func level(ids ...types.ID) [][]Candidate {
	var l []Candidate
	for _, id := range ids {
		l = append(l, Candidate{ID: id})
	}
	return [][]Candidate{l}
}

func (f *fixture) codes() []string {
	var out []string
	for _, d := range f.store.Bag().Sorted() {
		out = append(out, d.Code)
	}
	return out
}

func TestGenericIdentityInfersArgumentType(t *testing.T) {
	f := newFixture()
	id := f.fun(f.pkg, "identity")
	T := f.typeParams(id, "T")
	f.signature(id, T[0], param{name: "x", t: T[0]})

	call, ok := f.res.Resolve(f.request("identity", level(id), arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, id)
	be.True(t, f.ch.Equal(call.Result, f.bt.IntType))
	be.Equal(t, len(call.TypeArgs), 1)
	be.True(t, f.ch.Equal(call.TypeArgs[0], f.bt.IntType))
	be.Equal(t, len(f.store.Diagnostics()), 0)
}

func TestMostSpecificOverloadWins(t *testing.T) {
	f := newFixture()
	anyF := f.simple("f", f.bt.UnitType, param{name: "x", t: f.bt.AnyType})
	strF := f.simple("f", f.bt.UnitType, param{name: "x", t: f.bt.StringType})

	tests := []struct {
		arg  *types.Type
		want types.ID
	}{
		{f.bt.StringType, strF},
		{f.bt.IntType, anyF},
	}
	for _, tc := range tests {
		t.Run(tc.arg.String(), func(t *testing.T) {
			call, ok := f.res.Resolve(f.request("f", level(anyF, strF), arg(tc.arg)))
			be.True(t, ok)
			be.Equal(t, call.ID, tc.want)
		})
	}
	be.Equal(t, len(f.store.Diagnostics()), 0)
}

func TestNonGenericBeatsGeneric(t *testing.T) {
	f := newFixture()
	gen := f.fun(f.pkg, "show")
	T := f.typeParams(gen, "T")
	f.signature(gen, f.bt.UnitType, param{name: "x", t: T[0]})
	plain := f.simple("show", f.bt.UnitType, param{name: "x", t: f.bt.IntType})

	call, ok := f.res.Resolve(f.request("show", level(gen, plain), arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, plain)
}

func TestDefaultsLoseTies(t *testing.T) {
	f := newFixture()
	withDefault := f.simple("g", f.bt.UnitType, param{name: "a", t: f.bt.IntType}, param{name: "b", t: f.bt.IntType, def: true})
	exact := f.simple("g", f.bt.UnitType, param{name: "a", t: f.bt.IntType})

	call, ok := f.res.Resolve(f.request("g", level(withDefault, exact), arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, exact)
}

func TestAmbiguousCall(t *testing.T) {
	f := newFixture()
	a := f.simple("f", f.bt.UnitType, param{name: "a", t: f.bt.IntType}, param{name: "b", t: f.bt.AnyType})
	b := f.simple("f", f.bt.UnitType, param{name: "a", t: f.bt.AnyType}, param{name: "b", t: f.bt.IntType})

	call, ok := f.res.Resolve(f.request("f", level(a, b), arg(f.bt.IntType), arg(f.bt.IntType)))

	be.True(t, !ok)
	be.True(t, call == nil)
	be.Equal(t, f.codes(), []string{diagnostics.ErrAmbiguousCall})
	be.Equal(t, len(f.store.Bag().Diagnostics()[0].Notes), 2)
}

func TestInnerLevelShadowsOuter(t *testing.T) {
	f := newFixture()
	inner := f.simple("g", f.bt.UnitType, param{name: "x", t: f.bt.AnyType})
	outer := f.simple("g", f.bt.UnitType, param{name: "x", t: f.bt.IntType})
	levels := [][]Candidate{{{ID: inner}}, {{ID: outer}}}

	call, ok := f.res.Resolve(f.request("g", levels, arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, inner)
}

func TestOuterLevelUsedWhenInnerInapplicable(t *testing.T) {
	f := newFixture()
	inner := f.simple("g", f.bt.UnitType, param{name: "x", t: f.bt.StringType})
	outer := f.simple("g", f.bt.UnitType, param{name: "x", t: f.bt.IntType})
	levels := [][]Candidate{{{ID: inner}}, {{ID: outer}}}

	call, ok := f.res.Resolve(f.request("g", levels, arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, outer)
}

func TestArgumentMapping(t *testing.T) {
	tests := []struct {
		name  string
		args  func(f *fixture) []Argument
		argOf []int
		code  string
	}{
		{"positional", func(f *fixture) []Argument { return []Argument{arg(f.bt.IntType), arg(f.bt.IntType)} }, []int{0, 1}, ""},
		{"named reversed", func(f *fixture) []Argument {
			return []Argument{named("b", f.bt.IntType), named("a", f.bt.IntType)}
		}, []int{1, 0}, ""},
		{"default", func(f *fixture) []Argument { return []Argument{arg(f.bt.IntType)} }, []int{0, -1}, ""},
		{"unknown name", func(f *fixture) []Argument { return []Argument{named("c", f.bt.IntType)} }, nil, diagnostics.ErrNamedArgumentNotFound},
		{"passed twice", func(f *fixture) []Argument {
			return []Argument{named("a", f.bt.IntType), named("a", f.bt.IntType)}
		}, nil, diagnostics.ErrArgumentPassedTwice},
		{"positional after named", func(f *fixture) []Argument {
			return []Argument{named("a", f.bt.IntType), arg(f.bt.IntType)}
		}, nil, diagnostics.ErrNamedArgumentNotFound},
		{"too many", func(f *fixture) []Argument {
			return []Argument{arg(f.bt.IntType), arg(f.bt.IntType), arg(f.bt.IntType)}
		}, nil, diagnostics.ErrWrongArgumentCount},
		{"missing", func(f *fixture) []Argument { return nil }, nil, diagnostics.ErrNoValueForParameter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			h := f.simple("h", f.bt.UnitType, param{name: "a", t: f.bt.IntType}, param{name: "b", t: f.bt.IntType, def: true})

			call, ok := f.res.Resolve(f.request("h", level(h), tc.args(f)...))

			if tc.code == "" {
				be.True(t, ok)
				be.Equal(t, call.ArgOf, tc.argOf)
				be.Equal(t, call.UsesDefault(1), tc.argOf[1] < 0)
				return
			}
			be.True(t, !ok)
			be.Equal(t, f.codes()[0], tc.code)
		})
	}
}

func TestArgumentTypeMismatch(t *testing.T) {
	f := newFixture()
	h := f.simple("h", f.bt.UnitType, param{name: "x", t: f.bt.IntType})

	_, ok := f.res.Resolve(f.request("h", level(h), arg(f.bt.StringType)))

	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrArgumentTypeMismatch})
}

func TestNullableArgumentRejected(t *testing.T) {
	f := newFixture()
	h := f.simple("h", f.bt.UnitType, param{name: "x", t: f.bt.StringType})

	_, ok := f.res.Resolve(f.request("h", level(h), arg(types.MakeNullable(f.bt.StringType))))

	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrArgumentTypeMismatch})
}

func TestNoApplicableCandidateListsEveryOverload(t *testing.T) {
	f := newFixture()
	a := f.simple("f", f.bt.UnitType, param{name: "x", t: f.bt.IntType})
	b := f.simple("f", f.bt.UnitType, param{name: "x", t: f.bt.StringType})

	_, ok := f.res.Resolve(f.request("f", level(a, b), arg(f.bt.BooleanType)))

	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrNoApplicableCandidate})
	be.Equal(t, len(f.store.Bag().Diagnostics()[0].Notes), 2)
}

func TestUnresolvedWithoutCandidates(t *testing.T) {
	f := newFixture()

	_, ok := f.res.Resolve(f.request("nothing", nil))

	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrUnresolvedReference})
}

func TestInferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) *Request
		code  string
	}{
		{"conflicting substitutions", func(f *fixture) *Request {
			id := f.fun(f.pkg, "same")
			T := f.typeParams(id, "T")
			f.signature(id, f.bt.UnitType,
				param{name: "a", t: f.tab.ClassType(f.bt.Array, T[0])},
				param{name: "b", t: f.tab.ClassType(f.bt.Array, T[0])})
			return f.request("same", level(id),
				arg(f.tab.ClassType(f.bt.Array, f.bt.IntType)),
				arg(f.tab.ClassType(f.bt.Array, f.bt.StringType)))
		}, diagnostics.ErrConflictingSubstitutions},
		{"no information", func(f *fixture) *Request {
			id := f.fun(f.pkg, "make")
			T := f.typeParams(id, "T")
			f.signature(id, T[0])
			return f.request("make", level(id))
		}, diagnostics.ErrNoInformationForParam},
		{"upper bound", func(f *fixture) *Request {
			id := f.fun(f.pkg, "num")
			T := f.typeParams(id, "T")
			f.tab.Get(T[0].Decl()).TypeParam.Bounds = []*types.Type{f.bt.NumberType}
			f.signature(id, T[0], param{name: "x", t: T[0]})
			return f.request("num", level(id), arg(f.bt.StringType))
		}, diagnostics.ErrUpperBoundViolated},
		{"constructor mismatch", func(f *fixture) *Request {
			id := f.fun(f.pkg, "first")
			T := f.typeParams(id, "T")
			f.signature(id, T[0], param{name: "a", t: f.tab.ClassType(f.bt.Array, T[0])})
			return f.request("first", level(id), arg(f.bt.StringType))
		}, diagnostics.ErrTypeConstructorMismatch},
		{"type argument count", func(f *fixture) *Request {
			id := f.fun(f.pkg, "identity")
			T := f.typeParams(id, "T")
			f.signature(id, T[0], param{name: "x", t: T[0]})
			req := f.request("identity", level(id), arg(f.bt.IntType))
			req.TypeArgs = []*types.Type{f.bt.IntType, f.bt.IntType}
			return req
		}, diagnostics.ErrWrongTypeArgumentCount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()

			_, ok := f.res.Resolve(tc.setup(f))

			be.True(t, !ok)
			be.Equal(t, f.codes(), []string{tc.code})
		})
	}
}

func TestConflictNotesListBounds(t *testing.T) {
	f := newFixture()
	id := f.fun(f.pkg, "same")
	T := f.typeParams(id, "T")
	arr := f.tab.ClassType(f.bt.Array, T[0])
	f.signature(id, f.bt.UnitType, param{name: "a", t: arr}, param{name: "b", t: arr})

	f.res.Resolve(f.request("same", level(id),
		arg(f.tab.ClassType(f.bt.Array, f.bt.IntType)),
		arg(f.tab.ClassType(f.bt.Array, f.bt.StringType))))

	d := f.store.Bag().Diagnostics()[0]
	be.Equal(t, len(d.Notes), 2)
	be.Equal(t, d.Notes[0].Message, "T == Int")
	be.Equal(t, d.Notes[1].Message, "T == String")
}

func TestExpectedTypeGuidesInference(t *testing.T) {
	f := newFixture()
	mk := f.fun(f.pkg, "make")
	T := f.typeParams(mk, "T")
	f.signature(mk, T[0])

	req := f.request("make", level(mk))
	req.Expected = f.bt.StringType
	call, ok := f.res.Resolve(req)

	be.True(t, ok)
	be.True(t, f.ch.Equal(call.Result, f.bt.StringType))
}

func TestIncompatibleExpectedTypeIsIgnored(t *testing.T) {
	f := newFixture()
	id := f.fun(f.pkg, "identity")
	T := f.typeParams(id, "T")
	f.signature(id, T[0], param{name: "x", t: T[0]})

	req := f.request("identity", level(id), arg(f.bt.IntType))
	req.Expected = f.bt.StringType
	call, ok := f.res.Resolve(req)

	be.True(t, ok)
	be.True(t, f.ch.Equal(call.Result, f.bt.IntType))
	be.Equal(t, len(f.store.Diagnostics()), 0)
}

func TestArrayOfNullsTakesElementFromExpectedType(t *testing.T) {
	f := newFixture()
	want := f.tab.ClassType(f.bt.Array, types.MakeNullable(f.bt.StringType))

	req := f.request("arrayOfNulls", level(f.bt.ArrayOfNulls), arg(f.bt.IntType))
	req.Expected = want
	call, ok := f.res.Resolve(req)

	be.True(t, ok)
	be.True(t, f.ch.Equal(call.Result, want))
	be.True(t, f.ch.Equal(call.TypeArgs[0], f.bt.StringType))
}

func TestExplicitTypeArguments(t *testing.T) {
	f := newFixture()
	id := f.fun(f.pkg, "identity")
	T := f.typeParams(id, "T")
	f.signature(id, T[0], param{name: "x", t: T[0]})

	req := f.request("identity", level(id), arg(f.bt.IntType))
	req.TypeArgs = []*types.Type{f.bt.AnyType}
	call, ok := f.res.Resolve(req)
	be.True(t, ok)
	be.True(t, f.ch.Equal(call.Result, f.bt.AnyType))

	req = f.request("identity", level(id), arg(f.bt.IntType))
	req.TypeArgs = []*types.Type{f.bt.StringType}
	_, ok = f.res.Resolve(req)
	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrArgumentTypeMismatch})
}

func TestLambdaArgumentTakesParameterTypes(t *testing.T) {
	f := newFixture()
	apply := f.fun(f.pkg, "apply")
	tps := f.typeParams(apply, "T", "R")
	T, R := tps[0], tps[1]
	f.signature(apply, R,
		param{name: "x", t: T},
		param{name: "f", t: types.FunctionType(nil, []*types.Type{T}, R)})

	var seen []*types.Type
	lambda := &Lambda{Type: func(params []*types.Type, result *types.Type) *types.Type {
		seen = params
		be.True(t, result == nil)
		return types.FunctionType(nil, params, f.bt.StringType)
	}}
	call, ok := f.res.Resolve(f.request("apply", level(apply), arg(f.bt.IntType), Argument{Lambda: lambda}))

	be.True(t, ok)
	be.Equal(t, len(seen), 1)
	be.True(t, f.ch.Equal(seen[0], f.bt.IntType))
	be.True(t, f.ch.Equal(call.Result, f.bt.StringType))
}

func TestLambdaArityMismatch(t *testing.T) {
	f := newFixture()
	run := f.simple("run", f.bt.UnitType,
		param{name: "f", t: types.FunctionType(nil, []*types.Type{f.bt.IntType, f.bt.IntType}, f.bt.UnitType)})
	lambda := &Lambda{Params: []*types.Type{f.bt.IntType}, Type: func([]*types.Type, *types.Type) *types.Type {
		t.Fatal("an inapplicable literal must not be typed")
		return nil
	}}

	_, ok := f.res.Resolve(f.request("run", level(run), Argument{Lambda: lambda}))

	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrArgumentTypeMismatch})
}

func TestMemberCallSeesReceiverArguments(t *testing.T) {
	f := newFixture()
	recv := f.tab.ClassType(f.bt.Array, f.bt.StringType)

	call, ok := f.res.Resolve(f.request("get", f.res.MemberLevels(nil, recv, "get"), arg(f.bt.IntType)))

	be.True(t, ok)
	be.True(t, f.ch.Equal(call.Result, f.bt.StringType))
	be.True(t, f.ch.Equal(call.Receiver, recv))
	be.True(t, !call.Implicit)
}

func TestInvokeFunctionTypedVariable(t *testing.T) {
	f := newFixture()
	fnType := types.FunctionType(nil, []*types.Type{f.bt.IntType}, f.bt.StringType)
	v := f.tab.Add(&types.Descriptor{
		Kind:  types.KindVariable,
		Name:  "v",
		Owner: f.pkg,
		Var:   &types.VarInfo{Storage: types.StorageLocal, Type: fnType},
	})
	sc := table.NewScope(nil, table.ScopeBlock, f.pkg)
	be.Err(t, sc.DeclareVar("v", v), nil)

	call, ok := f.res.Resolve(f.request("v", f.res.ImplicitLevels(sc, "v"), arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, call.ID, v)
	be.True(t, call.Invoke != nil)
	be.True(t, f.ch.Equal(call.Result, f.bt.StringType))
}

func TestImplicitReceiverMembers(t *testing.T) {
	f := newFixture()
	cls := f.tab.Add(&types.Descriptor{Kind: types.KindClass, Name: "Box", Owner: f.pkg, Class: &types.ClassInfo{}})
	f.tab.Get(cls).Class.Supertypes = []*types.Type{f.bt.AnyType}
	m := f.fun(cls, "size")
	f.signature(m, f.bt.IntType)

	fileScope := table.NewScope(nil, table.ScopeFile, f.pkg)
	classScope := table.NewScope(fileScope, table.ScopeClass, cls)
	classScope.Receiver = f.tab.DefaultType(cls)
	body := table.NewScope(classScope, table.ScopeBlock, m)

	call, ok := f.res.Resolve(f.request("size", f.res.ImplicitLevels(body, "size")))

	be.True(t, ok)
	be.Equal(t, call.ID, m)
	be.True(t, call.Implicit)
}

func TestExtensionFunctions(t *testing.T) {
	f := newFixture()
	twice := f.simple("twice", f.bt.IntType)
	f.tab.Get(twice).Func.Receiver = f.bt.IntType
	sc := table.NewScope(nil, table.ScopeFile, f.pkg)
	sc.DeclareFun("twice", twice)

	call, ok := f.res.Resolve(f.request("twice", f.res.MemberLevels(sc, f.bt.IntType, "twice")))
	be.True(t, ok)
	be.Equal(t, call.ID, twice)
	be.True(t, f.ch.Equal(call.Extension, f.bt.IntType))

	_, ok = f.res.Resolve(f.request("twice", f.res.MemberLevels(sc, f.bt.StringType, "twice")))
	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrArgumentTypeMismatch})

	// an extension is not callable without a receiver
	be.Equal(t, len(f.res.ImplicitLevels(sc, "twice")), 0)
}

func TestConstructorCandidates(t *testing.T) {
	f := newFixture()
	sc := table.NewScope(nil, table.ScopeFile, f.pkg)
	be.Err(t, sc.DeclareClassifier("IntRange", f.bt.IntRange), nil)

	call, ok := f.res.Resolve(f.request("IntRange", f.res.ImplicitLevels(sc, "IntRange"), arg(f.bt.IntType), arg(f.bt.IntType)))

	be.True(t, ok)
	be.Equal(t, f.tab.Get(call.ID).Kind, types.KindConstructor)
	be.True(t, f.ch.Equal(call.Result, f.tab.ClassType(f.bt.IntRange)))
}

func TestPrivateMembersAreInvisibleOutsideTheirClass(t *testing.T) {
	f := newFixture()
	cls := f.tab.Add(&types.Descriptor{Kind: types.KindClass, Name: "Vault", Owner: f.pkg, Class: &types.ClassInfo{}})
	secret := f.fun(cls, "secret")
	f.signature(secret, f.bt.IntType)
	f.tab.Get(secret).Visibility = types.Private
	inside := f.fun(cls, "open")
	outside := f.simple("peek", f.bt.UnitType)

	req := f.request("secret", level(secret))
	req.From = inside
	_, ok := f.res.Resolve(req)
	be.True(t, ok)

	req = f.request("secret", level(secret))
	req.From = outside
	_, ok = f.res.Resolve(req)
	be.True(t, !ok)
	be.Equal(t, f.codes(), []string{diagnostics.ErrInvisibleMember})
}

func TestResolvedCallIsRecorded(t *testing.T) {
	f := newFixture()
	h := f.simple("h", f.bt.UnitType)
	node := f.b.Call("h")

	req := f.request("h", level(h))
	req.Node = node
	call, ok := f.res.Resolve(req)

	be.True(t, ok)
	got, found := binding.Get(f.store, ResolvedCall, ast.Node(node))
	be.True(t, found)
	be.Equal(t, got, call)
}
