package cfganalyzer

import (
	"sort"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/controlflow"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// fixture binds the names of one function the way the type checker would:
// every local and parameter gets a descriptor and every name expression a
// reference to the nearest preceding declaration of that name.
type fixture struct {
	tab   *types.Table
	store *binding.Store
	owner ast.Node
}

func newFixture(owner *ast.FunDecl, returnsInt bool) *fixture {
	tab := types.NewTable()
	store := binding.NewStore(nil)
	pkg := tab.Package("test")
	unit := tab.Builtins().UnitType
	result := unit
	if returnsInt {
		result = tab.Builtins().IntType
	}
	names := map[string]types.ID{}
	variable := func(n ast.Node, name *ast.Ident, mutable bool, st types.Storage) {
		id := tab.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  name.Name,
			Owner: pkg,
			Loc:   name.Loc(),
			Decl:  n,
			Var:   &types.VarInfo{Mutable: mutable, Storage: st, Type: tab.Builtins().IntType},
		})
		binding.MustRecord(store, binding.Declaration, n, id)
		names[name.Name] = id
	}
	ast.Inspect(owner, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FunDecl:
			res := unit
			if n == owner {
				res = result
			}
			id := tab.Add(&types.Descriptor{Kind: types.KindFunction, Name: n.Name.Name, Owner: pkg, Decl: n, Func: &types.FuncInfo{Result: res}})
			binding.MustRecord(store, binding.Declaration, ast.Node(n), id)
		case *ast.PropertyDecl:
			variable(n, n.Name, n.Var, types.StorageLocal)
		case *ast.Param:
			variable(n, n.Name, false, types.StorageParameter)
		case *ast.NameExpr:
			if id, ok := names[n.Name]; ok {
				binding.MustRecord(store, binding.Reference, ast.Node(n), id)
			}
		}
		return true
	})
	return &fixture{tab: tab, store: store, owner: owner}
}

func (f *fixture) run() []string {
	pc := controlflow.NewBuilder(f.store).Build(f.owner)
	New(f.tab, f.store).Analyze(pc)
	var out []string
	for _, d := range f.store.Diagnostics() {
		out = append(out, d.Code)
	}
	sort.Strings(out)
	return out
}

func analyze(fn *ast.FunDecl, returnsInt bool) []string {
	return newFixture(fn, returnsInt).run()
}

func params(b *astbuild.B, names ...string) []*ast.Param {
	var out []*ast.Param
	for _, n := range names {
		out = append(out, b.Param(n, b.Type("Int")))
	}
	return out
}

func TestUnreachableAfterReturn(t *testing.T) {
	b := astbuild.New("dead.jet")
	dead := b.Call("println", b.Int(2))
	fn := b.Fun("f", nil, b.Type("Int"), b.Return(b.Int(1)), dead)
	fx := newFixture(fn, true)
	be.Equal(t, fx.run(), []string{diagnostics.WarnUnreachableCode})
	be.Equal(t, fx.store.Diagnostics()[0].Location(), dead.Loc())
}

func TestUnreachableAfterInfiniteLoop(t *testing.T) {
	b := astbuild.New("loop.jet")
	fn := b.Fun("f", nil, nil,
		b.While(b.Bool(true), b.Call("tick")),
		b.Call("println", b.Int(1)))
	be.Equal(t, analyze(fn, false), []string{diagnostics.WarnUnreachableCode})
}

func TestIfWithReturningBranchesIsNotDead(t *testing.T) {
	b := astbuild.New("if.jet")
	fn := b.Fun("f", params(b, "c"), b.Type("Int"),
		b.If(b.Name("c"), b.Return(b.Int(1)), b.Return(b.Int(2))))
	be.Equal(t, len(analyze(fn, true)), 0)
}

func TestDefiniteReturn(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *astbuild.B) *ast.FunDecl
		want  []string
	}{
		{
			name: "missing else",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", params(b, "c"), b.Type("Int"), b.If(b.Name("c"), b.Return(b.Int(1)), nil))
			},
			want: []string{diagnostics.ErrMissingReturn},
		},
		{
			name: "empty body",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, b.Type("Int"))
			},
			want: []string{diagnostics.ErrMissingReturn},
		},
		{
			name: "throw ends the body",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, b.Type("Int"), b.Throw(b.Call("Exception")))
			},
		},
		{
			name: "return without value",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, b.Type("Int"), b.Return(nil))
			},
			want: []string{diagnostics.ErrReturnWithoutValue},
		},
		{
			name: "expression body",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.ExprFun("f", nil, b.Type("Int"), b.Int(1))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyze(tt.build(astbuild.New("ret.jet")), true)
			if tt.want == nil {
				be.Equal(t, len(got), 0)
				return
			}
			be.Equal(t, got, tt.want)
		})
	}
}

func TestUninitializedVariable(t *testing.T) {
	b := astbuild.New("init.jet")
	read := b.Name("x")
	fn := b.Fun("f", params(b, "c"), nil,
		b.Val("x", b.Type("Int"), nil),
		b.If(b.Name("c"), b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(1)), nil),
		b.Call("println", read))
	fx := newFixture(fn, false)
	be.Equal(t, fx.run(), []string{diagnostics.ErrUninitializedVariable})
	be.Equal(t, fx.store.Diagnostics()[0].Location(), read.Loc())
}

func TestInitializedOnEveryPath(t *testing.T) {
	b := astbuild.New("init.jet")
	fn := b.Fun("f", params(b, "c"), nil,
		b.Val("x", b.Type("Int"), nil),
		b.If(b.Name("c"),
			b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(1)),
			b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(2))),
		b.Call("println", b.Name("x")))
	be.Equal(t, len(analyze(fn, false)), 0)
}

func TestAssignmentInLoopDoesNotInitialize(t *testing.T) {
	b := astbuild.New("loop.jet")
	fn := b.Fun("f", params(b, "c"), nil,
		b.Var("x", b.Type("Int"), nil),
		b.While(b.Name("c"), b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(1))),
		b.Call("println", b.Name("x")))
	be.Equal(t, analyze(fn, false), []string{diagnostics.ErrUninitializedVariable})
}

func TestValReassignment(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *astbuild.B) *ast.FunDecl
		want  []string
	}{
		{
			name: "local val",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, nil,
					b.Val("x", nil, b.Int(1)),
					b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(2)),
					b.Call("println", b.Name("x")))
			},
			want: []string{diagnostics.ErrValReassignment},
		},
		{
			name: "local var",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, nil,
					b.Var("x", nil, b.Int(1)),
					b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(2)),
					b.Call("println", b.Name("x")))
			},
		},
		{
			name: "parameter",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", params(b, "x"), nil, b.Assign(b.Name("x"), tokens.PLUS_EQUALS_TOKEN, b.Int(1)))
			},
			want: []string{diagnostics.ErrValReassignment},
		},
		{
			name: "increment of val",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, nil,
					b.Val("x", nil, b.Int(1)),
					b.Postfix(b.Name("x"), tokens.PLUS_PLUS_TOKEN))
			},
			want: []string{diagnostics.ErrValReassignment},
		},
		{
			name: "deferred val initialization",
			build: func(b *astbuild.B) *ast.FunDecl {
				return b.Fun("f", nil, nil,
					b.Val("x", b.Type("Int"), nil),
					b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(1)),
					b.Call("println", b.Name("x")))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyze(tt.build(astbuild.New("val.jet")), false)
			if tt.want == nil {
				be.Equal(t, len(got), 0)
				return
			}
			be.Equal(t, got, tt.want)
		})
	}
}

func TestCapturedValReassignment(t *testing.T) {
	b := astbuild.New("capture.jet")
	write := b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(2))
	fn := b.Fun("f", nil, nil,
		b.Val("x", nil, b.Int(1)),
		b.Call("run", b.Lambda(nil, write)),
		b.Call("println", b.Name("x")))
	fx := newFixture(fn, false)
	be.Equal(t, fx.run(), []string{diagnostics.ErrValReassignment})
	d := fx.store.Diagnostics()[0]
	be.Equal(t, d.Location(), write.Loc())
	be.Equal(t, len(d.Notes), 1)
}

func TestUnusedDeclarations(t *testing.T) {
	b := astbuild.New("unused.jet")
	fn := b.Fun("f", nil, nil,
		b.Val("a", nil, b.Int(1)),
		b.Var("b", nil, b.Int(1)),
		b.Assign(b.Name("b"), tokens.EQUALS_TOKEN, b.Int(2)),
		b.Val("_ignored", nil, b.Int(3)),
		b.Fun("g", params(b, "p"), nil),
		b.Call("g", b.Int(3)),
		b.Call("run", b.Lambda([]*ast.Param{b.Param("it", nil)})))
	be.Equal(t, analyze(fn, false), []string{
		diagnostics.WarnUnusedVariable,
		diagnostics.WarnAssignedNeverRead,
		diagnostics.WarnUnusedParameter,
	})
}

func TestVariableReadInClosureIsUsed(t *testing.T) {
	b := astbuild.New("closure.jet")
	fn := b.Fun("f", nil, nil,
		b.Val("a", nil, b.Int(1)),
		b.Call("run", b.Lambda(nil, b.Call("println", b.Name("a")))))
	be.Equal(t, len(analyze(fn, false)), 0)
}

func TestUnusedExpression(t *testing.T) {
	b := astbuild.New("expr.jet")
	sum := b.Bin(b.Name("x"), tokens.PLUS_TOKEN, b.Int(1))
	call := b.Call("println", b.Name("x"))
	fn := b.Fun("f", params(b, "x"), nil, sum, call)
	fx := newFixture(fn, false)
	binding.MustRecord(fx.store, binding.Statement, ast.Node(sum), true)
	binding.MustRecord(fx.store, binding.Statement, ast.Node(call), true)
	be.Equal(t, fx.run(), []string{diagnostics.WarnUnusedExpression})
}

func TestConstantConditions(t *testing.T) {
	b := astbuild.New("const.jet")
	fn := b.Fun("f", nil, nil,
		b.If(b.Bool(false), b.Call("println", b.Int(1)), nil),
		b.If(b.Bin(b.Int(1), tokens.LESS_TOKEN, b.Int(2)), b.Call("a"), b.Call("b")),
		b.If(b.Bool(true), b.Call("c"), nil),
		b.While(b.Bool(false)),
		b.While(b.Bool(true), b.Break("")))
	be.Equal(t, analyze(fn, false), []string{
		diagnostics.WarnConstantConditionTrue,
		diagnostics.WarnConstantConditionFalse,
		diagnostics.WarnConstantConditionFalse,
	})
}

func TestConstantValCondition(t *testing.T) {
	b := astbuild.New("const.jet")
	fn := b.Fun("f", nil, nil,
		b.Val("debug", nil, b.Bool(false)),
		b.If(b.Name("debug"), b.Call("log"), nil))
	be.Equal(t, analyze(fn, false), []string{diagnostics.WarnConstantConditionFalse})
}

func TestDiagnosticsAreDeterministic(t *testing.T) {
	b := astbuild.New("det.jet")
	fn := b.Fun("f", params(b, "c"), b.Type("Int"),
		b.Val("x", b.Type("Int"), nil),
		b.Val("y", nil, b.Int(1)),
		b.If(b.Name("c"), b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Int(1)), nil),
		b.Call("println", b.Name("x")),
		b.Assign(b.Name("y"), tokens.EQUALS_TOKEN, b.Int(2)))
	first := newFixture(fn, true)
	first.run()
	second := newFixture(fn, true)
	second.run()
	be.True(t, len(first.store.Diagnostics()) > 0)
	be.Equal(t, first.store.Bag().Keys(), second.store.Bag().Keys())
}

func TestAnalyzeRequiresSealedGraph(t *testing.T) {
	b := astbuild.New("seal.jet")
	fn := b.Fun("f", nil, nil)
	fx := newFixture(fn, false)
	pc := controlflow.NewBuilder(fx.store).Build(fn)
	be.True(t, pc.Sealed())
	New(fx.tab, fx.store).Analyze(pc)
	be.Equal(t, len(fx.store.Diagnostics()), 0)
}
