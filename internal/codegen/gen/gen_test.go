package gen

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/typechecker"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// generate analyzes files, requires them to be free of errors and lowers
// them.
func generate(t *testing.T, files ...*ast.File) *bytecode.Module {
	t.Helper()
	store := binding.NewStore(nil)
	tc := types.NewChecker(types.NewTable())
	c := typechecker.New(tc, store)
	c.Check(files)
	for _, d := range store.Bag().Sorted() {
		if d.Severity == diagnostics.Error {
			t.Fatalf("%s: %s", d.Code, d.Message)
		}
	}
	return New(tc, store, c.Declarations()).Generate(files)
}

func code(t *testing.T, mod *bytecode.Module, class, name string) []string {
	t.Helper()
	c := mod.Class(class)
	if c == nil {
		t.Fatalf("no class %s", class)
	}
	m := c.Method(name, "")
	if m == nil || m.Code == nil {
		t.Fatalf("no method %s.%s with code", class, name)
	}
	var out []string
	for _, in := range m.Code.Instructions() {
		out = append(out, in.String())
	}
	return out
}

func TestWhileCountdown(t *testing.T) {
	b := astbuild.New("count.jet")
	f := b.File("demo",
		b.Fun("countdown", []*ast.Param{b.Param("x0", b.Type("Int"))}, nil,
			b.Var("x", nil, b.Name("x0")),
			b.While(b.Bin(b.Name("x"), tokens.GREATER_TOKEN, b.Int(0)),
				b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Bin(b.Name("x"), tokens.MINUS_TOKEN, b.Int(1))),
			),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)
	be.Equal(t, code(t, mod, "demo/namespace", "countdown"), []string{
		"ILOAD 0",
		"ISTORE 1",
		"ILOAD 1",
		"IFLE L9",
		"ILOAD 1",
		"ICONST_1",
		"ISUB",
		"ISTORE 1",
		"GOTO L2",
		"RETURN",
	})
	m := mod.Class("demo/namespace").Method("countdown", "(I)V")
	be.True(t, m.Access.Has(bytecode.AccStatic))
	be.Equal(t, m.MaxLocals, 2)
	be.Equal(t, m.MaxStack, 2)
}

func TestCountedForLoop(t *testing.T) {
	b := astbuild.New("sum.jet")
	f := b.File("demo",
		b.Fun("sum", []*ast.Param{b.Param("n", b.Type("Int"))}, b.Type("Int"),
			b.Var("s", nil, b.Int(0)),
			b.For("i", b.Bin(b.Int(1), tokens.RANGE_TOKEN, b.Name("n")),
				b.Assign(b.Name("s"), tokens.PLUS_EQUALS_TOKEN, b.Name("i")),
			),
			b.Return(b.Name("s")),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)
	got := strings.Join(code(t, mod, "demo/namespace", "sum"), "\n")
	for _, want := range []string{"IF_ICMPGT", "IF_ICMPEQ", "IINC", "IRETURN"} {
		be.True(t, strings.Contains(got, want))
	}
	be.True(t, !strings.Contains(got, "IntRange"))
}

func TestContinueLandsOnLoopStep(t *testing.T) {
	b := astbuild.New("skip.jet")
	f := b.File("demo",
		b.Fun("skip", []*ast.Param{b.Param("n", b.Type("Int"))}, b.Type("Int"),
			b.Var("s", nil, b.Int(0)),
			b.For("i", b.Bin(b.Int(1), tokens.RANGE_TOKEN, b.Name("n")),
				b.If(b.Bin(b.Name("i"), tokens.DOUBLE_EQUAL_TOKEN, b.Int(2)), b.Continue(""), nil),
				b.Assign(b.Name("s"), tokens.PLUS_EQUALS_TOKEN, b.Name("i")),
			),
			b.Return(b.Name("s")),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)
	got := code(t, mod, "demo/namespace", "skip")
	step := -1
	for i, in := range got {
		if strings.HasPrefix(in, "IF_ICMPEQ") {
			step = i - 2
		}
	}
	be.True(t, step > 0)
	be.True(t, slices.Contains(got, fmt.Sprintf("GOTO L%d", step)))
}

func TestDoWhileContinueAndBreak(t *testing.T) {
	b := astbuild.New("dowhile.jet")
	f := b.File("demo",
		b.Fun("drain", []*ast.Param{b.Param("x0", b.Type("Int"))}, nil,
			b.Var("x", nil, b.Name("x0")),
			b.DoWhile(b.Bin(b.Name("x"), tokens.GREATER_TOKEN, b.Int(0)),
				b.Assign(b.Name("x"), tokens.MINUS_EQUALS_TOKEN, b.Int(1)),
				b.If(b.Bin(b.Name("x"), tokens.DOUBLE_EQUAL_TOKEN, b.Int(5)), b.Continue(""), nil),
				b.If(b.Bin(b.Name("x"), tokens.DOUBLE_EQUAL_TOKEN, b.Int(3)), b.Break(""), nil),
			),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)
	got := code(t, mod, "demo/namespace", "drain")
	be.Equal(t, got[len(got)-1], "RETURN")
	// the loop closes with a conditional jump back to its first instruction
	be.True(t, slices.Contains(got, "IFGT L2"))
}

func TestUnsupportedIsMarked(t *testing.T) {
	b := astbuild.New("local.jet")
	x := b.Param("x", b.Type("Int"))
	x.Default = b.Int(1)
	f := b.File("demo",
		b.Fun("outer", nil, nil,
			b.ExprFun("inner", []*ast.Param{x}, b.Type("Int"), b.Name("x")),
			b.Call("inner"),
		),
	)
	mod := generate(t, f)
	got := strings.Join(code(t, mod, "demo/namespace", "outer"), "\n")
	be.True(t, strings.Contains(got, `UNSUPPORTED "default arguments of inner"`))

	err := bytecode.Validate(mod)
	var ue *bytecode.UnsupportedError
	be.True(t, errors.As(err, &ue))
	be.Equal(t, ue.Reason, "default arguments of inner")
}

func TestEnumClass(t *testing.T) {
	b := astbuild.New("color.jet")
	f := b.File("demo", b.Enum("Color", []string{"RED", "GREEN"}))
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)

	c := mod.Class("demo/Color")
	be.Equal(t, c.Super, "java/lang/Enum")
	be.True(t, c.Access.Has(bytecode.AccEnum))
	for _, name := range []string{"RED", "GREEN"} {
		fd := c.Field(name)
		be.True(t, fd != nil)
		be.Equal(t, fd.Desc, "Ldemo/Color;")
		be.True(t, fd.Access.Has(bytecode.AccStatic|bytecode.AccEnum))
	}
	be.True(t, c.Method("<init>", "(Ljava/lang/String;I)V") != nil)
	init := strings.Join(code(t, mod, "demo/Color", "<clinit>"), "\n")
	be.True(t, strings.Contains(init, "NEW demo/Color"))
	be.True(t, strings.Contains(init, "PUTSTATIC demo/Color.GREEN Ldemo/Color;"))
}

func TestObjectWithProperty(t *testing.T) {
	b := astbuild.New("counter.jet")
	f := b.File("demo",
		b.Object("Counter",
			b.Var("n", b.Type("Int"), b.Int(0)),
			b.Fun("inc", nil, nil,
				b.Assign(b.Name("n"), tokens.EQUALS_TOKEN, b.Bin(b.Name("n"), tokens.PLUS_TOKEN, b.Int(1))),
			),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)

	c := mod.Class("demo/Counter")
	be.True(t, c.Field("INSTANCE") != nil)
	be.True(t, c.Field("n").Access.Has(bytecode.AccPrivate))
	be.True(t, c.Method("getN", "()I") != nil)
	be.True(t, c.Method("setN", "(I)V") != nil)
	// the object's own code uses the field
	inc := strings.Join(code(t, mod, "demo/Counter", "inc"), "\n")
	be.True(t, strings.Contains(inc, "GETFIELD demo/Counter.n I"))
	be.True(t, strings.Contains(inc, "PUTFIELD demo/Counter.n I"))
}

func TestLambdaCapturesVar(t *testing.T) {
	b := astbuild.New("lambda.jet")
	f := b.File("demo",
		b.Fun("count", nil, b.Type("Int"),
			b.Var("total", nil, b.Int(0)),
			b.Val("add", nil, b.Lambda(nil,
				b.Assign(b.Name("total"), tokens.EQUALS_TOKEN, b.Bin(b.Name("total"), tokens.PLUS_TOKEN, b.Int(1))),
			)),
			b.Invoke(b.Name("add")),
			b.Return(b.Name("total")),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)

	lc := mod.Class("demo/namespace$1")
	be.True(t, lc != nil)
	be.Equal(t, lc.Interfaces, []string{functionType(0).Internal})
	be.Equal(t, lc.Outer, "demo/namespace")
	be.True(t, lc.Method("invoke", "()Ljava/lang/Object;") != nil)
	be.Equal(t, lc.Field("$total").Desc, "Ljet/runtime/Ref$IntRef;")

	got := strings.Join(code(t, mod, "demo/namespace", "count"), "\n")
	be.True(t, strings.Contains(got, "NEW jet/runtime/Ref$IntRef"))
	be.True(t, strings.Contains(got, "NEW demo/namespace$1"))
	be.True(t, strings.Contains(got, "INVOKEINTERFACE jet/Function0.invoke ()Ljava/lang/Object;"))
}

func TestFinallyInlinedOnReturn(t *testing.T) {
	b := astbuild.New("try.jet")
	f := b.File("demo",
		b.Fun("f", nil, b.Type("Int"),
			b.Try(
				b.Block(b.Return(b.Int(1))),
				b.Block(b.Call("println", b.Str("done"))),
			),
		),
	)
	mod := generate(t, f)
	be.Err(t, bytecode.Validate(mod), nil)

	m := mod.Class("demo/namespace").Method("f", "()I")
	be.Equal(t, len(m.TryCatch), 2)
	for _, tc := range m.TryCatch {
		be.Equal(t, tc.Type, "")
	}
	got := strings.Join(code(t, mod, "demo/namespace", "f"), "\n")
	be.Equal(t, strings.Count(got, "java/io/PrintStream.println"), 2)
	be.True(t, strings.Contains(got, "ATHROW"))
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		gaps       [][2]int
		want       [][2]int
	}{
		{"no gaps", 0, 10, nil, [][2]int{{0, 10}}},
		{"inner gap", 0, 10, [][2]int{{3, 5}}, [][2]int{{0, 3}, {5, 10}}},
		{"unsorted gaps", 0, 10, [][2]int{{7, 8}, {1, 2}}, [][2]int{{0, 1}, {2, 7}, {8, 10}}},
		{"gap at the end", 0, 4, [][2]int{{2, 6}}, [][2]int{{0, 2}}},
		{"covered", 2, 4, [][2]int{{0, 6}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, ranges(tt.start, tt.end, tt.gaps), tt.want)
		})
	}
}
