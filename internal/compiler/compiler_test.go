package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jetc/internal/config"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/tokens"
)

func quiet() *config.Settings {
	s := config.Defaults()
	return &s
}

func point(b *astbuild.B) *ast.File {
	return b.File("geo",
		b.Class("Point"),
		b.Fun("twice", []*ast.Param{b.Param("n", b.Type("Int"))}, b.Type("Int"),
			b.Return(b.Bin(b.Name("n"), tokens.MUL_TOKEN, b.Int(2))),
		),
	)
}

func TestCompile_InMemoryFiles(t *testing.T) {
	result := Compile(&Options{
		Files:     []*ast.File{point(astbuild.New("point.jet"))},
		Settings:  quiet(),
		Dump:      true,
		LogFormat: PLAIN,
	})

	if !result.Success {
		t.Fatalf("Expected successful compilation, got:\n%s", result.Log)
	}
	if result.Module.Class("geo/Point") == nil {
		t.Error("Expected class geo/Point")
	}
	if !strings.Contains(result.Output, "geo/namespace") {
		t.Errorf("Expected dump to list the package facade, got:\n%s", result.Output)
	}
	if !strings.HasPrefix(result.Output, "// build ") {
		t.Error("Expected dump to start with the build id")
	}
}

func TestCompile_TypeErrorProducesNoModule(t *testing.T) {
	b := astbuild.New("bad.jet")
	f := b.File("geo", b.Fun("f", nil, b.Type("Int"), b.Return(b.Bool(true))))

	result := Compile(&Options{Files: []*ast.File{f}, Settings: quiet(), LogFormat: PLAIN})

	if result.Success {
		t.Error("Expected compilation failure for a type mismatch")
	}
	if result.Module != nil {
		t.Error("Expected no module when errors were reported")
	}
	if len(result.Diagnostics) == 0 {
		t.Fatal("Expected diagnostics")
	}
	if strings.Contains(result.Log, "\033[") {
		t.Error("Expected plain output without ANSI codes")
	}
}

func TestCompile_ObjectLiteralInTopLevelFunction(t *testing.T) {
	b := astbuild.New("anon.jet")
	f := b.File("geo",
		b.Fun("main", nil, nil,
			b.Val("o", nil, b.ObjectLit(b.Object("anon"))),
			b.Call("println", b.Name("o")),
		),
	)

	result := Compile(&Options{Files: []*ast.File{f}, Settings: quiet(), LogFormat: PLAIN})

	if !result.Success {
		t.Fatalf("Expected successful compilation, got:\n%s", result.Log)
	}
	found := false
	for _, c := range result.Module.Classes {
		if strings.HasPrefix(c.Name, "geo/namespace$") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the object literal class to nest in the package facade")
	}
}

func TestCompile_WritesClasses(t *testing.T) {
	dir := t.TempDir()
	result := Compile(&Options{
		Files:     []*ast.File{point(astbuild.New("point.jet"))},
		Settings:  quiet(),
		OutDir:    dir,
		Write:     true,
		LogFormat: PLAIN,
	})

	if !result.Success {
		t.Fatalf("Expected successful compilation, got:\n%s", result.Log)
	}
	if len(result.Written) != 2 {
		t.Fatalf("Expected 2 class files, got %v", result.Written)
	}
	if _, err := os.Stat(filepath.Join(dir, "geo", "Point.jasm")); err != nil {
		t.Errorf("Expected geo/Point.jasm to be written: %v", err)
	}
}

func TestCompile_UnsupportedFailsAtWrite(t *testing.T) {
	b := astbuild.New("local.jet")
	x := b.Param("x", b.Type("Int"))
	x.Default = b.Int(1)
	f := b.File("geo",
		b.Fun("outer", nil, nil,
			b.ExprFun("inner", []*ast.Param{x}, b.Type("Int"), b.Name("x")),
			b.Call("inner"),
		),
	)

	result := Compile(&Options{Files: []*ast.File{f}, Settings: quiet(), OutDir: t.TempDir(), Write: true, LogFormat: PLAIN})

	if result.Success {
		t.Fatal("Expected writing to fail on an unsupported construct")
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Code == diagnostics.ErrUnsupported && strings.Contains(d.Message, "default arguments of inner") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an unsupported construct diagnostic, got:\n%s", result.Log)
	}
}

func TestCompile_MissingClasspathEntry(t *testing.T) {
	result := Compile(&Options{
		Files:     []*ast.File{point(astbuild.New("point.jet"))},
		Settings:  quiet(),
		Classpath: []string{filepath.Join(t.TempDir(), "nope.jar")},
		LogFormat: PLAIN,
	})

	if !result.Success {
		t.Fatal("Expected a missing classpath entry to be a warning only")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != diagnostics.WarnClasspath {
		t.Errorf("Expected one classpath warning, got %d diagnostics", len(result.Diagnostics))
	}
}

func TestCompile_MissingInput(t *testing.T) {
	result := Compile(&Options{
		Inputs:    []string{filepath.Join(t.TempDir(), "absent.json")},
		Settings:  quiet(),
		LogFormat: PLAIN,
	})

	if result.Success {
		t.Error("Expected failure for a missing input")
	}
	if !strings.Contains(result.Log, "cannot load") {
		t.Errorf("Expected a load error, got:\n%s", result.Log)
	}
}
