package context_v2

import (
	"reflect"
	"testing"

	"jetc/internal/config"
	"jetc/internal/frontend/ast"
)

func unit(path, pkg string, imports ...string) *Unit {
	f := &ast.File{Path: path, Package: pkg}
	for _, imp := range imports {
		f.Imports = append(f.Imports, &ast.Import{Path: imp, All: true})
	}
	return &Unit{Path: path, File: f, Phase: PhaseLoaded}
}

func TestNewContext(t *testing.T) {
	cfg := &Config{Settings: config.Defaults(), Inputs: []string{"a.json"}}
	cfg.Debug = true

	ctx := New(cfg, false)

	if ctx == nil {
		t.Fatal("Expected non-nil context")
	}
	if !ctx.Debug {
		t.Error("Expected debug mode to follow the configuration")
	}
	if ctx.Table == nil || ctx.Checker == nil || ctx.Store == nil {
		t.Fatal("Expected table, checker and store to be initialized")
	}
	if ctx.Store.Bag() != ctx.Diagnostics {
		t.Error("Expected the store to report into the context diagnostics")
	}
	var zero [16]byte
	if ctx.BuildID == zero {
		t.Error("Expected a build id")
	}
}

func TestAddUnit(t *testing.T) {
	ctx := New(nil, false)

	ctx.AddUnit(unit("src/main.json", "app"))

	retrieved, ok := ctx.GetUnit("src/main.json")
	if !ok {
		t.Fatal("Expected to retrieve unit")
	}
	if retrieved.Package != "app" {
		t.Errorf("Expected package 'app', got '%s'", retrieved.Package)
	}

	// a second registration keeps the first tree
	ctx.AddUnit(unit("src/main.json", "other"))
	if u, _ := ctx.GetUnit("src/main.json"); u.Package != "app" {
		t.Errorf("Expected first unit to be kept, got package '%s'", u.Package)
	}
	if ctx.UnitCount() != 1 {
		t.Errorf("Expected 1 unit, got %d", ctx.UnitCount())
	}
}

func TestUnitPhaseTracking(t *testing.T) {
	ctx := New(nil, false)
	ctx.AddUnit(unit("a.json", ""))

	if ctx.AdvanceUnitPhase("a.json", PhaseChecked) {
		t.Error("Expected Loaded -> Checked to be rejected")
	}
	if !ctx.AdvanceUnitPhase("a.json", PhaseDeclared) {
		t.Error("Expected Loaded -> Declared to be accepted")
	}
	if got := ctx.GetUnitPhase("a.json"); got != PhaseDeclared {
		t.Errorf("Expected phase Declared, got %v", got)
	}

	ctx.MarkFailed("a.json")
	if ctx.AdvanceUnitPhase("a.json", PhaseChecked) {
		t.Error("Expected a failed unit to stay where it stopped")
	}
	if len(ctx.Files()) != 0 {
		t.Error("Expected failed units to be left out of Files")
	}
	if ctx.GetUnitPhase("missing.json") != PhaseNotStarted {
		t.Error("Expected unknown units to report NotStarted")
	}
}

func TestComputeOrder(t *testing.T) {
	tests := []struct {
		name  string
		units []*Unit
		want  []string
	}{
		{
			name: "imports first",
			units: []*Unit{
				unit("app.json", "app", "lib.util"),
				unit("util.json", "lib.util"),
				unit("core.json", "lib.core"),
			},
			want: []string{"core.json", "util.json", "app.json"},
		},
		{
			name: "cycle falls back to names",
			units: []*Unit{
				unit("b.json", "b", "a"),
				unit("a.json", "a", "b"),
				unit("c.json", "c", "a"),
			},
			want: []string{"a.json", "b.json", "c.json"},
		},
		{
			name: "files of one package by path",
			units: []*Unit{
				unit("z.json", "p"),
				unit("m.json", "p"),
			},
			want: []string{"m.json", "z.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := New(nil, false)
			for _, u := range tt.units {
				ctx.AddUnit(u)
			}
			ctx.ComputeOrder()
			if got := ctx.UnitNames(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected order %v, got %v", tt.want, got)
			}
		})
	}
}

func TestImportedPackage(t *testing.T) {
	tests := []struct {
		imp  ast.Import
		want string
	}{
		{ast.Import{Path: "a.b.C"}, "a.b"},
		{ast.Import{Path: "a.b", All: true}, "a.b"},
		{ast.Import{Path: "Top"}, ""},
		{ast.Import{Path: " .a..b.C "}, "a.b"},
	}
	for _, tt := range tests {
		if got := ImportedPackage(&tt.imp); got != tt.want {
			t.Errorf("ImportedPackage(%q) = %q, want %q", tt.imp.Path, got, tt.want)
		}
	}
}
