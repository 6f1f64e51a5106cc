// Package context_v2 provides the central compilation context for the Jet compiler.
//
// ARCHITECTURE:
// Every input tree becomes a compilation unit that moves through the phases
// independently. Units are grouped by package and processed in an order where
// imported packages come first, so declaration resolution sees suppliers
// before clients whenever the import graph allows it.
//
// DESIGN PRINCIPLES:
// 1. Packages are semantic identifiers (dotted names), not file system paths
// 2. Each unit tracks its own compilation phase
// 3. Package import cycles are legal; ordering falls back to names inside a cycle
// 4. One binding store and one descriptor table are shared by all units
package context_v2

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"jetc/internal/config"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/source"
	"jetc/internal/types"
)

// UnitPhase tracks the compilation phase of an individual unit
//
// Phase progression must be sequential:
// - NotStarted -> Loaded -> Declared -> Checked -> Generated
//
// Phase transitions are validated using AdvanceUnitPhase() which checks
// that prerequisites are satisfied via the phasePrerequisites map.
type UnitPhase int

const (
	PhaseNotStarted UnitPhase = iota // Unit discovered but not read
	PhaseLoaded                      // Syntax tree available
	PhaseDeclared                    // Declarations resolved
	PhaseChecked                     // Bodies type checked and flow analysed
	PhaseGenerated                   // Bytecode generated
)

// phasePrerequisites maps each phase to its required predecessor phase
var phasePrerequisites = map[UnitPhase]UnitPhase{
	PhaseLoaded:    PhaseNotStarted,
	PhaseDeclared:  PhaseLoaded,
	PhaseChecked:   PhaseDeclared,
	PhaseGenerated: PhaseChecked,
}

func (p UnitPhase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NotStarted"
	case PhaseLoaded:
		return "Loaded"
	case PhaseDeclared:
		return "Declared"
	case PhaseChecked:
		return "Checked"
	case PhaseGenerated:
		return "Generated"
	default:
		return "Unknown"
	}
}

// Unit is one input syntax tree.
type Unit struct {
	Path    string    // Where the tree was read from
	Package string    // Dotted package name, "" for the root package
	File    *ast.File // Syntax tree
	Content string    // Raw source code when known (for diagnostics)

	Phase UnitPhase
	// Failed is set when an internal compiler error stopped the unit.
	Failed bool

	Mu sync.Mutex
}

// Config holds compiler configuration
type Config struct {
	config.Settings
	Inputs []string // Syntax tree files to compile
}

// CompilerContext is the central compilation state manager
type CompilerContext struct {
	// Unit registry: path -> Unit
	Units map[string]*Unit
	mu    sync.RWMutex

	// Unit paths in processing order
	sortedUnits []string

	// Package import graph: package -> imported packages
	DepGraph map[string][]string

	Table   *types.Table
	Checker *types.Checker
	Store   *binding.Store

	// Diagnostics: centralized error collection, shared with Store
	Diagnostics *diagnostics.DiagnosticBag

	// BuildID identifies this compilation in traces and output
	BuildID ulid.ULID

	Config *Config

	// Debug mode
	Debug bool
}

// New creates a new compiler context
func New(cfg *Config, debug bool) *CompilerContext {
	if cfg == nil {
		cfg = &Config{Settings: config.Defaults()}
	}
	table := types.NewTable()
	bag := diagnostics.NewDiagnosticBag()
	return &CompilerContext{
		Units:       make(map[string]*Unit),
		DepGraph:    make(map[string][]string),
		Table:       table,
		Checker:     types.NewChecker(table, cfg.CheckerOptions()...),
		Store:       binding.NewStore(bag),
		Diagnostics: bag,
		BuildID:     ulid.Make(),
		Config:      cfg,
		Debug:       debug || cfg.Debug,
	}
}

// AddUnit registers a unit and the packages its file imports. A unit
// registered twice keeps its first tree.
func (ctx *CompilerContext) AddUnit(u *Unit) {
	if u == nil {
		panic("cannot add nil unit")
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if _, exists := ctx.Units[u.Path]; exists {
		return
	}
	if u.File != nil {
		u.Package = u.File.Package
		for _, imp := range u.File.Imports {
			ctx.addDependency(u.Package, ImportedPackage(imp))
		}
	}
	if _, ok := ctx.DepGraph[u.Package]; !ok {
		ctx.DepGraph[u.Package] = nil
	}
	if u.Content != "" {
		ctx.Diagnostics.AddSourceContent(u.Path, u.Content)
	}
	ctx.Units[u.Path] = u
}

// GetUnit retrieves a unit by path
func (ctx *CompilerContext) GetUnit(path string) (*Unit, bool) {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	u, exists := ctx.Units[path]
	return u, exists
}

// GetUnitPhase returns the current phase of a unit
func (ctx *CompilerContext) GetUnitPhase(path string) UnitPhase {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	if u, exists := ctx.Units[path]; exists {
		return u.Phase
	}
	return PhaseNotStarted
}

// SetUnitPhase updates the phase of a unit
func (ctx *CompilerContext) SetUnitPhase(path string, phase UnitPhase) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if u, exists := ctx.Units[path]; exists {
		u.Mu.Lock()
		u.Phase = phase
		u.Mu.Unlock()
	}
}

// AdvanceUnitPhase advances a unit to the next phase with validation
// Returns false if the phase transition is invalid (prerequisites not met)
func (ctx *CompilerContext) AdvanceUnitPhase(path string, target UnitPhase) bool {
	if !ctx.CanProcessPhase(path, target) {
		return false
	}
	ctx.SetUnitPhase(path, target)
	return true
}

// CanProcessPhase checks if a unit is ready for a specific phase
func (ctx *CompilerContext) CanProcessPhase(path string, required UnitPhase) bool {
	prerequisite, exists := phasePrerequisites[required]
	if !exists {
		return false
	}
	if u, ok := ctx.GetUnit(path); !ok || u.Failed {
		return false
	}
	return ctx.GetUnitPhase(path) == prerequisite
}

// MarkFailed records that an internal error stopped the unit.
func (ctx *CompilerContext) MarkFailed(path string) {
	if u, ok := ctx.GetUnit(path); ok {
		u.Mu.Lock()
		u.Failed = true
		u.Mu.Unlock()
	}
}

// ImportedPackage returns the package an import refers to: the path itself
// for star imports, the path without its last segment otherwise.
func ImportedPackage(imp *ast.Import) string {
	p := NormalizePackage(imp.Path)
	if imp.All {
		return p
	}
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[:i]
	}
	return ""
}

// NormalizePackage trims blanks and stray dots from a dotted package name.
//
// Examples:
//   - " a.b "  -> "a.b"
//   - "a..b"   -> "a.b"
//   - ".a.b."  -> "a.b"
func NormalizePackage(name string) string {
	name = strings.TrimSpace(name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return strings.Trim(name, ".")
}

func (ctx *CompilerContext) addDependency(importer, imported string) {
	if importer == imported {
		return
	}
	for _, existing := range ctx.DepGraph[importer] {
		if existing == imported {
			return
		}
	}
	ctx.DepGraph[importer] = append(ctx.DepGraph[importer], imported)
	if _, ok := ctx.DepGraph[imported]; !ok {
		ctx.DepGraph[imported] = nil
	}
}

// HasErrors returns true if any errors have been reported
func (ctx *CompilerContext) HasErrors() bool {
	return ctx.Diagnostics.HasErrors()
}

// ReportError adds an error diagnostic
func (ctx *CompilerContext) ReportError(message string, location *source.Location) {
	ctx.Diagnostics.Add(diagnostics.NewError(message).WithPrimaryLabel(location, ""))
}

// EmitDiagnostics outputs all collected diagnostics
func (ctx *CompilerContext) EmitDiagnostics() {
	ctx.Diagnostics.EmitAll()
}

// UnitCount returns the number of units in the context
func (ctx *CompilerContext) UnitCount() int {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return len(ctx.Units)
}

// UnitNames returns unit paths in processing order
func (ctx *CompilerContext) UnitNames() []string {
	return ctx.sortedUnits
}

// Files returns the syntax trees of the units that have not failed, in
// processing order.
func (ctx *CompilerContext) Files() []*ast.File {
	var out []*ast.File
	for _, p := range ctx.sortedUnits {
		if u, ok := ctx.GetUnit(p); ok && u.File != nil && !u.Failed {
			out = append(out, u.File)
		}
	}
	return out
}

// ComputeOrder orders units so that imported packages precede their
// importers. Packages on an import cycle are released in name order once
// nothing outside the cycle blocks them. Units of one package keep path
// order.
func (ctx *CompilerContext) ComputeOrder() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	inDegree := make(map[string]int)
	for pkg, deps := range ctx.DepGraph {
		inDegree[pkg] = len(deps)
	}

	done := make(map[string]bool)
	var pkgs []string
	for len(done) < len(inDegree) {
		var ready []string
		for pkg, n := range inDegree {
			if !done[pkg] && n == 0 {
				ready = append(ready, pkg)
			}
		}
		if len(ready) == 0 {
			// cycle: take the least package still waiting
			for pkg := range inDegree {
				if !done[pkg] && (len(ready) == 0 || pkg < ready[0]) {
					ready = []string{pkg}
				}
			}
		}
		sort.Strings(ready)
		for _, pkg := range ready {
			done[pkg] = true
			pkgs = append(pkgs, pkg)
			for importer, deps := range ctx.DepGraph {
				for _, dep := range deps {
					if dep == pkg && !done[importer] {
						inDegree[importer]--
					}
				}
			}
		}
	}

	byPkg := make(map[string][]string)
	for path, u := range ctx.Units {
		byPkg[u.Package] = append(byPkg[u.Package], path)
	}
	ctx.sortedUnits = ctx.sortedUnits[:0]
	for _, pkg := range pkgs {
		paths := byPkg[pkg]
		sort.Strings(paths)
		ctx.sortedUnits = append(ctx.sortedUnits, paths...)
	}
}

// Summary describes the context for debug output.
func (ctx *CompilerContext) Summary() string {
	return fmt.Sprintf("build %s: %d unit(s), %d package(s), %d error(s), %d warning(s)",
		ctx.BuildID, ctx.UnitCount(), len(ctx.DepGraph), ctx.Diagnostics.ErrorCount(), ctx.Diagnostics.WarningCount())
}
