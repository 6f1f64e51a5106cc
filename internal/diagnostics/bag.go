package diagnostics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"jetc/colors"
)

const (
	compileFailedMsg          = "\nCompilation failed with %d error(s)"
	andWarningMsg             = " and %d warning(s)"
	compileSuccessWithWarning = "\nCompilation succeeded with %d warning(s)\n"
)

// DiagnosticBag collects diagnostics during compilation
type DiagnosticBag struct {
	diagnostics []*Diagnostic
	mu          sync.Mutex
	errorCount  int
	warnCount   int
	sourceCache *SourceCache
}

// NewDiagnosticBag creates an empty bag.
func NewDiagnosticBag() *DiagnosticBag {
	return &DiagnosticBag{
		diagnostics: make([]*Diagnostic, 0),
		sourceCache: NewSourceCache(),
	}
}

// AddSourceContent adds source content for a file path (for in-memory compilation)
func (db *DiagnosticBag) AddSourceContent(filepath, content string) {
	db.sourceCache.AddSource(filepath, content)
}

// Add adds a diagnostic to the bag
func (db *DiagnosticBag) Add(diag *Diagnostic) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.diagnostics = append(db.diagnostics, diag)

	switch diag.Severity {
	case Error:
		db.errorCount++
	case Warning:
		db.warnCount++
	}
}

// HasErrors returns true if there are any errors
func (db *DiagnosticBag) HasErrors() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.errorCount > 0
}

// ErrorCount returns the number of errors
func (db *DiagnosticBag) ErrorCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.errorCount
}

// WarningCount returns the number of warnings
func (db *DiagnosticBag) WarningCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.warnCount
}

// Diagnostics returns a copy of all diagnostics in insertion order.
func (db *DiagnosticBag) Diagnostics() []*Diagnostic {
	db.mu.Lock()
	defer db.mu.Unlock()
	result := make([]*Diagnostic, len(db.diagnostics))
	copy(result, db.diagnostics)
	return result
}

// Sorted returns the diagnostics ordered by file, position, code and
// message. Two runs over the same input yield the same slice.
func (db *DiagnosticBag) Sorted() []*Diagnostic {
	result := db.Diagnostics()
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		al, bl := a.Location(), b.Location()
		if al.IsValid() && bl.IsValid() && *al.Start != *bl.Start {
			return al.Start.Before(*bl.Start)
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
	return result
}

// Keys returns Key() of every diagnostic in sorted order.
func (db *DiagnosticBag) Keys() []string {
	sorted := db.Sorted()
	keys := make([]string, len(sorted))
	for i, d := range sorted {
		keys[i] = d.Key()
	}
	return keys
}

// WithCode returns the diagnostics carrying the given code.
func (db *DiagnosticBag) WithCode(code string) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range db.Diagnostics() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// EmitAll renders every diagnostic and the summary to stderr.
func (db *DiagnosticBag) EmitAll() {
	db.EmitTo(os.Stderr)
}

// EmitTo renders every diagnostic in sorted order followed by the summary.
func (db *DiagnosticBag) EmitTo(w io.Writer) {
	emitter := NewEmitterWithCache(w, db.sourceCache)
	for _, diag := range db.Sorted() {
		emitter.Emit(diag)
	}
	db.printSummary(w)
}

// EmitAllToString emits all diagnostics to a string with ANSI codes.
func (db *DiagnosticBag) EmitAllToString() string {
	var buf bytes.Buffer
	db.EmitTo(&buf)
	return buf.String()
}

func (db *DiagnosticBag) printSummary(w io.Writer) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.errorCount > 0 {
		colors.RED.Fprintf(w, compileFailedMsg, db.errorCount)
		if db.warnCount > 0 {
			colors.RED.Fprintf(w, andWarningMsg, db.warnCount)
		}
		fmt.Fprintln(w)
	} else if db.warnCount > 0 {
		colors.ORANGE.Fprintf(w, compileSuccessWithWarning, db.warnCount)
	}
}

// Clear removes all diagnostics
func (db *DiagnosticBag) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.diagnostics = make([]*Diagnostic, 0)
	db.errorCount = 0
	db.warnCount = 0
}
