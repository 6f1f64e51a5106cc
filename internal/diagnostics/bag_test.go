package diagnostics

import (
	"strings"
	"sync"
	"testing"

	"jetc/colors"
	"jetc/internal/source"
)

func TestNewDiagnosticBag(t *testing.T) {
	bag := NewDiagnosticBag()

	if bag.ErrorCount() != 0 || bag.WarningCount() != 0 {
		t.Errorf("expected empty bag, got %d errors %d warnings", bag.ErrorCount(), bag.WarningCount())
	}
	if bag.HasErrors() {
		t.Error("Expected HasErrors() to be false for empty bag")
	}
}

func TestDiagnosticBag_Counts(t *testing.T) {
	tests := []struct {
		name     string
		diags    []*Diagnostic
		errors   int
		warnings int
	}{
		{"error", []*Diagnostic{NewError("e")}, 1, 0},
		{"warning", []*Diagnostic{NewWarning("w")}, 0, 1},
		{"info", []*Diagnostic{NewInfo("i")}, 0, 0},
		{"mixed", []*Diagnostic{NewError("e"), NewWarning("w"), NewError("e2")}, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := NewDiagnosticBag()
			for _, d := range tt.diags {
				bag.Add(d)
			}
			if bag.ErrorCount() != tt.errors {
				t.Errorf("ErrorCount() = %d, want %d", bag.ErrorCount(), tt.errors)
			}
			if bag.WarningCount() != tt.warnings {
				t.Errorf("WarningCount() = %d, want %d", bag.WarningCount(), tt.warnings)
			}
			if bag.HasErrors() != (tt.errors > 0) {
				t.Errorf("HasErrors() = %v", bag.HasErrors())
			}
		})
	}
}

func TestDiagnosticBag_SortedIsPositional(t *testing.T) {
	bag := NewDiagnosticBag()
	l3 := source.Span("a.jet", 3, 1, 3, 2)
	l1 := source.Span("a.jet", 1, 5, 1, 6)
	lb := source.Span("b.jet", 1, 1, 1, 2)
	bag.Add(NewError("third").WithPrimaryLabel(&l3, ""))
	bag.Add(NewError("other file").WithPrimaryLabel(&lb, ""))
	bag.Add(NewError("first").WithPrimaryLabel(&l1, ""))

	got := bag.Sorted()
	want := []string{"first", "third", "other file"}
	for i, d := range got {
		if d.Message != want[i] {
			t.Errorf("Sorted()[%d] = %q, want %q", i, d.Message, want[i])
		}
	}
	if bag.Diagnostics()[0].Message != "third" {
		t.Error("Diagnostics() should keep insertion order")
	}
}

func TestDiagnosticBag_ConcurrentAdd(t *testing.T) {
	bag := NewDiagnosticBag()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bag.Add(NewError("e"))
		}()
	}
	wg.Wait()
	if bag.ErrorCount() != 50 || len(bag.Diagnostics()) != 50 {
		t.Errorf("lost diagnostics: %d", bag.ErrorCount())
	}
}

func TestDiagnosticBag_Summary(t *testing.T) {
	colors.SetEnabled(false)
	defer colors.SetEnabled(true)

	bag := NewDiagnosticBag()
	bag.Add(NewError("e"))
	bag.Add(NewWarning("w"))
	out := bag.EmitAllToString()
	if !strings.Contains(out, "Compilation failed with 1 error(s) and 1 warning(s)") {
		t.Errorf("missing summary:\n%s", out)
	}

	bag.Clear()
	bag.Add(NewWarning("w"))
	if out := bag.EmitAllToString(); !strings.Contains(out, "Compilation succeeded with 1 warning(s)") {
		t.Errorf("missing success summary:\n%s", out)
	}
}
