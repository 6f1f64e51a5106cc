package diagnostics

import (
	"strings"
	"testing"

	"jetc/colors"
	"jetc/internal/source"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{Error, "error"},
		{Warning, "warning"},
		{Info, "info"},
		{Severity(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.expected {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.expected)
		}
	}
}

func TestNewError(t *testing.T) {
	diag := NewError("test error message")

	if diag.Severity != Error {
		t.Errorf("Expected severity Error, got %v", diag.Severity)
	}
	if diag.Message != "test error message" {
		t.Errorf("Expected message 'test error message', got %q", diag.Message)
	}
	if diag.Labels == nil || diag.Notes == nil {
		t.Error("Labels and Notes should be initialized, not nil")
	}
}

func TestPrimaryLabelIsFirstAndUnique(t *testing.T) {
	a := source.Span("a.jet", 1, 1, 1, 4)
	b := source.Span("a.jet", 2, 1, 2, 4)

	diag := NewError("x").WithPrimaryLabel(&a, "first").WithSecondaryLabel(&b, "second")
	diag.WithPrimaryLabel(&b, "ignored")

	if len(diag.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(diag.Labels))
	}
	if diag.Labels[0].Style != Primary || diag.Labels[0].Message != "first" {
		t.Errorf("primary label not first: %+v", diag.Labels[0])
	}
	if diag.FilePath != "a.jet" {
		t.Errorf("FilePath = %q, want a.jet", diag.FilePath)
	}
	if diag.Location() != &a {
		t.Error("Location() should return the primary span")
	}
}

func TestSecondaryWithoutPrimaryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	loc := source.Span("a.jet", 1, 1, 1, 2)
	NewError("x").WithSecondaryLabel(&loc, "oops")
}

func TestKey(t *testing.T) {
	loc := source.Span("m.jet", 3, 7, 3, 9)
	diag := NewWarning("unused variable 'x'").WithCode(WarnUnusedVariable).WithPrimaryLabel(&loc, "")
	want := "warning[W0002] m.jet:3:7 unused variable 'x'"
	if got := diag.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestEmitterRendersSnippet(t *testing.T) {
	colors.SetEnabled(false)
	defer colors.SetEnabled(true)

	cache := NewSourceCache()
	cache.AddSource("main.jet", "fun main() {\n    val x: Int = \"s\"\n}")
	loc := source.Span("main.jet", 2, 18, 2, 21)

	out := Render(TypeMismatch(&loc, "Int", "String").WithHelp("convert the value"), cache)

	for _, want := range []string{
		"error[T0001]: type mismatch",
		"--> main.jet:2:18",
		`val x: Int = "s"`,
		"^^^ expected Int, found String",
		"= help: convert the value",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmitterWithoutSource(t *testing.T) {
	colors.SetEnabled(false)
	defer colors.SetEnabled(true)

	loc := source.Span("/nonexistent/file.jet", 4, 2, 4, 3)
	out := Render(UnresolvedReference(&loc, "foo"), nil)
	if !strings.Contains(out, "unresolved reference: foo") || !strings.Contains(out, "not found in this scope") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
