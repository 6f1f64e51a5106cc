package diagnostics

import (
	"fmt"

	"jetc/internal/source"
)

// Common diagnostic builders shared by the semantic phases.

// UnresolvedReference creates a diagnostic for a name that resolves to nothing.
func UnresolvedReference(loc *source.Location, name string) *Diagnostic {
	return NewError("unresolved reference: "+name).
		WithCode(ErrUnresolvedReference).
		WithPrimaryLabel(loc, "not found in this scope").
		WithHelp("check if the symbol is declared and imported correctly")
}

// Redeclaration reports a name declared twice in one scope. prevLoc may be nil.
func Redeclaration(newLoc, prevLoc *source.Location, name string) *Diagnostic {
	d := NewError("redeclaration: "+name).
		WithCode(ErrRedeclaration).
		WithPrimaryLabel(newLoc, "redeclared here")
	if prevLoc != nil {
		d.WithSecondaryLabel(prevLoc, "also declared here")
	}
	return d
}

// TypeMismatch reports an expression whose type does not conform.
func TypeMismatch(loc *source.Location, expected, found string) *Diagnostic {
	return NewError("type mismatch").
		WithCode(ErrTypeMismatch).
		WithPrimaryLabel(loc, fmt.Sprintf("expected %s, found %s", expected, found))
}

// WrongArgumentCount creates a diagnostic for wrong number of arguments
func WrongArgumentCount(loc *source.Location, expected, found int) *Diagnostic {
	return NewError("wrong number of arguments").
		WithCode(ErrWrongArgumentCount).
		WithPrimaryLabel(loc, fmt.Sprintf("expected %d argument(s), found %d", expected, found))
}

// Unreachable creates the unreachable code warning.
func Unreachable(loc *source.Location) *Diagnostic {
	return NewWarning("unreachable code").
		WithCode(WarnUnreachableCode).
		WithPrimaryLabel(loc, "this code is never executed")
}

// Internal wraps a recovered compiler bug as a diagnostic.
func Internal(loc *source.Location, cause any) *Diagnostic {
	d := NewError("internal compiler error").WithCode(ErrInternal)
	if loc != nil {
		d.WithPrimaryLabel(loc, "while compiling this declaration")
	}
	return d.WithNotef("%v", cause)
}
