// Package diagnostics holds user-facing compiler messages: the Diagnostic
// builder, the thread-safe bag that collects them and the terminal emitter.
package diagnostics

import (
	"fmt"

	"jetc/internal/source"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Label represents a labeled section of code in a diagnostic
type Label struct {
	Location *source.Location
	Message  string
	Style    LabelStyle
}

type LabelStyle int

const (
	Primary   LabelStyle = iota // The main error location (uses ^^^)
	Secondary                   // Additional context (uses ---)
)

// Note represents additional information attached to a diagnostic
type Note struct {
	Message string
}

// Diagnostic represents a compiler diagnostic (error, warning, etc.)
type Diagnostic struct {
	Severity Severity
	Message  string
	Code     string // Error code like "T0001"
	FilePath string // Source file for this diagnostic
	Labels   []Label
	Notes    []Note
	Help     string // Suggestion for fixing the error
}

func newDiagnostic(sev Severity, message string) *Diagnostic {
	return &Diagnostic{
		Severity: sev,
		Message:  message,
		Labels:   make([]Label, 0),
		Notes:    make([]Note, 0),
	}
}

// NewError creates a new error diagnostic
func NewError(message string) *Diagnostic {
	return newDiagnostic(Error, message)
}

// NewWarning creates a new warning diagnostic
func NewWarning(message string) *Diagnostic {
	return newDiagnostic(Warning, message)
}

// NewInfo creates a new info diagnostic
func NewInfo(message string) *Diagnostic {
	return newDiagnostic(Info, message)
}

// WithCode sets the error code
func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

// WithPrimaryLabel sets the main location. The primary label is always kept
// first; a second call is ignored.
func (d *Diagnostic) WithPrimaryLabel(loc *source.Location, message string) *Diagnostic {
	for _, label := range d.Labels {
		if label.Style == Primary {
			return d
		}
	}
	if d.FilePath == "" {
		d.FilePath = loc.File()
	}
	d.Labels = append([]Label{{Location: loc, Message: message, Style: Primary}}, d.Labels...)
	return d
}

// WithSecondaryLabel adds a context label. A primary label must exist.
func (d *Diagnostic) WithSecondaryLabel(loc *source.Location, message string) *Diagnostic {
	if d.Primary() == nil {
		panic("cannot add secondary label without primary label, call WithPrimaryLabel first")
	}
	d.Labels = append(d.Labels, Label{Location: loc, Message: message, Style: Secondary})
	return d
}

// WithNote adds a note to the diagnostic
func (d *Diagnostic) WithNote(message string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Message: message})
	return d
}

// WithNotef is WithNote with formatting.
func (d *Diagnostic) WithNotef(format string, args ...any) *Diagnostic {
	return d.WithNote(fmt.Sprintf(format, args...))
}

// WithHelp sets helpful suggestion for fixing the error
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// Primary returns the primary label or nil.
func (d *Diagnostic) Primary() *Label {
	for i := range d.Labels {
		if d.Labels[i].Style == Primary {
			return &d.Labels[i]
		}
	}
	return nil
}

// Location returns the primary label's span, or nil.
func (d *Diagnostic) Location() *source.Location {
	if p := d.Primary(); p != nil {
		return p.Location
	}
	return nil
}

// Key is a compact identity used to compare diagnostic sets: severity, code,
// file, primary position and message.
func (d *Diagnostic) Key() string {
	line, col := 0, 0
	if loc := d.Location(); loc.IsValid() {
		line, col = loc.Start.Line, loc.Start.Column
	}
	return fmt.Sprintf("%s[%s] %s:%d:%d %s", d.Severity, d.Code, d.FilePath, line, col, d.Message)
}

func (d *Diagnostic) String() string {
	return d.Key()
}
