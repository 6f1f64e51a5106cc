package source

import (
	"fmt"
)

// Location represents a span of source code with start and end positions
type Location struct {
	Start    *Position
	End      *Position
	Filename *string
}

// NewLocation creates a new Location with the given start and end positions
func NewLocation(filename *string, start, end *Position) *Location {
	return &Location{
		Filename: filename,
		Start:    start,
		End:      end,
	}
}

// Span is a convenience constructor used by tree builders and tests.
func Span(filename string, line, col, endLine, endCol int) Location {
	return Location{
		Filename: &filename,
		Start:    &Position{Line: line, Column: col},
		End:      &Position{Line: endLine, Column: endCol},
	}
}

// File returns the file name or "" when unknown.
func (l *Location) File() string {
	if l == nil || l.Filename == nil {
		return ""
	}
	return *l.Filename
}

// IsValid reports whether both ends of the span are known.
func (l *Location) IsValid() bool {
	return l != nil && l.Start != nil && l.End != nil
}

// Contains checks if the given position is within this location
func (l *Location) Contains(pos *Position) bool {
	if !l.IsValid() || pos == nil {
		return false
	}
	if l.Start.Line > pos.Line || (l.Start.Line == pos.Line && l.Start.Column > pos.Column) {
		return false
	}
	if l.End.Line < pos.Line || (l.End.Line == pos.Line && l.End.Column < pos.Column) {
		return false
	}
	return true
}

// Encloses reports whether o lies entirely within l.
func (l *Location) Encloses(o *Location) bool {
	if !l.IsValid() || !o.IsValid() {
		return false
	}
	return l.Contains(o.Start) && l.Contains(o.End)
}

// Merge returns the smallest span covering both locations.
func Merge(a, b *Location) *Location {
	if !a.IsValid() {
		return b
	}
	if !b.IsValid() {
		return a
	}
	start, end := a.Start, a.End
	if b.Start.Before(*start) {
		start = b.Start
	}
	if end.Before(*b.End) {
		end = b.End
	}
	return &Location{Filename: a.Filename, Start: start, End: end}
}

func (l *Location) String() string {
	if l == nil || l.Start == nil || l.End == nil {
		return "location(unknown)"
	}

	return fmt.Sprintf("location(%d:%d - %d:%d)", l.Start.Line, l.Start.Column, l.End.Line, l.End.Column)
}
