package source

// Position represents a specific location in the source code with line, column, and index information.
type Position struct {
	Line   int // 1-based line
	Column int // 1-based column
	Index  int // byte offset
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}
