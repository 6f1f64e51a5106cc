// Package codegen hands generated modules to their consumers.
package codegen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"jetc/colors"
	"jetc/internal/codegen/bytecode"
)

// Extension of the class listings written by Writer.
const Extension = ".jasm"

// Writer stores every class of a module as a text listing under Dir, at the
// path given by the class's internal name.
type Writer struct {
	Dir   string
	Debug bool
}

// Write validates m and writes one listing per class. It returns the paths
// written. Nothing is written when validation fails.
func (w *Writer) Write(m *bytecode.Module) ([]string, error) {
	if err := bytecode.Validate(m); err != nil {
		return nil, errors.Wrap(err, "module cannot be written")
	}
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	var written []string
	for _, c := range m.Classes {
		path := filepath.Join(dir, filepath.FromSlash(c.Name)+Extension)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, errors.Wrapf(err, "create directory for %s", c.Name)
		}
		var sb strings.Builder
		if m.Build != "" {
			sb.WriteString("// build " + m.Build + "\n")
		}
		bytecode.DisassembleClass(&sb, c)
		if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
			return written, errors.Wrapf(err, "write %s", c.Name)
		}
		if w.Debug {
			colors.GREEN.Printf("  ✓ %s\n", path)
		}
		written = append(written, path)
	}
	return written, nil
}
