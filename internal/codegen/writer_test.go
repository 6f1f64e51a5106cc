package codegen

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/codegen/bytecode"
)

func class(name string, code ...bytecode.Instruction) *bytecode.ClassNode {
	s := bytecode.NewStream()
	for _, in := range code {
		s.Emit(in)
	}
	_ = s.Seal()
	return &bytecode.ClassNode{
		Access: bytecode.AccPublic,
		Name:   name,
		Super:  "java/lang/Object",
		Methods: []*bytecode.MethodNode{{
			Access: bytecode.AccPublic | bytecode.AccStatic,
			Name:   "f",
			Desc:   "()V",
			Code:   s,
		}},
	}
}

func TestWriteListings(t *testing.T) {
	dir := t.TempDir()
	m := &bytecode.Module{Build: "01HZY", Classes: []*bytecode.ClassNode{
		class("demo/namespace", bytecode.Op(bytecode.RETURN)),
		class("demo/Point", bytecode.Op(bytecode.RETURN)),
	}}
	w := &Writer{Dir: dir}
	paths, err := w.Write(m)
	be.Err(t, err, nil)
	be.Equal(t, len(paths), 2)

	data, err := os.ReadFile(filepath.Join(dir, "demo", "namespace"+Extension))
	be.Err(t, err, nil)
	text := string(data)
	be.True(t, strings.HasPrefix(text, "// build 01HZY\n"))
	be.True(t, strings.Contains(text, "class demo/namespace"))
	be.True(t, strings.Contains(text, "RETURN"))

	_, err = os.Stat(filepath.Join(dir, "demo", "Point"+Extension))
	be.Err(t, err, nil)
}

func TestWriteRejectsUnsupported(t *testing.T) {
	dir := t.TempDir()
	m := &bytecode.Module{Classes: []*bytecode.ClassNode{
		class("demo/namespace", bytecode.Unsupported("non-local return"), bytecode.Op(bytecode.RETURN)),
	}}
	paths, err := (&Writer{Dir: dir}).Write(m)
	be.Equal(t, len(paths), 0)
	var ue *bytecode.UnsupportedError
	be.True(t, errors.As(err, &ue))
	be.Equal(t, ue.Reason, "non-local return")

	entries, _ := os.ReadDir(dir)
	be.Equal(t, len(entries), 0)
}
