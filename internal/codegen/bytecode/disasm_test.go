package bytecode

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestDisassemble(t *testing.T) {
	m := method("f", "(I)V",
		VarInsn(ILOAD, 0),
		Jump(IFLE, 4),
		Iinc(0, -1),
		Jump(GOTO, 0),
		Op(RETURN),
	)
	m.MaxLocals, m.MaxStack = 1, 1
	mod := module(m)
	mod.Build = "01J0"
	mod.Classes[0].Fields = []*FieldNode{{Access: AccPrivate | AccStatic | AccFinal, Name: "N", Desc: "I", Value: int32(3)}}

	got := Disassemble(mod)
	for _, want := range []string{
		"// build 01J0",
		"public class a/namespace extends java/lang/Object {",
		"field private static final N I = 3",
		"method public static f (I)V [locals=1 stack=1]",
		"L0:       0  ILOAD 0",
		"IFLE L4",
		"IINC 0 -1",
		"L4:       4  RETURN",
	} {
		be.True(t, strings.Contains(got, want))
	}
}

func TestDisassemblePending(t *testing.T) {
	s := NewStream()
	s.Reserve()
	m := &MethodNode{Name: "f", Desc: "()V", Code: s}
	got := Disassemble(module(m))
	be.True(t, strings.Contains(got, "<pending>"))
}
