package bytecode

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func method(name, desc string, code ...Instruction) *MethodNode {
	s := NewStream()
	for _, in := range code {
		s.Emit(in)
	}
	_ = s.Seal()
	return &MethodNode{Access: AccPublic | AccStatic, Name: name, Desc: desc, Code: s}
}

func module(ms ...*MethodNode) *Module {
	return &Module{Classes: []*ClassNode{{Access: AccPublic, Name: "a/namespace", Super: "java/lang/Object", Methods: ms}}}
}

func TestValidateAcceptsCountdown(t *testing.T) {
	// while (x > 0) { x = x - 1 }
	m := method("f", "(I)V",
		VarInsn(ILOAD, 0),
		Jump(IFLE, 7),
		VarInsn(ILOAD, 0),
		Op(ICONST_1),
		Op(ISUB),
		VarInsn(ISTORE, 0),
		Jump(GOTO, 0),
		Op(RETURN),
	)
	be.Err(t, Validate(module(m)), nil)

	depth, err := MaxStack(m)
	be.Err(t, err, nil)
	be.Equal(t, depth, 2)
}

func TestValidateUnsupported(t *testing.T) {
	m := method("f", "()V", Unsupported("non-local return"), Op(RETURN))
	err := Validate(module(m))
	var ue *UnsupportedError
	be.True(t, errors.As(err, &ue))
	be.Equal(t, ue.Reason, "non-local return")
	be.Equal(t, ue.Method, "f")
	be.Equal(t, ue.Index, 0)
}

func TestValidatePending(t *testing.T) {
	s := NewStream()
	s.Reserve()
	s.Emit(Op(RETURN))
	m := &MethodNode{Name: "f", Desc: "()V", Code: s}
	err := Validate(module(m))
	be.Err(t, err, "instruction stream was not sealed")
	be.Err(t, err, "1 unresolved jump slot(s), first at 0")
}

func TestValidateStackErrors(t *testing.T) {
	tests := []struct {
		name string
		m    *MethodNode
		want string
	}{
		{"underflow", method("f", "()V", Op(POP), Op(RETURN)), "stack underflow at 0"},
		{"falls off", method("f", "()V", Op(ICONST_0), Op(POP)), "falls off the end"},
		{
			"mismatch",
			method("f", "(I)I",
				VarInsn(ILOAD, 0),
				Jump(IFEQ, 4),
				Op(ICONST_1),
				Op(ICONST_2),
				Op(IRETURN),
			),
			"stack depth",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Err(t, Validate(module(tt.m)), tt.want)
		})
	}
}

func TestValidateAbstract(t *testing.T) {
	abstract := &MethodNode{Access: AccPublic | AccAbstract, Name: "g", Desc: "()V"}
	be.Err(t, Validate(module(abstract)), nil)

	concrete := &MethodNode{Access: AccPublic, Name: "g", Desc: "()V"}
	be.Err(t, Validate(module(concrete)), "concrete method without code")
}

func TestValidateExceptionRanges(t *testing.T) {
	m := method("f", "()V", Op(RETURN), Op(ATHROW))
	m.TryCatch = []TryCatchBlock{{Start: 0, End: 0, Handler: 1}}
	be.Err(t, Validate(module(m)), "bad exception range [0, 0) -> 1")

	m.TryCatch = []TryCatchBlock{{Start: 0, End: 1, Handler: 1}}
	be.Err(t, Validate(module(m)), nil)
	depth, err := MaxStack(m)
	be.Err(t, err, nil)
	be.Equal(t, depth, 1)
}

func TestValidateJoinsErrors(t *testing.T) {
	err := Validate(module(
		method("f", "()V", Unsupported("a"), Op(RETURN)),
		method("g", "()V", Unsupported("b"), Op(RETURN)),
	))
	be.Err(t, err, "unsupported construct at 0: a")
	be.Err(t, err, "unsupported construct at 0: b")
}
