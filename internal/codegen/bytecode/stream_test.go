package bytecode

import (
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/invariant"
)

func TestStreamReserveReplace(t *testing.T) {
	s := NewStream()
	s.Emit(VarInsn(ILOAD, 0))
	exit := s.Reserve()
	s.Emit(Iinc(0, -1))
	s.Emit(Jump(GOTO, 0))
	be.Equal(t, s.Pending(), []int{1})

	s.Replace(exit, Jump(IFLE, s.Emit(Op(RETURN))))
	be.Equal(t, len(s.Pending()), 0)
	be.Err(t, s.Seal(), nil)
	be.True(t, s.Sealed())

	in := s.At(exit).Insn
	be.Equal(t, in.Op, IFLE)
	be.Equal(t, in.Target, 4)
}

func TestStreamDoubleReplace(t *testing.T) {
	s := NewStream()
	at := s.Reserve()
	s.Replace(at, Op(NOP))
	err := invariant.Catch(func() { s.Replace(at, Op(NOP)) })
	be.Err(t, err, "replace of resolved slot 0")
}

func TestStreamReplaceOutOfRange(t *testing.T) {
	s := NewStream()
	err := invariant.Catch(func() { s.Replace(3, Op(NOP)) })
	be.Err(t, err, "outside a stream of 0")
}

func TestStreamSealed(t *testing.T) {
	s := NewStream()
	s.Emit(Op(RETURN))
	be.Err(t, s.Seal(), nil)
	be.Err(t, invariant.Catch(func() { s.Emit(Op(NOP)) }), "emit into a sealed stream")
	be.Err(t, invariant.Catch(func() { s.Reserve() }), "reserve in a sealed stream")
}

func TestStreamSealErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Stream)
		want  string
	}{
		{"pending", func(s *Stream) { s.Reserve(); s.Reserve() }, "unresolved jump slots at 0, 1"},
		{"target", func(s *Stream) { s.Emit(Jump(GOTO, 7)) }, "jump at 0 targets 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream()
			tt.build(s)
			be.Err(t, s.Seal(), tt.want)
			be.True(t, s.Sealed())
		})
	}
}

func TestStreamInstructionsPendingAsNop(t *testing.T) {
	s := NewStream()
	s.Reserve()
	s.Emit(Op(RETURN))
	code := s.Instructions()
	be.Equal(t, code[0].Op, NOP)
	be.Equal(t, code[1].Op, RETURN)
	_, ok := s.Last()
	be.True(t, ok)
}
