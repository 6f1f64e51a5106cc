package bytecode

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestDescriptors(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Int, "I"},
		{Long, "J"},
		{Boolean, "Z"},
		{Void, "V"},
		{String, "Ljava/lang/String;"},
		{ArrayOf(Int), "[I"},
		{ArrayOf(ArrayOf(Object)), "[[Ljava/lang/Object;"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			be.Equal(t, tt.typ.Descriptor(), tt.want)
			got, err := ParseDescriptor(tt.want)
			be.Err(t, err, nil)
			be.Equal(t, got, tt.typ)
		})
	}
}

func TestMethodDescriptor(t *testing.T) {
	desc := MethodDescriptor(Void, Int, ArrayOf(String), Double)
	be.Equal(t, desc, "(I[Ljava/lang/String;D)V")

	args, ret, err := ParseMethodDescriptor(desc)
	be.Err(t, err, nil)
	be.Equal(t, args, []Type{Int, ArrayOf(String), Double})
	be.Equal(t, ret, Void)
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"I)V", "malformed"},
		{"(I", "unterminated method descriptor"},
		{"(Ljava/lang/String)V", "unterminated class name"},
		{"(I)VV", "trailing characters"},
		{"(Q)V", "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, _, err := ParseMethodDescriptor(tt.desc)
			be.Err(t, err, tt.want)
		})
	}
}

func TestTypeOpcode(t *testing.T) {
	be.Equal(t, Long.Opcode(ILOAD), LLOAD)
	be.Equal(t, String.Opcode(ISTORE), ASTORE)
	be.Equal(t, Double.Opcode(IADD), DADD)
	be.Equal(t, Void.Opcode(IRETURN), RETURN)
	be.Equal(t, Char.Opcode(IALOAD), CALOAD)
	be.Equal(t, Boolean.Opcode(IASTORE), BASTORE)
	be.Equal(t, Long.Opcode(IXOR), LXOR)
	be.Equal(t, ArrayOf(Int).Element(), Int)
	be.Equal(t, Long.Size(), 2)
}
