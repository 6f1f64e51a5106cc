package bytecode

import (
	"fmt"
	"strconv"
)

// MemberRef names a field or method operand.
type MemberRef struct {
	Owner     string
	Name      string
	Desc      string
	Interface bool // method of an interface
}

func (m *MemberRef) String() string {
	return m.Owner + "." + m.Name + " " + m.Desc
}

// Instruction is one stack machine operation with its operands. Which
// operand fields are meaningful depends on Op.
type Instruction struct {
	Op      Opcode
	Var     int        // local slot of loads, stores and IINC
	Operand int        // BIPUSH, SIPUSH and NEWARRAY operand, IINC increment
	Const   any        // LDC operand: int32, int64, float32, float64 or string
	Target  int        // jump target instruction index
	Class   string     // NEW, ANEWARRAY, CHECKCAST and INSTANCEOF operand
	Member  *MemberRef // field and method operand
	Reason  string     // what an UNSUPPORTED marker stands for
}

// Op builds an instruction without operands.
func Op(op Opcode) Instruction { return Instruction{Op: op} }

// VarInsn builds a load or store of a local slot.
func VarInsn(op Opcode, slot int) Instruction { return Instruction{Op: op, Var: slot} }

// IntInsn builds BIPUSH, SIPUSH or NEWARRAY.
func IntInsn(op Opcode, operand int) Instruction { return Instruction{Op: op, Operand: operand} }

// Iinc increments an int local in place.
func Iinc(slot, delta int) Instruction { return Instruction{Op: IINC, Var: slot, Operand: delta} }

// Ldc pushes a constant.
func Ldc(v any) Instruction { return Instruction{Op: LDC, Const: v} }

// Jump builds a jump to the instruction at target.
func Jump(op Opcode, target int) Instruction { return Instruction{Op: op, Target: target} }

// TypeInsn builds NEW, ANEWARRAY, CHECKCAST or INSTANCEOF.
func TypeInsn(op Opcode, class string) Instruction { return Instruction{Op: op, Class: class} }

// FieldInsn builds GETSTATIC, PUTSTATIC, GETFIELD or PUTFIELD.
func FieldInsn(op Opcode, owner, name, desc string) Instruction {
	return Instruction{Op: op, Member: &MemberRef{Owner: owner, Name: name, Desc: desc}}
}

// MethodInsn builds an invocation.
func MethodInsn(op Opcode, owner, name, desc string, itf bool) Instruction {
	return Instruction{Op: op, Member: &MemberRef{Owner: owner, Name: name, Desc: desc, Interface: itf || op == INVOKEINTERFACE}}
}

// Unsupported marks a construct that could not be lowered.
func Unsupported(reason string) Instruction { return Instruction{Op: UNSUPPORTED, Reason: reason} }

func (in Instruction) String() string {
	switch {
	case in.Op == UNSUPPORTED:
		return "UNSUPPORTED " + strconv.Quote(in.Reason)
	case in.Op.IsJump():
		return fmt.Sprintf("%s L%d", in.Op, in.Target)
	case in.Op == IINC:
		return fmt.Sprintf("IINC %d %d", in.Var, in.Operand)
	case in.Op == BIPUSH, in.Op == SIPUSH, in.Op == NEWARRAY:
		return fmt.Sprintf("%s %d", in.Op, in.Operand)
	case in.Op == LDC:
		return "LDC " + formatConst(in.Const)
	case in.Member != nil:
		return in.Op.String() + " " + in.Member.String()
	case in.Class != "":
		return in.Op.String() + " " + in.Class
	case isVarOp(in.Op):
		return fmt.Sprintf("%s %d", in.Op, in.Var)
	}
	return in.Op.String()
}

func isVarOp(op Opcode) bool {
	return (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE)
}

func formatConst(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64) + "D"
	}
	return fmt.Sprint(v)
}
