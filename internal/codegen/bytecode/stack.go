package bytecode

import (
	"github.com/pkg/errors"
)

// StackEffect returns how many slots in pops and pushes.
func StackEffect(in Instruction) (pop, push int, err error) {
	switch op := in.Op; {
	case op == NOP, op == GOTO, op == RETURN, op == IINC, op == UNSUPPORTED:
		return 0, 0, nil
	case op >= ACONST_NULL && op <= ICONST_5, op == FCONST_0, op == FCONST_1, op == FCONST_2,
		op == BIPUSH, op == SIPUSH:
		return 0, 1, nil
	case op == LCONST_0, op == LCONST_1, op == DCONST_0, op == DCONST_1:
		return 0, 2, nil
	case op == LDC:
		switch in.Const.(type) {
		case int64, float64:
			return 0, 2, nil
		}
		return 0, 1, nil
	case op == ILOAD, op == FLOAD, op == ALOAD:
		return 0, 1, nil
	case op == LLOAD, op == DLOAD:
		return 0, 2, nil
	case op == ISTORE, op == FSTORE, op == ASTORE:
		return 1, 0, nil
	case op == LSTORE, op == DSTORE:
		return 2, 0, nil
	case op == LALOAD, op == DALOAD:
		return 2, 2, nil
	case op >= IALOAD && op <= SALOAD:
		return 2, 1, nil
	case op == LASTORE, op == DASTORE:
		return 4, 0, nil
	case op >= IASTORE && op <= SASTORE:
		return 3, 0, nil
	case op == POP:
		return 1, 0, nil
	case op == POP2:
		return 2, 0, nil
	case op == DUP:
		return 1, 2, nil
	case op == DUP_X1:
		return 2, 3, nil
	case op == DUP_X2:
		return 3, 4, nil
	case op == DUP2:
		return 2, 4, nil
	case op == DUP2_X1:
		return 3, 5, nil
	case op == DUP2_X2:
		return 4, 6, nil
	case op == SWAP:
		return 2, 2, nil
	case op >= IADD && op <= DREM:
		size := 1
		if (op-IADD)%2 == 1 {
			size = 2 // long and double variants
		}
		return 2 * size, size, nil
	case op == INEG, op == FNEG:
		return 1, 1, nil
	case op == LNEG, op == DNEG:
		return 2, 2, nil
	case op == IAND, op == IOR, op == IXOR:
		return 2, 1, nil
	case op == LAND, op == LOR, op == LXOR:
		return 4, 2, nil
	case op == I2L, op == I2D, op == F2L, op == F2D:
		return 1, 2, nil
	case op == L2I, op == L2F, op == D2I, op == D2F:
		return 2, 1, nil
	case op == L2D, op == D2L:
		return 2, 2, nil
	case op == I2F, op == F2I, op == I2B, op == I2C, op == I2S:
		return 1, 1, nil
	case op == LCMP, op == DCMPL, op == DCMPG:
		return 4, 1, nil
	case op == FCMPL, op == FCMPG:
		return 2, 1, nil
	case op >= IFEQ && op <= IFLE, op == IFNULL, op == IFNONNULL:
		return 1, 0, nil
	case op >= IF_ICMPEQ && op <= IF_ACMPNE:
		return 2, 0, nil
	case op == IRETURN, op == FRETURN, op == ARETURN, op == ATHROW:
		return 1, 0, nil
	case op == LRETURN, op == DRETURN:
		return 2, 0, nil
	case op == NEW:
		return 0, 1, nil
	case op == NEWARRAY, op == ANEWARRAY, op == ARRAYLENGTH, op == CHECKCAST, op == INSTANCEOF:
		return 1, 1, nil
	case op >= GETSTATIC && op <= PUTFIELD:
		if in.Member == nil {
			return 0, 0, errors.Errorf("%s without a field operand", op)
		}
		t, err := ParseDescriptor(in.Member.Desc)
		if err != nil {
			return 0, 0, err
		}
		switch op {
		case GETSTATIC:
			return 0, t.Size(), nil
		case PUTSTATIC:
			return t.Size(), 0, nil
		case GETFIELD:
			return 1, t.Size(), nil
		}
		return 1 + t.Size(), 0, nil
	case op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE:
		if in.Member == nil {
			return 0, 0, errors.Errorf("%s without a method operand", op)
		}
		args, ret, err := ParseMethodDescriptor(in.Member.Desc)
		if err != nil {
			return 0, 0, err
		}
		for _, a := range args {
			pop += a.Size()
		}
		if op != INVOKESTATIC {
			pop++
		}
		return pop, ret.Size(), nil
	}
	return 0, 0, errors.Errorf("unknown opcode %s", in.Op)
}

// MaxStack computes the deepest operand stack the method reaches by
// following every path from the entry and the exception handlers. Paths
// that meet with different depths are an error.
func MaxStack(m *MethodNode) (int, error) {
	if m.Code == nil {
		return 0, nil
	}
	code := m.Code.Instructions()
	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	var work []int
	reach := func(at, d int) error {
		if at < 0 || at >= len(code) {
			return errors.Errorf("control reaches %d outside the method", at)
		}
		switch {
		case depth[at] < 0:
			depth[at] = d
			work = append(work, at)
		case depth[at] != d:
			return errors.Errorf("stack depth %d meets %d at %d", d, depth[at], at)
		}
		return nil
	}
	if len(code) > 0 {
		if err := reach(0, 0); err != nil {
			return 0, err
		}
	}
	for _, tc := range m.TryCatch {
		if err := reach(tc.Handler, 1); err != nil {
			return 0, err
		}
	}
	max := 0
	if len(m.TryCatch) > 0 {
		max = 1
	}
	for len(work) > 0 {
		at := work[len(work)-1]
		work = work[:len(work)-1]
		in := code[at]
		pop, push, err := StackEffect(in)
		if err != nil {
			return 0, errors.Wrapf(err, "instruction %d", at)
		}
		d := depth[at] - pop
		if d < 0 {
			return 0, errors.Errorf("stack underflow at %d (%s)", at, in)
		}
		d += push
		if d > max {
			max = d
		}
		if in.Op.IsJump() {
			if err := reach(in.Target, d); err != nil {
				return 0, err
			}
		}
		if in.Op.EndsBlock() {
			continue
		}
		if at+1 >= len(code) {
			return 0, errors.Errorf("control falls off the end of the method after %s", in)
		}
		if err := reach(at+1, d); err != nil {
			return 0, err
		}
	}
	return max, nil
}
