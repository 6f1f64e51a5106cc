package typechecker

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/types"
)

var (
	// ImplicitReceiver maps a name or call that goes through an implicit
	// `this` to the declaration introducing the receiver: a class or an
	// extension function.
	ImplicitReceiver = binding.NewSlice[types.ID]("IMPLICIT_RECEIVER")
	// OperatorCall maps an operator expression on non-primitive operands to
	// the member it calls.
	OperatorCall = binding.NewSlice[*calls.Call]("OPERATOR_CALL")
	// LoopIteration maps a for loop to the calls stepping through its range.
	LoopIteration = binding.NewSlice[*Iteration]("LOOP_ITERATION")
)

// Iteration is how a for loop walks the value it iterates over:
// iterator() once, then hasNext() and next() per step.
type Iteration struct {
	Iterator *calls.Call
	HasNext  *calls.Call
	Next     *calls.Call
	Element  *types.Type
}

// narrow records the static type of a value read and returns the type it
// can be used at on the current path.
func (b *body) narrow(e ast.Expression, static *types.Type, c ctx) *types.Type {
	if static == nil {
		return types.ErrorType()
	}
	note(b.store, binding.ExpressionType, ast.Node(e), static)
	v := b.df.ValueOf(e, static)
	if t, ok := b.df.SmartCastType(v, c.info); ok {
		note(b.store, binding.SmartCast, ast.Node(e), t)
		return t
	}
	return static
}
