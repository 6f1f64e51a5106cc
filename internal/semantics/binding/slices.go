package binding

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/types"
)

// Slices shared by several phases. Phase-specific slices (resolved calls,
// pseudocode) are declared by the package that owns their value type.
var (
	// Declaration maps a declaring node to its descriptor.
	Declaration = NewSlice[types.ID]("DECLARATION")
	// Reference maps a name or `this` expression to the descriptor it denotes.
	Reference = NewSlice[types.ID]("REFERENCE")
	// ExpressionType is the static type of an expression.
	ExpressionType = NewSlice[*types.Type]("EXPRESSION_TYPE")
	// ExpectedType is the type the context demanded, when there was one.
	ExpectedType = NewSlice[*types.Type]("EXPECTED_TYPE")
	// SmartCast is the narrowed type an expression is used at.
	SmartCast = NewSlice[*types.Type]("SMART_CAST")
	// ResolvedType maps a type node to its type.
	ResolvedType = NewSlice[*types.Type]("TYPE")
	// LoopTarget maps break/continue to the loop they leave.
	LoopTarget = NewSlice[ast.Expression]("LOOP_TARGET")
	// ReturnTarget maps a return to the function or literal it leaves.
	ReturnTarget = NewSlice[ast.Node]("RETURN_TARGET")
	// ClosureWrite marks a variable declaration that some closure assigns.
	ClosureWrite = NewSlice[bool]("CLOSURE_WRITE")
	// Captured marks a variable declaration read or written by a closure.
	Captured = NewSlice[bool]("CAPTURED")
	// Statement marks expressions whose value is discarded.
	Statement = NewSlice[bool]("STATEMENT")
)
