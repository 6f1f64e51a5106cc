// Package consteval folds constant expressions: literals, operators over
// constants and references to `val`s with constant initializers.
package consteval

import (
	"math/big"

	"github.com/pkg/errors"

	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/tokens"
	"jetc/internal/types"
)

// ErrOutOfRange is returned for integer literals that fit no integral type.
var ErrOutOfRange = errors.New("the value is out of range")

// ParseLiteral evaluates a literal. Integer literals that do not fit Int
// become Long; literals that do not fit Long return ErrOutOfRange.
func ParseLiteral(lit *ast.Literal) (*ConstValue, error) {
	switch lit.Kind {
	case ast.INT, ast.LONG:
		val, ok := new(big.Int).SetString(lit.Value, 0)
		if !ok {
			return nil, errors.Errorf("malformed integer literal %q", lit.Value)
		}
		if !val.IsInt64() {
			return nil, errors.Wrapf(ErrOutOfRange, "integer literal %s", lit.Value)
		}
		if lit.Kind == ast.INT && inRange(val, 32) {
			return NewIntValue(val, ConstInt), nil
		}
		return NewIntValue(val, ConstLong), nil

	case ast.DOUBLE, ast.FLOAT:
		val, _, err := big.ParseFloat(lit.Value, 10, 53, big.ToNearestEven)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed floating point literal %q", lit.Value)
		}
		return NewDoubleValue(val), nil

	case ast.CHAR:
		r := []rune(lit.Value)
		if len(r) != 1 {
			return nil, errors.Errorf("malformed character literal %q", lit.Value)
		}
		return NewCharValue(r[0]), nil

	case ast.STRING:
		return NewStringValue(lit.Value), nil

	case ast.BOOL:
		return NewBoolValue(lit.Value == "true"), nil

	case ast.NULL:
		return Null(), nil
	}
	return nil, errors.Errorf("unknown literal kind %d", lit.Kind)
}

func inRange(v *big.Int, bits uint) bool {
	return wrap(v, bits).Cmp(v) == 0
}

// Evaluator folds expressions. References are resolved through the binding
// store, so names only fold once the enclosing body has been typed.
type Evaluator struct {
	store    *binding.Store
	table    *types.Table
	visiting map[types.ID]bool
}

// New creates an evaluator. store and table may be nil, in which case names
// never fold.
func New(store *binding.Store, table *types.Table) *Evaluator {
	return &Evaluator{store: store, table: table, visiting: make(map[types.ID]bool)}
}

// EvaluateExpr attempts to evaluate an expression to a compile-time constant value
// Returns nil if the expression cannot be evaluated at compile-time
func (e *Evaluator) EvaluateExpr(expr ast.Expression) *ConstValue {
	switch x := expr.(type) {
	case *ast.Literal:
		v, err := ParseLiteral(x)
		if err != nil {
			return nil
		}
		return v
	case *ast.NameExpr:
		return e.evaluateName(x)
	case *ast.UnaryExpr:
		return e.evaluateUnary(x)
	case *ast.BinaryExpr:
		return e.evaluateBinary(x)
	}
	// Cannot evaluate: calls, member access, control flow
	return nil
}

// EvaluateAsBool evaluates a condition. ok is false when it is not constant.
func (e *Evaluator) EvaluateAsBool(expr ast.Expression) (value bool, ok bool) {
	return e.EvaluateExpr(expr).AsBool()
}

// evaluateName folds a reference to a `val` without a custom getter whose
// initializer is itself constant.
func (e *Evaluator) evaluateName(n *ast.NameExpr) *ConstValue {
	if e.store == nil || e.table == nil {
		return nil
	}
	id, ok := binding.Get(e.store, binding.Reference, ast.Node(n))
	if !ok || e.visiting[id] {
		return nil
	}
	d := e.table.Get(id)
	if d.Kind != types.KindVariable || d.Var.Mutable || d.Var.CustomGetter || !d.IsFinal() {
		return nil
	}
	prop, ok := d.Decl.(*ast.PropertyDecl)
	if !ok || prop.Init == nil {
		return nil
	}
	e.visiting[id] = true
	defer delete(e.visiting, id)
	return e.EvaluateExpr(prop.Init)
}

// evaluateUnary evaluates unary operations (-x, !x, +x)
func (e *Evaluator) evaluateUnary(unary *ast.UnaryExpr) *ConstValue {
	operand := e.EvaluateExpr(unary.X)
	if operand == nil {
		return nil
	}
	switch unary.Op.Kind {
	case tokens.MINUS_TOKEN:
		if operand.IsIntegral() {
			val, _ := operand.AsInt()
			return NewIntValue(new(big.Int).Neg(val), operand.Kind)
		}
		if operand.Kind == ConstDouble {
			val, _ := operand.AsFloat()
			return NewDoubleValue(new(big.Float).Neg(val))
		}
	case tokens.PLUS_TOKEN:
		if operand.IsIntegral() || operand.Kind == ConstDouble {
			return operand
		}
	case tokens.NOT_TOKEN:
		if val, ok := operand.AsBool(); ok {
			return NewBoolValue(!val)
		}
	}
	return nil
}

// evaluateBinary evaluates binary operations
func (e *Evaluator) evaluateBinary(binary *ast.BinaryExpr) *ConstValue {
	left := e.EvaluateExpr(binary.X)
	if left == nil {
		return nil
	}
	// && and || fold on the left operand alone when it decides the result
	switch binary.Op.Kind {
	case tokens.AND_TOKEN:
		if l, ok := left.AsBool(); ok && !l {
			return NewBoolValue(false)
		}
	case tokens.OR_TOKEN:
		if l, ok := left.AsBool(); ok && l {
			return NewBoolValue(true)
		}
	}
	right := e.EvaluateExpr(binary.Y)
	if right == nil {
		return nil
	}

	switch binary.Op.Kind {
	case tokens.PLUS_TOKEN:
		if left.Kind == ConstString {
			return NewStringValue(left.Text() + right.Text())
		}
		return arith(left, right, binary.Op.Kind)
	case tokens.MINUS_TOKEN, tokens.MUL_TOKEN, tokens.DIV_TOKEN, tokens.MOD_TOKEN:
		return arith(left, right, binary.Op.Kind)

	case tokens.DOUBLE_EQUAL_TOKEN:
		return NewBoolValue(left.Equals(right))
	case tokens.NOT_EQUAL_TOKEN:
		return NewBoolValue(!left.Equals(right))
	case tokens.LESS_TOKEN, tokens.GREATER_TOKEN, tokens.LESS_EQUAL_TOKEN, tokens.GREATER_EQUAL_TOKEN:
		cmp, ok := compareValues(left, right)
		if !ok {
			return nil
		}
		switch binary.Op.Kind {
		case tokens.LESS_TOKEN:
			return NewBoolValue(cmp < 0)
		case tokens.GREATER_TOKEN:
			return NewBoolValue(cmp > 0)
		case tokens.LESS_EQUAL_TOKEN:
			return NewBoolValue(cmp <= 0)
		}
		return NewBoolValue(cmp >= 0)

	case tokens.AND_TOKEN, tokens.OR_TOKEN:
		l, lok := left.AsBool()
		r, rok := right.AsBool()
		if !lok || !rok {
			return nil
		}
		if binary.Op.Kind == tokens.AND_TOKEN {
			return NewBoolValue(l && r)
		}
		return NewBoolValue(l || r)
	}
	return nil
}

// resultKind is the numeric promotion of two operand kinds.
func resultKind(a, b ConstKind) ConstKind {
	switch {
	case a == ConstDouble || b == ConstDouble:
		return ConstDouble
	case a == ConstLong || b == ConstLong:
		return ConstLong
	}
	return ConstInt
}

func numeric(v *ConstValue) bool {
	return v.IsIntegral() || v.Kind == ConstDouble
}

func arith(left, right *ConstValue, op tokens.TOKEN) *ConstValue {
	if !numeric(left) || !numeric(right) {
		return nil
	}
	kind := resultKind(left.Kind, right.Kind)
	if kind == ConstDouble {
		l, _ := left.AsFloat()
		r, _ := right.AsFloat()
		switch op {
		case tokens.PLUS_TOKEN:
			return NewDoubleValue(new(big.Float).Add(l, r))
		case tokens.MINUS_TOKEN:
			return NewDoubleValue(new(big.Float).Sub(l, r))
		case tokens.MUL_TOKEN:
			return NewDoubleValue(new(big.Float).Mul(l, r))
		case tokens.DIV_TOKEN:
			if r.Sign() == 0 {
				return nil // infinities are left to run time
			}
			return NewDoubleValue(new(big.Float).Quo(l, r))
		}
		return nil
	}
	l, _ := left.AsInt()
	r, _ := right.AsInt()
	switch op {
	case tokens.PLUS_TOKEN:
		return NewIntValue(new(big.Int).Add(l, r), kind)
	case tokens.MINUS_TOKEN:
		return NewIntValue(new(big.Int).Sub(l, r), kind)
	case tokens.MUL_TOKEN:
		return NewIntValue(new(big.Int).Mul(l, r), kind)
	case tokens.DIV_TOKEN:
		if r.Sign() == 0 {
			return nil // Division by zero
		}
		// truncated division, like the target machine
		return NewIntValue(new(big.Int).Quo(l, r), kind)
	case tokens.MOD_TOKEN:
		if r.Sign() == 0 {
			return nil // Modulo by zero
		}
		return NewIntValue(new(big.Int).Rem(l, r), kind)
	}
	return nil
}

// compareValues orders two constants of comparable kinds.
func compareValues(left, right *ConstValue) (int, bool) {
	switch {
	case left.IsIntegral() && right.IsIntegral():
		l, _ := left.AsInt()
		r, _ := right.AsInt()
		return l.Cmp(r), true
	case numeric(left) && numeric(right):
		l, _ := left.AsFloat()
		r, _ := right.AsFloat()
		return l.Cmp(r), true
	case left.Kind == ConstChar && right.Kind == ConstChar:
		l, _ := left.AsInt()
		r, _ := right.AsInt()
		return l.Cmp(r), true
	case left.Kind == ConstString && right.Kind == ConstString:
		l, _ := left.AsString()
		r, _ := right.AsString()
		switch {
		case l < r:
			return -1, true
		case l > r:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// FormatValue returns a human-readable representation of a constant value
func FormatValue(val *ConstValue) string {
	if val == nil {
		return "<non-constant>"
	}
	return val.String()
}

