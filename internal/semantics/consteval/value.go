package consteval

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ConstValue represents a compile-time known constant value.
// Used for literal typing, constant conditions and constant folding.
type ConstValue struct {
	Kind  ConstKind
	Value interface{} // *big.Int, *big.Float, bool, rune, string or nil
}

// ConstKind categorizes a constant by the Jet class it belongs to.
type ConstKind int

const (
	ConstUnknown ConstKind = iota // Not a constant or cannot be evaluated
	ConstInt                      // Int (*big.Int, 32 bits)
	ConstLong                     // Long (*big.Int, 64 bits)
	ConstDouble                   // Double (*big.Float)
	ConstBool                     // Boolean (bool)
	ConstChar                     // Char (rune)
	ConstString                   // String (string)
	ConstNull                     // the null literal
)

func (k ConstKind) String() string {
	return [...]string{"?", "Int", "Long", "Double", "Boolean", "Char", "String", "Nothing?"}[k]
}

// bits is the two's complement width of an integral kind.
func (k ConstKind) bits() uint {
	if k == ConstLong {
		return 64
	}
	return 32
}

// NewIntValue creates an Int or Long constant, wrapping val to the width of
// kind the way the target machine does.
func NewIntValue(val *big.Int, kind ConstKind) *ConstValue {
	return &ConstValue{Kind: kind, Value: wrap(val, kind.bits())}
}

// NewDoubleValue creates a Double constant.
func NewDoubleValue(val *big.Float) *ConstValue {
	f, _ := val.Float64()
	return &ConstValue{Kind: ConstDouble, Value: new(big.Float).SetFloat64(f)}
}

// NewBoolValue creates a constant boolean value
func NewBoolValue(val bool) *ConstValue {
	return &ConstValue{Kind: ConstBool, Value: val}
}

// NewCharValue creates a Char constant.
func NewCharValue(val rune) *ConstValue {
	return &ConstValue{Kind: ConstChar, Value: val}
}

// NewStringValue creates a constant string value
func NewStringValue(val string) *ConstValue {
	return &ConstValue{Kind: ConstString, Value: val}
}

// Null is the constant of the null literal.
func Null() *ConstValue {
	return &ConstValue{Kind: ConstNull}
}

func wrap(v *big.Int, bits uint) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), bits)
	half := new(big.Int).Rsh(mod, 1)
	r := new(big.Int).Mod(v, mod)
	if r.Cmp(half) >= 0 {
		r.Sub(r, mod)
	}
	return r
}

// IsConstant returns true if the value represents a compile-time constant
func (cv *ConstValue) IsConstant() bool {
	return cv != nil && cv.Kind != ConstUnknown
}

// IsIntegral reports Int and Long constants.
func (cv *ConstValue) IsIntegral() bool {
	return cv != nil && (cv.Kind == ConstInt || cv.Kind == ConstLong)
}

// AsInt returns the integer value of an Int, Long or Char constant.
func (cv *ConstValue) AsInt() (*big.Int, bool) {
	if cv == nil {
		return nil, false
	}
	switch cv.Kind {
	case ConstInt, ConstLong:
		return cv.Value.(*big.Int), true
	case ConstChar:
		return big.NewInt(int64(cv.Value.(rune))), true
	}
	return nil, false
}

// AsInt64 returns the integer value as int64 if possible
func (cv *ConstValue) AsInt64() (int64, bool) {
	val, ok := cv.AsInt()
	if !ok || !val.IsInt64() {
		return 0, false
	}
	return val.Int64(), true
}

// AsFloat returns any numeric constant as a float.
func (cv *ConstValue) AsFloat() (*big.Float, bool) {
	if cv == nil {
		return nil, false
	}
	if cv.Kind == ConstDouble {
		return cv.Value.(*big.Float), true
	}
	if i, ok := cv.AsInt(); ok && cv.Kind != ConstChar {
		return new(big.Float).SetInt(i), true
	}
	return nil, false
}

// AsFloat64 returns the float value as float64 if possible
func (cv *ConstValue) AsFloat64() (float64, bool) {
	val, ok := cv.AsFloat()
	if !ok {
		return 0, false
	}
	f64, _ := val.Float64()
	return f64, true
}

// AsBool returns the boolean value if this is a ConstBool
func (cv *ConstValue) AsBool() (bool, bool) {
	if cv == nil || cv.Kind != ConstBool {
		return false, false
	}
	return cv.Value.(bool), true
}

// AsString returns the string value if this is a ConstString
func (cv *ConstValue) AsString() (string, bool) {
	if cv == nil || cv.Kind != ConstString {
		return "", false
	}
	return cv.Value.(string), true
}

// Text renders the value the way string concatenation would.
func (cv *ConstValue) Text() string {
	switch cv.Kind {
	case ConstInt, ConstLong:
		return cv.Value.(*big.Int).String()
	case ConstDouble:
		f, _ := cv.Value.(*big.Float).Float64()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case ConstBool:
		return strconv.FormatBool(cv.Value.(bool))
	case ConstChar:
		return string(cv.Value.(rune))
	case ConstString:
		return cv.Value.(string)
	case ConstNull:
		return "null"
	}
	return ""
}

// String returns a string representation of the constant value
func (cv *ConstValue) String() string {
	if cv == nil || cv.Kind == ConstUnknown {
		return "<non-constant>"
	}
	switch cv.Kind {
	case ConstString:
		return fmt.Sprintf("%q", cv.Value)
	case ConstChar:
		return fmt.Sprintf("'%c'", cv.Value)
	case ConstLong:
		return cv.Text() + "L"
	}
	return cv.Text()
}

// Equals compares two constant values for equality
func (cv *ConstValue) Equals(other *ConstValue) bool {
	if cv == nil || other == nil {
		return cv == other
	}
	if cv.Kind == ConstNull || other.Kind == ConstNull {
		return cv.Kind == other.Kind
	}
	if cmp, ok := compareValues(cv, other); ok {
		return cmp == 0
	}
	if cv.Kind != other.Kind {
		return false
	}
	return cv.Value == other.Value
}
