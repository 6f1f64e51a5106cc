// Package tokens names the operators that appear in Jet syntax trees.
package tokens

import (
	"jetc/internal/source"
)

type TOKEN string

const (
	//arithmetic operators
	PLUS_TOKEN  TOKEN = "+"
	MINUS_TOKEN TOKEN = "-"
	MUL_TOKEN   TOKEN = "*"
	DIV_TOKEN   TOKEN = "/"
	MOD_TOKEN   TOKEN = "%"
	RANGE_TOKEN TOKEN = ".."
	//increment and decrement
	PLUS_PLUS_TOKEN   TOKEN = "++"
	MINUS_MINUS_TOKEN TOKEN = "--"
	//logical operators
	AND_TOKEN TOKEN = "&&"
	OR_TOKEN  TOKEN = "||"
	NOT_TOKEN TOKEN = "!"
	//comparison
	LESS_TOKEN          TOKEN = "<"
	GREATER_TOKEN       TOKEN = ">"
	LESS_EQUAL_TOKEN    TOKEN = "<="
	GREATER_EQUAL_TOKEN TOKEN = ">="
	DOUBLE_EQUAL_TOKEN  TOKEN = "=="
	NOT_EQUAL_TOKEN     TOKEN = "!="
	IDENTITY_TOKEN      TOKEN = "==="
	NOT_IDENTITY_TOKEN  TOKEN = "!=="
	//nullability
	ELVIS_TOKEN    TOKEN = "?:"
	NOT_NULL_TOKEN TOKEN = "!!"
	//assignment
	EQUALS_TOKEN       TOKEN = "="
	PLUS_EQUALS_TOKEN  TOKEN = "+="
	MINUS_EQUALS_TOKEN TOKEN = "-="
	MUL_EQUALS_TOKEN   TOKEN = "*="
	DIV_EQUALS_TOKEN   TOKEN = "/="
	MOD_EQUALS_TOKEN   TOKEN = "%="
)

// Token is an operator occurrence in the tree.
type Token struct {
	Kind TOKEN
	source.Location
}

// Op builds a token without position, as used by synthetic trees.
func Op(kind TOKEN) Token {
	return Token{Kind: kind}
}

func (t Token) String() string { return string(t.Kind) }

var compoundAssign = map[TOKEN]TOKEN{
	PLUS_EQUALS_TOKEN:  PLUS_TOKEN,
	MINUS_EQUALS_TOKEN: MINUS_TOKEN,
	MUL_EQUALS_TOKEN:   MUL_TOKEN,
	DIV_EQUALS_TOKEN:   DIV_TOKEN,
	MOD_EQUALS_TOKEN:   MOD_TOKEN,
}

// BaseOperator maps `+=` to `+` and so on. ok is false for non-compound kinds.
func BaseOperator(kind TOKEN) (TOKEN, bool) {
	op, ok := compoundAssign[kind]
	return op, ok
}

// IsArithmetic reports +, -, *, /, %.
func IsArithmetic(kind TOKEN) bool {
	switch kind {
	case PLUS_TOKEN, MINUS_TOKEN, MUL_TOKEN, DIV_TOKEN, MOD_TOKEN:
		return true
	}
	return false
}

// IsComparison reports ordering comparisons (<, >, <=, >=).
func IsComparison(kind TOKEN) bool {
	switch kind {
	case LESS_TOKEN, GREATER_TOKEN, LESS_EQUAL_TOKEN, GREATER_EQUAL_TOKEN:
		return true
	}
	return false
}

// IsEquality reports ==, !=, === and !==.
func IsEquality(kind TOKEN) bool {
	switch kind {
	case DOUBLE_EQUAL_TOKEN, NOT_EQUAL_TOKEN, IDENTITY_TOKEN, NOT_IDENTITY_TOKEN:
		return true
	}
	return false
}

// IsNegatedEquality reports != and !==.
func IsNegatedEquality(kind TOKEN) bool {
	return kind == NOT_EQUAL_TOKEN || kind == NOT_IDENTITY_TOKEN
}

// OperatorName returns the conventional member name an operator resolves to
// on non-primitive receivers (a + b -> a.plus(b)).
func OperatorName(kind TOKEN) string {
	switch kind {
	case PLUS_TOKEN, PLUS_EQUALS_TOKEN:
		return "plus"
	case MINUS_TOKEN, MINUS_EQUALS_TOKEN:
		return "minus"
	case MUL_TOKEN, MUL_EQUALS_TOKEN:
		return "times"
	case DIV_TOKEN, DIV_EQUALS_TOKEN:
		return "div"
	case MOD_TOKEN, MOD_EQUALS_TOKEN:
		return "mod"
	case RANGE_TOKEN:
		return "rangeTo"
	case PLUS_PLUS_TOKEN:
		return "inc"
	case MINUS_MINUS_TOKEN:
		return "dec"
	case LESS_TOKEN, GREATER_TOKEN, LESS_EQUAL_TOKEN, GREATER_EQUAL_TOKEN:
		return "compareTo"
	case DOUBLE_EQUAL_TOKEN, NOT_EQUAL_TOKEN:
		return "equals"
	}
	return ""
}
