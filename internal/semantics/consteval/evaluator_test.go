package consteval

import (
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/tokens"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		lit  *ast.Literal
		kind ConstKind
		text string
	}{
		{&ast.Literal{Kind: ast.INT, Value: "42"}, ConstInt, "42"},
		{&ast.Literal{Kind: ast.INT, Value: "0x7fffffff"}, ConstInt, "2147483647"},
		{&ast.Literal{Kind: ast.INT, Value: "2147483648"}, ConstLong, "2147483648"},
		{&ast.Literal{Kind: ast.LONG, Value: "1"}, ConstLong, "1"},
		{&ast.Literal{Kind: ast.DOUBLE, Value: "1.5"}, ConstDouble, "1.5"},
		{&ast.Literal{Kind: ast.DOUBLE, Value: "2"}, ConstDouble, "2.0"},
		{&ast.Literal{Kind: ast.CHAR, Value: "a"}, ConstChar, "a"},
		{&ast.Literal{Kind: ast.STRING, Value: "hi"}, ConstString, "hi"},
		{&ast.Literal{Kind: ast.BOOL, Value: "true"}, ConstBool, "true"},
		{&ast.Literal{Kind: ast.NULL, Value: "null"}, ConstNull, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.lit.Value, func(t *testing.T) {
			v, err := ParseLiteral(tt.lit)
			be.Err(t, err, nil)
			be.Equal(t, v.Kind, tt.kind)
			be.Equal(t, v.Text(), tt.text)
		})
	}
}

func TestParseMultibyteChar(t *testing.T) {
	b := astbuild.New("char.jet")
	v, err := ParseLiteral(b.Char('é'))
	be.Err(t, err, nil)
	be.Equal(t, v.Kind, ConstChar)
	be.Equal(t, v.Text(), "é")
}

func TestParseLiteralOutOfRange(t *testing.T) {
	_, err := ParseLiteral(&ast.Literal{Kind: ast.INT, Value: "9223372036854775808"})
	be.Err(t, err, ErrOutOfRange)
}

func TestEvaluateExpr(t *testing.T) {
	b := astbuild.New("const.jet")
	ev := New(nil, nil)
	tests := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{"add", b.Bin(b.Int(2), tokens.PLUS_TOKEN, b.Int(3)), "5"},
		{"int overflow wraps", b.Bin(b.Int(2147483647), tokens.PLUS_TOKEN, b.Int(1)), "-2147483648"},
		{"long promotion", b.Bin(b.Int(2147483647), tokens.PLUS_TOKEN, b.Long(1)), "2147483648L"},
		{"truncated division", b.Bin(b.Int(-7), tokens.DIV_TOKEN, b.Int(2)), "-3"},
		{"remainder sign", b.Bin(b.Int(-7), tokens.MOD_TOKEN, b.Int(2)), "-1"},
		{"double", b.Bin(b.Double("1.5"), tokens.MUL_TOKEN, b.Int(2)), "3.0"},
		{"negate", b.Unary(tokens.MINUS_TOKEN, b.Int(5)), "-5"},
		{"not", b.Unary(tokens.NOT_TOKEN, b.Bool(true)), "false"},
		{"compare", b.Bin(b.Int(1), tokens.LESS_TOKEN, b.Long(2)), "true"},
		{"equality across kinds", b.Bin(b.Int(1), tokens.DOUBLE_EQUAL_TOKEN, b.Long(1)), "true"},
		{"string concat", b.Bin(b.Str("n="), tokens.PLUS_TOKEN, b.Int(3)), `"n=3"`},
		{"null equality", b.Bin(b.Null(), tokens.DOUBLE_EQUAL_TOKEN, b.Null()), "true"},
		{"short circuit and", b.Bin(b.Bool(false), tokens.AND_TOKEN, b.Name("x")), "false"},
		{"short circuit or", b.Bin(b.Bool(true), tokens.OR_TOKEN, b.Name("x")), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, FormatValue(ev.EvaluateExpr(tt.expr)), tt.want)
		})
	}
}

func TestNonConstant(t *testing.T) {
	b := astbuild.New("const.jet")
	ev := New(nil, nil)
	for _, e := range []ast.Expression{
		b.Name("x"),
		b.Call("f"),
		b.Bin(b.Int(1), tokens.DIV_TOKEN, b.Int(0)),
		b.Bin(b.Bool(true), tokens.AND_TOKEN, b.Name("x")),
		b.Bin(b.Str("a"), tokens.MINUS_TOKEN, b.Int(1)),
	} {
		be.Equal(t, ev.EvaluateExpr(e), (*ConstValue)(nil))
	}
	_, ok := ev.EvaluateAsBool(b.Int(1))
	be.True(t, !ok)
}
