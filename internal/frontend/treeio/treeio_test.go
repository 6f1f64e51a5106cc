package treeio

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/frontend/ast"
	"jetc/internal/tokens"
)

const countdown = `{
  "kind": "file",
  "attrs": {"path": "count.jet", "package": "demo"},
  "children": {
    "decls": [{
      "kind": "fun", "span": [1, 1, 3, 2],
      "attrs": {"name": "countdown"},
      "children": {
        "params": [{"kind": "param", "attrs": {"name": "x0"},
                    "children": {"type": [{"kind": "userType", "attrs": {"name": "Int"}}]}}],
        "body": [{"kind": "block", "children": {"stmts": [
          {"kind": "property", "attrs": {"name": "x", "var": true},
           "children": {"init": [{"kind": "name", "attrs": {"name": "x0"}}]}},
          {"kind": "while", "span": [2, 3, 2, 40],
           "children": {
             "cond": [{"kind": "binary", "attrs": {"op": ">"}, "children": {
               "x": [{"kind": "name", "attrs": {"name": "x"}}],
               "y": [{"kind": "literal", "attrs": {"litKind": "int", "value": "0"}}]}}],
             "body": [{"kind": "block", "children": {"stmts": [
               {"kind": "assign", "attrs": {"op": "-="}, "children": {
                 "target": [{"kind": "name", "attrs": {"name": "x"}}],
                 "value": [{"kind": "literal", "attrs": {"litKind": "int", "value": "1"}}]}}]}}]}}
        ]}}]
      }
    }]
  }
}`

func TestDecodeFunction(t *testing.T) {
	f, err := Decode(strings.NewReader(countdown))
	be.Err(t, err, nil)
	be.Equal(t, f.Package, "demo")
	be.Equal(t, len(f.Decls), 1)

	fd, ok := f.Decls[0].(*ast.FunDecl)
	be.True(t, ok)
	be.Equal(t, fd.Name.Name, "countdown")
	be.Equal(t, fd.Loc().File(), "count.jet")
	be.Equal(t, fd.Loc().Start.Line, 1)
	be.Equal(t, fd.Params[0].Type.(*ast.UserType).Name, "Int")

	body := fd.Body.(*ast.Block)
	be.Equal(t, len(body.Stmts), 2)
	be.True(t, body.Stmts[0].(*ast.PropertyDecl).Var)

	loop := body.Stmts[1].(*ast.WhileExpr)
	be.Equal(t, loop.Loc().Start.Column, 3)
	cond := loop.Cond.(*ast.BinaryExpr)
	be.Equal(t, cond.Op.Kind, tokens.GREATER_TOKEN)
	be.Equal(t, cond.Y.(*ast.Literal).Kind, ast.INT)
	assign := loop.Body.(*ast.Block).Stmts[0].(*ast.AssignExpr)
	be.Equal(t, assign.Op.Kind, tokens.MINUS_EQUALS_TOKEN)
}

func TestConvertClass(t *testing.T) {
	root := &Node{Kind: "file", Attrs: map[string]any{"path": "shapes.jet"}, Children: map[string][]*Node{
		"decls": {{
			Kind:  "class",
			Attrs: map[string]any{"name": "Circle", "primaryCtor": true, "open": true},
			Children: map[string][]*Node{
				"params": {{Kind: "param", Attrs: map[string]any{"name": "r", "binding": "val"},
					Children: map[string][]*Node{"type": {{Kind: "userType", Attrs: map[string]any{"name": "Double"}}}}}},
				"supers": {{Kind: "super", Attrs: map[string]any{"call": true},
					Children: map[string][]*Node{"type": {{Kind: "userType", Attrs: map[string]any{"name": "Shape"}}}}}},
				"members": {{Kind: "init", Children: map[string][]*Node{"body": {{Kind: "block"}}}}},
			},
		}, {
			Kind:  "class",
			Attrs: map[string]any{"name": "Color", "classKind": "enum"},
			Children: map[string][]*Node{
				"entries": {{Kind: "entry", Attrs: map[string]any{"name": "RED"}}, {Kind: "entry", Attrs: map[string]any{"name": "BLUE"}}},
			},
		}},
	}}
	f, err := Convert(root)
	be.Err(t, err, nil)

	c := f.Decls[0].(*ast.ClassDecl)
	be.Equal(t, c.Kind, ast.ClassKindClass)
	be.True(t, c.HasPrimaryCtor)
	be.True(t, c.Mods.Open)
	be.Equal(t, c.Params[0].Binding, ast.ParamVal)
	be.Equal(t, c.Supers[0].Type.Name, "Shape")
	be.True(t, c.Supers[0].Call)
	_, ok := c.Members[0].(*ast.Initializer)
	be.True(t, ok)

	e := f.Decls[1].(*ast.ClassDecl)
	be.Equal(t, e.Kind, ast.ClassKindEnum)
	be.Equal(t, len(e.Entries), 2)
	be.Equal(t, e.Entries[1].Name.Name, "BLUE")
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"not json", `{"kind":`, "malformed syntax tree"},
		{"wrong root", `{"kind": "block"}`, `root node is "block"`},
		{"unknown expression", `{"kind": "file", "children": {"decls": [
			{"kind": "fun", "attrs": {"name": "f"}, "children": {"body": [{"kind": "spread", "span": [4, 2, 4, 9]}]}}]}}`,
			`4:2: unexpected "spread" in expression position`},
		{"declaration without a name", `{"kind": "file", "children": {"decls": [{"kind": "property"}]}}`,
			"property without a name"},
		{"missing operand", `{"kind": "file", "children": {"decls": [
			{"kind": "fun", "attrs": {"name": "f"}, "children": {"body": [
				{"kind": "binary", "attrs": {"op": "+"}, "children": {"x": [{"kind": "name", "attrs": {"name": "a"}}]}}]}}]}}`,
			"missing child node"},
		{"bad visibility", `{"kind": "file", "children": {"decls": [
			{"kind": "fun", "attrs": {"name": "f", "visibility": "secret"}}]}}`,
			`unknown visibility "secret"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.want))
		})
	}
}
