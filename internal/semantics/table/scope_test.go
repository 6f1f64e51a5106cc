package table

import (
	"testing"

	"github.com/pkg/errors"

	"jetc/internal/types"
)

func TestScope_DeclareAndLookup(t *testing.T) {
	root := NewScope(nil, ScopeFile, types.NoID)
	if err := root.DeclareVar("x", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := NewScope(root, ScopeBlock, types.NoID)
	if err := child.DeclareVar("x", 2); err != nil {
		t.Fatalf("shadowing in a child scope should be allowed: %v", err)
	}

	ids, sc := child.Lookup("x")
	if len(ids) != 1 || ids[0] != 2 || sc != child {
		t.Errorf("Lookup(x) = %v in %p, want [2] in child", ids, sc)
	}
	ids, _ = root.Lookup("x")
	if ids[0] != 1 {
		t.Errorf("root Lookup(x) = %v, want [1]", ids)
	}
	if ids, _ := child.Lookup("missing"); ids != nil {
		t.Errorf("expected nil for missing name, got %v", ids)
	}
}

func TestScope_DuplicateVar(t *testing.T) {
	sc := NewScope(nil, ScopeBlock, types.NoID)
	_ = sc.DeclareVar("a", 1)
	err := sc.DeclareVar("a", 2)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if errors.Cause(err) != ErrDuplicate {
		t.Errorf("Cause should unwrap to ErrDuplicate")
	}
}

func TestScope_FunctionsOverload(t *testing.T) {
	sc := NewScope(nil, ScopeFile, types.NoID)
	sc.DeclareFun("f", 1)
	sc.DeclareFun("f", 2)
	inner := NewScope(sc, ScopeFunction, 9)
	inner.DeclareFun("f", 3)

	levels := inner.LookupLevels("f")
	if len(levels) != 2 || len(levels[0]) != 1 || len(levels[1]) != 2 {
		t.Fatalf("LookupLevels(f) = %v", levels)
	}
	if got := sc.Names(); len(got) != 1 || got[0] != "f" {
		t.Errorf("Names() = %v", got)
	}
}

func TestScope_Classifiers(t *testing.T) {
	sc := NewScope(nil, ScopeFile, types.NoID)
	if err := sc.DeclareClassifier("A", 5); err != nil {
		t.Fatal(err)
	}
	if err := sc.DeclareClassifier("A", 6); err == nil {
		t.Error("expected duplicate classifier error")
	}
	inner := NewScope(sc, ScopeClass, 5)
	if id, ok := inner.LookupClassifier("A"); !ok || id != 5 {
		t.Errorf("LookupClassifier(A) = %v, %v", id, ok)
	}
}

func TestScope_IsLocalTo(t *testing.T) {
	file := NewScope(nil, ScopeFile, types.NoID)
	fn := NewScope(file, ScopeFunction, 1)
	block := NewScope(fn, ScopeBlock, types.NoID)
	lambda := NewScope(block, ScopeLambda, 2)

	if !block.IsLocalTo(fn) {
		t.Error("block should be local to its function")
	}
	if lambda.IsLocalTo(block) {
		t.Error("a lambda body is not local to the enclosing block")
	}
	if got := lambda.Enclosing(ScopeFunction); got != fn {
		t.Error("Enclosing(ScopeFunction) should find the function scope")
	}
}
