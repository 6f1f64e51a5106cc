package binding

import (
	"sync"
	"testing"

	"github.com/nalgeon/be"
	"github.com/pkg/errors"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
	"jetc/internal/types"
)

func TestRecordIsWriteOnce(t *testing.T) {
	s := NewStore(nil)
	node := &ast.NameExpr{Name: "x"}

	be.Err(t, Record(s, Reference, node, types.ID(7)), nil)
	err := Record(s, Reference, node, types.ID(8))
	be.True(t, errors.Is(err, ErrAlreadyRecorded))

	got, ok := Get(s, Reference, node)
	be.True(t, ok)
	be.Equal(t, got, types.ID(7))
}

func TestSlicesAreIndependent(t *testing.T) {
	s := NewStore(nil)
	node := &ast.NameExpr{Name: "x"}
	MustRecord(s, Reference, node, types.ID(1))
	MustRecord(s, Declaration, node, types.ID(2))

	ref, _ := Get(s, Reference, node)
	decl, _ := Get(s, Declaration, node)
	be.Equal(t, ref, types.ID(1))
	be.Equal(t, decl, types.ID(2))
	be.Equal(t, s.Len(), 2)
}

func TestDistinctNodesDistinctKeys(t *testing.T) {
	s := NewStore(nil)
	a, b := &ast.NameExpr{Name: "x"}, &ast.NameExpr{Name: "x"}
	MustRecord(s, Statement, a, true)
	be.True(t, Has(s, Statement, a))
	be.True(t, !Has(s, Statement, b))

	_, ok := Get(s, ExpressionType, a)
	be.True(t, !ok)
}

func TestMustRecordPanicsOnRewrite(t *testing.T) {
	s := NewStore(nil)
	node := &ast.Literal{Kind: ast.INT, Value: "1"}
	MustRecord(s, Statement, node, true)
	err := invariant.Catch(func() { MustRecord(s, Statement, node, false) })
	be.Err(t, err, "STATEMENT")
}

func TestConcurrentDisjointWrites(t *testing.T) {
	s := NewStore(nil)
	nodes := make([]*ast.NameExpr, 64)
	for i := range nodes {
		nodes[i] = &ast.NameExpr{Name: "v"}
	}
	var wg sync.WaitGroup
	for i, n := range nodes {
		wg.Add(1)
		go func(i int, n *ast.NameExpr) {
			defer wg.Done()
			MustRecord(s, Reference, n, types.ID(i+1))
		}(i, n)
	}
	wg.Wait()
	be.Equal(t, s.Len(), len(nodes))
}

func TestDiagnosticsFlowToBag(t *testing.T) {
	bag := diagnostics.NewDiagnosticBag()
	s := NewStore(bag)
	s.Report(diagnostics.NewWarning("w"))
	be.True(t, !s.HasErrors())
	s.Report(diagnostics.NewError("e"))
	be.True(t, s.HasErrors())
	be.Equal(t, len(s.Diagnostics()), 2)
	be.Equal(t, s.Bag(), bag)
}
