// Package binding is the write-once attribution store shared by every phase:
// syntax node to descriptor, type, resolved call and so on, plus the
// diagnostics recorded while analysing one translation unit.
package binding

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
)

// ErrAlreadyRecorded is returned by Record when the (slice, node) key holds a
// value already.
var ErrAlreadyRecorded = errors.New("binding already recorded")

var sliceSeq atomic.Int32

// Slice names one kind of fact. V is the value type stored under it.
type Slice[V any] struct {
	name string
	id   int32
}

// NewSlice declares a slice. Slices are package-level variables created once.
func NewSlice[V any](name string) *Slice[V] {
	return &Slice[V]{name: name, id: sliceSeq.Add(1)}
}

func (s *Slice[V]) String() string { return s.name }

type key struct {
	slice int32
	node  ast.Node
}

// Store is the binding store of one translation unit.
type Store struct {
	mu      sync.RWMutex
	entries map[key]any
	diags   *diagnostics.DiagnosticBag
}

// NewStore creates an empty store reporting into bag. A nil bag gets a
// fresh one.
func NewStore(bag *diagnostics.DiagnosticBag) *Store {
	if bag == nil {
		bag = diagnostics.NewDiagnosticBag()
	}
	return &Store{entries: make(map[key]any), diags: bag}
}

// Record stores v under (slice, node). A second write to the same key leaves
// the first value in place and returns ErrAlreadyRecorded.
func Record[V any](s *Store, sl *Slice[V], node ast.Node, v V) error {
	k := key{sl.id, node}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[k]; exists {
		return errors.Wrapf(ErrAlreadyRecorded, "%s for %T", sl.name, node)
	}
	s.entries[k] = v
	return nil
}

// MustRecord is Record for callers that own the key; a rewrite is a compiler
// bug.
func MustRecord[V any](s *Store, sl *Slice[V], node ast.Node, v V) {
	if err := Record(s, sl, node, v); err != nil {
		invariant.Failf("%v", err)
	}
}

// Get returns the value under (slice, node).
func Get[V any](s *Store, sl *Slice[V], node ast.Node) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key{sl.id, node}]
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Has reports whether (slice, node) is populated.
func Has[V any](s *Store, sl *Slice[V], node ast.Node) bool {
	_, ok := Get(s, sl, node)
	return ok
}

// Len is the number of recorded facts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Report adds a diagnostic.
func (s *Store) Report(d *diagnostics.Diagnostic) {
	s.diags.Add(d)
}

// Diagnostics returns every recorded diagnostic in insertion order.
func (s *Store) Diagnostics() []*diagnostics.Diagnostic {
	return s.diags.Diagnostics()
}

// Bag exposes the underlying diagnostic bag.
func (s *Store) Bag() *diagnostics.DiagnosticBag {
	return s.diags
}

// HasErrors reports whether an error-severity diagnostic was recorded.
func (s *Store) HasErrors() bool {
	return s.diags.HasErrors()
}
