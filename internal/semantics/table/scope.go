// Package table implements the lexical scopes used while resolving names to
// descriptor handles.
package table

import (
	"github.com/pkg/errors"

	"jetc/internal/types"
)

// ErrDuplicate is returned when a non-overloadable name is declared twice in
// one scope.
var ErrDuplicate = errors.New("already declared")

// ScopeKind tells what introduced a scope.
type ScopeKind int

const (
	ScopeFile ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeLambda
	ScopeBlock
)

// Scope is one level of the lexical scope chain. Values (variables and
// functions) are overload sets; classifiers (classes and type parameters)
// are unique per scope.
type Scope struct {
	parent      *Scope
	Kind        ScopeKind
	Owner       types.ID
	Receiver    *types.Type // implicit `this` introduced by this scope
	Label       string      // label of a function literal or named function
	values      map[string][]types.ID
	classifiers map[string]types.ID
	order       []string
}

// NewScope creates a new scope with optional parent scope
func NewScope(parent *Scope, kind ScopeKind, owner types.ID) *Scope {
	return &Scope{
		parent:      parent,
		Kind:        kind,
		Owner:       owner,
		values:      make(map[string][]types.ID),
		classifiers: make(map[string]types.ID),
	}
}

func (s *Scope) Parent() *Scope { return s.parent }

// DeclareVar adds a variable. Variables do not overload.
func (s *Scope) DeclareVar(name string, id types.ID) error {
	if _, exists := s.values[name]; exists {
		return errors.Wrapf(ErrDuplicate, "symbol '%s'", name)
	}
	s.values[name] = []types.ID{id}
	s.order = append(s.order, name)
	return nil
}

// DeclareFun adds a function to the overload set for name. Signature clashes
// are detected by declaration resolution, not here.
func (s *Scope) DeclareFun(name string, id types.ID) {
	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	s.values[name] = append(s.values[name], id)
}

// DeclareClassifier adds a class or type parameter.
func (s *Scope) DeclareClassifier(name string, id types.ID) error {
	if _, exists := s.classifiers[name]; exists {
		return errors.Wrapf(ErrDuplicate, "classifier '%s'", name)
	}
	s.classifiers[name] = id
	return nil
}

// LookupLocal returns the values declared directly in this scope.
func (s *Scope) LookupLocal(name string) []types.ID {
	return s.values[name]
}

// LookupLocalClassifier returns a classifier declared directly in this scope.
func (s *Scope) LookupLocalClassifier(name string) (types.ID, bool) {
	id, ok := s.classifiers[name]
	return id, ok
}

// Lookup finds the innermost scope declaring name and returns its overload
// set together with that scope.
func (s *Scope) Lookup(name string) ([]types.ID, *Scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if ids, ok := sc.values[name]; ok {
			return ids, sc
		}
	}
	return nil, nil
}

// LookupLevels returns the overload sets for name from innermost to
// outermost scope, one entry per scope declaring it.
func (s *Scope) LookupLevels(name string) [][]types.ID {
	var levels [][]types.ID
	for sc := s; sc != nil; sc = sc.parent {
		if ids, ok := sc.values[name]; ok {
			levels = append(levels, ids)
		}
	}
	return levels
}

// LookupClassifier finds a class or type parameter by simple name.
func (s *Scope) LookupClassifier(name string) (types.ID, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.classifiers[name]; ok {
			return id, true
		}
	}
	return types.NoID, false
}

// Names returns the value names declared in this scope in declaration order.
func (s *Scope) Names() []string {
	return s.order
}

// Receivers returns implicit receivers from innermost to outermost.
func (s *Scope) Receivers() []*Scope {
	var out []*Scope
	for sc := s; sc != nil; sc = sc.parent {
		if sc.Receiver != nil {
			out = append(out, sc)
		}
	}
	return out
}

// Enclosing returns the nearest scope of one of the given kinds.
func (s *Scope) Enclosing(kinds ...ScopeKind) *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		for _, k := range kinds {
			if sc.Kind == k {
				return sc
			}
		}
	}
	return nil
}

// IsLocalTo reports whether sc is this scope or one of its parents up to
// (but not crossing) the nearest function or lambda boundary.
func (s *Scope) IsLocalTo(sc *Scope) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur == sc {
			return true
		}
		if cur.Kind == ScopeFunction || cur.Kind == ScopeLambda || cur.Kind == ScopeClass {
			return false
		}
	}
	return false
}
