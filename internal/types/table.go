// Package types holds the descriptor arena and the type system of Jet.
//
// Declarations are Descriptors addressed by ID handles inside a Table; a
// class's supertypes, members and owner are handle lookups, so cyclic
// references never become pointer cycles. Types are immutable values built
// from a Constructor and a list of argument projections.
package types

import (
	"strings"
	"sync"

	"jetc/internal/invariant"
)

// Table is the arena owning every descriptor of one compilation.
type Table struct {
	mu       sync.RWMutex
	descs    []*Descriptor
	sealMark ID // descriptors below this handle are frozen; 0 while building
	packages map[string]ID
	builtins *Builtins
}

// NewTable creates a table pre-populated with the built-in package `jet`.
func NewTable() *Table {
	t := &Table{
		descs:    []*Descriptor{nil},
		packages: make(map[string]ID),
	}
	t.builtins = declareBuiltins(t)
	return t
}

// Builtins returns the handles of the built-in declarations.
func (t *Table) Builtins() *Builtins { return t.builtins }

// Add registers d and returns its handle. After sealing only fully-built
// local descriptors should be added.
func (t *Table) Add(d *Descriptor) ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	d.id = ID(len(t.descs))
	t.descs = append(t.descs, d)
	return d.id
}

// Get returns the descriptor for id. Callers must treat it as read-only.
func (t *Table) Get(id ID) *Descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id <= NoID || int(id) >= len(t.descs) {
		invariant.Failf("descriptor handle %d out of range", id)
	}
	return t.descs[id]
}

// Len is the number of descriptors including built-ins.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.descs) - 1
}

// Update runs fn on the descriptor. Descriptors that existed when the table
// was sealed are frozen and updating them is an invariant violation.
func (t *Table) Update(id ID, fn func(d *Descriptor)) {
	t.mu.RLock()
	frozen := t.sealMark != NoID && id < t.sealMark
	t.mu.RUnlock()
	if frozen {
		invariant.Failf("mutation of sealed descriptor %s", t.QualifiedName(id))
	}
	fn(t.Get(id))
}

// Seal freezes every descriptor registered so far.
func (t *Table) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealMark = ID(len(t.descs))
}

// Sealed reports whether Seal was called.
func (t *Table) Sealed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sealMark != NoID
}

// Package returns the package descriptor for a dotted name, creating it (and
// its parents) on first use.
func (t *Table) Package(fq string) ID {
	t.mu.RLock()
	id, ok := t.packages[fq]
	t.mu.RUnlock()
	if ok {
		return id
	}
	owner := NoID
	name := fq
	if i := strings.LastIndex(fq, "."); i >= 0 {
		owner = t.Package(fq[:i])
		name = fq[i+1:]
	}
	id = t.Add(&Descriptor{
		Kind:    KindPackage,
		Name:    name,
		Owner:   owner,
		Package: &PackageInfo{FQName: fq},
	})
	t.mu.Lock()
	t.packages[fq] = id
	t.mu.Unlock()
	return id
}

// LookupPackage returns the package handle if it exists.
func (t *Table) LookupPackage(fq string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.packages[fq]
	return id, ok
}

// AddMember registers id as a member of the class or package owner.
func (t *Table) AddMember(owner, id ID) {
	t.Update(owner, func(d *Descriptor) {
		switch d.Kind {
		case KindClass:
			d.Class.Members = append(d.Class.Members, id)
		case KindPackage:
			d.Package.Members = append(d.Package.Members, id)
		default:
			invariant.Failf("%s %s cannot own members", d.Kind, d.Name)
		}
	})
}

// Members returns the declared members of a class or package named name.
// An empty name returns every member.
func (t *Table) Members(owner ID, name string) []ID {
	d := t.Get(owner)
	var all []ID
	switch d.Kind {
	case KindClass:
		all = d.Class.Members
	case KindPackage:
		all = d.Package.Members
	}
	if name == "" {
		return all
	}
	var out []ID
	for _, m := range all {
		if t.Get(m).Name == name {
			out = append(out, m)
		}
	}
	return out
}

// PackageOf walks owners up to the enclosing package.
func (t *Table) PackageOf(id ID) ID {
	for id != NoID {
		d := t.Get(id)
		if d.Kind == KindPackage {
			return id
		}
		id = d.Owner
	}
	return NoID
}

// EnclosingClass returns the nearest class owning id (not id itself).
func (t *Table) EnclosingClass(id ID) ID {
	for id = t.Get(id).Owner; id != NoID; id = t.Get(id).Owner {
		if t.Get(id).Kind == KindClass {
			return id
		}
	}
	return NoID
}

// QualifiedName renders `pkg.Outer.Inner.member`.
func (t *Table) QualifiedName(id ID) string {
	var parts []string
	for id != NoID {
		d := t.Get(id)
		if d.Kind == KindPackage {
			if d.Package.FQName != "" {
				parts = append(parts, d.Package.FQName)
			}
			break
		}
		parts = append(parts, d.Name)
		id = d.Owner
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// InternalName is the binary class name `pkg/Outer$Inner`. Classes may
// override it through ClassInfo.InternalName.
func (t *Table) InternalName(id ID) string {
	d := t.Get(id)
	if d.Kind == KindClass && d.Class.InternalName != "" {
		return d.Class.InternalName
	}
	owner := t.Get(d.Owner)
	switch owner.Kind {
	case KindPackage:
		if owner.Package.FQName == "" {
			return d.Name
		}
		return strings.ReplaceAll(owner.Package.FQName, ".", "/") + "/" + d.Name
	case KindClass:
		return t.InternalName(owner.id) + "$" + d.Name
	default:
		// local and anonymous classes nest in their enclosing class or facade
		encl := t.EnclosingClassOrFacade(d.Owner)
		if t.Get(encl).Kind == KindPackage {
			return t.FacadeName(encl) + "$" + d.Name
		}
		return t.InternalName(encl) + "$" + d.Name
	}
}

// FacadeName is the binary name of the class holding a package's top-level
// functions and properties.
func (t *Table) FacadeName(pkg ID) string {
	fq := t.Get(pkg).Package.FQName
	if fq == "" {
		return "namespace"
	}
	return strings.ReplaceAll(fq, ".", "/") + "/namespace"
}

// EnclosingClassOrFacade returns the nearest enclosing class, or the package
// descriptor when the declaration is top-level.
func (t *Table) EnclosingClassOrFacade(id ID) ID {
	for ; id != NoID; id = t.Get(id).Owner {
		k := t.Get(id).Kind
		if k == KindClass || k == KindPackage {
			return id
		}
	}
	return NoID
}

// IsSubclassOf reports whether class sub equals or transitively extends sup.
func (t *Table) IsSubclassOf(sub, sup ID) bool {
	if sub == sup {
		return true
	}
	d := t.Get(sub)
	if d.Kind != KindClass {
		return false
	}
	for _, st := range d.Class.Supertypes {
		if st.IsClass() && t.IsSubclassOf(st.Decl(), sup) {
			return true
		}
	}
	return false
}

// SuperClass returns the non-trait direct supertype, or nil.
func (t *Table) SuperClass(class ID) *Type {
	for _, st := range t.Get(class).Class.Supertypes {
		if st.IsClass() && !t.Get(st.Decl()).IsTrait() {
			return st
		}
	}
	return nil
}
