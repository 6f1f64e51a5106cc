package types

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultSupertypeCacheSize bounds the corresponding-supertype memo.
const DefaultSupertypeCacheSize = 4096

// NoSupertypePolicy decides subtyping when sub has no supertype built on
// super's constructor.
type NoSupertypePolicy interface {
	NoCorrespondingSupertype(c *Checker, sub, super *Type) bool
}

// DefaultPolicy accepts Any as the top of every non-null type, optionally
// widens numbers and relates function types that differ only in whether the
// first parameter is written as a receiver.
type DefaultPolicy struct {
	NumericWidening bool
}

func (p DefaultPolicy) NoCorrespondingSupertype(c *Checker, sub, super *Type) bool {
	b := c.table.builtins
	if IsClassType(super, b.Any) {
		return true
	}
	if p.NumericWidening {
		if rs, rt := c.table.NumericRank(sub), c.table.NumericRank(super); rs > 0 && rt > 0 && rs < rt {
			return true
		}
	}
	if sub.IsFunction() && super.IsFunction() && sub.ctor.HasReceiver != super.ctor.HasReceiver &&
		len(sub.args) == len(super.args) {
		return c.checkArguments(sub, super)
	}
	return false
}

// Checker answers subtyping and equality questions over one Table.
type Checker struct {
	table  *Table
	policy NoSupertypePolicy
	cache  *lru.Cache
}

// Option configures a Checker.
type Option func(*Checker)

// WithPolicy replaces the no-corresponding-supertype policy.
func WithPolicy(p NoSupertypePolicy) Option {
	return func(c *Checker) { c.policy = p }
}

// WithCacheSize sets the supertype memo size; zero disables memoisation.
func WithCacheSize(n int) Option {
	return func(c *Checker) {
		if n <= 0 {
			c.cache = nil
			return
		}
		c.cache, _ = lru.New(n)
	}
}

// NewChecker creates a checker with DefaultPolicy and the default cache.
func NewChecker(t *Table, opts ...Option) *Checker {
	c := &Checker{table: t, policy: DefaultPolicy{}}
	c.cache, _ = lru.New(DefaultSupertypeCacheSize)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Table returns the descriptor arena the checker reads.
func (c *Checker) Table() *Table { return c.table }

// IsSubtypeOf reports sub <: super.
func (c *Checker) IsSubtypeOf(sub, super *Type) bool {
	if sub == nil || super == nil {
		return false
	}
	if sub.IsError() || super.IsError() {
		return true
	}
	if sub.nullable && !super.nullable {
		return false
	}
	b := c.table.builtins
	if IsClassType(sub, b.Nothing) {
		return true
	}
	declared := super
	sub, super = MakeNotNull(sub), MakeNotNull(super)

	switch {
	case sub.IsSelf():
		if super.IsSelf() {
			return sub.ctor.Decl == super.ctor.Decl
		}
		return c.IsSubtypeOf(c.table.DefaultType(sub.ctor.Decl), super)
	case super.IsSelf():
		if c.table.Get(super.ctor.Decl).IsFinal() {
			return c.IsSubtypeOf(sub, c.table.DefaultType(super.ctor.Decl))
		}
		return false
	case sub.IsTypeParam():
		if super.IsTypeParam() && super.ctor.Decl == sub.ctor.Decl {
			return true
		}
		// bounds may be nullable, so they are compared with the declared super
		for _, bound := range c.table.UpperBounds(sub.ctor.Decl) {
			if c.IsSubtypeOf(bound, declared) {
				return true
			}
		}
		return false
	case super.IsTypeParam():
		return false
	}

	if sub.IsClass() != super.IsClass() {
		// function and tuple constructors never match class constructors
		return c.policy.NoCorrespondingSupertype(c, sub, super)
	}
	if !sub.IsClass() {
		if sub.ctor != super.ctor {
			return c.policy.NoCorrespondingSupertype(c, sub, super)
		}
		return c.checkArguments(sub, super)
	}

	corresponding := c.FindCorrespondingSupertype(sub, super.ctor)
	if corresponding == nil {
		return c.policy.NoCorrespondingSupertype(c, sub, super)
	}
	return c.checkArguments(corresponding, super)
}

// checkArguments compares argument lists of two types with the same
// parameter count, honouring declared variance and use-site projections.
func (c *Checker) checkArguments(sub, super *Type) bool {
	for i, sp := range super.args {
		bp := sub.args[i]
		if sp.Kind == ProjStar {
			continue
		}
		if bp.Kind == ProjStar {
			return false
		}
		if bp.Type.IsError() || sp.Type.IsError() {
			continue
		}
		if bp.Type.nullable != sp.Type.nullable {
			return false
		}
		variance := EffectiveVariance(c.table.ParamVariance(super.ctor, i), sp.Kind)
		switch variance {
		case ProjStar:
			continue
		case ProjOut:
			if bp.Kind == ProjIn || !c.IsSubtypeOf(bp.Type, sp.Type) {
				return false
			}
		case ProjIn:
			if bp.Kind == ProjOut || !c.IsSubtypeOf(sp.Type, bp.Type) {
				return false
			}
		default:
			if bp.Kind != ProjInvariant || !c.Equal(bp.Type, sp.Type) {
				return false
			}
		}
	}
	return true
}

// EffectiveVariance combines declaration-site variance with a use-site
// projection. Conflicting directions behave like a star projection.
func EffectiveVariance(v Variance, proj ProjKind) ProjKind {
	switch {
	case proj == ProjStar:
		return ProjStar
	case v == Invariant:
		return proj
	case proj == ProjInvariant:
		if v == Out {
			return ProjOut
		}
		return ProjIn
	case (v == Out) == (proj == ProjOut):
		return proj
	}
	return ProjStar
}

// Equal is structural type equality. Error types equal anything and `This`
// of a final class equals the class's own type.
func (c *Checker) Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsError() || b.IsError() {
		return true
	}
	a, b = c.normalizeSelf(a), c.normalizeSelf(b)
	if a.nullable != b.nullable || len(a.args) != len(b.args) {
		return false
	}
	if a.ctor != b.ctor && !receiverForms(a, b) {
		return false
	}
	for i := range a.args {
		pa, pb := a.args[i], b.args[i]
		if pa.Kind != pb.Kind {
			return false
		}
		if pa.Kind != ProjStar && !c.Equal(pa.Type, pb.Type) {
			return false
		}
	}
	return true
}

// receiverForms reports whether a and b are the same function type written
// once with a receiver and once with it as the first parameter.
func receiverForms(a, b *Type) bool {
	return a.IsFunction() && b.IsFunction() && a.ctor.HasReceiver != b.ctor.HasReceiver
}

func (c *Checker) normalizeSelf(t *Type) *Type {
	if t.IsSelf() && c.table.Get(t.ctor.Decl).IsFinal() {
		return WithNullable(c.table.DefaultType(t.ctor.Decl), t.nullable)
	}
	return t
}

type supertypeKey struct {
	from, to ID
}

// noSupertype marks a cached negative lookup.
var noSupertype = &Type{}

// FindCorrespondingSupertype returns the supertype of sub built on ctor with
// sub's arguments substituted, or nil. The walk is depth-first over declared
// supertypes; the first match wins.
func (c *Checker) FindCorrespondingSupertype(sub *Type, ctor Constructor) *Type {
	if sub.ctor == ctor {
		return sub
	}
	if !sub.IsClass() || ctor.Kind != CtorClass {
		return nil
	}
	generic := c.correspondingDeclared(sub.ctor.Decl, ctor.Decl)
	if generic == nil {
		return nil
	}
	subst := ClassSubstitution(c.table, sub)
	return WithNullable(Substitute(c.table, generic, subst), sub.nullable)
}

// correspondingDeclared finds, in terms of from's own type parameters, the
// supertype of class `from` whose constructor is class `to`.
func (c *Checker) correspondingDeclared(from, to ID) *Type {
	key := supertypeKey{from, to}
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if v.(*Type) == noSupertype {
				return nil
			}
			return v.(*Type)
		}
	}
	res := c.walkSupertypes(from, to, map[ID]bool{})
	if c.cache != nil {
		if res == nil {
			c.cache.Add(key, noSupertype)
		} else {
			c.cache.Add(key, res)
		}
	}
	return res
}

func (c *Checker) walkSupertypes(from, to ID, visiting map[ID]bool) *Type {
	if visiting[from] {
		return nil
	}
	visiting[from] = true
	for _, st := range c.table.Get(from).Class.Supertypes {
		if !st.IsClass() {
			continue
		}
		if st.ctor.Decl == to {
			return st
		}
		if deeper := c.walkSupertypes(st.ctor.Decl, to, visiting); deeper != nil {
			return Substitute(c.table, deeper, ClassSubstitution(c.table, st))
		}
	}
	return nil
}

// IsSubclassType reports whether a value of class sub can be viewed as class
// super, ignoring type arguments.
func (c *Checker) IsSubclassType(sub, super ID) bool {
	return sub == super || c.correspondingDeclared(sub, super) != nil
}
