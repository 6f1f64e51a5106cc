package types

// CommonSupertype computes the least type every element conforms to, used
// for if/when branches and elvis. Nothing is ignored; any nullable element
// makes the result nullable. Falls back to Any.
func (c *Checker) CommonSupertype(ts []*Type) *Type {
	b := c.table.builtins
	nullable := false
	var rest []*Type
	for _, t := range ts {
		if t == nil {
			continue
		}
		if t.IsError() {
			return t
		}
		if t.nullable {
			nullable = true
		}
		if IsClassType(t, b.Nothing) {
			continue
		}
		rest = append(rest, MakeNotNull(t))
	}
	if len(rest) == 0 {
		if nullable {
			return b.NullType
		}
		return b.NothingType
	}

	all := func(cand *Type) bool {
		for _, t := range rest {
			if !c.IsSubtypeOf(t, cand) {
				return false
			}
		}
		return true
	}
	for _, cand := range rest {
		if all(cand) {
			return WithNullable(cand, nullable)
		}
	}
	// breadth-first over the supertypes of the first element
	queue := c.directSupertypes(rest[0])
	seen := map[Constructor]bool{}
	for len(queue) > 0 {
		cand := queue[0]
		queue = queue[1:]
		if seen[cand.ctor] {
			continue
		}
		seen[cand.ctor] = true
		if all(cand) {
			return WithNullable(cand, nullable)
		}
		queue = append(queue, c.directSupertypes(cand)...)
	}
	return WithNullable(b.AnyType, nullable)
}

// directSupertypes returns the declared supertypes of t with t's arguments
// substituted. Type parameters yield their bounds.
func (c *Checker) directSupertypes(t *Type) []*Type {
	switch {
	case t.IsClass():
		subst := ClassSubstitution(c.table, t)
		sts := c.table.Get(t.ctor.Decl).Class.Supertypes
		return SubstituteAll(c.table, sts, subst)
	case t.IsTypeParam():
		var out []*Type
		for _, b := range c.table.UpperBounds(t.ctor.Decl) {
			out = append(out, MakeNotNull(b))
		}
		return out
	case t.IsSelf():
		return []*Type{c.table.DefaultType(t.ctor.Decl)}
	}
	return nil
}

// Supertypes returns every transitive supertype of a class type, substituted,
// in breadth-first order without duplicates.
func (c *Checker) Supertypes(t *Type) []*Type {
	var out []*Type
	seen := map[Constructor]bool{t.ctor: true}
	queue := c.directSupertypes(t)
	for len(queue) > 0 {
		st := queue[0]
		queue = queue[1:]
		if seen[st.ctor] {
			continue
		}
		seen[st.ctor] = true
		out = append(out, st)
		queue = append(queue, c.directSupertypes(st)...)
	}
	return out
}
