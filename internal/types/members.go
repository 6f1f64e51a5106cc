package types

// Member is a member descriptor seen through a receiver type: Subst maps the
// owning class's type parameters to the receiver's view of them.
type Member struct {
	ID    ID
	Owner *Type
	Subst Substitution
}

// LookupMembers finds members named name (every member when name is empty)
// of the receiver type, inherited ones included. Functions overridden in a
// subclass hide the supertype declaration.
func (c *Checker) LookupMembers(recv *Type, name string) []Member {
	recv = MakeNotNull(recv)
	switch {
	case recv.IsSelf():
		recv = c.table.DefaultType(recv.ctor.Decl)
	case recv.IsTypeParam():
		var out []Member
		for _, b := range c.table.UpperBounds(recv.ctor.Decl) {
			out = append(out, c.LookupMembers(b, name)...)
		}
		return out
	case !recv.IsClass():
		recv = c.table.builtins.AnyType
	}

	var out []Member
	owners := append([]*Type{recv}, c.Supertypes(recv)...)
	for _, owner := range owners {
		subst := ClassSubstitution(c.table, owner)
		for _, m := range c.table.Members(owner.ctor.Decl, name) {
			d := c.table.Get(m)
			if d.Kind == KindClass || d.Kind == KindConstructor {
				continue
			}
			cand := Member{ID: m, Owner: owner, Subst: subst}
			if d.Kind == KindFunction && c.hidden(out, cand) {
				continue
			}
			if d.Kind == KindVariable && hasVariable(c.table, out, d.Name) {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

func hasVariable(t *Table, ms []Member, name string) bool {
	for _, m := range ms {
		if d := t.Get(m.ID); d.Kind == KindVariable && d.Name == name {
			return true
		}
	}
	return false
}

// hidden reports whether cand is overridden by a function already in ms.
func (c *Checker) hidden(ms []Member, cand Member) bool {
	for _, m := range ms {
		if c.SameSignature(m, cand) {
			return true
		}
	}
	return false
}

// SameSignature reports whether two functions, viewed through their
// receivers, take the same parameter types.
func (c *Checker) SameSignature(a, b Member) bool {
	da, db := c.table.Get(a.ID), c.table.Get(b.ID)
	if da.Kind != KindFunction || db.Kind != KindFunction || da.Name != db.Name {
		return false
	}
	if len(da.Func.Params) != len(db.Func.Params) || len(da.Func.TypeParams) != len(db.Func.TypeParams) {
		return false
	}
	for i := range da.Func.Params {
		pa := Substitute(c.table, c.table.Get(da.Func.Params[i]).Var.Type, a.Subst)
		pb := Substitute(c.table, c.table.Get(db.Func.Params[i]).Var.Type, b.Subst)
		if pa == nil || pb == nil {
			return false
		}
		if pa.IsTypeParam() && pb.IsTypeParam() {
			// method type parameters match positionally
			if c.table.Get(pa.ctor.Decl).Owner == da.ID() && c.table.Get(pb.ctor.Decl).Owner == db.ID() {
				continue
			}
		}
		if !c.Equal(pa, pb) {
			return false
		}
	}
	return true
}

// MemberType is the type of a variable member seen through its receiver.
func (c *Checker) MemberType(m Member) *Type {
	d := c.table.Get(m.ID)
	if d.Var == nil {
		return nil
	}
	return Substitute(c.table, d.Var.Type, m.Subst)
}
