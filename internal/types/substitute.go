package types

// Substitution maps type parameter handles to the projections replacing them.
type Substitution map[ID]Projection

// ClassSubstitution maps the type parameters of t's class to t's arguments.
func ClassSubstitution(table *Table, t *Type) Substitution {
	if !t.IsClass() || len(t.args) == 0 {
		return nil
	}
	tps := table.Get(t.ctor.Decl).Class.TypeParams
	s := make(Substitution, len(tps))
	for i, tp := range tps {
		s[tp] = t.args[i]
	}
	return s
}

// Of builds a substitution from parallel slices of parameters and types.
func Of(params []ID, args []*Type) Substitution {
	s := make(Substitution, len(params))
	for i, tp := range params {
		if i < len(args) && args[i] != nil {
			s[tp] = Inv(args[i])
		}
	}
	return s
}

// Substitute replaces type parameters in t. A parameter replaced by a star or
// a projection in top-level position becomes the projection's bound: the
// upper bound for `*` and `out`, and Any? for `in`.
func Substitute(table *Table, t *Type, s Substitution) *Type {
	if len(s) == 0 || t == nil {
		return t
	}
	if t.IsTypeParam() {
		p, ok := s[t.ctor.Decl]
		if !ok {
			return t
		}
		var r *Type
		switch p.Kind {
		case ProjStar, ProjIn:
			if p.Kind == ProjStar {
				r = table.UpperBounds(t.ctor.Decl)[0]
			} else {
				r = table.builtins.NullableAny
			}
		default:
			r = p.Type
		}
		if t.nullable {
			return MakeNullable(r)
		}
		return r
	}
	if len(t.args) == 0 {
		return t
	}
	args := make([]Projection, len(t.args))
	changed := false
	for i, a := range t.args {
		args[i] = substituteProjection(table, a, s)
		if args[i] != a {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return newType(t.ctor, args, t.nullable)
}

func substituteProjection(table *Table, a Projection, s Substitution) Projection {
	if a.Kind == ProjStar {
		return a
	}
	if a.Type.IsTypeParam() {
		if p, ok := s[a.Type.ctor.Decl]; ok {
			kind := combineProjection(a.Kind, p.Kind)
			if kind == ProjStar {
				return Star()
			}
			inner := p.Type
			if a.Type.nullable {
				inner = MakeNullable(inner)
			}
			return Projection{Kind: kind, Type: inner}
		}
		return a
	}
	return Projection{Kind: a.Kind, Type: Substitute(table, a.Type, s)}
}

// combineProjection composes the projection written at the use site with
// the projection being substituted in.
func combineProjection(outer, inner ProjKind) ProjKind {
	switch {
	case inner == ProjStar:
		return ProjStar
	case outer == ProjInvariant:
		return inner
	case inner == ProjInvariant || inner == outer:
		return outer
	}
	return ProjStar
}

// SubstituteAll applies s to every type in ts.
func SubstituteAll(table *Table, ts []*Type, s Substitution) []*Type {
	out := make([]*Type, len(ts))
	for i, t := range ts {
		out[i] = Substitute(table, t, s)
	}
	return out
}

// Mentions reports whether t refers to any of the given type parameters.
func Mentions(t *Type, params map[ID]bool) bool {
	if t == nil {
		return false
	}
	if t.IsTypeParam() && params[t.ctor.Decl] {
		return true
	}
	for _, a := range t.args {
		if a.Kind != ProjStar && Mentions(a.Type, params) {
			return true
		}
	}
	return false
}
