package calls

import (
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// ImplicitLevels collects the candidates of `name(...)` written without a
// receiver. Walking outwards from sc, every scope contributes the functions,
// function-typed variables and class constructors declared in it; a scope
// with an implicit receiver then contributes that receiver's members and
// the extensions applicable to it.
func (r *Resolver) ImplicitLevels(sc *table.Scope, name string) [][]Candidate {
	var levels [][]Candidate
	for s := sc; s != nil; s = s.Parent() {
		var level []Candidate
		for _, id := range s.LookupLocal(name) {
			if c, ok := r.valueCandidate(id); ok {
				level = append(level, c)
			}
		}
		if cls, ok := s.LookupLocalClassifier(name); ok {
			level = append(level, r.Constructors(cls)...)
		}
		if len(level) > 0 {
			levels = append(levels, level)
		}
		if s.Receiver != nil {
			if ms := r.members(s.Receiver, name, true); len(ms) > 0 {
				levels = append(levels, ms)
			}
			if es := r.extensions(sc, s.Receiver, name, true); len(es) > 0 {
				levels = append(levels, es)
			}
		}
	}
	return levels
}

// MemberLevels collects the candidates of `recv.name(...)`: members first,
// then extensions visible from sc.
func (r *Resolver) MemberLevels(sc *table.Scope, recv *types.Type, name string) [][]Candidate {
	var levels [][]Candidate
	if ms := r.members(recv, name, false); len(ms) > 0 {
		levels = append(levels, ms)
	}
	if es := r.extensions(sc, recv, name, false); len(es) > 0 {
		levels = append(levels, es)
	}
	return levels
}

// Constructors returns one candidate per constructor of class.
func (r *Resolver) Constructors(class types.ID) []Candidate {
	d := r.table.Get(class)
	if d.Kind != types.KindClass {
		return nil
	}
	out := make([]Candidate, 0, len(d.Class.Ctors))
	for _, c := range d.Class.Ctors {
		out = append(out, Candidate{ID: c})
	}
	return out
}

// Invoke is the candidate for calling a value of function type.
func Invoke(t *types.Type) []Candidate {
	if t == nil || t.Nullable() || !t.IsFunction() {
		return nil
	}
	return []Candidate{{Invoke: t}}
}

func (r *Resolver) valueCandidate(id types.ID) (Candidate, bool) {
	d := r.table.Get(id)
	switch d.Kind {
	case types.KindFunction:
		if d.Func.Receiver == nil {
			return Candidate{ID: id}, true
		}
	case types.KindVariable:
		if t := r.sigs.VariableType(id); t != nil && !t.Nullable() && t.IsFunction() {
			return Candidate{ID: id, Invoke: t}, true
		}
	}
	return Candidate{}, false
}

func (r *Resolver) members(recv *types.Type, name string, implicit bool) []Candidate {
	var out []Candidate
	for _, m := range r.checker.LookupMembers(recv, name) {
		d := r.table.Get(m.ID)
		switch d.Kind {
		case types.KindFunction:
			if d.Func.Receiver != nil {
				continue
			}
			out = append(out, Candidate{ID: m.ID, Subst: m.Subst, Receiver: types.MakeNotNull(recv), Implicit: implicit})
		case types.KindVariable:
			t := r.sigs.VariableType(m.ID)
			if t == nil {
				continue
			}
			t = types.Substitute(r.table, t, m.Subst)
			if !t.Nullable() && t.IsFunction() {
				out = append(out, Candidate{ID: m.ID, Subst: m.Subst, Receiver: types.MakeNotNull(recv), Implicit: implicit, Invoke: t})
			}
		}
	}
	return out
}

// extensions finds extension functions named name in the scopes enclosing
// sc. Applicability to recv is checked during resolution.
func (r *Resolver) extensions(sc *table.Scope, recv *types.Type, name string, implicit bool) []Candidate {
	var out []Candidate
	seen := make(map[types.ID]bool)
	for s := sc; s != nil; s = s.Parent() {
		for _, id := range s.LookupLocal(name) {
			d := r.table.Get(id)
			if d.Kind != types.KindFunction || d.Func.Receiver == nil || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Candidate{ID: id, Extension: recv, Implicit: implicit})
		}
	}
	return out
}
