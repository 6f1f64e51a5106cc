package calls

import "jetc/internal/types"

// mostSpecific keeps the applicable candidates no other candidate beats.
func (r *Resolver) mostSpecific(as []*attempt) []*attempt {
	if len(as) == 1 {
		return as
	}
	var best []*attempt
	for _, a := range as {
		beaten := false
		for _, b := range as {
			if a != b && r.beats(b, a) {
				beaten = true
				break
			}
		}
		if !beaten {
			best = append(best, a)
		}
	}
	if len(best) == 0 {
		return as
	}
	return best
}

// beats reports whether a is strictly preferable to b. Between equally
// specific candidates a non-generic one wins over a generic one, then one
// that needs no default values over one that does.
func (r *Resolver) beats(a, b *attempt) bool {
	ab, ba := r.asSpecific(a, b), r.asSpecific(b, a)
	if ab != ba {
		return ab
	}
	if !ab {
		return false
	}
	if len(a.sig.vars) == 0 && len(b.sig.vars) > 0 {
		return true
	}
	return !a.usesDefaults() && b.usesDefaults()
}

// asSpecific reports whether every argument a accepts is also accepted by b.
func (r *Resolver) asSpecific(a, b *attempt) bool {
	if a.sig.receiver != nil && b.sig.receiver != nil {
		if !r.checker.IsSubtypeOf(r.erase(a, a.sig.receiver), r.erase(b, b.sig.receiver)) {
			return false
		}
	}
	for i, k := range a.argOf {
		if k < 0 {
			continue
		}
		j := indexOfArg(b.argOf, k)
		if j < 0 {
			continue
		}
		if !r.checker.IsSubtypeOf(r.erase(a, a.sig.params[i]), r.erase(b, b.sig.params[j])) {
			return false
		}
	}
	return true
}

// erase replaces inference variables by their first upper bound.
func (r *Resolver) erase(a *attempt, t *types.Type) *types.Type {
	if len(a.sig.vars) == 0 {
		return t
	}
	subst := make(types.Substitution, len(a.sig.vars))
	for _, v := range a.sig.vars {
		subst[v] = types.Inv(r.table.UpperBounds(v)[0])
	}
	return types.Substitute(r.table, t, subst)
}

func indexOfArg(argOf []int, k int) int {
	for i, x := range argOf {
		if x == k {
			return i
		}
	}
	return -1
}
