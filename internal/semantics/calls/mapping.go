package calls

import (
	"fmt"

	"jetc/internal/diagnostics"
)

// mapArguments assigns every argument of req to a parameter of sig.
// Positional arguments fill parameters in order; named ones pick their
// parameter by name and no positional argument may follow them.
func mapArguments(sig *signature, req *Request) ([]int, []*diagnostics.Diagnostic) {
	argOf := make([]int, len(sig.params))
	for i := range argOf {
		argOf[i] = -1
	}
	var errs []*diagnostics.Diagnostic
	next, named := 0, false
	for k, a := range req.Args {
		loc := argLoc(a, req)
		if a.Name == "" {
			if named {
				errs = append(errs, diagnostics.NewError("mixing named and positioned arguments is not allowed").
					WithCode(diagnostics.ErrNamedArgumentNotFound).
					WithPrimaryLabel(loc, "positional argument after a named one"))
				continue
			}
			if next >= len(sig.params) {
				return argOf, append(errs, diagnostics.WrongArgumentCount(req.Loc, len(sig.params), len(req.Args)))
			}
			argOf[next] = k
			next++
			continue
		}
		named = true
		i := indexOf(sig.names, a.Name)
		switch {
		case i < 0:
			errs = append(errs, diagnostics.NewError("cannot find a parameter with this name: "+a.Name).
				WithCode(diagnostics.ErrNamedArgumentNotFound).
				WithPrimaryLabel(loc, "no such parameter"))
		case argOf[i] >= 0:
			errs = append(errs, diagnostics.NewError("an argument is already passed for this parameter").
				WithCode(diagnostics.ErrArgumentPassedTwice).
				WithPrimaryLabel(loc, fmt.Sprintf("'%s' passed twice", a.Name)))
		default:
			argOf[i] = k
		}
	}
	for i, k := range argOf {
		if k < 0 && !sig.defaults[i] {
			name := sig.names[i]
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			errs = append(errs, diagnostics.NewError("no value passed for parameter '"+name+"'").
				WithCode(diagnostics.ErrNoValueForParameter).
				WithPrimaryLabel(req.Loc, "missing argument"))
		}
	}
	return argOf, errs
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
