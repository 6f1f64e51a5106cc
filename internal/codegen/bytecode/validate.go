package bytecode

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// UnsupportedError reports a construct the generator marked as unsupported.
type UnsupportedError struct {
	Class, Method string
	Index         int
	Reason        string
}

func (e *UnsupportedError) Error() string {
	return e.Class + "." + e.Method + ": unsupported construct at " + itoa(e.Index) + ": " + e.Reason
}

// Validate checks that m can be serialized: every stream is sealed and has
// no pending slot or UNSUPPORTED marker, exception ranges lie inside their
// methods and operand stacks are consistent. All problems are returned
// joined.
func Validate(m *Module) error {
	var errs []error
	for _, c := range m.Classes {
		for _, meth := range c.Methods {
			errs = append(errs, validateMethod(c, meth)...)
		}
	}
	return stderrors.Join(errs...)
}

func validateMethod(c *ClassNode, m *MethodNode) []error {
	where := c.Name + "." + m.Name + m.Desc
	abstract := m.Access.Has(AccAbstract)
	switch {
	case m.Code == nil && abstract:
		return nil
	case m.Code == nil:
		return []error{errors.Errorf("%s: concrete method without code", where)}
	case abstract:
		return []error{errors.Errorf("%s: abstract method with code", where)}
	}

	var errs []error
	if !m.Code.Sealed() {
		errs = append(errs, errors.Errorf("%s: instruction stream was not sealed", where))
	}
	if p := m.Code.Pending(); len(p) > 0 {
		errs = append(errs, errors.Errorf("%s: %d unresolved jump slot(s), first at %d", where, len(p), p[0]))
	}
	n := m.Code.Len()
	for i := 0; i < n; i++ {
		sl := m.Code.At(i)
		if sl.Pending {
			continue
		}
		switch in := sl.Insn; {
		case in.Op == UNSUPPORTED:
			errs = append(errs, &UnsupportedError{Class: c.Name, Method: m.Name, Index: i, Reason: in.Reason})
		case in.Op.IsJump() && (in.Target < 0 || in.Target >= n):
			errs = append(errs, errors.Errorf("%s: jump at %d targets %d", where, i, in.Target))
		}
	}
	for _, tc := range m.TryCatch {
		if tc.Start < 0 || tc.Start >= tc.End || tc.End > n || tc.Handler < 0 || tc.Handler >= n {
			errs = append(errs, errors.Errorf("%s: bad exception range [%d, %d) -> %d", where, tc.Start, tc.End, tc.Handler))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	if _, err := MaxStack(m); err != nil {
		errs = append(errs, errors.Wrap(err, where))
	}
	return errs
}
