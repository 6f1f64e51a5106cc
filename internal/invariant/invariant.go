// Package invariant reports compiler bugs. A Violation is never a user error:
// it aborts the current translation unit and is turned into an "internal
// compiler error" diagnostic by the pipeline.
package invariant

import (
	"fmt"

	"github.com/pkg/errors"
)

// Violation is the panic payload raised by Failf.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return "invariant violation: " + v.Msg
}

// Failf panics with a Violation carrying a stack trace.
func Failf(format string, args ...any) {
	panic(errors.WithStack(&Violation{Msg: fmt.Sprintf(format, args...)}))
}

// Check panics when cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		Failf(format, args...)
	}
}

// FromRecover inspects a recovered panic value. It returns the violation and
// true when the panic was raised by this package.
func FromRecover(r any) (*Violation, bool) {
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	v, ok := errors.Cause(err).(*Violation)
	return v, ok
}

// Catch runs fn and converts a Violation panic into an error. Other panics
// propagate.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := FromRecover(r); ok {
				err = r.(error)
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
