package invariant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestCatchViolation(t *testing.T) {
	err := Catch(func() { Failf("slot %d released out of order", 3) })
	be.Err(t, err, "slot 3 released out of order")

	v, ok := FromRecover(err)
	be.True(t, ok)
	be.Equal(t, v.Msg, "slot 3 released out of order")
}

func TestCatchPassesOtherPanics(t *testing.T) {
	defer func() {
		r := recover()
		be.Equal(t, r, any("boom"))
	}()
	_ = Catch(func() { panic("boom") })
	t.Fatal("unreachable")
}

func TestCheck(t *testing.T) {
	be.Err(t, Catch(func() { Check(1 == 2, "math is broken") }), "math is broken")
	be.Err(t, Catch(func() { Check(true, "never") }), nil)
}

func TestStackTraceAttached(t *testing.T) {
	err := Catch(func() { Failf("x") })
	if !strings.Contains(strings.ReplaceAll(fmtPlus(err), "\n", " "), "invariant_test.go") {
		t.Error("expected stack trace to mention the failing test file")
	}
}

func fmtPlus(err error) string {
	return fmt.Sprintf("%+v", err)
}
