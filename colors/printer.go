package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Print methods (default to stdout)
func (c COLOR) Printf(format string, args ...any) {
	fmt.Print(c.wrap(fmt.Sprintf(format, args...)))
}

func (c COLOR) Println(args ...any) {
	fmt.Println(c.wrap(strings.TrimSuffix(fmt.Sprintln(args...), "\n")))
}

// Fprint methods (write to specific writer)
func (c COLOR) Fprintf(w io.Writer, format string, args ...any) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, args...)))
}

func (c COLOR) Fprintln(w io.Writer, args ...any) {
	fmt.Fprintln(w, c.wrap(strings.TrimSuffix(fmt.Sprintln(args...), "\n")))
}

func (c COLOR) Fprint(w io.Writer, args ...any) {
	fmt.Fprint(w, c.wrap(fmt.Sprint(args...)))
}

func (c COLOR) Sprintf(format string, args ...any) string {
	return c.wrap(fmt.Sprintf(format, args...))
}

func (c COLOR) Sprint(args ...any) string {
	return c.wrap(fmt.Sprint(args...))
}

// Debugf writes a debug line to stderr in the given colour.
func Debugf(c COLOR, format string, args ...any) {
	c.Fprintf(os.Stderr, format, args...)
}

// StripANSI removes ANSI color codes from a string
func StripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			inEscape = true
			i++
			continue
		}
		if inEscape {
			if (s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z') {
				inEscape = false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
