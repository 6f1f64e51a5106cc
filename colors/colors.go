package colors

// COLOR is an ANSI escape sequence selecting a foreground colour.
type COLOR string

const (
	RESET  COLOR = "\033[0m"
	BOLD   COLOR = "\033[1m"
	RED    COLOR = "\033[31m"
	GREEN  COLOR = "\033[32m"
	YELLOW COLOR = "\033[33m"
	BLUE   COLOR = "\033[34m"
	PURPLE COLOR = "\033[35m"
	CYAN   COLOR = "\033[36m"
	GREY   COLOR = "\033[90m"
	ORANGE COLOR = "\033[38;5;208m"

	BOLD_RED    COLOR = "\033[1;31m"
	BOLD_YELLOW COLOR = "\033[1;33m"
	BOLD_BLUE   COLOR = "\033[1;34m"
	BOLD_CYAN   COLOR = "\033[1;36m"
)

// enabled can be switched off for plain-text output (tests, pipes).
var enabled = true

// SetEnabled toggles colour output globally.
func SetEnabled(on bool) {
	enabled = on
}

// Enabled reports whether colour output is on.
func Enabled() bool {
	return enabled
}

func (c COLOR) wrap(s string) string {
	if !enabled {
		return s
	}
	return string(c) + s + string(RESET)
}
