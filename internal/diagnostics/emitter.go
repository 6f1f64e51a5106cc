package diagnostics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"jetc/colors"
)

const (
	STR_MULTIPLIER = "%*d | "
	LINE_POS       = "%s--> %s:%d:%d\n"
)

// SourceCache caches source file contents for error reporting. Files not
// registered through AddSource are read lazily from disk.
type SourceCache struct {
	mu    sync.Mutex
	files map[string][]string
}

func NewSourceCache() *SourceCache {
	return &SourceCache{
		files: make(map[string][]string),
	}
}

// AddSource registers in-memory content for a path.
func (sc *SourceCache) AddSource(filepath, content string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.files[filepath] = strings.Split(content, "\n")
}

// GetLine retrieves a specific line from a source file
func (sc *SourceCache) GetLine(filepath string, line int) (string, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	lines, ok := sc.files[filepath]
	if !ok {
		loaded, err := readLines(filepath)
		if err != nil {
			return "", err
		}
		sc.files[filepath] = loaded
		lines = loaded
	}
	if line > 0 && line <= len(lines) {
		return lines[line-1], nil
	}
	return "", fmt.Errorf("line %d out of range", line)
}

func readLines(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lines := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Emitter handles the rendering and output of diagnostics
type Emitter struct {
	cache  *SourceCache
	writer io.Writer
}

// NewEmitter creates an emitter that writes to a specific writer
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{
		cache:  NewSourceCache(),
		writer: w,
	}
}

// NewEmitterWithCache shares a source cache, typically the bag's.
func NewEmitterWithCache(w io.Writer, cache *SourceCache) *Emitter {
	return &Emitter{cache: cache, writer: w}
}

// Emit renders one diagnostic: header, labels with source snippets when the
// source is available, notes and help.
func (e *Emitter) Emit(diag *Diagnostic) {
	e.printHeader(diag)

	width := lineNumWidth(diag)
	for _, label := range diag.Labels {
		e.printLabel(diag, label, width)
	}

	for _, note := range diag.Notes {
		fmt.Fprint(e.writer, strings.Repeat(" ", width))
		colors.BLUE.Fprint(e.writer, " = note: ")
		fmt.Fprintln(e.writer, note.Message)
	}

	if diag.Help != "" {
		fmt.Fprint(e.writer, strings.Repeat(" ", width))
		colors.GREEN.Fprint(e.writer, " = help: ")
		fmt.Fprintln(e.writer, diag.Help)
	}

	fmt.Fprintln(e.writer)
}

func severityColor(sev Severity) colors.COLOR {
	switch sev {
	case Error:
		return colors.BOLD_RED
	case Warning:
		return colors.BOLD_YELLOW
	default:
		return colors.BOLD_CYAN
	}
}

func (e *Emitter) printHeader(diag *Diagnostic) {
	color := severityColor(diag.Severity)
	color.Fprint(e.writer, diag.Severity.String())
	if diag.Code != "" {
		fmt.Fprintf(e.writer, "[%s]", diag.Code)
	}
	fmt.Fprint(e.writer, ": ")
	color.Fprintln(e.writer, diag.Message)
}

func lineNumWidth(diag *Diagnostic) int {
	maxLine := 1
	for _, label := range diag.Labels {
		if label.Location.IsValid() && label.Location.End.Line > maxLine {
			maxLine = label.Location.End.Line
		}
	}
	return len(fmt.Sprintf("%d", maxLine))
}

func (e *Emitter) printLabel(diag *Diagnostic, label Label, width int) {
	loc := label.Location
	if !loc.IsValid() {
		if label.Message != "" {
			fmt.Fprintf(e.writer, "%s = %s\n", strings.Repeat(" ", width), label.Message)
		}
		return
	}
	file := loc.File()
	if file == "" {
		file = diag.FilePath
	}
	colors.BLUE.Fprintf(e.writer, LINE_POS, strings.Repeat(" ", width), file, loc.Start.Line, loc.Start.Column)

	sourceLine, err := e.cache.GetLine(file, loc.Start.Line)
	if err != nil {
		// No source text: the header line and the message are all we have.
		if label.Message != "" {
			fmt.Fprintf(e.writer, "%s = %s\n", strings.Repeat(" ", width), label.Message)
		}
		return
	}

	fmt.Fprint(e.writer, strings.Repeat(" ", width))
	colors.GREY.Fprintln(e.writer, " |")
	colors.GREY.Fprintf(e.writer, STR_MULTIPLIER, width, loc.Start.Line)
	fmt.Fprintln(e.writer, sourceLine)

	fmt.Fprint(e.writer, strings.Repeat(" ", width))
	colors.GREY.Fprint(e.writer, " | ")

	padding := loc.Start.Column - 1
	length := loc.End.Column - loc.Start.Column
	if loc.End.Line != loc.Start.Line {
		// Underline to the end of the first line of a multi-line span.
		length = len(sourceLine) - padding
	}
	if length <= 0 {
		length = 1
	}
	if padding < 0 {
		padding = 0
	}

	underlineColor := colors.BLUE
	underlineChar := "-"
	if label.Style == Primary {
		underlineColor = severityColor(diag.Severity)
		underlineChar = "^"
	}
	fmt.Fprint(e.writer, strings.Repeat(" ", padding))
	underlineColor.Fprint(e.writer, strings.Repeat(underlineChar, length))
	if label.Message != "" {
		underlineColor.Fprintf(e.writer, " %s", label.Message)
	}
	fmt.Fprintln(e.writer)
}

// Render is a convenience that formats a single diagnostic to a string.
func Render(diag *Diagnostic, cache *SourceCache) string {
	var sb strings.Builder
	if cache == nil {
		cache = NewSourceCache()
	}
	NewEmitterWithCache(&sb, cache).Emit(diag)
	return sb.String()
}
