package pagecraft

import (
	"fmt"
	"os"
	"strings"
)

// ParseError is an import failure with enough context to point at the
// offending line.
type ParseError struct {
	File    string // Source file path, if known
	Line    int    // Line number (1-indexed)
	Column  int    // Column number (1-indexed, optional)
	Message string
	Hint    string
	Source  []byte // Document text; read from File when nil
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Format()
}

// Format renders the message, the surrounding lines and the hint.
func (e *ParseError) Format() string {
	var b strings.Builder

	name := e.File
	if name == "" {
		name = "<input>"
	}
	fmt.Fprintf(&b, "Error in %s\n\n", name)
	fmt.Fprintf(&b, "Line %d: %s\n", e.Line, e.Message)
	b.WriteString(e.context())

	if e.Hint != "" {
		fmt.Fprintf(&b, "\nTip: %s\n", e.Hint)
	}
	return b.String()
}

// context returns up to two lines either side of the error line.
func (e *ParseError) context() string {
	src := e.Source
	if src == nil && e.File != "" {
		data, err := os.ReadFile(e.File)
		if err != nil {
			return ""
		}
		src = data
	}
	if src == nil {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(src), "\n"), "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	for i := max(1, e.Line-2); i <= min(len(lines), e.Line+2); i++ {
		prefix := fmt.Sprintf("  %2d | ", i)
		b.WriteString(prefix + lines[i-1] + "\n")
		if i == e.Line && e.Column > 0 {
			b.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1) + "^\n")
		}
	}
	return b.String()
}

// NewParseError creates a ParseError.
func NewParseError(file string, line int, message string) *ParseError {
	return &ParseError{File: file, Line: line, Message: message}
}

func (e *ParseError) WithColumn(col int) *ParseError {
	e.Column = col
	return e
}

func (e *ParseError) WithHint(hint string) *ParseError {
	e.Hint = hint
	return e
}

// WithSource attaches the document text used for the context lines.
func (e *ParseError) WithSource(src []byte) *ParseError {
	e.Source = src
	return e
}
