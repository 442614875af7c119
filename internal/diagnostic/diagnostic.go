// Package diagnostic provides error reporting for the sequential-variable
// rewriter: accurate source locations, severity levels, and stable codes.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/varmark/rebind/internal/sourcemap"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error aborts the rewrite of the enclosing compilation unit.
	Error Severity = iota
	// Warning is a non-blocking issue.
	Warning
	// Note provides additional context for another diagnostic.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Position represents a position in source code.
type Position struct {
	Offset int // byte offset (0-based)
	Line   int // line number (1-based)
	Column int // column number (1-based)
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     Code   // stable error code
	Message  string // human-readable message
	Pos      Position
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// Code identifies a diagnostic kind.
type Code string

const (
	// Syntax errors (E00xx)
	CodeUnexpectedToken    Code = "E0001"
	CodeUnterminatedString Code = "E0002"
	CodeInvalidNumber      Code = "E0003"

	// Sequential-variable errors (E01xx)
	CodeUnboundSeqVar     Code = "E0100"
	CodeConflictingRedecl Code = "E0101"
	CodeMalformedLetBlock Code = "E0102"
)

// List collects diagnostics during one compilation-unit pass.
type List struct {
	diagnostics []Diagnostic
	lineIndex   *sourcemap.LineIndex
	source      string
	hasErrors   bool
}

// NewList creates a diagnostic list for the given source.
func NewList(source string) *List {
	return &List{
		lineIndex: sourcemap.NewLineIndex(source),
		source:    source,
	}
}

// Add adds a diagnostic to the list.
func (dl *List) Add(d Diagnostic) {
	dl.diagnostics = append(dl.diagnostics, d)
	if d.Severity == Error {
		dl.hasErrors = true
	}
}

// AddError adds an error diagnostic at the given byte offset.
func (dl *List) AddError(offset int, code Code, message string) {
	dl.Add(Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  message,
		Pos:      dl.MakePosition(offset),
	})
}

// MakePosition converts a byte offset to a 1-based Position.
func (dl *List) MakePosition(offset int) Position {
	line, col := dl.lineIndex.LineColumn(offset)
	return Position{Offset: offset, Line: line + 1, Column: col + 1}
}

// HasErrors returns true if there are any error-level diagnostics.
func (dl *List) HasErrors() bool {
	return dl.hasErrors
}

// Diagnostics returns all collected diagnostics.
func (dl *List) Diagnostics() []Diagnostic {
	return dl.diagnostics
}

// Count returns the total number of diagnostics.
func (dl *List) Count() int {
	return len(dl.diagnostics)
}

// Format formats all diagnostics as a human-readable string.
func (dl *List) Format() string {
	if len(dl.diagnostics) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := range dl.diagnostics {
		sb.WriteString(dl.FormatDiagnostic(&dl.diagnostics[i]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatDiagnostic formats a single diagnostic with source context.
func (dl *List) FormatDiagnostic(d *Diagnostic) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%d:%d: %s: %s\n", d.Pos.Line, d.Pos.Column, d.Severity, d.Message))
	if d.Code != "" {
		sb.WriteString(fmt.Sprintf("  [%s]\n", d.Code))
	}

	sourceLine := dl.getSourceLine(d.Pos.Line)
	if sourceLine != "" {
		sb.WriteString(fmt.Sprintf("    %s\n", sourceLine))
		sb.WriteString(strings.Repeat(" ", d.Pos.Column-1+4))
		sb.WriteString("^\n")
	}

	return sb.String()
}

// getSourceLine returns the source code line at the given 1-based line number.
func (dl *List) getSourceLine(line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(dl.source, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}
