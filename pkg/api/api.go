// Package api provides the public API for the sequential-variable
// rewriter.
//
// This package is intended for programmatic use. For CLI usage, see
// cmd/rebind.
package api

import (
	"fmt"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/debug"
	"github.com/varmark/rebind/internal/diagnostic"
	"github.com/varmark/rebind/internal/parser"
	"github.com/varmark/rebind/internal/printer"
	"github.com/varmark/rebind/internal/rewriter"
	"github.com/varmark/rebind/internal/sourcemap"
)

// Options controls rewriting behavior.
type Options struct {
	// Enabled toggles the rewrite. When false the input is passed through
	// untouched, so a build can flip sequential variables off without
	// changing its pipeline.
	Enabled bool

	// SourcePath is the file name used in diagnostics. Optional.
	SourcePath string

	// Indent is the indentation unit of the rendered output.
	// Defaults to four spaces.
	Indent string

	// Annotate adds the per-function listing explaining every versioned
	// name to the result.
	Annotate bool
}

// DefaultOptions returns the options used by Rewrite.
func DefaultOptions() Options {
	return Options{Enabled: true}
}

// NameBinding describes one versioned name produced by the rewrite.
type NameBinding struct {
	// Function is the owning function as module:name/arity.
	Function string

	// Versioned is the emitted name, Base@N.
	Versioned string

	// Base is the name as written, without marker or version.
	Base string

	// Counter is the version number.
	Counter int
}

// Result contains the rewrite output.
type Result struct {
	// Code is the rewritten source. When rewriting is disabled this is
	// the input, byte for byte.
	Code string

	// Errors contains formatted diagnostics. If non-empty, Code is empty.
	Errors []string

	// Names lists every versioned name, in function order.
	Names []NameBinding

	// Annotated is the per-function listing. Empty unless requested.
	Annotated string
}

// Rewrite rewrites source code with default options.
func Rewrite(source string) Result {
	return RewriteWithOptions(source, DefaultOptions())
}

// RewriteWithOptions rewrites source code with custom options.
func RewriteWithOptions(source string, opts Options) Result {
	if !opts.Enabled {
		return Result{Code: source}
	}

	module, parseErrs, diags := parse(source)
	if len(parseErrs) > 0 {
		return Result{Errors: formatParseErrors(parseErrs, diags)}
	}
	module.SourcePath = opts.SourcePath

	rewritten, names, err := rewriter.Rewrite(module)
	if err != nil {
		return Result{Errors: []string{formatRewriteError(err, diags)}}
	}

	result := Result{
		Code:  printer.New(printer.Options{Indent: opts.Indent}).Print(rewritten),
		Names: collectNames(names),
	}
	if opts.Annotate {
		result.Annotated = debug.Annotate(rewritten, names)
	}
	return result
}

// AnnotateFunction rewrites the source and returns the annotated listing
// for a single function.
func AnnotateFunction(source, name string, arity int) (string, error) {
	module, parseErrs, diags := parse(source)
	if len(parseErrs) > 0 {
		return "", fmt.Errorf("parse failed:\n%s", joinLines(formatParseErrors(parseErrs, diags)))
	}

	rewritten, names, err := rewriter.Rewrite(module)
	if err != nil {
		return "", err
	}

	listing, ok := debug.AnnotateFunction(rewritten, names, name, arity)
	if !ok {
		return "", fmt.Errorf("no function %s/%d", name, arity)
	}
	return listing, nil
}

// ----------------------------------------------------------------------------
// Positional Lookup
// ----------------------------------------------------------------------------

// Lookup resolves positions in a source unit against its rewritten form:
// the enclosing function, and the versioned variable occupying an offset.
// Positions refer to the original source text; the answers come from the
// rewrite.
type Lookup struct {
	index *debug.Index
	lines *sourcemap.LineIndex
}

// NewLookup rewrites the source and builds a positional index over it.
func NewLookup(source string) (*Lookup, error) {
	module, parseErrs, diags := parse(source)
	if len(parseErrs) > 0 {
		return nil, fmt.Errorf("parse failed:\n%s", joinLines(formatParseErrors(parseErrs, diags)))
	}

	rewritten, names, err := rewriter.Rewrite(module)
	if err != nil {
		return nil, err
	}

	return &Lookup{
		index: debug.NewIndex(rewritten, names),
		lines: sourcemap.NewLineIndex(source),
	}, nil
}

// Offset converts a 1-based line and column to a byte offset.
func (l *Lookup) Offset(line, column int) int {
	return l.lines.LineStart(line-1) + column - 1
}

// FunctionAt returns the module:name/arity identity of the function whose
// span covers the byte offset.
func (l *Lookup) FunctionAt(offset int) (string, bool) {
	id, ok := l.index.FunctionAt(int32(offset))
	if !ok {
		return "", false
	}
	return id.String(), true
}

// FunctionOnLine returns the function whose span touches the 1-based line.
func (l *Lookup) FunctionOnLine(line int) (string, bool) {
	id, ok := l.index.FunctionOnLine(line)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// VariableAt returns the versioned variable whose occurrence starts at the
// byte offset.
func (l *Lookup) VariableAt(offset int) (NameBinding, bool) {
	name, origin, ok := l.index.VariableAt(int32(offset))
	if !ok {
		return NameBinding{}, false
	}
	binding := NameBinding{Versioned: name, Base: origin.Base, Counter: origin.Counter}
	if fn, ok := l.FunctionAt(offset); ok {
		binding.Function = fn
	}
	return binding, true
}

// ----------------------------------------------------------------------------
// Internals
// ----------------------------------------------------------------------------

func parse(source string) (*ast.Module, []parser.Error, *diagnostic.List) {
	module, errs := parser.New(source).Parse()
	return module, errs, diagnostic.NewList(source)
}

func formatParseErrors(errs []parser.Error, diags *diagnostic.List) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		d := diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeUnexpectedToken,
			Message:  e.Message,
			Pos:      diags.MakePosition(e.Offset),
		}
		out = append(out, diags.FormatDiagnostic(&d))
	}
	return out
}

func formatRewriteError(err error, diags *diagnostic.List) string {
	rwErr, ok := err.(*rewriter.Error)
	if !ok {
		return err.Error()
	}
	d := diagnostic.Diagnostic{
		Severity: diagnostic.Error,
		Code:     kindCode(rwErr.Kind),
		Message:  rwErr.Error(),
		Pos:      diags.MakePosition(int(rwErr.Loc.Start)),
	}
	return diags.FormatDiagnostic(&d)
}

func kindCode(kind rewriter.ErrorKind) diagnostic.Code {
	switch kind {
	case rewriter.UnboundSequentialVariable:
		return diagnostic.CodeUnboundSeqVar
	case rewriter.ConflictingRedeclaration:
		return diagnostic.CodeConflictingRedecl
	case rewriter.MalformedLetBlock:
		return diagnostic.CodeMalformedLetBlock
	default:
		return diagnostic.CodeUnexpectedToken
	}
}

func collectNames(names *rewriter.NameMap) []NameBinding {
	var out []NameBinding
	for _, id := range names.Functions() {
		for _, versioned := range names.Names(id) {
			origin, _ := names.Origin(id, versioned)
			out = append(out, NameBinding{
				Function:  id.String(),
				Versioned: versioned,
				Base:      origin.Base,
				Counter:   origin.Counter,
			})
		}
	}
	return out
}

func joinLines(lines []string) string {
	var s string
	for _, line := range lines {
		s += line
	}
	return s
}
