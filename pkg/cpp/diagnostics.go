// diagnostics.go implements the structured diagnostic sink shared by every
// cpp component. The core never formats localized strings itself: it emits
// a (level, location, kind, arguments) tuple and leaves rendering to the
// sink, matching the wire format the external logger expects.
package cpp

import (
	"fmt"
	"io"
	"os"
)

// DiagLevel is the severity of a diagnostic.
type DiagLevel int

const (
	LevelFatal DiagLevel = iota
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
)

func (l DiagLevel) String() string {
	switch l {
	case LevelFatal:
		return "fatal error"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "note"
	case LevelDebug:
		return "debug"
	default:
		return "diagnostic"
	}
}

// DiagKind classifies a diagnostic message independent of its rendered text.
type DiagKind string

// Diagnostic kinds, grouped the way the error taxonomy is grouped: lexical,
// directive, macro, expression, IO, and reserved-identifier categories.
const (
	DiagInvalidUcn              DiagKind = "invalid-ucn"
	DiagUnterminatedLiteral     DiagKind = "unterminated-literal"
	DiagUnterminatedComment     DiagKind = "unterminated-comment"
	DiagInvalidHeaderName       DiagKind = "invalid-header-name"
	DiagUnknownDirective        DiagKind = "unknown-directive"
	DiagMisplacedElif           DiagKind = "misplaced-elif"
	DiagMisplacedElse           DiagKind = "misplaced-else"
	DiagMisplacedEndif          DiagKind = "misplaced-endif"
	DiagUnterminatedIf          DiagKind = "unterminated-if"
	DiagRedundantTokens         DiagKind = "redundant-tokens"
	DiagInvalidLineDirective    DiagKind = "invalid-line-directive"
	DiagInvalidMacroName        DiagKind = "invalid-macro-name"
	DiagPredefinedMacroRedefine DiagKind = "predefined-macro-redefined"
	DiagMacroRedefinition       DiagKind = "macro-redefinition"
	DiagUndefNondefinedMacro    DiagKind = "undef-of-nondefined-macro"
	DiagBadParameterList        DiagKind = "bad-parameter-list"
	DiagDuplicateParameter      DiagKind = "duplicate-parameter"
	DiagBadEllipsisPosition     DiagKind = "bad-ellipsis-position"
	DiagBadStringizeOperand     DiagKind = "bad-stringize-operand"
	DiagBadConcatPosition       DiagKind = "bad-concat-position"
	DiagGeneratedInvalidPpToken DiagKind = "generated-invalid-pp-token"
	DiagUnmatchedArgCount       DiagKind = "unmatched-arg-count"
	DiagVariadicNeedsOneArg     DiagKind = "variadic-needs-one-arg"
	DiagFuncMacroNotInvoked     DiagKind = "function-macro-not-invoked"
	DiagNotAnInteger            DiagKind = "not-an-integer"
	DiagUnknownOperator         DiagKind = "unknown-operator"
	DiagDivideByZero            DiagKind = "divide-by-zero"
	DiagMalformedExpression     DiagKind = "malformed-expression"
	DiagNoInput                 DiagKind = "no-input"
	DiagNoSuchFile              DiagKind = "no-such-file"
	DiagFileOutputError         DiagKind = "file-output-error"
	DiagInclusionDepthExceeded  DiagKind = "inclusion-depth-exceeded"
	DiagIdsEvaluatedToZero      DiagKind = "ids-evaluated-to-zero"
	DiagPragmaIgnored           DiagKind = "pragma-ignored"
	DiagReservedIdentifier      DiagKind = "reserved-identifier"
	DiagUserWarning             DiagKind = "user-warning"
)

// catalog maps a DiagKind to a `{}`-placeholder message template, the same
// convention the external logger substitutes against.
var catalog = map[DiagKind]string{
	DiagInvalidUcn:              "invalid universal character name {}",
	DiagUnterminatedLiteral:     "unterminated literal {}",
	DiagUnterminatedComment:     "unterminated comment",
	DiagInvalidHeaderName:       "invalid header name {}",
	DiagUnknownDirective:        "unknown directive #{}",
	DiagMisplacedElif:           "#elif without matching #if",
	DiagMisplacedElse:           "#else without matching #if",
	DiagMisplacedEndif:          "#endif without matching #if",
	DiagUnterminatedIf:          "unterminated #if, {} level(s) unclosed",
	DiagRedundantTokens:         "extra tokens at end of directive",
	DiagInvalidLineDirective:    "invalid #line directive",
	DiagInvalidMacroName:        "{} is not a valid macro name",
	DiagPredefinedMacroRedefine: "{} is a predefined macro and cannot be redefined",
	DiagMacroRedefinition:       "{} redefined differently",
	DiagUndefNondefinedMacro:    "#undef of undefined macro {}",
	DiagBadParameterList:        "malformed macro parameter list",
	DiagDuplicateParameter:      "duplicate macro parameter {}",
	DiagBadEllipsisPosition:     "... must be the last parameter",
	DiagBadStringizeOperand:     "# is not followed by a parameter",
	DiagBadConcatPosition:       "## at invalid position",
	DiagGeneratedInvalidPpToken: "## produced {} tokens, not one",
	DiagUnmatchedArgCount:       "macro {} requires {} arguments, got {}",
	DiagVariadicNeedsOneArg:     "variadic macro invoked without trailing arguments",
	DiagFuncMacroNotInvoked:     "function-like macro {} not invoked, emitted verbatim",
	DiagNotAnInteger:            "{} is not an integer constant",
	DiagUnknownOperator:         "unknown operator {}",
	DiagDivideByZero:            "division by zero in #if, evaluates to 0",
	DiagMalformedExpression:     "malformed constant expression",
	DiagNoInput:                 "no input file",
	DiagNoSuchFile:              "no such file: {}",
	DiagFileOutputError:         "cannot write output: {}",
	DiagInclusionDepthExceeded:  "inclusion nested deeper than {} levels",
	DiagIdsEvaluatedToZero:      "{} is not defined, evaluates to 0",
	DiagPragmaIgnored:           "unrecognized #pragma {} ignored",
	DiagReservedIdentifier:      "{} is reserved for the implementation",
	DiagUserWarning:             "#warning {}",
}

// Diagnostic is the wire-format tuple passed to the logger.
type Diagnostic struct {
	Level DiagLevel
	Loc   SourceLoc
	Kind  DiagKind
	Args  []any
}

func (d Diagnostic) String() string {
	msg := catalog[d.Kind]
	if msg == "" {
		msg = string(d.Kind)
	}
	for _, a := range d.Args {
		msg = replaceFirst(msg, "{}", fmt.Sprint(a))
	}
	if d.Loc.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.Loc.File, d.Loc.Line, d.Loc.Column, d.Level, msg)
	}
	return fmt.Sprintf("%s: %s", d.Level, msg)
}

func replaceFirst(s, old, new string) string {
	i := indexOf(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// DiagnosticSink collects diagnostics and renders them to an output writer,
// matching the teacher's plain fmt.Fprintf-to-stderr idiom rather than
// pulling in a logging framework for a single-process tool.
type DiagnosticSink struct {
	out        io.Writer
	errorCount int
	all        []Diagnostic
}

// NewDiagnosticSink creates a sink writing rendered diagnostics to w.
func NewDiagnosticSink(w io.Writer) *DiagnosticSink {
	return &DiagnosticSink{out: w}
}

// defaultSink is used by components constructed without an explicit sink
// (e.g. via NewMacroTable()), so standalone package use still reports
// something sensible instead of swallowing diagnostics.
func defaultSink() *DiagnosticSink {
	return NewDiagnosticSink(os.Stderr)
}

// Emit records and renders one diagnostic.
func (s *DiagnosticSink) Emit(level DiagLevel, loc SourceLoc, kind DiagKind, args ...any) {
	d := Diagnostic{Level: level, Loc: loc, Kind: kind, Args: args}
	s.all = append(s.all, d)
	if level == LevelError || level == LevelFatal {
		s.errorCount++
	}
	if s.out != nil {
		fmt.Fprintln(s.out, d.String())
	}
}

// ErrorCount returns the number of Error/Fatal diagnostics emitted so far.
func (s *DiagnosticSink) ErrorCount() int {
	return s.errorCount
}

// HasErrors reports whether any Error/Fatal diagnostic was emitted.
func (s *DiagnosticSink) HasErrors() bool {
	return s.errorCount > 0
}

// All returns every diagnostic emitted, in emission order.
func (s *DiagnosticSink) All() []Diagnostic {
	return s.all
}
