// macro.go implements the macro table (C4): storage of object-like and
// function-like macro definitions, the predefined-macro set, and the
// insertion/redefinition rules that guard it.
package cpp

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// MacroKind distinguishes how a macro's replacement is produced.
type MacroKind int

const (
	MacroObject MacroKind = iota
	MacroFunction
	MacroBuiltin // __FILE__, __LINE__ and friends: re-materialized at each lookup
)

// ExpansionMethod is the precomputed dispatch tag described in the design
// notes: a small enum switched on directly rather than a vtable.
type ExpansionMethod int

const (
	MethodNormal           ExpansionMethod = iota
	MethodDirectlyCopyable                 // body has no identifier, #, or ##: emit verbatim, no rescan
	MethodOpPragma                         // reserved for the built-in _Pragma operator
)

// Macro is one entry in the macro table.
type Macro struct {
	Name        string
	Kind        MacroKind
	Params      []string // nil for object-like; ordered, unique for function-like
	IsVariadic  bool
	Replacement []Token // whitespace collapsed internally, trimmed at the ends
	Loc         SourceLoc
	Predefined  bool
	Method      ExpansionMethod
	BuiltinFunc func(loc SourceLoc) []Token // non-nil only for ad-hoc builtins beyond __FILE__/__LINE__
}

// sameDefinitionAs reports whether two macros are redefinition-compatible:
// same form, same parameter list, same replacement list token-wise (kind
// and lexeme only, positions don't matter).
func (m *Macro) sameDefinitionAs(other *Macro) bool {
	if m.Kind != other.Kind || m.IsVariadic != other.IsVariadic {
		return false
	}
	if len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	if len(m.Replacement) != len(other.Replacement) {
		return false
	}
	for i := range m.Replacement {
		a, b := m.Replacement[i], other.Replacement[i]
		if a.Type != b.Type || a.Text != b.Text {
			return false
		}
	}
	return true
}

// computeMethod precomputes the ExpansionMethod for a macro about to be
// inserted, per §4.4.
func computeMethod(name string, kind MacroKind, replacement []Token) ExpansionMethod {
	if name == "_Pragma" {
		return MethodOpPragma
	}
	if kind == MacroBuiltin {
		return MethodNormal
	}
	for _, t := range replacement {
		if t.Type == PP_IDENTIFIER || t.Type == PP_HASH || t.Type == PP_HASHHASH {
			return MethodNormal
		}
		if t.Type == PP_PUNCTUATOR && t.Text == "#" {
			return MethodNormal
		}
	}
	return MethodDirectlyCopyable
}

// protectedNames cannot be #defined or #undefed: the predefined identifiers
// of §6 plus the operator-like names reserved by the grammar itself.
var protectedNames = map[string]bool{
	"__FILE__": true, "__LINE__": true, "__DATE__": true, "__TIME__": true,
	"__STDC__": true, "__STDC_HOSTED__": true, "__STDC_VERSION__": true,
	"__STDC_NO_ATOMICS__": true, "__STDC_NO_COMPLEX__": true,
	"__STDC_NO_THREADS__": true, "__STDC_NO_VLA__": true,
	"defined": true, "_Pragma": true, "__VA_ARGS__": true, "__VA_OPT__": true,
}

// classifyReservedName classifies a name into one of three reserved-identifier
// warning categories (__STDC_ prefix, leading double underscore, underscore
// followed by an uppercase letter), or "" if none applies. The other families
// of diagnostics.h's kStdcReservedIdentifier* catalog (E-, FE_-, PRI/SCN-
// prefixed names and the like) are not detected.
func classifyReservedName(name string) string {
	switch {
	case strings.HasPrefix(name, "__STDC_"):
		return "__STDC_ prefix"
	case strings.HasPrefix(name, "__"):
		return "leading double underscore"
	case strings.HasPrefix(name, "_") && len(name) > 1 && name[1] >= 'A' && name[1] <= 'Z':
		return "underscore followed by uppercase letter"
	default:
		return ""
	}
}

// MacroTable is the hash map from identifier to macro definition.
type MacroTable struct {
	macros map[string]*Macro
	diags  *DiagnosticSink
}

// NewMacroTable creates a macro table pre-populated with the predefined
// macros of §6, reporting diagnostics to stderr by default.
func NewMacroTable() *MacroTable {
	return NewMacroTableWithDiagnostics(defaultSink())
}

// NewMacroTableWithDiagnostics creates a macro table that reports through
// the given sink (used by the Preprocessor to route everything through one
// sink instance).
func NewMacroTableWithDiagnostics(sink *DiagnosticSink) *MacroTable {
	mt := &MacroTable{macros: make(map[string]*Macro), diags: sink}
	mt.installPredefined()
	return mt
}

func (mt *MacroTable) installPredefined() {
	now := time.Now()
	mt.defineRaw("__DATE__", MacroObject, nil, false,
		[]Token{{Type: PP_STRING, Text: `"` + now.Format("Jan  2 2006") + `"`}}, true)
	mt.defineRaw("__TIME__", MacroObject, nil, false,
		[]Token{{Type: PP_STRING, Text: `"` + now.Format("15:04:05") + `"`}}, true)
	mt.defineRaw("__FILE__", MacroBuiltin, nil, false, nil, true)
	mt.defineRaw("__LINE__", MacroBuiltin, nil, false, nil, true)
	mt.defineSimpleInt("__STDC__", "1")
	mt.defineSimpleInt("__STDC_HOSTED__", "0")
	mt.defineSimpleInt("__STDC_VERSION__", "201112L")
	mt.defineSimpleInt("__STDC_NO_ATOMICS__", "1")
	mt.defineSimpleInt("__STDC_NO_COMPLEX__", "1")
	mt.defineSimpleInt("__STDC_NO_THREADS__", "1")
	mt.defineSimpleInt("__STDC_NO_VLA__", "1")
	// _Pragma is a built-in function-like macro with a single parameter;
	// its body is never used, the expander special-cases MethodOpPragma.
	mt.defineRaw("_Pragma", MacroFunction, []string{"x"}, false, nil, true)
}

func (mt *MacroTable) defineSimpleInt(name, value string) {
	mt.defineRaw(name, MacroObject, nil, false, []Token{{Type: PP_NUMBER, Text: value}}, true)
}

func (mt *MacroTable) defineRaw(name string, kind MacroKind, params []string, variadic bool, replacement []Token, predefined bool) {
	mt.macros[name] = &Macro{
		Name: name, Kind: kind, Params: params, IsVariadic: variadic,
		Replacement: replacement, Predefined: predefined,
		Method: computeMethod(name, kind, replacement),
	}
}

// Lookup returns the macro named name, or nil.
func (mt *MacroTable) Lookup(name string) *Macro {
	return mt.macros[name]
}

// IsDefined reports whether name has a current definition.
func (mt *MacroTable) IsDefined(name string) bool {
	_, ok := mt.macros[name]
	return ok
}

// insert enforces §4.4's insertion rules and installs the macro, returning
// an error only for conditions the caller cannot recover from (invalid
// name); redefinition incompatibility is a warning, not an error.
func (mt *MacroTable) insert(m *Macro, loc SourceLoc) error {
	if !IsIdentifier(m.Name) || m.Name == "defined" || m.Name == "__VA_ARGS__" || m.Name == "__VA_OPT__" {
		mt.diags.Emit(LevelError, loc, DiagInvalidMacroName, m.Name)
		return &MacroNameError{Name: m.Name}
	}
	if protectedNames[m.Name] {
		mt.diags.Emit(LevelError, loc, DiagPredefinedMacroRedefine, m.Name)
		return &MacroNameError{Name: m.Name}
	}
	if reason := classifyReservedName(m.Name); reason != "" {
		mt.diags.Emit(LevelWarning, loc, DiagReservedIdentifier, m.Name+" ("+reason+")")
	}
	if existing, ok := mt.macros[m.Name]; ok {
		if !existing.sameDefinitionAs(m) {
			mt.diags.Emit(LevelWarning, loc, DiagMacroRedefinition, m.Name)
		}
	}
	m.Loc = loc
	m.Method = computeMethod(m.Name, m.Kind, m.Replacement)
	mt.macros[m.Name] = m
	return nil
}

// MacroNameError indicates an attempt to define or undefine a name the
// grammar reserves.
type MacroNameError struct{ Name string }

func (e *MacroNameError) Error() string { return "invalid macro name: " + e.Name }

// DefineObject defines (or redefines) an object-like macro.
func (mt *MacroTable) DefineObject(name string, bodyTokens []Token, loc SourceLoc) error {
	return mt.insert(&Macro{Name: name, Kind: MacroObject, Replacement: collapseReplacement(bodyTokens)}, loc)
}

// DefineFunction defines (or redefines) a function-like macro.
func (mt *MacroTable) DefineFunction(name string, params []string, variadic bool, bodyTokens []Token, loc SourceLoc) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p] {
			mt.diags.Emit(LevelError, loc, DiagDuplicateParameter, p)
			return &MacroNameError{Name: p}
		}
		seen[p] = true
	}
	return mt.insert(&Macro{
		Name: name, Kind: MacroFunction, Params: params, IsVariadic: variadic,
		Replacement: collapseReplacement(bodyTokens),
	}, loc)
}

// DefineSimple defines a macro from a plain-text replacement, as used for
// -D name=value command-line definitions and simple test fixtures.
func (mt *MacroTable) DefineSimple(name, value string, loc SourceLoc) error {
	if value == "" {
		return mt.DefineObject(name, nil, loc)
	}
	lex := NewLexer(value, loc.File)
	var tokens []Token
	for {
		tok := lex.NextToken()
		if tok.Type == PP_EOF || tok.Type == PP_NEWLINE {
			break
		}
		tokens = append(tokens, tok)
	}
	return mt.DefineObject(name, tokens, loc)
}

// DefineFromDirective installs the macro parsed from a #define directive.
func (mt *MacroTable) DefineFromDirective(dir *Directive) error {
	if dir.MacroParams != nil {
		return mt.DefineFunction(dir.MacroName, dir.MacroParams, dir.IsVariadic, dir.MacroBody, dir.Loc)
	}
	return mt.DefineObject(dir.MacroName, dir.MacroBody, dir.Loc)
}

// Undefine removes a macro definition, per §4.4's #undef rules.
func (mt *MacroTable) Undefine(name string) {
	if protectedNames[name] {
		mt.diags.Emit(LevelError, SourceLoc{}, DiagPredefinedMacroRedefine, name)
		return
	}
	if _, ok := mt.macros[name]; !ok {
		mt.diags.Emit(LevelWarning, SourceLoc{}, DiagUndefNondefinedMacro, name)
		return
	}
	delete(mt.macros, name)
}

// ApplyCmdlineDefines installs -D/-U flags in order: all -D definitions are
// applied, then all -U undefinitions, matching §6's "applied after -D
// pre-defines" rule.
func (mt *MacroTable) ApplyCmdlineDefines(defines, undefines []string) {
	for _, d := range defines {
		name, value := d, ""
		if idx := strings.IndexByte(d, '='); idx >= 0 {
			name, value = d[:idx], d[idx+1:]
		}
		_ = mt.DefineSimple(name, value, SourceLoc{File: "<command-line>"})
	}
	for _, name := range undefines {
		mt.Undefine(name)
	}
}

// GetFileToken re-materializes __FILE__ at loc.
func (mt *MacroTable) GetFileToken(loc SourceLoc) []Token {
	return []Token{{Type: PP_STRING, Text: `"` + loc.File + `"`, Loc: loc}}
}

// GetLineToken re-materializes __LINE__ at loc.
func (mt *MacroTable) GetLineToken(loc SourceLoc) []Token {
	return []Token{{Type: PP_NUMBER, Text: strconv.Itoa(loc.Line), Loc: loc}}
}

// PredefinedNames returns a sorted list of predefined macro names, for the
// "fast membership testing" list the data model calls for.
func (mt *MacroTable) PredefinedNames() []string {
	var names []string
	for name, m := range mt.macros {
		if m.Predefined {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// collapseReplacement trims leading/trailing whitespace and collapses
// interior whitespace runs to a single space token, per the Macro data
// model's replacement-list storage rule.
func collapseReplacement(tokens []Token) []Token {
	trimmed := trimWhitespace(tokens)
	if trimmed == nil {
		return nil
	}
	result := make([]Token, 0, len(trimmed))
	lastWasSpace := false
	for _, t := range trimmed {
		if t.Type == PP_WHITESPACE {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			result = append(result, Token{Type: PP_WHITESPACE, Text: " ", Loc: t.Loc})
			continue
		}
		lastWasSpace = false
		result = append(result, t)
	}
	return result
}
