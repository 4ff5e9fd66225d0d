// directive.go implements preprocessing directive parsing, the part of the
// directive/group driver (C7) that turns a line's tokens into a structured
// Directive for preprocess.go to execute.
package cpp

import (
	"fmt"
	"strconv"
	"strings"
)

// DirectiveType identifies which directive a line parsed to.
type DirectiveType int

const (
	DIR_INCLUDE DirectiveType = iota
	DIR_DEFINE
	DIR_UNDEF
	DIR_IF
	DIR_IFDEF
	DIR_IFNDEF
	DIR_ELIF
	DIR_ELSE
	DIR_ENDIF
	DIR_LINE
	DIR_ERROR
	DIR_WARNING
	DIR_PRAGMA
	DIR_LINEMARKER // GCC line marker: # number "filename" [flags]
	DIR_EMPTY      // a lone # on its own line, a no-op
)

func (d DirectiveType) String() string {
	switch d {
	case DIR_INCLUDE:
		return "include"
	case DIR_DEFINE:
		return "define"
	case DIR_UNDEF:
		return "undef"
	case DIR_IF:
		return "if"
	case DIR_IFDEF:
		return "ifdef"
	case DIR_IFNDEF:
		return "ifndef"
	case DIR_ELIF:
		return "elif"
	case DIR_ELSE:
		return "else"
	case DIR_ENDIF:
		return "endif"
	case DIR_LINE:
		return "line"
	case DIR_ERROR:
		return "error"
	case DIR_WARNING:
		return "warning"
	case DIR_PRAGMA:
		return "pragma"
	case DIR_LINEMARKER:
		return "linemarker"
	case DIR_EMPTY:
		return "empty"
	default:
		return "unknown"
	}
}

// Directive is a parsed preprocessing directive; only the fields relevant
// to Type are populated.
type Directive struct {
	Type DirectiveType
	Loc  SourceLoc

	// DIR_INCLUDE
	HeaderName   string  // including the surrounding <> or ""
	IsSystemIncl bool    // true for <...>
	Expression   []Token // set instead of HeaderName when a macro must expand to a header name

	// DIR_DEFINE
	MacroName   string
	MacroParams []string // nil for object-like
	IsVariadic  bool
	MacroBody   []Token

	// DIR_UNDEF, DIR_IFDEF, DIR_IFNDEF
	Identifier string

	// DIR_IF, DIR_ELIF reuse Expression above

	// DIR_LINE, DIR_LINEMARKER
	LineNum         int
	FileName        string
	LinemarkerFlags []int // 1=new file, 2=return to file, 3=system header, 4=extern "C"

	// DIR_ERROR, DIR_WARNING
	Message string

	// DIR_PRAGMA
	PragmaTokens []Token
}

// DirectiveParser parses one directive from the tokens following a leading
// '#'.
type DirectiveParser struct {
	tokens []Token
	pos    int
}

// NewDirectiveParser creates a parser over tokens (which must not include
// the '#' itself).
func NewDirectiveParser(tokens []Token) *DirectiveParser {
	return &DirectiveParser{tokens: tokens}
}

// ParseDirective parses the directive at loc (the position of the '#').
func (p *DirectiveParser) ParseDirective(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()

	if p.atEnd() || p.peek().Type == PP_NEWLINE {
		return &Directive{Type: DIR_EMPTY, Loc: loc}, nil
	}

	if p.peek().Type == PP_NUMBER {
		return p.parseLinemarker(loc)
	}

	if p.peek().Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("%s:%d: expected directive name, got %s", loc.File, loc.Line, p.peek().Type)
	}

	name := p.peek().Text
	p.advance()

	switch name {
	case "include":
		return p.parseInclude(loc)
	case "define":
		return p.parseDefine(loc)
	case "undef":
		return p.parseUndef(loc)
	case "if":
		return p.parseIf(loc)
	case "ifdef":
		return p.parseIfdef(loc)
	case "ifndef":
		return p.parseIfndef(loc)
	case "elif":
		return p.parseElif(loc)
	case "else":
		return &Directive{Type: DIR_ELSE, Loc: loc}, nil
	case "endif":
		return &Directive{Type: DIR_ENDIF, Loc: loc}, nil
	case "line":
		return p.parseLine(loc)
	case "error":
		return &Directive{Type: DIR_ERROR, Loc: loc, Message: p.collectMessage()}, nil
	case "warning":
		return &Directive{Type: DIR_WARNING, Loc: loc, Message: p.collectMessage()}, nil
	case "pragma":
		p.skipWhitespace()
		return &Directive{Type: DIR_PRAGMA, Loc: loc, PragmaTokens: p.collectToNewline()}, nil
	default:
		return nil, fmt.Errorf("%s:%d: unknown directive #%s", loc.File, loc.Line, name)
	}
}

func (p *DirectiveParser) parseInclude(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type == PP_NEWLINE {
		return nil, fmt.Errorf("%s:%d: #include expects a file name", loc.File, loc.Line)
	}

	dir := &Directive{Type: DIR_INCLUDE, Loc: loc}
	tok := p.peek()

	switch {
	case tok.Type == PP_HEADER_NAME:
		dir.HeaderName = tok.Text
		dir.IsSystemIncl = strings.HasPrefix(tok.Text, "<")
		p.advance()
	case tok.Type == PP_STRING:
		dir.HeaderName = tok.Text
		p.advance()
	case tok.Type == PP_PUNCTUATOR && tok.Text == "<":
		var header strings.Builder
		header.WriteByte('<')
		p.advance()
		for !p.atEnd() && p.peek().Type != PP_NEWLINE {
			if p.peek().Type == PP_PUNCTUATOR && p.peek().Text == ">" {
				header.WriteByte('>')
				p.advance()
				break
			}
			header.WriteString(p.peek().Text)
			p.advance()
		}
		dir.HeaderName = header.String()
		dir.IsSystemIncl = true
	default:
		// A macro that must be expanded before it reveals a header name.
		dir.Expression = p.collectToNewline()
	}

	return dir, nil
}

func (p *DirectiveParser) parseDefine(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("%s:%d: #define expects an identifier", loc.File, loc.Line)
	}

	dir := &Directive{Type: DIR_DEFINE, Loc: loc, MacroName: p.peek().Text}
	p.advance()

	// Function-like form requires '(' immediately after the name (no
	// intervening whitespace token).
	if !p.atEnd() && p.peek().Type == PP_PUNCTUATOR && p.peek().Text == "(" {
		p.advance()
		dir.MacroParams = []string{}
		if err := p.parseMacroParams(loc, dir); err != nil {
			return nil, err
		}
	}

	p.skipWhitespace()
	dir.MacroBody = p.collectToNewline()
	return dir, nil
}

func (p *DirectiveParser) parseMacroParams(loc SourceLoc, dir *Directive) error {
	for !p.atEnd() {
		p.skipWhitespace()
		if p.peek().Type == PP_PUNCTUATOR && p.peek().Text == ")" {
			p.advance()
			return nil
		}
		if p.peek().Type == PP_PUNCTUATOR && p.peek().Text == "..." {
			dir.IsVariadic = true
			p.advance()
			p.skipWhitespace()
			if p.peek().Type != PP_PUNCTUATOR || p.peek().Text != ")" {
				return fmt.Errorf("%s:%d: '...' must be last parameter", loc.File, loc.Line)
			}
			p.advance()
			return nil
		}
		if p.peek().Type != PP_IDENTIFIER {
			return fmt.Errorf("%s:%d: expected parameter name, got %s", loc.File, loc.Line, p.peek().Type)
		}
		name := p.peek().Text
		for _, existing := range dir.MacroParams {
			if existing == name {
				return fmt.Errorf("%s:%d: duplicate macro parameter %s", loc.File, loc.Line, name)
			}
		}
		p.advance()
		p.skipWhitespace()
		dir.MacroParams = append(dir.MacroParams, name)
		if p.peek().Type == PP_PUNCTUATOR && p.peek().Text == "," {
			p.advance()
		}
	}
	return fmt.Errorf("%s:%d: unterminated macro parameter list", loc.File, loc.Line)
}

func (p *DirectiveParser) parseUndef(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("%s:%d: #undef expects an identifier", loc.File, loc.Line)
	}
	dir := &Directive{Type: DIR_UNDEF, Loc: loc, Identifier: p.peek().Text}
	p.advance()
	return dir, nil
}

func (p *DirectiveParser) parseIf(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	dir := &Directive{Type: DIR_IF, Loc: loc, Expression: p.collectToNewline()}
	if len(dir.Expression) == 0 {
		return nil, fmt.Errorf("%s:%d: #if expects an expression", loc.File, loc.Line)
	}
	return dir, nil
}

func (p *DirectiveParser) parseIfdef(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("%s:%d: #ifdef expects an identifier", loc.File, loc.Line)
	}
	dir := &Directive{Type: DIR_IFDEF, Loc: loc, Identifier: p.peek().Text}
	p.advance()
	return dir, nil
}

func (p *DirectiveParser) parseIfndef(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("%s:%d: #ifndef expects an identifier", loc.File, loc.Line)
	}
	dir := &Directive{Type: DIR_IFNDEF, Loc: loc, Identifier: p.peek().Text}
	p.advance()
	return dir, nil
}

func (p *DirectiveParser) parseElif(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	dir := &Directive{Type: DIR_ELIF, Loc: loc, Expression: p.collectToNewline()}
	if len(dir.Expression) == 0 {
		return nil, fmt.Errorf("%s:%d: #elif expects an expression", loc.File, loc.Line)
	}
	return dir, nil
}

func (p *DirectiveParser) parseLine(loc SourceLoc) (*Directive, error) {
	p.skipWhitespace()
	if p.atEnd() || p.peek().Type != PP_NUMBER {
		return nil, fmt.Errorf("%s:%d: #line expects a line number", loc.File, loc.Line)
	}
	dir := &Directive{Type: DIR_LINE, Loc: loc, LineNum: parseIntNumber(p.peek().Text)}
	p.advance()
	p.skipWhitespace()
	if !p.atEnd() && p.peek().Type == PP_STRING {
		dir.FileName = unquoteOnce(p.peek().Text)
		p.advance()
	}
	return dir, nil
}

func (p *DirectiveParser) parseLinemarker(loc SourceLoc) (*Directive, error) {
	dir := &Directive{Type: DIR_LINEMARKER, Loc: loc, LineNum: parseIntNumber(p.peek().Text)}
	p.advance()
	p.skipWhitespace()
	if !p.atEnd() && p.peek().Type == PP_STRING {
		dir.FileName = unquoteOnce(p.peek().Text)
		p.advance()
		p.skipWhitespace()
		for !p.atEnd() && p.peek().Type == PP_NUMBER {
			dir.LinemarkerFlags = append(dir.LinemarkerFlags, parseIntNumber(p.peek().Text))
			p.advance()
			p.skipWhitespace()
		}
	}
	return dir, nil
}

func (p *DirectiveParser) collectMessage() string {
	p.skipWhitespace()
	var msg strings.Builder
	for !p.atEnd() && p.peek().Type != PP_NEWLINE {
		msg.WriteString(p.peek().Text)
		p.advance()
	}
	return strings.TrimSpace(msg.String())
}

func (p *DirectiveParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *DirectiveParser) peek() Token {
	if p.atEnd() {
		return Token{Type: PP_EOF}
	}
	return p.tokens[p.pos]
}

func (p *DirectiveParser) advance() {
	if !p.atEnd() {
		p.pos++
	}
}

func (p *DirectiveParser) skipWhitespace() {
	for !p.atEnd() && p.peek().Type == PP_WHITESPACE {
		p.advance()
	}
}

func (p *DirectiveParser) collectToNewline() []Token {
	var tokens []Token
	for !p.atEnd() && p.peek().Type != PP_NEWLINE {
		tokens = append(tokens, p.peek())
		p.advance()
	}
	return trimWhitespace(tokens)
}

func parseIntNumber(s string) int {
	n, _ := strconv.Atoi(strings.TrimRight(s, "lLuU"))
	return n
}

// unquoteOnce strips exactly one layer of surrounding quotes, resolving the
// source ambiguity noted in §9: the original #line implementation does not
// reliably unquote a macro-expanded path, so this reimplementation always
// unquotes exactly once when quotes are present.
func unquoteOnce(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseDirectiveFromTokens parses a directive from tokens following a
// leading '#' already consumed by the caller.
func ParseDirectiveFromTokens(tokens []Token, loc SourceLoc) (*Directive, error) {
	return NewDirectiveParser(tokens).ParseDirective(loc)
}
