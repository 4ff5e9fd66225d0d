// stream.go implements the input stack (C3): a uniform view over "the next
// preprocessing token", whether it comes fresh off the scanner or was pushed
// back. Outside the tests its one consumer is retokenize in expand.go; the
// expander's rescan and the directive parser work on []Token slices directly.
package cpp

// tokenStream is the minimal pull interface C5/C7 need: the next token, and
// a way to push tokens back onto the front for rescanning.
type tokenStream interface {
	next() Token
	insert(tokens []Token)
	atEOF() bool
}

// lexerStream adapts a *Lexer to tokenStream, with a pushback buffer in
// front of it for tokens that were read and need to be seen again (the
// classic lexer + pushback-stack shape).
type lexerStream struct {
	lex     *Lexer
	pending []Token // LIFO-ish: pending[0] is next, consumed from the front
}

// newLexerStream wraps lex as a tokenStream.
func newLexerStream(lex *Lexer) *lexerStream {
	return &lexerStream{lex: lex}
}

func (s *lexerStream) next() Token {
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok
	}
	return s.lex.NextToken()
}

// insert pushes tokens back onto the front of the stream, to be consumed
// before anything already buffered or read from the lexer.
func (s *lexerStream) insert(tokens []Token) {
	if len(tokens) == 0 {
		return
	}
	s.pending = append(append([]Token{}, tokens...), s.pending...)
}

func (s *lexerStream) atEOF() bool {
	if len(s.pending) > 0 {
		return false
	}
	save := s.lex.pos
	tok := s.lex.NextToken()
	s.lex.pos = save
	return tok.Type == PP_EOF
}

// listStream is an in-memory tokenStream over a fixed slice, giving an
// already materialized []Token the same pull/pushback interface as a live
// lexer. Only the tests construct one.
type listStream struct {
	tokens []Token
	pos    int
}

// newListStream wraps an existing token slice as a tokenStream.
func newListStream(tokens []Token) *listStream {
	return &listStream{tokens: tokens}
}

func (s *listStream) next() Token {
	if s.pos >= len(s.tokens) {
		return Token{Type: PP_EOF}
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

func (s *listStream) insert(tokens []Token) {
	if len(tokens) == 0 {
		return
	}
	rest := append([]Token{}, s.tokens[s.pos:]...)
	s.tokens = append(append(append([]Token{}, s.tokens[:s.pos]...), tokens...), rest...)
}

func (s *listStream) atEOF() bool {
	return s.pos >= len(s.tokens)
}
