package lexer

import (
	"fmt"
	"io"
	"strings"

	mldriver "github.com/nihei9/maleeni/driver"
	spec "github.com/nihei9/tether/spec/grammar"
)

// dfa is the part of maleeni's driver.LexSpec the lexer walks directly. The lexer drives the DFA
// itself instead of using maleeni's Lexer because it has to tell a token cut off by the end of the
// input from an invalid one.
type dfa interface {
	InitialMode() mldriver.ModeID
	InitialState(mode mldriver.ModeID) mldriver.StateID
	NextState(mode mldriver.ModeID, state mldriver.StateID, v int) (mldriver.StateID, bool)
	Accept(mode mldriver.ModeID, state mldriver.StateID) (mldriver.ModeKindID, bool)
	KindIDAndName(mode mldriver.ModeID, modeKind mldriver.ModeKindID) (mldriver.KindID, string)
}

// Token represents a token.
type Token struct {
	// KindID is an ID of a lexical kind. Index the grammar's KindToTerminal with it to get a terminal.
	KindID int

	KindName string

	// Text is the matched lexeme.
	Text string

	// Start and End are byte offsets of the lexeme within the source. End is exclusive.
	Start int
	End   int

	// Row and Col are the 0-origin position of the lexeme. Col is counted in code points.
	Row int
	Col int

	// EOF is true only for the token returned at the end of the input.
	EOF bool
}

// IncompleteTokenError reports that the input ends inside a token, or right after a token that more
// input could still extend. The lexer recognized every token before Offset.
type IncompleteTokenError struct {
	Offset int
}

func (e *IncompleteTokenError) Error() string {
	return fmt.Sprintf("incomplete token at offset %v", e.Offset)
}

// UnexpectedCharacterError reports that no terminal matches the input starting at Offset.
type UnexpectedCharacterError struct {
	Offset int
	Row    int
	Col    int
	Text   string
}

func (e *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("unexpected character at offset %v: %q", e.Offset, e.Text)
}

type LexerOption func(l *Lexer) error

// Final tells the lexer that no more input will follow. A token touching the end of the input is
// then emitted even if more characters could extend it.
func Final() LexerOption {
	return func(l *Lexer) error {
		l.final = true
		return nil
	}
}

type lexerState struct {
	srcPtr int
	row    int
	col    int
}

type Lexer struct {
	spec              dfa
	mode              mldriver.ModeID
	src               []byte
	state             lexerState
	lastAcceptedState lexerState
	final             bool
	err               error
}

// NewLexer returns a new lexer.
func NewLexer(lspec *spec.LexicalSpec, src io.Reader, opts ...LexerOption) (*Lexer, error) {
	if lspec == nil || lspec.Maleeni == nil {
		return nil, fmt.Errorf("a lexical specification is missing")
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return newLexer(mldriver.NewLexSpec(lspec.Maleeni), b, opts...)
}

func newLexer(d dfa, src []byte, opts ...LexerOption) (*Lexer, error) {
	l := &Lexer{
		spec: d,
		mode: d.InitialMode(),
		src:  src,
	}
	for _, opt := range opts {
		err := opt(l)
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Next returns a next token. At the end of the input it returns a token whose EOF is true. Once Next
// returns an error, it keeps returning the same error.
func (l *Lexer) Next() (*Token, error) {
	if l.err != nil {
		return nil, l.err
	}
	tok, err := l.next()
	if err != nil {
		l.err = err
		return nil, err
	}
	return tok, nil
}

func (l *Lexer) next() (*Token, error) {
	mode := l.mode
	state := l.spec.InitialState(mode)
	start := l.state
	var tok *Token
	for {
		v, eof := l.read()
		if eof {
			if l.state.srcPtr == start.srcPtr {
				return &Token{
					Start: start.srcPtr,
					End:   start.srcPtr,
					Row:   start.row,
					Col:   start.col,
					EOF:   true,
				}, nil
			}
			// When the DFA can still move, the characters read so far may be a prefix of a longer lexeme.
			live := l.live(mode, state)
			if live && !l.final {
				l.state = start
				return nil, &IncompleteTokenError{
					Offset: start.srcPtr,
				}
			}
			if tok != nil {
				l.revert()
				return tok, nil
			}
			if live {
				l.state = start
				return nil, &IncompleteTokenError{
					Offset: start.srcPtr,
				}
			}
			return nil, l.unexpected(start)
		}
		nextState, ok := l.spec.NextState(mode, state, int(v))
		if !ok {
			if tok != nil {
				l.revert()
				return tok, nil
			}
			return nil, l.unexpected(start)
		}
		state = nextState
		if modeKindID, ok := l.spec.Accept(mode, state); ok {
			kindID, kindName := l.spec.KindIDAndName(mode, modeKindID)
			tok = &Token{
				KindID:   kindID.Int(),
				KindName: kindName,
				Text:     string(l.src[start.srcPtr:l.state.srcPtr]),
				Start:    start.srcPtr,
				End:      l.state.srcPtr,
				Row:      start.row,
				Col:      start.col,
			}
			l.accept()
		}
	}
}

func (l *Lexer) unexpected(start lexerState) error {
	end := start.srcPtr + 1
	for end < len(l.src) && l.src[end]&0xc0 == 0x80 {
		end++
	}
	l.state = start
	return &UnexpectedCharacterError{
		Offset: start.srcPtr,
		Row:    start.row,
		Col:    start.col,
		Text:   string(l.src[start.srcPtr:end]),
	}
}

// live reports whether the state has at least one outgoing transition.
func (l *Lexer) live(mode mldriver.ModeID, state mldriver.StateID) bool {
	for v := 0; v <= 0xff; v++ {
		if _, ok := l.spec.NextState(mode, state, v); ok {
			return true
		}
	}
	return false
}

func (l *Lexer) read() (byte, bool) {
	if l.state.srcPtr >= len(l.src) {
		return 0, true
	}

	b := l.src[l.state.srcPtr]
	l.state.srcPtr++

	// LF ends a line. Columns are counted in code points, so only the first byte of a UTF-8
	// sequence advances the column.
	if b < 128 {
		if b == 0x0A {
			l.state.row++
			l.state.col = 0
		} else {
			l.state.col++
		}
	} else if b>>5 == 6 || b>>4 == 14 || b>>3 == 30 {
		l.state.col++
	}

	return b, false
}

// accept saves the current state.
func (l *Lexer) accept() {
	l.lastAcceptedState = l.state
}

// revert reverts the lexer state to the last accepted state.
func (l *Lexer) revert() {
	l.state = l.lastAcceptedState
}

// Tokenize lexes src to the end. It returns the tokens recognized before the first error together
// with that error. The EOF token is not included.
func Tokenize(lspec *spec.LexicalSpec, src string, opts ...LexerOption) ([]*Token, error) {
	l, err := NewLexer(lspec, strings.NewReader(src), opts...)
	if err != nil {
		return nil, err
	}
	var toks []*Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		if tok.EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}
