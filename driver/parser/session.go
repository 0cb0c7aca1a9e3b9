package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nihei9/tether/driver/lexer"
)

// ErrAccepted is returned when a token is fed after the session accepted the end of input.
var ErrAccepted = errors.New("the session has already accepted the input")

// SyntaxError reports a token that is lexically valid but not allowed at the current point of the
// derivation. When Token.EOF is true, the input ended too early.
type SyntaxError struct {
	Token             *lexer.Token
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Token.EOF {
		fmt.Fprintf(&b, "unexpected end of input")
	} else {
		fmt.Fprintf(&b, "unexpected token %q at %v:%v", e.Token.Text, e.Token.Row+1, e.Token.Col+1)
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

type SessionOption func(s *Session) error

// SemanticAction makes the session call the action set on every committed shift, reduction, and
// acceptance.
func SemanticAction(semAct SemanticActionSet) SessionOption {
	return func(s *Session) error {
		s.semAct = semAct
		return nil
	}
}

// Session is an LALR(1) parser that is driven one token at a time. It never reads input by itself,
// so the caller decides where tokens come from and when the input ends.
type Session struct {
	gram       Grammar
	stateStack []int
	semAct     SemanticActionSet
	accepted   bool
}

func NewSession(gram Grammar, opts ...SessionOption) (*Session, error) {
	s := &Session{
		gram:       gram,
		stateStack: []int{gram.InitialState()},
	}
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Feed consumes one token. It performs every reduction the token triggers and then shifts it. An EOF
// token completes the input instead. Feed is atomic: when it returns an error, the session is left as
// it was before the call. Tokens of skipped terminals are ignored.
func (s *Session) Feed(tok *lexer.Token) error {
	if s.accepted {
		return ErrAccepted
	}

	var term int
	if tok.EOF {
		term = s.gram.EOF()
	} else {
		term = s.gram.KindToTerminal(tok.KindID)
		if term != 0 && s.gram.SkipTerminal(term) {
			return nil
		}
	}

	stack, reduced, accepted, ok := s.simulate(term)
	if !ok {
		return &SyntaxError{
			Token:             tok,
			ExpectedTerminals: s.searchLookahead(s.top()),
		}
	}

	s.stateStack = stack
	s.accepted = accepted
	if s.semAct != nil {
		for _, prod := range reduced {
			s.semAct.Reduce(prod)
		}
		if accepted {
			s.semAct.Accept()
		} else {
			s.semAct.Shift(tok, term)
		}
	}

	return nil
}

// Accepts reports whether the input fed so far is a complete sentence of the grammar. It does not
// change the session.
func (s *Session) Accepts() bool {
	if s.accepted {
		return true
	}
	_, _, accepted, ok := s.simulate(s.gram.EOF())
	return ok && accepted
}

// Accepted reports whether the session has consumed an EOF token successfully.
func (s *Session) Accepted() bool {
	return s.accepted
}

// Expected returns the names of the terminals allowed next.
func (s *Session) Expected() []string {
	return s.searchLookahead(s.top())
}

// simulate runs the action table for term on a copy of the state stack. It returns the resulting
// stack, the reduced productions in order, and whether the start production was reduced.
func (s *Session) simulate(term int) ([]int, []int, bool, bool) {
	if term <= 0 || term >= s.gram.TerminalCount() {
		return nil, nil, false, false
	}

	stack := make([]int, len(s.stateStack), len(s.stateStack)+1)
	copy(stack, s.stateStack)
	var reduced []int
	for {
		top := stack[len(stack)-1]
		act := s.gram.Action(top, term)
		switch {
		case act < 0: // Shift
			return append(stack, act*-1), reduced, false, true
		case act > 0: // Reduce
			prodNum := act
			if prodNum == s.gram.StartProduction() {
				return stack, reduced, true, true
			}
			n := s.gram.AlternativeSymbolCount(prodNum)
			stack = stack[:len(stack)-n]
			nextState := s.gram.GoTo(stack[len(stack)-1], s.gram.LHS(prodNum))
			stack = append(stack, nextState)
			reduced = append(reduced, prodNum)
		default: // Error
			return nil, nil, false, false
		}
	}
}

func (s *Session) top() int {
	return s.stateStack[len(s.stateStack)-1]
}

func (s *Session) searchLookahead(state int) []string {
	kinds := []string{}
	termCount := s.gram.TerminalCount()
	for term := 1; term < termCount; term++ {
		if s.gram.Action(state, term) == 0 {
			continue
		}
		kinds = append(kinds, s.gram.Terminal(term))
	}

	return kinds
}
