package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/nihei9/tether/driver/lexer"
	"github.com/nihei9/tether/grammar"
	spec "github.com/nihei9/tether/spec/grammar"
)

func compileJSON(t *testing.T) *spec.CompiledGrammar {
	t.Helper()

	cg, err := grammar.CompileDescription(spec.JSONObject())
	if err != nil {
		t.Fatalf("failed to compile the JSON grammar: %v", err)
	}
	return cg
}

// feedAll feeds the tokens of src and returns the first error. When eof is true, it also feeds an EOF token.
func feedAll(t *testing.T, cg *spec.CompiledGrammar, s *Session, src string, eof bool) error {
	t.Helper()

	opts := []lexer.LexerOption{}
	if eof {
		opts = append(opts, lexer.Final())
	}
	l, err := lexer.NewLexer(cg.Lexical, strings.NewReader(src), opts...)
	if err != nil {
		t.Fatal(err)
	}
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lexical error: %v", err)
		}
		if tok.EOF && !eof {
			return nil
		}
		err = s.Feed(tok)
		if err != nil {
			return err
		}
		if tok.EOF {
			return nil
		}
	}
}

func TestSession_Feed(t *testing.T) {
	cg := compileJSON(t)
	gram := NewGrammar(cg)

	tests := []struct {
		caption  string
		src      string
		eof      bool
		accepts  bool
		synErr   bool
		errToken string
	}{
		{
			caption: "an empty object",
			src:     `{}`,
			eof:     true,
			accepts: true,
		},
		{
			caption: "a nested object",
			src:     `{"a": [1, 2.5, {"b": null}], "c": true, "d": false}`,
			eof:     true,
			accepts: true,
		},
		{
			caption: "an open object is a valid intermediate state",
			src:     `{"a": [1, 2]`,
			accepts: false,
		},
		{
			caption:  "a closing brace after a comma is a violation",
			src:      `{"a": [1, 2],}`,
			synErr:   true,
			errToken: "}",
		},
		{
			caption:  "a top-level array is a violation",
			src:      `[1]`,
			synErr:   true,
			errToken: "[",
		},
		{
			caption:  "a missing colon is a violation",
			src:      `{"a" 1}`,
			synErr:   true,
			errToken: "1",
		},
		{
			caption:  "the end of an open object is a violation",
			src:      `{"a": 1`,
			eof:      true,
			synErr:   true,
			errToken: "",
		},
		{
			caption:  "tokens after the top-level object are a violation",
			src:      `{} {}`,
			synErr:   true,
			errToken: "{",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			s, err := NewSession(gram)
			if err != nil {
				t.Fatal(err)
			}
			err = feedAll(t, cg, s, tt.src, tt.eof)
			if tt.synErr {
				var synErr *SyntaxError
				if !errors.As(err, &synErr) {
					t.Fatalf("unexpected error; want: *SyntaxError, got: %v", err)
				}
				if synErr.Token.Text != tt.errToken {
					t.Fatalf("unexpected error token; want: %q, got: %q", tt.errToken, synErr.Token.Text)
				}
				if len(synErr.ExpectedTerminals) == 0 {
					t.Fatalf("a syntax error must list the expected terminals")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Accepts() != tt.accepts {
				t.Fatalf("unexpected acceptance; want: %v, got: %v", tt.accepts, s.Accepts())
			}
			if tt.eof && !s.Accepted() {
				t.Fatalf("the session must have accepted the EOF")
			}
		})
	}
}

func TestSession_FeedIsAtomic(t *testing.T) {
	cg := compileJSON(t)
	s, err := NewSession(NewGrammar(cg))
	if err != nil {
		t.Fatal(err)
	}

	err = feedAll(t, cg, s, `{"a": [1, 2],`, false)
	if err != nil {
		t.Fatal(err)
	}
	before := s.Expected()

	err = feedAll(t, cg, s, `}`, false)
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("unexpected error; want: *SyntaxError, got: %v", err)
	}

	// The rejected token left the session as it was, so a pair can still follow the comma.
	after := s.Expected()
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Fatalf("the session changed; want: %v, got: %v", before, after)
	}
	err = feedAll(t, cg, s, `"b": null}`, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Accepted() {
		t.Fatalf("the session must have accepted the input")
	}
}

func TestSession_FeedAfterAccept(t *testing.T) {
	cg := compileJSON(t)
	s, err := NewSession(NewGrammar(cg))
	if err != nil {
		t.Fatal(err)
	}
	err = feedAll(t, cg, s, `{}`, true)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Feed(&lexer.Token{EOF: true})
	if !errors.Is(err, ErrAccepted) {
		t.Fatalf("unexpected error; want: %v, got: %v", ErrAccepted, err)
	}
}

func TestSession_UnknownKind(t *testing.T) {
	cg := compileJSON(t)
	s, err := NewSession(NewGrammar(cg))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Feed(&lexer.Token{KindID: 1000, Text: "?"})
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("unexpected error; want: *SyntaxError, got: %v", err)
	}
}

func TestSyntaxTreeActionSet(t *testing.T) {
	cg := compileJSON(t)
	gram := NewGrammar(cg)
	semAct := NewSyntaxTreeActionSet(gram)
	s, err := NewSession(gram, SemanticAction(semAct))
	if err != nil {
		t.Fatal(err)
	}

	// The rejected comma must not reach the tree.
	err = feedAll(t, cg, s, `{"a": [1, true]`, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := feedAll(t, cg, s, `]`, false); err == nil {
		t.Fatalf("a syntax error must occur")
	}
	err = feedAll(t, cg, s, `}`, true)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	PrintTree(&b, semAct.Tree())
	want := `object
├─ l_brace "{"
├─ members
│  └─ pair
│     ├─ string "\"a\""
│     ├─ colon ":"
│     └─ value
│        └─ array
│           ├─ l_bracket "["
│           ├─ elements
│           │  ├─ elements
│           │  │  └─ value
│           │  │     └─ number "1"
│           │  ├─ comma ","
│           │  └─ value
│           │     └─ kw_true "true"
│           └─ r_bracket "]"
└─ r_brace "}"
`
	if b.String() != want {
		t.Fatalf("unexpected tree; want:\n%v\ngot:\n%v", want, b.String())
	}
}
