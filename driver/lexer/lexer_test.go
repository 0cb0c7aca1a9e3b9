package lexer

import (
	"errors"
	"strings"
	"testing"

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

type expectedToken struct {
	kind  string
	text  string
	start int
}

func TestLexer_Next(t *testing.T) {
	cg := compileJSON(t)

	tests := []struct {
		caption    string
		src        string
		final      bool
		tokens     []expectedToken
		incomplete int
		unexpected int
	}{
		{
			caption: "clean input resolves into whole tokens",
			src:     `{"a": 1}`,
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
				{kind: "string", text: `"a"`, start: 1},
				{kind: "colon", text: ":", start: 4},
				{kind: "white_space", text: " ", start: 5},
				{kind: "number", text: "1", start: 6},
				{kind: "r_brace", text: "}", start: 7},
			},
			incomplete: -1,
			unexpected: -1,
		},
		{
			caption: "an unterminated string is incomplete",
			src:     `{"ab`,
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
			},
			incomplete: 1,
			unexpected: -1,
		},
		{
			caption: "a number touching the end is held back",
			src:     `{"a": 12`,
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
				{kind: "string", text: `"a"`, start: 1},
				{kind: "colon", text: ":", start: 4},
				{kind: "white_space", text: " ", start: 5},
			},
			incomplete: 6,
			unexpected: -1,
		},
		{
			caption:    "a number followed by a dot is held back",
			src:        `1.`,
			incomplete: 0,
			unexpected: -1,
		},
		{
			caption: "trailing white space is held back",
			src:     "{} ",
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
				{kind: "r_brace", text: "}", start: 1},
			},
			incomplete: 2,
			unexpected: -1,
		},
		{
			caption: "a keyword cannot be extended",
			src:     "true",
			tokens: []expectedToken{
				{kind: "kw_true", text: "true", start: 0},
			},
			incomplete: -1,
			unexpected: -1,
		},
		{
			caption:    "a keyword prefix is incomplete",
			src:        "fal",
			incomplete: 0,
			unexpected: -1,
		},
		{
			caption: "an unmatched character is unexpected",
			src:     "{@",
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
			},
			incomplete: -1,
			unexpected: 1,
		},
		{
			caption: "final input emits extendable tokens",
			src:     "12 ",
			final:   true,
			tokens: []expectedToken{
				{kind: "number", text: "12", start: 0},
				{kind: "white_space", text: " ", start: 2},
			},
			incomplete: -1,
			unexpected: -1,
		},
		{
			caption: "final input emits the longest accepted prefix",
			src:     "1.",
			final:   true,
			tokens: []expectedToken{
				{kind: "number", text: "1", start: 0},
			},
			incomplete: -1,
			unexpected: 1,
		},
		{
			caption:    "final input still reports a cut-off string",
			src:        `"ab`,
			final:      true,
			incomplete: 0,
			unexpected: -1,
		},
		{
			caption: "multi-byte characters",
			src:     `{"é": "日本"}`,
			tokens: []expectedToken{
				{kind: "l_brace", text: "{", start: 0},
				{kind: "string", text: `"é"`, start: 1},
				{kind: "colon", text: ":", start: 5},
				{kind: "white_space", text: " ", start: 6},
				{kind: "string", text: `"日本"`, start: 7},
				{kind: "r_brace", text: "}", start: 15},
			},
			incomplete: -1,
			unexpected: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			var opts []LexerOption
			if tt.final {
				opts = append(opts, Final())
			}
			l, err := NewLexer(cg.Lexical, strings.NewReader(tt.src), opts...)
			if err != nil {
				t.Fatal(err)
			}

			var toks []*Token
			var lexErr error
			for {
				tok, err := l.Next()
				if err != nil {
					lexErr = err
					break
				}
				if tok.EOF {
					if tok.Start != len(tt.src) {
						t.Fatalf("unexpected EOF offset; want: %v, got: %v", len(tt.src), tok.Start)
					}
					break
				}
				toks = append(toks, tok)
			}

			if len(toks) != len(tt.tokens) {
				t.Fatalf("unexpected token count; want: %v, got: %v", len(tt.tokens), len(toks))
			}
			for i, want := range tt.tokens {
				testToken(t, toks[i], want)
			}

			var incompleteErr *IncompleteTokenError
			var unexpectedErr *UnexpectedCharacterError
			switch {
			case tt.incomplete >= 0:
				if !errors.As(lexErr, &incompleteErr) {
					t.Fatalf("unexpected error; want: *IncompleteTokenError, got: %v", lexErr)
				}
				if incompleteErr.Offset != tt.incomplete {
					t.Fatalf("unexpected offset; want: %v, got: %v", tt.incomplete, incompleteErr.Offset)
				}
			case tt.unexpected >= 0:
				if !errors.As(lexErr, &unexpectedErr) {
					t.Fatalf("unexpected error; want: *UnexpectedCharacterError, got: %v", lexErr)
				}
				if unexpectedErr.Offset != tt.unexpected {
					t.Fatalf("unexpected offset; want: %v, got: %v", tt.unexpected, unexpectedErr.Offset)
				}
			default:
				if lexErr != nil {
					t.Fatalf("unexpected error: %v", lexErr)
				}
			}

			// The error is sticky.
			if lexErr != nil {
				if _, err := l.Next(); err != lexErr {
					t.Fatalf("an error must be returned again; want: %v, got: %v", lexErr, err)
				}
			}
		})
	}
}

func TestLexer_Position(t *testing.T) {
	cg := compileJSON(t)

	toks, err := Tokenize(cg.Lexical, "{\n  \"é\": true}", Final())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		text string
		row  int
		col  int
	}{
		{text: "{", row: 0, col: 0},
		{text: "\n  ", row: 0, col: 1},
		{text: `"é"`, row: 1, col: 2},
		{text: ":", row: 1, col: 5},
		{text: " ", row: 1, col: 6},
		{text: "true", row: 1, col: 7},
		{text: "}", row: 1, col: 11},
	}
	if len(toks) != len(tests) {
		t.Fatalf("unexpected token count; want: %v, got: %v", len(tests), len(toks))
	}
	for i, tt := range tests {
		tok := toks[i]
		if tok.Text != tt.text || tok.Row != tt.row || tok.Col != tt.col {
			t.Fatalf("unexpected token; want: %q (%v, %v), got: %q (%v, %v)", tt.text, tt.row, tt.col, tok.Text, tok.Row, tok.Col)
		}
	}
}

func TestTokenize(t *testing.T) {
	cg := compileJSON(t)

	toks, err := Tokenize(cg.Lexical, `{"a": [1, 2`)
	var incompleteErr *IncompleteTokenError
	if !errors.As(err, &incompleteErr) {
		t.Fatalf("unexpected error; want: *IncompleteTokenError, got: %v", err)
	}
	if incompleteErr.Offset != 10 {
		t.Fatalf("unexpected offset; want: 10, got: %v", incompleteErr.Offset)
	}
	if len(toks) == 0 || toks[len(toks)-1].End != 10 {
		t.Fatalf("the tokens before the incomplete one must end at its offset: %v", toks)
	}
}

func testToken(t *testing.T, actual *Token, expected expectedToken) {
	t.Helper()

	if actual.KindName != expected.kind || actual.Text != expected.text || actual.Start != expected.start {
		t.Fatalf("unexpected token; want: %v %q at %v, got: %v %q at %v", expected.kind, expected.text, expected.start, actual.KindName, actual.Text, actual.Start)
	}
	if actual.End != actual.Start+len(actual.Text) {
		t.Fatalf("the end offset is mismatched; want: %v, got: %v", actual.Start+len(actual.Text), actual.End)
	}
}
