package grammar

import (
	"encoding/json"
	"errors"
	"testing"

	verr "github.com/nihei9/tether/error"
	spec "github.com/nihei9/tether/spec/grammar"
)

func TestGrammarBuilderSpecErrors(t *testing.T) {
	withDesc := func(f func(desc *spec.Grammar)) *spec.Grammar {
		desc := dragonBookGrammar()
		f(desc)
		return desc
	}

	tests := []struct {
		caption string
		desc    *spec.Grammar
		errs    []*SemanticError
	}{
		{
			caption: "a grammar needs a name",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Name = ""
			}),
			errs: []*SemanticError{semErrNoGrammarName},
		},
		{
			caption: "a grammar needs productions and terminals",
			desc: &spec.Grammar{
				Name:  "test",
				Start: "s",
			},
			errs: []*SemanticError{semErrNoTerminal, semErrNoProduction},
		},
		{
			caption: "the start symbol must be a non-terminal",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Start = "id"
			}),
			errs: []*SemanticError{semErrUndefinedStart},
		},
		{
			caption: "a symbol name must be snake case",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals[0].Name = "Eq"
			}),
			errs: []*SemanticError{semErrInvalidName},
		},
		{
			caption: "an undefined symbol cannot appear in a production",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Productions[1].Alternatives = append(desc.Productions[1].Alternatives, []string{"num"})
			}),
			errs: []*SemanticError{semErrUndefinedSym},
		},
		{
			caption: "a terminal needs exactly one of a pattern and a literal",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals[0].Pattern = "=="
			}),
			errs: []*SemanticError{semErrNoPattern},
		},
		{
			caption: "terminal names must be unique",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals = append(desc.Terminals, &spec.Terminal{Name: "eq", Literal: "=="})
			}),
			errs: []*SemanticError{semErrDuplicateTerminal},
		},
		{
			caption: "a terminal and a non-terminal cannot share a name",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals = append(desc.Terminals, &spec.Terminal{Name: "r", Literal: "r"})
			}),
			errs: []*SemanticError{semErrDuplicateName},
		},
		{
			caption: "the same alternative cannot be defined twice",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Productions[2].Alternatives = append(desc.Productions[2].Alternatives, []string{"l"})
			}),
			errs: []*SemanticError{semErrDuplicateProduction},
		},
		{
			caption: "a skipped terminal cannot appear in a production",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals[0].Skip = true
			}),
			errs: []*SemanticError{semErrTermCannotBeSkipped},
		},
		{
			caption: "unused symbols are errors",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals = append(desc.Terminals, &spec.Terminal{Name: "num", Pattern: "[0-9]+"})
				desc.Productions = append(desc.Productions, &spec.Production{
					LHS:          "unused",
					Alternatives: [][]string{{"id"}},
				})
			}),
			errs: []*SemanticError{semErrUnusedTerminal, semErrUnusedProduction},
		},
		{
			caption: "an unused skipped terminal is fine",
			desc: withDesc(func(desc *spec.Grammar) {
				desc.Terminals = append(desc.Terminals, &spec.Terminal{Name: "ws", Pattern: "[\\u{0020}]+", Skip: true})
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			b := &GrammarBuilder{
				Desc: tt.desc,
			}
			_, err := b.Build()
			if len(tt.errs) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var specErrs verr.SpecErrors
			if !errors.As(err, &specErrs) {
				t.Fatalf("unexpected error; want: verr.SpecErrors, got: %#v", err)
			}
			if len(specErrs) != len(tt.errs) {
				t.Fatalf("unexpected error count; want: %v, got: %v (%v)", len(tt.errs), len(specErrs), err)
			}
			for i, want := range tt.errs {
				if !errors.Is(specErrs[i], want) {
					t.Fatalf("unexpected error; want: %v, got: %v", want, specErrs[i])
				}
			}
		})
	}
}

func TestCompile(t *testing.T) {
	cg, err := CompileDescription(spec.JSONObject())
	if err != nil {
		t.Fatalf("failed to compile the JSON grammar: %v", err)
	}

	synt := cg.Syntactic
	if synt.StartProduction != productionNumStart.Int() {
		t.Fatalf("unexpected start production; want: %v, got: %v", productionNumStart, synt.StartProduction)
	}
	if synt.Terminals[synt.EOFSymbol] != "<eof>" {
		t.Fatalf("unexpected EOF symbol: %v", synt.Terminals[synt.EOFSymbol])
	}
	if synt.Action.RowCount != synt.StateCount || synt.Action.ColCount != synt.TerminalCount {
		t.Fatalf("unexpected action table size; want: %vx%v, got: %vx%v", synt.StateCount, synt.TerminalCount, synt.Action.RowCount, synt.Action.ColCount)
	}
	if synt.GoTo.RowCount != synt.StateCount || synt.GoTo.ColCount != synt.NonTerminalCount {
		t.Fatalf("unexpected goto table size; want: %vx%v, got: %vx%v", synt.StateCount, synt.NonTerminalCount, synt.GoTo.RowCount, synt.GoTo.ColCount)
	}
	// The initial state shifts l_brace, and the state reached from it shifts r_brace.
	lBrace, rBrace := terminalNum(t, synt, "l_brace"), terminalNum(t, synt, "r_brace")
	act := synt.Action.Lookup(synt.InitialState, lBrace)
	if act >= 0 {
		t.Fatalf("the initial state must shift l_brace; got: %v", act)
	}
	if synt.Action.Lookup(-act, rBrace) == 0 {
		t.Fatalf("the state after l_brace must accept r_brace")
	}
	if synt.Action.Lookup(synt.InitialState, rBrace) != 0 {
		t.Fatalf("the initial state must reject r_brace")
	}

	// Every lexical kind except the nil kind maps to the terminal of the same name.
	kindNames := cg.Lexical.Maleeni.KindNames
	if len(synt.KindToTerminal) != len(kindNames) {
		t.Fatalf("unexpected kind count; want: %v, got: %v", len(kindNames), len(synt.KindToTerminal))
	}
	for kind, term := range synt.KindToTerminal {
		if kind == 0 {
			continue
		}
		if synt.Terminals[term] != kindNames[kind].String() {
			t.Fatalf("kind %v is mapped to the wrong terminal; want: %v, got: %v", kind, kindNames[kind], synt.Terminals[term])
		}
	}

	for term, name := range synt.Terminals {
		wantSkip := 0
		if name == "white_space" {
			wantSkip = 1
		}
		if synt.TerminalSkip[term] != wantSkip {
			t.Fatalf("unexpected skip flag of %v; want: %v, got: %v", name, wantSkip, synt.TerminalSkip[term])
		}
	}

	// The compiled grammar must survive a JSON round trip because the CLI stores it in a file.
	data, err := json.Marshal(cg)
	if err != nil {
		t.Fatal(err)
	}
	var loaded spec.CompiledGrammar
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Syntactic.StateCount != synt.StateCount {
		t.Fatalf("state count changed through JSON; want: %v, got: %v", synt.StateCount, loaded.Syntactic.StateCount)
	}
}

func terminalNum(t *testing.T, synt *spec.SyntacticSpec, name string) int {
	t.Helper()

	for term, n := range synt.Terminals {
		if n == name {
			return term
		}
	}
	t.Fatalf("a terminal was not found: %v", name)
	return 0
}

func TestCompileRejectsConflicts(t *testing.T) {
	tests := []struct {
		caption string
		desc    *spec.Grammar
	}{
		{
			caption: "shift/reduce conflict",
			desc: &spec.Grammar{
				Name:  "test",
				Start: "expr",
				Terminals: []*spec.Terminal{
					{Name: "add", Literal: "+"},
					{Name: "id", Pattern: "[a-z]+"},
				},
				Productions: []*spec.Production{
					{LHS: "expr", Alternatives: [][]string{{"expr", "add", "expr"}, {"id"}}},
				},
			},
		},
		{
			caption: "reduce/reduce conflict",
			desc: &spec.Grammar{
				Name:  "test",
				Start: "s",
				Terminals: []*spec.Terminal{
					{Name: "id", Pattern: "[a-z]+"},
				},
				Productions: []*spec.Production{
					{LHS: "s", Alternatives: [][]string{{"foo"}, {"bar"}}},
					{LHS: "foo", Alternatives: [][]string{{"id"}}},
					{LHS: "bar", Alternatives: [][]string{{"id"}}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := CompileDescription(tt.desc)
			var conflictErr *ConflictError
			if !errors.As(err, &conflictErr) {
				t.Fatalf("unexpected error; want: *ConflictError, got: %#v", err)
			}
			if len(conflictErr.Conflicts) == 0 {
				t.Fatalf("a conflict error must describe at least one conflict")
			}
		})
	}
}

func TestCompileRejectsInvalidPatterns(t *testing.T) {
	desc := dragonBookGrammar()
	desc.Terminals[2].Pattern = "[a-"

	_, err := CompileDescription(desc)
	if err == nil {
		t.Fatalf("an invalid pattern must be rejected")
	}
	var specErrs verr.SpecErrors
	if !errors.As(err, &specErrs) {
		return
	}
	if !errors.Is(specErrs[0], semErrInvalidPattern) {
		t.Fatalf("unexpected error; want: %v, got: %v", semErrInvalidPattern, specErrs[0])
	}
}

func TestGrammarProductions(t *testing.T) {
	gram := buildTestGrammar(t, dragonBookGrammar())
	prods := gram.Productions()
	want := []string{
		"1: <start> → s",
		"2: s → l eq r",
		"3: s → r",
		"4: l → ref r",
		"5: l → id",
		"6: r → l",
	}
	if len(prods) != len(want) {
		t.Fatalf("unexpected production count; want: %v, got: %v", want, prods)
	}
	for i := range want {
		if prods[i] != want[i] {
			t.Fatalf("unexpected production; want: %v, got: %v", want[i], prods[i])
		}
	}
}
