package grammar

import (
	"testing"

	"github.com/nihei9/tether/grammar/symbol"
	spec "github.com/nihei9/tether/spec/grammar"
)

func buildTestGrammar(t *testing.T, desc *spec.Grammar) *Grammar {
	t.Helper()

	b := &GrammarBuilder{
		Desc: desc,
	}
	gram, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build a grammar: %v", err)
	}
	return gram
}

type testSymbolGenerator func(text string) symbol.Symbol

func newTestSymbolGenerator(t *testing.T, symTab *symbol.SymbolTableReader) testSymbolGenerator {
	return func(text string) symbol.Symbol {
		t.Helper()

		sym, ok := symTab.ToSymbol(text)
		if !ok {
			t.Fatalf("symbol was not found: %v", text)
		}
		return sym
	}
}

type testProductionGenerator func(lhs string, rhs ...string) *production

func newTestProductionGenerator(t *testing.T, genSym testSymbolGenerator) testProductionGenerator {
	return func(lhs string, rhs ...string) *production {
		t.Helper()

		rhsSym := []symbol.Symbol{}
		for _, text := range rhs {
			rhsSym = append(rhsSym, genSym(text))
		}
		prod, err := newProduction(genSym(lhs), rhsSym)
		if err != nil {
			t.Fatalf("failed to create a production: %v", err)
		}

		return prod
	}
}

type testLR0ItemGenerator func(lhs string, dot int, rhs ...string) *lrItem

func newTestLR0ItemGenerator(t *testing.T, genProd testProductionGenerator) testLR0ItemGenerator {
	return func(lhs string, dot int, rhs ...string) *lrItem {
		t.Helper()

		prod := genProd(lhs, rhs...)
		item, err := newLR0Item(prod, dot)
		if err != nil {
			t.Fatalf("failed to create a LR0 item: %v", err)
		}

		return item
	}
}

func withLookAhead(item *lrItem, lookAhead ...symbol.Symbol) *lrItem {
	item.lookAhead.add(lookAhead...)
	return item
}

// dragonBookGrammar is LALR(1) but not SLR(1).
//
//	s → l eq r | r
//	l → ref r | id
//	r → l
func dragonBookGrammar() *spec.Grammar {
	return &spec.Grammar{
		Name:  "test",
		Start: "s",
		Terminals: []*spec.Terminal{
			{Name: "eq", Literal: "="},
			{Name: "ref", Literal: "*"},
			{Name: "id", Pattern: "[A-Za-z0-9_]+"},
		},
		Productions: []*spec.Production{
			{LHS: "s", Alternatives: [][]string{{"l", "eq", "r"}, {"r"}}},
			{LHS: "l", Alternatives: [][]string{{"ref", "r"}, {"id"}}},
			{LHS: "r", Alternatives: [][]string{{"l"}}},
		},
	}
}

//	s   → foo bar
//	foo → a | ε
//	bar → b | ε
func emptyProductionGrammar() *spec.Grammar {
	return &spec.Grammar{
		Name:  "test",
		Start: "s",
		Terminals: []*spec.Terminal{
			{Name: "a", Literal: "a"},
			{Name: "b", Literal: "b"},
		},
		Productions: []*spec.Production{
			{LHS: "s", Alternatives: [][]string{{"foo", "bar"}}},
			{LHS: "foo", Alternatives: [][]string{{"a"}, {}}},
			{LHS: "bar", Alternatives: [][]string{{"b"}, {}}},
		},
	}
}
