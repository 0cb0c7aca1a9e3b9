package grammar

import (
	"testing"

	"github.com/nihei9/tether/grammar/symbol"
)

func TestGenLALR1Automaton(t *testing.T) {
	gram := buildTestGrammar(t, dragonBookGrammar())

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		t.Fatalf("failed to create a LR0 automaton: %v", err)
	}

	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		t.Fatalf("failed to create a FIRST set: %v", err)
	}

	automaton, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		t.Fatalf("failed to create a LALR1 automaton: %v", err)
	}

	genSym := newTestSymbolGenerator(t, gram.symbolTable.Reader())
	genProd := newTestProductionGenerator(t, genSym)
	genLR0Item := newTestLR0ItemGenerator(t, genProd)
	eof := symbol.SymbolEOF

	expectedKernels := [][]*lrItem{
		{
			withLookAhead(genLR0Item("<start>", 0, "s"), eof),
		},
		{
			withLookAhead(genLR0Item("<start>", 1, "s"), eof),
		},
		{
			withLookAhead(genLR0Item("s", 1, "l", "eq", "r"), eof),
			withLookAhead(genLR0Item("r", 1, "l"), eof),
		},
		{
			withLookAhead(genLR0Item("s", 1, "r"), eof),
		},
		{
			withLookAhead(genLR0Item("l", 1, "ref", "r"), genSym("eq"), eof),
		},
		{
			withLookAhead(genLR0Item("l", 1, "id"), genSym("eq"), eof),
		},
		{
			withLookAhead(genLR0Item("s", 2, "l", "eq", "r"), eof),
		},
		{
			withLookAhead(genLR0Item("l", 2, "ref", "r"), genSym("eq"), eof),
		},
		{
			withLookAhead(genLR0Item("r", 1, "l"), genSym("eq"), eof),
		},
		{
			withLookAhead(genLR0Item("s", 3, "l", "eq", "r"), eof),
		},
	}

	if len(automaton.states) != len(expectedKernels) {
		t.Fatalf("unexpected state count; want: %v, got: %v", len(expectedKernels), len(automaton.states))
	}

	for i, items := range expectedKernels {
		k, err := newKernel(items)
		if err != nil {
			t.Fatalf("failed to create a kernel: %v", err)
		}
		state, ok := automaton.states[k.id]
		if !ok {
			t.Fatalf("#%v: a kernel was not found", i)
		}
		if i == 0 && state.id != automaton.initialState {
			t.Fatalf("the initial state is mismatched")
		}
		for _, eItem := range items {
			aItem, ok := state.findItem(eItem.id)
			if !ok {
				t.Fatalf("#%v: an item was not found: %v", i, eItem.id)
			}
			if len(aItem.lookAhead.symbols) != len(eItem.lookAhead.symbols) {
				t.Fatalf("#%v: unexpected look-ahead symbols; want: %v, got: %v", i, eItem.lookAhead.symbols, aItem.lookAhead.symbols)
			}
			for a := range eItem.lookAhead.symbols {
				if _, ok := aItem.lookAhead.symbols[a]; !ok {
					t.Fatalf("#%v: look-ahead symbol %v was not found; got: %v", i, a, aItem.lookAhead.symbols)
				}
			}
		}
	}
}

func TestGenLALR1AutomatonWithEmptyProductions(t *testing.T) {
	gram := buildTestGrammar(t, emptyProductionGrammar())

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		t.Fatal(err)
	}
	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		t.Fatal(err)
	}
	automaton, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		t.Fatal(err)
	}

	genSym := newTestSymbolGenerator(t, gram.symbolTable.Reader())
	genProd := newTestProductionGenerator(t, genSym)

	// In the initial state, foo → ε is reducible on b and on EOF, and never on a.
	iniState := automaton.states[automaton.initialState]
	item, ok := iniState.findReducibleItem(genProd("foo").id)
	if !ok {
		t.Fatalf("the empty production of foo is not reducible in the initial state")
	}
	want := []symbol.Symbol{genSym("b"), symbol.SymbolEOF}
	if len(item.lookAhead.symbols) != len(want) {
		t.Fatalf("unexpected look-ahead symbols; want: %v, got: %v", want, item.lookAhead.symbols)
	}
	for _, a := range want {
		if _, ok := item.lookAhead.symbols[a]; !ok {
			t.Fatalf("look-ahead symbol %v was not found; got: %v", a, item.lookAhead.symbols)
		}
	}
}
