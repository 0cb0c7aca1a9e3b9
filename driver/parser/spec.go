package parser

import spec "github.com/nihei9/tether/spec/grammar"

// Grammar is the view of a compiled grammar a Session needs.
type Grammar interface {
	InitialState() int
	StartProduction() int
	Action(state int, terminal int) int
	GoTo(state int, lhs int) int
	AlternativeSymbolCount(prod int) int
	TerminalCount() int
	SkipTerminal(terminal int) bool
	KindToTerminal(kind int) int
	LHS(prod int) int
	EOF() int
	Terminal(terminal int) string
	NonTerminal(nonTerminal int) string
}

type grammarImpl struct {
	g *spec.CompiledGrammar
}

func NewGrammar(g *spec.CompiledGrammar) *grammarImpl {
	return &grammarImpl{
		g: g,
	}
}

func (g *grammarImpl) InitialState() int {
	return g.g.Syntactic.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.Syntactic.StartProduction
}

func (g *grammarImpl) Action(state int, terminal int) int {
	return g.g.Syntactic.Action.Lookup(state, terminal)
}

func (g *grammarImpl) GoTo(state int, lhs int) int {
	return g.g.Syntactic.GoTo.Lookup(state, lhs)
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return g.g.Syntactic.AlternativeSymbolCounts[prod]
}

func (g *grammarImpl) TerminalCount() int {
	return g.g.Syntactic.TerminalCount
}

func (g *grammarImpl) SkipTerminal(terminal int) bool {
	return g.g.Syntactic.TerminalSkip[terminal] == 1
}

// KindToTerminal returns 0, the nil terminal, for a kind the grammar does not know.
func (g *grammarImpl) KindToTerminal(kind int) int {
	if kind < 0 || kind >= len(g.g.Syntactic.KindToTerminal) {
		return 0
	}
	return g.g.Syntactic.KindToTerminal[kind]
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.Syntactic.LHSSymbols[prod]
}

func (g *grammarImpl) EOF() int {
	return g.g.Syntactic.EOFSymbol
}

func (g *grammarImpl) Terminal(terminal int) string {
	return g.g.Syntactic.Terminals[terminal]
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.Syntactic.NonTerminals[nonTerminal]
}
