package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nihei9/tether/grammar/symbol"
)

// actionEntry encodes an action in one integer.
//
//	< 0 : shift and go to the state -entry
//	> 0 : reduce by the production entry
//	= 0 : error
type actionEntry int

const actionEntryEmpty = actionEntry(0)

func shiftTo(state stateNum) actionEntry {
	return actionEntry(-state.Int())
}

func reduceBy(prod productionNum) actionEntry {
	return actionEntry(prod)
}

// shift returns the destination of a shift action.
func (e actionEntry) shift() (stateNum, bool) {
	if e >= 0 {
		return stateNumInitial, false
	}
	return stateNum(-e), true
}

// reduce returns the production of a reduce action.
func (e actionEntry) reduce() (productionNum, bool) {
	if e <= 0 {
		return productionNumNil, false
	}
	return productionNum(e), true
}

// goToEntry holds the destination state. 0 means an error because no transition enters the
// initial state.
type goToEntry uint

type conflict interface {
	conflict()
	describe(symTab *symbol.SymbolTableReader, prods *productionSet) string
}

type shiftReduceConflict struct {
	state     stateNum
	sym       symbol.Symbol
	nextState stateNum
	prodNum   productionNum
}

func (c *shiftReduceConflict) conflict() {
}

func (c *shiftReduceConflict) describe(symTab *symbol.SymbolTableReader, prods *productionSet) string {
	return fmt.Sprintf("shift/reduce conflict in state %v on %v: shift to state %v or reduce by %v",
		c.state, symbolText(symTab, c.sym), c.nextState, productionText(symTab, prods, c.prodNum))
}

type reduceReduceConflict struct {
	state    stateNum
	sym      symbol.Symbol
	prodNum1 productionNum
	prodNum2 productionNum
}

func (c *reduceReduceConflict) conflict() {
}

func (c *reduceReduceConflict) describe(symTab *symbol.SymbolTableReader, prods *productionSet) string {
	return fmt.Sprintf("reduce/reduce conflict in state %v on %v: reduce by %v or by %v",
		c.state, symbolText(symTab, c.sym), productionText(symTab, prods, c.prodNum1), productionText(symTab, prods, c.prodNum2))
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

func symbolText(symTab *symbol.SymbolTableReader, sym symbol.Symbol) string {
	text, ok := symTab.ToText(sym)
	if !ok {
		return sym.String()
	}
	return text
}

func productionText(symTab *symbol.SymbolTableReader, prods *productionSet, num productionNum) string {
	for _, p := range prods.getAllProductions() {
		if p.num != num {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%v →", symbolText(symTab, p.lhs))
		if p.isEmpty() {
			fmt.Fprintf(&b, " ε")
		}
		for _, sym := range p.rhs {
			fmt.Fprintf(&b, " %v", symbolText(symTab, sym))
		}
		return b.String()
	}
	return fmt.Sprintf("production %v", num)
}

// ConflictError reports that a grammar is not LALR(1). Tether refuses such grammars instead of
// resolving the conflicts silently, because a silently resolved conflict makes the parser reject
// or accept texts the author did not intend.
type ConflictError struct {
	Conflicts []string
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "the grammar is not LALR(1); %v conflict(s) found", len(e.Conflicts))
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, "\n  %v", c)
	}
	return b.String()
}

type ParsingTable struct {
	actionTable      []actionEntry
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	InitialState stateNum
}

func (t *ParsingTable) actionPos(state stateNum, sym symbol.Symbol) int {
	return state.Int()*t.terminalCount + sym.Num().Int()
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol.Symbol, nextState stateNum) {
	t.goToTable[state.Int()*t.nonTerminalCount+sym.Num().Int()] = goToEntry(nextState)
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTableReader

	conflicts []conflict
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	initialState := b.automaton.states[b.automaton.initialState]
	ptab := &ParsingTable{
		actionTable:      make([]actionEntry, len(b.automaton.states)*b.termCount),
		goToTable:        make([]goToEntry, len(b.automaton.states)*b.nonTermCount),
		stateCount:       len(b.automaton.states),
		terminalCount:    b.termCount,
		nonTerminalCount: b.nonTermCount,
		InitialState:     initialState.num,
	}

	// Visit states in number order so that the conflict list is stable.
	states := make([]*lrState, 0, len(b.automaton.states))
	for _, state := range b.automaton.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].num < states[j].num
	})

	for _, state := range states {
		if err := b.writeState(ptab, state); err != nil {
			return nil, err
		}
	}

	return ptab, nil
}

// writeState fills the row of a state. Transitions are written first, then the reductions in
// production order, so the same grammar always reports the same conflicts.
func (b *lrTableBuilder) writeState(tab *ParsingTable, state *lrState) error {
	nextSyms := make([]symbol.Symbol, 0, len(state.next))
	for sym := range state.next {
		nextSyms = append(nextSyms, sym)
	}
	sort.Slice(nextSyms, func(i, j int) bool {
		return nextSyms[i] < nextSyms[j]
	})
	for _, sym := range nextSyms {
		next := b.automaton.states[state.next[sym]].num
		if sym.IsTerminal() {
			b.writeShiftAction(tab, state.num, sym, next)
		} else {
			tab.writeGoTo(state.num, sym, next)
		}
	}

	prods := make([]*production, 0, len(state.reducible))
	for id := range state.reducible {
		prod, ok := b.prods.findByID(id)
		if !ok {
			return fmt.Errorf("reducible production not found: %v", id)
		}
		prods = append(prods, prod)
	}
	sort.Slice(prods, func(i, j int) bool {
		return prods[i].num < prods[j].num
	})
	for _, prod := range prods {
		item, ok := state.findReducibleItem(prod.id)
		if !ok {
			return fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, prod.num)
		}
		syms := make([]symbol.Symbol, 0, len(item.lookAhead.symbols))
		for a := range item.lookAhead.symbols {
			syms = append(syms, a)
		}
		sort.Slice(syms, func(i, j int) bool {
			return syms[i] < syms[j]
		})
		for _, a := range syms {
			b.writeReduceAction(tab, state.num, a, prod.num)
		}
	}
	return nil
}

// writeShiftAction writes a shift action. A reduce action already in the cell is kept and the
// conflict is recorded.
func (b *lrTableBuilder) writeShiftAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, nextState stateNum) {
	pos := tab.actionPos(state, sym)
	if prod, ok := tab.actionTable[pos].reduce(); ok {
		b.conflicts = append(b.conflicts, &shiftReduceConflict{
			state:     state,
			sym:       sym,
			nextState: nextState,
			prodNum:   prod,
		})
		return
	}
	tab.actionTable[pos] = shiftTo(nextState)
}

// writeReduceAction writes a reduce action. Any other action already in the cell is kept and the
// conflict is recorded.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, prod productionNum) {
	pos := tab.actionPos(state, sym)
	act := tab.actionTable[pos]
	if act == actionEntryEmpty {
		tab.actionTable[pos] = reduceBy(prod)
		return
	}
	if next, ok := act.shift(); ok {
		b.conflicts = append(b.conflicts, &shiftReduceConflict{
			state:     state,
			sym:       sym,
			nextState: next,
			prodNum:   prod,
		})
		return
	}
	if p, _ := act.reduce(); p != prod {
		b.conflicts = append(b.conflicts, &reduceReduceConflict{
			state:    state,
			sym:      sym,
			prodNum1: p,
			prodNum2: prod,
		})
	}
}

func (b *lrTableBuilder) conflictError() error {
	if len(b.conflicts) == 0 {
		return nil
	}
	descs := make([]string, len(b.conflicts))
	for i, c := range b.conflicts {
		descs[i] = c.describe(b.symTab, b.prods)
	}
	return &ConflictError{
		Conflicts: descs,
	}
}
