package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/tether/grammar/symbol"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState
}

// genLR0Automaton builds the canonical collection of LR(0) item sets. States are numbered in the
// order they are found, breadth first, so a grammar always yields the same table.
func genLR0Automaton(prods *productionSet, startSym symbol.Symbol) (*lr0Automaton, error) {
	if !startSym.IsStart() {
		return nil, fmt.Errorf("%v is not the augmented start symbol", startSym)
	}
	startProds, ok := prods.findByLHS(startSym)
	if !ok || len(startProds) == 0 {
		return nil, fmt.Errorf("the start symbol has no production")
	}
	startItem, err := newLR0Item(startProds[0], 0)
	if err != nil {
		return nil, err
	}
	initial, err := newKernel([]*lrItem{startItem})
	if err != nil {
		return nil, err
	}

	automaton := &lr0Automaton{
		initialState: initial.id,
		states:       map[kernelID]*lrState{},
	}
	queue := []*kernel{initial}
	seen := map[kernelID]struct{}{
		initial.id: {},
	}
	for num := stateNumInitial; len(queue) > 0; num = num.next() {
		k := queue[0]
		queue = queue[1:]

		state, succs, err := expandKernel(k, prods)
		if err != nil {
			return nil, err
		}
		state.num = num
		automaton.states[k.id] = state

		for _, succ := range succs {
			if _, ok := seen[succ.id]; ok {
				continue
			}
			seen[succ.id] = struct{}{}
			queue = append(queue, succ)
		}
	}

	return automaton, nil
}

// expandKernel computes the state of k and the kernels of its successors, ordered by the symbols
// leading to them.
func expandKernel(k *kernel, prods *productionSet) (*lrState, []*kernel, error) {
	items, err := genLR0Closure(k, prods)
	if err != nil {
		return nil, nil, err
	}

	state := &lrState{
		kernel:    k,
		next:      map[symbol.Symbol]kernelID{},
		reducible: map[productionID]struct{}{},
	}
	advanced := map[symbol.Symbol][]*lrItem{}
	for _, item := range items {
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, nil, fmt.Errorf("a production was not found: %v", item.prod)
		}
		if item.reducible {
			state.reducible[item.prod] = struct{}{}
			if prod.isEmpty() {
				state.emptyProdItems = append(state.emptyProdItems, item)
			}
			continue
		}
		next, err := newLR0Item(prod, item.dot+1)
		if err != nil {
			return nil, nil, err
		}
		advanced[item.dottedSymbol] = append(advanced[item.dottedSymbol], next)
	}

	syms := make([]symbol.Symbol, 0, len(advanced))
	for sym := range advanced {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	succs := make([]*kernel, 0, len(syms))
	for _, sym := range syms {
		succ, err := newKernel(advanced[sym])
		if err != nil {
			return nil, nil, err
		}
		state.next[sym] = succ.id
		succs = append(succs, succ)
	}

	return state, succs, nil
}

// genLR0Closure returns the kernel items followed by the non-kernel items they imply. Every
// production of a non-terminal enters the closure once, with the dot at its head.
func genLR0Closure(k *kernel, prods *productionSet) ([]*lrItem, error) {
	items := make([]*lrItem, 0, len(k.items))
	items = append(items, k.items...)
	expanded := map[symbol.Symbol]struct{}{}
	for i := 0; i < len(items); i++ {
		sym := items[i].dottedSymbol
		if !sym.IsNonTerminal() {
			continue
		}
		if _, ok := expanded[sym]; ok {
			continue
		}
		expanded[sym] = struct{}{}

		ps, _ := prods.findByLHS(sym)
		for _, prod := range ps {
			item, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}
