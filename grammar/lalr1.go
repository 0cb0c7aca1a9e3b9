package grammar

import (
	"fmt"

	"github.com/nihei9/tether/grammar/symbol"
)

type lalr1Automaton struct {
	*lr0Automaton
}

// itemRef locates an item of the automaton.
type itemRef struct {
	state kernelID
	item  lrItemID
}

// genLALR1Automaton attaches look-ahead symbols to the items of an LR(0) automaton. A look-ahead
// symbol is either generated spontaneously inside a closure or propagated from a kernel item
// (Dragon Book, Algorithm 4.62/4.63).
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, first *firstSet) (*lalr1Automaton, error) {
	automaton := &lalr1Automaton{
		lr0Automaton: lr0,
	}

	// [S' →・S, $]
	automaton.states[automaton.initialState].items[0].lookAhead.add(symbol.SymbolEOF)

	links := map[itemRef][]itemRef{}
	for _, state := range automaton.states {
		for _, kItem := range state.items {
			dests, err := automaton.spread(state, kItem, prods, first)
			if err != nil {
				return nil, err
			}
			if len(dests) > 0 {
				links[itemRef{state: state.id, item: kItem.id}] = dests
			}
		}
	}

	if err := automaton.propagate(links); err != nil {
		return nil, fmt.Errorf("failed to propagate look-ahead symbols: %w", err)
	}
	return automaton, nil
}

// spread writes the spontaneous look-ahead symbols found in the closure of kItem and returns the
// items kItem propagates its own look-ahead symbols to.
func (a *lalr1Automaton) spread(state *lrState, kItem *lrItem, prods *productionSet, first *firstSet) ([]itemRef, error) {
	items, err := genLALR1Closure(kItem, prods, first)
	if err != nil {
		return nil, err
	}

	var dests []itemRef
	for _, item := range items {
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("a production was not found: %v", item.prod)
		}

		var ref itemRef
		if item.reducible {
			// Only the items of empty productions are reduced in the state they are derived in.
			if !prod.isEmpty() {
				continue
			}
			ref = itemRef{state: state.id, item: item.id}
		} else {
			next, err := newLR0Item(prod, item.dot+1)
			if err != nil {
				return nil, err
			}
			ref = itemRef{state: state.next[item.dottedSymbol], item: next.id}
		}

		target, err := a.item(ref)
		if err != nil {
			return nil, err
		}
		target.lookAhead.merge(item.lookAhead)
		if item.lookAhead.propagation {
			dests = append(dests, ref)
		}
	}
	return dests, nil
}

// genLALR1Closure computes CLOSURE({[src, #]}), where # stands for whatever look-ahead symbols src
// receives later. The items carrying # have propagation set.
func genLALR1Closure(src *lrItem, prods *productionSet, first *firstSet) ([]*lrItem, error) {
	root := *src
	root.lookAhead = lookAhead{
		propagation: true,
	}

	type closureKey struct {
		item lrItemID
		sym  symbol.Symbol
		prop bool
	}
	seen := map[closureKey]struct{}{}
	items := []*lrItem{&root}
	push := func(prod *production, sym symbol.Symbol, prop bool) error {
		item, err := newLR0Item(prod, 0)
		if err != nil {
			return err
		}
		key := closureKey{item: item.id, sym: sym, prop: prop}
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		if prop {
			item.lookAhead.propagation = true
		} else {
			item.lookAhead.add(sym)
		}
		items = append(items, item)
		return nil
	}

	for i := 0; i < len(items); i++ {
		item := items[i]
		if !item.dottedSymbol.IsNonTerminal() {
			continue
		}
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("a production was not found: %v", item.prod)
		}

		// [A → α・B β, a] derives [B → ・γ, b] for each b in FIRST(β a).
		rest, err := first.find(prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		syms := make([]symbol.Symbol, 0, len(rest.symbols)+len(item.lookAhead.symbols))
		for sym := range rest.symbols {
			syms = append(syms, sym)
		}
		prop := false
		if rest.empty {
			for sym := range item.lookAhead.symbols {
				syms = append(syms, sym)
			}
			prop = item.lookAhead.propagation
		}

		ps, _ := prods.findByLHS(item.dottedSymbol)
		for _, p := range ps {
			for _, sym := range syms {
				if err := push(p, sym, false); err != nil {
					return nil, err
				}
			}
			if prop {
				if err := push(p, symbol.SymbolNil, true); err != nil {
					return nil, err
				}
			}
		}
	}

	return items, nil
}

// propagate copies look-ahead symbols along links until nothing changes.
func (a *lalr1Automaton) propagate(links map[itemRef][]itemRef) error {
	for changed := true; changed; {
		changed = false
		for src, dests := range links {
			srcItem, err := a.item(src)
			if err != nil {
				return err
			}
			for _, dest := range dests {
				destItem, err := a.item(dest)
				if err != nil {
					return err
				}
				if destItem.lookAhead.merge(srcItem.lookAhead) {
					changed = true
				}
			}
		}
	}
	return nil
}

func (a *lalr1Automaton) item(ref itemRef) (*lrItem, error) {
	state, ok := a.states[ref.state]
	if !ok {
		return nil, fmt.Errorf("a state was not found: %v", ref.state)
	}
	item, ok := state.findItem(ref.item)
	if !ok {
		return nil, fmt.Errorf("an item was not found: %v", ref.item)
	}
	return item, nil
}
