package grammar

import (
	"fmt"

	"github.com/nihei9/tether/grammar/symbol"
)

// firstEntry is FIRST of a symbol sequence. empty reports whether the sequence derives ε.
type firstEntry struct {
	symbols map[symbol.Symbol]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[symbol.Symbol]struct{}{},
	}
}

// union adds the terminals of src to e and reports whether e grew. The ε flag of src is not copied.
func (e *firstEntry) union(src *firstEntry) bool {
	n := len(e.symbols)
	for sym := range src.symbols {
		e.symbols[sym] = struct{}{}
	}
	return len(e.symbols) > n
}

// firstSet holds FIRST of every non-terminal.
type firstSet struct {
	set map[symbol.Symbol]*firstEntry
}

// find returns FIRST of the right-hand side of prod from position head on.
func (fst *firstSet) find(prod *production, head int) (*firstEntry, error) {
	if head < 0 {
		return nil, fmt.Errorf("head must be >=0: %v", head)
	}
	if head >= prod.rhsLen {
		e := newFirstEntry()
		e.empty = true
		return e, nil
	}
	return fst.ofSequence(prod.rhs[head:])
}

func (fst *firstSet) ofSequence(syms []symbol.Symbol) (*firstEntry, error) {
	entry := newFirstEntry()
	for _, sym := range syms {
		if sym.IsTerminal() {
			entry.symbols[sym] = struct{}{}
			return entry, nil
		}
		e, ok := fst.set[sym]
		if !ok {
			return nil, fmt.Errorf("FIRST of %v is undefined", sym)
		}
		entry.union(e)
		if !e.empty {
			return entry, nil
		}
	}
	entry.empty = true
	return entry, nil
}

// genFirstSet grows the entries of all non-terminals until a whole pass over the productions
// changes nothing.
func genFirstSet(prods *productionSet) (*firstSet, error) {
	all := prods.getAllProductions()
	fst := &firstSet{
		set: map[symbol.Symbol]*firstEntry{},
	}
	for _, prod := range all {
		if _, ok := fst.set[prod.lhs]; !ok {
			fst.set[prod.lhs] = newFirstEntry()
		}
	}

	for changed := true; changed; {
		changed = false
		for _, prod := range all {
			rhs, err := fst.ofSequence(prod.rhs[:prod.rhsLen])
			if err != nil {
				return nil, err
			}
			acc := fst.set[prod.lhs]
			if acc.union(rhs) {
				changed = true
			}
			if rhs.empty && !acc.empty {
				acc.empty = true
				changed = true
			}
		}
	}
	return fst, nil
}
