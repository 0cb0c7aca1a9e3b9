package grammar

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"

	"github.com/nihei9/tether/grammar/symbol"
)

type lrItemID [32]byte

func (id lrItemID) String() string {
	return fmt.Sprintf("%x", id.num())
}

func (id lrItemID) num() uint32 {
	return binary.LittleEndian.Uint32(id[:])
}

type lookAhead struct {
	symbols map[symbol.Symbol]struct{}

	// When propagation is true, the item passes its look-ahead symbols on to the items it leads to.
	propagation bool
}

func (la *lookAhead) add(syms ...symbol.Symbol) bool {
	if la.symbols == nil {
		la.symbols = map[symbol.Symbol]struct{}{}
	}
	added := false
	for _, a := range syms {
		if _, ok := la.symbols[a]; ok {
			continue
		}
		la.symbols[a] = struct{}{}
		added = true
	}
	return added
}

func (la *lookAhead) merge(src lookAhead) bool {
	added := false
	for a := range src.symbols {
		if la.add(a) {
			added = true
		}
	}
	return added
}

type lrItem struct {
	id   lrItemID
	prod productionID

	// pair → string colon value
	//
	// Dot | Dotted Symbol | Item
	// ----+---------------+-------------------------------
	// 0   | string        | pair →・string colon value
	// 1   | colon         | pair → string・colon value
	// 2   | value         | pair → string colon・value
	// 3   | Nil           | pair → string colon value・
	dot          int
	dottedSymbol symbol.Symbol

	// initial is true only for S' →・S.
	initial bool

	reducible bool
	kernel    bool

	// lookAhead holds the terminals that allow the item to be reduced.
	lookAhead lookAhead
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}

	if dot < 0 || dot > prod.rhsLen {
		return nil, fmt.Errorf("dot must be between 0 and %v", prod.rhsLen)
	}

	var id lrItemID
	{
		b := make([]byte, 0, len(prod.id)+8)
		b = append(b, prod.id[:]...)
		b = binary.LittleEndian.AppendUint64(b, uint64(dot))
		id = sha256.Sum256(b)
	}

	dottedSymbol := symbol.SymbolNil
	if dot < prod.rhsLen {
		dottedSymbol = prod.rhs[dot]
	}

	initial := prod.lhs.IsStart() && dot == 0

	return &lrItem{
		id:           id,
		prod:         prod.id,
		dot:          dot,
		dottedSymbol: dottedSymbol,
		initial:      initial,
		reducible:    dot == prod.rhsLen,
		kernel:       initial || dot > 0,
	}, nil
}

type kernelID [32]byte

func (id kernelID) String() string {
	return fmt.Sprintf("%x", binary.LittleEndian.Uint32(id[:]))
}

type kernel struct {
	id    kernelID
	items []*lrItem
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel need at least one item")
	}

	m := map[lrItemID]*lrItem{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v", item.id)
		}
		m[item.id] = item
	}
	sortedItems := make([]*lrItem, 0, len(m))
	for _, item := range m {
		sortedItems = append(sortedItems, item)
	}
	sort.Slice(sortedItems, func(i, j int) bool {
		return sortedItems[i].id.num() < sortedItems[j].id.num()
	})

	b := make([]byte, 0, len(sortedItems)*len(lrItemID{}))
	for _, item := range sortedItems {
		b = append(b, item.id[:]...)
	}

	return &kernel{
		id:    sha256.Sum256(b),
		items: sortedItems,
	}, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num       stateNum
	next      map[symbol.Symbol]kernelID
	reducible map[productionID]struct{}

	// emptyProdItems holds the reducible items of empty productions (p →・ε). They are not kernel
	// items, so the state keeps them separately to carry their look-ahead symbols.
	emptyProdItems []*lrItem
}

// findItem looks an item up among the kernel items and the empty production items.
func (s *lrState) findItem(id lrItemID) (*lrItem, bool) {
	for _, item := range s.items {
		if item.id == id {
			return item, true
		}
	}
	for _, item := range s.emptyProdItems {
		if item.id == id {
			return item, true
		}
	}
	return nil, false
}

// findReducibleItem returns the item through which the state reduces prod.
func (s *lrState) findReducibleItem(prod productionID) (*lrItem, bool) {
	for _, item := range s.items {
		if item.prod == prod && item.reducible {
			return item, true
		}
	}
	for _, item := range s.emptyProdItems {
		if item.prod == prod {
			return item, true
		}
	}
	return nil, false
}
