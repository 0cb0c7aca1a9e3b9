package symbol

import (
	"fmt"
	"sort"
)

type SymbolNum uint16

func (n SymbolNum) Int() int {
	return int(n)
}

// Symbol packs a kind bit, a start/EOF bit, and a sequential number into 16 bits.
//
//	bit 15   : 1 = terminal, 0 = non-terminal
//	bit 14   : 1 = augmented start symbol (non-terminal) or EOF (terminal)
//	bit 0-13 : number
type Symbol uint16

const (
	maskTerminal   = uint16(0x8000)
	maskStartOrEOF = uint16(0x4000)
	maskNumberPart = uint16(0x3fff)

	SymbolNil   = Symbol(0)
	symbolStart = Symbol(maskStartOrEOF | 0x0001)
	SymbolEOF   = Symbol(maskTerminal | maskStartOrEOF | 0x0001)

	// The names contain `<` and `>` so that they never collide with user-defined names.
	symbolNameEOF   = "<eof>"
	symbolNameStart = "<start>"

	// Number 1 is reserved for the start symbol and the EOF symbol.
	nonTerminalNumMin = SymbolNum(2)
	terminalNumMin    = SymbolNum(2)
	symbolNumMax      = SymbolNum(maskNumberPart)
)

func newSymbol(terminal bool, num SymbolNum) (Symbol, error) {
	if num > symbolNumMax {
		return SymbolNil, fmt.Errorf("a symbol number exceeds the limit; limit: %v, passed: %v", symbolNumMax, num)
	}
	if terminal {
		return Symbol(maskTerminal | uint16(num)), nil
	}
	return Symbol(uint16(num)), nil
}

func (s Symbol) String() string {
	switch {
	case s.IsNil():
		return "nil"
	case s.IsStart():
		return fmt.Sprintf("s%v", s.Num())
	case s.IsEOF():
		return fmt.Sprintf("e%v", s.Num())
	case s.IsTerminal():
		return fmt.Sprintf("t%v", s.Num())
	}
	return fmt.Sprintf("n%v", s.Num())
}

func (s Symbol) Num() SymbolNum {
	return SymbolNum(uint16(s) & maskNumberPart)
}

// Byte returns a big-endian representation used to derive production IDs.
func (s Symbol) Byte() []byte {
	return []byte{byte(uint16(s) >> 8), byte(uint16(s) & 0x00ff)}
}

func (s Symbol) IsNil() bool {
	return s.Num() == 0
}

func (s Symbol) IsStart() bool {
	return !s.IsNil() && !s.IsTerminal() && uint16(s)&maskStartOrEOF > 0
}

func (s Symbol) IsEOF() bool {
	return s.IsTerminal() && uint16(s)&maskStartOrEOF > 0
}

func (s Symbol) IsTerminal() bool {
	return !s.IsNil() && uint16(s)&maskTerminal > 0
}

func (s Symbol) IsNonTerminal() bool {
	return !s.IsNil() && uint16(s)&maskTerminal == 0
}

type SymbolTable struct {
	text2Sym     map[string]Symbol
	sym2Text     map[Symbol]string
	nonTermTexts []string
	termTexts    []string
	nonTermNum   SymbolNum
	termNum      SymbolNum
}

type SymbolTableWriter struct {
	*SymbolTable
}

type SymbolTableReader struct {
	*SymbolTable
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		text2Sym: map[string]Symbol{
			symbolNameEOF:   SymbolEOF,
			symbolNameStart: symbolStart,
		},
		sym2Text: map[Symbol]string{
			SymbolEOF:   symbolNameEOF,
			symbolStart: symbolNameStart,
		},
		termTexts: []string{
			"",            // Nil
			symbolNameEOF, // EOF
		},
		nonTermTexts: []string{
			"",              // Nil
			symbolNameStart, // Start
		},
		nonTermNum: nonTerminalNumMin,
		termNum:    terminalNumMin,
	}
}

func (t *SymbolTable) Writer() *SymbolTableWriter {
	return &SymbolTableWriter{
		SymbolTable: t,
	}
}

func (t *SymbolTable) Reader() *SymbolTableReader {
	return &SymbolTableReader{
		SymbolTable: t,
	}
}

// StartSymbol returns the augmented start symbol S'. The grammar compiler adds the production S' → S.
func (w *SymbolTableWriter) StartSymbol() Symbol {
	return symbolStart
}

func (w *SymbolTableWriter) RegisterNonTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsNonTerminal() {
			return SymbolNil, fmt.Errorf("%v is already registered as a terminal symbol", text)
		}
		return sym, nil
	}
	sym, err := newSymbol(false, w.nonTermNum)
	if err != nil {
		return SymbolNil, err
	}
	w.nonTermNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.nonTermTexts = append(w.nonTermTexts, text)
	return sym, nil
}

func (w *SymbolTableWriter) RegisterTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsTerminal() {
			return SymbolNil, fmt.Errorf("%v is already registered as a non-terminal symbol", text)
		}
		return sym, nil
	}
	sym, err := newSymbol(true, w.termNum)
	if err != nil {
		return SymbolNil, err
	}
	w.termNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.termTexts = append(w.termTexts, text)
	return sym, nil
}

func (r *SymbolTableReader) ToSymbol(text string) (Symbol, bool) {
	sym, ok := r.text2Sym[text]
	return sym, ok
}

func (r *SymbolTableReader) ToText(sym Symbol) (string, bool) {
	text, ok := r.sym2Text[sym]
	return text, ok
}

// TerminalSymbols returns the terminal symbols in ascending order. The result contains the EOF symbol.
func (r *SymbolTableReader) TerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.termNum.Int())
	for sym := range r.sym2Text {
		if !sym.IsTerminal() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}

// TerminalTexts returns the names of the terminal symbols indexed by the symbol number.
func (r *SymbolTableReader) TerminalTexts() ([]string, error) {
	if r.termNum == terminalNumMin {
		return nil, fmt.Errorf("symbol table has no terminals")
	}
	return r.termTexts, nil
}

// NonTerminalSymbols returns the non-terminal symbols in ascending order. The result contains the start symbol.
func (r *SymbolTableReader) NonTerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.nonTermNum.Int())
	for sym := range r.sym2Text {
		if !sym.IsNonTerminal() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}

// NonTerminalTexts returns the names of the non-terminal symbols indexed by the symbol number.
func (r *SymbolTableReader) NonTerminalTexts() ([]string, error) {
	if r.nonTermNum == nonTerminalNumMin {
		return nil, fmt.Errorf("symbol table has no non-terminals")
	}
	return r.nonTermTexts, nil
}
