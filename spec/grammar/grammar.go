package grammar

import mlspec "github.com/nihei9/maleeni/spec"

// CompiledGrammar is the portable form of a grammar. A driver needs nothing else to lex and parse
// a text, and the whole structure can be saved as JSON.
type CompiledGrammar struct {
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical"`
	Syntactic *SyntacticSpec `json:"syntactic"`
}

type LexicalSpec struct {
	Lexer   string                  `json:"lexer"`
	Maleeni *mlspec.CompiledLexSpec `json:"maleeni"`
}

type SyntacticSpec struct {
	Action                  *CompressedTable `json:"action"`
	GoTo                    *CompressedTable `json:"goto"`
	StateCount              int              `json:"state_count"`
	InitialState            int              `json:"initial_state"`
	StartProduction         int              `json:"start_production"`
	LHSSymbols              []int            `json:"lhs_symbols"`
	AlternativeSymbolCounts []int            `json:"alternative_symbol_counts"`
	Terminals               []string         `json:"terminals"`
	TerminalCount           int              `json:"terminal_count"`
	TerminalSkip            []int            `json:"terminal_skip"`
	KindToTerminal          []int            `json:"kind_to_terminal"`
	NonTerminals            []string         `json:"non_terminals"`
	NonTerminalCount        int              `json:"non_terminal_count"`
	EOFSymbol               int              `json:"eof_symbol"`
}

// CompressedTable is a parsing table whose identical rows are merged and whose distinct rows are
// overlapped in one array. Bounds holds the row that owns each slot of Entries.
type CompressedTable struct {
	RowCount     int   `json:"row_count"`
	ColCount     int   `json:"col_count"`
	Empty        int   `json:"empty"`
	RowNums      []int `json:"row_nums"`
	Displacement []int `json:"displacement"`
	Entries      []int `json:"entries"`
	Bounds       []int `json:"bounds"`
}

// Lookup returns the entry at [row, col] of the original table.
func (t *CompressedTable) Lookup(row, col int) int {
	rowNum := t.RowNums[row]
	i := t.Displacement[rowNum] + col
	if i >= len(t.Bounds) || t.Bounds[i] != rowNum {
		return t.Empty
	}
	return t.Entries[i]
}
