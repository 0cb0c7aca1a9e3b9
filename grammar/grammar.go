package grammar

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/nihei9/tether/compressor"
	verr "github.com/nihei9/tether/error"
	"github.com/nihei9/tether/grammar/symbol"
	spec "github.com/nihei9/tether/spec/grammar"
)

// Terminal and non-terminal names become maleeni kind names, so they share maleeni's naming rule.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type Grammar struct {
	name                 string
	lexSpec              *mlspec.LexSpec
	skipLexKinds         []mlspec.LexKindName
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	symbolTable          *symbol.SymbolTable
}

// GrammarBuilder validates a grammar description and turns it into a Grammar. Build reports every
// problem it finds at once as verr.SpecErrors.
type GrammarBuilder struct {
	Desc *spec.Grammar

	errs verr.SpecErrors
}

func (b *GrammarBuilder) addError(cause error, detail string) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     detail,
		SourceName: b.Desc.Name,
	})
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	desc := b.Desc
	if desc.Name == "" {
		b.addError(semErrNoGrammarName, "")
	} else if !namePattern.MatchString(desc.Name) {
		b.addError(semErrInvalidName, fmt.Sprintf("'%v' (a name must match %v)", desc.Name, namePattern))
	}
	if desc.Start == "" {
		b.addError(semErrNoStartSymbol, "")
	}
	if len(desc.Terminals) == 0 {
		b.addError(semErrNoTerminal, "")
	}
	if len(desc.Productions) == 0 {
		b.addError(semErrNoProduction, "")
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	terms, nonTerms := b.checkNames()
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	if _, ok := nonTerms[desc.Start]; !ok {
		b.addError(semErrUndefinedStart, desc.Start)
		return nil, b.errs
	}
	b.checkSymbolUsage(terms, nonTerms)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTab := symbol.NewSymbolTable()
	w := symTab.Writer()
	// Non-terminals are numbered in definition order so that the tables do not depend on map order.
	for _, p := range desc.Productions {
		if _, err := w.RegisterNonTerminalSymbol(p.LHS); err != nil {
			return nil, err
		}
	}

	lexSpec := &mlspec.LexSpec{
		Name: desc.Name,
	}
	var skipKinds []mlspec.LexKindName
	for _, t := range desc.Terminals {
		if _, err := w.RegisterTerminalSymbol(t.Name); err != nil {
			return nil, err
		}

		pattern := t.Pattern
		if t.Literal != "" {
			pattern = mlspec.EscapePattern(t.Literal)
		}
		lexSpec.Entries = append(lexSpec.Entries, &mlspec.LexEntry{
			Kind:    mlspec.LexKindName(t.Name),
			Pattern: mlspec.LexPattern(pattern),
		})
		if t.Skip {
			skipKinds = append(skipKinds, mlspec.LexKindName(t.Name))
		}
	}

	prods, err := b.genProductions(symTab)
	if err != nil {
		return nil, err
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	return &Grammar{
		name:                 desc.Name,
		lexSpec:              lexSpec,
		skipLexKinds:         skipKinds,
		productionSet:        prods,
		augmentedStartSymbol: w.StartSymbol(),
		symbolTable:          symTab,
	}, nil
}

// checkNames returns the sets of terminal and non-terminal names.
func (b *GrammarBuilder) checkNames() (map[string]*spec.Terminal, map[string]*spec.Production) {
	terms := map[string]*spec.Terminal{}
	for _, t := range b.Desc.Terminals {
		if !namePattern.MatchString(t.Name) {
			b.addError(semErrInvalidName, fmt.Sprintf("'%v' (a name must match %v)", t.Name, namePattern))
			continue
		}
		if _, ok := terms[t.Name]; ok {
			b.addError(semErrDuplicateTerminal, t.Name)
			continue
		}
		terms[t.Name] = t

		if (t.Pattern == "") == (t.Literal == "") {
			b.addError(semErrNoPattern, t.Name)
		}
	}

	nonTerms := map[string]*spec.Production{}
	for _, p := range b.Desc.Productions {
		if !namePattern.MatchString(p.LHS) {
			b.addError(semErrInvalidName, fmt.Sprintf("'%v' (a name must match %v)", p.LHS, namePattern))
			continue
		}
		if _, ok := terms[p.LHS]; ok {
			b.addError(semErrDuplicateName, p.LHS)
			continue
		}
		if _, ok := nonTerms[p.LHS]; ok {
			b.addError(semErrDuplicateProduction, fmt.Sprintf("'%v' is defined more than once; merge the alternatives", p.LHS))
			continue
		}
		nonTerms[p.LHS] = p
	}

	return terms, nonTerms
}

// checkSymbolUsage finds undefined symbols and the symbols unreachable from the start symbol.
// A skipped terminal is exempt from the reachability check but must not appear in any production.
func (b *GrammarBuilder) checkSymbolUsage(terms map[string]*spec.Terminal, nonTerms map[string]*spec.Production) {
	for _, p := range b.Desc.Productions {
		for _, alt := range p.Alternatives {
			for _, sym := range alt {
				if _, ok := terms[sym]; ok {
					continue
				}
				if _, ok := nonTerms[sym]; ok {
					continue
				}
				b.addError(semErrUndefinedSym, fmt.Sprintf("'%v' in the production of '%v'", sym, p.LHS))
			}
		}
	}
	if len(b.errs) > 0 {
		return
	}

	used := map[string]struct{}{}
	markUsedSymbols(used, nonTerms, b.Desc.Start)

	for _, t := range b.Desc.Terminals {
		_, ok := used[t.Name]
		switch {
		case t.Skip && ok:
			b.addError(semErrTermCannotBeSkipped, t.Name)
		case !t.Skip && !ok:
			b.addError(semErrUnusedTerminal, t.Name)
		}
	}
	for _, p := range b.Desc.Productions {
		if _, ok := used[p.LHS]; !ok {
			b.addError(semErrUnusedProduction, p.LHS)
		}
	}
}

func markUsedSymbols(used map[string]struct{}, nonTerms map[string]*spec.Production, name string) {
	if _, ok := used[name]; ok {
		return
	}
	used[name] = struct{}{}

	p, ok := nonTerms[name]
	if !ok {
		return
	}
	for _, alt := range p.Alternatives {
		for _, sym := range alt {
			markUsedSymbols(used, nonTerms, sym)
		}
	}
}

func (b *GrammarBuilder) genProductions(symTab *symbol.SymbolTable) (*productionSet, error) {
	r := symTab.Reader()
	prods := newProductionSet()

	startSym, ok := r.ToSymbol(b.Desc.Start)
	if !ok {
		return nil, fmt.Errorf("start symbol not found: %v", b.Desc.Start)
	}
	// S' → S
	startProd, err := newProduction(symTab.Writer().StartSymbol(), []symbol.Symbol{startSym})
	if err != nil {
		return nil, err
	}
	prods.append(startProd)

	for _, p := range b.Desc.Productions {
		lhs, ok := r.ToSymbol(p.LHS)
		if !ok {
			return nil, fmt.Errorf("symbol not found: %v", p.LHS)
		}
		for _, alt := range p.Alternatives {
			rhs := make([]symbol.Symbol, 0, len(alt))
			for _, name := range alt {
				sym, ok := r.ToSymbol(name)
				if !ok {
					return nil, fmt.Errorf("symbol not found: %v", name)
				}
				rhs = append(rhs, sym)
			}
			prod, err := newProduction(lhs, rhs)
			if err != nil {
				return nil, err
			}
			if !prods.append(prod) {
				b.addError(semErrDuplicateProduction, fmt.Sprintf("%v → %v", p.LHS, strings.Join(alt, " ")))
			}
		}
	}

	return prods, nil
}

// Compile builds the lexical DFA with maleeni and the LALR(1) parsing table. A grammar with any
// shift/reduce or reduce/reduce conflict is rejected with *ConflictError.
func Compile(gram *Grammar) (*spec.CompiledGrammar, error) {
	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			errs := make(verr.SpecErrors, 0, len(cErrs))
			for _, cerr := range cErrs {
				var b strings.Builder
				writeCompileError(&b, cerr)
				errs = append(errs, &verr.SpecError{
					Cause:      semErrInvalidPattern,
					Detail:     b.String(),
					SourceName: gram.name,
				})
			}
			return nil, errs
		}
		return nil, err
	}

	symTab := gram.symbolTable.Reader()

	kind2Term := make([]int, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[mlspec.LexKindIDNil] = symbol.SymbolNil.Num().Int()
			continue
		}

		sym, ok := symTab.ToSymbol(k.String())
		if !ok {
			return nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = sym.Num().Int()
	}

	terms, err := symTab.TerminalTexts()
	if err != nil {
		return nil, err
	}
	termSkip := make([]int, len(terms))
	for _, k := range gram.skipLexKinds {
		sym, ok := symTab.ToSymbol(k.String())
		if !ok {
			return nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		termSkip[sym.Num()] = 1
	}

	nonTerms, err := symTab.NonTerminalTexts()
	if err != nil {
		return nil, err
	}

	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		return nil, err
	}

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		return nil, err
	}

	lalr1, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		return nil, err
	}

	b := &lrTableBuilder{
		automaton:    lalr1.lr0Automaton,
		prods:        gram.productionSet,
		termCount:    len(terms),
		nonTermCount: len(nonTerms),
		symTab:       symTab,
	}
	tab, err := b.build()
	if err != nil {
		return nil, err
	}
	if err := b.conflictError(); err != nil {
		return nil, err
	}

	action, err := compressTable(tab.actionTable, tab.terminalCount)
	if err != nil {
		return nil, err
	}
	goTo, err := compressTable(tab.goToTable, tab.nonTerminalCount)
	if err != nil {
		return nil, err
	}

	allProds := gram.productionSet.getAllProductions()
	lhsSyms := make([]int, len(allProds)+1)
	altSymCounts := make([]int, len(allProds)+1)
	for _, p := range allProds {
		lhsSyms[p.num] = p.lhs.Num().Int()
		altSymCounts[p.num] = p.rhsLen
	}

	return &spec.CompiledGrammar{
		Name: gram.name,
		Lexical: &spec.LexicalSpec{
			Lexer:   "maleeni",
			Maleeni: lexSpec,
		},
		Syntactic: &spec.SyntacticSpec{
			Action:                  action,
			GoTo:                    goTo,
			StateCount:              tab.stateCount,
			InitialState:            tab.InitialState.Int(),
			StartProduction:         productionNumStart.Int(),
			LHSSymbols:              lhsSyms,
			AlternativeSymbolCounts: altSymCounts,
			Terminals:               terms,
			TerminalCount:           tab.terminalCount,
			TerminalSkip:            termSkip,
			KindToTerminal:          kind2Term,
			NonTerminals:            nonTerms,
			NonTerminalCount:        tab.nonTerminalCount,
			EOFSymbol:               symbol.SymbolEOF.Num().Int(),
		},
	}, nil
}

// CompileDescription is a shorthand for building and compiling a description.
func CompileDescription(desc *spec.Grammar) (*spec.CompiledGrammar, error) {
	b := &GrammarBuilder{
		Desc: desc,
	}
	gram, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Compile(gram)
}

// Productions returns a human-readable listing of the productions in number order.
func (g *Grammar) Productions() []string {
	r := g.symbolTable.Reader()
	ps := g.productionSet.ordered()
	descs := make([]string, 0, len(ps))
	for _, p := range ps {
		descs = append(descs, fmt.Sprintf("%v: %v", p.num, productionText(r, g.productionSet, p.num)))
	}
	return descs
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}

// compressTable compresses a parsing table. An empty entry means an error in both the action and
// the goto tables.
func compressTable[T ~int | ~uint](entries []T, colCount int) (*spec.CompressedTable, error) {
	es := make([]int, len(entries))
	for i, e := range entries {
		es[i] = int(e)
	}
	tab, err := compressor.NewTable(es, colCount)
	if err != nil {
		return nil, err
	}
	return compressor.Compress(tab, 0), nil
}
