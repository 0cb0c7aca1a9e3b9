package main

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/nihei9/tether/grammar"
	spec "github.com/nihei9/tether/spec/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show <grammar file path>",
		Short:   "Print a grammar in a readable format",
		Example: `  tether show json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cg, desc, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	return writeGrammar(os.Stdout, cg, desc)
}

type grammarView struct {
	Name        string
	Terminals   []string
	Productions []string
	StateCount  int
	Tables      []string
}

const grammarTemplate = `# {{ .Name }}

# Terminals

{{ range .Terminals -}}
{{ . }}
{{ end }}
# Productions

{{ range .Productions -}}
{{ . }}
{{ end }}
# States

{{ .StateCount }} states
{{ range .Tables -}}
{{ . }}
{{ end -}}
`

func writeGrammar(w io.Writer, cg *spec.CompiledGrammar, desc *spec.Grammar) error {
	synt := cg.Syntactic
	view := &grammarView{
		Name:       cg.Name,
		StateCount: synt.StateCount,
		Tables: []string{
			describeTable("action", synt.Action),
			describeTable("goto", synt.GoTo),
		},
	}

	// Terminal 0 is the nil terminal.
	for term := 1; term < synt.TerminalCount; term++ {
		name := synt.Terminals[term]
		if synt.TerminalSkip[term] == 1 {
			name += " (skip)"
		}
		view.Terminals = append(view.Terminals, fmt.Sprintf("%4v %v", term, name))
	}

	if desc != nil {
		b := &grammar.GrammarBuilder{
			Desc: desc,
		}
		gram, err := b.Build()
		if err != nil {
			return err
		}
		view.Productions = gram.Productions()
	} else {
		// A compiled grammar keeps only the length of each alternative.
		for prod := 1; prod < len(synt.LHSSymbols); prod++ {
			n := synt.AlternativeSymbolCounts[prod]
			view.Productions = append(view.Productions, fmt.Sprintf("%v: %v → (%v %v)", prod, synt.NonTerminals[synt.LHSSymbols[prod]], n, plural(n, "symbol")))
		}
	}

	tmpl, err := template.New("").Parse(grammarTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, view)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func describeTable(name string, tab *spec.CompressedTable) string {
	return fmt.Sprintf("%v table: %v entries (%vx%v uncompressed)", name, len(tab.Entries), tab.RowCount, tab.ColCount)
}
