package main

import (
	"encoding/json"
	"fmt"
	"os"

	spec "github.com/nihei9/tether/spec/grammar"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "compile [<grammar file path>]",
		Short: "Compile a grammar description into a portable grammar",
		Example: `  tether compile grammar.json -o compiled.json
  tether compile json -o json-object.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	var cg *spec.CompiledGrammar
	var err error
	if len(args) > 0 {
		cg, _, err = readGrammar(args[0])
	} else {
		cg, _, err = parseGrammar(os.Stdin, "stdin")
	}
	if err != nil {
		return err
	}

	out, err := json.Marshal(cg)
	if err != nil {
		return err
	}

	if *compileFlags.output == "" {
		fmt.Fprintf(os.Stdout, "%v\n", string(out))
		return nil
	}
	err = os.WriteFile(*compileFlags.output, out, 0644)
	if err != nil {
		return fmt.Errorf("Cannot write the compiled grammar %s: %w", *compileFlags.output, err)
	}
	return nil
}
