package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Keep generated text inside a grammar",
	Long: `tether provides the following features:
- Compiles a grammar description into a portable LALR(1) grammar.
- Checks whether a text is a sentence of a grammar.
- Streams text from a language model and repairs it whenever it breaks the grammar.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
