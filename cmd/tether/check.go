package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nihei9/tether/driver/lexer"
	"github.com/nihei9/tether/driver/parser"
	spec "github.com/nihei9/tether/spec/grammar"
	"github.com/spf13/cobra"
)

var checkFlags = struct {
	source *string
	tree   *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "check <grammar file path>",
		Short: "Check whether a text is a sentence of a grammar",
		Long: `check reads a whole text and prints one of the following verdicts:
- accepted: the text is a sentence of the grammar.
- incomplete: the text is a prefix of a sentence.
- violation: no continuation can make the text a sentence.`,
		Example: `  echo '{"a": [1, 2]}' | tether check json --tree`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCheck,
	}
	checkFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	checkFlags.tree = cmd.Flags().Bool("tree", false, "print the syntax tree of an accepted text")
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cg, _, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	src := os.Stdin
	if *checkFlags.source != "" {
		f, err := os.Open(*checkFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *checkFlags.source, err)
		}
		defer f.Close()
		src = f
	}
	text, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	v, tree, err := checkText(cg, string(text), *checkFlags.tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, v)
	if tree != nil {
		parser.PrintTree(os.Stdout, tree)
	}
	return nil
}

type verdictKind int

const (
	verdictAccepted verdictKind = iota
	verdictIncomplete
	verdictViolation
)

type verdict struct {
	kind   verdictKind
	detail string
}

func (v verdict) String() string {
	var s string
	switch v.kind {
	case verdictAccepted:
		return "accepted"
	case verdictIncomplete:
		s = "incomplete"
	default:
		s = "violation"
	}
	if v.detail == "" {
		return s
	}
	return fmt.Sprintf("%v: %v", s, v.detail)
}

// checkText classifies a whole text. When tree is true, it also returns the syntax tree of an accepted
// text.
func checkText(cg *spec.CompiledGrammar, text string, tree bool) (verdict, *parser.Node, error) {
	gram := parser.NewGrammar(cg)
	var opts []parser.SessionOption
	var treeAct *parser.SyntaxTreeActionSet
	if tree {
		treeAct = parser.NewSyntaxTreeActionSet(gram)
		opts = append(opts, parser.SemanticAction(treeAct))
	}
	sess, err := parser.NewSession(gram, opts...)
	if err != nil {
		return verdict{}, nil, err
	}

	l, err := lexer.NewLexer(cg.Lexical, strings.NewReader(text), lexer.Final())
	if err != nil {
		return verdict{}, nil, err
	}
	for {
		tok, err := l.Next()
		if err != nil {
			var incompleteErr *lexer.IncompleteTokenError
			if errors.As(err, &incompleteErr) {
				return verdict{kind: verdictIncomplete, detail: err.Error()}, nil, nil
			}
			var unexpectedErr *lexer.UnexpectedCharacterError
			if errors.As(err, &unexpectedErr) {
				return verdict{
					kind:   verdictViolation,
					detail: fmt.Sprintf("%v:%v: unexpected character %q", unexpectedErr.Row+1, unexpectedErr.Col+1, unexpectedErr.Text),
				}, nil, nil
			}
			return verdict{}, nil, err
		}

		err = sess.Feed(tok)
		if err != nil {
			var synErr *parser.SyntaxError
			if !errors.As(err, &synErr) {
				return verdict{}, nil, err
			}
			if tok.EOF {
				return verdict{kind: verdictIncomplete, detail: synErr.Error()}, nil, nil
			}
			return verdict{kind: verdictViolation, detail: synErr.Error()}, nil, nil
		}
		if tok.EOF {
			break
		}
	}

	if treeAct != nil {
		return verdict{kind: verdictAccepted}, treeAct.Tree(), nil
	}
	return verdict{kind: verdictAccepted}, nil, nil
}
