package parser

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nihei9/tether/driver/lexer"
)

// SemanticActionSet is a set of semantic actions a session calls. A session calls them only for
// tokens it commits, never for a rejected token.
type SemanticActionSet interface {
	// Shift runs when the session shifts a token. `terminal` is the terminal number of the token.
	Shift(tok *lexer.Token, terminal int)

	// Reduce runs when the session reduces an RHS of a production to its LHS.
	Reduce(prodNum int)

	// Accept runs when the session accepts the end of input.
	Accept()
}

var _ SemanticActionSet = &SyntaxTreeActionSet{}

type NodeType int

const (
	NodeTypeTerminal    = NodeType(1)
	NodeTypeNonTerminal = NodeType(2)
)

// Node is a node of a concrete syntax tree.
type Node struct {
	Type     NodeType `json:"type"`
	KindName string   `json:"kind_name"`
	Text     string   `json:"text,omitempty"`
	Row      int      `json:"row,omitempty"`
	Col      int      `json:"col,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// SyntaxTreeActionSet constructs a concrete syntax tree.
type SyntaxTreeActionSet struct {
	gram     Grammar
	semStack []*Node
	tree     *Node
}

func NewSyntaxTreeActionSet(gram Grammar) *SyntaxTreeActionSet {
	return &SyntaxTreeActionSet{
		gram: gram,
	}
}

func (a *SyntaxTreeActionSet) Shift(tok *lexer.Token, terminal int) {
	a.semStack = append(a.semStack, &Node{
		Type:     NodeTypeTerminal,
		KindName: a.gram.Terminal(terminal),
		Text:     tok.Text,
		Row:      tok.Row,
		Col:      tok.Col,
	})
}

func (a *SyntaxTreeActionSet) Reduce(prodNum int) {
	// When an alternative is empty, `n` will be 0, and `handle` will be empty.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := make([]*Node, n)
	copy(handle, a.semStack[len(a.semStack)-n:])
	a.semStack = a.semStack[:len(a.semStack)-n]

	a.semStack = append(a.semStack, &Node{
		Type:     NodeTypeNonTerminal,
		KindName: a.gram.NonTerminal(a.gram.LHS(prodNum)),
		Children: handle,
	})
}

func (a *SyntaxTreeActionSet) Accept() {
	if len(a.semStack) == 0 {
		return
	}
	a.tree = a.semStack[len(a.semStack)-1]
	a.semStack = a.semStack[:len(a.semStack)-1]
}

// Tree returns the syntax tree after the session accepted the input. Otherwise it returns nil.
func (a *SyntaxTreeActionSet) Tree() *Node {
	return a.tree
}

// PrintTree prints a syntax tree whose root is `node`.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	if node.Type == NodeTypeTerminal {
		fmt.Fprintf(w, "%v%v %v\n", ruledLine, node.KindName, strconv.Quote(node.Text))
		return
	}

	fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)
	num := len(node.Children)
	for i, child := range node.Children {
		line := "└─ "
		prefix := "   "
		if i < num-1 {
			line = "├─ "
			prefix = "│  "
		}
		printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}
