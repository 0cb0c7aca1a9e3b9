package grammar

// Grammar is a declarative description of a language. It is the input of the grammar compiler.
//
//	{
//	  "name": "list",
//	  "start": "list",
//	  "terminals": [
//	    {"name": "l_bracket", "literal": "["},
//	    {"name": "id", "pattern": "[a-z]+"},
//	    {"name": "ws", "pattern": "[\\u{0020}]+", "skip": true}
//	  ],
//	  "productions": [
//	    {"lhs": "list", "alternatives": [["l_bracket", "id"]]}
//	  ]
//	}
type Grammar struct {
	Name        string        `json:"name"`
	Start       string        `json:"start"`
	Terminals   []*Terminal   `json:"terminals"`
	Productions []*Production `json:"productions"`
}

// Terminal defines a lexical kind. Either Pattern or Literal must be set. A literal is matched as is,
// and a pattern is a maleeni regular expression.
type Terminal struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern,omitempty"`
	Literal string `json:"literal,omitempty"`

	// Skip makes the parser ignore tokens of this kind. A skipped terminal cannot appear in productions.
	Skip bool `json:"skip,omitempty"`
}

// Production defines the alternatives of one non-terminal. An empty alternative derives the empty string.
type Production struct {
	LHS          string     `json:"lhs"`
	Alternatives [][]string `json:"alternatives"`
}
