package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoGrammarName       = newSemanticError("a grammar needs a name")
	semErrNoStartSymbol       = newSemanticError("a grammar needs a start symbol")
	semErrNoProduction        = newSemanticError("a grammar needs at least one production")
	semErrNoTerminal          = newSemanticError("a grammar needs at least one terminal")
	semErrUndefinedStart      = newSemanticError("the start symbol is not defined as a non-terminal")
	semErrUndefinedSym        = newSemanticError("undefined symbol")
	semErrInvalidName         = newSemanticError("invalid symbol name")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrDuplicateTerminal   = newSemanticError("duplicate terminal")
	semErrDuplicateName       = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrNoPattern           = newSemanticError("a terminal needs exactly one of a pattern and a literal")
	semErrTermCannotBeSkipped = newSemanticError("a terminal used in productions cannot be skipped")
	semErrUnusedProduction    = newSemanticError("unused production")
	semErrUnusedTerminal      = newSemanticError("unused terminal")
	semErrInvalidPattern      = newSemanticError("invalid pattern")
)
