package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	verr "github.com/nihei9/tether/error"
	"github.com/nihei9/tether/grammar"
	spec "github.com/nihei9/tether/spec/grammar"
)

// builtinJSON names the built-in JSON-object grammar wherever a grammar file is expected.
const builtinJSON = "json"

// readGrammar reads a grammar description or a compiled grammar, telling them apart by their content.
// The description is nil when the file holds a compiled grammar.
func readGrammar(path string) (*spec.CompiledGrammar, *spec.Grammar, error) {
	if path == builtinJSON {
		desc := spec.JSONObject()
		cg, err := grammar.CompileDescription(desc)
		if err != nil {
			return nil, nil, err
		}
		return cg, desc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	return parseGrammar(f, path)
}

func parseGrammar(r io.Reader, sourceName string) (*spec.CompiledGrammar, *spec.Grammar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	var probe struct {
		Syntactic json.RawMessage `json:"syntactic"`
	}
	err = json.Unmarshal(data, &probe)
	if err != nil {
		return nil, nil, fmt.Errorf("%s is not a JSON grammar: %w", sourceName, err)
	}
	if len(probe.Syntactic) > 0 {
		cg := &spec.CompiledGrammar{}
		err := json.Unmarshal(data, cg)
		if err != nil {
			return nil, nil, err
		}
		if cg.Lexical == nil || cg.Lexical.Maleeni == nil || cg.Syntactic == nil || cg.Syntactic.Action == nil || cg.Syntactic.GoTo == nil {
			return nil, nil, fmt.Errorf("%s is an incomplete compiled grammar", sourceName)
		}
		return cg, nil, nil
	}

	desc := &spec.Grammar{}
	err = json.Unmarshal(data, desc)
	if err != nil {
		return nil, nil, err
	}
	cg, err := grammar.CompileDescription(desc)
	if err != nil {
		var specErrs verr.SpecErrors
		if errors.As(err, &specErrs) {
			for _, e := range specErrs {
				e.SourceName = sourceName
			}
		}
		return nil, nil, err
	}
	return cg, desc, nil
}
