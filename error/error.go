package error

import (
	"fmt"
	"strings"
)

// SpecError is a problem found in a grammar description.
type SpecError struct {
	Cause      error
	Detail     string
	SourceName string
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v: ", e.SourceName)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}

	return b.String()
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}

// SpecErrors collects every problem found while building a grammar so that a user can fix them at once.
type SpecErrors []*SpecError

func (e SpecErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%v", e[0])
	for _, err := range e[1:] {
		fmt.Fprintf(&b, "\n%v", err)
	}

	return b.String()
}
