// Package diagnostic defines the shared Diagnostic type emitted by every
// verifier pass (IVE, capability/IFC, structural) and its JSON export,
// schema-validated with santhosh-tekuri/jsonschema (spec §6.4).
package diagnostic

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/ast"
)

// Severity is how seriously a Diagnostic's condition should be taken.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is one finding from a verifier pass, identified by a stable
// code (E001, W003, F002, V001, ...) so tooling can filter or suppress by
// code rather than by message text.
type Diagnostic struct {
	Severity     Severity
	Code         string
	Message      string
	ContractName string
	Pos          ast.Position
}

func New(sev Severity, code, contractName string, pos ast.Position, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity:     sev,
		Code:         code,
		Message:      fmt.Sprintf(format, args...),
		ContractName: contractName,
		Pos:          pos,
	}
}

// String renders a diagnostic as "file:line:col: severity CODE: message [contract]".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s [%s]", d.Pos.String(), d.Severity, d.Code, d.Message, d.ContractName)
}

// Bag accumulates diagnostics from one or more verifier passes, in the
// order they were reported.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) All() []Diagnostic { return b.items }

// HasErrors reports whether any accumulated diagnostic is SeverityError.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (b *Bag) Merge(other *Bag) {
	b.items = append(b.items, other.items...)
}
