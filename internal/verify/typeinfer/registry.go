// Package typeinfer implements the static type-inference pass (spec §4.11):
// a local, gradual check over each contract's signature and body that emits
// T001-T005 warnings ahead of the VM's own authoritative dynamic check at
// contract entry and return.
package typeinfer

import "github.com/covenant-lang/covenant/internal/ast"

// builtinTypeNames is the closed set of type names the checker understands
// without consulting the registry's declared-type table.
var builtinTypeNames = map[string]bool{
	"Int": true, "Float": true, "Number": true, "String": true,
	"Bool": true, "List": true, "Any": true, "Null": true,
}

// Signature is the registry entry for one contract: its parameter names and
// declared type strings (BaseName form), and its declared return type
// string (empty if the contract declares none).
type Signature struct {
	ParamNames []string
	ParamTypes []string
	ReturnType string
}

// Registry indexes contract signatures and declared type names for the
// T001-T005 checks.
type Registry struct {
	contracts map[string]Signature
	declared  map[string]bool // type names introduced by a `type` block
}

// BuildRegistry constructs a Registry from every contract and type
// definition in program.
func BuildRegistry(program *ast.Program) *Registry {
	r := &Registry{contracts: map[string]Signature{}, declared: map[string]bool{}}
	for _, td := range program.Types {
		r.declared[td.Name] = true
	}
	for _, c := range program.Contracts {
		sig := Signature{}
		for _, p := range c.Params {
			sig.ParamNames = append(sig.ParamNames, p.Name)
			sig.ParamTypes = append(sig.ParamTypes, ast.BaseName(p.Type))
		}
		if c.ReturnType != nil {
			sig.ReturnType = ast.BaseName(c.ReturnType)
		}
		r.contracts[c.Name] = sig
	}
	return r
}

// Lookup returns the Signature for a contract name and whether it is known.
func (r *Registry) Lookup(name string) (Signature, bool) {
	sig, ok := r.contracts[name]
	return sig, ok
}

// KnownTypeName reports whether name is a builtin type name or a
// program-declared type name (§4.4's declared-type universe for T005).
func (r *Registry) KnownTypeName(name string) bool {
	if name == "" {
		return true
	}
	if len(name) >= 2 && name[0] == '[' && name[len(name)-1] == ']' {
		return r.KnownTypeName(name[1 : len(name)-1])
	}
	return builtinTypeNames[name] || r.declared[name]
}
