// Package verify orchestrates the four static-analysis passes (spec
// §4.4-§4.6) over a parsed program and returns their combined diagnostics.
package verify

import (
	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
	"github.com/covenant-lang/covenant/internal/fingerprint"
	"github.com/covenant-lang/covenant/internal/verify/capability"
	"github.com/covenant-lang/covenant/internal/verify/contract"
	"github.com/covenant-lang/covenant/internal/verify/ive"
	"github.com/covenant-lang/covenant/internal/verify/typeinfer"
)

// Bridge is the externally-supplied stdlib module registry (§6.2), needed
// by the IVE checker's touches_nothing_else allowed-roots rule and the
// W009 unresolved-use check.
type Bridge interface {
	ive.Bridge
}

// Program runs the IVE checker, the capability/IFC verifier, the static
// type-inference pass, and the contract verifier against every contract in
// program, returning every diagnostic produced (in deterministic
// per-contract, per-pass order).
func Program(program *ast.Program, bridge Bridge) *diagnostic.Bag {
	bag := &diagnostic.Bag{}
	reg := capability.BuildRegistry(program)
	types := typeinfer.BuildRegistry(program)

	ive.CheckUseDecls(bag, program, bridge)

	for i := range program.Contracts {
		c := &program.Contracts[i]
		fp := fingerprint.Compute(c)
		ive.Check(bag, program, c, fp, bridge)
		capability.Check(bag, program, c, reg, fp)
		typeinfer.Check(bag, program, c, types)
		contract.Check(bag, program, c)
	}
	return bag
}
