// Package fingerprint computes the deterministic behavioral summary of a
// contract body that feeds the intent hash (spec §4.3/§3.7).
package fingerprint

import (
	"sort"
	"strconv"

	"github.com/covenant-lang/covenant/internal/ast"
)

// Fingerprint is a deterministic, order-independent summary of what a
// contract body actually does, used to detect semantic drift between the
// declared intent and the implementation (§3.7).
type Fingerprint struct {
	Reads            []string
	Mutations        []string
	Calls            []string
	EmittedEvents    []string
	OldReferences    []string
	CapabilityChecks []string
	Operators        []string
	Literals         []string
	HasBranching     bool
	HasLooping       bool
	HasRecursion     bool
	MaxNestingDepth  int
	ReturnCount      int
}

// Compute walks contract's body and on_failure block together and produces
// its Fingerprint. Every slice field is sorted and deduplicated, so statement
// order and repetition do not change it; identifiers are recorded by name,
// so renaming a local does.
func Compute(contract *ast.ContractDef) Fingerprint {
	fp := Fingerprint{}
	reads := map[string]bool{}
	mutations := map[string]bool{}
	calls := map[string]bool{}
	events := map[string]bool{}
	oldRefs := map[string]bool{}
	capChecks := map[string]bool{}
	operators := map[string]bool{}
	literals := map[string]bool{}

	visit := func(s ast.Stmt, depth int) {
		if depth > fp.MaxNestingDepth {
			fp.MaxNestingDepth = depth
		}
		switch v := s.(type) {
		case ast.AssignStmt:
			mutations[v.Target.Dotted()] = true
			collectExpr(v.Value, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
		case ast.ReturnStmt:
			fp.ReturnCount++
			if v.Value != nil {
				collectExpr(v.Value, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
			}
		case ast.EmitStmt:
			events[v.Event] = true
			for _, a := range v.Args {
				collectExpr(a, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
			}
		case ast.ExprStmt:
			collectExpr(v.Expr, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
		case ast.IfStmt:
			fp.HasBranching = true
			collectExpr(v.Cond, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
		case ast.ForInStmt:
			fp.HasLooping = true
			collectExpr(v.Iter, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
		case ast.WhileStmt:
			fp.HasLooping = true
			collectExpr(v.Cond, reads, calls, events, oldRefs, capChecks, operators, literals, contract.Name, &fp)
		case ast.TryStmt:
			// reserved syntax; walked for completeness, contributes no
			// branching/looping semantics of its own
		}
	}
	ast.WalkStmts(contract.Body, 1, visit)
	ast.WalkStmts(contract.OnFailure, 1, visit)

	fp.Reads = sortedKeys(reads)
	fp.Mutations = sortedKeys(mutations)
	fp.Calls = sortedKeys(calls)
	fp.EmittedEvents = sortedKeys(events)
	fp.OldReferences = sortedKeys(oldRefs)
	fp.CapabilityChecks = sortedKeys(capChecks)
	fp.Operators = sortedKeys(operators)
	fp.Literals = sortedKeys(literals)
	return fp
}

func collectExpr(e ast.Expr, reads, calls, events, oldRefs, capChecks, operators, literals map[string]bool,
	selfName string, fp *Fingerprint) {
	ast.WalkExpr(e, func(sub ast.Expr) {
		switch v := sub.(type) {
		case ast.Identifier:
			reads[v.Name] = true
		case ast.FieldAccessExpr:
			if p := ast.DottedPath(v); p != "" {
				reads[p] = true
			}
		case ast.BinaryExpr:
			operators[v.Op] = true
		case ast.UnaryExpr:
			operators[v.Op] = true
		case ast.CallExpr:
			calls[v.Callee] = true
			if v.Callee == selfName {
				fp.HasRecursion = true
			}
		case ast.MethodCallExpr:
			if p := ast.DottedPath(v.Object); p != "" {
				calls[p+"."+v.Method] = true
			} else {
				calls[v.Method] = true
			}
		case ast.OldExpr:
			if p := ast.DottedPath(v.Inner); p != "" {
				oldRefs[p] = true
			}
		case ast.HasCapabilityExpr:
			capChecks[v.Capability] = true
		case ast.IntLit:
			literals["int:"+strconv.FormatInt(v.Value, 10)] = true
		case ast.FloatLit:
			literals["float:"+strconv.FormatFloat(v.Value, 'g', -1, 64)] = true
		case ast.StringLit:
			literals["string:"+v.Value] = true
		case ast.BoolLit:
			literals["bool:"+strconv.FormatBool(v.Value)] = true
		case ast.NullLit:
			literals["null"] = true
		}
	})
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
