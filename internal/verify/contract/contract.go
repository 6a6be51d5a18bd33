// Package contract implements the post-hoc structural verifier (spec §4.6):
// return-path completeness, dead code, missing failure handlers at
// elevated risk, postcondition result-mention soundness, and shared-state
// effect completeness.
package contract

import (
	"strings"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
)

// Check runs V001-V005 against one contract.
func Check(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef) {
	allReturn := allPathsReturn(c.Body)

	if c.ReturnType != nil && !allReturn {
		bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V001", c.Name, c.Pos,
			"contract %q declares a return type but not every path returns", c.Name))
	}

	checkDeadCode(bag, c.Name, c.Body)

	if program.Header != nil && program.Header.Risk.IsHighOrCritical() && c.OnFailure == nil {
		bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V003", c.Name, c.Pos,
			"contract %q is high/critical risk but declares no on_failure handler", c.Name))
	}

	if postconditionMentionsResult(c.Postcondition) && !allReturn {
		bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V004", c.Name, c.Pos,
			"postcondition mentions result but not every path returns"))
	}

	checkSharedStateEffects(bag, program, c)
}

// allPathsReturn reports whether every control-flow path through stmts ends
// in a return statement. Last statement is a return, or is an if/else
// where both branches always return.
func allPathsReturn(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	last := stmts[len(stmts)-1]
	switch v := last.(type) {
	case ast.ReturnStmt:
		return true
	case ast.IfStmt:
		return len(v.Else) > 0 && allPathsReturn(v.Then) && allPathsReturn(v.Else)
	default:
		return false
	}
}

// checkDeadCode implements V002: any statement following a returning
// statement in the same block, or inside an if/else where both branches
// return, is unreachable.
func checkDeadCode(bag *diagnostic.Bag, contractName string, stmts []ast.Stmt) {
	returned := false
	for _, s := range stmts {
		if returned {
			bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V002", contractName, s.Position(),
				"unreachable statement after a returning statement"))
		}
		switch v := s.(type) {
		case ast.ReturnStmt:
			returned = true
		case ast.IfStmt:
			checkDeadCode(bag, contractName, v.Then)
			checkDeadCode(bag, contractName, v.Else)
			if len(v.Else) > 0 && allPathsReturn(v.Then) && allPathsReturn(v.Else) {
				returned = true
			}
		case ast.ForInStmt:
			checkDeadCode(bag, contractName, v.Body)
		case ast.WhileStmt:
			checkDeadCode(bag, contractName, v.Body)
		case ast.TryStmt:
			checkDeadCode(bag, contractName, v.Try)
			checkDeadCode(bag, contractName, v.Catch)
			checkDeadCode(bag, contractName, v.Finally)
		}
	}
}

func postconditionMentionsResult(exprs []ast.Expr) bool {
	found := false
	for _, e := range exprs {
		ast.WalkExpr(e, func(sub ast.Expr) {
			if id, ok := sub.(ast.Identifier); ok && id.Name == "result" {
				found = true
			}
		})
	}
	return found
}

// checkSharedStateEffects implements V005: the body reads, writes, or
// calls a declared shared-state name (by root prefix) without declaring it
// in effects.
func checkSharedStateEffects(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef) {
	if len(program.SharedState) == 0 {
		return
	}
	sharedNames := map[string]bool{}
	for _, s := range program.SharedState {
		sharedNames[s.Name] = true
	}
	declared := map[string]bool{}
	for _, e := range c.Effects {
		switch v := e.(type) {
		case ast.ModifiesEffect:
			for _, t := range v.Targets {
				declared[rootOf(t)] = true
			}
		case ast.ReadsEffect:
			for _, t := range v.Targets {
				declared[rootOf(t)] = true
			}
		}
	}

	touched := map[string]bool{}
	ast.WalkStmts(c.Body, 0, func(s ast.Stmt, _ int) {
		switch v := s.(type) {
		case ast.AssignStmt:
			touched[v.Target.Root] = true
			collectRootsFromExpr(v.Value, touched)
		case ast.ReturnStmt:
			if v.Value != nil {
				collectRootsFromExpr(v.Value, touched)
			}
		case ast.EmitStmt:
			for _, a := range v.Args {
				collectRootsFromExpr(a, touched)
			}
		case ast.ExprStmt:
			collectRootsFromExpr(v.Expr, touched)
		case ast.IfStmt:
			collectRootsFromExpr(v.Cond, touched)
		case ast.WhileStmt:
			collectRootsFromExpr(v.Cond, touched)
		case ast.ForInStmt:
			collectRootsFromExpr(v.Iter, touched)
		}
	})

	for root := range touched {
		if sharedNames[root] && !declared[root] {
			bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V005", c.Name, c.Pos,
				"shared state %q is touched by the body without a matching effects declaration", root))
		}
	}
}

func collectRootsFromExpr(e ast.Expr, out map[string]bool) {
	ast.WalkExpr(e, func(sub ast.Expr) {
		switch v := sub.(type) {
		case ast.Identifier:
			out[v.Name] = true
		case ast.FieldAccessExpr:
			if p := ast.DottedPath(v); p != "" {
				out[rootOf(p)] = true
			}
		case ast.MethodCallExpr:
			if root := ast.Root(v.Object); root != "" {
				out[root] = true
			}
		}
	})
}

func rootOf(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}
