// Package compiler lowers a parsed and verified Covenant program (spec §4.8)
// into a bytecode.Module: one CompiledContract per contract definition, with
// a deduplicated, module-wide constant pool.
//
// Lowering follows the teacher's AST-to-IR transform idiom (runtime/ir:
// a small per-node recursive function returning (value, error), dispatched
// by an exhaustive type switch) rather than a generic tree-rewriting
// framework.
package compiler

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/bytecode"
	"github.com/covenant-lang/covenant/internal/cverr"
)

// Compiler lowers every contract in a program into one shared bytecode.Module.
type Compiler struct {
	mod         *bytecode.Module
	constIdx    map[string]uint16
	moduleNames map[string]bool
}

// New returns a Compiler with an empty module. moduleNames is the closed
// stdlib module name set (§6.2, §9): a bare identifier in method-call
// position is recognized as a CALL_MODULE dispatch only when its name is in
// this set, otherwise it compiles as an ordinary local/receiver reference.
func New(moduleNames []string) *Compiler {
	names := make(map[string]bool, len(moduleNames))
	for _, n := range moduleNames {
		names[n] = true
	}
	return &Compiler{mod: &bytecode.Module{}, constIdx: map[string]uint16{}, moduleNames: names}
}

// Compile lowers every contract declaring a body in program. Contracts with
// no body section (declarations only) are skipped; a contract whose body
// contains a TryStmt or AwaitExpr node is a compile error, per the reserved-
// syntax decision recorded for those constructs.
func Compile(program *ast.Program, moduleNames []string) (*bytecode.Module, error) {
	c := New(moduleNames)
	for i := range program.Contracts {
		cd := &program.Contracts[i]
		if !cd.HasBody() {
			continue
		}
		cc, err := c.compileContract(cd)
		if err != nil {
			return nil, cverr.Wrap(cverr.KindCompile, fmt.Sprintf("contract %q", cd.Name), err)
		}
		c.mod.Contracts = append(c.mod.Contracts, *cc)
	}
	return c.mod, nil
}

// addConst interns v into the shared constant pool, returning its index.
func (c *Compiler) addConst(v bytecode.Const) uint16 {
	key := constKey(v)
	if idx, ok := c.constIdx[key]; ok {
		return idx
	}
	idx := uint16(len(c.mod.Constants))
	c.mod.Constants = append(c.mod.Constants, v)
	c.constIdx[key] = idx
	return idx
}

func constKey(v bytecode.Const) string {
	switch v.Tag {
	case bytecode.ConstNull:
		return "n"
	case bytecode.ConstInt:
		return fmt.Sprintf("i%d", v.Int)
	case bytecode.ConstFloat:
		return fmt.Sprintf("f%v", v.Float)
	case bytecode.ConstString:
		return "s" + v.String
	case bytecode.ConstBool:
		return fmt.Sprintf("b%v", v.Bool)
	default:
		return ""
	}
}

// rejectReservedSyntax walks body for TryStmt/AwaitExpr nodes and returns a
// compile error describing the first one found.
func rejectReservedSyntax(body []ast.Stmt) error {
	var firstErr error
	ast.WalkStmts(body, 0, func(s ast.Stmt, _ int) {
		if firstErr != nil {
			return
		}
		if t, ok := s.(ast.TryStmt); ok {
			firstErr = fmt.Errorf("try/catch/finally at %s is reserved syntax and cannot be compiled", t.Pos)
		}
	})
	if firstErr != nil {
		return firstErr
	}
	walkStmtsForAwait(body, &firstErr)
	return firstErr
}

func walkStmtsForAwait(stmts []ast.Stmt, firstErr *error) {
	for _, s := range stmts {
		if *firstErr != nil {
			return
		}
		switch v := s.(type) {
		case ast.AssignStmt:
			checkExprForAwait(v.Value, firstErr)
		case ast.ReturnStmt:
			if v.Value != nil {
				checkExprForAwait(v.Value, firstErr)
			}
		case ast.EmitStmt:
			for _, a := range v.Args {
				checkExprForAwait(a, firstErr)
			}
		case ast.ExprStmt:
			checkExprForAwait(v.Expr, firstErr)
		case ast.IfStmt:
			checkExprForAwait(v.Cond, firstErr)
			walkStmtsForAwait(v.Then, firstErr)
			walkStmtsForAwait(v.Else, firstErr)
		case ast.ForInStmt:
			checkExprForAwait(v.Iter, firstErr)
			walkStmtsForAwait(v.Body, firstErr)
		case ast.WhileStmt:
			checkExprForAwait(v.Cond, firstErr)
			walkStmtsForAwait(v.Body, firstErr)
		case ast.TryStmt:
			walkStmtsForAwait(v.Try, firstErr)
			walkStmtsForAwait(v.Catch, firstErr)
			walkStmtsForAwait(v.Finally, firstErr)
		}
	}
}

func checkExprForAwait(e ast.Expr, firstErr *error) {
	if *firstErr != nil || e == nil {
		return
	}
	ast.WalkExpr(e, func(sub ast.Expr) {
		if *firstErr != nil {
			return
		}
		if a, ok := sub.(ast.AwaitExpr); ok {
			*firstErr = fmt.Errorf("await at %s is reserved syntax and cannot be compiled", a.Pos)
		}
	})
}
