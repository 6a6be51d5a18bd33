package compiler

import (
	"fmt"
	"strings"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/bytecode"
)

// compileStmts lowers a statement list in order. returnJumps accumulates the
// code index of every emitted OpJump produced by a ReturnStmt, so the caller
// can patch them all to the contract's landing pad once its address is known.
func (cc *contractCompiler) compileStmts(stmts []ast.Stmt, returnJumps *[]int) error {
	for _, s := range stmts {
		if err := cc.compileStmt(s, returnJumps); err != nil {
			return err
		}
	}
	return nil
}

func (cc *contractCompiler) compileStmt(s ast.Stmt, returnJumps *[]int) error {
	switch v := s.(type) {
	case ast.AssignStmt:
		return cc.compileAssign(v)

	case ast.ReturnStmt:
		if v.Value != nil {
			if err := cc.compileExpr(v.Value); err != nil {
				return err
			}
			if cc.resultSlot >= 0 {
				cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: uint16(cc.resultSlot)})
			} else {
				cc.emit(bytecode.Instr{Op: bytecode.OpPop})
			}
		}
		idx := cc.emit(bytecode.Instr{Op: bytecode.OpJump})
		*returnJumps = append(*returnJumps, idx)
		return nil

	case ast.EmitStmt:
		for _, a := range v.Args {
			if err := cc.compileExpr(a); err != nil {
				return err
			}
		}
		cc.emit(bytecode.Instr{
			Op: bytecode.OpEmitEvent, Index: cc.c.addConst(bytecode.StringConst(v.Event)),
			PosCount: uint16(len(v.Args)),
		})
		return nil

	case ast.ExprStmt:
		if err := cc.compileExpr(v.Expr); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpPop})
		return nil

	case ast.IfStmt:
		return cc.compileIf(v, returnJumps)

	case ast.ForInStmt:
		return cc.compileForIn(v, returnJumps)

	case ast.WhileStmt:
		return cc.compileWhile(v, returnJumps)

	case ast.TryStmt:
		return fmt.Errorf("try/catch/finally at %s is reserved syntax and cannot be compiled", v.Pos)

	default:
		return fmt.Errorf("unknown statement type %T at %s", s, s.Position())
	}
}

func (cc *contractCompiler) compileIf(v ast.IfStmt, returnJumps *[]int) error {
	if err := cc.compileExpr(v.Cond); err != nil {
		return err
	}
	jumpToElse := cc.emit(bytecode.Instr{Op: bytecode.OpJumpIfFalse})
	if err := cc.compileStmts(v.Then, returnJumps); err != nil {
		return err
	}
	if len(v.Else) > 0 {
		jumpToEnd := cc.emit(bytecode.Instr{Op: bytecode.OpJump})
		cc.patchJumpHere(jumpToElse)
		if err := cc.compileStmts(v.Else, returnJumps); err != nil {
			return err
		}
		cc.patchJumpHere(jumpToEnd)
	} else {
		cc.patchJumpHere(jumpToElse)
	}
	return nil
}

// compileForIn desugars `for x in iter: body` into an index-driven while
// loop over a materialized list, closed by an OpLoopBack back-edge tagged
// with the for-in iteration cap (§4.10).
func (cc *contractCompiler) compileForIn(v ast.ForInStmt, returnJumps *[]int) error {
	listSlot := cc.addHiddenLocal("list")
	idxSlot := cc.addHiddenLocal("idx")
	lenSlot := cc.addHiddenLocal("len")

	if err := cc.compileExpr(v.Iter); err != nil {
		return err
	}
	cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: listSlot})

	cc.emitConst(bytecode.IntConst(0))
	cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: idxSlot})

	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: listSlot})
	cc.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Index: cc.c.addConst(bytecode.StringConst("len")), PosCount: 1})
	cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: lenSlot})

	loopStart := len(cc.code)
	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: idxSlot})
	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: lenSlot})
	cc.emit(bytecode.Instr{Op: bytecode.OpLt})
	exitJump := cc.emit(bytecode.Instr{Op: bytecode.OpJumpIfFalse})

	varSlot := cc.addLocal(v.Var)
	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: listSlot})
	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: idxSlot})
	cc.emit(bytecode.Instr{Op: bytecode.OpListIndex})
	cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: varSlot})

	if err := cc.compileStmts(v.Body, returnJumps); err != nil {
		return err
	}

	cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: idxSlot})
	cc.emitConst(bytecode.IntConst(1))
	cc.emit(bytecode.Instr{Op: bytecode.OpAdd})
	cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: idxSlot})

	back := cc.emit(bytecode.Instr{Op: bytecode.OpLoopBack, Index: 0})
	cc.code[back].JumpDelta = int32(loopStart - back)
	cc.patchJumpHere(exitJump)
	return nil
}

func (cc *contractCompiler) compileWhile(v ast.WhileStmt, returnJumps *[]int) error {
	loopStart := len(cc.code)
	if err := cc.compileExpr(v.Cond); err != nil {
		return err
	}
	exitJump := cc.emit(bytecode.Instr{Op: bytecode.OpJumpIfFalse})

	if err := cc.compileStmts(v.Body, returnJumps); err != nil {
		return err
	}

	back := cc.emit(bytecode.Instr{Op: bytecode.OpLoopBack, Index: 1})
	cc.code[back].JumpDelta = int32(loopStart - back)
	cc.patchJumpHere(exitJump)
	return nil
}

// compileAssign lowers a bare-identifier assignment directly to SET_LOCAL.
// A dotted assignment compiles the new value, then emits one SET_FIELD
// naming the root local and the dotted path below it; the VM does the
// clone-and-rebuild walk in a single instruction (§4.10).
func (cc *contractCompiler) compileAssign(v ast.AssignStmt) error {
	rootSlot := cc.addLocal(v.Target.Root)
	if err := cc.compileExpr(v.Value); err != nil {
		return err
	}
	if len(v.Target.Path) == 0 {
		cc.emit(bytecode.Instr{Op: bytecode.OpSetLocal, Index: rootSlot})
		return nil
	}
	cc.emit(bytecode.Instr{Op: bytecode.OpSetField, Index: rootSlot, FieldPath: strings.Join(v.Target.Path, ".")})
	return nil
}
