package compiler

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/bytecode"
)

// contractCompiler lowers one contract's body, precondition, and
// postcondition into a flat instruction stream with a single shared local
// slot table (params, an implicit "result" slot when the contract returns a
// value, and hidden slots used by for-in desugaring).
type contractCompiler struct {
	c          *Compiler
	locals     map[string]uint16
	localNames []string
	code       []bytecode.Instr
	resultSlot int // -1 if the contract has no return type
	hasOld     bool
}

func (c *Compiler) compileContract(cd *ast.ContractDef) (*bytecode.CompiledContract, error) {
	if err := rejectReservedSyntax(cd.Body); err != nil {
		return nil, err
	}

	cc := &contractCompiler{c: c, locals: map[string]uint16{}, resultSlot: -1}

	paramNames := make([]string, len(cd.Params))
	paramTypes := make([]string, len(cd.Params))
	for i, p := range cd.Params {
		cc.addLocal(p.Name)
		paramNames[i] = p.Name
		paramTypes[i] = typeName(p.Type)
	}

	hasReturn := cd.ReturnType != nil
	if hasReturn {
		cc.resultSlot = int(cc.addLocal("result"))
	}

	cc.hasOld = containsOld(cd.Postcondition)
	if cc.hasOld {
		cc.emit(bytecode.Instr{Op: bytecode.OpSnapshot})
	}

	for i, pre := range cd.Precondition {
		if err := cc.compileExpr(pre); err != nil {
			return nil, err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpCheckPre, Index: uint16(i + 1)})
	}

	var pendingReturnJumps []int
	if err := cc.compileStmts(cd.Body, &pendingReturnJumps); err != nil {
		return nil, err
	}

	landingPad := len(cc.code)
	for _, idx := range pendingReturnJumps {
		cc.code[idx].JumpDelta = int32(landingPad - idx)
	}

	for i, post := range cd.Postcondition {
		if err := cc.compileExpr(post); err != nil {
			return nil, err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpCheckPost, Index: uint16(i + 1)})
	}

	if hasReturn {
		cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: uint16(cc.resultSlot)})
	}
	cc.emit(bytecode.Instr{Op: bytecode.OpReturn})

	return &bytecode.CompiledContract{
		Name:       cd.Name,
		ParamNames: paramNames,
		ParamTypes: paramTypes,
		HasReturn:  hasReturn,
		ReturnType: typeNameOrEmpty(cd.ReturnType),
		LocalCount: uint16(len(cc.localNames)),
		LocalNames: cc.localNames,
		Code:       cc.code,
	}, nil
}

func containsOld(exprs []ast.Expr) bool {
	found := false
	for _, e := range exprs {
		ast.WalkExpr(e, func(sub ast.Expr) {
			if _, ok := sub.(ast.OldExpr); ok {
				found = true
			}
		})
	}
	return found
}

func typeName(t ast.TypeExpr) string {
	if t == nil {
		return "Any"
	}
	return ast.BaseName(t)
}

func typeNameOrEmpty(t ast.TypeExpr) string {
	if t == nil {
		return ""
	}
	return ast.BaseName(t)
}

// addLocal assigns name a fresh slot, or returns its existing one.
func (cc *contractCompiler) addLocal(name string) uint16 {
	if idx, ok := cc.locals[name]; ok {
		return idx
	}
	idx := uint16(len(cc.localNames))
	cc.locals[name] = idx
	cc.localNames = append(cc.localNames, name)
	return idx
}

// addHiddenLocal allocates a compiler-private slot not reachable by source
// identifiers, used by for-in desugaring.
func (cc *contractCompiler) addHiddenLocal(hint string) uint16 {
	name := fmt.Sprintf("$%s%d", hint, len(cc.localNames))
	return cc.addLocal(name)
}

func (cc *contractCompiler) emit(in bytecode.Instr) int {
	cc.code = append(cc.code, in)
	return len(cc.code) - 1
}

func (cc *contractCompiler) emitConst(v bytecode.Const) {
	cc.emit(bytecode.Instr{Op: bytecode.OpLoadConst, Index: cc.c.addConst(v)})
}

// patchJumpHere sets the jump instruction at idx to land on the next
// instruction to be emitted.
func (cc *contractCompiler) patchJumpHere(idx int) {
	cc.code[idx].JumpDelta = int32(len(cc.code) - idx)
}
