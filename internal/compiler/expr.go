package compiler

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/bytecode"
)

var binaryOps = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul, "/": bytecode.OpDiv,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
}

func (cc *contractCompiler) compileExpr(e ast.Expr) error {
	switch v := e.(type) {
	case ast.IntLit:
		cc.emitConst(bytecode.IntConst(v.Value))
		return nil
	case ast.FloatLit:
		cc.emitConst(bytecode.FloatConst(v.Value))
		return nil
	case ast.StringLit:
		cc.emitConst(bytecode.StringConst(v.Value))
		return nil
	case ast.BoolLit:
		if v.Value {
			cc.emit(bytecode.Instr{Op: bytecode.OpLoadTrue})
		} else {
			cc.emit(bytecode.Instr{Op: bytecode.OpLoadFalse})
		}
		return nil
	case ast.NullLit:
		cc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
		return nil

	case ast.Identifier:
		if v.Name == "result" && cc.resultSlot >= 0 {
			cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: uint16(cc.resultSlot)})
			return nil
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpGetLocal, Index: cc.addLocal(v.Name)})
		return nil

	case ast.ListLit:
		for _, el := range v.Elements {
			if err := cc.compileExpr(el); err != nil {
				return err
			}
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpNewList, PosCount: uint16(len(v.Elements))})
		return nil

	case ast.BinaryExpr:
		return cc.compileBinary(v)

	case ast.UnaryExpr:
		if err := cc.compileExpr(v.Operand); err != nil {
			return err
		}
		switch v.Op {
		case "-":
			cc.emit(bytecode.Instr{Op: bytecode.OpNeg})
		case "not":
			cc.emit(bytecode.Instr{Op: bytecode.OpNot})
		default:
			return fmt.Errorf("unknown unary operator %q at %s", v.Op, v.Pos)
		}
		return nil

	case ast.FieldAccessExpr:
		if err := cc.compileExpr(v.Object); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpGetField, FieldPath: v.Field})
		return nil

	case ast.IndexExpr:
		if err := cc.compileExpr(v.Object); err != nil {
			return err
		}
		if err := cc.compileExpr(v.Index); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpListIndex})
		return nil

	case ast.CallExpr:
		return cc.compileCall(v)

	case ast.MethodCallExpr:
		return cc.compileMethodCall(v)

	case ast.OldExpr:
		cc.emit(bytecode.Instr{Op: bytecode.OpBeginOld})
		if err := cc.compileExpr(v.Inner); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpEndOld})
		return nil

	case ast.HasCapabilityExpr:
		if err := cc.compileExpr(v.Subject); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpHasCapability, Index: cc.c.addConst(bytecode.StringConst(v.Capability))})
		return nil

	case ast.AwaitExpr:
		return fmt.Errorf("await at %s is reserved syntax and cannot be compiled", v.Pos)

	default:
		return fmt.Errorf("unknown expression type %T at %s", e, e.Position())
	}
}

// compileBinary lowers `and`/`or` as short-circuiting jumps and every other
// binary operator as eager evaluation of both sides.
func (cc *contractCompiler) compileBinary(v ast.BinaryExpr) error {
	switch v.Op {
	case "and":
		if err := cc.compileExpr(v.Left); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpDup})
		shortCircuit := cc.emit(bytecode.Instr{Op: bytecode.OpJumpIfFalse})
		cc.emit(bytecode.Instr{Op: bytecode.OpPop})
		if err := cc.compileExpr(v.Right); err != nil {
			return err
		}
		cc.patchJumpHere(shortCircuit)
		return nil
	case "or":
		if err := cc.compileExpr(v.Left); err != nil {
			return err
		}
		cc.emit(bytecode.Instr{Op: bytecode.OpDup})
		shortCircuit := cc.emit(bytecode.Instr{Op: bytecode.OpJumpIfTrue})
		cc.emit(bytecode.Instr{Op: bytecode.OpPop})
		if err := cc.compileExpr(v.Right); err != nil {
			return err
		}
		cc.patchJumpHere(shortCircuit)
		return nil
	}

	op, ok := binaryOps[v.Op]
	if !ok {
		return fmt.Errorf("unknown binary operator %q at %s", v.Op, v.Pos)
	}
	if err := cc.compileExpr(v.Left); err != nil {
		return err
	}
	if err := cc.compileExpr(v.Right); err != nil {
		return err
	}
	cc.emit(bytecode.Instr{Op: op})
	return nil
}

// builtinNames mirrors the always-present builtin table (§6.3, plus the
// supplemented bool()/list()).
var builtinNames = map[string]bool{
	"print": true, "len": true, "abs": true, "min": true, "max": true,
	"range": true, "str": true, "int": true, "float": true, "type": true,
	"bool": true, "list": true,
}

// compileCall lowers a bare call. A builtin name compiles to CALL_BUILTIN;
// anything else is assumed to be a sibling contract and compiles to
// CALL_CONTRACT, resolved by name at link time inside the VM.
func (cc *contractCompiler) compileCall(v ast.CallExpr) error {
	if err := cc.compileArgs(v.Args); err != nil {
		return err
	}
	pos, kw := countArgs(v.Args)
	if builtinNames[v.Callee] {
		cc.emit(bytecode.Instr{
			Op: bytecode.OpCallBuiltin, Index: cc.c.addConst(bytecode.StringConst(v.Callee)),
			PosCount: pos, KwCount: kw,
		})
		return nil
	}
	cc.emit(bytecode.Instr{
		Op: bytecode.OpCallContract, Index: cc.c.addConst(bytecode.StringConst(v.Callee)),
		PosCount: pos, KwCount: kw,
	})
	return nil
}

// compileMethodCall lowers obj.method(args). The parser has no dotted-call
// syntax of its own — `math.sqrt(x)` parses as a MethodCallExpr whose Object
// is the bare Identifier "math" — so a module dispatch (§6.2) is
// distinguished from an in-language method call right here, at compile
// time, by checking the receiver against the closed stdlib module name set:
// a bare identifier naming a known module compiles to CALL_MODULE without
// ever evaluating "math" as a local; anything else (an object expression, a
// stdlib type instance, a List/String value) compiles to CALL_METHOD and the
// VM decides at runtime whether the receiver is a bridge handle or a
// Covenant object.
func (cc *contractCompiler) compileMethodCall(v ast.MethodCallExpr) error {
	if ident, ok := v.Object.(ast.Identifier); ok && cc.c.moduleNames[ident.Name] {
		if err := cc.compileArgs(v.Args); err != nil {
			return err
		}
		pos, kw := countArgs(v.Args)
		cc.emit(bytecode.Instr{
			Op:        bytecode.OpCallModule,
			Index:     cc.c.addConst(bytecode.StringConst(ident.Name)),
			FieldPath: v.Method,
			PosCount:  pos, KwCount: kw,
		})
		return nil
	}

	if err := cc.compileExpr(v.Object); err != nil {
		return err
	}
	if err := cc.compileArgs(v.Args); err != nil {
		return err
	}
	pos, kw := countArgs(v.Args)
	cc.emit(bytecode.Instr{
		Op: bytecode.OpCallMethod, Index: cc.c.addConst(bytecode.StringConst(v.Method)),
		PosCount: pos, KwCount: kw,
	})
	return nil
}

// compileArgs pushes every positional argument's value, then, per keyword
// argument, its value followed by its parameter name as a string constant;
// the VM pops KwCount (name, value) pairs off the top before PosCount plain
// values underneath.
func (cc *contractCompiler) compileArgs(args []ast.Arg) error {
	for _, a := range args {
		if err := cc.compileExpr(a.Value); err != nil {
			return err
		}
		if a.Name != "" {
			cc.emitConst(bytecode.StringConst(a.Name))
		}
	}
	return nil
}

func countArgs(args []ast.Arg) (pos, kw uint16) {
	for _, a := range args {
		if a.Name == "" {
			pos++
		} else {
			kw++
		}
	}
	return
}
