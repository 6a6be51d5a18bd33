package typeinfer

import (
	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
)

// isNumeric accepts the arithmetic/comparison operand kinds; "" means the
// operand's type could not be inferred (a local with no traceable origin, a
// call to an unknown sibling, a stdlib result) and is treated as gradual —
// skipped rather than flagged, per §4.11's "an unknown type name passes".
func isNumeric(t string) bool {
	return t == "Int" || t == "Float" || t == "Number"
}

// typesCompatible mirrors vm.AssignableTo's directionality (value -> declared
// is not commutative: Int is assignable to Float, not the reverse) but
// operates on the static type-name strings this pass infers rather than on
// runtime values.
func typesCompatible(declared, actual string) bool {
	if declared == "" || declared == "Any" || actual == "" || actual == "Any" {
		return true
	}
	if actual == "Null" {
		return true
	}
	if len(declared) >= 2 && declared[0] == '[' && declared[len(declared)-1] == ']' {
		if len(actual) < 2 || actual[0] != '[' || actual[len(actual)-1] != ']' {
			return false
		}
		return typesCompatible(declared[1:len(declared)-1], actual[1:len(actual)-1])
	}
	switch declared {
	case "Int":
		return actual == "Int"
	case "Float", "Number":
		return actual == "Int" || actual == "Float" || actual == "Number"
	case "String":
		return actual == "String"
	case "Bool":
		return actual == "Bool"
	case "List":
		return actual == "List" || (len(actual) >= 2 && actual[0] == '[')
	default:
		return actual == declared
	}
}

// Check runs the T001-T005 static checks against one contract and appends
// diagnostics to bag as warnings: the VM's dynamic check at contract entry
// and return is authoritative, so a static mismatch here is advisory.
func Check(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef, reg *Registry) {
	checkDeclaredTypes(bag, c, reg)

	locals := map[string]string{}
	for _, p := range c.Params {
		locals[p.Name] = ast.BaseName(p.Type)
	}

	ast.WalkStmts(c.Body, 0, func(s ast.Stmt, _ int) {
		switch v := s.(type) {
		case ast.AssignStmt:
			t := inferType(v.Value, locals, reg)
			if v.Target.Root != "" && len(v.Target.Path) == 0 {
				locals[v.Target.Root] = t
			}
			checkBinaryOperands(bag, c, v.Value, locals, reg)
		case ast.ReturnStmt:
			checkBinaryOperands(bag, c, v.Value, locals, reg)
			if v.Value != nil && c.ReturnType != nil {
				got := inferType(v.Value, locals, reg)
				want := ast.BaseName(c.ReturnType)
				if got != "" && !typesCompatible(want, got) {
					add(bag, c.Name, v.Pos, "T002", "contract %q returns %s but declares return type %s", c.Name, got, want)
				}
			}
		case ast.ExprStmt:
			checkBinaryOperands(bag, c, v.Expr, locals, reg)
		case ast.IfStmt:
			checkBinaryOperands(bag, c, v.Cond, locals, reg)
		case ast.WhileStmt:
			checkBinaryOperands(bag, c, v.Cond, locals, reg)
		case ast.EmitStmt:
			for _, a := range v.Args {
				checkBinaryOperands(bag, c, a, locals, reg)
			}
		}
	})

	checkCallSites(bag, c.Body, c, locals, reg)
}

func add(bag *diagnostic.Bag, contract string, pos ast.Position, code, format string, args ...interface{}) {
	bag.Add(diagnostic.New(diagnostic.SeverityWarning, code, contract, pos, format, args...))
}

// checkDeclaredTypes implements T005: an annotation naming a type that is
// neither a builtin nor declared anywhere in the file's `type` blocks.
func checkDeclaredTypes(bag *diagnostic.Bag, c *ast.ContractDef, reg *Registry) {
	for _, p := range c.Params {
		name := ast.BaseName(p.Type)
		if !reg.KnownTypeName(name) {
			add(bag, c.Name, c.Pos, "T005", "contract %q parameter %q has undeclared type %q", c.Name, p.Name, name)
		}
	}
	if c.ReturnType != nil {
		name := ast.BaseName(c.ReturnType)
		if !reg.KnownTypeName(name) {
			add(bag, c.Name, c.Pos, "T005", "contract %q declares undeclared return type %q", c.Name, name)
		}
	}
}

// checkBinaryOperands implements T003: a binary operator applied to operand
// types that do not admit the operator (arithmetic and ordered comparison
// require numeric operands, except String+String which the VM treats as
// concatenation per §4.10).
func checkBinaryOperands(bag *diagnostic.Bag, c *ast.ContractDef, e ast.Expr, locals map[string]string, reg *Registry) {
	if e == nil {
		return
	}
	ast.WalkExpr(e, func(sub ast.Expr) {
		bin, ok := sub.(ast.BinaryExpr)
		if !ok {
			return
		}
		lt := inferType(bin.Left, locals, reg)
		rt := inferType(bin.Right, locals, reg)
		if lt == "" || rt == "" {
			return
		}
		switch bin.Op {
		case "+":
			if lt == "String" && rt == "String" {
				return
			}
			if !isNumeric(lt) || !isNumeric(rt) {
				add(bag, c.Name, bin.Pos, "T003", "contract %q: operator %q on incompatible operand types %s and %s", c.Name, bin.Op, lt, rt)
			}
		case "-", "*", "/", "<", "<=", ">", ">=":
			if !isNumeric(lt) || !isNumeric(rt) {
				add(bag, c.Name, bin.Pos, "T003", "contract %q: operator %q on incompatible operand types %s and %s", c.Name, bin.Op, lt, rt)
			}
		case "and", "or":
			if lt != "Bool" || rt != "Bool" {
				add(bag, c.Name, bin.Pos, "T003", "contract %q: operator %q on incompatible operand types %s and %s", c.Name, bin.Op, lt, rt)
			}
		}
	})
}

// checkCallSites implements T001 (argument type mismatch) and T004 (wrong
// argument count) against calls to sibling contracts with a known,
// fully-typed signature.
func checkCallSites(bag *diagnostic.Bag, stmts []ast.Stmt, c *ast.ContractDef, locals map[string]string, reg *Registry) {
	ast.WalkStmts(stmts, 0, func(s ast.Stmt, _ int) {
		var e ast.Expr
		switch v := s.(type) {
		case ast.ExprStmt:
			e = v.Expr
		case ast.AssignStmt:
			e = v.Value
		case ast.ReturnStmt:
			e = v.Value
		case ast.EmitStmt:
			for _, a := range v.Args {
				checkCall(bag, a, c, locals, reg)
			}
			return
		}
		checkCall(bag, e, c, locals, reg)
	})
}

func checkCall(bag *diagnostic.Bag, e ast.Expr, c *ast.ContractDef, locals map[string]string, reg *Registry) {
	if e == nil {
		return
	}
	ast.WalkExpr(e, func(sub ast.Expr) {
		call, ok := sub.(ast.CallExpr)
		if !ok {
			return
		}
		sig, known := reg.Lookup(call.Callee)
		if !known {
			return
		}
		var positional []ast.Arg
		for _, a := range call.Args {
			if a.Name == "" {
				positional = append(positional, a)
			}
		}
		if len(positional) != len(sig.ParamTypes) {
			add(bag, c.Name, call.Pos, "T004", "call to %q passes %d positional argument(s), contract declares %d", call.Callee, len(positional), len(sig.ParamTypes))
			return
		}
		for i, a := range positional {
			got := inferType(a.Value, locals, reg)
			want := sig.ParamTypes[i]
			if got != "" && !typesCompatible(want, got) {
				add(bag, c.Name, call.Pos, "T001", "call to %q argument %d (%s) has type %s, parameter %q declares %s",
					call.Callee, i+1, sig.ParamNames[i], got, sig.ParamNames[i], want)
			}
		}
	})
}

// inferType returns the static type-name string for e (matching the
// BaseName form §4.11's compatibility rules are expressed in), or "" when
// the expression's type cannot be locally inferred (gradual: no diagnostic
// is raised against an unknown type).
func inferType(e ast.Expr, locals map[string]string, reg *Registry) string {
	switch v := e.(type) {
	case ast.IntLit:
		return "Int"
	case ast.FloatLit:
		return "Float"
	case ast.StringLit:
		return "String"
	case ast.BoolLit:
		return "Bool"
	case ast.NullLit:
		return "Null"
	case ast.ListLit:
		if len(v.Elements) == 0 {
			return "List"
		}
		elem := inferType(v.Elements[0], locals, reg)
		if elem == "" {
			return "List"
		}
		return "[" + elem + "]"
	case ast.Identifier:
		return locals[v.Name]
	case ast.UnaryExpr:
		if v.Op == "not" {
			return "Bool"
		}
		return inferType(v.Operand, locals, reg)
	case ast.BinaryExpr:
		switch v.Op {
		case "<", "<=", ">", ">=", "==", "!=", "and", "or":
			return "Bool"
		case "+":
			lt := inferType(v.Left, locals, reg)
			rt := inferType(v.Right, locals, reg)
			if lt == "String" || rt == "String" {
				return "String"
			}
			return numericResult(lt, rt)
		default:
			return numericResult(inferType(v.Left, locals, reg), inferType(v.Right, locals, reg))
		}
	case ast.CallExpr:
		if sig, ok := reg.Lookup(v.Callee); ok {
			return sig.ReturnType
		}
		return ""
	case ast.OldExpr:
		return inferType(v.Inner, locals, reg)
	case ast.HasCapabilityExpr:
		return "Bool"
	default:
		return ""
	}
}

func numericResult(lt, rt string) string {
	if lt == "" || rt == "" {
		return ""
	}
	if lt == "Float" || rt == "Float" {
		return "Float"
	}
	if lt == "Int" && rt == "Int" {
		return "Int"
	}
	return ""
}
