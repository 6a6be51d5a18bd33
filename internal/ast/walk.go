package ast

import "strings"

// DottedPath returns the dotted-path string for an identifier or a chain of
// field accesses (e.g. `a.b.c`), or "" if expr is neither. Used by the
// fingerprint walker and the capability verifier, both of which need the
// textual root.dotted.path form of a reference rather than its tree shape.
func DottedPath(e Expr) string {
	var parts []string
	for {
		switch v := e.(type) {
		case Identifier:
			parts = append([]string{v.Name}, parts...)
			return strings.Join(parts, ".")
		case FieldAccessExpr:
			parts = append([]string{v.Field}, parts...)
			e = v.Object
		default:
			return ""
		}
	}
}

// Root returns the leading identifier of a dotted path expression, or ""
// if expr does not resolve to one (e.g. a call or literal).
func Root(e Expr) string {
	p := DottedPath(e)
	if p == "" {
		return ""
	}
	if i := strings.IndexByte(p, '.'); i >= 0 {
		return p[:i]
	}
	return p
}

// StmtsWalkFn is called for every statement in a body, including nested
// ones, in source order.
type StmtsWalkFn func(s Stmt, depth int)

// WalkStmts walks a statement list depth-first, invoking fn for every
// statement encountered (including those nested in if/for/while bodies),
// tracking nesting depth for the fingerprint's max-nesting metric (§3.7).
func WalkStmts(stmts []Stmt, depth int, fn StmtsWalkFn) {
	for _, s := range stmts {
		fn(s, depth)
		switch v := s.(type) {
		case IfStmt:
			WalkStmts(v.Then, depth+1, fn)
			WalkStmts(v.Else, depth+1, fn)
		case ForInStmt:
			WalkStmts(v.Body, depth+1, fn)
		case WhileStmt:
			WalkStmts(v.Body, depth+1, fn)
		case TryStmt:
			WalkStmts(v.Try, depth+1, fn)
			WalkStmts(v.Catch, depth+1, fn)
			WalkStmts(v.Finally, depth+1, fn)
		}
	}
}

// WalkExpr calls fn on e and recursively on every subexpression.
func WalkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch v := e.(type) {
	case BinaryExpr:
		WalkExpr(v.Left, fn)
		WalkExpr(v.Right, fn)
	case UnaryExpr:
		WalkExpr(v.Operand, fn)
	case FieldAccessExpr:
		WalkExpr(v.Object, fn)
	case CallExpr:
		for _, a := range v.Args {
			WalkExpr(a.Value, fn)
		}
	case MethodCallExpr:
		WalkExpr(v.Object, fn)
		for _, a := range v.Args {
			WalkExpr(a.Value, fn)
		}
	case OldExpr:
		WalkExpr(v.Inner, fn)
	case HasCapabilityExpr:
		WalkExpr(v.Subject, fn)
	case IndexExpr:
		WalkExpr(v.Object, fn)
		WalkExpr(v.Index, fn)
	case ListLit:
		for _, el := range v.Elements {
			WalkExpr(el, fn)
		}
	case AwaitExpr:
		WalkExpr(v.Inner, fn)
	}
}
