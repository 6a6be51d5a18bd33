package parser

import (
	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/lexer"
)

// parseStmtSection parses `kw:` followed by an indented block of statements
// (used for body/on_failure/try/catch/finally).
func (p *Parser) parseStmtSection(kw lexer.TokenType) ([]ast.Stmt, error) {
	p.advance() // keyword
	if _, err := p.consume(lexer.COLON, "after section keyword"); err != nil {
		return nil, err
	}
	return p.parseIndentedBlock()
}

// parseIndentedBlock consumes NEWLINE INDENT Stmt* DEDENT.
func (p *Parser) parseIndentedBlock() ([]ast.Stmt, error) {
	if _, err := p.consume(lexer.NEWLINE, "after block header"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open block"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.check(lexer.DEDENT) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.consume(lexer.DEDENT, "to close block"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.current()
	switch tok.Type {
	case lexer.KW_RETURN:
		p.advance()
		var val ast.Expr
		if !p.check(lexer.NEWLINE) {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			val = v
		}
		if _, err := p.consume(lexer.NEWLINE, "after return statement"); err != nil {
			return nil, err
		}
		return ast.ReturnStmt{Value: val, Pos: p.pos_(tok)}, nil

	case lexer.KW_EMIT:
		p.advance()
		name, err := p.ident("as emitted event name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.LPAREN, "to open emit arguments"); err != nil {
			return nil, err
		}
		var args []ast.Expr
		for !p.check(lexer.RPAREN) {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(lexer.COMMA) {
				break
			}
		}
		if _, err := p.consume(lexer.RPAREN, "to close emit arguments"); err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.NEWLINE, "after emit statement"); err != nil {
			return nil, err
		}
		return ast.EmitStmt{Event: name, Args: args, Pos: p.pos_(tok)}, nil

	case lexer.KW_IF:
		return p.parseIfStmt()

	case lexer.KW_FOR:
		return p.parseForStmt()

	case lexer.KW_WHILE:
		return p.parseWhileStmt()

	case lexer.KW_TRY:
		return p.parseTryStmt()

	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	tok := p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.COLON, "after if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	var els []ast.Stmt
	if p.check(lexer.KW_ELSE) {
		p.advance()
		if _, err := p.consume(lexer.COLON, "after 'else'"); err != nil {
			return nil, err
		}
		e, err := p.parseIndentedBlock()
		if err != nil {
			return nil, err
		}
		els = e
	}
	return ast.IfStmt{Cond: cond, Then: then, Else: els, Pos: p.pos_(tok)}, nil
}

func (p *Parser) parseForStmt() (ast.Stmt, error) {
	tok := p.advance() // 'for'
	varName, err := p.ident("as loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KW_IN, "after loop variable"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.COLON, "after for-in iterable"); err != nil {
		return nil, err
	}
	body, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForInStmt{Var: varName, Iter: iter, Body: body, Pos: p.pos_(tok)}, nil
}

func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	tok := p.advance() // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.COLON, "after while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Cond: cond, Body: body, Pos: p.pos_(tok)}, nil
}

// parseTryStmt parses the reserved try/catch/finally syntax (§9). It builds
// a full AST node so fixtures exercising the syntax still parse; nothing
// downstream gives it control-flow semantics.
func (p *Parser) parseTryStmt() (ast.Stmt, error) {
	tok := p.advance() // 'try'
	if _, err := p.consume(lexer.COLON, "after 'try'"); err != nil {
		return nil, err
	}
	tryBlock, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KW_CATCH, "after try block"); err != nil {
		return nil, err
	}
	var catchVar string
	if p.check(lexer.IDENT) {
		catchVar, err = p.ident("as catch variable")
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.COLON, "after 'catch'"); err != nil {
		return nil, err
	}
	catchBlock, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	var finallyBlock []ast.Stmt
	if p.check(lexer.KW_FINALLY) {
		p.advance()
		if _, err := p.consume(lexer.COLON, "after 'finally'"); err != nil {
			return nil, err
		}
		finallyBlock, err = p.parseIndentedBlock()
		if err != nil {
			return nil, err
		}
	}
	return ast.TryStmt{Try: tryBlock, CatchVar: catchVar, Catch: catchBlock, Finally: finallyBlock, Pos: p.pos_(tok)}, nil
}

// parseAssignOrExprStmt parses an expression, then rewrites it to an
// assignment if the next token is '=' and the expression resolves to an
// identifier or dotted field-access chain (§4.2's assignment-target rule).
func (p *Parser) parseAssignOrExprStmt() (ast.Stmt, error) {
	tok := p.current()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.EQUALS) {
		target, ok := exprToAssignTarget(expr)
		if !ok {
			return nil, p.errf(tok, "left-hand side of assignment must be an identifier or field-access chain")
		}
		p.advance() // '='
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.NEWLINE, "after assignment"); err != nil {
			return nil, err
		}
		return ast.AssignStmt{Target: target, Value: value, Pos: p.pos_(tok)}, nil
	}
	if _, err := p.consume(lexer.NEWLINE, "after expression statement"); err != nil {
		return nil, err
	}
	return ast.ExprStmt{Expr: expr, Pos: p.pos_(tok)}, nil
}

// exprToAssignTarget rewrites an Identifier or chain of FieldAccessExpr
// into an AssignTarget, or reports ok=false for anything else (calls,
// indexing, literals).
func exprToAssignTarget(e ast.Expr) (ast.AssignTarget, bool) {
	var path []string
	for {
		switch v := e.(type) {
		case ast.Identifier:
			// reverse-accumulated path segments belong after the root
			return ast.AssignTarget{Root: v.Name, Path: path, Pos: v.Pos}, true
		case ast.FieldAccessExpr:
			path = append([]string{v.Field}, path...)
			e = v.Object
		default:
			return ast.AssignTarget{}, false
		}
	}
}
