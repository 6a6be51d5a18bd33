package parser

import (
	"strconv"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/lexer"
)

// Precedence climbing order (lowest to highest), per §4.2:
//   or, and, not, comparison, has, +/-, */, unary -, postfix

func (p *Parser) parseExpr() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.KW_OR) {
		tok := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: "or", Left: left, Right: right, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.KW_AND) {
		tok := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: "and", Left: left, Right: right, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.check(lexer.KW_NOT) {
		tok := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "not", Operand: operand, Pos: p.pos_(tok)}, nil
	}
	return p.parseComparison()
}

var compOps = map[lexer.TokenType]string{
	lexer.LT: "<", lexer.LE: "<=", lexer.GT: ">", lexer.GE: ">=",
	lexer.EQ: "==", lexer.NE: "!=",
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseHas()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := compOps[p.current().Type]
		if !ok {
			break
		}
		tok := p.advance()
		right, err := p.parseHas()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseHas() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.KW_HAS) {
		tok := p.advance()
		cap, err := p.ident("as capability name")
		if err != nil {
			return nil, err
		}
		left = ast.HasCapabilityExpr{Subject: left, Capability: cap, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		tok := p.advance()
		op := "+"
		if tok.Type == lexer.MINUS {
			op = "-"
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.STAR) || p.check(lexer.SLASH) {
		tok := p.advance()
		op := "*"
		if tok.Type == lexer.SLASH {
			op = "/"
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: p.pos_(tok)}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(lexer.MINUS) {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "-", Operand: operand, Pos: p.pos_(tok)}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(lexer.DOT):
			tok := p.advance()
			field, err := p.ident("after '.'")
			if err != nil {
				return nil, err
			}
			if p.check(lexer.LPAREN) {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				expr = ast.MethodCallExpr{Object: expr, Method: field, Args: args, Pos: p.pos_(tok)}
			} else {
				expr = ast.FieldAccessExpr{Object: expr, Field: field, Pos: p.pos_(tok)}
			}
		case p.check(lexer.LBRACKET):
			tok := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.RBRACKET, "to close index expression"); err != nil {
				return nil, err
			}
			expr = ast.IndexExpr{Object: expr, Index: idx, Pos: p.pos_(tok)}
		default:
			return expr, nil
		}
	}
}

// parseArgs parses "(" [ [name ":"] expr ("," [name ":"] expr)* ] ")".
func (p *Parser) parseArgs() ([]ast.Arg, error) {
	if _, err := p.consume(lexer.LPAREN, "to open argument list"); err != nil {
		return nil, err
	}
	var args []ast.Arg
	for !p.check(lexer.RPAREN) {
		var name string
		if p.check(lexer.IDENT) && p.peekAt(1).Type == lexer.COLON {
			name = p.advance().Value
			p.advance() // ':'
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Arg{Name: name, Value: val})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.consume(lexer.RPAREN, "to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errf(tok, "invalid integer literal %q", tok.Value)
		}
		return ast.IntLit{Value: v, Pos: p.pos_(tok)}, nil

	case lexer.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errf(tok, "invalid float literal %q", tok.Value)
		}
		return ast.FloatLit{Value: v, Pos: p.pos_(tok)}, nil

	case lexer.STRING:
		p.advance()
		return ast.StringLit{Value: tok.Value, Pos: p.pos_(tok)}, nil

	case lexer.BOOL:
		p.advance()
		return ast.BoolLit{Value: tok.Value == "true", Pos: p.pos_(tok)}, nil

	case lexer.KW_NULL:
		p.advance()
		return ast.NullLit{Pos: p.pos_(tok)}, nil

	case lexer.LBRACKET:
		p.advance()
		var elems []ast.Expr
		for !p.check(lexer.RBRACKET) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.match(lexer.COMMA) {
				break
			}
		}
		if _, err := p.consume(lexer.RBRACKET, "to close list literal"); err != nil {
			return nil, err
		}
		return ast.ListLit{Elements: elems, Pos: p.pos_(tok)}, nil

	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.RPAREN, "to close parenthesized expression"); err != nil {
			return nil, err
		}
		return e, nil

	case lexer.KW_OLD:
		p.advance()
		if _, err := p.consume(lexer.LPAREN, "after 'old'"); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.RPAREN, "to close old(...)"); err != nil {
			return nil, err
		}
		return ast.OldExpr{Inner: inner, Pos: p.pos_(tok)}, nil

	case lexer.KW_AWAIT:
		p.advance()
		if _, err := p.consume(lexer.LPAREN, "after 'await'"); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.RPAREN, "to close await(...)"); err != nil {
			return nil, err
		}
		return ast.AwaitExpr{Inner: inner, Pos: p.pos_(tok)}, nil

	case lexer.IDENT:
		name := p.advance().Value
		if p.check(lexer.LPAREN) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return ast.CallExpr{Callee: name, Args: args, Pos: p.pos_(tok)}, nil
		}
		return ast.Identifier{Name: name, Pos: p.pos_(tok)}, nil

	default:
		return nil, p.errf(tok, "expected expression, found %s", tok.Type)
	}
}
