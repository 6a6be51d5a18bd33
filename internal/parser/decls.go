package parser

import (
	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/lexer"
)

// ---------------------------------------------------------------------
// type Name: kind
//   fields:
//     f: Type
//   flow:
//     never_flows_to [a.b, c.d]
//     requires_context name
// ---------------------------------------------------------------------

func (p *Parser) parseTypeDef() (*ast.TypeDef, error) {
	tok := p.advance() // 'type'
	name, err := p.ident("as type name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.COLON, "after type name"); err != nil {
		return nil, err
	}
	kind, err := p.ident("as base kind")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.NEWLINE, "after type header"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open type body"); err != nil {
		return nil, err
	}

	td := &ast.TypeDef{Name: name, BaseKind: kind, Pos: p.pos_(tok)}

	for !p.check(lexer.DEDENT) {
		switch {
		case p.check(lexer.KW_FIELDS):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'fields'"); err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.NEWLINE, "after 'fields:'"); err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.INDENT, "to open fields block"); err != nil {
				return nil, err
			}
			for !p.check(lexer.DEDENT) {
				fname, err := p.ident("as field name")
				if err != nil {
					return nil, err
				}
				if _, err := p.consume(lexer.COLON, "after field name"); err != nil {
					return nil, err
				}
				ft, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.consume(lexer.NEWLINE, "after field type"); err != nil {
					return nil, err
				}
				td.Fields = append(td.Fields, ast.FieldDef{Name: fname, Type: ft})
			}
			if _, err := p.consume(lexer.DEDENT, "to close fields block"); err != nil {
				return nil, err
			}
		case p.check(lexer.KW_FLOW):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'flow'"); err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.NEWLINE, "after 'flow:'"); err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.INDENT, "to open flow block"); err != nil {
				return nil, err
			}
			for !p.check(lexer.DEDENT) {
				fc, err := p.parseFlowConstraint()
				if err != nil {
					return nil, err
				}
				td.FlowConstraints = append(td.FlowConstraints, fc)
			}
			if _, err := p.consume(lexer.DEDENT, "to close flow block"); err != nil {
				return nil, err
			}
		default:
			t := p.current()
			return nil, p.errf(t, "expected 'fields' or 'flow' in type body, found %s", t.Type)
		}
	}
	if _, err := p.consume(lexer.DEDENT, "to close type body"); err != nil {
		return nil, err
	}
	return td, nil
}

func (p *Parser) parseFlowConstraint() (ast.FlowConstraint, error) {
	tok := p.current()
	switch {
	case p.check(lexer.KW_NEVER_FLOWS_TO):
		p.advance()
		dests, err := p.parseBracketedIdentList()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.NEWLINE, "after never_flows_to list"); err != nil {
			return nil, err
		}
		return ast.NeverFlowsTo{Destinations: dests, Pos: p.pos_(tok)}, nil
	case p.check(lexer.KW_REQUIRES_CONTEXT):
		p.advance()
		ctx, err := p.ident("as required context name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.NEWLINE, "after requires_context"); err != nil {
			return nil, err
		}
		return ast.RequiresContext{Context: ctx, Pos: p.pos_(tok)}, nil
	default:
		return nil, p.errf(tok, "expected 'never_flows_to' or 'requires_context', found %s", tok.Type)
	}
}

// parseTypeExpr parses a (possibly generic, list, or annotated) type
// expression: Name | Name<Args,...> | [Elem] | Base [label, ...]
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	tok := p.current()
	var base ast.TypeExpr

	if p.check(lexer.LBRACKET) {
		p.advance()
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.RBRACKET, "to close list type"); err != nil {
			return nil, err
		}
		base = ast.ListType{Elem: elem, Pos: p.pos_(tok)}
	} else {
		name, err := p.ident("as type name")
		if err != nil {
			return nil, err
		}
		if p.check(lexer.LT) {
			p.advance()
			var args []ast.TypeExpr
			for !p.check(lexer.GT) {
				a, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.match(lexer.COMMA) {
					break
				}
			}
			if _, err := p.consume(lexer.GT, "to close generic type arguments"); err != nil {
				return nil, err
			}
			base = ast.GenericType{Name: name, Args: args, Pos: p.pos_(tok)}
		} else {
			base = ast.SimpleType{Name: name, Pos: p.pos_(tok)}
		}
	}

	if p.check(lexer.LBRACKET) {
		labels, err := p.parseBracketedIdentList()
		if err != nil {
			return nil, err
		}
		return ast.AnnotatedType{Base: base, Labels: labels, Pos: p.pos_(tok)}, nil
	}
	return base, nil
}

// ---------------------------------------------------------------------
// shared name: TypeName
//   access: discipline
//   isolation: level
//   audit: mode
// ---------------------------------------------------------------------

func (p *Parser) parseSharedStateDecl() (*ast.SharedStateDecl, error) {
	tok := p.advance() // 'shared'
	name, err := p.ident("as shared-state name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.COLON, "after shared-state name"); err != nil {
		return nil, err
	}
	typeName, err := p.ident("as shared-state type")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.NEWLINE, "after shared-state header"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open shared-state body"); err != nil {
		return nil, err
	}

	sd := &ast.SharedStateDecl{Name: name, TypeName: typeName, Pos: p.pos_(tok)}
	for !p.check(lexer.DEDENT) {
		switch {
		case p.check(lexer.KW_ACCESS):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'access'"); err != nil {
				return nil, err
			}
			v, err := p.ident("as access discipline")
			if err != nil {
				return nil, err
			}
			sd.AccessDiscipline = v
		case p.check(lexer.KW_ISOLATION):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'isolation'"); err != nil {
				return nil, err
			}
			v, err := p.ident("as isolation level")
			if err != nil {
				return nil, err
			}
			sd.IsolationLevel = v
		case p.check(lexer.KW_AUDIT):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'audit'"); err != nil {
				return nil, err
			}
			v, err := p.ident("as audit mode")
			if err != nil {
				return nil, err
			}
			sd.AuditMode = v
		default:
			t := p.current()
			return nil, p.errf(t, "expected 'access', 'isolation', or 'audit', found %s", t.Type)
		}
		if _, err := p.consume(lexer.NEWLINE, "after shared-state field"); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.DEDENT, "to close shared-state body"); err != nil {
		return nil, err
	}
	return sd, nil
}
