package parser

import (
	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/lexer"
)

// contract [pure] name(params) -> ReturnType
//   precondition:
//   postcondition:
//   effects:
//   permissions:
//   body:
//   on_failure:
func (p *Parser) parseContractDef() (*ast.ContractDef, error) {
	pure := false
	startTok := p.current()
	if p.check(lexer.KW_PURE) {
		pure = true
		p.advance()
	}
	if _, err := p.consume(lexer.KW_CONTRACT, "to begin contract definition"); err != nil {
		return nil, err
	}
	name, err := p.ident("as contract name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.LPAREN, "to open parameter list"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(lexer.RPAREN) {
		pname, err := p.ident("as parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.COLON, "after parameter name"); err != nil {
			return nil, err
		}
		ptype, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname, Type: ptype})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.consume(lexer.RPAREN, "to close parameter list"); err != nil {
		return nil, err
	}

	var retType ast.TypeExpr
	if p.match(lexer.ARROW) {
		rt, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		retType = rt
	}
	if _, err := p.consume(lexer.NEWLINE, "after contract header"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open contract body"); err != nil {
		return nil, err
	}

	cd := &ast.ContractDef{Name: name, Params: params, ReturnType: retType, Pure: pure, Pos: p.pos_(startTok)}

	for !p.check(lexer.DEDENT) {
		switch {
		case p.check(lexer.KW_PRECONDITION):
			exprs, err := p.parseExprSection(lexer.KW_PRECONDITION)
			if err != nil {
				return nil, err
			}
			cd.Precondition = exprs
		case p.check(lexer.KW_POSTCONDITION):
			exprs, err := p.parseExprSection(lexer.KW_POSTCONDITION)
			if err != nil {
				return nil, err
			}
			cd.Postcondition = exprs
		case p.check(lexer.KW_EFFECTS):
			effs, err := p.parseEffectsSection()
			if err != nil {
				return nil, err
			}
			cd.Effects = effs
		case p.check(lexer.KW_PERMISSIONS):
			perms, err := p.parsePermissionsSection()
			if err != nil {
				return nil, err
			}
			cd.Permissions = perms
		case p.check(lexer.KW_BODY):
			stmts, err := p.parseStmtSection(lexer.KW_BODY)
			if err != nil {
				return nil, err
			}
			cd.Body = stmts
			if cd.Body == nil {
				cd.Body = []ast.Stmt{}
			}
		case p.check(lexer.KW_ON_FAILURE):
			stmts, err := p.parseStmtSection(lexer.KW_ON_FAILURE)
			if err != nil {
				return nil, err
			}
			cd.OnFailure = stmts
		default:
			t := p.current()
			return nil, p.errf(t, "expected a contract section, found %s", t.Type)
		}
	}
	if _, err := p.consume(lexer.DEDENT, "to close contract body"); err != nil {
		return nil, err
	}
	return cd, nil
}

// parseExprSection parses `kw:` followed by an indented block of one
// expression per line (used for precondition/postcondition).
func (p *Parser) parseExprSection(kw lexer.TokenType) ([]ast.Expr, error) {
	p.advance() // keyword
	if _, err := p.consume(lexer.COLON, "after section keyword"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.NEWLINE, "after section header"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open section block"); err != nil {
		return nil, err
	}
	var exprs []ast.Expr
	for !p.check(lexer.DEDENT) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.NEWLINE, "after expression"); err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if _, err := p.consume(lexer.DEDENT, "to close section block"); err != nil {
		return nil, err
	}
	return exprs, nil
}

func (p *Parser) parseEffectsSection() ([]ast.EffectDecl, error) {
	p.advance() // 'effects'
	if _, err := p.consume(lexer.COLON, "after 'effects'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.NEWLINE, "after 'effects:'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open effects block"); err != nil {
		return nil, err
	}
	var effs []ast.EffectDecl
	for !p.check(lexer.DEDENT) {
		tok := p.current()
		switch {
		case p.check(lexer.KW_MODIFIES):
			p.advance()
			targets, err := p.parseBracketedIdentList()
			if err != nil {
				return nil, err
			}
			effs = append(effs, ast.ModifiesEffect{Targets: targets, Pos: p.pos_(tok)})
		case p.check(lexer.KW_READS):
			p.advance()
			targets, err := p.parseBracketedIdentList()
			if err != nil {
				return nil, err
			}
			effs = append(effs, ast.ReadsEffect{Targets: targets, Pos: p.pos_(tok)})
		case p.check(lexer.KW_EMITS):
			p.advance()
			name, err := p.ident("as emitted event name")
			if err != nil {
				return nil, err
			}
			effs = append(effs, ast.EmitsEffect{Event: name, Pos: p.pos_(tok)})
		case p.check(lexer.KW_TOUCHES_NOTHING_ELSE):
			p.advance()
			effs = append(effs, ast.TouchesNothingElseEffect{Pos: p.pos_(tok)})
		default:
			return nil, p.errf(tok, "expected an effect declaration, found %s", tok.Type)
		}
		if _, err := p.consume(lexer.NEWLINE, "after effect declaration"); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.DEDENT, "to close effects block"); err != nil {
		return nil, err
	}
	return effs, nil
}

func (p *Parser) parsePermissionsSection() (*ast.PermissionsBlock, error) {
	tok := p.current()
	p.advance() // 'permissions'
	if _, err := p.consume(lexer.COLON, "after 'permissions'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.NEWLINE, "after 'permissions:'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.INDENT, "to open permissions block"); err != nil {
		return nil, err
	}
	pb := &ast.PermissionsBlock{Pos: p.pos_(tok)}
	for !p.check(lexer.DEDENT) {
		switch {
		case p.check(lexer.KW_GRANTS):
			p.advance()
			items, err := p.parsePermissionItemList()
			if err != nil {
				return nil, err
			}
			pb.Grants = items
		case p.check(lexer.KW_DENIES):
			p.advance()
			items, err := p.parsePermissionItemList()
			if err != nil {
				return nil, err
			}
			pb.Denies = items
		case p.check(lexer.KW_ESCALATION):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'escalation'"); err != nil {
				return nil, err
			}
			s, err := p.consume(lexer.STRING, "as escalation policy")
			if err != nil {
				return nil, err
			}
			pb.Escalation = s.Value
		default:
			t := p.current()
			return nil, p.errf(t, "expected 'grants', 'denies', or 'escalation', found %s", t.Type)
		}
		if _, err := p.consume(lexer.NEWLINE, "after permissions entry"); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.DEDENT, "to close permissions block"); err != nil {
		return nil, err
	}
	return pb, nil
}

// parsePermissionItemList parses `: [ item, item, ... ]` where each item is
// read(path), write(path), or a bare capability name.
func (p *Parser) parsePermissionItemList() ([]ast.PermissionItem, error) {
	if _, err := p.consume(lexer.COLON, "after grants/denies"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.LBRACKET, "to start permission list"); err != nil {
		return nil, err
	}
	var items []ast.PermissionItem
	for !p.check(lexer.RBRACKET) {
		item, err := p.parsePermissionItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.consume(lexer.RBRACKET, "to close permission list"); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parsePermissionItem() (ast.PermissionItem, error) {
	tok := p.current()
	if tok.Type == lexer.IDENT && (tok.Value == "read" || tok.Value == "write") && p.peekAt(1).Type == lexer.LPAREN {
		kind := tok.Value
		p.advance()
		p.advance() // '('
		path, _, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.RPAREN, "to close permission path"); err != nil {
			return nil, err
		}
		if kind == "read" {
			return ast.ReadPermission{Path: path, Pos: p.pos_(tok)}, nil
		}
		return ast.WritePermission{Path: path, Pos: p.pos_(tok)}, nil
	}
	name, _, err := p.dottedName()
	if err != nil {
		return nil, err
	}
	return ast.CapabilityToken{Name: name, Pos: p.pos_(tok)}, nil
}
