// Package parser implements Covenant's LL(1) recursive-descent parser with
// explicit precedence climbing over the lexer's token stream (spec §4.2).
package parser

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/cverr"
	"github.com/covenant-lang/covenant/internal/lexer"
)

const maxDepth = 256

// Parser holds the token stream and current position. It trusts the lexer
// to have produced a correctly indentation-structured stream and focuses
// purely on assembling the AST; the first syntax error aborts parsing
// immediately (no recovery), per §4.2.
type Parser struct {
	file   string
	tokens []lexer.Token
	pos    int
	depth  int
}

// Parse tokenizes and parses src, returning the Program or the first error.
func Parse(file, src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := &Parser{file: file, tokens: toks}
	return p.parseProgram()
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current().Type == tt
}

func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(tt lexer.TokenType, context string) (lexer.Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	tok := p.current()
	return lexer.Token{}, p.errf(tok, "expected %s %s, found %s", tt, context, tok.Type)
}

func (p *Parser) errf(tok lexer.Token, format string, args ...interface{}) error {
	return cverr.At(cverr.KindParse, p.file, tok.Line, tok.Column, fmt.Sprintf(format, args...))
}

func (p *Parser) pos_(tok lexer.Token) ast.Position {
	return ast.Position{File: p.file, Line: tok.Line, Column: tok.Column}
}

// skipBlankLines consumes any run of NEWLINE tokens.
func (p *Parser) skipBlankLines() {
	for p.check(lexer.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errf(p.current(), "maximum parser recursion depth (%d) exceeded", maxDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

// ident consumes an identifier, accepting the fixed subset of keywords
// that are admissible in field-name / dotted-name position (§4.2).
func (p *Parser) ident(context string) (string, error) {
	tok := p.current()
	if tok.Type == lexer.IDENT {
		p.advance()
		return tok.Value, nil
	}
	if lexer.IsFieldPositionAllowed(tok.Type) {
		p.advance()
		return tok.KeywordText(), nil
	}
	return "", p.errf(tok, "expected identifier %s, found %s", context, tok.Type)
}

// dottedName parses a.b.c using ident() at each segment.
func (p *Parser) dottedName() (string, ast.Position, error) {
	tok := p.current()
	first, err := p.ident("in dotted name")
	if err != nil {
		return "", ast.Position{}, err
	}
	name := first
	for p.check(lexer.DOT) {
		p.advance()
		seg, err := p.ident("in dotted name")
		if err != nil {
			return "", ast.Position{}, err
		}
		name += "." + seg
	}
	return name, p.pos_(tok), nil
}

// ---------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipBlankLines()

	header, err := p.tryParseHeader()
	if err != nil {
		return nil, err
	}
	prog.Header = header
	p.skipBlankLines()

	for p.check(lexer.KW_USE) {
		u, err := p.parseUseDecl()
		if err != nil {
			return nil, err
		}
		prog.Uses = append(prog.Uses, *u)
		p.skipBlankLines()
	}

	for !p.check(lexer.EOF) {
		p.skipBlankLines()
		if p.check(lexer.EOF) {
			break
		}
		switch {
		case p.check(lexer.KW_TYPE):
			t, err := p.parseTypeDef()
			if err != nil {
				return nil, err
			}
			prog.Types = append(prog.Types, *t)
		case p.check(lexer.KW_SHARED):
			s, err := p.parseSharedStateDecl()
			if err != nil {
				return nil, err
			}
			prog.SharedState = append(prog.SharedState, *s)
		case p.check(lexer.KW_PURE), p.check(lexer.KW_CONTRACT):
			c, err := p.parseContractDef()
			if err != nil {
				return nil, err
			}
			prog.Contracts = append(prog.Contracts, *c)
		default:
			tok := p.current()
			return nil, p.errf(tok, "expected type/shared/contract declaration, found %s", tok.Type)
		}
		p.skipBlankLines()
	}
	return prog, nil
}

func (p *Parser) tryParseHeader() (*ast.FileHeader, error) {
	if !p.check(lexer.KW_INTENT) && !p.check(lexer.KW_SCOPE) && !p.check(lexer.KW_RISK) &&
		!p.check(lexer.KW_REQUIRED_CAPABILITIES) {
		return nil, nil
	}
	h := &ast.FileHeader{Pos: p.pos_(p.current())}
	for {
		switch {
		case p.check(lexer.KW_INTENT):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'intent'"); err != nil {
				return nil, err
			}
			tok, err := p.consume(lexer.STRING, "intent text")
			if err != nil {
				return nil, err
			}
			h.Intent = tok.Value
		case p.check(lexer.KW_SCOPE):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'scope'"); err != nil {
				return nil, err
			}
			name, _, err := p.dottedName()
			if err != nil {
				return nil, err
			}
			h.Scope = name
		case p.check(lexer.KW_RISK):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'risk'"); err != nil {
				return nil, err
			}
			lvl, err := p.parseRiskLevel()
			if err != nil {
				return nil, err
			}
			h.Risk = lvl
		case p.check(lexer.KW_REQUIRED_CAPABILITIES):
			p.advance()
			if _, err := p.consume(lexer.COLON, "after 'required_capabilities'"); err != nil {
				return nil, err
			}
			caps, err := p.parseBracketedIdentList()
			if err != nil {
				return nil, err
			}
			h.RequiredCapabilities = caps
		default:
			return h, nil
		}
		p.skipBlankLines()
	}
}

func (p *Parser) parseRiskLevel() (ast.RiskLevel, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.KW_LOW:
		p.advance()
		return ast.RiskLow, nil
	case lexer.KW_MEDIUM:
		p.advance()
		return ast.RiskMedium, nil
	case lexer.KW_HIGH:
		p.advance()
		return ast.RiskHigh, nil
	case lexer.KW_CRITICAL:
		p.advance()
		return ast.RiskCritical, nil
	default:
		return ast.RiskUnspecified, p.errf(tok, "expected risk level (low/medium/high/critical), found %s", tok.Type)
	}
}

func (p *Parser) parseBracketedIdentList() ([]string, error) {
	if _, err := p.consume(lexer.LBRACKET, "to start list"); err != nil {
		return nil, err
	}
	var items []string
	for !p.check(lexer.RBRACKET) {
		name, _, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		items = append(items, name)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.consume(lexer.RBRACKET, "to close list"); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parseUseDecl() (*ast.UseDecl, error) {
	tok := p.advance() // 'use'
	name, _, err := p.dottedName()
	if err != nil {
		return nil, err
	}
	return &ast.UseDecl{Path: name, Pos: p.pos_(tok)}, nil
}
