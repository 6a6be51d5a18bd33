// Package lexer converts Covenant source bytes into a token stream with
// indentation-sensitive INDENT/DEDENT tokens (spec §4.1).
package lexer

import "fmt"

// TokenType identifies the lexical category of a Token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	NEWLINE
	INDENT
	DEDENT

	IDENT
	INT
	FLOAT
	STRING
	BOOL

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COMMA
	COLON
	DOT
	EQUALS
	ARROW // ->

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	LT
	LE
	GT
	GE
	EQ
	NE

	// Keywords (closed table; many are also admissible as identifiers in
	// field-name position per §4.2's keyword-as-identifier rule)
	KW_CONTRACT
	KW_INTENT
	KW_SCOPE
	KW_RISK
	KW_REQUIRED_CAPABILITIES
	KW_USE
	KW_TYPE
	KW_FIELDS
	KW_FLOW
	KW_NEVER_FLOWS_TO
	KW_REQUIRES_CONTEXT
	KW_SHARED
	KW_ACCESS
	KW_ISOLATION
	KW_AUDIT
	KW_PRECONDITION
	KW_POSTCONDITION
	KW_EFFECTS
	KW_MODIFIES
	KW_READS
	KW_EMITS
	KW_TOUCHES_NOTHING_ELSE
	KW_PERMISSIONS
	KW_GRANTS
	KW_DENIES
	KW_ESCALATION
	KW_BODY
	KW_ON_FAILURE
	KW_PURE
	KW_RETURN
	KW_EMIT
	KW_IF
	KW_ELSE
	KW_FOR
	KW_IN
	KW_WHILE
	KW_OLD
	KW_HAS
	KW_AND
	KW_OR
	KW_NOT
	KW_NULL
	KW_LOW
	KW_MEDIUM
	KW_HIGH
	KW_CRITICAL
	KW_TRY
	KW_CATCH
	KW_FINALLY
	KW_AWAIT
	KW_ASYNC
)

var tokenNames = map[TokenType]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", NEWLINE: "NEWLINE", INDENT: "INDENT", DEDENT: "DEDENT",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING", BOOL: "BOOL",
	LPAREN: "LPAREN", RPAREN: "RPAREN", LBRACKET: "LBRACKET", RBRACKET: "RBRACKET",
	COMMA: "COMMA", COLON: "COLON", DOT: "DOT", EQUALS: "EQUALS", ARROW: "ARROW",
	PLUS: "PLUS", MINUS: "MINUS", STAR: "STAR", SLASH: "SLASH",
	LT: "LT", LE: "LE", GT: "GT", GE: "GE", EQ: "EQ", NE: "NE",
	KW_CONTRACT: "contract", KW_INTENT: "intent", KW_SCOPE: "scope", KW_RISK: "risk",
	KW_REQUIRED_CAPABILITIES: "required_capabilities", KW_USE: "use", KW_TYPE: "type",
	KW_FIELDS: "fields", KW_FLOW: "flow", KW_NEVER_FLOWS_TO: "never_flows_to",
	KW_REQUIRES_CONTEXT: "requires_context", KW_SHARED: "shared", KW_ACCESS: "access",
	KW_ISOLATION: "isolation", KW_AUDIT: "audit", KW_PRECONDITION: "precondition",
	KW_POSTCONDITION: "postcondition", KW_EFFECTS: "effects", KW_MODIFIES: "modifies",
	KW_READS: "reads", KW_EMITS: "emits", KW_TOUCHES_NOTHING_ELSE: "touches_nothing_else",
	KW_PERMISSIONS: "permissions", KW_GRANTS: "grants", KW_DENIES: "denies",
	KW_ESCALATION: "escalation", KW_BODY: "body", KW_ON_FAILURE: "on_failure",
	KW_PURE: "pure", KW_RETURN: "return", KW_EMIT: "emit", KW_IF: "if", KW_ELSE: "else",
	KW_FOR: "for", KW_IN: "in", KW_WHILE: "while", KW_OLD: "old", KW_HAS: "has",
	KW_AND: "and", KW_OR: "or", KW_NOT: "not", KW_NULL: "null",
	KW_LOW: "low", KW_MEDIUM: "medium", KW_HIGH: "high", KW_CRITICAL: "critical",
	KW_TRY: "try", KW_CATCH: "catch", KW_FINALLY: "finally", KW_AWAIT: "await", KW_ASYNC: "async",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords is the closed keyword table (§4.1).
var keywords = map[string]TokenType{}

func init() {
	for tt, name := range tokenNames {
		if tt >= KW_CONTRACT {
			keywords[name] = tt
		}
	}
	// "true"/"false" lex directly to BOOL, not a keyword token type.
}

// fieldPositionAllowed is the fixed subset of keywords the parser may
// request as plain identifiers when in dotted-name / field position
// (§4.2's keyword-as-identifier rule). The lexer always emits the
// keyword's token type; KeywordText recovers the literal spelling so the
// parser can treat it as an identifier value when appropriate.
var fieldPositionAllowed = map[TokenType]bool{
	KW_ACCESS: true, KW_AUDIT: true, KW_SCOPE: true, KW_RISK: true,
	KW_LOW: true, KW_MEDIUM: true, KW_HIGH: true, KW_CRITICAL: true,
	KW_FIELDS: true, KW_READS: true, KW_EMITS: true, KW_MODIFIES: true,
	KW_ISOLATION: true, KW_GRANTS: true, KW_DENIES: true, KW_BODY: true,
}

// IsFieldPositionAllowed reports whether tt may stand in for IDENT in a
// dotted-name or field-name position.
func IsFieldPositionAllowed(tt TokenType) bool {
	return fieldPositionAllowed[tt]
}

// Token is one lexical token with full position information.
type Token struct {
	Type   TokenType
	Value  string // literal text (identifier name, string contents, ...)
	Line   int
	Column int
}

// KeywordText returns the literal spelling of a keyword token.
func (t Token) KeywordText() string {
	if name, ok := tokenNames[t.Type]; ok {
		return name
	}
	return t.Value
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Value, t.Line, t.Column)
}
