package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/lexer"
)

func tokenTypes(t *testing.T, src string) []lexer.TokenType {
	t.Helper()
	toks, err := lexer.Tokenize("t.cov", src)
	require.NoError(t, err)
	types := make([]lexer.TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeEmitsIndentDedentForNestedBlocks(t *testing.T) {
	src := "contract f()\n  body:\n    return 1\n"
	types := tokenTypes(t, src)
	require.Contains(t, types, lexer.INDENT)
	require.Contains(t, types, lexer.DEDENT)
	require.Equal(t, lexer.EOF, types[len(types)-1])
}

func TestTokenizeRecognizesLiterals(t *testing.T) {
	toks, err := lexer.Tokenize("t.cov", "42 3.5 \"hi\" true\n")
	require.NoError(t, err)
	require.Equal(t, lexer.INT, toks[0].Type)
	require.Equal(t, lexer.FLOAT, toks[1].Type)
	require.Equal(t, lexer.STRING, toks[2].Type)
	require.Equal(t, lexer.BOOL, toks[3].Type)
}

func TestTokenizeKeywordsAndIdentifiers(t *testing.T) {
	toks, err := lexer.Tokenize("t.cov", "contract add\n")
	require.NoError(t, err)
	require.Equal(t, lexer.KW_CONTRACT, toks[0].Type)
	require.Equal(t, lexer.IDENT, toks[1].Type)
	require.Equal(t, "add", toks[1].Value)
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	_, err := lexer.Tokenize("t.cov", "\"unterminated\n")
	require.Error(t, err)
}
