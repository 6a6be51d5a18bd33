package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/parser"
)

func TestParseSimpleContract(t *testing.T) {
	src := "contract add(a: Int, b: Int) -> Int\n  body:\n    return a + b\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)
	require.Len(t, program.Contracts, 1)

	c := program.Contracts[0]
	require.Equal(t, "add", c.Name)
	require.Len(t, c.Params, 2)
	require.Equal(t, "a", c.Params[0].Name)
	require.Len(t, c.Body, 1)
	ret, ok := c.Body[0].(ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestDottedMethodCallParsesAsMethodCallExpr(t *testing.T) {
	src := "contract root(x: Float) -> Float\n  body:\n    return math.sqrt(x)\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)

	ret := program.Contracts[0].Body[0].(ast.ReturnStmt)
	call, ok := ret.Value.(ast.MethodCallExpr)
	require.True(t, ok, "math.sqrt(x) must parse as a MethodCallExpr, not a dotted CallExpr")
	obj, ok := call.Object.(ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "math", obj.Name)
	require.Equal(t, "sqrt", call.Method)
}

func TestPreconditionAndPostconditionSections(t *testing.T) {
	src := "contract withdraw(balance: Int, amount: Int) -> Int\n" +
		"  precondition:\n" +
		"    amount > 0\n" +
		"  postcondition:\n" +
		"    result <= old(balance)\n" +
		"  body:\n" +
		"    return balance - amount\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)
	c := program.Contracts[0]
	require.Len(t, c.Precondition, 1)
	require.Len(t, c.Postcondition, 1)
}

func TestMissingContractKeywordIsAParseError(t *testing.T) {
	_, err := parser.Parse("t.cov", "add(a, b)\n")
	require.Error(t, err)
}
