package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/parser"
	"github.com/covenant-lang/covenant/internal/stdlib"
	"github.com/covenant-lang/covenant/internal/verify"
)

func TestMissingReturnPathIsFlagged(t *testing.T) {
	src := "contract maybe(x: Int) -> Int\n" +
		"  body:\n" +
		"    if x > 0:\n" +
		"      return x\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)

	bag := verify.Program(program, stdlib.NewDefault())
	var codes []string
	for _, d := range bag.All() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "V001")
}

func TestCompleteContractHasNoFindings(t *testing.T) {
	src := "intent: \"sum two numbers for the calc module\"\n" +
		"scope: calc.sum\n" +
		"risk: low\n" +
		"\n" +
		"contract add(a: Int, b: Int) -> Int\n  body:\n    return a + b\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)

	bag := verify.Program(program, stdlib.NewDefault())
	require.Empty(t, bag.All())
}
