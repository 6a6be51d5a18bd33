package typeinfer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/diagnostic"
	"github.com/covenant-lang/covenant/internal/parser"
	"github.com/covenant-lang/covenant/internal/verify/typeinfer"
)

func codes(bag *diagnostic.Bag) []string {
	var out []string
	for _, d := range bag.All() {
		out = append(out, d.Code)
	}
	return out
}

func checkSource(t *testing.T, src string) *diagnostic.Bag {
	t.Helper()
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)
	bag := &diagnostic.Bag{}
	reg := typeinfer.BuildRegistry(program)
	for i := range program.Contracts {
		typeinfer.Check(bag, program, &program.Contracts[i], reg)
	}
	return bag
}

func TestT001FlagsArgumentTypeMismatchAtCallSite(t *testing.T) {
	src := "contract double(n: Int) -> Int\n" +
		"  body:\n" +
		"    return n + n\n" +
		"\n" +
		"contract caller(word: String) -> Int\n" +
		"  body:\n" +
		"    return double(word)\n"
	bag := checkSource(t, src)
	require.Contains(t, codes(bag), "T001")
}

func TestT002FlagsReturnTypeMismatch(t *testing.T) {
	src := "contract greet(name: String) -> Int\n" +
		"  body:\n" +
		"    return name\n"
	bag := checkSource(t, src)
	require.Contains(t, codes(bag), "T002")
}

func TestT003FlagsBinaryOperatorMismatch(t *testing.T) {
	src := "contract f(word: String, n: Int) -> Any\n" +
		"  body:\n" +
		"    return word - n\n"
	bag := checkSource(t, src)
	require.Contains(t, codes(bag), "T003")
}

func TestT003AllowsStringConcatenation(t *testing.T) {
	src := "contract greet(a: String, b: String) -> String\n" +
		"  body:\n" +
		"    return a + b\n"
	bag := checkSource(t, src)
	require.NotContains(t, codes(bag), "T003")
}

func TestT004FlagsWrongArgumentCount(t *testing.T) {
	src := "contract add(a: Int, b: Int) -> Int\n" +
		"  body:\n" +
		"    return a + b\n" +
		"\n" +
		"contract caller(x: Int) -> Int\n" +
		"  body:\n" +
		"    return add(x)\n"
	bag := checkSource(t, src)
	require.Contains(t, codes(bag), "T004")
}

func TestT005FlagsAnnotationOnUndeclaredType(t *testing.T) {
	src := "contract f(acct: Ledger) -> Int\n" +
		"  body:\n" +
		"    return 1\n"
	bag := checkSource(t, src)
	require.Contains(t, codes(bag), "T005")
}

func TestWellTypedContractHasNoTypeFindings(t *testing.T) {
	src := "contract add(a: Int, b: Int) -> Int\n  body:\n    return a + b\n"
	bag := checkSource(t, src)
	require.Empty(t, codes(bag))
}
