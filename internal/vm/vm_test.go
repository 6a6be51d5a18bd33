package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/compiler"
	"github.com/covenant-lang/covenant/internal/parser"
	"github.com/covenant-lang/covenant/internal/stdlib"
	"github.com/covenant-lang/covenant/internal/vm"
)

func compileAndRun(t *testing.T, src, contractName string, args map[string]vm.Value) (vm.Value, error) {
	t.Helper()
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)
	mod, err := compiler.Compile(program, []string{"math"})
	require.NoError(t, err)
	machine := vm.New(mod, stdlib.NewDefault())
	return machine.RunContract(contractName, args)
}

func TestForInSumsAList(t *testing.T) {
	src := "contract total(xs: [Int]) -> Int\n" +
		"  body:\n" +
		"    sum = 0\n" +
		"    for x in xs:\n" +
		"      sum = sum + x\n" +
		"    return sum\n"
	result, err := compileAndRun(t, src, "total", map[string]vm.Value{
		"xs": vm.ListVal([]vm.Value{vm.IntVal(1), vm.IntVal(2), vm.IntVal(3)}),
	})
	require.NoError(t, err)
	require.Equal(t, vm.IntVal(6), result)
}

func TestWhileLoopCountsDown(t *testing.T) {
	src := "contract countdown(n: Int) -> Int\n" +
		"  body:\n" +
		"    total = 0\n" +
		"    while n > 0:\n" +
		"      total = total + n\n" +
		"      n = n - 1\n" +
		"    return total\n"
	result, err := compileAndRun(t, src, "countdown", map[string]vm.Value{"n": vm.IntVal(3)})
	require.NoError(t, err)
	require.Equal(t, vm.IntVal(6), result)
}

func TestOldExprComparesPreAndPostState(t *testing.T) {
	src := "contract increment(n: Int) -> Int\n" +
		"  postcondition:\n" +
		"    result == old(n) + 1\n" +
		"  body:\n" +
		"    return n + 1\n"
	result, err := compileAndRun(t, src, "increment", map[string]vm.Value{"n": vm.IntVal(5)})
	require.NoError(t, err)
	require.Equal(t, vm.IntVal(6), result)
}

func TestStringUpperBuiltin(t *testing.T) {
	src := "contract shout(word: String) -> String\n" +
		"  body:\n" +
		"    return word.upper()\n"
	result, err := compileAndRun(t, src, "shout", map[string]vm.Value{"word": vm.StringVal("hi")})
	require.NoError(t, err)
	require.Equal(t, vm.StringVal("HI"), result)
}

func TestListAppendBuiltin(t *testing.T) {
	src := "contract grow(xs: [Int], n: Int) -> [Int]\n" +
		"  body:\n" +
		"    return xs.append(n)\n"
	result, err := compileAndRun(t, src, "grow", map[string]vm.Value{
		"xs": vm.ListVal([]vm.Value{vm.IntVal(1), vm.IntVal(2)}),
		"n":  vm.IntVal(3),
	})
	require.NoError(t, err)
	require.Equal(t, vm.ListVal([]vm.Value{vm.IntVal(1), vm.IntVal(2), vm.IntVal(3)}), result)
}

func TestFieldAssignmentClonesRatherThanAliases(t *testing.T) {
	src := "contract rename(acct: Any) -> Any\n" +
		"  body:\n" +
		"    acct.name = \"new\"\n" +
		"    return acct\n"
	original := vm.ObjectVal(vm.NewObject("Account", []string{"name", "balance"}, []vm.Value{
		vm.StringVal("old"), vm.IntVal(10),
	}))
	result, err := compileAndRun(t, src, "rename", map[string]vm.Value{"acct": original})
	require.NoError(t, err)
	require.Equal(t, vm.StringVal("new"), result.Object.Fields["name"])
	require.Equal(t, vm.IntVal(10), result.Object.Fields["balance"])
	require.Equal(t, vm.StringVal("old"), original.Object.Fields["name"], "original object must not be mutated in place")
}

func TestUnknownContractCallIsLenientNull(t *testing.T) {
	src := "contract caller() -> Any\n" +
		"  body:\n" +
		"    return missing_contract()\n"
	result, err := compileAndRun(t, src, "caller", nil)
	require.NoError(t, err)
	require.Equal(t, vm.Null(), result)
}
