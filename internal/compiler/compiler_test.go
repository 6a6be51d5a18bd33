package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/compiler"
	"github.com/covenant-lang/covenant/internal/parser"
	"github.com/covenant-lang/covenant/internal/stdlib"
	"github.com/covenant-lang/covenant/internal/vm"
)

const addSource = "contract add(a: Int, b: Int) -> Int\n  body:\n    return a + b\n"

func TestCompileAndRunAdd(t *testing.T) {
	program, err := parser.Parse("add.cov", addSource)
	require.NoError(t, err)

	mod, err := compiler.Compile(program, nil)
	require.NoError(t, err)
	require.Len(t, mod.Contracts, 1)
	require.Equal(t, "add", mod.Contracts[0].Name)

	machine := vm.New(mod, stdlib.NewDefault())
	result, err := machine.RunContract("add", map[string]vm.Value{
		"a": vm.IntVal(3),
		"b": vm.IntVal(4),
	})
	require.NoError(t, err)
	require.Equal(t, vm.IntVal(7), result)
}

const preconditionSource = "contract withdraw(balance: Int, amount: Int) -> Int\n" +
	"  precondition:\n" +
	"    amount > 0\n" +
	"    amount <= balance\n" +
	"  body:\n" +
	"    return balance - amount\n"

func TestPreconditionViolationFails(t *testing.T) {
	program, err := parser.Parse("withdraw.cov", preconditionSource)
	require.NoError(t, err)

	mod, err := compiler.Compile(program, nil)
	require.NoError(t, err)

	machine := vm.New(mod, stdlib.NewDefault())
	_, err = machine.RunContract("withdraw", map[string]vm.Value{
		"balance": vm.IntVal(10),
		"amount":  vm.IntVal(50),
	})
	require.Error(t, err)
}

const moduleCallSource = "contract root(x: Float) -> Float\n  body:\n    return math.sqrt(x)\n"

func TestStdlibModuleCallCompilesToCallModule(t *testing.T) {
	program, err := parser.Parse("root.cov", moduleCallSource)
	require.NoError(t, err)

	mod, err := compiler.Compile(program, []string{"math"})
	require.NoError(t, err)

	machine := vm.New(mod, stdlib.NewDefault())
	result, err := machine.RunContract("root", map[string]vm.Value{"x": vm.FloatVal(9)})
	require.NoError(t, err)
	require.Equal(t, vm.FloatVal(3), result)
}
