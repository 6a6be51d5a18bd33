package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/bytecode"
)

func sampleModule() *bytecode.Module {
	return &bytecode.Module{
		Constants: []bytecode.Const{
			bytecode.IntConst(7),
			bytecode.StringConst("add"),
		},
		Contracts: []bytecode.CompiledContract{
			{
				Name:       "add",
				ParamNames: []string{"a", "b"},
				ParamTypes: []string{"Int", "Int"},
				HasReturn:  true,
				ReturnType: "Int",
				LocalCount: 3,
				LocalNames: []string{"a", "b", "result"},
				Code: []bytecode.Instr{
					{Op: bytecode.OpGetLocal, Index: 0},
					{Op: bytecode.OpGetLocal, Index: 1},
					{Op: bytecode.OpAdd},
					{Op: bytecode.OpSetLocal, Index: 2},
					{Op: bytecode.OpGetLocal, Index: 2},
					{Op: bytecode.OpReturn},
				},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	mod := sampleModule()

	var buf bytes.Buffer
	require.NoError(t, bytecode.Write(&buf, mod))

	got, err := bytecode.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, mod, got)
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bytecode.Write(&buf, sampleModule()))
	corrupt := buf.Bytes()
	corrupt[0] = 'X'

	_, err := bytecode.Read(bytes.NewReader(corrupt))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid magic number")
}

func TestDigestIsStableAcrossEqualModules(t *testing.T) {
	a, err := sampleModule().Digest()
	require.NoError(t, err)
	b, err := sampleModule().Digest()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDumpProducesCanonicalCBOR(t *testing.T) {
	mod := sampleModule()
	first, err := mod.Dump()
	require.NoError(t, err)
	second, err := mod.Dump()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
