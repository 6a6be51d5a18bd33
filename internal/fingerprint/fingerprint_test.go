package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/fingerprint"
	"github.com/covenant-lang/covenant/internal/parser"
)

func TestComputeDetectsBranchingAndLooping(t *testing.T) {
	src := "contract f(xs: [Int]) -> Int\n" +
		"  body:\n" +
		"    total = 0\n" +
		"    for x in xs:\n" +
		"      if x > 0:\n" +
		"        total = total + x\n" +
		"    return total\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)

	fp := fingerprint.Compute(&program.Contracts[0])
	require.True(t, fp.HasLooping)
	require.True(t, fp.HasBranching)
	require.Equal(t, 1, fp.ReturnCount)
	require.Contains(t, fp.Mutations, "total")
}

func TestComputeRecordsOldReferencesAndCapabilityChecks(t *testing.T) {
	src := "contract withdraw(balance: Int, amount: Int) -> Int\n" +
		"  body:\n" +
		"    opening = old(balance)\n" +
		"    amount has spend\n" +
		"    return opening - amount\n"
	program, err := parser.Parse("t.cov", src)
	require.NoError(t, err)

	fp := fingerprint.Compute(&program.Contracts[0])
	require.Contains(t, fp.OldReferences, "balance")
	require.Contains(t, fp.CapabilityChecks, "spend")
}
