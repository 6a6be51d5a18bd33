package hash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/fingerprint"
	"github.com/covenant-lang/covenant/internal/hash"
	"github.com/covenant-lang/covenant/internal/parser"
)

func TestIntentHashIsDeterministic(t *testing.T) {
	require.Equal(t, hash.IntentHash("transfer funds between accounts"), hash.IntentHash("transfer funds between accounts"))
	require.NotEqual(t, hash.IntentHash("a"), hash.IntentHash("b"))
}

func TestFingerprintHashIsStableAcrossEquivalentBodies(t *testing.T) {
	srcA := "contract f(x: Int) -> Int\n  body:\n    y = x + 1\n    return y\n"
	srcB := "contract f(x: Int) -> Int\n  body:\n    y = 1 + x\n    return y\n"

	progA, err := parser.Parse("a.cov", srcA)
	require.NoError(t, err)
	progB, err := parser.Parse("b.cov", srcB)
	require.NoError(t, err)

	fpA := fingerprint.Compute(&progA.Contracts[0])
	fpB := fingerprint.Compute(&progB.Contracts[0])

	hashA, err := hash.FingerprintHash(fpA)
	require.NoError(t, err)
	hashB, err := hash.FingerprintHash(fpB)
	require.NoError(t, err)
	require.Equal(t, hashA, hashB, "swapping the operands of a commutative operator must not change the structural fingerprint")
}

func TestDiffDetectsAddedCall(t *testing.T) {
	before := "contract f(x: Int) -> Int\n  body:\n    return x\n"
	after := "contract f(x: Int) -> Int\n  body:\n    return abs(x)\n"

	progBefore, err := parser.Parse("before.cov", before)
	require.NoError(t, err)
	progAfter, err := parser.Parse("after.cov", after)
	require.NoError(t, err)

	fpBefore := fingerprint.Compute(&progBefore.Contracts[0])
	fpAfter := fingerprint.Compute(&progAfter.Contracts[0])

	report := hash.Diff(fpBefore, fpAfter)
	require.NotEqual(t, hash.DriftNone, report.Kind)
	require.Contains(t, report.AddedCalls, "abs")
}
