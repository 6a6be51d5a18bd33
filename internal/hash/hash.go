// Package hash computes the intent/fingerprint hashes used for drift
// detection between a contract's declared intent and its implementation
// (spec §4.7).
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/covenant-lang/covenant/internal/fingerprint"
)

// Digest is a hex-encoded SHA-256 sum.
type Digest string

// IntentHash hashes the raw declared intent string.
func IntentHash(intent string) Digest {
	sum := sha256.Sum256([]byte(intent))
	return Digest(hex.EncodeToString(sum[:]))
}

// canonicalFingerprint mirrors fingerprint.Fingerprint but with explicit
// field ordering guaranteed by struct-tag-ordered JSON marshaling, and with
// every slice pre-sorted so canonical_json is deterministic across runs
// regardless of map iteration order upstream.
type canonicalFingerprint struct {
	Reads            []string `json:"reads"`
	Mutations        []string `json:"mutations"`
	Calls            []string `json:"calls"`
	EmittedEvents    []string `json:"emitted_events"`
	OldReferences    []string `json:"old_references"`
	CapabilityChecks []string `json:"capability_checks"`
	Operators        []string `json:"operators"`
	Literals         []string `json:"literals"`
	HasBranching     bool     `json:"has_branching"`
	HasLooping       bool     `json:"has_looping"`
	HasRecursion     bool     `json:"has_recursion"`
	MaxNestingDepth  int      `json:"max_nesting_depth"`
	ReturnCount      int      `json:"return_count"`
}

func canonicalize(fp fingerprint.Fingerprint) canonicalFingerprint {
	return canonicalFingerprint{
		Reads:            sortedCopy(fp.Reads),
		Mutations:        sortedCopy(fp.Mutations),
		Calls:            sortedCopy(fp.Calls),
		EmittedEvents:    sortedCopy(fp.EmittedEvents),
		OldReferences:    sortedCopy(fp.OldReferences),
		CapabilityChecks: sortedCopy(fp.CapabilityChecks),
		Operators:        sortedCopy(fp.Operators),
		Literals:         sortedCopy(fp.Literals),
		HasBranching:     fp.HasBranching,
		HasLooping:       fp.HasLooping,
		HasRecursion:     fp.HasRecursion,
		MaxNestingDepth:  fp.MaxNestingDepth,
		ReturnCount:      fp.ReturnCount,
	}
}

func sortedCopy(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// FingerprintHash hashes the canonical JSON encoding of fp.
func FingerprintHash(fp fingerprint.Fingerprint) (Digest, error) {
	buf, err := json.Marshal(canonicalize(fp))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	return Digest(hex.EncodeToString(sum[:])), nil
}

// CombinedHash is SHA-256(intentHash || fingerprintHash), the value
// actually recorded against a contract as its intent hash (§4.7).
func CombinedHash(intent Digest, fp Digest) Digest {
	sum := sha256.Sum256([]byte(string(intent) + string(fp)))
	return Digest(hex.EncodeToString(sum[:]))
}

// DriftKind classifies how an implementation has changed relative to a
// previously recorded fingerprint.
type DriftKind int

const (
	// DriftNone: fingerprint is byte-identical to the recorded one.
	DriftNone DriftKind = iota
	// DriftSemantic: the fingerprint changed but stayed within a shape the
	// checker considers benign (e.g. a call added to an already-reads set).
	DriftSemantic
	// DriftRequiresReview: a change to effects, capability checks, or
	// recursion/branching shape — anything that could alter risk posture.
	DriftRequiresReview
	// DriftRequiresReverify: the return-count or old-reference set changed,
	// meaning the postcondition reasoning that produced the recorded intent
	// hash may no longer be sound.
	DriftRequiresReverify
)

func (k DriftKind) String() string {
	switch k {
	case DriftNone:
		return "none"
	case DriftSemantic:
		return "semantic_drift"
	case DriftRequiresReview:
		return "human_review"
	case DriftRequiresReverify:
		return "re_verify_intent"
	default:
		return "unknown"
	}
}

// DriftReport is the supplemented diff between two fingerprints of the same
// contract taken at different times (original_source/ carries a richer
// diff than the distilled spec's single DriftKind verdict; we keep both).
type DriftReport struct {
	Kind         DriftKind
	AddedCalls   []string
	RemovedCalls []string
	AddedReads   []string
	RemovedReads []string
	AddedMutations   []string
	RemovedMutations []string
	AddedCapabilityChecks []string
	RemovedCapabilityChecks []string
	ReturnCountChanged bool
	OldReferencesChanged bool
	RecursionChanged     bool
}

// Diff compares two fingerprints and classifies the drift.
func Diff(oldFP, newFP fingerprint.Fingerprint) DriftReport {
	r := DriftReport{
		AddedCalls:              diffSet(oldFP.Calls, newFP.Calls),
		RemovedCalls:            diffSet(newFP.Calls, oldFP.Calls),
		AddedReads:              diffSet(oldFP.Reads, newFP.Reads),
		RemovedReads:            diffSet(newFP.Reads, oldFP.Reads),
		AddedMutations:          diffSet(oldFP.Mutations, newFP.Mutations),
		RemovedMutations:        diffSet(newFP.Mutations, oldFP.Mutations),
		AddedCapabilityChecks:   diffSet(oldFP.CapabilityChecks, newFP.CapabilityChecks),
		RemovedCapabilityChecks: diffSet(newFP.CapabilityChecks, oldFP.CapabilityChecks),
		ReturnCountChanged:      oldFP.ReturnCount != newFP.ReturnCount,
		OldReferencesChanged:    !stringSetEqual(oldFP.OldReferences, newFP.OldReferences),
		RecursionChanged:        oldFP.HasRecursion != newFP.HasRecursion,
	}

	switch {
	case fingerprintsEqual(oldFP, newFP):
		r.Kind = DriftNone
	case r.ReturnCountChanged || r.OldReferencesChanged:
		r.Kind = DriftRequiresReverify
	case len(r.RemovedMutations) > 0 || len(r.AddedMutations) > 0 ||
		len(r.AddedCapabilityChecks) > 0 || len(r.RemovedCapabilityChecks) > 0 ||
		r.RecursionChanged || oldFP.HasBranching != newFP.HasBranching || oldFP.HasLooping != newFP.HasLooping:
		r.Kind = DriftRequiresReview
	default:
		r.Kind = DriftSemantic
	}
	return r
}

func fingerprintsEqual(a, b fingerprint.Fingerprint) bool {
	ha, err1 := FingerprintHash(a)
	hb, err2 := FingerprintHash(b)
	return err1 == nil && err2 == nil && ha == hb
}

// diffSet returns elements of b not present in a (both assumed sorted-ish;
// membership, not order, is what matters here).
func diffSet(a, b []string) []string {
	present := map[string]bool{}
	for _, x := range a {
		present[x] = true
	}
	var out []string
	for _, x := range b {
		if !present[x] {
			out = append(out, x)
		}
	}
	return out
}

func stringSetEqual(a, b []string) bool {
	return len(diffSet(a, b)) == 0 && len(diffSet(b, a)) == 0
}
