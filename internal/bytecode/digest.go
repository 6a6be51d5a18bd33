package bytecode

import (
	"bytes"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the BLAKE2b-256 content digest of m's serialized form.
// This is a module-identity digest distinct from the intent hash (§4.7):
// it changes whenever compiled bytecode changes, including changes that
// do not alter a contract's behavioral fingerprint (e.g. constant pool
// reordering before dedup, or recompilation with different local names).
func (m *Module) Digest() ([32]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(buf.Bytes()), nil
}
