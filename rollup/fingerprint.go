package rollup

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint is the hex-encoded SHA-256 digest of a row's cell values, used
// as the key for duplicate detection across runs.
type Fingerprint string

// FingerprintRow computes the fingerprint for an ordered list of cell values.
//
// Each cell is length-prefixed before being fed to the digest so that cell
// boundaries are unambiguous - ["ab",""] and ["a","b"] hash differently. An
// empty row is valid and hashes to a fixed fingerprint.
func FingerprintRow(cells []string) Fingerprint {
	h := sha256.New()
	var prefix [binary.MaxVarintLen64]byte

	for _, cell := range cells {
		n := binary.PutUvarint(prefix[:], uint64(len(cell)))
		h.Write(prefix[:n])
		h.Write([]byte(cell))
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
