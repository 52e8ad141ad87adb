// Package hash derives short content fingerprints used for catalog
// checksums and embedding cache keys.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	gohash "hash"
)

// IDLength is the number of hex characters of a fingerprint (64 bits).
const IDLength = 16

// Text fingerprints a single string.
func Text(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:IDLength]
}

// Digest fingerprints a sequence of records made of string fields. Fields
// are length-prefixed, so ("ab", "c") and ("a", "bc") never collide.
type Digest struct {
	h   gohash.Hash
	buf [binary.MaxVarintLen64]byte
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Record adds one record.
func (d *Digest) Record(fields ...string) {
	n := binary.PutUvarint(d.buf[:], uint64(len(fields)))
	_, _ = d.h.Write(d.buf[:n])
	for _, f := range fields {
		n = binary.PutUvarint(d.buf[:], uint64(len(f)))
		_, _ = d.h.Write(d.buf[:n])
		_, _ = d.h.Write([]byte(f))
	}
}

// Sum returns the fingerprint of every record added so far.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))[:IDLength]
}
