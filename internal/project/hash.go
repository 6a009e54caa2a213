package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 of bundle bytes.
type Digest [32]byte

func DigestOf(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Combine hashes content followed by deps in the given order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first 12 hex digits.
func (d Digest) Short() string { return d.String()[:12] }
