package serialization

import (
	"crypto/sha256"
	"hash"
)

// Checksum returns the SHA-256 digest stored after a container body.
func Checksum(body []byte) [ChecksumSize]byte {
	return sha256.Sum256(body)
}

// bodyDigest hashes a body while it streams in, so a reader never holds
// more than the bytes that actually arrived.
type bodyDigest struct {
	hash.Hash
}

func newBodyDigest() bodyDigest {
	return bodyDigest{sha256.New()}
}

// verify reports ErrChecksumMismatch unless stored matches the bytes
// written so far.
func (d bodyDigest) verify(stored [ChecksumSize]byte) error {
	var sum [ChecksumSize]byte
	copy(sum[:], d.Sum(nil))
	if sum != stored {
		return ErrChecksumMismatch
	}
	return nil
}
