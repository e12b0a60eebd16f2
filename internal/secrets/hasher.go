// Package secrets implements the salted digest used for every stored
// credential: passwords, verification codes, reset tokens, and session
// tokens. The recipe is hex(SHA-256(secret || salt)) with a fresh UUIDv4
// salt per credential instance.
//
// SHA-256 is a fast digest, not a memory-hard KDF. Stored password digests
// only verify under this exact recipe, so swapping in argon2/bcrypt would
// invalidate every existing credential. Known weakness for password storage;
// see DESIGN.md before changing it.
package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
)

// Hash computes the hex-encoded SHA-256 digest of secret concatenated with
// salt. Deterministic: the same inputs always produce the same digest.
func Hash(secret, salt string) string {
	sum := sha256.Sum256([]byte(secret + salt))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a fresh random salt. A UUIDv4 carries 122 random bits.
// A salt is used for exactly one credential instance and never reused.
func NewSalt() string {
	return uuid.NewString()
}

// Verify recomputes the digest of secret with salt and compares it to
// expectedDigest in constant time.
func Verify(secret, salt, expectedDigest string) bool {
	computed := Hash(secret, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expectedDigest)) == 1
}
