// Package token implements the single-use hashed-token primitive shared by
// verification codes, password reset tokens, and session tokens. The three
// kinds differ only in where their (digest, salt) pair is stored and which
// row flag marks them consumed; the issue/verify mechanics live here once.
package token

import (
	"github.com/google/uuid"

	"github.com/werkschau/server/internal/secrets"
)

// Issued is the result of minting a new token. Plaintext goes out of band
// (email link or cookie) and is never persisted; only Digest and Salt are
// written to the store.
type Issued struct {
	Plaintext string
	Digest    string
	Salt      string
}

// Issue mints a fresh token: a random UUIDv4 plaintext, a fresh salt, and
// the salted digest of the plaintext.
func Issue() Issued {
	plaintext := uuid.NewString()
	salt := secrets.NewSalt()
	return Issued{
		Plaintext: plaintext,
		Digest:    secrets.Hash(plaintext, salt),
		Salt:      salt,
	}
}

// Verify recomputes the digest of the presented plaintext with the stored
// salt and compares it to the stored digest. Callers must additionally
// check their record's consumed flag: a used token never authorizes a
// second transition, regardless of digest match.
func Verify(presented, storedDigest, storedSalt string) bool {
	return secrets.Verify(presented, storedSalt, storedDigest)
}
