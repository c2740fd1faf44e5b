package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme names a stored password encoding.
type Scheme string

const (
	SchemePlainText    Scheme = "plaintext"
	SchemeArgon2id     Scheme = "argon2id"
	SchemeLegacyHMAC   Scheme = "hmac-sha256"
	SchemeLegacyBcrypt Scheme = "bcrypt"
)

// Verifier checks a password against one stored encoding.
type Verifier interface {
	Scheme() Scheme
	Verify(password, stored string) bool
}

// Match describes which verifier accepted a password.
type Match struct {
	Scheme         Scheme
	NeedsMigration bool
}

// Codec hashes passwords canonically and verifies them against every encoding
// that has ever been stored, in a fixed priority order.
type Codec struct {
	cfg       Argon2Config
	verifiers []Verifier
}

// NewCodec builds the verifier chain: plain text, canonical argon2id, keyed
// HMAC-SHA256 (only when legacyKey is set), then bcrypt.
func NewCodec(cfg Argon2Config, legacyKey []byte) *Codec {
	verifiers := []Verifier{
		plainTextVerifier{},
		argon2Verifier{},
	}
	if len(legacyKey) > 0 {
		verifiers = append(verifiers, hmacVerifier{key: legacyKey})
	}
	verifiers = append(verifiers, bcryptVerifier{})

	return &Codec{cfg: cfg, verifiers: verifiers}
}

// Hash returns the canonical encoding of password.
func (c *Codec) Hash(password string) (string, error) {
	return HashPasswordWithConfig(password, c.cfg)
}

// Verify tries each verifier in order and stops at the first match.
func (c *Codec) Verify(password, stored string) (Match, bool) {
	if stored == "" {
		return Match{}, false
	}
	for _, v := range c.verifiers {
		if v.Verify(password, stored) {
			return Match{
				Scheme:         v.Scheme(),
				NeedsMigration: v.Scheme() != SchemeArgon2id,
			}, true
		}
	}
	return Match{}, false
}

// Schemes lists the verifier order, mostly for diagnostics.
func (c *Codec) Schemes() []Scheme {
	out := make([]Scheme, len(c.verifiers))
	for i, v := range c.verifiers {
		out[i] = v.Scheme()
	}
	return out
}

type plainTextVerifier struct{}

func (plainTextVerifier) Scheme() Scheme { return SchemePlainText }

// Verify never matches a value that is itself a recognised encoding, so a
// leaked hash cannot be replayed as a password.
func (plainTextVerifier) Verify(password, stored string) bool {
	if looksEncoded(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

type argon2Verifier struct{}

func (argon2Verifier) Scheme() Scheme { return SchemeArgon2id }

func (argon2Verifier) Verify(password, stored string) bool {
	if !IsArgon2Hash(stored) {
		return false
	}
	ok, err := VerifyPassword(password, stored)
	return err == nil && ok
}

type hmacVerifier struct {
	key []byte
}

func (hmacVerifier) Scheme() Scheme { return SchemeLegacyHMAC }

func (v hmacVerifier) Verify(password, stored string) bool {
	want, err := hex.DecodeString(strings.TrimSpace(stored))
	if err != nil || len(want) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), want)
}

// LegacyHMAC produces the historical keyed encoding. Only tests and data
// fixtures need it.
func LegacyHMAC(key []byte, password string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

type bcryptVerifier struct{}

func (bcryptVerifier) Scheme() Scheme { return SchemeLegacyBcrypt }

func (bcryptVerifier) Verify(password, stored string) bool {
	if !isBcryptHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

func looksEncoded(stored string) bool {
	if IsArgon2Hash(stored) || isBcryptHash(stored) {
		return true
	}
	if len(stored) == hex.EncodedLen(sha256.Size) {
		if _, err := hex.DecodeString(stored); err == nil {
			return true
		}
	}
	return false
}
