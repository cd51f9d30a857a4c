// Package security hashes account passwords.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnknownAlgorithm = errors.New("unknown password encoder algorithm")

// PasswordEncoder turns a plaintext password and a per-user salt into a
// storable hash.
type PasswordEncoder interface {
	Encode(plain, salt string) (string, error)
	Verify(hash, plain, salt string) bool
}

// NewEncoder returns the encoder for algorithm ("argon2id" or "bcrypt").
func NewEncoder(algorithm string) (PasswordEncoder, error) {
	switch algorithm {
	case "", "argon2id":
		return Argon2Encoder{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}, nil
	case "bcrypt":
		return BcryptEncoder{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// NewSalt returns 16 random bytes, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Argon2Encoder derives an argon2id key with the salt as KDF salt.
type Argon2Encoder struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

func (e Argon2Encoder) Encode(plain, salt string) (string, error) {
	if salt == "" {
		return "", errors.New("argon2id: empty salt")
	}
	key := argon2.IDKey([]byte(plain), []byte(salt), e.Time, e.Memory, e.Threads, e.KeyLen)
	return base64.RawStdEncoding.EncodeToString(key), nil
}

func (e Argon2Encoder) Verify(hash, plain, salt string) bool {
	got, err := e.Encode(plain, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

// BcryptEncoder hashes the password merged with its salt as "password{salt}".
// bcrypt adds its own salt on top, so Encode is not deterministic.
type BcryptEncoder struct{ Cost int }

func (e BcryptEncoder) Encode(plain, salt string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(merge(plain, salt), e.Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (e BcryptEncoder) Verify(hash, plain, salt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), merge(plain, salt)) == nil
}

func merge(plain, salt string) []byte {
	if salt == "" {
		return []byte(plain)
	}
	return []byte(plain + "{" + salt + "}")
}
