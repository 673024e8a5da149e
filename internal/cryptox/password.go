// Package cryptox implements the credential hasher: argon2id password hashes
// encoded in PHC string format.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32
)

// Params are the argon2id cost parameters written into every new hash.
// Verification always uses the parameters embedded in the stored hash, so
// changing them only affects hashes produced afterwards.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams returns t=1, m=64 MiB, p=4.
func DefaultParams() Params {
	return Params{Time: 1, Memory: 64 * 1024, Threads: 4}
}

// PasswordHasher hashes passwords at write time and verifies them at login.
type PasswordHasher interface {
	// Hash returns a self-describing encoded hash of password with a fresh salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded. A malformed encoded
	// value is reported as a mismatch.
	Verify(password, encoded string) bool
}

// Argon2idHasher implements PasswordHasher.
type Argon2idHasher struct {
	params Params
	rand   func([]byte) (int, error)
}

// NewArgon2idHasher creates a hasher producing hashes with p.
// Zero fields fall back to DefaultParams.
func NewArgon2idHasher(p Params) *Argon2idHasher {
	d := DefaultParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Memory == 0 {
		p.Memory = d.Memory
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	return &Argon2idHasher{params: p, rand: rand.Read}
}

// DeriveKey runs argon2id over password and salt.
func DeriveKey(password, salt []byte, p Params, length uint32) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, length)
}

// Hash produces $argon2id$v=19$m=<m>,t=<t>,p=<p>$<salt>$<hash>.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := h.rand(salt); err != nil {
		return "", oops.Code("HASH_SALT_FAILED").
			With("operation", "generate salt").
			Wrap(fmt.Errorf("%w: %w", common.ErrorHashing, err))
	}

	key := DeriveKey([]byte(password), salt, h.params, keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the embedded salt and parameters and
// compares in constant time.
func (h *Argon2idHasher) Verify(password, encoded string) bool {
	salt, expected, p, err := decodePHC(encoded)
	if err != nil {
		return false
	}

	candidate := DeriveKey([]byte(password), salt, p, uint32(len(expected))) //nolint:gosec // length bounded by decodePHC

	return subtle.ConstantTimeCompare(expected, candidate) == 1
}

func decodePHC(encoded string) (salt, key []byte, p Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, p, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, p, fmt.Errorf("unsupported version: %d", version)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return nil, nil, p, fmt.Errorf("parsing parameters: %w", err)
	}
	if threads == 0 || threads > 255 || p.Time == 0 || p.Memory == 0 {
		return nil, nil, p, fmt.Errorf("invalid parameters")
	}
	p.Threads = uint8(threads)

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, p, fmt.Errorf("decoding salt: %w", err)
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, p, fmt.Errorf("decoding hash: %w", err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return nil, nil, p, fmt.Errorf("invalid hash length: %d", len(key))
	}

	return salt, key, p, nil
}
