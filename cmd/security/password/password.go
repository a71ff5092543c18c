package password

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// Outcome is the result of checking a plaintext against a stored hash.
// Callers must treat Mismatch and Malformed identically towards clients.
type Outcome int

const (
	Mismatch Outcome = iota
	Match
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Malformed:
		return "malformed"
	default:
		return "mismatch"
	}
}

// Hash derives an Argon2id key from password under a fresh random salt and
// returns it in PHC form.
func (c Config) Hash(password string) (string, error) {
	if err := c.checkInput(password); err != nil {
		return "", err
	}

	p := phc{
		memoryKiB:   c.Params.MemoryKiB,
		iterations:  c.Params.Iterations,
		parallelism: c.Params.Parallelism,
		salt:        make([]byte, c.Params.SaltLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	p.key = derive(password, p, c.Params.KeyLength)
	return p.String(), nil
}

// Compare checks password against encodedHash. Hashes that do not parse or
// exceed the configured cost bounds are Malformed.
func (c Config) Compare(encodedHash, password string) Outcome {
	p, err := parsePHC(encodedHash)
	if err != nil || !p.affordable(c.Params) {
		return Malformed
	}
	if c.MaxLength > 0 && utf8.RuneCountInString(password) > c.MaxLength {
		return Mismatch
	}

	got := derive(password, p, uint32(len(p.key))) // #nosec G115 -- bounded by affordable.
	if subtle.ConstantTimeCompare(got, p.key) != 1 {
		return Mismatch
	}
	return Match
}

func derive(password string, p phc, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.iterations, p.memoryKiB, p.parallelism, keyLen)
}

func (c Config) checkInput(password string) error {
	switch {
	case password == "":
		return ErrPasswordEmpty
	case c.MaxLength > 0 && utf8.RuneCountInString(password) > c.MaxLength:
		return ErrPasswordTooLong
	}
	return nil
}
