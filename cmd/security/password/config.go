package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Config is the single configuration surface for this package.
// MaxLength caps the plaintext size fed to Argon2id; length rules for
// user-facing validation live in the request validators.
type Config struct {
	Params      Argon2idParams
	MaxLength   int
	Concurrency int64
}

// DefaultConfig returns the baseline used for interactive logins.
func DefaultConfig() Config {
	// Clamp to [1..4] to keep resource usage predictable in containers.
	threads := clampInt(runtime.NumCPU(), 1, 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // reasonable default for interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		MaxLength:   256,
		Concurrency: int64(clampInt(runtime.NumCPU(), 1, 8)),
	}
}

type envConfig struct {
	MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS"`
	Parallelism uint32 `env:"ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"ARGON2_SALT_LEN"`
	KeyLength   uint32 `env:"ARGON2_KEY_LEN"`
	MaxLength   int    `env:"PASSWORD_MAX_LEN"`
	Concurrency int64  `env:"HASH_CONCURRENCY"`
}

// FromEnv loads config from environment variables, starting from DefaultConfig.
//
// Env surface (with prefix, e.g. "USERSVC_"):
// - ARGON2_MEMORY_KIB   8 MiB .. 1 GiB
// - ARGON2_ITERATIONS   1 .. 20
// - ARGON2_PARALLELISM  1 .. 64
// - ARGON2_SALT_LEN     8 .. 64
// - ARGON2_KEY_LEN      16 .. 64
// - PASSWORD_MAX_LEN    16 .. 4096
// - HASH_CONCURRENCY    1 .. 256
func FromEnv(prefix string) (Config, error) {
	def := DefaultConfig()
	raw := envConfig{
		MemoryKiB:   def.Params.MemoryKiB,
		Iterations:  def.Params.Iterations,
		Parallelism: uint32(def.Params.Parallelism),
		SaltLength:  def.Params.SaltLength,
		KeyLength:   def.Params.KeyLength,
		MaxLength:   def.MaxLength,
		Concurrency: def.Concurrency,
	}
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}

	checks := []struct {
		name     string
		val      int64
		min, max int64
	}{
		{"ARGON2_MEMORY_KIB", int64(raw.MemoryKiB), 8 * 1024, 1024 * 1024},
		{"ARGON2_ITERATIONS", int64(raw.Iterations), 1, 20},
		{"ARGON2_PARALLELISM", int64(raw.Parallelism), 1, 64},
		{"ARGON2_SALT_LEN", int64(raw.SaltLength), 8, 64},
		{"ARGON2_KEY_LEN", int64(raw.KeyLength), 16, 64},
		{"PASSWORD_MAX_LEN", int64(raw.MaxLength), 16, 4096},
		{"HASH_CONCURRENCY", raw.Concurrency, 1, 256},
	}
	for _, c := range checks {
		if c.val < c.min || c.val > c.max {
			return Config{}, fmt.Errorf("%s%s: out of range [%d..%d]", prefix, c.name, c.min, c.max)
		}
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   raw.MemoryKiB,
			Iterations:  raw.Iterations,
			Parallelism: uint8(raw.Parallelism), // #nosec G115 -- range-checked above.
			SaltLength:  raw.SaltLength,
			KeyLength:   raw.KeyLength,
		},
		MaxLength:   raw.MaxLength,
		Concurrency: raw.Concurrency,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
