package password

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Hasher runs Config.Hash and Config.Compare under a concurrency bound.
// It is safe for concurrent use.
type Hasher struct {
	cfg     Config
	sem     *semaphore.Weighted
	observe func(op string, d time.Duration)
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithObserver reports the wall time of every hash ("hash") and verify ("verify")
// computation, excluding time spent waiting for a slot.
func WithObserver(fn func(op string, d time.Duration)) HasherOption {
	return func(h *Hasher) {
		if fn != nil {
			h.observe = fn
		}
	}
}

// NewHasher constructs a Hasher. Concurrency <= 0 means one computation at a time.
func NewHasher(cfg Config, opts ...HasherOption) *Hasher {
	n := cfg.Concurrency
	if n <= 0 {
		n = 1
	}
	h := &Hasher{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(n),
		observe: func(string, time.Duration) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Config returns the hashing configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Hash returns a freshly salted encoded hash of plaintext.
// It fails only on invalid input, salt generation, or ctx cancellation while waiting.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	start := time.Now()
	enc, err := h.cfg.Hash(plaintext)
	h.observe("hash", time.Since(start))
	return enc, err
}

// Verify compares plaintext with encoded. The error is non-nil only when ctx
// ends before a slot frees up; malformed hashes are reported as Malformed.
func (h *Hasher) Verify(ctx context.Context, plaintext, encoded string) (Outcome, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return Mismatch, err
	}
	defer h.sem.Release(1)

	start := time.Now()
	out := h.cfg.Compare(encoded, plaintext)
	h.observe("verify", time.Since(start))
	return out, nil
}
