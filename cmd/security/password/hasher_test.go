package password

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestHasher_HashVerify(t *testing.T) {
	var (
		mu  sync.Mutex
		ops []string
	)
	h := NewHasher(fastConfig(), WithObserver(func(op string, _ time.Duration) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
	}))
	ctx := context.Background()

	enc, err := h.Hash(ctx, "secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	cases := []struct {
		pw      string
		encoded string
		want    Outcome
	}{
		{pw: "secret1", encoded: enc, want: Match},
		{pw: "secret2", encoded: enc, want: Mismatch},
		{pw: "secret1", encoded: "garbage", want: Malformed},
	}
	for _, tc := range cases {
		got, err := h.Verify(ctx, tc.pw, tc.encoded)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tc.pw, err)
		}
		if got != tc.want {
			t.Fatalf("Verify(%q)=%v want=%v", tc.pw, got, tc.want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ops) != 4 || ops[0] != "hash" || ops[1] != "verify" {
		t.Fatalf("unexpected observed ops: %v", ops)
	}
}

func TestHasher_WaitHonorsContext(t *testing.T) {
	cfg := fastConfig()
	cfg.Concurrency = 1
	h := NewHasher(cfg)

	// Occupy the only slot.
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := h.Hash(ctx, "secret1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Hash: expected deadline exceeded, got %v", err)
	}
	if _, err := h.Verify(ctx, "secret1", "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Verify: expected deadline exceeded, got %v", err)
	}
}
