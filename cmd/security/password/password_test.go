package password

import (
	"strings"
	"testing"
)

// fastConfig keeps tests quick; production cost comes from DefaultConfig.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	cfg := fastConfig()

	h, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h == "secret1" || !strings.HasPrefix(h, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", h)
	}

	if got := cfg.Compare(h, "secret1"); got != Match {
		t.Fatalf("Compare=%v want match", got)
	}
}

func TestHash_FreshSaltEachCall(t *testing.T) {
	cfg := fastConfig()

	a, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("expected different encodings for the same password")
	}
	if cfg.Compare(a, "secret1") != Match || cfg.Compare(b, "secret1") != Match {
		t.Fatalf("both encodings must verify")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := fastConfig()

	h, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if got := cfg.Compare(h, "wrong"); got != Mismatch {
		t.Fatalf("Compare=%v want mismatch", got)
	}
}

func TestCompare_Malformed(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()

	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "plain", in: "not-a-hash"},
		{name: "bcrypt", in: "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"},
		{name: "wrong version", in: "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "bad params", in: "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "bad salt", in: "$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "zero parallelism", in: "$argon2id$v=19$m=8192,t=1,p=0$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "parallelism overflow", in: "$argon2id$v=19$m=8192,t=1,p=300$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "params out of order", in: "$argon2id$v=19$t=1,m=8192,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "argon2i", in: "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "oversized memory", in: "$argon2id$v=19$m=4194304,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := cfg.Compare(tc.in, "whatever"); got != Malformed {
				t.Fatalf("Compare(%q)=%v want malformed", tc.in, got)
			}
		})
	}

	if _, err := parsePHC("not-a-hash"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestHash_InputBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxLength = 16

	if _, err := cfg.Hash(""); err != ErrPasswordEmpty {
		t.Fatalf("expected ErrPasswordEmpty, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("x", 17)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("é", 16)); err != nil {
		t.Fatalf("16 runes must be accepted, got %v", err)
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	if Match.String() != "match" || Mismatch.String() != "mismatch" || Malformed.String() != "malformed" {
		t.Fatalf("unexpected outcome names")
	}
}

func TestPHC_RoundTrip(t *testing.T) {
	t.Parallel()

	in := phc{memoryKiB: 8192, iterations: 2, parallelism: 3, salt: []byte("saltsaltsaltsalt"), key: []byte("keykeykeykeykeyk")}
	enc := in.String()
	if !strings.HasPrefix(enc, "$argon2id$v=19$m=8192,t=2,p=3$") {
		t.Fatalf("unexpected encoding %q", enc)
	}

	out, err := parsePHC(enc)
	if err != nil {
		t.Fatalf("parsePHC: %v", err)
	}
	if out.memoryKiB != 8192 || out.iterations != 2 || out.parallelism != 3 ||
		string(out.salt) != string(in.salt) || string(out.key) != string(in.key) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
