package app

import (
	"bytes"
	"strings"
	"testing"

	"usersvc/cmd/security/password"
)

func TestRunCommand_Help(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand(t.Context(), []string{"help"}, strings.NewReader(""), &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "hash-password") {
		t.Fatalf("usage not printed: %q", out.String())
	}
}

func TestRunCommand_Unknown(t *testing.T) {
	var errOut bytes.Buffer
	err := runCommand(t.Context(), []string{"frobnicate"}, strings.NewReader(""), &bytes.Buffer{}, &errOut)
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if !strings.Contains(errOut.String(), "usage:") {
		t.Fatalf("usage not printed to stderr")
	}
}

func TestRunCommand_MigrateNeedsDatabase(t *testing.T) {
	t.Setenv("USERSVC_STORE", "memory")
	err := runCommand(t.Context(), []string{"migrate"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for memory store")
	}
}

func TestRunCommand_MigrateSQLite(t *testing.T) {
	t.Setenv("USERSVC_STORE", "sqlite")
	t.Setenv("USERSVC_SQLITE_PATH", t.TempDir()+"/m.db")
	t.Setenv("USERSVC_LOG_FORMAT", "json")
	t.Setenv("USERSVC_LOG_LEVEL", "error")
	if err := runCommand(t.Context(), []string{"migrate"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestRunCommand_HashPasswordFromPipe(t *testing.T) {
	t.Setenv("USERSVC_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("USERSVC_ARGON2_ITERATIONS", "1")
	t.Setenv("USERSVC_ARGON2_PARALLELISM", "1")

	var out bytes.Buffer
	err := runCommand(t.Context(), []string{"hash-password"}, strings.NewReader("s3cret!\r\nignored\n"), &out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}

	enc := strings.TrimSpace(out.String())
	if !strings.HasPrefix(enc, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %q", enc)
	}
	cfg, err := password.FromEnv(EnvPrefix)
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if got := cfg.Compare(enc, "s3cret!"); got != password.Match {
		t.Fatalf("Compare=%v want match", got)
	}
}

func TestRunCommand_HashPasswordEmpty(t *testing.T) {
	err := runCommand(t.Context(), []string{"hash-password"}, strings.NewReader("\n"), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for empty password")
	}
}
