package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"usersvc/cmd/security/password"

	"golang.org/x/term"
)

const usage = `usage: usersvc [command]

commands:
  serve          run the HTTP server (default)
  migrate        apply pending schema migrations and exit
  hash-password  read a password and print its Argon2id hash
`

// Run is the CLI entrypoint used by cmd/usersvc.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
func Run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runCommand(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func runCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "serve":
		return serve(ctx)
	case "migrate":
		return migrate(ctx)
	case "hash-password":
		return hashPassword(ctx, stdin, stdout, stderr)
	case "help", "-h", "--help":
		_, _ = io.WriteString(stdout, usage)
		return nil
	default:
		_, _ = io.WriteString(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func migrate(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.dbBacked() {
		return errors.New("migrate: USERSVC_STORE must be sqlite or postgres")
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	st, err := openStore(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	return st.Close()
}

// readPassword is swapped in tests.
var readPassword = func(fd int) ([]byte, error) { return term.ReadPassword(fd) }

func hashPassword(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := password.FromEnv(EnvPrefix)
	if err != nil {
		return err
	}

	plain, err := promptPassword(stdin, stderr)
	if err != nil {
		return err
	}

	enc, err := password.NewHasher(cfg).Hash(ctx, plain)
	if err != nil {
		return fmt.Errorf("hash-password: %w", err)
	}
	_, err = fmt.Fprintln(stdout, enc)
	return err
}

// promptPassword reads from the terminal without echo, or the first line of
// stdin when it is not a terminal.
func promptPassword(stdin io.Reader, stderr io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		_, _ = io.WriteString(stderr, "Password: ")
		first, err := readPassword(fd)
		_, _ = io.WriteString(stderr, "\n")
		if err != nil {
			return "", err
		}
		_, _ = io.WriteString(stderr, "Confirm: ")
		second, err := readPassword(fd)
		_, _ = io.WriteString(stderr, "\n")
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("hash-password: passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("hash-password: empty password")
	}
	return line, nil
}
