package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

func runAuthTest(args []string) int {
	fs := newFlagSet("auth-test",
		"Usage: deskshell auth-test [--config PATH] [--user NAME]",
		"",
		"Prompt for a password and check it with lock.auth_command, the same",
		"way the lock screen does.",
	)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/deskshell/config.yaml)")
	user := fs.String("user", "", "User to authenticate (default: lock.user_name or $USER)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}

	res, err := loadConfig(*configPath)
	if err != nil {
		return fail(err)
	}
	cfg := res.Config
	auth := authenticator(cfg, slog.Default())
	if auth == nil {
		return fail(fmt.Errorf("lock.auth_command is not configured"))
	}
	name := *user
	if name == "" {
		name = cfg.UserName()
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", name))
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Lock.AuthTimeout)
	defer cancel()
	if !auth.Verify(ctx, name, password) {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "authentication timed out after %s\n", cfg.Lock.AuthTimeout)
		} else {
			fmt.Fprintln(os.Stderr, "authentication failed")
		}
		return 1
	}
	fmt.Println("authentication ok")
	return 0
}

// readPassword reads without echo from a terminal, or one line from a pipe.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
