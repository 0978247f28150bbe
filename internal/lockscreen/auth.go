package lockscreen

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
)

// Authenticator verifies a user's password.
type Authenticator interface {
	Verify(ctx context.Context, user, password string) bool
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, user, password string) bool

func (f AuthenticatorFunc) Verify(ctx context.Context, user, password string) bool {
	return f(ctx, user, password)
}

// CommandAuthenticator runs an external helper with the password on stdin.
// Exit status zero means the password is valid. The literal "{user}" in any
// argument is replaced with the user name.
type CommandAuthenticator struct {
	Command []string
	Logger  *slog.Logger
}

var _ Authenticator = (*CommandAuthenticator)(nil)

// NewCommandAuthenticator builds an authenticator from argv. It returns nil
// when argv is empty.
func NewCommandAuthenticator(argv []string, logger *slog.Logger) *CommandAuthenticator {
	if len(argv) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandAuthenticator{Command: append([]string(nil), argv...), Logger: logger}
}

func (a *CommandAuthenticator) Verify(ctx context.Context, user, password string) bool {
	if a == nil || len(a.Command) == 0 {
		return false
	}
	args := make([]string, len(a.Command))
	for i, arg := range a.Command {
		args[i] = strings.ReplaceAll(arg, "{user}", user)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(password)
	err := cmd.Run()
	if err == nil {
		return true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		a.Logger.Debug("authentication rejected", "helper", args[0], "exit_code", exitErr.ExitCode())
	} else {
		a.Logger.Warn("authentication helper failed", "helper", args[0], "error", err)
	}
	return false
}
