package launch

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Spawner starts detached child processes with the display environment the
// shell publishes.
type Spawner struct {
	env    []string
	logger *slog.Logger

	// command is swapped in tests.
	command func(name string, args ...string) *exec.Cmd
}

// NewSpawner returns a spawner that adds env (KEY=VALUE entries) to every
// child's inherited environment.
func NewSpawner(env []string, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{
		env:     append([]string(nil), env...),
		logger:  logger,
		command: exec.Command,
	}
}

// Spawn starts argv without waiting for it. The child is reaped in the
// background and a non-zero exit is only logged.
func (s *Spawner) Spawn(argv []string) error {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return errors.New("empty command")
	}

	cmd := s.command(argv[0], argv[1:]...)
	cmd.Env = cmd.Environ()
	for _, kv := range s.env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		cmd.Env = upsertEnv(cmd.Env, k, v)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	s.logger.Info("launched process", "command", argv[0], "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("process exited", "command", argv[0], "error", err)
		}
	}()
	return nil
}

// SpawnCommand splits a shell-like command line and spawns it.
func (s *Spawner) SpawnCommand(command string) error {
	argv, err := SplitCommand(command)
	if err != nil {
		return err
	}
	return s.Spawn(argv)
}

func upsertEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// SplitCommand breaks a command line into argv, honouring single quotes,
// double quotes and backslash escapes. No other shell syntax is interpreted.
func SplitCommand(s string) ([]string, error) {
	var out []string
	var buf strings.Builder
	inSingle := false
	inDouble := false
	escaped := false
	started := false

	flush := func() {
		if !started {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
		started = false
	}

	for _, r := range s {
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case !inSingle && r == '\\':
			escaped = true
			started = true
		case !inDouble && r == '\'':
			inSingle = !inSingle
			started = true
		case !inSingle && r == '"':
			inDouble = !inDouble
			started = true
		case !inSingle && !inDouble && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			buf.WriteRune(r)
			started = true
		}
	}

	if escaped {
		return nil, errors.New("unfinished escape in command")
	}
	if inSingle || inDouble {
		return nil, errors.New("unterminated quote in command")
	}
	flush()
	return out, nil
}
