package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// knownTerminals are tried in order when nothing else names a terminal.
var knownTerminals = []string{"foot", "kitty", "ghostty", "wezterm", "alacritty", "gnome-terminal", "konsole", "xterm"}

var (
	execLookPath         = exec.LookPath
	execCommandOutput    = func(name string, args ...string) ([]byte, error) { return exec.Command(name, args...).Output() }
	evalSymlinks         = filepath.EvalSymlinks
	detectSystemTerminal = defaultDetectSystemTerminal
)

// ResolveTerminal picks the command Super+T launches: preferred_terminal,
// then $TERMINAL, then the desktop's configured default, then the first
// known terminal on $PATH. preferred_terminal is used verbatim so it may
// carry arguments; the other sources must resolve to an executable.
func (c *Config) ResolveTerminal() string {
	if c == nil {
		return ""
	}

	if pref := strings.TrimSpace(c.PreferredTerminal); pref != "" {
		return pref
	}

	if env := normalizeTerminalRef(os.Getenv("TERMINAL")); env != "" && canSpawn(env) {
		return env
	}

	if sys := normalizeTerminalRef(detectSystemTerminal()); sys != "" && canSpawn(sys) {
		return sys
	}

	for _, exe := range knownTerminals {
		if canSpawn(exe) {
			return exe
		}
	}
	return ""
}

func canSpawn(exe string) bool {
	_, err := execLookPath(exe)
	return err == nil
}

func normalizeTerminalRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	ref = strings.Trim(ref, "\"'")
	if fields := strings.Fields(ref); len(fields) > 0 {
		ref = fields[0]
	}
	ref = strings.Trim(ref, "\"'")

	if strings.Contains(ref, "/") {
		ref = filepath.Base(ref)
	}
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, ".desktop")

	if ref == "x-terminal-emulator" {
		if resolved := resolveXTerminalEmulator(); resolved != "" {
			ref = resolved
		}
	}
	if strings.HasSuffix(ref, ".wrapper") {
		ref = strings.TrimSuffix(ref, ".wrapper")
	}

	return strings.TrimSpace(ref)
}

func resolveXTerminalEmulator() string {
	path, err := execLookPath("x-terminal-emulator")
	if err != nil {
		return ""
	}
	resolved, err := evalSymlinks(path)
	if err == nil && resolved != "" {
		return filepath.Base(resolved)
	}
	return filepath.Base(path)
}

func defaultDetectSystemTerminal() string {
	if resolved := resolveXTerminalEmulator(); resolved != "" && resolved != "x-terminal-emulator" {
		return resolved
	}

	out, err := execCommandOutput("gsettings", "get",
		"org.gnome.desktop.default-applications.terminal", "exec")
	if err == nil {
		term := strings.TrimSpace(string(out))
		term = strings.Trim(term, "\"'")
		term = strings.TrimSpace(term)
		if term != "" && term != "''" {
			return term
		}
	}

	kread := "kreadconfig5"
	if _, err := execLookPath(kread); err != nil {
		if _, err := execLookPath("kreadconfig6"); err == nil {
			kread = "kreadconfig6"
		}
	}
	out, err = execCommandOutput(kread, "--group", "General", "--key", "TerminalApplication")
	if err == nil {
		term := strings.TrimSpace(string(out))
		term = strings.Trim(term, "\"'")
		term = strings.TrimSpace(term)
		if term != "" {
			return term
		}
	}

	return ""
}

func splitCommand(s string) ([]string, error) {
	var out []string
	var buf strings.Builder
	inSingle := false
	inDouble := false
	escaped := false

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
	}

	for _, r := range s {
		if escaped {
			buf.WriteRune(r)
			escaped = false
			continue
		}
		if !inSingle && r == '\\' {
			escaped = true
			continue
		}
		if !inDouble && r == '\'' {
			inSingle = !inSingle
			continue
		}
		if !inSingle && r == '"' {
			inDouble = !inDouble
			continue
		}
		if !inSingle && !inDouble {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				flush()
				continue
			}
		}
		buf.WriteRune(r)
	}

	if escaped {
		return nil, fmt.Errorf("unfinished escape in command")
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in command")
	}

	flush()
	return out, nil
}
