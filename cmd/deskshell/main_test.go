package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/session"
)

func TestParseTimeoutMS(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"2500", 2500, false},
		{"5s", 5000, false},
		{"1m30s", 90000, false},
		{"0", 0, false},
		{"never", 0, false},
		{"-1", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTimeoutMS(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseTimeoutMS(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("parseTimeoutMS(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	a, err := parseAction(" open = Open file ")
	if err != nil || a.ID != "open" || a.Label != "Open file" {
		t.Fatalf("unexpected action %+v err=%v", a, err)
	}
	for _, bad := range []string{"open", "=Label", "open="} {
		if _, err := parseAction(bad); err == nil {
			t.Fatalf("parseAction(%q) should fail", bad)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("0x1a"); err != nil || id != 26 {
		t.Fatalf("parseID hex = %d, %v", id, err)
	}
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("parseID = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "abc", "4294967296"} {
		if _, err := parseID(bad); err == nil {
			t.Fatalf("parseID(%q) should fail", bad)
		}
	}
}

func TestNotifyFlagsPayload(t *testing.T) {
	f := notifyFlags{app: "build", urgency: "CRITICAL", timeout: "3s", progress: 40}
	p, err := f.payload("Done", "body")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Urgency != "critical" || p.TimeoutMS == nil || *p.TimeoutMS != 3000 || p.Progress == nil || *p.Progress != 40 {
		t.Fatalf("unexpected payload %+v", p)
	}

	unset := notifyFlags{progress: -1}
	p, err = unset.payload("x", "")
	if err != nil || p.TimeoutMS != nil || p.Progress != nil || p.Urgency != "" {
		t.Fatalf("unset options must stay nil: %+v %v", p, err)
	}

	for _, bad := range []notifyFlags{
		{urgency: "loud", progress: -1},
		{timeout: "later", progress: -1},
		{progress: 101},
	} {
		if _, err := bad.payload("x", ""); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PanelHeight = 32
	cfg.IdleTimeout = -1
	cfg.Lock.UserName = "robin"
	cfg.Apps = map[string]string{"Terminal": "kitty", "Editor": "code"}
	cfg.Notifications.MaxVisible = 3

	s := settingsFromConfig(cfg)
	if s.PanelHeight != 32 || s.IdleTimeout != -1 || s.User != "robin" || s.MaxVisible != 3 {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.Apps["Terminal"] != "kitty" || s.Apps["Editor"] != "code" {
		t.Fatalf("apps not carried over: %v", s.Apps)
	}
	if s.DefaultTimeout != 5*time.Second || s.AuthTimeout != 5*time.Second {
		t.Fatalf("durations not carried over: %+v", s)
	}
}

func TestHistoryPath(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	cfg := config.DefaultConfig()
	if got, want := historyPath(cfg), filepath.Join(state, "deskshell", "notifications.json.zst"); got != want {
		t.Fatalf("historyPath = %q, want %q", got, want)
	}
	cfg.Notifications.HistoryFile = "/var/tmp/h.zst"
	if got := historyPath(cfg); got != "/var/tmp/h.zst" {
		t.Fatalf("explicit history file ignored: %q", got)
	}
	cfg.Notifications.HistoryFile = "none"
	if got := historyPath(cfg); got != "" {
		t.Fatalf("disabled history should be empty, got %q", got)
	}
}

func TestAuthenticator(t *testing.T) {
	cfg := config.DefaultConfig()
	if authenticator(cfg, slog.Default()) != nil {
		t.Fatalf("no auth command must yield no authenticator")
	}
	cfg.Lock.AuthCommand = "pamtester login {user} authenticate"
	if authenticator(cfg, slog.Default()) == nil {
		t.Fatalf("expected an authenticator")
	}
}

func TestWatchedFilesIncludesMissingTopLevel(t *testing.T) {
	res := &config.LoadResult{Path: "/cfg/config.yaml", Files: []string{"/cfg/conf.d/10.yaml"}}
	got := watchedFiles(res)
	if len(got) != 2 || got[1] != "/cfg/config.yaml" {
		t.Fatalf("unexpected files %v", got)
	}

	res.Files = []string{"/cfg/config.yaml", "/cfg/conf.d/10.yaml"}
	if got := watchedFiles(res); len(got) != 2 {
		t.Fatalf("top-level path must not be duplicated: %v", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "/c.yaml"},
		{config.Source{Kind: config.SourceBuiltin, Name: "launcher"}, "builtin (launcher)"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestNeedsConfirm(t *testing.T) {
	for _, a := range session.Actions {
		want := a == session.Logout || a == session.Reboot || a == session.Shutdown
		if needsConfirm(a) != want {
			t.Fatalf("needsConfirm(%s) = %v", a, !want)
		}
	}
}

func TestWindowsTableTopOfStackFirst(t *testing.T) {
	out := windowsTable([]ipc.WindowInfo{
		{ID: 1, Title: "bottom-window", Width: 640, Height: 480},
		{ID: 2, Title: "top-window", Width: 800, Height: 600, Focused: true, Maximized: true},
	})
	top, bottom := strings.Index(out, "top-window"), strings.Index(out, "bottom-window")
	if top < 0 || bottom < 0 || top > bottom {
		t.Fatalf("expected top-window before bottom-window:\n%s", out)
	}
	if !strings.Contains(out, "focused,maximized") || !strings.Contains(out, "800x600+0+0") {
		t.Fatalf("missing state or geometry:\n%s", out)
	}
}

func TestStatusTableIdleDisabled(t *testing.T) {
	out := statusTable(&ipc.StatusData{LockState: "locked", IdleTimeoutSeconds: 0, LockoutSeconds: 30})
	if !strings.Contains(out, "disabled") || !strings.Contains(out, "30s") {
		t.Fatalf("unexpected status table:\n%s", out)
	}
}
