package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
)

type fakeHandler struct {
	notified  []notify.Notification
	dismissed []uint32
	osd       []notify.OSDKind
	modes     []screenshot.CaptureMode
	actions   []session.Action
	launched  []string
	focused   []uint32
	closed    []uint32
	locks     int
	reloads   int
}

func (h *fakeHandler) Status(context.Context) (StatusData, error) {
	return StatusData{LockState: "unlocked", Windows: 2, ScreenWidth: 1280, ScreenHeight: 800}, nil
}

func (h *fakeHandler) Windows(context.Context) ([]WindowInfo, error) {
	return []WindowInfo{{ID: 7, Title: "xterm", Width: 640, Height: 480, Focused: true}}, nil
}

func (h *fakeHandler) Notify(_ context.Context, app, summary, body string, opts ...notify.Option) (uint32, error) {
	h.notified = append(h.notified, notify.New(app, summary, body, opts...))
	return uint32(len(h.notified)), nil
}

func (h *fakeHandler) Dismiss(_ context.Context, id uint32) error {
	if id == 99 {
		return errors.New("notification 99 not found")
	}
	h.dismissed = append(h.dismissed, id)
	return nil
}

func (h *fakeHandler) DismissAll(context.Context) (int, error) { return 3, nil }

func (h *fakeHandler) History(context.Context) ([]notify.Notification, error) { return nil, nil }

func (h *fakeHandler) ShowOSD(_ context.Context, kind notify.OSDKind, _ int) error {
	h.osd = append(h.osd, kind)
	return nil
}

func (h *fakeHandler) Lock(context.Context) error { h.locks++; return nil }

func (h *fakeHandler) Screenshot(_ context.Context, mode screenshot.CaptureMode) (ScreenshotData, error) {
	h.modes = append(h.modes, mode)
	if mode == screenshot.Region {
		return ScreenshotData{Pending: true}, nil
	}
	return ScreenshotData{Path: "/tmp/shot.png", Width: 10, Height: 10}, nil
}

func (h *fakeHandler) Power(_ context.Context, a session.Action) error {
	h.actions = append(h.actions, a)
	return nil
}

func (h *fakeHandler) Launch(_ context.Context, name string) (LaunchData, error) {
	h.launched = append(h.launched, name)
	return LaunchData{Name: "Terminal", Command: "xterm"}, nil
}

func (h *fakeHandler) Focus(_ context.Context, id uint32) error {
	h.focused = append(h.focused, id)
	return nil
}

func (h *fakeHandler) Close(_ context.Context, id uint32) error {
	h.closed = append(h.closed, id)
	return nil
}

func (h *fakeHandler) Reload(context.Context) error { h.reloads++; return nil }

func startServer(t *testing.T) (*fakeHandler, *Client) {
	t.Helper()
	h := &fakeHandler{}
	srv, err := NewServer(filepath.Join(t.TempDir(), "ds.sock"), h)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return h, NewClientAt(srv.SocketPath())
}

func TestClientServerRoundTrip(t *testing.T) {
	h, c := startServer(t)

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Windows != 2 || status.ScreenWidth != 1280 {
		t.Fatalf("status = %+v", status)
	}

	windows, err := c.ListWindows()
	if err != nil || len(windows) != 1 || windows[0].Title != "xterm" {
		t.Fatalf("ListWindows = %+v, %v", windows, err)
	}

	history, err := c.History()
	if err != nil || history == nil || len(history) != 0 {
		t.Fatalf("History = %#v, %v", history, err)
	}

	if n, err := c.DismissAll(); err != nil || n != 3 {
		t.Fatalf("DismissAll = %d, %v", n, err)
	}
	if err := c.Dismiss(4); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if err := c.Dismiss(99); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Dismiss(99) err = %v", err)
	}

	if err := c.ShowOSD("brightness", 40); err != nil {
		t.Fatalf("ShowOSD: %v", err)
	}
	if err := c.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := c.Power("poweroff"); err != nil {
		t.Fatalf("Power: %v", err)
	}
	if _, err := c.Launch("term"); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := c.Focus(7); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if err := c.Close(7); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	shot, err := c.Screenshot("region")
	if err != nil || !shot.Pending {
		t.Fatalf("Screenshot(region) = %+v, %v", shot, err)
	}
	shot, err = c.Screenshot("")
	if err != nil || shot.Path != "/tmp/shot.png" {
		t.Fatalf("Screenshot() = %+v, %v", shot, err)
	}

	if len(h.dismissed) != 1 || h.dismissed[0] != 4 {
		t.Fatalf("dismissed = %v", h.dismissed)
	}
	if len(h.osd) != 1 || h.osd[0] != notify.OSDBrightness {
		t.Fatalf("osd = %v", h.osd)
	}
	if h.locks != 1 || h.reloads != 1 {
		t.Fatalf("locks=%d reloads=%d", h.locks, h.reloads)
	}
	if len(h.actions) != 1 || h.actions[0] != session.Shutdown {
		t.Fatalf("actions = %v", h.actions)
	}
	if len(h.modes) != 2 || h.modes[0] != screenshot.Region || h.modes[1] != screenshot.FullScreen {
		t.Fatalf("modes = %v", h.modes)
	}
	if len(h.focused) != 1 || len(h.closed) != 1 || len(h.launched) != 1 {
		t.Fatalf("focused=%v closed=%v launched=%v", h.focused, h.closed, h.launched)
	}
}

func TestNotifyPayloadOptions(t *testing.T) {
	h, c := startServer(t)

	timeout := int64(2500)
	progress := 140
	id, err := c.Notify(NotifyPayload{
		Summary:   "Build finished",
		Urgency:   "critical",
		TimeoutMS: &timeout,
		Progress:  &progress,
		Actions:   []notify.Action{{ID: "open", Label: "Open"}},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d", id)
	}

	n := h.notified[0]
	if n.AppName != "deskshell" {
		t.Fatalf("app = %q", n.AppName)
	}
	if n.Urgency != notify.Critical {
		t.Fatalf("urgency = %v", n.Urgency)
	}
	if n.Timeout != 2500*time.Millisecond {
		t.Fatalf("explicit timeout lost: %v", n.Timeout)
	}
	if n.Progress == nil || *n.Progress != 100 {
		t.Fatalf("progress = %v", n.Progress)
	}
	if len(n.Actions) != 1 || n.Actions[0].ID != "open" {
		t.Fatalf("actions = %+v", n.Actions)
	}
}

func TestInvalidRequestsAreRejected(t *testing.T) {
	h, c := startServer(t)

	negative := int64(-1)
	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"missing summary", func() error { _, err := c.Notify(NotifyPayload{App: "x"}); return err }, "summary is required"},
		{"bad urgency", func() error { _, err := c.Notify(NotifyPayload{Summary: "s", Urgency: "loud"}); return err }, "urgency"},
		{"negative timeout", func() error { _, err := c.Notify(NotifyPayload{Summary: "s", TimeoutMS: &negative}); return err }, "negative"},
		{"bad osd kind", func() error { return c.ShowOSD("bass", 3) }, "osd kind"},
		{"bad mode", func() error { _, err := c.Screenshot("tiny"); return err }, "capture mode"},
		{"bad action", func() error { return c.Power("explode") }, "session action"},
		{"empty app", func() error { _, err := c.Launch(""); return err }, "app is required"},
		{"unknown command", func() error { return c.call("FROB", nil, nil) }, "Unknown command"},
		{"unknown field", func() error { return c.call(CommandDismiss, map[string]int{"idd": 1}, nil) }, "Invalid dismiss payload"},
	}
	for _, tt := range tests {
		err := tt.call()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.want)
		}
	}
	if len(h.notified) != 0 || len(h.actions) != 0 || len(h.launched) != 0 {
		t.Fatal("handler reached with an invalid request")
	}
}

func TestClientWithoutServer(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "none.sock"))
	if c.IsRunning() {
		t.Fatal("IsRunning with no server")
	}
	if err := c.Lock(); err == nil || !strings.Contains(err.Error(), "is deskshell running") {
		t.Fatalf("err = %v", err)
	}
}
