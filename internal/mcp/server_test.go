package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
)

type fakeSession struct {
	status   ipc.StatusData
	windows  []ipc.WindowInfo
	history  []notify.Notification
	visible  int
	nextID   uint32
	notified []ipc.NotifyPayload
	focused  []uint32
	closed   []uint32
	osd      []string
	locked   bool
	shots    []string
	power    []string
	launched []string
	reloads  int
	err      error
}

func (f *fakeSession) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	return &st, nil
}

func (f *fakeSession) ListWindows() ([]ipc.WindowInfo, error) { return f.windows, f.err }

func (f *fakeSession) Focus(id uint32) error {
	f.focused = append(f.focused, id)
	return f.err
}

func (f *fakeSession) Close(id uint32) error {
	f.closed = append(f.closed, id)
	return f.err
}

func (f *fakeSession) Notify(p ipc.NotifyPayload) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.visible++
	f.notified = append(f.notified, p)
	return f.nextID, nil
}

func (f *fakeSession) Dismiss(id uint32) error {
	if id > f.nextID {
		return errors.New("notification not found")
	}
	f.visible--
	return nil
}

func (f *fakeSession) DismissAll() (int, error) {
	n := f.visible
	f.visible = 0
	return n, nil
}

func (f *fakeSession) History() ([]notify.Notification, error) { return f.history, f.err }

func (f *fakeSession) ShowOSD(kind string, value int) error {
	f.osd = append(f.osd, kind)
	return f.err
}

func (f *fakeSession) Lock() error {
	f.locked = true
	return f.err
}

func (f *fakeSession) Screenshot(mode string) (*ipc.ScreenshotData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.shots = append(f.shots, mode)
	if mode == "region" {
		return &ipc.ScreenshotData{Pending: true}, nil
	}
	return &ipc.ScreenshotData{Path: "/tmp/shot.png", Width: 800, Height: 600}, nil
}

func (f *fakeSession) Power(action string) error {
	f.power = append(f.power, action)
	return f.err
}

func (f *fakeSession) Launch(app string) (*ipc.LaunchData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.launched = append(f.launched, app)
	return &ipc.LaunchData{Name: "Terminal", Command: "foot"}, nil
}

func (f *fakeSession) Reload() error {
	f.reloads++
	return f.err
}

func newTestServer(f *fakeSession) *Server {
	return NewServer(f, nil)
}

func resultText(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected text content")
	}
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("expected *TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestNotify_DefaultsAppAndForwardsFields(t *testing.T) {
	f := &fakeSession{}
	s := newTestServer(f)
	timeout := int64(2500)

	_, out, err := s.handleNotify(context.Background(), nil, NotifyInput{
		Summary:   "Build finished",
		Body:      "all green",
		Urgency:   "low",
		TimeoutMS: &timeout,
	})
	if err != nil {
		t.Fatalf("handleNotify: %v", err)
	}
	if out.ID != 1 {
		t.Fatalf("expected id 1, got %d", out.ID)
	}
	got := f.notified[0]
	if got.App != DefaultApp || got.Summary != "Build finished" || got.Urgency != "low" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.TimeoutMS == nil || *got.TimeoutMS != 2500 {
		t.Fatalf("timeout not forwarded: %+v", got.TimeoutMS)
	}
}

func TestNotify_RejectsBadInput(t *testing.T) {
	neg := int64(-1)
	over := 101
	tests := []struct {
		name string
		in   NotifyInput
		want string
	}{
		{"empty summary", NotifyInput{Summary: "  "}, "summary"},
		{"bad urgency", NotifyInput{Summary: "x", Urgency: "urgent"}, "urgency"},
		{"negative timeout", NotifyInput{Summary: "x", TimeoutMS: &neg}, "timeout_ms"},
		{"progress over 100", NotifyInput{Summary: "x", Progress: &over}, "progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeSession{}
			_, _, err := newTestServer(f).handleNotify(context.Background(), nil, tt.in)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
			if len(f.notified) != 0 {
				t.Fatalf("invalid input must not reach the session")
			}
		})
	}
}

func TestDismiss_OneOrAll(t *testing.T) {
	f := &fakeSession{}
	s := newTestServer(f)
	for i := 0; i < 3; i++ {
		if _, _, err := s.handleNotify(context.Background(), nil, NotifyInput{Summary: "n"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if _, _, err := s.handleDismiss(context.Background(), nil, DismissInput{}); err == nil {
		t.Fatalf("expected an error without id or all")
	}
	_, out, err := s.handleDismiss(context.Background(), nil, DismissInput{ID: 2})
	if err != nil || out.Dismissed != 1 {
		t.Fatalf("dismiss one: out=%+v err=%v", out, err)
	}
	_, out, err = s.handleDismiss(context.Background(), nil, DismissInput{All: true, ID: 99})
	if err != nil || out.Dismissed != 2 {
		t.Fatalf("dismiss all: out=%+v err=%v", out, err)
	}
}

func TestHistory_LimitKeepsNewest(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := &fakeSession{history: []notify.Notification{
		{ID: 1, AppName: "a", Summary: "first", CreatedAt: base},
		{ID: 2, AppName: "b", Summary: "second", Urgency: notify.Critical, CreatedAt: base.Add(time.Minute)},
		{ID: 3, AppName: "c", Summary: "third", CreatedAt: base.Add(2 * time.Minute)},
	}}
	s := newTestServer(f)

	_, out, err := s.handleHistory(context.Background(), nil, HistoryInput{Limit: 2})
	if err != nil {
		t.Fatalf("handleHistory: %v", err)
	}
	if len(out.Notifications) != 2 || out.Notifications[0].ID != 2 || out.Notifications[1].ID != 3 {
		t.Fatalf("expected ids 2,3 got %+v", out.Notifications)
	}
	if out.Notifications[0].Urgency != "critical" || out.Notifications[0].CreatedAt != "2026-01-02T03:05:05Z" {
		t.Fatalf("unexpected entry %+v", out.Notifications[0])
	}

	if _, _, err := s.handleHistory(context.Background(), nil, HistoryInput{Limit: -1}); err == nil {
		t.Fatalf("expected negative limit to fail")
	}
}

func TestOSD_ValidatesKindAndRange(t *testing.T) {
	f := &fakeSession{}
	s := newTestServer(f)

	res, _, err := s.handleOSD(context.Background(), nil, OSDInput{Kind: "volume", Value: 40})
	if err != nil {
		t.Fatalf("handleOSD: %v", err)
	}
	if got := resultText(t, res); got != "Showing volume at 40%" {
		t.Fatalf("unexpected text %q", got)
	}
	if _, _, err := s.handleOSD(context.Background(), nil, OSDInput{Kind: "bass", Value: 40}); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
	if _, _, err := s.handleOSD(context.Background(), nil, OSDInput{Kind: "brightness", Value: 140}); err == nil {
		t.Fatalf("expected out-of-range value to fail")
	}
	if len(f.osd) != 1 {
		t.Fatalf("only the valid request should reach the session, got %v", f.osd)
	}
}

func TestScreenshot_ModeNormalization(t *testing.T) {
	f := &fakeSession{}
	s := newTestServer(f)

	_, out, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{})
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if out.Path != "/tmp/shot.png" || f.shots[0] != "full" {
		t.Fatalf("expected full capture, got %+v via %v", out, f.shots)
	}

	_, out, err = s.handleScreenshot(context.Background(), nil, ScreenshotInput{Mode: "region"})
	if err != nil || !out.Pending {
		t.Fatalf("region should be pending: %+v %v", out, err)
	}
	if _, _, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{Mode: "area"}); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}

func TestPower_NormalizesAliases(t *testing.T) {
	f := &fakeSession{}
	s := newTestServer(f)

	if _, _, err := s.handlePower(context.Background(), nil, PowerInput{Action: "poweroff"}); err != nil {
		t.Fatalf("handlePower: %v", err)
	}
	if f.power[0] != "shutdown" {
		t.Fatalf("expected shutdown, got %v", f.power)
	}
	if _, _, err := s.handlePower(context.Background(), nil, PowerInput{Action: "nap"}); err == nil {
		t.Fatalf("expected unknown action to fail")
	}
}

func TestWindowTools(t *testing.T) {
	f := &fakeSession{windows: []ipc.WindowInfo{{ID: 7, Title: "foot", Focused: true}}}
	s := newTestServer(f)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil || len(out.Windows) != 1 || out.Windows[0].ID != 7 {
		t.Fatalf("list windows: %+v %v", out, err)
	}
	if _, _, err := s.handleFocusWindow(context.Background(), nil, WindowInput{ID: 7}); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if _, _, err := s.handleCloseWindow(context.Background(), nil, WindowInput{ID: 7}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(f.focused) != 1 || len(f.closed) != 1 {
		t.Fatalf("expected one focus and one close, got %v %v", f.focused, f.closed)
	}

	empty := newTestServer(&fakeSession{})
	_, out, _ = empty.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if out.Windows == nil {
		t.Fatalf("empty window list must encode as [] not null")
	}
}

func TestSessionErrorsPropagate(t *testing.T) {
	f := &fakeSession{err: errors.New("failed to connect to session")}
	s := newTestServer(f)

	if _, _, err := s.handleStatus(context.Background(), nil, StatusInput{}); err == nil {
		t.Fatalf("expected status error")
	}
	if _, _, err := s.handleLaunch(context.Background(), nil, LaunchInput{App: "term"}); err == nil {
		t.Fatalf("expected launch error")
	}
	if _, _, err := s.handleLaunch(context.Background(), nil, LaunchInput{}); err == nil || !strings.Contains(err.Error(), "app is required") {
		t.Fatalf("expected missing app error, got %v", err)
	}
	if _, _, err := s.handleReload(context.Background(), nil, ReloadInput{}); err == nil {
		t.Fatalf("expected reload error")
	}
}

func TestLock(t *testing.T) {
	f := &fakeSession{}
	res, _, err := newTestServer(f).handleLock(context.Background(), nil, LockInput{})
	if err != nil || !f.locked {
		t.Fatalf("lock: locked=%v err=%v", f.locked, err)
	}
	if resultText(t, res) != "Session locked" {
		t.Fatalf("unexpected text")
	}
}
