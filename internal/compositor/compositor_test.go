package compositor

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/input"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/launch"
	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
)

type fakeBackend struct {
	onDispatch  func()
	pending     []platform.Event
	dispatchErr error
	surfaces    []platform.WindowID
	surfacesErr error

	frames   map[platform.WindowID]int
	closed   []platform.WindowID
	focused  []platform.WindowID
	keys     []platform.Event
	flushes  int
	accepted int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{frames: make(map[platform.WindowID]int)}
}

func (b *fakeBackend) Accept() error { b.accepted++; return nil }

func (b *fakeBackend) Dispatch(time.Duration) ([]platform.Event, error) {
	if b.onDispatch != nil {
		b.onDispatch()
	}
	evs := b.pending
	b.pending = nil
	return evs, b.dispatchErr
}

func (b *fakeBackend) Configure(platform.WindowID, platform.Size) error { return nil }

func (b *fakeBackend) Close(id platform.WindowID) error {
	b.closed = append(b.closed, id)
	return nil
}

func (b *fakeBackend) Focus(id platform.WindowID) error {
	b.focused = append(b.focused, id)
	return nil
}

func (b *fakeBackend) ForwardKey(_ platform.WindowID, ev platform.Event) error {
	b.keys = append(b.keys, ev)
	return nil
}

func (b *fakeBackend) ForwardPointer(platform.WindowID, platform.Event) error { return nil }

func (b *fakeBackend) SendFrame(id platform.WindowID, _ time.Duration) error {
	b.frames[id]++
	return nil
}

func (b *fakeBackend) Surfaces() ([]platform.WindowID, error) { return b.surfaces, b.surfacesErr }

func (b *fakeBackend) Flush() error { b.flushes++; return nil }

func (b *fakeBackend) Env() []string { return []string{"DISPLAY=:9"} }

type fakeOutput struct {
	size   platform.Size
	frames []*platform.Frame
}

func (o *fakeOutput) ScreenSize() platform.Size { return o.size }

func (o *fakeOutput) Present(f *platform.Frame) error {
	o.frames = append(o.frames, f)
	return nil
}

func (o *fakeOutput) last() *platform.Frame { return o.frames[len(o.frames)-1] }

type fakePainter struct {
	scenes []*Scene
}

func (p *fakePainter) Paint(scene *Scene) (*image.RGBA, []platform.ShapeOp) {
	p.scenes = append(p.scenes, scene)
	return image.NewRGBA(image.Rect(0, 0, scene.Screen.Width, scene.Screen.Height)), nil
}

func (p *fakePainter) last() *Scene { return p.scenes[len(p.scenes)-1] }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	shell   *Shell
	backend *fakeBackend
	output  *fakeOutput
	painter *fakePainter
	clock   *fakeClock
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		backend: newFakeBackend(),
		output:  &fakeOutput{size: platform.Size{Width: 1280, Height: 800}},
		painter: &fakePainter{},
		clock:   &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
	}
	opts := Options{
		Backend: f.backend,
		Output:  f.output,
		Painter: f.painter,
		Auth: lockscreen.AuthenticatorFunc(func(_ context.Context, _, password string) bool {
			return password == "hunter2"
		}),
		Settings: Settings{
			ScreenshotDir: t.TempDir(),
			SaveToFile:    true,
		},
		Clock:     f.clock.Now,
		CopyImage: func([]byte) error { return nil },
		CopyText:  func(string) error { return nil },
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.shell = s
	return f
}

func (f *fixture) tick(t *testing.T, evs ...platform.Event) {
	t.Helper()
	f.backend.pending = append(f.backend.pending, evs...)
	if err := f.shell.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

func created(id platform.WindowID, title string) platform.Event {
	return platform.Event{Kind: platform.EventToplevelCreated, Window: id, Title: title, Size: platform.Size{Width: 640, Height: 480}}
}

// control runs a control request while ticking the loop until it completes.
func control[T any](t *testing.T, f *fixture, call func(ctx context.Context) (T, error)) (T, error) {
	t.Helper()
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		v, err := call(ctx)
		done <- result{v, err}
	}()
	for i := 0; i < 2000; i++ {
		f.tick(t)
		select {
		case r := <-done:
			return r.v, r.err
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("control request never completed")
	var zero T
	return zero, nil
}

func layersOf(s *Scene) string {
	names := make([]string, len(s.Layers))
	for i, l := range s.Layers {
		names[i] = l.String()
	}
	return strings.Join(names, ",")
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New accepted empty options")
	}
}

func TestTickManagesToplevelLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	f.tick(t, created(10, "xterm"), created(11, ""))
	if got := f.shell.wm.Len(); got != 2 {
		t.Fatalf("managed windows = %d, want 2", got)
	}
	frame := f.output.last()
	if len(frame.Surfaces) != 2 || frame.Surfaces[0].ID != 10 || frame.Surfaces[1].ID != 11 {
		t.Fatalf("surfaces = %+v", frame.Surfaces)
	}
	if frame.Chrome == nil || frame.GrabKeyboard {
		t.Fatalf("frame = %+v", frame)
	}
	if f.backend.frames[10] != 1 || f.backend.frames[11] != 1 {
		t.Fatalf("frame callbacks = %v", f.backend.frames)
	}
	if f.backend.flushes != 1 || f.backend.accepted != 1 {
		t.Fatalf("flushes=%d accepted=%d", f.backend.flushes, f.backend.accepted)
	}

	f.tick(t,
		platform.Event{Kind: platform.EventTitleChanged, Window: 10, Title: "vim"},
		platform.Event{Kind: platform.EventSizeCommitted, Window: 10, Size: platform.Size{Width: 300, Height: 200}},
	)
	ws := f.shell.wm.Windows()
	if ws[0].Title != "vim" || ws[0].Bounds.Width != 300 {
		t.Fatalf("window = %+v", ws[0])
	}

	id, _ := f.shell.wm.Lookup(11)
	f.shell.wm.ToggleMinimize(id)
	f.tick(t)
	if f.backend.frames[11] != 2 {
		t.Fatalf("minimized window got a frame callback: %v", f.backend.frames)
	}
	if len(f.output.last().Surfaces) != 1 {
		t.Fatalf("minimized window presented: %+v", f.output.last().Surfaces)
	}

	f.tick(t, platform.Event{Kind: platform.EventToplevelDestroyed, Window: 10})
	if f.shell.wm.Len() != 1 {
		t.Fatalf("destroyed window still managed")
	}
}

func TestOutputResize(t *testing.T) {
	f := newFixture(t, nil)
	f.tick(t, platform.Event{Kind: platform.EventOutputResized, Size: platform.Size{Width: 1920, Height: 1080}})

	if got := f.painter.last().Screen; got.Width != 1920 || got.Height != 1080 {
		t.Fatalf("scene screen = %+v", got)
	}
	if got := f.painter.last().Panel.Rect.Width; got != 1920 {
		t.Fatalf("panel width = %d", got)
	}
}

func TestLayerOrderAndLockSuppression(t *testing.T) {
	f := newFixture(t, nil)
	s := f.shell

	s.notes.Notify("app", "hello", "")
	s.ShowOSD(notify.OSDVolume, 30)
	s.shots.BeginRegion(10, 10)
	s.power.Show()
	f.tick(t)

	want := "surfaces,decorations,panel,notifications,osd,region,power-menu"
	if got := layersOf(f.painter.last()); got != want {
		t.Fatalf("layers = %s, want %s", got, want)
	}
	if !f.output.last().GrabKeyboard {
		t.Fatal("keyboard not grabbed with modal overlays up")
	}

	s.router.LockSession()
	f.tick(t)
	want = "surfaces,decorations,panel,osd,lock-screen"
	if got := layersOf(f.painter.last()); got != want {
		t.Fatalf("locked layers = %s, want %s", got, want)
	}
	if f.painter.last().Lock.State != lockscreen.Locked {
		t.Fatalf("lock view state = %v", f.painter.last().Lock.State)
	}

	f.clock.Advance(2 * time.Second)
	f.tick(t)
	if f.painter.last().OSD != nil {
		t.Fatal("OSD outlived its timeout")
	}
}

func TestTrayTracksNotificationCount(t *testing.T) {
	f := newFixture(t, nil)
	f.shell.notes.Notify("a", "one", "")
	f.shell.notes.Notify("a", "two", "")
	f.tick(t)

	for _, item := range f.painter.last().Panel.Tray {
		if item.Icon.ID == "notifications" {
			if item.Icon.Level != 2 || item.Icon.Tooltip != "2 notification(s)" {
				t.Fatalf("tray icon = %+v", item.Icon)
			}
			return
		}
	}
	t.Fatal("notifications tray icon missing")
}

func TestIdleTimeoutLocks(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Settings.IdleTimeout = time.Minute })

	f.clock.Advance(30 * time.Second)
	f.tick(t)
	if f.shell.lock.IsLocked() {
		t.Fatal("locked before the idle timeout")
	}

	f.clock.Advance(31 * time.Second)
	f.tick(t)
	if !f.shell.lock.IsLocked() {
		t.Fatal("idle timeout did not lock")
	}
	if !f.painter.last().Has(LayerLockScreen) {
		t.Fatal("lock screen not drawn")
	}
}

func TestDisabledIdleTimeout(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Settings.IdleTimeout = -1 })
	f.clock.Advance(24 * time.Hour)
	f.tick(t)
	if f.shell.lock.IsLocked() {
		t.Fatal("negative idle timeout still locked")
	}
}

func TestTickAppliesUnlockResult(t *testing.T) {
	f := newFixture(t, nil)
	f.shell.router.LockSession()
	for _, r := range "hunter2" {
		f.shell.lock.InputChar(r)
	}

	f.tick(t, platform.Event{Kind: platform.EventKey, Keycode: input.KeyEnter, Pressed: true})
	for i := 0; f.shell.lock.IsLocked(); i++ {
		if i == 2000 {
			t.Fatalf("still %v after the check", f.shell.lock.State())
		}
		time.Sleep(time.Millisecond)
		f.tick(t)
	}
	if f.painter.last().Has(LayerLockScreen) {
		t.Fatal("lock screen drawn after unlock")
	}
}

func TestReconcileDropsVanishedSurfaces(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.surfaces = []platform.WindowID{10, 11}
	f.tick(t, created(10, "a"), created(11, "b"))

	f.backend.surfaces = []platform.WindowID{11}
	f.clock.Advance(5 * time.Second)
	f.tick(t)
	if f.shell.wm.Len() != 2 {
		t.Fatal("reconciled before the interval elapsed")
	}

	f.clock.Advance(6 * time.Second)
	f.tick(t)
	if f.shell.wm.Len() != 1 {
		t.Fatalf("managed windows = %d after reconcile, want 1", f.shell.wm.Len())
	}
	if _, ok := f.shell.wm.Lookup(10); ok {
		t.Fatal("vanished surface still managed")
	}
}

func TestReconcilerToleratesListErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.tick(t, created(10, "a"))

	r := NewReconciler(0, f.shell.wm, func() ([]platform.WindowID, error) {
		return nil, errors.New("connection reset")
	}, nil)
	if n := r.ReconcileNow(); n != 0 || f.shell.wm.Len() != 1 {
		t.Fatalf("removed %d windows on list error", n)
	}

	r = NewReconciler(0, f.shell.wm, func() ([]platform.WindowID, error) { panic("boom") }, nil)
	if n := r.ReconcileNow(); n != 0 {
		t.Fatalf("removed %d windows after panic", n)
	}
}

func TestCloseRequestedStops(t *testing.T) {
	f := newFixture(t, nil)
	f.tick(t, platform.Event{Kind: platform.EventCloseRequested})
	if !f.shell.Stopped() {
		t.Fatal("close request did not stop the session")
	}
	if err := f.shell.Run(context.Background()); err != nil {
		t.Fatalf("Run after stop: %v", err)
	}
}

func TestRunPersistsHistoryAndEndsOnClosedDisplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json.zst")
	seed := notify.New("old", "from last session", "")
	seed.ID = 40
	if err := notify.SaveHistory(path, []notify.Notification{seed}); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, func(o *Options) { o.HistoryPath = path })
	f.backend.onDispatch = func() {
		id := f.shell.notes.Notify("app", "fresh", "")
		f.shell.notes.Dismiss(id)
		f.backend.dispatchErr = platform.ErrClosed
	}

	if err := f.shell.Run(context.Background()); !errors.Is(err, platform.ErrClosed) {
		t.Fatalf("Run err = %v, want ErrClosed", err)
	}

	entries, err := notify.LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 40 || entries[1].ID != 41 {
		t.Fatalf("history = %+v", entries)
	}
}

func TestControlRequests(t *testing.T) {
	f := newFixture(t, nil)
	c := f.shell.Control()
	f.tick(t, created(10, "xterm"), created(11, "files"))

	id, err := control(t, f, func(ctx context.Context) (uint32, error) {
		return c.Notify(ctx, "build", "done", "", notify.WithUrgency(notify.Low))
	})
	if err != nil || id == 0 {
		t.Fatalf("Notify = %d, %v", id, err)
	}
	if f.shell.notes.Count() != 1 {
		t.Fatal("notification not posted")
	}

	status, err := control(t, f, c.Status)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Windows != 2 || status.FocusedWindow != 11 || status.Notifications != 1 || status.LockState != "unlocked" {
		t.Fatalf("status = %+v", status)
	}

	windows, err := control(t, f, c.Windows)
	if err != nil || len(windows) != 2 || windows[0].ID != 10 || !windows[1].Focused {
		t.Fatalf("Windows = %+v, %v", windows, err)
	}

	if _, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, c.Focus(ctx, 10) }); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if got, _ := f.shell.wm.FocusedSurface(); got != 10 {
		t.Fatalf("focused surface = %d", got)
	}

	if _, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, c.Close(ctx, 11) }); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.backend.closed) != 1 || f.backend.closed[0] != 11 {
		t.Fatalf("closed = %v", f.backend.closed)
	}

	if _, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, c.ShowOSD(ctx, notify.OSDBrightness, 55) }); err != nil {
		t.Fatalf("ShowOSD: %v", err)
	}
	if f.shell.osd == nil || f.shell.osd.Value != 55 {
		t.Fatalf("osd = %+v", f.shell.osd)
	}

	n, err := control(t, f, c.DismissAll)
	if err != nil || n != 1 {
		t.Fatalf("DismissAll = %d, %v", n, err)
	}
	history, err := control(t, f, c.History)
	if err != nil || len(history) != 1 || history[0].Summary != "done" {
		t.Fatalf("History = %+v, %v", history, err)
	}

	if _, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, c.Lock(ctx) }); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !f.shell.lock.IsLocked() {
		t.Fatal("Lock did not lock")
	}
	if _, err := control(t, f, func(ctx context.Context) (ipc.ScreenshotData, error) { return c.Screenshot(ctx, screenshot.FullScreen) }); err == nil {
		t.Fatal("screenshot allowed while locked")
	}
}

func TestControlStaleReferences(t *testing.T) {
	f := newFixture(t, nil)
	c := f.shell.Control()

	tests := []struct {
		name string
		call func(ctx context.Context) error
		want string
	}{
		{"dismiss", func(ctx context.Context) error { return c.Dismiss(ctx, 42) }, "notification 42 not found"},
		{"focus", func(ctx context.Context) error { return c.Focus(ctx, 99) }, "window 99 not found"},
		{"close", func(ctx context.Context) error { return c.Close(ctx, 99) }, "window 99 not found"},
		{"reload", func(ctx context.Context) error { return c.Reload(ctx) }, "not configured"},
	}
	for _, tt := range tests {
		_, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, tt.call(ctx) })
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestAbandonedControlRequestIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	c := f.shell.Control()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Notify(ctx, "build", "done", "")
		done <- err
	}()
	for i := 0; len(f.shell.requests) == 0; i++ {
		if i == 2000 {
			t.Fatal("request never queued")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Notify err = %v, want context.Canceled", err)
	}

	f.tick(t)
	if n := f.shell.notes.Count(); n != 0 {
		t.Fatalf("abandoned request still ran: %d notifications", n)
	}

	id, err := control(t, f, func(ctx context.Context) (uint32, error) {
		return c.Notify(ctx, "build", "again", "")
	})
	if err != nil || id == 0 || f.shell.notes.Count() != 1 {
		t.Fatalf("Notify after abandon = %d, %v (count %d)", id, err, f.shell.notes.Count())
	}
}

func TestControlAfterStop(t *testing.T) {
	f := newFixture(t, nil)
	f.shell.Stop()
	if _, err := f.shell.Control().Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestReloadAppliesSettings(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Reload = func() (Settings, error) {
			return Settings{
				IdleTimeout: 3 * time.Minute,
				PanelHeight: 48,
				Apps:        map[string]string{"Editor": "gedit"},
			}, nil
		}
	})
	c := f.shell.Control()

	if _, err := control(t, f, func(ctx context.Context) (struct{}, error) { return struct{}{}, c.Reload(ctx) }); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if f.shell.lock.IdleTimeout() != 3*time.Minute {
		t.Fatalf("idle timeout = %v", f.shell.lock.IdleTimeout())
	}
	if f.shell.ui.PanelHeight() != 48 || f.shell.wm.PanelHeight() != 48 {
		t.Fatalf("panel heights ui=%d wm=%d", f.shell.ui.PanelHeight(), f.shell.wm.PanelHeight())
	}
	apps := f.shell.ui.Apps()
	if apps[len(apps)-1] != "Editor" {
		t.Fatalf("launcher apps = %v", apps)
	}
}

func TestLaunchFailureIsNotified(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Launcher = &launch.Launcher{Catalog: launch.NewCatalog(map[string]string{"Broken": "/nonexistent/deskshell-test-binary"})}
	})

	f.shell.Launch("Broken")
	toasts := f.shell.notes.Visible()
	if len(toasts) != 1 || toasts[0].Urgency != notify.Critical || !strings.Contains(toasts[0].Summary, "Broken") {
		t.Fatalf("toasts = %+v", toasts)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t, nil)
	f.shell.power.Show()
	f.shell.RunSession(session.Logout)
	if !f.shell.Stopped() {
		t.Fatal("logout did not stop the loop")
	}
	if f.shell.power.Visible() {
		t.Fatal("power menu left open")
	}
}

type fakeCapturer struct {
	onCapture func()
	img       *image.RGBA
}

func (c *fakeCapturer) CaptureScreen() (*image.RGBA, error) {
	if c.onCapture != nil {
		c.onCapture()
	}
	return c.img, nil
}

func TestRegionCaptureOmitsOverlay(t *testing.T) {
	capturer := &fakeCapturer{img: image.NewRGBA(image.Rect(0, 0, 1280, 800))}
	f := newFixture(t, func(o *Options) { o.Capturer = capturer })

	var layersAtCapture string
	capturer.onCapture = func() { layersAtCapture = layersOf(f.painter.last()) }

	s := f.shell
	s.shots.BeginRegion(100, 100)
	s.shots.Selection.Update(300, 250)
	f.tick(t)
	if !f.painter.last().Has(LayerRegion) || f.painter.last().Selection == nil {
		t.Fatal("selection overlay not drawn")
	}

	s.FinishRegion()
	if strings.Contains(layersAtCapture, "region") {
		t.Fatalf("overlay visible when the screen was read: %s", layersAtCapture)
	}

	entries, err := os.ReadDir(s.shots.Dir())
	if err != nil || len(entries) != 1 {
		t.Fatalf("screenshot dir = %v, %v", entries, err)
	}
}

func TestActiveWindowCaptureFallsBackToFullScreen(t *testing.T) {
	capturer := &fakeCapturer{img: image.NewRGBA(image.Rect(0, 0, 1280, 800))}
	f := newFixture(t, func(o *Options) { o.Capturer = capturer })

	shot, err := f.shell.capture(screenshot.ActiveWindow)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if shot.Mode != screenshot.FullScreen || shot.Width() != 1280 {
		t.Fatalf("shot mode=%v width=%d", shot.Mode, shot.Width())
	}

	f.tick(t, created(10, "xterm"))
	shot, err = f.shell.capture(screenshot.ActiveWindow)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if shot.Width() != 640 || shot.Height() != 480 {
		t.Fatalf("window shot = %dx%d", shot.Width(), shot.Height())
	}
}
