package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/deskshell/internal/input"
	"github.com/1broseidon/deskshell/internal/launch"
	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
	"github.com/1broseidon/deskshell/internal/shellui"
	"github.com/1broseidon/deskshell/internal/wm"
)

const (
	// TickInterval is the frame period of the session loop (about 60 Hz).
	TickInterval = 16 * time.Millisecond

	fpsWindow = 120
	// pendingRequests is how many control requests may queue between ticks.
	pendingRequests = 32
)

// ErrStopped is returned for control requests made after the loop ended.
var ErrStopped = errors.New("session loop stopped")

// Settings are the user-tunable parts of the shell. IdleTimeout, PanelHeight,
// SnapThreshold and Apps can change on reload; the rest is read once.
type Settings struct {
	IdleTimeout   time.Duration
	PanelHeight   int
	SnapThreshold int
	Apps          map[string]string

	User        string
	Avatar      string
	AuthTimeout time.Duration

	ScreenshotDir    string
	SaveToFile       bool
	CopyToClipboard  bool
	ShowNotification bool

	MaxVisible     int
	MaxHistory     int
	DefaultTimeout time.Duration

	ReconcileInterval time.Duration
}

// Options wires a Shell to its collaborators.
type Options struct {
	Backend  platform.Backend
	Output   platform.Output
	Capturer platform.Capturer
	Painter  Painter
	Launcher *launch.Launcher
	Auth     lockscreen.Authenticator
	Settings Settings
	// Reload re-reads settings for the RELOAD control command.
	Reload func() (Settings, error)
	// HistoryPath is where dismissed notifications persist; empty disables it.
	HistoryPath string
	Logger      *slog.Logger
	Clock       func() time.Time
	// CopyImage and CopyText replace the clipboard writers for screenshots.
	CopyImage func([]byte) error
	CopyText  func(string) error
}

// Shell is the frame compositor: it owns every state machine of the session
// and advances them one tick at a time on a single goroutine.
type Shell struct {
	backend  platform.Backend
	output   platform.Output
	capturer platform.Capturer
	painter  Painter
	launcher *launch.Launcher
	reload   func() (Settings, error)
	logger   *slog.Logger
	now      func() time.Time

	wm         *wm.Manager
	lock       *lockscreen.LockScreen
	power      *session.PowerMenu
	shots      *screenshot.Manager
	ui         *shellui.ShellUI
	notes      *notify.Daemon
	osd        *notify.OSD
	router     *input.Router
	reconciler *Reconciler

	historyPath string
	startedAt   time.Time

	requests chan *request
	quit     chan struct{}
	stopOnce sync.Once

	frames   int
	fpsStart time.Time
}

// Request states. A request runs only if the loop claims it before the
// caller gives up on it.
const (
	requestPending int32 = iota
	requestClaimed
	requestAbandoned
)

type request struct {
	fn    func()
	done  chan struct{}
	state atomic.Int32
}

var _ input.Host = (*Shell)(nil)

func New(opts Options) (*Shell, error) {
	if opts.Backend == nil || opts.Output == nil || opts.Painter == nil {
		return nil, errors.New("compositor: backend, output and painter are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = &launch.Launcher{}
	}
	if launcher.Catalog == nil {
		launcher.Catalog = launch.NewCatalog(opts.Settings.Apps)
	}
	if launcher.Spawner == nil {
		launcher.Spawner = launch.NewSpawner(opts.Backend.Env(), logger.With("component", "launch"))
	}

	cfg := opts.Settings
	screen := opts.Output.ScreenSize()
	s := &Shell{
		backend:     opts.Backend,
		output:      opts.Output,
		capturer:    opts.Capturer,
		painter:     opts.Painter,
		launcher:    launcher,
		reload:      opts.Reload,
		logger:      logger,
		now:         clock,
		historyPath: opts.HistoryPath,
		startedAt:   clock(),
		requests:    make(chan *request, pendingRequests),
		quit:        make(chan struct{}),
	}

	s.notes = notify.NewDaemon(notify.Options{
		MaxVisible:     cfg.MaxVisible,
		MaxHistory:     cfg.MaxHistory,
		DefaultTimeout: cfg.DefaultTimeout,
		Clock:          clock,
	})
	s.wm = wm.NewManager(opts.Backend, wm.Options{
		Screen:        screen,
		PanelHeight:   cfg.PanelHeight,
		SnapThreshold: cfg.SnapThreshold,
		Logger:        logger.With("component", "wm"),
	})
	s.lock = lockscreen.New(lockscreen.Options{
		User:        cfg.User,
		Avatar:      cfg.Avatar,
		IdleTimeout: cfg.IdleTimeout,
		Auth:        opts.Auth,
		AuthTimeout: cfg.AuthTimeout,
		Clock:       clock,
	})
	s.power = &session.PowerMenu{}
	s.shots = screenshot.NewManager(screenshot.Options{
		Dir:              cfg.ScreenshotDir,
		SaveToFile:       cfg.SaveToFile,
		CopyToClipboard:  cfg.CopyToClipboard,
		ShowNotification: cfg.ShowNotification,
		Notifier:         s.notes,
		Logger:           logger.With("component", "screenshot"),
		Clock:            clock,
		CopyImage:        opts.CopyImage,
		CopyText:         opts.CopyText,
	})
	s.ui = shellui.New(shellui.Options{
		Screen:      screen,
		PanelHeight: s.wm.PanelHeight(),
		Apps:        appNames(launcher.Catalog),
		Launch:      s.Launch,
	})
	s.router = input.NewRouter(input.Deps{
		WM:       s.wm,
		Lock:     s.lock,
		Power:    s.power,
		Shots:    s.shots,
		UI:       s.ui,
		Keys:     opts.Backend,
		Notifier: s.notes,
		Host:     s,
		Logger:   logger.With("component", "input"),
	})
	s.reconciler = NewReconciler(cfg.ReconcileInterval, s.wm, opts.Backend.Surfaces, logger.With("component", "reconcile"))
	s.ui.Tick(clock())
	return s, nil
}

func appNames(c *launch.Catalog) []string {
	apps := c.Apps()
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = app.Name
	}
	return names
}

// Run loads the notification history, ticks until ctx is cancelled, the
// session is logged out or the display goes away, then saves the history.
func (s *Shell) Run(ctx context.Context) error {
	s.loadHistory()
	defer s.saveHistory()
	defer s.Stop()

	s.logger.Info("session started", "screen", fmt.Sprintf("%dx%d", s.output.ScreenSize().Width, s.output.ScreenSize().Height))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopping", "reason", ctx.Err())
			return nil
		case <-s.quit:
			s.logger.Info("session ended")
			return nil
		default:
		}
		if err := s.Tick(TickInterval); err != nil {
			return err
		}
	}
}

// Stop ends the session loop. It is safe to call from any goroutine and more
// than once.
func (s *Shell) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}

// Stopped reports whether Stop has been called.
func (s *Shell) Stopped() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Tick runs one iteration of the session loop, waiting at most wait for
// input. Only a lost display connection is returned as an error; every other
// failure is logged and its step skipped.
func (s *Shell) Tick(wait time.Duration) error {
	if err := s.backend.Accept(); err != nil {
		s.logger.Warn("accept failed", "error", err)
	}

	events, err := s.backend.Dispatch(wait)
	if errors.Is(err, platform.ErrClosed) {
		return err
	}
	if err != nil {
		s.logger.Warn("dispatch failed", "error", err)
	}
	for _, ev := range events {
		s.handleEvent(ev)
	}

	s.drainRequests()
	s.pollUnlock()

	if s.lock.ShouldIdleLock() {
		s.logger.Info("idle timeout reached", "timeout", s.lock.IdleTimeout())
		s.router.LockSession()
	}

	now := s.now()
	s.advance(now)
	s.reconciler.MaybeReconcile(now)
	s.sendFrameCallbacks(now)
	s.render(now)
	if err := s.backend.Flush(); err != nil {
		s.logger.Warn("flush failed", "error", err)
	}
	s.countFrame(now)
	return nil
}

func (s *Shell) handleEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventToplevelCreated:
		s.wm.AddWindow(ev.Window, ev.Title, ev.Size)
	case platform.EventToplevelDestroyed:
		s.wm.RemoveWindow(ev.Window)
	case platform.EventTitleChanged:
		s.wm.SetTitle(ev.Window, ev.Title)
	case platform.EventSizeCommitted:
		s.wm.CommitSize(ev.Window, ev.Size)
	case platform.EventOutputResized:
		s.wm.SetScreenSize(ev.Size)
		s.ui.SetScreenSize(ev.Size)
		s.logger.Info("output resized", "width", ev.Size.Width, "height", ev.Size.Height)
	case platform.EventCloseRequested:
		s.logger.Info("display asked the session to close")
		s.Stop()
	default:
		s.router.Handle(ev)
	}
}

func (s *Shell) drainRequests() {
	for {
		select {
		case req := <-s.requests:
			if !req.state.CompareAndSwap(requestPending, requestClaimed) {
				continue
			}
			req.fn()
			close(req.done)
		default:
			return
		}
	}
}

// do runs fn on the loop goroutine during the next tick and waits for it.
func (s *Shell) do(ctx context.Context, fn func()) error {
	if s.Stopped() {
		return ErrStopped
	}
	req := &request{fn: fn, done: make(chan struct{})}
	select {
	case s.requests <- req:
	case <-s.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-s.quit:
		return req.abandon(ErrStopped)
	case <-ctx.Done():
		return req.abandon(ctx.Err())
	}
}

// abandon withdraws a queued request so the loop skips it, and returns err.
// Once the loop has claimed it, fn runs to completion on the loop goroutine
// (it may itself end the session on logout), so abandon waits for it and
// reports success instead.
func (r *request) abandon(err error) error {
	if r.state.CompareAndSwap(requestPending, requestAbandoned) {
		return err
	}
	<-r.done
	return nil
}

// pollUnlock applies a finished password check.
func (s *Shell) pollUnlock() {
	done, unlocked := s.lock.Poll()
	switch {
	case !done:
	case unlocked:
		s.logger.Info("screen unlocked")
	case s.lock.IsLockedOut():
		s.logger.Warn("unlock refused", "failed_attempts", s.lock.FailedAttempts(), "lockout", s.lock.LockoutRemaining())
	default:
		s.logger.Info("unlock failed", "failed_attempts", s.lock.FailedAttempts())
	}
}

// advance moves the clock-driven state forward.
func (s *Shell) advance(now time.Time) {
	s.ui.Tick(now)
	s.notes.Cleanup()
	if s.osd != nil && s.osd.IsExpired(now) {
		s.osd = nil
	}

	count := s.notes.Count()
	tooltip := "No notifications"
	if count > 0 {
		tooltip = fmt.Sprintf("%d notification(s)", count)
	}
	s.ui.SetTrayLevel("notifications", count, tooltip)
}

func (s *Shell) sendFrameCallbacks(now time.Time) {
	elapsed := now.Sub(s.startedAt)
	for _, w := range s.wm.Windows() {
		if w.Minimized {
			continue
		}
		if err := s.backend.SendFrame(w.Surface, elapsed); err != nil {
			s.logger.Debug("frame callback failed", "surface", w.Surface, "error", err)
		}
	}
}

// buildScene snapshots the state machines into the layers to draw.
func (s *Shell) buildScene(now time.Time) *Scene {
	scene := &Scene{
		Screen: s.wm.ScreenSize(),
		Now:    now,
		Layers: []Layer{LayerSurfaces, LayerDecorations, LayerPanel},
		Panel:  panelView(s.ui),
	}
	for _, w := range s.wm.Windows() {
		if !w.Minimized {
			scene.Windows = append(scene.Windows, w)
		}
	}

	locked := s.lock.IsLocked()
	if toasts := s.notes.Visible(); len(toasts) > 0 && !locked {
		scene.Layers = append(scene.Layers, LayerNotifications)
		scene.Toasts = toasts
	}
	if s.osd != nil {
		scene.Layers = append(scene.Layers, LayerOSD)
		scene.OSD = s.osd
	}
	if s.shots.Selection.Active() {
		scene.Layers = append(scene.Layers, LayerRegion)
		if r, ok := s.shots.Selection.Rect(); ok {
			scene.Selection = &r
		}
	}
	if s.power.Visible() {
		scene.Layers = append(scene.Layers, LayerPowerMenu)
		scene.Power = PowerView{Actions: session.Actions, Selected: s.power.SelectedIndex()}
	}
	if locked {
		scene.Layers = append(scene.Layers, LayerLockScreen)
		scene.Lock = s.lock.View()
	}
	return scene
}

func (s *Shell) render(now time.Time) {
	scene := s.buildScene(now)
	chrome, shape := s.painter.Paint(scene)

	frame := &platform.Frame{
		Chrome:       chrome,
		Shape:        shape,
		GrabKeyboard: s.lock.IsLocked() || s.power.Visible() || s.shots.Selection.Active(),
	}
	for _, w := range scene.Windows {
		frame.Surfaces = append(frame.Surfaces, platform.Placement{ID: w.Surface, Bounds: w.Bounds})
	}
	if err := s.output.Present(frame); err != nil {
		s.logger.Warn("present failed", "error", err)
	}
}

func (s *Shell) countFrame(now time.Time) {
	if s.fpsStart.IsZero() {
		s.fpsStart = now
	}
	s.frames++
	if s.frames < fpsWindow {
		return
	}
	if elapsed := now.Sub(s.fpsStart).Seconds(); elapsed > 0 {
		s.logger.Debug("frame rate", "fps", fmt.Sprintf("%.1f", float64(s.frames)/elapsed))
	}
	s.frames = 0
	s.fpsStart = now
}

// Launch starts a catalog application. Failures become a toast.
func (s *Shell) Launch(app string) {
	resolved, err := s.launcher.Launch(app)
	if err != nil {
		s.logger.Warn("launch failed", "app", app, "error", err)
		s.notes.Notify("Launcher", "Failed to launch "+app, err.Error(), notify.WithUrgency(notify.Critical), notify.WithIcon("dialog-error"))
		return
	}
	s.logger.Info("launched", "app", resolved.Name, "command", resolved.Command)
}

// Capture takes a full-screen or active-window screenshot. Without a focused
// window the whole screen is captured.
func (s *Shell) Capture(mode screenshot.CaptureMode) {
	_, _ = s.capture(mode)
}

func (s *Shell) capture(mode screenshot.CaptureMode) (*screenshot.Screenshot, error) {
	var area platform.Rect
	if mode == screenshot.ActiveWindow {
		id, ok := s.wm.Focused()
		if ok {
			area, ok = s.wm.Bounds(id)
		}
		if !ok {
			mode = screenshot.FullScreen
		}
	}
	return s.shots.Capture(s.source(), mode, area)
}

// FinishRegion captures the selected region. The overlay is taken down and a
// clean frame presented before the screen is read.
func (s *Shell) FinishRegion() {
	s.shots.FinishRegion(s.source())
}

// source reads the screen after presenting the current state, so transient
// overlays that were just dismissed are not captured.
func (s *Shell) source() platform.Capturer {
	if s.capturer == nil {
		return nil
	}
	return captureFunc(func() (*image.RGBA, error) {
		s.render(s.now())
		if err := s.backend.Flush(); err != nil {
			s.logger.Debug("flush before capture failed", "error", err)
		}
		return s.capturer.CaptureScreen()
	})
}

type captureFunc func() (*image.RGBA, error)

func (f captureFunc) CaptureScreen() (*image.RGBA, error) { return f() }

// RunSession carries out a confirmed power-menu action.
func (s *Shell) RunSession(action session.Action) {
	s.power.Hide()
	switch action {
	case session.Lock:
		s.router.LockSession()
	case session.Logout:
		s.logger.Info("logging out")
		s.Stop()
	default:
		s.logger.Info("session action", "action", action)
		if err := s.launcher.Spawner.Spawn(action.Command()); err != nil {
			s.logger.Warn("session action failed", "action", action, "error", err)
			s.notes.Notify("System", action.Label()+" failed", err.Error(), notify.WithUrgency(notify.Critical))
		}
	}
}

// Apply updates the settings that can change while the session runs.
func (s *Shell) Apply(cfg Settings) {
	s.lock.SetIdleTimeout(cfg.IdleTimeout)
	s.wm.SetLayout(cfg.PanelHeight, cfg.SnapThreshold)
	s.ui.SetPanelHeight(s.wm.PanelHeight())
	s.launcher.Catalog = launch.NewCatalog(cfg.Apps)
	s.ui.SetApps(appNames(s.launcher.Catalog))
	s.logger.Info("settings applied", "idle_timeout", cfg.IdleTimeout, "panel_height", s.wm.PanelHeight())
}

// ShowOSD raises the volume or brightness indicator and mirrors the value in
// the tray.
func (s *Shell) ShowOSD(kind notify.OSDKind, value int) {
	s.osd = notify.NewOSD(kind, value, s.now())
	switch kind {
	case notify.OSDVolume, notify.OSDMute:
		s.ui.SetTrayLevel("volume", s.osd.Value, fmt.Sprintf("Volume: %d%%", s.osd.Value))
	}
}

func (s *Shell) loadHistory() {
	if s.historyPath == "" {
		return
	}
	entries, err := notify.LoadHistory(s.historyPath)
	if err != nil {
		s.logger.Warn("failed to load notification history", "path", s.historyPath, "error", err)
		return
	}
	s.notes.RestoreHistory(entries)
	s.logger.Debug("notification history loaded", "entries", len(entries))
}

func (s *Shell) saveHistory() {
	if s.historyPath == "" {
		return
	}
	if err := notify.SaveHistory(s.historyPath, s.notes.History()); err != nil {
		s.logger.Warn("failed to save notification history", "path", s.historyPath, "error", err)
	}
}

// Notifications returns the toast daemon. It must only be used on the loop
// goroutine.
func (s *Shell) Notifications() *notify.Daemon { return s.notes }

// Windows returns the window manager, for use on the loop goroutine.
func (s *Shell) Windows() *wm.Manager { return s.wm }

// LockScreen returns the lock state machine, for use on the loop goroutine.
func (s *Shell) LockScreen() *lockscreen.LockScreen { return s.lock }
