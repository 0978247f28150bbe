package input

import (
	"log/slog"

	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
	"github.com/1broseidon/deskshell/internal/shellui"
	"github.com/1broseidon/deskshell/internal/wm"
)

// KeyForwarder delivers keys to client windows.
type KeyForwarder interface {
	ForwardKey(id platform.WindowID, ev platform.Event) error
}

// Notifier posts user-visible toasts.
type Notifier interface {
	Notify(app, summary, body string, opts ...notify.Option) uint32
}

// Host carries out the actions that leave the router's state machines:
// spawning processes, reading the screen and session control.
type Host interface {
	Launch(app string)
	Capture(mode screenshot.CaptureMode)
	FinishRegion()
	RunSession(action session.Action)
}

// Deps are the state machines and collaborators a Router drives.
type Deps struct {
	WM       *wm.Manager
	Lock     *lockscreen.LockScreen
	Power    *session.PowerMenu
	Shots    *screenshot.Manager
	UI       *shellui.ShellUI
	Keys     KeyForwarder
	Notifier Notifier
	Host     Host
	Logger   *slog.Logger
}

// Router is the single entry point for raw input. It decides whether an event
// belongs to the lock screen, a shell binding, the window manager or a client.
type Router struct {
	wm       *wm.Manager
	lock     *lockscreen.LockScreen
	power    *session.PowerMenu
	shots    *screenshot.Manager
	ui       *shellui.ShellUI
	keys     KeyForwarder
	notifier Notifier
	host     Host
	logger   *slog.Logger

	mods ModifierState
}

func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		wm:       d.WM,
		lock:     d.Lock,
		power:    d.Power,
		shots:    d.Shots,
		ui:       d.UI,
		keys:     d.Keys,
		notifier: d.Notifier,
		host:     d.Host,
		logger:   logger,
	}
}

// Modifiers returns the currently held modifiers.
func (r *Router) Modifiers() ModifierState { return r.mods }

// Handle routes one input event. Non-input events are ignored.
func (r *Router) Handle(ev platform.Event) {
	switch ev.Kind {
	case platform.EventPointerMotion, platform.EventPointerButton, platform.EventKey:
	default:
		return
	}

	r.lock.RegisterActivity()
	if r.lock.IsLocked() {
		r.handleLocked(ev)
		return
	}

	switch ev.Kind {
	case platform.EventPointerMotion:
		r.pointerMotion(ev)
	case platform.EventPointerButton:
		r.pointerButton(ev)
	case platform.EventKey:
		r.key(ev)
	}
}

// LockSession engages the lock screen and tells the user.
func (r *Router) LockSession() {
	r.lock.Lock()
	r.power.Hide()
	r.ui.HideLauncher()
	r.shots.Selection.Cancel()
	r.wm.EndInteraction()
	if r.notifier != nil {
		r.notifier.Notify("System", "Screen locked", "Press any key to unlock", notify.WithIcon("system-lock-screen"))
	}
	r.logger.Info("screen locked")
}

func (r *Router) handleLocked(ev platform.Event) {
	if ev.Kind != platform.EventKey {
		return
	}
	r.mods.Update(ev.Keycode, ev.Pressed)
	if !ev.Pressed {
		return
	}

	switch ev.Keycode {
	case KeyEsc:
		r.lock.InputEscape()
	case KeyBackspace:
		r.lock.InputBackspace()
	case KeyEnter:
		if !r.lock.InputEnter() && r.lock.IsLockedOut() {
			r.logger.Warn("unlock refused", "failed_attempts", r.lock.FailedAttempts(), "lockout", r.lock.LockoutRemaining())
		}
	default:
		if ch, ok := KeyToChar(ev.Keycode, r.mods.Shift); ok {
			r.lock.InputChar(ch)
		}
	}
}

func (r *Router) pointerMotion(ev platform.Event) {
	r.ui.SetPointer(int(ev.X), int(ev.Y))
	if r.shots.Selection.Active() {
		r.shots.Selection.Update(int(ev.X), int(ev.Y))
	}
	r.wm.SetPointer(ev.X, ev.Y)
}

func (r *Router) pointerButton(ev platform.Event) {
	if r.shots.Selection.Active() {
		if ev.Pressed {
			r.shots.Selection.StartSelection(int(ev.X), int(ev.Y))
			return
		}
		r.host.FinishRegion()
		return
	}
	r.wm.HandleClick(ev, r.ui)
}

func (r *Router) key(ev platform.Event) {
	code, pressed := ev.Keycode, ev.Pressed

	r.mods.Update(code, pressed)
	r.forward(ev)

	if r.power.Visible() && pressed {
		switch code {
		case KeyUp:
			r.power.SelectPrev()
			return
		case KeyDown:
			r.power.SelectNext()
			return
		case KeyEnter:
			if action, ok := r.power.Confirm(); ok {
				r.host.RunSession(action)
			}
			return
		}
	}

	r.bindings(code, pressed)
}

func (r *Router) bindings(code uint32, pressed bool) {
	m := r.mods

	if IsSuper(code) && !pressed {
		if !m.Shift && !m.Ctrl && !m.Alt {
			r.ui.ToggleLauncher()
			r.power.Hide()
		}
		return
	}

	if !pressed {
		if code == KeyEsc {
			r.cancel()
		}
		return
	}

	switch {
	case code == KeyL && m.Super:
		r.LockSession()
	case code == KeyPrint:
		mode := screenshot.ModeFromModifiers(m.Shift, m.Alt)
		if mode == screenshot.Region {
			p := r.ui.Pointer()
			r.shots.BeginRegion(p.X, p.Y)
		} else {
			r.host.Capture(mode)
		}
	case code == KeyTab:
		r.wm.FocusNext()
	case code == KeyQ && m.Super:
		if id, ok := r.wm.Focused(); ok {
			r.wm.Close(id)
		}
	case code == KeyE && m.Super:
		r.host.Launch("Files")
	case code == KeyT && m.Super:
		r.host.Launch("Terminal")
	case code == KeyF11:
		if id, ok := r.wm.Focused(); ok {
			r.wm.ToggleMaximize(id)
		}
	case code == KeyDelete && m.Ctrl && m.Alt:
		r.power.Toggle()
		r.ui.HideLauncher()
	}
}

// cancel backs out of the topmost transient mode.
func (r *Router) cancel() {
	switch {
	case r.shots.Selection.Active():
		r.shots.Selection.Cancel()
	case r.power.Visible():
		r.power.Hide()
	case r.ui.LauncherVisible():
		r.ui.HideLauncher()
	}
}

func (r *Router) forward(ev platform.Event) {
	if r.keys == nil {
		return
	}
	surface, ok := r.wm.FocusedSurface()
	if !ok {
		return
	}
	if err := r.keys.ForwardKey(surface, ev); err != nil {
		r.logger.Debug("key forward failed", "surface", surface, "error", err)
	}
}
