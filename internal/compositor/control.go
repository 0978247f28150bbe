package compositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
	"github.com/1broseidon/deskshell/internal/wm"
)

// Control serves control-plane requests by running them on the session loop.
type Control struct {
	shell *Shell
}

var _ ipc.Handler = (*Control)(nil)

// Control returns the control-plane handler for s.
func (s *Shell) Control() *Control { return &Control{shell: s} }

func (c *Control) Status(ctx context.Context) (ipc.StatusData, error) {
	var st ipc.StatusData
	err := c.shell.do(ctx, func() {
		s := c.shell
		screen := s.wm.ScreenSize()
		st = ipc.StatusData{
			LockState:          s.lock.State().String(),
			Locked:             s.lock.IsLocked(),
			FailedAttempts:     s.lock.FailedAttempts(),
			LockoutSeconds:     int64(s.lock.LockoutRemaining().Round(time.Second) / time.Second),
			IdleTimeoutSeconds: int64(s.lock.IdleTimeout() / time.Second),
			Windows:            s.wm.Len(),
			Notifications:      s.notes.Count(),
			LauncherOpen:       s.ui.LauncherVisible(),
			PowerMenuOpen:      s.power.Visible(),
			ScreenWidth:        screen.Width,
			ScreenHeight:       screen.Height,
			UptimeSeconds:      int64(s.now().Sub(s.startedAt) / time.Second),
		}
		if surface, ok := s.wm.FocusedSurface(); ok {
			st.FocusedWindow = uint32(surface)
		}
	})
	return st, err
}

func (c *Control) Windows(ctx context.Context) ([]ipc.WindowInfo, error) {
	var out []ipc.WindowInfo
	err := c.shell.do(ctx, func() {
		for _, w := range c.shell.wm.Windows() {
			out = append(out, ipc.WindowInfo{
				ID:        uint32(w.Surface),
				Title:     w.Title,
				X:         w.Bounds.X,
				Y:         w.Bounds.Y,
				Width:     w.Bounds.Width,
				Height:    w.Bounds.Height,
				Minimized: w.Minimized,
				Maximized: w.Maximized,
				Focused:   w.Focused,
			})
		}
	})
	return out, err
}

func (c *Control) Notify(ctx context.Context, app, summary, body string, opts ...notify.Option) (uint32, error) {
	var id uint32
	err := c.shell.do(ctx, func() {
		id = c.shell.notes.Notify(app, summary, body, opts...)
	})
	return id, err
}

func (c *Control) Dismiss(ctx context.Context, id uint32) error {
	var ok bool
	if err := c.shell.do(ctx, func() { ok = c.shell.notes.Dismiss(id) }); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %d not found", id)
	}
	return nil
}

func (c *Control) DismissAll(ctx context.Context) (int, error) {
	var n int
	err := c.shell.do(ctx, func() { n = c.shell.notes.DismissAll() })
	return n, err
}

func (c *Control) History(ctx context.Context) ([]notify.Notification, error) {
	var out []notify.Notification
	err := c.shell.do(ctx, func() { out = c.shell.notes.History() })
	return out, err
}

func (c *Control) ShowOSD(ctx context.Context, kind notify.OSDKind, value int) error {
	return c.shell.do(ctx, func() { c.shell.ShowOSD(kind, value) })
}

func (c *Control) Lock(ctx context.Context) error {
	return c.shell.do(ctx, func() {
		if c.shell.lock.State() == lockscreen.Unlocked {
			c.shell.router.LockSession()
		}
	})
}

// Screenshot captures immediately for full and window modes. Region mode only
// starts the interactive selection at the pointer.
func (c *Control) Screenshot(ctx context.Context, mode screenshot.CaptureMode) (ipc.ScreenshotData, error) {
	var (
		data ipc.ScreenshotData
		err  error
	)
	doErr := c.shell.do(ctx, func() {
		s := c.shell
		if s.lock.IsLocked() {
			err = errors.New("screen is locked")
			return
		}
		if mode == screenshot.Region {
			p := s.ui.Pointer()
			s.shots.BeginRegion(p.X, p.Y)
			data.Pending = true
			return
		}
		var shot *screenshot.Screenshot
		shot, err = s.capture(mode)
		if err == nil {
			data = ipc.ScreenshotData{Path: shot.Path, Width: shot.Width(), Height: shot.Height()}
		}
	})
	if doErr != nil {
		return data, doErr
	}
	return data, err
}

func (c *Control) Power(ctx context.Context, action session.Action) error {
	return c.shell.do(ctx, func() { c.shell.RunSession(action) })
}

func (c *Control) Launch(ctx context.Context, name string) (ipc.LaunchData, error) {
	var (
		data ipc.LaunchData
		err  error
	)
	doErr := c.shell.do(ctx, func() {
		app, launchErr := c.shell.launcher.Launch(name)
		if launchErr != nil {
			err = launchErr
			return
		}
		data = ipc.LaunchData{Name: app.Name, Command: app.Command}
	})
	if doErr != nil {
		return data, doErr
	}
	return data, err
}

// Focus raises and focuses the window on surface id, restoring it if it was
// minimized.
func (c *Control) Focus(ctx context.Context, id uint32) error {
	return c.onWindow(ctx, id, func(wid wm.ID) {
		s := c.shell
		if w, ok := s.wm.Window(wid); ok && w.Minimized {
			s.wm.ToggleMinimize(wid)
		}
		s.wm.Focus(wid)
	})
}

func (c *Control) Close(ctx context.Context, id uint32) error {
	return c.onWindow(ctx, id, func(wid wm.ID) { c.shell.wm.Close(wid) })
}

func (c *Control) onWindow(ctx context.Context, id uint32, fn func(wm.ID)) error {
	found := false
	err := c.shell.do(ctx, func() {
		wid, ok := c.shell.wm.Lookup(platform.WindowID(id))
		if !ok {
			return
		}
		found = true
		fn(wid)
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("window %d not found", id)
	}
	return nil
}

// Reload re-reads the settings off the loop and applies them on it.
func (c *Control) Reload(ctx context.Context) error {
	if c.shell.reload == nil {
		return errors.New("reload is not configured")
	}
	cfg, err := c.shell.reload()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return c.shell.do(ctx, func() { c.shell.Apply(cfg) })
}
