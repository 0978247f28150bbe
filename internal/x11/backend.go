package x11

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/deskshell/internal/platform"
)

// eventQueue bounds how far the reader goroutine runs ahead of the loop.
const eventQueue = 256

type xevent struct {
	ev  xgb.Event
	err xgb.Error
}

// Backend manages the X server's toplevels and presents the shell chrome in
// an override-redirect window above them. All methods except Disconnect must
// be called from the session loop.
type Backend struct {
	conn   *Connection
	logger *slog.Logger
	events chan xevent

	screen  platform.Size
	chrome  *chrome
	input   *inputState
	managed map[xproto.Window]*client
	order   []xproto.Window
	pending []platform.Event
	// lastStack is the surface order of the previous frame.
	lastStack []platform.WindowID
	// fixedSize pins the screen size to a configured hint.
	fixedSize bool

	// Synchronous grabs freeze input until AllowEvents; the loop decides
	// between replay and consume before Flush.
	pointerFrozen  bool
	replayPointer  bool
	keyboardFrozen bool
	replayKeyboard bool
	frozenKey      uint32
	frozenTime     xproto.Timestamp
	keyboardGrab   bool
}

type client struct {
	mapped bool
	// ignoreUnmaps counts unmaps the shell caused itself.
	ignoreUnmaps int
	placed       platform.Rect
}

var (
	_ platform.Backend  = (*Backend)(nil)
	_ platform.Output   = (*Backend)(nil)
	_ platform.Capturer = (*Backend)(nil)
)

// Open connects to display, takes over window management and creates the
// chrome window.
func Open(display string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "x11")

	conn, err := NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	b, err := newBackend(conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func newBackend(conn *Connection, logger *slog.Logger) (*Backend, error) {
	if err := conn.BecomeManager(); err != nil {
		return nil, err
	}
	if err := conn.Advertise(); err != nil {
		logger.Warn("failed to set EWMH hints", "error", err)
	}
	if err := conn.grabBindings(); err != nil {
		return nil, fmt.Errorf("failed to grab shell bindings: %w", err)
	}

	b := &Backend{
		conn:    conn,
		logger:  logger,
		events:  make(chan xevent, eventQueue),
		input:   newInputState(),
		managed: map[xproto.Window]*client{},
	}
	b.screen = b.querySize()

	ch, err := newChrome(conn, b.screen)
	if err != nil {
		return nil, err
	}
	b.chrome = ch

	b.adoptExisting()
	go b.readEvents()
	return b, nil
}

// SetScreenSize pins the output size, ignoring monitor changes. Used for
// nested servers whose root is larger than the area the shell should own.
func (b *Backend) SetScreenSize(size platform.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	b.screen = size
	b.fixedSize = true
}

func (b *Backend) querySize() platform.Size {
	if monitors, err := b.conn.GetMonitors(); err == nil {
		if m, ok := primaryMonitor(monitors); ok {
			b.logger.Info("using monitor", "name", m.Name, "width", m.Width, "height", m.Height, "monitors", len(monitors))
			return platform.Size{Width: m.Width, Height: m.Height}
		}
	} else {
		b.logger.Debug("randr unavailable", "error", err)
	}
	w, h, err := b.conn.ScreenSize()
	if err != nil {
		b.logger.Warn("failed to read root geometry", "error", err)
		return platform.Size{}
	}
	return platform.Size{Width: w, Height: h}
}

// adoptExisting manages windows that were mapped before the shell started.
// They are reported as created on the first Dispatch.
func (b *Backend) adoptExisting() {
	children, err := b.conn.Children()
	if err != nil {
		b.logger.Warn("failed to list existing windows", "error", err)
		return
	}
	for _, win := range children {
		attrs, err := xproto.GetWindowAttributes(b.conn.XUtil.Conn(), win).Reply()
		if err != nil || attrs.OverrideRedirect || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		if !b.conn.IsNormalWindow(win) {
			continue
		}
		b.pending = append(b.pending, b.mapRequest(win)...)
		if c, ok := b.managed[win]; ok {
			c.mapped = true
		}
	}
}

func (b *Backend) readEvents() {
	for {
		ev, err := b.conn.XUtil.Conn().WaitForEvent()
		if ev == nil && err == nil {
			close(b.events)
			return
		}
		b.events <- xevent{ev: ev, err: err}
	}
}

// Disconnect releases the X connection. The next Dispatch then returns
// platform.ErrClosed.
func (b *Backend) Disconnect() {
	b.conn.Close()
}

// Accept is a no-op: X clients connect to the server, not to the shell.
func (b *Backend) Accept() error { return nil }

func (b *Backend) Dispatch(wait time.Duration) ([]platform.Event, error) {
	out := b.pending
	b.pending = nil

	// Input state first, so modifier changes precede the bound key events
	// that were pressed together with them.
	out = append(out, b.pollInput()...)

	first := true
	for {
		var (
			xe xevent
			ok bool
		)
		if first && len(out) == 0 && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case xe, ok = <-b.events:
			case <-timer.C:
				timer.Stop()
				return out, nil
			}
			timer.Stop()
		} else {
			select {
			case xe, ok = <-b.events:
			default:
				return out, nil
			}
		}
		first = false
		if !ok {
			return out, platform.ErrClosed
		}
		if xe.err != nil {
			// BadWindow after a client vanished is routine.
			b.logger.Debug("x error", "error", xe.err)
			continue
		}
		out = append(out, b.translate(xe.ev)...)
	}
}

func (b *Backend) pollInput() []platform.Event {
	conn := b.conn.XUtil.Conn()
	var out []platform.Event
	if p, err := xproto.QueryPointer(conn, b.conn.Root).Reply(); err == nil {
		if ev, moved := b.input.samplePointer(int(p.RootX), int(p.RootY)); moved {
			out = append(out, ev)
		}
	}
	if km, err := xproto.QueryKeymap(conn).Reply(); err == nil {
		out = append(out, b.input.sampleKeys(keymapFrom(km.Keys))...)
	}
	return out
}

func (b *Backend) translate(ev xgb.Event) []platform.Event {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		return b.mapRequest(e.Window)
	case xproto.DestroyNotifyEvent:
		return b.forget(e.Window)
	case xproto.UnmapNotifyEvent:
		c, ok := b.managed[e.Window]
		if !ok {
			return nil
		}
		if c.ignoreUnmaps > 0 {
			c.ignoreUnmaps--
			return nil
		}
		return b.forget(e.Window)
	case xproto.ConfigureRequestEvent:
		return b.configureRequest(e)
	case xproto.PropertyNotifyEvent:
		if _, ok := b.managed[e.Window]; !ok || !b.isTitleAtom(e.Atom) {
			return nil
		}
		return []platform.Event{{
			Kind:   platform.EventTitleChanged,
			Window: platform.WindowID(e.Window),
			Title:  b.conn.WindowTitle(e.Window),
		}}
	case xproto.ConfigureNotifyEvent:
		if e.Window != b.conn.Root || b.fixedSize {
			return nil
		}
		size := b.querySize()
		if size == b.screen || size.Width == 0 {
			return nil
		}
		b.screen = size
		return []platform.Event{{Kind: platform.EventOutputResized, Size: size}}
	case xproto.ButtonPressEvent:
		b.input.serverTime = uint32(e.Time)
		b.pointerFrozen, b.replayPointer = true, false
		b.frozenTime = e.Time
		return []platform.Event{b.button(e.Detail, true, e.RootX, e.RootY, e.Time)}
	case xproto.ButtonReleaseEvent:
		b.input.serverTime = uint32(e.Time)
		return []platform.Event{b.button(e.Detail, false, e.RootX, e.RootY, e.Time)}
	case xproto.KeyPressEvent:
		b.input.serverTime = uint32(e.Time)
		code := toEvdev(e.Detail)
		if isModifier(code) {
			return nil
		}
		if !b.keyboardGrab {
			b.keyboardFrozen, b.replayKeyboard = true, false
			b.frozenKey, b.frozenTime = code, e.Time
		}
		return []platform.Event{{Kind: platform.EventKey, Keycode: code, Pressed: true, Time: uint32(e.Time)}}
	case xproto.KeyReleaseEvent:
		b.input.serverTime = uint32(e.Time)
		code := toEvdev(e.Detail)
		if isModifier(code) || b.input.replayed[code] {
			return nil
		}
		return []platform.Event{{Kind: platform.EventKey, Keycode: code, Pressed: false, Time: uint32(e.Time)}}
	}
	return nil
}

func (b *Backend) button(detail xproto.Button, pressed bool, x, y int16, t xproto.Timestamp) platform.Event {
	btn := platform.ButtonLeft
	switch detail {
	case 2:
		btn = platform.ButtonMiddle
	case 3:
		btn = platform.ButtonRight
	}
	return platform.Event{
		Kind:    platform.EventPointerButton,
		Button:  btn,
		Pressed: pressed,
		X:       float64(x),
		Y:       float64(y),
		Time:    uint32(t),
	}
}

func (b *Backend) isTitleAtom(atom xproto.Atom) bool {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if a, err := b.conn.atom(name); err == nil && a == atom {
			return true
		}
	}
	return false
}

func (b *Backend) mapRequest(win xproto.Window) []platform.Event {
	conn := b.conn.XUtil.Conn()
	if !b.conn.IsNormalWindow(win) {
		// Docks and splash screens are shown but not managed.
		xproto.MapWindow(conn, win)
		return nil
	}

	c, ok := b.managed[win]
	if !ok {
		c = &client{}
		b.managed[win] = c
	}
	xproto.ChangeWindowAttributes(conn, win, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange})
	b.order = append(b.order, win)
	b.publishClientList()

	w, h, err := b.conn.WindowSize(win)
	if err != nil {
		b.logger.Debug("failed to read new window size", "window", win, "error", err)
	}
	return []platform.Event{{
		Kind:   platform.EventToplevelCreated,
		Window: platform.WindowID(win),
		Title:  b.conn.WindowTitle(win),
		Size:   platform.Size{Width: w, Height: h},
	}}
}

func (b *Backend) forget(win xproto.Window) []platform.Event {
	if _, ok := b.managed[win]; !ok {
		return nil
	}
	delete(b.managed, win)
	for i, w := range b.order {
		if w == win {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.publishClientList()
	return []platform.Event{{Kind: platform.EventToplevelDestroyed, Window: platform.WindowID(win)}}
}

func (b *Backend) configureRequest(e xproto.ConfigureRequestEvent) []platform.Event {
	if _, ok := b.managed[e.Window]; !ok {
		// Not ours yet: honor the request as asked.
		var (
			mask   uint16
			values []uint32
		)
		for _, f := range []struct {
			bit uint16
			val uint32
		}{
			{xproto.ConfigWindowX, uint32(int32(e.X))},
			{xproto.ConfigWindowY, uint32(int32(e.Y))},
			{xproto.ConfigWindowWidth, uint32(e.Width)},
			{xproto.ConfigWindowHeight, uint32(e.Height)},
			{xproto.ConfigWindowBorderWidth, uint32(e.BorderWidth)},
		} {
			if e.ValueMask&f.bit != 0 {
				mask |= f.bit
				values = append(values, f.val)
			}
		}
		xproto.ConfigureWindow(b.conn.XUtil.Conn(), e.Window, mask, values)
		return nil
	}
	if e.ValueMask&(xproto.ConfigWindowWidth|xproto.ConfigWindowHeight) == 0 {
		return nil
	}
	return []platform.Event{{
		Kind:   platform.EventSizeCommitted,
		Window: platform.WindowID(e.Window),
		Size:   platform.Size{Width: int(e.Width), Height: int(e.Height)},
	}}
}

func (b *Backend) publishClientList() {
	if err := ewmh.ClientListSet(b.conn.XUtil, b.order); err != nil {
		b.logger.Debug("failed to update client list", "error", err)
	}
}

func (b *Backend) Configure(id platform.WindowID, size platform.Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", size.Width, size.Height)
	}
	return xproto.ConfigureWindowChecked(b.conn.XUtil.Conn(), xproto.Window(id),
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(size.Width), uint32(size.Height)}).Check()
}

func (b *Backend) Close(id platform.WindowID) error {
	return b.conn.CloseWindow(xproto.Window(id))
}

func (b *Backend) Focus(id platform.WindowID) error {
	return b.conn.FocusWindow(xproto.Window(id))
}

// ForwardKey replays the press that froze the keyboard to the focused
// client. Keys the shell grabbed outright are not delivered.
func (b *Backend) ForwardKey(id platform.WindowID, ev platform.Event) error {
	if ev.Pressed && b.keyboardFrozen && ev.Keycode == b.frozenKey {
		b.replayKeyboard = true
	}
	return nil
}

func (b *Backend) ForwardPointer(id platform.WindowID, ev platform.Event) error {
	if ev.Pressed && b.pointerFrozen {
		b.replayPointer = true
	}
	return nil
}

// SendFrame is a no-op: X clients draw straight to the server.
func (b *Backend) SendFrame(id platform.WindowID, t time.Duration) error { return nil }

func (b *Backend) Surfaces() ([]platform.WindowID, error) {
	children, err := b.conn.Children()
	if err != nil {
		return nil, err
	}
	out := make([]platform.WindowID, 0, len(children))
	for _, w := range children {
		out = append(out, platform.WindowID(w))
	}
	return out, nil
}

// Flush releases frozen input, then writes buffered requests by waiting for
// a round trip.
func (b *Backend) Flush() error {
	conn := b.conn.XUtil.Conn()
	if b.pointerFrozen {
		mode := byte(xproto.AllowAsyncPointer)
		if b.replayPointer {
			mode = xproto.AllowReplayPointer
		}
		xproto.AllowEvents(conn, mode, b.frozenTime)
		b.pointerFrozen, b.replayPointer = false, false
	}
	if b.keyboardFrozen {
		mode := byte(xproto.AllowAsyncKeyboard)
		if b.replayKeyboard {
			mode = xproto.AllowReplayKeyboard
			b.input.replayed[b.frozenKey] = true
		}
		xproto.AllowEvents(conn, mode, b.frozenTime)
		b.keyboardFrozen, b.replayKeyboard = false, false
	}
	conn.Sync()
	return nil
}

func (b *Backend) Env() []string {
	if b.conn.Display == "" {
		return nil
	}
	return []string{"DISPLAY=" + b.conn.Display}
}

func (b *Backend) ScreenSize() platform.Size { return b.screen }
