package wm

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/deskshell/internal/platform"
)

const (
	MinWindowSize        = 100
	DefaultPanelHeight   = 40
	DefaultSnapThreshold = 20

	cascadeOrigin = 50
	cascadeStep   = 30
)

var defaultWindowSize = platform.Size{Width: 640, Height: 480}

// Client is the part of the protocol layer the window manager drives.
type Client interface {
	Configure(id platform.WindowID, size platform.Size) error
	Close(id platform.WindowID) error
	Focus(id platform.WindowID) error
	ForwardPointer(id platform.WindowID, ev platform.Event) error
}

// Chrome is shell-drawn UI that gets the first look at pointer presses.
// HandleClick returns true when the press was consumed.
type Chrome interface {
	HandleClick(x, y int) bool
}

// Window is a managed client toplevel.
type Window struct {
	ID        ID
	Surface   platform.WindowID
	Title     string
	Size      platform.Size
	Minimized bool
	Maximized bool

	preMax *platform.Rect
}

// WindowState is a read-only view of a window for rendering and reporting.
type WindowState struct {
	ID        ID
	Surface   platform.WindowID
	Title     string
	Bounds    platform.Rect
	Minimized bool
	Maximized bool
	Focused   bool
}

// Options configures a Manager.
type Options struct {
	Screen        platform.Size
	PanelHeight   int
	SnapThreshold int
	Logger        *slog.Logger
}

// Manager owns the managed windows, their stacking order and the current
// pointer interaction. It is not safe for concurrent use.
type Manager struct {
	client Client
	logger *slog.Logger

	// windows is in stacking order, bottom first.
	windows []*Window
	space   *Space
	focused ID

	nextID  ID
	created int

	pointerX    float64
	pointerY    float64
	interaction interaction

	screen        platform.Size
	panelHeight   int
	snapThreshold int
}

func NewManager(client Client, opts Options) *Manager {
	if opts.PanelHeight <= 0 {
		opts.PanelHeight = DefaultPanelHeight
	}
	if opts.SnapThreshold <= 0 {
		opts.SnapThreshold = DefaultSnapThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:        client,
		logger:        logger,
		space:         NewSpace(),
		nextID:        1,
		screen:        opts.Screen,
		panelHeight:   opts.PanelHeight,
		snapThreshold: opts.SnapThreshold,
	}
}

func (m *Manager) SetScreenSize(size platform.Size) {
	m.screen = size
}

func (m *Manager) ScreenSize() platform.Size {
	return m.screen
}

func (m *Manager) PanelHeight() int {
	return m.panelHeight
}

// SetLayout updates the panel height and snap threshold after a config reload.
func (m *Manager) SetLayout(panelHeight, snapThreshold int) {
	if panelHeight > 0 {
		m.panelHeight = panelHeight
	}
	if snapThreshold > 0 {
		m.snapThreshold = snapThreshold
	}
}

// Len returns the number of managed windows.
func (m *Manager) Len() int {
	return len(m.windows)
}

// AddWindow starts managing a new toplevel, places it on the cascade and
// focuses it.
func (m *Manager) AddWindow(surface platform.WindowID, title string, size platform.Size) ID {
	if _, existing := m.bySurface(surface); existing != nil {
		return existing.ID
	}

	id := m.nextID
	m.nextID++
	m.created++

	if title == "" {
		title = fmt.Sprintf("Window %d", m.created)
	}

	requested := size
	if size.Width <= 0 || size.Height <= 0 {
		size = defaultWindowSize
	}
	size = clampSize(size)

	offset := len(m.windows) * cascadeStep
	w := &Window{
		ID:      id,
		Surface: surface,
		Title:   title,
		Size:    size,
	}
	m.windows = append(m.windows, w)
	m.space.Map(id, platform.Point{
		X: cascadeOrigin + offset,
		Y: cascadeOrigin + offset + TitleBarHeight,
	})

	if size != requested {
		m.configure(w)
	}

	m.logger.Info("window mapped", "id", id, "surface", surface, "title", title, "width", size.Width, "height", size.Height)
	m.Focus(id)
	return id
}

// RemoveWindow stops managing the toplevel behind surface. Any interaction or
// focus that referenced it is dropped before this returns.
func (m *Manager) RemoveWindow(surface platform.WindowID) (ID, bool) {
	idx, w := m.bySurface(surface)
	if w == nil {
		return 0, false
	}

	m.windows = append(m.windows[:idx], m.windows[idx+1:]...)
	m.space.Unmap(w.ID)

	if m.interaction.target == w.ID {
		m.interaction = interaction{}
	}
	if m.focused == w.ID {
		m.focused = 0
		if top := m.topVisible(); top != nil {
			m.Focus(top.ID)
		}
	}

	m.logger.Info("window unmapped", "id", w.ID, "surface", surface)
	return w.ID, true
}

// SetTitle updates the title of the toplevel behind surface.
func (m *Manager) SetTitle(surface platform.WindowID, title string) {
	if _, w := m.bySurface(surface); w != nil && title != "" {
		w.Title = title
	}
}

// CommitSize records the size a client actually adopted.
func (m *Manager) CommitSize(surface platform.WindowID, size platform.Size) {
	_, w := m.bySurface(surface)
	if w == nil || size.Width <= 0 || size.Height <= 0 {
		return
	}
	w.Size = clampSize(size)
}

// Window returns a copy of the window with the given id.
func (m *Manager) Window(id ID) (Window, bool) {
	_, w := m.byID(id)
	if w == nil {
		return Window{}, false
	}
	return *w, true
}

// Lookup resolves a display surface to its managed window id.
func (m *Manager) Lookup(surface platform.WindowID) (ID, bool) {
	_, w := m.bySurface(surface)
	if w == nil {
		return 0, false
	}
	return w.ID, true
}

// Location returns the client-area origin of id.
func (m *Manager) Location(id ID) (platform.Point, bool) {
	return m.space.Location(id)
}

// Bounds returns the client rectangle of id.
func (m *Manager) Bounds(id ID) (platform.Rect, bool) {
	_, w := m.byID(id)
	if w == nil {
		return platform.Rect{}, false
	}
	loc, ok := m.space.Location(id)
	if !ok {
		return platform.Rect{}, false
	}
	return platform.Rect{X: loc.X, Y: loc.Y, Width: w.Size.Width, Height: w.Size.Height}, true
}

// Windows returns every managed window in stacking order, bottom first.
func (m *Manager) Windows() []WindowState {
	out := make([]WindowState, 0, len(m.windows))
	for _, w := range m.windows {
		loc, _ := m.space.Location(w.ID)
		out = append(out, WindowState{
			ID:        w.ID,
			Surface:   w.Surface,
			Title:     w.Title,
			Bounds:    platform.Rect{X: loc.X, Y: loc.Y, Width: w.Size.Width, Height: w.Size.Height},
			Minimized: w.Minimized,
			Maximized: w.Maximized,
			Focused:   w.ID == m.focused,
		})
	}
	return out
}

// Focused returns the focused window id.
func (m *Manager) Focused() (ID, bool) {
	if m.focused == 0 {
		return 0, false
	}
	return m.focused, true
}

// FocusedSurface returns the display surface of the focused window.
func (m *Manager) FocusedSurface() (platform.WindowID, bool) {
	_, w := m.byID(m.focused)
	if w == nil {
		return 0, false
	}
	return w.Surface, true
}

// Focus makes id the focused window and raises it to the top of the stack.
// Geometry is left alone.
func (m *Manager) Focus(id ID) bool {
	idx, w := m.byID(id)
	if w == nil {
		return false
	}
	m.focused = id
	if idx != len(m.windows)-1 {
		m.windows = append(m.windows[:idx], m.windows[idx+1:]...)
		m.windows = append(m.windows, w)
	}
	if m.client != nil {
		if err := m.client.Focus(w.Surface); err != nil {
			m.logger.Warn("focus request failed", "id", id, "error", err)
		}
	}
	return true
}

// FocusNext moves focus to the window after the focused one in stacking
// order, wrapping around.
func (m *Manager) FocusNext() (ID, bool) {
	if len(m.windows) == 0 {
		return 0, false
	}
	next := 0
	if idx, w := m.byID(m.focused); w != nil {
		next = (idx + 1) % len(m.windows)
	}
	id := m.windows[next].ID
	m.Focus(id)
	return id, true
}

// WindowAt finds the top-most visible window whose decorated frame contains
// the point. It returns HitNone when nothing is there.
func (m *Manager) WindowAt(x, y int) (ID, HitResult) {
	p := platform.Point{X: x, Y: y}
	for i := len(m.windows) - 1; i >= 0; i-- {
		w := m.windows[i]
		if w.Minimized {
			continue
		}
		loc, ok := m.space.Location(w.ID)
		if !ok {
			continue
		}
		if res := HitTest(w.Size, loc, p); res.Kind != HitNone {
			return w.ID, res
		}
	}
	return 0, hit(HitNone)
}

// HandleClick dispatches a pointer button event. Presses go to chrome first
// and then to the window under the pointer; releases end any interaction.
func (m *Manager) HandleClick(ev platform.Event, chrome Chrome) {
	if !ev.Pressed {
		m.EndInteraction()
		return
	}
	x, y := int(ev.X), int(ev.Y)
	if chrome != nil && chrome.HandleClick(x, y) {
		return
	}

	id, res := m.WindowAt(x, y)
	if res.Kind == HitNone {
		return
	}
	m.Focus(id)

	switch res.Kind {
	case HitTitleBar:
		m.StartDrag(id)
	case HitCloseButton:
		m.Close(id)
	case HitMaximizeButton:
		m.ToggleMaximize(id)
	case HitMinimizeButton:
		m.ToggleMinimize(id)
	case HitResize:
		m.StartResize(id, res.Edge)
	case HitClient:
		_, w := m.byID(id)
		if m.client != nil && w != nil {
			if err := m.client.ForwardPointer(w.Surface, ev); err != nil {
				m.logger.Warn("pointer pass-through failed", "id", id, "error", err)
			}
		}
	}
}

// ToggleMaximize maximizes id below the panel, or restores the geometry it
// had before being maximized.
func (m *Manager) ToggleMaximize(id ID) bool {
	_, w := m.byID(id)
	if w == nil {
		return false
	}

	if w.Maximized {
		if saved := w.preMax; saved != nil {
			m.space.Map(id, platform.Point{X: saved.X, Y: saved.Y})
			w.Size = platform.Size{Width: saved.Width, Height: saved.Height}
			m.configure(w)
		}
		w.preMax = nil
		w.Maximized = false
		return true
	}

	if loc, ok := m.space.Location(id); ok {
		w.preMax = &platform.Rect{X: loc.X, Y: loc.Y, Width: w.Size.Width, Height: w.Size.Height}
	}
	m.space.Map(id, platform.Point{X: 0, Y: m.panelHeight})
	w.Size = clampSize(platform.Size{Width: m.screen.Width, Height: m.screen.Height - m.panelHeight})
	w.Maximized = true
	m.configure(w)
	return true
}

// ToggleMinimize hides or shows id. The window stays managed either way.
func (m *Manager) ToggleMinimize(id ID) bool {
	_, w := m.byID(id)
	if w == nil {
		return false
	}
	w.Minimized = !w.Minimized
	return true
}

// Close asks the client behind id to close. The window is only removed once
// the client destroys its toplevel.
func (m *Manager) Close(id ID) bool {
	_, w := m.byID(id)
	if w == nil {
		return false
	}
	if m.client != nil {
		if err := m.client.Close(w.Surface); err != nil {
			m.logger.Warn("close request failed", "id", id, "error", err)
		}
	}
	return true
}

func (m *Manager) configure(w *Window) {
	if m.client == nil {
		return
	}
	if err := m.client.Configure(w.Surface, w.Size); err != nil {
		m.logger.Warn("configure request failed", "id", w.ID, "error", err)
	}
}

func (m *Manager) byID(id ID) (int, *Window) {
	if id == 0 {
		return -1, nil
	}
	for i, w := range m.windows {
		if w.ID == id {
			return i, w
		}
	}
	return -1, nil
}

func (m *Manager) bySurface(surface platform.WindowID) (int, *Window) {
	for i, w := range m.windows {
		if w.Surface == surface {
			return i, w
		}
	}
	return -1, nil
}

func (m *Manager) topVisible() *Window {
	for i := len(m.windows) - 1; i >= 0; i-- {
		if !m.windows[i].Minimized {
			return m.windows[i]
		}
	}
	if len(m.windows) > 0 {
		return m.windows[len(m.windows)-1]
	}
	return nil
}

func clampSize(s platform.Size) platform.Size {
	if s.Width < MinWindowSize {
		s.Width = MinWindowSize
	}
	if s.Height < MinWindowSize {
		s.Height = MinWindowSize
	}
	return s
}
