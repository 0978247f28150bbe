package shellui

import (
	"fmt"
	"time"

	"github.com/1broseidon/deskshell/internal/platform"
)

// Panel and launcher geometry.
const (
	DefaultPanelHeight = 40

	ButtonLeft  = 10
	ButtonRight = 90

	TrayOffset    = 180
	TrayIconWidth = 28

	LauncherWidth     = 300
	LauncherMinHeight = 280
	LauncherGap       = 10
	launcherHeader    = 50
	entryPitch        = 55
	entryHeight       = 45
	entryInset        = 20

	TrayPopupWidth  = 220
	TrayPopupHeight = 80
)

// DefaultScreen is assumed until the output reports its size.
var DefaultScreen = platform.Size{Width: 1280, Height: 800}

// TrayKind identifies what a tray icon shows.
type TrayKind int

const (
	TrayNetwork TrayKind = iota
	TrayVolume
	TrayBattery
	TrayNotifications
	TrayGeneric
)

func (k TrayKind) String() string {
	switch k {
	case TrayNetwork:
		return "network"
	case TrayVolume:
		return "volume"
	case TrayBattery:
		return "battery"
	case TrayNotifications:
		return "notifications"
	case TrayGeneric:
		return "generic"
	default:
		return fmt.Sprintf("tray(%d)", int(k))
	}
}

// TrayIcon is one status indicator on the right of the panel.
type TrayIcon struct {
	ID       string
	Name     string
	Kind     TrayKind
	Level    int
	Charging bool
	Tooltip  string
}

func defaultTray() []TrayIcon {
	return []TrayIcon{
		{ID: "network", Name: "Network", Kind: TrayNetwork, Level: 75, Tooltip: "Connected"},
		{ID: "volume", Name: "Volume", Kind: TrayVolume, Level: 70, Tooltip: "Volume: 70%"},
		{ID: "battery", Name: "Battery", Kind: TrayBattery, Level: 85, Tooltip: "Battery: 85%"},
		{ID: "notifications", Name: "Notifications", Kind: TrayNotifications, Tooltip: "No notifications"},
	}
}

// Options configures a ShellUI.
type Options struct {
	Screen      platform.Size
	PanelHeight int
	// Apps are the launcher entries, top to bottom.
	Apps []string
	// Launch is called with the app name when a launcher entry is clicked.
	Launch func(app string)
}

// ShellUI is the state of the panel, launcher and tray.
type ShellUI struct {
	now             time.Time
	launcherVisible bool
	pointer         platform.Point
	screen          platform.Size
	panelHeight     int
	tray            []TrayIcon
	trayPopup       string
	apps            []string
	launch          func(string)
}

func New(opts Options) *ShellUI {
	ui := &ShellUI{
		screen:      opts.Screen,
		panelHeight: opts.PanelHeight,
		tray:        defaultTray(),
		apps:        append([]string(nil), opts.Apps...),
		launch:      opts.Launch,
	}
	if ui.screen.Width <= 0 || ui.screen.Height <= 0 {
		ui.screen = DefaultScreen
	}
	if ui.panelHeight <= 0 {
		ui.panelHeight = DefaultPanelHeight
	}
	return ui
}

// Tick advances the displayed clock.
func (u *ShellUI) Tick(now time.Time) { u.now = now }

func (u *ShellUI) Now() time.Time { return u.now }

// ClockText is the panel clock.
func (u *ShellUI) ClockText() string { return u.now.Format("15:04") }

// DateText is shown next to the clock.
func (u *ShellUI) DateText() string { return u.now.Format("Mon Jan 2") }

func (u *ShellUI) SetScreenSize(size platform.Size) {
	if size.Width > 0 && size.Height > 0 {
		u.screen = size
	}
}

func (u *ShellUI) ScreenSize() platform.Size { return u.screen }

func (u *ShellUI) PanelHeight() int { return u.panelHeight }

func (u *ShellUI) SetPanelHeight(h int) {
	if h > 0 {
		u.panelHeight = h
	}
}

func (u *ShellUI) SetPointer(x, y int) { u.pointer = platform.Point{X: x, Y: y} }

func (u *ShellUI) Pointer() platform.Point { return u.pointer }

// SetApps replaces the launcher entries.
func (u *ShellUI) SetApps(apps []string) { u.apps = append([]string(nil), apps...) }

func (u *ShellUI) Apps() []string { return append([]string(nil), u.apps...) }

func (u *ShellUI) LauncherVisible() bool { return u.launcherVisible }

// ToggleLauncher flips the launcher and closes any tray popup.
func (u *ShellUI) ToggleLauncher() {
	u.launcherVisible = !u.launcherVisible
	u.trayPopup = ""
}

func (u *ShellUI) HideLauncher() { u.launcherVisible = false }

// Tray returns the tray icons in panel order.
func (u *ShellUI) Tray() []TrayIcon { return append([]TrayIcon(nil), u.tray...) }

// TrayPopup returns the id of the expanded tray icon, if any.
func (u *ShellUI) TrayPopup() (string, bool) { return u.trayPopup, u.trayPopup != "" }

func (u *ShellUI) CloseTrayPopup() { u.trayPopup = "" }

// UpdateTray replaces the icon with the same id or appends a new one.
func (u *ShellUI) UpdateTray(icon TrayIcon) {
	for i := range u.tray {
		if u.tray[i].ID == icon.ID {
			u.tray[i] = icon
			return
		}
	}
	u.tray = append(u.tray, icon)
}

// SetTrayLevel updates the level and tooltip of an existing icon.
func (u *ShellUI) SetTrayLevel(id string, level int, tooltip string) bool {
	for i := range u.tray {
		if u.tray[i].ID == id {
			u.tray[i].Level = level
			u.tray[i].Tooltip = tooltip
			return true
		}
	}
	return false
}

// HandleClick processes a pointer press. It reports whether the press was
// used by the panel or launcher, in which case windows must not see it.
func (u *ShellUI) HandleClick(x, y int) bool {
	inPanel := y <= u.panelHeight

	if inPanel && x >= ButtonLeft && x <= ButtonRight {
		u.ToggleLauncher()
		return true
	}

	if inPanel {
		for i, icon := range u.tray {
			r := u.TrayIconRect(i)
			if x >= r.X && x <= r.X+r.Width {
				if u.trayPopup == icon.ID {
					u.trayPopup = ""
				} else {
					u.trayPopup = icon.ID
					u.launcherVisible = false
				}
				return true
			}
		}
	}

	if u.launcherVisible {
		for i, app := range u.apps {
			r := u.LauncherEntryRect(i)
			if x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height {
				u.launcherVisible = false
				if u.launch != nil {
					u.launch(app)
				}
				return true
			}
		}
		lr := u.LauncherRect()
		if x < lr.X || x > lr.X+lr.Width || y < lr.Y || y > lr.Y+lr.Height {
			u.launcherVisible = false
		} else {
			u.trayPopup = ""
			return true
		}
	}

	u.trayPopup = ""
	return inPanel
}

// PanelRect is the panel across the top of the screen.
func (u *ShellUI) PanelRect() platform.Rect {
	return platform.Rect{X: 0, Y: 0, Width: u.screen.Width, Height: u.panelHeight}
}

// ButtonRect is the launcher button at the left of the panel.
func (u *ShellUI) ButtonRect() platform.Rect {
	return platform.Rect{X: ButtonLeft, Y: 0, Width: ButtonRight - ButtonLeft, Height: u.panelHeight}
}

// TrayIconRect is the panel slot of the i-th tray icon.
func (u *ShellUI) TrayIconRect(i int) platform.Rect {
	return platform.Rect{
		X:      u.screen.Width - TrayOffset + i*TrayIconWidth,
		Y:      0,
		Width:  TrayIconWidth,
		Height: u.panelHeight,
	}
}

// ClockOrigin is where the clock text starts.
func (u *ShellUI) ClockOrigin() platform.Point {
	return platform.Point{X: u.screen.Width - TrayOffset + len(u.tray)*TrayIconWidth + 8, Y: 0}
}

// LauncherRect is the launcher popup, centered under the panel.
func (u *ShellUI) LauncherRect() platform.Rect {
	h := max(LauncherMinHeight, launcherHeader+len(u.apps)*entryPitch+LauncherGap)
	return platform.Rect{
		X:      (u.screen.Width - LauncherWidth) / 2,
		Y:      u.panelHeight + LauncherGap,
		Width:  LauncherWidth,
		Height: h,
	}
}

// LauncherEntryRect is the button of the i-th launcher entry.
func (u *ShellUI) LauncherEntryRect(i int) platform.Rect {
	lr := u.LauncherRect()
	return platform.Rect{
		X:      lr.X + entryInset,
		Y:      lr.Y + launcherHeader + i*entryPitch,
		Width:  LauncherWidth - 2*entryInset,
		Height: entryHeight,
	}
}

// TrayPopupRect is the popup below the expanded tray icon.
func (u *ShellUI) TrayPopupRect() (platform.Rect, bool) {
	for i, icon := range u.tray {
		if icon.ID != u.trayPopup || u.trayPopup == "" {
			continue
		}
		anchor := u.TrayIconRect(i)
		x := min(anchor.X, u.screen.Width-TrayPopupWidth-LauncherGap)
		return platform.Rect{X: x, Y: u.panelHeight + 4, Width: TrayPopupWidth, Height: TrayPopupHeight}, true
	}
	return platform.Rect{}, false
}

// Regions lists the parts of the screen the chrome currently covers.
func (u *ShellUI) Regions() []platform.Rect {
	regions := []platform.Rect{u.PanelRect()}
	if u.launcherVisible {
		regions = append(regions, u.LauncherRect())
	}
	if r, ok := u.TrayPopupRect(); ok {
		regions = append(regions, r)
	}
	return regions
}
