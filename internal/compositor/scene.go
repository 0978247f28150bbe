package compositor

import (
	"fmt"
	"image"
	"time"

	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/session"
	"github.com/1broseidon/deskshell/internal/shellui"
	"github.com/1broseidon/deskshell/internal/wm"
)

// Layer is one pass of a frame. Layers are drawn in ascending order.
type Layer int

const (
	LayerSurfaces Layer = iota
	LayerDecorations
	LayerPanel
	LayerNotifications
	LayerOSD
	LayerRegion
	LayerPowerMenu
	LayerLockScreen
)

func (l Layer) String() string {
	switch l {
	case LayerSurfaces:
		return "surfaces"
	case LayerDecorations:
		return "decorations"
	case LayerPanel:
		return "panel"
	case LayerNotifications:
		return "notifications"
	case LayerOSD:
		return "osd"
	case LayerRegion:
		return "region"
	case LayerPowerMenu:
		return "power-menu"
	case LayerLockScreen:
		return "lock-screen"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Scene is a snapshot of everything drawn in one frame. Only the layers
// listed in Layers are drawn; the other fields may be zero.
type Scene struct {
	Screen platform.Size
	Now    time.Time
	Layers []Layer

	// Windows are the visible managed windows, bottom first.
	Windows []wm.WindowState
	Panel   PanelView
	Toasts  []notify.Notification
	OSD     *notify.OSD
	// Selection is nil until the region drag has an end point.
	Selection *platform.Rect
	Power     PowerView
	Lock      lockscreen.View
}

// Has reports whether layer l is drawn this frame.
func (s *Scene) Has(l Layer) bool {
	for _, x := range s.Layers {
		if x == l {
			return true
		}
	}
	return false
}

// PanelView is the panel, launcher and tray as laid out by shellui.
type PanelView struct {
	Rect        platform.Rect
	Button      platform.Rect
	Clock       string
	Date        string
	ClockOrigin platform.Point
	Tray        []TrayItem
	Launcher    *LauncherView
	TrayPopup   *TrayPopupView
}

type TrayItem struct {
	Icon shellui.TrayIcon
	Rect platform.Rect
}

type LauncherView struct {
	Rect    platform.Rect
	Entries []LauncherEntry
}

type LauncherEntry struct {
	Name  string
	Rect  platform.Rect
	Hover bool
}

type TrayPopupView struct {
	Rect platform.Rect
	Icon shellui.TrayIcon
}

// PowerView is the power menu with its current selection.
type PowerView struct {
	Actions  []session.Action
	Selected int
}

// Painter turns a Scene into chrome pixels and the shape those pixels cover.
type Painter interface {
	Paint(scene *Scene) (*image.RGBA, []platform.ShapeOp)
}

func panelView(ui *shellui.ShellUI) PanelView {
	pv := PanelView{
		Rect:        ui.PanelRect(),
		Button:      ui.ButtonRect(),
		Clock:       ui.ClockText(),
		Date:        ui.DateText(),
		ClockOrigin: ui.ClockOrigin(),
	}
	for i, icon := range ui.Tray() {
		pv.Tray = append(pv.Tray, TrayItem{Icon: icon, Rect: ui.TrayIconRect(i)})
	}

	if ui.LauncherVisible() {
		lv := &LauncherView{Rect: ui.LauncherRect()}
		pointer := ui.Pointer()
		for i, app := range ui.Apps() {
			r := ui.LauncherEntryRect(i)
			lv.Entries = append(lv.Entries, LauncherEntry{Name: app, Rect: r, Hover: r.Contains(pointer)})
		}
		pv.Launcher = lv
	}

	if id, ok := ui.TrayPopup(); ok {
		if r, ok := ui.TrayPopupRect(); ok {
			for _, icon := range ui.Tray() {
				if icon.ID == id {
					pv.TrayPopup = &TrayPopupView{Rect: r, Icon: icon}
				}
			}
		}
	}
	return pv
}
