package shellui

import (
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/platform"
)

func newTestUI(launched *[]string) *ShellUI {
	return New(Options{
		Apps:   []string{"Terminal", "Browser", "Files", "Settings"},
		Launch: func(app string) { *launched = append(*launched, app) },
	})
}

func TestDefaults(t *testing.T) {
	ui := New(Options{})
	if ui.ScreenSize() != DefaultScreen || ui.PanelHeight() != DefaultPanelHeight {
		t.Fatalf("screen=%v panel=%d", ui.ScreenSize(), ui.PanelHeight())
	}
	tray := ui.Tray()
	if len(tray) != 4 || tray[0].Kind != TrayNetwork || tray[3].ID != "notifications" {
		t.Fatalf("tray = %+v", tray)
	}
	ui.SetScreenSize(platform.Size{})
	if ui.ScreenSize() != DefaultScreen {
		t.Fatal("zero screen size accepted")
	}
}

func TestButtonTogglesLauncher(t *testing.T) {
	var launched []string
	ui := newTestUI(&launched)

	if !ui.HandleClick(50, 20) || !ui.LauncherVisible() {
		t.Fatal("button click did not open the launcher")
	}
	if !ui.HandleClick(10, 40) || ui.LauncherVisible() {
		t.Fatal("second button click did not close the launcher")
	}
	if ui.HandleClick(50, 41) {
		t.Fatal("click below the panel was consumed")
	}
}

func TestLauncherEntryLaunches(t *testing.T) {
	var launched []string
	ui := newTestUI(&launched)
	ui.ToggleLauncher()

	// Launcher at x=490, y=50 on a 1280-wide screen; Files is entry 2.
	r := ui.LauncherEntryRect(2)
	if r.X != 510 || r.Y != 50+50+110 || r.Width != 260 || r.Height != 45 {
		t.Fatalf("entry rect = %+v", r)
	}
	if !ui.HandleClick(r.X+5, r.Y+5) {
		t.Fatal("entry click not consumed")
	}
	if len(launched) != 1 || launched[0] != "Files" {
		t.Fatalf("launched = %v", launched)
	}
	if ui.LauncherVisible() {
		t.Fatal("launcher stayed open after launching")
	}
}

func TestClickOutsideLauncherClosesAndPassesThrough(t *testing.T) {
	var launched []string
	ui := newTestUI(&launched)
	ui.ToggleLauncher()

	lr := ui.LauncherRect()
	if !ui.HandleClick(lr.X+2, lr.Y+2) || !ui.LauncherVisible() {
		t.Fatal("click inside launcher background should be consumed and keep it open")
	}
	if ui.HandleClick(lr.X-50, 500) {
		t.Fatal("click outside launcher was consumed")
	}
	if ui.LauncherVisible() {
		t.Fatal("click outside launcher did not close it")
	}
	if len(launched) != 0 {
		t.Fatalf("unexpected launches %v", launched)
	}
}

func TestTrayIconPopup(t *testing.T) {
	var launched []string
	ui := newTestUI(&launched)
	ui.ToggleLauncher()

	// Volume is the second icon: 1280-180+28 = 1128.
	if !ui.HandleClick(1130, 15) {
		t.Fatal("tray click not consumed")
	}
	if id, ok := ui.TrayPopup(); !ok || id != "volume" {
		t.Fatalf("popup = %q, %v", id, ok)
	}
	if ui.LauncherVisible() {
		t.Fatal("tray popup left the launcher open")
	}
	if _, ok := ui.TrayPopupRect(); !ok {
		t.Fatal("no popup rect")
	}
	if len(ui.Regions()) != 2 {
		t.Fatalf("regions = %v", ui.Regions())
	}

	ui.HandleClick(1130, 15)
	if _, ok := ui.TrayPopup(); ok {
		t.Fatal("second click did not close the popup")
	}

	ui.HandleClick(1130, 15)
	ui.HandleClick(600, 600)
	if _, ok := ui.TrayPopup(); ok {
		t.Fatal("click elsewhere did not close the popup")
	}
}

func TestTrayUpdatesAndClock(t *testing.T) {
	ui := New(Options{})
	if !ui.SetTrayLevel("notifications", 3, "3 notifications") {
		t.Fatal("SetTrayLevel failed")
	}
	if ui.SetTrayLevel("bluetooth", 1, "") {
		t.Fatal("SetTrayLevel of unknown icon succeeded")
	}
	ui.UpdateTray(TrayIcon{ID: "bluetooth", Name: "Bluetooth", Kind: TrayGeneric})
	tray := ui.Tray()
	if len(tray) != 5 || tray[3].Level != 3 || tray[4].ID != "bluetooth" {
		t.Fatalf("tray = %+v", tray)
	}

	ui.Tick(time.Date(2026, 10, 19, 9, 5, 0, 0, time.UTC))
	if ui.ClockText() != "09:05" || ui.DateText() != "Mon Oct 19" {
		t.Fatalf("clock = %q %q", ui.ClockText(), ui.DateText())
	}
}
