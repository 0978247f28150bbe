package screenshot

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
)

func TestRegionSelectionFinishNormalizes(t *testing.T) {
	tests := []struct {
		name       string
		start, end platform.Point
		want       platform.Rect
		ok         bool
	}{
		{"forward drag", platform.Point{X: 10, Y: 20}, platform.Point{X: 100, Y: 150}, platform.Rect{X: 10, Y: 20, Width: 90, Height: 130}, true},
		{"backward drag", platform.Point{X: 100, Y: 150}, platform.Point{X: 10, Y: 20}, platform.Rect{X: 10, Y: 20, Width: 90, Height: 130}, true},
		{"zero width", platform.Point{X: 50, Y: 20}, platform.Point{X: 50, Y: 90}, platform.Rect{}, false},
		{"zero height", platform.Point{X: 10, Y: 20}, platform.Point{X: 60, Y: 20}, platform.Rect{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s RegionSelection
			s.StartSelection(tt.start.X, tt.start.Y)
			s.Update(tt.end.X, tt.end.Y)
			got, ok := s.Finish()
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Finish() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
			if s.Active() {
				t.Fatal("selection still active after Finish")
			}
		})
	}
}

func TestRegionSelectionWithoutEndOrCancel(t *testing.T) {
	var s RegionSelection
	s.StartSelection(5, 5)
	if _, ok := s.Finish(); ok {
		t.Fatal("Finish without Update returned a rect")
	}

	s.StartSelection(0, 0)
	s.Update(40, 40)
	s.Cancel()
	if s.Active() {
		t.Fatal("active after Cancel")
	}
	if _, ok := s.Rect(); ok {
		t.Fatal("points survived Cancel")
	}

	s.Update(10, 10)
	if _, ok := s.Rect(); ok {
		t.Fatal("Update recorded a point while inactive")
	}
}

func TestModeFromModifiers(t *testing.T) {
	tests := []struct {
		shift, alt bool
		want       CaptureMode
	}{
		{false, false, FullScreen},
		{false, true, ActiveWindow},
		{true, false, Region},
		{true, true, Region},
	}
	for _, tt := range tests {
		if got := ModeFromModifiers(tt.shift, tt.alt); got != tt.want {
			t.Fatalf("ModeFromModifiers(%v, %v) = %v, want %v", tt.shift, tt.alt, got, tt.want)
		}
	}
}

type fakeCapturer struct {
	img *image.RGBA
	err error
}

func (c fakeCapturer) CaptureScreen() (*image.RGBA, error) { return c.img, c.err }

type recordedToast struct{ app, summary, body string }

type fakeNotifier struct{ toasts []recordedToast }

func (n *fakeNotifier) Notify(app, summary, body string, _ ...notify.Option) uint32 {
	n.toasts = append(n.toasts, recordedToast{app, summary, body})
	return uint32(len(n.toasts))
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	return img
}

func TestCropCopiesAndClamps(t *testing.T) {
	src := gradient(100, 80)

	out, err := Crop(src, platform.Rect{X: 10, Y: 20, Width: 30, Height: 40})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 30, 40) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(0, 0); got.R != 10 || got.G != 20 {
		t.Fatalf("origin pixel = %+v", got)
	}

	out, err = Crop(src, platform.Rect{X: 90, Y: 70, Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("Crop overlapping edge: %v", err)
	}
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 10 {
		t.Fatalf("clamped bounds = %v", out.Bounds())
	}

	if _, err := Crop(src, platform.Rect{X: 200, Y: 200, Width: 5, Height: 5}); !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("Crop outside = %v, want ErrEmptyRegion", err)
	}
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestCaptureSavesPNGAndAnnounces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	taken := time.Date(2026, 5, 6, 7, 8, 9, 0, time.Local)
	notifier := &fakeNotifier{}
	var images [][]byte
	var copied []string

	m := NewManager(Options{
		Dir:              dir,
		SaveToFile:       true,
		CopyToClipboard:  true,
		ShowNotification: true,
		Notifier:         notifier,
		Clock:            func() time.Time { return taken },
		CopyImage:        func(b []byte) error { images = append(images, b); return nil },
		CopyText:         func(s string) error { copied = append(copied, s); return nil },
	})

	shot, err := m.Capture(fakeCapturer{img: gradient(64, 48)}, ActiveWindow, platform.Rect{X: 8, Y: 8, Width: 16, Height: 12})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	want := filepath.Join(dir, "screenshot_20260506_070809.png")
	if shot.Path != want {
		t.Fatalf("Path = %q, want %q", shot.Path, want)
	}
	if shot.Width() != 16 || shot.Height() != 12 {
		t.Fatalf("size = %dx%d", shot.Width(), shot.Height())
	}

	saved, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if w, h := decodeSize(t, saved); w != 16 || h != 12 {
		t.Fatalf("saved size = %dx%d", w, h)
	}

	if len(images) != 1 || !bytes.Equal(images[0], saved) {
		t.Fatalf("clipboard got %d images, want the saved png", len(images))
	}
	if len(copied) != 0 {
		t.Fatalf("path copied although the image was: %v", copied)
	}
	if len(notifier.toasts) != 1 || notifier.toasts[0].summary != "Window captured" || notifier.toasts[0].app != "Screenshot" {
		t.Fatalf("toasts = %+v", notifier.toasts)
	}
}

func TestClipboardWithoutSaving(t *testing.T) {
	dir := t.TempDir()
	var images [][]byte
	m := NewManager(Options{
		Dir:             dir,
		CopyToClipboard: true,
		CopyImage:       func(b []byte) error { images = append(images, b); return nil },
		CopyText:        func(string) error { t.Fatal("path copied without a saved file"); return nil },
	})

	shot, err := m.Capture(fakeCapturer{img: gradient(20, 10)}, FullScreen, platform.Rect{})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if shot.Path != "" {
		t.Fatalf("saved despite SaveToFile=false: %q", shot.Path)
	}
	if len(images) != 1 {
		t.Fatalf("clipboard writes = %d, want 1", len(images))
	}
	if w, h := decodeSize(t, images[0]); w != 20 || h != 10 {
		t.Fatalf("clipboard image = %dx%d", w, h)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("files written: %d", len(entries))
	}
}

func TestClipboardFallsBackToPath(t *testing.T) {
	var copied []string
	m := NewManager(Options{
		Dir:             t.TempDir(),
		SaveToFile:      true,
		CopyToClipboard: true,
		CopyImage:       func([]byte) error { return errors.New("xclip not found") },
		CopyText:        func(s string) error { copied = append(copied, s); return nil },
	})

	shot, err := m.Capture(fakeCapturer{img: gradient(8, 8)}, FullScreen, platform.Rect{})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(copied) != 1 || copied[0] != shot.Path {
		t.Fatalf("clipboard = %v, want %q", copied, shot.Path)
	}
}

func TestSaveNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	taken := time.Date(2026, 5, 6, 7, 8, 9, 0, time.Local)
	m := NewManager(Options{Dir: dir, SaveToFile: true, Clock: func() time.Time { return taken }})

	var paths []string
	for i := 0; i < 3; i++ {
		shot, err := m.Capture(fakeCapturer{img: gradient(4+i, 4)}, FullScreen, platform.Rect{})
		if err != nil {
			t.Fatalf("Capture %d: %v", i, err)
		}
		paths = append(paths, shot.Path)
	}

	want := []string{
		filepath.Join(dir, "screenshot_20260506_070809.png"),
		filepath.Join(dir, "screenshot_20260506_070809_1.png"),
		filepath.Join(dir, "screenshot_20260506_070809_2.png"),
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d = %q, want %q", i, paths[i], want[i])
		}
		data, err := os.ReadFile(want[i])
		if err != nil {
			t.Fatalf("read %s: %v", want[i], err)
		}
		if w, _ := decodeSize(t, data); w != 4+i {
			t.Fatalf("%s width = %d, want %d", want[i], w, 4+i)
		}
	}
}

func TestCaptureFailureIsAnnouncedNotFatal(t *testing.T) {
	notifier := &fakeNotifier{}
	m := NewManager(Options{Dir: t.TempDir(), SaveToFile: true, ShowNotification: true, Notifier: notifier})

	if _, err := m.Capture(fakeCapturer{err: errors.New("no framebuffer")}, FullScreen, platform.Rect{}); err == nil {
		t.Fatal("Capture succeeded with a failing source")
	}
	if _, err := m.Capture(nil, FullScreen, platform.Rect{}); err == nil {
		t.Fatal("Capture succeeded without a source")
	}
	if len(notifier.toasts) != 2 || notifier.toasts[0].summary != "Screenshot failed" {
		t.Fatalf("toasts = %+v", notifier.toasts)
	}
}

func TestRegionFlow(t *testing.T) {
	notifier := &fakeNotifier{}
	m := NewManager(Options{Dir: t.TempDir(), ShowNotification: true, Notifier: notifier})

	m.BeginRegion(10, 10)
	if !m.Selection.Active() {
		t.Fatal("selection not active after BeginRegion")
	}
	m.Selection.Update(40, 30)
	shot, ok := m.FinishRegion(fakeCapturer{img: gradient(100, 100)})
	if !ok {
		t.Fatal("FinishRegion = false")
	}
	if shot.Path != "" {
		t.Fatalf("saved despite SaveToFile=false: %q", shot.Path)
	}
	if shot.Width() != 30 || shot.Height() != 20 {
		t.Fatalf("size = %dx%d", shot.Width(), shot.Height())
	}

	summaries := []string{}
	for _, toast := range notifier.toasts {
		summaries = append(summaries, toast.summary)
	}
	if len(summaries) != 2 || summaries[0] != "Select region" || summaries[1] != "Region captured" {
		t.Fatalf("toasts = %v", summaries)
	}

	m.BeginRegion(5, 5)
	if _, ok := m.FinishRegion(fakeCapturer{img: gradient(10, 10)}); ok {
		t.Fatal("empty region produced a screenshot")
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []CaptureMode{FullScreen, ActiveWindow, Region} {
		got, err := ParseMode(mode.String())
		if err != nil || got != mode {
			t.Fatalf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseMode("everything"); err == nil {
		t.Fatal("ParseMode accepted an unknown name")
	}
}
