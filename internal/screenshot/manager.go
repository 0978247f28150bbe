package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
)

// FilenameLayout is the time layout used for saved screenshots.
const FilenameLayout = "screenshot_20060102_150405.png"

const appName = "Screenshot"

// ErrEmptyRegion is returned when a crop does not overlap the captured image.
var ErrEmptyRegion = errors.New("capture region is empty")

// Notifier posts user-visible toasts. *notify.Daemon satisfies it.
type Notifier interface {
	Notify(app, summary, body string, opts ...notify.Option) uint32
}

// Screenshot is one captured image.
type Screenshot struct {
	Image *image.RGBA
	Mode  CaptureMode
	Path  string
	Taken time.Time
}

func (s *Screenshot) Width() int  { return s.Image.Bounds().Dx() }
func (s *Screenshot) Height() int { return s.Image.Bounds().Dy() }

// Options configures a Manager.
type Options struct {
	Dir              string
	SaveToFile       bool
	CopyToClipboard  bool
	ShowNotification bool

	Notifier Notifier
	Logger   *slog.Logger
	Clock    func() time.Time
	// CopyImage receives the encoded PNG. It defaults to xclip.
	CopyImage func([]byte) error
	// CopyText puts the saved path on the clipboard when CopyImage fails.
	// It defaults to the system clipboard.
	CopyText func(string) error
}

// Manager captures, crops, saves and announces screenshots. It also owns the
// in-progress region selection.
type Manager struct {
	Selection RegionSelection

	dir              string
	saveToFile       bool
	copyToClipboard  bool
	showNotification bool

	notifier Notifier
	logger   *slog.Logger
	now       func() time.Time
	copyImage func([]byte) error
	copyText  func(string) error
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		dir:              opts.Dir,
		saveToFile:       opts.SaveToFile,
		copyToClipboard:  opts.CopyToClipboard,
		showNotification: opts.ShowNotification,
		notifier:         opts.Notifier,
		logger:           opts.Logger,
		now:              opts.Clock,
		copyImage:        opts.CopyImage,
		copyText:         opts.CopyText,
	}
	if m.dir == "" {
		m.dir = DefaultDir()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.copyImage == nil {
		m.copyImage = copyPNG
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	return m
}

// DefaultDir is ~/Pictures/Screenshots, or /tmp/Screenshots without a home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "Screenshots")
	}
	return filepath.Join(home, "Pictures", "Screenshots")
}

func (m *Manager) Dir() string { return m.dir }

// Filename returns the path a screenshot taken at t is saved to.
func (m *Manager) Filename(t time.Time) string {
	return filepath.Join(m.dir, t.Format(FilenameLayout))
}

// BeginRegion starts an interactive region selection at the pointer.
func (m *Manager) BeginRegion(x, y int) {
	m.Selection.StartSelection(x, y)
	m.announce("Select region", "Click and drag to select area")
}

// FinishRegion ends the selection and captures the selected area. It
// reports false when the selection was empty.
func (m *Manager) FinishRegion(src platform.Capturer) (*Screenshot, bool) {
	r, ok := m.Selection.Finish()
	if !ok {
		return nil, false
	}
	shot, err := m.Capture(src, Region, r)
	if err != nil {
		return nil, false
	}
	return shot, true
}

// Capture grabs the screen and, for window and region captures, crops it to
// area. Failures are logged and announced, and also returned.
func (m *Manager) Capture(src platform.Capturer, mode CaptureMode, area platform.Rect) (*Screenshot, error) {
	shot, err := m.capture(src, mode, area)
	if err != nil {
		m.logger.Warn("screenshot failed", "mode", mode, "error", err)
		m.announce("Screenshot failed", err.Error())
		return nil, err
	}

	summary := "Full screen captured"
	switch mode {
	case ActiveWindow:
		summary = "Window captured"
	case Region:
		summary = "Region captured"
	}
	m.announce(summary, m.savedBody(shot))
	return shot, nil
}

func (m *Manager) capture(src platform.Capturer, mode CaptureMode, area platform.Rect) (*Screenshot, error) {
	if src == nil {
		return nil, errors.New("screen capture is not available")
	}
	img, err := src.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to read screen: %w", err)
	}
	if mode != FullScreen {
		img, err = Crop(img, area)
		if err != nil {
			return nil, err
		}
	}

	shot := &Screenshot{Image: img, Mode: mode, Taken: m.now()}
	if !m.saveToFile && !m.copyToClipboard {
		return shot, nil
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	if m.saveToFile {
		path, err := m.write(shot.Taken, data)
		if err != nil {
			return nil, err
		}
		shot.Path = path
	}
	if m.copyToClipboard {
		m.toClipboard(shot, data)
	}
	return shot, nil
}

// toClipboard puts the image on the clipboard, falling back to the saved path.
func (m *Manager) toClipboard(shot *Screenshot, data []byte) {
	err := m.copyImage(data)
	if err == nil {
		return
	}
	if shot.Path == "" {
		m.logger.Warn("failed to copy screenshot to clipboard", "error", err)
		return
	}
	m.logger.Debug("image clipboard unavailable, copying path", "error", err)
	if err := m.copyText(shot.Path); err != nil {
		m.logger.Warn("failed to copy screenshot path to clipboard", "path", shot.Path, "error", err)
	}
}

// Save writes the screenshot as PNG under the save directory and returns
// the path used.
func (m *Manager) Save(shot *Screenshot) (string, error) {
	data, err := encodePNG(shot.Image)
	if err != nil {
		return "", err
	}
	return m.write(shot.Taken, data)
}

// maxNameCollisions bounds the _N suffixes tried for one timestamp.
const maxNameCollisions = 1000

// write creates a new file for a screenshot taken at t. A file that already
// exists is never replaced; later captures within the same second get a _N
// suffix.
func (m *Manager) write(t time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	base := m.Filename(t)
	for n := 0; n < maxNameCollisions; n++ {
		path := base
		if n > 0 {
			path = fmt.Sprintf("%s_%d.png", strings.TrimSuffix(base, ".png"), n)
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to save screenshot: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to save screenshot: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to save screenshot: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to save screenshot: too many files named %s", filepath.Base(base))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop copies the part of img covered by area into a new image anchored at
// the origin. Parts of area outside img are dropped.
func Crop(img *image.RGBA, area platform.Rect) (*image.RGBA, error) {
	r := area.Image().Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}

func (m *Manager) savedBody(shot *Screenshot) string {
	if shot.Path == "" {
		return ""
	}
	return "Saved to " + m.displayDir()
}

// displayDir shortens the save directory relative to the home directory.
func (m *Manager) displayDir() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		if rel, ok := strings.CutPrefix(m.dir, home+string(filepath.Separator)); ok {
			return rel
		}
	}
	return m.dir
}

func (m *Manager) announce(summary, body string) {
	if !m.showNotification || m.notifier == nil {
		return
	}
	m.notifier.Notify(appName, summary, body, notify.WithIcon("camera"))
}
