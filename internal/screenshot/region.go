package screenshot

import (
	"fmt"

	"github.com/1broseidon/deskshell/internal/platform"
)

// CaptureMode selects what a screenshot covers.
type CaptureMode int

const (
	FullScreen CaptureMode = iota
	ActiveWindow
	Region
)

func (m CaptureMode) String() string {
	switch m {
	case FullScreen:
		return "full"
	case ActiveWindow:
		return "window"
	case Region:
		return "region"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by String.
func ParseMode(s string) (CaptureMode, error) {
	switch s {
	case "", "full", "screen":
		return FullScreen, nil
	case "window":
		return ActiveWindow, nil
	case "region":
		return Region, nil
	default:
		return FullScreen, fmt.Errorf("unknown capture mode %q", s)
	}
}

// ModeFromModifiers maps the modifiers held with Print to a capture mode.
// Shift wins over alt.
func ModeFromModifiers(shift, alt bool) CaptureMode {
	switch {
	case shift:
		return Region
	case alt:
		return ActiveWindow
	default:
		return FullScreen
	}
}

// RegionSelection tracks a click-drag rectangle.
type RegionSelection struct {
	active bool
	start  *platform.Point
	end    *platform.Point
}

func (s *RegionSelection) Active() bool { return s.active }

// StartSelection anchors a new selection at (x, y).
func (s *RegionSelection) StartSelection(x, y int) {
	s.active = true
	s.start = &platform.Point{X: x, Y: y}
	s.end = nil
}

// Update moves the free corner while the selection is active.
func (s *RegionSelection) Update(x, y int) {
	if !s.active {
		return
	}
	s.end = &platform.Point{X: x, Y: y}
}

// Finish ends the selection and returns the normalized rectangle. It reports
// false when no end point was recorded or either side is zero.
func (s *RegionSelection) Finish() (platform.Rect, bool) {
	r, ok := s.Rect()
	s.active = false
	s.start, s.end = nil, nil
	if !ok || r.Empty() {
		return platform.Rect{}, false
	}
	return r, true
}

// Cancel drops the selection.
func (s *RegionSelection) Cancel() {
	s.active = false
	s.start, s.end = nil, nil
}

// Rect returns the current normalized rectangle for drawing the overlay.
func (s *RegionSelection) Rect() (platform.Rect, bool) {
	if s.start == nil || s.end == nil {
		return platform.Rect{}, false
	}
	left, right := min(s.start.X, s.end.X), max(s.start.X, s.end.X)
	top, bottom := min(s.start.Y, s.end.Y), max(s.start.Y, s.end.Y)
	return platform.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}, true
}
