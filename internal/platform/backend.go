package platform

import (
	"errors"
	"image"
	"time"
)

// ErrClosed is returned by Dispatch once the display connection is gone.
var ErrClosed = errors.New("display connection closed")

// WindowID is the display server's handle for a client toplevel surface.
// The shell never owns the surface; it only refers to it by this id.
type WindowID uint32

// Point is a position in screen coordinates.
type Point struct {
	X int
	Y int
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r (right/bottom edges exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Backend is the display-protocol boundary. It accepts clients, delivers
// toplevel lifecycle and raw input events, and carries size negotiation and
// close requests back to clients.
type Backend interface {
	// Accept admits pending client connections.
	Accept() error
	// Dispatch returns the events that arrived since the last call, waiting at
	// most wait for the first one.
	Dispatch(wait time.Duration) ([]Event, error)
	// Configure asks the client to adopt a new surface size.
	Configure(id WindowID, size Size) error
	// Close politely asks the client to close the toplevel.
	Close(id WindowID) error
	// Focus gives keyboard focus to the toplevel.
	Focus(id WindowID) error
	// ForwardKey delivers a key event to the client owning id.
	ForwardKey(id WindowID, ev Event) error
	// ForwardPointer passes a pointer button event through to the client.
	ForwardPointer(id WindowID, ev Event) error
	// SendFrame notifies the client that a frame was presented at t.
	SendFrame(id WindowID, t time.Duration) error
	// Surfaces lists toplevels the display server still knows about.
	Surfaces() ([]WindowID, error)
	// Flush writes buffered protocol output.
	Flush() error
	// Env returns the variables a child process needs to reach this display.
	Env() []string
}

// Output is the rendering backend the composed frame is presented on.
type Output interface {
	ScreenSize() Size
	Present(frame *Frame) error
}

// Capturer reads back the currently displayed pixels.
type Capturer interface {
	CaptureScreen() (*image.RGBA, error)
}

// Placement positions one client surface on screen.
type Placement struct {
	ID     WindowID
	Bounds Rect
}

// ShapeOp adds Rect to, or removes it from, the visible part of the chrome.
type ShapeOp struct {
	Rect     Rect
	Subtract bool
}

// Frame is one composed frame: client surfaces in bottom-to-top order and the
// shell chrome drawn above them.
type Frame struct {
	Surfaces []Placement
	// Chrome holds shell-drawn pixels; fully transparent outside Shape.
	Chrome *image.RGBA
	// Shape is applied in order, starting from an empty region, to give the
	// visible part of Chrome. Input reaches the shell through grabs, not
	// through the shape.
	Shape []ShapeOp
	// GrabKeyboard routes every key to the shell (lock screen, menus).
	GrabKeyboard bool
}

// InShape reports whether p ends up inside the chrome shape.
func (f *Frame) InShape(p Point) bool {
	in := false
	for _, op := range f.Shape {
		if op.Rect.Contains(p) {
			in = !op.Subtract
		}
	}
	return in
}
