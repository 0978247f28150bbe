package platform

import "fmt"

// EventKind discriminates the Event variants delivered by a Backend.
type EventKind int

const (
	EventToplevelCreated EventKind = iota
	EventToplevelDestroyed
	EventTitleChanged
	EventSizeCommitted
	EventPointerMotion
	EventPointerButton
	EventKey
	EventOutputResized
	EventCloseRequested
)

func (k EventKind) String() string {
	switch k {
	case EventToplevelCreated:
		return "toplevel-created"
	case EventToplevelDestroyed:
		return "toplevel-destroyed"
	case EventTitleChanged:
		return "title-changed"
	case EventSizeCommitted:
		return "size-committed"
	case EventPointerMotion:
		return "pointer-motion"
	case EventPointerButton:
		return "pointer-button"
	case EventKey:
		return "key"
	case EventOutputResized:
		return "output-resized"
	case EventCloseRequested:
		return "close-requested"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Linux input button codes.
const (
	ButtonLeft   uint32 = 0x110
	ButtonRight  uint32 = 0x111
	ButtonMiddle uint32 = 0x112
)

// Event is a single notification from the display server. Which fields are
// meaningful depends on Kind.
type Event struct {
	Kind EventKind

	// Toplevel events.
	Window WindowID
	Title  string
	Size   Size

	// Pointer position in screen coordinates.
	X float64
	Y float64

	Button  uint32
	Pressed bool

	// Keycode uses the Linux input-event key map (KEY_* values).
	Keycode uint32

	// Time is the server timestamp in milliseconds.
	Time uint32
}

func (e Event) String() string {
	switch e.Kind {
	case EventPointerMotion:
		return fmt.Sprintf("%s (%.0f,%.0f)", e.Kind, e.X, e.Y)
	case EventPointerButton:
		return fmt.Sprintf("%s button=%#x pressed=%v", e.Kind, e.Button, e.Pressed)
	case EventKey:
		return fmt.Sprintf("%s code=%d pressed=%v", e.Kind, e.Keycode, e.Pressed)
	default:
		return fmt.Sprintf("%s window=%d", e.Kind, e.Window)
	}
}
