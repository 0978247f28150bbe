package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/deskshell/internal/platform"
)

// X keycodes are evdev codes offset by 8 on every evdev-based server.
const evdevOffset = 8

func toEvdev(kc xproto.Keycode) uint32 { return uint32(kc) - evdevOffset }

func toKeycode(code uint32) xproto.Keycode { return xproto.Keycode(code + evdevOffset) }

// Evdev codes of the keys grabbed on the root window. Presses of these reach
// the shell first and are replayed to the focused client when forwarded.
var boundKeys = []uint32{
	1,   // Esc
	15,  // Tab
	18,  // E
	20,  // T
	16,  // Q
	28,  // Enter
	38,  // L
	87,  // F11
	99,  // Print
	103, // Up
	108, // Down
	111, // Delete
}

// Modifier keys are never grabbed; their state is read from the keymap so
// the shell sees them no matter which client has focus.
var modifierKeys = []uint32{
	42, 54, // Shift
	29, 97, // Ctrl
	56, 100, // Alt
	125, 126, // Super
}

func isModifier(code uint32) bool {
	for _, m := range modifierKeys {
		if m == code {
			return true
		}
	}
	return false
}

// keymap is the 256-bit pressed-key vector returned by QueryKeymap.
type keymap [32]byte

func keymapFrom(keys []byte) keymap {
	var km keymap
	copy(km[:], keys)
	return km
}

func (k keymap) down(code uint32) bool {
	kc := code + evdevOffset
	if kc > 255 {
		return false
	}
	return k[kc/8]&(1<<(kc%8)) != 0
}

// inputState turns polled pointer and keymap samples into events.
type inputState struct {
	pointer    platform.Point
	havePoint  bool
	keys       keymap
	haveKeys   bool
	replayed   map[uint32]bool // forwarded presses whose release goes to the client
	serverTime uint32
}

func newInputState() *inputState {
	return &inputState{replayed: map[uint32]bool{}}
}

// samplePointer reports a motion event when the pointer moved.
func (s *inputState) samplePointer(x, y int) (platform.Event, bool) {
	p := platform.Point{X: x, Y: y}
	if s.havePoint && p == s.pointer {
		return platform.Event{}, false
	}
	s.pointer, s.havePoint = p, true
	return platform.Event{
		Kind: platform.EventPointerMotion,
		X:    float64(x),
		Y:    float64(y),
		Time: s.serverTime,
	}, true
}

// sampleKeys diffs a keymap against the previous sample. Modifier changes
// become press and release events; replayed keys that came up become
// releases.
func (s *inputState) sampleKeys(km keymap) []platform.Event {
	var out []platform.Event
	for _, code := range modifierKeys {
		now := km.down(code)
		before := s.haveKeys && s.keys.down(code)
		if now != before && (s.haveKeys || now) {
			out = append(out, s.key(code, now))
		}
	}
	for code := range s.replayed {
		if !km.down(code) {
			delete(s.replayed, code)
			out = append(out, s.key(code, false))
		}
	}
	s.keys, s.haveKeys = km, true
	return out
}

func (s *inputState) key(code uint32, pressed bool) platform.Event {
	return platform.Event{Kind: platform.EventKey, Keycode: code, Pressed: pressed, Time: s.serverTime}
}

// grabBindings installs the passive grabs: bound keys with any modifier and
// the left button, both synchronous so a press can be replayed.
func (c *Connection) grabBindings() error {
	conn := c.XUtil.Conn()
	for _, code := range boundKeys {
		err := xproto.GrabKeyChecked(conn, false, c.Root, xproto.ModMaskAny, toKeycode(code),
			xproto.GrabModeAsync, xproto.GrabModeSync).Check()
		if err != nil {
			return err
		}
	}
	return xproto.GrabButtonChecked(conn, false, c.Root,
		uint16(xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease),
		xproto.GrabModeSync, xproto.GrabModeAsync,
		xproto.WindowNone, xproto.CursorNone,
		xproto.ButtonIndex1, xproto.ModMaskAny).Check()
}
