package input

// Linux evdev key codes used by the shell.
const (
	KeyEsc        uint32 = 1
	KeyMinus      uint32 = 12
	KeyEqual      uint32 = 13
	KeyBackspace  uint32 = 14
	KeyTab        uint32 = 15
	KeyQ          uint32 = 16
	KeyE          uint32 = 18
	KeyT          uint32 = 20
	KeyEnter      uint32 = 28
	KeyLeftCtrl   uint32 = 29
	KeyL          uint32 = 38
	KeyLeftShift  uint32 = 42
	KeyRightShift uint32 = 54
	KeyLeftAlt    uint32 = 56
	KeySpace      uint32 = 57
	KeyF11        uint32 = 87
	KeyRightCtrl  uint32 = 97
	KeyPrint      uint32 = 99
	KeyRightAlt   uint32 = 100
	KeyUp         uint32 = 103
	KeyDown       uint32 = 108
	KeyDelete     uint32 = 111
	KeyLeftMeta   uint32 = 125
	KeyRightMeta  uint32 = 126
)

// ModifierState tracks which modifier keys are held.
type ModifierState struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Super bool
}

// Update records a press or release of code. It reports whether code is a
// modifier key.
func (m *ModifierState) Update(code uint32, pressed bool) bool {
	switch code {
	case KeyLeftShift, KeyRightShift:
		m.Shift = pressed
	case KeyLeftCtrl, KeyRightCtrl:
		m.Ctrl = pressed
	case KeyLeftAlt, KeyRightAlt:
		m.Alt = pressed
	case KeyLeftMeta, KeyRightMeta:
		m.Super = pressed
	default:
		return false
	}
	return true
}

// IsSuper reports whether code is either Super key.
func IsSuper(code uint32) bool {
	return code == KeyLeftMeta || code == KeyRightMeta
}

var (
	digitShifted = []rune("!@#$%^&*()")
	letterRows   = map[uint32]rune{
		16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u', 23: 'i', 24: 'o', 25: 'p',
		30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j', 37: 'k', 38: 'l',
		44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm',
	}
)

// KeyToChar maps a US-layout key code to the character it types. It covers
// the number row, letters, space, minus and equals.
func KeyToChar(code uint32, shift bool) (rune, bool) {
	switch {
	case code >= 2 && code <= 11:
		// 2..10 are 1..9, 11 is 0.
		n := (code - 1) % 10
		if shift {
			return digitShifted[(n+9)%10], true
		}
		return rune('0' + n), true
	case code == KeySpace:
		return ' ', true
	case code == KeyMinus:
		if shift {
			return '_', true
		}
		return '-', true
	case code == KeyEqual:
		if shift {
			return '+', true
		}
		return '=', true
	}
	if r, ok := letterRows[code]; ok {
		if shift {
			return r - 'a' + 'A', true
		}
		return r, true
	}
	return 0, false
}
