package session

import (
	"fmt"
	"strings"
)

// Action is a session-level operation offered by the power menu.
type Action int

const (
	Lock Action = iota
	Logout
	Suspend
	Hibernate
	Reboot
	Shutdown
)

// Actions lists every action in menu order.
var Actions = []Action{Lock, Logout, Suspend, Hibernate, Reboot, Shutdown}

func (a Action) String() string {
	switch a {
	case Lock:
		return "lock"
	case Logout:
		return "logout"
	case Suspend:
		return "suspend"
	case Hibernate:
		return "hibernate"
	case Reboot:
		return "reboot"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Label is the text shown in the power menu.
func (a Action) Label() string {
	switch a {
	case Lock:
		return "Lock"
	case Logout:
		return "Log Out"
	case Suspend:
		return "Suspend"
	case Hibernate:
		return "Hibernate"
	case Reboot:
		return "Reboot"
	case Shutdown:
		return "Shut Down"
	default:
		return a.String()
	}
}

// Icon is the freedesktop icon name for the action.
func (a Action) Icon() string {
	switch a {
	case Lock:
		return "system-lock-screen"
	case Logout:
		return "system-log-out"
	case Suspend:
		return "system-suspend"
	case Hibernate:
		return "system-suspend-hibernate"
	case Reboot:
		return "system-reboot"
	case Shutdown:
		return "system-shutdown"
	default:
		return ""
	}
}

// Command returns the argv that performs the action, or nil for actions the
// shell handles itself (Lock and Logout).
func (a Action) Command() []string {
	switch a {
	case Suspend:
		return []string{"systemctl", "suspend"}
	case Hibernate:
		return []string{"systemctl", "hibernate"}
	case Reboot:
		return []string{"systemctl", "reboot"}
	case Shutdown:
		return []string{"systemctl", "poweroff"}
	default:
		return nil
	}
}

// ParseAction accepts the names produced by String, plus "poweroff".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lock":
		return Lock, nil
	case "logout", "log-out":
		return Logout, nil
	case "suspend":
		return Suspend, nil
	case "hibernate":
		return Hibernate, nil
	case "reboot", "restart":
		return Reboot, nil
	case "shutdown", "poweroff":
		return Shutdown, nil
	default:
		return 0, fmt.Errorf("unknown session action %q", s)
	}
}

// PowerMenu is the modal session-action picker.
type PowerMenu struct {
	visible  bool
	selected int
}

func (p *PowerMenu) Visible() bool { return p.visible }

// Selected returns the highlighted action.
func (p *PowerMenu) Selected() Action { return Actions[p.selected] }

// SelectedIndex returns the position of the highlighted action.
func (p *PowerMenu) SelectedIndex() int { return p.selected }

// Toggle flips visibility and resets the selection to the first action.
func (p *PowerMenu) Toggle() {
	p.visible = !p.visible
	p.selected = 0
}

func (p *PowerMenu) Show() {
	p.visible = true
	p.selected = 0
}

func (p *PowerMenu) Hide() { p.visible = false }

// SelectNext moves the highlight down, wrapping at the end.
func (p *PowerMenu) SelectNext() {
	p.selected = (p.selected + 1) % len(Actions)
}

// SelectPrev moves the highlight up, wrapping at the start.
func (p *PowerMenu) SelectPrev() {
	p.selected = (p.selected + len(Actions) - 1) % len(Actions)
}

// Select highlights the action at index i when it is in range.
func (p *PowerMenu) Select(i int) bool {
	if i < 0 || i >= len(Actions) {
		return false
	}
	p.selected = i
	return true
}

// Confirm hides the menu and returns the highlighted action. It reports
// false when the menu was not open.
func (p *PowerMenu) Confirm() (Action, bool) {
	if !p.visible {
		return 0, false
	}
	p.visible = false
	return Actions[p.selected], true
}
