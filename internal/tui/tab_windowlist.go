package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
)

// windowItem is one managed window.
type windowItem struct {
	w ipc.WindowInfo
}

func (i windowItem) Title() string {
	title := i.w.Title
	if title == "" {
		title = "(untitled)"
	}
	if i.w.Focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("▸") + " " + title
	}
	return "  " + title
}

func (i windowItem) Description() string {
	var flags []string
	if i.w.Minimized {
		flags = append(flags, "minimized")
	}
	if i.w.Maximized {
		flags = append(flags, "maximized")
	}
	desc := fmt.Sprintf("#%d  %dx%d+%d+%d", i.w.ID, i.w.Width, i.w.Height, i.w.X, i.w.Y)
	if len(flags) > 0 {
		desc += "  " + strings.Join(flags, ",")
	}
	return desc
}

func (i windowItem) FilterValue() string { return i.w.Title }

// actionMsg reports the outcome of a request sent to the session.
type actionMsg struct {
	text string
	err  error
}

// WindowsTab lists managed windows top of the stack first.
type WindowsTab struct {
	list    list.Model
	session Session
	count   int
	width   int
	height  int
}

func NewWindowsTab(session Session) WindowsTab {
	l := newList("Windows")
	l.SetFilteringEnabled(false)
	return WindowsTab{list: l, session: session}
}

// SetWindows replaces the list. Windows arrive bottom of the stack first.
func (w *WindowsTab) SetWindows(windows []ipc.WindowInfo) tea.Cmd {
	items := make([]list.Item, 0, len(windows))
	for i := len(windows) - 1; i >= 0; i-- {
		items = append(items, windowItem{w: windows[i]})
	}
	w.count = len(items)
	return w.list.SetItems(items)
}

func (w WindowsTab) selected() (ipc.WindowInfo, bool) {
	it, ok := w.list.SelectedItem().(windowItem)
	return it.w, ok
}

func (w WindowsTab) Update(msg tea.Msg) (WindowsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		w.list.SetSize(w.width, w.height)
		return w, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if win, ok := w.selected(); ok {
				return w, focusCmd(w.session, win)
			}
			return w, nil
		case "x":
			if win, ok := w.selected(); ok {
				return w, closeCmd(w.session, win)
			}
			return w, nil
		}
	}

	var cmd tea.Cmd
	w.list, cmd = w.list.Update(msg)
	return w, cmd
}

func (w WindowsTab) View() string {
	if w.count == 0 {
		return dimStyle.Width(w.width).Height(w.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No managed windows")
	}
	return w.list.View()
}

func focusCmd(session Session, win ipc.WindowInfo) tea.Cmd {
	return func() tea.Msg {
		if err := session.Focus(win.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("focused %q", win.Title)}
	}
}

func closeCmd(session Session, win ipc.WindowInfo) tea.Cmd {
	return func() tea.Msg {
		if err := session.Close(win.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("asked %q to close", win.Title)}
	}
}
