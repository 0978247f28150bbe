package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/notify"
)

var urgencyColors = map[notify.Urgency]lipgloss.Color{
	notify.Low:      lipgloss.Color("241"),
	notify.Normal:   lipgloss.Color("75"),
	notify.Critical: lipgloss.Color("203"),
}

// historyItem is one past notification.
type historyItem struct {
	n notify.Notification
}

func (i historyItem) Title() string {
	dot := lipgloss.NewStyle().Foreground(urgencyColors[i.n.Urgency]).Render("●")
	return dot + " " + i.n.Summary
}

func (i historyItem) Description() string {
	desc := i.n.AppName + " · " + i.n.CreatedAt.Local().Format("Jan 2 15:04")
	if body := firstLine(i.n.Body); body != "" {
		desc += " · " + body
	}
	return desc
}

func (i historyItem) FilterValue() string {
	return i.n.AppName + " " + i.n.Summary + " " + i.n.Body
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// HistoryTab lists dismissed and expired notifications, newest first.
type HistoryTab struct {
	list    list.Model
	detail  bool
	entries int
	width   int
	height  int
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = listTitleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

// NewHistoryTab creates an empty history tab.
func NewHistoryTab() HistoryTab {
	l := newList("Notification History")
	l.SetFilteringEnabled(true)
	return HistoryTab{list: l}
}

// SetEntries replaces the list, newest first. The selection follows the
// same notification id when it is still present.
func (h *HistoryTab) SetEntries(entries []notify.Notification) tea.Cmd {
	var selected uint32
	if it, ok := h.list.SelectedItem().(historyItem); ok {
		selected = it.n.ID
	}

	items := make([]list.Item, 0, len(entries))
	cursor := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ID == selected {
			cursor = len(items)
		}
		items = append(items, historyItem{n: entries[i]})
	}
	h.entries = len(items)
	cmd := h.list.SetItems(items)
	h.list.Select(cursor)
	return cmd
}

// Filtering reports whether the filter prompt is consuming keys.
func (h HistoryTab) Filtering() bool {
	return h.list.FilterState() == list.Filtering
}

func (h HistoryTab) Update(msg tea.Msg) (HistoryTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		h.resize()
		return h, nil
	case tea.KeyMsg:
		if !h.Filtering() {
			switch msg.String() {
			case "enter":
				h.detail = !h.detail
				h.resize()
				return h, nil
			case "esc":
				if h.detail {
					h.detail = false
					h.resize()
					return h, nil
				}
			}
		}
	}

	var cmd tea.Cmd
	h.list, cmd = h.list.Update(msg)
	return h, cmd
}

func (h *HistoryTab) resize() {
	listHeight := h.height
	if h.detail {
		listHeight = h.height / 2
	}
	h.list.SetSize(h.width, listHeight)
}

func (h HistoryTab) View() string {
	if h.entries == 0 {
		return dimStyle.Width(h.width).Height(h.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No notifications in history")
	}
	if !h.detail {
		return h.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, h.list.View(), h.detailView())
}

func (h HistoryTab) detailView() string {
	it, ok := h.list.SelectedItem().(historyItem)
	if !ok {
		return ""
	}
	return renderDetail(it.n, h.width)
}

func renderDetail(n notify.Notification, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", lipgloss.NewStyle().Bold(true).Render(n.Summary))
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("#%d  %s  %s  %s",
		n.ID, n.AppName, n.Urgency, n.CreatedAt.Local().Format(time.DateTime))))
	if n.Progress != nil {
		fmt.Fprintf(&b, "progress: %d%%\n", *n.Progress)
	}
	if len(n.Actions) > 0 {
		labels := make([]string, 0, len(n.Actions))
		for _, a := range n.Actions {
			labels = append(labels, a.Label)
		}
		fmt.Fprintf(&b, "actions: %s\n", strings.Join(labels, ", "))
	}
	if n.Body != "" {
		b.WriteString("\n" + n.Body)
	}

	w := width - 4
	if w < 20 {
		w = 20
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(w).
		Render(b.String())
}
