package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabHistory Tab = iota
	TabWindows
	TabCompose
	tabCount // sentinel for iteration
)

func (t Tab) String() string {
	switch t {
	case TabHistory:
		return "History"
	case TabWindows:
		return "Windows"
	case TabCompose:
		return "Compose"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// renderTabBar renders the tab bar with the given active tab and width.
func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d:%s", int(i)+1, i)
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar summarizes the session state, or says it is unreachable.
func renderStatusBar(status *ipc.StatusData, width int) string {
	var text string
	if status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		if status.Locked {
			dot = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("●")
		}
		parts := []string{
			dot + " session " + status.LockState,
			fmt.Sprintf("windows:%d", status.Windows),
			fmt.Sprintf("toasts:%d", status.Notifications),
		}
		if status.FailedAttempts > 0 {
			parts = append(parts, fmt.Sprintf("failed:%d", status.FailedAttempts))
		}
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " session not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

func helpText(tab Tab) string {
	common := "tab/shift-tab: switch tabs  1-3: jump  r: refresh  q/ctrl-c: quit"
	switch tab {
	case TabHistory:
		return "/: filter  enter: details  " + common
	case TabWindows:
		return "enter: focus  x: close  " + common
	case TabCompose:
		return "n: new notification  esc: cancel  " + common
	}
	return common
}

// renderHelpBar renders the bottom help line plus the last action result.
func renderHelpBar(tab Tab, flash string, flashErr bool, width int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	help := style.Render(helpText(tab))
	if flash == "" {
		return help
	}
	msg := okStyle.Render(flash)
	if flashErr {
		msg = errorStyle.Render(flash)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().Padding(0, 1).Render(msg), help)
}
