package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
)

const refreshInterval = 2 * time.Second

// snapshotMsg carries one poll of the session.
type snapshotMsg struct {
	status  *ipc.StatusData
	history []notify.Notification
	windows []ipc.WindowInfo
	err     error
}

type tickMsg time.Time

// model is the root bubbletea model for the TUI.
type model struct {
	session Session

	// Tab navigation
	activeTab Tab

	// Sub-models
	historyTab HistoryTab
	windowsTab WindowsTab
	composeTab ComposeTab

	// Session state
	status   *ipc.StatusData
	flash    string
	flashErr bool

	// Terminal dimensions
	width  int
	height int
}

func newModel(session Session) model {
	return model{
		session:    session,
		activeTab:  TabHistory,
		historyTab: NewHistoryTab(),
		windowsTab: NewWindowsTab(session),
		composeTab: NewComposeTab(session),
	}
}

func fetch(session Session) tea.Cmd {
	return func() tea.Msg {
		status, err := session.GetStatus()
		if err != nil {
			return snapshotMsg{err: err}
		}
		history, err := session.History()
		if err != nil {
			return snapshotMsg{status: status, err: err}
		}
		windows, err := session.ListWindows()
		if err != nil {
			return snapshotMsg{status: status, err: err}
		}
		return snapshotMsg{status: status, history: history, windows: windows}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(fetch(m.session), tick())
}

// capturing reports whether the active sub-model consumes every key.
func (m model) capturing() bool {
	return (m.activeTab == TabCompose && m.composeTab.editing) ||
		(m.activeTab == TabHistory && m.historyTab.Filtering())
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1) + flash (1)
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		subMsg := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
		m.historyTab, _ = m.historyTab.Update(subMsg)
		m.windowsTab, _ = m.windowsTab.Update(subMsg)
		m.composeTab, _ = m.composeTab.Update(subMsg)
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetch(m.session), tick())

	case snapshotMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = nil
			m.flash, m.flashErr = msg.err.Error(), true
			return m, nil
		}
		if m.flashErr {
			m.flash, m.flashErr = "", false
		}
		return m, tea.Batch(m.historyTab.SetEntries(msg.history), m.windowsTab.SetWindows(msg.windows))

	case actionMsg:
		if msg.err != nil {
			m.flash, m.flashErr = msg.err.Error(), true
			return m, nil
		}
		m.flash, m.flashErr = msg.text, false
		return m, fetch(m.session)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		if km.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.capturing() {
			switch km.String() {
			case "q":
				return m, tea.Quit
			case "tab":
				m.activeTab = (m.activeTab + 1) % tabCount
				return m, nil
			case "shift+tab":
				m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
				return m, nil
			case "1":
				m.activeTab = TabHistory
				return m, nil
			case "2":
				m.activeTab = TabWindows
				return m, nil
			case "3":
				m.activeTab = TabCompose
				return m, nil
			case "r":
				return m, fetch(m.session)
			}
		}
	}

	// Delegate to active tab's sub-model
	var cmd tea.Cmd
	switch m.activeTab {
	case TabHistory:
		m.historyTab, cmd = m.historyTab.Update(msg)
	case TabWindows:
		m.windowsTab, cmd = m.windowsTab.Update(msg)
	case TabCompose:
		m.composeTab, cmd = m.composeTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.flash, m.flashErr, m.width)

	var content string
	switch m.activeTab {
	case TabHistory:
		content = m.historyTab.View()
	case TabWindows:
		content = m.windowsTab.View()
	case TabCompose:
		content = m.composeTab.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
