package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
)

// ComposeTab posts a notification to the session through a form.
type ComposeTab struct {
	session Session

	width  int
	height int

	editing bool
	form    *huh.Form

	// Form-bound values
	fApp     string
	fSummary string
	fBody    string
	fUrgency string
}

func NewComposeTab(session Session) ComposeTab {
	return ComposeTab{session: session}
}

func (c ComposeTab) Update(msg tea.Msg) (ComposeTab, tea.Cmd) {
	if c.editing {
		return c.updateEditing(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "n" || msg.String() == "enter" {
			c.startEditing()
			return c, c.form.Init()
		}
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
	}
	return c, nil
}

func (c ComposeTab) updateEditing(msg tea.Msg) (ComposeTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			c.editing = false
			c.form = nil
			return c, nil
		}
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	switch c.form.State {
	case huh.StateCompleted:
		payload := c.payload()
		c.editing = false
		c.form = nil
		return c, notifyCmd(c.session, payload)
	case huh.StateAborted:
		c.editing = false
		c.form = nil
		return c, nil
	}
	return c, cmd
}

func (c *ComposeTab) startEditing() {
	c.fApp = "deskshell"
	c.fSummary = ""
	c.fBody = ""
	c.fUrgency = "normal"

	w := c.width - 4
	if w < 40 {
		w = 40
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("summary").
				Title("Summary").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("summary is required")
					}
					return nil
				}).
				Value(&c.fSummary),

			huh.NewText().
				Key("body").
				Title("Body").
				Lines(4).
				Value(&c.fBody),

			huh.NewSelect[string]().
				Key("urgency").
				Title("Urgency").
				Description("Critical notifications stay until dismissed").
				Options(
					huh.NewOption("low", "low"),
					huh.NewOption("normal", "normal"),
					huh.NewOption("critical", "critical"),
				).
				Value(&c.fUrgency),

			huh.NewInput().
				Key("app").
				Title("App").
				Value(&c.fApp),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	c.editing = true
}

func (c ComposeTab) payload() ipc.NotifyPayload {
	return ipc.NotifyPayload{
		App:     strings.TrimSpace(c.fApp),
		Summary: strings.TrimSpace(c.fSummary),
		Body:    c.fBody,
		Urgency: c.fUrgency,
	}
}

func (c ComposeTab) View() string {
	if c.editing && c.form != nil {
		return c.form.View()
	}
	return dimStyle.Width(c.width).Height(c.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render("Press n to compose a notification")
}

func notifyCmd(session Session, p ipc.NotifyPayload) tea.Cmd {
	return func() tea.Msg {
		id, err := session.Notify(p)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("posted notification %d", id)}
	}
}
