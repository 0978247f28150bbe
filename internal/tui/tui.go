package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
)

// Session is the control-plane surface the browser reads and acts on.
// *ipc.Client satisfies it.
type Session interface {
	GetStatus() (*ipc.StatusData, error)
	History() ([]notify.Notification, error)
	ListWindows() ([]ipc.WindowInfo, error)
	Focus(id uint32) error
	Close(id uint32) error
	Notify(p ipc.NotifyPayload) (uint32, error)
}

var _ Session = (*ipc.Client)(nil)

// Run starts the session browser and blocks until the user quits.
func Run(session Session) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("history browser requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
