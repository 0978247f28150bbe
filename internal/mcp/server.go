package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
)

const (
	ServerName    = "deskshell"
	ServerVersion = "0.1.0"

	// DefaultApp names the sender of toasts posted without an app.
	DefaultApp = "mcp"
)

// Session is the part of the control-plane client the tools drive.
// *ipc.Client satisfies it.
type Session interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	Focus(id uint32) error
	Close(id uint32) error
	Notify(p ipc.NotifyPayload) (uint32, error)
	Dismiss(id uint32) error
	DismissAll() (int, error)
	History() ([]notify.Notification, error)
	ShowOSD(kind string, value int) error
	Lock() error
	Screenshot(mode string) (*ipc.ScreenshotData, error)
	Power(action string) error
	Launch(app string) (*ipc.LaunchData, error)
	Reload() error
}

var _ Session = (*ipc.Client)(nil)

// Server is the MCP server exposing a running deskshell session.
type Server struct {
	mcpServer *mcpsdk.Server
	session   Session
	logger    *slog.Logger
}

// NewServer creates a server that forwards tool calls to session.
func NewServer(session Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session: session,
		logger:  logger.With("component", "mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the session state: lock state, failed unlock attempts, window and notification counts, screen size and uptime.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List managed windows bottom of the stack first, with geometry and minimized/maximized/focused flags. Ids are surface ids usable with focus_window and close_window.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Raise and focus a window, restoring it first if it is minimized.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Politely ask a window's client to close. The client may refuse or prompt.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "notify",
		Description: "Post a toast notification. Returns the id for dismiss_notification. When more toasts are visible than the session allows, the oldest moves to history.",
	}, s.handleNotify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "dismiss_notification",
		Description: "Dismiss one visible notification by id, or all of them with all=true. Dismissed toasts move to history.",
	}, s.handleDismiss)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "notification_history",
		Description: "Return dismissed and expired notifications, oldest first.",
	}, s.handleHistory)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_osd",
		Description: "Show the on-screen display for volume, brightness or mute with a 0-100 level. It fades after 1.5 seconds.",
	}, s.handleOSD)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "lock_screen",
		Description: "Lock the session. Has no effect when it is already locked.",
	}, s.handleLock)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "take_screenshot",
		Description: "Capture the full screen or the focused window and return the saved path. Region mode starts an interactive selection on screen and returns immediately. Refused while the screen is locked.",
	}, s.handleScreenshot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "power_action",
		Description: "Run a session action: lock, logout, suspend, hibernate, reboot or shutdown. Logout ends the session.",
	}, s.handlePower)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "launch_app",
		Description: "Start an application from the launcher catalog. Names are matched case-insensitively and close misspellings resolve to the nearest entry.",
	}, s.handleLaunch)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Re-read the session configuration file and apply the reloadable settings.",
	}, s.handleReload)
}
