package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/deskshell/internal/notify"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandNotify      CommandType = "NOTIFY"
	CommandDismiss     CommandType = "DISMISS"
	CommandDismissAll  CommandType = "DISMISS_ALL"
	CommandHistory     CommandType = "HISTORY"
	CommandOSD         CommandType = "OSD"
	CommandLock        CommandType = "LOCK"
	CommandScreenshot  CommandType = "SCREENSHOT"
	CommandPower       CommandType = "POWER"
	CommandLaunch      CommandType = "LAUNCH"
	CommandFocus       CommandType = "FOCUS"
	CommandClose       CommandType = "CLOSE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	LockState          string `json:"lock_state"`
	Locked             bool   `json:"locked"`
	FailedAttempts     int    `json:"failed_attempts"`
	LockoutSeconds     int64  `json:"lockout_seconds,omitempty"`
	IdleTimeoutSeconds int64  `json:"idle_timeout_seconds"`
	Windows            int    `json:"windows"`
	FocusedWindow      uint32 `json:"focused_window,omitempty"`
	Notifications      int    `json:"notifications"`
	LauncherOpen       bool   `json:"launcher_open"`
	PowerMenuOpen      bool   `json:"power_menu_open"`
	ScreenWidth        int    `json:"screen_width"`
	ScreenHeight       int    `json:"screen_height"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
}

// WindowInfo describes one managed window. ID is the display surface id.
type WindowInfo struct {
	ID        uint32 `json:"id"`
	Title     string `json:"title"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Minimized bool   `json:"minimized,omitempty"`
	Maximized bool   `json:"maximized,omitempty"`
	Focused   bool   `json:"focused,omitempty"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// NotifyPayload represents the payload for NOTIFY. A nil TimeoutMS uses the
// session default; zero never expires.
type NotifyPayload struct {
	App       string          `json:"app"`
	Summary   string          `json:"summary"`
	Body      string          `json:"body,omitempty"`
	Icon      string          `json:"icon,omitempty"`
	Urgency   string          `json:"urgency,omitempty"`
	TimeoutMS *int64          `json:"timeout_ms,omitempty"`
	Progress  *int            `json:"progress,omitempty"`
	Actions   []notify.Action `json:"actions,omitempty"`
}

// IDPayload carries a notification or window id.
type IDPayload struct {
	ID uint32 `json:"id"`
}

type IDData struct {
	ID uint32 `json:"id"`
}

type CountData struct {
	Count int `json:"count"`
}

type HistoryData struct {
	Notifications []notify.Notification `json:"notifications"`
}

type OSDPayload struct {
	Kind  string `json:"kind"`
	Value int    `json:"value"`
}

type ScreenshotPayload struct {
	Mode string `json:"mode"`
}

// ScreenshotData is returned by SCREENSHOT. Region captures only start the
// interactive selection and report Pending.
type ScreenshotData struct {
	Path    string `json:"path,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

type PowerPayload struct {
	Action string `json:"action"`
}

type LaunchPayload struct {
	App string `json:"app"`
}

type LaunchData struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
